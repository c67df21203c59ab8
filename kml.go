package main

import (
	"encoding/xml"
	"fmt"
	"path"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	log "github.com/sirupsen/logrus"
)

type kmlFile struct {
	XMLName    xml.Name       `xml:"kml"`
	Document   *kmlFolder     `xml:"Document"`
	Folders    []kmlFolder    `xml:"Folder"`
	Placemarks []kmlPlacemark `xml:"Placemark"`
}

type kmlFolder struct {
	Name       string         `xml:"name"`
	Folders    []kmlFolder    `xml:"Folder"`
	Documents  []kmlFolder    `xml:"Document"`
	Placemarks []kmlPlacemark `xml:"Placemark"`
}

type kmlPlacemark struct {
	Name        string        `xml:"name"`
	Description string        `xml:"description"`
	IconHref    string        `xml:"Style>IconStyle>Icon>href"`
	Point       *kmlGeometry  `xml:"Point"`
	LineString  *kmlGeometry  `xml:"LineString"`
	Polygon     *kmlPolygon   `xml:"Polygon"`
	Multi       *kmlMultiGeom `xml:"MultiGeometry"`
}

type kmlGeometry struct {
	Coordinates string `xml:"coordinates"`
}

type kmlPolygon struct {
	Outer  kmlGeometry   `xml:"outerBoundaryIs>LinearRing"`
	Inners []kmlGeometry `xml:"innerBoundaryIs>LinearRing"`
}

type kmlMultiGeom struct {
	Points      []kmlGeometry `xml:"Point"`
	LineStrings []kmlGeometry `xml:"LineString"`
	Polygons    []kmlPolygon  `xml:"Polygon"`
}

//normalizeKML converts placemarks into features. images maps archive paths to
//data URIs when the document came out of a kmz; icon hrefs pointing at an
//archive entry are replaced with the corresponding data URI.
func normalizeKML(data []byte, images map[string]string) (*geojson.FeatureCollection, error) {
	var doc kmlFile
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrMalformedXML, err)
	}
	fc := geojson.NewFeatureCollection()
	appendPlacemarks(fc, doc.Placemarks, images)
	for i := range doc.Folders {
		walkKMLFolder(fc, &doc.Folders[i], images)
	}
	if doc.Document != nil {
		walkKMLFolder(fc, doc.Document, images)
	}
	return fc, nil
}

func walkKMLFolder(fc *geojson.FeatureCollection, folder *kmlFolder, images map[string]string) {
	appendPlacemarks(fc, folder.Placemarks, images)
	for i := range folder.Folders {
		walkKMLFolder(fc, &folder.Folders[i], images)
	}
	for i := range folder.Documents {
		walkKMLFolder(fc, &folder.Documents[i], images)
	}
}

func appendPlacemarks(fc *geojson.FeatureCollection, pms []kmlPlacemark, images map[string]string) {
	for i := range pms {
		pm := &pms[i]
		props := map[string]interface{}{}
		if pm.Name != "" {
			props["name"] = pm.Name
		}
		if pm.Description != "" {
			props["description"] = pm.Description
		}
		if href := strings.TrimSpace(pm.IconHref); href != "" {
			props["icon"] = resolveArchiveRef(href, images)
		}
		for _, g := range placemarkGeometries(pm) {
			fc.Append(newFeature(g, props))
		}
	}
}

func placemarkGeometries(pm *kmlPlacemark) []orb.Geometry {
	var gs []orb.Geometry
	if pm.Point != nil {
		if pts := parseKMLCoordinates(pm.Point.Coordinates); len(pts) > 0 {
			gs = append(gs, pts[0])
		}
	}
	if pm.LineString != nil {
		if pts := parseKMLCoordinates(pm.LineString.Coordinates); len(pts) >= 2 {
			gs = append(gs, orb.LineString(pts))
		}
	}
	if pm.Polygon != nil {
		if poly := kmlPolygonGeometry(pm.Polygon); poly != nil {
			gs = append(gs, poly)
		}
	}
	if pm.Multi != nil {
		for _, p := range pm.Multi.Points {
			if pts := parseKMLCoordinates(p.Coordinates); len(pts) > 0 {
				gs = append(gs, pts[0])
			}
		}
		for _, l := range pm.Multi.LineStrings {
			if pts := parseKMLCoordinates(l.Coordinates); len(pts) >= 2 {
				gs = append(gs, orb.LineString(pts))
			}
		}
		for i := range pm.Multi.Polygons {
			if poly := kmlPolygonGeometry(&pm.Multi.Polygons[i]); poly != nil {
				gs = append(gs, poly)
			}
		}
	}
	return gs
}

func kmlPolygonGeometry(p *kmlPolygon) orb.Geometry {
	outer := parseKMLCoordinates(p.Outer.Coordinates)
	if len(outer) < 3 {
		return nil
	}
	poly := orb.Polygon{closedRing(outer)}
	for _, inner := range p.Inners {
		if pts := parseKMLCoordinates(inner.Coordinates); len(pts) >= 3 {
			poly = append(poly, closedRing(pts))
		}
	}
	return poly
}

//parseKMLCoordinates "lon,lat[,alt]" tuples split on whitespace; altitude is
//dropped, bad tuples are skipped
func parseKMLCoordinates(raw string) []orb.Point {
	var pts []orb.Point
	for _, tuple := range strings.Fields(raw) {
		parts := strings.Split(tuple, ",")
		if len(parts) < 2 {
			continue
		}
		lon, err1 := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
		lat, err2 := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
		if err1 != nil || err2 != nil {
			log.Debugf("parseKMLCoordinates, skipping tuple %q", tuple)
			continue
		}
		pts = append(pts, orb.Point{lon, lat})
	}
	return pts
}

//resolveArchiveRef replaces an icon href with its archive data URI, matching
//the exact archive path first and the entry base name second
func resolveArchiveRef(href string, images map[string]string) string {
	if len(images) == 0 {
		return href
	}
	if uri, ok := images[href]; ok {
		return uri
	}
	base := path.Base(href)
	for name, uri := range images {
		if path.Base(name) == base {
			return uri
		}
	}
	return href
}
