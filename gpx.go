package main

import (
	"encoding/xml"
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

type gpxFile struct {
	XMLName   xml.Name   `xml:"gpx"`
	Waypoints []gpxPoint `xml:"wpt"`
	Tracks    []gpxTrack `xml:"trk"`
	Routes    []gpxRoute `xml:"rte"`
}

type gpxPoint struct {
	Lat  float64  `xml:"lat,attr"`
	Lon  float64  `xml:"lon,attr"`
	Ele  *float64 `xml:"ele"`
	Name string   `xml:"name"`
	Desc string   `xml:"desc"`
}

type gpxTrack struct {
	Name     string       `xml:"name"`
	Segments []gpxSegment `xml:"trkseg"`
}

type gpxSegment struct {
	Points []gpxPoint `xml:"trkpt"`
}

type gpxRoute struct {
	Name   string     `xml:"name"`
	Points []gpxPoint `xml:"rtept"`
}

//normalizeGPX waypoints become points, track segments and routes become
//linestrings; segments of fewer than two points are dropped
func normalizeGPX(data []byte) (*geojson.FeatureCollection, error) {
	var doc gpxFile
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrMalformedXML, err)
	}
	fc := geojson.NewFeatureCollection()
	for _, wpt := range doc.Waypoints {
		props := map[string]interface{}{}
		if wpt.Name != "" {
			props["name"] = wpt.Name
		}
		if wpt.Desc != "" {
			props["description"] = wpt.Desc
		}
		if wpt.Ele != nil {
			props["elevation"] = *wpt.Ele
		}
		fc.Append(newFeature(orb.Point{wpt.Lon, wpt.Lat}, props))
	}
	for _, trk := range doc.Tracks {
		for _, seg := range trk.Segments {
			if len(seg.Points) < 2 {
				continue
			}
			ls := make(orb.LineString, 0, len(seg.Points))
			for _, pt := range seg.Points {
				ls = append(ls, orb.Point{pt.Lon, pt.Lat})
			}
			props := map[string]interface{}{}
			if trk.Name != "" {
				props["name"] = trk.Name
			}
			fc.Append(newFeature(ls, props))
		}
	}
	for _, rte := range doc.Routes {
		if len(rte.Points) < 2 {
			continue
		}
		ls := make(orb.LineString, 0, len(rte.Points))
		for _, pt := range rte.Points {
			ls = append(ls, orb.Point{pt.Lon, pt.Lat})
		}
		props := map[string]interface{}{}
		if rte.Name != "" {
			props["name"] = rte.Name
		}
		fc.Append(newFeature(ls, props))
	}
	return fc, nil
}
