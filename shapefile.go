package main

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	shp "github.com/jonas-p/go-shp"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	log "github.com/sirupsen/logrus"
	"golang.org/x/text/encoding/simplifiedchinese"
)

//decodeShapefile stages the upload into a temp dir and reads every .shp it
//contains with go-shp, flattening all layers into one collection. A bare
//.shp upload loses its .dbf sidecar, so attributes may be absent.
func decodeShapefile(name string, data []byte) (*geojson.FeatureCollection, error) {
	dir, err := ioutil.TempDir("", "shp-import")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(dir)

	var shpPaths []string
	if strings.ToLower(filepath.Ext(name)) == ".zip" {
		shpPaths, err = stageShapefileArchive(dir, data)
		if err != nil {
			return nil, err
		}
		if len(shpPaths) == 0 {
			return nil, fmt.Errorf("%w: no .shp entry in archive", ErrNoEmbeddedDocument)
		}
	} else {
		p := filepath.Join(dir, "layer.shp")
		if err := ioutil.WriteFile(p, data, os.ModePerm); err != nil {
			return nil, err
		}
		shpPaths = []string{p}
	}

	fc := geojson.NewFeatureCollection()
	for _, p := range shpPaths {
		if err := readShapefileLayer(fc, p); err != nil {
			return nil, err
		}
	}
	return fc, nil
}

//stageShapefileArchive writes shp/dbf/shx/prj members out with lower-cased
//extensions so sidecar lookup is case-insensitive
func stageShapefileArchive(dir string, data []byte) ([]string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrNoEmbeddedDocument, err)
	}
	var shpPaths []string
	for _, zf := range zr.File {
		ext := strings.ToLower(filepath.Ext(zf.Name))
		switch ext {
		case ".shp", ".dbf", ".shx", ".prj":
		default:
			continue
		}
		base := strings.TrimSuffix(filepath.Base(zf.Name), filepath.Ext(zf.Name))
		out := filepath.Join(dir, base+ext)
		rc, err := zf.Open()
		if err != nil {
			return nil, err
		}
		w, err := os.Create(out)
		if err != nil {
			rc.Close()
			return nil, err
		}
		_, err = io.Copy(w, rc)
		rc.Close()
		w.Close()
		if err != nil {
			return nil, err
		}
		if ext == ".shp" {
			shpPaths = append(shpPaths, out)
		}
	}
	return shpPaths, nil
}

func readShapefileLayer(fc *geojson.FeatureCollection, path string) error {
	reader, err := shp.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", filepath.Base(path), err)
	}
	defer reader.Close()

	fields := reader.Fields()
	for reader.Next() {
		n, shape := reader.Shape()
		g := shapeToGeometry(shape)
		if g == nil {
			log.Debugf("readShapefileLayer, skipping record %d of unsupported type %v", n, reader.GeometryType)
			continue
		}
		props := map[string]interface{}{}
		if reader.AttributeCount() > 0 {
			for i, f := range fields {
				val := reader.ReadAttribute(n, i)
				if !utf8.ValidString(val) {
					if fixed, err := simplifiedchinese.GB18030.NewDecoder().String(val); err == nil {
						val = fixed
					}
				}
				props[f.String()] = strings.TrimSpace(val)
			}
		}
		fc.Append(newFeature(g, props))
	}
	return nil
}

//shapeToGeometry Z and M variants are flattened to 2D
func shapeToGeometry(shape shp.Shape) orb.Geometry {
	switch s := shape.(type) {
	case *shp.Point:
		return orb.Point{s.X, s.Y}
	case *shp.PointZ:
		return orb.Point{s.X, s.Y}
	case *shp.PointM:
		return orb.Point{s.X, s.Y}
	case *shp.MultiPoint:
		mp := make(orb.MultiPoint, 0, len(s.Points))
		for _, p := range s.Points {
			mp = append(mp, orb.Point{p.X, p.Y})
		}
		return mp
	case *shp.PolyLine:
		return polyLineGeometry(s.Parts, s.Points)
	case *shp.PolyLineZ:
		return polyLineGeometry(s.Parts, s.Points)
	case *shp.PolyLineM:
		return polyLineGeometry(s.Parts, s.Points)
	case *shp.Polygon:
		return polygonGeometry(s.Parts, s.Points)
	case *shp.PolygonZ:
		return polygonGeometry(s.Parts, s.Points)
	case *shp.PolygonM:
		return polygonGeometry(s.Parts, s.Points)
	}
	return nil
}

func splitParts(parts []int32, points []shp.Point) [][]orb.Point {
	if len(parts) == 0 {
		parts = []int32{0}
	}
	var out [][]orb.Point
	for i, start := range parts {
		end := len(points)
		if i+1 < len(parts) {
			end = int(parts[i+1])
		}
		if int(start) >= end {
			continue
		}
		seg := make([]orb.Point, 0, end-int(start))
		for _, p := range points[start:end] {
			seg = append(seg, orb.Point{p.X, p.Y})
		}
		out = append(out, seg)
	}
	return out
}

func polyLineGeometry(parts []int32, points []shp.Point) orb.Geometry {
	segs := splitParts(parts, points)
	switch len(segs) {
	case 0:
		return nil
	case 1:
		return orb.LineString(segs[0])
	}
	mls := make(orb.MultiLineString, 0, len(segs))
	for _, seg := range segs {
		mls = append(mls, orb.LineString(seg))
	}
	return mls
}

func polygonGeometry(parts []int32, points []shp.Point) orb.Geometry {
	segs := splitParts(parts, points)
	if len(segs) == 0 {
		return nil
	}
	poly := make(orb.Polygon, 0, len(segs))
	for _, seg := range segs {
		poly = append(poly, closedRing(seg))
	}
	return poly
}
