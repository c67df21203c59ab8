package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/paulmach/orb/geojson"
)

//normalizeGeoJSON accepts a FeatureCollection, a single Feature or a bare
//geometry and always returns a FeatureCollection
func normalizeGeoJSON(data []byte) (*geojson.FeatureCollection, error) {
	var probe struct {
		Type     string          `json:"type"`
		Features json.RawMessage `json:"features"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidStructure, err)
	}

	switch probe.Type {
	case "FeatureCollection":
		if len(probe.Features) == 0 || string(probe.Features) == "null" {
			return nil, fmt.Errorf(`%w: "features" member missing`, ErrInvalidStructure)
		}
		fc, err := geojson.UnmarshalFeatureCollection(data)
		if err != nil {
			return nil, fmt.Errorf("%w: %s", ErrInvalidStructure, err)
		}
		return fc, nil
	case "Feature":
		f, err := geojson.UnmarshalFeature(data)
		if err != nil {
			return nil, fmt.Errorf("%w: %s", ErrInvalidStructure, err)
		}
		fc := geojson.NewFeatureCollection()
		fc.Append(f)
		return fc, nil
	case "Point", "MultiPoint", "LineString", "MultiLineString", "Polygon", "MultiPolygon", "GeometryCollection":
		g, err := geojson.UnmarshalGeometry(data)
		if err != nil {
			return nil, fmt.Errorf("%w: %s", ErrInvalidStructure, err)
		}
		fc := geojson.NewFeatureCollection()
		fc.Append(geojson.NewFeature(g.Geometry()))
		return fc, nil
	}
	return nil, fmt.Errorf("%w: unrecognized type %q", ErrInvalidStructure, strings.TrimSpace(probe.Type))
}
