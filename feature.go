package main

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

//closedRing ensures first==last so the ring satisfies the geojson polygon
//contract; a ring of fewer than 3 points is returned untouched
func closedRing(pts []orb.Point) orb.Ring {
	ring := orb.Ring(pts)
	if len(ring) < 3 {
		return ring
	}
	if !ring[0].Equal(ring[len(ring)-1]) {
		ring = append(ring, ring[0])
	}
	return ring
}

//newFeature geometry plus optional properties, nil-safe
func newFeature(g orb.Geometry, props map[string]interface{}) *geojson.Feature {
	f := geojson.NewFeature(g)
	for k, v := range props {
		f.Properties[k] = v
	}
	return f
}
