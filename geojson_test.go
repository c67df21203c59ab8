package main

import (
	"errors"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
)

func Test_normalizeGeoJSON_Collection(t *testing.T) {
	data := []byte(`{"type":"FeatureCollection","features":[
		{"type":"Feature","geometry":{"type":"Point","coordinates":[151.2,-33.8]},"properties":{"name":"lot 1"}},
		{"type":"Feature","geometry":{"type":"LineString","coordinates":[[0,0],[1,1]]},"properties":{}}]}`)
	fc, err := normalizeGeoJSON(data)
	assert.NoError(t, err)
	assert.Equal(t, 2, len(fc.Features))
	assert.Equal(t, "lot 1", fc.Features[0].Properties["name"])
	assert.Equal(t, orb.Point{151.2, -33.8}, fc.Features[0].Geometry)
}

func Test_normalizeGeoJSON_FeatureWrap(t *testing.T) {
	data := []byte(`{"type":"Feature","geometry":{"type":"Point","coordinates":[1,2]},"properties":{"a":"b"}}`)
	fc, err := normalizeGeoJSON(data)
	assert.NoError(t, err)
	assert.Equal(t, 1, len(fc.Features))
	assert.Equal(t, "b", fc.Features[0].Properties["a"])
}

func Test_normalizeGeoJSON_GeometryWrap(t *testing.T) {
	data := []byte(`{"type":"Polygon","coordinates":[[[0,0],[4,0],[4,4],[0,4],[0,0]]]}`)
	fc, err := normalizeGeoJSON(data)
	assert.NoError(t, err)
	assert.Equal(t, 1, len(fc.Features))
	_, ok := fc.Features[0].Geometry.(orb.Polygon)
	assert.True(t, ok)
}

func Test_normalizeGeoJSON_Invalid(t *testing.T) {
	cases := [][]byte{
		[]byte(`not json at all`),
		[]byte(`{"type":"FeatureCollection"}`),
		[]byte(`{"type":"Topology"}`),
		[]byte(`{"hello":"world"}`),
	}
	for _, data := range cases {
		_, err := normalizeGeoJSON(data)
		assert.True(t, errors.Is(err, ErrInvalidStructure), string(data))
	}
}
