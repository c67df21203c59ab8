package main

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"github.com/stretchr/testify/assert"
)

//dxfDoc builds a minimal drawing around the given ENTITIES body
func dxfDoc(entities ...string) []byte {
	var b strings.Builder
	b.WriteString("0\nSECTION\n2\nHEADER\n0\nENDSEC\n")
	b.WriteString("0\nSECTION\n2\nENTITIES\n")
	for _, e := range entities {
		b.WriteString(e)
	}
	b.WriteString("0\nENDSEC\n0\nEOF\n")
	return []byte(b.String())
}

func Test_convertDXF_Point(t *testing.T) {
	fc, err := convertDXF(dxfDoc("0\nPOINT\n8\nsurvey\n10\n3.5\n20\n-1.25\n"))
	assert.NoError(t, err)
	assert.Equal(t, 1, len(fc.Features))
	assert.Equal(t, orb.Point{3.5, -1.25}, fc.Features[0].Geometry)
	assert.Equal(t, "survey", fc.Features[0].Properties["layer"])
	assert.Equal(t, "POINT", fc.Features[0].Properties["type"])
}

func Test_convertDXF_Line(t *testing.T) {
	fc, err := convertDXF(dxfDoc("0\nLINE\n10\n0\n20\n0\n11\n10\n21\n5\n"))
	assert.NoError(t, err)
	ls, ok := fc.Features[0].Geometry.(orb.LineString)
	assert.True(t, ok)
	assert.Equal(t, orb.LineString{{0, 0}, {10, 5}}, ls)
	assert.Equal(t, "0", fc.Features[0].Properties["layer"])
}

func Test_convertDXF_LWPolyline(t *testing.T) {
	open := "0\nLWPOLYLINE\n90\n3\n70\n0\n10\n0\n20\n0\n10\n5\n20\n0\n10\n5\n20\n5\n"
	closed := "0\nLWPOLYLINE\n90\n4\n70\n1\n10\n0\n20\n0\n10\n4\n20\n0\n10\n4\n20\n4\n10\n0\n20\n4\n"
	fc, err := convertDXF(dxfDoc(open, closed))
	assert.NoError(t, err)
	assert.Equal(t, 2, len(fc.Features))

	_, ok := fc.Features[0].Geometry.(orb.LineString)
	assert.True(t, ok)

	poly, ok := fc.Features[1].Geometry.(orb.Polygon)
	assert.True(t, ok)
	ring := poly[0]
	assert.Equal(t, ring[0], ring[len(ring)-1])
	assert.InDelta(t, 16.0, planar.Area(poly), 1e-9)
}

func Test_convertDXF_Polyline(t *testing.T) {
	body := "0\nPOLYLINE\n8\nroads\n70\n0\n" +
		"0\nVERTEX\n10\n0\n20\n0\n" +
		"0\nVERTEX\n10\n1\n20\n1\n" +
		"0\nVERTEX\n10\n2\n20\n0\n" +
		"0\nSEQEND\n" +
		"0\nPOINT\n10\n9\n20\n9\n"
	fc, err := convertDXF(dxfDoc(body))
	assert.NoError(t, err)
	assert.Equal(t, 2, len(fc.Features))
	ls, ok := fc.Features[0].Geometry.(orb.LineString)
	assert.True(t, ok)
	assert.Equal(t, 3, len(ls))
	assert.Equal(t, "roads", fc.Features[0].Properties["layer"])
	assert.Equal(t, orb.Point{9, 9}, fc.Features[1].Geometry)
}

func Test_convertDXF_Circle(t *testing.T) {
	fc, err := convertDXF(dxfDoc("0\nCIRCLE\n10\n10\n20\n20\n40\n5\n"))
	assert.NoError(t, err)
	poly, ok := fc.Features[0].Geometry.(orb.Polygon)
	assert.True(t, ok)
	ring := poly[0]
	assert.Equal(t, arcSegments+1, len(ring))
	assert.Equal(t, ring[0], ring[len(ring)-1])
	assert.Equal(t, 5.0, fc.Features[0].Properties["radius"])
	//32-gon area approaches the circle's
	assert.InDelta(t, math.Pi*25, planar.Area(poly), 0.6)
}

func Test_convertDXF_Arc(t *testing.T) {
	fc, err := convertDXF(dxfDoc("0\nARC\n10\n0\n20\n0\n40\n10\n50\n0\n51\n90\n"))
	assert.NoError(t, err)
	ls, ok := fc.Features[0].Geometry.(orb.LineString)
	assert.True(t, ok)
	assert.Equal(t, arcSegments+1, len(ls))
	assert.InDelta(t, 10.0, ls[0][0], 1e-9)
	assert.InDelta(t, 0.0, ls[0][1], 1e-9)
	assert.InDelta(t, 0.0, ls[len(ls)-1][0], 1e-9)
	assert.InDelta(t, 10.0, ls[len(ls)-1][1], 1e-9)
}

func Test_convertDXF_Ellipse(t *testing.T) {
	fc, err := convertDXF(dxfDoc("0\nELLIPSE\n10\n0\n20\n0\n11\n4\n21\n0\n40\n0.5\n"))
	assert.NoError(t, err)
	poly, ok := fc.Features[0].Geometry.(orb.Polygon)
	assert.True(t, ok)
	ring := poly[0]
	assert.Equal(t, ring[0], ring[len(ring)-1])
	//a=4 b=2, 32-gon area close to pi*a*b
	assert.InDelta(t, math.Pi*8, planar.Area(poly), 0.2)
}

func Test_convertDXF_Text(t *testing.T) {
	fc, err := convertDXF(dxfDoc("0\nTEXT\n10\n1\n20\n2\n1\nLOT 42\n"))
	assert.NoError(t, err)
	assert.Equal(t, orb.Point{1, 2}, fc.Features[0].Geometry)
	assert.Equal(t, "LOT 42", fc.Features[0].Properties["text"])
}

func Test_convertDXF_SkipsUnsupported(t *testing.T) {
	fc, err := convertDXF(dxfDoc(
		"0\nHATCH\n8\nfills\n",
		"0\nPOINT\n10\n1\n20\n1\n"))
	assert.NoError(t, err)
	assert.Equal(t, 1, len(fc.Features))
}

func Test_convertDXF_NoEntities(t *testing.T) {
	_, err := convertDXF([]byte("0\nSECTION\n2\nHEADER\n0\nENDSEC\n0\nEOF\n"))
	assert.True(t, errors.Is(err, ErrNoEntities))

	_, err = convertDXF(dxfDoc())
	assert.True(t, errors.Is(err, ErrNoEntities))
}

func Test_convertDXF_NoConvertible(t *testing.T) {
	_, err := convertDXF(dxfDoc("0\nHATCH\n8\nfills\n", "0\n3DSOLID\n"))
	assert.True(t, errors.Is(err, ErrNoConvertibleEntities))
}
