package main

import (
	"bufio"
	"bytes"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	log "github.com/sirupsen/logrus"
)

//arcSegments curve tessellation density for circles, arcs and ellipses
const arcSegments = 32

//dxfTag one group-code/value pair from the tagged pair stream
type dxfTag struct {
	code  int
	value string
}

//dxfEntity a run of tags between two code-0 markers in the ENTITIES section
type dxfEntity struct {
	kind string
	tags []dxfTag
}

func (e *dxfEntity) float(code int, def float64) float64 {
	for _, t := range e.tags {
		if t.code == code {
			if v, err := strconv.ParseFloat(t.value, 64); err == nil {
				return v
			}
		}
	}
	return def
}

func (e *dxfEntity) str(code int, def string) string {
	for _, t := range e.tags {
		if t.code == code {
			return t.value
		}
	}
	return def
}

//vertices collects repeated 10/20 coordinate pairs in order of appearance
func (e *dxfEntity) vertices() []orb.Point {
	var pts []orb.Point
	var x float64
	var hasX bool
	for _, t := range e.tags {
		switch t.code {
		case 10:
			if v, err := strconv.ParseFloat(t.value, 64); err == nil {
				x = v
				hasX = true
			}
		case 20:
			if !hasX {
				continue
			}
			if v, err := strconv.ParseFloat(t.value, 64); err == nil {
				pts = append(pts, orb.Point{x, v})
			}
			hasX = false
		}
	}
	return pts
}

//parseDXFEntities scans the tagged pair stream and returns the entities of
//the ENTITIES section in document order
func parseDXFEntities(data []byte) ([]dxfEntity, error) {
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	var tags []dxfTag
	for {
		if !scanner.Scan() {
			break
		}
		codeLine := strings.TrimSpace(scanner.Text())
		if !scanner.Scan() {
			break
		}
		code, err := strconv.Atoi(codeLine)
		if err != nil {
			continue
		}
		tags = append(tags, dxfTag{code, strings.TrimSpace(scanner.Text())})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrNoEntities, err)
	}

	var entities []dxfEntity
	inEntities := false
	expectSectionName := false
	var current *dxfEntity
	flush := func() {
		if current != nil {
			entities = append(entities, *current)
			current = nil
		}
	}
	for _, t := range tags {
		if expectSectionName {
			expectSectionName = false
			if t.code == 2 {
				inEntities = t.value == "ENTITIES"
				continue
			}
		}
		if t.code == 0 {
			switch t.value {
			case "SECTION":
				flush()
				expectSectionName = true
				continue
			case "ENDSEC":
				flush()
				inEntities = false
				continue
			}
			if inEntities {
				flush()
				current = &dxfEntity{kind: t.value}
			}
			continue
		}
		if current != nil {
			current.tags = append(current.tags, t)
		}
	}
	flush()

	if !inEntities && len(entities) == 0 {
		return nil, ErrNoEntities
	}
	return entities, nil
}

//convertDXF turns drawing entities into features. Every feature carries the
//source layer and entity type; unsupported or degenerate entities are skipped.
func convertDXF(data []byte) (*geojson.FeatureCollection, error) {
	entities, err := parseDXFEntities(data)
	if err != nil {
		return nil, err
	}
	if len(entities) == 0 {
		return nil, ErrNoEntities
	}

	fc := geojson.NewFeatureCollection()
	for i := 0; i < len(entities); i++ {
		e := &entities[i]
		props := map[string]interface{}{
			"layer": e.str(8, "0"),
			"type":  e.kind,
		}
		switch e.kind {
		case "POINT":
			fc.Append(newFeature(orb.Point{e.float(10, 0), e.float(20, 0)}, props))
		case "LINE":
			ls := orb.LineString{
				{e.float(10, 0), e.float(20, 0)},
				{e.float(11, 0), e.float(21, 0)},
			}
			fc.Append(newFeature(ls, props))
		case "LWPOLYLINE":
			pts := e.vertices()
			if len(pts) < 2 {
				log.Debugf("convertDXF, skipping degenerate LWPOLYLINE with %d vertices", len(pts))
				continue
			}
			closed := int(e.float(70, 0))&1 == 1
			fc.Append(newFeature(polylineGeometry(pts, closed), props))
		case "POLYLINE":
			var pts []orb.Point
			j := i + 1
			for ; j < len(entities); j++ {
				if entities[j].kind == "VERTEX" {
					pts = append(pts, orb.Point{entities[j].float(10, 0), entities[j].float(20, 0)})
					continue
				}
				break
			}
			if j < len(entities) && entities[j].kind == "SEQEND" {
				j++
			}
			i = j - 1
			if len(pts) < 2 {
				continue
			}
			closed := int(e.float(70, 0))&1 == 1
			fc.Append(newFeature(polylineGeometry(pts, closed), props))
		case "CIRCLE":
			cx, cy, r := e.float(10, 0), e.float(20, 0), e.float(40, 0)
			if r <= 0 {
				continue
			}
			ring := make(orb.Ring, 0, arcSegments+1)
			for k := 0; k < arcSegments; k++ {
				a := 2 * math.Pi * float64(k) / arcSegments
				ring = append(ring, orb.Point{cx + r*math.Cos(a), cy + r*math.Sin(a)})
			}
			ring = append(ring, ring[0])
			props["radius"] = r
			fc.Append(newFeature(orb.Polygon{ring}, props))
		case "ARC":
			cx, cy, r := e.float(10, 0), e.float(20, 0), e.float(40, 0)
			if r <= 0 {
				continue
			}
			start := e.float(50, 0) * math.Pi / 180
			end := e.float(51, 0) * math.Pi / 180
			if end <= start {
				end += 2 * math.Pi
			}
			ls := make(orb.LineString, 0, arcSegments+1)
			for k := 0; k <= arcSegments; k++ {
				a := start + (end-start)*float64(k)/arcSegments
				ls = append(ls, orb.Point{cx + r*math.Cos(a), cy + r*math.Sin(a)})
			}
			fc.Append(newFeature(ls, props))
		case "ELLIPSE":
			cx, cy := e.float(10, 0), e.float(20, 0)
			mx, my := e.float(11, 0), e.float(21, 0)
			ratio := e.float(40, 0)
			major := math.Hypot(mx, my)
			if major <= 0 || ratio <= 0 {
				continue
			}
			minor := major * ratio
			rot := math.Atan2(my, mx)
			ring := make(orb.Ring, 0, arcSegments+1)
			for k := 0; k < arcSegments; k++ {
				a := 2 * math.Pi * float64(k) / arcSegments
				x := major * math.Cos(a)
				y := minor * math.Sin(a)
				ring = append(ring, orb.Point{
					cx + x*math.Cos(rot) - y*math.Sin(rot),
					cy + x*math.Sin(rot) + y*math.Cos(rot),
				})
			}
			ring = append(ring, ring[0])
			fc.Append(newFeature(orb.Polygon{ring}, props))
		case "TEXT", "MTEXT":
			text := e.str(1, "")
			if text == "" {
				continue
			}
			props["text"] = text
			fc.Append(newFeature(orb.Point{e.float(10, 0), e.float(20, 0)}, props))
		default:
			log.Debugf("convertDXF, skipping unsupported entity %s", e.kind)
		}
	}
	if len(fc.Features) == 0 {
		return nil, ErrNoConvertibleEntities
	}
	return fc, nil
}

//polylineGeometry closed polylines become ring-closed polygons, open ones
//stay linestrings
func polylineGeometry(pts []orb.Point, closed bool) orb.Geometry {
	if closed && len(pts) >= 3 {
		return orb.Polygon{closedRing(pts)}
	}
	return orb.LineString(pts)
}
