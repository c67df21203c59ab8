package main

import (
	"archive/zip"
	"bytes"
	"errors"
	"image"
	"image/png"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func pngBytes(t *testing.T) []byte {
	var buf bytes.Buffer
	err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 2, 2)))
	assert.NoError(t, err)
	return buf.Bytes()
}

func buildKMZ(t *testing.T, entries map[string][]byte) []byte {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, data := range entries {
		w, err := zw.Create(name)
		assert.NoError(t, err)
		_, err = w.Write(data)
		assert.NoError(t, err)
	}
	assert.NoError(t, zw.Close())
	return buf.Bytes()
}

func Test_unpackKMZ(t *testing.T) {
	doc := []byte(`<kml><Document>
		<Placemark>
			<name>marker</name>
			<Style><IconStyle><Icon><href>files/pin.png</href></Icon></IconStyle></Style>
			<Point><coordinates>151.2,-33.8</coordinates></Point>
		</Placemark>
	</Document></kml>`)
	kmz := buildKMZ(t, map[string][]byte{
		"doc.kml":        doc,
		"files/pin.png":  pngBytes(t),
		"files/site.jpg": {0xff, 0xd8, 0xff, 0xe0},
	})

	fc, extracted, err := unpackKMZ(kmz)
	assert.NoError(t, err)
	assert.Equal(t, 2, extracted)
	assert.Equal(t, 1, len(fc.Features))
	icon, _ := fc.Features[0].Properties["icon"].(string)
	assert.True(t, strings.HasPrefix(icon, "data:image/png;base64,"))
}

func Test_unpackKMZ_BaseNameMatch(t *testing.T) {
	doc := []byte(`<kml><Placemark>
		<Style><IconStyle><Icon><href>pin.png</href></Icon></IconStyle></Style>
		<Point><coordinates>1,1</coordinates></Point>
	</Placemark></kml>`)
	kmz := buildKMZ(t, map[string][]byte{
		"doc.kml":       doc,
		"files/pin.png": pngBytes(t),
	})
	fc, _, err := unpackKMZ(kmz)
	assert.NoError(t, err)
	icon, _ := fc.Features[0].Properties["icon"].(string)
	assert.True(t, strings.HasPrefix(icon, "data:image/png;base64,"))
}

func Test_unpackKMZ_NoDocument(t *testing.T) {
	kmz := buildKMZ(t, map[string][]byte{"readme.txt": []byte("hi")})
	_, _, err := unpackKMZ(kmz)
	assert.True(t, errors.Is(err, ErrNoEmbeddedDocument))
}

func Test_unpackKMZ_NotAnArchive(t *testing.T) {
	_, _, err := unpackKMZ([]byte("definitely not a zip"))
	assert.True(t, errors.Is(err, ErrNoEmbeddedDocument))
}
