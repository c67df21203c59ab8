package main

import (
	"archive/zip"
	"bytes"
	"encoding/base64"
	"fmt"
	"io/ioutil"
	"path"
	"strings"

	"github.com/paulmach/orb/geojson"
	log "github.com/sirupsen/logrus"
)

var imageExtensions = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".bmp":  "image/bmp",
}

//unpackKMZ extracts the first .kml entry and every image entry from the
//archive, then runs the KML normalizer with the images available for icon
//href resolution. Returns the number of images extracted.
func unpackKMZ(data []byte) (*geojson.FeatureCollection, int, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %s", ErrNoEmbeddedDocument, err)
	}

	var doc []byte
	images := map[string]string{}
	for _, zf := range zr.File {
		ext := strings.ToLower(path.Ext(zf.Name))
		switch {
		case ext == ".kml" && doc == nil:
			rc, err := zf.Open()
			if err != nil {
				return nil, 0, fmt.Errorf("%w: %s", ErrNoEmbeddedDocument, err)
			}
			doc, err = ioutil.ReadAll(rc)
			rc.Close()
			if err != nil {
				return nil, 0, fmt.Errorf("%w: %s", ErrNoEmbeddedDocument, err)
			}
		case imageExtensions[ext] != "":
			rc, err := zf.Open()
			if err != nil {
				log.Warnf(`unpackKMZ, cannot open archive image %s, details: %s`, zf.Name, err)
				continue
			}
			buf, err := ioutil.ReadAll(rc)
			rc.Close()
			if err != nil {
				log.Warnf(`unpackKMZ, cannot read archive image %s, details: %s`, zf.Name, err)
				continue
			}
			images[zf.Name] = fmt.Sprintf("data:%s;base64,%s",
				imageExtensions[ext], base64.StdEncoding.EncodeToString(buf))
		}
	}
	if doc == nil {
		return nil, 0, fmt.Errorf("%w: no .kml entry in archive", ErrNoEmbeddedDocument)
	}

	fc, err := normalizeKML(doc, images)
	if err != nil {
		return nil, 0, err
	}
	return fc, len(images), nil
}
