package main

import (
	"database/sql"
	"fmt"
	"io/ioutil"
	"os"

	_ "github.com/mattn/go-sqlite3"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkb"
	"github.com/paulmach/orb/geojson"
	log "github.com/sirupsen/logrus"
)

//decodeGeoPackage reads every feature table registered in gpkg_contents and
//flattens the layers into one collection. sqlite needs a real file, so the
//blob is staged to a temp path first.
func decodeGeoPackage(data []byte) (*geojson.FeatureCollection, error) {
	tmp, err := ioutil.TempFile("", "import-*.gpkg")
	if err != nil {
		return nil, err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return nil, err
	}
	tmp.Close()

	db, err := sql.Open("sqlite3", tmp.Name())
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrGeoPackageRead, err)
	}
	defer db.Close()

	rows, err := db.Query(`SELECT c.table_name, g.column_name
		FROM gpkg_contents c
		JOIN gpkg_geometry_columns g ON g.table_name = c.table_name
		WHERE c.data_type = 'features'`)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrGeoPackageRead, err)
	}
	type layer struct{ table, geomCol string }
	var layers []layer
	for rows.Next() {
		var l layer
		if err := rows.Scan(&l.table, &l.geomCol); err != nil {
			rows.Close()
			return nil, fmt.Errorf("%w: %s", ErrGeoPackageRead, err)
		}
		layers = append(layers, l)
	}
	rows.Close()
	if len(layers) == 0 {
		return nil, fmt.Errorf("%w: no feature tables", ErrGeoPackageRead)
	}

	fc := geojson.NewFeatureCollection()
	for _, l := range layers {
		if err := readGpkgLayer(fc, db, l.table, l.geomCol); err != nil {
			return nil, err
		}
	}
	return fc, nil
}

func readGpkgLayer(fc *geojson.FeatureCollection, db *sql.DB, table, geomCol string) error {
	rows, err := db.Query(fmt.Sprintf(`SELECT * FROM "%s"`, table))
	if err != nil {
		return fmt.Errorf("%w: %s", ErrGeoPackageRead, err)
	}
	defer rows.Close()
	cols, err := rows.Columns()
	if err != nil {
		return fmt.Errorf("%w: %s", ErrGeoPackageRead, err)
	}

	for rows.Next() {
		vals := make([]interface{}, len(cols))
		ptrs := make([]interface{}, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return fmt.Errorf("%w: %s", ErrGeoPackageRead, err)
		}

		props := map[string]interface{}{"layer": table}
		var geomBlob []byte
		for i, col := range cols {
			if col == geomCol {
				if b, ok := vals[i].([]byte); ok {
					geomBlob = b
				}
				continue
			}
			if col == "fid" || col == "id" {
				continue
			}
			if b, ok := vals[i].([]byte); ok {
				props[col] = string(b)
			} else if vals[i] != nil {
				props[col] = vals[i]
			}
		}
		if geomBlob == nil {
			continue
		}
		g, err := parseGpkgGeometry(geomBlob)
		if err != nil {
			log.Warnf(`readGpkgLayer, skipping row in %s, details: %s`, table, err)
			continue
		}
		fc.Append(newFeature(g, props))
	}
	return rows.Err()
}

//envelope byte length per the flags' envelope-contents indicator
var gpkgEnvelopeSize = map[byte]int{0: 0, 1: 32, 2: 48, 3: 48, 4: 64}

//parseGpkgGeometry strips the GeoPackage binary header in front of the WKB
//payload. Header: magic "GP", version, flags, 4-byte srid, then an envelope
//whose size depends on the flags' envelope indicator.
func parseGpkgGeometry(blob []byte) (orb.Geometry, error) {
	if len(blob) < 8 || blob[0] != 'G' || blob[1] != 'P' {
		return nil, fmt.Errorf("not a geopackage geometry blob")
	}
	flags := blob[3]
	envSize, ok := gpkgEnvelopeSize[(flags>>1)&7]
	if !ok {
		return nil, fmt.Errorf("invalid envelope indicator %d", (flags>>1)&7)
	}
	offset := 8 + envSize
	if len(blob) < offset {
		return nil, fmt.Errorf("truncated geometry header")
	}
	g, err := wkb.Unmarshal(blob[offset:])
	if err != nil {
		return nil, err
	}
	return g, nil
}
