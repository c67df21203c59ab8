package main

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/axgle/mahonia"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	log "github.com/sirupsen/logrus"
)

//PREROWNUM 预览行数
const PREROWNUM = 7

//ordered by priority; detection walks the pattern list first, headers second
var latColumns = []string{"lat", "latitude", "y"}
var lngColumns = []string{"lng", "lon", "long", "longitude", "x"}

//CsvPreview header, a few sample rows and the suggested coordinate columns
type CsvPreview struct {
	Columns            []string            `json:"columns"`
	SampleRows         []map[string]string `json:"sample_rows"`
	SuggestedLatColumn string              `json:"suggested_lat_column"`
	SuggestedLngColumn string              `json:"suggested_lng_column"`
}

//csvReader wraps the raw bytes with a decoder when the caller names a legacy
//encoding such as gbk or big5
func csvReader(data []byte, encoding string) *csv.Reader {
	var r io.Reader = bytes.NewReader(data)
	switch strings.ToLower(encoding) {
	case "", "utf-8", "utf8":
	default:
		if decoder := mahonia.NewDecoder(encoding); decoder != nil {
			r = decoder.NewReader(r)
		} else {
			log.Warnf(`csvReader, unknown encoding %q, falling back to utf-8`, encoding)
		}
	}
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	return reader
}

//detectColumn pattern priority beats header order so "lat" wins over "y"
//even when "y" appears first in the file
func detectColumn(headers []string, patterns []string) string {
	for _, p := range patterns {
		for _, h := range headers {
			if strings.EqualFold(strings.TrimSpace(h), p) {
				return h
			}
		}
	}
	return ""
}

func columnIndex(headers []string, name string) int {
	for i, h := range headers {
		if h == name {
			return i
		}
	}
	return -1
}

//extractCSV reads the whole table, resolves coordinate columns from opts or
//by pattern detection, and yields a point per parseable row. Rows with
//missing or non-numeric coordinates are counted and skipped.
func extractCSV(data []byte, opts *ImportOptions) (*geojson.FeatureCollection, *CsvColumnInfo, int, error) {
	reader := csvReader(data, opts.Encoding)
	headers, err := reader.Read()
	if err != nil {
		return nil, nil, 0, fmt.Errorf("%w: %s", ErrTabularParse, err)
	}
	for i := range headers {
		headers[i] = strings.TrimSpace(headers[i])
	}

	latCol, lngCol := opts.LatColumn, opts.LngColumn
	if latCol == "" {
		latCol = detectColumn(headers, latColumns)
	}
	if lngCol == "" {
		lngCol = detectColumn(headers, lngColumns)
	}
	latIdx := columnIndex(headers, latCol)
	lngIdx := columnIndex(headers, lngCol)
	if latIdx < 0 || lngIdx < 0 {
		return nil, nil, 0, fmt.Errorf("%w, headers: %s", ErrColumnDetection, strings.Join(headers, ", "))
	}
	info := &CsvColumnInfo{LatColumn: latCol, LngColumn: lngCol, Columns: headers}

	fc := geojson.NewFeatureCollection()
	skipped := 0
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, info, skipped, fmt.Errorf("%w: %s", ErrTabularParse, err)
		}
		if latIdx >= len(row) || lngIdx >= len(row) {
			skipped++
			continue
		}
		lat, err1 := strconv.ParseFloat(strings.TrimSpace(row[latIdx]), 64)
		lng, err2 := strconv.ParseFloat(strings.TrimSpace(row[lngIdx]), 64)
		if err1 != nil || err2 != nil {
			skipped++
			continue
		}
		props := map[string]interface{}{}
		for i, h := range headers {
			if i == latIdx || i == lngIdx || i >= len(row) {
				continue
			}
			props[h] = row[i]
		}
		fc.Append(newFeature(orb.Point{lng, lat}, props))
	}
	if len(fc.Features) == 0 {
		return nil, info, skipped, fmt.Errorf("%w, %d rows skipped", ErrNoValidRows, skipped)
	}
	return fc, info, skipped, nil
}

//PreviewCSV 数据预览 parses the header and up to rows sample rows; it never
//fails on row-level data problems so the UI can always render something
func PreviewCSV(data []byte, encoding string, rows int) (*CsvPreview, error) {
	if rows <= 0 {
		rows = PREROWNUM
	}
	reader := csvReader(data, encoding)
	headers, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrTabularParse, err)
	}
	for i := range headers {
		headers[i] = strings.TrimSpace(headers[i])
	}
	preview := &CsvPreview{
		Columns:            headers,
		SampleRows:         []map[string]string{},
		SuggestedLatColumn: detectColumn(headers, latColumns),
		SuggestedLngColumn: detectColumn(headers, lngColumns),
	}
	for len(preview.SampleRows) < rows {
		row, err := reader.Read()
		if err != nil {
			break
		}
		sample := map[string]string{}
		for i, h := range headers {
			if i < len(row) {
				sample[h] = row[i]
			}
		}
		preview.SampleRows = append(preview.SampleRows, sample)
	}
	return preview, nil
}
