package main

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
)

func Test_ImportFile_UnknownFormat(t *testing.T) {
	result := ImportFile("notes.docx", []byte("whatever"), nil)
	assert.False(t, result.Success)
	assert.Equal(t, Unknown, result.Format)
	assert.True(t, strings.Contains(result.Error, ".docx"))
	assert.True(t, strings.Contains(result.Error, ListAcceptedExtensions()))
}

func Test_ImportFile_NeverPanics(t *testing.T) {
	garbage := []byte{0x00, 0xde, 0xad, 0xbe, 0xef, 0x7f, 0x01}
	for _, name := range []string{
		"a.geojson", "a.kml", "a.gpx", "a.kmz", "a.shp", "a.zip",
		"a.csv", "a.dxf", "a.tif", "a.png", "a.gpkg",
	} {
		assert.NotPanics(t, func() {
			result := ImportFile(name, garbage, nil)
			assert.False(t, result.Success, name)
			assert.NotEmpty(t, result.Error, name)
		}, name)
	}
}

func Test_ImportFile_GeoJSON(t *testing.T) {
	data := []byte(`{"type":"FeatureCollection","features":[
		{"type":"Feature","geometry":{"type":"Point","coordinates":[1,2]},"properties":{}}]}`)
	result := ImportFile("parcels.geojson", data, nil)
	assert.True(t, result.Success)
	assert.Equal(t, GeoJSON, result.Format)
	assert.Equal(t, 1, result.FeatureCount)
	assert.Empty(t, result.Error)
}

func Test_ImportFile_EmptyCollection(t *testing.T) {
	result := ImportFile("empty.geojson", []byte(`{"type":"FeatureCollection","features":[]}`), nil)
	assert.False(t, result.Success)
	assert.Equal(t, ErrNoFeatures.Error(), result.Error)
}

func Test_ImportFile_CSVOptions(t *testing.T) {
	data := []byte("northing,easting,note\n-33.8,151.2,ok\nbad,row,skip\n")
	result := ImportFile("pts.csv", data, &ImportOptions{LatColumn: "northing", LngColumn: "easting"})
	assert.True(t, result.Success)
	assert.Equal(t, 1, result.FeatureCount)
	assert.Equal(t, 1, result.SkippedRows)
	assert.NotNil(t, result.ColumnInfo)
	assert.Equal(t, "northing", result.ColumnInfo.LatColumn)
}

func Test_ImportFromURL(t *testing.T) {
	payload := `{"type":"Feature","geometry":{"type":"Point","coordinates":[3,4]},"properties":{}}`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/lots.geojson":
			w.Write([]byte(payload))
		case "/api/features":
			w.Header().Set("Content-Type", "application/json; charset=utf-8")
			w.Write([]byte(payload))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	result := ImportFromURL(srv.URL + "/lots.geojson")
	assert.True(t, result.Success)
	assert.Equal(t, 1, result.FeatureCount)

	//no extension, format sniffed from content-type
	result = ImportFromURL(srv.URL + "/api/features")
	assert.True(t, result.Success)
	assert.Equal(t, GeoJSON, result.Format)

	result = ImportFromURL(srv.URL + "/missing.geojson")
	assert.False(t, result.Success)
	assert.True(t, strings.Contains(result.Error, "404"))

	result = ImportFromURL("http://127.0.0.1:1/unreachable.geojson")
	assert.False(t, result.Success)
	assert.NotEmpty(t, result.Error)
}

func Test_fileImport_Handler(t *testing.T) {
	viper.Set("app.ips", 100)
	r := setupRouter()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", "broken.geojson")
	assert.NoError(t, err)
	fw.Write([]byte("{{{ not json"))
	mw.Close()

	req := httptest.NewRequest("POST", "/import/", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	//a bad file is a failed result, never a 500
	assert.Equal(t, http.StatusOK, rec.Code)
	var res struct {
		Status  int `json:"status"`
		Results struct {
			ID     string       `json:"id"`
			Import ImportResult `json:"import"`
		} `json:"results"`
	}
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, 0, res.Status)
	assert.False(t, res.Results.Import.Success)
	assert.NotEmpty(t, res.Results.Import.Error)
	assert.NotEmpty(t, res.Results.ID)
}

func Test_listFormats_Handler(t *testing.T) {
	viper.Set("app.ips", 100)
	r := setupRouter()

	req := httptest.NewRequest("GET", "/formats/", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), ".geojson"))
	assert.True(t, strings.Contains(rec.Body.String(), "shapefile"))
}
