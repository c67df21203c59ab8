package main

import (
	"errors"
	"fmt"
	"io/ioutil"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	log "github.com/sirupsen/logrus"
)

//import failure taxonomy; every failure is surfaced on ImportResult.Error,
//never as a panic crossing ImportFile
var (
	ErrUnsupportedFormat     = errors.New("unsupported format")
	ErrInvalidStructure      = errors.New("invalid geojson structure")
	ErrMalformedXML          = errors.New("malformed xml document")
	ErrNoEntities            = errors.New("no entities in drawing")
	ErrNoConvertibleEntities = errors.New("no convertible entities in drawing")
	ErrTabularParse          = errors.New("tabular parse error")
	ErrColumnDetection       = errors.New("coordinate columns not detected")
	ErrNoValidRows           = errors.New("no valid rows")
	ErrNoEmbeddedDocument    = errors.New("no embedded document in archive")
	ErrGeoPackageRead        = errors.New("geopackage read error")
	ErrRasterRead            = errors.New("raster read error")
	ErrNetworkFetch          = errors.New("fetch error")
	ErrNoFeatures            = errors.New("no features found")
)

//ImportOptions caller-supplied hints, all optional
type ImportOptions struct {
	LatColumn string `json:"lat_column"`
	LngColumn string `json:"lng_column"`
	Encoding  string `json:"encoding"` //utf-8 assumed when empty
}

//CsvColumnInfo resolved coordinate columns, derived once per import
type CsvColumnInfo struct {
	LatColumn string   `json:"lat_column"`
	LngColumn string   `json:"lng_column"`
	Columns   []string `json:"columns"`
}

//RasterResult 栅格导入结果. Georeferenced=false means the caller must place
//the image on the map interactively; Bound is zero in that state.
type RasterResult struct {
	Data          []byte    `json:"-"`
	ContentType   string    `json:"content_type"`
	Width         int       `json:"width"`
	Height        int       `json:"height"`
	Bound         orb.Bound `json:"bound"`
	Georeferenced bool      `json:"georeferenced"`
	Thumbnail     string    `json:"thumbnail,omitempty"`
}

//ImportResult per-file outcome; exactly one of FC, Raster or Error is
//meaningful. A batch caller inspects Success per file and carries on.
type ImportResult struct {
	Success         bool                       `json:"success"`
	FileName        string                     `json:"file_name"`
	Format          SupportedFormat            `json:"format"`
	FC              *geojson.FeatureCollection `json:"feature_collection,omitempty"`
	Raster          *RasterResult              `json:"raster,omitempty"`
	FeatureCount    int                        `json:"feature_count,omitempty"`
	SkippedRows     int                        `json:"skipped_rows,omitempty"`
	ExtractedImages int                        `json:"extracted_images,omitempty"`
	ColumnInfo      *CsvColumnInfo             `json:"column_info,omitempty"`
	Error           string                     `json:"error,omitempty"`
}

var fetchClient = &http.Client{Timeout: 30 * time.Second}

//ImportFile 导入数据文件 normalizes one uploaded file into a feature
//collection or a raster result. It never panics into the caller.
func ImportFile(name string, data []byte, opts *ImportOptions) (result *ImportResult) {
	if opts == nil {
		opts = &ImportOptions{}
	}
	result = &ImportResult{FileName: name, Format: DetectFormat(name)}
	defer func() {
		if r := recover(); r != nil {
			log.Errorf(`ImportFile, recovered from %s import panic, file: %s, details: %v`, result.Format, name, r)
			result.Success = false
			result.FC = nil
			result.Raster = nil
			result.Error = fmt.Sprintf("%v", r)
		}
	}()

	if result.Format == Unknown {
		result.Error = fmt.Sprintf("%s %q, accepted: %s", ErrUnsupportedFormat, extOf(name), ListAcceptedExtensions())
		return
	}

	if IsRasterFormat(result.Format) {
		var rr *RasterResult
		var err error
		switch result.Format {
		case GeoTIFF:
			rr, err = decodeGeoTIFF(data)
		case Image:
			rr, err = decodePlainImage(data)
		}
		if err != nil {
			log.Errorf(`ImportFile, raster decode error, file: %s, details: %s`, name, err)
			result.Error = err.Error()
			return
		}
		result.Raster = rr
		result.Success = true
		return
	}

	var fc *geojson.FeatureCollection
	var err error
	switch result.Format {
	case GeoJSON:
		fc, err = normalizeGeoJSON(data)
	case KML:
		fc, err = normalizeKML(data, nil)
	case GPX:
		fc, err = normalizeGPX(data)
	case KMZ:
		fc, result.ExtractedImages, err = unpackKMZ(data)
	case DXF:
		fc, err = convertDXF(data)
	case CSV:
		fc, result.ColumnInfo, result.SkippedRows, err = extractCSV(data, opts)
	case Shapefile:
		fc, err = decodeShapefile(name, data)
	case GeoPackage:
		fc, err = decodeGeoPackage(data)
	}
	if err != nil {
		log.Warnf(`ImportFile, %s normalize error, file: %s, details: %s`, result.Format, name, err)
		result.Error = err.Error()
		return
	}
	if fc == nil || len(fc.Features) == 0 {
		result.Error = ErrNoFeatures.Error()
		return
	}
	result.FC = fc
	result.FeatureCount = len(fc.Features)
	result.Success = true
	return
}

//ImportFromURL fetches a remote file and hands it to ImportFile. When the
//URL path carries no usable extension the response content-type decides the
//format, defaulting to GeoJSON since that is what vector APIs serve.
func ImportFromURL(rawurl string) *ImportResult {
	result := &ImportResult{FileName: rawurl}
	resp, err := fetchClient.Get(rawurl)
	if err != nil {
		result.Error = fmt.Sprintf("%s: %s", ErrNetworkFetch, err)
		return result
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		result.Error = fmt.Sprintf("%s: %s returned %s", ErrNetworkFetch, rawurl, resp.Status)
		return result
	}
	data, err := ioutil.ReadAll(resp.Body)
	if err != nil {
		result.Error = fmt.Sprintf("%s: %s", ErrNetworkFetch, err)
		return result
	}

	name := "download"
	if u, err := url.Parse(rawurl); err == nil {
		if base := path.Base(u.Path); base != "." && base != "/" && base != "" {
			name = base
		}
	}
	if DetectFormat(name) == Unknown {
		format := sniffContentType(resp.Header.Get("Content-Type"))
		if format == Unknown {
			format = GeoJSON
		}
		name = strings.TrimSuffix(name, path.Ext(name)) + defaultExtension(format)
	}
	return ImportFile(name, data, nil)
}

//extOf lower-cased extension for messages, "(none)" when missing
func extOf(name string) string {
	if ext := path.Ext(name); ext != "" {
		return strings.ToLower(ext)
	}
	return "(none)"
}
