package main

import (
	"path/filepath"
	"strings"
)

// SupportedFormat is an enum that defines the file formats the importer understands
type SupportedFormat uint8

// Constants representing SupportedFormat types
const (
	Unknown SupportedFormat = iota // Unknown format cannot be determined from the file name
	GeoJSON
	KML
	GPX
	KMZ
	Shapefile
	CSV
	DXF
	GeoTIFF
	Image
	GeoPackage
)

// String returns a string representing the SupportedFormat
func (f SupportedFormat) String() string {
	switch f {
	case GeoJSON:
		return "geojson"
	case KML:
		return "kml"
	case GPX:
		return "gpx"
	case KMZ:
		return "kmz"
	case Shapefile:
		return "shapefile"
	case CSV:
		return "csv"
	case DXF:
		return "dxf"
	case GeoTIFF:
		return "geotiff"
	case Image:
		return "image"
	case GeoPackage:
		return "geopackage"
	default:
		return "unknown"
	}
}

// MarshalJSON writes the format tag, not the raw enum value
func (f SupportedFormat) MarshalJSON() ([]byte, error) {
	return []byte(`"` + f.String() + `"`), nil
}

// UnmarshalJSON reads the format tag written by MarshalJSON
func (f *SupportedFormat) UnmarshalJSON(data []byte) error {
	tag := strings.Trim(string(data), `"`)
	for _, fd := range formatRegistry {
		if fd.Format.String() == tag {
			*f = fd.Format
			return nil
		}
	}
	*f = Unknown
	return nil
}

//FormatDescriptor 导入格式定义
type FormatDescriptor struct {
	Format     SupportedFormat `json:"format"`
	Label      string          `json:"label"`
	Extensions []string        `json:"extensions"`
	Raster     bool            `json:"raster"`
}

//formatRegistry read-only after init, the only process-wide state
var formatRegistry = []FormatDescriptor{
	{GeoJSON, "GeoJSON", []string{".geojson", ".json"}, false},
	{KML, "Keyhole Markup", []string{".kml"}, false},
	{GPX, "GPS Exchange", []string{".gpx"}, false},
	{KMZ, "Zipped KML", []string{".kmz"}, false},
	{Shapefile, "ESRI Shapefile", []string{".shp", ".zip"}, false},
	{CSV, "Delimited Text", []string{".csv"}, false},
	{DXF, "AutoCAD DXF", []string{".dxf"}, false},
	{GeoTIFF, "GeoTIFF", []string{".tif", ".tiff"}, true},
	{Image, "Image", []string{".png", ".jpg", ".jpeg"}, true},
	{GeoPackage, "GeoPackage", []string{".gpkg"}, false},
}

//DetectFormat 根据文件扩展名识别格式, never errors
func DetectFormat(fileName string) SupportedFormat {
	ext := strings.ToLower(filepath.Ext(fileName))
	if ext == "" {
		return Unknown
	}
	for _, fd := range formatRegistry {
		for _, e := range fd.Extensions {
			if e == ext {
				return fd.Format
			}
		}
	}
	return Unknown
}

//ListAcceptedExtensions flattens the registry for a file-picker accept filter
func ListAcceptedExtensions() string {
	var exts []string
	for _, fd := range formatRegistry {
		exts = append(exts, fd.Extensions...)
	}
	return strings.Join(exts, ",")
}

//IsRasterFormat reports whether the format decodes to a raster result
func IsRasterFormat(f SupportedFormat) bool {
	for _, fd := range formatRegistry {
		if fd.Format == f {
			return fd.Raster
		}
	}
	return false
}

//defaultExtension first registered extension for the format
func defaultExtension(f SupportedFormat) string {
	for _, fd := range formatRegistry {
		if fd.Format == f && len(fd.Extensions) > 0 {
			return fd.Extensions[0]
		}
	}
	return ""
}

//sniffContentType maps a response content-type onto a format when the
//extension gives nothing away
func sniffContentType(ct string) SupportedFormat {
	if i := strings.Index(ct, ";"); i >= 0 {
		ct = ct[:i]
	}
	switch strings.ToLower(strings.TrimSpace(ct)) {
	case "application/json", "application/geo+json", "text/json":
		return GeoJSON
	case "application/vnd.google-earth.kml+xml":
		return KML
	case "application/vnd.google-earth.kmz":
		return KMZ
	case "application/gpx+xml":
		return GPX
	case "text/csv", "application/csv":
		return CSV
	case "image/tiff":
		return GeoTIFF
	case "image/png", "image/jpeg":
		return Image
	case "application/geopackage+sqlite3":
		return GeoPackage
	default:
		return Unknown
	}
}
