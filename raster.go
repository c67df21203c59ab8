package main

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"image"
	_ "image/jpeg"
	"image/png"
	"math"

	"github.com/nfnt/resize"
	"github.com/paulmach/orb"
	log "github.com/sirupsen/logrus"
	xtiff "golang.org/x/image/tiff"
)

//TIFF/GeoTIFF tags read by the IFD walk
const (
	tagImageWidth      = 256
	tagImageLength     = 257
	tagBitsPerSample   = 258
	tagSamplesPerPixel = 277
	tagModelPixelScale = 33550
	tagModelTiepoint   = 33922
)

type tiffTag struct {
	id     uint16
	typ    uint16
	count  uint32
	values []float64
}

var tiffTypeSizes = map[uint16]int{1: 1, 2: 1, 3: 2, 4: 4, 5: 8, 6: 1, 7: 1, 8: 2, 9: 4, 10: 8, 11: 4, 12: 8}

//parseTIFFTags walks the first IFD and decodes the tag values the importer
//cares about. Only the header layout is read here, the pixel data is left
//to x/image/tiff.
func parseTIFFTags(data []byte) (map[uint16]tiffTag, error) {
	if len(data) < 8 {
		return nil, fmt.Errorf("truncated header")
	}
	var order binary.ByteOrder
	switch string(data[:2]) {
	case "II":
		order = binary.LittleEndian
	case "MM":
		order = binary.BigEndian
	default:
		return nil, fmt.Errorf("bad byte order mark %q", data[:2])
	}
	if order.Uint16(data[2:4]) != 42 {
		return nil, fmt.Errorf("bad magic")
	}
	ifdOffset := int(order.Uint32(data[4:8]))
	if ifdOffset+2 > len(data) {
		return nil, fmt.Errorf("ifd offset out of range")
	}
	count := int(order.Uint16(data[ifdOffset : ifdOffset+2]))
	tags := map[uint16]tiffTag{}
	for i := 0; i < count; i++ {
		off := ifdOffset + 2 + i*12
		if off+12 > len(data) {
			return nil, fmt.Errorf("ifd entry out of range")
		}
		t := tiffTag{
			id:    order.Uint16(data[off : off+2]),
			typ:   order.Uint16(data[off+2 : off+4]),
			count: order.Uint32(data[off+4 : off+8]),
		}
		size, ok := tiffTypeSizes[t.typ]
		if !ok {
			continue
		}
		total := size * int(t.count)
		valOff := off + 8
		if total > 4 {
			valOff = int(order.Uint32(data[off+8 : off+12]))
		}
		if valOff+total > len(data) {
			continue
		}
		for j := 0; j < int(t.count); j++ {
			b := data[valOff+j*size:]
			switch t.typ {
			case 1: //BYTE
				t.values = append(t.values, float64(b[0]))
			case 3: //SHORT
				t.values = append(t.values, float64(order.Uint16(b)))
			case 4: //LONG
				t.values = append(t.values, float64(order.Uint32(b)))
			case 12: //DOUBLE
				t.values = append(t.values, math.Float64frombits(order.Uint64(b)))
			}
		}
		tags[t.id] = t
	}
	return tags, nil
}

//decodeGeoTIFF re-encodes the raster as PNG and derives the geographic bound
//from ModelTiepoint + ModelPixelScale when both are present. Without geo
//tags the result succeeds ungeoreferenced.
func decodeGeoTIFF(data []byte) (*RasterResult, error) {
	tags, err := parseTIFFTags(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrRasterRead, err)
	}
	img, err := xtiff.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrRasterRead, err)
	}

	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	out := image.NewRGBA(image.Rect(0, 0, w, h))
	switch src := img.(type) {
	case *image.Gray:
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				v := src.GrayAt(bounds.Min.X+x, bounds.Min.Y+y).Y
				out.Pix[(y*w+x)*4+0] = v
				out.Pix[(y*w+x)*4+1] = v
				out.Pix[(y*w+x)*4+2] = v
				out.Pix[(y*w+x)*4+3] = 255
			}
		}
	case *image.Gray16:
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				v := uint8(src.Gray16At(bounds.Min.X+x, bounds.Min.Y+y).Y >> 8)
				out.Pix[(y*w+x)*4+0] = v
				out.Pix[(y*w+x)*4+1] = v
				out.Pix[(y*w+x)*4+2] = v
				out.Pix[(y*w+x)*4+3] = 255
			}
		}
	default:
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				r, g, b, a := img.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
				out.Pix[(y*w+x)*4+0] = uint8(r >> 8)
				out.Pix[(y*w+x)*4+1] = uint8(g >> 8)
				out.Pix[(y*w+x)*4+2] = uint8(b >> 8)
				out.Pix[(y*w+x)*4+3] = uint8(a >> 8)
			}
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, out); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrRasterRead, err)
	}
	rr := &RasterResult{
		Data:        buf.Bytes(),
		ContentType: "image/png",
		Width:       w,
		Height:      h,
		Thumbnail:   thumbnailURI(out),
	}

	scale := tags[tagModelPixelScale].values
	tie := tags[tagModelTiepoint].values
	if len(scale) >= 2 && len(tie) >= 6 && scale[0] > 0 && scale[1] > 0 {
		//tiepoint maps raster (i,j) onto model (gx,gy)
		i, j := tie[0], tie[1]
		gx, gy := tie[3], tie[4]
		minLon := gx - i*scale[0]
		maxLat := gy + j*scale[1]
		rr.Bound = orb.Bound{
			Min: orb.Point{minLon, maxLat - float64(h)*scale[1]},
			Max: orb.Point{minLon + float64(w)*scale[0], maxLat},
		}
		rr.Georeferenced = true
	} else {
		log.Infof("decodeGeoTIFF, no geo tags, raster needs interactive placement")
	}
	return rr, nil
}

//decodePlainImage keeps the original bytes, there is nothing to normalize
func decodePlainImage(data []byte) (*RasterResult, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrRasterRead, err)
	}
	rr := &RasterResult{
		Data:        data,
		ContentType: "image/" + format,
		Width:       cfg.Width,
		Height:      cfg.Height,
	}
	if img, _, err := image.Decode(bytes.NewReader(data)); err == nil {
		rr.Thumbnail = thumbnailURI(img)
	}
	return rr, nil
}

//thumbnailURI 缩略图
func thumbnailURI(img image.Image) string {
	thumb := resize.Thumbnail(256, 256, img, resize.Lanczos3)
	var buf bytes.Buffer
	if err := png.Encode(&buf, thumb); err != nil {
		return ""
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())
}
