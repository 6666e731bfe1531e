package storage

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	_ "image/gif"  // register GIF decoder
	_ "image/jpeg" // register JPEG decoder
	_ "image/png"  // register PNG decoder
	"math"

	_ "golang.org/x/image/webp" // register WebP decoder
)

// HighDensityDPI is the density at which editor markup halves an image's display width.
const HighDensityDPI = 144

// Metadata is what can be learned from an image header without decoding pixels.
type Metadata struct {
	Format string
	Width  int
	Height int
	DPI    float64
}

var pngSignature = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}

// Inspect reads format, dimensions and pixel density from encoded image bytes.
func Inspect(data []byte) (Metadata, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return Metadata{}, fmt.Errorf("decode image config: %w", err)
	}
	meta := Metadata{Format: format, Width: cfg.Width, Height: cfg.Height}
	switch format {
	case "png":
		meta.DPI = pngDPI(data)
	case "jpeg":
		meta.DPI = jpegDPI(data)
	}
	return meta, nil
}

// pngDPI reads the pHYs chunk. Only the metre unit carries absolute density.
func pngDPI(data []byte) float64 {
	if !bytes.HasPrefix(data, pngSignature) {
		return 0
	}
	for pos := len(pngSignature); pos+8 <= len(data); {
		length := int(binary.BigEndian.Uint32(data[pos : pos+4]))
		typ := string(data[pos+4 : pos+8])
		body := pos + 8
		if length < 0 || body+length > len(data) {
			return 0
		}
		switch typ {
		case "pHYs":
			if length < 9 || data[body+8] != 1 {
				return 0
			}
			ppm := binary.BigEndian.Uint32(data[body : body+4])
			return math.Round(float64(ppm) * 0.0254)
		case "IDAT", "IEND":
			return 0
		}
		pos = body + length + 4 // skip CRC
	}
	return 0
}

var errNoJFIF = errors.New("no JFIF segment")

// jpegDPI reads the density from the JFIF APP0 segment.
func jpegDPI(data []byte) float64 {
	dpi, err := jfifDensity(data)
	if err != nil {
		return 0
	}
	return dpi
}

func jfifDensity(data []byte) (float64, error) {
	if len(data) < 4 || data[0] != 0xFF || data[1] != 0xD8 {
		return 0, errNoJFIF
	}
	for pos := 2; pos+4 <= len(data); {
		if data[pos] != 0xFF {
			return 0, errNoJFIF
		}
		marker := data[pos+1]
		length := int(binary.BigEndian.Uint16(data[pos+2 : pos+4]))
		seg := pos + 4
		if marker == 0xDA || length < 2 || seg+length-2 > len(data) {
			return 0, errNoJFIF
		}
		if marker == 0xE0 && length >= 16 && string(data[seg:seg+5]) == "JFIF\x00" {
			units := data[seg+7]
			x := float64(binary.BigEndian.Uint16(data[seg+8 : seg+10]))
			switch units {
			case 1:
				return x, nil
			case 2:
				return math.Round(x * 2.54), nil
			default:
				return 0, nil
			}
		}
		pos = seg + length - 2
	}
	return 0, errNoJFIF
}
