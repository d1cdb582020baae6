// Package imaging normalizes uploaded item photos before they are stored.
package imaging

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"
	"io"
	"net/http"

	"golang.org/x/image/draw"

	"github.com/erazemk/izposoja/internal/model"
)

// Defaults for a zero Processor.
const (
	DefaultMaxDimension = 1024
	DefaultQuality      = 85
	DefaultMaxBytes     = 8 << 20
)

var allowedMIME = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
}

// Processor validates, downscales, and re-encodes photos as JPEG.
type Processor struct {
	MaxDimension int   // longest side of the output, in pixels
	Quality      int   // JPEG quality 1-100
	MaxBytes     int64 // upload size limit
}

// Photo is a processed image ready for storage.
type Photo struct {
	Data   []byte
	MIME   string
	Width  int
	Height int
}

func (p Processor) withDefaults() Processor {
	if p.MaxDimension <= 0 {
		p.MaxDimension = DefaultMaxDimension
	}
	if p.Quality <= 0 || p.Quality > 100 {
		p.Quality = DefaultQuality
	}
	if p.MaxBytes <= 0 {
		p.MaxBytes = DefaultMaxBytes
	}
	return p
}

// Process reads an upload, checks its real format by sniffing bytes, and
// returns a JPEG no larger than MaxDimension on either side. Rejected input
// yields a validation error.
func (p Processor) Process(r io.Reader) (*Photo, error) {
	p = p.withDefaults()

	data, err := io.ReadAll(io.LimitReader(r, p.MaxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("reading image data: %w", err)
	}
	if int64(len(data)) > p.MaxBytes {
		return nil, model.Validationf("image exceeds %d bytes", p.MaxBytes)
	}

	// Client-supplied content types are not trusted.
	detected := http.DetectContentType(data)
	if !allowedMIME[detected] {
		return nil, model.Validationf("unsupported image format %s (only JPEG and PNG accepted)", detected)
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, model.Validationf("decoding image: %v", err)
	}

	img = fit(img, p.MaxDimension)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: p.Quality}); err != nil {
		return nil, fmt.Errorf("encoding JPEG: %w", err)
	}

	b := img.Bounds()
	return &Photo{Data: buf.Bytes(), MIME: "image/jpeg", Width: b.Dx(), Height: b.Dy()}, nil
}

// fit scales img down with Catmull-Rom so its longest side is maxDim,
// preserving aspect ratio. Smaller images are returned unchanged.
func fit(img image.Image, maxDim int) image.Image {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w <= maxDim && h <= maxDim {
		return img
	}

	longest := max(w, h)
	newW := max(1, w*maxDim/longest)
	newH := max(1, h*maxDim/longest)

	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
	return dst
}
