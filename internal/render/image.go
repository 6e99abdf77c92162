package render

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"strings"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"sonaris/internal/fan"
	"sonaris/internal/faults"
	"sonaris/internal/fileutil"
)

// Format selects the output image codec.
type Format string

const (
	FormatPNG  Format = "png"
	FormatJPEG Format = "jpeg"
)

// ParseFormat normalizes a user-supplied format name.
func ParseFormat(value string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "png", "":
		return FormatPNG, nil
	case "jpeg", "jpg":
		return FormatJPEG, nil
	default:
		return "", fmt.Errorf("image format: unsupported value %q", value)
	}
}

// Ext returns the file extension for the format, without the dot.
func (f Format) Ext() string {
	if f == FormatJPEG {
		return "jpg"
	}
	return "png"
}

// DefaultJPEGQuality matches the encoder default used when the configured
// quality is out of range.
const DefaultJPEGQuality = 90

// Exporter encodes decoded frames and publishes them atomically.
type Exporter struct {
	Format      Format
	JPEGQuality int
	Annotate    bool
}

// Encode renders img into encoded image bytes. label is stamped into the
// top-left corner when annotation is enabled; pass "" to skip.
func (e *Exporter) Encode(img *fan.Image, label string) ([]byte, error) {
	gray := &image.Gray{
		Pix:    img.Pix,
		Stride: img.Width,
		Rect:   image.Rect(0, 0, img.Width, img.Height),
	}

	var canvas image.Image = gray
	if e.Annotate && label != "" {
		canvas = annotate(gray, label)
	}

	var buf bytes.Buffer
	switch e.Format {
	case FormatJPEG:
		quality := e.JPEGQuality
		if quality <= 0 || quality > 100 {
			quality = DefaultJPEGQuality
		}
		if err := jpeg.Encode(&buf, canvas, &jpeg.Options{Quality: quality}); err != nil {
			return nil, faults.Wrap(faults.ErrCodec, "exporter", "encode", "jpeg", err)
		}
	case FormatPNG, "":
		if err := png.Encode(&buf, canvas); err != nil {
			return nil, faults.Wrap(faults.ErrCodec, "exporter", "encode", "png", err)
		}
	default:
		return nil, faults.Wrap(faults.ErrCodec, "exporter", "encode",
			fmt.Sprintf("unknown format %q", e.Format), nil)
	}
	return buf.Bytes(), nil
}

// Export encodes img and publishes it at path via an atomic rename.
func (e *Exporter) Export(path string, img *fan.Image, label string) error {
	data, err := e.Encode(img, label)
	if err != nil {
		return err
	}
	if err := fileutil.WriteFileAtomic(path, data, 0o644); err != nil {
		return faults.Wrap(faults.ErrIO, "exporter", "write", path, err)
	}
	return nil
}

// annotate draws label onto a copy of gray so callers keep the pristine
// decode result.
func annotate(gray *image.Gray, label string) *image.Gray {
	out := &image.Gray{
		Pix:    append([]uint8(nil), gray.Pix...),
		Stride: gray.Stride,
		Rect:   gray.Rect,
	}
	drawer := &font.Drawer{
		Dst:  out,
		Src:  image.NewUniform(color.Gray{Y: 255}),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(4, 14),
	}
	drawer.DrawString(label)
	return out
}
