package service

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"net/http"
	"strings"
)

// ErrEmptyCanvas is returned when a draw commit carries no visible strokes.
var ErrEmptyCanvas = errors.New("nothing drawn")

// StrokePoint is one sampled pointer position on the drawing canvas, in
// canvas pixel coordinates.
type StrokePoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Stroke is one continuous pointer drag.
type Stroke []StrokePoint

const strokeRadius = 1 // pen half-width in pixels

// RasterizeStrokes renders sampled strokes onto a transparent canvas and
// returns PNG bytes. A stroke set with no points is rejected: committing an
// empty canvas must be a validation error, not a blank image.
func RasterizeStrokes(strokes []Stroke, width, height int) ([]byte, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid canvas size %dx%d", width, height)
	}

	total := 0
	for _, s := range strokes {
		total += len(s)
	}
	if total == 0 {
		return nil, ErrEmptyCanvas
	}

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	ink := color.RGBA{A: 255}

	for _, s := range strokes {
		if len(s) == 1 {
			stamp(img, s[0].X, s[0].Y, ink)
			continue
		}
		for i := 1; i < len(s); i++ {
			drawSegment(img, s[i-1], s[i], ink)
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode signature: %w", err)
	}
	return buf.Bytes(), nil
}

// drawSegment walks the line between two sampled points, stamping the pen
// at each step.
func drawSegment(img *image.RGBA, a, b StrokePoint, ink color.RGBA) {
	dx := b.X - a.X
	dy := b.Y - a.Y
	steps := int(math.Max(math.Abs(dx), math.Abs(dy)))
	if steps == 0 {
		stamp(img, a.X, a.Y, ink)
		return
	}
	for i := 0; i <= steps; i++ {
		t := float64(i) / float64(steps)
		stamp(img, a.X+dx*t, a.Y+dy*t, ink)
	}
}

func stamp(img *image.RGBA, x, y float64, ink color.RGBA) {
	cx := int(math.Round(x))
	cy := int(math.Round(y))
	bounds := img.Bounds()
	for px := cx - strokeRadius; px <= cx+strokeRadius; px++ {
		for py := cy - strokeRadius; py <= cy+strokeRadius; py++ {
			if image.Pt(px, py).In(bounds) {
				img.SetRGBA(px, py, ink)
			}
		}
	}
}

// SniffImageType detects the content type of uploaded signature bytes and
// rejects anything that is not a PNG or JPEG image.
func SniffImageType(data []byte) (string, error) {
	contentType := http.DetectContentType(data)
	switch contentType {
	case "image/png", "image/jpeg":
		return contentType, nil
	}
	return "", fmt.Errorf("unsupported signature file type %s", contentType)
}

// EncodeDataURL inlines raster bytes as a data URL, the form signature
// values are stored in on fields and submissions.
func EncodeDataURL(contentType string, data []byte) string {
	return "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// DecodeDataURL splits a data URL back into content type and raw bytes.
func DecodeDataURL(value string) (string, []byte, error) {
	rest, ok := strings.CutPrefix(value, "data:")
	if !ok {
		return "", nil, errors.New("not a data URL")
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return "", nil, errors.New("malformed data URL")
	}
	contentType, _ := strings.CutSuffix(meta, ";base64")
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, fmt.Errorf("failed to decode data URL: %w", err)
	}
	return contentType, data, nil
}

// IsImageDataURL reports whether a stored value looks like an inlined
// raster image.
func IsImageDataURL(value string) bool {
	return strings.HasPrefix(value, "data:image/")
}
