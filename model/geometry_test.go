package model

import (
	"math"
	"testing"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestToPercent(t *testing.T) {
	container := Rect{Left: 100, Top: 50, Width: 800, Height: 1000}

	tests := []struct {
		name     string
		pixelX   float64
		pixelY   float64
		expected PercentPoint
	}{
		{"top left corner", 100, 50, PercentPoint{X: 0, Y: 0}},
		{"center", 500, 550, PercentPoint{X: 50, Y: 50}},
		{"bottom right corner", 900, 1050, PercentPoint{X: 100, Y: 100}},
		{"quarter point", 300, 300, PercentPoint{X: 25, Y: 25}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ToPercent(tt.pixelX, tt.pixelY, container)
			if !almostEqual(got.X, tt.expected.X) || !almostEqual(got.Y, tt.expected.Y) {
				t.Errorf("Expected (%v, %v), got (%v, %v)", tt.expected.X, tt.expected.Y, got.X, got.Y)
			}
		})
	}
}

func TestScaleIndependence(t *testing.T) {
	// The same stored percentages must yield pixel positions that differ
	// only by the scale factor applied to the page rect.
	field := Field{X: 10, Y: 20, Width: 22, Height: 8}
	page := Rect{Width: 600, Height: 800}

	at1 := field.PixelRect(page)
	at2 := field.PixelRect(ScaleRect(page, 2.0))

	if !almostEqual(at2.Left, at1.Left*2) || !almostEqual(at2.Top, at1.Top*2) {
		t.Errorf("Position did not scale linearly: %v vs %v", at1, at2)
	}
	if !almostEqual(at2.Width, at1.Width*2) || !almostEqual(at2.Height, at1.Height*2) {
		t.Errorf("Size did not scale linearly: %v vs %v", at1, at2)
	}
}

func TestToPercentRoundTrip(t *testing.T) {
	// Placing a field from a pixel position and rendering it back must
	// reproduce the pixel position at any scale.
	container := Rect{Left: 0, Top: 0, Width: 750, Height: 1000}
	p := ToPercent(300, 400, container)

	field := Field{Width: 10, Height: 5}
	field.X = p.X
	field.Y = p.Y

	rendered := field.PixelRect(container)
	if !almostEqual(rendered.Left, 300) || !almostEqual(rendered.Top, 400) {
		t.Errorf("Round trip moved the field: got (%v, %v)", rendered.Left, rendered.Top)
	}
}
