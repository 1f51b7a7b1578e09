package model

// Rect is a rectangle in pixel space, as reported by the rendering surface.
type Rect struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// PercentPoint is a position expressed as percentages of a page's rendered
// width and height. Percentage units keep field geometry independent of the
// renderer's scale factor.
type PercentPoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// ToPercent converts a pixel position inside container into percentage
// coordinates. The container rect must have non-zero dimensions.
func ToPercent(pixelX, pixelY float64, container Rect) PercentPoint {
	return PercentPoint{
		X: (pixelX - container.Left) / container.Width * 100,
		Y: (pixelY - container.Top) / container.Height * 100,
	}
}

// ScaleRect returns the container rect scaled by factor around its origin.
func ScaleRect(r Rect, factor float64) Rect {
	return Rect{
		Left:   r.Left,
		Top:    r.Top,
		Width:  r.Width * factor,
		Height: r.Height * factor,
	}
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
