package model

import (
	"fmt"
	"math"
)

// BBox represents a bounding box with a top-left origin: x grows right,
// y grows down. A valid box has Right >= Left and Bottom >= Top.
type BBox struct {
	Left   float64
	Top    float64
	Right  float64
	Bottom float64
}

// NewBBox creates a bounding box from edge coordinates. It returns an error
// if any coordinate is not finite or the edges are inverted.
func NewBBox(left, top, right, bottom float64) (BBox, error) {
	for _, v := range [4]float64{left, top, right, bottom} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return BBox{}, fmt.Errorf("bounding box coordinate %v is not finite", v)
		}
	}
	if right < left {
		return BBox{}, fmt.Errorf("bounding box right %v < left %v", right, left)
	}
	if bottom < top {
		return BBox{}, fmt.Errorf("bounding box bottom %v < top %v", bottom, top)
	}
	return BBox{Left: left, Top: top, Right: right, Bottom: bottom}, nil
}

// Width returns the horizontal extent of the box.
func (b BBox) Width() float64 {
	return b.Right - b.Left
}

// Height returns the vertical extent of the box.
func (b BBox) Height() float64 {
	return b.Bottom - b.Top
}

// Area returns the area of the box.
func (b BBox) Area() float64 {
	return b.Width() * b.Height()
}

// CenterX returns the horizontal center of the box.
func (b BBox) CenterX() float64 {
	return (b.Left + b.Right) / 2
}

// CenterY returns the vertical center of the box.
func (b BBox) CenterY() float64 {
	return (b.Top + b.Bottom) / 2
}

// Translate returns the box shifted by (dx, dy).
func (b BBox) Translate(dx, dy float64) BBox {
	return BBox{
		Left:   b.Left + dx,
		Top:    b.Top + dy,
		Right:  b.Right + dx,
		Bottom: b.Bottom + dy,
	}
}

// Scale returns the box with both axes scaled about the origin.
func (b BBox) Scale(sx, sy float64) BBox {
	return BBox{
		Left:   b.Left * sx,
		Top:    b.Top * sy,
		Right:  b.Right * sx,
		Bottom: b.Bottom * sy,
	}
}

// Intersects reports whether the two boxes overlap.
func (b BBox) Intersects(other BBox) bool {
	return !(b.Right < other.Left ||
		b.Left > other.Right ||
		b.Bottom < other.Top ||
		b.Top > other.Bottom)
}

// Intersection returns the overlapping region of two boxes, or a zero box
// when they do not overlap.
func (b BBox) Intersection(other BBox) BBox {
	if !b.Intersects(other) {
		return BBox{}
	}
	left := math.Max(b.Left, other.Left)
	top := math.Max(b.Top, other.Top)
	right := math.Min(b.Right, other.Right)
	bottom := math.Min(b.Bottom, other.Bottom)
	return BBox{Left: left, Top: top, Right: right, Bottom: bottom}
}

// Union returns the minimal box enclosing both boxes.
func (b BBox) Union(other BBox) BBox {
	return BBox{
		Left:   math.Min(b.Left, other.Left),
		Top:    math.Min(b.Top, other.Top),
		Right:  math.Max(b.Right, other.Right),
		Bottom: math.Max(b.Bottom, other.Bottom),
	}
}

// Clamp returns the box clipped to the bounds of other. Edges that fall
// outside the bounds are moved onto them.
func (b BBox) Clamp(other BBox) BBox {
	clip := func(v, lo, hi float64) float64 {
		return math.Min(math.Max(v, lo), hi)
	}
	return BBox{
		Left:   clip(b.Left, other.Left, other.Right),
		Top:    clip(b.Top, other.Top, other.Bottom),
		Right:  clip(b.Right, other.Left, other.Right),
		Bottom: clip(b.Bottom, other.Top, other.Bottom),
	}
}

// IsEmpty returns true if the box has zero area.
func (b BBox) IsEmpty() bool {
	return b.Width() <= 0 || b.Height() <= 0
}
