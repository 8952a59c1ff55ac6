package tracker

import "math"

// BoundingBox is a box in input-image coordinates, [x, y, w, h].
// Width and height must be strictly positive for a non-degenerate box.
type BoundingBox struct {
	X      float64
	Y      float64
	Width  float64
	Height float64
}

// Point is a 2-D coordinate.
type Point struct {
	X float64
	Y float64
}

// Centroid returns the box's center point.
func Centroid(b BoundingBox) Point {
	return Point{
		X: b.X + b.Width/2.0,
		Y: b.Y + b.Height/2.0,
	}
}

// Diagonal returns the box's diagonal length.
func Diagonal(b BoundingBox) float64 {
	return math.Sqrt(b.Width*b.Width + b.Height*b.Height)
}

// Distance returns the Euclidean distance between two points.
func Distance(p, q Point) float64 {
	dx := p.X - q.X
	dy := p.Y - q.Y
	return math.Sqrt(dx*dx + dy*dy)
}

// Area returns the box's area. Degenerate boxes (non-positive width or
// height) have zero area.
func Area(b BoundingBox) float64 {
	if b.Width <= 0 || b.Height <= 0 {
		return 0
	}
	return b.Width * b.Height
}

// IoU returns the intersection-over-union of two boxes, in [0, 1].
// It is symmetric and returns 0 when either box has zero area.
func IoU(a, b BoundingBox) float64 {
	aArea := Area(a)
	bArea := Area(b)
	if aArea == 0 || bArea == 0 {
		return 0
	}

	xA := math.Max(a.X, b.X)
	yA := math.Max(a.Y, b.Y)
	xB := math.Min(a.X+a.Width, b.X+b.Width)
	yB := math.Min(a.Y+a.Height, b.Y+b.Height)

	interW := math.Max(0, xB-xA)
	interH := math.Max(0, yB-yA)
	interArea := interW * interH
	if interArea == 0 {
		return 0
	}

	union := aArea + bArea - interArea
	if union <= 0 {
		return 0
	}
	return interArea / union
}
