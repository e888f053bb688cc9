package stroke

import (
	"fmt"
	"math"
)

// NormalizedPath is a translation- and scale-free copy of a point sequence.
// Center and Scale are kept so a caller can map points back to input space.
type NormalizedPath struct {
	Points []Point `json:"points"`
	Center Point   `json:"center"`
	Scale  float64 `json:"scale"`
}

// Denormalize maps a point from normalized space back to input space.
func (n NormalizedPath) Denormalize(p Point) Point {
	return Point{X: p.X*n.Scale + n.Center.X, Y: p.Y*n.Scale + n.Center.Y}
}

// Normalize moves the centroid of points to the origin and divides by the
// largest distance from the centroid, so the farthest point lands on the
// unit circle. A path whose points all coincide keeps scale 1 and collapses
// to the origin. An empty sequence cannot be normalized, and neither can
// one whose coordinates, centroid or spread are not finite.
func Normalize(points []Point) (NormalizedPath, error) {
	if len(points) == 0 {
		return NormalizedPath{}, fmt.Errorf("normalize: empty point sequence: %w", ErrInvalidInput)
	}
	for i, p := range points {
		if !p.finite() {
			return NormalizedPath{}, fmt.Errorf("normalize: point %d is not finite: %w", i, ErrInvalidInput)
		}
	}

	center := Centroid(points)
	scale := 0.0
	for _, p := range points {
		scale = math.Max(scale, math.Hypot(p.X-center.X, p.Y-center.Y))
	}
	if !center.finite() || math.IsInf(scale, 0) || math.IsNaN(scale) {
		return NormalizedPath{}, fmt.Errorf("normalize: coordinates overflow: %w", ErrInvalidInput)
	}
	if scale == 0 {
		scale = 1
	}

	out := make([]Point, len(points))
	for i, p := range points {
		out[i] = Point{X: (p.X - center.X) / scale, Y: (p.Y - center.Y) / scale}
	}
	return NormalizedPath{Points: out, Center: center, Scale: scale}, nil
}

func (p Point) finite() bool {
	return !math.IsInf(p.X, 0) && !math.IsNaN(p.X) && !math.IsInf(p.Y, 0) && !math.IsNaN(p.Y)
}

// Centroid returns the mean of points. The origin is returned for no points.
func Centroid(points []Point) Point {
	if len(points) == 0 {
		return Point{}
	}
	var sx, sy float64
	for _, p := range points {
		sx += p.X
		sy += p.Y
	}
	n := float64(len(points))
	return Point{X: sx / n, Y: sy / n}
}

// Length returns the polyline length of points.
func Length(points []Point) float64 {
	total := 0.0
	for i := 1; i < len(points); i++ {
		total += Distance(points[i-1], points[i])
	}
	return total
}

// Distance is the Euclidean distance between a and b.
func Distance(a, b Point) float64 {
	return math.Hypot(b.X-a.X, b.Y-a.Y)
}

// Resample returns n points spaced evenly along the arc length of points.
// The first and last input points are preserved. A path with no length
// yields n copies of its first point. n below 2 is raised to 2.
func Resample(points []Point, n int) []Point {
	if len(points) == 0 {
		return nil
	}
	if n < 2 {
		n = 2
	}

	out := make([]Point, 0, n)
	out = append(out, points[0])

	total := Length(points)
	if total == 0 {
		for len(out) < n {
			out = append(out, points[0])
		}
		return out
	}

	step := total / float64(n-1)
	next := step
	travelled := 0.0
	for i := 1; i < len(points) && len(out) < n-1; i++ {
		a, b := points[i-1], points[i]
		seg := Distance(a, b)
		for seg > 0 && travelled+seg >= next && len(out) < n-1 {
			t := (next - travelled) / seg
			out = append(out, Point{X: a.X + t*(b.X-a.X), Y: a.Y + t*(b.Y-a.Y)})
			next += step
		}
		travelled += seg
	}

	// Floating error can leave the walk one short; the tail is the last point.
	last := points[len(points)-1]
	for len(out) < n {
		out = append(out, last)
	}
	return out
}

// Reverse returns a reversed copy of points.
func Reverse(points []Point) []Point {
	out := make([]Point, len(points))
	for i, p := range points {
		out[len(points)-1-i] = p
	}
	return out
}
