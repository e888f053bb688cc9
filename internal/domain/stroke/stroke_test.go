package stroke_test

import (
	"errors"
	"math"
	"testing"

	"github.com/okian/umwero/internal/domain/stroke"
	. "github.com/smartystreets/goconvey/convey"
)

const tolerance = 1e-9

func line(x0, y0, x1, y1 float64, n int) []stroke.Point {
	pts := make([]stroke.Point, n)
	for i := 0; i < n; i++ {
		t := float64(i) / float64(n-1)
		pts[i] = stroke.Point{X: x0 + t*(x1-x0), Y: y0 + t*(y1-y0)}
	}
	return pts
}

func maxExtent(points []stroke.Point) float64 {
	m := 0.0
	for _, p := range points {
		m = math.Max(m, math.Hypot(p.X, p.Y))
	}
	return m
}

func TestNormalize(t *testing.T) {
	Convey("Given point sequences to normalize", t, func() {
		Convey("When the sequence is empty", func() {
			_, err := stroke.Normalize(nil)

			Convey("Then it should fail with ErrInvalidInput", func() {
				So(err, ShouldNotBeNil)
				So(errors.Is(err, stroke.ErrInvalidInput), ShouldBeTrue)
			})
		})

		Convey("When the sequence has a single point", func() {
			path, err := stroke.Normalize([]stroke.Point{{X: 7, Y: -3}})

			Convey("Then it should collapse to the origin with unit scale", func() {
				So(err, ShouldBeNil)
				So(path.Scale, ShouldEqual, 1)
				So(path.Center, ShouldResemble, stroke.Point{X: 7, Y: -3})
				So(path.Points, ShouldResemble, []stroke.Point{{X: 0, Y: 0}})
			})
		})

		Convey("When the sequence is an off-center zigzag", func() {
			in := []stroke.Point{{X: 10, Y: 10}, {X: 30, Y: 50}, {X: 50, Y: 10}, {X: 70, Y: 45}, {X: 12, Y: 90}}
			path, err := stroke.Normalize(in)
			So(err, ShouldBeNil)

			Convey("Then the centroid should sit at the origin", func() {
				c := stroke.Centroid(path.Points)
				So(c.X, ShouldAlmostEqual, 0, tolerance)
				So(c.Y, ShouldAlmostEqual, 0, tolerance)
			})

			Convey("And the farthest point should be at distance one", func() {
				So(maxExtent(path.Points), ShouldAlmostEqual, 1, tolerance)
			})

			Convey("And denormalizing should give back the input", func() {
				for i, p := range path.Points {
					back := path.Denormalize(p)
					So(back.X, ShouldAlmostEqual, in[i].X, 1e-6)
					So(back.Y, ShouldAlmostEqual, in[i].Y, 1e-6)
				}
			})
		})

		Convey("When the same shape is drawn bigger and shifted", func() {
			small := line(0, 0, 10, 10, 11)
			big := make([]stroke.Point, len(small))
			for i, p := range small {
				big[i] = stroke.Point{X: p.X*3.5 + 40, Y: p.Y*3.5 - 12}
			}
			a, errA := stroke.Normalize(small)
			b, errB := stroke.Normalize(big)

			Convey("Then both normalize to the same points", func() {
				So(errA, ShouldBeNil)
				So(errB, ShouldBeNil)
				for i := range a.Points {
					So(a.Points[i].X, ShouldAlmostEqual, b.Points[i].X, tolerance)
					So(a.Points[i].Y, ShouldAlmostEqual, b.Points[i].Y, tolerance)
				}
				So(b.Scale, ShouldAlmostEqual, a.Scale*3.5, 1e-6)
			})
		})

		Convey("When coordinates are finite but their sum overflows", func() {
			_, err := stroke.Normalize([]stroke.Point{{X: 1e308, Y: 1e308}, {X: 1.5e308, Y: 1.5e308}})

			Convey("Then it should fail with ErrInvalidInput", func() {
				So(errors.Is(err, stroke.ErrInvalidInput), ShouldBeTrue)
			})
		})

		Convey("When the spread overflows even though the centroid does not", func() {
			_, err := stroke.Normalize([]stroke.Point{{X: -1.7e308, Y: -1.7e308}, {X: 1.7e308, Y: 1.7e308}})

			Convey("Then it should fail with ErrInvalidInput", func() {
				So(errors.Is(err, stroke.ErrInvalidInput), ShouldBeTrue)
			})
		})

		Convey("When a coordinate is NaN or infinite", func() {
			_, errNaN := stroke.Normalize([]stroke.Point{{X: 0, Y: 0}, {X: math.NaN(), Y: 1}})
			_, errInf := stroke.Normalize([]stroke.Point{{X: math.Inf(-1), Y: 0}})

			Convey("Then it should fail with ErrInvalidInput", func() {
				So(errors.Is(errNaN, stroke.ErrInvalidInput), ShouldBeTrue)
				So(errors.Is(errInf, stroke.ErrInvalidInput), ShouldBeTrue)
			})
		})
	})
}

func TestResample(t *testing.T) {
	Convey("Given paths of uneven density", t, func() {
		Convey("When resampling an L-shaped path", func() {
			in := []stroke.Point{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 10, Y: 0}, {X: 10, Y: 10}}
			out := stroke.Resample(in, 21)

			Convey("Then it should return exactly n points", func() {
				So(len(out), ShouldEqual, 21)
			})

			Convey("And it should keep both endpoints", func() {
				So(out[0], ShouldResemble, in[0])
				So(out[20].X, ShouldAlmostEqual, 10, tolerance)
				So(out[20].Y, ShouldAlmostEqual, 10, tolerance)
			})

			Convey("And consecutive points should be evenly spaced", func() {
				for i := 1; i < len(out); i++ {
					So(stroke.Distance(out[i-1], out[i]), ShouldAlmostEqual, 1.0, 1e-6)
				}
			})
		})

		Convey("When resampling a zero-length path", func() {
			out := stroke.Resample([]stroke.Point{{X: 2, Y: 2}, {X: 2, Y: 2}}, 5)

			Convey("Then every point should be the same location", func() {
				So(len(out), ShouldEqual, 5)
				for _, p := range out {
					So(p, ShouldResemble, stroke.Point{X: 2, Y: 2})
				}
			})
		})

		Convey("When resampling nothing", func() {
			So(stroke.Resample(nil, 8), ShouldBeNil)
		})

		Convey("When asking for fewer than two points", func() {
			out := stroke.Resample(line(0, 0, 4, 0, 3), 1)
			So(len(out), ShouldEqual, 2)
		})
	})
}

func TestNewTemplate(t *testing.T) {
	Convey("Given reference strokes", t, func() {
		Convey("When they are valid", func() {
			tpl, err := stroke.NewTemplate("a", "A", "vowel a", [][]stroke.Point{
				line(0, 0, 10, 10, 3),
				{{X: -2, Y: 4}, {X: 12, Y: 4}},
			})

			Convey("Then bounds should cover every reference point", func() {
				So(err, ShouldBeNil)
				So(tpl.StrokeCount(), ShouldEqual, 2)
				So(tpl.Bounds, ShouldResemble, stroke.Bounds{MinX: -2, MaxX: 12, MinY: 0, MaxY: 10})
				So(tpl.Bounds.Width(), ShouldEqual, 14)
				So(tpl.Bounds.Height(), ShouldEqual, 10)
			})
		})

		Convey("When the id is blank", func() {
			_, err := stroke.NewTemplate(" ", "A", "", [][]stroke.Point{line(0, 0, 1, 1, 2)})
			So(errors.Is(err, stroke.ErrInvalidTemplate), ShouldBeTrue)
		})

		Convey("When there are no strokes", func() {
			_, err := stroke.NewTemplate("a", "A", "", nil)
			So(errors.Is(err, stroke.ErrInvalidTemplate), ShouldBeTrue)
		})

		Convey("When a stroke is empty", func() {
			_, err := stroke.NewTemplate("a", "A", "", [][]stroke.Point{line(0, 0, 1, 1, 2), {}})
			So(errors.Is(err, stroke.ErrInvalidTemplate), ShouldBeTrue)
		})
	})
}

func TestReverse(t *testing.T) {
	Convey("Reverse should flip order without touching the input", t, func() {
		in := line(0, 0, 2, 0, 3)
		out := stroke.Reverse(in)
		So(out, ShouldResemble, []stroke.Point{{X: 2, Y: 0}, {X: 1, Y: 0}, {X: 0, Y: 0}})
		So(in[0], ShouldResemble, stroke.Point{X: 0, Y: 0})
	})
}
