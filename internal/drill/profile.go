package drill

import (
	"math/rand/v2"

	"github.com/okian/umwero/internal/domain/stroke"
)

// Profile describes how carefully a synthetic learner traces templates.
type Profile struct {
	Name        string
	Jitter      float64 // noise stddev as a fraction of the template size
	DropRate    float64 // chance of skipping a stroke
	ReverseRate float64 // chance of drawing a stroke backwards
}

// Learner profiles, from best to worst.
var (
	Careful = Profile{Name: "careful", Jitter: 0.005}
	Average = Profile{Name: "average", Jitter: 0.04, DropRate: 0.03, ReverseRate: 0.03}
	Sloppy  = Profile{Name: "sloppy", Jitter: 0.15, DropRate: 0.15, ReverseRate: 0.1}

	Profiles = []Profile{Careful, Average, Sloppy}
)

const (
	tracePoints = 24
	maxOffset   = 50.0
	minScale    = 0.5
	maxScale    = 2.0
)

// Trace synthesizes an attempt at tpl. The whole drawing is shifted and
// scaled at random; every stroke is densified and jittered per profile.
func Trace(tpl stroke.CharacterTemplate, p Profile, rng *rand.Rand) []stroke.Stroke {
	size := max(tpl.Bounds.Width(), tpl.Bounds.Height(), 1)
	sigma := p.Jitter * size
	dx := rng.Float64() * maxOffset
	dy := rng.Float64() * maxOffset
	scale := minScale + rng.Float64()*(maxScale-minScale)

	out := make([]stroke.Stroke, 0, len(tpl.Strokes))
	for _, ref := range tpl.Strokes {
		if rng.Float64() < p.DropRate {
			continue
		}
		pts := stroke.Resample(ref, tracePoints)
		for i := range pts {
			pts[i] = stroke.Point{
				X: (pts[i].X+rng.NormFloat64()*sigma)*scale + dx,
				Y: (pts[i].Y+rng.NormFloat64()*sigma)*scale + dy,
			}
		}
		if rng.Float64() < p.ReverseRate {
			pts = stroke.Reverse(pts)
		}
		out = append(out, stroke.Stroke{Points: pts})
	}
	return out
}
