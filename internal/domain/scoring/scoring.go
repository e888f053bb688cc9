// Package scoring grades a learner's strokes against a character template.
//
// Every stroke pair is resampled to a fixed number of points, normalized
// for position and size, and compared point by point. The per-stroke RMS
// distance becomes a 0-100 contribution; the mean contribution is the
// attempt's accuracy, which maps onto a grade.
package scoring

import (
	"fmt"
	"math"

	"github.com/okian/umwero/internal/domain/stroke"
)

// Default scoring configuration constants.
const (
	defaultResampleCount = 32
	defaultTolerance     = 0.5
	defaultFlagThreshold = AcceptableThreshold
	defaultMismatchCap   = AcceptableThreshold - 1
	maxAccuracy          = 100.0
)

// Deviation issues reported for individual strokes.
const (
	IssueShape            = "stroke too far from reference shape"
	IssueReversed         = "stroke drawn in reverse direction"
	IssueEmptyStroke      = "empty stroke"
	IssueMissingStroke    = "missing stroke"
	IssueExtraStroke      = "extra stroke"
	IssueInvalidReference = "reference stroke is empty"
)

// Feedback messages.
const (
	FeedbackNoInput    = "No strokes were drawn"
	FeedbackExcellent  = "Great job!"
	FeedbackGood       = "Good work, keep refining your strokes"
	FeedbackAcceptable = "Acceptable, keep practicing"
	FeedbackCheck      = "Close, check the highlighted strokes"
	FeedbackRetry      = "Try again, focus on stroke shape"
)

// Deviation flags one stroke of an attempt.
type Deviation struct {
	StrokeIndex int    `json:"stroke_index"`
	Issue       string `json:"issue"`
}

// Result is the outcome of one evaluation.
type Result struct {
	Accuracy        float64     `json:"accuracy"`
	Passed          bool        `json:"passed"`
	Grade           Grade       `json:"grade"`
	Feedback        string      `json:"feedback"`
	Deviations      []Deviation `json:"deviations,omitempty"`
	StrokeScores    []float64   `json:"stroke_scores,omitempty"`
	ExpectedStrokes int         `json:"expected_strokes"`
	ReceivedStrokes int         `json:"received_strokes"`
}

// Scorer grades attempts. Implementations must be pure: the same inputs
// always produce the same Result.
type Scorer interface {
	Normalize(points []stroke.Point) (stroke.NormalizedPath, error)
	Validate(attempt []stroke.Stroke, template stroke.CharacterTemplate) Result
}

// StrokeScorer implements Scorer with arc-length resampling and RMS
// distance in normalized space. It holds only configuration and is safe
// for concurrent use.
type StrokeScorer struct {
	resampleCount int
	tolerance     float64
	flagThreshold float64
	mismatchCap   float64
}

// NewStrokeScorer creates a scorer with configuration options.
func NewStrokeScorer(opts ...Option) *StrokeScorer {
	s := &StrokeScorer{
		resampleCount: defaultResampleCount,
		tolerance:     defaultTolerance,
		flagThreshold: defaultFlagThreshold,
		mismatchCap:   defaultMismatchCap,
	}

	// Apply all options
	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Normalize removes translation and scale from a point sequence.
func (s *StrokeScorer) Normalize(points []stroke.Point) (stroke.NormalizedPath, error) {
	return stroke.Normalize(points)
}

// Validate compares attempt against template stroke by stroke.
func (s *StrokeScorer) Validate(attempt []stroke.Stroke, template stroke.CharacterTemplate) Result {
	expected := len(template.Strokes)
	received := len(attempt)

	if received == 0 {
		return Result{
			Accuracy:        0,
			Passed:          false,
			Grade:           GradeRetry,
			Feedback:        FeedbackNoInput,
			ExpectedStrokes: expected,
		}
	}

	count := max(expected, received)
	matched := min(expected, received)
	scores := make([]float64, count)
	var deviations []Deviation

	for i := 0; i < matched; i++ {
		score, issue := s.compare(attempt[i].Points, template.Strokes[i])
		scores[i] = round2(score)
		if issue != "" {
			deviations = append(deviations, Deviation{StrokeIndex: i, Issue: issue})
		}
	}

	// Surplus strokes on either side score zero.
	surplus := IssueMissingStroke
	if received > expected {
		surplus = IssueExtraStroke
	}
	for i := matched; i < count; i++ {
		deviations = append(deviations, Deviation{StrokeIndex: i, Issue: surplus})
	}

	sum := 0.0
	for _, sc := range scores {
		sum += sc
	}
	accuracy := sum / float64(count)
	if expected != received {
		accuracy = math.Min(accuracy, s.mismatchCap)
	}
	accuracy = clamp(round2(accuracy))

	grade := GradeFor(accuracy)
	return Result{
		Accuracy:        accuracy,
		Passed:          Passed(accuracy),
		Grade:           grade,
		Feedback:        feedbackFor(grade, len(deviations) > 0, expected, received),
		Deviations:      deviations,
		StrokeScores:    scores,
		ExpectedStrokes: expected,
		ReceivedStrokes: received,
	}
}

// compare scores one attempt stroke against its reference and names the
// issue when the score falls under the flag threshold.
func (s *StrokeScorer) compare(attempt, reference []stroke.Point) (float64, string) {
	ref, err := s.prepare(reference)
	if err != nil {
		return 0, IssueInvalidReference
	}
	if len(attempt) == 0 {
		return 0, IssueEmptyStroke
	}
	got, err := s.prepare(attempt)
	if err != nil {
		return 0, IssueShape
	}

	score := s.contribution(rmsDistance(got, ref))
	if score >= s.flagThreshold {
		return score, ""
	}
	if s.contribution(rmsDistance(stroke.Reverse(got), ref)) >= s.flagThreshold {
		return score, IssueReversed
	}
	return score, IssueShape
}

// prepare resamples before normalizing so the centroid does not drift
// toward wherever the pen moved slowly.
func (s *StrokeScorer) prepare(points []stroke.Point) ([]stroke.Point, error) {
	if len(points) == 0 {
		return nil, fmt.Errorf("prepare: %w", stroke.ErrInvalidInput)
	}
	path, err := stroke.Normalize(stroke.Resample(points, s.resampleCount))
	if err != nil {
		return nil, err
	}
	return path.Points, nil
}

// contribution maps an RMS deviation onto 0-100, linearly falling to zero
// at the configured tolerance. A deviation that is not a number scores 0.
func (s *StrokeScorer) contribution(deviation float64) float64 {
	if math.IsNaN(deviation) {
		return 0
	}
	return maxAccuracy * math.Max(0, 1-deviation/s.tolerance)
}

// rmsDistance is the root mean square of pointwise distances. Both slices
// come from prepare and have the same length.
func rmsDistance(a, b []stroke.Point) float64 {
	n := min(len(a), len(b))
	if n == 0 {
		return math.Inf(1)
	}
	sum := 0.0
	for i := 0; i < n; i++ {
		d := stroke.Distance(a[i], b[i])
		sum += d * d
	}
	return math.Sqrt(sum / float64(n))
}

func feedbackFor(grade Grade, hasDeviations bool, expected, received int) string {
	switch {
	case grade == GradeRetry && expected != received:
		return fmt.Sprintf("Expected %d strokes but drew %d", expected, received)
	case grade == GradeRetry:
		return FeedbackRetry
	case hasDeviations:
		return FeedbackCheck
	case grade == GradeExcellent:
		return FeedbackExcellent
	case grade == GradeGood:
		return FeedbackGood
	default:
		return FeedbackAcceptable
	}
}

func clamp(accuracy float64) float64 {
	if math.IsNaN(accuracy) {
		return 0
	}
	return math.Max(0, math.Min(maxAccuracy, accuracy))
}

func round2(x float64) float64 {
	return math.Round(x*100) / 100
}
