package scoring

// Option applies a configuration option to the StrokeScorer.
type Option func(*StrokeScorer)

// WithResampleCount sets how many evenly spaced points each stroke is
// resampled to before comparison. Values below 2 are ignored.
func WithResampleCount(n int) Option {
	return func(s *StrokeScorer) {
		if n >= 2 {
			s.resampleCount = n
		}
	}
}

// WithTolerance sets the RMS deviation, in normalized units, at which a
// stroke's contribution reaches zero.
func WithTolerance(tolerance float64) Option {
	return func(s *StrokeScorer) {
		if tolerance > 0 {
			s.tolerance = tolerance
		}
	}
}

// WithFlagThreshold sets the per-stroke contribution below which a
// deviation is reported.
func WithFlagThreshold(threshold float64) Option {
	return func(s *StrokeScorer) {
		if threshold >= 0 && threshold <= maxAccuracy {
			s.flagThreshold = threshold
		}
	}
}

// WithMismatchCap sets the highest accuracy an attempt with the wrong
// number of strokes can reach.
func WithMismatchCap(limit float64) Option {
	return func(s *StrokeScorer) {
		if limit >= 0 && limit <= maxAccuracy {
			s.mismatchCap = limit
		}
	}
}
