package pdfexport

// Option configures a practice sheet.
type Option func(*sheet)

// WithGrid sets the number of tracing rows and columns.
func WithGrid(rows, columns int) Option {
	return func(s *sheet) {
		if rows > 0 {
			s.rows = rows
		}
		if columns > 0 {
			s.columns = columns
		}
	}
}

// WithTitle replaces the default "Character <c> (<name>)" heading.
func WithTitle(title string) Option {
	return func(s *sheet) {
		if title != "" {
			s.title = title
		}
	}
}

// WithLearner prints the learner id under the heading.
func WithLearner(learnerID string) Option {
	return func(s *sheet) {
		s.learner = learnerID
	}
}
