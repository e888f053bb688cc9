package scoring

// Grade is the discrete outcome band of an attempt.
type Grade string

// Grades from best to worst.
const (
	GradeExcellent  Grade = "excellent"
	GradeGood       Grade = "good"
	GradeAcceptable Grade = "acceptable"
	GradeRetry      Grade = "retry"
)

// Grade cut points on the 0-100 accuracy scale. An attempt passes once it
// reaches the acceptable band.
const (
	ExcellentThreshold  = 90.0
	GoodThreshold       = 75.0
	AcceptableThreshold = 60.0
	PassThreshold       = AcceptableThreshold
)

// GradeFor maps an accuracy to its grade band.
func GradeFor(accuracy float64) Grade {
	switch {
	case accuracy >= ExcellentThreshold:
		return GradeExcellent
	case accuracy >= GoodThreshold:
		return GradeGood
	case accuracy >= AcceptableThreshold:
		return GradeAcceptable
	default:
		return GradeRetry
	}
}

// Passed reports whether accuracy reaches the pass threshold.
func Passed(accuracy float64) bool {
	return accuracy >= PassThreshold
}

// Rank orders grades so that a better grade compares higher.
func (g Grade) Rank() int {
	switch g {
	case GradeExcellent:
		return 3
	case GradeGood:
		return 2
	case GradeAcceptable:
		return 1
	default:
		return 0
	}
}

// Valid reports whether g is one of the known grades.
func (g Grade) Valid() bool {
	switch g {
	case GradeExcellent, GradeGood, GradeAcceptable, GradeRetry:
		return true
	}
	return false
}
