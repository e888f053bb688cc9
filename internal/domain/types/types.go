// Package types contains common types used across the application
package types

// Entry represents a leaderboard entry
type Entry struct {
	Rank        int     `json:"rank"`
	LearnerID   string  `json:"learner_id"`
	Mastered    int     `json:"mastered"`
	AverageBest float64 `json:"average_best"`
}

// Less reports whether a ranks ahead of b: more characters mastered first,
// then higher average best accuracy, then learner id ascending.
func Less(a, b Entry) bool {
	if a.Mastered != b.Mastered {
		return a.Mastered > b.Mastered
	}
	if a.AverageBest != b.AverageBest {
		return a.AverageBest > b.AverageBest
	}
	return a.LearnerID < b.LearnerID
}
