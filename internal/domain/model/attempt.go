// Package model contains domain models passed between layers.
package model

import (
	"time"

	"github.com/okian/umwero/internal/domain/scoring"
	"github.com/okian/umwero/internal/domain/stroke"
)

// Attempt is one learner's drawing of a character, as submitted.
type Attempt struct {
	AttemptID   string          // unique id for idempotency
	LearnerID   string          // who drew it
	TemplateID  string          // which character template it targets
	Strokes     []stroke.Stroke // strokes in drawing order
	SubmittedAt time.Time       // capture time reported by the client
}

// AttemptRecord is the graded summary of an attempt that gets persisted.
type AttemptRecord struct {
	AttemptID      string        `json:"attempt_id"`
	LearnerID      string        `json:"learner_id"`
	TemplateID     string        `json:"template_id"`
	Character      string        `json:"character"`
	Accuracy       float64       `json:"accuracy"`
	Grade          scoring.Grade `json:"grade"`
	Passed         bool          `json:"passed"`
	StrokeCount    int           `json:"stroke_count"`
	DeviationCount int           `json:"deviation_count"`
	SubmittedAt    time.Time     `json:"submitted_at"`
}

// NewRecord summarizes a graded attempt.
func NewRecord(a Attempt, tpl stroke.CharacterTemplate, res scoring.Result) AttemptRecord {
	return AttemptRecord{
		AttemptID:      a.AttemptID,
		LearnerID:      a.LearnerID,
		TemplateID:     tpl.ID,
		Character:      tpl.Character,
		Accuracy:       res.Accuracy,
		Grade:          res.Grade,
		Passed:         res.Passed,
		StrokeCount:    res.ReceivedStrokes,
		DeviationCount: len(res.Deviations),
		SubmittedAt:    a.SubmittedAt,
	}
}

// Progress is a learner's standing on one character template.
type Progress struct {
	LearnerID     string        `json:"learner_id"`
	TemplateID    string        `json:"template_id"`
	Character     string        `json:"character"`
	Attempts      int           `json:"attempts"`
	BestAccuracy  float64       `json:"best_accuracy"`
	BestGrade     scoring.Grade `json:"best_grade"`
	Mastered      bool          `json:"mastered"`
	LastAttemptAt time.Time     `json:"last_attempt_at"`
}

// Apply folds a new record into the progress and reports whether the best
// accuracy improved.
func (p *Progress) Apply(rec AttemptRecord) bool {
	first := p.Attempts == 0
	p.LearnerID = rec.LearnerID
	p.TemplateID = rec.TemplateID
	p.Character = rec.Character
	p.Attempts++
	if rec.SubmittedAt.After(p.LastAttemptAt) {
		p.LastAttemptAt = rec.SubmittedAt
	}
	p.Mastered = p.Mastered || rec.Passed
	if first || rec.Accuracy > p.BestAccuracy {
		p.BestAccuracy = rec.Accuracy
		p.BestGrade = scoring.GradeFor(rec.Accuracy)
		return true
	}
	return false
}
