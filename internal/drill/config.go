// Package drill exercises a running practice service end to end with
// synthetic learners.
package drill

import (
	"errors"
	"time"

	"github.com/okian/umwero/internal/domain/scoring"
)

// Sentinel errors returned by Run.
var (
	ErrUnhealthy    = errors.New("service unhealthy")
	ErrNoTemplates  = errors.New("no templates available")
	ErrVerification = errors.New("drill verification failed")
)

// Config holds configuration for a drill run.
type Config struct {
	BaseURL     string        // base URL of the service
	Learners    int           // synthetic learners, spread across profiles
	Attempts    int           // attempts per learner
	Workers     int           // concurrent submissions
	Timeout     time.Duration // HTTP request timeout
	Settle      time.Duration // how long to wait for records to reach the leaderboard
	Leaderboard int           // entries to fetch for verification
	Seed        uint64        // seed for stroke synthesis
	OutputFile  string        // optional JSON report path
}

// Outcome mirrors the response of POST /attempts.
type Outcome struct {
	AttemptID  string         `json:"attempt_id"`
	LearnerID  string         `json:"learner_id"`
	TemplateID string         `json:"template_id"`
	Result     scoring.Result `json:"result"`
	Duplicate  bool           `json:"duplicate"`
	Recorded   bool           `json:"recorded"`
	Error      string         `json:"error,omitempty"`
}

// ProfileStats tallies outcomes for one learner profile.
type ProfileStats struct {
	Profile      string                `json:"profile"`
	Learners     int                   `json:"learners"`
	Submitted    int                   `json:"submitted"`
	Failed       int                   `json:"failed"`
	Grades       map[scoring.Grade]int `json:"grades"`
	MeanAccuracy float64               `json:"mean_accuracy"`
	MeanRank     float64               `json:"mean_rank,omitempty"`

	accuracySum float64
	rankSum     int
	ranked      int
}

// Report summarizes a drill run.
type Report struct {
	Templates int             `json:"templates"`
	Submitted int             `json:"submitted"`
	Recorded  int             `json:"recorded"`
	Failed    int             `json:"failed"`
	Profiles  []*ProfileStats `json:"profiles"`
	Duration  time.Duration   `json:"duration"`
}
