package drill

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/okian/umwero/internal/domain/scoring"
	"github.com/okian/umwero/internal/domain/stroke"
	"github.com/okian/umwero/pkg/logger"
)

const (
	directoryPermission = 0o750
	pollInterval        = 100 * time.Millisecond
)

type learner struct {
	id      string
	profile Profile
}

type job struct {
	learner  learner
	template stroke.CharacterTemplate
	strokes  []stroke.Stroke
}

// Run executes a complete drill against cfg.BaseURL. The report is returned
// even when verification fails.
func Run(ctx context.Context, cfg *Config) (*Report, error) {
	log := logger.Named("drill")
	start := time.Now()
	client := NewClient(cfg.BaseURL, cfg.Timeout)

	log.Info(ctx, "starting drill",
		logger.String("baseURL", cfg.BaseURL),
		logger.Int("learners", cfg.Learners),
		logger.Int("attempts", cfg.Attempts),
		logger.Int("workers", cfg.Workers),
	)

	if err := client.Healthy(ctx); err != nil {
		return nil, err
	}

	templates, err := client.Templates(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch templates: %w", err)
	}
	if len(templates) == 0 {
		return nil, ErrNoTemplates
	}

	learners := newLearners(cfg.Learners)
	jobs := plan(learners, templates, cfg.Attempts, cfg.Seed)
	report := newReport(len(templates), learners)

	if err := submit(ctx, client, jobs, cfg.Workers, report); err != nil {
		return nil, err
	}
	log.Info(ctx, "attempts submitted",
		logger.Int("submitted", report.Submitted),
		logger.Int("recorded", report.Recorded),
		logger.Int("failed", report.Failed),
	)

	if err := rankProfiles(ctx, client, cfg, learners, report); err != nil {
		log.Warn(ctx, "leaderboard unavailable", logger.Error(err))
	}

	report.Duration = time.Since(start)
	for _, ps := range report.Profiles {
		log.Info(ctx, "profile summary",
			logger.String("profile", ps.Profile),
			logger.Int("submitted", ps.Submitted),
			logger.Float64("meanAccuracy", ps.MeanAccuracy),
			logger.Float64("meanRank", ps.MeanRank),
			logger.Any("grades", ps.Grades),
		)
	}

	if cfg.OutputFile != "" {
		if err := saveReport(cfg.OutputFile, report); err != nil {
			log.Warn(ctx, "failed to save report", logger.Error(err))
		}
	}

	if err := verify(report); err != nil {
		return report, err
	}
	log.Info(ctx, "drill completed", logger.String("duration", report.Duration.String()))
	return report, nil
}

// newLearners spreads n learners over the profiles round robin.
func newLearners(n int) []learner {
	out := make([]learner, n)
	for i := range out {
		p := Profiles[i%len(Profiles)]
		out[i] = learner{id: "drill-" + p.Name + "-" + uuid.NewString()[:8], profile: p}
	}
	return out
}

// plan synthesizes every attempt up front so a seed reproduces the drill.
func plan(learners []learner, templates []stroke.CharacterTemplate, attempts int, seed uint64) []job {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	jobs := make([]job, 0, len(learners)*attempts)
	for i, l := range learners {
		for j := 0; j < attempts; j++ {
			tpl := templates[(i+j)%len(templates)]
			jobs = append(jobs, job{learner: l, template: tpl, strokes: Trace(tpl, l.profile, rng)})
		}
	}
	return jobs
}

func newReport(templates int, learners []learner) *Report {
	r := &Report{Templates: templates}
	for _, p := range Profiles {
		ps := &ProfileStats{Profile: p.Name, Grades: map[scoring.Grade]int{}}
		for _, l := range learners {
			if l.profile.Name == p.Name {
				ps.Learners++
			}
		}
		r.Profiles = append(r.Profiles, ps)
	}
	return r
}

func (r *Report) profile(name string) *ProfileStats {
	for _, ps := range r.Profiles {
		if ps.Profile == name {
			return ps
		}
	}
	return nil
}

// submit posts jobs with bounded concurrency. Request failures are tallied,
// only cancellation aborts.
func submit(ctx context.Context, client *Client, jobs []job, workers int, report *Report) error {
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(workers, 1))

	for _, jb := range jobs {
		g.Go(func() error {
			out, err := client.Submit(gctx, uuid.NewString(), jb.learner.id, jb.template.ID, jb.strokes)
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}

			mu.Lock()
			defer mu.Unlock()
			ps := report.profile(jb.learner.profile.Name)
			report.Submitted++
			ps.Submitted++
			if err != nil {
				report.Failed++
				ps.Failed++
				return nil
			}
			if out.Recorded {
				report.Recorded++
			}
			ps.Grades[out.Result.Grade]++
			ps.accuracySum += out.Result.Accuracy
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("submit attempts: %w", err)
	}

	for _, ps := range report.Profiles {
		if graded := ps.Submitted - ps.Failed; graded > 0 {
			ps.MeanAccuracy = round2(ps.accuracySum / float64(graded))
		}
	}
	return nil
}

// rankProfiles waits for records to land on the leaderboard and averages
// the rank of each profile's learners.
func rankProfiles(ctx context.Context, client *Client, cfg *Config, learners []learner, report *Report) error {
	byID := make(map[string]string, len(learners))
	for _, l := range learners {
		byID[l.id] = l.profile.Name
	}
	want := min(cfg.Leaderboard, len(learners))

	deadline := time.Now().Add(cfg.Settle)
	for {
		entries, err := client.Leaderboard(ctx, cfg.Leaderboard)
		if err != nil {
			return err
		}
		seen := 0
		for _, e := range entries {
			if _, ok := byID[e.LearnerID]; ok {
				seen++
			}
		}
		if seen >= want || !time.Now().Before(deadline) {
			for _, e := range entries {
				name, ok := byID[e.LearnerID]
				if !ok {
					continue
				}
				ps := report.profile(name)
				ps.rankSum += e.Rank
				ps.ranked++
			}
			for _, ps := range report.Profiles {
				if ps.ranked > 0 {
					ps.MeanRank = round2(float64(ps.rankSum) / float64(ps.ranked))
				}
			}
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(pollInterval):
		}
	}
}

// verify checks that careful learners out-score sloppy ones.
func verify(r *Report) error {
	careful, sloppy := r.profile(Careful.Name), r.profile(Sloppy.Name)
	if careful.Submitted == careful.Failed || sloppy.Submitted == sloppy.Failed {
		return fmt.Errorf("%w: careful and sloppy learners both need graded attempts", ErrVerification)
	}
	if careful.MeanAccuracy <= sloppy.MeanAccuracy {
		return fmt.Errorf("%w: careful mean accuracy %.2f not above sloppy %.2f",
			ErrVerification, careful.MeanAccuracy, sloppy.MeanAccuracy)
	}
	if careful.ranked > 0 && sloppy.ranked > 0 && careful.MeanRank >= sloppy.MeanRank {
		return fmt.Errorf("%w: careful mean rank %.2f not ahead of sloppy %.2f",
			ErrVerification, careful.MeanRank, sloppy.MeanRank)
	}
	return nil
}

func saveReport(path string, r *Report) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o600); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}

func round2(x float64) float64 {
	return math.Round(x*100) / 100
}
