package workflow

import (
	"context"
	"sort"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spigell/resume-fit/internal/schema"
)

// Score rates resume against jobDescription. Any backend failure yields the
// FailedFitScore sentinel.
func (w *Workflow) Score(ctx context.Context, resume, jobDescription string) schema.FitScore {
	score, err := call(ctx, w.cfg.RequestTimeout, func(ctx context.Context) (schema.FitScore, error) {
		return w.backend.Score(ctx, resume, jobDescription)
	})
	if err != nil {
		w.logger.Warn("scoring failed", zap.Error(err))
		return schema.FailedFitScore()
	}
	return score
}

// ScoreJobs scores every record concurrently and writes the result into it.
// Failures are contained per record.
func (w *Workflow) ScoreJobs(ctx context.Context, resume string, jobs []*schema.JobRecord) {
	var g errgroup.Group
	g.SetLimit(w.cfg.Concurrency)

	for i, job := range jobs {
		if job == nil {
			continue
		}

		g.Go(func() error {
			job.Resume = resume
			job.Apply(w.Score(ctx, resume, job.Description))

			w.logger.Debug("scored job",
				zap.Int("index", i),
				zap.String("name", job.Name),
				zap.Float64("score", job.Score),
			)
			return nil
		})
	}

	_ = g.Wait()
}

// TopJobs returns up to n scored records ordered by score, best first. Records
// carrying the failure sentinel are excluded.
func TopJobs(jobs []*schema.JobRecord, n int) []*schema.JobRecord {
	scored := make([]*schema.JobRecord, 0, len(jobs))
	for _, job := range jobs {
		if job != nil && job.Score != schema.FailedScore {
			scored = append(scored, job)
		}
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	if n >= 0 && len(scored) > n {
		scored = scored[:n]
	}
	return scored
}
