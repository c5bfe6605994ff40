package workflow

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/resume-fit/internal/schema"
)

// SummarizeGaps turns score explanations into a bullet list of missing skills. It
// always returns text: a notice when there is nothing to analyze, or the failure
// reason when the backend call fails.
func (w *Workflow) SummarizeGaps(ctx context.Context, explanations ...string) string {
	text, _ := w.summarizeGaps(ctx, explanations)
	return text
}

// IdentifyGaps summarizes the explanations of jobs scored above the gap threshold.
func (w *Workflow) IdentifyGaps(ctx context.Context, jobs []*schema.JobRecord) string {
	return w.SummarizeGaps(ctx, w.aboveThreshold(jobs)...)
}

func (w *Workflow) aboveThreshold(jobs []*schema.JobRecord) []string {
	var explanations []string
	for _, job := range jobs {
		if job == nil || job.Score == schema.FailedScore {
			continue
		}
		if job.Score > w.cfg.GapThreshold {
			explanations = append(explanations, job.Explanation)
		}
	}
	return explanations
}

// summarizeGaps reports ok only when the text came from the model.
func (w *Workflow) summarizeGaps(ctx context.Context, explanations []string) (string, bool) {
	filtered := make([]string, 0, len(explanations))
	for _, explanation := range explanations {
		if strings.TrimSpace(explanation) != "" {
			filtered = append(filtered, explanation)
		}
	}

	if len(filtered) == 0 {
		return "Unable to conduct gap analysis, no jobs scored above " +
			strconv.FormatFloat(w.cfg.GapThreshold, 'f', -1, 64), false
	}

	gaps, err := call(ctx, w.cfg.RequestTimeout, func(ctx context.Context) (string, error) {
		return w.backend.SummarizeGaps(ctx, filtered)
	})
	if err != nil {
		w.logger.Warn("gap analysis failed", zap.Error(err))
		return fmt.Sprintf("Unable to analyze gaps: %v", err), false
	}
	return gaps, true
}
