package workflow

import (
	"context"

	"go.uber.org/zap"

	"github.com/spigell/resume-fit/internal/schema"
)

// SuggestEdits proposes resume changes for jobDescription, targeting gaps when
// given. Failure yields the FailedEditSuggestions sentinel.
func (w *Workflow) SuggestEdits(ctx context.Context, resume, jobDescription, gaps string) schema.EditSuggestions {
	edits, err := call(ctx, w.cfg.RequestTimeout, func(ctx context.Context) (schema.EditSuggestions, error) {
		return w.backend.SuggestEdits(ctx, resume, jobDescription, gaps)
	})
	if err != nil {
		w.logger.Warn("edit suggestion failed", zap.Error(err))
		return schema.FailedEditSuggestions()
	}
	return edits
}
