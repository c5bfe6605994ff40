package workflow

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/spigell/resume-fit/internal/schema"
)

// MinGateConfidence is the lowest validity confidence that passes the gate.
const MinGateConfidence = 0.7

// Gate is the outcome of CheckAndExtract. Intent is set only when Rejected is false.
type Gate struct {
	Rejected  bool
	Check     schema.ValidityCheck
	Rationale string
	Intent    schema.WorkflowIntent
}

// Accepts reports whether a validity check passes the gate.
func Accepts(check schema.ValidityCheck) bool {
	return check.IsValid && check.Confidence >= MinGateConfidence
}

// CheckAndExtract validates that prompt is an in-domain request and extracts the
// requested actions. Rejection is a normal outcome, not an error.
func (w *Workflow) CheckAndExtract(ctx context.Context, prompt string) (Gate, error) {
	check, err := call(ctx, w.cfg.RequestTimeout, func(ctx context.Context) (schema.ValidityCheck, error) {
		return w.backend.ValidatePrompt(ctx, prompt)
	})
	if err != nil {
		return Gate{}, fmt.Errorf("%w: validate prompt: %w", ErrGateFailed, err)
	}

	if !Accepts(check) {
		return Gate{Rejected: true, Check: check, Rationale: check.Rationale}, nil
	}

	intent, err := call(ctx, w.cfg.RequestTimeout, func(ctx context.Context) (schema.WorkflowIntent, error) {
		return w.backend.ExtractIntent(ctx, prompt)
	})
	if err != nil {
		return Gate{}, fmt.Errorf("%w: extract intent: %w", ErrGateFailed, err)
	}

	w.logger.Debug("extracted intent",
		zap.Float64("score_confidence", intent.ScoreConfidence),
		zap.Float64("prediction_confidence", intent.PredictionConfidence),
		zap.Float64("edit_confidence", intent.EditConfidence),
		zap.String("rationale", intent.Rationale),
	)

	return Gate{Check: check, Rationale: check.Rationale, Intent: intent}, nil
}

// ExtractSearch gates prompt and extracts job search parameters from it.
func (w *Workflow) ExtractSearch(ctx context.Context, prompt string) (Gate, schema.SearchQuery, error) {
	check, err := call(ctx, w.cfg.RequestTimeout, func(ctx context.Context) (schema.ValidityCheck, error) {
		return w.backend.ValidatePrompt(ctx, prompt)
	})
	if err != nil {
		return Gate{}, schema.SearchQuery{}, fmt.Errorf("%w: validate prompt: %w", ErrGateFailed, err)
	}
	if !Accepts(check) {
		return Gate{Rejected: true, Check: check, Rationale: check.Rationale}, schema.SearchQuery{}, nil
	}

	query, err := call(ctx, w.cfg.RequestTimeout, func(ctx context.Context) (schema.SearchQuery, error) {
		return w.backend.ExtractSearch(ctx, prompt)
	})
	if err != nil {
		return Gate{}, schema.SearchQuery{}, fmt.Errorf("extract search: %w", err)
	}
	return Gate{Check: check, Rationale: check.Rationale}, query, nil
}
