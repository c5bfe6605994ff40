// Package workflow runs the resume evaluation: a gate on the user's request followed
// by independent scoring, prediction and edit branches.
package workflow

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spigell/resume-fit/internal/ai"
	"github.com/spigell/resume-fit/internal/logger"
	"github.com/spigell/resume-fit/internal/schema"
)

const (
	DefaultRequestTimeout = 60 * time.Second
	DefaultGapThreshold   = 7.0
	DefaultConcurrency    = 3
)

var (
	ErrGateFailed = errors.New("request gate failed")
	ErrEmptyInput = errors.New("resume and job description are required")
)

// Config tunes the workflow services.
type Config struct {
	// RequestTimeout bounds every backend call.
	RequestTimeout time.Duration
	// GapThreshold is the score a job must exceed to feed gap analysis.
	GapThreshold float64
	// Concurrency limits parallel scoring in ScoreJobs.
	Concurrency int
}

func (c Config) withDefaults() Config {
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = DefaultRequestTimeout
	}
	// zero is a valid threshold: every scored job feeds gap analysis.
	if c.GapThreshold < 0 || math.IsNaN(c.GapThreshold) {
		c.GapThreshold = DefaultGapThreshold
	}
	if c.Concurrency <= 0 {
		c.Concurrency = DefaultConcurrency
	}
	return c
}

type Workflow struct {
	backend ai.Backend
	cfg     Config
	logger  *zap.Logger

	newRunID func() string
}

func New(backend ai.Backend, cfg Config, log *zap.Logger) *Workflow {
	if log == nil {
		log = zap.NewNop()
	}

	return &Workflow{
		backend:  backend,
		cfg:      cfg.withDefaults(),
		logger:   log,
		newRunID: uuid.NewString,
	}
}

// Input is one evaluation request.
type Input struct {
	Resume          string
	JobDescription  string
	Prompt          string
	DaysSincePosted int
}

// Result collects the outcome of every branch that ran. Branch fields are nil when
// the branch was not requested.
type Result struct {
	RunID      string                  `json:"run_id"`
	Rejected   bool                    `json:"rejected"`
	Rationale  string                  `json:"rationale,omitempty"`
	Intent     *schema.WorkflowIntent  `json:"intent,omitempty"`
	Score      *schema.FitScore        `json:"score,omitempty"`
	Gaps       string                  `json:"gaps,omitempty"`
	Prediction *Prediction             `json:"prediction,omitempty"`
	Edits      *schema.EditSuggestions `json:"edits,omitempty"`
	// Job is the scored record, set when the scoring branch ran.
	Job *schema.JobRecord `json:"job,omitempty"`
}

// Run gates the prompt and executes every requested branch. A failing branch leaves
// its sentinel in the result and never stops the others. The only error paths are
// missing input and a gate that could not be evaluated.
func (w *Workflow) Run(ctx context.Context, in Input) (*Result, error) {
	result := &Result{RunID: w.newRunID()}
	log := logger.WithRunID(w.logger, result.RunID)

	if strings.TrimSpace(in.Resume) == "" || strings.TrimSpace(in.JobDescription) == "" {
		return result, ErrEmptyInput
	}

	gate, err := w.CheckAndExtract(ctx, in.Prompt)
	if err != nil {
		log.Error("request gate failed", zap.Error(err))
		return result, err
	}

	if gate.Rejected {
		log.Warn("request rejected",
			zap.Bool("is_valid", gate.Check.IsValid),
			zap.Float64("confidence", gate.Check.Confidence),
			zap.String("rationale", gate.Rationale),
		)
		result.Rejected = true
		result.Rationale = gate.Rationale
		return result, nil
	}

	intent := gate.Intent
	result.Intent = &intent
	log.Info("request accepted",
		zap.Bool("wants_score", intent.WantsScore),
		zap.Bool("wants_prediction", intent.WantsPrediction),
		zap.Bool("wants_edits", intent.WantsEdits),
	)

	var (
		score  *schema.FitScore
		gaps   string
		gapsOK bool
	)

	if intent.WantsScore {
		s := w.Score(ctx, in.Resume, in.JobDescription)
		score = &s

		job := schema.NewJobRecord("", in.JobDescription, in.Resume)
		job.Apply(s)
		result.Score = score
		result.Job = job

		var explanations []string
		if !s.Failed() {
			explanations = append(explanations, s.Explanation)
		}
		gaps, gapsOK = w.summarizeGaps(ctx, explanations)
		result.Gaps = gaps

		log.Info("scored resume", zap.Float64("score", s.Score), zap.Bool("gaps_available", gapsOK))
	}

	if intent.WantsPrediction {
		if score == nil {
			s := w.Score(ctx, in.Resume, in.JobDescription)
			score = &s
		}
		prediction := w.Predict(ctx, *score, in.Resume, in.JobDescription, in.DaysSincePosted)
		result.Prediction = &prediction

		log.Info("predicted interview chance",
			zap.Float64("interview_chance", prediction.InterviewChance),
			zap.String("error", prediction.Error),
		)
	}

	if intent.WantsEdits {
		var editGaps string
		if gapsOK {
			editGaps = gaps
		}
		edits := w.SuggestEdits(ctx, in.Resume, in.JobDescription, editGaps)
		result.Edits = &edits

		log.Info("suggested edits", zap.Bool("failed", edits.Failed()))
	}

	return result, nil
}

// call runs fn under the per-call timeout.
func call[T any](ctx context.Context, timeout time.Duration, fn func(context.Context) (T, error)) (T, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return fn(ctx)
}
