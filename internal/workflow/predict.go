package workflow

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/spigell/resume-fit/internal/prediction"
	"github.com/spigell/resume-fit/internal/schema"
)

// FailedChance marks a Prediction that could not be computed.
const FailedChance = -1

// Prediction is the interview likelihood for one posting.
type Prediction struct {
	Tailoring       schema.TailoringAssessment `json:"tailoring"`
	RawFit          float64                    `json:"raw_fit"`
	OverallScore    float64                    `json:"overall_score"`
	TimeDecay       float64                    `json:"time_decay"`
	InterviewChance float64                    `json:"interview_chance"`
	Error           string                     `json:"error,omitempty"`
}

func (p Prediction) Failed() bool {
	return p.InterviewChance == FailedChance
}

// Predict combines an existing fit score with a tailoring assessment and posting
// age. A failed score or assessment yields a Prediction with InterviewChance -1.
func (w *Workflow) Predict(ctx context.Context, score schema.FitScore, resume, jobDescription string, daysSincePosted int) Prediction {
	if score.Failed() {
		return failedPrediction(errors.New("no fit score available"))
	}

	tailoring, err := call(ctx, w.cfg.RequestTimeout, func(ctx context.Context) (schema.TailoringAssessment, error) {
		return w.backend.AssessTailoring(ctx, resume, jobDescription)
	})
	if err != nil {
		w.logger.Warn("tailoring assessment failed", zap.Error(err))
		return failedPrediction(fmt.Errorf("assess tailoring: %w", err))
	}

	raw := score.Score * 10
	overall, err := prediction.OverallFitAndTailoringScore(raw, tailoring.Level)
	if err != nil {
		return failedPrediction(err)
	}

	chance, err := prediction.InterviewChance(raw, tailoring.Level, daysSincePosted)
	if err != nil {
		return failedPrediction(err)
	}

	return Prediction{
		Tailoring:       tailoring,
		RawFit:          raw,
		OverallScore:    overall,
		TimeDecay:       prediction.TimeDecay(daysSincePosted),
		InterviewChance: chance,
	}
}

func failedPrediction(err error) Prediction {
	return Prediction{InterviewChance: FailedChance, Error: err.Error()}
}
