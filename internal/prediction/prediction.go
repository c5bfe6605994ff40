// Package prediction turns a fit score, a tailoring level and posting age into an
// interview likelihood.
package prediction

import (
	"errors"
	"fmt"
	"math"
)

// Tailoring levels reported by the model.
const (
	Exceptional = "Exceptional"
	VeryWell    = "Very Well"
	Well        = "Well"
	Moderate    = "Moderate"
	Generic     = "Generic"
)

var (
	ErrUnknownTailoringLevel = errors.New("unknown tailoring level")
	ErrFitOutOfRange         = errors.New("raw fit score out of range")
)

var boosts = map[string]float64{
	Exceptional: 10,
	VeryWell:    7,
	Well:        4,
	Moderate:    1,
	Generic:     -5,
}

// OverallFitAndTailoringScore adjusts a 0-100 fit score by the tailoring level and
// clamps the result to [0, 100].
func OverallFitAndTailoringScore(raw float64, level string) (float64, error) {
	if math.IsNaN(raw) || raw < 0 || raw > 100 {
		return 0, fmt.Errorf("%w: %v", ErrFitOutOfRange, raw)
	}

	boost, ok := boosts[level]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownTailoringLevel, level)
	}

	return math.Max(0, math.Min(100, raw+boost)), nil
}

// TimeDecay is the multiplier applied to postings by age in days.
func TimeDecay(days int) float64 {
	switch {
	case days <= 14:
		return 1.0
	case days <= 28:
		return 0.8
	case days <= 56:
		return 0.5
	case days <= 84:
		return 0.2
	default:
		return 0.1
	}
}

// InterviewChance returns the interview likelihood as a percentage rounded to two
// decimals.
func InterviewChance(raw float64, level string, days int) (float64, error) {
	overall, err := OverallFitAndTailoringScore(raw, level)
	if err != nil {
		return 0, err
	}

	chance := overall / 100 * TimeDecay(days) * 100
	return math.Round(chance*100) / 100, nil
}
