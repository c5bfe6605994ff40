package ai

import (
	"context"

	"github.com/spigell/resume-fit/internal/schema"
)

// Backend is the capability set every LLM provider offers. Implementations are
// interchangeable: same inputs, same schema-validated outputs.
type Backend interface {
	ValidatePrompt(ctx context.Context, prompt string) (schema.ValidityCheck, error)
	ExtractIntent(ctx context.Context, prompt string) (schema.WorkflowIntent, error)
	Score(ctx context.Context, resume, jobDescription string) (schema.FitScore, error)
	SummarizeGaps(ctx context.Context, explanations []string) (string, error)
	SuggestEdits(ctx context.Context, resume, jobDescription, gaps string) (schema.EditSuggestions, error)
	AssessTailoring(ctx context.Context, resume, jobDescription string) (schema.TailoringAssessment, error)
	ExtractSearch(ctx context.Context, prompt string) (schema.SearchQuery, error)
}

// Request is a single chat completion: one system and one user message.
type Request struct {
	System      string
	User        string
	Temperature float32
}

// Completer is the provider-specific transport behind a Backend.
type Completer interface {
	// Structured asks the model for a response conforming to s and returns the raw
	// JSON text. Decoding and validation happen in the caller.
	Structured(ctx context.Context, req Request, s *schema.Schema) (string, error)
	// Text returns a free-form completion.
	Text(ctx context.Context, req Request) (string, error)
	Provider() string
	Model() string
}
