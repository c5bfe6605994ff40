// Package ai defines the LLM capability contract and implements it once on top of a
// provider-specific Completer.
package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/spigell/resume-fit/internal/logger"
	"github.com/spigell/resume-fit/internal/prompts"
	"github.com/spigell/resume-fit/internal/schema"
	"github.com/spigell/resume-fit/internal/utils"
)

const defaultMaxLogLength = 200

// ErrEmptyCompletion is returned by completers when the model produced no text.
var ErrEmptyCompletion = errors.New("model returned empty response")

// Client implements Backend using prompts from a catalog.
type Client struct {
	completer Completer
	catalog   *prompts.Catalog
	logger    *zap.Logger
	maxLogLen int
}

var _ Backend = (*Client)(nil)

func NewClient(completer Completer, catalog *prompts.Catalog, log *zap.Logger, maxLogLength int) *Client {
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}

	return &Client{
		completer: completer,
		catalog:   catalog,
		logger:    logger.WithCommonFields(log, completer.Provider(), completer.Model()),
		maxLogLen: maxLogLength,
	}
}

func (c *Client) ValidatePrompt(ctx context.Context, prompt string) (schema.ValidityCheck, error) {
	return structured[schema.ValidityCheck](ctx, c, prompts.CheckRequest, literal(prompt))
}

func (c *Client) ExtractIntent(ctx context.Context, prompt string) (schema.WorkflowIntent, error) {
	return structured[schema.WorkflowIntent](ctx, c, prompts.ExtractReqs, literal(prompt))
}

func (c *Client) Score(ctx context.Context, resume, jobDescription string) (schema.FitScore, error) {
	return structured[schema.FitScore](ctx, c, prompts.ScoreResume, func(instruction string) string {
		return ComparisonPrompt(resume, jobDescription) + instruction
	})
}

func (c *Client) SummarizeGaps(ctx context.Context, explanations []string) (string, error) {
	if len(explanations) == 0 {
		return "", errors.New("no explanations to analyze")
	}

	tmpl, err := c.catalog.Get(prompts.SummarizeGaps)
	if err != nil {
		return "", err
	}

	rationales := make([]string, 0, len(explanations))
	for _, explanation := range explanations {
		rationales = append(rationales, "Rationale: "+strings.TrimSpace(explanation))
	}

	user := "Analyze the following rationale to identify missing skills or experiences:\n" +
		strings.Join(rationales, "\n--\n") + "\n--\n\n" + tmpl.User

	req := Request{System: tmpl.System, User: user}
	c.logRequest(prompts.SummarizeGaps, req)

	raw, err := c.completer.Text(ctx, req)
	if err != nil {
		return "", fmt.Errorf("%s: %w", prompts.SummarizeGaps, err)
	}
	c.logResponse(prompts.SummarizeGaps, raw)

	text := strings.TrimSpace(raw)
	if text == "" {
		return "", fmt.Errorf("%s: %w", prompts.SummarizeGaps, ErrEmptyCompletion)
	}
	return text, nil
}

func (c *Client) SuggestEdits(ctx context.Context, resume, jobDescription, gaps string) (schema.EditSuggestions, error) {
	return structured[schema.EditSuggestions](ctx, c, prompts.SuggestEdits, func(instruction string) string {
		return EditsPrompt(instruction, resume, jobDescription, gaps)
	})
}

func (c *Client) AssessTailoring(ctx context.Context, resume, jobDescription string) (schema.TailoringAssessment, error) {
	return structured[schema.TailoringAssessment](ctx, c, prompts.ExtractTailoring, func(instruction string) string {
		return ComparisonPrompt(resume, jobDescription) + instruction
	})
}

func (c *Client) ExtractSearch(ctx context.Context, prompt string) (schema.SearchQuery, error) {
	return structured[schema.SearchQuery](ctx, c, prompts.ExtractSearch, literal(prompt))
}

// buildUser turns the catalog's user instruction into the final user message.
type buildUser func(instruction string) string

// literal sends the caller's text as is and ignores the catalog instruction.
func literal(text string) buildUser {
	return func(string) string { return text }
}

func structured[T schema.Shape](ctx context.Context, c *Client, name string, build buildUser) (T, error) {
	var zero T

	tmpl, err := c.catalog.Get(name)
	if err != nil {
		return zero, err
	}

	s, err := schema.For[T]()
	if err != nil {
		return zero, err
	}

	req := Request{System: tmpl.System, User: build(tmpl.User)}
	c.logRequest(name, req)

	raw, err := c.completer.Structured(ctx, req, s)
	if err != nil {
		return zero, fmt.Errorf("%s: %w", name, err)
	}
	c.logResponse(name, raw)

	out, err := schema.Decode[T](raw)
	if err != nil {
		return zero, fmt.Errorf("%s: %w", name, err)
	}
	return out, nil
}

func (c *Client) logRequest(name string, req Request) {
	c.logger.Debug("llm request",
		zap.String(logger.FieldOperation, name),
		zap.Int("prompt_length", utf8.RuneCountInString(req.User)),
		zap.String("prompt_preview", utils.TruncateForLog(req.User, c.maxLogLen)),
		zap.Float32("temperature", req.Temperature),
	)
}

func (c *Client) logResponse(name, raw string) {
	c.logger.Debug("llm response",
		zap.String(logger.FieldOperation, name),
		zap.Int("response_length", utf8.RuneCountInString(raw)),
		zap.String("response_preview", utils.TruncateForLog(raw, c.maxLogLen)),
	)
}
