// Package gemini implements ai.Completer on the Google GenAI API.
package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/spigell/resume-fit/internal/ai"
	"github.com/spigell/resume-fit/internal/schema"
)

const (
	Provider     = "gemini"
	DefaultModel = "gemini-2.5-flash"
)

// models is the subset of genai.Models used by the completer.
type models interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Completer wraps the Google GenAI client.
type Completer struct {
	models    models
	modelName string
}

var _ ai.Completer = (*Completer)(nil)

// New creates a Completer configured for the Gemini API backend.
func New(ctx context.Context, apiKey, model string) (*Completer, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}

	cfg := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}

	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	return newCompleter(client.Models, model), nil
}

func newCompleter(m models, model string) *Completer {
	if model = strings.TrimSpace(model); model == "" {
		model = DefaultModel
	}
	return &Completer{models: m, modelName: model}
}

// Structured requests a JSON response constrained by s.
func (c *Completer) Structured(ctx context.Context, req ai.Request, s *schema.Schema) (string, error) {
	var responseSchema map[string]any
	if err := json.Unmarshal(s.Raw, &responseSchema); err != nil {
		return "", fmt.Errorf("decode %s schema: %w", s.Name, err)
	}

	cfg := c.config(req)
	cfg.ResponseMIMEType = "application/json"
	cfg.ResponseJsonSchema = responseSchema

	return c.generate(ctx, req.User, cfg)
}

// Text returns the free-form response.
func (c *Completer) Text(ctx context.Context, req ai.Request) (string, error) {
	return c.generate(ctx, req.User, c.config(req))
}

func (c *Completer) Provider() string { return Provider }

func (c *Completer) Model() string {
	if c == nil {
		return ""
	}
	return c.modelName
}

func (c *Completer) config(req ai.Request) *genai.GenerateContentConfig {
	cfg := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(req.Temperature),
	}
	if system := strings.TrimSpace(req.System); system != "" {
		cfg.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}
	return cfg
}

func (c *Completer) generate(ctx context.Context, prompt string, config *genai.GenerateContentConfig) (string, error) {
	if c == nil || c.models == nil {
		return "", errors.New("gemini completer is not initialized")
	}

	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", errors.New("prompt must not be empty")
	}

	resp, err := c.models.GenerateContent(ctx, c.modelName, genai.Text(prompt), config)
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}

	var builder strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part == nil || part.Thought {
				continue
			}
			text := strings.TrimSpace(part.Text)
			if text == "" {
				continue
			}
			if builder.Len() > 0 {
				builder.WriteString("\n")
			}
			builder.WriteString(text)
		}
	}

	output := strings.TrimSpace(builder.String())
	if output == "" {
		return "", ai.ErrEmptyCompletion
	}

	return output, nil
}
