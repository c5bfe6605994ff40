// Package openai implements ai.Completer on the OpenAI chat completions API.
package openai

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/spigell/resume-fit/internal/ai"
	"github.com/spigell/resume-fit/internal/schema"
)

const (
	Provider     = "openai"
	DefaultModel = openai.GPT4oMini
)

// Completer sends chat completions to OpenAI or a compatible endpoint.
type Completer struct {
	client    *openai.Client
	modelName string
}

var _ ai.Completer = (*Completer)(nil)

// New creates a Completer. baseURL is optional and points the client to an
// OpenAI-compatible server.
func New(apiKey, baseURL, model string) (*Completer, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("openai api key is required")
	}

	cfg := openai.DefaultConfig(apiKey)
	if baseURL = strings.TrimSpace(baseURL); baseURL != "" {
		cfg.BaseURL = strings.TrimRight(baseURL, "/")
	}

	if model = strings.TrimSpace(model); model == "" {
		model = DefaultModel
	}

	return &Completer{
		client:    openai.NewClientWithConfig(cfg),
		modelName: model,
	}, nil
}

// Structured uses the json_schema response format. The schema is sent as strict
// only when every property is required.
func (c *Completer) Structured(ctx context.Context, req ai.Request, s *schema.Schema) (string, error) {
	request := c.request(req)
	request.ResponseFormat = &openai.ChatCompletionResponseFormat{
		Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
		JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
			Name:   s.Name,
			Schema: s.Definition,
			Strict: s.Strict(),
		},
	}

	return c.complete(ctx, request)
}

func (c *Completer) Text(ctx context.Context, req ai.Request) (string, error) {
	return c.complete(ctx, c.request(req))
}

func (c *Completer) Provider() string { return Provider }

func (c *Completer) Model() string { return c.modelName }

func (c *Completer) request(req ai.Request) openai.ChatCompletionRequest {
	var messages []openai.ChatCompletionMessage
	if system := strings.TrimSpace(req.System); system != "" {
		messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: system})
	}
	messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: req.User})

	return openai.ChatCompletionRequest{
		Model:       c.modelName,
		Messages:    messages,
		Temperature: temperature(req.Temperature),
	}
}

// temperature keeps an explicit zero from being dropped by omitempty.
func temperature(t float32) float32 {
	if t == 0 {
		return math.SmallestNonzeroFloat32
	}
	return t
}

func (c *Completer) complete(ctx context.Context, request openai.ChatCompletionRequest) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, request)
	if err != nil {
		return "", fmt.Errorf("create chat completion: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", ai.ErrEmptyCompletion
	}

	choice := resp.Choices[0]
	if choice.Message.Refusal != "" {
		return "", fmt.Errorf("model refused: %s", choice.Message.Refusal)
	}

	content := strings.TrimSpace(choice.Message.Content)
	if content == "" {
		return "", ai.ErrEmptyCompletion
	}
	return content, nil
}
