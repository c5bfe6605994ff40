// Package ollama implements ai.Completer on a local Ollama runtime.
package ollama

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/ollama/ollama/api"

	"github.com/spigell/resume-fit/internal/ai"
	"github.com/spigell/resume-fit/internal/schema"
)

const (
	Provider     = "ollama"
	DefaultHost  = "http://127.0.0.1:11434"
	DefaultModel = "llama3.1"
)

// Completer talks to the Ollama chat endpoint without streaming.
type Completer struct {
	client    *api.Client
	modelName string
}

var _ ai.Completer = (*Completer)(nil)

// New creates a Completer for the Ollama server at host. httpClient may be nil.
func New(host, model string, httpClient *http.Client) (*Completer, error) {
	if host = strings.TrimSpace(host); host == "" {
		host = DefaultHost
	}
	if !strings.Contains(host, "://") {
		host = "http://" + host
	}

	base, err := url.Parse(host)
	if err != nil {
		return nil, fmt.Errorf("parse ollama host %q: %w", host, err)
	}

	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	if model = strings.TrimSpace(model); model == "" {
		model = DefaultModel
	}

	return &Completer{
		client:    api.NewClient(base, httpClient),
		modelName: model,
	}, nil
}

// Structured passes the JSON schema as the chat format.
func (c *Completer) Structured(ctx context.Context, req ai.Request, s *schema.Schema) (string, error) {
	request := c.request(req)
	request.Format = s.Raw
	return c.chat(ctx, request)
}

func (c *Completer) Text(ctx context.Context, req ai.Request) (string, error) {
	return c.chat(ctx, c.request(req))
}

func (c *Completer) Provider() string { return Provider }

func (c *Completer) Model() string { return c.modelName }

func (c *Completer) request(req ai.Request) *api.ChatRequest {
	stream := false

	var messages []api.Message
	if system := strings.TrimSpace(req.System); system != "" {
		messages = append(messages, api.Message{Role: "system", Content: system})
	}
	messages = append(messages, api.Message{Role: "user", Content: req.User})

	return &api.ChatRequest{
		Model:    c.modelName,
		Messages: messages,
		Stream:   &stream,
		Options: map[string]any{
			"temperature": req.Temperature,
		},
	}
}

func (c *Completer) chat(ctx context.Context, request *api.ChatRequest) (string, error) {
	var builder strings.Builder
	err := c.client.Chat(ctx, request, func(resp api.ChatResponse) error {
		builder.WriteString(resp.Message.Content)
		return nil
	})
	if err != nil {
		var statusErr api.StatusError
		if errors.As(err, &statusErr) {
			return "", fmt.Errorf("ollama chat (status %d): %w", statusErr.StatusCode, err)
		}
		return "", fmt.Errorf("ollama chat: %w", err)
	}

	content := strings.TrimSpace(builder.String())
	if content == "" {
		return "", ai.ErrEmptyCompletion
	}
	return content, nil
}
