package cmd

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/spigell/resume-fit/internal/ai"
	"github.com/spigell/resume-fit/internal/ai/gemini"
	"github.com/spigell/resume-fit/internal/ai/ollama"
	"github.com/spigell/resume-fit/internal/ai/openai"
	"github.com/spigell/resume-fit/internal/prompts"
	"github.com/spigell/resume-fit/internal/workflow"
)

// newCompleter builds the provider selected by ai.backend.
func newCompleter(ctx context.Context, cfg *AIConfig) (ai.Completer, error) {
	switch cfg.Backend {
	case openai.Provider:
		return openai.New(cfg.OpenAI.APIKey, cfg.OpenAI.BaseURL, cfg.OpenAI.Model)
	case ollama.Provider:
		return ollama.New(cfg.Ollama.Host, cfg.Ollama.Model, nil)
	case gemini.Provider:
		return gemini.New(ctx, cfg.Gemini.APIKey, cfg.Gemini.Model)
	default:
		return nil, fmt.Errorf("%w: %q", errUnknownBackend, cfg.Backend)
	}
}

// newWorkflow wires the configured backend, prompt catalog and workflow services.
func newWorkflow(ctx context.Context, config *Config, logger *zap.Logger) (*workflow.Workflow, error) {
	completer, err := newCompleter(ctx, config.AI)
	if err != nil {
		return nil, fmt.Errorf("creating %s backend: %w", config.AI.Backend, err)
	}

	catalog, err := prompts.Load(config.Prompts.File)
	if err != nil {
		return nil, fmt.Errorf("loading prompts: %w", err)
	}

	client := ai.NewClient(completer, catalog, logger, config.AI.MaxLogLength)

	logger.Info("using ai backend",
		zap.String("provider", completer.Provider()),
		zap.String("model", completer.Model()),
	)

	return workflow.New(client, config.workflowConfig(), logger), nil
}
