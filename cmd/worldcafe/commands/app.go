// ABOUTME: Shared wiring for commands: config, logger, storage and capability
// ABOUTME: Every command builds its collaborators through newApp
package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/harper/worldcafe/internal/config"
	"github.com/harper/worldcafe/internal/core"
	"github.com/harper/worldcafe/internal/llm"
	"github.com/harper/worldcafe/internal/logging"
	"github.com/harper/worldcafe/internal/storage/sqlite"
)

// newCapability builds the completion capability; tests replace it
var newCapability = func(cfg *config.Config) (llm.Capability, error) {
	if cfg.OpenAIKey == "" {
		return nil, errors.New("OPENAI_API_KEY is not set")
	}
	client, err := llm.NewOpenAIClientWithConfig(&llm.ClientConfig{
		APIKey:         cfg.OpenAIKey,
		BaseURL:        cfg.OpenAIBaseURL,
		ChatModel:      cfg.ChatModel,
		MaxRetries:     cfg.MaxRetries,
		RetryDelay:     cfg.RetryDelay,
		RequestTimeout: cfg.Timeout,
		Temperature:    0.2,
	})
	if err != nil {
		return nil, err
	}
	return client, nil
}

type app struct {
	cfg          *config.Config
	logger       *log.Logger
	store        *sqlite.Storage
	capability   llm.Capability
	orchestrator *core.Orchestrator
	chat         *core.ChatContextCache
	opts         core.Options
}

// newApp loads configuration and opens storage. The capability is only
// required by commands that call the model.
func newApp(cmd *cobra.Command, needCapability bool) (*app, error) {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	level := cfg.LogLevel
	switch {
	case verbose:
		level = "debug"
	case quiet:
		level = "error"
	}
	logger := logging.New(logging.Options{Level: level, Output: cmd.ErrOrStderr()})

	prompts, err := config.LoadPrompts(cfg.PromptsFile)
	if err != nil {
		return nil, err
	}
	cfg.ApplyBudgetOverrides(prompts)

	path := dbPath
	if path == "" {
		path = cfg.DBPath
	}
	if path == "" {
		path = sqlite.DefaultDBPath()
	}
	store, err := sqlite.NewStorageWithPath(path)
	if err != nil {
		return nil, fmt.Errorf("initializing storage: %w", err)
	}
	logger.Debug("storage opened", "path", path)

	budget := core.NewBudgetManager()
	budget.MinRetainRatio = cfg.MinRetainRatio
	a := &app{
		cfg:    cfg,
		logger: logger,
		store:  store,
		opts: core.Options{
			Prompts:       prompts,
			CapabilityID:  cfg.ChatModel,
			FacetTimeout:  cfg.FacetTimeout,
			BudgetManager: budget,
			Logger:        logger,
		},
	}

	var capability llm.Capability = unavailable{errors.New("no completion capability configured")}
	if needCapability {
		capability, err = newCapability(cfg)
		if err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("initializing capability: %w", err)
		}
	}
	a.useCapability(capability)
	return a, nil
}

// useCapability rebuilds the orchestrator and chat cache around capability
func (a *app) useCapability(capability llm.Capability) {
	a.capability = capability
	a.orchestrator = core.NewOrchestrator(a.store.Transcripts, a.store.Analyses, capability, a.opts)
	a.chat = core.NewChatContextCache(a.store.Transcripts, a.store.Analyses, capability, a.opts)
}

// unavailable fails every request, so facets degrade instead of panicking
type unavailable struct{ err error }

func (u unavailable) Submit(_ context.Context, req llm.Request) (string, error) {
	return "", &llm.CapabilityError{Kind: llm.KindGeneric, CapabilityID: req.CapabilityID, Err: u.err}
}

func (a *app) Close() error {
	return a.store.Close()
}
