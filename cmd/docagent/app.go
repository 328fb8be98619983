package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/loopwork-ai/docagent/agent"
	"github.com/loopwork-ai/docagent/docstore"
	"github.com/loopwork-ai/docagent/gateway/azure"
	"github.com/loopwork-ai/docagent/gateway/openai"
	"github.com/loopwork-ai/docagent/gateway/stub"
	"github.com/loopwork-ai/docagent/internal/config"
	"github.com/loopwork-ai/docagent/mcp"
)

// app holds what every command builds from flags and configuration.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	closers []func() error
}

func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load(config.Options{
		Path: configPath,
		Overrides: config.Overrides{
			Provider: providerName,
			Model:    modelName,
			Docstore: backendName,
			MaxTurns: maxTurns,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("error loading config: %w", err)
	}
	if err := cfg.ResolveSecrets(ctx); err != nil {
		return nil, fmt.Errorf("error resolving secrets: %w", err)
	}

	logger := newLogger()
	logger.Debug("config loaded", "provider", cfg.ResolvedProvider(), "docstore", cfg.Docstore.Backend)
	return &app{cfg: cfg, logger: logger}, nil
}

func (a *app) Close() error {
	var first error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (a *app) backend(ctx context.Context) (docstore.Backend, error) {
	switch a.cfg.Docstore.Backend {
	case config.DocstoreSQLite:
		store := docstore.NewSQLiteStore(a.cfg.Docstore.Path)
		if err := store.Init(ctx); err != nil {
			return nil, fmt.Errorf("error opening docstore: %w", err)
		}
		a.closers = append(a.closers, store.Close)
		return store, nil
	default:
		return docstore.NewMockStore(), nil
	}
}

func (a *app) server(ctx context.Context) (*mcp.Server, error) {
	backend, err := a.backend(ctx)
	if err != nil {
		return nil, err
	}
	server, err := mcp.NewServer(
		mcp.WithBackend(backend),
		mcp.WithLogger(a.logger),
	)
	if err != nil {
		return nil, fmt.Errorf("error creating server: %w", err)
	}
	return server, nil
}

// client connects to a tool server: a subprocess when serverCmd is set,
// otherwise one running in this process.
func (a *app) client(ctx context.Context, serverCmd string) (*mcp.Client, error) {
	var conn mcp.Conn
	if serverCmd != "" {
		a.logger.Info("starting tool server", "command", serverCmd)
		stdio, err := mcp.SpawnStdioServer(ctx, serverCmd, a.logger)
		if err != nil {
			return nil, err
		}
		conn = stdio
	} else {
		server, err := a.server(ctx)
		if err != nil {
			return nil, err
		}
		conn = mcp.NewInProcessConn(server)
	}
	a.closers = append(a.closers, conn.Close)

	return mcp.NewClient(conn,
		mcp.WithClientInfo("docagent", version),
		mcp.WithClientLogger(a.logger),
	), nil
}

func (a *app) model() (agent.Model, error) {
	cfg := a.cfg
	switch cfg.ResolvedProvider() {
	case config.ProviderAzure:
		return azure.New(cfg.Azure.Endpoint, cfg.Azure.Deployment, cfg.Azure.APIKey,
			azure.WithAPIVersion(cfg.Azure.APIVersion),
			azure.WithTimeout(timeout),
			azure.WithLogger(a.logger),
		)
	case config.ProviderOpenAI:
		opts := []openai.Option{
			openai.WithModel(cfg.OpenAI.Model),
			openai.WithTimeout(timeout),
			openai.WithLogger(a.logger),
		}
		if cfg.OpenAI.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(cfg.OpenAI.BaseURL))
		}
		return openai.New(cfg.OpenAI.APIKey, opts...)
	default:
		return stub.New(), nil
	}
}

func (a *app) fallback() bool {
	return a.cfg.ResolvedProvider() == config.ProviderStub
}
