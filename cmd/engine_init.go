package main

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/outreach-cli/internal/guardrail"
	"github.com/sells-group/outreach-cli/internal/outputs"
	"github.com/sells-group/outreach-cli/internal/store"
	"github.com/sells-group/outreach-cli/internal/workflow"
	anthropicpkg "github.com/sells-group/outreach-cli/pkg/anthropic"
	"github.com/sells-group/outreach-cli/pkg/gmail"
	"github.com/sells-group/outreach-cli/pkg/leadstore"
	"github.com/sells-group/outreach-cli/pkg/linkedin"
	"github.com/sells-group/outreach-cli/pkg/protect"
	"github.com/sells-group/outreach-cli/pkg/tavily"
)

// engineEnv bundles the workflow engine with the resources it owns.
type engineEnv struct {
	Engine *workflow.Engine
	Store  store.Store
}

func (e *engineEnv) Close() {
	if e.Store != nil {
		_ = e.Store.Close()
	}
}

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "outreach.db"
		}
		return store.NewSQLite(dsn)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, &store.PoolConfig{
			MaxConns: cfg.Store.MaxConns,
			MinConns: cfg.Store.MinConns,
		})
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

func initEngine(ctx context.Context) (*engineEnv, error) {
	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}

	gate := guardrail.NewGate(guardrail.Config{
		ProjectID:   cfg.Protect.ProjectID,
		StageID:     cfg.Protect.StageID,
		ProjectName: cfg.Protect.ProjectName,
		StageName:   cfg.Protect.StageName,
		StrictMode:  cfg.Protect.StrictMode,
	}, protect.NewClient(cfg.Protect.BaseURL, cfg.Protect.Key))
	// Init failure leaves the gate failing open; the workflow still runs.
	if err := gate.Init(ctx); err != nil {
		zap.L().Warn("guardrail init failed, validation disabled", zap.Error(err))
	}

	var tavilyOpts []tavily.Option
	if cfg.Tavily.BaseURL != "" {
		tavilyOpts = append(tavilyOpts, tavily.WithBaseURL(cfg.Tavily.BaseURL))
	}

	var gmailOpts []gmail.Option
	if cfg.Gmail.BaseURL != "" {
		gmailOpts = append(gmailOpts, gmail.WithBaseURL(cfg.Gmail.BaseURL))
	}

	var engineOpts []workflow.Option
	engineOpts = append(engineOpts, workflow.WithRunStore(st))
	if cfg.Workflow.ResearchPolicy == "skip_when_sufficient" {
		engineOpts = append(engineOpts, workflow.WithResearchPolicy(workflow.SkipWhenSufficient))
	}

	engine := workflow.New(
		workflow.Config{
			Model:       cfg.Anthropic.Model,
			MaxTokens:   cfg.Anthropic.MaxTokens,
			Temperature: cfg.Anthropic.Temperature,
		},
		leadstore.NewClient(cfg.LeadStore.BaseURL, cfg.LeadStore.Key),
		tavily.NewClient(cfg.Tavily.Key, tavilyOpts...),
		anthropicpkg.NewClient(cfg.Anthropic.Key),
		gate,
		gmail.NewClient(cfg.Gmail.Token, gmailOpts...),
		linkedin.NewClient(cfg.LinkedIn.QueueURL),
		outputs.NewDirWriter(cfg.Workflow.OutputDir),
		engineOpts...,
	)

	return &engineEnv{Engine: engine, Store: st}, nil
}
