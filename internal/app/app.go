// Package app builds the rendering stack shared by the server and the CLI.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dgallion1/docweave/internal/cache"
	"github.com/dgallion1/docweave/internal/config"
	"github.com/dgallion1/docweave/internal/metrics"
	"github.com/dgallion1/docweave/internal/parser"
	"github.com/dgallion1/docweave/internal/pipeline"
	"github.com/dgallion1/docweave/internal/script"
	"github.com/dgallion1/docweave/internal/story"
	"github.com/dgallion1/docweave/internal/textgen"
	prom "github.com/prometheus/client_golang/prometheus"
)

// App holds the wired components.
type App struct {
	Config       config.Config
	Provider     string
	Registry     *prom.Registry
	Recorder     *metrics.Recorder
	Stats        *textgen.LLMStats
	Generator    textgen.Generator
	Cache        cache.Store
	Orchestrator *pipeline.Orchestrator

	closers []func()
	log     *slog.Logger
}

// New builds every component from cfg.
func New(cfg config.Config, log *slog.Logger) (*App, error) {
	if log == nil {
		log = slog.Default()
	}
	a := &App{Config: cfg, Provider: cfg.Provider(), log: log}

	a.Registry = prom.NewRegistry()
	a.Recorder = metrics.NewRecorder(a.Registry)
	a.Stats = textgen.NewLLMStats(cfg.LLMStatsWindow)

	store, err := cache.Open(cfg.CacheBackend, cfg.CachePath, log.With("component", "cache"))
	if err != nil {
		return nil, fmt.Errorf("open cache: %w", err)
	}
	a.Cache = store

	var base textgen.Generator
	switch a.Provider {
	case config.ProviderOpenAI:
		c := textgen.NewOpenAIClient(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL)
		a.closers = append(a.closers, c.Close)
		base = c
	case config.ProviderAnthropic:
		c := textgen.NewAnthropicClient(cfg.AnthropicAPIKey)
		a.closers = append(a.closers, c.Close)
		base = c
	case config.ProviderNone:
		log.Warn("no text generation provider configured; generated content will show the failure text")
		base = textgen.Disabled{}
	default:
		store.Close()
		return nil, fmt.Errorf("unknown generator provider %q", a.Provider)
	}
	a.Generator = textgen.NewRetrying(base, cfg.GenerateMaxRetries, log.With("component", "textgen"),
		textgen.WithStats(a.Stats),
		textgen.WithObserver(a.Recorder),
	)

	p := parser.NewMarkdownParser()
	bridge := script.NewBridge(p, cfg.ScriptTimeout, log.With("component", "script"))
	engine := story.NewEngine(a.Generator, store, story.Config{
		StoryModel:    cfg.StoryModel,
		RewriteModel:  cfg.RewriteModel,
		MaxConcurrent: cfg.MaxConcurrentGen,
	}, a.Recorder, log.With("component", "story"))
	a.Orchestrator = pipeline.NewOrchestrator(p, bridge, engine, a.Recorder, cfg.RenderTimeout, log.With("component", "pipeline"))

	log.Info("renderer ready",
		"provider", a.Provider,
		"story_model", cfg.StoryModel,
		"cache_backend", cfg.CacheBackend,
		"cache_entries", store.Len(context.Background()),
	)
	return a, nil
}

// Close releases provider connections and the cache.
func (a *App) Close() error {
	for _, c := range a.closers {
		c()
	}
	return a.Cache.Close()
}
