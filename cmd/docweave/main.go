package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/dgallion1/docweave/internal/app"
	"github.com/dgallion1/docweave/internal/config"
)

var CLI struct {
	Verbose bool `short:"v" help:"Enable verbose logging"`

	Render struct {
		File   string `arg:"" help:"Markdown file to render" type:"existingfile"`
		Output string `short:"o" help:"Write HTML to this file instead of stdout"`
		Watch  bool   `short:"w" help:"Re-render whenever the file changes"`
	} `cmd:"" help:"Render a markdown document to HTML"`

	Cache struct {
		Stats struct{} `cmd:"" help:"Show the generation cache backend and entry count"`
	} `cmd:"" help:"Inspect the generation cache"`

	Serve struct {
		Port string `short:"p" help:"Port to listen on (overrides PORT)"`
	} `cmd:"" help:"Start the HTTP server"`
}

func main() {
	kctx := kong.Parse(&CLI,
		kong.Name("docweave"),
		kong.Description("Render extended markdown with metadata, scripts and generated stories."),
	)

	logLevel := slog.LevelInfo
	if CLI.Verbose {
		logLevel = slog.LevelDebug
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(log)

	cfg := config.Load()
	if CLI.Serve.Port != "" {
		cfg.Port = CLI.Serve.Port
	}
	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(cfg, log)
	if err != nil {
		log.Error("startup failed", "error", err)
		os.Exit(1)
	}
	defer a.Close()

	switch kctx.Command() {
	case "render <file>":
		err = runRender(ctx, a.Orchestrator, CLI.Render.File, CLI.Render.Output, CLI.Render.Watch, log)
	case "cache stats":
		err = runCacheStats(ctx, a, os.Stdout)
	case "serve":
		err = runServe(ctx, a, log)
	}
	if err != nil {
		log.Error("command failed", "command", kctx.Command(), "error", err)
		a.Close()
		os.Exit(1)
	}
}
