package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/dgallion1/docweave/internal/directive"
	"github.com/dgallion1/docweave/internal/doctree"
	"github.com/dgallion1/docweave/internal/metadata"
	"github.com/dgallion1/docweave/internal/parser"
	"github.com/dgallion1/docweave/internal/render"
	"github.com/dgallion1/docweave/internal/script"
	"github.com/dgallion1/docweave/internal/story"
	"github.com/google/uuid"
)

// ErrStage wraps every error that aborts a run.
var ErrStage = errors.New("pipeline stage failed")

// Stage names, in execution order.
const (
	StageParse     = "parse"
	StageProject   = "project"
	StageScripts   = "scripts"
	StageRecognize = "recognize"
	StageGenerate  = "generate"
	StageRender    = "render"
)

// Recorder receives per-stage timings and run outcomes.
type Recorder interface {
	ObserveStage(stage string, d time.Duration)
	IncRender(err error)
}

// Orchestrator runs one document through every transform in a fixed order.
type Orchestrator struct {
	parser  parser.Parser
	scripts *script.Bridge
	stories *story.Engine
	rec     Recorder
	timeout time.Duration
	log     *slog.Logger
}

// NewOrchestrator wires the pipeline. rec may be nil; timeout <= 0 leaves the
// caller's deadline in charge.
func NewOrchestrator(p parser.Parser, scripts *script.Bridge, stories *story.Engine, rec Recorder, timeout time.Duration, log *slog.Logger) *Orchestrator {
	if log == nil {
		log = slog.Default()
	}
	return &Orchestrator{parser: p, scripts: scripts, stories: stories, rec: rec, timeout: timeout, log: log}
}

// Render converts src to HTML. Content problems (missing keys, script errors,
// generation failures) end up in the output; only a stage failure, a panic or
// an expired deadline returns an error, and then no markup is returned.
func (o *Orchestrator) Render(ctx context.Context, src string) (out string, err error) {
	if o.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}
	log := o.log.With("run_id", uuid.NewString())
	start := time.Now()
	defer func() {
		if o.rec != nil {
			o.rec.IncRender(err)
		}
		if err != nil {
			log.Error("render failed", "error", err, "elapsed", time.Since(start))
			return
		}
		log.Info("render complete", "bytes_in", len(src), "bytes_out", len(out), "elapsed", time.Since(start))
	}()

	var root *doctree.Node
	stages := []struct {
		name string
		run  func() error
	}{
		{StageParse, func() error {
			var perr error
			root, perr = o.parser.Parse(src)
			return perr
		}},
		{StageProject, func() error {
			directive.Project(root, o.deriveMetadata(root, log))
			return nil
		}},
		{StageScripts, func() error {
			return o.scripts.Transform(ctx, root, o.deriveMetadata(root, log))
		}},
		{StageRecognize, func() error {
			return directive.Recognize(root, o.parser, o.deriveMetadata(root, log))
		}},
		{StageGenerate, func() error {
			o.stories.Transform(ctx, root, o.deriveMetadata(root, log))
			return nil
		}},
		{StageRender, func() error {
			var rerr error
			out, rerr = render.HTML(root)
			return rerr
		}},
	}

	for _, s := range stages {
		if cerr := ctx.Err(); cerr != nil {
			return "", fmt.Errorf("%w: %s: %w", ErrStage, s.name, cerr)
		}
		if serr := o.runStage(log, s.name, s.run); serr != nil {
			return "", serr
		}
	}
	return out, nil
}

// runStage times one stage and turns a panic into a stage error.
func (o *Orchestrator) runStage(log *slog.Logger, name string, run func() error) (err error) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			log.Error("stage panicked", "stage", name, "panic", fmt.Sprint(r), "stack", string(debug.Stack()))
			err = fmt.Errorf("%w: %s: panic: %v", ErrStage, name, r)
		}
		elapsed := time.Since(start)
		if o.rec != nil {
			o.rec.ObserveStage(name, elapsed)
		}
		log.Debug("stage done", "stage", name, "elapsed", elapsed)
	}()
	if err := run(); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrStage, name, err)
	}
	return nil
}

// deriveMetadata derives the mapping afresh for each stage that needs it.
func (o *Orchestrator) deriveMetadata(root *doctree.Node, log *slog.Logger) metadata.Mapping {
	meta, err := metadata.FromTree(root)
	if err != nil {
		log.Warn("front matter ignored", "error", err)
	}
	log.Debug("metadata derived", "keys", meta.Keys())
	return meta
}
