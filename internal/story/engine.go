// Package story generates prose for generate_story directives, enforces
// required vocabulary on it and splices the annotated result into the tree.
package story

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dgallion1/docweave/internal/cache"
	"github.com/dgallion1/docweave/internal/doctree"
	"github.com/dgallion1/docweave/internal/metadata"
	"github.com/dgallion1/docweave/internal/textgen"
)

// FailureText replaces a story that could not be generated. It is never cached.
const FailureText = "Error generating story due to API failure."

// ContainerTag is the element generated content renders as.
const ContainerTag = "div"

// Cache operation labels reported to the Observer.
const (
	OpStory   = "story"
	OpRewrite = "rewrite"
)

// Observer is told about cache lookups.
type Observer interface {
	ObserveCache(op string, hit bool)
}

// Config holds the engine's models and concurrency.
type Config struct {
	StoryModel    string
	RewriteModel  string
	MaxConcurrent int
}

// Engine produces generated content through a Generator and a cache Store.
type Engine struct {
	gen   textgen.Generator
	store cache.Store
	cfg   Config
	obs   Observer
	log   *slog.Logger
}

// NewEngine wires an engine. obs may be nil.
func NewEngine(gen textgen.Generator, store cache.Store, cfg Config, obs Observer, log *slog.Logger) *Engine {
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 1
	}
	if log == nil {
		log = slog.Default()
	}
	return &Engine{gen: gen, store: store, cfg: cfg, obs: obs, log: log}
}

type site struct {
	parent *doctree.Node
	index  int
	node   *doctree.Node
}

// Transform finds every generate_story directive, generates their
// replacements concurrently and, once all have settled, splices each one in at
// its original position. A failing directive falls back to FailureText and
// never affects its siblings.
func (e *Engine) Transform(ctx context.Context, root *doctree.Node, meta metadata.Mapping) {
	var sites []site
	doctree.Walk(root, func(n, parent *doctree.Node, index int) doctree.WalkStatus {
		if n.Kind.IsDirective() && n.Name == DirectiveName {
			sites = append(sites, site{parent: parent, index: index, node: n})
		}
		return doctree.WalkContinue
	})
	if len(sites) == 0 {
		return
	}
	e.log.Debug("generating stories", "count", len(sites))

	type result struct {
		idx  int
		node *doctree.Node
	}
	results := make(chan result, len(sites))
	sem := make(chan struct{}, e.cfg.MaxConcurrent)

	for i, s := range sites {
		sem <- struct{}{}
		go func(i int, n *doctree.Node) {
			defer func() { <-sem }()
			defer func() {
				if r := recover(); r != nil {
					e.log.Error("story generation panicked", "directive", i, "panic", fmt.Sprint(r))
					results <- result{idx: i, node: e.replacement(n, Resolve(n, meta), FailureText)}
				}
			}()
			results <- result{idx: i, node: e.build(ctx, n, meta)}
		}(i, s.node)
	}

	replacements := make([]*doctree.Node, len(sites))
	for range sites {
		r := <-results
		replacements[r.idx] = r.node
	}

	for i, s := range sites {
		doctree.Splice(s.parent, s.index, replacements[i])
	}
}

func (e *Engine) build(ctx context.Context, n *doctree.Node, meta metadata.Mapping) *doctree.Node {
	spec := Resolve(n, meta)
	text, ok := e.Story(ctx, spec.Topic, spec.Params)
	// The failure sentence is shown as is; rewriting it would cache derived failure text.
	if ok && len(spec.RequiredWords) > 0 {
		text = e.Validate(ctx, text, spec.RequiredWords)
	}
	return e.replacement(n, spec, text)
}

// replacement keeps the directive's kind, name and attributes and renders it
// as a classed container of annotated paragraphs.
func (e *Engine) replacement(n *doctree.Node, spec Spec, text string) *doctree.Node {
	attrs := make(map[string]string, len(n.Attributes))
	for k, v := range n.Attributes {
		attrs[k] = v
	}
	var children []*doctree.Node
	for _, p := range SplitParagraphs(AnnotateWordCount(text)) {
		children = append(children, doctree.NewParagraph(p))
	}
	out := doctree.NewDirective(n.Kind, n.Name, attrs, children...)
	out.Render = &doctree.Render{Tag: ContainerTag, Classes: spec.Classes}
	return out
}

// Story returns the text for topic and p from the cache or a generation call.
// ok is false when generation failed and FailureText is returned.
func (e *Engine) Story(ctx context.Context, topic string, p Params) (text string, ok bool) {
	key := StoryKey(topic, p)
	if v, hit := e.store.Get(ctx, key); hit {
		e.observe(OpStory, true)
		return v, true
	}
	e.observe(OpStory, false)

	out, err := e.gen.Generate(ctx, textgen.Request{Model: e.cfg.StoryModel, Prompt: StoryPrompt(topic, p)})
	if err == nil && strings.TrimSpace(out) == "" {
		err = fmt.Errorf("empty completion")
	}
	if err != nil {
		e.log.Warn("story generation failed", "topic", topic, "error", err)
		return FailureText, false
	}
	if err := e.store.Set(ctx, key, out); err != nil {
		e.log.Warn("cache write failed", "op", OpStory, "error", err)
	}
	return out, true
}

// Validate makes sure text contains every required word. When some are
// missing it asks for a single rewrite and caches whatever comes back, even if
// the rewrite still misses words. A failed rewrite keeps text and is not cached.
func (e *Engine) Validate(ctx context.Context, text string, words []string) string {
	key := RewriteKey(text, words)
	if v, hit := e.store.Get(ctx, key); hit {
		e.observe(OpRewrite, true)
		return v
	}
	e.observe(OpRewrite, false)

	missing := Missing(text, words)
	if len(missing) == 0 {
		if err := e.store.Set(ctx, key, text); err != nil {
			e.log.Warn("cache write failed", "op", OpRewrite, "error", err)
		}
		return text
	}

	out, err := e.gen.Generate(ctx, textgen.Request{Model: e.cfg.RewriteModel, Prompt: RewritePrompt(text, missing)})
	if err != nil {
		e.log.Warn("rewrite failed", "missing", missing, "error", err)
		return text
	}
	out = strings.TrimSpace(out)
	if out == "" {
		out = text
	}
	if err := e.store.Set(ctx, key, out); err != nil {
		e.log.Warn("cache write failed", "op", OpRewrite, "error", err)
	}
	return out
}

func (e *Engine) observe(op string, hit bool) {
	if e.obs != nil {
		e.obs.ObserveCache(op, hit)
	}
}
