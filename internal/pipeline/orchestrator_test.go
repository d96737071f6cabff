package pipeline

import (
	"context"
	"errors"
	"math/rand"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dgallion1/docweave/internal/cache"
	"github.com/dgallion1/docweave/internal/doctree"
	"github.com/dgallion1/docweave/internal/parser"
	"github.com/dgallion1/docweave/internal/script"
	"github.com/dgallion1/docweave/internal/story"
	"github.com/dgallion1/docweave/internal/textgen"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type topicGenerator struct {
	calls atomic.Int32
}

// Generate echoes the topic back as a one-sentence story after a random delay.
func (g *topicGenerator) Generate(ctx context.Context, req textgen.Request) (string, error) {
	g.calls.Add(1)
	time.Sleep(time.Duration(rand.Intn(15)) * time.Millisecond)
	_, after, ok := strings.Cut(req.Prompt, "The story should be about: ")
	if !ok {
		return "", errors.New("no topic")
	}
	topic, _, _ := strings.Cut(after, ".\n")
	return "Story of " + topic + ".", nil
}

func newTestOrchestrator(gen textgen.Generator, store cache.Store) *Orchestrator {
	p := parser.NewMarkdownParser()
	engine := story.NewEngine(gen, store, story.Config{StoryModel: "s", RewriteModel: "r", MaxConcurrent: 3}, nil, nil)
	return NewOrchestrator(p, script.NewBridge(p, time.Second, nil), engine, nil, 0, nil)
}

func renderDoc(t *testing.T, o *Orchestrator, src string) string {
	t.Helper()
	out, err := o.Render(context.Background(), src)
	require.NoError(t, err)
	return out
}

func TestRender_GetDirective(t *testing.T) {
	o := newTestOrchestrator(textgen.Disabled{}, cache.NewMemoryStore())
	assert.Equal(t, "<p>Hello v!</p>", renderDoc(t, o, "---\nx: v\n---\nHello :get[x]!\n"))

	out := renderDoc(t, o, "Title: :get[title]")
	assert.Contains(t, out, "Error: Metadata key")
	assert.Contains(t, out, "title")
	assert.Contains(t, out, "not found")
}

func TestRender_DirectiveLabels(t *testing.T) {
	o := newTestOrchestrator(textgen.Disabled{}, cache.NewMemoryStore())
	assert.Equal(t, `<p>A <abbr title="x"><em>HTML</em></abbr> here</p>`, renderDoc(t, o, "A :abbr[*HTML*]{title=x} here"))
	assert.Equal(t, "<p>A <span>see v</span> here</p>", renderDoc(t, o, "---\nx: v\n---\nA :span[see :get[x]] here\n"))
}

func TestRender_GenericDirectives(t *testing.T) {
	o := newTestOrchestrator(textgen.Disabled{}, cache.NewMemoryStore())
	out := renderDoc(t, o, ":::aside{.note #side}\nInside\n:::\n")
	assert.Equal(t, `<aside class="note" id="side"><p>Inside</p></aside>`, out)
}

func TestRender_LuaBlock(t *testing.T) {
	o := newTestOrchestrator(textgen.Disabled{}, cache.NewMemoryStore())
	src := "---\nname: Ada\n---\n```lua\nprint(\"**\" .. input.name .. \"**\")\n```\n"
	assert.Equal(t, "<div><p><strong>Ada</strong></p></div>", renderDoc(t, o, src))
}

func TestRender_LuaDeterministic(t *testing.T) {
	o := newTestOrchestrator(textgen.Disabled{}, cache.NewMemoryStore())
	src := "---\nb: 2\na: 1\n---\n```lua\nfor k, v in pairs(input) do print(k, v) end\n```\n"
	assert.Equal(t, renderDoc(t, o, src), renderDoc(t, o, src))
}

func TestRender_LuaCompileErrorDoesNotAbort(t *testing.T) {
	o := newTestOrchestrator(textgen.Disabled{}, cache.NewMemoryStore())
	out := renderDoc(t, o, "before\n\n```lua\nprint(\n```\n\nafter\n")
	assert.Contains(t, out, "Lua Error:")
	assert.True(t, strings.HasPrefix(out, "<p>before</p>"))
	assert.True(t, strings.HasSuffix(out, "<p>after</p>"))
}

func TestRender_LuaOutputDirectivesAreRecognized(t *testing.T) {
	o := newTestOrchestrator(textgen.Disabled{}, cache.NewMemoryStore())
	src := "---\nwho: Sam\n---\n```lua\nprint(\":::note\")\nprint(\"hi :get[who]\")\nprint(\":::\")\n```\n"
	assert.Equal(t, "<div><note><p>hi Sam</p></note></div>", renderDoc(t, o, src))
}

func TestRender_StoriesKeepDocumentOrder(t *testing.T) {
	gen := &topicGenerator{}
	o := newTestOrchestrator(gen, cache.NewMemoryStore())
	src := "First.\n\n::generate_story[alpha]\n\nSecond.\n\n::generate_story[beta]{style=\"big bold\"}\n\nThird.\n\n::generate_story[gamma]\n"

	out := renderDoc(t, o, src)

	want := []string{
		"<p>First.</p>",
		`<div class="generated-story"><p>Story of alpha.(3)</p></div>`,
		"<p>Second.</p>",
		`<div class="generated-story big bold"><p>Story of beta.(3)</p></div>`,
		"<p>Third.</p>",
		`<div class="generated-story"><p>Story of gamma.(3)</p></div>`,
	}
	assert.Equal(t, strings.Join(want, "\n"), out)
	assert.Equal(t, int32(3), gen.calls.Load())
}

func TestRender_GenerationIsCachedAcrossRuns(t *testing.T) {
	gen := &topicGenerator{}
	o := newTestOrchestrator(gen, cache.NewMemoryStore())
	src := "::generate_story[a picnic]\n"

	first := renderDoc(t, o, src)
	second := renderDoc(t, o, src)
	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), gen.calls.Load())
}

func TestRender_GenerationFailureIsContent(t *testing.T) {
	o := newTestOrchestrator(textgen.Disabled{}, cache.NewMemoryStore())
	out := renderDoc(t, o, "::generate_story\n")
	assert.Contains(t, out, story.FailureText)
}

func TestRender_EmptyDocument(t *testing.T) {
	o := newTestOrchestrator(textgen.Disabled{}, cache.NewMemoryStore())
	assert.Equal(t, "", renderDoc(t, o, ""))
}

func TestRender_CancelledContextAborts(t *testing.T) {
	o := newTestOrchestrator(textgen.Disabled{}, cache.NewMemoryStore())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	out, err := o.Render(ctx, "text")
	assert.ErrorIs(t, err, ErrStage)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, out)
}

type panickingParser struct {
	*parser.MarkdownParser
}

func (panickingParser) Parse(string) (*doctree.Node, error) { panic("parser blew up") }

func TestRender_ParserPanicIsStageError(t *testing.T) {
	p := panickingParser{parser.NewMarkdownParser()}
	engine := story.NewEngine(textgen.Disabled{}, cache.NewMemoryStore(), story.Config{}, nil, nil)
	o := NewOrchestrator(p, script.NewBridge(p, 0, nil), engine, nil, 0, nil)

	out, err := o.Render(context.Background(), "text")
	assert.ErrorIs(t, err, ErrStage)
	assert.Contains(t, err.Error(), StageParse)
	assert.Empty(t, out)
}

func TestRunStage_RecoversPanic(t *testing.T) {
	o := newTestOrchestrator(textgen.Disabled{}, cache.NewMemoryStore())
	err := o.runStage(o.log, "boom", func() error { panic("kaboom") })
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrStage)
	assert.Contains(t, err.Error(), "kaboom")
}
