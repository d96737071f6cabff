package directive

import (
	"testing"

	"github.com/dgallion1/docweave/internal/doctree"
	"github.com/dgallion1/docweave/internal/metadata"
	"github.com/dgallion1/docweave/internal/parser"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func getDirective(key string) *doctree.Node {
	return doctree.NewDirective(doctree.KindTextDirective, GetName, nil, doctree.NewText(key))
}

func TestProject_GetReplacesWithValue(t *testing.T) {
	p := &doctree.Node{Kind: doctree.KindParagraph, Children: []*doctree.Node{
		doctree.NewText("Hello "), getDirective("x"), doctree.NewText("!"),
	}}
	root := doctree.NewRoot(p)

	Project(root, metadata.Mapping{"x": "v"})

	require.Len(t, p.Children, 3)
	assert.Equal(t, doctree.KindText, p.Children[1].Kind)
	assert.Equal(t, "v", p.Children[1].Value)
	assert.Equal(t, "Hello v!", p.TextContent())
}

func TestProject_GetMissingKey(t *testing.T) {
	for _, key := range []string{"title", "user_name", "a b"} {
		root := doctree.NewRoot(&doctree.Node{Kind: doctree.KindParagraph, Children: []*doctree.Node{getDirective(key)}})
		Project(root, metadata.Mapping{})
		got := root.Children[0].Children[0]
		assert.Equal(t, doctree.KindText, got.Kind)
		assert.Equal(t, metadata.MissingKey(key), got.Value)
		assert.Contains(t, got.Value, key)
	}
}

func TestProject_GetDisplaysListsAndNull(t *testing.T) {
	root := doctree.NewRoot(&doctree.Node{Kind: doctree.KindParagraph, Children: []*doctree.Node{
		getDirective("words"), getDirective("nothing"),
	}})
	Project(root, metadata.Mapping{"words": []any{"dragon", "moon"}, "nothing": nil})
	assert.Equal(t, "dragon,moonnull", root.TextContent())
}

func TestProject_GenericDirectiveAnnotated(t *testing.T) {
	attrs := map[string]string{"class": "warn", "data-x": "<raw>"}
	box := doctree.NewDirective(doctree.KindContainerDirective, "aside", attrs, doctree.NewParagraph("inner"))
	root := doctree.NewRoot(box)

	Project(root, metadata.Mapping{})

	require.NotNil(t, box.Render)
	assert.Equal(t, "aside", box.Render.Tag)
	assert.Equal(t, attrs, box.Render.Attrs)
	assert.Same(t, box, root.Children[0], "generic directives are annotated in place")
}

func TestProject_GetWithoutSingleTextChildIsGeneric(t *testing.T) {
	emph := &doctree.Node{Kind: doctree.KindEmphasis, Level: 1, Children: []*doctree.Node{doctree.NewText("k")}}
	get := doctree.NewDirective(doctree.KindTextDirective, GetName, nil, emph)
	leafGet := doctree.NewDirective(doctree.KindLeafDirective, GetName, nil, doctree.NewText("k"))
	root := doctree.NewRoot(&doctree.Node{Kind: doctree.KindParagraph, Children: []*doctree.Node{get}}, leafGet)

	Project(root, metadata.Mapping{"k": "v"})

	require.NotNil(t, get.Render)
	assert.Equal(t, "get", get.Render.Tag)
	require.NotNil(t, leafGet.Render)
	assert.Equal(t, "get", leafGet.Render.Tag)
}

func TestProject_VisitsNestedDirectives(t *testing.T) {
	inner := &doctree.Node{Kind: doctree.KindParagraph, Children: []*doctree.Node{getDirective("n")}}
	outer := doctree.NewDirective(doctree.KindContainerDirective, "section", nil, inner)
	root := doctree.NewRoot(outer)

	Project(root, metadata.Mapping{"n": 3})

	assert.Equal(t, "section", outer.Render.Tag)
	assert.Equal(t, "3", inner.Children[0].Value)
}

func TestHasSyntax(t *testing.T) {
	assert.True(t, HasSyntax("see :get[x]"))
	assert.True(t, HasSyntax(":::note\nbody\n:::"))
	assert.True(t, HasSyntax("  ::video{src=a}"))
	assert.False(t, HasSyntax("time 10:30 and Note: plain"))
}

func TestRecognize(t *testing.T) {
	holder := doctree.NewDirective(doctree.KindContainerDirective, "div", nil)
	holder.Source = "Hi :get[name]\n\n:::box\ninside\n:::\n"
	plain := doctree.NewDirective(doctree.KindContainerDirective, "div", nil, doctree.NewParagraph("kept"))
	plain.Source = "kept"
	root := doctree.NewRoot(holder, plain)

	err := Recognize(root, parser.NewMarkdownParser(), metadata.Mapping{"name": "Ada"})
	require.NoError(t, err)

	assert.Empty(t, holder.Source)
	require.Len(t, holder.Children, 2)
	assert.Equal(t, "Hi Ada", holder.Children[0].TextContent())
	box := holder.Children[1]
	assert.Equal(t, doctree.KindContainerDirective, box.Kind)
	require.NotNil(t, box.Render)
	assert.Equal(t, "box", box.Render.Tag)

	assert.Empty(t, plain.Source)
	assert.Equal(t, "kept", plain.TextContent())
}
