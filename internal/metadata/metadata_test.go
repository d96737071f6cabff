package metadata

import (
	"testing"

	"github.com/dgallion1/docweave/internal/doctree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_Values(t *testing.T) {
	m, err := Parse("title: Hello\nage: 7\nratio: 1.5\ndone: true\nwords: [dragon, moon]\nnested:\n  a: 1\nempty:\n")
	require.NoError(t, err)

	assert.Equal(t, "Hello", m["title"])
	assert.Equal(t, 7, m["age"])
	assert.Equal(t, 1.5, m["ratio"])
	assert.Equal(t, true, m["done"])
	assert.Equal(t, []any{"dragon", "moon"}, m["words"])
	assert.Equal(t, map[string]any{"a": 1}, m["nested"])

	v, ok := m.Lookup("empty")
	assert.True(t, ok)
	assert.Nil(t, v)
}

func TestParse_EmptyAndNonMapping(t *testing.T) {
	m, err := Parse("   ")
	require.NoError(t, err)
	assert.Empty(t, m)

	m, err = Parse("- just\n- a list\n")
	require.NoError(t, err)
	assert.Empty(t, m)
}

func TestParse_Invalid(t *testing.T) {
	m, err := Parse("key: [unclosed")
	assert.Error(t, err)
	assert.NotNil(t, m)
	assert.Empty(t, m)
}

func TestFromTree(t *testing.T) {
	root := doctree.NewRoot(
		&doctree.Node{Kind: doctree.KindFrontMatter, Value: "user_name: Sam"},
		doctree.NewParagraph("body"),
	)
	m, err := FromTree(root)
	require.NoError(t, err)
	assert.Equal(t, "Sam", m.String("user_name"))

	// Front matter only counts as the first child.
	root = doctree.NewRoot(
		doctree.NewParagraph("body"),
		&doctree.Node{Kind: doctree.KindFrontMatter, Value: "user_name: Sam"},
	)
	m, err = FromTree(root)
	require.NoError(t, err)
	assert.Empty(t, m)

	m, err = FromTree(doctree.NewRoot())
	require.NoError(t, err)
	assert.Empty(t, m)
}

func TestDisplay(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{nil, "null"},
		{"v", "v"},
		{true, "true"},
		{42, "42"},
		{2.0, "2"},
		{0.25, "0.25"},
		{[]any{"a", 1, nil, true}, "a,1,,true"},
		{[]any{[]any{"x", "y"}, "z"}, "x,y,z"},
		{map[string]any{"b": 1, "a": "x"}, `{"a":"x","b":1}`},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Display(tt.in), "Display(%#v)", tt.in)
	}
}

func TestDisplay_MappingsRenderAsJSON(t *testing.T) {
	m, err := Parse("hero:\n  name: Ada\n  tags: [brave, <b>bold</b>]\nlist:\n  - {a: 1}\n  - x\n")
	require.NoError(t, err)

	assert.Equal(t, `{"name":"Ada","tags":["brave","<b>bold</b>"]}`, m.String("hero"))
	assert.Equal(t, `{"a":1},x`, m.String("list"))
}

func TestMissingKey(t *testing.T) {
	assert.Equal(t, `Error: Metadata key "colour" not found`, MissingKey("colour"))
}

func TestKeysSorted(t *testing.T) {
	m := Mapping{"b": 1, "a": 2, "c": 3}
	assert.Equal(t, []string{"a", "b", "c"}, m.Keys())
}
