package doctree

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sample() *Node {
	return NewRoot(
		NewParagraph("one"),
		NewDirective(KindContainerDirective, "box", nil,
			NewParagraph("inner"),
			NewDirective(KindLeafDirective, "leaf", nil, NewText("label")),
		),
		NewParagraph("three"),
	)
}

func TestWalk_PreOrder(t *testing.T) {
	var seen []string
	Walk(sample(), func(n, parent *Node, index int) WalkStatus {
		label := n.Kind.String()
		if n.Kind.IsDirective() {
			label += ":" + n.Name
		}
		if n.Kind == KindText {
			label += ":" + n.Value
		}
		seen = append(seen, label)
		return WalkContinue
	})

	want := []string{
		"paragraph", "text:one",
		"containerDirective:box", "paragraph", "text:inner", "leafDirective:leaf", "text:label",
		"paragraph", "text:three",
	}
	assert.Equal(t, want, seen)
}

func TestWalk_SkipChildrenAndStop(t *testing.T) {
	var skipped []string
	Walk(sample(), func(n, parent *Node, index int) WalkStatus {
		skipped = append(skipped, n.Kind.String())
		if n.Kind == KindContainerDirective {
			return WalkSkipChildren
		}
		return WalkContinue
	})
	assert.NotContains(t, skipped, "leafDirective")

	count := 0
	Walk(sample(), func(n, parent *Node, index int) WalkStatus {
		count++
		if n.Kind == KindContainerDirective {
			return WalkStop
		}
		return WalkContinue
	})
	assert.Equal(t, 3, count)
}

func TestWalk_DescendsIntoReplacement(t *testing.T) {
	root := NewRoot(NewDirective(KindTextDirective, "get", nil, NewText("k")))
	var texts []string
	Walk(root, func(n, parent *Node, index int) WalkStatus {
		if n.Kind == KindTextDirective {
			Replace(parent, index, &Node{Kind: KindEmphasis, Level: 1, Children: []*Node{NewText("swapped")}})
			return WalkContinue
		}
		if n.Kind == KindText {
			texts = append(texts, n.Value)
		}
		return WalkContinue
	})
	assert.Equal(t, []string{"swapped"}, texts)
}

func TestSplice(t *testing.T) {
	root := sample()
	Splice(root, 1, NewParagraph("a"), NewParagraph("b"))
	require.Len(t, root.Children, 4)
	assert.Equal(t, "one", root.Children[0].TextContent())
	assert.Equal(t, "a", root.Children[1].TextContent())
	assert.Equal(t, "b", root.Children[2].TextContent())
	assert.Equal(t, "three", root.Children[3].TextContent())

	Splice(root, 9, NewParagraph("ignored"))
	assert.Len(t, root.Children, 4)
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "code", KindCodeBlock.String())
	assert.Equal(t, "unknown", Kind(99).String())
	assert.True(t, KindTextDirective.IsDirective())
	assert.False(t, KindParagraph.IsDirective())
}
