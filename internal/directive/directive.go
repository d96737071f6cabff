// Package directive projects generic directives onto markup elements and
// recognises directive syntax in markdown produced after parsing.
package directive

import (
	"fmt"
	"regexp"

	"github.com/dgallion1/docweave/internal/doctree"
	"github.com/dgallion1/docweave/internal/metadata"
	"github.com/dgallion1/docweave/internal/parser"
)

// GetName is the inline directive that looks up a metadata key.
const GetName = "get"

// Project visits every directive pre-order. An inline `get` directive with a
// single text child is replaced by the metadata value it names (or the missing
// key diagnostic). Every other directive is tagged with its own name and
// attributes as render target. Project never fails.
func Project(root *doctree.Node, meta metadata.Mapping) {
	doctree.Walk(root, func(n, parent *doctree.Node, index int) doctree.WalkStatus {
		if !n.Kind.IsDirective() {
			return doctree.WalkContinue
		}
		if key, ok := getKey(n); ok {
			value := metadata.MissingKey(key)
			if v, found := meta.Lookup(key); found {
				value = metadata.Display(v)
			}
			doctree.Replace(parent, index, doctree.NewText(value))
			return doctree.WalkSkipChildren
		}
		n.Render = &doctree.Render{Tag: n.Name, Attrs: n.Attributes}
		return doctree.WalkContinue
	})
}

func getKey(n *doctree.Node) (string, bool) {
	if n.Kind != doctree.KindTextDirective || n.Name != GetName || len(n.Children) != 1 {
		return "", false
	}
	c := n.Children[0]
	if c.Kind != doctree.KindText {
		return "", false
	}
	return c.Value, true
}

var syntaxRe = regexp.MustCompile(`(?m)(^[ \t]{0,3}:{2,}[A-Za-z])|(:[A-Za-z][A-Za-z0-9_-]*[\[{])`)

// HasSyntax reports whether src may contain directive syntax.
func HasSyntax(src string) bool {
	return syntaxRe.MatchString(src)
}

// Recognize re-parses nodes whose Source still holds unrecognised markdown
// (script output) with directive syntax enabled, replaces their children with
// the result and clears Source. Newly recognised directives are projected
// against meta.
func Recognize(root *doctree.Node, fp parser.FragmentParser, meta metadata.Mapping) error {
	var err error
	doctree.Walk(root, func(n, parent *doctree.Node, index int) doctree.WalkStatus {
		if n.Source == "" {
			return doctree.WalkContinue
		}
		src := n.Source
		n.Source = ""
		if !HasSyntax(src) {
			return doctree.WalkSkipChildren
		}
		children, perr := fp.ParseFragmentDirectives(src)
		if perr != nil {
			err = fmt.Errorf("recognize directives: %w", perr)
			return doctree.WalkStop
		}
		holder := doctree.NewRoot(children...)
		Project(holder, meta)
		n.Children = holder.Children
		return doctree.WalkSkipChildren
	})
	return err
}
