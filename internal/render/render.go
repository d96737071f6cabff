// Package render lowers a doctree to golang.org/x/net/html nodes and
// serialises them.
package render

import (
	"bytes"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/dgallion1/docweave/internal/doctree"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// HTML renders the tree below root as markup. Front matter is not rendered.
func HTML(root *doctree.Node) (string, error) {
	var buf bytes.Buffer
	for _, n := range Lower(root) {
		if err := html.Render(&buf, n); err != nil {
			return "", fmt.Errorf("render html: %w", err)
		}
	}
	return buf.String(), nil
}

// Lower converts root's children into a list of sibling markup nodes.
func Lower(root *doctree.Node) []*html.Node {
	holder := &html.Node{Type: html.DocumentNode}
	lowerChildren(holder, root.Children)
	var out []*html.Node
	for c := holder.FirstChild; c != nil; {
		next := c.NextSibling
		holder.RemoveChild(c)
		out = append(out, c)
		c = next
	}
	return out
}

func lowerChildren(parent *html.Node, children []*doctree.Node) {
	var prev *doctree.Node
	for _, c := range children {
		if c.Kind == doctree.KindFrontMatter {
			continue
		}
		if prev != nil && isBlock(prev) && isBlock(c) {
			parent.AppendChild(text("\n"))
		}
		if n := lower(c); n != nil {
			parent.AppendChild(n)
		}
		prev = c
	}
}

func isBlock(n *doctree.Node) bool {
	switch n.Kind {
	case doctree.KindParagraph, doctree.KindHeading, doctree.KindBlockquote, doctree.KindList,
		doctree.KindListItem, doctree.KindThematicBreak, doctree.KindCodeBlock,
		doctree.KindContainerDirective, doctree.KindLeafDirective:
		return true
	}
	return false
}

func lower(n *doctree.Node) *html.Node {
	switch n.Kind {
	case doctree.KindText:
		return text(n.Value)
	case doctree.KindRaw:
		return &html.Node{Type: html.RawNode, Data: n.Value}
	case doctree.KindParagraph:
		return element("p", nil, n.Children)
	case doctree.KindHeading:
		level := min(max(n.Level, 1), 6)
		return element("h"+strconv.Itoa(level), nil, n.Children)
	case doctree.KindBlockquote:
		return element("blockquote", nil, n.Children)
	case doctree.KindList:
		if !n.Ordered {
			return element("ul", nil, n.Children)
		}
		var attrs []html.Attribute
		if n.Start != 0 && n.Start != 1 {
			attrs = append(attrs, html.Attribute{Key: "start", Val: strconv.Itoa(n.Start)})
		}
		return element("ol", attrs, n.Children)
	case doctree.KindListItem:
		return element("li", nil, n.Children)
	case doctree.KindThematicBreak:
		return element("hr", nil, nil)
	case doctree.KindCodeBlock:
		var attrs []html.Attribute
		if n.Lang != "" {
			attrs = append(attrs, html.Attribute{Key: "class", Val: "language-" + n.Lang})
		}
		code := element("code", attrs, nil)
		code.AppendChild(text(n.Value))
		pre := element("pre", nil, nil)
		pre.AppendChild(code)
		return pre
	case doctree.KindEmphasis:
		tag := "em"
		if n.Level >= 2 {
			tag = "strong"
		}
		return element(tag, nil, n.Children)
	case doctree.KindDelete:
		return element("del", nil, n.Children)
	case doctree.KindCodeSpan:
		code := element("code", nil, nil)
		code.AppendChild(text(n.Value))
		return code
	case doctree.KindLink:
		attrs := []html.Attribute{{Key: "href", Val: n.Destination}}
		if n.Title != "" {
			attrs = append(attrs, html.Attribute{Key: "title", Val: n.Title})
		}
		return element("a", attrs, n.Children)
	case doctree.KindImage:
		attrs := []html.Attribute{{Key: "src", Val: n.Destination}, {Key: "alt", Val: n.Value}}
		if n.Title != "" {
			attrs = append(attrs, html.Attribute{Key: "title", Val: n.Title})
		}
		return element("img", attrs, nil)
	case doctree.KindBreak:
		return element("br", nil, nil)
	case doctree.KindContainerDirective, doctree.KindLeafDirective, doctree.KindTextDirective:
		return directive(n)
	}
	return nil
}

// directive lowers a directive to its render target, or to an element named
// after the directive when none was assigned.
func directive(n *doctree.Node) *html.Node {
	tag, attrs, classes := n.Name, n.Attributes, []string(nil)
	if n.Render != nil {
		tag, attrs, classes = n.Render.Tag, n.Render.Attrs, n.Render.Classes
	}
	if !validName(tag) {
		tag = "div"
	}
	return element(strings.ToLower(tag), attributes(attrs, classes), n.Children)
}

// attributes sorts keys, drops names that cannot be serialised and merges
// classes into the class attribute.
func attributes(attrs map[string]string, classes []string) []html.Attribute {
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		if validName(k) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	out := make([]html.Attribute, 0, len(keys)+1)
	classDone := false
	for _, k := range keys {
		v := attrs[k]
		if k == "class" {
			v = strings.TrimSpace(strings.Join(append(strings.Fields(v), classes...), " "))
			classDone = true
		}
		out = append(out, html.Attribute{Key: k, Val: v})
	}
	if !classDone && len(classes) > 0 {
		out = append(out, html.Attribute{Key: "class", Val: strings.Join(classes, " ")})
		sort.SliceStable(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	}
	return out
}

// validName accepts names that html.Render can emit verbatim.
func validName(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		switch {
		case r <= ' ', r == '"', r == '\'', r == '>', r == '<', r == '/', r == '=', r == 0x7f:
			return false
		}
	}
	return true
}

func element(tag string, attrs []html.Attribute, children []*doctree.Node) *html.Node {
	a := atom.Lookup([]byte(tag))
	n := &html.Node{Type: html.ElementNode, Data: tag, DataAtom: a, Attr: attrs}
	if isVoid(a) {
		// Void elements cannot hold content.
		return n
	}
	lowerChildren(n, children)
	return n
}

func isVoid(a atom.Atom) bool {
	switch a {
	case atom.Area, atom.Base, atom.Br, atom.Col, atom.Embed, atom.Hr, atom.Img, atom.Input,
		atom.Link, atom.Meta, atom.Param, atom.Source, atom.Track, atom.Wbr:
		return true
	}
	return false
}

func text(s string) *html.Node {
	return &html.Node{Type: html.TextNode, Data: s}
}
