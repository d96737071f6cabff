package parser

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/dgallion1/docweave/internal/doctree"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	extast "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"
)

// MarkdownParser turns markdown source into a doctree using goldmark.
//
// Two goldmark instances are kept: one that understands directive syntax and
// one that does not. Script output goes through the plain one so that its
// directives survive until the recognition pass.
type MarkdownParser struct {
	full  goldmark.Markdown
	plain goldmark.Markdown
}

// NewMarkdownParser returns a parser with GFM enabled.
func NewMarkdownParser() *MarkdownParser {
	return &MarkdownParser{
		full: goldmark.New(
			goldmark.WithExtensions(extension.GFM, Directives),
			goldmark.WithRendererOptions(html.WithUnsafe()),
		),
		plain: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithRendererOptions(html.WithUnsafe()),
		),
	}
}

// Parse converts a whole document. A leading `---` block becomes a
// front-matter node as the root's first child.
func (p *MarkdownParser) Parse(src string) (*doctree.Node, error) {
	src = normalizeLineEndings(src)
	root := doctree.NewRoot()
	front, body, ok := splitFrontMatter(src)
	if ok {
		root.Children = append(root.Children, &doctree.Node{Kind: doctree.KindFrontMatter, Value: front})
	}
	children, err := p.convert(p.full, body)
	if err != nil {
		return nil, err
	}
	root.Children = append(root.Children, children...)
	return root, nil
}

// ParseFragment converts markdown without directive syntax or front matter.
func (p *MarkdownParser) ParseFragment(src string) ([]*doctree.Node, error) {
	return p.convert(p.plain, normalizeLineEndings(src))
}

// ParseFragmentDirectives converts markdown with directive syntax but no front matter.
func (p *MarkdownParser) ParseFragmentDirectives(src string) ([]*doctree.Node, error) {
	return p.convert(p.full, normalizeLineEndings(src))
}

func (p *MarkdownParser) convert(md goldmark.Markdown, src string) (nodes []*doctree.Node, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("parse markdown: %v", r)
		}
	}()
	source := []byte(src)
	doc := md.Parser().Parse(text.NewReader(source))
	c := &converter{md: md, src: source}
	nodes = c.children(doc)
	return nodes, c.err
}

type converter struct {
	md  goldmark.Markdown
	src []byte
	err error
}

func (c *converter) children(n ast.Node) []*doctree.Node {
	var out []*doctree.Node
	for ch := n.FirstChild(); ch != nil; ch = ch.NextSibling() {
		for _, conv := range c.node(ch) {
			// Adjacent text runs are merged so that `:get[key]` style lookups
			// see one text child.
			if conv.Kind == doctree.KindText && len(out) > 0 && out[len(out)-1].Kind == doctree.KindText {
				out[len(out)-1].Value += conv.Value
				continue
			}
			out = append(out, conv)
		}
	}
	return out
}

func (c *converter) node(n ast.Node) []*doctree.Node {
	switch v := n.(type) {
	case *ast.Paragraph:
		return one(&doctree.Node{Kind: doctree.KindParagraph, Children: c.children(v)})
	case *ast.TextBlock:
		// Tight list items carry their inline content directly.
		return c.children(v)
	case *ast.Heading:
		return one(&doctree.Node{Kind: doctree.KindHeading, Level: v.Level, Children: c.children(v)})
	case *ast.ThematicBreak:
		return one(&doctree.Node{Kind: doctree.KindThematicBreak})
	case *ast.Blockquote:
		return one(&doctree.Node{Kind: doctree.KindBlockquote, Children: c.children(v)})
	case *ast.List:
		return one(&doctree.Node{Kind: doctree.KindList, Ordered: v.IsOrdered(), Start: v.Start, Children: c.children(v)})
	case *ast.ListItem:
		return one(&doctree.Node{Kind: doctree.KindListItem, Children: c.children(v)})
	case *ast.FencedCodeBlock:
		node := &doctree.Node{Kind: doctree.KindCodeBlock, Value: c.lines(v.Lines())}
		if v.Info != nil {
			info := strings.TrimSpace(string(v.Info.Segment.Value(c.src)))
			lang, meta, _ := strings.Cut(info, " ")
			node.Lang = lang
			node.Meta = strings.TrimSpace(meta)
		}
		return one(node)
	case *ast.CodeBlock:
		return one(&doctree.Node{Kind: doctree.KindCodeBlock, Value: c.lines(v.Lines())})
	case *ast.HTMLBlock:
		raw := c.lines(v.Lines())
		if v.HasClosure() {
			raw += string(v.ClosureLine.Value(c.src))
		}
		return one(&doctree.Node{Kind: doctree.KindRaw, Value: raw})
	case *ast.Text:
		value := string(v.Segment.Value(c.src))
		if !v.IsRaw() {
			value = unescape(value)
		}
		out := []*doctree.Node{doctree.NewText(value)}
		if v.HardLineBreak() {
			out = append(out, &doctree.Node{Kind: doctree.KindBreak})
		} else if v.SoftLineBreak() {
			out[0].Value += "\n"
		}
		return out
	case *ast.String:
		value := string(v.Value)
		if !v.IsRaw() && !v.IsCode() {
			value = unescape(value)
		}
		return one(doctree.NewText(value))
	case *ast.CodeSpan:
		var b strings.Builder
		for ch := v.FirstChild(); ch != nil; ch = ch.NextSibling() {
			if t, ok := ch.(*ast.Text); ok {
				b.Write(t.Segment.Value(c.src))
			}
		}
		return one(&doctree.Node{Kind: doctree.KindCodeSpan, Value: strings.ReplaceAll(b.String(), "\n", " ")})
	case *ast.Emphasis:
		return one(&doctree.Node{Kind: doctree.KindEmphasis, Level: v.Level, Children: c.children(v)})
	case *extast.Strikethrough:
		return one(&doctree.Node{Kind: doctree.KindDelete, Children: c.children(v)})
	case *ast.Link:
		return one(&doctree.Node{
			Kind:        doctree.KindLink,
			Destination: string(v.Destination),
			Title:       string(v.Title),
			Children:    c.children(v),
		})
	case *ast.AutoLink:
		dest := string(v.URL(c.src))
		if v.AutoLinkType == ast.AutoLinkEmail && !strings.HasPrefix(strings.ToLower(dest), "mailto:") {
			dest = "mailto:" + dest
		}
		return one(&doctree.Node{
			Kind:        doctree.KindLink,
			Destination: dest,
			Children:    []*doctree.Node{doctree.NewText(string(v.Label(c.src)))},
		})
	case *ast.Image:
		alt := &doctree.Node{Children: c.children(v)}
		return one(&doctree.Node{
			Kind:        doctree.KindImage,
			Destination: string(v.Destination),
			Title:       string(v.Title),
			Value:       alt.TextContent(),
		})
	case *ast.RawHTML:
		var b strings.Builder
		for i := 0; i < v.Segments.Len(); i++ {
			seg := v.Segments.At(i)
			b.Write(seg.Value(c.src))
		}
		return one(&doctree.Node{Kind: doctree.KindRaw, Value: b.String()})
	case *directiveBlock:
		kind := doctree.KindContainerDirective
		if v.kind == astLeafDirective {
			kind = doctree.KindLeafDirective
		}
		var children []*doctree.Node
		if kind == doctree.KindContainerDirective && v.label != "" {
			// The label of a container is its first paragraph.
			if label, err := c.inline(v.label); err == nil && len(label) > 0 {
				children = append(children, &doctree.Node{Kind: doctree.KindParagraph, Children: label})
			}
		}
		children = append(children, c.children(v)...)
		return one(doctree.NewDirective(kind, v.name, copyAttrs(v.attributes), children...))
	case *textDirective:
		var children []*doctree.Node
		if v.hasLabel {
			children = c.label(string(v.label.Value(c.src)))
		}
		return one(doctree.NewDirective(doctree.KindTextDirective, v.name, copyAttrs(v.attributes), children...))
	default:
		return one(&doctree.Node{Kind: doctree.KindRaw, Value: c.renderRaw(n)})
	}
}

// inline parses a container label on its own and returns the inline content
// of the resulting paragraph.
func (c *converter) inline(label string) ([]*doctree.Node, error) {
	source := []byte(label)
	doc := c.md.Parser().Parse(text.NewReader(source))
	sub := &converter{md: c.md, src: source}
	if p, ok := doc.FirstChild().(*ast.Paragraph); ok {
		return sub.children(p), sub.err
	}
	return nil, sub.err
}

// label converts an inline directive label. A label that does not parse as a
// single paragraph ("# x", "- x") is kept as plain text.
func (c *converter) label(src string) []*doctree.Node {
	if src == "" {
		return nil
	}
	nodes, err := c.inline(src)
	if err != nil || len(nodes) == 0 {
		return []*doctree.Node{doctree.NewText(unescape(src))}
	}
	return nodes
}

// renderRaw is the fallback for nodes without a doctree kind (tables, task
// check boxes): goldmark renders them and the markup is kept verbatim.
func (c *converter) renderRaw(n ast.Node) string {
	var buf bytes.Buffer
	if err := c.md.Renderer().Render(&buf, c.src, n); err != nil && c.err == nil {
		c.err = fmt.Errorf("render %s: %w", n.Kind(), err)
	}
	return buf.String()
}

func (c *converter) lines(lines *text.Segments) string {
	var b strings.Builder
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		b.Write(seg.Value(c.src))
	}
	return b.String()
}

func unescape(s string) string {
	if !strings.ContainsAny(s, `\&`) {
		return s
	}
	b := util.UnescapePunctuations([]byte(s))
	b = util.ResolveNumericReferences(b)
	b = util.ResolveEntityNames(b)
	return string(b)
}

func copyAttrs(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func one(n *doctree.Node) []*doctree.Node { return []*doctree.Node{n} }
