package parser

import (
	"regexp"
	"unicode"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	gparser "github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"
)

// Directive syntax:
//
//	:name[label]{attrs}      text (inline) directive
//	::name[label]{attrs}     leaf block directive
//	:::name[label]{attrs}    container block directive, closed by a line of
//	...                      at least as many colons
//	:::
var (
	astContainerDirective = ast.NewNodeKind("ContainerDirective")
	astLeafDirective      = ast.NewNodeKind("LeafDirective")
	astTextDirective      = ast.NewNodeKind("TextDirective")

	containerCloseRe = regexp.MustCompile(`^(:{3,})[ \t]*$`)
)

// syntax is one scanned `name[label]{attrs}` run. Offsets are relative to
// the scanned slice; labelStart is -1 without a label.
type syntax struct {
	name                 string
	labelStart, labelEnd int
	attrs                string
	hasAttrs             bool
	end                  int
}

func (s syntax) hasLabel() bool { return s.labelStart >= 0 }

// scanSyntax reads a directive name, an optional label and an optional
// attribute block from the start of b. Brackets in the label must balance
// (backslash escapes excluded); neither part may span a line.
func scanSyntax(b []byte) (syntax, bool) {
	st := syntax{labelStart: -1, labelEnd: -1}
	i := 0
	if i >= len(b) || !isASCIILetter(b[i]) {
		return st, false
	}
	for i < len(b) && (isASCIILetter(b[i]) || (b[i] >= '0' && b[i] <= '9') || b[i] == '_' || b[i] == '-') {
		i++
	}
	st.name = string(b[:i])

	if i < len(b) && b[i] == '[' {
		depth := 1
		j := i + 1
		for ; j < len(b) && depth > 0; j++ {
			switch b[j] {
			case '\\':
				j++
			case '[':
				depth++
			case ']':
				depth--
			case '\n':
				return st, false
			}
		}
		if depth != 0 {
			return st, false
		}
		st.labelStart, st.labelEnd = i+1, j-1
		i = j
	}

	if i < len(b) && b[i] == '{' {
		j := i + 1
		var quote byte
		for ; j < len(b); j++ {
			c := b[j]
			if c == '\n' {
				return st, false
			}
			if quote != 0 {
				if c == quote {
					quote = 0
				}
				continue
			}
			if c == '"' || c == '\'' {
				quote = c
				continue
			}
			if c == '}' {
				break
			}
		}
		if j >= len(b) {
			return st, false
		}
		st.attrs = string(b[i+1 : j])
		st.hasAttrs = true
		i = j + 1
	}
	st.end = i
	return st, true
}

func isASCIILetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

// onlySpace reports whether b holds nothing but spaces, tabs and line endings.
func onlySpace(b []byte) bool {
	return len(util.TrimRightSpace(b)) == 0
}

// directiveBlock is the goldmark node for container and leaf directives.
type directiveBlock struct {
	ast.BaseBlock
	kind       ast.NodeKind
	name       string
	label      string
	attributes map[string]string
	fence      int
}

func (n *directiveBlock) Kind() ast.NodeKind { return n.kind }

func (n *directiveBlock) Dump(source []byte, level int) {
	ast.DumpHelper(n, source, level, map[string]string{"Name": n.name}, nil)
}

// textDirective is the goldmark node for inline directives.
type textDirective struct {
	ast.BaseInline
	name       string
	attributes map[string]string
	label      text.Segment
	hasLabel   bool
}

func (n *textDirective) Kind() ast.NodeKind { return astTextDirective }

func (n *textDirective) Dump(source []byte, level int) {
	ast.DumpHelper(n, source, level, map[string]string{"Name": n.name}, nil)
}

type containerParser struct{}

func (b *containerParser) Trigger() []byte { return []byte{':'} }

func (b *containerParser) Open(parent ast.Node, reader text.Reader, pc gparser.Context) (ast.Node, gparser.State) {
	line, segment := reader.PeekLine()
	pos := pc.BlockOffset()
	if pos < 0 || pc.BlockIndent() > 3 {
		return nil, gparser.NoChildren
	}
	rest := line[pos:]
	fence := 0
	for fence < len(rest) && rest[fence] == ':' {
		fence++
	}
	if fence < 3 {
		return nil, gparser.NoChildren
	}
	st, ok := scanSyntax(rest[fence:])
	if !ok || !onlySpace(rest[fence+st.end:]) {
		return nil, gparser.NoChildren
	}
	node := &directiveBlock{
		kind:       astContainerDirective,
		name:       st.name,
		attributes: ParseAttributes(st.attrs),
		fence:      fence,
	}
	if st.hasLabel() {
		node.label = string(rest[fence+st.labelStart : fence+st.labelEnd])
	}
	reader.Advance(segment.Len() - trailingNewline(line))
	return node, gparser.HasChildren
}

func (b *containerParser) Continue(node ast.Node, reader text.Reader, pc gparser.Context) gparser.State {
	line, segment := reader.PeekLine()
	d := node.(*directiveBlock)
	trimmed := util.TrimRightSpace(util.TrimLeftSpace(line))
	if m := containerCloseRe.FindSubmatch(trimmed); m != nil && len(m[1]) >= d.fence {
		reader.Advance(segment.Len() - trailingNewline(line))
		return gparser.Close
	}
	return gparser.Continue | gparser.HasChildren
}

func (b *containerParser) Close(node ast.Node, reader text.Reader, pc gparser.Context) {}

func (b *containerParser) CanInterruptParagraph() bool { return true }

func (b *containerParser) CanAcceptIndentedLine() bool { return false }

type leafParser struct{}

func (b *leafParser) Trigger() []byte { return []byte{':'} }

func (b *leafParser) Open(parent ast.Node, reader text.Reader, pc gparser.Context) (ast.Node, gparser.State) {
	line, segment := reader.PeekLine()
	pos := pc.BlockOffset()
	if pos < 0 || pc.BlockIndent() > 3 {
		return nil, gparser.NoChildren
	}
	rest := line[pos:]
	if len(rest) < 3 || rest[0] != ':' || rest[1] != ':' {
		return nil, gparser.NoChildren
	}
	st, ok := scanSyntax(rest[2:])
	if !ok || !onlySpace(rest[2+st.end:]) {
		return nil, gparser.NoChildren
	}
	node := &directiveBlock{
		kind:       astLeafDirective,
		name:       st.name,
		attributes: ParseAttributes(st.attrs),
	}
	if st.hasLabel() && st.labelEnd > st.labelStart {
		start := segment.Start + pos + 2
		node.Lines().Append(text.NewSegment(start+st.labelStart, start+st.labelEnd))
	}
	reader.Advance(segment.Len() - trailingNewline(line))
	return node, gparser.NoChildren
}

func (b *leafParser) Continue(node ast.Node, reader text.Reader, pc gparser.Context) gparser.State {
	return gparser.Close
}

func (b *leafParser) Close(node ast.Node, reader text.Reader, pc gparser.Context) {}

func (b *leafParser) CanInterruptParagraph() bool { return true }

func (b *leafParser) CanAcceptIndentedLine() bool { return false }

type textDirectiveParser struct{}

func (p *textDirectiveParser) Trigger() []byte { return []byte{':'} }

// Parse only accepts a directive that carries a label or attributes, so that
// ordinary prose such as "Note:this" stays text. The label is kept as a
// segment and parsed as inline markdown when the tree is converted.
func (p *textDirectiveParser) Parse(parent ast.Node, block text.Reader, pc gparser.Context) ast.Node {
	prev := block.PrecendingCharacter()
	if prev == ':' || unicode.IsLetter(prev) || unicode.IsDigit(prev) {
		return nil
	}
	line, segment := block.PeekLine()
	if len(line) < 2 || line[0] != ':' {
		return nil
	}
	st, ok := scanSyntax(line[1:])
	if !ok || (!st.hasLabel() && !st.hasAttrs) {
		return nil
	}
	node := &textDirective{name: st.name, attributes: ParseAttributes(st.attrs)}
	if st.hasLabel() {
		node.hasLabel = true
		node.label = text.NewSegment(segment.Start+1+st.labelStart, segment.Start+1+st.labelEnd)
	}
	block.Advance(1 + st.end)
	return node
}

func trailingNewline(line []byte) int {
	if n := len(line); n > 0 && line[n-1] == '\n' {
		if n > 1 && line[n-2] == '\r' {
			return 2
		}
		return 1
	}
	return 0
}

type directiveExtension struct{}

// Directives is a goldmark extension recognizing generic directive syntax.
var Directives goldmark.Extender = &directiveExtension{}

func (e *directiveExtension) Extend(m goldmark.Markdown) {
	m.Parser().AddOptions(
		gparser.WithBlockParsers(
			util.Prioritized(&containerParser{}, 100),
			util.Prioritized(&leafParser{}, 101),
		),
		gparser.WithInlineParsers(
			util.Prioritized(&textDirectiveParser{}, 199),
		),
	)
	m.Renderer().AddOptions(renderer.WithNodeRenderers(
		util.Prioritized(&directiveRenderer{}, 500),
	))
}

// directiveRenderer is only reached when goldmark renders a subtree on its
// own (for example a table cell holding a directive). It emits the content
// and drops the directive wrapper.
type directiveRenderer struct{}

func (r *directiveRenderer) RegisterFuncs(reg renderer.NodeRendererFuncRegisterer) {
	reg.Register(astContainerDirective, r.renderContent)
	reg.Register(astLeafDirective, r.renderContent)
	reg.Register(astTextDirective, r.renderContent)
}

func (r *directiveRenderer) renderContent(w util.BufWriter, source []byte, n ast.Node, entering bool) (ast.WalkStatus, error) {
	return ast.WalkContinue, nil
}
