package doctree

// Kind discriminates the closed set of node variants a Document Tree may hold.
type Kind int

const (
	KindRoot Kind = iota
	KindFrontMatter
	KindParagraph
	KindHeading
	KindBlockquote
	KindList
	KindListItem
	KindThematicBreak
	KindCodeBlock
	KindText
	KindEmphasis
	KindDelete
	KindCodeSpan
	KindLink
	KindImage
	KindBreak
	KindRaw
	KindContainerDirective
	KindLeafDirective
	KindTextDirective
)

var kindNames = [...]string{
	KindRoot:               "root",
	KindFrontMatter:        "frontMatter",
	KindParagraph:          "paragraph",
	KindHeading:            "heading",
	KindBlockquote:         "blockquote",
	KindList:               "list",
	KindListItem:           "listItem",
	KindThematicBreak:      "thematicBreak",
	KindCodeBlock:          "code",
	KindText:               "text",
	KindEmphasis:           "emphasis",
	KindDelete:             "delete",
	KindCodeSpan:           "inlineCode",
	KindLink:               "link",
	KindImage:              "image",
	KindBreak:              "break",
	KindRaw:                "raw",
	KindContainerDirective: "containerDirective",
	KindLeafDirective:      "leafDirective",
	KindTextDirective:      "textDirective",
}

func (k Kind) String() string {
	if k >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// IsDirective reports whether k is one of the three directive kinds.
func (k Kind) IsDirective() bool {
	return k == KindContainerDirective || k == KindLeafDirective || k == KindTextDirective
}

// Node is one element of a Document Tree. Only the fields relevant to Kind are set.
type Node struct {
	Kind Kind

	Value string // text content, code source, front matter source or raw markup
	Lang  string // code block language tag
	Meta  string // code block info string after the language

	Level   int  // heading level (1-6) or emphasis level (1 = em, 2 = strong)
	Ordered bool // ordered list
	Start   int  // first number of an ordered list

	Destination string // link href / image src
	Title       string // link / image title

	Name       string            // directive name
	Attributes map[string]string // directive attributes

	// Source holds markdown whose directive syntax has not been recognized yet.
	// The recognition pass consumes and clears it.
	Source string

	// Render, when set, overrides how a directive is lowered to markup.
	Render *Render

	Children []*Node
}

// Render is a directive's assigned render target.
type Render struct {
	Tag     string
	Attrs   map[string]string
	Classes []string
}

// NewRoot returns an empty root node.
func NewRoot(children ...*Node) *Node {
	return &Node{Kind: KindRoot, Children: children}
}

// NewText returns a text node.
func NewText(value string) *Node {
	return &Node{Kind: KindText, Value: value}
}

// NewParagraph returns a paragraph holding a single text node.
func NewParagraph(text string) *Node {
	return &Node{Kind: KindParagraph, Children: []*Node{NewText(text)}}
}

// NewDirective returns a directive node of the given kind.
func NewDirective(kind Kind, name string, attrs map[string]string, children ...*Node) *Node {
	if attrs == nil {
		attrs = map[string]string{}
	}
	return &Node{Kind: kind, Name: name, Attributes: attrs, Children: children}
}

// FirstChild returns the first child or nil.
func (n *Node) FirstChild() *Node {
	if n == nil || len(n.Children) == 0 {
		return nil
	}
	return n.Children[0]
}

// Attr returns the named attribute value, or "" when absent.
func (n *Node) Attr(name string) string {
	if n == nil || n.Attributes == nil {
		return ""
	}
	return n.Attributes[name]
}

// TextContent concatenates the values of all text descendants.
func (n *Node) TextContent() string {
	var b []byte
	var walk func(*Node)
	walk = func(c *Node) {
		if c.Kind == KindText || c.Kind == KindCodeSpan {
			b = append(b, c.Value...)
		}
		for _, cc := range c.Children {
			walk(cc)
		}
	}
	walk(n)
	return string(b)
}
