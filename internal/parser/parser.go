package parser

import (
	"path/filepath"
	"strings"

	"github.com/dgallion1/docweave/internal/doctree"
)

// FragmentParser converts a markdown snippet into a list of block nodes.
// ParseFragment ignores directive syntax; ParseFragmentDirectives honours it.
type FragmentParser interface {
	ParseFragment(src string) ([]*doctree.Node, error)
	ParseFragmentDirectives(src string) ([]*doctree.Node, error)
}

// Parser converts raw document text into a doctree and parses the fragments
// later stages produce.
type Parser interface {
	FragmentParser
	Parse(src string) (*doctree.Node, error)
}

var _ Parser = (*MarkdownParser)(nil)

// SupportedExtensions lists file extensions served as documents.
var SupportedExtensions = map[string]bool{
	".md": true,
}

// IsSupportedExtension checks if a file extension is supported.
func IsSupportedExtension(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	return SupportedExtensions[ext]
}
