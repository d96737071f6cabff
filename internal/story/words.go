package story

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// NormalizeWords trims, drops empties and removes case-insensitive duplicates,
// keeping the first spelling seen.
func NormalizeWords(words []string) []string {
	fold := cases.Fold()
	seen := make(map[string]bool, len(words))
	out := make([]string, 0, len(words))
	for _, w := range words {
		w = strings.TrimSpace(w)
		if w == "" {
			continue
		}
		k := fold.String(w)
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, w)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// Missing returns the required words that do not occur in text, compared
// case-insensitively as substrings.
func Missing(text string, words []string) []string {
	lower := cases.Lower(language.Und)
	haystack := lower.String(text)
	var missing []string
	for _, w := range words {
		if !strings.Contains(haystack, lower.String(w)) {
			missing = append(missing, w)
		}
	}
	return missing
}

var wordRe = regexp.MustCompile(`\b[a-zA-Z0-9]+\b`)

// AnnotateWordCount appends the running word count after every sentence.
// The text is cut immediately after each '.', '!' or '?'; each non-blank piece
// gets "(N)" before its trailing whitespace, N counting words from the start.
//
//	"Hi. Bye." -> "Hi.(1) Bye.(2)"
func AnnotateWordCount(text string) string {
	if strings.TrimSpace(text) == "" {
		return ""
	}
	var b strings.Builder
	total := 0
	for _, part := range splitSentences(text) {
		total += len(wordRe.FindAllStringIndex(part, -1))
		content := strings.TrimRightFunc(part, unicode.IsSpace)
		if content == "" {
			b.WriteString(part)
			continue
		}
		b.WriteString(content)
		b.WriteString("(" + strconv.Itoa(total) + ")")
		b.WriteString(part[len(content):])
	}
	return b.String()
}

func splitSentences(text string) []string {
	var parts []string
	start := 0
	for i, r := range text {
		if r == '.' || r == '!' || r == '?' {
			parts = append(parts, text[start:i+1])
			start = i + 1
		}
	}
	if start < len(text) {
		parts = append(parts, text[start:])
	}
	return parts
}

var blankLineRe = regexp.MustCompile(`\n[ \t]*\n`)

// SplitParagraphs cuts text at blank lines and drops empty pieces.
func SplitParagraphs(text string) []string {
	var out []string
	for _, p := range blankLineRe.Split(text, -1) {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
