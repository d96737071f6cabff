package parser

import "strings"

// splitFrontMatter separates a leading `---` delimited block from the body.
// Input must already use \n line endings; fence lines may carry trailing
// spaces or tabs. ok is false when the document does not open with a fence or
// the block is never closed.
func splitFrontMatter(src string) (front, body string, ok bool) {
	first, rest, found := strings.Cut(src, "\n")
	if !found || !isFence(first) {
		return "", src, false
	}
	var lines []string
	for {
		var line string
		line, rest, found = strings.Cut(rest, "\n")
		if isFence(line) {
			return strings.Join(lines, "\n"), rest, true
		}
		lines = append(lines, line)
		if !found {
			return "", src, false
		}
	}
}

func isFence(line string) bool {
	return strings.TrimRight(line, " \t") == "---"
}

func normalizeLineEndings(src string) string {
	if !strings.Contains(src, "\r") {
		return src
	}
	src = strings.ReplaceAll(src, "\r\n", "\n")
	return strings.ReplaceAll(src, "\r", "\n")
}
