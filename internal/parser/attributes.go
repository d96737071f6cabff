package parser

import (
	"strings"
	"unicode"
)

// ParseAttributes reads the body of a directive attribute block ({...}).
//
// Supported forms: key=value, key="quoted value", key='quoted', bare keys
// (empty value), #id and .class shortcuts. Classes accumulate into one
// space-separated "class" value. Anything it cannot make sense of is skipped.
func ParseAttributes(s string) map[string]string {
	attrs := map[string]string{}
	r := []rune(s)
	i := 0
	for i < len(r) {
		for i < len(r) && unicode.IsSpace(r[i]) {
			i++
		}
		if i >= len(r) {
			break
		}
		switch r[i] {
		case '#':
			i++
			start := i
			for i < len(r) && !unicode.IsSpace(r[i]) && r[i] != '.' && r[i] != '#' {
				i++
			}
			if i > start {
				attrs["id"] = string(r[start:i])
			}
			continue
		case '.':
			i++
			start := i
			for i < len(r) && !unicode.IsSpace(r[i]) && r[i] != '.' && r[i] != '#' {
				i++
			}
			if i > start {
				if c := attrs["class"]; c != "" {
					attrs["class"] = c + " " + string(r[start:i])
				} else {
					attrs["class"] = string(r[start:i])
				}
			}
			continue
		}

		start := i
		for i < len(r) && !unicode.IsSpace(r[i]) && r[i] != '=' {
			i++
		}
		key := string(r[start:i])
		if i >= len(r) || r[i] != '=' {
			if key != "" {
				attrs[key] = ""
			}
			continue
		}
		i++ // '='
		var val strings.Builder
		if i < len(r) && (r[i] == '"' || r[i] == '\'') {
			quote := r[i]
			i++
			for i < len(r) && r[i] != quote {
				val.WriteRune(r[i])
				i++
			}
			if i < len(r) {
				i++ // closing quote
			}
		} else {
			for i < len(r) && !unicode.IsSpace(r[i]) {
				val.WriteRune(r[i])
				i++
			}
		}
		if key != "" {
			attrs[key] = val.String()
		}
	}
	return attrs
}
