package story

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/dgallion1/docweave/internal/doctree"
	"github.com/dgallion1/docweave/internal/metadata"
)

// DirectiveName marks a directive whose content is generated.
const DirectiveName = "generate_story"

// DefaultTopic is used when the directive carries no plain-text topic.
const DefaultTopic = "a surprising event"

// BaseClass is always present on generated content.
const BaseClass = "generated-story"

// Params are the resolved generation inputs. Field order is part of the
// cache key format.
type Params struct {
	Genre     string `json:"genre"`
	Location  string `json:"location"`
	Style     string `json:"style"`
	Interests string `json:"interests"`
	Friend    string `json:"friend"`
	UserName  string `json:"user_name"`
	UserAge   int    `json:"user_age"`
	// Paragraphs is the requested length of the story.
	Paragraphs int `json:"paragraphs"`
}

// Defaults applied when neither the directive nor the metadata set a field.
var Defaults = Params{
	Genre:      "fantasy",
	Location:   "a magical forest",
	Style:      "Dr. Seuss",
	Interests:  "reading and adventure",
	Friend:     "a talking squirrel",
	UserName:   "Alex",
	UserAge:    10,
	Paragraphs: 4,
}

// field maps a directive attribute to its metadata key.
type field struct {
	attr, meta string
}

var (
	genreField      = field{"genre", "story_genre"}
	locationField   = field{"location", "story_location"}
	styleField      = field{"style", "story_style"}
	interestsField  = field{"interests", "story_interests"}
	friendField     = field{"friend", "friends"}
	userNameField   = field{"user_name", "user_name"}
	userAgeField    = field{"user_age", "user_age"}
	paragraphsField = field{"paragraphs", "paragraphs"}
)

const (
	requiredWordsAttr = "requiredWords"
	requiredWordsMeta = "story_required_words"
)

// Spec is everything needed to produce one directive's replacement.
type Spec struct {
	Topic         string
	Params        Params
	RequiredWords []string
	Classes       []string
}

// Resolve derives the generation inputs for a directive. Each field takes the
// first non-empty of: directive attribute, metadata value, default.
func Resolve(n *doctree.Node, meta metadata.Mapping) Spec {
	pick := func(f field, def string) string {
		if v := strings.TrimSpace(n.Attr(f.attr)); v != "" {
			return v
		}
		if v := strings.TrimSpace(meta.String(f.meta)); v != "" {
			return v
		}
		return def
	}

	p := Params{
		Genre:      pick(genreField, Defaults.Genre),
		Location:   pick(locationField, Defaults.Location),
		Style:      pick(styleField, Defaults.Style),
		Interests:  pick(interestsField, Defaults.Interests),
		Friend:     pick(friendField, Defaults.Friend),
		UserName:   pick(userNameField, Defaults.UserName),
		UserAge:    parseLeadingInt(pick(userAgeField, ""), Defaults.UserAge),
		Paragraphs: parseLeadingInt(pick(paragraphsField, ""), Defaults.Paragraphs),
	}

	classes := []string{BaseClass}
	if style := n.Attr(styleField.attr); style != "" {
		classes = append(classes, strings.Fields(style)...)
	}

	return Spec{
		Topic:         topic(n),
		Params:        p,
		RequiredWords: requiredWords(n, meta),
		Classes:       classes,
	}
}

// topic reads the directive's first child when it carries a literal value.
func topic(n *doctree.Node) string {
	first := n.FirstChild()
	if first == nil {
		return DefaultTopic
	}
	switch first.Kind {
	case doctree.KindText, doctree.KindCodeSpan, doctree.KindCodeBlock:
		return first.Value
	}
	return DefaultTopic
}

// requiredWords prefers the metadata list over the directive attribute.
func requiredWords(n *doctree.Node, meta metadata.Mapping) []string {
	if v, ok := meta.Lookup(requiredWordsMeta); ok && v != nil {
		switch x := v.(type) {
		case []any:
			words := make([]string, 0, len(x))
			for _, w := range x {
				if s, ok := w.(string); ok {
					words = append(words, s)
				}
			}
			return NormalizeWords(words)
		case string:
			if strings.TrimSpace(x) != "" {
				return NormalizeWords(strings.Split(x, ","))
			}
		}
	}
	if attr := n.Attr(requiredWordsAttr); attr != "" {
		return NormalizeWords(strings.Split(attr, ","))
	}
	return nil
}

var leadingIntRe = regexp.MustCompile(`^\s*([+-]?\d+)`)

// parseLeadingInt reads an integer prefix ("10 years" is 10) and falls back to
// def when there is none.
func parseLeadingInt(s string, def int) int {
	m := leadingIntRe.FindStringSubmatch(s)
	if m == nil {
		return def
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return def
	}
	return n
}
