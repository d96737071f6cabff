package story

import (
	"bytes"
	"encoding/json"
	"strings"
	"text/template"
)

var storyTmpl = template.Must(template.New("story").Parse(`
Write a {{.P.Genre}} story located in {{.P.Location}} in the style of {{.P.Style}} for {{.P.UserName}} who is {{.P.UserAge}} years old. It should be very silly. Over the top silly.
{{.P.UserName}} likes {{.P.Interests}}, and {{.P.UserName}}'s best friend is {{.P.Friend}}. The story should be about: {{.Topic}}.

Make the story about {{.P.Paragraphs}} paragraphs long, separated by blank lines.
`))

var rewriteTmpl = template.Must(template.New("rewrite").Parse(`
Rewrite the following paragraph to include the words: {{.Missing}}.
Keep the meaning and tone of the original paragraph as much as possible.

Original paragraph:
"{{.Text}}"

Rewritten paragraph:
`))

// StoryPrompt renders the generation prompt for topic and p.
func StoryPrompt(topic string, p Params) string {
	var buf bytes.Buffer
	_ = storyTmpl.Execute(&buf, struct {
		Topic string
		P     Params
	}{topic, p})
	return buf.String()
}

// RewritePrompt asks for text to be rewritten so it contains missing.
func RewritePrompt(text string, missing []string) string {
	var buf bytes.Buffer
	_ = rewriteTmpl.Execute(&buf, struct {
		Text    string
		Missing string
	}{text, strings.Join(missing, ", ")})
	return buf.String()
}

// StoryKey is the cache key of a generation: {"storyTopic":...,"params":{...}}.
func StoryKey(topic string, p Params) string {
	return encodeKey(struct {
		StoryTopic string `json:"storyTopic"`
		Params     Params `json:"params"`
	}{topic, p})
}

// RewriteKey is the cache key of a vocabulary check on text.
func RewriteKey(text string, words []string) string {
	if words == nil {
		words = []string{}
	}
	return encodeKey(struct {
		Story         string   `json:"story"`
		RequiredWords []string `json:"requiredWords"`
		Function      string   `json:"function"`
	}{text, words, "validateParagraph"})
}

// encodeKey writes compact JSON without HTML escaping.
func encodeKey(v any) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
	return strings.TrimSuffix(buf.String(), "\n")
}
