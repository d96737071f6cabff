// Package metadata reads the front-matter block of a document into a flat
// key/value mapping.
package metadata

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/dgallion1/docweave/internal/doctree"
	"gopkg.in/yaml.v3"
)

// Mapping is a document's metadata. Values are nil, bool, int, float64,
// string, []any or map[string]any after normalisation.
type Mapping map[string]any

// Parse decodes a YAML front-matter body. An empty body yields an empty
// mapping. A document that decodes to something other than a mapping
// (a bare scalar or a list) also yields an empty mapping.
func Parse(src string) (Mapping, error) {
	if strings.TrimSpace(src) == "" {
		return Mapping{}, nil
	}
	var raw any
	if err := yaml.Unmarshal([]byte(src), &raw); err != nil {
		return Mapping{}, fmt.Errorf("parse front matter: %w", err)
	}
	m, ok := normalize(raw).(map[string]any)
	if !ok {
		return Mapping{}, nil
	}
	return Mapping(m), nil
}

// FromTree derives the mapping from the root's first child when that child is
// a front-matter node. Absent or unparseable front matter gives an empty
// mapping; the error is returned for logging only.
func FromTree(root *doctree.Node) (Mapping, error) {
	first := root.FirstChild()
	if first == nil || first.Kind != doctree.KindFrontMatter {
		return Mapping{}, nil
	}
	return Parse(first.Value)
}

// Lookup returns the value for key and whether it was present.
func (m Mapping) Lookup(key string) (any, bool) {
	v, ok := m[key]
	return v, ok
}

// String returns the display form of key, or "" when absent or nil.
func (m Mapping) String(key string) string {
	v, ok := m[key]
	if !ok || v == nil {
		return ""
	}
	return Display(v)
}

// Keys returns the mapping's keys in sorted order.
func (m Mapping) Keys() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// MissingKey is the diagnostic shown in place of an unknown lookup.
func MissingKey(key string) string {
	return fmt.Sprintf("Error: Metadata key %q not found", key)
}

// Display renders a value the way a browser would stringify it: lists join
// their elements with commas, nil is "null", whole floats drop the fraction.
// Maps render as JSON.
func Display(v any) string {
	switch x := v.(type) {
	case nil:
		return "null"
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case uint64:
		return strconv.FormatUint(x, 10)
	case float64:
		return formatNumber(x)
	case []any:
		parts := make([]string, len(x))
		for i, e := range x {
			if e != nil {
				parts[i] = Display(e)
			}
		}
		return strings.Join(parts, ",")
	case map[string]any:
		// Mappings show as compact JSON rather than "[object Object]".
		var buf bytes.Buffer
		enc := json.NewEncoder(&buf)
		enc.SetEscapeHTML(false)
		if err := enc.Encode(x); err != nil {
			return fmt.Sprint(x)
		}
		return strings.TrimSuffix(buf.String(), "\n")
	default:
		return fmt.Sprint(x)
	}
}

func formatNumber(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	}
	abs := math.Abs(f)
	if abs != 0 && (abs >= 1e21 || abs < 1e-6) {
		return strconv.FormatFloat(f, 'g', -1, 64)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// normalize converts decoded YAML into the value set documented on Mapping.
func normalize(v any) any {
	switch x := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, e := range x {
			out[k] = normalize(e)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(x))
		for k, e := range x {
			out[fmt.Sprint(k)] = normalize(e)
		}
		return out
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = normalize(e)
		}
		return out
	case time.Time:
		if x.Hour() == 0 && x.Minute() == 0 && x.Second() == 0 && x.Nanosecond() == 0 {
			return x.Format("2006-01-02")
		}
		return x.Format(time.RFC3339)
	case int64:
		return int(x)
	case float32:
		return float64(x)
	default:
		return x
	}
}
