// Package normalize turns whatever JSON a text-generation endpoint returns
// into the single string shown to the user.
//
// Deployments of the same class of service answer under different keys, so
// extraction is an ordered list of extractors. The first one that yields a
// non-blank string wins; the order decides which field is used when a payload
// carries several candidates at once.
package normalize

import (
	"strings"

	"github.com/spec-kit/spark-support/internal/jsonvalue"
	"github.com/spec-kit/spark-support/pkg/util/errorutil"
)

// MaxDepth bounds the deep search.
const MaxDepth = 5

var (
	primaryKeys   = []string{"text", "answer", "response", "output", "message"}
	generatedKeys = []string{"generated_text", "generatedText"}
	deepKeys      = []string{"text", "answer", "response", "output", "message", "generated_text", "generatedText", "data"}
)

// Extractor returns the text it found in v, if any.
type Extractor func(v any) (string, bool)

var pipeline = []Extractor{
	topLevelFields,
	firstDataItem,
	dataObject,
	topLevelWithGenerated,
	dataString,
	deepSearch,
	plainString,
}

// Extract runs every extractor in order and returns the first match, or ""
// when nothing textual could be located.
func Extract(v any) string {
	v = coerce(v)
	for _, extract := range pipeline {
		if s, ok := extract(v); ok {
			return s
		}
	}
	return ""
}

// Normalize is Extract with a last resort: the indented JSON of v, or the
// fixed fallback when v is null or cannot be marshalled.
func Normalize(v any) string {
	v = coerce(v)
	if s := Extract(v); s != "" {
		return s
	}
	if v == nil {
		return errorutil.NoResponseFallback
	}
	s, err := jsonvalue.Indent(v)
	if err != nil || s == "" {
		return errorutil.NoResponseFallback
	}
	return s
}

func coerce(v any) any {
	switch v.(type) {
	case map[string]any, []any:
		return jsonvalue.FromPlain(v)
	}
	return v
}

func topLevelFields(v any) (string, bool) {
	return firstString(asObject(v), primaryKeys)
}

func firstDataItem(v any) (string, bool) {
	data, ok := field(asObject(v), "data").([]any)
	if !ok || len(data) == 0 {
		return "", false
	}
	switch first := data[0].(type) {
	case string:
		return nonBlank(first)
	case *jsonvalue.Object:
		if s, ok := firstString(first, primaryKeys); ok {
			return s, true
		}
		if s, ok := firstString(first, []string{"output"}); ok {
			return s, true
		}
		return nestedText(first, "output")
	}
	return "", false
}

func dataObject(v any) (string, bool) {
	data, ok := field(asObject(v), "data").(*jsonvalue.Object)
	if !ok {
		return "", false
	}
	if s, ok := firstString(data, primaryKeys); ok {
		return s, true
	}
	if s, ok := firstString(data, generatedKeys); ok {
		return s, true
	}
	if s, ok := firstString(data, []string{"output"}); ok {
		return s, true
	}
	return nestedText(data, "output")
}

func topLevelWithGenerated(v any) (string, bool) {
	obj := asObject(v)
	if s, ok := firstString(obj, primaryKeys); ok {
		return s, true
	}
	return firstString(obj, generatedKeys)
}

func dataString(v any) (string, bool) {
	s, ok := field(asObject(v), "data").(string)
	if !ok {
		return "", false
	}
	return nonBlank(s)
}

func deepSearch(v any) (string, bool) {
	var found []string
	collect(v, 0, make(map[*jsonvalue.Object]struct{}), &found)

	seen := make(map[string]struct{}, len(found))
	unique := make([]string, 0, len(found))
	for _, s := range found {
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		unique = append(unique, s)
	}
	if len(unique) == 0 {
		return "", false
	}
	return strings.Join(unique, "\n\n"), true
}

func collect(node any, depth int, visited map[*jsonvalue.Object]struct{}, out *[]string) {
	switch t := node.(type) {
	case nil:
		return
	case string:
		if s, ok := nonBlank(t); ok {
			*out = append(*out, s)
		}
	case float64, bool:
		*out = append(*out, jsonvalue.String(t))
	case []any:
		if depth > MaxDepth {
			return
		}
		for _, item := range t {
			collect(item, depth+1, visited, out)
		}
	case *jsonvalue.Object:
		if _, ok := visited[t]; ok {
			return
		}
		visited[t] = struct{}{}
		if depth > MaxDepth {
			return
		}
		keys := presentKeys(t, deepKeys)
		if len(keys) == 0 {
			keys = t.Keys()
		}
		for _, k := range keys {
			child, _ := t.Get(k)
			collect(child, depth+1, visited, out)
		}
	}
}

func plainString(v any) (string, bool) {
	s, ok := v.(string)
	if !ok {
		return "", false
	}
	return nonBlank(s)
}

func asObject(v any) *jsonvalue.Object {
	obj, _ := v.(*jsonvalue.Object)
	return obj
}

func field(obj *jsonvalue.Object, key string) any {
	v, _ := obj.Get(key)
	return v
}

func firstString(obj *jsonvalue.Object, keys []string) (string, bool) {
	if obj == nil {
		return "", false
	}
	for _, k := range keys {
		if s, ok := field(obj, k).(string); ok {
			if trimmed, ok := nonBlank(s); ok {
				return trimmed, true
			}
		}
	}
	return "", false
}

// nestedText reads obj[key].text.
func nestedText(obj *jsonvalue.Object, key string) (string, bool) {
	inner, ok := field(obj, key).(*jsonvalue.Object)
	if !ok {
		return "", false
	}
	return firstString(inner, []string{"text"})
}

func presentKeys(obj *jsonvalue.Object, keys []string) []string {
	var present []string
	for _, k := range keys {
		if _, ok := obj.Get(k); ok {
			present = append(present, k)
		}
	}
	return present
}

func nonBlank(s string) (string, bool) {
	trimmed := strings.TrimSpace(s)
	return trimmed, trimmed != ""
}
