// Package translate extracts a subject/description pair from the
// semi-structured reply of the translate endpoint.
package translate

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/spec-kit/spark-support/internal/jsonvalue"
	"github.com/spec-kit/spark-support/internal/normalize"
)

// NoTranslation is the text used when the endpoint answered with JSON null.
const NoTranslation = "Keine Antwort vom Übersetzungsdienst"

const maxSubjectRunes = 120

// unescapeRounds bounds how many layers of doubled escaping are collapsed.
const unescapeRounds = 3

var (
	quotedStart     = regexp.MustCompile(`^\s*"`)
	quotedEnd       = regexp.MustCompile(`"\s*(,|\}|$)`)
	doubledNewline  = regexp.MustCompile(`\\\\(r\\\\)?n`)
	escapedNewline  = regexp.MustCompile(`\\(r\\)?n`)
	trailingJSONKey = regexp.MustCompile(`"\s*,\s*\n\s*"[a-zA-Z0-9_]+\s*":`)
	leadingQuote    = regexp.MustCompile(`^\s*"`)
	trailingQuote   = regexp.MustCompile(`"\s*$`)
	subjectLabel    = regexp.MustCompile(`(?i)Betreff\s*[:\-]\s*([\s\S]*?)(?:\r?\n\s*\r?\n|\\n\s*\\n|$)`)
	descriptionLbl  = regexp.MustCompile(`(?i)Beschreibung\s*[:\-]\s*([\s\S]*)`)
	segmentBreak    = regexp.MustCompile(`(?:\r?\n\s*\r?\n|\\n\s*\\n)`)
	lineBreak       = regexp.MustCompile(`\r?\n`)
	subjectNewlines = regexp.MustCompile(`(?:\\r\\n|\\n|\r?\n)+`)
	subjectOverrun  = regexp.MustCompile(`(?i)\s*Beschreibung\s*[:\-]?.*$`)
)

// Result is the normalized reply. Text is always set; Subject and
// Description are empty when extraction failed.
type Result struct {
	Text        string `json:"text"`
	Subject     string `json:"subject,omitempty"`
	Description string `json:"description,omitempty"`
}

// ReplyText picks the textual answer out of the decoded endpoint JSON.
func ReplyText(v any) string {
	switch t := v.(type) {
	case nil:
		return NoTranslation
	case string:
		return t
	case *jsonvalue.Object:
		if data, ok := fieldOf(t, "data").([]any); ok && len(data) > 0 {
			parts := make([]string, len(data))
			for i, item := range data {
				switch it := item.(type) {
				case string:
					parts[i] = it
				case *jsonvalue.Object, []any:
					parts[i] = normalize.Normalize(it)
				default:
					parts[i] = jsonvalue.String(it)
				}
			}
			return strings.Join(parts, "\n\n")
		}
		if s, ok := fieldOf(t, "result").(string); ok {
			return s
		}
		if s, ok := fieldOf(t, "output").(string); ok {
			return s
		}
	}
	s, err := jsonvalue.Indent(v)
	if err != nil {
		return NoTranslation
	}
	return s
}

// Parse normalizes escaping and quoting in raw and extracts the labeled
// "Betreff" and "Beschreibung" fields, falling back to layout heuristics.
func Parse(raw string) Result {
	text := unwrapQuoted(raw)

	for i := 0; i < unescapeRounds && strings.Contains(text, `\\n`); i++ {
		text = doubledNewline.ReplaceAllString(text, `\n`)
	}
	text = escapedNewline.ReplaceAllString(text, "\n")

	if loc := trailingJSONKey.FindStringIndex(text); loc != nil {
		text = text[:loc[0]]
	}

	text = leadingQuote.ReplaceAllString(text, "")
	text = trailingQuote.ReplaceAllString(text, "")

	var subject, description string
	if m := subjectLabel.FindStringSubmatch(text); m != nil {
		subject = strings.TrimSpace(m[1])
	}
	if m := descriptionLbl.FindStringSubmatch(text); m != nil {
		description = strings.TrimSpace(m[1])
	}

	segments := segmentBreak.Split(text, -1)
	if subject == "" {
		for _, line := range lineBreak.Split(segments[0], -1) {
			if trimmed := strings.TrimSpace(line); trimmed != "" {
				subject = truncateRunes(trimmed, maxSubjectRunes)
				break
			}
		}
	}
	if description == "" {
		if len(segments) > 1 {
			description = strings.TrimSpace(strings.Join(segments[1:], "\n\n"))
		} else {
			description = strings.TrimSpace(text)
		}
	}

	if subject != "" {
		subject = subjectNewlines.ReplaceAllString(subject, " ")
		subject = strings.TrimSpace(subjectOverrun.ReplaceAllString(subject, ""))
	}

	return Result{Text: text, Subject: subject, Description: description}
}

// unwrapQuoted decodes a JSON string literal so its escapes are interpreted
// in one step. Anything that does not decode is returned unchanged.
func unwrapQuoted(s string) string {
	if !quotedStart.MatchString(s) || !quotedEnd.MatchString(s) {
		return s
	}
	var decoded string
	if err := json.Unmarshal([]byte(s), &decoded); err != nil {
		return s
	}
	return decoded
}

func fieldOf(obj *jsonvalue.Object, key string) any {
	v, _ := obj.Get(key)
	return v
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
