// Package priority canonicalizes free-text priority labels into severity
// tiers and maps tiers to badge colors.
package priority

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/spec-kit/spark-support/internal/domain"
)

// matchOrder is checked by substring; the first hit wins.
var matchOrder = []domain.PriorityTier{
	domain.PriorityCritical,
	domain.PriorityHigh,
	domain.PriorityMedium,
	domain.PriorityLow,
}

// NormalizeLabel returns the tier contained in raw, "" for blank input, or the
// capitalized label itself when no tier matches.
func NormalizeLabel(raw string) string {
	lowered := strings.ToLower(strings.TrimSpace(raw))
	if lowered == "" {
		return ""
	}
	for _, tier := range matchOrder {
		if strings.Contains(lowered, strings.ToLower(string(tier))) {
			return string(tier)
		}
	}
	first, size := utf8.DecodeRuneInString(lowered)
	return string(unicode.ToUpper(first)) + lowered[size:]
}

// ParseTier reports the tier a label normalizes to, if it is one of the four.
func ParseTier(raw string) (domain.PriorityTier, bool) {
	label := NormalizeLabel(raw)
	for _, tier := range matchOrder {
		if label == string(tier) {
			return tier, true
		}
	}
	return "", false
}

// ColorToken names a badge style.
type ColorToken string

const (
	ColorDanger  ColorToken = "danger"
	ColorWarning ColorToken = "warning"
	ColorSuccess ColorToken = "success"
	ColorNeutral ColorToken = "neutral"
)

// Color is a badge style with its hex value.
type Color struct {
	Token ColorToken `json:"token"`
	Hex   string     `json:"hex"`
}

var (
	danger  = Color{Token: ColorDanger, Hex: "#C21B1B"}
	warning = Color{Token: ColorWarning, Hex: "#E8B931"}
	success = Color{Token: ColorSuccess, Hex: "#53A668"}
	neutral = Color{Token: ColorNeutral, Hex: "#757575"}
)

// ColorFor maps a tier label to its badge color. High shares Critical's color.
func ColorFor(label string) Color {
	switch strings.ToLower(label) {
	case "critical", "high":
		return danger
	case "medium":
		return warning
	case "low":
		return success
	default:
		return neutral
	}
}
