package domain

import "strings"

// PriorityTier enumerates the fixed severity tiers.
type PriorityTier string

const (
	PriorityCritical PriorityTier = "Critical"
	PriorityHigh     PriorityTier = "High"
	PriorityMedium   PriorityTier = "Medium"
	PriorityLow      PriorityTier = "Low"
)

// Ticket status values the store derives when a record carries none.
const (
	TicketStatusOpen   = "Open"
	TicketStatusClosed = "Closed"
)

// UnknownValue is shown for absent department or support type.
const UnknownValue = "Unbekannt"

// SupportTypeKey is the vendor field read from Raw for prompts and priority payloads.
const SupportTypeKey = "Support Type"

// Ticket is the canonical support case loaded from the bundled dataset.
type Ticket struct {
	ID          string         `json:"id"`
	Subject     string         `json:"subject"`
	Description string         `json:"description"`
	Resolution  string         `json:"resolution"`
	Product     string         `json:"product"`
	Priority    PriorityTier   `json:"priority"`
	Status      string         `json:"status"`
	Department  string         `json:"department"`
	Creation    string         `json:"creation"`
	Raw         map[string]any `json:"raw"`
}

// SupportType returns the trimmed raw "Support Type" field, or "" if absent.
func (t Ticket) SupportType() string {
	s, _ := t.Raw[SupportTypeKey].(string)
	return strings.TrimSpace(s)
}

// TicketPatch carries the fields an update may change.
type TicketPatch struct {
	Status   *string
	Priority *PriorityTier
}

// NormalizeTicketID trims and lowercases an id for comparison.
func NormalizeTicketID(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}
