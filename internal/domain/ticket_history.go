package domain

import "time"

// TicketChangeType captures what changed in a history entry.
type TicketChangeType string

const (
	ChangeTypeStatus   TicketChangeType = "STATUS_CHANGE"
	ChangeTypePriority TicketChangeType = "PRIORITY_CHANGE"
)

// TicketChange is an immutable audit entry for an effective update.
type TicketChange struct {
	ID         string           `json:"id"`
	TicketID   string           `json:"ticket_id"`
	DeviceID   string           `json:"device_id"`
	ChangeType TicketChangeType `json:"change_type"`
	OldValue   string           `json:"old_value"`
	NewValue   string           `json:"new_value"`
	CreatedAt  time.Time        `json:"created_at"`
}
