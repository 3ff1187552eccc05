package events

import (
	"time"

	"github.com/spec-kit/spark-support/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketStatusChanged   EventType = "ticket_status_changed"
	EventTicketPriorityChanged EventType = "ticket_priority_changed"
)

// Actor encapsulates actor metadata for an event.
type Actor struct {
	Type     domain.SubjectType `json:"type"`
	DeviceID string             `json:"device_id"`
}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TicketID  string      `json:"ticket_id"`
	Actor     Actor       `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// TicketStatusChangedPayload payload.
type TicketStatusChangedPayload struct {
	OldStatus string `json:"old_status"`
	NewStatus string `json:"new_status"`
}

// TicketPriorityChangedPayload payload.
type TicketPriorityChangedPayload struct {
	OldPriority domain.PriorityTier `json:"old_priority"`
	NewPriority domain.PriorityTier `json:"new_priority"`
}

// Change flattens a ticket event into an audit row. ok is false for
// events that do not describe a field change.
func (e Event) Change() (domain.TicketChange, bool) {
	change := domain.TicketChange{
		TicketID:  e.TicketID,
		DeviceID:  e.Actor.DeviceID,
		CreatedAt: e.Timestamp,
	}
	switch p := e.Payload.(type) {
	case TicketStatusChangedPayload:
		change.ChangeType = domain.ChangeTypeStatus
		change.OldValue, change.NewValue = p.OldStatus, p.NewStatus
	case TicketPriorityChangedPayload:
		change.ChangeType = domain.ChangeTypePriority
		change.OldValue, change.NewValue = string(p.OldPriority), string(p.NewPriority)
	default:
		return domain.TicketChange{}, false
	}
	return change, true
}
