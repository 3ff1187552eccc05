package dto

import (
	"github.com/spec-kit/spark-support/internal/domain"
	"github.com/spec-kit/spark-support/internal/priority"
)

// UpdateTicketRequest payload. Absent fields are left alone.
type UpdateTicketRequest struct {
	Status   *string `json:"status" validate:"omitempty,max=64"`
	Priority *string `json:"priority" validate:"omitempty,max=64"`
}

// TicketSummary response for list views.
type TicketSummary struct {
	ID            string              `json:"id"`
	Subject       string              `json:"subject"`
	Product       string              `json:"product"`
	Priority      domain.PriorityTier `json:"priority"`
	PriorityColor priority.Color      `json:"priority_color"`
	Status        string              `json:"status"`
	Department    string              `json:"department"`
	Creation      string              `json:"creation"`
}

// TicketDetail response.
type TicketDetail struct {
	TicketSummary
	Description string         `json:"description"`
	Resolution  string         `json:"resolution"`
	SupportType string         `json:"support_type"`
	Raw         map[string]any `json:"raw"`
}

// TicketUpdateResponse reports whether a ticket existed to update.
type TicketUpdateResponse struct {
	Updated bool          `json:"updated"`
	Ticket  *TicketDetail `json:"ticket,omitempty"`
}

// NewTicketSummary maps a ticket.
func NewTicketSummary(t domain.Ticket) TicketSummary {
	return TicketSummary{
		ID:            t.ID,
		Subject:       t.Subject,
		Product:       t.Product,
		Priority:      t.Priority,
		PriorityColor: priority.ColorFor(string(t.Priority)),
		Status:        t.Status,
		Department:    t.Department,
		Creation:      t.Creation,
	}
}

// NewTicketDetail maps a ticket with its long fields.
func NewTicketDetail(t domain.Ticket) TicketDetail {
	supportType := t.SupportType()
	if supportType == "" {
		supportType = domain.UnknownValue
	}
	return TicketDetail{
		TicketSummary: NewTicketSummary(t),
		Description:   t.Description,
		Resolution:    t.Resolution,
		SupportType:   supportType,
		Raw:           t.Raw,
	}
}
