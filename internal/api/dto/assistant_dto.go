package dto

import "github.com/spec-kit/spark-support/internal/domain"

// StartConversationRequest selects a ticket, the demo ticket or a free
// description.
type StartConversationRequest struct {
	TicketID    string `json:"ticket_id" validate:"omitempty,max=128"`
	Description string `json:"description" validate:"omitempty,max=20000"`
	Demo        bool   `json:"demo"`
}

// AnalyzeRequest optionally replaces the conversation's description.
type AnalyzeRequest struct {
	Description *string `json:"description" validate:"omitempty,max=20000"`
}

// ReplyRequest payload.
type ReplyRequest struct {
	Message string `json:"message" validate:"max=20000"`
}

// HistoryMessage is one client-held turn of the home chat.
type HistoryMessage struct {
	Role    string `json:"role" validate:"required,oneof=userMessage apiMessage"`
	Content string `json:"content"`
}

// ChatRequest payload for the home chat.
type ChatRequest struct {
	Question string           `json:"question" validate:"max=20000"`
	History  []HistoryMessage `json:"history" validate:"omitempty,max=200,dive"`
}

// Messages converts the history for the service layer.
func (r ChatRequest) Messages() []domain.ConversationMessage {
	out := make([]domain.ConversationMessage, 0, len(r.History))
	for _, m := range r.History {
		out = append(out, domain.ConversationMessage{Role: domain.MessageRole(m.Role), Content: m.Content})
	}
	return out
}

// TranslateRequest payload.
type TranslateRequest struct {
	Subject     string `json:"subject" validate:"max=2000"`
	Description string `json:"description" validate:"max=20000"`
}

// PriorityRequest selects a stored ticket or carries its fields.
type PriorityRequest struct {
	TicketID    string `json:"ticket_id" validate:"omitempty,max=128"`
	Description string `json:"description" validate:"max=20000"`
	Product     string `json:"product" validate:"max=256"`
	SupportType string `json:"support_type" validate:"max=256"`
	Status      string `json:"status" validate:"max=64"`
}

// UpgradePathRequest is the upgrade form.
type UpgradePathRequest struct {
	From  string `json:"from" validate:"required,max=64"`
	To    string `json:"to" validate:"required,max=64"`
	Addon string `json:"addon" validate:"max=256"`
}
