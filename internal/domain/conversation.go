package domain

// MessageRole tags who authored a conversation turn.
type MessageRole string

const (
	RoleUser MessageRole = "userMessage"
	RoleAPI  MessageRole = "apiMessage"
)

// ConversationMessage is one turn sent back to the chat endpoint as history.
type ConversationMessage struct {
	Role    MessageRole `json:"role"`
	Content string      `json:"content"`
}

// PriorityPrediction is the classified tier of a ticket. A nil Confidence
// means the endpoint sent none.
type PriorityPrediction struct {
	Tier       string   `json:"tier"`
	Confidence *float64 `json:"confidence,omitempty"`
}
