package sparkai

import (
	"context"
	"strings"

	"github.com/spec-kit/spark-support/internal/domain"
	"github.com/spec-kit/spark-support/internal/jsonvalue"
	"github.com/spec-kit/spark-support/internal/normalize"
	"github.com/spec-kit/spark-support/internal/priority"
	"github.com/spec-kit/spark-support/internal/prompt"
	"github.com/spec-kit/spark-support/internal/translate"
	apperrors "github.com/spec-kit/spark-support/pkg/util/errorutil"
)

// InvalidPriorityMessage is reported when the priority answer has no label.
const InvalidPriorityMessage = "Ungültige Antwort vom Priority Endpoint"

// DefaultSupportType is sent to the priority endpoint when a ticket has none.
const DefaultSupportType = "Technical Support"

// ChatRequest is the body of the support chat endpoint.
type ChatRequest struct {
	Question       string                       `json:"question"`
	OverrideConfig *OverrideConfig              `json:"overrideConfig,omitempty"`
	History        []domain.ConversationMessage `json:"history"`
}

// OverrideConfig carries the memory session for the chat endpoint.
type OverrideConfig struct {
	Memory MemoryConfig `json:"memory"`
}

// MemoryConfig names the endpoint-side memory slot.
type MemoryConfig struct {
	SessionID string `json:"sessionId"`
}

// HomeChatRequest is the body of the free chat endpoint.
type HomeChatRequest struct {
	Question string                       `json:"question"`
	History  []domain.ConversationMessage `json:"history,omitempty"`
}

// QuestionRequest is the body shared by translate and upgrade-path.
type QuestionRequest struct {
	Question string `json:"question"`
}

// PriorityPayload is the ticket-derived body of the priority endpoint.
type PriorityPayload struct {
	CaseDescription string `json:"Case Description"`
	Product         string `json:"Product"`
	SupportType     string `json:"Support Type"`
	Status          string `json:"Status"`
	CaseNumber      string `json:"Case Number,omitempty"`
	Subject         string `json:"Subject,omitempty"`
	Created         string `json:"created,omitempty"`
	AssignedTo      string `json:"assigned_to,omitempty"`
	Priority        string `json:"Priority,omitempty"`
	Department      string `json:"department,omitempty"`
}

// PriorityPayloadFor builds the payload from a ticket and the live
// description. Extended fields are included when present.
func PriorityPayloadFor(ticket domain.Ticket, description string) PriorityPayload {
	payload := PriorityPayload{
		CaseDescription: description,
		Product:         orDefault(ticket.Product, domain.UnknownValue),
		SupportType:     orDefault(ticket.SupportType(), DefaultSupportType),
		Status:          orDefault(ticket.Status, domain.TicketStatusOpen),
		CaseNumber:      ticket.ID,
		Subject:         ticket.Subject,
		Created:         ticket.Creation,
	}
	if assigned, ok := ticket.Raw["assigned_to"].(string); ok {
		payload.AssignedTo = assigned
	}
	if ticket.Department != domain.UnknownValue {
		payload.Department = ticket.Department
	}
	return payload
}

// Chat sends one support turn and returns the normalized answer.
func (c *Client) Chat(ctx context.Context, question, sessionID string, history []domain.ConversationMessage) (string, error) {
	if history == nil {
		history = []domain.ConversationMessage{}
	}
	req := ChatRequest{Question: question, History: history}
	if sessionID != "" {
		req.OverrideConfig = &OverrideConfig{Memory: MemoryConfig{SessionID: sessionID}}
	}
	v, err := c.postJSON(ctx, c.chat, req)
	if err != nil {
		return "", err
	}
	return normalize.Normalize(v), nil
}

// HomeChat sends a free-form question with client-held history.
func (c *Client) HomeChat(ctx context.Context, question string, history []domain.ConversationMessage) (string, error) {
	v, err := c.postJSON(ctx, c.homeChat, HomeChatRequest{Question: question, History: history})
	if err != nil {
		return "", err
	}
	return normalize.Normalize(v), nil
}

// PredictPriority classifies a ticket. The returned tier label is already
// normalized; an answer without a priority label is MALFORMED_RESPONSE.
func (c *Client) PredictPriority(ctx context.Context, payload PriorityPayload) (domain.PriorityPrediction, error) {
	v, err := c.postJSON(ctx, c.priority, payload)
	if err != nil {
		return domain.PriorityPrediction{}, err
	}

	obj, _ := v.(*jsonvalue.Object)
	var label string
	if raw, ok := obj.Get("priority"); ok {
		label, _ = raw.(string)
	}
	tier := priority.NormalizeLabel(label)
	if tier == "" {
		return domain.PriorityPrediction{}, apperrors.NewMalformedResponse(EndpointPriority, InvalidPriorityMessage, nil)
	}

	pred := domain.PriorityPrediction{Tier: tier}
	// Confidence outside [0,1] is treated as absent.
	if raw, ok := obj.Get("confidence"); ok {
		if f, ok := raw.(float64); ok && f >= 0 && f <= 1 {
			pred.Confidence = &f
		}
	}
	return pred, nil
}

// Translate asks for a German rendition of the ticket and parses the reply.
func (c *Client) Translate(ctx context.Context, subject, description string) (translate.Result, error) {
	question := prompt.BuildTranslateQuestion(subject, description)
	v, err := c.postJSON(ctx, c.translate, QuestionRequest{Question: question})
	if err != nil {
		return translate.Result{}, err
	}
	return translate.Parse(translate.ReplyText(v)), nil
}

// UpgradePath asks for the migration path between two product versions.
func (c *Client) UpgradePath(ctx context.Context, from, to, addon string) (string, error) {
	question := prompt.BuildUpgradeQuestion(from, to, addon)
	v, err := c.postJSON(ctx, c.upgradePath, QuestionRequest{Question: question})
	if err != nil {
		return "", err
	}
	return normalize.Normalize(v), nil
}

func orDefault(s, fallback string) string {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}
