package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/spark-support/internal/conversation"
	"github.com/spec-kit/spark-support/internal/domain"
	"github.com/spec-kit/spark-support/internal/priority"
	"github.com/spec-kit/spark-support/internal/prompt"
	"github.com/spec-kit/spark-support/internal/render"
	"github.com/spec-kit/spark-support/internal/repository"
	"github.com/spec-kit/spark-support/internal/sparkai"
	"github.com/spec-kit/spark-support/internal/translate"
	apperrors "github.com/spec-kit/spark-support/pkg/util/errorutil"
)

// User-facing validation texts.
const (
	EmptyReplyMessage       = "Bitte gib eine Antwort ein, bevor du sie sendest."
	MissingSelectionMessage = "Bitte geben Sie zuerst eine gültige Ticket ID ein"
)

// AssistantClient is the endpoint surface used by the services.
type AssistantClient interface {
	Chat(ctx context.Context, question, sessionID string, history []domain.ConversationMessage) (string, error)
	HomeChat(ctx context.Context, question string, history []domain.ConversationMessage) (string, error)
	PredictPriority(ctx context.Context, payload sparkai.PriorityPayload) (domain.PriorityPrediction, error)
	Translate(ctx context.Context, subject, description string) (translate.Result, error)
	UpgradePath(ctx context.Context, from, to, addon string) (string, error)
}

// SessionProvider hands out the per-device chat memory id.
type SessionProvider interface {
	SessionID(ctx context.Context, device string) string
}

// AssistantService owns the conversations and runs analyses against the
// chat and priority endpoints.
type AssistantService struct {
	client   AssistantClient
	tickets  repository.TicketRepository
	sessions SessionProvider
	logger   *zap.Logger
	markdown bool
	demo     *domain.Ticket

	mu            sync.RWMutex
	conversations map[string]*conversation.Conversation
}

// AssistantDependencies bundles collaborators for the assistant service.
type AssistantDependencies struct {
	Client   AssistantClient
	Tickets  repository.TicketRepository
	Sessions SessionProvider
	Logger   *zap.Logger
	// RenderMarkdown adds an HTML rendition to every answer.
	RenderMarkdown bool
	Demo           *domain.Ticket
}

// NewAssistantService constructs the service.
func NewAssistantService(deps AssistantDependencies) *AssistantService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AssistantService{
		client:        deps.Client,
		tickets:       deps.Tickets,
		sessions:      deps.Sessions,
		logger:        logger,
		markdown:      deps.RenderMarkdown,
		demo:          deps.Demo,
		conversations: make(map[string]*conversation.Conversation),
	}
}

// SelectInput picks what a conversation is about. TicketID wins over a
// bare description; Description overrides the ticket's own text.
type SelectInput struct {
	TicketID    string
	Description string
	// Demo selects the bundled demo ticket.
	Demo bool
}

// ErrorBody is a failure reported inside a successful response.
type ErrorBody struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// Answer is a normalized endpoint answer.
type Answer struct {
	Text string `json:"text"`
	HTML string `json:"html,omitempty"`
}

// ChatOutcome is the chat half of an analysis.
type ChatOutcome struct {
	Answer *Answer    `json:"answer,omitempty"`
	Error  *ErrorBody `json:"error,omitempty"`
}

// PriorityOutcome is the priority half of an analysis.
type PriorityOutcome struct {
	Prediction *domain.PriorityPrediction `json:"prediction,omitempty"`
	Color      *priority.Color            `json:"color,omitempty"`
	Error      *ErrorBody                 `json:"error,omitempty"`
}

// AnalysisResult reports chat and priority independently.
type AnalysisResult struct {
	ConversationID string           `json:"conversation_id"`
	InitialPrompt  bool             `json:"initial_prompt"`
	Chat           ChatOutcome      `json:"chat"`
	Priority       *PriorityOutcome `json:"priority,omitempty"`
}

// DemoTicket returns the bundled demo ticket, if one was loaded.
func (s *AssistantService) DemoTicket() (domain.Ticket, bool) {
	if s.demo == nil {
		return domain.Ticket{}, false
	}
	return *s.demo, true
}

// StartConversation creates a conversation for a ticket or description.
func (s *AssistantService) StartConversation(in SelectInput) (conversation.State, error) {
	ticket, description, err := s.resolve(in)
	if err != nil {
		return conversation.State{}, err
	}
	conv := conversation.New(uuid.NewString(), ticket, description)

	s.mu.Lock()
	s.conversations[conv.ID()] = conv
	s.mu.Unlock()

	s.logger.Debug("conversation started", zap.String("conversation_id", conv.ID()))
	return conv.State(), nil
}

// ResetConversation points an existing conversation at a new selection,
// superseding its in-flight user call.
func (s *AssistantService) ResetConversation(id string, in SelectInput) (conversation.State, error) {
	conv, err := s.conversation(id)
	if err != nil {
		return conversation.State{}, err
	}
	ticket, description, err := s.resolve(in)
	if err != nil {
		return conversation.State{}, err
	}
	conv.Reset(ticket, description)
	return conv.State(), nil
}

// Conversation returns a snapshot.
func (s *AssistantService) Conversation(id string) (conversation.State, error) {
	conv, err := s.conversation(id)
	if err != nil {
		return conversation.State{}, err
	}
	return conv.State(), nil
}

// EndConversation cancels in-flight calls and forgets the conversation.
func (s *AssistantService) EndConversation(id string) error {
	s.mu.Lock()
	conv, ok := s.conversations[id]
	delete(s.conversations, id)
	s.mu.Unlock()
	if !ok {
		return apperrors.NewNotFound("conversation", map[string]any{"id": id})
	}
	conv.Close()
	return nil
}

// SweepIdle ends every conversation inactive since before now-maxIdle and
// reports how many were removed.
func (s *AssistantService) SweepIdle(now time.Time, maxIdle time.Duration) int {
	cutoff := now.Add(-maxIdle)

	s.mu.Lock()
	var idle []*conversation.Conversation
	for id, conv := range s.conversations {
		if conv.LastActive().Before(cutoff) {
			idle = append(idle, conv)
			delete(s.conversations, id)
		}
	}
	s.mu.Unlock()

	for _, conv := range idle {
		conv.Close()
	}
	if len(idle) > 0 {
		s.logger.Debug("idle conversations removed", zap.Int("count", len(idle)))
	}
	return len(idle)
}

// Analyze sends the next analysis turn. The priority and chat calls run
// concurrently; either may fail without affecting the other. A superseded
// analysis returns CANCELLED.
func (s *AssistantService) Analyze(ctx context.Context, deviceID, id string, description *string) (AnalysisResult, error) {
	conv, err := s.conversation(id)
	if err != nil {
		return AnalysisResult{}, err
	}
	if description != nil {
		conv.SetDescription(*description)
	}
	if strings.TrimSpace(conv.Description()) == "" {
		return AnalysisResult{}, apperrors.NewValidationError("description required", map[string]any{"field": "description"})
	}

	turn := conv.Begin(ctx, conversation.User)
	defer turn.Done()
	prep := conv.Prepare()
	sessionID := s.sessions.SessionID(turn.Ctx, deviceID)

	var (
		wg          sync.WaitGroup
		answer      string
		chatErr     error
		prediction  domain.PriorityPrediction
		priorityErr error
	)
	if prep.Ticket != nil {
		payload := sparkai.PriorityPayloadFor(*prep.Ticket, conv.Description())
		wg.Add(1)
		go func() {
			defer wg.Done()
			prediction, priorityErr = s.client.PredictPriority(turn.Ctx, payload)
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		answer, chatErr = s.client.Chat(turn.Ctx, prep.Question, sessionID, prep.History)
	}()
	wg.Wait()

	if !turn.Current() || apperrors.IsCancelled(chatErr) {
		s.logger.Debug("analysis superseded", zap.String("conversation_id", id))
		return AnalysisResult{}, apperrors.NewCancelled(context.Canceled)
	}

	result := AnalysisResult{ConversationID: id, InitialPrompt: prep.Initial}
	if chatErr != nil {
		s.logFailure("chat", id, chatErr)
		result.Chat.Error = errorBody(chatErr)
	} else {
		ans := s.answer(answer)
		if err := conv.CommitChat(turn, conversation.ChatResult{
			Question:   prep.Question,
			Answer:     ans.Text,
			AnswerHTML: ans.HTML,
			Initial:    prep.Initial,
		}); err != nil {
			return AnalysisResult{}, err
		}
		result.Chat.Answer = &ans
	}

	if prep.Ticket != nil {
		outcome := &PriorityOutcome{}
		if priorityErr != nil {
			s.logFailure("priority", id, priorityErr)
			outcome.Error = errorBody(priorityErr)
		} else if err := conv.CommitPriority(turn, prediction); err == nil {
			color := priority.ColorFor(prediction.Tier)
			outcome.Prediction = &prediction
			outcome.Color = &color
		} else {
			return AnalysisResult{}, err
		}
		result.Priority = outcome
	}
	return result, nil
}

// Reply sends a follow-up message in an existing conversation.
func (s *AssistantService) Reply(ctx context.Context, deviceID, id, message string) (Answer, error) {
	conv, err := s.conversation(id)
	if err != nil {
		return Answer{}, err
	}
	text := strings.TrimSpace(message)
	if text == "" {
		return Answer{}, apperrors.NewValidationError(EmptyReplyMessage, map[string]any{"field": "message"})
	}

	turn := conv.Begin(ctx, conversation.User)
	defer turn.Done()
	sessionID := s.sessions.SessionID(turn.Ctx, deviceID)

	raw, err := s.client.Chat(turn.Ctx, text, sessionID, conv.History())
	if err != nil {
		if !apperrors.IsCancelled(err) {
			s.logFailure("chat", id, err)
		}
		return Answer{}, cancelledOr(turn, err)
	}
	ans := s.answer(raw)
	if err := conv.CommitChat(turn, conversation.ChatResult{Question: text, Answer: ans.Text, AnswerHTML: ans.HTML}); err != nil {
		return Answer{}, err
	}
	return ans, nil
}

// Background runs a speculative analysis on the background lineage. It
// never cancels or is cancelled by user calls and does not touch history.
func (s *AssistantService) Background(ctx context.Context, deviceID, id string) (Answer, error) {
	conv, err := s.conversation(id)
	if err != nil {
		return Answer{}, err
	}

	turn := conv.Begin(ctx, conversation.Background)
	defer turn.Done()
	question := prompt.BuildInitialPrompt(prompt.BuildContext(conv.Ticket(), conv.Description()))
	sessionID := s.sessions.SessionID(turn.Ctx, deviceID)

	raw, err := s.client.Chat(turn.Ctx, question, sessionID, nil)
	if err != nil {
		if !apperrors.IsCancelled(err) {
			s.logFailure("background chat", id, err)
		}
		return Answer{}, cancelledOr(turn, err)
	}
	ans := s.answer(raw)
	if err := conv.CommitBackground(turn, ans.Text); err != nil {
		return Answer{}, err
	}
	return ans, nil
}

// ChatHome answers a free question. history is held by the client; the
// current question is appended as the last user turn.
func (s *AssistantService) ChatHome(ctx context.Context, question string, history []domain.ConversationMessage) (Answer, error) {
	q := strings.TrimSpace(question)
	if q == "" {
		return Answer{}, apperrors.NewValidationError("question required", map[string]any{"field": "question"})
	}
	full := make([]domain.ConversationMessage, 0, len(history)+1)
	full = append(full, history...)
	full = append(full, domain.ConversationMessage{Role: domain.RoleUser, Content: q})

	raw, err := s.client.HomeChat(ctx, q, full)
	if err != nil {
		return Answer{}, err
	}
	return s.answer(strings.TrimSpace(raw)), nil
}

// PriorityInput selects a stored ticket or carries the fields directly.
type PriorityInput struct {
	TicketID    string
	Description string
	Product     string
	SupportType string
	Status      string
}

// PredictPriority classifies one ticket outside of a conversation.
func (s *AssistantService) PredictPriority(ctx context.Context, in PriorityInput) (PriorityOutcome, error) {
	var payload sparkai.PriorityPayload
	if in.TicketID != "" {
		ticket, ok := s.tickets.FindByID(in.TicketID)
		if !ok {
			return PriorityOutcome{}, apperrors.NewNotFound("ticket", map[string]any{"id": in.TicketID})
		}
		description := in.Description
		if strings.TrimSpace(description) == "" {
			description = ticket.Description
		}
		payload = sparkai.PriorityPayloadFor(ticket, description)
	} else {
		if strings.TrimSpace(in.Description) == "" {
			return PriorityOutcome{}, apperrors.NewValidationError("description required", map[string]any{"field": "description"})
		}
		payload = sparkai.PriorityPayloadFor(domain.Ticket{
			Product: in.Product,
			Status:  in.Status,
			Raw:     map[string]any{domain.SupportTypeKey: in.SupportType},
		}, in.Description)
	}

	pred, err := s.client.PredictPriority(ctx, payload)
	if err != nil {
		return PriorityOutcome{}, err
	}
	color := priority.ColorFor(pred.Tier)
	return PriorityOutcome{Prediction: &pred, Color: &color}, nil
}

func (s *AssistantService) resolve(in SelectInput) (*domain.Ticket, string, error) {
	var ticket *domain.Ticket
	switch {
	case in.Demo:
		if s.demo == nil {
			return nil, "", apperrors.NewNotFound("demo ticket", nil)
		}
		t := *s.demo
		ticket = &t
	case strings.TrimSpace(in.TicketID) != "":
		t, ok := s.tickets.FindByID(in.TicketID)
		if !ok {
			return nil, "", apperrors.NewNotFound("ticket", map[string]any{"id": strings.TrimSpace(in.TicketID)})
		}
		ticket = &t
	}

	description := in.Description
	if strings.TrimSpace(description) == "" && ticket != nil {
		description = ticket.Description
	}
	if ticket == nil && strings.TrimSpace(description) == "" {
		return nil, "", apperrors.NewValidationError(MissingSelectionMessage, map[string]any{"fields": []string{"ticket_id", "description"}})
	}
	return ticket, description, nil
}

func (s *AssistantService) conversation(id string) (*conversation.Conversation, error) {
	s.mu.RLock()
	conv, ok := s.conversations[id]
	s.mu.RUnlock()
	if !ok {
		return nil, apperrors.NewNotFound("conversation", map[string]any{"id": id})
	}
	return conv, nil
}

func (s *AssistantService) answer(text string) Answer {
	ans := Answer{Text: text}
	if !s.markdown {
		return ans
	}
	html, err := render.HTML(text)
	if err != nil {
		s.logger.Warn("answer markdown not rendered", zap.Error(err))
		return ans
	}
	ans.HTML = html
	return ans
}

func (s *AssistantService) logFailure(call, conversationID string, err error) {
	if apperrors.IsCancelled(err) {
		s.logger.Debug(call+" call cancelled", zap.String("conversation_id", conversationID))
		return
	}
	s.logger.Warn(call+" call failed", zap.String("conversation_id", conversationID), zap.Error(err))
}

// cancelledOr maps any failure of a superseded turn to CANCELLED.
func cancelledOr(turn *conversation.Turn, err error) error {
	if !turn.Current() || apperrors.IsCancelled(err) {
		return apperrors.NewCancelled(err)
	}
	return err
}

func errorBody(err error) *ErrorBody {
	de := apperrors.ToDomainError(err)
	return &ErrorBody{Code: de.Code, Message: de.Message, Details: de.Details}
}
