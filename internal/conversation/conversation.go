// Package conversation holds the state of one ticket analysis: chat history,
// whether the instruction preamble was already sent, and the user and
// background cancellation lineages.
package conversation

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/spec-kit/spark-support/internal/domain"
	"github.com/spec-kit/spark-support/internal/prompt"
	apperrors "github.com/spec-kit/spark-support/pkg/util/errorutil"
)

// Kind selects a lineage.
type Kind int

const (
	User Kind = iota
	Background
)

func (k Kind) String() string {
	if k == Background {
		return "background"
	}
	return "user"
}

// Conversation is safe for concurrent use. Results of superseded calls are
// rejected by the Commit methods and never change the state.
type Conversation struct {
	id string

	mu               sync.Mutex
	ticket           *domain.Ticket
	description      string
	history          []domain.ConversationMessage
	initialSent      bool
	answer           string
	answerHTML       string
	prediction       *domain.PriorityPrediction
	backgroundAnswer string
	updatedAt        time.Time
	lastActive       time.Time

	user       Lineage
	background Lineage
}

// State is a copy of a conversation for rendering.
type State struct {
	ID               string                       `json:"id"`
	Ticket           *domain.Ticket               `json:"ticket,omitempty"`
	Description      string                       `json:"description"`
	History          []domain.ConversationMessage `json:"history"`
	InitialSent      bool                         `json:"initial_prompt_sent"`
	Answer           string                       `json:"answer,omitempty"`
	AnswerHTML       string                       `json:"answer_html,omitempty"`
	Priority         *domain.PriorityPrediction   `json:"priority,omitempty"`
	BackgroundAnswer string                       `json:"background_answer,omitempty"`
	UpdatedAt        time.Time                    `json:"updated_at"`
}

// New starts a conversation about ticket, or about a free description when
// ticket is nil.
func New(id string, ticket *domain.Ticket, description string) *Conversation {
	now := time.Now()
	return &Conversation{
		id:          id,
		ticket:      cloneTicket(ticket),
		description: description,
		updatedAt:   now,
		lastActive:  now,
	}
}

// ID returns the conversation id.
func (c *Conversation) ID() string { return c.id }

// State returns a snapshot.
func (c *Conversation) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	history := make([]domain.ConversationMessage, len(c.history))
	copy(history, c.history)
	var pred *domain.PriorityPrediction
	if c.prediction != nil {
		p := *c.prediction
		pred = &p
	}
	return State{
		ID:               c.id,
		Ticket:           cloneTicket(c.ticket),
		Description:      c.description,
		History:          history,
		InitialSent:      c.initialSent,
		Answer:           c.answer,
		AnswerHTML:       c.answerHTML,
		Priority:         pred,
		BackgroundAnswer: c.backgroundAnswer,
		UpdatedAt:        c.updatedAt,
	}
}

// Ticket returns a copy of the selected ticket, or nil.
func (c *Conversation) Ticket() *domain.Ticket {
	c.mu.Lock()
	defer c.mu.Unlock()
	return cloneTicket(c.ticket)
}

// Description returns the live description text.
func (c *Conversation) Description() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.description
}

// SetDescription replaces the live description, e.g. after user edits.
func (c *Conversation) SetDescription(description string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.description = description
	c.updatedAt = time.Now()
}

// Reset selects a new ticket or description. It supersedes the in-flight
// user call and clears history and the preamble flag.
func (c *Conversation) Reset(ticket *domain.Ticket, description string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.user.Supersede()
	c.ticket = cloneTicket(ticket)
	c.description = description
	c.history = nil
	c.initialSent = false
	c.answer = ""
	c.answerHTML = ""
	c.prediction = nil
	c.updatedAt = time.Now()
	c.lastActive = c.updatedAt
}

// Prepared is everything an analysis call needs, read under one lock.
type Prepared struct {
	Ticket   *domain.Ticket
	Question string
	History  []domain.ConversationMessage
	// Initial is set when Question carries the instruction preamble.
	Initial bool
}

// Prepare returns what the next analysis sends: the full preamble with
// ticket context until one round trip succeeded, then the trimmed
// description alone.
func (c *Conversation) Prepare() Prepared {
	c.mu.Lock()
	defer c.mu.Unlock()

	history := make([]domain.ConversationMessage, len(c.history))
	copy(history, c.history)
	p := Prepared{Ticket: cloneTicket(c.ticket), History: history}
	if c.initialSent {
		p.Question = strings.TrimSpace(c.description)
	} else {
		p.Question = prompt.BuildInitialPrompt(prompt.BuildContext(c.ticket, c.description))
		p.Initial = true
	}
	return p
}

// NextQuestion is Prepare().Question.
func (c *Conversation) NextQuestion() string {
	return c.Prepare().Question
}

// History returns a copy of the turns sent so far.
func (c *Conversation) History() []domain.ConversationMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]domain.ConversationMessage, len(c.history))
	copy(out, c.history)
	return out
}

// Turn is one call started on a lineage.
type Turn struct {
	Ctx  context.Context
	Kind Kind

	conv *Conversation
	tok  Token
	done func()
}

// Begin starts a call on the chosen lineage, cancelling its predecessor.
// Done must be called when the turn is over.
func (c *Conversation) Begin(ctx context.Context, kind Kind) *Turn {
	c.mu.Lock()
	c.lastActive = time.Now()
	c.mu.Unlock()
	ctx, tok, done := c.lineage(kind).Begin(ctx)
	return &Turn{Ctx: ctx, Kind: kind, conv: c, tok: tok, done: done}
}

// Current reports whether the turn has not been superseded.
func (t *Turn) Current() bool {
	return t.conv.lineage(t.Kind).IsCurrent(t.tok)
}

// Done releases the turn's context.
func (t *Turn) Done() { t.done() }

// ChatResult is a finished chat round trip.
type ChatResult struct {
	Question   string
	Answer     string
	AnswerHTML string
	// Initial marks the round trip that carried the instruction preamble.
	Initial bool
}

// CommitChat records a user-lineage round trip. A superseded turn yields
// CANCELLED and leaves the conversation untouched.
func (c *Conversation) CommitChat(t *Turn, res ChatResult) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !t.Current() {
		return apperrors.NewCancelled(context.Canceled)
	}
	c.history = append(c.history,
		domain.ConversationMessage{Role: domain.RoleUser, Content: res.Question},
		domain.ConversationMessage{Role: domain.RoleAPI, Content: res.Answer},
	)
	if res.Initial {
		c.initialSent = true
	}
	c.answer = res.Answer
	c.answerHTML = res.AnswerHTML
	c.updatedAt = time.Now()
	return nil
}

// CommitPriority records a prediction under the same rule as CommitChat.
func (c *Conversation) CommitPriority(t *Turn, pred domain.PriorityPrediction) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !t.Current() {
		return apperrors.NewCancelled(context.Canceled)
	}
	c.prediction = &pred
	c.updatedAt = time.Now()
	return nil
}

// CommitBackground records a background answer. It never touches history
// or the user-visible answer.
func (c *Conversation) CommitBackground(t *Turn, answer string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !t.Current() {
		return apperrors.NewCancelled(context.Canceled)
	}
	c.backgroundAnswer = answer
	c.updatedAt = time.Now()
	return nil
}

// LastActive is when the conversation was created, reset or last began a
// call.
func (c *Conversation) LastActive() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastActive
}

// Close supersedes both lineages.
func (c *Conversation) Close() {
	c.user.Supersede()
	c.background.Supersede()
}

func (c *Conversation) lineage(kind Kind) *Lineage {
	if kind == Background {
		return &c.background
	}
	return &c.user
}

func cloneTicket(t *domain.Ticket) *domain.Ticket {
	if t == nil {
		return nil
	}
	cp := *t
	return &cp
}
