package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/spec-kit/spark-support/internal/domain"
	"github.com/spec-kit/spark-support/internal/events"
	"github.com/spec-kit/spark-support/internal/repository"
	apperrors "github.com/spec-kit/spark-support/pkg/util/errorutil"
)

type memoryChanges struct {
	mu      sync.Mutex
	changes []domain.TicketChange
	err     error
}

func (m *memoryChanges) Create(_ context.Context, change *domain.TicketChange) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.changes = append(m.changes, *change)
	return nil
}

func (m *memoryChanges) ListByTicket(_ context.Context, ticketID string, _ int) ([]domain.TicketChange, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.TicketChange
	for _, c := range m.changes {
		if domain.NormalizeTicketID(c.TicketID) == domain.NormalizeTicketID(ticketID) {
			out = append(out, c)
		}
	}
	return out, nil
}

func strPtr(s string) *string { return &s }

func newTicketFixture() (*TicketService, *memoryChanges, *[]events.Event) {
	tickets := repository.NewTicketRepository([]domain.Ticket{
		{ID: "CS-1", Subject: "VPN", Description: "VPN bricht ab", Priority: domain.PriorityLow, Status: "Open"},
		{ID: "CS-2", Subject: "Mail", Description: "Postfach voll", Priority: domain.PriorityHigh, Status: "Open"},
	})
	changes := &memoryChanges{}
	dispatcher := events.NewInMemoryDispatcher()
	var seen []events.Event
	record := func(_ context.Context, e events.Event) error {
		seen = append(seen, e)
		return nil
	}
	dispatcher.Subscribe(events.EventTicketStatusChanged, record)
	dispatcher.Subscribe(events.EventTicketPriorityChanged, record)

	NewNotificationService(NotificationDependencies{Dispatcher: dispatcher, HistoryRepo: changes}).RegisterHandlers()

	svc := NewTicketService(TicketDependencies{TicketRepo: tickets, ChangeRepo: changes, Dispatcher: dispatcher})
	return svc, changes, &seen
}

func TestUpdateTicketPublishesEffectiveChanges(t *testing.T) {
	svc, changes, seen := newTicketFixture()

	ticket, updated, err := svc.UpdateTicket(context.Background(), "dev-7", "cs-1", TicketUpdateInput{
		Status:   strPtr(" Closed "),
		Priority: strPtr("HIGH priority"),
	})
	if err != nil || !updated {
		t.Fatalf("update: %v %v", updated, err)
	}
	if ticket.Status != "Closed" || ticket.Priority != domain.PriorityHigh {
		t.Fatalf("ticket = %+v", ticket)
	}
	if len(*seen) != 2 {
		t.Fatalf("events = %d", len(*seen))
	}
	for _, e := range *seen {
		if e.ID == "" || e.Timestamp.IsZero() || e.Actor.DeviceID != "dev-7" {
			t.Fatalf("event = %+v", e)
		}
	}

	history, err := svc.History(context.Background(), "CS-1", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(history) != 2 || history[0].ChangeType != domain.ChangeTypeStatus || history[0].NewValue != "Closed" {
		t.Fatalf("history = %+v", history)
	}
	if history[1].OldValue != "Low" || history[1].NewValue != "High" {
		t.Fatalf("priority change = %+v", history[1])
	}

	// Same values again: nothing changes, nothing is published.
	_, updated, err = svc.UpdateTicket(context.Background(), "dev-7", "CS-1", TicketUpdateInput{Status: strPtr("Closed")})
	if err != nil || !updated {
		t.Fatalf("repeat update: %v %v", updated, err)
	}
	if len(*seen) != 2 || len(changes.changes) != 2 {
		t.Fatalf("unchanged update published events")
	}
}

func TestUpdateUnknownTicketIsNoOp(t *testing.T) {
	svc, _, seen := newTicketFixture()
	_, updated, err := svc.UpdateTicket(context.Background(), "dev", "CS-404", TicketUpdateInput{Status: strPtr("Closed")})
	if err != nil || updated {
		t.Fatalf("missing ticket: updated=%v err=%v", updated, err)
	}
	if len(*seen) != 0 {
		t.Fatal("no-op update published events")
	}
}

func TestUpdateTicketValidation(t *testing.T) {
	svc, _, _ := newTicketFixture()
	cases := []struct {
		name  string
		input TicketUpdateInput
	}{
		{"empty", TicketUpdateInput{}},
		{"blank status", TicketUpdateInput{Status: strPtr("  ")}},
		{"bad priority", TicketUpdateInput{Priority: strPtr("urgent-ish")}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := svc.UpdateTicket(context.Background(), "dev", "CS-1", tc.input)
			if !apperrors.HasCode(err, apperrors.CodeValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestHistoryFailureDoesNotFailUpdate(t *testing.T) {
	svc, changes, _ := newTicketFixture()
	changes.err = errors.New("db down")
	if _, updated, err := svc.UpdateTicket(context.Background(), "dev", "CS-2", TicketUpdateInput{Priority: strPtr("Low")}); err != nil || !updated {
		t.Fatalf("update: %v %v", updated, err)
	}
}

func TestHistoryRequiresStore(t *testing.T) {
	svc := NewTicketService(TicketDependencies{TicketRepo: repository.NewTicketRepository(nil)})
	if _, err := svc.History(context.Background(), "CS-1", 10); !apperrors.HasCode(err, apperrors.CodeConfigurationMissing) {
		t.Fatalf("expected configuration missing, got %v", err)
	}
}

func TestGetAndSearch(t *testing.T) {
	svc, _, _ := newTicketFixture()
	if _, err := svc.Get("missing"); !apperrors.HasCode(err, apperrors.CodeNotFound) {
		t.Fatalf("get missing: %v", err)
	}
	if got := svc.Search("postfach", 0); len(got) != 1 || got[0].ID != "CS-2" {
		t.Fatalf("search = %+v", got)
	}
}

func TestExportReceivesChanges(t *testing.T) {
	dispatcher := events.NewInMemoryDispatcher()
	var exported []events.EventType
	NewNotificationService(NotificationDependencies{
		Dispatcher: dispatcher,
		Export: func(_ context.Context, e events.Event) error {
			exported = append(exported, e.Type)
			return nil
		},
	}).RegisterHandlers()

	svc := NewTicketService(TicketDependencies{
		TicketRepo: repository.NewTicketRepository([]domain.Ticket{{ID: "A", Priority: domain.PriorityLow, Status: "Open"}}),
		Dispatcher: dispatcher,
	})
	if _, _, err := svc.UpdateTicket(context.Background(), "dev", "A", TicketUpdateInput{Priority: strPtr("Critical")}); err != nil {
		t.Fatal(err)
	}
	if len(exported) != 1 || exported[0] != events.EventTicketPriorityChanged {
		t.Fatalf("exported = %v", exported)
	}
}
