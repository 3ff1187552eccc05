package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/spec-kit/spark-support/internal/domain"
)

func TestDispatcherRunsAllHandlers(t *testing.T) {
	d := NewInMemoryDispatcher()
	var calls int
	boom := errors.New("boom")
	d.Subscribe(EventTicketStatusChanged, func(context.Context, Event) error { calls++; return boom })
	d.Subscribe(EventTicketStatusChanged, func(context.Context, Event) error { calls++; return nil })
	d.Subscribe(EventTicketPriorityChanged, func(context.Context, Event) error { calls += 10; return nil })

	err := d.Publish(context.Background(), Event{Type: EventTicketStatusChanged})
	if !errors.Is(err, boom) {
		t.Fatalf("expected joined handler error, got %v", err)
	}
	if calls != 2 {
		t.Fatalf("calls = %d, want 2", calls)
	}
}

func TestDispatcherIsolatesPanics(t *testing.T) {
	d := NewInMemoryDispatcher()
	var reached bool
	d.Subscribe(EventTicketPriorityChanged, func(context.Context, Event) error { panic("sink exploded") })
	d.Subscribe(EventTicketPriorityChanged, func(context.Context, Event) error { reached = true; return nil })

	err := d.Publish(context.Background(), Event{Type: EventTicketPriorityChanged})
	if err == nil || !reached {
		t.Fatalf("err=%v reached=%v", err, reached)
	}
}

func TestEventChange(t *testing.T) {
	ts := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	ev := Event{
		Type:      EventTicketPriorityChanged,
		TicketID:  "CS-1",
		Actor:     Actor{Type: domain.SubjectTypeDevice, DeviceID: "tab"},
		Timestamp: ts,
		Payload:   TicketPriorityChangedPayload{OldPriority: domain.PriorityLow, NewPriority: domain.PriorityHigh},
	}
	change, ok := ev.Change()
	if !ok {
		t.Fatal("priority event should map to a change")
	}
	if change.ChangeType != domain.ChangeTypePriority || change.OldValue != "Low" || change.NewValue != "High" || change.DeviceID != "tab" {
		t.Fatalf("change = %+v", change)
	}
	if _, ok := (Event{Payload: "other"}).Change(); ok {
		t.Fatal("unknown payload should not map")
	}
}

type fakeWriter struct {
	msgs   []kafka.Message
	closed bool
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return nil
}

func TestKafkaPublisherKeysByTicket(t *testing.T) {
	w := &fakeWriter{}
	p := NewKafkaPublisherWithWriter(w)
	ev := Event{
		ID:       "e1",
		Type:     EventTicketStatusChanged,
		TicketID: "CS-7",
		Payload:  TicketStatusChangedPayload{OldStatus: "Open", NewStatus: "Closed"},
	}
	if err := p.Handle(context.Background(), ev); err != nil {
		t.Fatal(err)
	}
	if len(w.msgs) != 1 || string(w.msgs[0].Key) != "CS-7" {
		t.Fatalf("messages = %+v", w.msgs)
	}
	var decoded map[string]any
	if err := json.Unmarshal(w.msgs[0].Value, &decoded); err != nil {
		t.Fatal(err)
	}
	if decoded["type"] != string(EventTicketStatusChanged) {
		t.Fatalf("decoded = %v", decoded)
	}
	if err := p.Close(); err != nil || !w.closed {
		t.Fatal("close should reach the writer")
	}
}
