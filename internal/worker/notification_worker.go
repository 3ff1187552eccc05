package worker

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/spark-support/internal/events"
)

// Registrar subscribes its handlers to a dispatcher.
type Registrar interface {
	RegisterHandlers()
}

// StartNotificationWorker registers notification handlers.
func StartNotificationWorker(r Registrar) {
	if r == nil {
		return
	}
	r.RegisterHandlers()
}

// AsyncHandler moves slow handlers, such as the Kafka export, off the
// request path. Events are dropped with a warning when the queue is full.
type AsyncHandler struct {
	name    string
	handler events.EventHandler
	logger  *zap.Logger
	timeout time.Duration

	queue chan events.Event
	wg    sync.WaitGroup
	once  sync.Once
}

// NewAsyncHandler starts one goroutine draining a queue of size events into
// handler. Each call gets its own timeout.
func NewAsyncHandler(name string, handler events.EventHandler, size int, timeout time.Duration, logger *zap.Logger) *AsyncHandler {
	if size <= 0 {
		size = 64
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &AsyncHandler{
		name:    name,
		handler: handler,
		logger:  logger,
		timeout: timeout,
		queue:   make(chan events.Event, size),
	}
	h.wg.Add(1)
	go h.run()
	return h
}

// Handle enqueues event. It never blocks and never fails.
func (h *AsyncHandler) Handle(_ context.Context, event events.Event) error {
	select {
	case h.queue <- event:
	default:
		h.logger.Warn("event queue full; dropping event",
			zap.String("handler", h.name),
			zap.String("event_type", string(event.Type)),
			zap.String("ticket_id", event.TicketID))
	}
	return nil
}

func (h *AsyncHandler) run() {
	defer h.wg.Done()
	for event := range h.queue {
		h.dispatch(event)
	}
}

func (h *AsyncHandler) dispatch(event events.Event) {
	ctx := context.Background()
	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}
	if err := h.handler(ctx, event); err != nil {
		h.logger.Warn("async event handler failed",
			zap.String("handler", h.name),
			zap.String("event_type", string(event.Type)),
			zap.String("ticket_id", event.TicketID),
			zap.Error(err))
	}
}

// Close stops accepting events and waits until the queue is drained.
// Handle must not be called after Close.
func (h *AsyncHandler) Close() {
	h.once.Do(func() { close(h.queue) })
	h.wg.Wait()
}
