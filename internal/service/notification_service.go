package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/spark-support/internal/events"
	"github.com/spec-kit/spark-support/internal/repository"
)

// NotificationService fans ticket change events out to the audit log, the
// change history table and the export topic.
type NotificationService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	history    repository.TicketChangeRepository
	export     events.EventHandler
}

// NotificationDependencies bundles the optional sinks.
type NotificationDependencies struct {
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
	// HistoryRepo records changes when Postgres is configured.
	HistoryRepo repository.TicketChangeRepository
	// Export receives every change, typically the Kafka publisher behind an
	// async queue.
	Export events.EventHandler
}

// NewNotificationService creates the service.
func NewNotificationService(deps NotificationDependencies) *NotificationService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{
		dispatcher: deps.Dispatcher,
		logger:     logger,
		history:    deps.HistoryRepo,
		export:     deps.Export,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventTicketStatusChanged, n.handleTicketStatusChanged)
	n.dispatcher.Subscribe(events.EventTicketPriorityChanged, n.handleTicketPriorityChanged)
}

func (n *NotificationService) handleTicketStatusChanged(ctx context.Context, event events.Event) error {
	n.logger.Info("TicketStatusChanged", zap.String("ticket_id", event.TicketID), zap.Any("payload", event.Payload))
	return n.fanOut(ctx, event)
}

func (n *NotificationService) handleTicketPriorityChanged(ctx context.Context, event events.Event) error {
	n.logger.Info("TicketPriorityChanged", zap.String("ticket_id", event.TicketID), zap.Any("payload", event.Payload))
	return n.fanOut(ctx, event)
}

func (n *NotificationService) fanOut(ctx context.Context, event events.Event) error {
	n.recordHistory(ctx, event)
	if n.export == nil {
		return nil
	}
	return n.export(ctx, event)
}

// recordHistory failures are logged only; the update itself already happened.
func (n *NotificationService) recordHistory(ctx context.Context, event events.Event) {
	if n.history == nil {
		return
	}
	change, ok := event.Change()
	if !ok {
		return
	}
	if err := n.history.Create(ctx, &change); err != nil {
		n.logger.Warn("ticket change not recorded",
			zap.String("ticket_id", event.TicketID),
			zap.String("change_type", string(change.ChangeType)),
			zap.Error(err))
	}
}
