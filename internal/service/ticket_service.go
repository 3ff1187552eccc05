package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/spark-support/internal/config"
	"github.com/spec-kit/spark-support/internal/domain"
	"github.com/spec-kit/spark-support/internal/events"
	"github.com/spec-kit/spark-support/internal/priority"
	"github.com/spec-kit/spark-support/internal/repository"
	apperrors "github.com/spec-kit/spark-support/pkg/util/errorutil"
)

// defaultSearchLimit bounds ticket searches without an explicit limit.
const defaultSearchLimit = 50

// TicketService coordinates ticket lookups and updates.
type TicketService struct {
	tickets    repository.TicketRepository
	changes    repository.TicketChangeRepository
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// TicketDependencies bundles repositories for ticket service.
type TicketDependencies struct {
	TicketRepo repository.TicketRepository
	// ChangeRepo is optional; without it the change history is unavailable.
	ChangeRepo repository.TicketChangeRepository
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
}

// TicketUpdateInput describes a patch. Nil fields are left alone.
type TicketUpdateInput struct {
	Status   *string
	Priority *string
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TicketService{
		tickets:    deps.TicketRepo,
		changes:    deps.ChangeRepo,
		dispatcher: deps.Dispatcher,
		logger:     logger,
	}
}

// Find looks a ticket up by id. Absence is reported by ok, not an error.
func (s *TicketService) Find(id string) (domain.Ticket, bool) {
	return s.tickets.FindByID(id)
}

// Get is Find with NOT_FOUND for absent tickets.
func (s *TicketService) Get(id string) (domain.Ticket, error) {
	ticket, ok := s.tickets.FindByID(id)
	if !ok {
		return domain.Ticket{}, apperrors.NewNotFound("ticket", map[string]any{"id": strings.TrimSpace(id)})
	}
	return ticket, nil
}

// Search returns tickets whose id, subject or description contain query.
func (s *TicketService) Search(query string, limit int) []domain.Ticket {
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	return s.tickets.Search(query, limit)
}

// UpdateTicket applies a status and/or priority patch on behalf of device.
// A missing ticket is a no-op reported by updated=false.
func (s *TicketService) UpdateTicket(ctx context.Context, deviceID, id string, input TicketUpdateInput) (ticket domain.Ticket, updated bool, err error) {
	patch, err := buildPatch(input)
	if err != nil {
		return domain.Ticket{}, false, err
	}

	res, ok := s.tickets.Apply(id, patch)
	if !ok {
		s.logger.Warn("update ignored for unknown ticket", zap.String("ticket_id", id), zap.String("device", deviceID))
		return domain.Ticket{}, false, nil
	}

	actor := events.Actor{Type: domain.SubjectTypeDevice, DeviceID: deviceID}
	if res.Before.Status != res.After.Status {
		s.publishEvent(ctx, events.Event{
			Type:     events.EventTicketStatusChanged,
			TicketID: res.After.ID,
			Actor:    actor,
			Payload: events.TicketStatusChangedPayload{
				OldStatus: res.Before.Status,
				NewStatus: res.After.Status,
			},
		})
	}
	if res.Before.Priority != res.After.Priority {
		s.publishEvent(ctx, events.Event{
			Type:     events.EventTicketPriorityChanged,
			TicketID: res.After.ID,
			Actor:    actor,
			Payload: events.TicketPriorityChangedPayload{
				OldPriority: res.Before.Priority,
				NewPriority: res.After.Priority,
			},
		})
	}
	return res.After, true, nil
}

// History lists recorded changes of a ticket, newest first.
func (s *TicketService) History(ctx context.Context, id string, limit int) ([]domain.TicketChange, error) {
	if s.changes == nil {
		return nil, apperrors.NewConfigurationMissing("ticket history", "POSTGRES_DSN")
	}
	changes, err := s.changes.ListByTicket(ctx, id, limit)
	if err != nil {
		return nil, err
	}
	if changes == nil {
		changes = []domain.TicketChange{}
	}
	return changes, nil
}

func buildPatch(input TicketUpdateInput) (domain.TicketPatch, error) {
	var patch domain.TicketPatch
	if input.Status == nil && input.Priority == nil {
		return patch, apperrors.NewValidationError("nothing to update", nil)
	}
	if input.Status != nil {
		status := strings.TrimSpace(*input.Status)
		if status == "" {
			return patch, apperrors.NewValidationError("status must not be blank", map[string]any{"field": "status"})
		}
		patch.Status = &status
	}
	if input.Priority != nil {
		tier, ok := priority.ParseTier(*input.Priority)
		if !ok {
			return patch, apperrors.NewValidationError("unknown priority", map[string]any{
				"field":   "priority",
				"value":   *input.Priority,
				"allowed": []domain.PriorityTier{domain.PriorityCritical, domain.PriorityHigh, domain.PriorityMedium, domain.PriorityLow},
			})
		}
		patch.Priority = &tier
	}
	return patch, nil
}

func (s *TicketService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("event handlers failed",
			zap.String("event_type", string(event.Type)),
			zap.String("ticket_id", event.TicketID),
			zap.Error(err))
	}
}

// DemoTicket decodes the single demo ticket fixture.
func DemoTicket(cfg config.DatasetConfig, embedded []byte) (domain.Ticket, error) {
	var (
		tickets []domain.Ticket
		err     error
	)
	if cfg.DemoTicketPath != "" {
		tickets, err = repository.LoadDatasetFile(cfg.DemoTicketPath)
	} else {
		tickets, err = repository.DecodeDataset(embedded, repository.FormatJSON)
	}
	if err != nil {
		return domain.Ticket{}, err
	}
	if len(tickets) == 0 {
		return domain.Ticket{}, repository.ErrEmptyDataset
	}
	return tickets[0], nil
}
