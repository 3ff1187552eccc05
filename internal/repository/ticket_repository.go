package repository

import (
	"errors"
	"strings"
	"sync"

	"github.com/spec-kit/spark-support/internal/domain"
)

// ErrEmptyDataset is returned when the demo fixture decodes to zero tickets.
var ErrEmptyDataset = errors.New("dataset contains no tickets")

// TicketRepository is the in-memory ticket dataset.
type TicketRepository interface {
	List() []domain.Ticket
	FindByID(id string) (domain.Ticket, bool)
	Search(query string, limit int) []domain.Ticket
	Update(id string, patch domain.TicketPatch) (domain.Ticket, bool)
	Apply(id string, patch domain.TicketPatch) (TicketUpdate, bool)
}

// TicketUpdate pairs the record before and after a patch.
type TicketUpdate struct {
	Before domain.Ticket
	After  domain.Ticket
}

// Changed reports whether the patch altered status or priority.
func (u TicketUpdate) Changed() bool {
	return u.Before.Status != u.After.Status || u.Before.Priority != u.After.Priority
}

type ticketRepository struct {
	mu      sync.RWMutex
	tickets []domain.Ticket
}

// NewTicketRepository wraps an already decoded dataset. The slice is copied.
func NewTicketRepository(tickets []domain.Ticket) TicketRepository {
	cp := make([]domain.Ticket, len(tickets))
	copy(cp, tickets)
	return &ticketRepository{tickets: cp}
}

// NewTicketRepositoryFromBytes decodes data and builds the repository. A
// well-formed dataset without tickets yields an empty repository.
func NewTicketRepositoryFromBytes(data []byte, format DatasetFormat) (TicketRepository, error) {
	tickets, err := DecodeDataset(data, format)
	if err != nil {
		return nil, err
	}
	return NewTicketRepository(tickets), nil
}

// NewTicketRepositoryFromFile loads the dataset at path.
func NewTicketRepositoryFromFile(path string) (TicketRepository, error) {
	tickets, err := LoadDatasetFile(path)
	if err != nil {
		return nil, err
	}
	return NewTicketRepository(tickets), nil
}

func (r *ticketRepository) List() []domain.Ticket {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.Ticket, len(r.tickets))
	copy(out, r.tickets)
	return out
}

func (r *ticketRepository) FindByID(id string) (domain.Ticket, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	idx := r.indexOf(id)
	if idx < 0 {
		return domain.Ticket{}, false
	}
	return r.tickets[idx], true
}

// Search matches query case-insensitively against id, subject and
// description in dataset order. limit <= 0 means no limit.
func (r *ticketRepository) Search(query string, limit int) []domain.Ticket {
	needle := strings.ToLower(strings.TrimSpace(query))

	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []domain.Ticket
	for _, t := range r.tickets {
		if needle != "" &&
			!strings.Contains(strings.ToLower(t.ID), needle) &&
			!strings.Contains(strings.ToLower(t.Subject), needle) &&
			!strings.Contains(strings.ToLower(t.Description), needle) {
			continue
		}
		out = append(out, t)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out
}

func (r *ticketRepository) Update(id string, patch domain.TicketPatch) (domain.Ticket, bool) {
	res, ok := r.Apply(id, patch)
	return res.After, ok
}

// Apply replaces the matching record with a merged copy. A missing id is a
// no-op returning false.
func (r *ticketRepository) Apply(id string, patch domain.TicketPatch) (TicketUpdate, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx := r.indexOf(id)
	if idx < 0 {
		return TicketUpdate{}, false
	}

	before := r.tickets[idx]
	after := before
	if patch.Status != nil {
		after.Status = *patch.Status
	}
	if patch.Priority != nil {
		after.Priority = *patch.Priority
	}
	after.Raw = cloneRaw(before.Raw)
	r.tickets[idx] = after
	return TicketUpdate{Before: before, After: after}, true
}

func (r *ticketRepository) indexOf(id string) int {
	want := domain.NormalizeTicketID(id)
	if want == "" {
		return -1
	}
	for i := range r.tickets {
		if domain.NormalizeTicketID(r.tickets[i].ID) == want {
			return i
		}
	}
	return -1
}

func cloneRaw(raw map[string]any) map[string]any {
	if raw == nil {
		return nil
	}
	out := make(map[string]any, len(raw))
	for k, v := range raw {
		out[k] = v
	}
	return out
}
