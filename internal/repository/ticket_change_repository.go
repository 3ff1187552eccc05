package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/spark-support/internal/domain"
)

// TicketChangeRepository stores the audit trail of ticket updates.
type TicketChangeRepository interface {
	Create(ctx context.Context, change *domain.TicketChange) error
	ListByTicket(ctx context.Context, ticketID string, limit int) ([]domain.TicketChange, error)
}

type ticketChangeRepository struct {
	pool *pgxpool.Pool
}

// NewTicketChangeRepository builds repository.
func NewTicketChangeRepository(pool *pgxpool.Pool) TicketChangeRepository {
	return &ticketChangeRepository{pool: pool}
}

func (r *ticketChangeRepository) Create(ctx context.Context, change *domain.TicketChange) error {
	const query = `
        INSERT INTO ticket_changes (ticket_id, device_id, change_type, old_value, new_value)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query,
		domain.NormalizeTicketID(change.TicketID),
		change.DeviceID,
		change.ChangeType,
		change.OldValue,
		change.NewValue,
	).Scan(&change.ID, &change.CreatedAt)
}

func (r *ticketChangeRepository) ListByTicket(ctx context.Context, ticketID string, limit int) ([]domain.TicketChange, error) {
	if limit <= 0 {
		limit = 100
	}
	const query = `
        SELECT id, ticket_id, device_id, change_type, old_value, new_value, created_at
        FROM ticket_changes WHERE ticket_id=$1 ORDER BY created_at DESC LIMIT $2`
	rows, err := r.pool.Query(ctx, query, domain.NormalizeTicketID(ticketID), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.TicketChange
	for rows.Next() {
		var change domain.TicketChange
		if err := rows.Scan(
			&change.ID,
			&change.TicketID,
			&change.DeviceID,
			&change.ChangeType,
			&change.OldValue,
			&change.NewValue,
			&change.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, change)
	}
	return result, rows.Err()
}
