package repository

import (
	"context"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/spark-support/internal/domain"
)

// DeviceRepository records enrolled devices.
type DeviceRepository interface {
	Upsert(ctx context.Context, device *domain.Device) error
	GetByID(ctx context.Context, id string) (*domain.Device, error)
}

type deviceRepository struct {
	pool *pgxpool.Pool
}

// NewDeviceRepository returns a Postgres-backed implementation.
func NewDeviceRepository(pool *pgxpool.Pool) DeviceRepository {
	return &deviceRepository{pool: pool}
}

func (r *deviceRepository) Upsert(ctx context.Context, device *domain.Device) error {
	const query = `
        INSERT INTO enrolled_devices (device_id, label)
        VALUES ($1, $2)
        ON CONFLICT (device_id) DO UPDATE SET label=EXCLUDED.label, last_seen_at=NOW()
        RETURNING enrolled_at, last_seen_at`

	return r.pool.QueryRow(ctx, query, device.ID, device.Label).
		Scan(&device.EnrolledAt, &device.LastSeenAt)
}

func (r *deviceRepository) GetByID(ctx context.Context, id string) (*domain.Device, error) {
	const query = `
        SELECT device_id, label, enrolled_at, last_seen_at
        FROM enrolled_devices WHERE device_id=$1`

	var device domain.Device
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&device.ID,
		&device.Label,
		&device.EnrolledAt,
		&device.LastSeenAt,
	); err != nil {
		return nil, err
	}
	return &device, nil
}

type memoryDeviceRepository struct {
	mu      sync.Mutex
	devices map[string]domain.Device
	now     func() time.Time
}

// NewMemoryDeviceRepository keeps enrollments in process memory. Lookups of
// unknown ids return pgx.ErrNoRows so callers can treat both backends alike.
func NewMemoryDeviceRepository() DeviceRepository {
	return &memoryDeviceRepository{devices: make(map[string]domain.Device), now: time.Now}
}

func (r *memoryDeviceRepository) Upsert(_ context.Context, device *domain.Device) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	existing, ok := r.devices[device.ID]
	if !ok {
		existing = domain.Device{ID: device.ID, EnrolledAt: now}
	}
	existing.Label = device.Label
	existing.LastSeenAt = now
	r.devices[device.ID] = existing

	device.EnrolledAt = existing.EnrolledAt
	device.LastSeenAt = existing.LastSeenAt
	return nil
}

func (r *memoryDeviceRepository) GetByID(_ context.Context, id string) (*domain.Device, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	device, ok := r.devices[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &device, nil
}
