// Package session provides the durable per-device identifier that lets the
// chat endpoint correlate conversation turns.
package session

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Key is the storage slot name.
const Key = "sparkai_session_id"

// DefaultSessionID is returned whenever the store cannot be used.
const DefaultSessionID = "default-session"

// ErrNotFound is returned by stores when the slot is empty.
var ErrNotFound = errors.New("session: no stored id")

// Store is the durable key-value slot for one device's session id.
type Store interface {
	Get(ctx context.Context, device string) (string, error)
	Set(ctx context.Context, device, id string) error
}

// Provider reads or creates session ids.
type Provider struct {
	store    Store
	logger   *zap.Logger
	generate func() (string, error)
}

// NewProvider builds a provider over store.
func NewProvider(store Store, logger *zap.Logger) *Provider {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Provider{store: store, logger: logger, generate: newUUID}
}

// SessionID returns the persisted id for device, creating and storing one on
// first use. Storage failures degrade to DefaultSessionID.
func (p *Provider) SessionID(ctx context.Context, device string) string {
	existing, err := p.store.Get(ctx, device)
	switch {
	case err == nil && strings.TrimSpace(existing) != "":
		return strings.TrimSpace(existing)
	case err != nil && !errors.Is(err, ErrNotFound):
		p.logger.Warn("session id could not be read", zap.String("device", device), zap.Error(err))
		return DefaultSessionID
	}

	id, err := p.generate()
	if err != nil {
		id = fallbackID(time.Now())
	}
	if err := p.store.Set(ctx, device, id); err != nil {
		p.logger.Warn("session id could not be stored", zap.String("device", device), zap.Error(err))
		return DefaultSessionID
	}
	p.logger.Debug("created session id", zap.String("device", device))
	return id
}

func newUUID() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// fallbackID is a timestamp plus an 8 character base36 suffix.
func fallbackID(now time.Time) string {
	const alphabet = "0123456789abcdefghijklmnopqrstuvwxyz"
	var suffix [8]byte
	for i := range suffix {
		suffix[i] = alphabet[rand.Intn(len(alphabet))]
	}
	return strconv.FormatInt(now.UnixMilli(), 10) + "-" + string(suffix[:])
}

// MemoryStore keeps ids in process memory.
type MemoryStore struct {
	mu  sync.Mutex
	ids map[string]string
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{ids: make(map[string]string)}
}

func (m *MemoryStore) Get(_ context.Context, device string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.ids[device]
	if !ok {
		return "", ErrNotFound
	}
	return id, nil
}

func (m *MemoryStore) Set(_ context.Context, device, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ids[strings.Clone(device)] = strings.Clone(id)
	return nil
}

func slotKey(device string) string {
	if device == "" {
		return Key
	}
	return fmt.Sprintf("%s:%s", Key, device)
}
