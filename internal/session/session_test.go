package session

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/google/uuid"
)

type failingStore struct {
	getErr error
	setErr error
}

func (f failingStore) Get(context.Context, string) (string, error) { return "", f.getErr }
func (f failingStore) Set(context.Context, string, string) error   { return f.setErr }

func TestSessionIDCreatesAndReuses(t *testing.T) {
	store := NewMemoryStore()
	p := NewProvider(store, nil)
	ctx := context.Background()

	first := p.SessionID(ctx, "tablet-1")
	if _, err := uuid.Parse(first); err != nil {
		t.Fatalf("expected uuid, got %q: %v", first, err)
	}
	if again := p.SessionID(ctx, "tablet-1"); again != first {
		t.Fatalf("second call = %q, want %q", again, first)
	}
	if other := p.SessionID(ctx, "tablet-2"); other == first {
		t.Fatal("devices must not share ids")
	}
}

func TestSessionIDTrimsStoredValue(t *testing.T) {
	store := NewMemoryStore()
	_ = store.Set(context.Background(), "d", "  abc  ")
	if got := NewProvider(store, nil).SessionID(context.Background(), "d"); got != "abc" {
		t.Fatalf("SessionID = %q", got)
	}
}

func TestSessionIDReplacesBlankValue(t *testing.T) {
	store := NewMemoryStore()
	_ = store.Set(context.Background(), "d", "   ")
	got := NewProvider(store, nil).SessionID(context.Background(), "d")
	if got == "" || got == DefaultSessionID {
		t.Fatalf("SessionID = %q, expected a fresh id", got)
	}
}

func TestSessionIDStorageFailures(t *testing.T) {
	ctx := context.Background()
	readFail := NewProvider(failingStore{getErr: errors.New("boom")}, nil)
	if got := readFail.SessionID(ctx, "d"); got != DefaultSessionID {
		t.Fatalf("read failure = %q", got)
	}
	writeFail := NewProvider(failingStore{getErr: ErrNotFound, setErr: errors.New("disk full")}, nil)
	if got := writeFail.SessionID(ctx, "d"); got != DefaultSessionID {
		t.Fatalf("write failure = %q", got)
	}
}

func TestSessionIDFallsBackWhenGeneratorFails(t *testing.T) {
	p := NewProvider(NewMemoryStore(), nil)
	p.generate = func() (string, error) { return "", errors.New("no entropy") }
	got := p.SessionID(context.Background(), "d")
	if !regexp.MustCompile(`^\d+-[0-9a-z]{8}$`).MatchString(got) {
		t.Fatalf("fallback id = %q", got)
	}
}

func TestFallbackID(t *testing.T) {
	got := fallbackID(time.UnixMilli(1700000000123))
	if !regexp.MustCompile(`^1700000000123-[0-9a-z]{8}$`).MatchString(got) {
		t.Fatalf("fallbackID = %q", got)
	}
}

func TestFileStore(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "sessions")
	store := NewFileStore(dir)
	ctx := context.Background()
	if _, err := store.Get(ctx, "dev/1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := store.Set(ctx, "dev/1", "id-1"); err != nil {
		t.Fatalf("set: %v", err)
	}
	got, err := store.Get(ctx, "dev/1")
	if err != nil || got != "id-1" {
		t.Fatalf("get = %q, %v", got, err)
	}
	if _, err := os.Stat(filepath.Join(dir, "sparkai_session_id_dev_1")); err != nil {
		t.Fatalf("expected sanitized file name: %v", err)
	}
}
