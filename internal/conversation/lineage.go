package conversation

import (
	"context"
	"sync"
)

// Lineage is a single-slot cancellation register: starting a call cancels
// the previous call of the same lineage.
type Lineage struct {
	mu     sync.Mutex
	gen    uint64
	cancel context.CancelFunc
}

// Token identifies one call started on a lineage.
type Token uint64

// Begin cancels the in-flight call, if any, and starts a new one derived
// from parent. done releases the call's context and must always be called.
func (l *Lineage) Begin(parent context.Context) (ctx context.Context, tok Token, done func()) {
	ctx, cancel := context.WithCancel(parent)

	l.mu.Lock()
	if l.cancel != nil {
		l.cancel()
	}
	l.gen++
	tok = Token(l.gen)
	l.cancel = cancel
	l.mu.Unlock()

	return ctx, tok, func() {
		cancel()
		l.mu.Lock()
		if Token(l.gen) == tok {
			l.cancel = nil
		}
		l.mu.Unlock()
	}
}

// IsCurrent reports whether tok belongs to the most recently started call
// and has not been superseded.
func (l *Lineage) IsCurrent(tok Token) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return Token(l.gen) == tok
}

// Supersede cancels the in-flight call without starting a new one.
func (l *Lineage) Supersede() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.cancel != nil {
		l.cancel()
		l.cancel = nil
	}
	l.gen++
}
