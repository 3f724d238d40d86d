// Package bridge provides the change-notification fan-out between
// participants of a session: an in-process broker for single-node
// deployments and tests, and a Redis pub/sub variant for multi-node ones.
// Both deliver the full updated session record on every committed mutation.
package bridge

import (
	"context"
	"sync"

	"github.com/playperu/reflexduel/internal/duel"
)

// Local is an in-process pub/sub keyed by session ID.
type Local struct {
	mu   sync.RWMutex
	subs map[string]map[chan duel.Session]struct{}
}

func NewLocal() *Local {
	return &Local{
		subs: make(map[string]map[chan duel.Session]struct{}),
	}
}

// Subscribe returns a channel receiving session change events and the
// matching unsubscribe func.
func (b *Local) Subscribe(sessionID string) (<-chan duel.Session, func()) {
	ch := make(chan duel.Session, 16)
	b.mu.Lock()
	if b.subs[sessionID] == nil {
		b.subs[sessionID] = make(map[chan duel.Session]struct{})
	}
	b.subs[sessionID][ch] = struct{}{}
	b.mu.Unlock()

	return ch, func() {
		b.mu.Lock()
		delete(b.subs[sessionID], ch)
		if len(b.subs[sessionID]) == 0 {
			delete(b.subs, sessionID)
		}
		b.mu.Unlock()
	}
}

// Publish fans the session out to all its subscribers. Slow subscribers are
// dropped rather than blocked; they recover by polling the store.
func (b *Local) Publish(_ context.Context, s duel.Session) error {
	b.mu.RLock()
	for ch := range b.subs[s.ID] {
		select {
		case ch <- s:
		default:
		}
	}
	b.mu.RUnlock()
	return nil
}
