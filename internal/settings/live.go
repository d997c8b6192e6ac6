package settings

import (
	"context"
	"sync"
)

// Live is a snapshot of a store kept current through Watch. Components read
// it on every decision so option changes apply without a restart.
type Live struct {
	mu   sync.RWMutex
	cur  Settings
	stop func()
}

// NewLive loads the current record and follows later changes. When the
// store cannot be read the defaults are used.
func NewLive(ctx context.Context, store Store) (*Live, error) {
	l := &Live{}
	cur, err := store.Load(ctx)
	if err != nil {
		cur = Defaults()
	}
	l.cur = cur

	stop, werr := store.Watch(l.set)
	if werr != nil {
		return l, werr
	}
	l.stop = stop
	return l, err
}

// Static returns a snapshot that never changes.
func Static(s Settings) *Live {
	return &Live{cur: s}
}

func (l *Live) set(s Settings) {
	l.mu.Lock()
	l.cur = s
	l.mu.Unlock()
}

// Current returns the latest record.
func (l *Live) Current() Settings {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.cur
}

// Close stops following the store.
func (l *Live) Close() {
	if l.stop != nil {
		l.stop()
	}
}
