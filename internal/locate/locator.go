package locate

import (
	"context"
	"sync"

	"github.com/kernel/mindmap/internal/dom"
	"github.com/kernel/mindmap/internal/profile"
)

// Locator finds the mind-map container in a document and remembers it.
// Each companion instance owns one; calls are serialized.
type Locator struct {
	doc       dom.Document
	selectors profile.SelectorSet
	resolver  Resolver

	mu     sync.Mutex
	cached dom.Node
}

// NewLocator returns a locator over doc. Zero timing fields of r take the
// container defaults.
func NewLocator(doc dom.Document, selectors profile.SelectorSet, r Resolver) *Locator {
	if r.Timeout == 0 {
		r.Timeout = DefaultTimeout
	}
	if r.PollInterval == 0 {
		r.PollInterval = DefaultPollInterval
	}
	return &Locator{doc: doc, selectors: selectors.Compact(), resolver: r}
}

// Locate returns the cached container while it is still attached to the
// document, and resolves it again otherwise.
func (l *Locator) Locate(ctx context.Context) (dom.Node, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.cached != nil && l.cached.Connected() {
		return l.cached, nil
	}
	l.cached = nil

	n, err := l.resolver.Resolve(ctx, l.doc, l.selectors)
	if err != nil {
		return nil, err
	}
	l.cached = n
	return n, nil
}

// Cached returns the remembered container if it is still attached.
func (l *Locator) Cached() dom.Node {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.cached != nil && l.cached.Connected() {
		return l.cached
	}
	return nil
}

// Invalidate forgets the cached container.
func (l *Locator) Invalidate() {
	l.mu.Lock()
	l.cached = nil
	l.mu.Unlock()
}
