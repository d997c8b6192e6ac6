// Package locate finds the mind-map container: a resolver that polls an
// ordered selector set for the first visible match, and a locator that caches
// the result while it stays attached to the document.
package locate

import (
	"context"
	"errors"
	"time"

	"github.com/kernel/mindmap/internal/dom"
	"github.com/kernel/mindmap/internal/profile"
	"github.com/pterm/pterm"
)

// ErrNotFound is returned when no selector matched a visible element in time.
var ErrNotFound = errors.New("element not found")

const (
	DefaultTimeout      = 10 * time.Second
	DefaultPollInterval = 200 * time.Millisecond
)

// Resolver polls a selector set against a scope.
type Resolver struct {
	Timeout      time.Duration
	PollInterval time.Duration
	Logger       *pterm.Logger
}

// NewResolver returns a resolver with the container defaults.
func NewResolver() Resolver {
	return Resolver{Timeout: DefaultTimeout, PollInterval: DefaultPollInterval, Logger: &pterm.DefaultLogger}
}

// Find runs a single pass over selectors and returns the first visible
// match, or nil. Malformed selectors are skipped.
func (r Resolver) Find(scope dom.Node, selectors profile.SelectorSet) dom.Node {
	if scope == nil {
		return nil
	}
	for _, sel := range selectors {
		nodes, err := scope.QueryAll(sel)
		if err != nil {
			if r.Logger != nil {
				r.Logger.Debug("skipping selector", r.Logger.Args("selector", sel, "error", err))
			}
			continue
		}
		for _, n := range nodes {
			if IsVisible(n) {
				return n
			}
		}
	}
	return nil
}

// Resolve polls until a selector matches a visible element below scope or the
// timeout elapses. An empty selector set fails immediately. Timing out logs a
// single warning and returns ErrNotFound; a cancelled context returns its error.
func (r Resolver) Resolve(ctx context.Context, scope dom.Node, selectors profile.SelectorSet) (dom.Node, error) {
	if len(selectors) == 0 {
		return nil, ErrNotFound
	}
	poll := r.PollInterval
	if poll <= 0 {
		poll = DefaultPollInterval
	}

	start := time.Now()
	for {
		if n := r.Find(scope, selectors); n != nil {
			return n, nil
		}

		elapsed := time.Since(start)
		if elapsed >= r.Timeout {
			if r.Logger != nil {
				r.Logger.Warn("no selector matched a visible element", r.Logger.Args(
					"selectors", len(selectors),
					"timeout", r.Timeout.String(),
				))
			}
			return nil, ErrNotFound
		}

		wait := poll
		if remaining := r.Timeout - elapsed; remaining < wait {
			wait = remaining
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}
