// Package watch keeps the companion attached to a page whose mind map is
// rendered, re-rendered and replaced over time.
package watch

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/kernel/mindmap/internal/dom"
	"github.com/kernel/mindmap/internal/locate"
	"github.com/kernel/mindmap/internal/settings"
	"github.com/kernel/mindmap/internal/toggle"
	"github.com/kernel/mindmap/internal/toolbar"
	"github.com/pterm/pterm"
)

// DefaultDebounce is the quiet period after the last mutation before a scan.
const DefaultDebounce = 200 * time.Millisecond

// ErrStarted is returned by Start on a running watcher.
var ErrStarted = errors.New("watcher already started")

// ScanResult describes what one scan did.
type ScanResult struct {
	Container    dom.Node
	Injected     bool
	AutoExpanded bool
	Activations  int
	Err          error
}

// Watcher rescans the document after bursts of mutations.
type Watcher struct {
	Debounce time.Duration
	Logger   *pterm.Logger
	// OnScan, when set, receives every scan result.
	OnScan func(ScanResult)

	doc      dom.Document
	locator  *locate.Locator
	walker   *toggle.Walker
	settings *settings.Live

	mu       sync.Mutex
	timer    *time.Timer
	ctx      context.Context
	cancel   context.CancelFunc
	detach   func()
	running  bool
	scanning bool
	pending  bool
	wg       sync.WaitGroup

	scanMu   sync.Mutex
	expanded []dom.Node
}

// New returns a stopped watcher.
func New(doc dom.Document, locator *locate.Locator, walker *toggle.Walker, live *settings.Live) *Watcher {
	return &Watcher{
		Debounce: DefaultDebounce,
		Logger:   &pterm.DefaultLogger,
		doc:      doc,
		locator:  locator,
		walker:   walker,
		settings: live,
	}
}

// Start observes the document and schedules a first scan.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return ErrStarted
	}
	w.running = true
	w.ctx, w.cancel = context.WithCancel(ctx)
	w.mu.Unlock()

	detach := w.doc.Observe(w.mutated)
	w.mu.Lock()
	w.detach = detach
	w.mu.Unlock()

	w.mutated()
	return nil
}

// Stop detaches from the document, cancels pending timers and waits for an
// in-flight scan to return.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	detach, cancel := w.detach, w.cancel
	w.detach = nil
	w.mu.Unlock()

	if detach != nil {
		detach()
	}
	cancel()
	w.wg.Wait()
}

// mutated re-arms the debounce timer.
func (w *Watcher) mutated() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.running {
		return
	}
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.Debounce, w.fire)
}

// fire runs one scan, or marks a follow-up when a scan is already running.
func (w *Watcher) fire() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	if w.scanning {
		w.pending = true
		w.mu.Unlock()
		return
	}
	w.scanning = true
	ctx := w.ctx
	w.wg.Add(1)
	w.mu.Unlock()
	defer w.wg.Done()

	for {
		w.Scan(ctx)

		w.mu.Lock()
		if w.pending && w.running {
			w.pending = false
			w.mu.Unlock()
			continue
		}
		w.pending = false
		w.scanning = false
		w.mu.Unlock()
		return
	}
}

// Scan locates the container, injects the toolbar when it is missing and
// auto-expands a container instance the first time it is seen.
func (w *Watcher) Scan(ctx context.Context) ScanResult {
	w.scanMu.Lock()
	defer w.scanMu.Unlock()

	res := w.scan(ctx)
	if w.OnScan != nil {
		w.OnScan(res)
	}
	return res
}

func (w *Watcher) scan(ctx context.Context) ScanResult {
	var res ScanResult
	container, err := w.locator.Locate(ctx)
	if err != nil {
		res.Err = err
		return res
	}
	res.Container = container
	cur := w.settings.Current()

	if !toolbar.Injected(w.doc) {
		if err := toolbar.Inject(w.doc, container, cur.Theme); err != nil {
			w.Logger.Warn("toolbar injection failed", w.Logger.Args("error", err))
		} else {
			res.Injected = true
		}
	}

	if !cur.AutoExpand || w.seen(container) {
		return res
	}
	w.expanded = append(w.expanded, container)
	res.AutoExpanded = true
	res.Activations, res.Err = w.walker.Expand(ctx, container, cur.DefaultDepth)
	w.Logger.Debug("auto-expanded mind map", w.Logger.Args("activations", res.Activations, "depth", cur.DefaultDepth))
	return res
}

// seen reports whether container was auto-expanded before, dropping
// containers the host has since removed.
func (w *Watcher) seen(container dom.Node) bool {
	kept := w.expanded[:0]
	found := false
	for _, c := range w.expanded {
		if !c.Connected() {
			continue
		}
		kept = append(kept, c)
		if c.Same(container) {
			found = true
		}
	}
	w.expanded = kept
	return found
}
