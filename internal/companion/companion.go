// Package companion is the page controller: it owns the container locator,
// the toggle walker and the change watcher for one document, answers bus
// messages and reacts to toolbar clicks and hotkeys.
package companion

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/kernel/mindmap/internal/dom"
	"github.com/kernel/mindmap/internal/hotkeys"
	"github.com/kernel/mindmap/internal/insights"
	"github.com/kernel/mindmap/internal/locate"
	"github.com/kernel/mindmap/internal/messaging"
	"github.com/kernel/mindmap/internal/outline"
	"github.com/kernel/mindmap/internal/profile"
	"github.com/kernel/mindmap/internal/search"
	"github.com/kernel/mindmap/internal/settings"
	"github.com/kernel/mindmap/internal/toggle"
	"github.com/kernel/mindmap/internal/watch"
	"github.com/pterm/pterm"
)

// DefaultButtonTimeout bounds the wait for the host's own expand-all and
// collapse-all buttons.
const DefaultButtonTimeout = 2 * time.Second

// CitationFallback answers copy-citation.
const CitationFallback = "Could not generate citation for this source."

var (
	ErrUnsupported = errors.New("action is not supported here")
	ErrNoBatch     = errors.New("batch export is not configured")
	ErrUnknown     = errors.New("unknown action")
)

// Method tells how an expand-all or collapse-all was carried out.
type Method string

const (
	MethodHostButton Method = "host-button"
	MethodWalk       Method = "walk"
)

// ToggleResult answers expand-all and collapse-all.
type ToggleResult struct {
	Method      Method `json:"method"`
	Activations int    `json:"activations"`
}

// Export is a rendered outline.
type Export struct {
	Format   outline.Format `json:"format"`
	FileName string         `json:"fileName"`
	Entries  int            `json:"entries"`
	Content  string         `json:"content"`
}

// FilterOptions answers open-advanced-filters.
type FilterOptions struct {
	DateRanges  []search.DateRange `json:"dateRanges"`
	SourceTypes []search.Type      `json:"sourceTypes"`
}

// SearchRequest is the payload of open-search. The query travels in
// Message.Query.
type SearchRequest struct {
	Filters search.Filters `json:"filters"`
}

// BatchFunc exports every available map, reporting progress in percent.
type BatchFunc func(ctx context.Context, f outline.Format, progress func(pct int)) (any, error)

// Options configure a Companion. Zero values take defaults.
type Options struct {
	Profile       profile.Profile
	Resolver      locate.Resolver
	ButtonTimeout time.Duration
	Debounce      time.Duration
	Bindings      map[hotkeys.Binding]messaging.Action
	Analyzer      *insights.Analyzer
	Index         *search.Index
	Batch         BatchFunc
	// OnResult receives the outcome of actions raised on the page itself.
	OnResult func(messaging.Message, messaging.Response)
	Logger   *pterm.Logger
}

// Companion controls one document.
type Companion struct {
	doc  dom.Document
	bus  *messaging.Bus
	live *settings.Live
	opts Options

	locator *locate.Locator
	walker  *toggle.Walker
	watcher *watch.Watcher
	keys    *hotkeys.Dispatcher

	// opMu serializes traversals of the page.
	opMu sync.Mutex

	mu      sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	cleanup []func()
	signals sync.WaitGroup
}

// New builds a stopped companion for doc.
func New(doc dom.Document, bus *messaging.Bus, live *settings.Live, opts Options) *Companion {
	if opts.Profile.Node == "" {
		opts.Profile = opts.Profile.Merge(profile.Default())
	}
	if opts.Logger == nil {
		opts.Logger = &pterm.DefaultLogger
	}
	if opts.Resolver.Logger == nil {
		opts.Resolver.Logger = opts.Logger
	}
	if opts.ButtonTimeout == 0 {
		opts.ButtonTimeout = DefaultButtonTimeout
	}
	if opts.Analyzer == nil {
		opts.Analyzer = insights.NewAnalyzer(nil)
	}
	if opts.Index == nil {
		opts.Index = search.NewIndex()
	}
	if live == nil {
		live = settings.Static(settings.Defaults())
	}

	c := &Companion{doc: doc, bus: bus, live: live, opts: opts}
	c.locator = locate.NewLocator(doc, opts.Profile.Containers, opts.Resolver)
	c.walker = toggle.New(opts.Profile)
	c.walker.Logger = opts.Logger
	c.watcher = watch.New(doc, c.locator, c.walker, live)
	c.watcher.Logger = opts.Logger
	if opts.Debounce > 0 {
		c.watcher.Debounce = opts.Debounce
	}
	c.keys = hotkeys.NewDispatcher(opts.Bindings, func() bool { return c.live.Current().HotkeysEnabled })
	return c
}

func (c *Companion) Locator() *locate.Locator { return c.locator }
func (c *Companion) Walker() *toggle.Walker    { return c.walker }
func (c *Companion) Watcher() *watch.Watcher   { return c.watcher }

// Start answers bus messages, listens for page signals and starts watching
// the document.
func (c *Companion) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.ctx != nil {
		c.mu.Unlock()
		return errors.New("companion already started")
	}
	c.ctx, c.cancel = context.WithCancel(ctx)
	c.mu.Unlock()

	var cleanup []func()
	if c.bus != nil {
		for _, a := range messaging.Actions {
			if a == messaging.ActionExportProgress {
				continue
			}
			cleanup = append(cleanup, c.bus.Handle(a, c.Handle))
		}
	}
	cleanup = append(cleanup, c.doc.Subscribe(c.signal))

	c.watcher.OnScan = c.scanned
	if err := c.watcher.Start(c.ctx); err != nil {
		for _, fn := range cleanup {
			fn()
		}
		return fmt.Errorf("failed to start watcher: %w", err)
	}

	c.mu.Lock()
	c.cleanup = cleanup
	c.mu.Unlock()
	return nil
}

// Stop undoes Start and waits for running page actions.
func (c *Companion) Stop() {
	c.mu.Lock()
	cancel, cleanup := c.cancel, c.cleanup
	c.cleanup = nil
	c.mu.Unlock()
	if cancel == nil {
		return
	}

	for _, fn := range cleanup {
		fn()
	}
	c.watcher.Stop()
	cancel()
	c.signals.Wait()
}

func (c *Companion) scanned(res watch.ScanResult) {
	if res.AutoExpanded {
		c.opts.Logger.Info("auto-expanded mind map", c.opts.Logger.Args("activations", res.Activations))
	}
	if res.Err != nil && !errors.Is(res.Err, locate.ErrNotFound) && !errors.Is(res.Err, context.Canceled) {
		c.opts.Logger.Warn("scan failed", c.opts.Logger.Args("error", res.Err))
	}
}

// signal routes toolbar clicks and hotkeys to the action handlers. Handlers
// run off the dispatching goroutine since they click the page themselves.
func (c *Companion) signal(sig dom.Signal) {
	var action messaging.Action
	switch sig.Kind {
	case dom.SignalAction:
		action = messaging.Action(sig.Action)
	case dom.SignalKey:
		a, ok := c.keys.Match(sig)
		if !ok {
			return
		}
		action = a
	default:
		return
	}

	c.mu.Lock()
	ctx := c.ctx
	if ctx == nil || ctx.Err() != nil {
		c.mu.Unlock()
		return
	}
	c.signals.Add(1)
	c.mu.Unlock()

	go func() {
		defer c.signals.Done()
		msg := messaging.Message{Action: action}
		resp := c.Handle(ctx, msg)
		if !resp.Success {
			c.opts.Logger.Warn("page action failed", c.opts.Logger.Args("action", string(action), "error", resp.Error))
		}
		if c.opts.OnResult != nil {
			c.opts.OnResult(msg, resp)
		}
	}()
}

// Handle answers one message. Failures become unsuccessful responses.
func (c *Companion) Handle(ctx context.Context, msg messaging.Message) messaging.Response {
	resp := c.handle(ctx, msg)
	if !resp.Success {
		c.opts.Logger.Warn("action failed", c.opts.Logger.Args("action", string(msg.Action), "error", resp.Error))
	}
	return resp
}

func (c *Companion) handle(ctx context.Context, msg messaging.Message) messaging.Response {
	switch msg.Action {
	case messaging.ActionExpandAll:
		return respond(c.ExpandAll(ctx))
	case messaging.ActionCollapseAll:
		return respond(c.CollapseAll(ctx))
	case messaging.ActionExport:
		f, err := outline.ParseFormat(msg.Format)
		if err != nil {
			return messaging.Fail(err)
		}
		if msg.All {
			return respond(c.ExportAll(ctx, f))
		}
		return respond(c.Export(ctx, f))
	case messaging.ActionShowInsights:
		return respond(c.Insights(ctx))
	case messaging.ActionOpenSearch:
		var req SearchRequest
		if len(msg.Payload) > 0 {
			if err := json.Unmarshal(msg.Payload, &req); err != nil {
				return messaging.Fail(fmt.Errorf("invalid search payload: %w", err))
			}
		}
		return respond(c.Search(ctx, msg.Query, req.Filters))
	case messaging.ActionOpenAdvancedFilters:
		return messaging.OK(FilterOptions{
			DateRanges:  []search.DateRange{search.AllTime, search.Last24h, search.Last7d, search.Last30d},
			SourceTypes: []search.Type{search.TypeAny, search.TypeNote, search.TypeSource, search.TypeMindMap},
		})
	case messaging.ActionCopyCitation:
		return messaging.OK(CitationFallback)
	case messaging.ActionToggleSidePanel:
		return messaging.Fail(fmt.Errorf("%w: %s", ErrUnsupported, msg.Action))
	}
	return messaging.Fail(fmt.Errorf("%w %q", ErrUnknown, msg.Action))
}

func respond[T any](v T, err error) messaging.Response {
	if err != nil {
		return messaging.Fail(err)
	}
	return messaging.OK(v)
}
