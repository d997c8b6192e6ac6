// Package cdpdom implements dom.Document for a live page driven over the
// Chrome DevTools protocol. Element handles are ids in a small registry the
// package installs in the page; every call is one Runtime.evaluate.
package cdpdom

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"github.com/kernel/mindmap/internal/dom"
	"github.com/pterm/pterm"
)

// DefaultPollInterval is how often the page is asked for mutations and signals.
const DefaultPollInterval = 100 * time.Millisecond

const documentID = "document"

// Options tune Attach.
type Options struct {
	PollInterval time.Duration
	Logger       *pterm.Logger
}

// Document is the page of a chromedp tab.
type Document struct {
	*Node

	ctx      context.Context
	cancel   context.CancelFunc
	interval time.Duration
	logger   *pterm.Logger
	done     chan struct{}

	mu        sync.Mutex
	observers map[int]func()
	signals   map[int]func(dom.Signal)
	nextID    int
}

// Attach installs the registry in the tab behind ctx, for the current
// document and every later navigation, and starts polling it.
func Attach(ctx context.Context, opts Options) (*Document, error) {
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.Logger == nil {
		opts.Logger = &pterm.DefaultLogger
	}

	err := chromedp.Run(ctx,
		chromedp.ActionFunc(func(ctx context.Context) error {
			_, err := page.AddScriptToEvaluateOnNewDocument(bootstrap).Do(ctx)
			return err
		}),
		chromedp.Evaluate(bootstrap, new(bool)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to install page registry: %w", err)
	}

	pctx, cancel := context.WithCancel(ctx)
	d := &Document{
		ctx:       pctx,
		cancel:    cancel,
		interval:  opts.PollInterval,
		logger:    opts.Logger,
		done:      make(chan struct{}),
		observers: make(map[int]func()),
		signals:   make(map[int]func(dom.Signal)),
	}
	d.Node = &Node{doc: d, id: documentID}
	go d.poll()
	return d, nil
}

// Close stops polling. The tab itself is left alone.
func (d *Document) Close() {
	d.cancel()
	<-d.done
}

// call invokes a registry function with JSON-encoded arguments and decodes
// its result into out.
func (d *Document) call(out any, fn string, args ...any) error {
	data, err := json.Marshal(args)
	if err != nil {
		return err
	}
	expr := fmt.Sprintf("window.__mmx.%s(...%s)", fn, data)
	return d.eval(expr, out)
}

func (d *Document) eval(expr string, out any) error {
	return chromedp.Run(d.ctx, chromedp.Evaluate(expr, out, func(p *runtime.EvaluateParams) *runtime.EvaluateParams {
		return p.WithSilent(true)
	}))
}

func (d *Document) debug(op string, err error) {
	d.logger.Debug("page call failed", d.logger.Args("op", op, "error", err))
}

func (d *Document) wrap(id string) *Node {
	if id == "" {
		return nil
	}
	return &Node{doc: d, id: id}
}

func (d *Document) wrapAll(ids []string) []dom.Node {
	out := make([]dom.Node, 0, len(ids))
	for _, id := range ids {
		out = append(out, d.wrap(id))
	}
	return out
}

// ByID returns the element with the given id attribute, or nil.
func (d *Document) ByID(id string) dom.Node {
	var ref *string
	if err := d.call(&ref, "byId", id); err != nil {
		d.debug("byId", err)
		return nil
	}
	if ref == nil {
		return nil
	}
	return d.wrap(*ref)
}

// AppendHTML inserts markup at the end of parent.
func (d *Document) AppendHTML(parent dom.Node, markup string) error {
	p, ok := parent.(*Node)
	if !ok || p.doc != d {
		return fmt.Errorf("parent does not belong to this page")
	}
	var appended bool
	if err := d.call(&appended, "append", p.id, markup); err != nil {
		return fmt.Errorf("failed to append markup: %w", err)
	}
	if !appended {
		return fmt.Errorf("failed to append markup: parent is gone")
	}
	return nil
}

// Observe calls fn after any poll that saw a mutation.
func (d *Document) Observe(fn func()) func() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.nextID++
	id := d.nextID
	d.observers[id] = fn
	return func() {
		d.mu.Lock()
		delete(d.observers, id)
		d.mu.Unlock()
	}
}

// Subscribe calls fn for every toolbar click and keydown on the page.
func (d *Document) Subscribe(fn func(dom.Signal)) func() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.nextID++
	id := d.nextID
	d.signals[id] = fn
	return func() {
		d.mu.Lock()
		delete(d.signals, id)
		d.mu.Unlock()
	}
}

type pollState struct {
	Mutations int64        `json:"mutations"`
	Signals   []dom.Signal `json:"signals"`
}

func (d *Document) poll() {
	defer close(d.done)
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	last := int64(-1)
	for {
		select {
		case <-d.ctx.Done():
			return
		case <-ticker.C:
		}

		var st pollState
		if err := d.eval(`window.__mmx ? window.__mmx.poll() : {mutations: -1, signals: []}`, &st); err != nil {
			if d.ctx.Err() != nil {
				return
			}
			d.debug("poll", err)
			continue
		}
		if last >= 0 && st.Mutations != last {
			d.notify()
		}
		last = st.Mutations
		for _, sig := range st.Signals {
			d.emit(sig)
		}
	}
}

func (d *Document) notify() {
	d.mu.Lock()
	fns := make([]func(), 0, len(d.observers))
	for _, fn := range d.observers {
		fns = append(fns, fn)
	}
	d.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

func (d *Document) emit(sig dom.Signal) {
	sig.Key = strings.ToLower(sig.Key)
	d.mu.Lock()
	fns := make([]func(dom.Signal), 0, len(d.signals))
	for _, fn := range d.signals {
		fns = append(fns, fn)
	}
	d.mu.Unlock()
	for _, fn := range fns {
		fn(sig)
	}
}
