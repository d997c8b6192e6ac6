// Package htmldom implements dom.Document over a parsed HTML tree. It backs
// offline work on saved page snapshots and the test fixtures for everything
// that walks a mind map.
package htmldom

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/andybalholm/cascadia"
	"github.com/kernel/mindmap/internal/dom"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Document is an in-memory page. It is safe for concurrent use; listeners and
// observers are always invoked without internal locks held, so they may
// query or mutate the document.
type Document struct {
	*Node

	mu sync.RWMutex

	selMu     sync.Mutex
	selectors map[string]cascadia.Selector

	lmu       sync.Mutex
	listeners map[*html.Node]map[string][]func(dom.Event)
	observers map[int]func()
	signals   map[int]func(dom.Signal)
	nextID    int
}

// Parse reads an HTML page.
func Parse(r io.Reader) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse html: %w", err)
	}
	d := &Document{
		selectors: make(map[string]cascadia.Selector),
		listeners: make(map[*html.Node]map[string][]func(dom.Event)),
		observers: make(map[int]func()),
		signals:   make(map[int]func(dom.Signal)),
	}
	d.Node = &Node{doc: d, n: root}
	return d, nil
}

// ParseString parses markup held in memory.
func ParseString(markup string) (*Document, error) {
	return Parse(strings.NewReader(markup))
}

// Load parses the HTML file at path.
func Load(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Parse(f)
}

func (d *Document) compile(selector string) (cascadia.Selector, error) {
	d.selMu.Lock()
	defer d.selMu.Unlock()
	if sel, ok := d.selectors[selector]; ok {
		return sel, nil
	}
	sel, err := cascadia.Compile(selector)
	if err != nil {
		return nil, fmt.Errorf("%w %q: %v", dom.ErrInvalidSelector, selector, err)
	}
	d.selectors[selector] = sel
	return sel, nil
}

func (d *Document) wrap(n *html.Node) *Node {
	return &Node{doc: d, n: n}
}

// ByID returns the connected element with the given id attribute.
func (d *Document) ByID(id string) dom.Node {
	d.mu.RLock()
	defer d.mu.RUnlock()
	var found *html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		for c := n.FirstChild; c != nil && found == nil; c = c.NextSibling {
			if c.Type == html.ElementNode && attr(c, "id") == id {
				found = c
				return
			}
			walk(c)
		}
	}
	walk(d.n)
	if found == nil {
		return nil
	}
	return d.wrap(found)
}

// AppendHTML parses markup in the context of parent and appends the result.
func (d *Document) AppendHTML(parent dom.Node, markup string) error {
	p, ok := parent.(*Node)
	if !ok {
		if doc, isDoc := parent.(*Document); isDoc {
			p = doc.Node
		} else {
			return fmt.Errorf("node %T does not belong to this document", parent)
		}
	}
	context := p.n
	if context.Type != html.ElementNode {
		context = &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	}
	nodes, err := html.ParseFragment(strings.NewReader(markup), context)
	if err != nil {
		return fmt.Errorf("failed to parse fragment: %w", err)
	}

	d.mu.Lock()
	for _, n := range nodes {
		p.n.AppendChild(n)
	}
	d.mu.Unlock()

	d.notify()
	return nil
}

// Observe registers fn to run after every mutation made through this package.
func (d *Document) Observe(fn func()) func() {
	d.lmu.Lock()
	defer d.lmu.Unlock()
	d.nextID++
	id := d.nextID
	d.observers[id] = fn
	return func() {
		d.lmu.Lock()
		delete(d.observers, id)
		d.lmu.Unlock()
	}
}

// Subscribe registers fn for toolbar action and keydown signals.
func (d *Document) Subscribe(fn func(dom.Signal)) func() {
	d.lmu.Lock()
	defer d.lmu.Unlock()
	d.nextID++
	id := d.nextID
	d.signals[id] = fn
	return func() {
		d.lmu.Lock()
		delete(d.signals, id)
		d.lmu.Unlock()
	}
}

// Render serializes the current tree.
func (d *Document) Render(w io.Writer) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return html.Render(w, d.n)
}

func (d *Document) notify() {
	d.lmu.Lock()
	fns := make([]func(), 0, len(d.observers))
	for _, fn := range d.observers {
		fns = append(fns, fn)
	}
	d.lmu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

func (d *Document) emit(sig dom.Signal) {
	d.lmu.Lock()
	fns := make([]func(dom.Signal), 0, len(d.signals))
	for _, fn := range d.signals {
		fns = append(fns, fn)
	}
	d.lmu.Unlock()
	for _, fn := range fns {
		fn(sig)
	}
}

func (d *Document) handlers(n *html.Node, typ string) []func(dom.Event) {
	d.lmu.Lock()
	defer d.lmu.Unlock()
	byType := d.listeners[n]
	if byType == nil {
		return nil
	}
	return append([]func(dom.Event){}, byType[typ]...)
}

func attr(n *html.Node, name string) string {
	v, _ := lookupAttr(n, name)
	return v
}

func lookupAttr(n *html.Node, name string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == name {
			return a.Val, true
		}
	}
	return "", false
}
