package htmldom

import (
	"strconv"
	"strings"

	"github.com/kernel/mindmap/internal/dom"
	"golang.org/x/net/html"
)

// Node is an element (or the document root) of a Document.
type Node struct {
	doc *Document
	n   *html.Node
}

var _ dom.Node = (*Node)(nil)
var _ dom.Document = (*Document)(nil)

func (x *Node) Tag() string {
	if x.n.Type == html.DocumentNode {
		return "#document"
	}
	return strings.ToLower(x.n.Data)
}

func (x *Node) Attr(name string) (string, bool) {
	x.doc.mu.RLock()
	defer x.doc.mu.RUnlock()
	return lookupAttr(x.n, name)
}

func (x *Node) Text() string {
	x.doc.mu.RLock()
	defer x.doc.mu.RUnlock()
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(x.n)
	return b.String()
}

func (x *Node) QueryAll(selector string) ([]dom.Node, error) {
	sel, err := x.doc.compile(selector)
	if err != nil {
		return nil, err
	}
	x.doc.mu.RLock()
	matches := sel.MatchAll(x.n)
	x.doc.mu.RUnlock()

	out := make([]dom.Node, 0, len(matches))
	for _, m := range matches {
		if m == x.n {
			continue
		}
		out = append(out, x.doc.wrap(m))
	}
	return out, nil
}

func (x *Node) Matches(selector string) (bool, error) {
	sel, err := x.doc.compile(selector)
	if err != nil {
		return false, err
	}
	if x.n.Type != html.ElementNode {
		return false, nil
	}
	x.doc.mu.RLock()
	defer x.doc.mu.RUnlock()
	return sel.Match(x.n), nil
}

func (x *Node) Parent() dom.Node {
	x.doc.mu.RLock()
	p := x.n.Parent
	x.doc.mu.RUnlock()
	if p == nil {
		return nil
	}
	if p.Type != html.ElementNode && p != x.doc.n {
		return nil
	}
	return x.doc.wrap(p)
}

func (x *Node) Children() []dom.Node {
	x.doc.mu.RLock()
	defer x.doc.mu.RUnlock()
	var out []dom.Node
	for c := x.n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			out = append(out, x.doc.wrap(c))
		}
	}
	return out
}

func (x *Node) Connected() bool {
	x.doc.mu.RLock()
	defer x.doc.mu.RUnlock()
	top := x.n
	for top.Parent != nil {
		top = top.Parent
	}
	return top == x.doc.n
}

func (x *Node) Same(other dom.Node) bool {
	switch o := other.(type) {
	case *Node:
		return o != nil && o.n == x.n
	case *Document:
		return o != nil && o.n == x.n
	}
	return false
}

// Layout approximates computed style from inline styles and the hidden
// attribute. Elements without an explicit size render as 100x20.
func (x *Node) Layout() dom.Layout {
	x.doc.mu.RLock()
	defer x.doc.mu.RUnlock()

	l := dom.Layout{Width: 100, Height: 20, Display: "block", Visibility: "visible", Opacity: "1"}
	if x.n.Type != html.ElementNode {
		return l
	}

	own := parseStyle(attr(x.n, "style"))
	if v, ok := own["display"]; ok {
		l.Display = v
	}
	if _, ok := lookupAttr(x.n, "hidden"); ok {
		l.Display = "none"
	}
	if v, ok := own["opacity"]; ok {
		l.Opacity = v
	}
	if v, ok := own["width"]; ok {
		if f, ok := parsePx(v); ok {
			l.Width = f
		}
	}
	if v, ok := own["height"]; ok {
		if f, ok := parsePx(v); ok {
			l.Height = f
		}
	}

	visSet := false
	if v, ok := own["visibility"]; ok {
		l.Visibility = v
		visSet = true
	}
	for p := x.n.Parent; p != nil && p.Type == html.ElementNode; p = p.Parent {
		ps := parseStyle(attr(p, "style"))
		_, hidden := lookupAttr(p, "hidden")
		if hidden || ps["display"] == "none" {
			l.Width, l.Height = 0, 0
		}
		if v, ok := ps["visibility"]; ok && !visSet {
			l.Visibility = v
			visSet = true
		}
	}
	if l.Display == "none" {
		l.Width, l.Height = 0, 0
	}
	return l
}

// On registers a listener for events of type typ on this element.
func (x *Node) On(typ string, fn func(dom.Event)) {
	x.doc.lmu.Lock()
	defer x.doc.lmu.Unlock()
	byType := x.doc.listeners[x.n]
	if byType == nil {
		byType = make(map[string][]func(dom.Event))
		x.doc.listeners[x.n] = byType
	}
	byType[typ] = append(byType[typ], fn)
}

// Dispatch runs the listeners of the target and, for bubbling events, of
// every ancestor up to the document, then raises the page-level signal.
func (x *Node) Dispatch(ev dom.Event) error {
	path := []*html.Node{x.n}
	if ev.Bubbles {
		x.doc.mu.RLock()
		for p := x.n.Parent; p != nil; p = p.Parent {
			path = append(path, p)
		}
		x.doc.mu.RUnlock()
	}
	for _, n := range path {
		for _, fn := range x.doc.handlers(n, ev.Type) {
			fn(ev)
		}
	}

	switch ev.Type {
	case "click":
		if target := dom.Closest(x, "["+dom.ActionAttr+"]", nil); target != nil {
			action, _ := target.Attr(dom.ActionAttr)
			x.doc.emit(dom.Signal{Kind: dom.SignalAction, Action: action})
		}
	case "keydown":
		x.doc.emit(dom.Signal{Kind: dom.SignalKey, Key: ev.Key, Ctrl: ev.Ctrl, Alt: ev.Alt, Shift: ev.Shift})
	}
	return nil
}

// SetAttr sets an attribute and notifies observers.
func (x *Node) SetAttr(name, value string) {
	x.doc.mu.Lock()
	set := false
	for i := range x.n.Attr {
		if x.n.Attr[i].Key == name {
			x.n.Attr[i].Val = value
			set = true
			break
		}
	}
	if !set {
		x.n.Attr = append(x.n.Attr, html.Attribute{Key: name, Val: value})
	}
	x.doc.mu.Unlock()
	x.doc.notify()
}

// RemoveAttr deletes an attribute and notifies observers.
func (x *Node) RemoveAttr(name string) {
	x.doc.mu.Lock()
	kept := x.n.Attr[:0]
	for _, a := range x.n.Attr {
		if a.Key != name {
			kept = append(kept, a)
		}
	}
	x.n.Attr = kept
	x.doc.mu.Unlock()
	x.doc.notify()
}

// Remove detaches the element from its parent.
func (x *Node) Remove() {
	x.doc.mu.Lock()
	if x.n.Parent != nil {
		x.n.Parent.RemoveChild(x.n)
	}
	x.doc.mu.Unlock()
	x.doc.notify()
}

func parseStyle(style string) map[string]string {
	out := make(map[string]string)
	for _, decl := range strings.Split(style, ";") {
		k, v, ok := strings.Cut(decl, ":")
		if !ok {
			continue
		}
		k = strings.ToLower(strings.TrimSpace(k))
		v = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(v), "!important"))
		if k != "" {
			out[k] = strings.ToLower(strings.TrimSpace(v))
		}
	}
	return out
}

func parsePx(v string) (float64, bool) {
	f, err := strconv.ParseFloat(strings.TrimSuffix(v, "px"), 64)
	if err != nil {
		return 0, false
	}
	return f, true
}
