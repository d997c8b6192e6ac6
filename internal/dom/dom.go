// Package dom describes the slice of a browser document the companion needs:
// element queries, computed layout, synthetic events and change notification.
// Two backends implement it: htmldom for parsed snapshots and cdpdom for a
// live page driven over the DevTools protocol.
package dom

import (
	"errors"
	"strings"
)

// ErrInvalidSelector is returned when a selector cannot be compiled.
var ErrInvalidSelector = errors.New("invalid selector")

// Layout is the rendered box and computed style of an element.
type Layout struct {
	Width      float64
	Height     float64
	Display    string
	Visibility string
	Opacity    string
}

// Event is a synthetic input event dispatched on an element.
type Event struct {
	Type    string
	Bubbles bool
	Key     string
	Ctrl    bool
	Alt     bool
	Shift   bool
}

// Mouse returns a bubbling mouse or pointer event of the given type.
func Mouse(typ string) Event {
	return Event{Type: typ, Bubbles: true}
}

// Node is a handle to an element. Handles are weak: the element may be
// detached from its document at any time, so callers check Connected before
// reusing one they kept around.
type Node interface {
	// Tag is the lower-cased element name.
	Tag() string
	Attr(name string) (string, bool)
	// Text is the element's text content.
	Text() string
	// QueryAll returns the descendants matching selector in document order.
	QueryAll(selector string) ([]Node, error)
	Matches(selector string) (bool, error)
	// Parent returns nil for the document and for detached roots.
	Parent() Node
	Children() []Node
	Connected() bool
	Layout() Layout
	Dispatch(ev Event) error
	Same(other Node) bool
}

// SignalKind tells toolbar clicks apart from key presses.
type SignalKind string

const (
	SignalAction SignalKind = "action"
	SignalKey    SignalKind = "key"
)

// Signal is a page-level user gesture the companion reacts to: a click on an
// injected control carrying a data-mmx-action attribute, or a keydown.
type Signal struct {
	Kind   SignalKind `json:"kind"`
	Action string     `json:"action,omitempty"`
	Key    string     `json:"key,omitempty"`
	Ctrl   bool       `json:"ctrl,omitempty"`
	Alt    bool       `json:"alt,omitempty"`
	Shift  bool       `json:"shift,omitempty"`
}

// ActionAttr marks injected controls; clicks on them surface as signals.
const ActionAttr = "data-mmx-action"

// Document is the root of a page.
type Document interface {
	Node
	ByID(id string) Node
	// AppendHTML parses markup and appends the resulting elements to parent.
	AppendHTML(parent Node, markup string) error
	// Observe calls fn after every subtree, attribute or text mutation.
	Observe(fn func()) (stop func())
	// Subscribe calls fn for every page-level signal.
	Subscribe(fn func(Signal)) (stop func())
}

// QueryAny queries every valid selector in the set at once and returns the
// union in document order. Selectors that fail to compile are skipped.
func QueryAny(scope Node, selectors []string) []Node {
	if scope == nil {
		return nil
	}
	valid := make([]string, 0, len(selectors))
	for _, sel := range selectors {
		sel = strings.TrimSpace(sel)
		if sel == "" {
			continue
		}
		if _, err := scope.Matches(sel); err != nil {
			continue
		}
		valid = append(valid, sel)
	}
	if len(valid) == 0 {
		return nil
	}
	nodes, err := scope.QueryAll(strings.Join(valid, ", "))
	if err != nil {
		return nil
	}
	return nodes
}

// MatchesAny reports whether n matches at least one valid selector.
func MatchesAny(n Node, selectors []string) bool {
	for _, sel := range selectors {
		if ok, err := n.Matches(sel); err == nil && ok {
			return true
		}
	}
	return false
}

// Closest walks from n (inclusive) towards the document and returns the first
// element matching selector, stopping before stop. It returns nil when the
// walk reaches stop or the top of the tree.
func Closest(n Node, selector string, stop Node) Node {
	for cur := n; cur != nil; cur = cur.Parent() {
		if stop != nil && cur.Same(stop) {
			return nil
		}
		if ok, err := cur.Matches(selector); err == nil && ok {
			return cur
		}
	}
	return nil
}

// Contains reports whether n is outer itself or one of its descendants.
func Contains(outer, n Node) bool {
	for cur := n; cur != nil; cur = cur.Parent() {
		if cur.Same(outer) {
			return true
		}
	}
	return false
}
