package cdpdom

import (
	"fmt"

	"github.com/kernel/mindmap/internal/dom"
)

// Node is a registry handle. Calls on a handle whose element is gone
// return zero values.
type Node struct {
	doc *Document
	id  string
}

type queryResult struct {
	IDs   []string `json:"ids"`
	Error string   `json:"error"`
}

type matchResult struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}

type layoutResult struct {
	Width      float64 `json:"width"`
	Height     float64 `json:"height"`
	Display    string  `json:"display"`
	Visibility string  `json:"visibility"`
	Opacity    string  `json:"opacity"`
}

type eventInit struct {
	Type    string `json:"type"`
	Bubbles bool   `json:"bubbles"`
	Key     string `json:"key"`
	Ctrl    bool   `json:"ctrl"`
	Alt     bool   `json:"alt"`
	Shift   bool   `json:"shift"`
}

func (x *Node) Tag() string {
	var tag string
	if err := x.doc.call(&tag, "tag", x.id); err != nil {
		x.doc.debug("tag", err)
	}
	return tag
}

func (x *Node) Attr(name string) (string, bool) {
	var pair [2]any
	if err := x.doc.call(&pair, "attr", x.id, name); err != nil {
		x.doc.debug("attr", err)
		return "", false
	}
	v, _ := pair[0].(string)
	ok, _ := pair[1].(bool)
	return v, ok
}

func (x *Node) Text() string {
	var text string
	if err := x.doc.call(&text, "text", x.id); err != nil {
		x.doc.debug("text", err)
	}
	return text
}

func (x *Node) QueryAll(selector string) ([]dom.Node, error) {
	var res queryResult
	if err := x.doc.call(&res, "query", x.id, selector); err != nil {
		return nil, fmt.Errorf("failed to query %q: %w", selector, err)
	}
	if res.Error != "" {
		return nil, fmt.Errorf("%w %q: %s", dom.ErrInvalidSelector, selector, res.Error)
	}
	return x.doc.wrapAll(res.IDs), nil
}

func (x *Node) Matches(selector string) (bool, error) {
	var res matchResult
	if err := x.doc.call(&res, "matches", x.id, selector); err != nil {
		return false, fmt.Errorf("failed to match %q: %w", selector, err)
	}
	if res.Error != "" {
		return false, fmt.Errorf("%w %q: %s", dom.ErrInvalidSelector, selector, res.Error)
	}
	return res.OK, nil
}

func (x *Node) Parent() dom.Node {
	var ref *string
	if err := x.doc.call(&ref, "parent", x.id); err != nil {
		x.doc.debug("parent", err)
		return nil
	}
	if ref == nil {
		return nil
	}
	if *ref == documentID {
		return x.doc
	}
	return x.doc.wrap(*ref)
}

func (x *Node) Children() []dom.Node {
	var ids []string
	if err := x.doc.call(&ids, "children", x.id); err != nil {
		x.doc.debug("children", err)
		return nil
	}
	return x.doc.wrapAll(ids)
}

func (x *Node) Connected() bool {
	if x.id == documentID {
		return true
	}
	var ok bool
	if err := x.doc.call(&ok, "connected", x.id); err != nil {
		x.doc.debug("connected", err)
		return false
	}
	return ok
}

func (x *Node) Layout() dom.Layout {
	var res *layoutResult
	if err := x.doc.call(&res, "layout", x.id); err != nil {
		x.doc.debug("layout", err)
		return dom.Layout{}
	}
	if res == nil {
		return dom.Layout{}
	}
	return dom.Layout{
		Width:      res.Width,
		Height:     res.Height,
		Display:    res.Display,
		Visibility: res.Visibility,
		Opacity:    res.Opacity,
	}
}

func (x *Node) Dispatch(ev dom.Event) error {
	var ok bool
	init := eventInit{Type: ev.Type, Bubbles: ev.Bubbles, Key: ev.Key, Ctrl: ev.Ctrl, Alt: ev.Alt, Shift: ev.Shift}
	if err := x.doc.call(&ok, "dispatch", x.id, init); err != nil {
		return fmt.Errorf("failed to dispatch %s: %w", ev.Type, err)
	}
	if !ok {
		return fmt.Errorf("failed to dispatch %s: element is gone", ev.Type)
	}
	return nil
}

func (x *Node) Same(other dom.Node) bool {
	switch o := other.(type) {
	case *Node:
		return o != nil && o.doc == x.doc && o.id == x.id
	case *Document:
		return o != nil && o.Node != nil && o.doc == x.doc && x.id == documentID
	}
	return false
}
