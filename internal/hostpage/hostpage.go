// Package hostpage renders a stand-in for the host application's mind-map
// viewer on top of htmldom. Toggle buttons behave like the real viewer:
// they flip aria-expanded and show or hide the node's children. Emulate
// brings the same behaviour to saved pages.
package hostpage

import (
	"fmt"
	"html"
	"strings"
	"sync"

	"github.com/kernel/mindmap/internal/dom"
	"github.com/kernel/mindmap/internal/dom/htmldom"
)

// NodeSpec describes one mind-map node.
type NodeSpec struct {
	ID       string
	Label    string
	Expanded bool
	// Fixed nodes are always open and render no toggle.
	Fixed bool
	// Toggle renders a toggle even when the node has no children.
	Toggle   bool
	Children []NodeSpec
}

// Page is a parsed host page with live toggle behaviour.
type Page struct {
	*htmldom.Document

	mu      sync.Mutex
	events  []string
	toggles int
}

// New renders the nodes inside a mind-map container and wires the toggles.
func New(roots ...NodeSpec) (*Page, error) {
	doc, err := htmldom.ParseString("<html><body>" + Container(roots...) + "</body></html>")
	if err != nil {
		return nil, err
	}
	p := &Page{Document: doc}
	if err := p.Wire(doc); err != nil {
		return nil, err
	}
	return p, nil
}

// Container returns the markup of a mind-map container holding roots.
func Container(roots ...NodeSpec) string {
	var b strings.Builder
	b.WriteString(`<div class="mind-map-container">`)
	for _, r := range roots {
		writeNode(&b, r)
	}
	b.WriteString(`</div>`)
	return b.String()
}

func writeNode(b *strings.Builder, s NodeSpec) {
	fmt.Fprintf(b, `<div class="node" data-node-id="%s">`, html.EscapeString(s.ID))
	fmt.Fprintf(b, `<span class="node-label-text">%s</span>`, html.EscapeString(s.Label))
	if len(s.Children) == 0 && !s.Toggle {
		b.WriteString(`</div>`)
		return
	}
	open := s.Expanded || s.Fixed
	if !s.Fixed {
		label := "Expand"
		if open {
			label = "Collapse"
		}
		fmt.Fprintf(b, `<button class="node-toggle" aria-expanded="%t" aria-label="%s"></button>`, open, label)
	}
	if open {
		b.WriteString(`<div class="node-children">`)
	} else {
		b.WriteString(`<div class="node-children" hidden>`)
	}
	for _, c := range s.Children {
		b.WriteString(`<div class="node-child">`)
		writeNode(b, c)
		b.WriteString(`</div>`)
	}
	b.WriteString(`</div></div>`)
}

// Wire attaches toggle behaviour to every button below scope.
func (p *Page) Wire(scope dom.Node) error {
	buttons, err := scope.QueryAll("button.node-toggle")
	if err != nil {
		return err
	}
	for _, b := range buttons {
		btn := b.(*htmldom.Node)
		for _, typ := range []string{"mousedown", "mouseup", "pointerup"} {
			typ := typ
			btn.On(typ, func(dom.Event) { p.record(typ) })
		}
		btn.On("click", func(dom.Event) {
			p.record("click")
			p.toggle(btn)
		})
	}
	return nil
}

func (p *Page) record(typ string) {
	p.mu.Lock()
	p.events = append(p.events, typ)
	p.mu.Unlock()
}

func (p *Page) toggle(btn *htmldom.Node) {
	children := childList(btn)
	if children == nil {
		return
	}
	expanded, _ := btn.Attr("aria-expanded")
	if expanded == "true" {
		btn.SetAttr("aria-expanded", "false")
		btn.SetAttr("aria-label", "Expand")
		children.SetAttr("hidden", "")
	} else {
		btn.SetAttr("aria-expanded", "true")
		btn.SetAttr("aria-label", "Collapse")
		children.RemoveAttr("hidden")
	}
	p.mu.Lock()
	p.toggles++
	p.mu.Unlock()
}

func childList(btn *htmldom.Node) *htmldom.Node {
	parent := btn.Parent()
	if parent == nil {
		return nil
	}
	for _, c := range parent.Children() {
		if ok, _ := c.Matches(".node-children"); ok {
			return c.(*htmldom.Node)
		}
	}
	return nil
}

// Events returns the event types the toggles received, in order.
func (p *Page) Events() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.events...)
}

// Toggles counts state changes made by the toggles.
func (p *Page) Toggles() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.toggles
}

// Expanded reports whether the node with the given id shows its children.
func (p *Page) Expanded(id string) bool {
	nodes, err := p.QueryAll(fmt.Sprintf(`[data-node-id=%q] > button.node-toggle`, id))
	if err != nil || len(nodes) == 0 {
		return false
	}
	v, _ := nodes[0].Attr("aria-expanded")
	return v == "true"
}

// Container returns the mind-map container element.
func (p *Page) Container() dom.Node {
	nodes, err := p.QueryAll(".mind-map-container")
	if err != nil || len(nodes) == 0 {
		return nil
	}
	return nodes[0]
}

// Flat is a fixed root with two collapsed leaves.
func Flat() NodeSpec {
	return NodeSpec{
		ID:    "root",
		Label: "Root",
		Fixed: true,
		Children: []NodeSpec{
			{ID: "c1", Label: "Child 1", Toggle: true},
			{ID: "c2", Label: "Child 2", Toggle: true},
		},
	}
}

// Sample is the three-level map used across tests: a fixed root with two
// children, the first of which hides a grandchild.
func Sample() NodeSpec {
	return NodeSpec{
		ID:    "root",
		Label: "Root",
		Fixed: true,
		Children: []NodeSpec{
			{ID: "c1", Label: "Child 1", Children: []NodeSpec{{ID: "g1", Label: "Grandchild 1"}}},
			{ID: "c2", Label: "Child 2"},
		},
	}
}

// Deep is a chain of collapsed nodes below a fixed root, one per level.
func Deep(levels int) NodeSpec {
	leaf := NodeSpec{ID: fmt.Sprintf("n%d", levels), Label: fmt.Sprintf("Level %d", levels)}
	for i := levels - 1; i >= 1; i-- {
		leaf = NodeSpec{ID: fmt.Sprintf("n%d", i), Label: fmt.Sprintf("Level %d", i), Children: []NodeSpec{leaf}}
	}
	return NodeSpec{ID: "root", Label: "Root", Fixed: true, Children: []NodeSpec{leaf}}
}
