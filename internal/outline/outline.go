// Package outline turns a mind map into an ordered list of labelled entries
// and renders that list in the export formats.
package outline

import (
	"github.com/kernel/mindmap/internal/dom"
	"github.com/kernel/mindmap/internal/identity"
	"github.com/kernel/mindmap/internal/profile"
	"github.com/kernel/mindmap/internal/tree"
)

// Entry is one labelled node.
type Entry struct {
	ID    string `json:"id"`
	Depth int    `json:"depth"`
	Label string `json:"text"`
}

// Document is a pre-order list of entries.
type Document []Entry

// Serialize walks the nodes below root in pre-order. Depth is the number of
// node ancestors inside root, so it does not depend on how the walk reached
// a node. Nodes without a label are left out but their children are kept.
func Serialize(root dom.Node, p profile.Profile) Document {
	doc := Document{}
	if root == nil {
		return doc
	}
	t := tree.New(root, p)
	var walk func(n dom.Node)
	walk = func(n dom.Node) {
		if label := t.Label(n); label != "" {
			doc = append(doc, Entry{ID: identity.Of(n), Depth: t.Depth(n), Label: label})
		}
		for _, c := range t.Children(n) {
			walk(c)
		}
	}
	for _, r := range t.Roots() {
		walk(r)
	}
	return doc
}

// Labels returns the entry labels in order.
func (d Document) Labels() []string {
	out := make([]string, len(d))
	for i, e := range d {
		out[i] = e.Label
	}
	return out
}

// Node is an entry with its children attached.
type Node struct {
	ID       string  `json:"id"`
	Text     string  `json:"text"`
	Depth    int     `json:"depth"`
	Children []*Node `json:"children"`
}

// Tree rebuilds the hierarchy from entry depths: each entry becomes a child
// of the closest preceding entry that is shallower.
func (d Document) Tree() []*Node {
	roots := []*Node{}
	var stack []*Node
	for _, e := range d {
		n := &Node{ID: e.ID, Text: e.Label, Depth: e.Depth, Children: []*Node{}}
		for len(stack) > 0 && stack[len(stack)-1].Depth >= e.Depth {
			stack = stack[:len(stack)-1]
		}
		if len(stack) == 0 {
			roots = append(roots, n)
		} else {
			parent := stack[len(stack)-1]
			parent.Children = append(parent.Children, n)
		}
		stack = append(stack, n)
	}
	return roots
}

// Ancestors returns, for every entry, the labels of its ancestors from the
// top down.
func (d Document) Ancestors() [][]string {
	out := make([][]string, len(d))
	var stack []Entry
	for i, e := range d {
		for len(stack) > 0 && stack[len(stack)-1].Depth >= e.Depth {
			stack = stack[:len(stack)-1]
		}
		path := make([]string, len(stack))
		for j, s := range stack {
			path[j] = s.Label
		}
		out[i] = path
		stack = append(stack, e)
	}
	return out
}
