// Package tree reads the node hierarchy of a mind-map container. Nodes are
// the elements matching the profile's node selector; a node's parent is its
// nearest node ancestor inside the container, whatever wrappers the host
// puts between them.
package tree

import (
	"strings"

	"github.com/kernel/mindmap/internal/dom"
	"github.com/kernel/mindmap/internal/profile"
)

// Tree is a view over one container.
type Tree struct {
	Container dom.Node
	Profile   profile.Profile
}

// New returns a view of container described by p.
func New(container dom.Node, p profile.Profile) Tree {
	return Tree{Container: container, Profile: p}
}

// Owner returns the nearest node at or above el inside the container.
func (t Tree) Owner(el dom.Node) dom.Node {
	return dom.Closest(el, t.Profile.Node, t.Container)
}

// ParentOf returns the nearest node strictly above n inside the container.
func (t Tree) ParentOf(n dom.Node) dom.Node {
	p := n.Parent()
	if p == nil {
		return nil
	}
	return t.Owner(p)
}

// Roots returns the top-level nodes in document order.
func (t Tree) Roots() []dom.Node {
	return t.childrenOf(nil)
}

// Children returns the nodes whose parent node is n, in document order.
func (t Tree) Children(n dom.Node) []dom.Node {
	return t.childrenOf(n)
}

func (t Tree) childrenOf(n dom.Node) []dom.Node {
	scope := t.Container
	if n != nil {
		scope = n
	}
	all, err := scope.QueryAll(t.Profile.Node)
	if err != nil {
		return nil
	}
	var out []dom.Node
	for _, c := range all {
		p := t.ParentOf(c)
		if (n == nil && p == nil) || (n != nil && p != nil && p.Same(n)) {
			out = append(out, c)
		}
	}
	return out
}

// Depth counts the node ancestors of n inside the container; roots are 0.
func (t Tree) Depth(n dom.Node) int {
	depth := 0
	for p := t.ParentOf(n); p != nil; p = t.ParentOf(p) {
		depth++
	}
	return depth
}

// Controls returns the elements below scope matching any of selectors, in
// document order. With owner set, only elements whose owning node is owner
// are kept.
func (t Tree) Controls(scope dom.Node, selectors profile.SelectorSet, owner dom.Node) []dom.Node {
	found := dom.QueryAny(scope, selectors)
	if owner == nil {
		return found
	}
	var out []dom.Node
	for _, c := range found {
		if o := t.Owner(c); o != nil && o.Same(owner) {
			out = append(out, c)
		}
	}
	return out
}

// OwnControls also considers n itself, for hosts that put the toggle state
// on the node element.
func (t Tree) OwnControls(n dom.Node, selectors profile.SelectorSet) []dom.Node {
	var out []dom.Node
	if dom.MatchesAny(n, selectors) {
		out = append(out, n)
	}
	return append(out, t.Controls(n, selectors, n)...)
}

// Label returns the caption of n: the text of the first label element owned
// by n that is not a bare glyph.
func (t Tree) Label(n dom.Node) string {
	for _, sel := range t.Profile.Labels {
		els, err := n.QueryAll(sel)
		if err != nil {
			continue
		}
		for _, el := range els {
			if o := t.Owner(el); o == nil || !o.Same(n) {
				continue
			}
			text := strings.Join(strings.Fields(el.Text()), " ")
			if text == "" || t.Profile.IsGlyph(text) {
				continue
			}
			return text
		}
	}
	return ""
}

// Excluded reports whether el sits inside a region the profile excludes,
// looking no further up than the container.
func (t Tree) Excluded(el dom.Node) bool {
	for _, sel := range t.Profile.Excluded {
		if dom.Closest(el, sel, t.Container) != nil {
			return true
		}
	}
	return false
}
