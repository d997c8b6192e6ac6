package hostpage

import (
	"strings"

	"github.com/kernel/mindmap/internal/dom"
	"github.com/kernel/mindmap/internal/dom/htmldom"
	"github.com/kernel/mindmap/internal/profile"
)

// Emulate gives a saved page the viewer's toggle behaviour: clicking a
// control matched by the profile flips its state attributes and shows or
// hides the child list next to it. It returns the number of wired controls.
func Emulate(doc *htmldom.Document, p profile.Profile) int {
	selectors := append(append(profile.SelectorSet{}, p.ExpandControls...), p.CollapseControls...)
	controls := dom.QueryAny(doc, selectors.Compact())
	for _, c := range controls {
		ctrl := c.(*htmldom.Node)
		ctrl.On("click", func(dom.Event) { flip(ctrl, p) })
	}
	return len(controls)
}

func flip(ctrl *htmldom.Node, p profile.Profile) {
	open := dom.MatchesAny(ctrl, p.ExpandControls)

	if _, ok := ctrl.Attr("aria-expanded"); ok {
		if open {
			ctrl.SetAttr("aria-expanded", "true")
		} else {
			ctrl.SetAttr("aria-expanded", "false")
		}
	}
	if label, ok := ctrl.Attr("aria-label"); ok {
		switch {
		case open && label == "Expand":
			ctrl.SetAttr("aria-label", "Collapse")
		case !open && label == "Collapse":
			ctrl.SetAttr("aria-label", "Expand")
		}
	}
	if class, ok := ctrl.Attr("class"); ok {
		from, to := "collapse-symbol", "expand-symbol"
		if open {
			from, to = to, from
		}
		fields := strings.Fields(class)
		for i, f := range fields {
			if f == from {
				fields[i] = to
			}
		}
		ctrl.SetAttr("class", strings.Join(fields, " "))
	}

	list := siblingList(ctrl, p)
	if list == nil {
		return
	}
	if open {
		list.RemoveAttr("hidden")
		if style, ok := list.Attr("style"); ok && strings.Contains(strings.ReplaceAll(style, " ", ""), "display:none") {
			list.RemoveAttr("style")
		}
	} else {
		list.SetAttr("hidden", "")
	}
}

// siblingList finds the element next to ctrl that holds its node's children.
func siblingList(ctrl *htmldom.Node, p profile.Profile) *htmldom.Node {
	parent := ctrl.Parent()
	if parent == nil {
		return nil
	}
	var hidden *htmldom.Node
	for _, c := range parent.Children() {
		if c.Same(ctrl) {
			continue
		}
		if nodes, err := c.QueryAll(p.Node); err == nil && len(nodes) > 0 {
			return c.(*htmldom.Node)
		}
		if _, ok := c.Attr("hidden"); ok && hidden == nil {
			hidden = c.(*htmldom.Node)
		}
	}
	return hidden
}
