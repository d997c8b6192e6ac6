// Package toolbar injects the companion's floating toolbar into a host page.
package toolbar

import (
	"fmt"
	"html"
	"strings"

	"github.com/kernel/mindmap/internal/dom"
	"github.com/kernel/mindmap/internal/messaging"
	"github.com/kernel/mindmap/internal/settings"
)

// ID is the element id of the injected toolbar.
const ID = "mmx-toolbar"

// Button is one toolbar entry.
type Button struct {
	Action messaging.Action
	Label  string
	Title  string
}

// Buttons are rendered in this order.
var Buttons = []Button{
	{messaging.ActionExpandAll, "Expand all", "Expand all nodes (Ctrl+Shift+E)"},
	{messaging.ActionCollapseAll, "Collapse all", "Collapse all nodes (Ctrl+Shift+C)"},
	{messaging.ActionExport, "Export", "Export outline (Ctrl+Shift+O)"},
	{messaging.ActionOpenSearch, "Search", "Search notes and sources"},
	{messaging.ActionShowInsights, "Insights", "Analyze this mind map (Ctrl+Shift+I)"},
}

// Injected reports whether the toolbar is already on the page.
func Injected(doc dom.Document) bool {
	return doc.ByID(ID) != nil
}

// Markup renders the toolbar for a theme.
func Markup(theme settings.Theme) string {
	if theme == "" {
		theme = settings.ThemeAuto
	}
	var b strings.Builder
	fmt.Fprintf(&b, `<div id="%s" class="mmx-toolbar mmx-theme-%s" role="toolbar" aria-label="Mind map tools">`, ID, html.EscapeString(string(theme)))
	for _, btn := range Buttons {
		fmt.Fprintf(&b, `<button type="button" class="mmx-button" %s="%s" title="%s">%s</button>`,
			dom.ActionAttr, btn.Action, html.EscapeString(btn.Title), html.EscapeString(btn.Label))
	}
	b.WriteString(`</div>`)
	return b.String()
}

// Inject appends the toolbar next to the container, at the end of body when
// one exists. It is a no-op when the toolbar is already present.
func Inject(doc dom.Document, container dom.Node, theme settings.Theme) error {
	if Injected(doc) {
		return nil
	}
	parent := dom.Node(doc)
	if bodies, err := doc.QueryAll("body"); err == nil && len(bodies) > 0 {
		parent = bodies[0]
	} else if container != nil && container.Parent() != nil {
		parent = container.Parent()
	}
	if err := doc.AppendHTML(parent, Markup(theme)); err != nil {
		return fmt.Errorf("failed to inject toolbar: %w", err)
	}
	return nil
}
