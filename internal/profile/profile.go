// Package profile holds the selector sets that describe a host page's
// mind-map markup. Selectors are configuration: when the host changes its
// markup, a profile is edited rather than code.
package profile

import (
	"fmt"
	"slices"
	"strings"

	"github.com/samber/lo"
)

// SelectorSet is an ordered list of selectors; earlier entries win.
type SelectorSet []string

// Compact drops blank entries and duplicates, keeping first occurrences.
func (s SelectorSet) Compact() SelectorSet {
	out := lo.Uniq(lo.FilterMap(s, func(sel string, _ int) (string, bool) {
		sel = strings.TrimSpace(sel)
		return sel, sel != ""
	}))
	return SelectorSet(out)
}

// Profile describes one host's mind-map markup.
type Profile struct {
	Name string `koanf:"name" yaml:"name"`
	// Containers locate the mind-map root element.
	Containers SelectorSet `koanf:"containers" yaml:"containers"`
	// Node matches every mind-map node element.
	Node string `koanf:"node" yaml:"node"`
	// Labels find a node's caption among its own descendants.
	Labels SelectorSet `koanf:"labels" yaml:"labels"`
	// ExpandControls match toggles of collapsed nodes.
	ExpandControls SelectorSet `koanf:"expand_controls" yaml:"expand_controls"`
	// CollapseControls match toggles of expanded nodes.
	CollapseControls SelectorSet `koanf:"collapse_controls" yaml:"collapse_controls"`
	// Glyphs are marker texts that are never labels.
	Glyphs []string `koanf:"glyphs" yaml:"glyphs"`
	// ExpandAllButtons and CollapseAllButtons find the host's own toolbar.
	ExpandAllButtons   SelectorSet `koanf:"expand_all_buttons" yaml:"expand_all_buttons"`
	CollapseAllButtons SelectorSet `koanf:"collapse_all_buttons" yaml:"collapse_all_buttons"`
	// Excluded regions hold off-screen copies of controls that are never clicked.
	Excluded SelectorSet `koanf:"excluded" yaml:"excluded"`
	// PointerUp adds a pointerup after the click when activating a control.
	PointerUp bool `koanf:"pointer_up" yaml:"pointer_up"`
}

// DefaultName is the name of the built-in profile.
const DefaultName = "default"

// Default returns the built-in profile for the hosted notebook viewer.
func Default() Profile {
	return Profile{
		Name: DefaultName,
		Containers: SelectorSet{
			`[data-testid="mind-map-container"]`,
			`.mind-map-container`,
			`div[class^="MindMapViewer"]`,
			`[data-test-id="mind-map-container"]`,
			`#mind-map-container`,
			`.mindmap-root`,
			`.mind-map-wrapper`,
			`[class*="mind-map"][role="application"]`,
			`div[data-testid="mind-map-root"]`,
			`div.mindmap`,
			`section.mindmap`,
			`div[class*="mindmap"]`,
			`div[class*="MindMap"]`,
			`div[class*="NodeTree"]`,
			`.notebook-mind-map`,
			`[aria-label*="mind map"]`,
			`mindmap`,
		},
		Node: `.node`,
		Labels: SelectorSet{
			`.node-label-text`,
			`[class*="node-text"]`,
			`[class*="node-content"]`,
			`span[class*="label"]`,
			`text`,
		},
		ExpandControls: SelectorSet{
			`text.expand-symbol`,
			`[aria-label="Expand"]`,
			`[aria-expanded="false"]`,
		},
		CollapseControls: SelectorSet{
			`text.collapse-symbol`,
			`[aria-label="Collapse"]`,
			`[aria-expanded="true"]`,
		},
		Glyphs: []string{">", "<", "∨", "∧", "▶", "▼"},
		ExpandAllButtons: SelectorSet{
			`[aria-label="Expand all"]`,
			`[data-testid="expand-all-button"]`,
			`button[title*="Expand all"]`,
			`.mind-map-toolbar button:has(svg[class*="expand"])`,
		},
		CollapseAllButtons: SelectorSet{
			`[aria-label="Collapse all"]`,
			`[data-testid="collapse-all-button"]`,
			`button[title*="Collapse all"]`,
			`.mind-map-toolbar button:has(svg[class*="collapse"])`,
		},
		Excluded:  SelectorSet{`.sidebar`, `[class*="sidebar"]`, `nav`},
		PointerUp: true,
	}
}

// Validate checks the fields every traversal depends on.
func (p Profile) Validate() error {
	if strings.TrimSpace(p.Node) == "" {
		return fmt.Errorf("profile %q: node selector is required", p.Name)
	}
	if len(p.Containers.Compact()) == 0 {
		return fmt.Errorf("profile %q: at least one container selector is required", p.Name)
	}
	return nil
}

// Merge fills the empty fields of p from base.
func (p Profile) Merge(base Profile) Profile {
	if p.Name == "" {
		p.Name = base.Name
	}
	if len(p.Containers) == 0 {
		p.Containers = base.Containers
	}
	if p.Node == "" {
		p.Node = base.Node
	}
	if len(p.Labels) == 0 {
		p.Labels = base.Labels
	}
	if len(p.ExpandControls) == 0 {
		p.ExpandControls = base.ExpandControls
	}
	if len(p.CollapseControls) == 0 {
		p.CollapseControls = base.CollapseControls
	}
	if len(p.Glyphs) == 0 {
		p.Glyphs = base.Glyphs
	}
	if len(p.ExpandAllButtons) == 0 {
		p.ExpandAllButtons = base.ExpandAllButtons
	}
	if len(p.CollapseAllButtons) == 0 {
		p.CollapseAllButtons = base.CollapseAllButtons
	}
	if len(p.Excluded) == 0 {
		p.Excluded = base.Excluded
	}
	return p
}

// IsGlyph reports whether text is only an expand/collapse marker.
func (p Profile) IsGlyph(text string) bool {
	return lo.Contains(p.Glyphs, strings.TrimSpace(text))
}

// Resolve picks the named profile from the configured set. An empty name
// selects the built-in profile; configured profiles inherit any field they
// leave empty from it.
func Resolve(name string, configured map[string]Profile) (Profile, error) {
	base := Default()
	if name == "" || name == DefaultName {
		if p, ok := configured[DefaultName]; ok {
			return p.Merge(base), nil
		}
		return base, nil
	}
	p, ok := configured[name]
	if !ok {
		return Profile{}, fmt.Errorf("unknown profile %q (available: %s)", name, strings.Join(Names(configured), ", "))
	}
	if p.Name == "" {
		p.Name = name
	}
	p = p.Merge(base)
	if err := p.Validate(); err != nil {
		return Profile{}, err
	}
	return p, nil
}

// Names lists the default profile and every configured one, sorted.
func Names(configured map[string]Profile) []string {
	names := lo.Uniq(append([]string{DefaultName}, lo.Keys(configured)...))
	slices.Sort(names[1:])
	return names
}
