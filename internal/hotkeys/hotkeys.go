// Package hotkeys maps keyboard shortcuts to companion actions.
package hotkeys

import (
	"fmt"
	"strings"

	"github.com/kernel/mindmap/internal/dom"
	"github.com/kernel/mindmap/internal/messaging"
)

// Binding is a modifier+key combination. Keys compare case-insensitively.
type Binding struct {
	Ctrl  bool
	Alt   bool
	Shift bool
	Key   string
}

func (b Binding) String() string {
	var parts []string
	if b.Ctrl {
		parts = append(parts, "Ctrl")
	}
	if b.Alt {
		parts = append(parts, "Alt")
	}
	if b.Shift {
		parts = append(parts, "Shift")
	}
	return strings.Join(append(parts, strings.ToUpper(b.Key)), "+")
}

func (b Binding) normal() Binding {
	b.Key = strings.ToLower(b.Key)
	return b
}

// ParseBinding reads combinations such as "ctrl+shift+e".
func ParseBinding(s string) (Binding, error) {
	var b Binding
	for _, part := range strings.Split(s, "+") {
		switch p := strings.ToLower(strings.TrimSpace(part)); p {
		case "ctrl", "control":
			b.Ctrl = true
		case "alt", "option":
			b.Alt = true
		case "shift":
			b.Shift = true
		case "":
			return Binding{}, fmt.Errorf("invalid binding %q", s)
		default:
			if b.Key != "" {
				return Binding{}, fmt.Errorf("invalid binding %q: more than one key", s)
			}
			b.Key = p
		}
	}
	if b.Key == "" {
		return Binding{}, fmt.Errorf("invalid binding %q: missing key", s)
	}
	if !b.Ctrl && !b.Alt {
		return Binding{}, fmt.Errorf("invalid binding %q: needs ctrl or alt", s)
	}
	return b, nil
}

// Defaults binds Ctrl+Shift and Alt+Shift with E, C, O and I to expand-all,
// collapse-all, export and show-insights.
func Defaults() map[Binding]messaging.Action {
	keys := map[string]messaging.Action{
		"e": messaging.ActionExpandAll,
		"c": messaging.ActionCollapseAll,
		"o": messaging.ActionExport,
		"i": messaging.ActionShowInsights,
	}
	out := make(map[Binding]messaging.Action, 2*len(keys))
	for k, a := range keys {
		out[Binding{Ctrl: true, Shift: true, Key: k}] = a
		out[Binding{Alt: true, Shift: true, Key: k}] = a
	}
	return out
}

// Dispatcher turns key signals into actions while hotkeys are enabled.
type Dispatcher struct {
	bindings map[Binding]messaging.Action
	enabled  func() bool
}

// NewDispatcher uses bindings (Defaults when nil) and consults enabled on
// every key press.
func NewDispatcher(bindings map[Binding]messaging.Action, enabled func() bool) *Dispatcher {
	if bindings == nil {
		bindings = Defaults()
	}
	normal := make(map[Binding]messaging.Action, len(bindings))
	for b, a := range bindings {
		normal[b.normal()] = a
	}
	return &Dispatcher{bindings: normal, enabled: enabled}
}

// Match returns the action bound to a key signal.
func (d *Dispatcher) Match(sig dom.Signal) (messaging.Action, bool) {
	if sig.Kind != dom.SignalKey {
		return "", false
	}
	if d.enabled != nil && !d.enabled() {
		return "", false
	}
	a, ok := d.bindings[Binding{Ctrl: sig.Ctrl, Alt: sig.Alt, Shift: sig.Shift, Key: sig.Key}.normal()]
	return a, ok
}
