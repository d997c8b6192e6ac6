package locate

import (
	"strconv"
	"strings"

	"github.com/kernel/mindmap/internal/dom"
)

// IsVisible reports whether an element is rendered and can take a click:
// a positive box, not display:none, not visibility:hidden and not fully
// transparent.
func IsVisible(n dom.Node) bool {
	if n == nil {
		return false
	}
	l := n.Layout()
	if l.Width <= 0 || l.Height <= 0 {
		return false
	}
	if strings.EqualFold(l.Display, "none") || strings.EqualFold(l.Visibility, "hidden") {
		return false
	}
	if op := strings.TrimSpace(l.Opacity); op != "" {
		if f, err := strconv.ParseFloat(op, 64); err == nil && f <= 0 {
			return false
		}
	}
	return true
}
