// Package identity derives best-effort stable identities for page elements.
package identity

import (
	"strconv"
	"strings"
	"sync"

	"github.com/kernel/mindmap/internal/dom"
)

// NodeIDAttr is the attribute hosts use to carry their own node identity.
const NodeIDAttr = "data-node-id"

// Of returns the host-supplied data-node-id, else the element id, else the
// element's structural path from the document root ("path:0.1.3").
// Structural paths are stable as long as the element's ancestors keep their
// child order; they are never random.
func Of(n dom.Node) string {
	if n == nil {
		return ""
	}
	if v, ok := n.Attr(NodeIDAttr); ok && strings.TrimSpace(v) != "" {
		return v
	}
	if v, ok := n.Attr("id"); ok && strings.TrimSpace(v) != "" {
		return v
	}
	return "path:" + Path(n)
}

// Path is the ordinal child-index chain from the top of n's tree to n.
func Path(n dom.Node) string {
	var idx []string
	for cur := n; cur != nil; {
		parent := cur.Parent()
		if parent == nil {
			break
		}
		pos := 0
		for i, c := range parent.Children() {
			if c.Same(cur) {
				pos = i
				break
			}
		}
		idx = append(idx, strconv.Itoa(pos))
		cur = parent
	}
	for i, j := 0, len(idx)-1; i < j; i, j = i+1, j-1 {
		idx[i], idx[j] = idx[j], idx[i]
	}
	return strings.Join(idx, ".")
}

// Set records processed identities. It is safe for concurrent use.
type Set struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

// NewSet returns an empty set.
func NewSet() *Set {
	return &Set{seen: make(map[string]struct{})}
}

// Add records id and reports whether it was new.
func (s *Set) Add(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.seen[id]; ok {
		return false
	}
	s.seen[id] = struct{}{}
	return true
}

// Has reports whether id was recorded.
func (s *Set) Has(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.seen[id]
	return ok
}

// Len is the number of recorded identities.
func (s *Set) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.seen)
}
