// Package toggle expands and collapses mind-map nodes by clicking the host
// page's own toggle controls.
package toggle

import (
	"context"
	"time"

	"github.com/kernel/mindmap/internal/dom"
	"github.com/kernel/mindmap/internal/identity"
	"github.com/kernel/mindmap/internal/locate"
	"github.com/kernel/mindmap/internal/profile"
	"github.com/kernel/mindmap/internal/tree"
	"github.com/pterm/pterm"
)

// Direction selects which controls a traversal activates.
type Direction int

const (
	Expand Direction = iota
	Collapse
)

func (d Direction) String() string {
	if d == Collapse {
		return "collapse"
	}
	return "expand"
}

// Unbounded lifts the depth limit of a traversal.
const Unbounded = -1

const (
	DefaultBatchSize       = 5
	DefaultBatchDelay      = 50 * time.Millisecond
	DefaultSecondPassDelay = 500 * time.Millisecond
)

// Walker activates toggle controls below a container.
type Walker struct {
	Profile profile.Profile
	// Every BatchSize activations the walker pauses for BatchDelay so the
	// host can render.
	BatchSize  int
	BatchDelay time.Duration
	// SecondPassDelay is the pause before the follow-up expand pass that
	// picks up controls the host rendered asynchronously.
	SecondPassDelay time.Duration
	Logger          *pterm.Logger
}

// New returns a walker with the default pacing.
func New(p profile.Profile) *Walker {
	return &Walker{
		Profile:         p,
		BatchSize:       DefaultBatchSize,
		BatchDelay:      DefaultBatchDelay,
		SecondPassDelay: DefaultSecondPassDelay,
		Logger:          &pterm.DefaultLogger,
	}
}

// run is the state of one traversal.
type run struct {
	w     *Walker
	tree  tree.Tree
	seen  *identity.Set
	max   int
	count int
}

// Expand opens nodes down to maxDepth and returns the number of activations.
func (w *Walker) Expand(ctx context.Context, root dom.Node, maxDepth int) (int, error) {
	return w.Toggle(ctx, root, Expand, maxDepth)
}

// Collapse closes nodes down to maxDepth and returns the number of activations.
func (w *Walker) Collapse(ctx context.Context, root dom.Node, maxDepth int) (int, error) {
	return w.Toggle(ctx, root, Collapse, maxDepth)
}

// Toggle walks the nodes below root and activates every visible control for
// dir whose node sits at depth maxDepth or shallower (Unbounded for no
// limit). Controls are deduplicated by identity for the whole call. The count
// is returned even when ctx ends the walk early.
func (w *Walker) Toggle(ctx context.Context, root dom.Node, dir Direction, maxDepth int) (int, error) {
	if root == nil || !root.Connected() {
		return 0, nil
	}
	r := &run{w: w, tree: tree.New(root, w.Profile), seen: identity.NewSet(), max: maxDepth}

	if dir == Collapse {
		err := r.collapse(ctx)
		return r.count, err
	}

	if err := r.expandPass(ctx); err != nil {
		return r.count, err
	}
	if err := sleep(ctx, w.SecondPassDelay); err != nil {
		return r.count, err
	}
	first := r.count
	if err := r.expandPass(ctx); err != nil {
		return r.count, err
	}
	if r.count > first && w.Logger != nil {
		w.Logger.Debug("second expand pass found more controls", w.Logger.Args("count", r.count-first))
	}
	return r.count, nil
}

func (r *run) allowed(depth int) bool {
	return r.max < 0 || depth <= r.max
}

func (r *run) expandPass(ctx context.Context) error {
	for _, n := range r.tree.Roots() {
		if err := r.expandNode(ctx, n, 0); err != nil {
			return err
		}
	}
	return nil
}

// expandNode activates n's own expand controls one at a time, re-querying
// after each click, then descends into n's children.
func (r *run) expandNode(ctx context.Context, n dom.Node, depth int) error {
	if !r.allowed(depth) {
		return nil
	}
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		ctrl := r.next(r.tree.OwnControls(n, r.w.Profile.ExpandControls))
		if ctrl == nil {
			break
		}
		if err := r.activate(ctx, ctrl); err != nil {
			return err
		}
	}
	for _, c := range r.tree.Children(n) {
		if err := r.expandNode(ctx, c, depth+1); err != nil {
			return err
		}
	}
	return nil
}

// collapse repeatedly takes the last eligible collapse control in document
// order, so descendants close before their ancestors hide them.
func (r *run) collapse(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		var candidates []dom.Node
		for _, c := range r.tree.Controls(r.tree.Container, r.w.Profile.CollapseControls, nil) {
			owner := r.tree.Owner(c)
			if owner == nil || !r.allowed(r.tree.Depth(owner)) {
				continue
			}
			candidates = append(candidates, c)
		}
		var ctrl dom.Node
		for i := len(candidates) - 1; i >= 0 && ctrl == nil; i-- {
			ctrl = r.next(candidates[i : i+1])
		}
		if ctrl == nil {
			return nil
		}
		if err := r.activate(ctx, ctrl); err != nil {
			return err
		}
	}
}

// next returns the first control that is visible, outside excluded regions
// and not yet processed.
func (r *run) next(controls []dom.Node) dom.Node {
	for _, c := range controls {
		if !locate.IsVisible(c) || r.tree.Excluded(c) {
			continue
		}
		if r.seen.Has(identity.Of(c)) {
			continue
		}
		return c
	}
	return nil
}

func (r *run) activate(ctx context.Context, ctrl dom.Node) error {
	r.seen.Add(identity.Of(ctrl))
	Activate(ctrl, r.w.Profile.PointerUp)
	r.count++
	if r.w.BatchSize > 0 && r.count%r.w.BatchSize == 0 {
		return sleep(ctx, r.w.BatchDelay)
	}
	return nil
}

// Activate clicks a control the way a user would: mousedown, mouseup and
// click, then pointerup when asked. A text glyph is clicked through its
// parent group. Dispatch failures are ignored.
func Activate(ctrl dom.Node, pointerUp bool) {
	target := ctrl
	if ctrl.Tag() == "text" {
		if p := ctrl.Parent(); p != nil {
			target = p
		}
	}
	types := []string{"mousedown", "mouseup", "click"}
	if pointerUp {
		types = append(types, "pointerup")
	}
	for _, typ := range types {
		_ = target.Dispatch(dom.Mouse(typ))
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
