package companion

import (
	"context"
	"fmt"
	"time"

	"github.com/kernel/mindmap/internal/dom"
	"github.com/kernel/mindmap/internal/insights"
	"github.com/kernel/mindmap/internal/locate"
	"github.com/kernel/mindmap/internal/messaging"
	"github.com/kernel/mindmap/internal/outline"
	"github.com/kernel/mindmap/internal/profile"
	"github.com/kernel/mindmap/internal/search"
	"github.com/kernel/mindmap/internal/toggle"
)

// ExpandAll opens every node, preferring the host's own expand-all button.
func (c *Companion) ExpandAll(ctx context.Context) (ToggleResult, error) {
	return c.toggleAll(ctx, toggle.Expand, c.opts.Profile.ExpandAllButtons)
}

// CollapseAll closes every node, preferring the host's own collapse-all
// button.
func (c *Companion) CollapseAll(ctx context.Context) (ToggleResult, error) {
	return c.toggleAll(ctx, toggle.Collapse, c.opts.Profile.CollapseAllButtons)
}

func (c *Companion) toggleAll(ctx context.Context, dir toggle.Direction, buttons profile.SelectorSet) (ToggleResult, error) {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	container, err := c.locator.Locate(ctx)
	if err != nil {
		return ToggleResult{}, fmt.Errorf("failed to find mind map: %w", err)
	}

	if btn := c.hostButton(ctx, container, buttons); btn != nil {
		toggle.Activate(btn, c.opts.Profile.PointerUp)
		c.opts.Logger.Debug("used host toolbar button", c.opts.Logger.Args("direction", dir.String()))
		return ToggleResult{Method: MethodHostButton, Activations: 1}, nil
	}

	n, err := c.walker.Toggle(ctx, container, dir, toggle.Unbounded)
	if err != nil {
		return ToggleResult{Method: MethodWalk, Activations: n}, fmt.Errorf("failed to %s nodes: %w", dir, err)
	}
	return ToggleResult{Method: MethodWalk, Activations: n}, nil
}

// hostButton finds the host's own toolbar button. Buttons outside the
// container or inside an excluded region are ignored.
func (c *Companion) hostButton(ctx context.Context, container dom.Node, selectors profile.SelectorSet) dom.Node {
	if len(selectors.Compact()) == 0 {
		return nil
	}
	r := c.opts.Resolver
	r.Timeout = c.opts.ButtonTimeout
	r.Logger = nil
	if r.PollInterval == 0 || r.PollInterval > r.Timeout {
		r.PollInterval = locate.DefaultPollInterval
	}
	btn, err := r.Resolve(ctx, c.doc, selectors)
	if err != nil {
		c.opts.Logger.Debug("no host toolbar button, walking nodes", c.opts.Logger.Args("timeout", r.Timeout.String()))
		return nil
	}
	if !dom.Contains(container, btn) {
		return nil
	}
	for _, sel := range c.opts.Profile.Excluded.Compact() {
		if dom.Closest(btn, sel, nil) != nil {
			return nil
		}
	}
	return btn
}

// Outline serializes the current mind map.
func (c *Companion) Outline(ctx context.Context) (outline.Document, error) {
	container, err := c.locator.Locate(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to find mind map: %w", err)
	}
	return outline.Serialize(container, c.opts.Profile), nil
}

// Export renders the current mind map in format f.
func (c *Companion) Export(ctx context.Context, f outline.Format) (Export, error) {
	doc, err := c.Outline(ctx)
	if err != nil {
		return Export{}, err
	}
	content, err := outline.Render(doc, f)
	if err != nil {
		return Export{}, fmt.Errorf("failed to render %s: %w", f, err)
	}
	return Export{Format: f, FileName: f.FileName(), Entries: len(doc), Content: content}, nil
}

// ExportAll runs the configured batch export and broadcasts its progress as
// exportProgress messages.
func (c *Companion) ExportAll(ctx context.Context, f outline.Format) (any, error) {
	if c.opts.Batch == nil {
		return nil, ErrNoBatch
	}
	return c.opts.Batch(ctx, f, func(pct int) {
		if c.bus != nil {
			c.bus.Publish(messaging.Progress(pct))
		}
	})
}

// Insights analyzes the current mind map.
func (c *Companion) Insights(ctx context.Context) (insights.Insights, error) {
	doc, err := c.Outline(ctx)
	if err != nil {
		return insights.Insights{}, err
	}
	return c.opts.Analyzer.Analyze(ctx, doc), nil
}

// Search indexes the current mind map and queries the index. Without a mind
// map on the page the previously indexed items are still searched.
func (c *Companion) Search(ctx context.Context, query string, f search.Filters) ([]search.Result, error) {
	doc, err := c.Outline(ctx)
	if err == nil {
		c.opts.Index.Add(search.FromOutline(doc, time.Now())...)
	} else if c.opts.Index.Len() == 0 {
		return nil, err
	}
	results := c.opts.Index.Search(query, f)
	if results == nil {
		results = []search.Result{}
	}
	return results, nil
}
