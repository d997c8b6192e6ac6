package cdpdom

import (
	"context"
	"net/url"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kernel/mindmap/internal/browser"
	"github.com/kernel/mindmap/internal/dom"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fixture = `<!doctype html><html><body>
<div id="map" class="mind-map-container" style="width:400px;height:300px">
  <div class="node" data-node-id="root"><span class="node-label-text">Root</span>
    <div class="node" data-node-id="child"><span class="node-label-text">Child</span></div>
  </div>
  <div class="node" data-node-id="hidden" style="display:none"><span>Hidden</span></div>
</div>
</body></html>`

// attach opens a local headless Chrome. Set MINDMAP_CHROME_TESTS=1 to run.
func attach(t *testing.T) *Document {
	t.Helper()
	if os.Getenv("MINDMAP_CHROME_TESTS") == "" {
		t.Skip("set MINDMAP_CHROME_TESTS=1 to run against a local Chrome")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	t.Cleanup(cancel)

	s, err := browser.Open(ctx, browser.Options{Headless: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.Navigate("data:text/html,"+url.PathEscape(fixture)))

	d, err := Attach(s.Context(), Options{PollInterval: 20 * time.Millisecond})
	require.NoError(t, err)
	t.Cleanup(d.Close)
	return d
}

func TestLivePage_QueriesAndLayout(t *testing.T) {
	d := attach(t)

	nodes, err := d.QueryAll(".node")
	require.NoError(t, err)
	require.Len(t, nodes, 3)

	id, ok := nodes[1].Attr("data-node-id")
	assert.True(t, ok)
	assert.Equal(t, "child", id)
	assert.True(t, nodes[1].Parent().Same(nodes[0]))
	assert.Equal(t, "div", nodes[0].Tag())
	assert.Contains(t, nodes[0].Text(), "Root")

	again, err := d.QueryAll(`[data-node-id="child"]`)
	require.NoError(t, err)
	require.Len(t, again, 1)
	assert.True(t, again[0].Same(nodes[1]))

	assert.Greater(t, nodes[0].Layout().Width, 0.0)
	assert.Equal(t, "none", nodes[2].Layout().Display)

	_, err = d.QueryAll("div[")
	assert.ErrorIs(t, err, dom.ErrInvalidSelector)

	m := d.ByID("map")
	require.NotNil(t, m)
	assert.True(t, m.Connected())
	assert.Nil(t, d.ByID("absent"))
}

func TestLivePage_MutationsAndSignals(t *testing.T) {
	d := attach(t)

	var mutated atomic.Int32
	stop := d.Observe(func() { mutated.Add(1) })
	defer stop()

	signals := make(chan dom.Signal, 4)
	unsub := d.Subscribe(func(s dom.Signal) { signals <- s })
	defer unsub()

	m := d.ByID("map")
	require.NotNil(t, m)
	require.NoError(t, d.AppendHTML(m, `<button data-mmx-action="expand-all">Expand</button>`))
	require.Eventually(t, func() bool { return mutated.Load() > 0 }, 2*time.Second, 10*time.Millisecond)

	buttons, err := m.QueryAll("[data-mmx-action]")
	require.NoError(t, err)
	require.Len(t, buttons, 1)
	require.NoError(t, buttons[0].Dispatch(dom.Mouse("click")))

	select {
	case s := <-signals:
		assert.Equal(t, dom.SignalAction, s.Kind)
		assert.Equal(t, "expand-all", s.Action)
	case <-time.After(2 * time.Second):
		t.Fatal("no signal")
	}
}
