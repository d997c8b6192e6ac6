package identity

import (
	"testing"

	"github.com/kernel/mindmap/internal/dom/htmldom"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOf(t *testing.T) {
	doc, err := htmldom.ParseString(`<html><head></head><body>
<div data-node-id="n-1" id="shadowed"></div>
<div id="plain"></div>
<div><span class="anon"></span><span class="anon"></span></div>
</body></html>`)
	require.NoError(t, err)

	nodes, err := doc.QueryAll("div, span.anon")
	require.NoError(t, err)
	require.Len(t, nodes, 5)

	assert.Equal(t, "n-1", Of(nodes[0]))
	assert.Equal(t, "plain", Of(nodes[1]))
	// html > body(1) > third div(2) > first/second span
	assert.Equal(t, "path:0.1.2.0", Of(nodes[3]))
	assert.Equal(t, "path:0.1.2.1", Of(nodes[4]))
	assert.Equal(t, Of(nodes[4]), Of(nodes[4]))
	assert.Equal(t, "", Of(nil))
}

func TestSet(t *testing.T) {
	s := NewSet()
	assert.True(t, s.Add("a"))
	assert.False(t, s.Add("a"))
	assert.True(t, s.Has("a"))
	assert.False(t, s.Has("b"))
	assert.Equal(t, 1, s.Len())
}
