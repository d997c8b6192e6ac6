package profile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompact(t *testing.T) {
	s := SelectorSet{" .a ", "", ".b", ".a", "  "}
	assert.Equal(t, SelectorSet{".a", ".b"}, s.Compact())
}

func TestResolve(t *testing.T) {
	configured := map[string]Profile{
		"legacy": {Node: "g.node", Containers: SelectorSet{"svg.map"}},
		"broken": {Containers: SelectorSet{"svg.map"}, Node: " "},
	}

	t.Run("empty name uses the built-in profile", func(t *testing.T) {
		p, err := Resolve("", configured)
		require.NoError(t, err)
		assert.Equal(t, Default(), p)
	})

	t.Run("configured profile inherits unset fields", func(t *testing.T) {
		p, err := Resolve("legacy", configured)
		require.NoError(t, err)
		assert.Equal(t, "legacy", p.Name)
		assert.Equal(t, "g.node", p.Node)
		assert.Equal(t, SelectorSet{"svg.map"}, p.Containers)
		assert.Equal(t, Default().ExpandControls, p.ExpandControls)
	})

	t.Run("unknown profile lists the available ones", func(t *testing.T) {
		_, err := Resolve("nope", configured)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "default, broken, legacy")
	})

	t.Run("blank node selector is rejected", func(t *testing.T) {
		_, err := Resolve("broken", configured)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "node selector is required")
	})
}

func TestIsGlyph(t *testing.T) {
	p := Default()
	assert.True(t, p.IsGlyph(" > "))
	assert.True(t, p.IsGlyph("∨"))
	assert.False(t, p.IsGlyph("Root"))
}
