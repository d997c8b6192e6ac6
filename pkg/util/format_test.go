package util

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDashHelpers(t *testing.T) {
	assert.Equal(t, "-", OrDash(""))
	assert.Equal(t, "x", OrDash("x"))
	assert.Equal(t, "b", FirstOrDash("", "b", "c"))
	assert.Equal(t, "-", FirstOrDash("", ""))
	assert.Equal(t, "a, b", JoinOrDash("a", "b"))
	assert.Equal(t, "-", JoinOrDash())
}

func TestFormatBytes(t *testing.T) {
	tests := map[int64]string{
		0:       "0 B",
		512:     "512 B",
		1024:    "1.0 KB",
		1536:    "1.5 KB",
		1048576: "1.0 MB",
	}
	for in, want := range tests {
		assert.Equal(t, want, FormatBytes(in), in)
	}
}

func TestWriteJSON(t *testing.T) {
	var b strings.Builder
	assert.NoError(t, WriteJSON(&b, map[string]string{"html": "<b>"}))
	assert.Equal(t, "{\n  \"html\": \"<b>\"\n}\n", b.String())
}
