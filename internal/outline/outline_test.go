package outline

import (
	"encoding/json"
	"testing"

	"github.com/kernel/mindmap/internal/hostpage"
	"github.com/kernel/mindmap/internal/profile"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sample() Document {
	return Document{
		{ID: "root", Depth: 0, Label: "Root"},
		{ID: "c1", Depth: 1, Label: "Child 1"},
		{ID: "g1", Depth: 2, Label: "Grandchild 1"},
		{ID: "c2", Depth: 1, Label: "Child 2"},
	}
}

func TestSerialize_SamplePage(t *testing.T) {
	page, err := hostpage.New(hostpage.Sample())
	require.NoError(t, err)

	doc := Serialize(page.Container(), profile.Default())
	assert.Equal(t, sample(), doc)
	assert.Equal(t, "- Root\n  - Child 1\n    - Grandchild 1\n  - Child 2", Text(doc))
}

func TestSerialize_DepthComesFromAncestors(t *testing.T) {
	page, err := hostpage.New()
	require.NoError(t, err)
	require.NoError(t, page.AppendHTML(page.Container(), `
<div class="node" data-node-id="a"><span class="node-label-text">A</span>
  <div class="node" data-node-id="unlabelled">
    <div class="wrapper"><div class="node" data-node-id="b"><span class="node-label-text">B</span></div></div>
  </div>
</div>`))

	doc := Serialize(page.Container(), profile.Default())
	assert.Equal(t, Document{
		{ID: "a", Depth: 0, Label: "A"},
		{ID: "b", Depth: 2, Label: "B"},
	}, doc)
}

func TestSerialize_NilRoot(t *testing.T) {
	assert.Empty(t, Serialize(nil, profile.Default()))
}

func TestText_Empty(t *testing.T) {
	assert.Equal(t, "", Text(nil))
}

func TestJSON(t *testing.T) {
	out, err := JSON(sample())
	require.NoError(t, err)

	var nodes []Node
	require.NoError(t, json.Unmarshal([]byte(out), &nodes))
	require.Len(t, nodes, 1)
	assert.Equal(t, "Root", nodes[0].Text)
	require.Len(t, nodes[0].Children, 2)
	assert.Equal(t, "Child 1", nodes[0].Children[0].Text)
	assert.Equal(t, "Grandchild 1", nodes[0].Children[0].Children[0].Text)
	assert.Equal(t, 2, nodes[0].Children[0].Children[0].Depth)
	assert.Empty(t, nodes[0].Children[1].Children)
	assert.Contains(t, out, `"children": []`)

	empty, err := JSON(nil)
	require.NoError(t, err)
	assert.Equal(t, "[]", empty)
}

func TestMarkdown(t *testing.T) {
	want := "# Mind Map Export\n\n* Root\n  * Child 1\n    * Grandchild 1\n  * Child 2\n"
	assert.Equal(t, want, Markdown(sample()))
}

func TestCSV(t *testing.T) {
	doc := Document{{ID: "n1", Depth: 0, Label: `Say "hi", then go`}}
	assert.Equal(t, "id,text,depth\n\"n1\",\"Say \"\"hi\"\", then go\",0\n", CSV(doc))
}

func TestHTML(t *testing.T) {
	out, err := HTML(sample())
	require.NoError(t, err)
	assert.Contains(t, out, "<h1>Mind Map Export</h1>")
	assert.Contains(t, out, "<li>Grandchild 1</li>")
}

func TestParseFormat(t *testing.T) {
	tests := map[string]Format{
		"":         FormatText,
		"txt":      FormatText,
		"JSON":     FormatJSON,
		"md":       FormatMarkdown,
		"markdown": FormatMarkdown,
		"csv":      FormatCSV,
		"htm":      FormatHTML,
	}
	for in, want := range tests {
		got, err := ParseFormat(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseFormat("pdf")
	assert.Error(t, err)

	assert.Equal(t, "mind-map.md", FormatMarkdown.FileName())
	assert.Equal(t, "mind-map.txt", FormatText.FileName())
}

func TestAncestors(t *testing.T) {
	got := sample().Ancestors()
	assert.Equal(t, [][]string{{}, {"Root"}, {"Root", "Child 1"}, {"Root"}}, got)
}
