package cmd

import (
	"context"
	"testing"

	"github.com/kernel/mindmap/internal/hostpage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatus_SamplePage(t *testing.T) {
	c := StatusCmd{env: testEnv(&fakePages{layout: hostpage.Sample()})}

	status, err := c.Run(context.Background(), "saved.html")
	require.NoError(t, err)

	assert.Equal(t, "saved.html", status.Target)
	assert.Equal(t, statusPartial, status.Status, "the sample has no host toolbar")
	require.Len(t, status.Groups, 3)

	mindMap := status.Groups[0]
	assert.Equal(t, statusOK, mindMap.Status)
	assert.Equal(t, []statusComponent{
		{Name: "Container", Status: statusOK},
		{Name: "Nodes", Status: statusOK, Detail: "4 labelled of 4"},
		{Name: "Collapsed", Status: statusOK, Detail: "1"},
		{Name: "Expanded", Status: statusOK, Detail: "0"},
	}, mindMap.Components)

	host := status.Groups[1]
	assert.Equal(t, statusPartial, host.Status)
	for _, comp := range host.Components {
		assert.Equal(t, statusMissing, comp.Status, comp.Name)
	}
	assert.Equal(t, "default", status.Groups[2].Components[0].Detail)
}

func TestStatus_HostToolbarPresent(t *testing.T) {
	html := `<html><body><div class="mind-map-container">
<button aria-label="Expand all"></button><button aria-label="Collapse all"></button>` +
		hostpage.Container(hostpage.Sample())[len(`<div class="mind-map-container">`):] +
		`</body></html>`
	c := StatusCmd{env: testEnv(&fakePages{html: html})}

	status, err := c.Run(context.Background(), "saved.html")
	require.NoError(t, err)
	assert.Equal(t, statusOK, status.Status)
	assert.Equal(t, statusOK, status.Groups[1].Components[0].Status)
	assert.Equal(t, statusOK, status.Groups[1].Components[1].Status)
}

func TestStatus_NoMindMap(t *testing.T) {
	c := StatusCmd{env: testEnv(&fakePages{html: "<html><body><p>nothing</p></body></html>"})}

	status, err := c.Run(context.Background(), "saved.html")
	require.NoError(t, err)
	assert.Equal(t, statusMissing, status.Status)
	assert.Equal(t, statusMissing, status.Groups[0].Status)
	assert.Empty(t, status.Groups[0].Components)
}

func TestPrintStatus(t *testing.T) {
	setupStdoutCapture(t)
	printStatus(statusResponse{
		Target: "saved.html",
		Status: statusPartial,
		Groups: []statusGroup{
			{Name: "Mind map", Status: statusOK, Components: []statusComponent{{Name: "Nodes", Status: statusOK, Detail: "4 labelled of 4"}}},
			{Name: "Host controls", Status: statusMissing},
		},
	})
	out := outBuf.String()
	assert.Contains(t, out, "Mind map status:")
	assert.Contains(t, out, "Partial")
	assert.Contains(t, out, "4 labelled of 4")
	assert.Contains(t, out, "Host controls")
	assert.Contains(t, out, "Not found")
}
