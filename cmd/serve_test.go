package cmd

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/kernel/mindmap/internal/hostpage"
	"github.com/kernel/mindmap/internal/messaging"
	"github.com/kernel/mindmap/internal/settings"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startServe(t *testing.T, c ServeCmd, in ServeInput) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	in.Listener = ln

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx, in) }()
	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Error("serve did not stop")
		}
	})
	return "http://" + ln.Addr().String()
}

func postMessage(t *testing.T, base, body string) (int, messaging.Response) {
	t.Helper()
	var resp messaging.Response
	var status int
	require.Eventually(t, func() bool {
		r, err := http.Post(base+"/messages", "application/json", strings.NewReader(body))
		if err != nil {
			return false
		}
		defer r.Body.Close()
		status = r.StatusCode
		resp = messaging.Response{}
		return json.NewDecoder(r.Body).Decode(&resp) == nil
	}, 2*time.Second, 20*time.Millisecond)
	return status, resp
}

func TestServe_AnswersPageActions(t *testing.T) {
	setupStdoutCapture(t)
	store := settings.NewMemoryStore()
	s := settings.Defaults()
	s.AutoExpand = false
	require.NoError(t, store.Save(context.Background(), s))

	pages := &fakePages{layout: hostpage.Sample()}
	c := ServeCmd{env: testEnv(pages), store: store, analyzer: quietAnalyzer(nil)}
	base := startServe(t, c, ServeInput{Target: "https://notebook.example/n/1"})

	status, resp := postMessage(t, base, `{"id":"42","action":"export","format":"md"}`)
	require.Equal(t, http.StatusOK, status)
	assert.True(t, resp.Success, resp.Error)
	assert.Equal(t, "42", resp.ID)
	data, ok := resp.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "mind-map.md", data["fileName"])

	status, resp = postMessage(t, base, `{"action":"expand-all"}`)
	require.Equal(t, http.StatusOK, status)
	assert.True(t, resp.Success, resp.Error)
	assert.True(t, pages.last().Expanded("c1"))
}

func TestServe_SettingsOnly(t *testing.T) {
	setupStdoutCapture(t)
	c := ServeCmd{env: testEnv(nil), store: settings.NewMemoryStore()}
	base := startServe(t, c, ServeInput{})

	status, resp := postMessage(t, base, `{"action":"expand-all"}`)
	assert.Equal(t, http.StatusServiceUnavailable, status)
	assert.False(t, resp.Success)

	r, err := http.Get(base + "/settings")
	require.NoError(t, err)
	defer r.Body.Close()
	var got settings.Settings
	require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
	assert.Equal(t, settings.Defaults(), got)
}
