package cmd

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/kernel/mindmap/internal/companion"
	"github.com/kernel/mindmap/internal/dom/htmldom"
	"github.com/kernel/mindmap/internal/hostpage"
	"github.com/kernel/mindmap/internal/locate"
	"github.com/kernel/mindmap/internal/profile"
	"github.com/pterm/pterm"
	"github.com/stretchr/testify/require"
)

var outBuf bytes.Buffer

// setupStdoutCapture sends pterm output to outBuf for the rest of the test.
func setupStdoutCapture(t *testing.T) {
	t.Helper()
	outBuf.Reset()
	pterm.SetDefaultOutput(&outBuf)
	pterm.DisableStyling()
	t.Cleanup(func() {
		pterm.SetDefaultOutput(os.Stdout)
		pterm.EnableStyling()
	})
}

// captureStdout redirects os.Stdout, where JSON output goes, and returns a
// func that restores it and yields what was written.
func captureStdout(t *testing.T) func() string {
	t.Helper()
	oldStdout := os.Stdout
	r, w, err := os.Pipe()
	require.NoError(t, err)
	os.Stdout = w
	t.Cleanup(func() { os.Stdout = oldStdout })

	return func() string {
		w.Close()
		os.Stdout = oldStdout
		var buf bytes.Buffer
		_, _ = io.Copy(&buf, r)
		return buf.String()
	}
}

// fakePages serves freshly rendered host pages.
type fakePages struct {
	layout hostpage.NodeSpec
	// html, when set, is served as-is instead of the layout.
	html string
	err  error

	mu     sync.Mutex
	opened []*hostpage.Page
	closed int
}

func (f *fakePages) Open(ctx context.Context, target string) (*Page, error) {
	if f.err != nil {
		return nil, f.err
	}
	if target == "" {
		return nil, errors.New("a saved page or URL is required")
	}
	if f.html != "" {
		doc, err := htmldom.ParseString(f.html)
		if err != nil {
			return nil, err
		}
		return &Page{Doc: doc, Target: target, Snapshot: doc}, nil
	}
	p, err := hostpage.New(f.layout)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	f.opened = append(f.opened, p)
	f.mu.Unlock()
	return &Page{
		Doc:      p,
		Target:   target,
		Snapshot: p.Document,
		close: func() {
			f.mu.Lock()
			f.closed++
			f.mu.Unlock()
		},
	}, nil
}

func (f *fakePages) last() *hostpage.Page {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.opened) == 0 {
		return nil
	}
	return f.opened[len(f.opened)-1]
}

func (f *fakePages) closedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func testEnv(pages PageOpener) pageEnv {
	quiet := pterm.DefaultLogger.WithWriter(io.Discard)
	return pageEnv{
		pages:         pages,
		profile:       profile.Default(),
		resolver:      locate.Resolver{Timeout: 50 * time.Millisecond, PollInterval: 5 * time.Millisecond, Logger: quiet},
		logger:        quiet,
		buttonTimeout: 20 * time.Millisecond,
		tune: func(c *companion.Companion) {
			c.Walker().BatchDelay = 0
			c.Walker().SecondPassDelay = 0
		},
	}
}

func emptyMap() hostpage.NodeSpec {
	return hostpage.NodeSpec{ID: "empty"}
}
