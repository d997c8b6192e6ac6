package companion

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/kernel/mindmap/internal/dom"
	"github.com/kernel/mindmap/internal/dom/htmldom"
	"github.com/kernel/mindmap/internal/hostpage"
	"github.com/kernel/mindmap/internal/insights"
	"github.com/kernel/mindmap/internal/locate"
	"github.com/kernel/mindmap/internal/messaging"
	"github.com/kernel/mindmap/internal/outline"
	"github.com/kernel/mindmap/internal/search"
	"github.com/kernel/mindmap/internal/settings"
	"github.com/kernel/mindmap/internal/toolbar"
	"github.com/pterm/pterm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type safeBuffer struct {
	mu sync.Mutex
	b  bytes.Buffer
}

func (s *safeBuffer) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.b.Write(p)
}

func (s *safeBuffer) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.b.String()
}

type fixture struct {
	page *hostpage.Page
	bus  *messaging.Bus
	c    *Companion
	logs *safeBuffer
}

func newFixture(t *testing.T, s settings.Settings, opts Options) fixture {
	t.Helper()
	page, err := hostpage.New(hostpage.Sample())
	require.NoError(t, err)
	return newFixtureFor(t, page, s, opts)
}

func newFixtureFor(t *testing.T, page *hostpage.Page, s settings.Settings, opts Options) fixture {
	t.Helper()
	logs := &safeBuffer{}
	logger := pterm.DefaultLogger.WithWriter(logs)
	opts.Logger = logger
	opts.Resolver = locate.Resolver{Timeout: 50 * time.Millisecond, PollInterval: 10 * time.Millisecond}
	if opts.ButtonTimeout == 0 {
		opts.ButtonTimeout = 20 * time.Millisecond
	}
	opts.Debounce = 10 * time.Millisecond

	bus := messaging.NewBus()
	bus.Logger = logger
	c := New(page, bus, settings.Static(s), opts)
	c.Walker().BatchDelay = 0
	c.Walker().SecondPassDelay = 0
	t.Cleanup(c.Stop)
	return fixture{page: page, bus: bus, c: c, logs: logs}
}

func noAutoExpand() settings.Settings {
	s := settings.Defaults()
	s.AutoExpand = false
	return s
}

func send(t *testing.T, bus *messaging.Bus, msg messaging.Message) messaging.Response {
	t.Helper()
	resp, err := bus.Send(context.Background(), msg)
	require.NoError(t, err)
	return resp
}

func TestExpandAndCollapseAll_WalkWithoutHostButtons(t *testing.T) {
	f := newFixture(t, noAutoExpand(), Options{})
	require.NoError(t, f.c.Start(context.Background()))

	resp := send(t, f.bus, messaging.Message{Action: messaging.ActionExpandAll})
	require.True(t, resp.Success, resp.Error)
	assert.Equal(t, ToggleResult{Method: MethodWalk, Activations: 1}, resp.Data)
	assert.True(t, f.page.Expanded("c1"))

	resp = send(t, f.bus, messaging.Message{Action: messaging.ActionCollapseAll})
	require.True(t, resp.Success, resp.Error)
	assert.Equal(t, ToggleResult{Method: MethodWalk, Activations: 1}, resp.Data)
	assert.False(t, f.page.Expanded("c1"))
}

func TestExpandAll_PrefersHostButtonInsideContainer(t *testing.T) {
	f := newFixture(t, noAutoExpand(), Options{})
	require.NoError(t, f.page.AppendHTML(f.page.Container(), `<div class="mind-map-toolbar"><button id="host-expand" aria-label="Expand all">+</button></div>`))

	clicks := 0
	f.page.ByID("host-expand").(*htmldom.Node).On("click", func(dom.Event) { clicks++ })

	res, err := f.c.ExpandAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ToggleResult{Method: MethodHostButton, Activations: 1}, res)
	assert.Equal(t, 1, clicks)
	assert.False(t, f.page.Expanded("c1"))
}

func TestExpandAll_IgnoresHostButtonsOutsideOrExcluded(t *testing.T) {
	tests := map[string]func(p *hostpage.Page) error{
		"outside container": func(p *hostpage.Page) error {
			bodies, _ := p.QueryAll("body")
			return p.AppendHTML(bodies[0], `<button id="host-expand" aria-label="Expand all">+</button>`)
		},
		"inside sidebar": func(p *hostpage.Page) error {
			return p.AppendHTML(p.Container(), `<div class="left-sidebar"><button id="host-expand" aria-label="Expand all">+</button></div>`)
		},
	}
	for name, setup := range tests {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t, noAutoExpand(), Options{})
			require.NoError(t, setup(f.page))

			res, err := f.c.ExpandAll(context.Background())
			require.NoError(t, err)
			assert.Equal(t, MethodWalk, res.Method)
			assert.True(t, f.page.Expanded("c1"))
		})
	}
}

func TestExpandAll_NoMindMap(t *testing.T) {
	page, err := hostpage.New()
	require.NoError(t, err)
	page.Container().(*htmldom.Node).Remove()
	f := newFixtureFor(t, page, noAutoExpand(), Options{})

	resp := f.c.Handle(context.Background(), messaging.Message{Action: messaging.ActionExpandAll})
	assert.False(t, resp.Success)
	assert.Contains(t, resp.Error, locate.ErrNotFound.Error())
	assert.Contains(t, f.logs.String(), "action failed")
}

func TestExport(t *testing.T) {
	f := newFixture(t, noAutoExpand(), Options{})

	tests := []struct {
		format string
		name   string
		want   string
	}{
		{"text", "mind-map.txt", "- Root\n  - Child 1\n    - Grandchild 1\n  - Child 2"},
		{"md", "mind-map.md", "# Mind Map Export\n\n* Root\n  * Child 1\n    * Grandchild 1\n  * Child 2\n"},
		{"csv", "mind-map.csv", "id,text,depth\n\"root\",\"Root\",0\n\"c1\",\"Child 1\",1\n\"g1\",\"Grandchild 1\",2\n\"c2\",\"Child 2\",1\n"},
	}
	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			resp := f.c.Handle(context.Background(), messaging.Message{Action: messaging.ActionExport, Format: tt.format})
			require.True(t, resp.Success, resp.Error)
			exp := resp.Data.(Export)
			assert.Equal(t, tt.name, exp.FileName)
			assert.Equal(t, 4, exp.Entries)
			assert.Equal(t, tt.want, exp.Content)
		})
	}

	resp := f.c.Handle(context.Background(), messaging.Message{Action: messaging.ActionExport, Format: "pdf"})
	assert.False(t, resp.Success)
}

func TestExportAll_PublishesProgress(t *testing.T) {
	var progress []int
	f := newFixture(t, noAutoExpand(), Options{
		Batch: func(ctx context.Context, format outline.Format, report func(int)) (any, error) {
			assert.Equal(t, outline.FormatMarkdown, format)
			for _, p := range []int{50, 100} {
				report(p)
			}
			return "archive.zip", nil
		},
	})
	f.bus.Subscribe(messaging.ActionExportProgress, func(m messaging.Message) { progress = append(progress, m.Progress) })

	resp := f.c.Handle(context.Background(), messaging.Message{Action: messaging.ActionExport, Format: "markdown", All: true})
	require.True(t, resp.Success, resp.Error)
	assert.Equal(t, "archive.zip", resp.Data)
	assert.Equal(t, []int{50, 100}, progress)

	none := newFixture(t, noAutoExpand(), Options{})
	resp = none.c.Handle(context.Background(), messaging.Message{Action: messaging.ActionExport, All: true})
	assert.False(t, resp.Success)
	assert.Equal(t, ErrNoBatch.Error(), resp.Error)
}

func TestSearchInsightsAndFallbacks(t *testing.T) {
	f := newFixture(t, noAutoExpand(), Options{})

	payload, err := json.Marshal(SearchRequest{Filters: search.Filters{SourceType: search.TypeMindMap}})
	require.NoError(t, err)
	resp := f.c.Handle(context.Background(), messaging.Message{Action: messaging.ActionOpenSearch, Query: "grandchild", Payload: payload})
	require.True(t, resp.Success, resp.Error)
	results := resp.Data.([]search.Result)
	require.Len(t, results, 1)
	assert.Equal(t, "mindmap:g1", results[0].Item.ID)

	resp = f.c.Handle(context.Background(), messaging.Message{Action: messaging.ActionOpenSearch, Payload: json.RawMessage(`{`)})
	assert.False(t, resp.Success)

	resp = f.c.Handle(context.Background(), messaging.Message{Action: messaging.ActionShowInsights})
	require.True(t, resp.Success, resp.Error)
	ins := resp.Data.(insights.Insights)
	assert.Equal(t, insights.SourceLocal, ins.Source)
	assert.Equal(t, []string{"Root", "Child 1", "Child 2"}, ins.MainBranches)

	resp = f.c.Handle(context.Background(), messaging.Message{Action: messaging.ActionCopyCitation})
	assert.True(t, resp.Success)
	assert.Equal(t, CitationFallback, resp.Data)

	resp = f.c.Handle(context.Background(), messaging.Message{Action: messaging.ActionOpenAdvancedFilters})
	assert.True(t, resp.Success)

	resp = f.c.Handle(context.Background(), messaging.Message{Action: messaging.ActionToggleSidePanel})
	assert.False(t, resp.Success)

	resp = f.c.Handle(context.Background(), messaging.Message{Action: "fly"})
	assert.False(t, resp.Success)
}

type results struct {
	mu  sync.Mutex
	got []messaging.Action
}

func (r *results) add(m messaging.Message, resp messaging.Response) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if resp.Success {
		r.got = append(r.got, m.Action)
	}
}

func (r *results) list() []messaging.Action {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]messaging.Action(nil), r.got...)
}

func TestStart_AutoExpandsAndRoutesPageSignals(t *testing.T) {
	var r results
	f := newFixture(t, settings.Defaults(), Options{OnResult: r.add})
	require.NoError(t, f.c.Start(context.Background()))
	assert.Error(t, f.c.Start(context.Background()))

	require.Eventually(t, func() bool {
		return toolbar.Injected(f.page) && f.page.Expanded("c1")
	}, time.Second, 5*time.Millisecond)

	buttons, err := f.page.QueryAll(`#` + toolbar.ID + ` [data-mmx-action="collapse-all"]`)
	require.NoError(t, err)
	require.Len(t, buttons, 1)
	require.NoError(t, buttons[0].Dispatch(dom.Mouse("click")))
	require.Eventually(t, func() bool { return !f.page.Expanded("c1") }, time.Second, 5*time.Millisecond)

	require.NoError(t, f.page.Dispatch(dom.Event{Type: "keydown", Key: "E", Ctrl: true, Shift: true}))
	require.Eventually(t, func() bool { return f.page.Expanded("c1") }, time.Second, 5*time.Millisecond)

	require.Eventually(t, func() bool {
		return len(r.list()) == 2
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, []messaging.Action{messaging.ActionCollapseAll, messaging.ActionExpandAll}, r.list())
}

func TestHotkeysDisabled(t *testing.T) {
	var r results
	s := noAutoExpand()
	s.HotkeysEnabled = false
	f := newFixture(t, s, Options{OnResult: r.add})
	require.NoError(t, f.c.Start(context.Background()))

	require.NoError(t, f.page.Dispatch(dom.Event{Type: "keydown", Key: "e", Alt: true, Shift: true}))
	time.Sleep(50 * time.Millisecond)
	assert.Empty(t, r.list())
	assert.False(t, f.page.Expanded("c1"))
}

func TestStop_RemovesHandlers(t *testing.T) {
	f := newFixture(t, noAutoExpand(), Options{})
	require.NoError(t, f.c.Start(context.Background()))
	f.c.Stop()

	_, err := f.bus.Send(context.Background(), messaging.Message{Action: messaging.ActionExpandAll})
	assert.True(t, errors.Is(err, messaging.ErrNoReceiver))
}

func TestExpandAll_MissingHostButtonIsNotAWarning(t *testing.T) {
	logs := &safeBuffer{}
	logger := pterm.DefaultLogger.WithWriter(logs)
	page, err := hostpage.New(hostpage.Sample())
	require.NoError(t, err)
	c := New(page, nil, settings.Static(noAutoExpand()), Options{
		Logger:        logger,
		Resolver:      locate.Resolver{Timeout: 50 * time.Millisecond, PollInterval: 10 * time.Millisecond, Logger: logger},
		ButtonTimeout: 20 * time.Millisecond,
	})
	c.Walker().BatchDelay = 0
	c.Walker().SecondPassDelay = 0

	res, err := c.ExpandAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ToggleResult{Method: MethodWalk, Activations: 1}, res)
	assert.NotContains(t, logs.String(), "no selector matched")
	assert.NotContains(t, logs.String(), "WARN")
}
