// Package messaging carries action envelopes between companion surfaces:
// the popup and toolbar ask, the page controller answers.
package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pterm/pterm"
)

// Action names a request or broadcast.
type Action string

const (
	ActionExpandAll           Action = "expand-all"
	ActionCollapseAll         Action = "collapse-all"
	ActionExport              Action = "export"
	ActionExportProgress      Action = "exportProgress"
	ActionOpenSearch          Action = "open-search"
	ActionOpenAdvancedFilters Action = "open-advanced-filters"
	ActionToggleSidePanel     Action = "toggle-side-panel"
	ActionCopyCitation        Action = "copy-citation"
	ActionShowInsights        Action = "show-insights"
)

// Actions lists every known action.
var Actions = []Action{
	ActionExpandAll, ActionCollapseAll, ActionExport, ActionExportProgress,
	ActionOpenSearch, ActionOpenAdvancedFilters, ActionToggleSidePanel,
	ActionCopyCitation, ActionShowInsights,
}

// Message is the envelope exchanged between surfaces.
type Message struct {
	ID       string          `json:"id,omitempty"`
	Action   Action          `json:"action"`
	Format   string          `json:"format,omitempty"`
	All      bool            `json:"all,omitempty"`
	Progress int             `json:"progress"`
	Query    string          `json:"query,omitempty"`
	Payload  json.RawMessage `json:"payload,omitempty"`
}

// Response answers a Message.
type Response struct {
	ID      string `json:"id,omitempty"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// OK wraps data in a successful response.
func OK(data any) Response {
	return Response{Success: true, Data: data}
}

// Fail reports err in an unsuccessful response.
func Fail(err error) Response {
	return Response{Success: false, Error: err.Error()}
}

// Progress builds an exportProgress broadcast, clamped to 0..100.
func Progress(pct int) Message {
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}
	return Message{Action: ActionExportProgress, Progress: pct}
}

var (
	// ErrNoReceiver means nothing handles the action, e.g. the page
	// controller is not running.
	ErrNoReceiver = errors.New("no receiver for action")
	// ErrTimeout means the receiver did not answer in time.
	ErrTimeout = errors.New("receiver did not answer")
)

// DefaultTimeout bounds Send when the context carries no deadline.
const DefaultTimeout = 30 * time.Second

// Handler answers one message.
type Handler func(ctx context.Context, msg Message) Response

type installed struct {
	id int
	h  Handler
}

// Bus routes messages to one handler per action and broadcasts to any
// number of subscribers.
type Bus struct {
	Timeout time.Duration
	Logger  *pterm.Logger

	mu       sync.RWMutex
	handlers map[Action]installed
	subs     map[Action]map[int]func(Message)
	nextID   int
}

// NewBus returns an empty bus.
func NewBus() *Bus {
	return &Bus{
		Timeout:  DefaultTimeout,
		Logger:   &pterm.DefaultLogger,
		handlers: make(map[Action]installed),
		subs:     make(map[Action]map[int]func(Message)),
	}
}

// Handle installs h for action, replacing any previous handler. The returned
// func removes it again if it is still installed.
func (b *Bus) Handle(action Action, h Handler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	id := b.nextID
	b.handlers[action] = installed{id: id, h: h}
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if cur, ok := b.handlers[action]; ok && cur.id == id {
			delete(b.handlers, action)
		}
	}
}

// Send delivers msg to its handler and waits for the answer. It never waits
// longer than the context deadline, or the bus timeout when there is none.
func (b *Bus) Send(ctx context.Context, msg Message) (Response, error) {
	b.mu.RLock()
	entry, ok := b.handlers[msg.Action]
	timeout := b.Timeout
	b.mu.RUnlock()
	if !ok {
		return Response{}, fmt.Errorf("%w %q", ErrNoReceiver, msg.Action)
	}
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if _, has := ctx.Deadline(); !has && timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	done := make(chan Response, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- Response{Success: false, Error: fmt.Sprintf("handler panicked: %v", r)}
			}
		}()
		done <- entry.h(ctx, msg)
	}()

	select {
	case resp := <-done:
		resp.ID = msg.ID
		return resp, nil
	case <-ctx.Done():
		return Response{}, fmt.Errorf("%w %q: %v", ErrTimeout, msg.Action, ctx.Err())
	}
}

// Post sends msg without waiting for the caller. Failures are logged.
func (b *Bus) Post(ctx context.Context, msg Message) {
	go func() {
		resp, err := b.Send(context.WithoutCancel(ctx), msg)
		switch {
		case err != nil:
			b.warn("message not delivered", msg, err.Error())
		case !resp.Success:
			b.warn("message failed", msg, resp.Error)
		}
	}()
}

func (b *Bus) warn(text string, msg Message, reason string) {
	if b.Logger == nil {
		return
	}
	b.Logger.Warn(text, b.Logger.Args("action", string(msg.Action), "reason", reason))
}

// Subscribe calls fn for every message published under action.
func (b *Bus) Subscribe(action Action, fn func(Message)) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	id := b.nextID
	if b.subs[action] == nil {
		b.subs[action] = make(map[int]func(Message))
	}
	b.subs[action][id] = fn
	return func() {
		b.mu.Lock()
		delete(b.subs[action], id)
		b.mu.Unlock()
	}
}

// Publish broadcasts msg to the subscribers of its action.
func (b *Bus) Publish(msg Message) {
	b.mu.RLock()
	fns := make([]func(Message), 0, len(b.subs[msg.Action]))
	for _, fn := range b.subs[msg.Action] {
		fns = append(fns, fn)
	}
	b.mu.RUnlock()
	for _, fn := range fns {
		fn(msg)
	}
}
