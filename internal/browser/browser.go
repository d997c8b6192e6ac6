// Package browser opens a Chrome DevTools session: a local Chrome, an
// existing CDP endpoint, or a Kernel cloud browser.
package browser

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"
	kernel "github.com/kernel/kernel-go-sdk"
	"github.com/kernel/kernel-go-sdk/option"
	"github.com/pterm/pterm"
)

// BrowserService defines the subset of the Kernel SDK browser client that we use.
type BrowserService interface {
	New(ctx context.Context, body kernel.BrowserNewParams, opts ...option.RequestOption) (*kernel.BrowserNewResponse, error)
	DeleteByID(ctx context.Context, id string, opts ...option.RequestOption) error
}

// Options selects where the session runs. CDPURL wins over Kernel; with
// neither a local Chrome is launched.
type Options struct {
	CDPURL   string
	Headless bool
	// Kernel provisions a cloud browser when set.
	Kernel BrowserService
	// KernelTimeout is the cloud browser's idle timeout.
	KernelTimeout time.Duration
	Logger        *pterm.Logger
}

// Endpoint is where a session connects.
type Endpoint struct {
	// URL is empty for a locally launched Chrome.
	URL         string
	BrowserID   string
	LiveViewURL string
	release     func()
}

// Session is an open browser tab.
type Session struct {
	Endpoint
	ctx     context.Context
	cancels []context.CancelFunc
}

// Context returns the chromedp context of the tab.
func (s *Session) Context() context.Context { return s.ctx }

// ErrNoEndpoint is returned when a Kernel browser comes back without a CDP URL.
var ErrNoEndpoint = errors.New("browser has no CDP endpoint")

// Provision resolves the endpoint without connecting to it. Kernel
// browsers are created here and deleted by the endpoint's release func.
func Provision(ctx context.Context, opts Options) (Endpoint, error) {
	if opts.CDPURL != "" {
		return Endpoint{URL: opts.CDPURL}, nil
	}
	if opts.Kernel == nil {
		return Endpoint{}, nil
	}

	params := kernel.BrowserNewParams{}
	if opts.KernelTimeout > 0 {
		params.TimeoutSeconds = kernel.Opt(int64(opts.KernelTimeout / time.Second))
	}
	if opts.Headless {
		params.Headless = kernel.Opt(true)
	}
	b, err := opts.Kernel.New(ctx, params)
	if err != nil {
		return Endpoint{}, fmt.Errorf("failed to create browser: %w", err)
	}
	release := func() {
		if err := opts.Kernel.DeleteByID(context.Background(), b.SessionID, option.WithRequestTimeout(30*time.Second)); err != nil && opts.Logger != nil {
			opts.Logger.Warn("failed to delete browser", opts.Logger.Args("id", b.SessionID, "error", err))
		}
	}
	if b.CdpWsURL == "" {
		release()
		return Endpoint{}, fmt.Errorf("%w: %s", ErrNoEndpoint, b.SessionID)
	}
	return Endpoint{URL: b.CdpWsURL, BrowserID: b.SessionID, LiveViewURL: b.BrowserLiveViewURL, release: release}, nil
}

// Open provisions an endpoint and attaches a new tab to it.
func Open(ctx context.Context, opts Options) (*Session, error) {
	ep, err := Provision(ctx, opts)
	if err != nil {
		return nil, err
	}

	var allocCtx context.Context
	var allocCancel context.CancelFunc
	if ep.URL != "" {
		allocCtx, allocCancel = chromedp.NewRemoteAllocator(ctx, ep.URL)
	} else {
		allocCtx, allocCancel = chromedp.NewExecAllocator(ctx, chromeOptions(opts.Headless)...)
	}
	tabCtx, tabCancel := chromedp.NewContext(allocCtx)

	s := &Session{Endpoint: ep, ctx: tabCtx, cancels: []context.CancelFunc{tabCancel, allocCancel}}
	// The first Run starts the browser or dials the endpoint.
	if err := chromedp.Run(tabCtx); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("failed to connect to browser: %w", err)
	}
	return s, nil
}

func chromeOptions(headless bool) []chromedp.ExecAllocatorOption {
	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	opts = append(opts,
		chromedp.NoFirstRun,
		chromedp.NoDefaultBrowserCheck,
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-background-timer-throttling", true),
		chromedp.Flag("disable-renderer-backgrounding", true),
		chromedp.WindowSize(1366, 768),
	)
	if !headless {
		opts = append(opts, chromedp.Flag("headless", false))
	}
	return opts
}

// Navigate loads url and waits for the body.
func (s *Session) Navigate(url string) error {
	if err := chromedp.Run(s.ctx, chromedp.Navigate(url), chromedp.WaitReady("body", chromedp.ByQuery)); err != nil {
		return fmt.Errorf("failed to navigate to %s: %w", url, err)
	}
	return nil
}

// Close closes the tab, the allocator and any cloud browser.
func (s *Session) Close() error {
	for _, cancel := range s.cancels {
		cancel()
	}
	s.cancels = nil
	if s.release != nil {
		s.release()
		s.release = nil
	}
	return nil
}

// Release deletes a provisioned cloud browser. It is a no-op for other
// endpoints.
func (e *Endpoint) Release() {
	if e.release != nil {
		e.release()
		e.release = nil
	}
}
