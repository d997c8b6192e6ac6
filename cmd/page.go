package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/kernel/mindmap/internal/browser"
	"github.com/kernel/mindmap/internal/companion"
	"github.com/kernel/mindmap/internal/dom"
	"github.com/kernel/mindmap/internal/dom/cdpdom"
	"github.com/kernel/mindmap/internal/dom/htmldom"
	"github.com/kernel/mindmap/internal/hostpage"
	"github.com/kernel/mindmap/internal/locate"
	"github.com/kernel/mindmap/internal/messaging"
	"github.com/kernel/mindmap/internal/profile"
	"github.com/kernel/mindmap/internal/settings"
	kernel "github.com/kernel/kernel-go-sdk"
	"github.com/kernel/kernel-go-sdk/option"
	"github.com/pterm/pterm"
)

// Page is a document opened for one command.
type Page struct {
	Doc    dom.Document
	Target string
	// Snapshot is set for saved pages.
	Snapshot *htmldom.Document
	// emulate wires the viewer's toggle behaviour into Snapshot on open.
	emulate bool
	// LiveViewURL is set for Kernel cloud browsers.
	LiveViewURL string
	close       func()
}

// Close releases the browser behind a live page.
func (p *Page) Close() {
	if p.close != nil {
		p.close()
		p.close = nil
	}
}

// PageOpener opens the target of a page command.
type PageOpener interface {
	Open(ctx context.Context, target string) (*Page, error)
}

// browserPages opens saved pages directly and URLs in a browser.
type browserPages struct {
	kernel browser.BrowserService
}

func (o browserPages) Open(ctx context.Context, target string) (*Page, error) {
	if target == "" {
		return nil, errors.New("a saved page or URL is required")
	}
	if info, err := os.Stat(target); err == nil && !info.IsDir() {
		doc, err := htmldom.Load(target)
		if err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", target, err)
		}
		return &Page{Doc: doc, Target: target, Snapshot: doc, emulate: true}, nil
	}
	if !strings.Contains(target, "://") {
		return nil, fmt.Errorf("%s is neither a file nor a URL", target)
	}

	spinner, _ := pterm.DefaultSpinner.Start("Opening browser...")
	s, err := browser.Open(ctx, browser.Options{
		CDPURL:        cfg.CDPURL,
		Headless:      cfg.Headless,
		Kernel:        o.kernel,
		KernelTimeout: kernelTimeout(),
		Logger:        logger,
	})
	if err != nil {
		spinner.Fail("Could not open browser")
		return nil, err
	}
	spinner.UpdateText("Loading " + target + "...")
	if err := s.Navigate(target); err != nil {
		spinner.Fail("Could not load page")
		_ = s.Close()
		return nil, err
	}
	doc, err := cdpdom.Attach(s.Context(), cdpdom.Options{Logger: logger})
	if err != nil {
		spinner.Fail("Could not attach to page")
		_ = s.Close()
		return nil, err
	}
	spinner.Success("Page loaded")

	return &Page{
		Doc:         doc,
		Target:      target,
		LiveViewURL: s.LiveViewURL,
		close: func() {
			doc.Close()
			_ = s.Close()
		},
	}, nil
}

// newPageOpener wires a Kernel client when --kernel is set.
func newPageOpener(useKernel bool) (PageOpener, error) {
	if !useKernel {
		return browserPages{}, nil
	}
	if cfg.KernelAPIKey == "" {
		return nil, errors.New("KERNEL_API_KEY or kernel_api_key is required with --kernel")
	}
	client := kernel.NewClient(option.WithAPIKey(cfg.KernelAPIKey))
	svc := client.Browsers
	return browserPages{kernel: &svc}, nil
}

// pageEnv is what every page command carries.
type pageEnv struct {
	pages    PageOpener
	profile  profile.Profile
	resolver locate.Resolver
	logger   *pterm.Logger
	// buttonTimeout overrides how long the host toolbar is waited for.
	buttonTimeout time.Duration
	// tune adjusts a companion before it is used, e.g. its pacing.
	tune func(*companion.Companion)
}

func newPageEnv(pages PageOpener) (pageEnv, error) {
	p, err := activeProfile()
	if err != nil {
		return pageEnv{}, err
	}
	return pageEnv{pages: pages, profile: p, resolver: activeResolver(), logger: logger}, nil
}

// open opens target and builds a stopped companion for it.
func (e pageEnv) open(ctx context.Context, target string, bus *messaging.Bus, live *settings.Live, opts companion.Options) (*Page, *companion.Companion, error) {
	page, err := e.pages.Open(ctx, target)
	if err != nil {
		return nil, nil, err
	}
	if page.emulate {
		n := hostpage.Emulate(page.Snapshot, e.profile)
		if e.logger != nil {
			e.logger.Debug("wired saved page controls", e.logger.Args("target", target, "controls", n))
		}
	}
	opts.Profile = e.profile
	opts.Resolver = e.resolver
	opts.Logger = e.logger
	if opts.ButtonTimeout == 0 {
		opts.ButtonTimeout = e.buttonTimeout
	}
	if opts.Debounce == 0 {
		opts.Debounce = cfg.Debounce
	}
	c := companion.New(page.Doc, bus, live, opts)
	if e.tune != nil {
		e.tune(c)
	}
	return page, c, nil
}
