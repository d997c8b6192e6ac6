package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/kernel/mindmap/internal/companion"
	"github.com/kernel/mindmap/internal/insights"
	"github.com/kernel/mindmap/internal/messaging"
	"github.com/kernel/mindmap/internal/settings"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var watchCmd = &cobra.Command{
	Use:   "watch <url>",
	Short: "Keep a page's mind maps expanded and answer toolbar actions",
	Long: `Open a page and stay attached to it. Every mind map that appears is
expanded to the configured depth, the toolbar is injected and toolbar
clicks and keyboard shortcuts are answered. Exports triggered on the page
are written to --dir.

Stop with Ctrl+C.`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().String("dir", ".", "Directory for exports triggered on the page")
}

// WatchInput holds input for watching a page.
type WatchInput struct {
	Target string
	Dir    string
}

// WatchCmd attaches a companion to a page until the context ends.
type WatchCmd struct {
	env      pageEnv
	store    settings.Store
	analyzer *insights.Analyzer
	// started is called once the companion runs.
	started func(*companion.Companion)
}

// Run watches in.Target until ctx is done.
func (c WatchCmd) Run(ctx context.Context, in WatchInput) error {
	live, err := settings.NewLive(ctx, c.store)
	if err != nil {
		pterm.Warning.Printf("Settings are not followed: %v\n", err)
	}
	defer live.Close()

	bus := messaging.NewBus()
	bus.Logger = c.env.logger
	opts := companion.Options{
		Analyzer: c.analyzer,
		OnResult: func(msg messaging.Message, resp messaging.Response) {
			pageResult(in.Dir, msg, resp)
		},
	}
	page, comp, err := c.env.open(ctx, in.Target, bus, live, opts)
	if err != nil {
		return err
	}
	defer page.Close()

	if err := comp.Start(ctx); err != nil {
		return err
	}

	if page.LiveViewURL != "" {
		pterm.Info.Printf("Live view: %s\n", page.LiveViewURL)
	}
	pterm.Info.Printf("Watching %s (Ctrl+C to stop)\n", in.Target)
	if c.started != nil {
		c.started(comp)
	}
	<-ctx.Done()
	comp.Stop()
	pterm.Info.Println("Stopped watching")
	return nil
}

// pageResult reports actions raised on the page.
func pageResult(dir string, msg messaging.Message, resp messaging.Response) {
	if !resp.Success {
		pterm.Warning.Printf("%s failed: %s\n", msg.Action, resp.Error)
		return
	}
	switch data := resp.Data.(type) {
	case companion.Export:
		path := filepath.Join(dir, data.FileName)
		if err := os.WriteFile(path, []byte(data.Content), 0o644); err != nil {
			pterm.Error.Printf("Could not write %s: %v\n", path, err)
			return
		}
		pterm.Success.Printf("Exported %d nodes to %s\n", data.Entries, path)
	case companion.ToggleResult:
		pterm.Success.Printf("%s: %d toggles (%s)\n", msg.Action, data.Activations, data.Method)
	default:
		pterm.Success.Printf("%s done\n", msg.Action)
	}
}

func runWatch(cmd *cobra.Command, args []string) error {
	dir, _ := cmd.Flags().GetString("dir")
	useKernel, _ := cmd.Flags().GetBool("kernel")

	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return fmt.Errorf("%s is not a directory", dir)
	}
	pages, err := newPageOpener(useKernel)
	if err != nil {
		return err
	}
	env, err := newPageEnv(pages)
	if err != nil {
		return err
	}
	c := WatchCmd{env: env, store: settings.NewFileStore(cfg.SettingsPath), analyzer: newAnalyzer(false)}

	return c.Run(cmd.Context(), WatchInput{Target: args[0], Dir: dir})
}
