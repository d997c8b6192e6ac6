package cmd

import (
	"context"
	"net"

	"github.com/kernel/mindmap/internal/bridge"
	"github.com/kernel/mindmap/internal/companion"
	"github.com/kernel/mindmap/internal/insights"
	"github.com/kernel/mindmap/internal/messaging"
	"github.com/kernel/mindmap/internal/settings"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve [url]",
	Short: "Serve the companion to extension pages over a local websocket",
	Long: `Serve the companion on a loopback address. Extension pages connect to
/ws and send message envelopes such as {"id":"1","action":"expand-all"};
the options page reads and writes /settings.

With a URL the page is opened and its mind maps are controlled by the
companion; without one only the settings endpoints answer.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String("listen", "", "Address to listen on (default from config, 127.0.0.1:7465)")
	serveCmd.Flags().StringSlice("allow-origin", nil, "Extra allowed origins, e.g. chrome-extension://<id>")
	serveCmd.Flags().Bool("allow-all", false, "Accept any origin (for local development only)")
	serveCmd.Flags().String("snapshots", "", "Directory of saved pages for export-all")
}

// ServeInput holds input for serving.
type ServeInput struct {
	Target       string
	Listener     net.Listener
	Addr         string
	AllowOrigins []string
	AllowAll     bool
	Snapshots    string
}

// ServeCmd runs the bridge and, with a target, a companion behind it.
type ServeCmd struct {
	env      pageEnv
	store    settings.Store
	analyzer *insights.Analyzer
}

// Run serves until ctx is done.
func (c ServeCmd) Run(ctx context.Context, in ServeInput) error {
	bus := messaging.NewBus()
	bus.Logger = c.env.logger

	var origins []string
	if len(in.AllowOrigins) > 0 {
		origins = append([]string{"chrome-extension://*", "http://localhost:*", "http://127.0.0.1:*"}, in.AllowOrigins...)
	}
	srv := bridge.New(bridge.Config{Addr: in.Addr, AllowedOrigins: origins, AllowAll: in.AllowAll}, bus, c.store, c.env.logger)

	if in.Target != "" {
		live, err := settings.NewLive(ctx, c.store)
		if err != nil {
			pterm.Warning.Printf("Settings are not followed: %v\n", err)
		}
		defer live.Close()

		opts := companion.Options{Analyzer: c.analyzer}
		if in.Snapshots != "" {
			opts.Batch = archiveBatch(in.Snapshots, c.env.profile)
		}
		page, comp, err := c.env.open(ctx, in.Target, bus, live, opts)
		if err != nil {
			return err
		}
		defer page.Close()
		if err := comp.Start(ctx); err != nil {
			return err
		}
		defer comp.Stop()
		pterm.Info.Printf("Controlling %s\n", in.Target)
	}

	if in.Listener != nil {
		pterm.Info.Printf("Serving on %s\n", in.Listener.Addr())
		return srv.Serve(ctx, in.Listener)
	}
	addr := in.Addr
	if addr == "" {
		addr = bridge.DefaultAddr
	}
	pterm.Info.Printf("Serving on %s (Ctrl+C to stop)\n", addr)
	return srv.ListenAndServe(ctx)
}

func runServe(cmd *cobra.Command, args []string) error {
	listen, _ := cmd.Flags().GetString("listen")
	origins, _ := cmd.Flags().GetStringSlice("allow-origin")
	allowAll, _ := cmd.Flags().GetBool("allow-all")
	snapshots, _ := cmd.Flags().GetString("snapshots")
	useKernel, _ := cmd.Flags().GetBool("kernel")

	if listen == "" {
		listen = cfg.Listen
	}
	pages, err := newPageOpener(useKernel)
	if err != nil {
		return err
	}
	env, err := newPageEnv(pages)
	if err != nil {
		return err
	}
	c := ServeCmd{env: env, store: settings.NewFileStore(cfg.SettingsPath), analyzer: newAnalyzer(false)}

	target := ""
	if len(args) == 1 {
		target = args[0]
	}
	return c.Run(cmd.Context(), ServeInput{
		Target:       target,
		Addr:         listen,
		AllowOrigins: origins,
		AllowAll:     allowAll,
		Snapshots:    snapshots,
	})
}
