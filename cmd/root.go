// Package cmd implements the mindmap command line.
package cmd

import (
	"fmt"
	"time"

	"github.com/kernel/mindmap/internal/config"
	"github.com/kernel/mindmap/internal/locate"
	"github.com/kernel/mindmap/internal/profile"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var (
	cfg    = config.Default()
	logger = pterm.DefaultLogger.WithLevel(pterm.LogLevelInfo)
)

var rootCmd = &cobra.Command{
	Use:   "mindmap",
	Short: "Expand, collapse, export and search hosted mind maps",
	Long: `mindmap drives the mind-map viewer of a hosted notebook: it expands or
collapses every node, exports the outline, indexes it for search and
analyzes it.

Targets are either a saved HTML page or a URL. URLs are opened in a local
Chrome, in the browser behind --cdp-url, or in a Kernel cloud browser
with --kernel.`,
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
}

// Root returns the root command.
func Root() *cobra.Command { return rootCmd }

func init() {
	pf := rootCmd.PersistentFlags()
	pf.String("config", config.DefaultPath(), "Path to the config file")
	pf.String("profile", "", "Selector profile for the host page")
	pf.Duration("timeout", 0, "How long to wait for the mind map to appear")
	pf.String("cdp-url", "", "Attach to the browser at this DevTools URL")
	pf.Bool("kernel", false, "Open URLs in a Kernel cloud browser")
	pf.Bool("headless", true, "Run the local or cloud browser headless")
	pf.Bool("debug", false, "Log debug output")

	rootCmd.AddCommand(expandCmd)
	rootCmd.AddCommand(collapseCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(profilesCmd)
	rootCmd.AddCommand(settingsCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(insightsCmd)
	rootCmd.AddCommand(serveCmd)
}

func loadConfig(cmd *cobra.Command, args []string) error {
	path, _ := cmd.Flags().GetString("config")
	loaded, err := config.Load(path)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	applyFlags(flags, loaded)
	if err := loaded.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	cfg = loaded

	if debug, _ := flags.GetBool("debug"); debug {
		logger = pterm.DefaultLogger.WithLevel(pterm.LogLevelDebug)
	}
	return nil
}

// applyFlags lets explicitly set flags win over the file and environment.
func applyFlags(flags *pflag.FlagSet, c *config.Config) {
	if flags.Changed("profile") {
		c.Profile, _ = flags.GetString("profile")
	}
	if flags.Changed("timeout") {
		c.Timeout, _ = flags.GetDuration("timeout")
	}
	if flags.Changed("cdp-url") {
		c.CDPURL, _ = flags.GetString("cdp-url")
	}
	if flags.Changed("headless") {
		c.Headless, _ = flags.GetBool("headless")
	}
}

// activeProfile is the profile selected by config and flags.
func activeProfile() (profile.Profile, error) {
	return cfg.ResolveProfile()
}

func activeResolver() locate.Resolver {
	return locate.Resolver{Timeout: cfg.Timeout, PollInterval: cfg.PollInterval, Logger: logger}
}

// kernelTimeout keeps cloud browsers alive a little longer than any command
// waits on them.
func kernelTimeout() time.Duration {
	return cfg.Timeout + 5*time.Minute
}
