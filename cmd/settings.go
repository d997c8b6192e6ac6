package cmd

import (
	"context"
	"fmt"

	"github.com/kernel/mindmap/internal/settings"
	"github.com/kernel/mindmap/pkg/util"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Show and change companion settings",
	Long: `Show and change the settings shared by every companion surface:

  autoExpand      expand new mind maps automatically (true)
  hotkeysEnabled  answer the keyboard shortcuts (true)
  defaultDepth    how deep auto-expand goes, -1 for all (-1)
  theme           toolbar and terminal palette: light, dark or auto (auto)`,
}

var settingsGetCmd = &cobra.Command{
	Use:   "get [key]",
	Short: "Print one setting or all of them",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runSettingsGet,
}

var settingsSetCmd = &cobra.Command{
	Use:     "set <key> <value>",
	Short:   "Change a setting",
	Example: "  mindmap settings set defaultDepth 2\n  mindmap settings set theme dark",
	Args:    cobra.ExactArgs(2),
	RunE:    runSettingsSet,
}

var settingsResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Restore the default settings",
	Args:  cobra.NoArgs,
	RunE:  runSettingsReset,
}

var settingsPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the settings file location",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		pterm.Println(cfg.SettingsPath)
		return nil
	},
}

func init() {
	settingsCmd.AddCommand(settingsGetCmd)
	settingsCmd.AddCommand(settingsSetCmd)
	settingsCmd.AddCommand(settingsResetCmd)
	settingsCmd.AddCommand(settingsPathCmd)

	settingsGetCmd.Flags().StringP("output", "o", "", "Output format (json)")
}

// SettingsCmd reads and writes the settings store.
type SettingsCmd struct {
	store settings.Store
}

// SettingsGetInput holds input for reading settings.
type SettingsGetInput struct {
	Key    string
	Output string
}

// Get prints one setting, or every setting when no key is given.
func (c SettingsCmd) Get(ctx context.Context, in SettingsGetInput) error {
	s, err := c.store.Load(ctx)
	if err != nil {
		pterm.Warning.Printf("Could not read settings, showing defaults: %v\n", err)
	}

	if in.Key != "" {
		v, err := s.Get(in.Key)
		if err != nil {
			return err
		}
		if in.Output == "json" {
			return util.PrintJSON(map[string]string{in.Key: v})
		}
		pterm.Println(v)
		return nil
	}

	if in.Output == "json" {
		return util.PrintJSON(s)
	}
	defaults := settings.Defaults()
	rows := pterm.TableData{{"Setting", "Value", "Default"}}
	for _, k := range settings.Keys {
		v, _ := s.Get(k)
		d, _ := defaults.Get(k)
		rows = append(rows, []string{k, v, d})
	}
	PrintTableNoPad(rows, true)
	return nil
}

// SettingsSetInput holds input for changing a setting.
type SettingsSetInput struct {
	Key   string
	Value string
}

// Set changes one setting and saves the record.
func (c SettingsCmd) Set(ctx context.Context, in SettingsSetInput) error {
	s, err := c.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to read settings: %w", err)
	}
	s, err = s.Set(in.Key, in.Value)
	if err != nil {
		return err
	}
	if err := c.store.Save(ctx, s); err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	v, _ := s.Get(in.Key)
	pterm.Success.Printf("Set %s to %s\n", in.Key, v)
	return nil
}

// Reset writes the defaults.
func (c SettingsCmd) Reset(ctx context.Context) error {
	if err := c.store.Save(ctx, settings.Defaults()); err != nil {
		return fmt.Errorf("failed to reset settings: %w", err)
	}
	pterm.Success.Println("Settings restored to defaults")
	return nil
}

func runSettingsGet(cmd *cobra.Command, args []string) error {
	output, _ := cmd.Flags().GetString("output")
	key := ""
	if len(args) == 1 {
		key = args[0]
	}
	c := SettingsCmd{store: settings.NewFileStore(cfg.SettingsPath)}
	return c.Get(cmd.Context(), SettingsGetInput{Key: key, Output: output})
}

func runSettingsSet(cmd *cobra.Command, args []string) error {
	c := SettingsCmd{store: settings.NewFileStore(cfg.SettingsPath)}
	return c.Set(cmd.Context(), SettingsSetInput{Key: args[0], Value: args[1]})
}

func runSettingsReset(cmd *cobra.Command, args []string) error {
	c := SettingsCmd{store: settings.NewFileStore(cfg.SettingsPath)}
	return c.Reset(cmd.Context())
}
