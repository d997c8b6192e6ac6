package cmd

import (
	"fmt"
	"strings"

	"github.com/kernel/mindmap/internal/profile"
	"github.com/kernel/mindmap/pkg/util"
	"github.com/spf13/cobra"
)

var profilesCmd = &cobra.Command{
	Use:   "profiles [name]",
	Short: "List selector profiles or show one",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runProfiles,
}

func init() {
	profilesCmd.Flags().StringP("output", "o", "", "Output format (json)")
}

// ProfilesCmd lists the built-in and configured profiles.
type ProfilesCmd struct {
	configured map[string]profile.Profile
	active     string
}

// List prints every profile with its container selectors.
func (c ProfilesCmd) List(output string) error {
	names := profile.Names(c.configured)
	if output == "json" {
		resolved := make([]profile.Profile, 0, len(names))
		for _, name := range names {
			p, err := profile.Resolve(name, c.configured)
			if err != nil {
				return err
			}
			resolved = append(resolved, p)
		}
		return util.PrintJSON(resolved)
	}

	rows := [][]string{{"Name", "Active", "Node", "Containers"}}
	for _, name := range names {
		p, err := profile.Resolve(name, c.configured)
		if err != nil {
			rows = append(rows, []string{name, "", "-", "invalid: " + err.Error()})
			continue
		}
		active := ""
		if name == c.active || (c.active == "" && name == profile.DefaultName) {
			active = "*"
		}
		rows = append(rows, []string{name, active, p.Node, fmt.Sprintf("%d", len(p.Containers.Compact()))})
	}
	PrintTableNoPad(rows, true)
	return nil
}

// Show prints one profile's selectors.
func (c ProfilesCmd) Show(name, output string) error {
	p, err := profile.Resolve(name, c.configured)
	if err != nil {
		return err
	}
	if output == "json" {
		return util.PrintJSON(p)
	}
	rows := [][]string{
		{"Property", "Value"},
		{"Name", p.Name},
		{"Node", p.Node},
		{"Containers", strings.Join(p.Containers, "\n")},
		{"Labels", strings.Join(p.Labels, "\n")},
		{"Expand controls", strings.Join(p.ExpandControls, "\n")},
		{"Collapse controls", strings.Join(p.CollapseControls, "\n")},
		{"Expand all", strings.Join(p.ExpandAllButtons, "\n")},
		{"Collapse all", strings.Join(p.CollapseAllButtons, "\n")},
		{"Excluded", util.JoinOrDash(p.Excluded...)},
		{"Glyphs", util.JoinOrDash(p.Glyphs...)},
		{"Pointer up", fmt.Sprintf("%t", p.PointerUp)},
	}
	PrintTableNoPad(rows, true)
	return nil
}

func runProfiles(cmd *cobra.Command, args []string) error {
	output, _ := cmd.Flags().GetString("output")
	if output != "" && output != "json" {
		return fmt.Errorf("unsupported output format %q", output)
	}
	c := ProfilesCmd{configured: cfg.Profiles, active: cfg.Profile}
	if len(args) == 1 {
		return c.Show(args[0], output)
	}
	return c.List(output)
}
