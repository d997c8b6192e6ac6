package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss/v2"
	"github.com/kernel/mindmap/internal/companion"
	"github.com/kernel/mindmap/internal/outline"
	"github.com/kernel/mindmap/internal/settings"
	"github.com/spf13/cobra"
)

var showCmd = &cobra.Command{
	Use:   "show <page-or-url>",
	Short: "Print a mind map as a tree",
	Args:  cobra.ExactArgs(1),
	RunE:  runShow,
}

func init() {
	showCmd.Flags().Bool("expand", false, "Expand every node before printing")
	showCmd.Flags().String("theme", "", "light, dark or auto (default from settings)")
}

// ShowInput holds input for printing a tree.
type ShowInput struct {
	Target string
	Expand bool
	Theme  settings.Theme
}

// ShowCmd prints mind maps.
type ShowCmd struct {
	env pageEnv
	out io.Writer
}

// Run prints the map at in.Target.
func (c ShowCmd) Run(ctx context.Context, in ShowInput) error {
	page, comp, err := c.env.open(ctx, in.Target, nil, nil, companion.Options{})
	if err != nil {
		return err
	}
	defer page.Close()

	if in.Expand {
		if _, err := comp.ExpandAll(ctx); err != nil {
			return err
		}
	}
	doc, err := comp.Outline(ctx)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(c.out, renderTree(doc, treeStyles(in.Theme)))
	return err
}

type treeTheme struct {
	root   lipgloss.Style
	label  lipgloss.Style
	branch lipgloss.Style
}

func treeStyles(t settings.Theme) treeTheme {
	if resolveTheme(t) == settings.ThemeLight {
		return treeTheme{
			root:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("25")),
			label:  lipgloss.NewStyle().Foreground(lipgloss.Color("235")),
			branch: lipgloss.NewStyle().Foreground(lipgloss.Color("246")),
		}
	}
	return treeTheme{
		root:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("117")),
		label:  lipgloss.NewStyle().Foreground(lipgloss.Color("252")),
		branch: lipgloss.NewStyle().Foreground(lipgloss.Color("240")),
	}
}

// resolveTheme picks light or dark for auto from COLORFGBG, which many
// terminals set to "<fg>;<bg>".
func resolveTheme(t settings.Theme) settings.Theme {
	if t == settings.ThemeLight || t == settings.ThemeDark {
		return t
	}
	parts := strings.Split(os.Getenv("COLORFGBG"), ";")
	if bg, err := strconv.Atoi(parts[len(parts)-1]); err == nil && (bg == 7 || bg == 15) {
		return settings.ThemeLight
	}
	return settings.ThemeDark
}

func renderTree(doc outline.Document, th treeTheme) string {
	if len(doc) == 0 {
		return th.label.Render("(empty mind map)")
	}
	var lines []string
	var walk func(n *outline.Node, prefix string, last bool)
	walk = func(n *outline.Node, prefix string, last bool) {
		connector, next := "├── ", "│   "
		if last {
			connector, next = "└── ", "    "
		}
		lines = append(lines, th.branch.Render(prefix+connector)+th.label.Render(n.Text))
		for i, child := range n.Children {
			walk(child, prefix+next, i == len(n.Children)-1)
		}
	}
	for _, root := range doc.Tree() {
		lines = append(lines, th.root.Render(root.Text))
		for i, child := range root.Children {
			walk(child, "", i == len(root.Children)-1)
		}
	}
	return strings.Join(lines, "\n")
}

func runShow(cmd *cobra.Command, args []string) error {
	expand, _ := cmd.Flags().GetBool("expand")
	themeFlag, _ := cmd.Flags().GetString("theme")
	useKernel, _ := cmd.Flags().GetBool("kernel")

	theme := settings.ThemeAuto
	if themeFlag != "" {
		t, err := settings.ParseTheme(themeFlag)
		if err != nil {
			return err
		}
		theme = t
	} else if s, err := settings.NewFileStore(cfg.SettingsPath).Load(cmd.Context()); err == nil {
		theme = s.Theme
	}

	pages, err := newPageOpener(useKernel)
	if err != nil {
		return err
	}
	env, err := newPageEnv(pages)
	if err != nil {
		return err
	}
	c := ShowCmd{env: env, out: os.Stdout}

	return c.Run(cmd.Context(), ShowInput{Target: args[0], Expand: expand, Theme: theme})
}
