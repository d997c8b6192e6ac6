package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/kernel/mindmap/internal/companion"
	"github.com/kernel/mindmap/internal/toggle"
	"github.com/kernel/mindmap/pkg/util"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var expandCmd = &cobra.Command{
	Use:   "expand <page-or-url>",
	Short: "Expand every node of a mind map",
	Long: `Expand every node of a mind map.

Without --depth the viewer's own "Expand all" button is used when the page
has one; otherwise every collapsed node is opened in document order.`,
	Example: `  mindmap expand https://notebook.example/notebook/123
  mindmap expand saved.html --depth 2 --save expanded.html`,
	Args: cobra.ExactArgs(1),
	RunE: runExpand,
}

var collapseCmd = &cobra.Command{
	Use:   "collapse <page-or-url>",
	Short: "Collapse every node of a mind map",
	Args:  cobra.ExactArgs(1),
	RunE:  runCollapse,
}

func init() {
	for _, c := range []*cobra.Command{expandCmd, collapseCmd} {
		c.Flags().Int("depth", toggle.Unbounded, "Deepest level to toggle (-1 for all)")
		c.Flags().String("save", "", "Write the resulting page to this file (saved pages only)")
		c.Flags().StringP("output", "o", "", "Output format (json)")
	}
}

// ToggleInput holds input for expanding or collapsing a map.
type ToggleInput struct {
	Target    string
	Direction toggle.Direction
	Depth     int
	Save      string
	Output    string
}

// ToggleOutput is printed with -o json.
type ToggleOutput struct {
	Target      string           `json:"target"`
	Direction   string           `json:"direction"`
	Method      companion.Method `json:"method"`
	Activations int              `json:"activations"`
	Entries     int              `json:"entries"`
}

// ToggleCmd expands and collapses mind maps.
type ToggleCmd struct {
	env pageEnv
}

// Run toggles the map at in.Target.
func (c ToggleCmd) Run(ctx context.Context, in ToggleInput) error {
	page, comp, err := c.env.open(ctx, in.Target, nil, nil, companion.Options{})
	if err != nil {
		return err
	}
	defer page.Close()

	var res companion.ToggleResult
	if in.Depth == toggle.Unbounded {
		if in.Direction == toggle.Expand {
			res, err = comp.ExpandAll(ctx)
		} else {
			res, err = comp.CollapseAll(ctx)
		}
	} else {
		res, err = c.walk(ctx, comp, in)
	}
	if err != nil {
		pterm.Error.Printf("Could not %s %s\n", in.Direction, in.Target)
		return err
	}

	doc, err := comp.Outline(ctx)
	if err != nil {
		return err
	}

	if in.Save != "" {
		if page.Snapshot == nil {
			return fmt.Errorf("--save only works for saved pages")
		}
		if err := writeSnapshot(page, in.Save); err != nil {
			return err
		}
	}

	if in.Output == "json" {
		return util.PrintJSON(ToggleOutput{
			Target:      in.Target,
			Direction:   in.Direction.String(),
			Method:      res.Method,
			Activations: res.Activations,
			Entries:     len(doc),
		})
	}

	verb := "Expanded"
	if in.Direction == toggle.Collapse {
		verb = "Collapsed"
	}
	if res.Method == companion.MethodHostButton {
		pterm.Success.Printf("%s %s using the viewer's own button\n", verb, in.Target)
	} else {
		pterm.Success.Printf("%s %s: %d toggles activated\n", verb, in.Target, res.Activations)
	}
	pterm.Info.Printf("%d labelled nodes on the page\n", len(doc))
	if in.Save != "" {
		pterm.Info.Printf("Saved page to %s\n", in.Save)
	}
	return nil
}

func (c ToggleCmd) walk(ctx context.Context, comp *companion.Companion, in ToggleInput) (companion.ToggleResult, error) {
	container, err := comp.Locator().Locate(ctx)
	if err != nil {
		return companion.ToggleResult{}, fmt.Errorf("failed to find mind map: %w", err)
	}
	n, err := comp.Walker().Toggle(ctx, container, in.Direction, in.Depth)
	res := companion.ToggleResult{Method: companion.MethodWalk, Activations: n}
	if err != nil {
		return res, fmt.Errorf("failed to %s nodes: %w", in.Direction, err)
	}
	return res, nil
}

func writeSnapshot(page *Page, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := page.Snapshot.Render(f); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

func runExpand(cmd *cobra.Command, args []string) error {
	return runToggle(cmd, args, toggle.Expand)
}

func runCollapse(cmd *cobra.Command, args []string) error {
	return runToggle(cmd, args, toggle.Collapse)
}

func runToggle(cmd *cobra.Command, args []string, dir toggle.Direction) error {
	depth, _ := cmd.Flags().GetInt("depth")
	save, _ := cmd.Flags().GetString("save")
	output, _ := cmd.Flags().GetString("output")
	useKernel, _ := cmd.Flags().GetBool("kernel")

	pages, err := newPageOpener(useKernel)
	if err != nil {
		return err
	}
	env, err := newPageEnv(pages)
	if err != nil {
		return err
	}
	c := ToggleCmd{env: env}

	return c.Run(cmd.Context(), ToggleInput{
		Target:    args[0],
		Direction: dir,
		Depth:     depth,
		Save:      save,
		Output:    output,
	})
}
