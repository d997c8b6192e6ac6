package cmd

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/kernel/mindmap/internal/companion"
	"github.com/kernel/mindmap/internal/locate"
	"github.com/kernel/mindmap/internal/messaging"
	"github.com/kernel/mindmap/internal/toolbar"
	"github.com/kernel/mindmap/internal/tree"
	"github.com/kernel/mindmap/pkg/util"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

type statusComponent struct {
	Name   string `json:"name"`
	Status string `json:"status"`
	Detail string `json:"detail,omitempty"`
}

type statusGroup struct {
	Name       string            `json:"name"`
	Status     string            `json:"status"`
	Components []statusComponent `json:"components"`
}

type statusResponse struct {
	Target string        `json:"target"`
	Status string        `json:"status"`
	Groups []statusGroup `json:"groups"`
}

const (
	statusOK      = "ok"
	statusPartial = "partial"
	statusMissing = "missing"
	statusUnknown = "unknown"
)

var statusCmd = &cobra.Command{
	Use:   "status <page|url>",
	Short: "Check whether a page's mind map can be driven",
	Long: `Check a saved page or URL against the active profile: whether the
mind-map container is found, how many nodes and toggles it has, and which
of the host's own expand/collapse-all buttons are present.`,
	Args: cobra.ExactArgs(1),
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().StringP("output", "o", "", "Output format (json)")
}

// StatusCmd inspects a page without changing it.
type StatusCmd struct {
	env pageEnv
}

// Run opens target and reports what the active profile finds on it.
func (c StatusCmd) Run(ctx context.Context, target string) (statusResponse, error) {
	resp := statusResponse{Target: target, Status: statusUnknown}
	page, comp, err := c.env.open(ctx, target, messaging.NewBus(), nil, companion.Options{})
	if err != nil {
		return resp, err
	}
	defer page.Close()

	profileGroup := statusGroup{Name: "Profile", Status: statusOK, Components: []statusComponent{
		{Name: "Name", Status: statusOK, Detail: c.env.profile.Name},
	}}

	container, err := comp.Locator().Locate(ctx)
	if err != nil {
		if !errors.Is(err, locate.ErrNotFound) {
			return resp, err
		}
		resp.Status = statusMissing
		resp.Groups = []statusGroup{
			{Name: "Mind map", Status: statusMissing},
			profileGroup,
		}
		return resp, nil
	}

	t := tree.New(container, c.env.profile)
	all, err := container.QueryAll(c.env.profile.Node)
	if err != nil {
		return resp, fmt.Errorf("profile %q: %w", c.env.profile.Name, err)
	}
	nodes, labelled := len(all), 0
	for _, n := range all {
		if t.Label(n) != "" {
			labelled++
		}
	}
	expandable := len(t.Controls(container, c.env.profile.ExpandControls, nil))
	collapsible := len(t.Controls(container, c.env.profile.CollapseControls, nil))

	mapGroup := statusGroup{Name: "Mind map", Components: []statusComponent{
		{Name: "Container", Status: statusOK},
		{Name: "Nodes", Status: countStatus(labelled), Detail: fmt.Sprintf("%d labelled of %d", labelled, nodes)},
		{Name: "Collapsed", Status: statusOK, Detail: strconv.Itoa(expandable)},
		{Name: "Expanded", Status: statusOK, Detail: strconv.Itoa(collapsible)},
	}}
	mapGroup.Status = worst(mapGroup.Components)

	expandAll := c.env.resolver.Find(page.Doc, c.env.profile.ExpandAllButtons)
	collapseAll := c.env.resolver.Find(page.Doc, c.env.profile.CollapseAllButtons)
	hostGroup := statusGroup{Name: "Host controls", Components: []statusComponent{
		{Name: "Expand all", Status: presentStatus(expandAll != nil)},
		{Name: "Collapse all", Status: presentStatus(collapseAll != nil)},
		{Name: "Companion toolbar", Status: presentStatus(toolbar.Injected(page.Doc))},
	}}
	hostGroup.Status = statusOK
	if expandAll == nil || collapseAll == nil {
		// Walking the toggles still works without the host buttons.
		hostGroup.Status = statusPartial
	}

	resp.Groups = []statusGroup{mapGroup, hostGroup, profileGroup}
	resp.Status = mapGroup.Status
	if resp.Status == statusOK && hostGroup.Status != statusOK {
		resp.Status = statusPartial
	}
	return resp, nil
}

func countStatus(n int) string {
	if n == 0 {
		return statusMissing
	}
	return statusOK
}

func presentStatus(ok bool) string {
	if ok {
		return statusOK
	}
	return statusMissing
}

func worst(components []statusComponent) string {
	out := statusOK
	for _, c := range components {
		switch c.Status {
		case statusMissing:
			return statusPartial
		case statusPartial:
			out = statusPartial
		}
	}
	return out
}

func runStatus(cmd *cobra.Command, args []string) error {
	output, _ := cmd.Flags().GetString("output")
	useKernel, _ := cmd.Flags().GetBool("kernel")
	if output != "" && output != "json" {
		return fmt.Errorf("unsupported output format %q", output)
	}

	pages, err := newPageOpener(useKernel)
	if err != nil {
		return err
	}
	env, err := newPageEnv(pages)
	if err != nil {
		return err
	}
	status, err := StatusCmd{env: env}.Run(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	if output == "json" {
		return util.PrintJSON(status)
	}
	printStatus(status)
	return nil
}

var statusDisplay = map[string]struct {
	label string
	rgb   pterm.RGB
}{
	statusOK:      {label: "Ready", rgb: pterm.NewRGB(31, 163, 130)},
	statusPartial: {label: "Partial", rgb: pterm.NewRGB(245, 158, 11)},
	statusMissing: {label: "Not found", rgb: pterm.NewRGB(239, 68, 68)},
	statusUnknown: {label: "Unknown", rgb: pterm.NewRGB(128, 128, 128)},
}

func getStatusDisplay(status string) (string, pterm.RGB) {
	if d, ok := statusDisplay[status]; ok {
		return d.label, d.rgb
	}
	return "Unknown", pterm.NewRGB(128, 128, 128)
}

func coloredDot(rgb pterm.RGB) string {
	return rgb.Sprint("●")
}

func printStatus(resp statusResponse) {
	label, rgb := getStatusDisplay(resp.Status)
	header := fmt.Sprintf("Mind map status: %s", rgb.Sprint(label))
	pterm.Println()
	pterm.Println("  " + header)
	pterm.Println("  " + pterm.Gray(resp.Target))

	for _, group := range resp.Groups {
		pterm.Println()
		if len(group.Components) == 0 {
			groupLabel, groupColor := getStatusDisplay(group.Status)
			pterm.Printf("  %s %s  %s\n", coloredDot(groupColor), pterm.Bold.Sprint(group.Name), groupLabel)
			continue
		}
		pterm.Println("  " + pterm.Bold.Sprint(group.Name))
		for _, comp := range group.Components {
			compLabel, compColor := getStatusDisplay(comp.Status)
			if comp.Detail != "" {
				compLabel = comp.Detail
			}
			pterm.Printf("    %s %-20s %s\n", coloredDot(compColor), comp.Name, compLabel)
		}
	}
	pterm.Println()
}
