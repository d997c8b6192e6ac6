package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/kernel/mindmap/internal/archive"
	"github.com/kernel/mindmap/internal/companion"
	"github.com/kernel/mindmap/internal/outline"
	"github.com/kernel/mindmap/internal/profile"
	"github.com/kernel/mindmap/pkg/util"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var exportCmd = &cobra.Command{
	Use:   "export <page-or-url>",
	Short: "Export a mind map as text, JSON, Markdown, CSV or HTML",
	Long: `Export the outline of a mind map.

With --all the argument is a directory of saved pages; every page that
holds a mind map is exported into one zip file.`,
	Example: `  mindmap export saved.html --format md
  mindmap export https://notebook.example/notebook/123 -f json --file map.json
  mindmap export ./snapshots --all --file maps.zip`,
	Args: cobra.ExactArgs(1),
	RunE: runExport,
}

func init() {
	exportCmd.Flags().StringP("format", "f", "text", "Export format: text, json, markdown, csv or html")
	exportCmd.Flags().String("file", "", "Write to this file instead of stdout (default mind-map.<ext> or mind-maps.zip with --all)")
	exportCmd.Flags().Bool("all", false, "Export every saved page below a directory into a zip")
	exportCmd.Flags().StringSlice("exclude", nil, "Directories to skip with --all")
	exportCmd.Flags().StringP("output", "o", "", "Output format for the summary (json)")
}

// ExportInput holds input for an export.
type ExportInput struct {
	Target  string
	Format  string
	File    string
	All     bool
	Exclude []string
	Output  string
}

// ExportCmd exports mind maps.
type ExportCmd struct {
	env pageEnv
	// out receives exports written to stdout.
	out io.Writer
}

// Run exports in.Target.
func (c ExportCmd) Run(ctx context.Context, in ExportInput) error {
	f, err := outline.ParseFormat(in.Format)
	if err != nil {
		return err
	}
	if in.All {
		return c.all(ctx, in, f)
	}

	page, comp, err := c.env.open(ctx, in.Target, nil, nil, companion.Options{})
	if err != nil {
		return err
	}
	defer page.Close()

	exp, err := comp.Export(ctx, f)
	if err != nil {
		pterm.Error.Printf("No mind map found on %s\n", in.Target)
		return err
	}

	if in.File == "" && in.Output != "json" {
		_, err := io.WriteString(c.out, exp.Content)
		if err == nil && f == outline.FormatText {
			_, err = io.WriteString(c.out, "\n")
		}
		return err
	}
	if in.File != "" {
		if err := os.WriteFile(in.File, []byte(exp.Content), 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", in.File, err)
		}
		exp.FileName = in.File
	}
	if in.Output == "json" {
		return util.WriteJSON(c.out, exp)
	}
	pterm.Success.Printf("Exported %d nodes as %s to %s\n", exp.Entries, exp.Format, exp.FileName)
	return nil
}

func (c ExportCmd) all(ctx context.Context, in ExportInput, f outline.Format) error {
	dest := in.File
	if dest == "" {
		dest = "mind-maps.zip"
	}

	var bar *pterm.ProgressbarPrinter
	if in.Output != "json" {
		bar, _ = pterm.DefaultProgressbar.WithTotal(100).WithTitle("Exporting mind maps").Start()
	}
	last := 0
	stats, err := archive.Export(ctx, in.Target, dest, archive.Options{
		Format:             f,
		Profile:            c.env.profile,
		ExcludeDirectories: in.Exclude,
		Verbose:            true,
		Progress: func(pct int) {
			if bar != nil && pct > last {
				bar.Add(pct - last)
			}
			last = pct
		},
	})
	if bar != nil {
		_, _ = bar.Stop()
	}
	if err != nil {
		return err
	}

	if in.Output == "json" {
		return util.WriteJSON(c.out, stats)
	}
	rows := pterm.TableData{{"Property", "Value"}}
	rows = append(rows, []string{"Archive", stats.Archive})
	rows = append(rows, []string{"Pages", fmt.Sprintf("%d", stats.Files)})
	rows = append(rows, []string{"Exported", fmt.Sprintf("%d", stats.Exported)})
	rows = append(rows, []string{"Nodes", fmt.Sprintf("%d", stats.Entries)})
	rows = append(rows, []string{"Size", util.FormatBytes(stats.Bytes)})
	rows = append(rows, []string{"Skipped", util.JoinOrDash(stats.SkippedPaths...)})
	PrintTableNoPad(rows, true)
	return nil
}

// archiveBatch exports the saved pages below dir for the export-all action.
func archiveBatch(dir string, p profile.Profile) companion.BatchFunc {
	return func(ctx context.Context, f outline.Format, progress func(int)) (any, error) {
		dest := filepath.Join(os.TempDir(), fmt.Sprintf("mind-maps-%s.zip", f.Extension()))
		return archive.Export(ctx, dir, dest, archive.Options{Format: f, Profile: p, Progress: progress})
	}
}

func runExport(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")
	file, _ := cmd.Flags().GetString("file")
	all, _ := cmd.Flags().GetBool("all")
	exclude, _ := cmd.Flags().GetStringSlice("exclude")
	output, _ := cmd.Flags().GetString("output")
	useKernel, _ := cmd.Flags().GetBool("kernel")

	pages, err := newPageOpener(useKernel && !all)
	if err != nil {
		return err
	}
	env, err := newPageEnv(pages)
	if err != nil {
		return err
	}
	c := ExportCmd{env: env, out: os.Stdout}

	return c.Run(cmd.Context(), ExportInput{
		Target:  args[0],
		Format:  format,
		File:    file,
		All:     all,
		Exclude: exclude,
		Output:  output,
	})
}
