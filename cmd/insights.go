package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/kernel/mindmap/internal/companion"
	"github.com/kernel/mindmap/internal/insights"
	"github.com/kernel/mindmap/pkg/util"
	pkgbrowser "github.com/pkg/browser"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

const apiKeysURL = "https://platform.openai.com/api-keys"

var insightsCmd = &cobra.Command{
	Use:   "insights <page-or-url>",
	Short: "Analyze a mind map",
	Long: `Analyze a mind map: main branches, suggested connections, missing topics
and a summary.

A language model is used when an API key is available from OPENAI_API_KEY
or from "mindmap insights login"; otherwise the analysis runs locally.`,
	Args: cobra.ExactArgs(1),
	RunE: runInsights,
}

var insightsLoginCmd = &cobra.Command{
	Use:   "login",
	Short: "Store an API key in the system keyring",
	Args:  cobra.NoArgs,
	RunE:  runInsightsLogin,
}

var insightsLogoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Remove the stored API key",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := insights.DeleteAPIKey(); err != nil {
			return err
		}
		pterm.Success.Println("API key removed")
		return nil
	},
}

func init() {
	insightsCmd.AddCommand(insightsLoginCmd)
	insightsCmd.AddCommand(insightsLogoutCmd)

	insightsCmd.Flags().Bool("expand", false, "Expand every node before analyzing")
	insightsCmd.Flags().Bool("local", false, "Skip the language model")
	insightsCmd.Flags().StringP("output", "o", "", "Output format (json)")

	insightsLoginCmd.Flags().Bool("open", false, "Open the API keys page in a browser first")
}

// InsightsInput holds input for an analysis.
type InsightsInput struct {
	Target string
	Expand bool
	Output string
}

// InsightsCmd analyzes mind maps.
type InsightsCmd struct {
	env      pageEnv
	analyzer *insights.Analyzer
}

// Run analyzes the map at in.Target.
func (c InsightsCmd) Run(ctx context.Context, in InsightsInput) error {
	page, comp, err := c.env.open(ctx, in.Target, nil, nil, companion.Options{Analyzer: c.analyzer})
	if err != nil {
		return err
	}
	defer page.Close()

	if in.Expand {
		if _, err := comp.ExpandAll(ctx); err != nil {
			return err
		}
	}
	res, err := comp.Insights(ctx)
	if err != nil {
		pterm.Error.Printf("No mind map found on %s\n", in.Target)
		return err
	}

	if in.Output == "json" {
		return util.PrintJSON(res)
	}
	printInsights(res)
	return nil
}

func printInsights(res insights.Insights) {
	pterm.DefaultSection.Println("Main branches")
	if len(res.MainBranches) == 0 {
		pterm.Println("  -")
	}
	for _, b := range res.MainBranches {
		pterm.Println("  • " + b)
	}

	pterm.DefaultSection.Println("Suggested connections")
	if len(res.SuggestedConnections) == 0 {
		pterm.Println("  -")
	} else {
		rows := pterm.TableData{{"From", "To", "Reason"}}
		for _, conn := range res.SuggestedConnections {
			rows = append(rows, []string{conn.From, conn.To, conn.Reason})
		}
		PrintTableNoPad(rows, true)
	}

	pterm.DefaultSection.Println("Missing topics")
	pterm.Println("  " + util.JoinOrDash(res.MissingTopics...))

	pterm.DefaultSection.Println("Summary")
	pterm.Println("  " + res.Summary)
	pterm.Println()
	pterm.Info.Printf("Analysis: %s\n", res.Source)
}

// newAnalyzer uses the model when a key is available.
func newAnalyzer(local bool) *insights.Analyzer {
	a := insights.NewAnalyzer(nil)
	a.Logger = logger
	if local {
		return a
	}
	key, err := insights.APIKey()
	if err != nil {
		pterm.Warning.Printf("Could not read API key: %v\n", err)
	}
	if key != "" {
		a.Model = insights.NewOpenAIModel(key, cfg.OpenAIModel, cfg.OpenAIBaseURL)
	}
	return a
}

func runInsights(cmd *cobra.Command, args []string) error {
	expand, _ := cmd.Flags().GetBool("expand")
	local, _ := cmd.Flags().GetBool("local")
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
	c := InsightsCmd{env: env, analyzer: newAnalyzer(local)}

	return c.Run(cmd.Context(), InsightsInput{Target: args[0], Expand: expand, Output: output})
}

func runInsightsLogin(cmd *cobra.Command, args []string) error {
	if open, _ := cmd.Flags().GetBool("open"); open {
		if err := pkgbrowser.OpenURL(apiKeysURL); err != nil {
			pterm.Warning.Printf("Could not open a browser, visit %s\n", apiKeysURL)
		}
	}
	key, err := pterm.DefaultInteractiveTextInput.WithMask("*").Show("API key")
	if err != nil {
		return fmt.Errorf("failed to read API key: %w", err)
	}
	if err := insights.StoreAPIKey(strings.TrimSpace(key)); err != nil {
		return err
	}
	pterm.Success.Println("API key stored in the system keyring")
	return nil
}
