package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/kernel/mindmap/internal/companion"
	"github.com/kernel/mindmap/internal/search"
	"github.com/kernel/mindmap/pkg/util"
	"github.com/pterm/pterm"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
)

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Index mind maps, notes and sources and search them",
}

var searchIndexCmd = &cobra.Command{
	Use:   "index <page-or-url>",
	Short: "Add the nodes of a mind map to the search cache",
	Args:  cobra.ExactArgs(1),
	RunE:  runSearchIndex,
}

var searchImportCmd = &cobra.Command{
	Use:   "import <items.json>",
	Short: "Add notes and sources from a JSON array of items",
	Long: `Add notes and sources from a JSON file holding an array of items:

  [{"id": "n1", "type": "note", "title": "...", "content": "...",
    "tags": ["..."], "createdAt": "2024-05-01T10:00:00Z"}]`,
	Args: cobra.ExactArgs(1),
	RunE: runSearchImport,
}

var searchQueryCmd = &cobra.Command{
	Use:     "query [text]",
	Aliases: []string{"q"},
	Short:   "Fuzzy-search the cache",
	Example: `  mindmap search query "neural nets" --type mindmap
  mindmap search query --date-range last-7d --tag depth-1`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSearchQuery,
}

var searchClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every cached item",
	Args:  cobra.NoArgs,
	RunE:  runSearchClear,
}

func init() {
	searchCmd.AddCommand(searchIndexCmd)
	searchCmd.AddCommand(searchImportCmd)
	searchCmd.AddCommand(searchQueryCmd)
	searchCmd.AddCommand(searchClearCmd)

	searchIndexCmd.Flags().Bool("expand", false, "Expand every node before indexing")

	searchQueryCmd.Flags().String("date-range", "all", "all, last-24h, last-7d or last-30d")
	searchQueryCmd.Flags().String("type", "all", "all, note, source or mindmap")
	searchQueryCmd.Flags().Int("min-length", 0, "Minimum content length")
	searchQueryCmd.Flags().StringSlice("tag", nil, "Required tags (repeatable)")
	searchQueryCmd.Flags().Int("limit", 20, "Maximum number of results")
	searchQueryCmd.Flags().StringP("output", "o", "", "Output format (json)")
}

// SearchCmd manages the search cache.
type SearchCmd struct {
	env   pageEnv
	cache *search.Cache
	now   func() time.Time
}

// SearchIndexInput holds input for indexing a page.
type SearchIndexInput struct {
	Target string
	Expand bool
}

// Index adds the map at in.Target to the cache.
func (c SearchCmd) Index(ctx context.Context, in SearchIndexInput) error {
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
		pterm.Error.Printf("No mind map found on %s\n", in.Target)
		return err
	}
	items := search.FromOutline(doc, c.now())
	if err := c.cache.Put(ctx, items...); err != nil {
		return err
	}
	pterm.Success.Printf("Indexed %d nodes from %s\n", len(items), in.Target)
	return nil
}

// Import adds the items in a JSON file.
func (c SearchCmd) Import(ctx context.Context, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	var items []search.Item
	if err := json.Unmarshal(data, &items); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	for i, it := range items {
		if it.ID == "" {
			return fmt.Errorf("item %d has no id", i)
		}
		t, err := search.ParseType(string(it.Type))
		if err != nil || t == search.TypeAny {
			return fmt.Errorf("item %s: type must be note, source or mindmap", it.ID)
		}
		if it.CreatedAt.IsZero() {
			items[i].CreatedAt = c.now()
		}
	}
	if err := c.cache.Put(ctx, items...); err != nil {
		return err
	}
	pterm.Success.Printf("Imported %d items\n", len(items))
	return nil
}

// SearchQueryInput holds input for a query.
type SearchQueryInput struct {
	Query     string
	DateRange string
	Type      string
	MinLength int
	Tags      []string
	Limit     int
	Output    string
}

// Query searches the cache.
func (c SearchCmd) Query(ctx context.Context, in SearchQueryInput) error {
	dr, err := search.ParseDateRange(in.DateRange)
	if err != nil {
		return err
	}
	typ, err := search.ParseType(in.Type)
	if err != nil {
		return err
	}
	items, err := c.cache.All(ctx)
	if err != nil {
		return err
	}

	idx := search.NewIndex(items...)
	idx.Now = c.now
	results := idx.Search(in.Query, search.Filters{
		DateRange:        dr,
		SourceType:       typ,
		MinContentLength: in.MinLength,
		Tags:             in.Tags,
	})
	if in.Limit > 0 && len(results) > in.Limit {
		results = results[:in.Limit]
	}

	if in.Output == "json" {
		if results == nil {
			results = []search.Result{}
		}
		return util.PrintJSON(results)
	}
	if len(results) == 0 {
		pterm.Info.Println("No matches")
		return nil
	}
	rows := pterm.TableData{{"Title", "Type", "Path", "Tags", "Created"}}
	for _, r := range results {
		rows = append(rows, []string{
			util.FirstOrDash(r.Item.Title, r.Item.ID),
			string(r.Item.Type),
			util.OrDash(r.Item.Content),
			util.JoinOrDash(r.Item.Tags...),
			r.Item.CreatedAt.Format(time.RFC3339),
		})
	}
	PrintTableNoPad(rows, true)
	pterm.Info.Printf("%d of %d items matched\n", len(results), len(items))
	return nil
}

// Clear empties the cache.
func (c SearchCmd) Clear(ctx context.Context) error {
	n, err := c.cache.Clear(ctx)
	if err != nil {
		return err
	}
	pterm.Success.Printf("Removed %d cached items\n", n)
	return nil
}

func openSearchCmd(env pageEnv) (SearchCmd, func(), error) {
	cache, err := search.OpenCache(cfg.CachePath)
	if err != nil {
		return SearchCmd{}, nil, err
	}
	return SearchCmd{env: env, cache: cache, now: time.Now}, func() { _ = cache.Close() }, nil
}

func runSearchIndex(cmd *cobra.Command, args []string) error {
	expand, _ := cmd.Flags().GetBool("expand")
	useKernel, _ := cmd.Flags().GetBool("kernel")

	pages, err := newPageOpener(useKernel)
	if err != nil {
		return err
	}
	env, err := newPageEnv(pages)
	if err != nil {
		return err
	}
	c, done, err := openSearchCmd(env)
	if err != nil {
		return err
	}
	defer done()
	return c.Index(cmd.Context(), SearchIndexInput{Target: args[0], Expand: expand})
}

func runSearchImport(cmd *cobra.Command, args []string) error {
	c, done, err := openSearchCmd(pageEnv{})
	if err != nil {
		return err
	}
	defer done()
	return c.Import(cmd.Context(), args[0])
}

func runSearchQuery(cmd *cobra.Command, args []string) error {
	dateRange, _ := cmd.Flags().GetString("date-range")
	typ, _ := cmd.Flags().GetString("type")
	minLength, _ := cmd.Flags().GetInt("min-length")
	tags, _ := cmd.Flags().GetStringSlice("tag")
	limit, _ := cmd.Flags().GetInt("limit")
	output, _ := cmd.Flags().GetString("output")

	c, done, err := openSearchCmd(pageEnv{})
	if err != nil {
		return err
	}
	defer done()
	return c.Query(cmd.Context(), SearchQueryInput{
		Query:     strings.Join(args, " "),
		DateRange: dateRange,
		Type:      typ,
		MinLength: minLength,
		Tags:      lo.Compact(tags),
		Limit:     limit,
		Output:    output,
	})
}

func runSearchClear(cmd *cobra.Command, args []string) error {
	c, done, err := openSearchCmd(pageEnv{})
	if err != nil {
		return err
	}
	defer done()
	return c.Clear(cmd.Context())
}
