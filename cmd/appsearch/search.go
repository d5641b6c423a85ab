package main

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/appsearch/internal/domain/search/query"
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Run one search and print the visible records",
	Long: `Search sends the query to App Search, resolves every hit to its record
and prints the page the anonymous visitor would see. When nothing matches,
spelling suggestions are printed instead.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		engine, _ := cmd.Flags().GetString("engine")
		if engine == "" {
			engine = cfg.Search.DefaultEngine
		}
		if engine == "" {
			return fmt.Errorf("--engine is required when search.default_engine is unset")
		}
		start, _ := cmd.Flags().GetInt("start")
		noTypo, _ := cmd.Flags().GetBool("no-typo")
		tags, _ := cmd.Flags().GetStringSlice("tag")
		asJSON, _ := cmd.Flags().GetBool("json")

		a, err := buildApp(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer a.Close()

		q := query.New(args[0])
		for _, f := range cfg.Search.SnippetFields {
			q.AddResultField(f, "snippet", 0)
		}
		q.AddTags(tags...)
		if noTypo {
			q.DisableTypoTolerance()
		}

		res, err := a.search.Search(ctx, q, engine, start)
		if err != nil {
			return err
		}
		records := res.Records(ctx)
		if records.TotalItems() == 0 {
			res.SetSuggestions(a.spellcheck.Suggestions(ctx, args[0], engine, searchURL(args[0])))
		}

		out := cmd.OutOrStdout()
		if asJSON {
			type row struct {
				ID    string `json:"id"`
				Class string `json:"class"`
				Title string `json:"title"`
				Link  string `json:"link"`
			}
			rows := make([]row, 0, records.Len())
			for _, r := range records.Items() {
				rows = append(rows, row{ID: r.ID(), Class: r.ClassName(), Title: r.Title(), Link: r.Link()})
			}
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(map[string]any{
				"engine":      res.EngineName(),
				"request_id":  res.RequestID(),
				"total":       records.TotalItems(),
				"page":        records.CurrentPage(),
				"results":     rows,
				"suggestions": res.Suggestions(),
			})
		}

		fmt.Fprintf(out, "%d results in %s (page %d of %d)\n",
			records.TotalItems(), res.EngineName(), records.CurrentPage(), records.TotalPages())
		for i, r := range records.Items() {
			fmt.Fprintf(out, "%3d. %s\n     %s\n", records.FirstItem()+i, r.Title(), r.Link())
		}
		for _, s := range res.Suggestions() {
			fmt.Fprintf(out, "Did you mean: %s\n", s.Suggestion)
		}
		return nil
	},
}

var suggestCmd = &cobra.Command{
	Use:   "suggest <query>",
	Short: "Print spelling suggestions for a query",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		engine, _ := cmd.Flags().GetString("engine")
		if engine == "" {
			engine = cfg.Search.DefaultEngine
		}

		a, err := buildApp(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer a.Close()

		text := strings.Join(args, " ")
		suggestions := a.spellcheck.Suggestions(ctx, text, engine, searchURL(text))
		if len(suggestions) == 0 {
			fmt.Fprintln(cmd.ErrOrStderr(), "no suggestions")
			return nil
		}
		for _, s := range suggestions {
			fmt.Fprintln(cmd.OutOrStdout(), s.Suggestion)
		}
		return nil
	},
}

func init() {
	searchCmd.Flags().String("engine", "", "engine name before environment suffixing (default: search.default_engine)")
	searchCmd.Flags().Int("start", 0, "zero-based result offset")
	searchCmd.Flags().Bool("no-typo", false, "require every term to match exactly")
	searchCmd.Flags().StringSlice("tag", nil, "analytics tags")
	searchCmd.Flags().Bool("json", false, "output results as JSON")

	suggestCmd.Flags().String("engine", "", "engine name before environment suffixing (default: search.default_engine)")

	rootCmd.AddCommand(searchCmd, suggestCmd)
}

// searchURL is the relative link suggestions are built from.
func searchURL(text string) string {
	return "?" + url.Values{cfg.Spellcheck.QueryParam: {text}}.Encode()
}
