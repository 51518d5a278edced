package main

import (
	"fmt"
	"strings"

	"github.com/hflor/livedex/internal/query"
	"github.com/hflor/livedex/internal/store"
	"github.com/hflor/livedex/internal/util"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search the catalog",
	Long: `Search indexed projects with field filters and free text.

Fields:
  plugin:<name>    projects using a plugin (substring match)
  bpm:<number>     tempo within 0.5 BPM of the given value
  key:<tonic>      key, optionally with scale: key:a-minor, "key:F# Major"
  missing:<bool>   projects with (or without) missing samples or plugins
  tag:<name>       projects carrying a tag
  samples:<name>   projects referencing a sample file (substring match)

Anything else is free text matched fuzzily against project names, notes,
sample names and plugin names. Filters AND together.

Examples:
  livedex search plugin:serum bpm:174
  livedex search "key:a-minor missing:true"
  livedex search breakbeat tag:wip`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSearch,
}

func init() {
	rootCmd.AddCommand(searchCmd)

	searchCmd.Flags().IntP("limit", "n", store.DefaultSearchLimit, "maximum results")
	searchCmd.Flags().Int("offset", 0, "skip this many results")
	searchCmd.Flags().Bool("deleted", false, "include soft-deleted projects")
	searchCmd.Flags().Bool("json", false, "JSON output")
	searchCmd.Flags().Bool("csv", false, "CSV output")
}

func runSearch(cmd *cobra.Command, args []string) error {
	util.SetVerbose(viper.GetBool("verbose"))
	util.SetQuiet(viper.GetBool("quiet"))

	limit, _ := cmd.Flags().GetInt("limit")
	offset, _ := cmd.Flags().GetInt("offset")
	includeDeleted, _ := cmd.Flags().GetBool("deleted")
	asJSON, _ := cmd.Flags().GetBool("json")
	asCSV, _ := cmd.Flags().GetBool("csv")

	expr, err := query.Parse(strings.Join(args, " "))
	if err != nil {
		return err
	}

	db, err := store.Open(viper.GetString("db"))
	if err != nil {
		return fmt.Errorf("failed to open catalog: %w", err)
	}
	defer db.Close()

	results, total, err := db.Search(expr, store.SearchOptions{
		Limit:          limit,
		Offset:         offset,
		IncludeDeleted: includeDeleted,
	})
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if asJSON {
		out := make([]projectJSON, 0, len(results))
		for _, r := range results {
			out = append(out, toProjectJSON(r.Project))
		}
		return writeJSON(out)
	}

	rows := make([][]string, 0, len(results))
	for _, r := range results {
		rows = append(rows, projectRow(r.Project))
	}

	if asCSV {
		return writeCSV(projectHeaders, rows)
	}

	if len(results) == 0 {
		util.InfoLog("No projects match")
		return nil
	}

	fmt.Println(renderTable(projectHeaders, rows, projectAligns))
	if total > len(results) {
		util.InfoLog("Showing %d of %d matches (use --limit/--offset for more)", len(results), total)
	}
	return nil
}
