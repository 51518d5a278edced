package main

import (
	"github.com/hflor/livedex/internal/report"
	"github.com/hflor/livedex/internal/util"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Write a markdown snapshot of the catalog",
	Long: `Generate a markdown report of the catalog: project counts, tempo and
key distribution, Live versions, and every missing sample and plugin.`,
	RunE: runReport,
}

func init() {
	rootCmd.AddCommand(reportCmd)

	reportCmd.Flags().StringP("output", "o", "catalog-report.md", "output file")
}

func runReport(cmd *cobra.Command, args []string) error {
	output, _ := cmd.Flags().GetString("output")

	db, err := openCatalog()
	if err != nil {
		return err
	}
	defer db.Close()

	summary, err := report.GenerateSummaryReport(db, viper.GetString("db"), "")
	if err != nil {
		return err
	}
	if err := report.WriteMarkdownReport(summary, output); err != nil {
		return err
	}
	util.SuccessLog("Report written to %s", output)
	return nil
}
