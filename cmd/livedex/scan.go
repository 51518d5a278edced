package main

import (
	"context"
	"fmt"
	"time"

	"github.com/hflor/livedex/internal/report"
	"github.com/hflor/livedex/internal/scan"
	"github.com/hflor/livedex/internal/store"
	"github.com/hflor/livedex/internal/util"
	"github.com/hflor/livedex/internal/validate"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var scanCmd = &cobra.Command{
	Use:   "scan [path...]",
	Short: "Scan directories for Live sets and index them",
	Long: `Scan one or more directories for .als files and index their metadata.

Each project file is unzipped, parsed and committed to the catalog in a
single transaction. Unchanged files (same size and mtime as last time)
are skipped; pass --force to re-read everything. Backup folders and
Live's timestamped backup sets are always ignored.

Paths default to the "paths" list in the config file.`,
	RunE: runScan,
}

func init() {
	rootCmd.AddCommand(scanCmd)

	scanCmd.Flags().BoolP("force", "f", false, "re-read files even when size and mtime are unchanged")
	scanCmd.Flags().IntP("concurrency", "c", 0, "number of decode workers (default: number of CPUs)")
	scanCmd.Flags().Bool("validate", false, "check sample and plugin presence after scanning")
	scanCmd.Flags().String("log-dir", "artifacts", "directory for JSONL event logs")
	viper.BindPFlag("logdir", scanCmd.Flags().Lookup("log-dir"))
}

func runScan(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	roots := args
	if len(roots) == 0 {
		roots = viper.GetStringSlice("paths")
	}
	if len(roots) == 0 {
		return fmt.Errorf("no scan paths given (pass paths as arguments or set \"paths\" in config)")
	}

	force, _ := cmd.Flags().GetBool("force")
	withValidate, _ := cmd.Flags().GetBool("validate")
	concurrency, _ := cmd.Flags().GetInt("concurrency")
	if concurrency <= 0 {
		concurrency = viper.GetInt("concurrency")
	}

	dbPath := viper.GetString("db")
	util.SetVerbose(viper.GetBool("verbose"))
	util.SetQuiet(viper.GetBool("quiet"))

	util.InfoLog("Opening catalog: %s", dbPath)
	db, err := store.Open(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open catalog: %w", err)
	}
	defer db.Close()

	// Audit log of everything this scan touched
	logLevel := report.LevelInfo
	if viper.GetBool("quiet") {
		logLevel = report.LevelWarning
	} else if viper.GetBool("verbose") {
		logLevel = report.LevelDebug
	}
	logger, err := report.NewEventLogger(viper.GetString("logdir"), logLevel)
	if err != nil {
		util.WarnLog("Failed to create event log: %v", err)
		logger = report.NullLogger()
	}
	defer logger.Close()
	if logger.Path() != "" {
		util.InfoLog("Event log: %s", logger.Path())
	}

	scanner := scan.NewScanner(&scan.Config{
		Store:       db,
		Logger:      logger,
		Concurrency: concurrency,
	})

	summary, err := scanner.Scan(ctx, roots, force)
	if err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}

	util.SuccessLog("Scan complete in %v", summary.Elapsed.Round(time.Millisecond))
	util.InfoLog("  Projects seen: %d", summary.Scanned)
	util.InfoLog("  New: %d", summary.Created)
	util.InfoLog("  Updated: %d", summary.Updated)
	util.InfoLog("  Unchanged: %d", summary.Unchanged)
	if summary.Skipped > 0 {
		util.InfoLog("  Skipped (not Live sets): %d", summary.Skipped)
	}
	if summary.Failed > 0 {
		util.WarnLog("  Failed: %d", summary.Failed)
		for _, f := range summary.Failures {
			util.WarnLog("    %s: %v", f.Path, f.Err)
		}
	}

	if withValidate {
		util.InfoLog("")
		util.InfoLog("Checking sample and plugin presence...")
		v := validate.New(&validate.Config{
			Store:       db,
			Registry:    validate.NewRegistry(viper.GetString("registry")),
			Concurrency: concurrency,
		})
		result, err := v.ValidateAll(ctx)
		if err != nil {
			return fmt.Errorf("presence check failed: %w", err)
		}
		printValidateResult(result)
	}

	return nil
}
