package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/hflor/livedex/internal/scan"
	"github.com/hflor/livedex/internal/util"
	"github.com/hflor/livedex/internal/watch"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var watchCmd = &cobra.Command{
	Use:   "watch [path...]",
	Short: "Watch directories and re-index sets as they are saved",
	Long: `Watch one or more directories and re-index project files as Live
saves them. Saves arrive as bursts of writes, so each changed file is
debounced for a couple of seconds before it is re-read.

Runs until interrupted. Paths default to the "paths" list in the config
file.`,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().IntP("concurrency", "c", 0, "number of decode workers")
}

func runWatch(cmd *cobra.Command, args []string) error {
	roots := args
	if len(roots) == 0 {
		roots = viper.GetStringSlice("paths")
	}
	if len(roots) == 0 {
		return fmt.Errorf("no watch paths given (pass paths as arguments or set \"paths\" in config)")
	}
	for _, root := range roots {
		if _, err := os.Stat(root); os.IsNotExist(err) {
			return fmt.Errorf("watch path does not exist: %s", root)
		}
	}

	concurrency, _ := cmd.Flags().GetInt("concurrency")

	db, err := openCatalog()
	if err != nil {
		return err
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	w := watch.New(&watch.Config{
		Scanner: scan.NewScanner(&scan.Config{Store: db, Concurrency: concurrency}),
	})

	err = w.Watch(ctx, roots)
	if errors.Is(err, context.Canceled) {
		util.InfoLog("Watch stopped")
		return nil
	}
	return err
}
