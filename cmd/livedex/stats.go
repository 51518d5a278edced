package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/hflor/livedex/internal/util"
	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Summarize the catalog",
	RunE:  runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, args []string) error {
	db, err := openCatalog()
	if err != nil {
		return err
	}
	defer db.Close()

	projects, err := db.ListProjects(false)
	if err != nil {
		return err
	}
	samples, err := db.ListSamples()
	if err != nil {
		return err
	}
	plugins, err := db.ListPlugins()
	if err != nil {
		return err
	}
	tags, err := db.ListTags()
	if err != nil {
		return err
	}

	var totalBytes int64
	tempoMin, tempoMax := 0.0, 0.0
	for i, p := range projects {
		totalBytes += p.SizeBytes
		if i == 0 || p.Tempo < tempoMin {
			tempoMin = p.Tempo
		}
		if p.Tempo > tempoMax {
			tempoMax = p.Tempo
		}
	}

	missingSamples, unknownSamples := 0, 0
	for _, smp := range samples {
		switch {
		case !smp.Present.Valid:
			unknownSamples++
		case !smp.Present.Bool:
			missingSamples++
		}
	}
	missingPlugins, unknownPlugins := 0, 0
	for _, pl := range plugins {
		switch {
		case !pl.Installed.Valid:
			unknownPlugins++
		case !pl.Installed.Bool:
			missingPlugins++
		}
	}

	fmt.Printf("Projects: %d (%s on disk)\n", len(projects), humanize.Bytes(uint64(totalBytes)))
	if len(projects) > 0 {
		fmt.Printf("Tempo range: %.1f - %.1f BPM\n", tempoMin, tempoMax)
	}
	fmt.Printf("Samples: %d distinct", len(samples))
	if missingSamples > 0 || unknownSamples > 0 {
		fmt.Printf(" (%d missing, %d unchecked)", missingSamples, unknownSamples)
	}
	fmt.Println()
	fmt.Printf("Plugins: %d distinct", len(plugins))
	if missingPlugins > 0 || unknownPlugins > 0 {
		fmt.Printf(" (%d missing, %d unchecked)", missingPlugins, unknownPlugins)
	}
	fmt.Println()
	fmt.Printf("Tags: %d\n", len(tags))

	if len(projects) == 0 {
		util.InfoLog("Run 'livedex scan <path>' to index your projects")
	}
	return nil
}
