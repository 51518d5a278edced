package report

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/hflor/livedex/internal/store"
)

// SummaryReport is a point-in-time snapshot of the catalog
type SummaryReport struct {
	GeneratedAt time.Time

	// Project statistics
	ProjectCount int
	DeletedCount int
	TotalBytes   int64
	TempoMin     float64
	TempoMax     float64

	// Reference statistics
	SampleCount    int
	MissingSamples []string
	UnknownSamples int
	PluginCount    int
	MissingPlugins []string
	UnknownPlugins int

	// Breakdown
	KeyCounts    map[string]int
	CreatorCount map[string]int

	// Metadata
	DatabasePath string
	EventLogPath string
}

// GenerateSummaryReport collects catalog statistics from the database
func GenerateSummaryReport(db *store.Store, dbPath, eventLogPath string) (*SummaryReport, error) {
	report := &SummaryReport{
		GeneratedAt:  time.Now(),
		KeyCounts:    make(map[string]int),
		CreatorCount: make(map[string]int),
		DatabasePath: dbPath,
		EventLogPath: eventLogPath,
	}

	projects, err := db.ListProjects(true)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	for _, p := range projects {
		if !p.Active {
			report.DeletedCount++
			continue
		}
		report.ProjectCount++
		report.TotalBytes += p.SizeBytes
		if report.ProjectCount == 1 || p.Tempo < report.TempoMin {
			report.TempoMin = p.Tempo
		}
		if p.Tempo > report.TempoMax {
			report.TempoMax = p.Tempo
		}
		if p.Key != "" {
			report.KeyCounts[p.Key+" "+p.Scale]++
		}
		if p.Creator != "" {
			report.CreatorCount[p.Creator]++
		}
	}

	samples, err := db.ListSamples()
	if err != nil {
		return nil, fmt.Errorf("failed to list samples: %w", err)
	}
	report.SampleCount = len(samples)
	for _, smp := range samples {
		switch {
		case !smp.Present.Valid:
			report.UnknownSamples++
		case !smp.Present.Bool:
			report.MissingSamples = append(report.MissingSamples, smp.Path)
		}
	}

	plugins, err := db.ListPlugins()
	if err != nil {
		return nil, fmt.Errorf("failed to list plugins: %w", err)
	}
	report.PluginCount = len(plugins)
	for _, pl := range plugins {
		switch {
		case !pl.Installed.Valid:
			report.UnknownPlugins++
		case !pl.Installed.Bool:
			report.MissingPlugins = append(report.MissingPlugins, pl.Name)
		}
	}

	sort.Strings(report.MissingSamples)
	sort.Strings(report.MissingPlugins)
	return report, nil
}

// WriteMarkdownReport renders the report as markdown to outputPath
func WriteMarkdownReport(report *SummaryReport, outputPath string) error {
	if dir := filepath.Dir(outputPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	var b strings.Builder
	b.WriteString("# Catalog Report\n\n")
	b.WriteString(fmt.Sprintf("Generated: %s\n\n", report.GeneratedAt.Format("2006-01-02 15:04:05")))

	b.WriteString("## Projects\n\n")
	b.WriteString(fmt.Sprintf("- Indexed: %d\n", report.ProjectCount))
	if report.DeletedCount > 0 {
		b.WriteString(fmt.Sprintf("- Deleted: %d\n", report.DeletedCount))
	}
	b.WriteString(fmt.Sprintf("- Total size: %.1f MB\n", float64(report.TotalBytes)/(1024*1024)))
	if report.ProjectCount > 0 {
		b.WriteString(fmt.Sprintf("- Tempo range: %.1f - %.1f BPM\n", report.TempoMin, report.TempoMax))
	}
	b.WriteString("\n")

	if len(report.KeyCounts) > 0 {
		b.WriteString("## Keys\n\n")
		for _, key := range sortedKeys(report.KeyCounts) {
			b.WriteString(fmt.Sprintf("- %s: %d\n", key, report.KeyCounts[key]))
		}
		b.WriteString("\n")
	}

	if len(report.CreatorCount) > 0 {
		b.WriteString("## Live versions\n\n")
		for _, creator := range sortedKeys(report.CreatorCount) {
			b.WriteString(fmt.Sprintf("- %s: %d\n", creator, report.CreatorCount[creator]))
		}
		b.WriteString("\n")
	}

	b.WriteString("## References\n\n")
	b.WriteString(fmt.Sprintf("- Samples: %d distinct, %d missing, %d unchecked\n",
		report.SampleCount, len(report.MissingSamples), report.UnknownSamples))
	b.WriteString(fmt.Sprintf("- Plugins: %d distinct, %d missing, %d unchecked\n",
		report.PluginCount, len(report.MissingPlugins), report.UnknownPlugins))
	b.WriteString("\n")

	if len(report.MissingSamples) > 0 {
		b.WriteString("## Missing samples\n\n")
		for _, path := range report.MissingSamples {
			b.WriteString(fmt.Sprintf("- `%s`\n", path))
		}
		b.WriteString("\n")
	}

	if len(report.MissingPlugins) > 0 {
		b.WriteString("## Missing plugins\n\n")
		for _, name := range report.MissingPlugins {
			b.WriteString(fmt.Sprintf("- %s\n", name))
		}
		b.WriteString("\n")
	}

	b.WriteString("---\n\n")
	b.WriteString(fmt.Sprintf("Database: `%s`\n", report.DatabasePath))
	if report.EventLogPath != "" {
		b.WriteString(fmt.Sprintf("Event log: `%s`\n", report.EventLogPath))
	}

	if err := os.WriteFile(outputPath, []byte(b.String()), 0644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

// sortedKeys returns map keys sorted by descending count, ties by name
func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if m[keys[i]] != m[keys[j]] {
			return m[keys[i]] > m[keys[j]]
		}
		return keys[i] < keys[j]
	})
	return keys
}
