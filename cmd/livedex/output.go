package main

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/hflor/livedex/internal/store"
	"github.com/hflor/livedex/internal/util"
)

type columnAlignment int

const (
	alignLeft columnAlignment = iota
	alignRight
)

func renderTable(headers []string, rows [][]string, aligns []columnAlignment) string {
	columns := len(headers)
	if columns == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	if util.IsTerminal(os.Stdout.Fd()) {
		tw.SetAllowedRowLength(util.GetTerminalWidth())
	}

	header := make(table.Row, columns)
	for i := 0; i < columns; i++ {
		header[i] = headers[i]
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, columns)
		for i := 0; i < columns; i++ {
			if i < len(row) {
				r[i] = row[i]
			} else {
				r[i] = ""
			}
		}
		tw.AppendRow(r)
	}

	columnConfigs := make([]table.ColumnConfig, 0, columns)
	for i := 0; i < columns; i++ {
		align := text.AlignLeft
		if i < len(aligns) && aligns[i] == alignRight {
			align = text.AlignRight
		}
		columnConfigs = append(columnConfigs, table.ColumnConfig{
			Number:      i + 1,
			Align:       align,
			AlignHeader: text.AlignLeft,
		})
	}
	tw.SetColumnConfigs(columnConfigs)

	return tw.Render()
}

func writeCSV(headers []string, rows [][]string) error {
	w := csv.NewWriter(os.Stdout)
	if err := w.Write(headers); err != nil {
		return err
	}
	for _, row := range rows {
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func writeJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// projectJSON is the stable machine-readable shape of one project
type projectJSON struct {
	ID            string   `json:"id"`
	Path          string   `json:"path"`
	Name          string   `json:"name"`
	Tempo         float64  `json:"tempo"`
	TimeSignature string   `json:"time_signature"`
	LengthBars    float64  `json:"length_bars"`
	DurationSecs  *float64 `json:"duration_secs"`
	Key           string   `json:"key,omitempty"`
	Scale         string   `json:"scale,omitempty"`
	Creator       string   `json:"creator,omitempty"`
	Notes         string   `json:"notes,omitempty"`
	Active        bool     `json:"active"`
	SizeBytes     int64    `json:"size_bytes"`
	LastScannedAt string   `json:"last_scanned_at"`
}

func toProjectJSON(p *store.Project) projectJSON {
	out := projectJSON{
		ID:            p.ID,
		Path:          p.Path,
		Name:          p.Name,
		Tempo:         p.Tempo,
		TimeSignature: p.TimeSignature(),
		LengthBars:    p.LengthBars,
		Key:           p.Key,
		Scale:         p.Scale,
		Creator:       p.Creator,
		Notes:         p.Notes,
		Active:        p.Active,
		SizeBytes:     p.SizeBytes,
		LastScannedAt: p.LastScannedAt.UTC().Format(time.RFC3339),
	}
	if p.DurationSecs.Valid {
		d := p.DurationSecs.Float64
		out.DurationSecs = &d
	}
	return out
}

// projectRow renders the shared list/search table row for one project
func projectRow(p *store.Project) []string {
	keyScale := "-"
	if p.Key != "" {
		keyScale = p.Key + " " + p.Scale
	}
	return []string{
		p.Name,
		fmt.Sprintf("%.1f", p.Tempo),
		p.TimeSignature(),
		keyScale,
		formatDuration(p),
		humanize.Bytes(uint64(p.SizeBytes)),
		humanize.Time(p.LastScannedAt),
	}
}

var projectHeaders = []string{"Name", "BPM", "Sig", "Key", "Length", "Size", "Scanned"}

var projectAligns = []columnAlignment{
	alignLeft, alignRight, alignRight, alignLeft, alignRight, alignRight, alignLeft,
}

func formatDuration(p *store.Project) string {
	if !p.DurationSecs.Valid {
		return "-"
	}
	d := time.Duration(p.DurationSecs.Float64 * float64(time.Second))
	return fmt.Sprintf("%d:%02d", int(d.Minutes()), int(d.Seconds())%60)
}
