package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/hflor/livedex/internal/store"
	"github.com/hflor/livedex/internal/util"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var projectCmd = &cobra.Command{
	Use:   "project",
	Short: "Inspect and manage indexed projects",
}

var projectListCmd = &cobra.Command{
	Use:   "list",
	Short: "List indexed projects",
	RunE:  runProjectList,
}

var projectShowCmd = &cobra.Command{
	Use:   "show <path|id|name>",
	Short: "Show one project in full",
	Args:  cobra.ExactArgs(1),
	RunE:  runProjectShow,
}

var projectDeleteCmd = &cobra.Command{
	Use:   "delete <path|id|name>",
	Short: "Remove a project from the catalog (soft delete)",
	Long: `Flag a project as deleted. The row and its tags, tasks and collection
memberships are kept; 'project restore' brings it back.`,
	Args: cobra.ExactArgs(1),
	RunE: runProjectDelete,
}

var projectRestoreCmd = &cobra.Command{
	Use:   "restore <id>",
	Short: "Restore a soft-deleted project",
	Args:  cobra.ExactArgs(1),
	RunE:  runProjectRestore,
}

var projectNotesCmd = &cobra.Command{
	Use:   "notes <path|id|name> <text>",
	Short: "Set a project's notes",
	Long: `Replace a project's free-text notes. Notes are searchable immediately;
pass an empty string to clear them.`,
	Args: cobra.ExactArgs(2),
	RunE: runProjectNotes,
}

func init() {
	rootCmd.AddCommand(projectCmd)
	projectCmd.AddCommand(projectListCmd)
	projectCmd.AddCommand(projectShowCmd)
	projectCmd.AddCommand(projectDeleteCmd)
	projectCmd.AddCommand(projectRestoreCmd)
	projectCmd.AddCommand(projectNotesCmd)

	projectListCmd.Flags().Bool("deleted", false, "include soft-deleted projects")
	projectListCmd.Flags().Bool("json", false, "JSON output")
	projectListCmd.Flags().Bool("csv", false, "CSV output")
	projectShowCmd.Flags().Bool("json", false, "JSON output")
}

func openCatalog() (*store.Store, error) {
	util.SetVerbose(viper.GetBool("verbose"))
	util.SetQuiet(viper.GetBool("quiet"))
	db, err := store.Open(viper.GetString("db"))
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog: %w", err)
	}
	return db, nil
}

// resolveProject accepts a path, a project id, or a unique project name
func resolveProject(db *store.Store, arg string) (*store.Project, error) {
	if strings.ContainsRune(arg, filepath.Separator) || strings.HasSuffix(arg, ".als") {
		if abs, err := filepath.Abs(arg); err == nil {
			if p, err := db.GetProjectByPath(abs); err != nil {
				return nil, err
			} else if p != nil {
				return p, nil
			}
		}
		if p, err := db.GetProjectByPath(arg); err != nil {
			return nil, err
		} else if p != nil {
			return p, nil
		}
	}

	if p, err := db.GetProject(arg); err != nil {
		return nil, err
	} else if p != nil {
		return p, nil
	}

	all, err := db.ListProjects(false)
	if err != nil {
		return nil, err
	}
	var match *store.Project
	for _, p := range all {
		if strings.EqualFold(p.Name, arg) {
			if match != nil {
				return nil, fmt.Errorf("project name %q is ambiguous, use the path or id", arg)
			}
			match = p
		}
	}
	if match == nil {
		return nil, fmt.Errorf("no project matches %q", arg)
	}
	return match, nil
}

func runProjectList(cmd *cobra.Command, args []string) error {
	includeDeleted, _ := cmd.Flags().GetBool("deleted")
	asJSON, _ := cmd.Flags().GetBool("json")
	asCSV, _ := cmd.Flags().GetBool("csv")

	db, err := openCatalog()
	if err != nil {
		return err
	}
	defer db.Close()

	projects, err := db.ListProjects(includeDeleted)
	if err != nil {
		return err
	}

	if asJSON {
		out := make([]projectJSON, 0, len(projects))
		for _, p := range projects {
			out = append(out, toProjectJSON(p))
		}
		return writeJSON(out)
	}

	rows := make([][]string, 0, len(projects))
	for _, p := range projects {
		row := projectRow(p)
		if includeDeleted && !p.Active {
			row[0] += " (deleted)"
		}
		rows = append(rows, row)
	}

	if asCSV {
		return writeCSV(projectHeaders, rows)
	}
	if len(projects) == 0 {
		util.InfoLog("Catalog is empty. Run 'livedex scan <path>' first.")
		return nil
	}
	fmt.Println(renderTable(projectHeaders, rows, projectAligns))
	return nil
}

func runProjectShow(cmd *cobra.Command, args []string) error {
	asJSON, _ := cmd.Flags().GetBool("json")

	db, err := openCatalog()
	if err != nil {
		return err
	}
	defer db.Close()

	p, err := resolveProject(db, args[0])
	if err != nil {
		return err
	}

	if asJSON {
		return writeJSON(toProjectJSON(p))
	}

	fmt.Printf("%s\n", p.Name)
	fmt.Printf("  Path:      %s\n", p.Path)
	fmt.Printf("  Id:        %s\n", p.ID)
	fmt.Printf("  Tempo:     %.1f BPM (%s)\n", p.Tempo, p.TimeSignature())
	if p.Key != "" {
		fmt.Printf("  Key:       %s %s\n", p.Key, p.Scale)
	}
	fmt.Printf("  Length:    %.0f bars (%s)\n", p.LengthBars, formatDuration(p))
	if p.Creator != "" {
		fmt.Printf("  Saved by:  %s\n", p.Creator)
	}
	fmt.Printf("  Size:      %s\n", humanize.Bytes(uint64(p.SizeBytes)))
	fmt.Printf("  Scanned:   %s\n", humanize.Time(p.LastScannedAt))
	if !p.Active {
		fmt.Printf("  Status:    deleted\n")
	}
	if p.Notes != "" {
		fmt.Printf("  Notes:     %s\n", p.Notes)
	}

	plugins, err := db.ListProjectPlugins(p.ID)
	if err != nil {
		return err
	}
	if len(plugins) > 0 {
		fmt.Printf("\n  Plugins (%d):\n", len(plugins))
		for _, pl := range plugins {
			state := "?"
			if pl.Installed.Valid {
				if pl.Installed.Bool {
					state = "ok"
				} else {
					state = "MISSING"
				}
			}
			label := pl.Name
			if pl.Format != "" {
				label += " [" + pl.Format + "]"
			}
			fmt.Printf("    %-40s %s\n", label, state)
		}
	}

	samples, err := db.ListProjectSamples(p.ID)
	if err != nil {
		return err
	}
	if len(samples) > 0 {
		fmt.Printf("\n  Samples (%d):\n", len(samples))
		for _, smp := range samples {
			state := "?"
			if smp.Present.Valid {
				if smp.Present.Bool {
					state = "ok"
				} else {
					state = "MISSING"
				}
			}
			fmt.Printf("    %-40s x%-3d %s\n", smp.Name, smp.UseCount, state)
		}
	}

	tags, err := db.ListProjectTags(p.ID)
	if err != nil {
		return err
	}
	if len(tags) > 0 {
		names := make([]string, 0, len(tags))
		for _, t := range tags {
			names = append(names, t.Name)
		}
		fmt.Printf("\n  Tags: %s\n", strings.Join(names, ", "))
	}

	tasks, err := db.ListProjectTasks(p.ID)
	if err != nil {
		return err
	}
	if len(tasks) > 0 {
		fmt.Printf("\n  Tasks:\n")
		for _, t := range tasks {
			mark := "[ ]"
			if t.Completed {
				mark = "[x]"
			}
			fmt.Printf("    %s #%d %s\n", mark, t.ID, t.Description)
		}
	}

	return nil
}

func runProjectDelete(cmd *cobra.Command, args []string) error {
	db, err := openCatalog()
	if err != nil {
		return err
	}
	defer db.Close()

	p, err := resolveProject(db, args[0])
	if err != nil {
		return err
	}
	if err := db.SoftDeleteProject(p.ID); err != nil {
		return err
	}
	util.SuccessLog("Deleted %s (restore with 'livedex project restore %s')", p.Name, p.ID)
	return nil
}

func runProjectRestore(cmd *cobra.Command, args []string) error {
	db, err := openCatalog()
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.RestoreProject(args[0]); err != nil {
		return err
	}
	util.SuccessLog("Restored project %s", args[0])
	return nil
}

func runProjectNotes(cmd *cobra.Command, args []string) error {
	db, err := openCatalog()
	if err != nil {
		return err
	}
	defer db.Close()

	p, err := resolveProject(db, args[0])
	if err != nil {
		return err
	}
	if err := db.SetProjectNotes(p.ID, args[1]); err != nil {
		return err
	}
	util.SuccessLog("Updated notes for %s", p.Name)
	return nil
}
