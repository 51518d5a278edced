package main

import (
	"context"
	"fmt"

	"github.com/hflor/livedex/internal/util"
	"github.com/hflor/livedex/internal/validate"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var checkCmd = &cobra.Command{
	Use:   "check [project]",
	Short: "Check sample and plugin presence",
	Long: `Verify that referenced sample files still exist on disk and that
referenced plugins are installed according to Live's own plugin database.

Plugin state degrades to unknown (never to missing) when the plugin
database cannot be read. Point --registry (or "registry" in config) at
Live's Database directory, e.g.
~/Library/Application Support/Ableton/Live Database.

With no argument every known sample and plugin is checked; with a
project argument only that project's references are.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)

	checkCmd.Flags().String("registry", "", "Live Database directory with the plugins db")
	checkCmd.Flags().Bool("samples", false, "report each missing sample path")
	checkCmd.Flags().IntP("concurrency", "c", 0, "number of stat workers")
	viper.BindPFlag("registry", checkCmd.Flags().Lookup("registry"))
}

func runCheck(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	listSamples, _ := cmd.Flags().GetBool("samples")
	concurrency, _ := cmd.Flags().GetInt("concurrency")

	db, err := openCatalog()
	if err != nil {
		return err
	}
	defer db.Close()

	v := validate.New(&validate.Config{
		Store:       db,
		Registry:    validate.NewRegistry(viper.GetString("registry")),
		Concurrency: concurrency,
	})

	if len(args) == 1 {
		p, err := resolveProject(db, args[0])
		if err != nil {
			return err
		}
		if err := v.ValidateProject(ctx, p.ID); err != nil {
			return fmt.Errorf("presence check failed: %w", err)
		}
		missing, unknown, err := db.CountMissingSamples(p.ID)
		if err != nil {
			return err
		}
		if missing == 0 && unknown == 0 {
			util.SuccessLog("%s: all samples present", p.Name)
		} else {
			util.WarnLog("%s: %d samples missing, %d unknown", p.Name, missing, unknown)
		}

		if listSamples {
			samples, err := db.ListProjectSamples(p.ID)
			if err != nil {
				return err
			}
			for _, smp := range samples {
				switch {
				case smp.Present.Valid && smp.Present.Bool:
					desc, err := validate.InspectSample(smp.Path)
					if err != nil {
						desc = "ok"
					}
					util.InfoLog("  %s: %s", smp.Name, desc)
				case smp.Present.Valid:
					util.WarnLog("  %s: missing (%s)", smp.Name, smp.Path)
				default:
					util.InfoLog("  %s: unknown", smp.Name)
				}
			}
		}
		return nil
	}

	result, err := v.ValidateAll(ctx)
	if err != nil {
		return fmt.Errorf("presence check failed: %w", err)
	}
	printValidateResult(result)

	if listSamples && result.SamplesMissing > 0 {
		samples, err := db.ListSamples()
		if err != nil {
			return err
		}
		util.InfoLog("")
		util.InfoLog("Missing samples:")
		for _, smp := range samples {
			if smp.Present.Valid && !smp.Present.Bool {
				util.WarnLog("  %s", smp.Path)
			}
		}
	}
	return nil
}

func printValidateResult(r *validate.Result) {
	if r.SamplesUnknown > 0 {
		util.InfoLog("Samples: %d checked, %d present, %d missing, %d unresolvable",
			r.SamplesChecked, r.SamplesPresent, r.SamplesMissing, r.SamplesUnknown)
	} else {
		util.InfoLog("Samples: %d checked, %d present, %d missing",
			r.SamplesChecked, r.SamplesPresent, r.SamplesMissing)
	}
	if r.PluginsUnknown > 0 {
		util.InfoLog("Plugins: %d checked, %d unknown (registry unavailable)",
			r.PluginsChecked, r.PluginsUnknown)
	} else {
		util.InfoLog("Plugins: %d checked, %d installed, %d missing",
			r.PluginsChecked, r.PluginsInstalled, r.PluginsMissing)
	}
	if r.SamplesMissing > 0 || r.PluginsMissing > 0 {
		util.WarnLog("Some references are missing; 'livedex search missing:true' lists affected projects")
	} else {
		util.SuccessLog("No missing references")
	}
}
