package main

import (
	"github.com/spf13/cobra"

	"github.com/adrata/dataops-cli/internal/classify"
	"github.com/adrata/dataops-cli/internal/dedupe"
	"github.com/adrata/dataops-cli/internal/enrich"
	"github.com/adrata/dataops-cli/internal/passes"
	"github.com/adrata/dataops-cli/internal/report"
	"github.com/adrata/dataops-cli/internal/store"
	"github.com/adrata/dataops-cli/pkg/anthropic"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the registered maintenance passes",
	Long:  "Runs every due pass against the workspace: dedupe, classify, enrich, and industry refresh. Each execution lands in the run log, and a JSON summary is written to the report directory.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		names, _ := cmd.Flags().GetStringSlice("pass")
		force, _ := cmd.Flags().GetBool("force")

		ws, err := workspaceID(cmd)
		if err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		engine := passes.NewEngine(st, buildPassRegistry(st))
		runErr := engine.Run(ctx, passes.RunOpts{
			WorkspaceID: ws,
			Passes:      names,
			Force:       force,
		})

		// The summary covers failed passes too, so write it before returning.
		runs, listErr := st.ListPassRuns(ctx, store.RunFilter{WorkspaceID: ws, Limit: 50})
		if listErr == nil {
			_, _ = report.NewWriter(cfg.Report.Dir).WritePassSummary(ws, runs)
		}

		return runErr
	},
}

// buildPassRegistry wires the standard passes. Provider-backed passes are
// registered only when at least one provider key is configured.
func buildPassRegistry(st store.Store) *passes.Registry {
	reg := passes.NewRegistry()

	d := dedupe.New(st)
	reg.Register(&passes.DedupePeople{Deduper: d})
	reg.Register(&passes.DedupeCompanies{Deduper: d})
	reg.Register(&passes.ClassifyRecords{Classifier: classify.New(st)})

	if cfg.Coresignal.Key != "" || cfg.Dropcontact.Key != "" || cfg.Perplexity.Key != "" {
		e := buildEnricher(st)
		reg.Register(&passes.EnrichPeople{Enricher: e})
		reg.Register(&passes.EnrichCompanies{Enricher: e})
		reg.Register(&passes.DrainRetries{Enricher: e})

		if cfg.Anthropic.Key != "" {
			reg.Register(&passes.RefreshIndustry{
				Enricher: e,
				Classifier: enrich.NewAnthropicClassifier(
					anthropic.NewClient(cfg.Anthropic.Key), cfg.Anthropic.Model),
			})
		}
	}

	return reg
}

func init() {
	runCmd.Flags().StringSlice("pass", nil, "restrict to specific passes (default all)")
	runCmd.Flags().Bool("force", false, "run passes even when not due")
	runCmd.Flags().String("workspace", "", "workspace id (default from config)")
	rootCmd.AddCommand(runCmd)
}
