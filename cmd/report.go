package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/adrata/dataops-cli/internal/model"
	"github.com/adrata/dataops-cli/internal/report"
	"github.com/adrata/dataops-cli/internal/store"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Inspect pass run history and export workspace data",
	Long:  "Commands for listing maintenance pass runs, summarizing them, and exporting workspace records to a spreadsheet.",
}

// -- report runs --

var reportRunsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List maintenance pass runs",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		pass, _ := cmd.Flags().GetString("pass")
		status, _ := cmd.Flags().GetString("status")
		limit, _ := cmd.Flags().GetInt("limit")
		ws, _ := cmd.Flags().GetString("workspace")
		if ws == "" {
			ws = cfg.Workspace.ID
		}

		filter := store.RunFilter{
			Pass:        pass,
			WorkspaceID: ws,
			Status:      model.PassStatus(status),
			Limit:       limit,
		}

		runs, err := st.ListPassRuns(ctx, filter)
		if err != nil {
			return eris.Wrap(err, "report runs")
		}

		if len(runs) == 0 {
			fmt.Fprintln(os.Stderr, "No runs found.")
			return nil
		}

		formatRunsList(os.Stdout, runs)
		return nil
	},
}

// -- report summary --

var reportSummaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Write a JSON summary of recent pass runs",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

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

		limit, _ := cmd.Flags().GetInt("limit")
		runs, err := st.ListPassRuns(ctx, store.RunFilter{WorkspaceID: ws, Limit: limit})
		if err != nil {
			return eris.Wrap(err, "report summary")
		}

		path, err := report.NewWriter(cfg.Report.Dir).WritePassSummary(ws, runs)
		if err != nil {
			return err
		}
		fmt.Println(path)
		return nil
	},
}

// -- report export --

var reportExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export workspace people and companies to a spreadsheet",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

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

		people, err := st.ListPeople(ctx, ws)
		if err != nil {
			return eris.Wrap(err, "report export")
		}
		companies, err := st.ListCompanies(ctx, ws)
		if err != nil {
			return eris.Wrap(err, "report export")
		}

		path, _ := cmd.Flags().GetString("xlsx")
		if err := report.ExportWorkbook(path, people, companies); err != nil {
			return err
		}
		fmt.Printf("exported %d people and %d companies to %s\n", len(people), len(companies), path)
		return nil
	},
}

func init() {
	reportRunsCmd.Flags().String("pass", "", "filter by pass name")
	reportRunsCmd.Flags().String("status", "", "filter by run status (running, complete, failed)")
	reportRunsCmd.Flags().Int("limit", 50, "max number of runs to display")
	reportRunsCmd.Flags().String("workspace", "", "workspace id (default from config)")

	reportSummaryCmd.Flags().Int("limit", 100, "max number of runs to include")
	reportSummaryCmd.Flags().String("workspace", "", "workspace id (default from config)")

	reportExportCmd.Flags().String("xlsx", "workspace.xlsx", "output spreadsheet path")
	reportExportCmd.Flags().String("workspace", "", "workspace id (default from config)")

	reportCmd.AddCommand(reportRunsCmd)
	reportCmd.AddCommand(reportSummaryCmd)
	reportCmd.AddCommand(reportExportCmd)
	rootCmd.AddCommand(reportCmd)
}

// formatRunsList writes a tabular list of pass runs to w.
func formatRunsList(out io.Writer, runs []model.PassRun) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tPASS\tSTATUS\tEXAMINED\tCHANGED\tERRORS\tSTARTED\tDURATION")
	_, _ = fmt.Fprintln(w, "--\t----\t------\t--------\t-------\t------\t-------\t--------")

	for _, r := range runs {
		dur := ""
		if r.CompletedAt != nil {
			dur = r.CompletedAt.Sub(r.StartedAt).Round(time.Second).String()
		}

		examined, changed, errs := 0, 0, 0
		if r.Result != nil {
			examined = r.Result.Examined
			changed = r.Result.Changed
			errs = r.Result.Errors
		}

		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%d\t%s\t%s\n",
			truncateID(r.ID),
			r.Pass,
			r.Status,
			examined,
			changed,
			errs,
			r.StartedAt.Format("2006-01-02 15:04"),
			dur,
		)
	}
	_ = w.Flush()
}

// truncateID shortens an id for display.
func truncateID(id string) string {
	if len(id) > 10 {
		return id[:10]
	}
	return id
}
