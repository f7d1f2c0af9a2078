package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/adrata/dataops-cli/internal/idmigrate"
	"github.com/adrata/dataops-cli/internal/report"
)

var migrateIDsCmd = &cobra.Command{
	Use:   "migrate-ids",
	Short: "Rewrite legacy CUID primary keys to ULIDs",
	Long:  "Replaces CUID-format ids with ULIDs derived from each row's creation time and repoints every foreign key. Rows that already carry ULIDs are skipped, so reruns are safe.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initPostgres(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		result, err := idmigrate.New(st.Pool()).Run(ctx)
		if err != nil {
			return err
		}

		if len(result.Mapping) > 0 {
			path, err := report.NewWriter(cfg.Report.Dir).WriteJSON("id-migration", result)
			if err != nil {
				return err
			}
			fmt.Printf("rewrote %d ids, mapping saved to %s\n", len(result.Mapping), path)
			return nil
		}

		fmt.Println("no legacy ids found")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateIDsCmd)
}
