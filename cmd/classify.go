package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/adrata/dataops-cli/internal/classify"
)

var classifyCmd = &cobra.Command{
	Use:   "classify",
	Short: "Reclassify prospects and leads by observed engagement",
	Long:  "Prospects with communication actions (direct or via their person/company) become leads; leads with none fall back to prospects.",
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

		result, err := classify.New(st).Run(ctx, ws)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	},
}

func init() {
	classifyCmd.Flags().String("workspace", "", "workspace id (default from config)")
	rootCmd.AddCommand(classifyCmd)
}
