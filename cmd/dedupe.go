package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/adrata/dataops-cli/internal/dedupe"
	"github.com/adrata/dataops-cli/internal/model"
)

var dedupeCmd = &cobra.Command{
	Use:   "dedupe [people|companies]",
	Short: "Merge duplicate identities in a workspace",
	Long:  "Groups people by normalized email (name as fallback) and companies by domain (name as fallback), keeps the earliest most-complete record in each group, repoints every reference, and removes the duplicates.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
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

		d := dedupe.New(st)

		kind := "all"
		if len(args) == 1 {
			kind = args[0]
		}

		results := map[string]*model.PassResult{}
		switch kind {
		case "people":
			r, err := d.People(ctx, ws)
			if err != nil {
				return err
			}
			results["people"] = r
		case "companies":
			r, err := d.Companies(ctx, ws)
			if err != nil {
				return err
			}
			results["companies"] = r
		case "all":
			r, err := d.People(ctx, ws)
			if err != nil {
				return err
			}
			results["people"] = r
			r, err = d.Companies(ctx, ws)
			if err != nil {
				return err
			}
			results["companies"] = r
		default:
			return eris.Errorf("unknown dedupe target %q (valid: people, companies)", kind)
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	},
}

func init() {
	dedupeCmd.Flags().String("workspace", "", "workspace id (default from config)")
	rootCmd.AddCommand(dedupeCmd)
}
