package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/adrata/dataops-cli/internal/audit"
	"github.com/adrata/dataops-cli/internal/report"
)

var workspaceCmd = &cobra.Command{
	Use:   "workspace",
	Short: "Audit and repair workspace integrity",
	Long:  "Every entity must belong to exactly one live workspace. These commands find strays, adopt or retire them, and consolidate whole workspaces.",
}

func initAuditor(cmd *cobra.Command) (*audit.Auditor, func(), error) {
	st, err := initPostgres(cmd.Context())
	if err != nil {
		return nil, nil, err
	}
	if err := st.Migrate(cmd.Context()); err != nil {
		st.Close()
		return nil, nil, err
	}
	a := audit.New(st.Pool(), report.NewWriter(cfg.Report.Dir))
	return a, func() { st.Close() }, nil
}

var workspaceAuditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Count entities with missing or unknown workspace ids",
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, closeStore, err := initAuditor(cmd)
		if err != nil {
			return err
		}
		defer closeStore()

		rep, err := a.Audit(cmd.Context())
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(rep)
	},
}

var workspaceRepairCmd = &cobra.Command{
	Use:   "repair",
	Short: "Adopt or retire entities with broken workspace scoping",
	RunE: func(cmd *cobra.Command, _ []string) error {
		adoptInto, _ := cmd.Flags().GetString("adopt-into")
		softDelete, _ := cmd.Flags().GetBool("soft-delete")

		a, closeStore, err := initAuditor(cmd)
		if err != nil {
			return err
		}
		defer closeStore()

		n, err := a.Repair(cmd.Context(), audit.RepairOpts{
			AdoptInto:         adoptInto,
			SoftDeleteOrphans: softDelete,
		})
		if err != nil {
			return err
		}

		fmt.Printf("repaired %d rows\n", n)
		return nil
	},
}

var workspaceMergeCmd = &cobra.Command{
	Use:   "merge",
	Short: "Consolidate one workspace into another per a YAML plan",
	RunE: func(cmd *cobra.Command, _ []string) error {
		planPath, _ := cmd.Flags().GetString("plan")
		if planPath == "" {
			return fmt.Errorf("--plan is required")
		}

		plan, err := audit.LoadMergePlan(planPath)
		if err != nil {
			return err
		}

		a, closeStore, err := initAuditor(cmd)
		if err != nil {
			return err
		}
		defer closeStore()

		result, err := a.Merge(cmd.Context(), plan)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	},
}

func init() {
	workspaceRepairCmd.Flags().String("adopt-into", "", "workspace id that adopts stray entities")
	workspaceRepairCmd.Flags().Bool("soft-delete", false, "retire stray entities instead of adopting them")
	workspaceMergeCmd.Flags().String("plan", "", "path to the YAML merge plan")

	workspaceCmd.AddCommand(workspaceAuditCmd)
	workspaceCmd.AddCommand(workspaceRepairCmd)
	workspaceCmd.AddCommand(workspaceMergeCmd)
	rootCmd.AddCommand(workspaceCmd)
}
