package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/adrata/dataops-cli/internal/db"
	"github.com/adrata/dataops-cli/internal/report"
)

var importXLSXPath string

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import people and companies from an XLSX workbook",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		ws, err := workspaceID(cmd)
		if err != nil {
			return err
		}

		st, err := initPostgres(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		people, companies, err := report.ReadWorkbook(importXLSXPath)
		if err != nil {
			return err
		}

		peopleLoaded, err := db.LoadPeople(ctx, st.Pool(), ws, people)
		if err != nil {
			return eris.Wrap(err, "import people")
		}
		companiesLoaded, err := db.LoadCompanies(ctx, st.Pool(), ws, companies)
		if err != nil {
			return eris.Wrap(err, "import companies")
		}

		zap.L().Info("import complete",
			zap.Int64("people", peopleLoaded),
			zap.Int64("companies", companiesLoaded),
			zap.String("xlsx", importXLSXPath),
		)
		return nil
	},
}

func init() {
	importCmd.Flags().StringVar(&importXLSXPath, "xlsx", "", "path to XLSX workbook (required)")
	_ = importCmd.MarkFlagRequired("xlsx")
	importCmd.Flags().String("workspace", "", "workspace id (default from config)")
	rootCmd.AddCommand(importCmd)
}
