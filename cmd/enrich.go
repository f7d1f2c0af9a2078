package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/adrata/dataops-cli/internal/enrich"
	"github.com/adrata/dataops-cli/internal/model"
	"github.com/adrata/dataops-cli/internal/store"
	"github.com/adrata/dataops-cli/pkg/anthropic"
	"github.com/adrata/dataops-cli/pkg/coresignal"
	"github.com/adrata/dataops-cli/pkg/dropcontact"
	"github.com/adrata/dataops-cli/pkg/perplexity"
)

var enrichCmd = &cobra.Command{
	Use:   "enrich",
	Short: "Fill missing entity fields from external providers",
	Long:  "Calls the configured data providers for incomplete people and companies, merging returned fields without overwriting existing values.",
}

// buildProviderRegistry wires every provider with a configured key.
func buildProviderRegistry() *enrich.Registry {
	reg := enrich.NewRegistry()

	if cfg.Coresignal.Key != "" {
		c := coresignal.NewClient(cfg.Coresignal.Key, coresignal.WithBaseURL(cfg.Coresignal.BaseURL))
		reg.RegisterPerson(enrich.NewCoresignalPeople(c))
		reg.RegisterCompany(enrich.NewCoresignalCompanies(c))
	}
	if cfg.Dropcontact.Key != "" {
		c := dropcontact.NewClient(cfg.Dropcontact.Key, dropcontact.WithBaseURL(cfg.Dropcontact.BaseURL))
		reg.RegisterPerson(enrich.NewDropcontactPeople(c))
	}
	if cfg.Perplexity.Key != "" {
		c := perplexity.NewClient(cfg.Perplexity.Key,
			perplexity.WithBaseURL(cfg.Perplexity.BaseURL),
			perplexity.WithModel(cfg.Perplexity.Model))
		reg.RegisterCompany(enrich.NewPerplexityCompanies(c))
	}

	return reg
}

func buildEnricher(st store.Store) *enrich.Enricher {
	return enrich.New(st, buildProviderRegistry(), enrich.Config{
		BatchSize:    cfg.Enrich.BatchSize,
		BatchDelay:   cfg.Enrich.BatchDelay,
		MinCallDelay: cfg.Enrich.MinCallDelay,
		Refresh:      cfg.Enrich.Refresh,
	})
}

func runEnrichPass(cmd *cobra.Command, run func(e *enrich.Enricher, ws string) (*model.PassResult, error)) error {
	ctx := cmd.Context()

	if err := cfg.Validate("enrich"); err != nil {
		return err
	}
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

	result, err := run(buildEnricher(st), ws)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

var enrichPeopleCmd = &cobra.Command{
	Use:   "people",
	Short: "Enrich person records",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runEnrichPass(cmd, func(e *enrich.Enricher, ws string) (*model.PassResult, error) {
			return e.People(cmd.Context(), ws)
		})
	},
}

var enrichCompaniesCmd = &cobra.Command{
	Use:   "companies",
	Short: "Enrich company records",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runEnrichPass(cmd, func(e *enrich.Enricher, ws string) (*model.PassResult, error) {
			return e.Companies(cmd.Context(), ws)
		})
	},
}

var enrichRetriesCmd = &cobra.Command{
	Use:   "retries",
	Short: "Re-attempt entities from the retry queue",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runEnrichPass(cmd, func(e *enrich.Enricher, ws string) (*model.PassResult, error) {
			return e.DrainRetries(cmd.Context(), ws)
		})
	},
}

var enrichIndustryCmd = &cobra.Command{
	Use:   "refresh-industry",
	Short: "Reclassify company industries with the AI classifier",
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

		classifier := enrich.NewAnthropicClassifier(
			anthropic.NewClient(cfg.Anthropic.Key), cfg.Anthropic.Model)

		result, err := buildEnricher(st).RefreshIndustry(ctx, ws, classifier)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	},
}

func init() {
	enrichCmd.PersistentFlags().String("workspace", "", "workspace id (default from config)")
	enrichCmd.AddCommand(enrichPeopleCmd)
	enrichCmd.AddCommand(enrichCompaniesCmd)
	enrichCmd.AddCommand(enrichRetriesCmd)
	enrichCmd.AddCommand(enrichIndustryCmd)
	rootCmd.AddCommand(enrichCmd)
}
