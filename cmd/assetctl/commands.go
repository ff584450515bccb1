package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/spf13/cobra"
	"github.com/tendant/simple-asset/pkg/simpleasset"
	"github.com/tendant/simple-asset/pkg/simpleasset/config"
	repopg "github.com/tendant/simple-asset/pkg/simpleasset/repo/postgres"
)

// NewMigrateCommand creates the migrate command
func NewMigrateCommand() *cobra.Command {
	var withReferences bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create the assets schema in Postgres",
		Long: `Create the configured schema and the assets table with its indexes.
Pass --with-references to also create profiles, clients, products and
proposals for development databases.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cfg.DatabaseType != "postgres" {
				return fmt.Errorf("migrate requires DATABASE_TYPE=postgres, got %q", cfg.DatabaseType)
			}

			ctx := cmd.Context()
			pool, err := config.NewPool(ctx, cfg.DatabaseURL, cfg.DBSchema)
			if err != nil {
				return err
			}
			defer pool.Close()

			if cfg.DBSchema != "" {
				stmt := "CREATE SCHEMA IF NOT EXISTS " + pgx.Identifier{cfg.DBSchema}.Sanitize()
				if _, err := pool.Exec(ctx, stmt); err != nil {
					return fmt.Errorf("failed to create schema: %w", err)
				}
			}
			if err := repopg.Migrate(ctx, pool, withReferences); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Schema %q is up to date\n", cfg.DBSchema)
			return nil
		},
	}

	cmd.Flags().BoolVar(&withReferences, "with-references", false, "also create reference tables")
	return cmd
}

// NewPingCommand creates the ping command
func NewPingCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Check that the configured Postgres database is reachable",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cfg.DatabaseType != "postgres" {
				fmt.Fprintln(cmd.OutOrStdout(), "Using the in-memory repository, nothing to ping")
				return nil
			}
			if err := config.PingPostgres(cmd.Context(), cfg.DatabaseURL, cfg.DBSchema); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Postgres is reachable (schema %q)\n", cfg.DBSchema)
			return nil
		},
	}
}

// NewPurgeCommand creates the purge command
func NewPurgeCommand() *cobra.Command {
	var olderThan time.Duration
	var limit int

	cmd := &cobra.Command{
		Use:   "purge",
		Short: "Permanently delete assets that have been in the trash too long",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("older-than") {
				olderThan = cfg.PurgeRetention
			}
			if !cmd.Flags().Changed("limit") {
				limit = cfg.PurgeBatch
			}

			rt, err := cfg.BuildService(cmd.Context())
			if err != nil {
				return err
			}
			defer rt.Close()

			result, err := rt.Service.PurgeDeleted(cmd.Context(), time.Now().Add(-olderThan), limit)
			if err != nil {
				return fmt.Errorf("purge failed: %w", err)
			}
			printPurgeResult(cmd.OutOrStdout(), result)
			if len(result.Failed) > 0 {
				return fmt.Errorf("%d assets could not be purged", len(result.Failed))
			}
			return nil
		},
	}

	cmd.Flags().DurationVar(&olderThan, "older-than", 0, "purge assets deleted before now minus this duration (default PURGE_RETENTION)")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum assets to purge (default PURGE_BATCH)")
	return cmd
}

func printPurgeResult(w io.Writer, result *simpleasset.PurgeResult) {
	fmt.Fprintf(w, "Scanned: %d\nPurged: %d\n", result.Scanned, result.Purged)
	for _, f := range result.Failed {
		fmt.Fprintf(w, "Failed: %s (tenant %s): %s\n", f.AssetID, f.TenantID, f.Error)
	}
}

// NewCategoriesCommand creates the categories command
func NewCategoriesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "categories",
		Short: "Print the category taxonomy",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			printCategories(cmd.OutOrStdout(), simpleasset.Categories())
			return nil
		},
	}
}

func printCategories(w io.Writer, specs []simpleasset.CategorySpec) {
	fmt.Fprintf(w, "Taxonomy version %d\n\n", simpleasset.TaxonomyVersion)
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CATEGORY\tLABEL\tFAMILY\tFOLDER\tSUBCATEGORIES")
	for _, spec := range specs {
		subs := "-"
		if len(spec.Subcategories) > 0 {
			subs = strings.Join(spec.Subcategories, ",")
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", spec.Category, spec.Label, spec.Family, spec.Folder, subs)
	}
	tw.Flush()
}

// NewStatsCommand creates the stats command
func NewStatsCommand() *cobra.Command {
	var subject string

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Print per-category counts for a user's tenant",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if subject == "" {
				return fmt.Errorf("--subject is required")
			}
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			rt, err := cfg.BuildService(cmd.Context())
			if err != nil {
				return err
			}
			defer rt.Close()

			stats, err := rt.Service.CategoryStatistics(cmd.Context(), simpleasset.Principal{Subject: subject})
			if err != nil {
				return err
			}
			printStats(cmd.OutOrStdout(), stats)
			return nil
		},
	}

	cmd.Flags().StringVar(&subject, "subject", "", "authenticated subject whose tenant to report on")
	return cmd
}

func printStats(w io.Writer, stats []simpleasset.CategoryStats) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "CATEGORY\tTOTAL\tACTIVE\tAI AVAILABLE\tAI PROCESSED\t")
	for _, s := range stats {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\t\n", s.Category, s.Total, s.Active, s.AIAvailable, s.AIProcessed)
	}
	tw.Flush()
}

// NewEnvCommand creates the env command
func NewEnvCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "env",
		Short: "List the environment variables read by the server",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), config.Usage())
		},
	}
}
