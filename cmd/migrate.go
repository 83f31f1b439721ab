package cmd

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/killallgit/audio-recap/internal/database"
	"github.com/killallgit/audio-recap/internal/models"
	"github.com/killallgit/audio-recap/internal/services/jobs"
	"github.com/killallgit/audio-recap/pkg/config"
	"github.com/killallgit/audio-recap/pkg/logging"
	"github.com/spf13/cobra"
)

// migrateCmd represents the migrate command
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage the upload job database",
	Long: `Manage the sqlite database that holds upload job records.

Available subcommands:
  up      - Create or update the tables
  status  - Show which tables exist
  prune   - Delete finished job records older than a number of days`,
}

// migrateUpCmd applies the schema
var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Create or update the tables",
	RunE:  runMigrateUp,
}

// migrateStatusCmd shows schema status
var migrateStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show migration status",
	RunE:  runMigrateStatus,
}

// migratePruneCmd deletes old job records
var migratePruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete old finished job records",
	RunE:  runMigratePrune,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.AddCommand(migrateUpCmd)
	migrateCmd.AddCommand(migrateStatusCmd)
	migrateCmd.AddCommand(migratePruneCmd)

	migrateUpCmd.Flags().Bool("dry-run", false, "show what would be done without making changes")
	migratePruneCmd.Flags().Int("days", 30, "retention in days")
}

func runMigrateUp(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	if dryRun, _ := cmd.Flags().GetBool("dry-run"); dryRun {
		fmt.Fprintln(out, "Dry run mode - no changes will be made")
		for _, m := range models.All() {
			fmt.Fprintf(out, "  would migrate %s\n", modelName(m))
		}
		return nil
	}

	db, err := database.InitializeWithMigrations()
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	defer db.Close()

	fmt.Fprintf(out, "Migrated %d table(s) in %s\n", len(models.All()), config.GetString("database.path"))
	return nil
}

func runMigrateStatus(cmd *cobra.Command, args []string) error {
	db, err := openConfiguredDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "Database Migration Status")
	fmt.Fprintln(out, strings.Repeat("=", 50))
	fmt.Fprintf(out, "Path: %s\n", config.GetString("database.path"))

	migrator := db.Migrator()
	for _, m := range models.All() {
		state := "pending"
		if migrator.HasTable(m) {
			state = "applied"
		}
		fmt.Fprintf(out, "  %-20s %s\n", modelName(m), state)
	}
	return nil
}

func runMigratePrune(cmd *cobra.Command, args []string) error {
	days, _ := cmd.Flags().GetInt("days")

	db, err := database.InitializeWithMigrations()
	if err != nil {
		return err
	}
	defer db.Close()

	svc := jobs.NewService(jobs.NewRepository(db.DB), logging.Log)
	deleted, err := svc.CleanupOldJobs(cmd.Context(), days)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d job record(s) older than %d day(s)\n", deleted, days)
	return nil
}

func openConfiguredDatabase() (*database.DB, error) {
	path := config.GetString("database.path")
	if path == "" {
		return nil, fmt.Errorf("database path is not configured")
	}
	return database.Initialize(path, config.GetBool("database.verbose"))
}

func modelName(m any) string {
	if t, ok := m.(interface{ TableName() string }); ok {
		return t.TableName()
	}
	return reflect.TypeOf(m).Elem().Name()
}
