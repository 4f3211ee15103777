package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/nerrad567/iot-device-sdk/internal/infrastructure/config"
	"github.com/nerrad567/iot-device-sdk/internal/infrastructure/database"
	"github.com/nerrad567/iot-device-sdk/internal/journal"
	"github.com/nerrad567/iot-device-sdk/migrations"
)

func newJournalCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "journal",
		Short: "Inspect recorded operations",
	}
	cmd.AddCommand(newJournalListCmd(flags))
	cmd.AddCommand(newJournalMigrationsCmd(flags))
	cmd.AddCommand(newJournalRollbackCmd(flags))
	return cmd
}

func newJournalListCmd(flags *globalFlags) *cobra.Command {
	var filter journal.Filter

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recorded operations, newest first",
		Long: `List reads the journal database named by journal.path. It does not
connect to the broker.

Examples:
  devicectl journal list --limit 20
  devicectl journal list --operation UpdateShadow --outcome rejected`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}
			return listJournal(cmd.Context(), cfg.Journal, filter, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&filter.Operation, "operation", "", "only this operation")
	cmd.Flags().StringVar(&filter.Outcome, "outcome", "", "only this outcome (success, rejected, ...)")
	cmd.Flags().IntVar(&filter.Limit, "limit", 50, "maximum entries to print")
	cmd.Flags().IntVar(&filter.Offset, "offset", 0, "entries to skip")
	return cmd
}

func newJournalMigrationsCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "migrations",
		Short: "Show applied and pending schema migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}
			return showMigrations(cmd.Context(), cfg.Journal, cmd.OutOrStdout())
		},
	}
}

func newJournalRollbackCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "rollback",
		Short: "Revert the most recent schema migration",
		Long: `Rollback reverts the newest applied migration. Any command that opens
the journal re-applies it.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}
			db, err := openJournalDB(cmd.Context(), cfg.Journal)
			if err != nil {
				return err
			}
			defer db.Close()

			if err := db.MigrateDown(cmd.Context(), migrations.FS); err != nil {
				return fmt.Errorf("reverting migration: %w", err)
			}
			return showMigrationStatus(cmd.Context(), db, cmd.OutOrStdout())
		},
	}
}

func openJournalDB(ctx context.Context, cfg config.JournalConfig) (*database.DB, error) {
	db, err := database.Open(ctx, database.Config{
		Path:        cfg.Path,
		WALMode:     cfg.WALMode,
		BusyTimeout: cfg.BusyTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("opening journal: %w", err)
	}
	return db, nil
}

// migrationStatus is the printed form of the schema state.
type migrationStatus struct {
	Applied []appliedMigration `json:"applied"`
	Pending []string           `json:"pending"`
}

type appliedMigration struct {
	Version   string    `json:"version"`
	AppliedAt time.Time `json:"applied_at"`
}

func showMigrations(ctx context.Context, cfg config.JournalConfig, out io.Writer) error {
	db, err := openJournalDB(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()
	return showMigrationStatus(ctx, db, out)
}

func showMigrationStatus(ctx context.Context, db *database.DB, out io.Writer) error {
	applied, pending, err := db.MigrationStatus(ctx, migrations.FS)
	if err != nil {
		return fmt.Errorf("reading migration status: %w", err)
	}

	status := migrationStatus{
		Applied: make([]appliedMigration, 0, len(applied)),
		Pending: make([]string, 0, len(pending)),
	}
	for _, m := range applied {
		status.Applied = append(status.Applied, appliedMigration{Version: m.Version, AppliedAt: m.AppliedAt})
	}
	for _, m := range pending {
		status.Pending = append(status.Pending, m.Version+"_"+m.Name)
	}
	return printJSON(out, status)
}

// listJournal opens the journal database, bringing its schema up to date,
// and prints one page of entries.
func listJournal(ctx context.Context, cfg config.JournalConfig, filter journal.Filter, out io.Writer) error {
	db, err := openJournalDB(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.Migrate(ctx, migrations.FS); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	result, err := journal.NewSQLiteRepository(db.DB).List(ctx, filter)
	if err != nil {
		return fmt.Errorf("listing journal: %w", err)
	}
	return printJSON(out, result)
}
