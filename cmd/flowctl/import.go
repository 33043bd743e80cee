package main

import (
	"fmt"

	"github.com/spf13/cobra"

	applog "buestanflow/internal/log"
	"buestanflow/internal/records/memory"
	"buestanflow/internal/storage"
)

func newImportCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "import <ledger.yaml>",
		Short: "Load a YAML ledger into the SQLite store",
		Long: `Reads every period of a YAML ledger (the same format SEED_FILE uses for
the memory backend) and imports it into the SQLite database at --db or
SQLITE_DB_PATH. Each imported period replaces what was stored for it.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			snaps, err := memory.LoadFile(args[0])
			if err != nil {
				return err
			}
			if a.cfg.SQLiteDBPath == "" {
				return fmt.Errorf("no SQLite database path: set --db or SQLITE_DB_PATH")
			}

			repo, err := storage.NewSQLiteRepository(a.cfg.SQLiteDBPath)
			if err != nil {
				return err
			}
			defer repo.Close()
			repo.WithLogger(a.logger)

			for _, snap := range snaps {
				if err := repo.ImportSnapshot(cmd.Context(), snap); err != nil {
					return fmt.Errorf("period %s: %w", snap.Period, err)
				}
				a.logger.Debug("Imported period",
					applog.NewFields().
						WithPeriod(snap.Period.String()).
						WithOperation(applog.OpImport).
						WithSnapshotSize(len(snap.Transactions), len(snap.Obligations), len(snap.Products)).
						ToSlice()...)
				fmt.Fprintf(cmd.OutOrStdout(), "imported %s: %d transactions, %d obligations, %d products\n",
					snap.Period, len(snap.Transactions), len(snap.Obligations), len(snap.Products))
			}
			return nil
		},
	}
}
