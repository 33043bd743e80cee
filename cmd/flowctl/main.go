// Command flowctl inspects period summaries from the terminal, imports
// seed ledgers into SQLite and queues summary requests for the worker.
package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"buestanflow/internal/cli"
	"buestanflow/internal/config"
	"buestanflow/internal/core"
	applog "buestanflow/internal/log"
)

// app holds the state shared by every subcommand.
type app struct {
	verbose     bool
	backendType string
	seedFile    string
	dbPath      string

	cfg    *config.Config
	logger *applog.Logger
	now    func() time.Time
}

func newRootCmd() *cobra.Command {
	a := &app{now: time.Now}

	root := &cobra.Command{
		Use:   "flowctl",
		Short: "Inspect and feed the buestanflow dashboard",
		Long: `flowctl derives the dashboard widgets of a reporting month from the
configured record store and prints them.

The store is selected like the server does (DATA_BACKEND, SEED_FILE,
SQLITE_DB_PATH, GOOGLE_*), and may be overridden with --backend.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(cmd.ErrOrStderr())
		},
	}

	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "log at debug level")
	root.PersistentFlags().StringVar(&a.backendType, "backend", "", "record backend: memory, sqlite or sheets")
	root.PersistentFlags().StringVar(&a.seedFile, "seed", "", "YAML ledger for the memory backend")
	root.PersistentFlags().StringVar(&a.dbPath, "db", "", "SQLite database path")

	root.AddCommand(
		newSummaryCmd(a),
		newAlertsCmd(a),
		newProductsCmd(a),
		newTransactionsCmd(a),
		newImportCmd(a),
		newRequestCmd(a),
	)
	return root
}

func (a *app) init(stderr io.Writer) error {
	cli.LoadEnvFile()

	logCfg := applog.DefaultConfig()
	logCfg.Output = stderr
	logCfg.Level = applog.ParseLevel("warn")
	if a.verbose {
		logCfg.Level = applog.ParseLevel("debug")
	}
	logCfg.Component = applog.ComponentCLI
	a.logger = applog.New(logCfg)

	a.cfg = config.Load()
	if a.backendType != "" {
		a.cfg.DataBackend = a.backendType
	}
	if a.seedFile != "" {
		a.cfg.SeedFile = a.seedFile
	}
	if a.dbPath != "" {
		a.cfg.SQLiteDBPath = a.dbPath
	}
	return nil
}

// periodFlag resolves --period, defaulting to the current month.
func (a *app) periodFlag(v string) (core.Period, error) {
	if v == "" {
		return core.PeriodOf(a.now()), nil
	}
	p, err := core.ParsePeriod(v)
	if err != nil {
		return core.Period{}, fmt.Errorf("--period: %w", err)
	}
	return p, nil
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
