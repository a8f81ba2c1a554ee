package main

import (
	"database/sql"
	"fmt"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/staysync/staysync/internal/config"
	"github.com/staysync/staysync/internal/db"
	"github.com/staysync/staysync/internal/docstore"
	"github.com/staysync/staysync/internal/store"
)

// app carries state shared by every subcommand once the root pre-run has loaded it.
type app struct {
	configPath string
	debug      bool
	cfg        config.Config
	closeLog   func()
}

func newRootCmd() *cobra.Command {
	a := &app{}
	cmd := &cobra.Command{
		Use:   "staysync",
		Short: "Inventory backend for vacation rental properties",
		Long: `StaySync keeps the item catalog, property records and per-property
inventories of a vacation rental business in JSON documents, and serves them
over an authenticated HTTP API.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// .env is optional.
			_ = godotenv.Load()

			cfg, err := config.Load(a.configPath)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("log") {
				cfg.LogPath, _ = cmd.Flags().GetString("log")
			}
			a.cfg = cfg

			a.closeLog, err = setupLogger(cfg.LogPath, a.debug)
			return err
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.closeLog != nil {
				a.closeLog()
			}
		},
	}

	cmd.PersistentFlags().StringVarP(&a.configPath, "config", "c", "staysync.yaml", "config file path")
	cmd.PersistentFlags().StringP("log", "l", "", "log file path (default: stdout/stderr only)")
	cmd.PersistentFlags().BoolVar(&a.debug, "debug", false, "enable debug logging")

	cmd.AddCommand(newServeCmd(a))
	cmd.AddCommand(newUsersCmd(a))
	cmd.AddCommand(newBackupsCmd(a))

	return cmd
}

// openLedger opens the SQLite database holding settings, revoked tokens and the backup ledger.
func (a *app) openLedger() (*sql.DB, error) {
	database, err := db.Open(a.cfg.LedgerPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Migrate(database); err != nil {
		database.Close()
		return nil, fmt.Errorf("migrating database: %w", err)
	}
	return database, nil
}

// openDocs opens the document store, recording backups in the ledger.
func (a *app) openDocs(ledger *sql.DB) (*docstore.Store, error) {
	return docstore.New(docstore.Options{
		Dir:       a.cfg.DataDir,
		BackupDir: a.cfg.BackupDir,
		CacheTTL:  a.cfg.CacheTTL,
		Recorder:  &store.Ledger{DB: ledger},
	})
}
