package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/staysync/staysync/internal/store"
)

func newBackupsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backups",
		Short: "Inspect and restore document backups",
	}
	cmd.AddCommand(newBackupsListCmd(a), newBackupsRestoreCmd(a))
	return cmd
}

func newBackupsListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list [collection]",
		Short: "List recorded backups, newest first",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			database, err := a.openLedger()
			if err != nil {
				return err
			}
			defer database.Close()

			collection := ""
			if len(args) == 1 {
				collection = args[0]
			}
			backups, err := store.ListBackups(cmd.Context(), database, collection)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "COLLECTION\tTAKEN\tSIZE\tPATH")
			for _, b := range backups {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", b.Collection, humanize.Time(b.TakenAt), humanize.Bytes(uint64(b.Size)), b.Path)
			}
			return tw.Flush()
		},
	}
}

func newBackupsRestoreCmd(a *app) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "restore <collection>",
		Short: "Restore a collection from a backup (default: the latest one)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			collection := args[0]
			database, err := a.openLedger()
			if err != nil {
				return err
			}
			defer database.Close()

			docs, err := a.openDocs(database)
			if err != nil {
				return err
			}

			if file == "" {
				latest, err := store.LatestBackup(cmd.Context(), database, collection)
				if err != nil {
					return err
				}
				if latest != nil {
					file = latest.Path
				} else {
					// Backups taken before the ledger existed are only on disk.
					file, err = docs.LatestBackupFile(collection)
					if err != nil {
						return err
					}
					if file == "" {
						return fmt.Errorf("no backup of %s found", collection)
					}
				}
			}

			if err := docs.Restore(cmd.Context(), collection, file); err != nil {
				return err
			}
			fmt.Printf("Restored %s from %s\n", collection, file)
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "backup file to restore")
	return cmd
}
