package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nathanial/ledger-sub001/internal/journal"
)

var compactCmd = &cobra.Command{
	Use:   "compact [journal-dir]",
	Short: "Recover a journal directory, write a fresh snapshot, and truncate the journal log",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, err := resolveJournalDir(args)
		if err != nil {
			return fmt.Errorf("compact: %w", err)
		}
		d, err := journal.Recover(dir)
		if err != nil {
			return fmt.Errorf("compact: recover: %w", err)
		}

		j, err := journal.Open(dir, journal.Options{})
		if err != nil {
			return fmt.Errorf("compact: open: %w", err)
		}
		defer j.Close()

		if err := j.Compact(d); err != nil {
			return fmt.Errorf("compact: %w", err)
		}
		fmt.Printf("compacted %s at tx %d (%d datoms)\n", dir, d.BasisT, len(d.Current.All()))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(compactCmd)
}
