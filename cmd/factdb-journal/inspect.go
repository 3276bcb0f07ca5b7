package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/nathanial/ledger-sub001/internal/journal"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect [journal-dir]",
	Short: "Recover a journal directory and print basis, entity count, and datom count",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, err := resolveJournalDir(args)
		if err != nil {
			return fmt.Errorf("inspect: %w", err)
		}
		d, err := journal.Recover(dir)
		if err != nil {
			return fmt.Errorf("inspect: %w", err)
		}

		all := d.Current.All()
		entities := make(map[int64]bool)
		for _, dd := range all {
			entities[int64(dd.E)] = true
		}

		fmt.Printf("basis tx:        %d\n", d.BasisT)
		fmt.Printf("next entity id:  %d\n", d.NextEntityId)
		fmt.Printf("current datoms:  %d\n", len(all))
		fmt.Printf("history datoms:  %d\n", len(d.History.All()))
		fmt.Printf("live entities:   %d\n", len(entities))

		if verboseInspect {
			sort.Slice(all, func(i, j int) bool {
				if all[i].E != all[j].E {
					return all[i].E < all[j].E
				}
				return all[i].A < all[j].A
			})
			for _, dd := range all {
				fmt.Printf("  %d %s %s\n", dd.E, dd.A, dd.V.String())
			}
		}
		return nil
	},
}

var verboseInspect bool

func init() {
	inspectCmd.Flags().BoolVarP(&verboseInspect, "verbose", "v", false, "print every current datom")
	rootCmd.AddCommand(inspectCmd)
}
