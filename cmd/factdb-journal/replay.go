package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/nathanial/ledger-sub001/internal/journal"
)

var replayCmd = &cobra.Command{
	Use:   "replay [journal-dir]",
	Short: "Replay every committed transaction in order, printing one line per tx",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, err := resolveJournalDir(args)
		if err != nil {
			return fmt.Errorf("replay: %w", err)
		}
		d, err := journal.Recover(dir)
		if err != nil {
			return fmt.Errorf("replay: %w", err)
		}

		byTx := make(map[uint64]int)
		for _, dd := range d.History.All() {
			byTx[uint64(dd.Tx)]++
		}
		txs := make([]uint64, 0, len(byTx))
		for tx := range byTx {
			txs = append(txs, tx)
		}
		sort.Slice(txs, func(i, j int) bool { return txs[i] < txs[j] })

		for _, tx := range txs {
			fmt.Printf("tx %d: %d datoms\n", tx, byTx[tx])
		}
		fmt.Printf("replayed %d transactions up to basis %d\n", len(txs), d.BasisT)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(replayCmd)
}
