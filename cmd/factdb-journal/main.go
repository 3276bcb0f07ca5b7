// Command factdb-journal is a standalone operator tool for a fact-store
// journal directory: inspecting its contents, forcing a compaction,
// replaying it to list its transactions, and tailing it for live changes. It
// never participates in the transaction path itself — it only opens
// journal directories the core engine has already written.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "factdb-journal",
	Short: "factdb-journal - inspect and maintain a fact-store journal directory",
	Long:  `A companion CLI for operating on journal.jsonl/snapshot.json directories written by the core engine.`,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
