package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/nathanial/ledger-sub001/internal/journal"
)

var watchCmd = &cobra.Command{
	Use:   "watch [journal-dir]",
	Short: "Watch a journal directory and reprint inspect output on every append",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, err := resolveJournalDir(args)
		if err != nil {
			return fmt.Errorf("watch: %w", err)
		}
		return watchJournal(dir)
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func watchJournal(dir string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch: create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch: add %s: %w", dir, err)
	}

	printState(dir)
	fmt.Fprintf(os.Stderr, "\nwatching %s for changes... (press Ctrl+C to exit)\n", dir)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	var debounceTimer *time.Timer
	const debounceDelay = 300 * time.Millisecond

	for {
		select {
		case <-sigChan:
			fmt.Fprintln(os.Stderr, "\nstopped watching.")
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				base := filepath.Base(event.Name)
				if base == "journal.jsonl" || base == "snapshot.json" {
					if debounceTimer != nil {
						debounceTimer.Stop()
					}
					debounceTimer = time.AfterFunc(debounceDelay, func() {
						printState(dir)
						fmt.Fprintf(os.Stderr, "\nwatching %s for changes... (press Ctrl+C to exit)\n", dir)
					})
				}
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			fmt.Fprintf(os.Stderr, "watch error: %v\n", err)
		}
	}
}

func printState(dir string) {
	d, err := journal.Recover(dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "recover failed: %v\n", err)
		return
	}
	fmt.Printf("[%s] basis tx %d, %d current datoms\n", time.Now().Format(time.RFC3339), d.BasisT, len(d.Current.All()))
}
