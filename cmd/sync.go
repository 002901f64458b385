package cmd

import (
	"fmt"

	"songbox/server"

	"github.com/spf13/cobra"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Register stored audio files missing from the catalog",
	RunE: func(cmd *cobra.Command, args []string) error {
		lib, closeLib, err := server.OpenLibrary(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer closeLib()

		report, err := lib.Sync(cmd.Context())
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		for _, s := range report.Added {
			fmt.Fprintf(out, "added   %s (%s)\n", s.Filename, s.Title)
		}
		for _, name := range report.Skipped {
			fmt.Fprintf(out, "skipped %s (not audio)\n", name)
		}
		fmt.Fprintf(out, "%d files added, %d skipped\n", len(report.Added), len(report.Skipped))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(syncCmd)
}
