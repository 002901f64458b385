package cmd

import (
	"songbox/server"

	"github.com/spf13/cobra"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the songbox HTTP server",
	Long:  `Start the HTTP server that serves the API, the audio files and the web UI.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return server.Run(cfg)
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)
}
