package cmd

import (
	"fmt"

	"songbox/db"

	"github.com/spf13/cobra"
)

var setupDBCmd = &cobra.Command{
	Use:   "setup-db",
	Short: "Create the database tables",
	Long:  `Connect to MySQL and create the songs and playlist tables when they are missing.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		conn, err := db.ConnectDB(cfg)
		if err != nil {
			return err
		}
		defer conn.Close()

		if err := db.InitDB(conn); err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Database %s is ready.\n\nsongs:\n", cfg.DBName)
		for _, col := range db.SongsTableLayout {
			fmt.Fprintf(out, "  - %s\n", col)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(setupDBCmd)
}
