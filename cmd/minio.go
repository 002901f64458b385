package cmd

import (
	"fmt"

	"songbox/storage"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var minioStatsOnly bool

var minioCmd = &cobra.Command{
	Use:   "minio",
	Short: "Inspect the MinIO audio bucket",
	Long:  `Connect to MinIO, list the stored audio objects and print bucket totals.`,
	Example: `  # list stored audio files and totals
  songbox minio

  # totals only
  songbox minio -s`,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "MinIO: %s, bucket: %s\n", cfg.MinioEndpoint, cfg.MinioBucket)

		store, err := storage.NewMinioStore(cmd.Context(), cfg)
		if err != nil {
			return err
		}

		stats, objects, err := store.Stats(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to read bucket: %w", err)
		}
		if !minioStatsOnly {
			printObjects(out, objects)
		}

		fmt.Fprintf(out, "\nObjects: %d\nTotal size: %s\n", stats.TotalObjects, humanize.IBytes(uint64(stats.TotalSize)))
		if !stats.LastModified.IsZero() {
			fmt.Fprintf(out, "Last upload: %s\n", humanize.Time(stats.LastModified))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(minioCmd)
	minioCmd.Flags().BoolVarP(&minioStatsOnly, "stats", "s", false, "print bucket totals only")
}
