package cmd

import (
	"fmt"

	"songbox/model"
	"songbox/server"

	"github.com/spf13/cobra"
)

var (
	songsQuery string
	songsLimit int
)

var songsCmd = &cobra.Command{
	Use:   "songs",
	Short: "List the song catalog",
	Example: `  songbox songs
  songbox songs -q beatles -n 20`,
	RunE: func(cmd *cobra.Command, args []string) error {
		lib, closeLib, err := server.OpenLibrary(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer closeLib()

		songs, total, err := lib.List(cmd.Context(), model.SongFilter{Query: songsQuery, Limit: songsLimit})
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		printSongs(out, songs)
		fmt.Fprintf(out, "%d of %d songs\n", len(songs), total)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(songsCmd)
	songsCmd.Flags().StringVarP(&songsQuery, "query", "q", "", "only songs whose title, artist or album contains this")
	songsCmd.Flags().IntVarP(&songsLimit, "limit", "n", 0, "maximum number of songs to print (0 = all)")
}
