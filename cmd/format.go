package cmd

import (
	"fmt"
	"io"
	"strconv"

	"songbox/model"
	"songbox/storage"

	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"
)

// formatDuration renders seconds as m:ss, or "-" when unknown.
func formatDuration(seconds *int) string {
	if seconds == nil || *seconds < 0 {
		return "-"
	}
	s := *seconds
	if s >= 3600 {
		return fmt.Sprintf("%d:%02d:%02d", s/3600, s%3600/60, s%60)
	}
	return fmt.Sprintf("%d:%02d", s/60, s%60)
}

func songRows(songs []*model.Song) [][]string {
	rows := make([][]string, 0, len(songs))
	for _, s := range songs {
		rows = append(rows, []string{
			strconv.FormatInt(s.ID, 10),
			s.Title,
			s.Artist,
			s.Album,
			formatDuration(s.Duration),
			humanize.IBytes(uint64(max(s.Size, 0))),
			humanize.Time(s.UploadDate),
		})
	}
	return rows
}

func printSongs(w io.Writer, songs []*model.Song) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"ID", "Title", "Artist", "Album", "Length", "Size", "Uploaded"})
	table.SetAutoWrapText(false)
	table.AppendBulk(songRows(songs))
	table.Render()
}

func printObjects(w io.Writer, objects []storage.ObjectInfo) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Name", "Type", "Size", "Modified"})
	table.SetAutoWrapText(false)
	for _, o := range objects {
		table.Append([]string{o.Name, o.ContentType, humanize.IBytes(uint64(max(o.Size, 0))), humanize.Time(o.ModTime)})
	}
	table.Render()
}
