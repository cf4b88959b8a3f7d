package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"movie-meme-api/internal/models"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"
)

var videoHeader = table.Row{"ID", "Title", "Movie", "Tags", "User", "Thumb", "Created"}

// videoColumns keeps ids whole so they can be pasted into delete calls and
// lines the relative creation times up on the right.
func videoColumns(colorize bool) []table.ColumnConfig {
	cols := []table.ColumnConfig{
		{Name: "ID", AlignHeader: text.AlignLeft},
		{Name: "Title", WidthMax: 40, WidthMaxEnforcer: text.WrapSoft},
		{Name: "Movie", WidthMax: 24, WidthMaxEnforcer: text.Trim},
		{Name: "Tags", WidthMax: 32, WidthMaxEnforcer: text.WrapSoft},
		{Name: "User", WidthMax: 16, WidthMaxEnforcer: text.Trim},
		{Name: "Thumb", Align: text.AlignCenter, AlignHeader: text.AlignCenter},
		{Name: "Created", Align: text.AlignRight, AlignHeader: text.AlignRight, AlignFooter: text.AlignRight},
	}
	if colorize {
		cols[0].Colors = text.Colors{text.FgHiBlack}
		cols[5].Colors = text.Colors{text.FgGreen}
	}
	return cols
}

func videoRow(v models.Video) table.Row {
	thumb := "no"
	if v.ThumbnailPath != "" {
		thumb = "yes"
	}
	created := "-"
	if !v.CreatedAt.IsZero() {
		created = humanize.Time(v.CreatedAt)
	}
	return table.Row{v.ID, v.Title, v.MovieName, strings.Join(v.Tags, ", "), v.UserID, thumb, created}
}

// renderVideoTable lays out catalog records one per row with the record count
// in the footer.
func renderVideoTable(videos []models.Video, colorize bool) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.Style().Format.Footer = text.FormatDefault
	if colorize {
		tw.Style().Color.Header = text.Colors{text.Bold, text.FgCyan}
	}

	tw.AppendHeader(videoHeader)
	for _, v := range videos {
		tw.AppendRow(videoRow(v))
	}
	tw.AppendFooter(table.Row{"", "", "", "", "", "", fmt.Sprintf("%s videos", humanize.Comma(int64(len(videos))))})
	tw.SetColumnConfigs(videoColumns(colorize))
	return tw.Render()
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
