// package formatter renders reports about the album state (stats, unpurchased listings, run history)
package formatter

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/spoticamper/internal/models"
	"github.com/desertthunder/spoticamper/internal/shared"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// Format selects how album listings are written.
type Format string

const (
	FormatText     Format = "text"
	FormatCSV      Format = "csv"
	FormatMarkdown Format = "markdown"
)

// ParseFormat validates a format name. Empty means [FormatText].
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FormatText, nil
	case FormatText, FormatCSV, FormatMarkdown:
		return f, nil
	default:
		return "", fmt.Errorf("%w: unknown format %q (text, csv, markdown)", shared.ErrInvalidArgument, s)
	}
}

// WriteUnpurchased writes the listing URL of every album, in the given format.
func WriteUnpurchased(w io.Writer, albums []*models.Album, format Format) error {
	var (
		data []byte
		err  error
	)
	switch format {
	case FormatCSV:
		data, err = ExportToCSV(albums)
	case FormatMarkdown:
		data, err = ExportToMarkdown(albums)
	default:
		data, err = ExportToText(albums)
	}
	if err != nil {
		return err
	}

	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to write listing: %w", err)
	}
	return nil
}

// ExportToText writes one URL per line.
func ExportToText(albums []*models.Album) ([]byte, error) {
	var buf bytes.Buffer
	for _, album := range albums {
		buf.WriteString(album.URL)
		buf.WriteByte('\n')
	}
	return buf.Bytes(), nil
}

// ExportToCSV converts albums to CSV format with columns: Key, Artists, Album, URL
func ExportToCSV(albums []*models.Album) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write([]string{"Key", "Artists", "Album", "URL"}); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, album := range albums {
		record := []string{album.Key, strings.Join(album.Artists, ", "), album.Name, album.URL}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportToMarkdown converts albums to a Markdown link list.
func ExportToMarkdown(albums []*models.Album) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString("# Unpurchased albums\n\n")
	fmt.Fprintf(&buf, "**Albums**: %d\n\n", len(albums))

	for _, album := range albums {
		title := album.Name
		if len(album.Artists) > 0 {
			title = album.Artists[0] + " - " + album.Name
		}
		fmt.Fprintf(&buf, "- [%s](%s)\n", title, album.URL)
	}

	return buf.Bytes(), nil
}

// WriteStats prints the aggregate counts and percentages.
//
// With no albums the percentages are undefined and printed as n/a.
func WriteStats(w io.Writer, st models.Stats) error {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "albums registered from spotify: %d\n", st.Albums)
	fmt.Fprintf(&buf, "albums purchased on bandcamp: %d\n", st.Purchased)
	fmt.Fprintf(&buf, "albums found on bandcamp: %d (missing %d bandcamp URLs)\n", st.Found, st.NotFound)
	fmt.Fprintf(&buf, "%d albums haven't been bandcamp searched for some reason\n", st.Unsearched)

	purchased, err := st.PercentPurchased()
	fmt.Fprintf(&buf, "%s purchased\n", formatPercent(purchased, err))
	notFound, err := st.PercentNotFound()
	fmt.Fprintf(&buf, "%s not found\n", formatPercent(notFound, err))

	if _, err := w.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("failed to write stats: %w", err)
	}
	return nil
}

func formatPercent(p float64, err error) string {
	if errors.Is(err, shared.ErrNoAlbums) {
		return "n/a"
	}
	return strconv.FormatFloat(p, 'f', -1, 64) + "%"
}

// RenderRuns renders run history as a table, newest first as given.
func RenderRuns(runs []models.Run) string {
	headers := []string{"Started", "Playlist", "Albums", "New", "Searched", "Found", "Purchased", "Took"}
	rows := make([][]string, 0, len(runs))
	for _, run := range runs {
		playlist := run.Playlist
		if playlist == "" {
			playlist = "-"
		}
		rows = append(rows, []string{
			run.StartedAt.Local().Format(time.DateTime),
			playlist,
			strconv.Itoa(run.Albums),
			strconv.Itoa(run.Registered),
			strconv.Itoa(run.Searched),
			strconv.Itoa(run.Found),
			strconv.Itoa(run.Purchased),
			run.Duration().Round(time.Millisecond).String(),
		})
	}
	return renderTable(headers, rows, 2)
}

// renderTable right-aligns every column from numericFrom on.
func renderTable(headers []string, rows [][]string, numericFrom int) string {
	columns := len(headers)
	if columns == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, columns)
	for i := range columns {
		header[i] = headers[i]
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, columns)
		for i := range columns {
			if i < len(row) {
				r[i] = row[i]
			} else {
				r[i] = ""
			}
		}
		tw.AppendRow(r)
	}

	configs := make([]table.ColumnConfig, 0, columns)
	for i := range columns {
		align := text.AlignLeft
		if i >= numericFrom {
			align = text.AlignRight
		}
		configs = append(configs, table.ColumnConfig{Number: i + 1, Align: align, AlignHeader: text.AlignLeft})
	}
	tw.SetColumnConfigs(configs)

	return tw.Render()
}
