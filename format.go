package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"
)

// statusf prints a status message to stderr unless quiet mode is set.
func statusf(quiet bool, format string, args ...any) {
	if !quiet {
		fmt.Fprintf(os.Stderr, format, args...)
	}
}

// sizeUnits are binary multiples, smallest first.
var sizeUnits = []string{"KB", "MB", "GB", "TB"}

// formatSize returns a human-readable size string (e.g. "1.2 MB").
func formatSize(bytes int64) string {
	if bytes < 1024 { //nolint:mnd // one KiB
		return fmt.Sprintf("%d B", bytes)
	}

	value := float64(bytes)
	unit := ""

	for _, u := range sizeUnits {
		value /= 1024
		unit = u

		if value < 1024 || u == sizeUnits[len(sizeUnits)-1] {
			break
		}
	}

	return fmt.Sprintf("%.1f %s", value, unit)
}

// formatTime returns a compact timestamp for display.
func formatTime(t time.Time) string {
	if t.Year() == time.Now().Year() {
		return t.Format("Jan _2 15:04")
	}

	return t.Format("Jan _2  2006")
}

// formatAge describes how long ago t was, in the largest whole unit.
func formatAge(t, now time.Time) string {
	d := now.Sub(t)

	const (
		day  = 24 * time.Hour
		year = 365 * day
	)

	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return plural(int(d/time.Minute), "minute") + " ago"
	case d < day:
		return plural(int(d/time.Hour), "hour") + " ago"
	case d < year:
		return plural(int(d/day), "day") + " ago"
	default:
		return plural(int(d/year), "year") + " ago"
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return "1 " + unit
	}

	return fmt.Sprintf("%d %ss", n, unit)
}

// printTable writes headers and rows as space-aligned columns.
func printTable(w io.Writer, headers []string, rows [][]string) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0) //nolint:mnd // two-space gutter

	fmt.Fprintln(tw, strings.Join(headers, "\t"))

	for _, row := range rows {
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}

	tw.Flush()
}
