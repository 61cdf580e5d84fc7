package commands

import (
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/crystalix007/cafe/cache"
	"github.com/crystalix007/cafe/cafe"
)

// durationDigits is the number of decimal places shown for bin durations.
const durationDigits = 3

type summary struct {
	input     int
	result    *cafe.Result[cache.Entry]
	filenames []string
}

// renderSummary writes a per-bin table followed by a one-line total.
func renderSummary(w io.Writer, s summary, noColor bool) error {
	heading := color.New(color.FgCyan, color.Bold)
	if noColor {
		heading.DisableColor()
	}

	if _, err := heading.Fprintln(w, "Bins"); err != nil {
		return fmt.Errorf("render summary: %w", err)
	}

	tbl := table.NewWriter()
	tbl.SetStyle(table.StyleLight)
	tbl.Style().Options.SeparateRows = false

	tbl.AppendHeader(table.Row{"Bin", "Files", "Start", "Duration", "Instruments"})

	kept := 0

	for n, bin := range s.result.Bins {
		start, duration := "-", "-"

		if extent, ok := bin.Extent(); ok {
			start = extent.Start.String()
			duration = humanize.FtoaWithDigits(extent.Duration().Seconds(), durationDigits) + "s"
		}

		kept += bin.Len()

		tbl.AppendRow(table.Row{
			n,
			humanize.Comma(int64(bin.Len())),
			start,
			duration,
			strings.Join(bin.Size().Keys(), ","),
		})
	}

	tbl.AppendFooter(table.Row{"Total", humanize.Comma(int64(kept))})

	if _, err := fmt.Fprintln(w, tbl.Render()); err != nil {
		return fmt.Errorf("render summary: %w", err)
	}

	_, err := fmt.Fprintf(w, "%s entries read, %s dropped, %s bins, %s files written\n",
		humanize.Comma(int64(s.input)),
		humanize.Comma(int64(s.result.Dropped)),
		humanize.Comma(int64(len(s.result.Bins))),
		humanize.Comma(int64(len(s.filenames))),
	)
	if err != nil {
		return fmt.Errorf("render summary: %w", err)
	}

	return nil
}
