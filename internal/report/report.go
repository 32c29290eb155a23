// Package report renders benchmark results for the console.
package report

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/mkarvonen/opusbench/internal/stats"
	"github.com/mkarvonen/opusbench/internal/sweep"
	"github.com/mkarvonen/opusbench/internal/table"
)

// Print writes the statistics of one benchmark run in the harness's usual
// output format.
func Print(w io.Writer, r *stats.Report) {
	switch r.Verdict {
	case stats.VerdictRealTime:
		fmt.Fprintln(w, "Fast enough to decode all frames")
	case stats.VerdictTooSlow:
		fmt.Fprintln(w, "Too slow to decode some frames")
	case stats.VerdictIndeterminate:
		fmt.Fprintln(w, "Decode speed indeterminate (zero or missing timing values)")
	default:
		fmt.Fprintln(w, "No frames reported")
		return
	}

	printSummary(w, "decode", r.Decode)
	printSummary(w, "playback", r.Playback)
}

func printSummary(w io.Writer, name string, s stats.Summary) {
	if s.Indeterminate {
		fmt.Fprintf(w, "%s speed statistics indeterminate\n", title(name))
		return
	}
	fmt.Fprintf(w, "Mean %s speed: %.1f %%\n", name, s.Mean)
	fmt.Fprintf(w, "Variance of %s speed: %.3f %%\n", name, s.Variance)
	fmt.Fprintf(w, "Minimum %s speed: %.1f %%\n", name, s.Min)
	fmt.Fprintf(w, "Maximum %s speed: %.1f %%\n", name, s.Max)
}

func title(s string) string {
	if s == "" {
		return s
	}
	return string(s[0]-'a'+'A') + s[1:]
}

// PrintSweep writes one line per swept bitrate plus the overall answer.
func PrintSweep(w io.Writer, results []sweep.BitrateResult) {
	tw := tabwriter.NewWriter(w, 0, 8, 2, ' ', 0)
	fmt.Fprintln(tw, "BITRATE\tSTATUS\tVERDICT\tMEAN\tMIN")
	for _, res := range results {
		switch {
		case res.Status == sweep.StatusUnsupported:
			fmt.Fprintf(tw, "%s\t%s\t-\t-\t-\n", res.Bitrate, res.Status)
		case res.Decode.Indeterminate:
			fmt.Fprintf(tw, "%s\t%s\t%s\t-\t-\n", res.Bitrate, res.Status, res.Verdict)
		default:
			fmt.Fprintf(tw, "%s\t%s\t%s\t%.1f %%\t%.1f %%\n",
				res.Bitrate, res.Status, res.Verdict, res.Decode.Mean, res.Decode.Min)
		}
	}
	tw.Flush()

	if best, ok := sweep.FastestRealTime(results); ok {
		fmt.Fprintf(w, "Fastest real-time bitrate: %s\n", best)
	} else {
		fmt.Fprintln(w, "No bitrate decoded in real time")
	}
}

// PrintTable writes an aligned dump of the parsed frame table.
func PrintTable(w io.Writer, t *table.Table) {
	tw := tabwriter.NewWriter(w, 0, 8, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "FRAME\tSAMPLE TIME\tDECODE TIME\tPLAYBACK TIME\t")
	for i, r := range t.Rows {
		fmt.Fprintf(tw, "%d\t%g\t%g\t%g\t\n", i, r.SampleTime, r.DecodeTime, r.PlaybackTime)
	}
	tw.Flush()
}
