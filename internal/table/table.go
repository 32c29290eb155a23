// Package table turns the device's textual benchmark output into structured
// per-frame timing samples.
package table

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
)

// FrameSample holds the timing the device reported for one audio frame.
// All values are microseconds as printed by the firmware; never negative.
type FrameSample struct {
	SampleTime   float64 // wall-clock duration of audio in the frame
	DecodeTime   float64 // time spent decoding the frame
	PlaybackTime float64 // time spent playing the frame
}

// Table is an ordered sequence of frame samples in device-reporting order.
// A zero-length table is valid input and is distinct from "all frames were
// real-time".
type Table struct {
	Rows []FrameSample
}

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.Rows) }

// columns in the order the table is serialized. Matches the subset of the
// device header the harness consumes.
var csvColumns = []string{"sample time", "decode time", "playback time"}

// WriteCSV serializes the table as a header line plus one row per sample.
// Re-parsing the output with Parse yields an equal table.
func (t *Table) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	header := append([]string{"frequency"}, csvColumns...)
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, r := range t.Rows {
		row := []string{
			"0",
			strconv.FormatFloat(r.SampleTime, 'g', -1, 64),
			strconv.FormatFloat(r.DecodeTime, 'g', -1, 64),
			strconv.FormatFloat(r.PlaybackTime, 'g', -1, 64),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ParseError reports a malformed header or data row, naming the offending
// line. Malformed rows are never silently dropped.
type ParseError struct {
	Line   string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("malformed table line %q: %s", e.Line, e.Reason)
}
