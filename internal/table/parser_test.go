package table

import (
	"bufio"
	"bytes"
	"errors"
	"reflect"
	"strings"
	"testing"
)

const deviceOutput = "frequency, channels, samples, \"sample time\", \"decode time\", \"playback time\"\r\n" +
	"16000, 1, 960, 60000, 30000, 59000\r\n" +
	"16000, 1, 960, 60000, 31000, 60500\r\n" +
	"16000, 1, 960, 60000, 29000, 60000\r\n"

func TestParseDeviceOutput(t *testing.T) {
	tbl, err := Parse([]byte(deviceOutput))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	want := []FrameSample{
		{SampleTime: 60000, DecodeTime: 30000, PlaybackTime: 59000},
		{SampleTime: 60000, DecodeTime: 31000, PlaybackTime: 60500},
		{SampleTime: 60000, DecodeTime: 29000, PlaybackTime: 60000},
	}
	if !reflect.DeepEqual(tbl.Rows, want) {
		t.Errorf("Rows = %+v, want %+v", tbl.Rows, want)
	}
}

func TestParseHeaderCaseAndWhitespace(t *testing.T) {
	in := "  FREQUENCY ,\"Sample Time\" , \"DECODE TIME\",playback time\n" +
		"8000, 120000, 50000, 110000\n"
	tbl, err := Parse([]byte(in))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if tbl.Len() != 1 {
		t.Fatalf("Len = %d, want 1", tbl.Len())
	}
	got := tbl.Rows[0]
	if got.SampleTime != 120000 || got.DecodeTime != 50000 || got.PlaybackTime != 110000 {
		t.Errorf("row = %+v", got)
	}
}

func TestParseEmptyTable(t *testing.T) {
	tbl, err := Parse([]byte("frequency, \"sample time\", \"decode time\", \"playback time\"\r\n"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if tbl.Len() != 0 {
		t.Errorf("Len = %d, want 0", tbl.Len())
	}
}

func TestParseErrors(t *testing.T) {
	header := "frequency, \"sample time\", \"decode time\", \"playback time\"\n"
	tests := []struct {
		name   string
		input  string
		reason string
	}{
		{
			name:   "no header",
			input:  "16000, 60000, 30000, 59000\n",
			reason: "expected header",
		},
		{
			name:   "missing column",
			input:  "frequency, \"sample time\", \"decode time\"\n16000, 60000, 30000\n",
			reason: "missing column",
		},
		{
			name:   "wrong field count",
			input:  header + "16000, 60000, 30000\n",
			reason: "expected 4 fields",
		},
		{
			name:   "non-numeric value",
			input:  header + "16000, 60000, oops, 59000\n",
			reason: "non-numeric",
		},
		{
			name:   "negative duration",
			input:  header + "16000, 60000, -1, 59000\n",
			reason: "negative",
		},
		{
			name:   "second header",
			input:  header + "16000, 60000, 30000, 59000\n" + header,
			reason: "second header",
		},
		{
			name:   "empty input",
			input:  "",
			reason: "no table header",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.input))
			var perr *ParseError
			if !errors.As(err, &perr) {
				t.Fatalf("Parse = %v, want *ParseError", err)
			}
			if !strings.Contains(perr.Reason, tt.reason) {
				t.Errorf("Reason = %q, want it to mention %q", perr.Reason, tt.reason)
			}
		})
	}
}

func TestParseErrorNamesOffendingLine(t *testing.T) {
	in := "frequency, \"sample time\", \"decode time\", \"playback time\"\n" +
		"16000, 60000, bogus, 59000\n"
	_, err := Parse([]byte(in))
	var perr *ParseError
	if !errors.As(err, &perr) {
		t.Fatalf("Parse = %v, want *ParseError", err)
	}
	if perr.Line != "16000, 60000, bogus, 59000" {
		t.Errorf("Line = %q", perr.Line)
	}
}

func TestScanSkipsLeadingJunkAndStopsAtNextHeader(t *testing.T) {
	in := "boot banner\r\nsome unsolicited line\r\n" +
		deviceOutput +
		"frequency, \"sample time\", \"decode time\", \"playback time\"\r\n" +
		"8000, 1, 1, 1\r\n"
	r := bufio.NewReader(strings.NewReader(in))

	first, err := Scan(r)
	if err != nil {
		t.Fatalf("Scan first: %v", err)
	}
	if first.Len() != 3 {
		t.Errorf("first table Len = %d, want 3", first.Len())
	}

	second, err := Scan(r)
	if err != nil {
		t.Fatalf("Scan second: %v", err)
	}
	if second.Len() != 1 {
		t.Errorf("second table Len = %d, want 1", second.Len())
	}
}

func TestScanNoHeader(t *testing.T) {
	r := bufio.NewReader(strings.NewReader("no tables here\njust noise\n"))
	_, err := Scan(r)
	var perr *ParseError
	if !errors.As(err, &perr) {
		t.Fatalf("Scan = %v, want *ParseError", err)
	}
}

func TestScanUnterminatedLastRow(t *testing.T) {
	in := "frequency, \"sample time\", \"decode time\", \"playback time\"\n" +
		"16000, 60000, 30000, 59000" // no trailing newline
	r := bufio.NewReader(strings.NewReader(in))
	tbl, err := Scan(r)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if tbl.Len() != 1 {
		t.Errorf("Len = %d, want 1", tbl.Len())
	}
}

func TestScanRejectsOverlongLine(t *testing.T) {
	in := "frequency, \"sample time\", \"decode time\", \"playback time\"\n" +
		strings.Repeat("1", 256) // desynchronized stream, no line break
	r := bufio.NewReaderSize(strings.NewReader(in), 16)

	_, err := Scan(r)
	var perr *ParseError
	if !errors.As(err, &perr) {
		t.Fatalf("Scan = %v, want *ParseError", err)
	}
	if !strings.Contains(perr.Reason, "too long") {
		t.Errorf("Reason = %q, want it to mention the line length", perr.Reason)
	}
}

func TestWriteCSVRoundTrip(t *testing.T) {
	orig := &Table{Rows: []FrameSample{
		{SampleTime: 60000, DecodeTime: 30000, PlaybackTime: 59000},
		{SampleTime: 60000, DecodeTime: 0, PlaybackTime: 60500},
		{SampleTime: 20000.5, DecodeTime: 10000.25, PlaybackTime: 19999.75},
	}}

	var buf bytes.Buffer
	if err := orig.WriteCSV(&buf); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}

	parsed, err := Parse(buf.Bytes())
	if err != nil {
		t.Fatalf("Parse round-trip: %v", err)
	}
	if !reflect.DeepEqual(parsed.Rows, orig.Rows) {
		t.Errorf("round-trip mismatch:\n got %+v\nwant %+v", parsed.Rows, orig.Rows)
	}
}

func TestWriteCSVEmptyRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	orig := &Table{}
	if err := orig.WriteCSV(&buf); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}
	parsed, err := Parse(buf.Bytes())
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if parsed.Len() != 0 {
		t.Errorf("Len = %d, want 0", parsed.Len())
	}
}
