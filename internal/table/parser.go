package table

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"strconv"
	"strings"
)

// headerToken is the first field of every table header line.
const headerToken = "frequency"

// Column names the harness requires. Lookup is by name, not position, so
// firmware revisions can reorder or add columns freely.
const (
	colSampleTime   = "sample time"
	colDecodeTime   = "decode time"
	colPlaybackTime = "playback time"
)

// Scan extracts exactly one table from a live stream: it discards lines
// until the first header line, then collects data rows until the next
// header line or end of input. The terminating header is left unconsumed
// so a subsequent Scan picks up the next table. Used when an initial,
// discardable table may precede the one of interest.
func Scan(r *bufio.Reader) (*Table, error) {
	// Find the header.
	var header []string
	for {
		line, err := readLine(r)
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, err
		}
		atEOF := errors.Is(err, io.EOF)
		if isHeader(line) {
			header = splitHeader(line)
			break
		}
		if atEOF {
			return nil, &ParseError{Line: "", Reason: "no table header found"}
		}
	}

	cols, err := resolveColumns(header)
	if err != nil {
		return nil, err
	}

	t := &Table{}
	for {
		line, err := peekLine(r)
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, err
		}
		atEOF := errors.Is(err, io.EOF)
		if isHeader(line) {
			// Next table's header; leave it for the next Scan.
			return t, nil
		}
		discardLine(r, len(line))
		if strings.TrimSpace(line) != "" {
			row, perr := parseRow(line, len(header), cols)
			if perr != nil {
				return nil, perr
			}
			t.Rows = append(t.Rows, row)
		}
		if atEOF {
			return t, nil
		}
	}
}

// peekLine returns the next line (including its terminator, if any) without
// consuming it. At end of input the partial line is returned with io.EOF.
// A line that does not fit the reader's buffer is rejected outright: device
// rows are tens of bytes, so an overlong line means a desynchronized stream.
func peekLine(r *bufio.Reader) (string, error) {
	for n := 64; ; n *= 2 {
		if n > r.Size() {
			n = r.Size()
		}
		buf, err := r.Peek(n)
		if i := bytes.IndexByte(buf, '\n'); i >= 0 {
			return string(buf[:i+1]), nil
		}
		if errors.Is(err, io.EOF) {
			if len(buf) == 0 {
				return "", io.EOF
			}
			return string(buf), io.EOF
		}
		if err != nil && !errors.Is(err, bufio.ErrBufferFull) {
			return string(buf), err
		}
		if n == r.Size() {
			preview := string(buf)
			if len(preview) > 64 {
				preview = preview[:64] + "..."
			}
			return "", &ParseError{Line: preview, Reason: "line too long for buffer"}
		}
	}
}

func discardLine(r *bufio.Reader, n int) {
	r.Discard(n)
}

// Parse treats an already-complete blob as exactly one table: a single
// header line followed by data rows. A second header is an error.
func Parse(data []byte) (*Table, error) {
	r := bufio.NewReader(bytes.NewReader(data))

	var header []string
	for header == nil {
		line, err := readLine(r)
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, err
		}
		if strings.TrimSpace(line) == "" {
			if errors.Is(err, io.EOF) {
				return nil, &ParseError{Line: "", Reason: "no table header found"}
			}
			continue
		}
		if !isHeader(line) {
			return nil, &ParseError{Line: strings.TrimRight(line, "\r\n"), Reason: "expected header line starting with " + strconv.Quote(headerToken)}
		}
		header = splitHeader(line)
	}

	cols, err := resolveColumns(header)
	if err != nil {
		return nil, err
	}

	t := &Table{}
	for {
		line, err := readLine(r)
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, err
		}
		atEOF := errors.Is(err, io.EOF)
		if strings.TrimSpace(line) != "" {
			if isHeader(line) {
				return nil, &ParseError{Line: strings.TrimRight(line, "\r\n"), Reason: "unexpected second header"}
			}
			row, perr := parseRow(line, len(header), cols)
			if perr != nil {
				return nil, perr
			}
			t.Rows = append(t.Rows, row)
		}
		if atEOF {
			return t, nil
		}
	}
}

// columnIndex maps the required column names to their field positions.
type columnIndex struct {
	sample   int
	decode   int
	playback int
}

func resolveColumns(header []string) (columnIndex, error) {
	idx := columnIndex{sample: -1, decode: -1, playback: -1}
	for i, name := range header {
		switch name {
		case colSampleTime:
			idx.sample = i
		case colDecodeTime:
			idx.decode = i
		case colPlaybackTime:
			idx.playback = i
		}
	}
	for _, c := range []struct {
		name string
		pos  int
	}{
		{colSampleTime, idx.sample},
		{colDecodeTime, idx.decode},
		{colPlaybackTime, idx.playback},
	} {
		if c.pos < 0 {
			return idx, &ParseError{Line: strings.Join(header, ", "), Reason: "missing column " + strconv.Quote(c.name)}
		}
	}
	return idx, nil
}

// readLine returns the next line including nothing of its terminator.
// io.EOF is returned together with any final unterminated line.
func readLine(r *bufio.Reader) (string, error) {
	line, err := r.ReadString('\n')
	return line, err
}

// isHeader reports whether the line is a table header. The check is case
// and whitespace insensitive and tolerates quoted field names.
func isHeader(line string) bool {
	fields := strings.SplitN(line, ",", 2)
	return normalizeField(fields[0]) == headerToken
}

func splitHeader(line string) []string {
	raw := strings.Split(strings.TrimRight(line, "\r\n"), ",")
	names := make([]string, len(raw))
	for i, f := range raw {
		names[i] = normalizeField(f)
	}
	return names
}

// normalizeField trims surrounding whitespace and double quotes and lowers
// the case. The firmware quotes multi-word column names.
func normalizeField(f string) string {
	f = strings.TrimSpace(f)
	f = strings.Trim(f, `"`)
	return strings.ToLower(strings.TrimSpace(f))
}

// parseRow parses one comma-separated data row. Field count must match the
// header arity and the required fields must be non-negative numbers.
func parseRow(line string, arity int, cols columnIndex) (FrameSample, error) {
	trimmed := strings.TrimRight(line, "\r\n")
	fields := strings.Split(trimmed, ",")
	if len(fields) != arity {
		return FrameSample{}, &ParseError{
			Line:   trimmed,
			Reason: "expected " + strconv.Itoa(arity) + " fields, got " + strconv.Itoa(len(fields)),
		}
	}

	get := func(i int) (float64, error) {
		s := strings.TrimSpace(fields[i])
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, &ParseError{Line: trimmed, Reason: "non-numeric field " + strconv.Quote(s)}
		}
		if v < 0 {
			return 0, &ParseError{Line: trimmed, Reason: "negative duration " + strconv.Quote(s)}
		}
		return v, nil
	}

	var row FrameSample
	var err error
	if row.SampleTime, err = get(cols.sample); err != nil {
		return FrameSample{}, err
	}
	if row.DecodeTime, err = get(cols.decode); err != nil {
		return FrameSample{}, err
	}
	if row.PlaybackTime, err = get(cols.playback); err != nil {
		return FrameSample{}, err
	}
	return row, nil
}
