package stats

import (
	"math"
	"testing"

	"github.com/mkarvonen/opusbench/internal/table"
)

func mkTable(sample, decode, playback []float64) *table.Table {
	t := &table.Table{}
	for i := range sample {
		t.Rows = append(t.Rows, table.FrameSample{
			SampleTime:   sample[i],
			DecodeTime:   decode[i],
			PlaybackTime: playback[i],
		})
	}
	return t
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestAnalyzeWorkedExample(t *testing.T) {
	tbl := mkTable(
		[]float64{1.0, 1.0, 1.0, 1.0},
		[]float64{0.5, 0.5, 2.0, 0.5},
		[]float64{1.0, 1.0, 1.0, 0.4},
	)

	decode := DecodeSpeeds(tbl)
	wantDecode := []float64{2.0, 2.0, 0.5, 2.0}
	if len(decode) != len(wantDecode) {
		t.Fatalf("decode len = %d, want %d", len(decode), len(wantDecode))
	}
	for i := range wantDecode {
		if !almostEqual(decode[i], wantDecode[i]) {
			t.Errorf("decode[%d] = %v, want %v", i, decode[i], wantDecode[i])
		}
	}

	playback := PlaybackSpeeds(tbl)
	if len(playback) != 1 {
		t.Fatalf("playback len = %d, want 1", len(playback))
	}
	if !almostEqual(playback[0], 2.5) {
		t.Errorf("playback[0] = %v, want 2.5", playback[0])
	}

	r := Analyze(tbl)
	if r.Verdict != VerdictTooSlow {
		t.Errorf("Verdict = %v, want %v", r.Verdict, VerdictTooSlow)
	}
	if !almostEqual(r.Decode.Mean, 162.5) {
		t.Errorf("Decode.Mean = %v, want 162.5", r.Decode.Mean)
	}
	// Sample variance of [2, 2, 0.5, 2] is 0.5625, reported ×100.
	if !almostEqual(r.Decode.Variance, 56.25) {
		t.Errorf("Decode.Variance = %v, want 56.25", r.Decode.Variance)
	}
	if !almostEqual(r.Decode.Min, 50) || !almostEqual(r.Decode.Max, 200) {
		t.Errorf("Decode min/max = %v/%v, want 50/200", r.Decode.Min, r.Decode.Max)
	}
}

func TestSeriesLengths(t *testing.T) {
	for _, n := range []int{0, 1, 2, 3, 4, 10} {
		sample := make([]float64, n)
		other := make([]float64, n)
		for i := 0; i < n; i++ {
			sample[i] = 1
			other[i] = 1
		}
		tbl := mkTable(sample, other, other)

		if got := len(DecodeSpeeds(tbl)); got != n {
			t.Errorf("n=%d: decode len = %d", n, got)
		}
		wantPlayback := n - WarmupFrames
		if wantPlayback < 0 {
			wantPlayback = 0
		}
		if got := len(PlaybackSpeeds(tbl)); got != wantPlayback {
			t.Errorf("n=%d: playback len = %d, want %d", n, got, wantPlayback)
		}
	}
}

func TestVerdictAllRealTime(t *testing.T) {
	tbl := mkTable(
		[]float64{1, 1, 1, 1},
		[]float64{1.0, 0.5, 0.25, 1.0},
		[]float64{1, 1, 1, 1},
	)
	if r := Analyze(tbl); r.Verdict != VerdictRealTime {
		t.Errorf("Verdict = %v, want %v", r.Verdict, VerdictRealTime)
	}
}

func TestVerdictSingleSlowFrame(t *testing.T) {
	tbl := mkTable(
		[]float64{1, 1, 1},
		[]float64{0.5, 1.001, 0.5},
		[]float64{1, 1, 1},
	)
	if r := Analyze(tbl); r.Verdict != VerdictTooSlow {
		t.Errorf("Verdict = %v, want %v", r.Verdict, VerdictTooSlow)
	}
}

func TestZeroDivisorIsIndeterminate(t *testing.T) {
	tbl := mkTable(
		[]float64{1, 1, 1, 1},
		[]float64{0.5, 0, 0.5, 0.5},
		[]float64{1, 1, 1, 1},
	)
	r := Analyze(tbl)
	if r.Verdict != VerdictIndeterminate {
		t.Errorf("Verdict = %v, want %v", r.Verdict, VerdictIndeterminate)
	}
	if !r.Decode.Indeterminate {
		t.Error("Decode.Indeterminate = false, want true")
	}
	if !math.IsNaN(r.Decode.Mean) {
		t.Errorf("Decode.Mean = %v, want NaN", r.Decode.Mean)
	}
	// Playback divisors are all fine, so playback stats stay usable.
	if r.Playback.Indeterminate {
		t.Error("Playback.Indeterminate = true, want false")
	}
}

func TestEmptyTable(t *testing.T) {
	r := Analyze(&table.Table{})
	if r.Verdict != VerdictNoData {
		t.Errorf("Verdict = %v, want %v", r.Verdict, VerdictNoData)
	}
	if r.Frames != 0 {
		t.Errorf("Frames = %d, want 0", r.Frames)
	}
	if !r.Decode.Indeterminate || !r.Playback.Indeterminate {
		t.Error("empty table summaries should be indeterminate")
	}
}

func TestSummarizeSingleValue(t *testing.T) {
	s := Summarize([]float64{1.5})
	if !almostEqual(s.Mean, 150) || !almostEqual(s.Min, 150) || !almostEqual(s.Max, 150) {
		t.Errorf("Summary = %+v", s)
	}
	if !math.IsNaN(s.Variance) {
		t.Errorf("Variance = %v, want NaN for a single sample", s.Variance)
	}
	if s.Indeterminate {
		t.Error("single-value summary should not be indeterminate")
	}
}
