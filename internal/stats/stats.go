// Package stats derives real-time verdicts and speed summaries from a
// parsed benchmark table.
package stats

import (
	"encoding/json"
	"math"
	"strconv"

	"github.com/mkarvonen/opusbench/internal/table"
)

// WarmupFrames is the number of leading rows excluded from playback
// statistics. The first frames include buffer fill and are not
// representative of steady-state playback. Decode statistics use every row.
const WarmupFrames = 3

// Verdict is the whole-run real-time outcome.
type Verdict int

const (
	// VerdictRealTime means every frame decoded at or faster than real time.
	VerdictRealTime Verdict = iota
	// VerdictTooSlow means at least one frame decoded slower than real time.
	VerdictTooSlow
	// VerdictIndeterminate means a zero or missing divisor made one or more
	// ratios unavailable, so no pass/fail claim can be made.
	VerdictIndeterminate
	// VerdictNoData means the table had no rows.
	VerdictNoData
)

func (v Verdict) String() string {
	switch v {
	case VerdictRealTime:
		return "real-time"
	case VerdictTooSlow:
		return "too slow"
	case VerdictIndeterminate:
		return "indeterminate"
	default:
		return "no data"
	}
}

// MarshalJSON emits the verdict as its readable name for API consumers.
func (v Verdict) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(v.String())), nil
}

// Summary holds the aggregates of one speed-ratio series, expressed as
// percentages (ratio × 100). Indeterminate is set when the series was empty
// or contained a not-a-number ratio; the numeric fields are then NaN and
// must not be interpreted.
type Summary struct {
	Mean          float64
	Variance      float64
	Min           float64
	Max           float64
	Indeterminate bool
}

// MarshalJSON emits NaN aggregates as null; encoding/json has no NaN
// representation and would otherwise refuse the whole frame.
func (s Summary) MarshalJSON() ([]byte, error) {
	num := func(v float64) *float64 {
		if math.IsNaN(v) {
			return nil
		}
		return &v
	}
	return json.Marshal(struct {
		Mean          *float64 `json:"mean"`
		Variance      *float64 `json:"variance"`
		Min           *float64 `json:"min"`
		Max           *float64 `json:"max"`
		Indeterminate bool     `json:"indeterminate"`
	}{num(s.Mean), num(s.Variance), num(s.Min), num(s.Max), s.Indeterminate})
}

// Report is the full statistics result for one benchmark run.
type Report struct {
	Frames   int
	Decode   Summary
	Playback Summary
	Verdict  Verdict
}

// DecodeSpeeds returns sample time / decode time for every row. A zero
// divisor yields NaN for that row rather than failing the run.
func DecodeSpeeds(t *table.Table) []float64 {
	speeds := make([]float64, len(t.Rows))
	for i, r := range t.Rows {
		speeds[i] = ratio(r.SampleTime, r.DecodeTime)
	}
	return speeds
}

// PlaybackSpeeds returns sample time / playback time for every row after
// the warm-up window. The result has max(0, rows−WarmupFrames) entries.
func PlaybackSpeeds(t *table.Table) []float64 {
	if len(t.Rows) <= WarmupFrames {
		return nil
	}
	speeds := make([]float64, 0, len(t.Rows)-WarmupFrames)
	for _, r := range t.Rows[WarmupFrames:] {
		speeds = append(speeds, ratio(r.SampleTime, r.PlaybackTime))
	}
	return speeds
}

func ratio(num, div float64) float64 {
	if div == 0 {
		return math.NaN()
	}
	return num / div
}

// Summarize reduces a speed-ratio series to percentage aggregates. Variance
// is the sample variance (n−1 divisor). NaN ratios propagate into the
// aggregates and flag the summary indeterminate instead of crashing or
// being dropped.
func Summarize(speeds []float64) Summary {
	if len(speeds) == 0 {
		nan := math.NaN()
		return Summary{Mean: nan, Variance: nan, Min: nan, Max: nan, Indeterminate: true}
	}

	indeterminate := false
	sum := 0.0
	min := speeds[0]
	max := speeds[0]
	for _, v := range speeds {
		if math.IsNaN(v) {
			indeterminate = true
		}
		sum += v
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	mean := sum / float64(len(speeds))

	variance := math.NaN()
	if len(speeds) > 1 {
		ss := 0.0
		for _, v := range speeds {
			d := v - mean
			ss += d * d
		}
		variance = ss / float64(len(speeds)-1)
	}
	if indeterminate {
		nan := math.NaN()
		mean, variance, min, max = nan, nan, nan, nan
	}

	return Summary{
		Mean:          mean * 100,
		Variance:      variance * 100,
		Min:           min * 100,
		Max:           max * 100,
		Indeterminate: indeterminate,
	}
}

// DecodeVerdict derives the whole-run verdict from the decode series: a
// single sub-real-time frame flips the run to too-slow, and a single NaN
// makes the run indeterminate.
func DecodeVerdict(speeds []float64) Verdict {
	if len(speeds) == 0 {
		return VerdictNoData
	}
	verdict := VerdictRealTime
	for _, v := range speeds {
		if math.IsNaN(v) {
			return VerdictIndeterminate
		}
		if v < 1.0 {
			verdict = VerdictTooSlow
		}
	}
	return verdict
}

// Analyze produces the full report for one table: decode aggregates over
// every row, playback aggregates past the warm-up window, and the
// real-time verdict.
func Analyze(t *table.Table) *Report {
	decode := DecodeSpeeds(t)
	return &Report{
		Frames:   t.Len(),
		Decode:   Summarize(decode),
		Playback: Summarize(PlaybackSpeeds(t)),
		Verdict:  DecodeVerdict(decode),
	}
}

// AnalyzeDecode is the sweep-mode variant: decode statistics and verdict
// only, playback is not evaluated.
func AnalyzeDecode(t *table.Table) (Summary, Verdict) {
	decode := DecodeSpeeds(t)
	return Summarize(decode), DecodeVerdict(decode)
}
