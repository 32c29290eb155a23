// Package sweep runs the benchmark across every supported bitrate to find
// the fastest one that still decodes in real time.
package sweep

import (
	"errors"
	"fmt"
	"log"
	"strconv"

	"github.com/mkarvonen/opusbench/internal/device"
	"github.com/mkarvonen/opusbench/internal/stats"
	"github.com/mkarvonen/opusbench/internal/table"
)

// Status classifies the outcome of one sweep iteration.
type Status int

const (
	// StatusOK means the device produced a parseable benchmark table.
	StatusOK Status = iota
	// StatusUnsupported means the device declined the bitrate. The sweep
	// records it and moves on.
	StatusUnsupported
)

func (s Status) String() string {
	if s == StatusUnsupported {
		return "unsupported"
	}
	return "ok"
}

// MarshalJSON emits the status as its readable name for API consumers.
func (s Status) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(s.String())), nil
}

// BitrateResult is one sweep iteration's outcome. Results are emitted in
// sweep order and are immutable once produced.
type BitrateResult struct {
	Bitrate device.Bitrate `json:"bitrate"`
	Status  Status         `json:"status"`
	Verdict stats.Verdict  `json:"verdict"`
	Decode  stats.Summary  `json:"decode"`
}

// sweepBitrates is the fixed iteration order. The custom bitrate is
// excluded: it has no firmware-side preset to benchmark against.
var sweepBitrates = []device.Bitrate{
	device.Bitrate8k,
	device.Bitrate12k,
	device.Bitrate16k,
	device.Bitrate24k,
	device.Bitrate32k,
	device.Bitrate48k,
	device.Bitrate64k,
}

// Bitrates returns the fixed sweep order.
func Bitrates() []device.Bitrate {
	return append([]device.Bitrate(nil), sweepBitrates...)
}

// Executor runs one command on the device. *device.Session implements it;
// tests substitute a scripted fake.
type Executor interface {
	Execute(cmd []byte) ([]byte, error)
}

// Runner sweeps the bitrate set over one session.
type Runner struct {
	session   Executor
	frequency device.Frequency
	silent    bool

	// Observer, when set, is called with each result as it is produced.
	Observer func(BitrateResult)
}

// New creates a sweep runner. Frequency and silent apply to every
// iteration's benchmark command.
func New(session Executor, frequency device.Frequency, silent bool) *Runner {
	return &Runner{session: session, frequency: frequency, silent: silent}
}

// Run benchmarks every bitrate in the fixed order. A bitrate the device
// declines is recorded as unsupported and the sweep continues. Timeout and
// echo-mismatch failures abort the sweep because the device state is
// undefined afterwards; the results collected so far are returned with the
// error. Playback speed is not evaluated in sweep mode.
func (r *Runner) Run() ([]BitrateResult, error) {
	results := make([]BitrateResult, 0, len(sweepBitrates))

	for _, bitrate := range sweepBitrates {
		cmd := device.BuildCommand(device.Options{
			Mode:      device.ModeBenchmark,
			Silent:    r.silent,
			Frequency: r.frequency,
			Bitrate:   bitrate,
		})

		out, err := r.session.Execute(cmd)
		if err != nil {
			var unsupported *device.UnsupportedError
			if errors.As(err, &unsupported) {
				log.Printf("[sweep] %s: unsupported by device", bitrate)
				res := BitrateResult{Bitrate: bitrate, Status: StatusUnsupported, Verdict: stats.VerdictNoData}
				results = append(results, res)
				r.observe(res)
				continue
			}
			return results, fmt.Errorf("benchmark %s: %w", bitrate, err)
		}

		t, err := table.Parse(out)
		if err != nil {
			return results, fmt.Errorf("benchmark %s: %w", bitrate, err)
		}

		decode, verdict := stats.AnalyzeDecode(t)
		res := BitrateResult{Bitrate: bitrate, Status: StatusOK, Verdict: verdict, Decode: decode}
		results = append(results, res)
		r.observe(res)
		log.Printf("[sweep] %s: %s (%d frames)", bitrate, verdict, t.Len())
	}

	return results, nil
}

func (r *Runner) observe(res BitrateResult) {
	if r.Observer != nil {
		r.Observer(res)
	}
}

// FastestRealTime returns the highest bitrate that decoded in real time,
// relying on the sweep order running slowest to fastest. The second return
// is false when no bitrate managed real time.
func FastestRealTime(results []BitrateResult) (device.Bitrate, bool) {
	var best device.Bitrate
	found := false
	for _, res := range results {
		if res.Status == StatusOK && res.Verdict == stats.VerdictRealTime {
			best = res.Bitrate
			found = true
		}
	}
	return best, found
}
