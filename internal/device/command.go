package device

// Mode selects what the device should do with the decoded audio.
type Mode int

const (
	// ModeBenchmark decodes and plays while measuring per-frame timing.
	ModeBenchmark Mode = iota
	// ModePlay plays without emitting a timing table.
	ModePlay
)

func (m Mode) verb() string {
	if m == ModePlay {
		return "play"
	}
	return "benchmark"
}

// Bitrate is an encoding bitrate token accepted by the device firmware.
// The zero value means "not selected" and is omitted from the command line.
type Bitrate string

const (
	Bitrate8k     Bitrate = "8k"
	Bitrate12k    Bitrate = "12k"
	Bitrate16k    Bitrate = "16k"
	Bitrate24k    Bitrate = "24k"
	Bitrate32k    Bitrate = "32k"
	Bitrate48k    Bitrate = "48k"
	Bitrate64k    Bitrate = "64k"
	BitrateCustom Bitrate = "custom"
)

// Frequency is a sampling frequency token accepted by the device firmware.
// The zero value means "not selected" and is omitted from the command line.
type Frequency string

const (
	Freq8kHz  Frequency = "8khz"
	Freq12kHz Frequency = "12khz"
	Freq16kHz Frequency = "16khz"
	Freq24kHz Frequency = "24khz"
	Freq48kHz Frequency = "48khz"
)

var bitrates = map[Bitrate]bool{
	Bitrate8k: true, Bitrate12k: true, Bitrate16k: true, Bitrate24k: true,
	Bitrate32k: true, Bitrate48k: true, Bitrate64k: true, BitrateCustom: true,
}

var frequencies = map[Frequency]bool{
	Freq8kHz: true, Freq12kHz: true, Freq16kHz: true, Freq24kHz: true, Freq48kHz: true,
}

// ParseBitrate validates a bitrate token before any device I/O.
func ParseBitrate(s string) (Bitrate, error) {
	b := Bitrate(s)
	if !bitrates[b] {
		return "", &ArgumentError{Field: "bitrate", Value: s}
	}
	return b, nil
}

// ParseFrequency validates a frequency token before any device I/O.
func ParseFrequency(s string) (Frequency, error) {
	f := Frequency(s)
	if !frequencies[f] {
		return "", &ArgumentError{Field: "frequency", Value: s}
	}
	return f, nil
}

// Options describes one command to run on the device. Frequency and Bitrate
// are optional; their zero values are omitted from the command line.
type Options struct {
	Mode      Mode
	Silent    bool
	Frequency Frequency
	Bitrate   Bitrate
}

// BuildCommand translates options into the exact command line the device
// expects: verb, silent flag, frequency, bitrate, space-separated, CR-LF
// terminated. Pure; does no I/O.
func BuildCommand(opts Options) []byte {
	cmd := []byte(opts.Mode.verb())
	if opts.Silent {
		cmd = append(cmd, " -s"...)
	}
	if opts.Frequency != "" {
		cmd = append(cmd, ' ')
		cmd = append(cmd, opts.Frequency...)
	}
	if opts.Bitrate != "" {
		cmd = append(cmd, ' ')
		cmd = append(cmd, opts.Bitrate...)
	}
	return append(cmd, '\r', '\n')
}
