package main

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mkarvonen/opusbench/internal/config"
	"github.com/mkarvonen/opusbench/internal/device"
	"github.com/mkarvonen/opusbench/internal/report"
	"github.com/mkarvonen/opusbench/internal/server"
	"github.com/mkarvonen/opusbench/internal/stats"
	"github.com/mkarvonen/opusbench/internal/sweep"
	"github.com/mkarvonen/opusbench/internal/table"
)

func main() {
	configPath := flag.String("config", "/etc/opusbench/config.yaml", "Path to config file")
	portFlag := flag.String("port", "", "Serial port device (overrides config and positional arg)")
	baud := flag.Int("baud", 0, "Baud rate for the serial port")
	mode := flag.String("mode", "benchmark", "Command to run: benchmark or play")
	silent := flag.Bool("silent", false, "Benchmark without audible playback")
	freq := flag.String("freq", "", "Sampling frequency token (8khz|12khz|16khz|24khz|48khz)")
	bitrate := flag.String("bitrate", "", "Bitrate token (8k|12k|16k|24k|32k|48k|64k|custom)")
	measure := flag.Bool("measure", false, "Sweep all bitrates to find the fastest real-time one")
	skip := flag.Bool("skip", false, "Discard one initial table before the one of interest")
	printTable := flag.Bool("print-table", false, "Dump the parsed frame table")
	saveTable := flag.String("save-table", "", "Write the parsed table to this CSV file")
	listen := flag.String("listen", "", "Serve live results over WebSocket on this address")
	flag.Parse()

	log.SetFlags(log.Ldate | log.Ltime)

	cfg := config.Load(*configPath)
	if flag.NArg() > 0 {
		cfg.Device.Port = flag.Arg(0)
	}
	if *portFlag != "" {
		cfg.Device.Port = *portFlag
	}
	if *baud > 0 {
		cfg.Device.BaudRate = *baud
	}
	if *listen != "" {
		cfg.Server.ListenAddr = *listen
	}

	opts, err := buildOptions(*mode, *silent, *freq, *bitrate, *measure)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	timeout := time.Duration(cfg.Device.ReadTimeoutMs) * time.Millisecond
	session, err := device.Open(cfg.Device.Port, cfg.Device.BaudRate, timeout)
	if err != nil {
		log.Fatalf("[main] %v", err)
	}
	defer session.Close()

	// A user interrupt closes the port, which is the only way to unblock a
	// pending serial read.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Printf("[main] received %v, shutting down", sig)
		cancel()
		session.Close()
	}()

	var srv *server.Server
	if cfg.Server.ListenAddr != "" {
		srv = server.New(cfg.Server.ListenAddr)
		go func() {
			if err := srv.Run(ctx); err != nil {
				log.Printf("[server] exited: %v", err)
			}
		}()
	}

	if *measure {
		runSweep(session, srv, opts)
		return
	}
	runOnce(session, srv, opts, *skip, *printTable, *saveTable)
}

// buildOptions validates tokens and mutually exclusive flags before any
// device I/O.
func buildOptions(mode string, silent bool, freq, bitrate string, measure bool) (device.Options, error) {
	opts := device.Options{Silent: silent}

	switch mode {
	case "benchmark":
		opts.Mode = device.ModeBenchmark
	case "play":
		opts.Mode = device.ModePlay
	default:
		return opts, fmt.Errorf("invalid mode %q: want benchmark or play", mode)
	}

	// The firmware only accepts -s after benchmark; play -s would bounce
	// off the device as an invalid command.
	if opts.Mode == device.ModePlay && silent {
		return opts, fmt.Errorf("-silent applies to benchmark mode only")
	}

	if freq != "" {
		f, err := device.ParseFrequency(freq)
		if err != nil {
			return opts, err
		}
		opts.Frequency = f
	}

	if measure {
		if bitrate != "" {
			return opts, fmt.Errorf("-measure sweeps all bitrates and cannot be combined with -bitrate")
		}
		if opts.Mode == device.ModePlay {
			return opts, fmt.Errorf("-measure requires benchmark mode")
		}
		return opts, nil
	}

	if bitrate != "" {
		b, err := device.ParseBitrate(bitrate)
		if err != nil {
			return opts, err
		}
		opts.Bitrate = b
	}
	return opts, nil
}

func runSweep(session *device.Session, srv *server.Server, opts device.Options) {
	runner := sweep.New(session, opts.Frequency, opts.Silent)
	if srv != nil {
		runner.Observer = func(res sweep.BitrateResult) {
			srv.Broadcast("result", res)
		}
	}

	results, err := runner.Run()
	if len(results) > 0 {
		report.PrintSweep(os.Stdout, results)
		if srv != nil {
			srv.Broadcast("summary", results)
		}
	}
	if err != nil {
		log.Fatalf("[main] sweep aborted: %v", err)
	}
}

func runOnce(session *device.Session, srv *server.Server, opts device.Options, skip, printTable bool, saveTable string) {
	cmd := device.BuildCommand(opts)
	out, err := session.Execute(cmd)
	if err != nil {
		var unsupported *device.UnsupportedError
		if errors.As(err, &unsupported) {
			fmt.Fprintln(os.Stderr, unsupported.Reply)
			os.Exit(1)
		}
		log.Fatalf("[main] %v", err)
	}

	if opts.Mode == device.ModePlay {
		log.Printf("[main] playback finished")
		return
	}

	t, err := extractTable(out, skip)
	if err != nil {
		log.Fatalf("[main] %v", err)
	}

	if printTable {
		report.PrintTable(os.Stdout, t)
	}
	if saveTable != "" {
		if err := writeTable(saveTable, t); err != nil {
			log.Fatalf("[main] save table: %v", err)
		}
		log.Printf("[main] table saved to %s", saveTable)
	}

	result := stats.Analyze(t)
	report.Print(os.Stdout, result)
	if srv != nil {
		srv.Broadcast("report", result)
	}
}

// extractTable parses the benchmark output. With skip set the first table
// is discarded and the next one is returned, mirroring runs where the
// device emits an initial non-representative table.
func extractTable(out []byte, skip bool) (*table.Table, error) {
	if !skip {
		return table.Parse(out)
	}
	r := bufio.NewReader(bytes.NewReader(out))
	if _, err := table.Scan(r); err != nil {
		return nil, fmt.Errorf("skip initial table: %w", err)
	}
	return table.Scan(r)
}

func writeTable(path string, t *table.Table) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return t.WriteCSV(f)
}
