package main

import (
	"log/slog"

	"uptime-sim/internal/catalog"
	"uptime-sim/internal/config"
	"uptime-sim/internal/sim"
)

// writerOptions selects the outputs of a session.
type writerOptions struct {
	PrintOnly bool
	Color     bool
	TUI       bool
	LogFile   string
	Greptime  config.GreptimeConfig
}

// newWriters sets up the console writer plus optional GreptimeDB and JSONL file
// writers. It returns the writer and a cleanup function to close any resources.
func newWriters(opts writerOptions, cat *catalog.Catalog, log *slog.Logger) (sim.MetricsWriter, func(), error) {
	var closers []func() error
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			_ = closers[i]()
		}
	}

	var ws []sim.MetricsWriter
	switch {
	case opts.TUI:
		tw := sim.NewTUIWriter(cat)
		closers = append(closers, tw.Close)
		ws = append(ws, tw)
	case opts.Color:
		ws = append(ws, sim.NewColorStdoutWriter())
	default:
		ws = append(ws, sim.NewJSONStdoutWriter())
	}

	if !opts.PrintOnly && opts.Greptime.Endpoint != "" {
		gw, err := sim.NewGreptimeDBWriter(opts.Greptime.Endpoint, opts.Greptime.Database, log)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		ws = append(ws, gw)
	}

	if opts.LogFile != "" {
		fw, err := sim.NewFileWriter(opts.LogFile, opts.LogFile+".nodes", opts.LogFile+".events")
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		closers = append(closers, fw.Close)
		ws = append(ws, fw)
	}

	if len(ws) == 1 {
		return ws[0], cleanup, nil
	}
	return sim.NewMultiWriter(ws...), cleanup, nil
}
