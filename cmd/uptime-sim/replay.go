package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"uptime-sim/internal/config"
	"uptime-sim/internal/logging"
	"uptime-sim/internal/sim"
)

var (
	replayInput     string
	replaySpeed     float64
	replayPrintOnly bool
	replayColor     bool
	replaySession   string
)

var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Replay a metrics log file",
	Long:  "replay feeds metrics rows from a JSONL log back into GreptimeDB or STDOUT. Row timestamps follow the simulated clock.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if replayInput == "" {
			return fmt.Errorf("input file required")
		}
		cfg := config.Default()
		if _, err := os.Stat(rootConfigPath); err == nil {
			if cfg, err = config.Load(rootConfigPath, rootSchemaPath); err != nil {
				return err
			}
		} else if err := cfg.ApplyEnv(); err != nil {
			return err
		}
		log := logging.NewTo(os.Stderr, logging.ParseLevel(cfg.Log.Level))
		writer, cleanup, err := newWriters(writerOptions{
			PrintOnly: replayPrintOnly,
			Color:     replayColor,
			Greptime:  cfg.Greptime,
		}, nil, log)
		if err != nil {
			return err
		}
		defer cleanup()
		n, err := sim.ReplayLogFile(replayInput, writer, sim.ReplayOptions{Speed: replaySpeed, Session: replaySession})
		if err != nil {
			return err
		}
		log.Info("replay finished", "rows", n, "input", replayInput)
		return nil
	},
}

func init() {
	replayCmd.Flags().StringVar(&replayInput, "input", "", "Path to metrics log file")
	replayCmd.Flags().Float64Var(&replaySpeed, "speed", 60, "Playback speed multiplier over simulated time")
	replayCmd.Flags().BoolVar(&replayPrintOnly, "print-only", false, "Print rows to STDOUT instead of writing to DB")
	replayCmd.Flags().StringVar(&replaySession, "session", "", "Only replay rows of this session id")
	replayCmd.Flags().BoolVar(&replayColor, "color", false, "Print colorized rows instead of JSON")
	replayCmd.MarkFlagRequired("input")
}
