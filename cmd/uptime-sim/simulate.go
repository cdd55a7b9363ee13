package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"uptime-sim/internal/admin"
	"uptime-sim/internal/config"
	"uptime-sim/internal/engine"
	"uptime-sim/internal/game"
	"uptime-sim/internal/logging"
	"uptime-sim/internal/oracle"
	"uptime-sim/internal/rng"
	"uptime-sim/internal/sim"
	"uptime-sim/internal/store"
)

var (
	simPrintOnly bool
	simColor     bool
	simNoTUI     bool
	simTick      time.Duration
	simLogFile   string
	simSeed      string
	simResume    string
	simAdminAddr string
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Run a live game session",
	Long:  "simulate runs the tick loop, emitting metrics, node and event rows and accepting commands from the TUI and admin UI.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(rootConfigPath, rootSchemaPath)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("tick") {
			cfg.Tick = simTick
		}
		if simSeed != "" {
			cfg.Game.Seed = simSeed
		}
		if cmd.Flags().Changed("admin") {
			cfg.Admin.Addr = simAdminAddr
		}
		useTUI := !simNoTUI && !simPrintOnly && term.IsTerminal(int(os.Stdout.Fd()))

		log, closeLog, err := sessionLogger(cfg.Log, useTUI)
		if err != nil {
			return err
		}
		defer closeLog()
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		ctx = logging.NewContext(ctx, log)

		env, err := cfg.Env()
		if err != nil {
			return err
		}
		kv, closeStore, err := newStore(cfg.Store)
		if err != nil {
			return err
		}
		defer closeStore()

		sessionID, st, err := openSession(ctx, cfg, env, kv)
		if err != nil {
			return err
		}

		writer, cleanup, err := newWriters(writerOptions{
			PrintOnly: simPrintOnly,
			Color:     simColor,
			TUI:       useTUI,
			LogFile:   simLogFile,
			Greptime:  cfg.Greptime,
		}, env.Catalog, log)
		if err != nil {
			return err
		}
		defer cleanup()

		arc, err := cfg.LoadScenario()
		if err != nil {
			return err
		}
		opts := sim.Options{
			Scenario:         arc,
			Store:            kv,
			SaveSlot:         cfg.Store.Slot,
			AutosaveInterval: cfg.Store.Autosave,
			OracleInterval:   cfg.Oracle.Interval,
		}
		if simResume != "" {
			opts.SaveSlot = simResume
		}
		if cfg.Oracle.Enabled {
			client := oracle.NewClient(cfg.Oracle.URL, cfg.Oracle.Model, cfg.Oracle.Timeout)
			opts.Oracle = oracle.NewSession(client, rng.New(st.Seed+"/oracle"))
			log.Info("incident collaborator enabled", "url", cfg.Oracle.URL, "model", cfg.Oracle.Model)
		}

		simulator := sim.NewSimulator(sessionID, st, env, writer, cfg.Tick, opts)

		if cfg.Admin.Addr != "" {
			srv := admin.NewServer(simulator)
			go func() {
				if err := srv.Start(ctx, cfg.Admin.Addr); err != nil {
					log.Error("admin server failed", "err", err)
					setAdminStatus(writer, false)
				}
			}()
			setAdminStatus(writer, true)
		}

		log.Info("session started", "session", sessionID, "seed", st.Seed, "tick", cfg.Tick)
		simulator.Run(ctx)
		if r := simulator.Report(); r != "" {
			log.Info("post-mortem", "summary", r)
		}
		log.Info("session stopped", "session", sessionID)
		return nil
	},
}

// openSession resumes a saved slot or starts a fresh game.
func openSession(ctx context.Context, cfg *config.Config, env *engine.Env, kv store.KV) (string, *game.State, error) {
	if simResume != "" {
		st, err := store.LoadGame(ctx, kv, simResume)
		if err != nil {
			return "", nil, fmt.Errorf("resume %s: %w", simResume, err)
		}
		return simResume, st, nil
	}
	opts := cfg.Game
	if opts.Seed == "" {
		opts.Seed = uuid.NewString()
	}
	opts.StartedAtMs = time.Now().UnixMilli()
	sessionID := os.Getenv("SESSION_ID")
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	return sessionID, game.NewGame(env.Catalog, opts), nil
}

// sessionLogger logs to the configured file, or STDERR. The TUI owns the
// terminal, so interactive sessions fall back to a log file.
func sessionLogger(cfg config.LogConfig, tui bool) (*slog.Logger, func(), error) {
	path := cfg.File
	if path == "" && tui {
		path = "uptime-sim.log"
	}
	var out io.Writer = os.Stderr
	closeFn := func() {}
	if path != "" {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, err
		}
		out = f
		closeFn = func() { _ = f.Close() }
	}
	return logging.NewTo(out, logging.ParseLevel(cfg.Level)), closeFn, nil
}

func setAdminStatus(w sim.MetricsWriter, active bool) {
	if aw, ok := w.(sim.AdminStatusWriter); ok {
		aw.SetAdminStatus(active)
	}
}

func init() {
	simulateCmd.Flags().BoolVar(&simPrintOnly, "print-only", false, "Print rows to STDOUT only, skipping GreptimeDB and the TUI")
	simulateCmd.Flags().BoolVar(&simColor, "color", false, "Print colorized rows instead of JSON when not using the TUI")
	simulateCmd.Flags().BoolVar(&simNoTUI, "no-tui", false, "Disable the terminal dashboard")
	simulateCmd.Flags().DurationVar(&simTick, "tick", time.Second, "Wall-clock tick interval (e.g. 500ms, 2s)")
	simulateCmd.Flags().StringVar(&simLogFile, "log-file", "", "Path to export metrics/node/event rows (JSONL)")
	simulateCmd.Flags().StringVar(&simSeed, "seed", "", "Override the session seed")
	simulateCmd.Flags().StringVar(&simResume, "resume", "", "Resume from a saved slot")
	simulateCmd.Flags().StringVar(&simAdminAddr, "admin", ":8080", "Admin UI listen address, empty to disable")
}
