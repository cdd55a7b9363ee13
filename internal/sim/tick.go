package sim

import (
	"context"
	"fmt"
	"time"

	"uptime-sim/internal/engine"
	"uptime-sim/internal/game"
	"uptime-sim/internal/logging"
	"uptime-sim/internal/reducer"
	"uptime-sim/internal/store"
	"uptime-sim/internal/telemetry"
)

// Run starts the simulation loop and stops when the context is done.
func (s *Simulator) Run(ctx context.Context) {
	log := logging.FromContext(ctx)
	log.Info("starting simulator", "session", s.sessionID, "tick_interval", s.tickInterval)
	if s.oracle != nil {
		s.oracle.Start(ctx, s.State())
	}
	ticker := time.NewTicker(s.tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.tick(ctx)
		case <-ctx.Done():
			if s.kv != nil {
				if err := s.Save(context.WithoutCancel(ctx)); err != nil {
					log.Error("final save failed", "err", err)
				}
			}
			log.Info("stopping simulator")
			return
		}
	}
}

// tick applies pending input, advances the state and writes the result.
func (s *Simulator) tick(ctx context.Context) {
	log := logging.FromContext(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.drainCommands(ctx)
	s.drainArrivals(ctx)
	s.drainTasks(ctx)

	dt := s.tickInterval.Seconds() * s.state.Speed
	s.state = engine.Tick(s.state, s.src, dt, s.env)

	s.requestIncident(ctx)
	if s.state != s.written {
		s.write(ctx)
		s.written = s.state
	}
	s.advanceScenario(ctx)
	s.autosave(ctx)

	if s.state.GameOver && !s.finished {
		s.finished = true
		log.Warn("game over", "reason", s.state.GameOverReason, "elapsed", s.state.Elapsed)
		if s.kv != nil {
			if err := store.SaveGame(ctx, s.kv, s.saveSlot, s.checkpoint()); err != nil {
				log.Error("save failed", "err", err)
			}
		}
		if s.oracle != nil {
			go s.fetchReport(ctx, s.state)
		}
	}
}

func (s *Simulator) drainCommands(ctx context.Context) {
	for {
		select {
		case cmd := <-s.commands:
			s.apply(ctx, cmd)
		default:
			return
		}
	}
}

func (s *Simulator) drainArrivals(ctx context.Context) {
	if s.oracle == nil {
		return
	}
	for {
		select {
		case inc := <-s.oracle.Arrivals():
			if !s.apply(ctx, reducer.SpawnExternalIncident{Incident: *inc}) {
				logging.FromContext(ctx).Info("generated incident discarded", "name", inc.Name, "target", inc.Target)
			}
		default:
			return
		}
	}
}

func (s *Simulator) requestIncident(ctx context.Context) {
	if s.oracle == nil || s.state.Paused || s.state.GameOver {
		return
	}
	if s.state.Elapsed-s.lastOracle < s.oracleEvery {
		return
	}
	if s.oracle.RequestIncident(ctx, s.state) {
		s.lastOracle = s.state.Elapsed
	}
}

func (s *Simulator) write(ctx context.Context) {
	log := logging.FromContext(ctx)
	st := s.state

	s.latest = s.gen.Metrics(st)
	if err := s.writer.Write(s.latest); err != nil {
		log.Error("write failed", "err", err)
	}
	if nw, ok := s.writer.(NodeWriter); ok {
		if err := nw.WriteNodes(s.gen.Nodes(st)); err != nil {
			log.Error("node write failed", "err", err)
		}
	}
	if ew, ok := s.writer.(EventWriter); ok {
		if rows := s.gen.Events(st, s.lastSeq); len(rows) > 0 {
			if err := ew.WriteEvents(rows); err != nil {
				log.Error("event write failed", "err", err)
			}
		}
	}
	s.lastSeq = st.EventSeq
	if sw, ok := s.writer.(StateWriter); ok {
		if err := sw.WriteState(st); err != nil {
			log.Error("state write failed", "err", err)
		}
	}
}

func (s *Simulator) autosave(ctx context.Context) {
	if s.kv == nil || s.saveEvery <= 0 || s.state.Elapsed-s.lastSave < s.saveEvery {
		return
	}
	if err := store.SaveGame(ctx, s.kv, s.saveSlot, s.checkpoint()); err != nil {
		logging.FromContext(ctx).Error("autosave failed", "err", err)
		return
	}
	s.lastSave = s.state.Elapsed
}

func (s *Simulator) fetchReport(ctx context.Context, st *game.State) {
	r := s.oracle.Report(ctx, st)
	if r == "" {
		return
	}
	s.mu.Lock()
	s.report = r
	s.mu.Unlock()
	logging.FromContext(ctx).Info("postmortem ready", "chars", len(r))
}

// advanceScenario announces phase changes as scenario events. They are not
// part of the game state, so replays and saves are unaffected.
func (s *Simulator) advanceScenario(ctx context.Context) {
	if s.arc == nil {
		return
	}
	changes := s.arc.Advance(s.state)
	if len(changes) == 0 {
		return
	}
	log := logging.FromContext(ctx)
	rows := make([]telemetry.EventRow, 0, len(changes))
	for _, c := range changes {
		log.Info("scenario phase", "from", c.From, "to", c.To.Name, "cause", c.Cause.Type)
		msg := fmt.Sprintf("%s: %s", c.To.Name, c.To.Description)
		if c.To.Goal != "" {
			msg += " Goal: " + c.To.Goal
		}
		rows = append(rows, telemetry.EventRow{
			SessionID: s.sessionID,
			Kind:      EventKindScenario,
			Seq:       s.state.EventSeq,
			Message:   msg,
			Timestamp: telemetry.Timestamp(s.state),
		})
	}
	s.writeEvents(ctx, rows)
}

// writeEvents sends rows the game state does not carry.
func (s *Simulator) writeEvents(ctx context.Context, rows []telemetry.EventRow) {
	if ew, ok := s.writer.(EventWriter); ok {
		if err := ew.WriteEvents(rows); err != nil {
			logging.FromContext(ctx).Error("event write failed", "err", err)
		}
	}
}
