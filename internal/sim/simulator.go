// Simulator orchestrating game ticks, commands and telemetry
package sim

import (
	"context"
	"errors"
	"sync"
	"time"

	"uptime-sim/internal/catalog"
	"uptime-sim/internal/engine"
	"uptime-sim/internal/game"
	"uptime-sim/internal/logging"
	"uptime-sim/internal/oracle"
	"uptime-sim/internal/reducer"
	"uptime-sim/internal/rng"
	"uptime-sim/internal/scenario"
	"uptime-sim/internal/store"
	"uptime-sim/internal/telemetry"
)

// ErrQueueFull is returned when the command queue cannot take more commands.
var ErrQueueFull = errors.New("command queue full")

// Options configure the optional parts of a Simulator.
type Options struct {
	// Oracle supplies generated incidents. Nil disables them.
	Oracle *oracle.Session
	// OracleInterval is the simulated time between incident requests.
	OracleInterval time.Duration
	// Store receives autosaves. Nil disables them.
	Store            store.KV
	SaveSlot         string
	AutosaveInterval time.Duration
	CommandBuffer    int
	// Scenario is an optional story arc announced through the event stream.
	Scenario *scenario.Scenario
}

// Simulator owns the live session state and threads each tick's output into
// the next one.
type Simulator struct {
	sessionID    string
	env          *engine.Env
	src          *rng.Rand
	state        *game.State
	written      *game.State
	gen          *telemetry.Generator
	writer       MetricsWriter
	tickInterval time.Duration
	commands     chan reducer.Command

	oracle      *oracle.Session
	oracleEvery float64
	lastOracle  float64

	kv        store.KV
	saveSlot  string
	saveEvery float64
	lastSave  float64

	arc  *scenario.Tracker
	task *oracle.Assignment

	lastSeq  int
	latest   telemetry.MetricsRow
	finished bool
	report   string
	mu       sync.Mutex
}

// NewSimulator wraps st. The random source continues the session seed from
// the draw position recorded in st.
func NewSimulator(sessionID string, st *game.State, env *engine.Env, writer MetricsWriter, tickInterval time.Duration, opts Options) *Simulator {
	if tickInterval <= 0 {
		tickInterval = time.Second
	}
	buf := opts.CommandBuffer
	if buf <= 0 {
		buf = 64
	}
	slot := opts.SaveSlot
	if slot == "" {
		slot = sessionID
	}
	s := &Simulator{
		sessionID:    sessionID,
		env:          env,
		src:          rng.Resume(st.Seed, st.Draws),
		state:        st,
		gen:          telemetry.NewGenerator(sessionID),
		writer:       writer,
		tickInterval: tickInterval,
		commands:     make(chan reducer.Command, buf),
		oracle:       opts.Oracle,
		oracleEvery:  opts.OracleInterval.Seconds(),
		lastOracle:   st.Elapsed,
		kv:           opts.Store,
		saveSlot:     slot,
		saveEvery:    opts.AutosaveInterval.Seconds(),
		lastSave:     st.Elapsed,
		lastSeq:      0,
		finished:     st.GameOver,
	}
	if s.oracleEvery <= 0 {
		s.oracleEvery = 60
	}
	if opts.Scenario != nil && len(opts.Scenario.Phases) > 0 {
		s.arc = scenario.NewTracker(opts.Scenario)
	}
	if cs, ok := writer.(CommandSource); ok {
		cs.SetCommandSink(s.Submit)
	}
	return s
}

// SessionID returns the id rows are tagged with.
func (s *Simulator) SessionID() string { return s.sessionID }

// Catalog returns the definitions the session runs on.
func (s *Simulator) Catalog() *catalog.Catalog { return s.env.Catalog }

// State returns a deep copy of the current state.
func (s *Simulator) State() *game.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// Latest returns the most recent metrics row.
func (s *Simulator) Latest() telemetry.MetricsRow {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.latest
}

// Phase returns the scenario name and current phase, or empty strings
// without a scenario.
func (s *Simulator) Phase() (string, scenario.Phase) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.arc == nil {
		return "", scenario.Phase{}
	}
	return s.arc.Scenario().Name, s.arc.Phase()
}

// Report returns the end-of-game report once it is available.
func (s *Simulator) Report() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.report
}

// Submit queues a command for the next tick without blocking.
func (s *Simulator) Submit(cmd reducer.Command) error {
	select {
	case s.commands <- cmd:
		return nil
	default:
		return ErrQueueFull
	}
}

// Apply reduces cmd against the current state right away. It reports whether
// the command was accepted.
func (s *Simulator) Apply(ctx context.Context, cmd reducer.Command) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.apply(ctx, cmd)
}

func (s *Simulator) apply(ctx context.Context, cmd reducer.Command) bool {
	prev := s.state
	next := reducer.Reduce(s.state, cmd, s.src, s.env)
	if next == s.state {
		logging.FromContext(ctx).Debug("command rejected", "type", cmd.Type())
		return false
	}
	if next.EventSeq < s.lastSeq {
		s.lastSeq = 0
	}
	s.state = next
	s.requestTask(ctx, prev, cmd)
	return true
}

// Save writes the current state to the store.
func (s *Simulator) Save(ctx context.Context) error {
	if s.kv == nil {
		return errors.New("no store configured")
	}
	s.mu.Lock()
	st := s.checkpoint()
	s.mu.Unlock()
	return store.SaveGame(ctx, s.kv, s.saveSlot, st)
}

// checkpoint returns a copy of the state stamped with the random source
// position. Callers hold mu.
func (s *Simulator) checkpoint() *game.State {
	st := s.state.Clone()
	st.Draws = s.src.Draws()
	return st
}
