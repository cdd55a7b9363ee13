package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"uptime-sim/internal/catalog"
	"uptime-sim/internal/game"
	"uptime-sim/internal/logging"
	"uptime-sim/internal/rng"
)

// DefaultArrivalBuffer is the number of undelivered incidents a session keeps.
const DefaultArrivalBuffer = 4

const maxHistory = 20

// Session is one game's conversation with the model. It is owned by the caller
// and never reads game state on its own.
type Session struct {
	gen Generator
	src rng.Source

	mu           sync.Mutex
	inFlight     bool
	taskInFlight bool
	history      []string
	arrivals     chan *game.GeneratedIncident
	tasks        chan Assignment
}

// Assignment pairs a generated task with the request that produced it.
type Assignment struct {
	Request TaskRequest `json:"request"`
	Task    *Task       `json:"task"`
}

// NewSession returns a session backed by gen. src drives the severity ramp.
func NewSession(gen Generator, src rng.Source) *Session {
	return &Session{
		gen:      gen,
		src:      src,
		arrivals: make(chan *game.GeneratedIncident, DefaultArrivalBuffer),
		tasks:    make(chan Assignment, 1),
	}
}

// Start resets the session for a new game.
func (s *Session) Start(ctx context.Context, st *game.State) {
	s.mu.Lock()
	s.history = nil
	s.mu.Unlock()
	logging.FromContext(ctx).Info("oracle session started", "seed", st.Seed, "nodes", len(st.Graph.Nodes))
}

// Arrivals delivers incidents produced by RequestIncident.
func (s *Session) Arrivals() <-chan *game.GeneratedIncident { return s.arrivals }

// InFlight reports whether an incident request is outstanding.
func (s *Session) InFlight() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inFlight
}

// NewIncidentRequest builds the request for st, drawing the severity tier.
func (s *Session) NewIncidentRequest(st *game.State) IncidentRequest {
	s.mu.Lock()
	sev := PickSeverity(st.Elapsed, s.src)
	s.mu.Unlock()
	recent := append([]string{}, st.RecentTargets...)
	return IncidentRequest{Snapshot: BuildSnapshot(st), Severity: sev, RecentTargets: recent}
}

// RequestIncident asks for an incident without blocking. It returns false when
// a request is already in flight. The result, if any, shows up on Arrivals and
// is dropped when nobody has drained the buffer.
func (s *Session) RequestIncident(ctx context.Context, st *game.State) bool {
	s.mu.Lock()
	if s.inFlight {
		s.mu.Unlock()
		return false
	}
	s.inFlight = true
	s.mu.Unlock()

	req := s.NewIncidentRequest(st)
	go func() {
		defer func() {
			s.mu.Lock()
			s.inFlight = false
			s.mu.Unlock()
		}()
		inc := s.GenerateIncident(ctx, req)
		if inc == nil {
			return
		}
		select {
		case s.arrivals <- inc:
		default:
			logging.FromContext(ctx).Warn("dropping generated incident, arrivals full", "name", inc.Name)
		}
	}()
	return true
}

// GenerateIncident asks for one incident and waits for it. Any failure is
// logged and yields nil.
func (s *Session) GenerateIncident(ctx context.Context, req IncidentRequest) *game.GeneratedIncident {
	log := logging.FromContext(ctx)
	out, err := s.gen.Generate(ctx, incidentPrompt(req))
	if err != nil {
		log.Warn("incident generation failed", "error", err)
		return nil
	}
	inc, err := ParseIncident(out)
	if err != nil {
		log.Warn("discarding generated incident", "error", err)
		return nil
	}
	if !snapshotHas(req.Snapshot, inc.Target) {
		log.Warn("discarding generated incident", "error", fmt.Errorf("%w: unknown target %q", ErrMalformed, inc.Target))
		return nil
	}
	if inc.Severity != req.Severity {
		inc.Severity = req.Severity
		inc.AutoResolve = autoResolveFor(req.Severity)
		inc.OutageAfter = 0
		if req.Severity == catalog.SeverityCrit {
			inc.OutageAfter = critOutageAfter
		}
	}
	s.remember(fmt.Sprintf("%s on %s (%s)", inc.Name, inc.Target, inc.Severity))
	log.Info("incident generated", "name", inc.Name, "target", inc.Target, "severity", inc.Severity)
	return inc
}

// Tasks delivers assignments produced by RequestTask.
func (s *Session) Tasks() <-chan Assignment { return s.tasks }

// RequestTask asks for a task without blocking. It returns false when a task
// request is already in flight. A task nobody collects is dropped.
func (s *Session) RequestTask(ctx context.Context, req TaskRequest) bool {
	s.mu.Lock()
	if s.taskInFlight {
		s.mu.Unlock()
		return false
	}
	s.taskInFlight = true
	s.mu.Unlock()

	go func() {
		defer func() {
			s.mu.Lock()
			s.taskInFlight = false
			s.mu.Unlock()
		}()
		t := s.GenerateTask(ctx, req)
		if t == nil {
			return
		}
		select {
		case s.tasks <- Assignment{Request: req, Task: t}:
		default:
			logging.FromContext(ctx).Warn("dropping generated task, previous one not collected", "title", t.Title)
		}
	}()
	return true
}

// GenerateTask asks for a hands-on task. Invalid tasks are discarded.
func (s *Session) GenerateTask(ctx context.Context, req TaskRequest) *Task {
	log := logging.FromContext(ctx)
	out, err := s.gen.Generate(ctx, taskPrompt(req))
	if err != nil {
		log.Warn("task generation failed", "error", err)
		return nil
	}
	t, err := ParseTask(out)
	if err != nil {
		log.Warn("discarding generated task", "error", err)
		return nil
	}
	return t
}

type reportResponse struct {
	Summary string `json:"summary"`
}

// Report asks for an end-of-game postmortem. It returns "" on failure.
func (s *Session) Report(ctx context.Context, st *game.State) string {
	s.mu.Lock()
	history := append([]string{}, s.history...)
	s.mu.Unlock()

	var b strings.Builder
	b.WriteString("Write a short blameless postmortem for this infrastructure operations session.\n")
	if st.GameOver {
		fmt.Fprintf(&b, "The session ended: %s\n", st.GameOverReason)
	}
	snap, _ := json.Marshal(BuildSnapshot(st))
	b.WriteString("Final state:\n")
	b.Write(snap)
	fmt.Fprintf(&b, "\nIncidents resolved: %d. Best uptime streak: %.0f seconds.\n", st.ResolvedIncidents, st.BestStreak)
	if len(history) > 0 {
		b.WriteString("Generated incidents:\n- ")
		b.WriteString(strings.Join(history, "\n- "))
		b.WriteString("\n")
	}
	b.WriteString(`Reply with JSON only: {"summary":"..."}`)

	log := logging.FromContext(ctx)
	out, err := s.gen.Generate(ctx, b.String())
	if err != nil {
		log.Warn("report generation failed", "error", err)
		return ""
	}
	var r reportResponse
	if err := json.Unmarshal(out, &r); err != nil || strings.TrimSpace(r.Summary) == "" {
		log.Warn("discarding report", "error", ErrMalformed)
		return ""
	}
	return r.Summary
}

func (s *Session) remember(entry string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = append(s.history, entry)
	if len(s.history) > maxHistory {
		s.history = s.history[len(s.history)-maxHistory:]
	}
}

func snapshotHas(snap Snapshot, id string) bool {
	for _, n := range snap.Nodes {
		if n.ID == id {
			return true
		}
	}
	return false
}
