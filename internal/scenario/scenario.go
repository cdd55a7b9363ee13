// Package scenario tracks story arcs: ordered phases that advance when session
// metrics cross trigger thresholds.
package scenario

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"uptime-sim/internal/game"
)

// Trigger event types, each read from the session state.
const (
	EventElapsed      = "elapsed"
	EventDay          = "day"
	EventUsers        = "users"
	EventCash         = "cash"
	EventReputation   = "reputation"
	EventUptimeStreak = "uptime_streak"
	EventResolved     = "incidents_resolved"
)

// Scenario defines a story arc with ordered phases and an overall description.
type Scenario struct {
	Name        string  `yaml:"name,omitempty"`
	Description string  `yaml:"description,omitempty"`
	Phases      []Phase `yaml:"phases"`
}

// Phase describes a stage of the arc with the goal shown to the player and the
// triggers that move on from it.
type Phase struct {
	Name        string    `yaml:"name"`
	Description string    `yaml:"description,omitempty"`
	Goal        string    `yaml:"goal,omitempty"`
	Triggers    []Trigger `yaml:"triggers,omitempty"`
}

// Trigger moves the scenario to another phase once an event reaches Value.
type Trigger struct {
	Event string  `yaml:"event"`
	Value float64 `yaml:"value"`
	Next  string  `yaml:"next"`
}

// Event is one observed metric that may advance the scenario.
type Event struct {
	Type  string
	Value float64
}

// Load reads a YAML scenario definition from disk.
func Load(path string) (*Scenario, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}
	var s Scenario
	if err := yaml.Unmarshal(b, &s); err != nil {
		return nil, fmt.Errorf("parse scenario: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Validate checks that the arc has phases and every trigger points at one.
func (s *Scenario) Validate() error {
	if len(s.Phases) == 0 {
		return fmt.Errorf("scenario %q: no phases", s.Name)
	}
	for _, p := range s.Phases {
		for _, tr := range p.Triggers {
			if _, ok := s.Phase(tr.Next); !ok {
				return fmt.Errorf("scenario %q: phase %s triggers unknown %q", s.Name, p.Name, tr.Next)
			}
		}
	}
	return nil
}

// Phase looks up a phase by name.
func (s *Scenario) Phase(name string) (Phase, bool) {
	for _, p := range s.Phases {
		if p.Name == name {
			return p, true
		}
	}
	return Phase{}, false
}

// NextPhase returns the name of the next phase given the current phase and event.
// If no trigger matches, ok will be false.
func (s *Scenario) NextPhase(current string, ev Event) (next string, ok bool) {
	p, found := s.Phase(current)
	if !found {
		return "", false
	}
	for _, tr := range p.Triggers {
		if tr.Event == ev.Type && ev.Value >= tr.Value {
			return tr.Next, true
		}
	}
	return "", false
}

// Observe reads the trigger events from a session state.
func Observe(st *game.State) []Event {
	return []Event{
		{Type: EventElapsed, Value: st.Elapsed},
		{Type: EventDay, Value: float64(st.Day)},
		{Type: EventUsers, Value: st.Users},
		{Type: EventCash, Value: st.Cash},
		{Type: EventReputation, Value: st.Reputation},
		{Type: EventUptimeStreak, Value: st.UptimeStreak},
		{Type: EventResolved, Value: float64(st.ResolvedIncidents)},
	}
}

// Transition records one phase change.
type Transition struct {
	From  string
	To    Phase
	Cause Event
}

// Tracker follows one scenario through a session.
type Tracker struct {
	scn   *Scenario
	phase string
}

// NewTracker starts at the first phase.
func NewTracker(s *Scenario) *Tracker {
	return &Tracker{scn: s, phase: s.Phases[0].Name}
}

// Scenario returns the tracked arc.
func (t *Tracker) Scenario() *Scenario { return t.scn }

// Phase returns the current phase.
func (t *Tracker) Phase() Phase {
	p, _ := t.scn.Phase(t.phase)
	return p
}

// Advance applies every trigger satisfied by st, following chains of phases
// whose thresholds are already met. Each phase is entered at most once per call.
func (t *Tracker) Advance(st *game.State) []Transition {
	var out []Transition
	events := Observe(st)
	seen := map[string]bool{t.phase: true}
	for moved := true; moved; {
		moved = false
		for _, ev := range events {
			next, ok := t.scn.NextPhase(t.phase, ev)
			if !ok || seen[next] {
				continue
			}
			p, _ := t.scn.Phase(next)
			out = append(out, Transition{From: t.phase, To: p, Cause: ev})
			t.phase = next
			seen[next] = true
			moved = true
			break
		}
	}
	return out
}
