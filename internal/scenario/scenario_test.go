package scenario

import (
	"os"
	"path/filepath"
	"testing"

	"uptime-sim/internal/catalog"
	"uptime-sim/internal/game"
)

func TestScenarioTransition(t *testing.T) {
	s := Scenario{
		Phases: []Phase{{
			Name:     "setup",
			Triggers: []Trigger{{Event: EventElapsed, Value: 10, Next: "growth"}},
		}, {
			Name: "growth",
		}},
	}

	next, ok := s.NextPhase("setup", Event{Type: EventElapsed, Value: 10})
	if !ok || next != "growth" {
		t.Fatalf("expected transition to growth, got %s", next)
	}
	if _, ok := s.NextPhase("setup", Event{Type: EventElapsed, Value: 9}); ok {
		t.Fatalf("below threshold should not transition")
	}
	if _, ok := s.NextPhase("growth", Event{Type: EventElapsed, Value: 100}); ok {
		t.Fatalf("final phase has no triggers")
	}
}

func TestLoadScenario(t *testing.T) {
	sc, err := Load("testdata/simple.yaml")
	if err != nil {
		t.Fatalf("load scenario: %v", err)
	}
	if sc.Name != "example" {
		t.Fatalf("unexpected name %s", sc.Name)
	}
	if sc.Description != "basic test scenario" {
		t.Fatalf("unexpected description %s", sc.Description)
	}
	if len(sc.Phases) != 2 || sc.Phases[0].Triggers[0].Event != EventUsers {
		t.Fatalf("unexpected phases %+v", sc.Phases)
	}
}

func TestLoadScenarioRejectsDanglingTrigger(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	body := "name: bad\nphases:\n  - name: a\n    triggers:\n      - {event: day, value: 2, next: nowhere}\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatalf("expected validation error")
	}
}

func TestBuiltInArcsValid(t *testing.T) {
	for name, s := range BuiltIn() {
		s := s
		if err := s.Validate(); err != nil {
			t.Errorf("%s: %v", name, err)
		}
	}
}

func TestTrackerAdvancesThroughChains(t *testing.T) {
	s := BuiltIn()["launch"]
	tr := NewTracker(&s)
	st := game.NewGame(catalog.BuiltIn(), game.DefaultOptions())

	if got := tr.Advance(st); len(got) != 0 {
		t.Fatalf("fresh game should not advance, got %+v", got)
	}
	if tr.Phase().Name != "setup" {
		t.Fatalf("phase = %s", tr.Phase().Name)
	}

	st.Users = 3000
	st.UptimeStreak = 2000
	got := tr.Advance(st)
	if len(got) != 2 {
		t.Fatalf("expected two chained transitions, got %+v", got)
	}
	if got[0].To.Name != "growth" || got[1].To.Name != "scale" {
		t.Fatalf("unexpected path %s -> %s", got[0].To.Name, got[1].To.Name)
	}
	if got[1].Cause.Type != EventUptimeStreak {
		t.Fatalf("unexpected cause %+v", got[1].Cause)
	}
	if len(tr.Advance(st)) != 0 {
		t.Fatalf("advance should be idempotent for the same state")
	}
}
