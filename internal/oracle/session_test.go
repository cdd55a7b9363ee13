package oracle

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"uptime-sim/internal/catalog"
	"uptime-sim/internal/game"
	"uptime-sim/internal/rng"
)

type fakeGenerator struct {
	mu      sync.Mutex
	out     string
	err     error
	prompts []string
	release chan struct{}
}

func (f *fakeGenerator) Generate(ctx context.Context, prompt string) ([]byte, error) {
	if f.release != nil {
		<-f.release
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompts = append(f.prompts, prompt)
	if f.err != nil {
		return nil, f.err
	}
	return []byte(f.out), nil
}

func newState() *game.State {
	return game.NewGame(catalog.BuiltIn(), game.DefaultOptions())
}

func TestGenerateIncidentForcesRequestedSeverity(t *testing.T) {
	gen := &fakeGenerator{out: sampleIncident}
	s := NewSession(gen, rng.New("oracle"))
	req := s.NewIncidentRequest(newState())
	req.Severity = catalog.SeverityCrit

	inc := s.GenerateIncident(context.Background(), req)
	if inc == nil {
		t.Fatalf("expected incident")
	}
	if inc.Severity != catalog.SeverityCrit || inc.OutageAfter != critOutageAfter {
		t.Fatalf("expected CRIT with outage timer, got %s %v", inc.Severity, inc.OutageAfter)
	}
	if !strings.Contains(gen.prompts[0], "severity CRIT") {
		t.Fatalf("prompt does not demand severity: %s", gen.prompts[0])
	}
}

func TestGenerateIncidentFailuresYieldNil(t *testing.T) {
	st := newState()
	cases := map[string]*fakeGenerator{
		"transport":      {err: errors.New("connection refused")},
		"malformed":      {out: "{"},
		"unknown target": {out: strings.Replace(sampleIncident, `"lb"`, `"mainframe"`, 1)},
		"locked target":  {out: strings.Replace(sampleIncident, `"lb"`, `"cdn"`, 1)},
	}
	for name, gen := range cases {
		t.Run(name, func(t *testing.T) {
			s := NewSession(gen, rng.New("oracle"))
			if inc := s.GenerateIncident(context.Background(), s.NewIncidentRequest(st)); inc != nil {
				t.Fatalf("expected nil, got %+v", inc)
			}
		})
	}
}

func TestRequestIncidentSingleInFlight(t *testing.T) {
	gen := &fakeGenerator{out: sampleIncident, release: make(chan struct{})}
	s := NewSession(gen, rng.New("oracle"))
	st := newState()

	if !s.RequestIncident(context.Background(), st) {
		t.Fatalf("first request should start")
	}
	if s.RequestIncident(context.Background(), st) {
		t.Fatalf("second request should be refused while in flight")
	}
	close(gen.release)

	select {
	case inc := <-s.Arrivals():
		if inc.Target != "lb" {
			t.Fatalf("unexpected arrival %+v", inc)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for arrival")
	}
	deadline := time.Now().Add(2 * time.Second)
	for s.InFlight() {
		if time.Now().After(deadline) {
			t.Fatalf("request never cleared")
		}
		time.Sleep(5 * time.Millisecond)
	}
	if !s.RequestIncident(context.Background(), st) {
		t.Fatalf("request should be accepted again")
	}
}

func TestRequestIncidentDropsWhenFull(t *testing.T) {
	gen := &fakeGenerator{out: sampleIncident}
	s := NewSession(gen, rng.New("oracle"))
	st := newState()
	for i := 0; i < DefaultArrivalBuffer+2; i++ {
		for !s.RequestIncident(context.Background(), st) {
			time.Sleep(time.Millisecond)
		}
	}
	deadline := time.Now().Add(2 * time.Second)
	for s.InFlight() {
		if time.Now().After(deadline) {
			t.Fatalf("request never cleared")
		}
		time.Sleep(5 * time.Millisecond)
	}
	if got := len(s.Arrivals()); got != DefaultArrivalBuffer {
		t.Fatalf("expected a full buffer of %d, got %d", DefaultArrivalBuffer, got)
	}
}

func TestGenerateTask(t *testing.T) {
	gen := &fakeGenerator{out: `{"kind":"multiple_choice","title":"Pick","multipleChoice":{"question":"q","options":["a","b"],"answerIndex":1}}`}
	s := NewSession(gen, rng.New("oracle"))
	task := s.GenerateTask(context.Background(), TaskRequest{IncidentName: "Slow queries", ActionName: "Add index", TargetNodeID: "db_primary"})
	if task == nil || task.Kind != TaskMultipleChoice {
		t.Fatalf("unexpected task %+v", task)
	}
	if !strings.Contains(gen.prompts[0], "db_primary") {
		t.Fatalf("prompt lacks target: %s", gen.prompts[0])
	}

	gen.out = `{"kind":"multiple_choice","title":"Pick","multipleChoice":{"question":"q","options":["a"],"answerIndex":3}}`
	if task := s.GenerateTask(context.Background(), TaskRequest{}); task != nil {
		t.Fatalf("invalid task should be discarded")
	}
}

func TestRequestTaskDeliversAssignment(t *testing.T) {
	gen := &fakeGenerator{out: sampleTask, release: make(chan struct{})}
	s := NewSession(gen, rng.New("oracle"))
	req := TaskRequest{IncidentName: "Slow queries", ActionName: "Add index", TargetNodeID: "db_primary"}

	if !s.RequestTask(context.Background(), req) {
		t.Fatalf("first task request should start")
	}
	if s.RequestTask(context.Background(), req) {
		t.Fatalf("second task request should be refused while in flight")
	}
	close(gen.release)

	select {
	case a := <-s.Tasks():
		if a.Request.TargetNodeID != "db_primary" || a.Task.Kind != TaskMultipleChoice {
			t.Fatalf("unexpected assignment %+v", a)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for task")
	}
}

const sampleTask = `{"kind":"multiple_choice","title":"Pick","multipleChoice":{"question":"q","options":["a","b"],"answerIndex":1}}`

func TestReportIncludesHistory(t *testing.T) {
	gen := &fakeGenerator{out: sampleIncident}
	s := NewSession(gen, rng.New("oracle"))
	st := newState()
	s.Start(context.Background(), st)
	if s.GenerateIncident(context.Background(), s.NewIncidentRequest(st)) == nil {
		t.Fatalf("expected incident")
	}

	gen.out = `{"summary":"We survived."}`
	st.GameOver = true
	st.GameOverReason = "Bankruptcy: cash ran out"
	if got := s.Report(context.Background(), st); got != "We survived." {
		t.Fatalf("unexpected report %q", got)
	}
	last := gen.prompts[len(gen.prompts)-1]
	if !strings.Contains(last, "TLS handshake storm on lb") || !strings.Contains(last, "Bankruptcy") {
		t.Fatalf("report prompt missing context: %s", last)
	}

	gen.out = `{"summary":""}`
	if got := s.Report(context.Background(), st); got != "" {
		t.Fatalf("expected empty report on malformed response, got %q", got)
	}
}
