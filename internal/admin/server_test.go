package admin

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"uptime-sim/internal/engine"
	"uptime-sim/internal/game"
	"uptime-sim/internal/oracle"
	"uptime-sim/internal/reducer"
	"uptime-sim/internal/rng"
	"uptime-sim/internal/scenario"
	"uptime-sim/internal/sim"
)

func newTestServer(t *testing.T, opts sim.Options) (*Server, *sim.Simulator) {
	t.Helper()
	env := engine.NewEnv()
	st := game.NewGame(env.Catalog, game.DefaultOptions())
	simulator := sim.NewSimulator("admin-test", st, env, sim.NewMultiWriter(), time.Second, opts)
	return NewServer(simulator), simulator
}

func do(t *testing.T, s *Server, method, path, body string) *http.Response {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w.Result()
}

func TestHandleIndex(t *testing.T) {
	server, _ := newTestServer(t, sim.Options{})
	resp := do(t, server, http.MethodGet, "/", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status OK, got %v", resp.StatusCode)
	}
	b, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(b), "admin-test") {
		t.Errorf("index should mention the session id")
	}
	if !strings.Contains(string(b), "enable_cdn") {
		t.Errorf("index should list actions")
	}
}

func TestHandleState(t *testing.T) {
	server, simulator := newTestServer(t, sim.Options{})
	resp := do(t, server, http.MethodGet, "/state", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status OK, got %v", resp.StatusCode)
	}
	b, _ := io.ReadAll(resp.Body)
	st, err := game.Deserialize(b)
	if err != nil {
		t.Fatalf("deserialize: %v", err)
	}
	if st.Cash != simulator.State().Cash {
		t.Errorf("cash mismatch: %v vs %v", st.Cash, simulator.State().Cash)
	}
	if len(st.Graph.Nodes) == 0 {
		t.Errorf("expected architecture in state")
	}
}

func TestHandleActions(t *testing.T) {
	server, _ := newTestServer(t, sim.Options{})
	resp := do(t, server, http.MethodGet, "/actions", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status OK, got %v", resp.StatusCode)
	}
	var actions []ActionStatus
	if err := json.NewDecoder(resp.Body).Decode(&actions); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	found := false
	for _, a := range actions {
		if a.ID == "enable_cdn" {
			found = true
			if !a.Available {
				t.Errorf("enable_cdn should be available at start: %s", a.Reason)
			}
		}
	}
	if !found {
		t.Fatalf("enable_cdn missing from %+v", actions)
	}
}

func TestHandleMetrics(t *testing.T) {
	server, _ := newTestServer(t, sim.Options{})
	resp := do(t, server, http.MethodGet, "/metrics", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status OK, got %v", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("unexpected content type %q", ct)
	}
}

func TestHandleCommand(t *testing.T) {
	server, _ := newTestServer(t, sim.Options{CommandBuffer: 1})

	resp := do(t, server, http.MethodPost, "/command", `{"type":"execute_action","actionId":"enable_cdn"}`)
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("expected 202, got %v", resp.StatusCode)
	}
	resp = do(t, server, http.MethodPost, "/command", `{"type":"toggle_pause"}`)
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 when queue is full, got %v", resp.StatusCode)
	}
}

func TestHandleCommandRejectsBadInput(t *testing.T) {
	server, _ := newTestServer(t, sim.Options{})
	for _, body := range []string{`not json`, `{"type":"launch_rockets"}`} {
		resp := do(t, server, http.MethodPost, "/command", body)
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %v", body, resp.StatusCode)
		}
	}
	resp := do(t, server, http.MethodGet, "/command", "")
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("expected 405 for GET /command, got %v", resp.StatusCode)
	}
}

func TestHandleIndexShowsScenario(t *testing.T) {
	arc := scenario.BuiltIn()["launch"]
	server, _ := newTestServer(t, sim.Options{Scenario: &arc})
	resp := do(t, server, http.MethodGet, "/", "")
	b, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(b), "Launch") || !strings.Contains(string(b), "Reach 2,500 users.") {
		t.Errorf("index should show the scenario phase")
	}
}

type taskGenerator struct{}

func (taskGenerator) Generate(context.Context, string) ([]byte, error) {
	return []byte(`{"kind":"command","title":"Check replication","command":{"prompt":"Show replica lag","expectedPattern":"^SHOW REPLICA STATUS"}}`), nil
}

func TestHandleTaskWithoutTask(t *testing.T) {
	server, _ := newTestServer(t, sim.Options{})
	if resp := do(t, server, http.MethodGet, "/task", ""); resp.StatusCode != http.StatusNoContent {
		t.Fatalf("expected 204, got %v", resp.StatusCode)
	}
	if resp := do(t, server, http.MethodPost, "/task", `{"answer":1}`); resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %v", resp.StatusCode)
	}
	if resp := do(t, server, http.MethodPost, "/task", `{"answer":`); resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %v", resp.StatusCode)
	}
}

func TestHandleTaskAnswer(t *testing.T) {
	env := engine.NewEnv()
	env.Tuning.IncidentRateScale = 0
	st := game.NewGame(env.Catalog, game.DefaultOptions())
	def, _ := env.Catalog.Incident("slow_queries")
	st.AddIncident(game.NewIncident(def, "slow", "db_primary", 0), env.Tuning.LinkWindow)
	sess := oracle.NewSession(taskGenerator{}, rng.New("admin"))
	simulator := sim.NewSimulator("admin-test", st, env, sim.NewMultiWriter(), 10*time.Millisecond, sim.Options{Oracle: sess, OracleInterval: time.Hour})
	server := NewServer(simulator)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if !simulator.Apply(ctx, reducer.ExecuteAction{ActionID: "scale_db", IncidentID: "slow"}) {
		t.Fatalf("scale_db should be accepted")
	}
	go simulator.Run(ctx)

	deadline := time.Now().Add(2 * time.Second)
	for {
		if _, ok := simulator.Task(); ok {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("no task opened")
		}
		time.Sleep(5 * time.Millisecond)
	}

	resp := do(t, server, http.MethodGet, "/task", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %v", resp.StatusCode)
	}
	var a oracle.Assignment
	if err := json.NewDecoder(resp.Body).Decode(&a); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if a.Task.Kind != oracle.TaskCommand || a.Request.IncidentID != "slow" {
		t.Fatalf("unexpected assignment %+v", a)
	}
	page, _ := io.ReadAll(do(t, server, http.MethodGet, "/", "").Body)
	if !strings.Contains(string(page), "Task: Check replication") || !strings.Contains(string(page), "Show replica lag") {
		t.Fatalf("index does not show the open task")
	}

	if resp := do(t, server, http.MethodPost, "/task", `{"answer":2}`); resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("index answer to a command task should be rejected, got %v", resp.StatusCode)
	}
	resp = do(t, server, http.MethodPost, "/task", `{"answer":"SHOW REPLICA STATUS\\G"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %v", resp.StatusCode)
	}
	var out map[string]bool
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !out["correct"] {
		t.Fatalf("expected a correct answer")
	}
}
