package reducer

import (
	"bytes"
	"errors"
	"reflect"
	"testing"

	"uptime-sim/internal/catalog"
	"uptime-sim/internal/engine"
	"uptime-sim/internal/game"
	"uptime-sim/internal/rng"
)

func setup() (*game.State, *engine.Env, rng.Source) {
	env := engine.NewEnv()
	env.Tuning.IncidentRateScale = 0
	return game.NewGame(env.Catalog, game.DefaultOptions()), env, rng.New("reducer")
}

func addIncident(st *game.State, env *engine.Env, defID, id, target string) {
	def, _ := env.Catalog.Incident(defID)
	st.AddIncident(game.NewIncident(def, id, target, st.Elapsed), env.Tuning.LinkWindow)
}

func TestPauseAndSpeed(t *testing.T) {
	st, env, src := setup()
	p := Reduce(st, TogglePause{}, src, env)
	if !p.Paused || st.Paused {
		t.Fatalf("toggle should pause a copy")
	}
	if s := Reduce(st, SetSpeed{Speed: 50}, src, env); s.Speed != MaxSpeed {
		t.Fatalf("speed = %v, want %v", s.Speed, MaxSpeed)
	}
	if s := Reduce(st, SetSpeed{Speed: 0.01}, src, env); s.Speed != MinSpeed {
		t.Fatalf("speed = %v, want %v", s.Speed, MinSpeed)
	}
}

func TestInvalidCommandsReturnInput(t *testing.T) {
	st, env, src := setup()
	poor := st.Clone()
	poor.Cash = 10
	over := st.Clone()
	over.GameOver = true
	scaled := st.Clone()
	scaled.Graph.Nodes["app"].Features["autoscaling"] = true
	cases := []struct {
		name string
		st   *game.State
		cmd  Command
	}{
		{"unknown action", st, ExecuteAction{ActionID: "nope"}},
		{"unknown incident", st, ExecuteAction{ActionID: "restart_service", IncidentID: "ghost"}},
		{"insufficient cash", poor, ExecuteAction{ActionID: "scale_db"}},
		{"requirement unmet", st, ExecuteAction{ActionID: "enable_waf"}},
		{"feature already on", scaled, ExecuteAction{ActionID: "enable_autoscaling"}},
		{"mitigate without incident", st, MitigateIncident{ActionID: "restart_service"}},
		{"unknown node", st, TrackIncidentTarget{NodeID: "mainframe"}},
		{"game over", over, ExecuteAction{ActionID: "postmortem"}},
		{"nil state", st, LoadState{}},
		{"external too expensive", poor, ExecuteExternalAction{Name: "fix", Cost: 100}},
	}
	for _, c := range cases {
		if got := Reduce(c.st, c.cmd, src, env); got != c.st {
			t.Fatalf("%s: expected the input state back", c.name)
		}
	}
}

func TestCooldown(t *testing.T) {
	st, env, src := setup()
	s1 := Reduce(st, ExecuteAction{ActionID: "restart_service"}, src, env)
	if s1 == st || s1.Cooldowns["restart_service"] != 0 {
		t.Fatalf("first restart should run")
	}
	if s2 := Reduce(s1, ExecuteAction{ActionID: "restart_service"}, src, env); s2 != s1 {
		t.Fatalf("restart inside cooldown should be rejected")
	}
	s1.Elapsed = 60
	if s3 := Reduce(s1, ExecuteAction{ActionID: "restart_service"}, src, env); s3 == s1 {
		t.Fatalf("restart after cooldown should run")
	}
}

func TestInstantMitigation(t *testing.T) {
	st, env, src := setup()
	addIncident(st, env, "cpu_saturation", "cpu", "app")
	next := Reduce(st, MitigateIncident{IncidentID: "cpu", ActionID: "restart_service"}, src, env)
	inc, _ := next.Incident("cpu")
	if inc.MitigationLevel != 0.5 {
		t.Fatalf("expected remediation effectiveness 0.5, got %v", inc.MitigationLevel)
	}
	if orig, _ := st.Incident("cpu"); orig.MitigationLevel != 0 {
		t.Fatalf("input incident was modified")
	}
	if rejected := Reduce(st, MitigateIncident{IncidentID: "cpu", ActionID: "lower_prices"}, src, env); rejected != st {
		t.Fatalf("an unrelated action cannot mitigate")
	}
}

func TestDurationalMitigation(t *testing.T) {
	st, env, src := setup()
	addIncident(st, env, "slow_queries", "slow", "db_primary")
	next := Reduce(st, ExecuteAction{ActionID: "scale_db", IncidentID: "slow"}, src, env)
	inc, _ := next.Incident("slow")
	if inc.MitigationLevel != 0.5*0.3 {
		t.Fatalf("expected hope bump, got %v", inc.MitigationLevel)
	}
	if len(next.Actions) != 1 {
		t.Fatalf("expected one action in progress")
	}
	a := next.Actions[0]
	if a.EndsAt != 60 || a.Target != "db_primary" || a.Mitigation != 0.5-0.5*0.3 {
		t.Fatalf("unexpected action %+v", a)
	}
	if next.Cash != st.Cash-500 {
		t.Fatalf("cost not charged")
	}
	for i := 0; i < 60; i++ {
		next = engine.Tick(next, src, 1, env)
	}
	inc, _ = next.Incident("slow")
	if len(next.Actions) != 0 || inc.MitigationLevel != 0.5 {
		t.Fatalf("expected full amount banked at completion, got %v with %d actions", inc.MitigationLevel, len(next.Actions))
	}
	if db, _ := next.Node("db_primary"); db.Scaling.Current != 2 {
		t.Fatalf("expected database scaled")
	}
}

func TestScaleClampsAtMax(t *testing.T) {
	st, env, src := setup()
	def := env.Catalog.Actions["scale_up"]
	def.Duration, def.Cooldown = 0, 0
	env.Catalog.Actions["scale_up"] = def
	st.Graph.Nodes["app"].Scaling.Current = 4
	cash := st.Cash
	for i := 0; i < 3; i++ {
		st = Reduce(st, ExecuteAction{ActionID: "scale_up"}, src, env)
	}
	if got := st.Graph.Nodes["app"].Scaling.Current; got != 5 {
		t.Fatalf("scaling = %d, want 5", got)
	}
	if st.Cash != cash-3*def.Cost {
		t.Fatalf("every attempt should still be charged")
	}
}

func TestSharedFix(t *testing.T) {
	st, env, src := setup()
	addIncident(st, env, "memory_leak", "leak", "app")
	st.Elapsed = 30
	addIncident(st, env, "cpu_saturation", "cpu", "app")
	next := Reduce(st, MitigateIncident{IncidentID: "leak", ActionID: "restart_service"}, src, env)
	leak, _ := next.Incident("leak")
	cpu, _ := next.Incident("cpu")
	if leak.MitigationLevel != 1 || cpu.MitigationLevel != 1 {
		t.Fatalf("expected both fully mitigated, got %v %v", leak.MitigationLevel, cpu.MitigationLevel)
	}
	next = engine.Tick(next, src, 1, env)
	if len(next.Incidents) != 0 || next.ResolvedIncidents != 2 {
		t.Fatalf("expected the cluster resolved, %d left", len(next.Incidents))
	}
}

func TestUnlockChain(t *testing.T) {
	st, env, src := setup()
	st = Reduce(st, ExecuteAction{ActionID: "enable_cdn"}, src, env)
	if len(st.Actions) != 1 {
		t.Fatalf("expected enable_cdn in progress")
	}
	if again := Reduce(st, ExecuteAction{ActionID: "enable_waf"}, src, env); again != st {
		t.Fatalf("waf needs a running cdn")
	}
	for i := 0; i < 60; i++ {
		st = engine.Tick(st, src, 1, env)
	}
	if cdn, _ := st.Node("cdn"); cdn.Locked {
		t.Fatalf("cdn should be unlocked")
	}
	if next := Reduce(st, ExecuteAction{ActionID: "enable_waf"}, src, env); next == st {
		t.Fatalf("waf should be allowed once the cdn runs")
	}
}

func generated() game.GeneratedIncident {
	return game.GeneratedIncident{
		ID: "gen-1", Name: "Leaky Sidecar", Description: "sidecar eats memory",
		Severity: catalog.SeverityWarn, Category: catalog.CategoryPerformance, Target: "app",
		Effects:   catalog.IncidentEffects{LatencyMult: 1.4},
		Suggested: []game.SuggestedAction{{Name: "Raise limits", Cost: 100, Duration: 10, Effectiveness: 0.9, MetricDeltas: map[string]float64{"capacity": 50}}},
	}
}

func TestSpawnExternalIncidentDedup(t *testing.T) {
	st, env, src := setup()
	s1 := Reduce(st, SpawnExternalIncident{Incident: generated()}, src, env)
	if len(s1.Incidents) != 1 || !s1.Incidents[0].Generated() || s1.Incidents[0].ID != "gen-1" {
		t.Fatalf("expected generated incident")
	}
	if s2 := Reduce(s1, SpawnExternalIncident{Incident: generated()}, src, env); s2 != s1 {
		t.Fatalf("duplicate inside window should be rejected")
	}
	s1.Elapsed = 61
	s3 := Reduce(s1, SpawnExternalIncident{Incident: generated()}, src, env)
	if len(s3.Incidents) != 2 || s3.Incidents[1].ID == "gen-1" {
		t.Fatalf("expected a second incident with a fresh id")
	}
	bad := generated()
	bad.Severity = "SEV1"
	if s4 := Reduce(st, SpawnExternalIncident{Incident: bad}, src, env); s4 != st {
		t.Fatalf("invalid payload should be rejected")
	}
	bad = generated()
	bad.Target = "cdn"
	if s5 := Reduce(st, SpawnExternalIncident{Incident: bad}, src, env); s5 != st {
		t.Fatalf("locked target should be rejected")
	}
}

func TestExternalAction(t *testing.T) {
	st, env, src := setup()
	st = Reduce(st, SpawnExternalIncident{Incident: generated()}, src, env)
	capacity := st.Graph.Nodes["app"].Capacity
	next := Reduce(st, ExecuteExternalAction{Name: "Raise limits", Cost: 100, Duration: 10, IncidentID: "gen-1"}, src, env)
	inc, _ := next.Incident("gen-1")
	if inc.MitigationLevel != 0.9*0.3 || len(next.Actions) != 1 || !next.Actions[0].External {
		t.Fatalf("unexpected state after external action: %v %d", inc.MitigationLevel, len(next.Actions))
	}
	for i := 0; i < 10; i++ {
		next = engine.Tick(next, src, 1, env)
	}
	if got := next.Graph.Nodes["app"].Capacity; got != capacity+50 {
		t.Fatalf("capacity = %v, want %v", got, capacity+50)
	}
	inc, _ = next.Incident("gen-1")
	if inc.MitigationLevel != 0.9 {
		t.Fatalf("expected 0.9 banked, got %v", inc.MitigationLevel)
	}
}

func TestLoadStateAndTrack(t *testing.T) {
	st, env, src := setup()
	other := st.Clone()
	other.Cash = 1
	loaded := Reduce(st, LoadState{State: other}, src, env)
	if loaded.Cash != 1 || loaded == other {
		t.Fatalf("expected a copy of the loaded state")
	}
	tracked := Reduce(st, TrackIncidentTarget{NodeID: "db_primary"}, src, env)
	if !reflect.DeepEqual(tracked.RecentTargets, []string{"db_primary"}) {
		t.Fatalf("unexpected targets %v", tracked.RecentTargets)
	}
}

func TestLoadStateFillsMissingCollections(t *testing.T) {
	st, env, src := setup()
	bare := st.Clone()
	bare.Cooldowns = nil
	bare.UnlockedFeatures = nil
	bare.Incidents = nil
	bare.Actions = nil
	bare.RecentTargets = nil

	s := Reduce(st, LoadState{State: bare}, src, env)
	if s == st {
		t.Fatalf("state with a graph should load")
	}
	if bare.Cooldowns != nil {
		t.Fatalf("loaded state must not be modified")
	}
	s = Reduce(s, ExecuteAction{ActionID: "restart_service"}, src, env)
	if _, ok := s.Cooldowns["restart_service"]; !ok {
		t.Fatalf("expected a cooldown after restart_service, got %v", s.Cooldowns)
	}
	s = Reduce(s, TrackIncidentTarget{NodeID: "app"}, src, env)
	if len(s.RecentTargets) != 1 {
		t.Fatalf("unexpected targets %v", s.RecentTargets)
	}
	s = Reduce(s, ExecuteAction{ActionID: "enable_cdn"}, src, env)
	for i := 0; i < 60; i++ {
		s = engine.Tick(s, src, 1, env)
	}
	if cdn, _ := s.Node("cdn"); cdn.Locked {
		t.Fatalf("cdn should unlock on a loaded state")
	}
}

func TestReduceDoesNotMutateInput(t *testing.T) {
	st, env, src := setup()
	addIncident(st, env, "slow_queries", "slow", "db_primary")
	before, _ := game.Serialize(st)
	Reduce(st, ExecuteAction{ActionID: "add_app_instance"}, src, env)
	Reduce(st, ExecuteAction{ActionID: "scale_db", IncidentID: "slow"}, src, env)
	after, _ := game.Serialize(st)
	if !bytes.Equal(before, after) {
		t.Fatalf("input state was modified")
	}
}

func TestCommandEnvelope(t *testing.T) {
	cmds := []Command{
		TogglePause{},
		SetSpeed{Speed: 2},
		ExecuteAction{ActionID: "scale_up", IncidentID: "i"},
		MitigateIncident{IncidentID: "i", ActionID: "restart_service"},
		ExecuteExternalAction{Name: "fix", Cost: 1, Duration: 2, IncidentID: "i"},
		TrackIncidentTarget{NodeID: "app"},
	}
	for _, c := range cmds {
		b, err := EncodeCommand(c)
		if err != nil {
			t.Fatalf("encode %s: %v", c.Type(), err)
		}
		got, err := DecodeCommand(b)
		if err != nil {
			t.Fatalf("decode %s: %v", b, err)
		}
		if !reflect.DeepEqual(got, c) {
			t.Fatalf("envelope mismatch %#v vs %#v", got, c)
		}
	}
	if _, err := DecodeCommand([]byte(`{"type":"self_destruct"}`)); !errors.Is(err, ErrUnknownCommand) {
		t.Fatalf("expected ErrUnknownCommand, got %v", err)
	}
	if _, err := DecodeCommand([]byte(`{"type":"load_state","state":{"cash":1}}`)); err == nil {
		t.Fatalf("a state without architecture must not decode")
	}
}
