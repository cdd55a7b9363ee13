package oracle

import (
	"errors"
	"testing"

	"uptime-sim/internal/catalog"
	"uptime-sim/internal/game"
)

type fixedSource struct{ f float64 }

func (s fixedSource) Float64() float64           { return s.f }
func (s fixedSource) Intn(n int) int             { return 0 }
func (s fixedSource) Bool(p float64) bool        { return s.f < p }
func (s fixedSource) Pick(n int) int             { return n - 1 }
func (s fixedSource) Read(p []byte) (int, error) { return len(p), nil }

func TestBuildSnapshotListsActiveNodes(t *testing.T) {
	st := game.NewGame(catalog.BuiltIn(), game.DefaultOptions())
	st.Incidents = append(st.Incidents, &game.Incident{ID: "i1", Target: "app"})
	snap := BuildSnapshot(st)
	if snap.ActiveIncidents != 1 || snap.Users != 1000 || snap.Cash != 10000 {
		t.Fatalf("unexpected headline numbers %+v", snap)
	}
	ids := map[string]bool{}
	for _, n := range snap.Nodes {
		ids[n.ID] = true
	}
	if !ids["app"] || !ids["db_primary"] || !ids["dns"] {
		t.Fatalf("missing core nodes: %v", ids)
	}
	if ids["cdn"] || ids["queue"] {
		t.Fatalf("locked nodes leaked into snapshot: %v", ids)
	}
	for _, n := range snap.Nodes {
		if n.ID == "db_primary" && n.Metrics["max_connections"] == 0 {
			t.Fatalf("expected database metrics, got %v", n.Metrics)
		}
	}
}

func TestPickSeverityRamp(t *testing.T) {
	cases := []struct {
		elapsed float64
		roll    float64
		want    catalog.Severity
	}{
		{0, 0.59, catalog.SeverityInfo},
		{0, 0.94, catalog.SeverityWarn},
		{0, 0.96, catalog.SeverityCrit},
		{15 * 60, 0.34, catalog.SeverityInfo},
		{15 * 60, 0.79, catalog.SeverityWarn},
		{15 * 60, 0.81, catalog.SeverityCrit},
		{45 * 60, 0.19, catalog.SeverityInfo},
		{45 * 60, 0.59, catalog.SeverityWarn},
		{45 * 60, 0.61, catalog.SeverityCrit},
	}
	for _, c := range cases {
		if got := PickSeverity(c.elapsed, fixedSource{c.roll}); got != c.want {
			t.Fatalf("elapsed %.0f roll %.2f: expected %s, got %s", c.elapsed, c.roll, c.want, got)
		}
	}
}

const sampleIncident = `{
  "id": "gen-1",
  "name": "TLS handshake storm",
  "description": "Clients retry handshakes in a loop",
  "severity": "warn",
  "category": "Performance",
  "targetNodeId": "lb",
  "logs": ["handshake timeout from 10.0.0.4"],
  "effects": {"errorRateMultiplier": 1.5, "latencyMultiplier": 2, "metricDeltas": {}},
  "remediations": [
    {"name": "Enable session resumption", "cost": 200, "duration": 30, "effectiveness": 0.8, "metricImprovements": {"error_rate": -0.02}},
    {"name": "", "cost": 1}
  ]
}`

func TestParseIncident(t *testing.T) {
	inc, err := ParseIncident([]byte(sampleIncident))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if inc.Severity != catalog.SeverityWarn || inc.Category != catalog.CategoryPerformance || inc.Target != "lb" {
		t.Fatalf("unexpected incident %+v", inc)
	}
	if inc.Effects.MetricDeltas != nil {
		t.Fatalf("empty metric deltas should normalize to nil")
	}
	if inc.Effects.ErrorMult != 1.5 || inc.Effects.UtilMult != 0 {
		t.Fatalf("unexpected effects %+v", inc.Effects)
	}
	if len(inc.Suggested) != 1 || inc.Suggested[0].Effectiveness != 0.8 {
		t.Fatalf("unexpected suggestions %+v", inc.Suggested)
	}
	if inc.AutoResolve != 900 || inc.OutageAfter != 0 {
		t.Fatalf("unexpected timers auto=%v outage=%v", inc.AutoResolve, inc.OutageAfter)
	}
}

func TestParseIncidentRejectsMalformed(t *testing.T) {
	for name, body := range map[string]string{
		"not json":        "nope",
		"missing target":  `{"name":"x","severity":"INFO","effects":{}}`,
		"missing effects": `{"name":"x","severity":"INFO","targetNodeId":"app"}`,
		"bad severity":    `{"name":"x","severity":"MEGA","targetNodeId":"app","effects":{}}`,
	} {
		t.Run(name, func(t *testing.T) {
			if _, err := ParseIncident([]byte(body)); !errors.Is(err, ErrMalformed) {
				t.Fatalf("expected ErrMalformed, got %v", err)
			}
		})
	}
}
