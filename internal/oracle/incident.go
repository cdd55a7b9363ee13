package oracle

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"uptime-sim/internal/catalog"
	"uptime-sim/internal/game"
	"uptime-sim/internal/graph"
	"uptime-sim/internal/rng"
)

// NodeSnapshot is the compact per-node dump sent with incident requests.
type NodeSnapshot struct {
	ID          string             `json:"id"`
	Archetype   string             `json:"archetype"`
	Utilization float64            `json:"utilization"`
	Latency     float64            `json:"latencyMs"`
	ErrorRate   float64            `json:"errorRate"`
	Health      float64            `json:"health"`
	Mode        string             `json:"mode"`
	Bottleneck  string             `json:"bottleneck,omitempty"`
	Metrics     map[string]float64 `json:"metrics,omitempty"`
}

// Snapshot is the compact view of a session the model reasons about.
type Snapshot struct {
	ElapsedMinutes  float64        `json:"elapsedMinutes"`
	Users           float64        `json:"users"`
	Uptime          float64        `json:"uptime"`
	Cash            float64        `json:"cash"`
	Reputation      float64        `json:"reputation"`
	RPS             float64        `json:"rps"`
	ErrorRate       float64        `json:"errorRate"`
	LatencyMs       float64        `json:"latencyMs"`
	ActiveIncidents int            `json:"activeIncidents"`
	Nodes           []NodeSnapshot `json:"nodes"`
}

// BuildSnapshot extracts the compact view from a state. Only running nodes are listed.
func BuildSnapshot(st *game.State) Snapshot {
	snap := Snapshot{
		ElapsedMinutes:  round(st.Elapsed/60, 1),
		Users:           math.Round(st.Users),
		Uptime:          round(st.Uptime, 4),
		Cash:            math.Round(st.Cash),
		Reputation:      round(st.Reputation, 1),
		RPS:             round(st.Ingress, 1),
		ErrorRate:       round(st.ErrorRate, 4),
		LatencyMs:       round(st.LatencyP95, 1),
		ActiveIncidents: len(st.Incidents),
		Nodes:           []NodeSnapshot{},
	}
	for _, id := range st.Graph.SortedIDs() {
		n := st.Graph.Nodes[id]
		if !n.Active() {
			continue
		}
		snap.Nodes = append(snap.Nodes, NodeSnapshot{
			ID:          id,
			Archetype:   string(n.Archetype),
			Utilization: round(n.Utilization, 3),
			Latency:     round(n.Latency, 1),
			ErrorRate:   round(n.ErrorRate, 4),
			Health:      round(n.Health, 3),
			Mode:        string(n.Mode),
			Bottleneck:  graph.Bottleneck(n),
			Metrics:     graph.Compact(n.Specifics),
		})
	}
	return snap
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

// PickSeverity draws the severity of the next generated incident. Early games
// lean towards INFO and WARN and later games towards CRIT.
func PickSeverity(elapsedSeconds float64, src rng.Source) catalog.Severity {
	info, warn := 60.0, 35.0
	switch {
	case elapsedSeconds < 10*60:
	case elapsedSeconds < 30*60:
		info, warn = 35, 45
	default:
		info, warn = 20, 40
	}
	roll := src.Float64() * 100
	switch {
	case roll < info:
		return catalog.SeverityInfo
	case roll < info+warn:
		return catalog.SeverityWarn
	default:
		return catalog.SeverityCrit
	}
}

// IncidentRequest is everything the model gets when asked for an incident.
type IncidentRequest struct {
	Snapshot      Snapshot         `json:"snapshot"`
	Severity      catalog.Severity `json:"severity"`
	RecentTargets []string         `json:"recentTargets"`
}

type wireEffects struct {
	ErrorRateMultiplier   float64            `json:"errorRateMultiplier"`
	LatencyMultiplier     float64            `json:"latencyMultiplier"`
	UtilizationMultiplier float64            `json:"utilizationMultiplier"`
	HealthDecayPerSecond  float64            `json:"healthDecayPerSecond"`
	MetricDeltas          map[string]float64 `json:"metricDeltas"`
}

type wireRemediation struct {
	Name               string             `json:"name"`
	Description        string             `json:"description"`
	Cost               float64            `json:"cost"`
	Duration           float64            `json:"duration"`
	Effectiveness      float64            `json:"effectiveness"`
	MetricImprovements map[string]float64 `json:"metricImprovements"`
}

type wireIncident struct {
	ID           string            `json:"id"`
	Name         string            `json:"name"`
	Description  string            `json:"description"`
	Severity     string            `json:"severity"`
	Category     string            `json:"category"`
	TargetNodeID string            `json:"targetNodeId"`
	Logs         []string          `json:"logs"`
	Effects      *wireEffects      `json:"effects"`
	Remediations []wireRemediation `json:"remediations"`
}

// ParseIncident turns model output into an incident payload. Missing required
// fields and out-of-range values yield ErrMalformed.
func ParseIncident(b []byte) (*game.GeneratedIncident, error) {
	var w wireIncident
	if err := json.Unmarshal(b, &w); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if w.Name == "" || w.TargetNodeID == "" || w.Severity == "" || w.Effects == nil {
		return nil, fmt.Errorf("%w: missing required incident fields", ErrMalformed)
	}
	g := &game.GeneratedIncident{
		ID:          w.ID,
		Name:        w.Name,
		Description: w.Description,
		Severity:    catalog.Severity(strings.ToUpper(w.Severity)),
		Category:    strings.ToLower(w.Category),
		Target:      w.TargetNodeID,
		Logs:        w.Logs,
		Effects: catalog.IncidentEffects{
			UtilMult:     clampMult(w.Effects.UtilizationMultiplier),
			LatencyMult:  clampMult(w.Effects.LatencyMultiplier),
			ErrorMult:    clampMult(w.Effects.ErrorRateMultiplier),
			HealthDecay:  math.Max(0, math.Min(w.Effects.HealthDecayPerSecond, 0.05)),
			MetricDeltas: nonEmpty(w.Effects.MetricDeltas),
		},
		AutoResolve: autoResolveFor(catalog.Severity(strings.ToUpper(w.Severity))),
	}
	if g.Category == "" {
		g.Category = catalog.CategoryPerformance
	}
	if g.Severity == catalog.SeverityCrit {
		g.OutageAfter = critOutageAfter
	}
	for _, r := range w.Remediations {
		if r.Name == "" {
			continue
		}
		g.Suggested = append(g.Suggested, game.SuggestedAction{
			Name:          r.Name,
			Description:   r.Description,
			Cost:          math.Max(0, r.Cost),
			Duration:      math.Max(0, r.Duration),
			Effectiveness: math.Max(0, math.Min(r.Effectiveness, 1)),
			MetricDeltas:  nonEmpty(r.MetricImprovements),
		})
	}
	if err := g.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return g, nil
}

// critOutageAfter is how long a generated CRIT incident may run before its target goes down.
const critOutageAfter = 600

func autoResolveFor(sev catalog.Severity) float64 {
	switch sev {
	case catalog.SeverityCrit:
		return 1200
	case catalog.SeverityWarn:
		return 900
	default:
		return 600
	}
}

// clampMult keeps model-provided multipliers in a sane band. 0 means unset.
func clampMult(v float64) float64 {
	if v <= 0 || math.IsNaN(v) {
		return 0
	}
	return math.Min(v, 10)
}

func nonEmpty(m map[string]float64) map[string]float64 {
	if len(m) == 0 {
		return nil
	}
	return m
}

func incidentPrompt(req IncidentRequest) string {
	snap, _ := json.Marshal(req)
	var b strings.Builder
	b.WriteString("You are the chaos director of an infrastructure operations game.\n")
	b.WriteString("Invent one realistic production incident for the system below.\n")
	fmt.Fprintf(&b, "The incident MUST have severity %s and MUST target one of the listed node ids.\n", req.Severity)
	if len(req.RecentTargets) > 0 {
		fmt.Fprintf(&b, "Avoid these recently hit nodes if possible: %s.\n", strings.Join(req.RecentTargets, ", "))
	}
	b.WriteString("Reply with JSON only, shaped as:\n")
	b.WriteString(`{"id":"","name":"","description":"","severity":"INFO|WARN|CRIT","category":"performance|availability|capacity|security|data|opportunity",`)
	b.WriteString(`"targetNodeId":"","logs":[""],"effects":{"errorRateMultiplier":1,"latencyMultiplier":1,"utilizationMultiplier":1,"healthDecayPerSecond":0,"metricDeltas":{}},`)
	b.WriteString(`"remediations":[{"name":"","description":"","cost":0,"duration":0,"effectiveness":0.5,"metricImprovements":{}}]}`)
	b.WriteString("\nSystem state:\n")
	b.Write(snap)
	b.WriteString("\n")
	return b.String()
}
