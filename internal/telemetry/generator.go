package telemetry

import (
	"time"

	"uptime-sim/internal/game"
)

// Generator turns session states into telemetry rows.
type Generator struct {
	SessionID string
}

// NewGenerator creates a generator tagging rows with sessionID.
func NewGenerator(sessionID string) *Generator {
	return &Generator{SessionID: sessionID}
}

// Timestamp is the simulated wall clock of st.
func Timestamp(st *game.State) time.Time {
	return time.UnixMilli(st.Now()).UTC()
}

// Metrics returns the global row for st.
func (g *Generator) Metrics(st *game.State) MetricsRow {
	return MetricsRow{
		SessionID:       g.SessionID,
		Elapsed:         st.Elapsed,
		Day:             st.Day,
		Hour:            st.Hour,
		Users:           st.Users,
		Cash:            st.Cash,
		Revenue:         st.Revenue,
		Costs:           st.Costs,
		Reputation:      st.Reputation,
		RPS:             st.Ingress,
		ErrorRate:       st.ErrorRate,
		LatencyP95:      st.LatencyP95,
		Uptime:          st.Uptime,
		UptimeStreak:    st.UptimeStreak,
		Difficulty:      st.Difficulty,
		TechDebt:        st.TechDebt,
		AlertFatigue:    st.AlertFatigue,
		Burnout:         st.Burnout,
		ActiveIncidents: len(st.Incidents),
		ActiveActions:   len(st.Actions),
		GameOver:        st.GameOver,
		Timestamp:       Timestamp(st),
	}
}

// Nodes returns one row per node that takes part in propagation, ordered by id.
func (g *Generator) Nodes(st *game.State) []NodeRow {
	ts := Timestamp(st)
	var rows []NodeRow
	for _, id := range st.Graph.SortedIDs() {
		n := st.Graph.Nodes[id]
		if !n.Active() {
			continue
		}
		rows = append(rows, NodeRow{
			SessionID:   g.SessionID,
			NodeID:      id,
			Archetype:   string(n.Archetype),
			Mode:        string(n.Mode),
			LoadIn:      n.LoadIn,
			Capacity:    n.EffectiveCapacity(),
			Utilization: n.Utilization,
			Latency:     n.Latency,
			ErrorRate:   n.ErrorRate,
			Health:      n.Health,
			Instances:   n.Scaling.Current,
			Timestamp:   ts,
		})
	}
	return rows
}

// Events returns the log entries newer than afterSeq.
func (g *Generator) Events(st *game.State, afterSeq int) []EventRow {
	var rows []EventRow
	for _, e := range st.Events {
		if e.Seq <= afterSeq {
			continue
		}
		rows = append(rows, EventRow{
			SessionID: g.SessionID,
			Kind:      e.Kind,
			Seq:       e.Seq,
			Message:   e.Message,
			Node:      e.Node,
			Incident:  e.Incident,
			Timestamp: time.UnixMilli(st.StartedAtMs + int64(e.At*1000)).UTC(),
		})
	}
	return rows
}
