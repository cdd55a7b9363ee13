// Telemetry rows with greptime tags
package telemetry

import (
	"os"
	"time"
)

// MetricsRow is the global view of a session after one tick.
type MetricsRow struct {
	SessionID       string    `json:"session_id"`       // TAG
	Elapsed         float64   `json:"elapsed"`          // FIELD
	Day             int       `json:"day"`              // FIELD
	Hour            float64   `json:"hour"`             // FIELD
	Users           float64   `json:"users"`            // FIELD
	Cash            float64   `json:"cash"`             // FIELD
	Revenue         float64   `json:"revenue"`          // FIELD
	Costs           float64   `json:"costs"`            // FIELD
	Reputation      float64   `json:"reputation"`       // FIELD
	RPS             float64   `json:"rps"`              // FIELD
	ErrorRate       float64   `json:"error_rate"`       // FIELD
	LatencyP95      float64   `json:"latency_p95"`      // FIELD
	Uptime          float64   `json:"uptime"`           // FIELD
	UptimeStreak    float64   `json:"uptime_streak"`    // FIELD
	Difficulty      float64   `json:"difficulty"`       // FIELD
	TechDebt        float64   `json:"tech_debt"`        // FIELD
	AlertFatigue    float64   `json:"alert_fatigue"`    // FIELD
	Burnout         float64   `json:"burnout"`          // FIELD
	ActiveIncidents int       `json:"active_incidents"` // FIELD
	ActiveActions   int       `json:"active_actions"`   // FIELD
	GameOver        bool      `json:"game_over"`        // FIELD
	Timestamp       time.Time `json:"ts"`               // TIME INDEX
}

// NodeRow is one architecture node after one tick.
type NodeRow struct {
	SessionID   string    `json:"session_id"`  // TAG
	NodeID      string    `json:"node_id"`     // TAG
	Archetype   string    `json:"archetype"`   // TAG
	Mode        string    `json:"mode"`        // FIELD
	LoadIn      float64   `json:"load_in"`     // FIELD
	Capacity    float64   `json:"capacity"`    // FIELD
	Utilization float64   `json:"utilization"` // FIELD
	Latency     float64   `json:"latency"`     // FIELD
	ErrorRate   float64   `json:"error_rate"`  // FIELD
	Health      float64   `json:"health"`      // FIELD
	Instances   int       `json:"instances"`   // FIELD
	Timestamp   time.Time `json:"ts"`          // TIME INDEX
}

// EventRow mirrors one entry of the session event log.
type EventRow struct {
	SessionID string    `json:"session_id"` // TAG
	Kind      string    `json:"kind"`       // TAG
	Seq       int       `json:"seq"`        // FIELD
	Message   string    `json:"message"`    // FIELD
	Node      string    `json:"node"`       // FIELD
	Incident  string    `json:"incident"`   // FIELD
	Timestamp time.Time `json:"ts"`         // TIME INDEX
}

func tableName(env, def string) string {
	if v := os.Getenv(env); v != "" {
		return v
	}
	return def
}

// Table names default to uptime_* and can be overridden via GREPTIMEDB_*_TABLE.
var (
	MetricsTableName = tableName("GREPTIMEDB_TABLE", "uptime_metrics")
	NodeTableName    = tableName("GREPTIMEDB_NODE_TABLE", "uptime_nodes")
	EventTableName   = tableName("GREPTIMEDB_EVENT_TABLE", "uptime_events")
)

func (MetricsRow) TableName() string { return MetricsTableName }
func (NodeRow) TableName() string    { return NodeTableName }
func (EventRow) TableName() string   { return EventTableName }
