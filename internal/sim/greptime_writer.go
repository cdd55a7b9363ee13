package sim

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"strconv"

	gpb "github.com/GreptimeTeam/greptime-proto/go/greptime/v1"
	greptime "github.com/GreptimeTeam/greptimedb-ingester-go"
	"github.com/GreptimeTeam/greptimedb-ingester-go/table"
	"github.com/GreptimeTeam/greptimedb-ingester-go/table/types"

	"uptime-sim/internal/telemetry"
)

// greptimeClient is the subset of the ingester client used by the writer.
type greptimeClient interface {
	Write(ctx context.Context, tables ...*table.Table) (*gpb.GreptimeResponse, error)
}

// GreptimeDBWriter writes session telemetry to GreptimeDB via the ingester client.
type GreptimeDBWriter struct {
	client      greptimeClient
	log         *slog.Logger
	metricTable string
	nodeTable   string
	eventTable  string
}

// NewGreptimeDBWriter connects to endpoint (host or host:port) and database.
// Tables are created by the server on first write.
func NewGreptimeDBWriter(endpoint, database string, log *slog.Logger) (*GreptimeDBWriter, error) {
	host, port := endpoint, 4001
	if h, p, err := net.SplitHostPort(endpoint); err == nil {
		n, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("greptime endpoint %q: %w", endpoint, err)
		}
		host, port = h, n
	}
	cfg := greptime.NewConfig(host).WithPort(port).WithDatabase(database)
	client, err := greptime.NewClient(cfg)
	if err != nil {
		return nil, err
	}
	return NewGreptimeDBWriterWithClient(client, log), nil
}

// NewGreptimeDBWriterWithClient allows injecting a custom client (used for tests).
func NewGreptimeDBWriterWithClient(c greptimeClient, log *slog.Logger) *GreptimeDBWriter {
	if log == nil {
		log = slog.Default()
	}
	return &GreptimeDBWriter{
		client:      c,
		log:         log,
		metricTable: telemetry.MetricsTableName,
		nodeTable:   telemetry.NodeTableName,
		eventTable:  telemetry.EventTableName,
	}
}

// Write inserts a single metrics row.
func (w *GreptimeDBWriter) Write(row telemetry.MetricsRow) error {
	return w.WriteBatch([]telemetry.MetricsRow{row})
}

// WriteBatch inserts multiple metrics rows.
func (w *GreptimeDBWriter) WriteBatch(rows []telemetry.MetricsRow) error {
	if len(rows) == 0 {
		return nil
	}
	tbl, err := table.New(w.metricTable)
	if err != nil {
		return err
	}
	tbl.AddTagColumn("session_id", types.STRING)
	for _, name := range []string{"elapsed", "hour", "users", "cash", "revenue", "costs", "reputation", "rps",
		"error_rate", "latency_p95", "uptime", "uptime_streak", "difficulty", "tech_debt", "alert_fatigue", "burnout"} {
		tbl.AddFieldColumn(name, types.FLOAT64)
	}
	tbl.AddFieldColumn("day", types.INT64)
	tbl.AddFieldColumn("active_incidents", types.INT64)
	tbl.AddFieldColumn("active_actions", types.INT64)
	tbl.AddFieldColumn("game_over", types.BOOLEAN)
	tbl.AddTimestampColumn("ts", types.TIMESTAMP_MILLISECOND)

	for _, r := range rows {
		err := tbl.AddRow(r.SessionID,
			r.Elapsed, r.Hour, r.Users, r.Cash, r.Revenue, r.Costs, r.Reputation, r.RPS,
			r.ErrorRate, r.LatencyP95, r.Uptime, r.UptimeStreak, r.Difficulty, r.TechDebt, r.AlertFatigue, r.Burnout,
			int64(r.Day), int64(r.ActiveIncidents), int64(r.ActiveActions), r.GameOver, r.Timestamp)
		if err != nil {
			return err
		}
	}
	return w.flush(w.metricTable, tbl, len(rows))
}

// WriteNodes inserts per-node rows.
func (w *GreptimeDBWriter) WriteNodes(rows []telemetry.NodeRow) error {
	if len(rows) == 0 {
		return nil
	}
	tbl, err := table.New(w.nodeTable)
	if err != nil {
		return err
	}
	tbl.AddTagColumn("session_id", types.STRING)
	tbl.AddTagColumn("node_id", types.STRING)
	tbl.AddTagColumn("archetype", types.STRING)
	tbl.AddFieldColumn("mode", types.STRING)
	for _, name := range []string{"load_in", "capacity", "utilization", "latency", "error_rate", "health"} {
		tbl.AddFieldColumn(name, types.FLOAT64)
	}
	tbl.AddFieldColumn("instances", types.INT64)
	tbl.AddTimestampColumn("ts", types.TIMESTAMP_MILLISECOND)

	for _, r := range rows {
		err := tbl.AddRow(r.SessionID, r.NodeID, r.Archetype, r.Mode,
			r.LoadIn, r.Capacity, r.Utilization, r.Latency, r.ErrorRate, r.Health,
			int64(r.Instances), r.Timestamp)
		if err != nil {
			return err
		}
	}
	return w.flush(w.nodeTable, tbl, len(rows))
}

// WriteEvents inserts event log rows.
func (w *GreptimeDBWriter) WriteEvents(rows []telemetry.EventRow) error {
	if len(rows) == 0 {
		return nil
	}
	tbl, err := table.New(w.eventTable)
	if err != nil {
		return err
	}
	tbl.AddTagColumn("session_id", types.STRING)
	tbl.AddTagColumn("kind", types.STRING)
	tbl.AddFieldColumn("seq", types.INT64)
	tbl.AddFieldColumn("message", types.STRING)
	tbl.AddFieldColumn("node", types.STRING)
	tbl.AddFieldColumn("incident", types.STRING)
	tbl.AddTimestampColumn("ts", types.TIMESTAMP_MILLISECOND)

	for _, r := range rows {
		if err := tbl.AddRow(r.SessionID, r.Kind, int64(r.Seq), r.Message, r.Node, r.Incident, r.Timestamp); err != nil {
			return err
		}
	}
	return w.flush(w.eventTable, tbl, len(rows))
}

func (w *GreptimeDBWriter) flush(name string, tbl *table.Table, n int) error {
	if _, err := w.client.Write(context.Background(), tbl); err != nil {
		w.log.Error("greptime write failed", "table", name, "err", err)
		return err
	}
	w.log.Debug("greptime rows written", "table", name, "rows", n)
	return nil
}
