package sim

import (
	"context"
	"errors"
	"testing"
	"time"

	gpb "github.com/GreptimeTeam/greptime-proto/go/greptime/v1"
	"github.com/GreptimeTeam/greptimedb-ingester-go/table"

	"uptime-sim/internal/telemetry"
)

type mockGreptimeClient struct {
	table *table.Table
	err   error
}

func (m *mockGreptimeClient) Write(ctx context.Context, tables ...*table.Table) (*gpb.GreptimeResponse, error) {
	if len(tables) > 0 {
		m.table = tables[0]
	}
	return &gpb.GreptimeResponse{}, m.err
}

func TestGreptimeWriterMetrics(t *testing.T) {
	ts := time.Unix(0, 0).UTC()
	m := &mockGreptimeClient{}
	w := NewGreptimeDBWriterWithClient(m, nil)

	rows := []telemetry.MetricsRow{{SessionID: "s1", Users: 1000, Day: 2, GameOver: true, Timestamp: ts}}
	if err := w.WriteBatch(rows); err != nil {
		t.Fatalf("WriteBatch: %v", err)
	}
	if m.table == nil {
		t.Fatalf("expected table to be captured")
	}
	got := m.table.GetRows()
	if len(got.Rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(got.Rows))
	}
	if got.Schema[0].ColumnName != "session_id" || got.Schema[0].SemanticType != gpb.SemanticType_TAG {
		t.Fatalf("unexpected first column %+v", got.Schema[0])
	}
	if v := got.Rows[0].Values[0].GetStringValue(); v != "s1" {
		t.Fatalf("session_id = %s, want s1", v)
	}
	if v := got.Rows[0].Values[3].GetF64Value(); v != 1000 {
		t.Fatalf("users = %v, want 1000", v)
	}
}

func TestGreptimeWriterNodesAndEvents(t *testing.T) {
	ts := time.Unix(0, 0).UTC()
	m := &mockGreptimeClient{}
	w := NewGreptimeDBWriterWithClient(m, nil)

	if err := w.WriteNodes([]telemetry.NodeRow{{SessionID: "s", NodeID: "app", Archetype: "app", Mode: "normal", Instances: 2, Timestamp: ts}}); err != nil {
		t.Fatalf("WriteNodes: %v", err)
	}
	if v := m.table.GetRows().Rows[0].Values[1].GetStringValue(); v != "app" {
		t.Fatalf("node_id = %s, want app", v)
	}

	if err := w.WriteEvents([]telemetry.EventRow{{SessionID: "s", Kind: "outage", Seq: 4, Message: "down", Timestamp: ts}}); err != nil {
		t.Fatalf("WriteEvents: %v", err)
	}
	if v := m.table.GetRows().Rows[0].Values[2].GetI64Value(); v != 4 {
		t.Fatalf("seq = %d, want 4", v)
	}
}

func TestGreptimeWriterErrorsAndEmpty(t *testing.T) {
	m := &mockGreptimeClient{err: errors.New("unavailable")}
	w := NewGreptimeDBWriterWithClient(m, nil)
	if err := w.WriteBatch(nil); err != nil || m.table != nil {
		t.Fatalf("empty batch should not write")
	}
	if err := w.Write(telemetry.MetricsRow{SessionID: "s", Timestamp: time.Unix(0, 0)}); err == nil {
		t.Fatalf("expected client error to surface")
	}
}
