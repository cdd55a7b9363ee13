package sim

import (
	"testing"

	"uptime-sim/internal/game"
	"uptime-sim/internal/reducer"
	"uptime-sim/internal/telemetry"
)

type plainWriter struct{ rows []telemetry.MetricsRow }

func (p *plainWriter) Write(r telemetry.MetricsRow) error {
	p.rows = append(p.rows, r)
	return nil
}

type fullWriter struct {
	plainWriter
	nodes  int
	events int
	states int
	sink   func(reducer.Command) error
	admin  bool
}

func (f *fullWriter) WriteNodes(rows []telemetry.NodeRow) error   { f.nodes += len(rows); return nil }
func (f *fullWriter) WriteEvents(rows []telemetry.EventRow) error { f.events += len(rows); return nil }
func (f *fullWriter) WriteState(*game.State) error                { f.states++; return nil }
func (f *fullWriter) SetCommandSink(fn func(reducer.Command) error) {
	f.sink = fn
}
func (f *fullWriter) SetAdminStatus(listening bool) { f.admin = listening }

func TestMultiWriterFanOut(t *testing.T) {
	p := &plainWriter{}
	f := &fullWriter{}
	mw := NewMultiWriter(p, f)

	if err := mw.WriteBatch([]telemetry.MetricsRow{{SessionID: "a"}, {SessionID: "b"}}); err != nil {
		t.Fatalf("batch: %v", err)
	}
	if len(p.rows) != 2 || len(f.rows) != 2 {
		t.Fatalf("expected both writers to get 2 rows, got %d and %d", len(p.rows), len(f.rows))
	}
	mw.WriteNodes([]telemetry.NodeRow{{NodeID: "app"}})
	mw.WriteEvents([]telemetry.EventRow{{Seq: 1}, {Seq: 2}})
	mw.WriteState(&game.State{})
	if f.nodes != 1 || f.events != 2 || f.states != 1 {
		t.Fatalf("optional rows not forwarded: %+v", f)
	}
}

func TestMultiWriterSetCommandSink(t *testing.T) {
	f := &fullWriter{}
	mw := NewMultiWriter(&plainWriter{}, f)
	mw.SetCommandSink(func(reducer.Command) error { return nil })
	if f.sink == nil {
		t.Fatalf("command sink not forwarded")
	}
	mw.SetAdminStatus(true)
	if !f.admin {
		t.Fatalf("admin status not forwarded")
	}
}
