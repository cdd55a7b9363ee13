package sim

import (
	"uptime-sim/internal/game"
	"uptime-sim/internal/reducer"
	"uptime-sim/internal/telemetry"
)

// MultiWriter fans rows out to multiple writers. Optional row kinds only reach
// the writers that implement them.
type MultiWriter struct {
	writers []MetricsWriter
}

// NewMultiWriter creates a new MultiWriter.
func NewMultiWriter(ws ...MetricsWriter) *MultiWriter {
	return &MultiWriter{writers: ws}
}

// Write sends a metrics row to all writers.
func (mw *MultiWriter) Write(row telemetry.MetricsRow) error {
	for _, w := range mw.writers {
		if err := w.Write(row); err != nil {
			return err
		}
	}
	return nil
}

// WriteBatch sends multiple rows to all writers, using batch if supported.
func (mw *MultiWriter) WriteBatch(rows []telemetry.MetricsRow) error {
	for _, w := range mw.writers {
		if bw, ok := w.(batchWriter); ok {
			if err := bw.WriteBatch(rows); err != nil {
				return err
			}
			continue
		}
		for _, r := range rows {
			if err := w.Write(r); err != nil {
				return err
			}
		}
	}
	return nil
}

// WriteNodes sends node rows to every NodeWriter.
func (mw *MultiWriter) WriteNodes(rows []telemetry.NodeRow) error {
	for _, w := range mw.writers {
		if nw, ok := w.(NodeWriter); ok {
			if err := nw.WriteNodes(rows); err != nil {
				return err
			}
		}
	}
	return nil
}

// WriteEvents sends event rows to every EventWriter.
func (mw *MultiWriter) WriteEvents(rows []telemetry.EventRow) error {
	for _, w := range mw.writers {
		if ew, ok := w.(EventWriter); ok {
			if err := ew.WriteEvents(rows); err != nil {
				return err
			}
		}
	}
	return nil
}

// WriteState forwards the state to every StateWriter.
func (mw *MultiWriter) WriteState(st *game.State) error {
	for _, w := range mw.writers {
		if sw, ok := w.(StateWriter); ok {
			if err := sw.WriteState(st); err != nil {
				return err
			}
		}
	}
	return nil
}

// SetCommandSink forwards the sink to writers accepting commands.
func (mw *MultiWriter) SetCommandSink(fn func(reducer.Command) error) {
	for _, w := range mw.writers {
		if cs, ok := w.(CommandSource); ok {
			cs.SetCommandSink(fn)
		}
	}
}

// SetAdminStatus forwards admin status updates.
func (mw *MultiWriter) SetAdminStatus(listening bool) {
	for _, w := range mw.writers {
		if as, ok := w.(AdminStatusWriter); ok {
			as.SetAdminStatus(listening)
		}
	}
}
