package sim

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"uptime-sim/internal/telemetry"
)

// JSONStdoutWriter prints metrics and events as JSON to STDOUT.
type JSONStdoutWriter struct {
	out io.Writer
}

// NewJSONStdoutWriter creates a JSONStdoutWriter writing to os.Stdout.
func NewJSONStdoutWriter() *JSONStdoutWriter {
	return &JSONStdoutWriter{out: os.Stdout}
}

func (w *JSONStdoutWriter) print(v any) {
	data, _ := json.Marshal(v)
	fmt.Fprintln(w.out, string(data))
}

// Write outputs a metrics row in JSON format.
func (w *JSONStdoutWriter) Write(row telemetry.MetricsRow) error {
	w.print(row)
	return nil
}

// WriteBatch outputs multiple metrics rows in JSON format.
func (w *JSONStdoutWriter) WriteBatch(rows []telemetry.MetricsRow) error {
	for _, r := range rows {
		_ = w.Write(r)
	}
	return nil
}

// WriteEvents outputs event log rows in JSON format.
func (w *JSONStdoutWriter) WriteEvents(rows []telemetry.EventRow) error {
	for _, r := range rows {
		w.print(r)
	}
	return nil
}
