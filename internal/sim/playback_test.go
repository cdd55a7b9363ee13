package sim

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"uptime-sim/internal/telemetry"
)

type collectWriter struct{ rows []telemetry.MetricsRow }

func (c *collectWriter) Write(r telemetry.MetricsRow) error {
	c.rows = append(c.rows, r)
	return nil
}

func encodeRows(t *testing.T, rows []telemetry.MetricsRow) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, r := range rows {
		if err := enc.Encode(r); err != nil {
			t.Fatalf("encode: %v", err)
		}
	}
	return &buf
}

func TestReplayLog(t *testing.T) {
	rows := []telemetry.MetricsRow{
		{SessionID: "s1", Elapsed: 60, Timestamp: time.Unix(0, 0)},
		{SessionID: "s2", Elapsed: 5, Timestamp: time.Unix(0, 0)},
		{SessionID: "s1", Elapsed: 180, Timestamp: time.Unix(120, 0)},
	}
	var slept []time.Duration
	cw := &collectWriter{}
	n, err := ReplayLog(encodeRows(t, rows), cw, ReplayOptions{
		Speed:   60,
		Session: "s1",
		Sleep:   func(d time.Duration) { slept = append(slept, d) },
	})
	if err != nil {
		t.Fatalf("ReplayLog: %v", err)
	}
	if n != 2 || len(cw.rows) != 2 {
		t.Fatalf("expected 2 rows of s1, got %d", n)
	}
	if cw.rows[1].Elapsed != 180 {
		t.Fatalf("row mismatch: %+v", cw.rows[1])
	}
	if len(slept) != 1 || slept[0] != 2*time.Second {
		t.Fatalf("expected one 2s delay, got %v", slept)
	}
}

func TestReplayLogNoDelay(t *testing.T) {
	rows := []telemetry.MetricsRow{{SessionID: "s1", Elapsed: 1}, {SessionID: "s1", Elapsed: 500}}
	cw := &collectWriter{}
	n, err := ReplayLog(encodeRows(t, rows), cw, ReplayOptions{
		Sleep: func(time.Duration) { t.Fatalf("speed 0 must not sleep") },
	})
	if err != nil || n != 2 {
		t.Fatalf("ReplayLog: n=%d err=%v", n, err)
	}
}

func TestReplayLogBadInput(t *testing.T) {
	if _, err := ReplayLog(strings.NewReader("{not json"), &collectWriter{}, ReplayOptions{}); err == nil {
		t.Fatalf("expected decode error")
	}
}

func TestReplayLogFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "metrics.log")
	buf := encodeRows(t, []telemetry.MetricsRow{{SessionID: "s1", Elapsed: 1}})
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	cw := &collectWriter{}
	if n, err := ReplayLogFile(path, cw, ReplayOptions{}); err != nil || n != 1 {
		t.Fatalf("ReplayLogFile: n=%d err=%v", n, err)
	}
	if _, err := ReplayLogFile(filepath.Join(t.TempDir(), "missing.log"), cw, ReplayOptions{}); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
