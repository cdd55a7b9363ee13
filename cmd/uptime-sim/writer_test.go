package main

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"uptime-sim/internal/config"
	"uptime-sim/internal/sim"
	"uptime-sim/internal/telemetry"
)

func discardLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestNewWritersPrintOnly(t *testing.T) {
	w, cleanup, err := newWriters(writerOptions{
		PrintOnly: true,
		Greptime:  config.GreptimeConfig{Endpoint: "greptime:4001", Database: "public"},
	}, nil, discardLogger())
	if err != nil {
		t.Fatalf("newWriters returned error: %v", err)
	}
	cleanup()
	if _, ok := w.(*sim.JSONStdoutWriter); !ok {
		t.Fatalf("expected *sim.JSONStdoutWriter, got %T", w)
	}
}

func TestNewWritersGreptimeFallback(t *testing.T) {
	w, cleanup, err := newWriters(writerOptions{}, nil, discardLogger())
	if err != nil {
		t.Fatalf("newWriters returned error: %v", err)
	}
	cleanup()
	if _, ok := w.(*sim.JSONStdoutWriter); !ok {
		t.Fatalf("expected *sim.JSONStdoutWriter, got %T", w)
	}
}

func TestNewWritersColor(t *testing.T) {
	w, cleanup, err := newWriters(writerOptions{Color: true}, nil, discardLogger())
	if err != nil {
		t.Fatalf("newWriters returned error: %v", err)
	}
	cleanup()
	if _, ok := w.(*sim.ColorStdoutWriter); !ok {
		t.Fatalf("expected *sim.ColorStdoutWriter, got %T", w)
	}
}

func TestNewWritersLogFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "metrics.log")
	w, cleanup, err := newWriters(writerOptions{LogFile: path}, nil, discardLogger())
	if err != nil {
		t.Fatalf("newWriters returned error: %v", err)
	}
	defer cleanup()
	if _, ok := w.(*sim.MultiWriter); !ok {
		t.Fatalf("expected *sim.MultiWriter, got %T", w)
	}
	row := telemetry.MetricsRow{SessionID: "s1", Users: 10, Timestamp: time.Now()}
	if err := w.Write(row); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	ew, ok := w.(sim.EventWriter)
	if !ok {
		t.Fatalf("writer does not implement EventWriter")
	}
	ev := telemetry.EventRow{SessionID: "s1", Kind: "incident", Message: "db slow", Timestamp: time.Now()}
	if err := ew.WriteEvents([]telemetry.EventRow{ev}); err != nil {
		t.Fatalf("write events failed: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat failed: %v", err)
	}
	if info.Size() == 0 {
		t.Fatalf("expected log file to be non-empty")
	}
	evInfo, err := os.Stat(path + ".events")
	if err != nil {
		t.Fatalf("stat events failed: %v", err)
	}
	if evInfo.Size() == 0 {
		t.Fatalf("expected events file to be non-empty")
	}
}

func TestNewStore(t *testing.T) {
	kv, cleanup, err := newStore(config.StoreConfig{Kind: config.StoreFile, Dir: t.TempDir()})
	if err != nil {
		t.Fatalf("file store: %v", err)
	}
	cleanup()
	if kv == nil {
		t.Fatalf("expected file store")
	}
	if _, _, err := newStore(config.StoreConfig{Kind: "s3"}); err == nil {
		t.Fatalf("expected error for unknown kind")
	}
}
