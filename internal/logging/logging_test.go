package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		" WARN ":  slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"chatty":  slog.LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestContextRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	l := NewTo(&buf, slog.LevelWarn)
	ctx := NewContext(context.Background(), l)
	FromContext(ctx).Info("hidden")
	FromContext(ctx).Warn("shown", "node", "db")
	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("info should be filtered: %q", out)
	}
	if !strings.Contains(out, "shown") || !strings.Contains(out, "node=db") {
		t.Fatalf("unexpected output %q", out)
	}
	if FromContext(context.Background()) != slog.Default() {
		t.Fatalf("expected default logger without one in context")
	}
}
