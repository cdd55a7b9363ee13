// ColorStdoutWriter prints human-friendly, colorized session output to STDOUT.
package sim

import (
	"fmt"
	"io"
	"os"
	"sync"
	"text/tabwriter"
	"time"

	"uptime-sim/internal/game"
	"uptime-sim/internal/telemetry"
)

const (
	colorReset   = "\x1b[0m"
	colorRed     = "\x1b[31m"
	colorGreen   = "\x1b[32m"
	colorYellow  = "\x1b[33m"
	colorBlue    = "\x1b[34m"
	colorMagenta = "\x1b[35m"
	colorCyan    = "\x1b[36m"
	colorGray    = "\x1b[90m"
)

func colorWhite() string { return "\x1b[37m" }

// ColorStdoutWriter prints metrics rows using ANSI colors.
type ColorStdoutWriter struct {
	out  io.Writer
	once sync.Once
}

// NewColorStdoutWriter creates a ColorStdoutWriter writing to os.Stdout.
func NewColorStdoutWriter() *ColorStdoutWriter {
	return &ColorStdoutWriter{out: os.Stdout}
}

func (w *ColorStdoutWriter) printOverview(st *game.State) {
	fmt.Fprintln(w.out, "Session:")
	tw := tabwriter.NewWriter(w.out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Seed:\t%s\n", st.Seed)
	fmt.Fprintf(tw, "Cash:\t%.0f\n", st.Cash)
	fmt.Fprintf(tw, "Users:\t%.0f\n", st.Users)
	fmt.Fprintf(tw, "Pricing:\t%.2f\n", st.Pricing)
	fmt.Fprintf(tw, "Reputation:\t%.0f\n", st.Reputation)
	tw.Flush()

	fmt.Fprintln(w.out, "\nArchitecture:")
	tw = tabwriter.NewWriter(w.out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "ID\tArchetype\tCapacity\tStatus\n")
	for _, id := range st.Graph.SortedIDs() {
		n := st.Graph.Nodes[id]
		status := colorGreen + "active" + colorReset
		if n.Locked {
			status = colorGray + "locked" + colorReset
		} else if !n.Enabled {
			status = colorYellow + "disabled" + colorReset
		}
		fmt.Fprintf(tw, "%s\t%s\t%.0f\t%s\n", id, n.Archetype, n.EffectiveCapacity(), status)
	}
	tw.Flush()
	fmt.Fprintln(w.out)
}

// WriteState prints the session overview once.
func (w *ColorStdoutWriter) WriteState(st *game.State) error {
	w.once.Do(func() { w.printOverview(st) })
	return nil
}

// Write outputs a single metrics row in colorized format.
func (w *ColorStdoutWriter) Write(row telemetry.MetricsRow) error {
	uptimeColor := colorGreen
	switch {
	case row.Uptime < 0.9:
		uptimeColor = colorRed
	case row.Uptime < 0.99:
		uptimeColor = colorYellow
	}
	cashColor := colorGreen
	if row.Cash < 0 {
		cashColor = colorRed
	}

	fmt.Fprintf(w.out, "%s[%s]%s ", colorGray, row.Timestamp.Format(time.RFC3339), colorReset)
	fmt.Fprintf(w.out, "%sday=%d %05.2fh%s ", colorBlue, row.Day, row.Hour, colorReset)
	fmt.Fprintf(w.out, "%susers=%.0f%s ", colorWhite(), row.Users, colorReset)
	fmt.Fprintf(w.out, "%scash=%.0f%s ", cashColor, row.Cash, colorReset)
	fmt.Fprintf(w.out, "%srep=%.1f%s ", colorMagenta, row.Reputation, colorReset)
	fmt.Fprintf(w.out, "%srps=%.1f%s ", colorCyan, row.RPS, colorReset)
	fmt.Fprintf(w.out, "%serr=%.3f%s ", colorYellow, row.ErrorRate, colorReset)
	fmt.Fprintf(w.out, "%sp95=%.0fms%s ", colorCyan, row.LatencyP95, colorReset)
	fmt.Fprintf(w.out, "%suptime=%.3f%s ", uptimeColor, row.Uptime, colorReset)
	fmt.Fprintf(w.out, "%sincidents=%d%s", colorRed, row.ActiveIncidents, colorReset)
	if row.GameOver {
		fmt.Fprintf(w.out, " %sGAME OVER%s", colorRed, colorReset)
	}
	fmt.Fprintln(w.out)
	return nil
}

// WriteBatch outputs multiple metrics rows.
func (w *ColorStdoutWriter) WriteBatch(rows []telemetry.MetricsRow) error {
	for _, r := range rows {
		_ = w.Write(r)
	}
	return nil
}

// WriteEvents prints event log entries.
func (w *ColorStdoutWriter) WriteEvents(rows []telemetry.EventRow) error {
	for _, e := range rows {
		fmt.Fprintf(w.out, "%s[%s]%s %s%s%s %s\n",
			colorGray, e.Timestamp.Format(time.RFC3339), colorReset,
			eventColor(e.Kind), e.Kind, colorReset, e.Message)
	}
	return nil
}

func eventColor(kind string) string {
	switch kind {
	case "incident", "outage", "game_over":
		return colorRed
	case "resolved", "unlock":
		return colorGreen
	case "action", "architecture":
		return colorBlue
	case "autoscale", EventKindTask:
		return colorCyan
	case EventKindScenario:
		return colorMagenta
	default:
		return colorYellow
	}
}
