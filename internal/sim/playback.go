package sim

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"uptime-sim/internal/telemetry"
)

// ReplayOptions control how a metrics log is played back.
type ReplayOptions struct {
	// Speed divides the simulated gap between rows. Zero or less replays
	// without delay.
	Speed float64
	// Session keeps only rows of one session when set.
	Session string
	// Sleep defaults to time.Sleep.
	Sleep func(time.Duration)
}

// ReplayLog replays metrics rows from r to writer. Delays follow the
// simulated elapsed time between rows, not their timestamps, so a log spanning
// a resume or a paused stretch plays back without long stalls.
func ReplayLog(r io.Reader, writer MetricsWriter, opts ReplayOptions) (int, error) {
	sleep := opts.Sleep
	if sleep == nil {
		sleep = time.Sleep
	}
	dec := json.NewDecoder(r)
	var prev *telemetry.MetricsRow
	n := 0
	for {
		var row telemetry.MetricsRow
		if err := dec.Decode(&row); err != nil {
			if errors.Is(err, io.EOF) {
				return n, nil
			}
			return n, fmt.Errorf("replay row %d: %w", n+1, err)
		}
		if opts.Session != "" && row.SessionID != opts.Session {
			continue
		}
		if prev != nil && opts.Speed > 0 && row.SessionID == prev.SessionID {
			if gap := row.Elapsed - prev.Elapsed; gap > 0 {
				sleep(time.Duration(gap / opts.Speed * float64(time.Second)))
			}
		}
		if err := writer.Write(row); err != nil {
			return n, err
		}
		n++
		prev = &row
	}
}

// ReplayLogFile opens a file and replays its metrics rows.
func ReplayLogFile(path string, writer MetricsWriter, opts ReplayOptions) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	return ReplayLog(f, writer, opts)
}
