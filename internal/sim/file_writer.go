package sim

import (
	"encoding/json"
	"os"

	"uptime-sim/internal/telemetry"
)

// FileWriter writes metrics, node and event rows to JSONL files.
type FileWriter struct {
	metricsFile *os.File
	nodeFile    *os.File
	eventFile   *os.File
	metricsEnc  *json.Encoder
	nodeEnc     *json.Encoder
	eventEnc    *json.Encoder
}

// NewFileWriter creates a FileWriter. nodePath or eventPath may be empty to skip those logs.
func NewFileWriter(metricsPath, nodePath, eventPath string) (*FileWriter, error) {
	mf, err := os.Create(metricsPath)
	if err != nil {
		return nil, err
	}
	fw := &FileWriter{metricsFile: mf, metricsEnc: json.NewEncoder(mf)}
	if nodePath != "" {
		nf, err := os.Create(nodePath)
		if err != nil {
			fw.Close()
			return nil, err
		}
		fw.nodeFile = nf
		fw.nodeEnc = json.NewEncoder(nf)
	}
	if eventPath != "" {
		ef, err := os.Create(eventPath)
		if err != nil {
			fw.Close()
			return nil, err
		}
		fw.eventFile = ef
		fw.eventEnc = json.NewEncoder(ef)
	}
	return fw, nil
}

// Write logs a single metrics row.
func (f *FileWriter) Write(row telemetry.MetricsRow) error {
	return f.metricsEnc.Encode(row)
}

// WriteBatch logs multiple metrics rows.
func (f *FileWriter) WriteBatch(rows []telemetry.MetricsRow) error {
	for _, r := range rows {
		if err := f.Write(r); err != nil {
			return err
		}
	}
	return nil
}

// WriteNodes logs node rows, if enabled.
func (f *FileWriter) WriteNodes(rows []telemetry.NodeRow) error {
	if f.nodeEnc == nil {
		return nil
	}
	for _, r := range rows {
		if err := f.nodeEnc.Encode(r); err != nil {
			return err
		}
	}
	return nil
}

// WriteEvents logs event rows, if enabled.
func (f *FileWriter) WriteEvents(rows []telemetry.EventRow) error {
	if f.eventEnc == nil {
		return nil
	}
	for _, r := range rows {
		if err := f.eventEnc.Encode(r); err != nil {
			return err
		}
	}
	return nil
}

// Close closes any underlying files.
func (f *FileWriter) Close() error {
	var err error
	for _, file := range []*os.File{f.metricsFile, f.nodeFile, f.eventFile} {
		if file == nil {
			continue
		}
		if e := file.Close(); e != nil && err == nil {
			err = e
		}
	}
	return err
}
