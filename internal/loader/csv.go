package loader

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/flowmon-io/flowmon/internal/flow"
)

// headerAliases maps the column vocabulary of older dashboard exports onto
// the canonical field names.
var headerAliases = map[string]string{
	"flowname":           "flow_name",
	"automation_project": "project",
	"flowowner":          "owner",
	"owner":              "owner",
	"triggertype":        "trigger_type",
	"taskstatus":         "status",
	"datetimestarted":    "start_time",
	"startedon":          "start_time",
	"datetimecompleted":  "end_time",
	"duration":           "duration_seconds",
}

// loadCSV reads the whole file into memory and filters rows in-process.
// The file is an exported snapshot, small by construction.
func (l *Loader) loadCSV(path string, opts Options) (*flow.Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open csv %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1 // tolerate ragged rows; validation decides

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read csv header from %s: %w", path, err)
	}
	fields := canonicalHeader(header)

	l.logger.Debug("reading csv", "path", path, "columns", len(fields))

	ds := newDataset(flow.SourceCSV, path, dayOf(opts.Day))
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse csv %s: %w", path, err)
		}

		row := flow.RawRow{}
		for i, field := range fields {
			if field == "" || i >= len(record) {
				continue
			}
			row[field] = record[i]
		}
		applyDuration(row)
		l.ingest(ds, row, opts)
	}

	return ds, nil
}

// canonicalHeader lowercases header names and resolves legacy aliases.
// Unknown columns map to their lowercase name and are simply ignored by the
// validator.
func canonicalHeader(header []string) []string {
	fields := make([]string, len(header))
	for i, h := range header {
		key := strings.ToLower(strings.TrimSpace(h))
		if canonical, ok := headerAliases[key]; ok {
			key = canonical
		}
		fields[i] = key
	}
	return fields
}

// applyDuration coerces a raw duration_seconds column. When a finished row
// lacks an end time but carries a numeric duration, the end time is
// reconstructed from it; non-numeric input is treated as absent, never as a
// failure. Runs that have not finished keep their open end time even when the
// export wrote an elapsed duration for them.
func applyDuration(row flow.RawRow) {
	raw := strings.TrimSpace(row["duration_seconds"])
	if raw == "" || row["end_time"] != "" || row["start_time"] == "" {
		return
	}
	if !flow.ParseStatus(row["status"]).Terminal() {
		return
	}
	secs, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return
	}
	start, err := flow.ParseTimestamp(row["start_time"])
	if err != nil {
		return
	}
	end := start.Add(time.Duration(secs * float64(time.Second)))
	row["end_time"] = end.Format(time.RFC3339Nano)
}
