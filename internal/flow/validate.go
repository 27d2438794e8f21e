package flow

import (
	"fmt"
	"strings"
	"time"
)

// Reason classifies why a raw row failed validation.
type Reason string

// Validation failure reasons. Only hard failures exclude a row; soft issues
// (unknown status, missing end time) are normalized instead.
const (
	ReasonMissingField Reason = "missing_field"
	ReasonBadTimestamp Reason = "bad_timestamp"
)

// ValidationError is a per-row hard failure. Rows that produce one are
// excluded from the dataset and counted, never surfaced individually.
type ValidationError struct {
	Reason Reason
	Field  string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid row: %s (%s)", e.Reason, e.Field)
}

// RawRow is one untyped row as it arrives from a database scan or a CSV
// record, keyed by lowercase column name.
type RawRow map[string]string

// timestampLayouts are the textual formats accepted for start/end times.
// First successful parse wins.
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04:05.999999",
	"2006-01-02",
	"01/02/2006 15:04:05",
	"01/02/2006 3:04:05 PM",
}

// ParseTimestamp parses a raw timestamp against the known layouts.
func ParseTimestamp(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", raw)
}

// Validate coerces a raw row into a Record.
//
// Hard failures (missing flow name, status, or start time; unparseable start
// time) return a *ValidationError and exclude the row. Soft failures are
// normalized: unknown statuses map to StatusOther, an unparseable or
// out-of-order end time is dropped, a missing project is derived from the
// flow name.
func Validate(row RawRow) (*Record, error) {
	name := strings.TrimSpace(row["flow_name"])
	if name == "" {
		return nil, &ValidationError{Reason: ReasonMissingField, Field: "flow_name"}
	}

	rawStatus := strings.TrimSpace(row["status"])
	if rawStatus == "" {
		return nil, &ValidationError{Reason: ReasonMissingField, Field: "status"}
	}

	rawStart := strings.TrimSpace(row["start_time"])
	if rawStart == "" {
		return nil, &ValidationError{Reason: ReasonMissingField, Field: "start_time"}
	}
	start, err := ParseTimestamp(rawStart)
	if err != nil {
		return nil, &ValidationError{Reason: ReasonBadTimestamp, Field: "start_time"}
	}

	rec := &Record{
		FlowName:    name,
		Status:      ParseStatus(rawStatus),
		StartTime:   start,
		Owner:       normalizeOwner(row["owner"]),
		TriggerType: strings.TrimSpace(row["trigger_type"]),
	}

	// End time is optional and soft: drop it rather than fail the row when
	// it cannot be parsed or precedes the start time.
	if rawEnd := strings.TrimSpace(row["end_time"]); rawEnd != "" {
		if end, err := ParseTimestamp(rawEnd); err == nil && !end.Before(start) {
			rec.EndTime = &end
		}
	}

	rec.Project = strings.TrimSpace(row["project"])
	if rec.Project == "" {
		rec.Project = ExtractProject(name)
	}

	return rec, nil
}

// normalizeOwner tidies service-account owner names for display.
func normalizeOwner(raw string) string {
	owner := strings.TrimSpace(raw)
	if owner == "" {
		return "Unknown"
	}
	owner = strings.TrimSuffix(owner, " serviceaccount")
	words := strings.Fields(owner)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
