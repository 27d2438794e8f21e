// Package flow defines the canonical shape of a flow-run record and the
// validation that turns raw rows from a database or CSV file into one.
package flow

import "time"

// Record is one execution event of a cloud flow, normalized into the
// canonical schema. Records are produced by the Validator and never mutated
// afterwards; derived views copy what they need.
type Record struct {
	FlowName    string     `json:"flow_name"`
	Project     string     `json:"project"`
	Owner       string     `json:"owner,omitempty"`
	TriggerType string     `json:"trigger_type,omitempty"`
	Status      Status     `json:"status"`
	StartTime   time.Time  `json:"start_time"`
	EndTime     *time.Time `json:"end_time,omitempty"`
}

// DurationSeconds returns end minus start in seconds, or nil while the run
// has no end time.
func (r *Record) DurationSeconds() *float64 {
	if r.EndTime == nil {
		return nil
	}
	d := r.EndTime.Sub(r.StartTime).Seconds()
	return &d
}

// Day returns the record's start date truncated to midnight UTC, the bucket
// used for date filtering and date grouping.
func (r *Record) Day() time.Time {
	y, m, d := r.StartTime.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
