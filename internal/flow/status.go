package flow

import "strings"

// Status is the normalized outcome of a flow run.
type Status string

// Status constants.
const (
	StatusSucceeded Status = "Succeeded"
	StatusFailed    Status = "Failed"
	StatusRunning   Status = "Running"
	StatusCancelled Status = "Cancelled"
	StatusOther     Status = "Other"
)

// statusSynonyms maps lowercase raw status vocabulary to the canonical enum.
// Power Automate and its connectors are not consistent about status naming,
// so the mapping is tolerant of the variants seen in real run history.
var statusSynonyms = map[string]Status{
	"succeeded":  StatusSucceeded,
	"completed":  StatusSucceeded,
	"done":       StatusSucceeded,
	"failed":     StatusFailed,
	"error":      StatusFailed,
	"timedout":   StatusFailed,
	"faulted":    StatusFailed,
	"running":    StatusRunning,
	"inprogress": StatusRunning,
	"started":    StatusRunning,
	"cancelled":  StatusCancelled,
	"canceled":   StatusCancelled,
	"aborted":    StatusCancelled,
}

// ParseStatus normalizes a raw status string. Matching is case-insensitive;
// anything outside the known vocabulary maps to StatusOther rather than
// failing, so upstream vocabulary drift never invalidates a row.
func ParseStatus(raw string) Status {
	if s, ok := LookupStatus(raw); ok {
		return s
	}
	return StatusOther
}

// LookupStatus resolves a canonical status name or a known synonym,
// case-insensitively, and reports whether the value was recognized. Unlike
// ParseStatus it does not absorb unknown input, so request boundaries can
// reject typos instead of silently filtering on Other.
func LookupStatus(raw string) (Status, bool) {
	key := strings.ToLower(strings.TrimSpace(raw))
	if s, ok := statusSynonyms[key]; ok {
		return s, true
	}
	for _, s := range AllStatuses() {
		if key == strings.ToLower(string(s)) {
			return s, true
		}
	}
	return "", false
}

// Terminal reports whether the status represents a finished run.
func (s Status) Terminal() bool {
	return s == StatusSucceeded || s == StatusFailed || s == StatusCancelled
}

// AllStatuses lists the canonical statuses in display order.
func AllStatuses() []Status {
	return []Status{StatusSucceeded, StatusFailed, StatusRunning, StatusCancelled, StatusOther}
}

// statusPriority ranks statuses for cells that collapse multiple runs into
// one value (the hourly matrix). Failures dominate so a bad run is never
// hidden behind a later success in the same hour.
var statusPriority = map[Status]int{
	StatusFailed:    100,
	StatusRunning:   80,
	StatusSucceeded: 60,
	StatusCancelled: 30,
	StatusOther:     10,
}

// Priority returns the matrix collapse priority for the status.
func (s Status) Priority() int {
	return statusPriority[s]
}
