package flow

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseStatus(t *testing.T) {
	tests := []struct {
		raw  string
		want Status
	}{
		{"Succeeded", StatusSucceeded},
		{"succeeded", StatusSucceeded},
		{"SUCCEEDED", StatusSucceeded},
		{"Completed", StatusSucceeded},
		{"Failed", StatusFailed},
		{"TimedOut", StatusFailed},
		{"Running", StatusRunning},
		{"InProgress", StatusRunning},
		{"Canceled", StatusCancelled},
		{"Cancelled", StatusCancelled},
		{"weirdstate", StatusOther},
		{"", StatusOther},
		{"  Failed  ", StatusFailed},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseStatus(tt.raw))
		})
	}
}

func TestLookupStatus(t *testing.T) {
	tests := []struct {
		raw    string
		want   Status
		wantOK bool
	}{
		{"Succeeded", StatusSucceeded, true},
		{"completed", StatusSucceeded, true},
		{"other", StatusOther, true},
		{"  running  ", StatusRunning, true},
		{"weirdstate", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, ok := LookupStatus(tt.raw)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStatusPriority(t *testing.T) {
	// A failure must outrank everything else in matrix cells.
	for _, s := range AllStatuses() {
		if s == StatusFailed {
			continue
		}
		assert.Greater(t, StatusFailed.Priority(), s.Priority(), "Failed should outrank %s", s)
	}
	// Every real status outranks the empty no-run cell.
	assert.Greater(t, StatusOther.Priority(), Status("").Priority())
}

func TestExtractProject(t *testing.T) {
	tests := []struct {
		flowName string
		want     string
	}{
		{"AMZ - Order Processing", "AMZ"},
		{"C2D_Data_Sync", "C2D"},
		{"InvoiceArchiver daily", "Invoice"},
		{"Reporting nightly batch", "Reporting"},
		{"run WF check", "WF"},
		{"123 456", "Unknown"},
		{"", "Unknown"},
		{"   ", "Unknown"},
	}
	for _, tt := range tests {
		t.Run(tt.flowName, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractProject(tt.flowName))
		})
	}
}
