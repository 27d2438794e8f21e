package aggregate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowmon-io/flowmon/internal/flow"
)

var day = time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)

func rec(name, project string, status flow.Status, hour int) flow.Record {
	return flow.Record{
		FlowName:  name,
		Project:   project,
		Owner:     "alice",
		Status:    status,
		StartTime: day.Add(time.Duration(hour) * time.Hour),
	}
}

func dataset(records ...flow.Record) *flow.Dataset {
	return &flow.Dataset{
		Day:           day,
		Records:       records,
		RowCountRaw:   len(records),
		RowCountValid: len(records),
	}
}

func TestParseGroupBy(t *testing.T) {
	for _, raw := range []string{"project", "status", "day", "hour"} {
		got, err := ParseGroupBy(raw)
		require.NoError(t, err)
		assert.Equal(t, GroupBy(raw), got)
	}
	_, err := ParseGroupBy("owner")
	assert.ErrorContains(t, err, "unknown group_by")
}

func TestAggregateByProject(t *testing.T) {
	ds := dataset(
		rec("Order Sync", "AMZ", flow.StatusSucceeded, 9),
		rec("Refund Check", "AMZ", flow.StatusFailed, 10),
		rec("Order Sync", "AMZ", flow.StatusSucceeded, 11),
		rec("Nightly Report", "BI", flow.StatusRunning, 2),
	)

	view, err := Aggregate(ds, ByProject)
	require.NoError(t, err)

	require.Len(t, view.Groups, 2)
	amz := view.Groups[0]
	assert.Equal(t, "AMZ", amz.Key)
	assert.Equal(t, 3, amz.Total)
	assert.Equal(t, 2, amz.Counts[flow.StatusSucceeded])
	assert.Equal(t, 1, amz.Counts[flow.StatusFailed])
	require.NotNil(t, amz.SuccessRate)
	assert.InDelta(t, 2.0/3.0, *amz.SuccessRate, 1e-9)

	bi := view.Groups[1]
	assert.Equal(t, "BI", bi.Key)
	// Only a running flow: rate is undefined, not zero.
	assert.Nil(t, bi.SuccessRate)
}

func TestAggregateOrderingIsDeterministic(t *testing.T) {
	ds := dataset(
		rec("A", "Zeta", flow.StatusSucceeded, 1),
		rec("B", "Alpha", flow.StatusSucceeded, 2),
		rec("C", "Mid", flow.StatusSucceeded, 3),
		rec("D", "Mid", flow.StatusFailed, 4),
	)

	view, err := Aggregate(ds, ByProject)
	require.NoError(t, err)

	keys := make([]string, len(view.Groups))
	for i, g := range view.Groups {
		keys[i] = g.Key
	}
	// Largest group first, then equal totals in key order.
	assert.Equal(t, []string{"Mid", "Alpha", "Zeta"}, keys)
}

func TestAggregateIsPure(t *testing.T) {
	ds := dataset(
		rec("Order Sync", "AMZ", flow.StatusSucceeded, 9),
		rec("Refund Check", "AMZ", flow.StatusFailed, 10),
	)

	first, err := Aggregate(ds, ByStatus)
	require.NoError(t, err)
	second, err := Aggregate(ds, ByStatus)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Len(t, ds.Records, 2)
	assert.Equal(t, "Order Sync", ds.Records[0].FlowName)
}

func TestAggregateByHour(t *testing.T) {
	ds := dataset(
		rec("A", "AMZ", flow.StatusSucceeded, 9),
		rec("B", "AMZ", flow.StatusSucceeded, 9),
		rec("C", "AMZ", flow.StatusFailed, 23),
	)

	view, err := Aggregate(ds, ByHour)
	require.NoError(t, err)

	require.Len(t, view.Groups, 2)
	assert.Equal(t, "09", view.Groups[0].Key)
	assert.Equal(t, 2, view.Groups[0].Total)
	assert.Equal(t, "23", view.Groups[1].Key)
}

func TestAggregateEmptyDataset(t *testing.T) {
	view, err := Aggregate(dataset(), ByProject)
	require.NoError(t, err)
	assert.Empty(t, view.Groups)
}

func TestHourlyMatrix(t *testing.T) {
	ds := dataset(
		rec("Order Sync", "AMZ", flow.StatusSucceeded, 9),
		rec("Order Sync", "AMZ", flow.StatusFailed, 9),
		rec("Order Sync", "AMZ", flow.StatusSucceeded, 11),
		rec("Nightly Report", "BI", flow.StatusSucceeded, 2),
	)

	m := HourlyMatrix(ds, 0)

	assert.Len(t, m.Hours, 24)
	require.Len(t, m.Rows, 2)

	// The flow with a failure ranks first.
	sync := m.Rows[0]
	assert.Equal(t, "alice | AMZ | Order Sync", sync.DisplayName)
	// Two runs in hour 9: the failure wins the cell.
	assert.Equal(t, string(flow.StatusFailed), sync.Cells[9])
	assert.Equal(t, string(flow.StatusSucceeded), sync.Cells[11])
	assert.Equal(t, CellNoRun, sync.Cells[10])

	report := m.Rows[1]
	assert.Equal(t, "alice | BI | Nightly Report", report.DisplayName)
	assert.Equal(t, string(flow.StatusSucceeded), report.Cells[2])
}

func TestHourlyMatrixRowCap(t *testing.T) {
	ds := dataset(
		rec("A", "AMZ", flow.StatusFailed, 1),
		rec("B", "AMZ", flow.StatusSucceeded, 2),
		rec("C", "AMZ", flow.StatusSucceeded, 3),
	)

	m := HourlyMatrix(ds, 2)

	require.Len(t, m.Rows, 2)
	// The failed flow survives the cut.
	assert.Equal(t, "alice | AMZ | A", m.Rows[0].DisplayName)
}
