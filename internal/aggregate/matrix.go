package aggregate

import (
	"fmt"
	"sort"

	"github.com/flowmon-io/flowmon/internal/flow"
)

// CellNoRun marks an hour in which a flow did not run.
const CellNoRun = "No Run"

// DefaultMaxMatrixRows caps the matrix so a noisy tenant cannot swamp the
// dashboard; the most interesting flows (failures first) are kept.
const DefaultMaxMatrixRows = 300

// MatrixRow is one flow's status across the 24 hours of the dataset's day.
// Cells hold the canonical status string or CellNoRun.
type MatrixRow struct {
	DisplayName string   `json:"display_name"`
	Cells       []string `json:"cells"`
}

// Matrix is the flow-by-hour status grid. When several runs of a flow fall
// into the same hour, the cell shows the highest-priority status so a
// failure is never hidden behind a later success.
type Matrix struct {
	Hours []int       `json:"hours"`
	Rows  []MatrixRow `json:"rows"`
}

// HourlyMatrix builds the status grid from a dataset, keeping at most
// maxRows flows. Rows are ranked by how much attention they need (failures,
// then running, then volume) with name as the deterministic tie-break.
func HourlyMatrix(ds *flow.Dataset, maxRows int) *Matrix {
	if maxRows <= 0 {
		maxRows = DefaultMaxMatrixRows
	}

	type rowAgg struct {
		name  string
		cells [24]flow.Status
		score int
	}

	byName := map[string]*rowAgg{}
	for i := range ds.Records {
		rec := &ds.Records[i]
		name := displayName(rec)
		agg, ok := byName[name]
		if !ok {
			agg = &rowAgg{name: name}
			byName[name] = agg
		}

		hour := rec.StartTime.UTC().Hour()
		if rec.Status.Priority() > agg.cells[hour].Priority() {
			agg.cells[hour] = rec.Status
		}

		switch rec.Status {
		case flow.StatusFailed:
			agg.score += 100
		case flow.StatusRunning:
			agg.score += 10
		}
		agg.score++
	}

	rows := make([]*rowAgg, 0, len(byName))
	for _, agg := range byName {
		rows = append(rows, agg)
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].score != rows[j].score {
			return rows[i].score > rows[j].score
		}
		return rows[i].name < rows[j].name
	})
	if len(rows) > maxRows {
		rows = rows[:maxRows]
	}

	m := &Matrix{Hours: make([]int, 24), Rows: make([]MatrixRow, 0, len(rows))}
	for h := range m.Hours {
		m.Hours[h] = h
	}
	for _, agg := range rows {
		row := MatrixRow{DisplayName: agg.name, Cells: make([]string, 24)}
		for h, status := range agg.cells {
			if status == "" {
				row.Cells[h] = CellNoRun
			} else {
				row.Cells[h] = string(status)
			}
		}
		m.Rows = append(m.Rows, row)
	}
	return m
}

// displayName labels a matrix row: owner | project | flow name.
func displayName(r *flow.Record) string {
	return fmt.Sprintf("%s | %s | %s", r.Owner, r.Project, r.FlowName)
}
