// Package aggregate computes derived, read-only summary views from a
// normalized dataset. Everything here is a pure function: no I/O, and the
// input dataset is never mutated.
package aggregate

import (
	"fmt"
	"sort"

	"github.com/flowmon-io/flowmon/internal/flow"
)

// GroupBy is the dimension a view is keyed on.
type GroupBy string

// Grouping dimensions.
const (
	ByProject GroupBy = "project"
	ByStatus  GroupBy = "status"
	ByDay     GroupBy = "day"
	ByHour    GroupBy = "hour"
)

// ParseGroupBy validates a raw grouping dimension.
func ParseGroupBy(raw string) (GroupBy, error) {
	switch GroupBy(raw) {
	case ByProject, ByStatus, ByDay, ByHour:
		return GroupBy(raw), nil
	default:
		return "", fmt.Errorf("unknown group_by %q (want project, status, day, or hour)", raw)
	}
}

// Group holds the counts for one key of the grouping dimension.
type Group struct {
	Key    string              `json:"key"`
	Total  int                 `json:"total"`
	Counts map[flow.Status]int `json:"counts"`

	// SuccessRate is succeeded/(succeeded+failed); nil when the group has
	// no finished succeeded or failed runs, never zero by convention.
	SuccessRate *float64 `json:"success_rate"`
}

// View is a derived summary of a dataset along one dimension. Groups are
// ordered by descending total, ties broken by ascending key, so output is
// stable for tests and for UI rendering.
type View struct {
	GroupBy GroupBy `json:"group_by"`
	Groups  []Group `json:"groups"`
}

// Aggregate groups the dataset's records by the requested dimension and
// computes per-status counts and a success rate per group.
func Aggregate(ds *flow.Dataset, by GroupBy) (*View, error) {
	keyOf, err := keyFunc(by)
	if err != nil {
		return nil, err
	}

	buckets := map[string]*Group{}
	for i := range ds.Records {
		rec := &ds.Records[i]
		key := keyOf(rec)
		g, ok := buckets[key]
		if !ok {
			g = &Group{Key: key, Counts: map[flow.Status]int{}}
			buckets[key] = g
		}
		g.Total++
		g.Counts[rec.Status]++
	}

	view := &View{GroupBy: by, Groups: make([]Group, 0, len(buckets))}
	for _, g := range buckets {
		g.SuccessRate = successRate(g.Counts)
		view.Groups = append(view.Groups, *g)
	}

	sort.Slice(view.Groups, func(i, j int) bool {
		a, b := view.Groups[i], view.Groups[j]
		if a.Total != b.Total {
			return a.Total > b.Total
		}
		return a.Key < b.Key
	})

	return view, nil
}

func keyFunc(by GroupBy) (func(*flow.Record) string, error) {
	switch by {
	case ByProject:
		return func(r *flow.Record) string { return r.Project }, nil
	case ByStatus:
		return func(r *flow.Record) string { return string(r.Status) }, nil
	case ByDay:
		return func(r *flow.Record) string { return r.Day().Format("2006-01-02") }, nil
	case ByHour:
		return func(r *flow.Record) string { return fmt.Sprintf("%02d", r.StartTime.UTC().Hour()) }, nil
	default:
		return nil, fmt.Errorf("unknown group_by %q", by)
	}
}

// successRate returns succeeded/(succeeded+failed), or nil when the
// denominator is zero.
func successRate(counts map[flow.Status]int) *float64 {
	succeeded := counts[flow.StatusSucceeded]
	failed := counts[flow.StatusFailed]
	if succeeded+failed == 0 {
		return nil
	}
	rate := float64(succeeded) / float64(succeeded+failed)
	return &rate
}
