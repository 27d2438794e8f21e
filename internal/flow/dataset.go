package flow

import "time"

// SourceKind identifies where a dataset was loaded from.
type SourceKind string

// Source kinds.
const (
	SourceDB  SourceKind = "db"
	SourceCSV SourceKind = "csv"
)

// LoadStatus summarizes the outcome of one load request.
type LoadStatus string

// Load statuses.
const (
	// LoadSuccess means every raw row validated and at least one matched.
	LoadSuccess LoadStatus = "success"
	// LoadPartialSuccess means some rows were skipped by validation.
	LoadPartialSuccess LoadStatus = "partial_success"
	// LoadEmptyResult means no rows matched the request; not an error.
	LoadEmptyResult LoadStatus = "empty_result"
	// LoadFailure means the source was unreachable or unreadable.
	LoadFailure LoadStatus = "failure"
)

// Dataset is an ordered sequence of validated records plus provenance.
// A dataset is built fresh on every load request and never mutated; filters
// produce new derived datasets.
type Dataset struct {
	ID               string     `json:"id"`
	Source           SourceKind `json:"source"`
	SourceIdentifier string     `json:"source_identifier"`
	LoadedAt         time.Time  `json:"loaded_at"`
	Day              time.Time  `json:"day"`
	RowCountRaw      int        `json:"row_count_raw"`
	RowCountValid    int        `json:"row_count_valid"`
	RowsSkipped      int        `json:"rows_skipped"`
	Records          []Record   `json:"records"`
}

// Status derives the load status for a dataset that was read successfully.
// Source-level failures never reach this point; the loader reports those as
// LoadFailure directly.
func (d *Dataset) Status() LoadStatus {
	switch {
	case d.RowCountRaw == 0:
		return LoadEmptyResult
	case d.RowsSkipped > 0:
		return LoadPartialSuccess
	case d.RowCountValid == 0:
		return LoadEmptyResult
	default:
		return LoadSuccess
	}
}

// FilterProject returns a derived dataset holding only records for the given
// project. The receiver is left untouched.
func (d *Dataset) FilterProject(project string) *Dataset {
	return d.filter(func(r *Record) bool { return r.Project == project })
}

// FilterStatus returns a derived dataset holding only records with the given
// status.
func (d *Dataset) FilterStatus(status Status) *Dataset {
	return d.filter(func(r *Record) bool { return r.Status == status })
}

func (d *Dataset) filter(keep func(*Record) bool) *Dataset {
	out := *d
	out.Records = make([]Record, 0, len(d.Records))
	for i := range d.Records {
		if keep(&d.Records[i]) {
			out.Records = append(out.Records, d.Records[i])
		}
	}
	out.RowCountValid = len(out.Records)
	return &out
}
