// Package loader executes load requests against the selected data source,
// validates every raw row, and produces a normalized dataset with
// provenance and a load status.
package loader

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/flowmon-io/flowmon/internal/config"
	"github.com/flowmon-io/flowmon/internal/flow"
	"github.com/flowmon-io/flowmon/internal/source"
)

// Options scope a load request. Day is required; Project and Status are
// optional filters pushed down to the database when it is the source.
type Options struct {
	Day     time.Time
	Project string
	Status  flow.Status
}

// Loader fetches raw rows, validates them, and assembles datasets.
type Loader struct {
	cfg      *config.Config
	logger   *slog.Logger
	selector *source.Selector
	openDB   source.OpenFunc
}

// New creates a Loader. The selector is used for the single DB-to-CSV
// fallback retry. If logger is nil, a discard logger is used.
func New(cfg *config.Config, sel *source.Selector, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Loader{cfg: cfg, logger: logger, selector: sel, openDB: defaultOpen}
}

// WithOpenFunc replaces the database opener. Used by tests.
func (l *Loader) WithOpenFunc(open source.OpenFunc) *Loader {
	l.openDB = open
	return l
}

// Load fetches and normalizes the data behind the descriptor. A database
// failure triggers one CSV fallback attempt; CSV never retries against the
// database. Any unexpected fault is caught here and reported as a Failure
// rather than propagating to the caller.
func (l *Loader) Load(ctx context.Context, desc source.Descriptor, opts Options) (ds *flow.Dataset, status flow.LoadStatus, err error) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("load panicked", "source", desc.Kind, "panic", r)
			ds, status, err = nil, flow.LoadFailure, fmt.Errorf("unexpected load failure: %v", r)
		}
	}()

	switch desc.Kind {
	case flow.SourceDB:
		ds, err = l.loadDB(ctx, opts)
		if err != nil {
			l.logger.Warn("database load failed, retrying from csv", "error", err)
			csvPath, discoverErr := l.selector.DiscoverCSV()
			if discoverErr != nil {
				return nil, flow.LoadFailure, errors.Join(err, discoverErr)
			}
			desc = source.Descriptor{Kind: flow.SourceCSV, CSVPath: csvPath}
			ds, err = l.loadCSV(desc.CSVPath, opts)
		}
	case flow.SourceCSV:
		ds, err = l.loadCSV(desc.CSVPath, opts)
	default:
		return nil, flow.LoadFailure, fmt.Errorf("unknown source kind %q", desc.Kind)
	}

	if err != nil {
		return nil, flow.LoadFailure, err
	}

	// The database pushes these filters into the query; for CSV (and the
	// fallback path) they are applied to the validated dataset here.
	if opts.Project != "" {
		ds = ds.FilterProject(opts.Project)
	}
	if opts.Status != "" {
		ds = ds.FilterStatus(opts.Status)
	}

	status = ds.Status()
	l.logger.Info("load complete",
		"source", ds.Source,
		"source_id", ds.SourceIdentifier,
		"status", status,
		"rows_raw", ds.RowCountRaw,
		"rows_valid", ds.RowCountValid,
		"rows_skipped", ds.RowsSkipped,
	)
	return ds, status, nil
}

// newDataset builds the dataset shell with provenance stamped.
func newDataset(kind flow.SourceKind, identifier string, day time.Time) *flow.Dataset {
	return &flow.Dataset{
		ID:               uuid.New().String(),
		Source:           kind,
		SourceIdentifier: identifier,
		LoadedAt:         time.Now().UTC(),
		Day:              day,
	}
}

// ingest validates one raw row into the dataset, applying the day filter.
// Hard validation failures are counted, never surfaced individually.
func (l *Loader) ingest(ds *flow.Dataset, row flow.RawRow, opts Options) {
	ds.RowCountRaw++

	rec, err := flow.Validate(row)
	if err != nil {
		ds.RowsSkipped++
		var verr *flow.ValidationError
		if errors.As(err, &verr) {
			l.logger.Debug("row skipped", "reason", verr.Reason, "field", verr.Field)
		}
		return
	}

	if !opts.Day.IsZero() && !rec.Day().Equal(dayOf(opts.Day)) {
		return
	}

	ds.Records = append(ds.Records, *rec)
	ds.RowCountValid++
}

func dayOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
