// Package source decides which data source a load request should use: the
// run-history database when it is reachable, otherwise the most recent
// flow_data_*.csv export found on disk.
package source

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // pgx database/sql driver

	"github.com/flowmon-io/flowmon/internal/config"
	"github.com/flowmon-io/flowmon/internal/flow"
)

// CSVPattern is the glob exported dashboard data files must match.
const CSVPattern = "flow_data_*.csv"

// ErrNoDataSource is returned when neither a reachable database nor any
// matching CSV file exists.
var ErrNoDataSource = errors.New("no data source available")

// Outcome tags the result of source selection.
type Outcome string

// Selection outcomes.
const (
	OutcomeUseDatabase   Outcome = "use_database"
	OutcomeFallbackToCSV Outcome = "fallback_to_csv"
	OutcomeUnavailable   Outcome = "unavailable"
)

// Descriptor identifies the selected source for the loader.
type Descriptor struct {
	Kind flow.SourceKind
	// CSVPath is set when Kind is SourceCSV.
	CSVPath string
}

// Identifier returns the provenance string recorded on datasets.
func (d Descriptor) Identifier() string {
	if d.Kind == flow.SourceCSV {
		return d.CSVPath
	}
	return "db"
}

// Decision is the tagged outcome of Select. When the database was rejected,
// Cause records why; it is logged, never surfaced as a hard failure.
type Decision struct {
	Outcome    Outcome
	Descriptor Descriptor
	Cause      string
}

// OpenFunc opens a database handle from a DSN. Overridable in tests.
type OpenFunc func(dsn string) (*sql.DB, error)

func pgxOpen(dsn string) (*sql.DB, error) {
	return sql.Open("pgx", dsn)
}

// Selector picks a data source for load requests. It is idempotent and has
// no side effects beyond the read-only connectivity probe.
type Selector struct {
	cfg    *config.Config
	logger *slog.Logger
	lister FileLister
	openDB OpenFunc
}

// New creates a Selector. If logger is nil, a discard logger is used.
func New(cfg *config.Config, logger *slog.Logger) *Selector {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Selector{cfg: cfg, logger: logger, lister: osLister{}, openDB: pgxOpen}
}

// WithLister replaces the file lister. Used by tests.
func (s *Selector) WithLister(l FileLister) *Selector {
	s.lister = l
	return s
}

// WithOpenFunc replaces the database opener. Used by tests.
func (s *Selector) WithOpenFunc(open OpenFunc) *Selector {
	s.openDB = open
	return s
}

// Select probes the database and falls back to CSV discovery. It returns
// ErrNoDataSource when neither source exists; every other condition is
// resolved into a Decision.
func (s *Selector) Select(ctx context.Context) (Decision, error) {
	cause := s.probeDB(ctx)
	if cause == "" {
		return Decision{
			Outcome:    OutcomeUseDatabase,
			Descriptor: Descriptor{Kind: flow.SourceDB},
		}, nil
	}
	s.logger.Warn("database unavailable, falling back to csv", "cause", cause)

	path, err := s.DiscoverCSV()
	if err != nil {
		s.logger.Error("no data source available", "db_cause", cause, "csv_error", err)
		return Decision{Outcome: OutcomeUnavailable, Cause: cause}, ErrNoDataSource
	}

	s.logger.Info("selected csv source", "path", path)
	return Decision{
		Outcome:    OutcomeFallbackToCSV,
		Descriptor: Descriptor{Kind: flow.SourceCSV, CSVPath: path},
		Cause:      cause,
	}, nil
}

// probeDB runs a lightweight connectivity check with a short timeout.
// It returns an empty string on success, otherwise the failure cause.
func (s *Selector) probeDB(ctx context.Context) string {
	db := &s.cfg.Database
	if !db.Configured() {
		return fmt.Sprintf("missing credentials: %s", strings.Join(db.MissingCredentials(), ", "))
	}

	handle, err := s.openDB(db.DSN())
	if err != nil {
		return fmt.Sprintf("open failed: %v", err)
	}
	defer func() { _ = handle.Close() }()

	pingCtx, cancel := context.WithTimeout(ctx, db.PingTimeout())
	defer cancel()

	if err := handle.PingContext(pingCtx); err != nil {
		return fmt.Sprintf("ping failed: %v", err)
	}
	return ""
}

// csvDatePattern extracts the date embedded in exported file names,
// e.g. flow_data_2024-01-05.csv.
var csvDatePattern = regexp.MustCompile(`flow_data_(\d{4}-\d{2}-\d{2})`)

// DiscoverCSV scans the configured locations for flow_data_*.csv files and
// returns the most recent one. Recency comes from the date embedded in the
// filename, falling back to modification time; ties break on the
// lexicographically greatest filename so selection is deterministic.
func (s *Selector) DiscoverCSV() (string, error) {
	var candidates []FileInfo
	for _, dir := range s.cfg.CSVSearchPaths() {
		files, err := s.lister.List(dir, CSVPattern)
		if err != nil {
			s.logger.Warn("csv search path unreadable", "dir", dir, "error", err)
			continue
		}
		candidates = append(candidates, files...)
	}

	if len(candidates) == 0 {
		return "", fmt.Errorf("no %s files found", CSVPattern)
	}

	best := candidates[0]
	bestKey := fileDate(best)
	for _, c := range candidates[1:] {
		key := fileDate(c)
		if key.After(bestKey) || (key.Equal(bestKey) && filepath.Base(c.Path) > filepath.Base(best.Path)) {
			best, bestKey = c, key
		}
	}
	return best.Path, nil
}

// fileDate returns the file's embedded date, or its modification time when
// the name carries no date.
func fileDate(f FileInfo) time.Time {
	if m := csvDatePattern.FindStringSubmatch(filepath.Base(f.Path)); m != nil {
		if t, err := time.Parse("2006-01-02", m[1]); err == nil {
			return t
		}
	}
	return f.ModTime
}
