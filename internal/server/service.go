// Package server exposes normalized datasets and aggregate views over a
// JSON HTTP API for the dashboard presentation layer.
package server

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/flowmon-io/flowmon/internal/config"
	"github.com/flowmon-io/flowmon/internal/flow"
	"github.com/flowmon-io/flowmon/internal/loader"
	"github.com/flowmon-io/flowmon/internal/source"
)

// Provenance describes the last completed load, for the /api/source view.
type Provenance struct {
	Source           flow.SourceKind `json:"source"`
	SourceIdentifier string          `json:"source_identifier"`
	LoadedAt         time.Time       `json:"loaded_at"`
	LoadStatus       flow.LoadStatus `json:"load_status"`
	RowCountRaw      int             `json:"row_count_raw"`
	RowCountValid    int             `json:"row_count_valid"`
}

// Service runs the load-and-aggregate cycle for API requests and the
// auto-refresher. Cycles are serialized: a load in progress must finish
// before the next one starts, so two cycles never share a file handle or
// database connection.
type Service struct {
	cfg      *config.Config
	selector *source.Selector
	loader   *loader.Loader
	logger   *slog.Logger

	// mu serializes load cycles; lastMu guards the provenance snapshot so
	// reads never block behind a running load.
	mu     sync.Mutex
	lastMu sync.RWMutex
	last   *Provenance
}

// NewService wires a Service from its collaborators.
func NewService(cfg *config.Config, sel *source.Selector, ld *loader.Loader, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Service{cfg: cfg, selector: sel, loader: ld, logger: logger}
}

// LoadDay runs one synchronous select-and-load cycle. The dataset is built
// fresh on every call; nothing is cached beyond the provenance snapshot.
func (s *Service) LoadDay(ctx context.Context, opts loader.Options) (*flow.Dataset, flow.LoadStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked(ctx, opts)
}

// TryRefresh runs a cycle for the given day unless one is already in
// flight, in which case it reports false and does nothing. Used by the
// auto-refresher so overlapping triggers are skipped, not queued.
func (s *Service) TryRefresh(ctx context.Context, opts loader.Options) bool {
	if !s.mu.TryLock() {
		s.logger.Debug("refresh skipped, load in progress")
		return false
	}
	defer s.mu.Unlock()

	if _, _, err := s.loadLocked(ctx, opts); err != nil {
		s.logger.Warn("background refresh failed", "error", err)
	}
	return true
}

func (s *Service) loadLocked(ctx context.Context, opts loader.Options) (*flow.Dataset, flow.LoadStatus, error) {
	decision, err := s.selector.Select(ctx)
	if err != nil {
		return nil, flow.LoadFailure, err
	}

	ds, status, err := s.loader.Load(ctx, decision.Descriptor, opts)
	if err != nil {
		return nil, status, err
	}

	s.lastMu.Lock()
	s.last = &Provenance{
		Source:           ds.Source,
		SourceIdentifier: ds.SourceIdentifier,
		LoadedAt:         ds.LoadedAt,
		LoadStatus:       status,
		RowCountRaw:      ds.RowCountRaw,
		RowCountValid:    ds.RowCountValid,
	}
	s.lastMu.Unlock()
	return ds, status, nil
}

// LastProvenance returns a copy of the most recent load's provenance, or
// nil when nothing has loaded yet.
func (s *Service) LastProvenance() *Provenance {
	s.lastMu.RLock()
	defer s.lastMu.RUnlock()
	if s.last == nil {
		return nil
	}
	p := *s.last
	return &p
}
