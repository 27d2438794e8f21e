package server

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/flowmon-io/flowmon/internal/config"
	"github.com/flowmon-io/flowmon/internal/loader"
	"github.com/flowmon-io/flowmon/internal/source"
)

// debounceDelay coalesces bursts of filesystem events into one refresh.
const debounceDelay = 500 * time.Millisecond

// Refresher re-runs the load cycle for the current day on a fixed interval,
// and, when watching is enabled, whenever a flow_data CSV changes on disk.
// Triggers that arrive while a cycle is running are skipped: the cycle in
// progress must complete before the next one starts.
type Refresher struct {
	cfg     *config.Config
	service *Service
	logger  *slog.Logger
}

// NewRefresher creates a Refresher.
func NewRefresher(cfg *config.Config, service *Service, logger *slog.Logger) *Refresher {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Refresher{cfg: cfg, service: service, logger: logger}
}

// Run blocks until the context is cancelled.
func (r *Refresher) Run(ctx context.Context) error {
	var fsEvents <-chan fsnotify.Event
	var fsErrors <-chan error
	if r.cfg.Server.Watch {
		watcher, err := fsnotify.NewWatcher()
		if err != nil {
			return err
		}
		defer func() { _ = watcher.Close() }()

		for _, dir := range r.cfg.CSVSearchPaths() {
			if err := watcher.Add(dir); err != nil {
				r.logger.Warn("cannot watch csv directory", "dir", dir, "error", err)
			}
		}
		fsEvents = watcher.Events
		fsErrors = watcher.Errors
	}

	return r.loop(ctx, fsEvents, fsErrors)
}

// loop runs the trigger select. The watcher's Errors channel must be drained
// here: fsnotify stops delivering events while an error send is pending.
func (r *Refresher) loop(ctx context.Context, fsEvents <-chan fsnotify.Event, fsErrors <-chan error) error {
	ticker := time.NewTicker(r.cfg.Server.RefreshInterval())
	defer ticker.Stop()

	var debounce <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return nil

		case <-ticker.C:
			r.refresh(ctx, "interval")

		case event := <-fsEvents:
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if ok, _ := filepath.Match(source.CSVPattern, filepath.Base(event.Name)); !ok {
				continue
			}
			r.logger.Debug("csv change detected", "file", event.Name)
			debounce = time.After(debounceDelay)

		case err := <-fsErrors:
			r.logger.Error("csv watch error", "error", err)

		case <-debounce:
			debounce = nil
			r.refresh(ctx, "csv_change")
		}
	}
}

func (r *Refresher) refresh(ctx context.Context, trigger string) {
	r.logger.Debug("refresh triggered", "trigger", trigger)
	r.service.TryRefresh(ctx, loader.Options{Day: time.Now().UTC()})
}
