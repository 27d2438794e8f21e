package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/flowmon-io/flowmon/internal/aggregate"
	"github.com/flowmon-io/flowmon/internal/flow"
	"github.com/flowmon-io/flowmon/internal/loader"
	"github.com/flowmon-io/flowmon/internal/source"
)

// Response states for the presentation layer.
const (
	stateOK     = "ok"
	stateNoData = "no_data"
	stateError  = "error"
)

type runsResponse struct {
	State      string          `json:"state"`
	LoadStatus flow.LoadStatus `json:"load_status"`
	Notice     string          `json:"notice,omitempty"`
	Dataset    *flow.Dataset   `json:"dataset,omitempty"`
}

type summaryResponse struct {
	State      string          `json:"state"`
	LoadStatus flow.LoadStatus `json:"load_status"`
	Notice     string          `json:"notice,omitempty"`
	Summary    *aggregate.View `json:"summary,omitempty"`
}

type matrixResponse struct {
	State      string            `json:"state"`
	LoadStatus flow.LoadStatus   `json:"load_status"`
	Notice     string            `json:"notice,omitempty"`
	Matrix     *aggregate.Matrix `json:"matrix,omitempty"`
}

type errorResponse struct {
	State string `json:"state"`
	Error string `json:"error"`
}

// parseOptions derives load options from request query parameters.
// date defaults to today (UTC).
func parseOptions(r *http.Request) (loader.Options, error) {
	opts := loader.Options{Day: time.Now().UTC()}

	if raw := r.URL.Query().Get("date"); raw != "" {
		day, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return opts, fmt.Errorf("invalid date %q (want YYYY-MM-DD)", raw)
		}
		opts.Day = day
	}
	opts.Project = r.URL.Query().Get("project")
	if raw := r.URL.Query().Get("status"); raw != "" {
		status, ok := flow.LookupStatus(raw)
		if !ok {
			return opts, fmt.Errorf("unknown status %q", raw)
		}
		opts.Status = status
	}
	return opts, nil
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	opts, err := parseOptions(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{State: stateError, Error: err.Error()})
		return
	}

	ds, status, err := s.service.LoadDay(r.Context(), opts)
	if err != nil {
		s.writeLoadError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, runsResponse{
		State:      stateForStatus(status),
		LoadStatus: status,
		Notice:     skippedNotice(ds),
		Dataset:    ds,
	})
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	opts, err := parseOptions(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{State: stateError, Error: err.Error()})
		return
	}

	groupBy, err := aggregate.ParseGroupBy(valueOr(r, "group_by", string(aggregate.ByProject)))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{State: stateError, Error: err.Error()})
		return
	}

	ds, status, err := s.service.LoadDay(r.Context(), opts)
	if err != nil {
		s.writeLoadError(w, err)
		return
	}

	view, err := aggregate.Aggregate(ds, groupBy)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{State: stateError, Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, summaryResponse{
		State:      stateForStatus(status),
		LoadStatus: status,
		Notice:     skippedNotice(ds),
		Summary:    view,
	})
}

func (s *Server) handleMatrix(w http.ResponseWriter, r *http.Request) {
	opts, err := parseOptions(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{State: stateError, Error: err.Error()})
		return
	}

	ds, status, err := s.service.LoadDay(r.Context(), opts)
	if err != nil {
		s.writeLoadError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, matrixResponse{
		State:      stateForStatus(status),
		LoadStatus: status,
		Notice:     skippedNotice(ds),
		Matrix:     aggregate.HourlyMatrix(ds, aggregate.DefaultMaxMatrixRows),
	})
}

func (s *Server) handleSource(w http.ResponseWriter, r *http.Request) {
	prov := s.service.LastProvenance()
	if prov == nil {
		writeJSON(w, http.StatusOK, map[string]string{"state": stateNoData})
		return
	}
	writeJSON(w, http.StatusOK, prov)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// writeLoadError maps load failures for the presentation layer. A missing
// data source is an explicit no-data state, not a crash; anything else is a
// generic failure with the detail kept in the logs.
func (s *Server) writeLoadError(w http.ResponseWriter, err error) {
	if errors.Is(err, source.ErrNoDataSource) {
		writeJSON(w, http.StatusOK, runsResponse{State: stateNoData, LoadStatus: flow.LoadFailure})
		return
	}
	s.logger.Error("load failed", "error", err)
	writeJSON(w, http.StatusInternalServerError, errorResponse{State: stateError, Error: "failed to load flow data"})
}

func stateForStatus(status flow.LoadStatus) string {
	if status == flow.LoadEmptyResult {
		return stateNoData
	}
	return stateOK
}

// skippedNotice renders the aggregate "N rows skipped" notice.
func skippedNotice(ds *flow.Dataset) string {
	if ds.RowsSkipped == 0 {
		return ""
	}
	return fmt.Sprintf("%d rows skipped", ds.RowsSkipped)
}

func valueOr(r *http.Request, key, fallback string) string {
	if v := r.URL.Query().Get(key); v != "" {
		return v
	}
	return fallback
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
