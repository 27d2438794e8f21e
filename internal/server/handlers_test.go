package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowmon-io/flowmon/internal/config"
	"github.com/flowmon-io/flowmon/internal/flow"
	"github.com/flowmon-io/flowmon/internal/loader"
	"github.com/flowmon-io/flowmon/internal/source"
	"github.com/flowmon-io/flowmon/internal/testutil"
)

const sampleCSV = "flow_name,project,owner,trigger_type,status,start_time,end_time\n" +
	"AMZ - Order Sync,AMZ,alice,Scheduled,Succeeded,2024-01-05T09:00:00Z,2024-01-05T09:05:00Z\n" +
	"AMZ - Refund Check,AMZ,alice,Scheduled,Failed,2024-01-05T10:00:00Z,2024-01-05T10:01:00Z\n" +
	",AMZ,alice,Scheduled,Succeeded,2024-01-05T11:00:00Z,\n"

// newTestServer wires a server against a CSV-only temp workspace. When csv is
// empty, no data source exists at all.
func newTestServer(t *testing.T, csv string) (*httptest.Server, *Service) {
	t.Helper()

	cfg := &config.Config{ProjectRoot: t.TempDir(), DataDir: "data"}
	cfg.ApplyDefaults()
	if csv != "" {
		path := filepath.Join(cfg.ProjectRoot, "flow_data_2024-01-05.csv")
		require.NoError(t, os.WriteFile(path, []byte(csv), 0o644))
	}

	logger := testutil.NewTestLogger(t)
	sel := source.New(cfg, logger)
	svc := NewService(cfg, sel, loader.New(cfg, sel, logger), logger)

	ts := httptest.NewServer(NewServer(cfg, svc, logger).Routes())
	t.Cleanup(ts.Close)
	return ts, svc
}

func getJSON(t *testing.T, url string, out any) int {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	return resp.StatusCode
}

func TestHandleRuns(t *testing.T) {
	ts, _ := newTestServer(t, sampleCSV)

	var resp runsResponse
	code := getJSON(t, ts.URL+"/api/runs?date=2024-01-05", &resp)

	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, stateOK, resp.State)
	assert.Equal(t, flow.LoadPartialSuccess, resp.LoadStatus)
	assert.Equal(t, "1 rows skipped", resp.Notice)
	require.NotNil(t, resp.Dataset)
	assert.Len(t, resp.Dataset.Records, 2)
	assert.Equal(t, flow.SourceCSV, resp.Dataset.Source)
}

func TestHandleRunsBadDate(t *testing.T) {
	ts, _ := newTestServer(t, sampleCSV)

	var resp errorResponse
	code := getJSON(t, ts.URL+"/api/runs?date=yesterday", &resp)

	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, stateError, resp.State)
	assert.Contains(t, resp.Error, "invalid date")
}

func TestHandleRunsStatusFilter(t *testing.T) {
	ts, _ := newTestServer(t, sampleCSV)

	var resp runsResponse
	code := getJSON(t, ts.URL+"/api/runs?date=2024-01-05&status=failed", &resp)

	assert.Equal(t, http.StatusOK, code)
	require.NotNil(t, resp.Dataset)
	require.Len(t, resp.Dataset.Records, 1)
	assert.Equal(t, flow.StatusFailed, resp.Dataset.Records[0].Status)
}

func TestHandleRunsUnknownStatus(t *testing.T) {
	ts, _ := newTestServer(t, sampleCSV)

	var resp errorResponse
	code := getJSON(t, ts.URL+"/api/runs?date=2024-01-05&status=bogus", &resp)

	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, stateError, resp.State)
	assert.Contains(t, resp.Error, "unknown status")
}

func TestHandleRunsNoDataSource(t *testing.T) {
	ts, _ := newTestServer(t, "")

	var resp runsResponse
	code := getJSON(t, ts.URL+"/api/runs?date=2024-01-05", &resp)

	// A missing source is an explicit state, never a 5xx.
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, stateNoData, resp.State)
	assert.Equal(t, flow.LoadFailure, resp.LoadStatus)
	assert.Nil(t, resp.Dataset)
}

func TestHandleSummary(t *testing.T) {
	ts, _ := newTestServer(t, sampleCSV)

	var resp summaryResponse
	code := getJSON(t, ts.URL+"/api/summary?date=2024-01-05&group_by=status", &resp)

	assert.Equal(t, http.StatusOK, code)
	require.NotNil(t, resp.Summary)
	assert.Len(t, resp.Summary.Groups, 2)
}

func TestHandleSummaryUnknownGroupBy(t *testing.T) {
	ts, _ := newTestServer(t, sampleCSV)

	var resp errorResponse
	code := getJSON(t, ts.URL+"/api/summary?date=2024-01-05&group_by=owner", &resp)

	assert.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, resp.Error, "unknown group_by")
}

func TestHandleMatrix(t *testing.T) {
	ts, _ := newTestServer(t, sampleCSV)

	var resp matrixResponse
	code := getJSON(t, ts.URL+"/api/matrix?date=2024-01-05", &resp)

	assert.Equal(t, http.StatusOK, code)
	require.NotNil(t, resp.Matrix)
	assert.Len(t, resp.Matrix.Hours, 24)
	require.Len(t, resp.Matrix.Rows, 2)
}

func TestHandleSource(t *testing.T) {
	ts, _ := newTestServer(t, sampleCSV)

	var before map[string]string
	code := getJSON(t, ts.URL+"/api/source", &before)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, stateNoData, before["state"])

	var runs runsResponse
	getJSON(t, ts.URL+"/api/runs?date=2024-01-05", &runs)

	var prov Provenance
	code = getJSON(t, ts.URL+"/api/source", &prov)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, flow.SourceCSV, prov.Source)
	assert.Equal(t, flow.LoadPartialSuccess, prov.LoadStatus)
	assert.Equal(t, 3, prov.RowCountRaw)
	assert.Equal(t, 2, prov.RowCountValid)
}

func TestHandleHealth(t *testing.T) {
	ts, _ := newTestServer(t, sampleCSV)

	var resp map[string]string
	code := getJSON(t, ts.URL+"/healthz", &resp)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", resp["status"])
}

func TestTryRefresh(t *testing.T) {
	_, svc := newTestServer(t, sampleCSV)

	day := time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)
	ok := svc.TryRefresh(context.Background(), loader.Options{Day: day})
	assert.True(t, ok)

	prov := svc.LastProvenance()
	require.NotNil(t, prov)
	assert.Equal(t, flow.LoadPartialSuccess, prov.LoadStatus)
}

// gatedLister blocks CSV discovery until released, holding a load cycle open
// for as long as a test needs.
type gatedLister struct {
	entered chan struct{}
	release chan struct{}
	path    string
}

func (l *gatedLister) List(dir, _ string) ([]source.FileInfo, error) {
	select {
	case l.entered <- struct{}{}:
	default:
	}
	<-l.release
	if filepath.Dir(l.path) != dir {
		return nil, nil
	}
	return []source.FileInfo{{Path: l.path}}, nil
}

func TestTryRefreshSkipsWhileLoadInFlight(t *testing.T) {
	cfg := &config.Config{ProjectRoot: t.TempDir(), DataDir: "data"}
	cfg.ApplyDefaults()
	path := filepath.Join(cfg.ProjectRoot, "flow_data_2024-01-05.csv")
	require.NoError(t, os.WriteFile(path, []byte(sampleCSV), 0o644))

	logger := testutil.NewTestLogger(t)
	lister := &gatedLister{
		entered: make(chan struct{}, 1),
		release: make(chan struct{}),
		path:    path,
	}
	sel := source.New(cfg, logger).WithLister(lister)
	svc := NewService(cfg, sel, loader.New(cfg, sel, logger), logger)

	opts := loader.Options{Day: time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)}
	loaded := make(chan struct{})
	go func() {
		defer close(loaded)
		_, _, _ = svc.LoadDay(context.Background(), opts)
	}()

	// The load is now inside CSV discovery, holding the cycle lock.
	<-lister.entered
	assert.False(t, svc.TryRefresh(context.Background(), opts),
		"an overlapping refresh must be skipped, not queued")

	close(lister.release)
	<-loaded
	assert.True(t, svc.TryRefresh(context.Background(), opts))
}
