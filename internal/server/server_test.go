package server

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/me/makespan/internal/bounds"
	"github.com/me/makespan/internal/config"
	"github.com/me/makespan/internal/metrics"
	"github.com/me/makespan/internal/problem"
	"github.com/me/makespan/internal/repository"
	"github.com/me/makespan/internal/solution"
	"github.com/me/makespan/internal/store"
	"github.com/me/makespan/pkg/model"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&bytes.Buffer{}, &slog.HandlerOptions{Level: slog.LevelError}))
}

type fixture struct {
	in     *problem.SortedInput
	bounds *bounds.Bounds
	repo   *repository.GoodSolutions
}

// newFixture holds two solutions (c_max 13 and 15) for jobs 4 9 6 8 5 7 on
// three machines.
func newFixture(t *testing.T) fixture {
	t.Helper()
	in := problem.NewSortedInput(3, []uint32{4, 9, 6, 8, 5, 7})
	b := bounds.NewTrivial(in, testLogger(), nil)
	repo := repository.New(10, testLogger())

	for _, assign := range [][]int{{0, 1, 2, 2, 1, 0}, {0, 1, 2, 0, 1, 2}} {
		mj := solution.Empty(3)
		for job, m := range assign {
			mj.Assign(job, m, in.Jobs[job])
		}
		repo.Add(solution.New(model.AlgorithmLPT, "", mj, b))
	}
	return fixture{in: in, bounds: b, repo: repo}
}

func testServer(t *testing.T, opts ...Option) *Server {
	t.Helper()
	f := newFixture(t)
	return New(config.ServerConfig{}, f.in, f.bounds, f.repo, testLogger(), opts...)
}

// envelope is used to decode the standard response envelope.
type envelope struct {
	Status     string            `json:"status"`
	RequestID  string            `json:"request_id"`
	Timestamp  string            `json:"timestamp"`
	Data       json.RawMessage   `json:"data"`
	Pagination *model.Pagination `json:"pagination"`
	Error      *model.APIError   `json:"error"`
}

func doRequest(t *testing.T, srv *Server, path string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	req := httptest.NewRequest("GET", path, nil)
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	var env envelope
	json.Unmarshal(w.Body.Bytes(), &env)
	return w, env
}

func doGet(t *testing.T, srv *Server, path string) envelope {
	t.Helper()
	w, env := doRequest(t, srv, path)
	if w.Code != http.StatusOK {
		t.Fatalf("GET %s: status=%d, want 200, body=%s", path, w.Code, w.Body.String())
	}
	return env
}

func TestDiscovery(t *testing.T) {
	srv := testServer(t)
	env := doGet(t, srv, "/api/v1/")
	if env.Status != "ok" {
		t.Errorf("status = %q, want ok", env.Status)
	}

	var data struct {
		Name      string `json:"name"`
		Endpoints []struct {
			Path string `json:"path"`
		} `json:"endpoints"`
	}
	json.Unmarshal(env.Data, &data)
	if data.Name != "makespan API" {
		t.Errorf("name = %q, want makespan API", data.Name)
	}
	if len(data.Endpoints) != 4 {
		t.Errorf("endpoints count = %d, want 4 without store and metrics", len(data.Endpoints))
	}
}

func TestHealth(t *testing.T) {
	srv := testServer(t)
	env := doGet(t, srv, "/api/v1/health")

	var data struct {
		Status string `json:"status"`
		Store  string `json:"store"`
	}
	json.Unmarshal(env.Data, &data)
	if data.Status != "healthy" {
		t.Errorf("health status = %q, want healthy", data.Status)
	}
	if data.Store != "disabled" {
		t.Errorf("store = %q, want disabled", data.Store)
	}
}

func TestBounds(t *testing.T) {
	srv := testServer(t)
	env := doGet(t, srv, "/api/v1/bounds")

	var data model.BoundsView
	json.Unmarshal(env.Data, &data)
	// The fixture reported c_max 13 to the trivial bounds (22, 13).
	if data.Upper != 13 || data.Lower != 13 {
		t.Errorf("bounds = %+v, want upper=13 lower=13", data)
	}
}

func TestListSolutions(t *testing.T) {
	srv := testServer(t)
	env := doGet(t, srv, "/api/v1/solutions")

	var data []model.SolutionView
	json.Unmarshal(env.Data, &data)
	if len(data) != 2 {
		t.Fatalf("got %d solutions, want 2", len(data))
	}
	if data[0].CMax != 13 || data[1].CMax != 15 {
		t.Errorf("c_max = %d, %d; want 13, 15", data[0].CMax, data[1].CMax)
	}
	if data[1].Rank != 1 {
		t.Errorf("rank = %d, want 1", data[1].Rank)
	}
	if len(data[0].Schedule) != 6 {
		t.Errorf("schedule len = %d, want 6", len(data[0].Schedule))
	}
	if env.Pagination == nil || env.Pagination.Total != 2 {
		t.Errorf("pagination = %+v, want total 2", env.Pagination)
	}
}

func TestListSolutions_Limit(t *testing.T) {
	srv := testServer(t)
	env := doGet(t, srv, "/api/v1/solutions?limit=1")

	var data []model.SolutionView
	json.Unmarshal(env.Data, &data)
	if len(data) != 1 || data[0].CMax != 13 {
		t.Errorf("limit=1 returned %+v", data)
	}
	if !env.Pagination.HasMore {
		t.Error("expected has_more with one of two solutions")
	}

	env = doGet(t, srv, "/api/v1/solutions?limit=1&offset=1")
	json.Unmarshal(env.Data, &data)
	if len(data) != 1 || data[0].CMax != 15 {
		t.Errorf("offset=1 returned %+v", data)
	}
}

func TestListSolutions_InvalidLimit(t *testing.T) {
	srv := testServer(t)
	for _, q := range []string{"limit=abc", "limit=0", "offset=-1"} {
		w, env := doRequest(t, srv, "/api/v1/solutions?"+q)
		if w.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", q, w.Code)
		}
		if env.Error == nil || env.Error.Code != model.ErrValidation {
			t.Errorf("%s: error = %+v, want VALIDATION_ERROR", q, env.Error)
		}
	}
}

func TestBestSolution(t *testing.T) {
	srv := testServer(t)
	env := doGet(t, srv, "/api/v1/solutions/best")

	var data model.SolutionView
	json.Unmarshal(env.Data, &data)
	if data.CMax != 13 {
		t.Errorf("best c_max = %d, want 13", data.CMax)
	}
}

func TestBestSolution_Empty(t *testing.T) {
	f := newFixture(t)
	srv := New(config.ServerConfig{}, f.in, f.bounds, repository.New(5, testLogger()), testLogger())

	w, env := doRequest(t, srv, "/api/v1/solutions/best")
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
	if env.Error == nil || env.Error.Code != model.ErrNotFound {
		t.Errorf("error = %+v, want NOT_FOUND", env.Error)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	m.ObserveBounds(22, 13)
	srv := testServer(t, WithGatherer(reg))

	req := httptest.NewRequest("GET", "/metrics", nil)
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if !strings.Contains(w.Body.String(), "makespan_upper_bound 22") {
		t.Errorf("metrics output missing upper bound:\n%s", w.Body.String())
	}
}

func TestMetricsEndpoint_Disabled(t *testing.T) {
	srv := testServer(t)
	w, _ := doRequest(t, srv, "/metrics")
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404 without a gatherer", w.Code)
	}
}

func testStore(t *testing.T) *store.SQLiteStore {
	t.Helper()
	st, err := store.NewSQLiteStore(":memory:", testLogger())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	if err := st.Migrate(context.Background()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return st
}

func TestRuns(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()
	run := &model.Run{ID: "run_a", InputName: "inst", MachineCount: 3, JobCount: 6, StartedAt: time.Now().UTC()}
	if err := st.CreateRun(ctx, run); err != nil {
		t.Fatalf("create run: %v", err)
	}
	if err := st.SaveSolutions(ctx, run.ID, []model.SolutionView{
		{Rank: 0, CMax: 13, Algorithms: []model.Algorithm{model.AlgorithmLPT}},
	}); err != nil {
		t.Fatalf("save solutions: %v", err)
	}
	srv := testServer(t, WithStore(st, run.ID))

	env := doGet(t, srv, "/api/v1/runs")
	var runs []model.Run
	json.Unmarshal(env.Data, &runs)
	if len(runs) != 1 || runs[0].ID != "run_a" {
		t.Errorf("runs = %+v", runs)
	}

	env = doGet(t, srv, "/api/v1/runs/current")
	var got model.Run
	json.Unmarshal(env.Data, &got)
	if got.ID != "run_a" || got.State != model.RunStateRunning {
		t.Errorf("current run = %+v", got)
	}

	env = doGet(t, srv, "/api/v1/runs/run_a/solutions")
	var sols []model.SolutionView
	json.Unmarshal(env.Data, &sols)
	if len(sols) != 1 || sols[0].CMax != 13 {
		t.Errorf("run solutions = %+v", sols)
	}

	w, env := doRequest(t, srv, "/api/v1/runs/run_missing")
	if w.Code != http.StatusNotFound || env.Error == nil || env.Error.Code != model.ErrNotFound {
		t.Errorf("missing run: status=%d error=%+v", w.Code, env.Error)
	}
}

func TestRuns_DisabledWithoutStore(t *testing.T) {
	srv := testServer(t)
	w, _ := doRequest(t, srv, "/api/v1/runs")
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404 without a store", w.Code)
	}
}

func TestResponseEnvelope_HasRequestID(t *testing.T) {
	srv := testServer(t)
	env := doGet(t, srv, "/api/v1/health")
	if !strings.HasPrefix(env.RequestID, "req_") {
		t.Errorf("request_id = %q, want req_ prefix", env.RequestID)
	}
	if env.Timestamp == "" {
		t.Error("timestamp is empty")
	}
}

func TestResponseEnvelope_XRequestIDHeader(t *testing.T) {
	srv := testServer(t)
	req := httptest.NewRequest("GET", "/api/v1/health", nil)
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)

	xReqID := w.Header().Get("X-Request-ID")
	if !strings.HasPrefix(xReqID, "req_") {
		t.Errorf("X-Request-ID header = %q, want req_ prefix", xReqID)
	}
}

func TestStoreOnlyServer(t *testing.T) {
	st := testStore(t)
	srv := New(config.ServerConfig{}, nil, nil, nil, testLogger(), WithStore(st, ""))

	env := doGet(t, srv, "/api/v1/health")
	var health struct {
		Store string `json:"store"`
		Live  bool   `json:"live"`
	}
	json.Unmarshal(env.Data, &health)
	if health.Store != "sqlite" || health.Live {
		t.Errorf("health = %+v, want sqlite store and not live", health)
	}

	if w, _ := doRequest(t, srv, "/api/v1/bounds"); w.Code != http.StatusNotFound {
		t.Errorf("bounds status = %d, want 404 without a live run", w.Code)
	}
	env = doGet(t, srv, "/api/v1/runs")
	if env.Pagination == nil || env.Pagination.Total != 0 {
		t.Errorf("pagination = %+v, want empty list", env.Pagination)
	}
}

func TestRequestID_ClientValueKept(t *testing.T) {
	srv := testServer(t)
	tests := []struct {
		name   string
		header string
		kept   bool
	}{
		{"poller id", "poller-7.run_a", true},
		{"empty", "", false},
		{"unsafe characters", "id with spaces", false},
		{"too long", strings.Repeat("a", 65), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/api/v1/health", nil)
			if tt.header != "" {
				req.Header.Set("X-Request-ID", tt.header)
			}
			w := httptest.NewRecorder()
			srv.ServeHTTP(w, req)

			var env envelope
			json.Unmarshal(w.Body.Bytes(), &env)
			got := w.Header().Get("X-Request-ID")
			if env.RequestID != got {
				t.Errorf("envelope request_id %q differs from header %q", env.RequestID, got)
			}
			if tt.kept && got != tt.header {
				t.Errorf("X-Request-ID = %q, want %q", got, tt.header)
			}
			if !tt.kept && !strings.HasPrefix(got, "req_") {
				t.Errorf("X-Request-ID = %q, want a generated req_ id", got)
			}
		})
	}
}

func TestRequestLog_CarriesRunAndBound(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	f := newFixture(t)
	srv := New(config.ServerConfig{}, f.in, f.bounds, f.repo, logger,
		WithStore(testStore(t), "run_live"), WithGatherer(prometheus.NewRegistry()))

	doGet(t, srv, "/api/v1/bounds")
	line := buf.String()
	for _, want := range []string{"msg=request", "path=/api/v1/bounds", "run_id=run_live", "upper=13"} {
		if !strings.Contains(line, want) {
			t.Errorf("request log missing %q:\n%s", want, line)
		}
	}

	buf.Reset()
	req := httptest.NewRequest("GET", "/metrics", nil)
	srv.ServeHTTP(httptest.NewRecorder(), req)
	if strings.Contains(buf.String(), "msg=request") {
		t.Errorf("metrics scrape was logged:\n%s", buf.String())
	}
}
