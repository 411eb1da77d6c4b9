// ABOUTME: Tests for the lint API: request forms, error status mapping, history routes, cache, and metrics.
// ABOUTME: Uses httptest against the chi router without opening a network listener.
package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/2389-research/flowlint/history"
	"github.com/2389-research/flowlint/lint"
)

const loopFlow = `[
	{"id":"n1","type":"function","z":"f1","wires":[["n2"]]},
	{"id":"n2","type":"function","z":"f1","name":"b","wires":[["n1"]]}
]`

func newTestServer(t *testing.T, withHistory bool) *Server {
	t.Helper()
	cfg := Config{Lint: lint.DefaultConfig()}
	if withHistory {
		store, err := history.Open(filepath.Join(t.TempDir(), "history.db"))
		if err != nil {
			t.Fatalf("open history: %v", err)
		}
		t.Cleanup(func() { _ = store.Close() })
		cfg.History = store
	}
	return New(cfg)
}

func do(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

func decodeLint(t *testing.T, rec *httptest.ResponseRecorder) LintResponse {
	t.Helper()
	var resp LintResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return resp
}

func TestLint_BareArray(t *testing.T) {
	s := newTestServer(t, false)
	rec := do(t, s, http.MethodPost, "/v1/lint", loopFlow)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	resp := decodeLint(t, rec)
	if resp.RunID == "" {
		t.Error("expected a run id")
	}

	var names []string
	for _, d := range resp.Result {
		names = append(names, d.Name)
	}
	if strings.Join(names, ",") != "no-func-name,loop" {
		t.Errorf("unexpected diagnostics %v", names)
	}
}

func TestLint_RequestObjectWithConfig(t *testing.T) {
	s := newTestServer(t, false)
	body := `{"flow":` + loopFlow + `,"config":{"subrules":[{"name":"loop"}]}}`
	rec := do(t, s, http.MethodPost, "/v1/lint", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	resp := decodeLint(t, rec)
	if len(resp.Result) != 1 || resp.Result[0].Name != "loop" {
		t.Errorf("expected only the loop diagnostic, got %+v", resp.Result)
	}
	if strings.Join(resp.Result[0].IDs, ",") != "n1,n2" {
		t.Errorf("unexpected ids %v", resp.Result[0].IDs)
	}
}

func TestLint_ConfigWithoutSubrulesUsesDefaults(t *testing.T) {
	s := New(Config{Lint: lint.Config{Subrules: []lint.Subrule{{Name: "loop"}}}})
	tests := []struct {
		name   string
		config string
		want   []string
	}{
		{"missing subrules key", `{}`, []string{"no-func-name", "loop"}},
		{"empty subrules list", `{"subrules":[]}`, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, s, http.MethodPost, "/v1/lint", `{"flow":`+loopFlow+`,"config":`+tt.config+`}`)
			if rec.Code != http.StatusOK {
				t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
			}
			var got []string
			for _, d := range decodeLint(t, rec).Result {
				got = append(got, d.Name)
			}
			if strings.Join(got, ",") != strings.Join(tt.want, ",") {
				t.Errorf("diagnostics = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLint_Envelope(t *testing.T) {
	s := newTestServer(t, false)
	rec := do(t, s, http.MethodPost, "/v1/lint", `{"rev":"abc","flows":[{"id":"h","type":"http in","z":"t"}]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	resp := decodeLint(t, rec)
	if len(resp.Result) != 1 || resp.Result[0].Name != "dangling-http-in" {
		t.Errorf("unexpected diagnostics %+v", resp.Result)
	}
}

func TestLint_EmptyFlowReturnsEmptyArray(t *testing.T) {
	s := newTestServer(t, false)
	rec := do(t, s, http.MethodPost, "/v1/lint", `[]`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"result":[]`) {
		t.Errorf("expected empty result array, got %s", rec.Body.String())
	}
}

func TestLint_ErrorStatuses(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		status int
	}{
		{"empty body", "", http.StatusBadRequest},
		{"invalid json", "[{", http.StatusBadRequest},
		{"node without id", `[{"type":"function"}]`, http.StatusBadRequest},
		{"non-object record", `[{"id":"a"}, 5]`, http.StatusBadRequest},
		{"flow of wrong type", `{"flow":"nope"}`, http.StatusBadRequest},
		{"unknown rule", `{"flow":[],"config":{"subrules":[{"name":"nope"}]}}`, http.StatusUnprocessableEntity},
		{"invalid params", `{"flow":[],"config":{"subrules":[{"name":"flowsize","maxSize":0}]}}`, http.StatusUnprocessableEntity},
		{"subrule without name", `{"flow":[],"config":{"subrules":[{"maxSize":3}]}}`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t, false)
			rec := do(t, s, http.MethodPost, "/v1/lint", tt.body)
			if rec.Code != tt.status {
				t.Errorf("expected %d, got %d: %s", tt.status, rec.Code, rec.Body.String())
			}
			var er errorResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &er); err != nil || er.Error == "" {
				t.Errorf("expected JSON error body, got %q", rec.Body.String())
			}
		})
	}
}

func TestLint_NonObjectRecordNamesIndex(t *testing.T) {
	s := newTestServer(t, false)
	rec := do(t, s, http.MethodPost, "/v1/lint", `[{"id":"a","type":"function"}, 5]`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "index 1") {
		t.Errorf("expected error to name index 1, got %s", rec.Body.String())
	}
}

func TestLint_BodyTooLarge(t *testing.T) {
	s := newTestServer(t, false)
	body := "[" + strings.Repeat(" ", maxBodyBytes) + "]"
	rec := do(t, s, http.MethodPost, "/v1/lint", body)
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("expected 413, got %d", rec.Code)
	}
}

func TestLint_CacheHit(t *testing.T) {
	s := newTestServer(t, false)
	first := decodeLint(t, do(t, s, http.MethodPost, "/v1/lint", loopFlow))
	second := decodeLint(t, do(t, s, http.MethodPost, "/v1/lint", loopFlow))
	if first.Cached || !second.Cached {
		t.Errorf("expected miss then hit, got %v then %v", first.Cached, second.Cached)
	}
	if first.RunID == second.RunID {
		t.Error("expected a fresh run id for each request")
	}
	if s.cache.Len() != 1 {
		t.Errorf("expected one cache entry, got %d", s.cache.Len())
	}
}

func TestRuns_History(t *testing.T) {
	s := newTestServer(t, true)
	resp := decodeLint(t, do(t, s, http.MethodPost, "/v1/lint", loopFlow))

	rec := do(t, s, http.MethodGet, "/v1/runs/"+resp.RunID, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var run history.Run
	if err := json.Unmarshal(rec.Body.Bytes(), &run); err != nil {
		t.Fatalf("decode run: %v", err)
	}
	if run.ID.String() != resp.RunID || run.WarnCount != 2 || len(run.Report.Result) != 2 {
		t.Errorf("unexpected run %+v", run)
	}

	rec = do(t, s, http.MethodGet, "/v1/runs?limit=5", "")
	var runs []history.Run
	if err := json.Unmarshal(rec.Body.Bytes(), &runs); err != nil {
		t.Fatalf("decode runs: %v", err)
	}
	if len(runs) != 1 {
		t.Errorf("expected 1 run, got %d", len(runs))
	}

	if rec := do(t, s, http.MethodGet, "/v1/runs/"+history.NewRunID(time.Now()).String(), ""); rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 for unknown run, got %d", rec.Code)
	}
	if rec := do(t, s, http.MethodGet, "/v1/runs?limit=x", ""); rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for bad limit, got %d", rec.Code)
	}
}

func TestRuns_HistoryKeep(t *testing.T) {
	store, err := history.Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("open history: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	s := New(Config{Lint: lint.DefaultConfig(), History: store, HistoryKeep: 2})

	var last LintResponse
	for i := 0; i < 4; i++ {
		last = decodeLint(t, do(t, s, http.MethodPost, "/v1/lint", loopFlow))
	}

	runs, err := store.List(10)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected history trimmed to 2 runs, got %d", len(runs))
	}
	if runs[0].ID.String() != last.RunID {
		t.Errorf("newest run %s, want %s", runs[0].ID, last.RunID)
	}
}

func TestRuns_HistoryDisabled(t *testing.T) {
	s := newTestServer(t, false)
	if rec := do(t, s, http.MethodGet, "/v1/runs", ""); rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestHealthAndRequestID(t *testing.T) {
	s := newTestServer(t, false)
	rec := do(t, s, http.MethodGet, "/healthz", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"ok"`) {
		t.Errorf("unexpected health response %d %s", rec.Code, rec.Body.String())
	}
	if rec.Header().Get(RequestIDHeader) == "" {
		t.Error("expected a generated request id")
	}

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(RequestIDHeader, "client-123")
	rec = httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	if got := rec.Header().Get(RequestIDHeader); got != "client-123" {
		t.Errorf("expected client request id to be echoed, got %q", got)
	}
}

func TestAccessLog(t *testing.T) {
	var buf bytes.Buffer
	prev := log.Writer()
	log.SetOutput(&buf)
	t.Cleanup(func() { log.SetOutput(prev) })

	s := newTestServer(t, false)
	tests := []struct {
		name   string
		method string
		path   string
		id     string
		want   []string
	}{
		{"ok with client id", http.MethodGet, "/healthz", "client-7", []string{"api GET /healthz status=200", "request_id=client-7"}},
		{"not found", http.MethodGet, "/v1/runs", "", []string{"api GET /v1/runs status=404"}},
		{"oversized id replaced", http.MethodGet, "/healthz", strings.Repeat("x", maxRequestIDLen+1), []string{"status=200"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf.Reset()
			req := httptest.NewRequest(tt.method, tt.path, nil)
			if tt.id != "" {
				req.Header.Set(RequestIDHeader, tt.id)
			}
			rec := httptest.NewRecorder()
			s.ServeHTTP(rec, req)

			line := buf.String()
			for _, want := range tt.want {
				if !strings.Contains(line, want) {
					t.Errorf("log line %q missing %q", line, want)
				}
			}
			if !strings.Contains(line, "request_id="+rec.Header().Get(RequestIDHeader)) {
				t.Errorf("log line %q does not carry the echoed id %q", line, rec.Header().Get(RequestIDHeader))
			}
			if !strings.Contains(line, fmt.Sprintf("bytes=%d", rec.Body.Len())) {
				t.Errorf("log line %q does not report %d bytes", line, rec.Body.Len())
			}
			if len(rec.Header().Get(RequestIDHeader)) > maxRequestIDLen {
				t.Errorf("oversized request id echoed")
			}
		})
	}
}

func TestMetrics(t *testing.T) {
	s := newTestServer(t, false)
	do(t, s, http.MethodPost, "/v1/lint", loopFlow)
	do(t, s, http.MethodPost, "/v1/lint", loopFlow)
	do(t, s, http.MethodPost, "/v1/lint", `{"flow":[],"config":{"subrules":[{"name":"nope"}]}}`)

	rec := do(t, s, http.MethodGet, "/metrics", "")
	body, _ := io.ReadAll(rec.Body)
	for _, want := range []string{
		`flowlint_lint_requests_total{status="ok"} 2`,
		`flowlint_lint_requests_total{status="invalid_config"} 1`,
		`flowlint_diagnostics_total{severity="warn"} 4`,
		`flowlint_cache_hits_total 1`,
		`flowlint_lint_duration_seconds_count 3`,
	} {
		if !strings.Contains(string(body), want) {
			t.Errorf("expected metrics to contain %q", want)
		}
	}
}

func TestResultCache(t *testing.T) {
	var calls atomic.Int32
	fn := func(_ context.Context, flowJSON []byte, _ lint.Config) (*lint.Report, error) {
		calls.Add(1)
		if string(flowJSON) == "bad" {
			return nil, errors.New("boom")
		}
		return &lint.Report{Result: []lint.Diagnostic{}}, nil
	}
	c := NewResultCache(fn, time.Hour, 0)
	ctx := context.Background()
	cfg := lint.DefaultConfig()

	if _, hit, _ := c.Lint(ctx, []byte("a"), cfg); hit {
		t.Error("expected first call to miss")
	}
	if _, hit, _ := c.Lint(ctx, []byte("a"), cfg); !hit {
		t.Error("expected second call to hit")
	}
	if _, hit, _ := c.Lint(ctx, []byte("a"), lint.Config{}); hit {
		t.Error("expected a different config to miss")
	}
	if _, _, err := c.Lint(ctx, []byte("bad"), cfg); err == nil {
		t.Error("expected error")
	}
	if _, _, err := c.Lint(ctx, []byte("bad"), cfg); err == nil {
		t.Error("expected errors not to be cached")
	}
	if calls.Load() != 4 {
		t.Errorf("expected 4 underlying calls, got %d", calls.Load())
	}
	if c.Len() != 2 {
		t.Errorf("expected 2 entries, got %d", c.Len())
	}
}

func TestResultCache_MaxEntries(t *testing.T) {
	fn := func(context.Context, []byte, lint.Config) (*lint.Report, error) {
		return &lint.Report{Result: []lint.Diagnostic{}}, nil
	}
	c := NewResultCache(fn, time.Hour, 3)
	ctx := context.Background()
	for _, flowText := range []string{"a", "b", "c", "d", "e"} {
		if _, _, err := c.Lint(ctx, []byte(flowText), lint.Config{}); err != nil {
			t.Fatal(err)
		}
		time.Sleep(time.Millisecond)
	}
	if c.Len() != 3 {
		t.Fatalf("expected cache capped at 3 entries, got %d", c.Len())
	}
	if _, hit, _ := c.Lint(ctx, []byte("e"), lint.Config{}); !hit {
		t.Error("expected newest entry to survive eviction")
	}
	if _, hit, _ := c.Lint(ctx, []byte("a"), lint.Config{}); hit {
		t.Error("expected oldest entry to be evicted")
	}
}

func TestResultCache_Janitor(t *testing.T) {
	fn := func(context.Context, []byte, lint.Config) (*lint.Report, error) {
		return &lint.Report{Result: []lint.Diagnostic{}}, nil
	}
	c := NewResultCache(fn, time.Millisecond, 0)
	if _, _, err := c.Lint(context.Background(), []byte("a"), lint.Config{}); err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		c.RunJanitor(ctx, 2*time.Millisecond)
		close(done)
	}()
	deadline := time.Now().Add(time.Second)
	for c.Len() != 0 && time.Now().Before(deadline) {
		time.Sleep(2 * time.Millisecond)
	}
	cancel()
	<-done
	if c.Len() != 0 {
		t.Errorf("expected janitor to prune expired entry, %d left", c.Len())
	}
}

func TestLint_CacheEvictsExpiredEntries(t *testing.T) {
	s := New(Config{Lint: lint.DefaultConfig(), CacheTTL: time.Millisecond})
	for i := 0; i < 200; i++ {
		body := fmt.Sprintf(`[{"id":"n%d","type":"inject","z":"f1"}]`, i)
		if rec := do(t, s, http.MethodPost, "/v1/lint", body); rec.Code != http.StatusOK {
			t.Fatalf("request %d: status %d", i, rec.Code)
		}
	}
	time.Sleep(10 * time.Millisecond)
	if rec := do(t, s, http.MethodPost, "/v1/lint", loopFlow); rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	if n := s.cache.Len(); n != 1 {
		t.Errorf("expected expired entries evicted on write, %d entries left", n)
	}
}

func TestResultCache_Expiry(t *testing.T) {
	fn := func(context.Context, []byte, lint.Config) (*lint.Report, error) {
		return &lint.Report{Result: []lint.Diagnostic{}}, nil
	}
	c := NewResultCache(fn, time.Millisecond, 0)
	if _, _, err := c.Lint(context.Background(), []byte("a"), lint.Config{}); err != nil {
		t.Fatal(err)
	}
	time.Sleep(5 * time.Millisecond)
	if _, hit, _ := c.Lint(context.Background(), []byte("a"), lint.Config{}); hit {
		t.Error("expected expired entry to miss")
	}
	time.Sleep(5 * time.Millisecond)
	if removed := c.Prune(); removed != 1 {
		t.Errorf("expected 1 pruned entry, got %d", removed)
	}
}
