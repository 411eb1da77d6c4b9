// ABOUTME: HTTP handlers for linting flows, reading run history, and health checks.
// ABOUTME: Maps parse and configuration errors to 400/422 and oversized bodies to 413.
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
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/2389-research/flowlint/flow"
	"github.com/2389-research/flowlint/history"
	"github.com/2389-research/flowlint/lint"
)

// LintRequest is the object form of a lint request body. A bare flow array or a
// {"flows": [...]} envelope is also accepted and linted with the server's config.
// A config without a subrules key selects the default rules, as in a config file.
type LintRequest struct {
	Flow   json.RawMessage `json:"flow"`
	Config *lint.Config    `json:"config,omitempty"`
}

// LintResponse is returned by POST /v1/lint.
type LintResponse struct {
	RunID  string            `json:"runId"`
	Cached bool              `json:"cached"`
	Result []lint.Diagnostic `json:"result"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// lintFlow parses flowJSON and runs cfg against it.
func (s *Server) lintFlow(ctx context.Context, flowJSON []byte, cfg lint.Config) (*lint.Report, error) {
	fs, err := flow.ParseJSON(flowJSON)
	if err != nil {
		return nil, err
	}
	return lint.Run(ctx, fs, cfg, s.cfg.Plugins, lint.WithConcurrency(s.cfg.Concurrency))
}

// handleLint lints the posted flow and returns its diagnostics.
func (s *Server) handleLint(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	defer func() {
		s.metrics.LintDuration.Observe(time.Since(start).Seconds())
	}()

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.fail(w, http.StatusRequestEntityTooLarge, "too_large", fmt.Errorf("request body exceeds %d bytes", tooLarge.Limit))
			return
		}
		s.fail(w, http.StatusBadRequest, "bad_request", fmt.Errorf("read body: %w", err))
		return
	}

	flowJSON, cfg, err := s.decodeLintRequest(body)
	if err != nil {
		s.fail(w, http.StatusBadRequest, "bad_request", err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.LintTimeout)
	defer cancel()

	report, hit, err := s.cache.Lint(ctx, flowJSON, cfg)
	if err != nil {
		status, label := classifyLintError(err)
		s.fail(w, status, label, err)
		return
	}
	if hit {
		s.metrics.CacheHits.Inc()
	}

	runID := history.NewRunID(start).String()
	if s.cfg.History != nil {
		run, err := s.cfg.History.Record("api:"+RequestIDFrom(r.Context()), report, start)
		if err != nil {
			log.Printf("api history record failed request_id=%s err=%v", RequestIDFrom(r.Context()), err)
		} else {
			runID = run.ID.String()
			s.pruneHistory(r)
		}
	}

	for _, d := range report.Result {
		s.metrics.Diagnostics.WithLabelValues(string(d.Severity)).Inc()
	}
	s.metrics.LintRequests.WithLabelValues("ok").Inc()
	writeJSON(w, http.StatusOK, LintResponse{RunID: runID, Cached: hit, Result: report.Result})
}

// pruneHistory trims history to Config.HistoryKeep runs. Failures are logged only.
func (s *Server) pruneHistory(r *http.Request) {
	if s.cfg.HistoryKeep <= 0 {
		return
	}
	if _, err := s.cfg.History.Prune(s.cfg.HistoryKeep); err != nil {
		log.Printf("api history prune failed request_id=%s err=%v", RequestIDFrom(r.Context()), err)
	}
}

// decodeLintRequest splits a body into the raw flow document and the config to apply.
func (s *Server) decodeLintRequest(body []byte) ([]byte, lint.Config, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, lint.Config{}, errors.New("empty request body")
	}
	if trimmed[0] == '[' {
		return trimmed, s.cfg.Lint, nil
	}

	var probe map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &probe); err != nil {
		return nil, lint.Config{}, fmt.Errorf("decode request: %w", err)
	}
	if _, ok := probe["flow"]; !ok {
		// {"flows": [...]} envelope from the Node-RED admin API.
		return trimmed, s.cfg.Lint, nil
	}

	var req LintRequest
	if err := json.Unmarshal(trimmed, &req); err != nil {
		return nil, lint.Config{}, fmt.Errorf("decode request: %w", err)
	}
	cfg := s.cfg.Lint
	if req.Config != nil {
		cfg = req.Config.WithDefaults()
	}
	return req.Flow, cfg, nil
}

// classifyLintError maps lint failures to HTTP status codes and metric labels.
func classifyLintError(err error) (int, string) {
	var (
		malformed *flow.MalformedNodeError
		unknown   *lint.UnknownRuleError
		invalid   *lint.InvalidParamsError
		syntax    *json.SyntaxError
		typeErr   *json.UnmarshalTypeError
	)
	switch {
	case errors.As(err, &malformed), errors.As(err, &syntax), errors.As(err, &typeErr):
		return http.StatusBadRequest, "bad_request"
	case errors.As(err, &unknown), errors.As(err, &invalid):
		return http.StatusUnprocessableEntity, "invalid_config"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "timeout"
	default:
		return http.StatusInternalServerError, "error"
	}
}

// handleListRuns returns recent runs, newest first. ?limit= defaults to 50.
func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	if s.cfg.History == nil {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "run history is disabled"})
		return
	}
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "limit must be a positive integer"})
			return
		}
		limit = n
	}
	runs, err := s.cfg.History.List(limit)
	if err != nil {
		log.Printf("api list runs failed err=%v", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal server error"})
		return
	}
	writeJSON(w, http.StatusOK, runs)
}

// handleGetRun returns one recorded run with its report.
func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	if s.cfg.History == nil {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "run history is disabled"})
		return
	}
	run, err := s.cfg.History.Get(chi.URLParam(r, "id"))
	if errors.Is(err, history.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
		return
	}
	if err != nil {
		log.Printf("api get run failed err=%v", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal server error"})
		return
	}
	writeJSON(w, http.StatusOK, run)
}

// handleHealth returns a JSON health check response.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// fail records a failed lint request and writes the error.
func (s *Server) fail(w http.ResponseWriter, status int, label string, err error) {
	s.metrics.LintRequests.WithLabelValues(label).Inc()
	msg := err.Error()
	if status >= http.StatusInternalServerError {
		log.Printf("api lint failed status=%d err=%v", status, err)
		if status == http.StatusInternalServerError {
			msg = "internal server error"
		}
	}
	writeJSON(w, status, errorResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("api encode response failed err=%v", err)
	}
}
