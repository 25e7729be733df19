package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"github.com/sawpanic/ivcrush/internal/application"
	"github.com/sawpanic/ivcrush/internal/backtest/artifacts"
	"github.com/sawpanic/ivcrush/internal/config"
	"github.com/sawpanic/ivcrush/internal/net/circuit"
	"github.com/sawpanic/ivcrush/internal/persistence"
)

// writeJSON writes JSON response with proper error handling
func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}

// writeError writes standardized error response
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	s.writeJSON(w, status, ErrorResponse{
		Error:     http.StatusText(status),
		Message:   message,
		Code:      code,
		RequestID: RequestID(r.Context()),
		Timestamp: time.Now().UTC(),
	})
}

// writeFailure maps a service error to a status code
func (s *Server) writeFailure(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, application.ErrBadRequest), errors.Is(err, config.ErrInvalidConfig):
		s.writeError(w, r, http.StatusBadRequest, "bad_request", err.Error())
	case errors.Is(err, persistence.ErrNotFound):
		s.writeError(w, r, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, application.ErrPersistenceDisabled):
		s.writeError(w, r, http.StatusServiceUnavailable, "persistence_disabled", err.Error())
	case errors.Is(err, circuit.ErrCircuitOpen):
		s.writeError(w, r, http.StatusServiceUnavailable, "backend_unavailable", err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		s.writeError(w, r, http.StatusGatewayTimeout, "timeout", "request took too long")
	default:
		log.Error().Str("request_id", RequestID(r.Context())).Err(err).Msg("Request failed")
		s.writeError(w, r, http.StatusInternalServerError, "internal_error", "internal error")
	}
}

// decode reads a bounded JSON body into dst, rejecting unknown fields
func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, s.config.MaxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.writeError(w, r, http.StatusRequestEntityTooLarge, "body_too_large",
				fmt.Sprintf("request body exceeds %d bytes", s.config.MaxBodyBytes))
			return false
		}
		s.writeError(w, r, http.StatusBadRequest, "invalid_json", err.Error())
		return false
	}
	if dec.More() {
		s.writeError(w, r, http.StatusBadRequest, "invalid_json", "request body must hold a single JSON object")
		return false
	}
	return true
}

// notFound handles 404 responses
func (s *Server) notFound(w http.ResponseWriter, r *http.Request) {
	s.writeError(w, r, http.StatusNotFound, "endpoint_not_found", "The requested endpoint does not exist")
}

func (s *Server) methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	s.writeError(w, r, http.StatusMethodNotAllowed, "method_not_allowed",
		fmt.Sprintf("%s is not supported on %s", r.Method, r.URL.Path))
}

// health handles GET /health. Optional backends only degrade the status.
func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC(),
		Uptime:    time.Since(s.started).Truncate(time.Second).String(),
		Version:   s.deps.Version,
		Configs:   len(s.deps.Catalog.All()),
		Checks:    make(map[string]CheckResult, len(s.deps.Checks)),
	}
	if s.deps.Limiter != nil {
		resp.Clients = s.deps.Limiter.Clients()
	}
	for name, check := range s.deps.Checks {
		res := check(r.Context())
		if res.Status != "pass" {
			resp.Status = "degraded"
		}
		resp.Checks[name] = res
	}
	s.writeJSON(w, http.StatusOK, resp)
}

// listConfigs handles GET /v1/configs; ?details=true includes full settings
func (s *Server) listConfigs(w http.ResponseWriter, r *http.Request) {
	all := s.deps.Catalog.All()
	resp := ConfigsResponse{Count: len(all), Configs: make([]ConfigSummary, 0, len(all))}
	for _, cfg := range all {
		resp.Configs = append(resp.Configs, summarize(cfg))
	}
	if details, _ := strconv.ParseBool(r.URL.Query().Get("details")); details {
		resp.Details = all
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func summarize(cfg *config.ScoringConfig) ConfigSummary {
	return ConfigSummary{
		Name:         cfg.Name,
		Description:  cfg.Description,
		Fingerprint:  cfg.Fingerprint(),
		Weights:      cfg.Weights,
		MinScore:     cfg.MinScore,
		MaxPositions: cfg.MaxPositions,
	}
}

// getConfig handles GET /v1/configs/{name}
func (s *Server) getConfig(w http.ResponseWriter, r *http.Request) {
	cfg, err := s.deps.Catalog.Get(mux.Vars(r)["name"])
	if err != nil {
		s.writeError(w, r, http.StatusNotFound, "config_not_found", err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, cfg)
}

// rank handles POST /v1/rank
func (s *Server) rank(w http.ResponseWriter, r *http.Request) {
	var req RankRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.Config == "" {
		req.Config = config.Default().Name
	}
	cfg, err := s.deps.Catalog.Get(req.Config)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}

	out, err := application.Rank(r.Context(), cfg, req.Event, req.Capital, req.MaxPositions, s.config.Workers, s.deps.Metrics)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, out)
}

// backtest handles POST /v1/backtest
func (s *Server) backtest(w http.ResponseWriter, r *http.Request) {
	var req BacktestRequest
	if !s.decode(w, r, &req) {
		return
	}

	data := []byte(req.Dataset)
	var lines string
	if err := json.Unmarshal(req.Dataset, &lines); err == nil {
		data = []byte(lines)
	}
	ds, err := artifacts.ParseDataset(data)
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, "invalid_dataset", err.Error())
		return
	}

	configs, err := s.deps.Catalog.Resolve(req.Configs)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}

	out, err := s.deps.Service.Compare(r.Context(), ds, configs, req.Options(s.config.Workers))
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, out)
}

// listRuns handles GET /v1/runs?config=&limit=
func (s *Server) listRuns(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 500 {
			s.writeError(w, r, http.StatusBadRequest, "invalid_limit", "limit must be between 1 and 500")
			return
		}
		limit = n
	}

	runs, err := s.deps.Service.Runs(r.Context(), r.URL.Query().Get("config"), limit)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, RunsResponse{Count: len(runs), Runs: runs})
}

// getRun handles GET /v1/runs/{id}
func (s *Server) getRun(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, "invalid_id", "run id must be a UUID")
		return
	}
	run, trades, err := s.deps.Service.Run(r.Context(), id)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, RunResponse{Run: run, Trades: trades})
}
