// Copyright 2025 CortexAI
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package gateway

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"

	"github.com/ekonugroho98/cortex-ai/shared/logger"
)

// maxRequestBody caps query and prompt request bodies. Prompts are
// limited to 2000 characters anyway; this just stops abuse earlier.
const maxRequestBody = 1 << 20

// Per-request timeout bounds. Zero means "use the server default".
const (
	minQueryTimeoutMS = 1000
	maxQueryTimeoutMS = 300_000
	minAgentTimeoutS  = 10
	maxAgentTimeoutS  = 600
)

// QueryRequestBody is the body of POST /api/v1/query. DryRun prices
// the query without running it; TimeoutMS overrides the warehouse
// timeout for this request.
type QueryRequestBody struct {
	SQL       string `json:"sql"`
	DryRun    bool   `json:"dry_run,omitempty"`
	TimeoutMS int64  `json:"timeout_ms,omitempty"`
}

// AgentRequestBody is the body of POST /api/v1/query-agent. DryRun
// generates and prices the SQL without executing it; TimeoutSeconds
// overrides the generation timeout for this request.
type AgentRequestBody struct {
	Prompt         string `json:"prompt"`
	DryRun         bool   `json:"dry_run,omitempty"`
	TimeoutSeconds int    `json:"timeout_seconds,omitempty"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status     string            `json:"status"`
	Components map[string]string `json:"components"`
}

// Handler serves the HTTP surface over a Service.
type Handler struct {
	svc  *Service
	auth *Authenticator
	log  *logger.Logger
}

// NewHandler builds the handler for svc.
func NewHandler(svc *Service) *Handler {
	return &Handler{
		svc:  svc,
		auth: NewAuthenticator(svc.cfg.APIKeys),
		log:  logger.New("http"),
	}
}

// Router assembles the full middleware chain and route table.
func (h *Handler) Router() http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/health", h.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/metrics", h.handleMetrics).Methods(http.MethodGet)
	r.Handle("/prometheus", promhttp.Handler()).Methods(http.MethodGet)

	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(h.auth.Middleware)
	api.HandleFunc("/query", h.handleQuery).Methods(http.MethodPost)
	api.HandleFunc("/query-agent", h.handleQueryAgent).Methods(http.MethodPost)
	api.HandleFunc("/datasets", h.handleListDatasets).Methods(http.MethodGet)
	api.HandleFunc("/datasets/{dataset}/tables", h.handleListTables).Methods(http.MethodGet)
	api.HandleFunc("/tables/{dataset}/{table}/schema", h.handleTableSchema).Methods(http.MethodGet)
	api.HandleFunc("/metrics", h.handleMetrics).Methods(http.MethodGet)

	c := cors.New(cors.Options{
		AllowedOrigins:   h.svc.cfg.CORSOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "X-API-Key", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	})

	var handler http.Handler = r
	handler = accessLogMiddleware(h.log)(handler)
	handler = securityHeadersMiddleware(handler)
	handler = c.Handler(handler)
	handler = requestIDMiddleware(handler)
	return handler
}

func (h *Handler) handleQuery(w http.ResponseWriter, r *http.Request) {
	requestID := requestIDFrom(r.Context())
	start := time.Now()

	var body QueryRequestBody
	if !decodeBody(w, r, requestID, CodeInvalidSQL, &body) {
		h.observe("query", CodeInvalidSQL, start)
		return
	}
	if body.SQL == "" {
		writeError(w, requestID, &pipelineError{
			Status:  http.StatusBadRequest,
			Code:    CodeInvalidSQL,
			Message: "sql is required",
		})
		h.observe("query", CodeInvalidSQL, start)
		return
	}
	if body.TimeoutMS != 0 && (body.TimeoutMS < minQueryTimeoutMS || body.TimeoutMS > maxQueryTimeoutMS) {
		writeError(w, requestID, &pipelineError{
			Status:  http.StatusBadRequest,
			Code:    CodeInvalidSQL,
			Message: fmt.Sprintf("timeout_ms must be between %d and %d", minQueryTimeoutMS, maxQueryTimeoutMS),
		})
		h.observe("query", CodeInvalidSQL, start)
		return
	}

	resp, perr := h.svc.ExecuteSQL(r.Context(), requestID, apiKeyFrom(r.Context()), body.SQL, body.DryRun, body.TimeoutMS)
	if perr != nil {
		h.writeRateLimitHeaders(w, r, perr)
		writeError(w, requestID, perr)
		h.observe("query", perr.Code, start)
		return
	}
	h.setRateLimitHeaders(w, r)
	writeJSON(w, http.StatusOK, resp)
	h.observe("query", "", start)
}

func (h *Handler) handleQueryAgent(w http.ResponseWriter, r *http.Request) {
	requestID := requestIDFrom(r.Context())
	start := time.Now()

	var body AgentRequestBody
	if !decodeBody(w, r, requestID, CodeInvalidPrompt, &body) {
		h.observe("query-agent", CodeInvalidPrompt, start)
		return
	}
	if body.Prompt == "" {
		writeError(w, requestID, &pipelineError{
			Status:  http.StatusBadRequest,
			Code:    CodeInvalidPrompt,
			Message: "prompt is required",
		})
		h.observe("query-agent", CodeInvalidPrompt, start)
		return
	}
	if body.TimeoutSeconds != 0 && (body.TimeoutSeconds < minAgentTimeoutS || body.TimeoutSeconds > maxAgentTimeoutS) {
		writeError(w, requestID, &pipelineError{
			Status:  http.StatusBadRequest,
			Code:    CodeInvalidPrompt,
			Message: fmt.Sprintf("timeout_seconds must be between %d and %d", minAgentTimeoutS, maxAgentTimeoutS),
		})
		h.observe("query-agent", CodeInvalidPrompt, start)
		return
	}

	resp, perr := h.svc.ExecutePrompt(r.Context(), requestID, apiKeyFrom(r.Context()), body.Prompt,
		body.DryRun, time.Duration(body.TimeoutSeconds)*time.Second)
	if perr != nil {
		h.writeRateLimitHeaders(w, r, perr)
		writeError(w, requestID, perr)
		h.observe("query-agent", perr.Code, start)
		return
	}
	h.setRateLimitHeaders(w, r)
	writeJSON(w, http.StatusOK, resp)
	h.observe("query-agent", "", start)
}

func (h *Handler) handleListDatasets(w http.ResponseWriter, r *http.Request) {
	requestID := requestIDFrom(r.Context())
	datasets, err := h.svc.executor.ListDatasets(r.Context())
	if err != nil {
		writeError(w, requestID, executionError(err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"datasets": datasets})
}

func (h *Handler) handleListTables(w http.ResponseWriter, r *http.Request) {
	requestID := requestIDFrom(r.Context())
	dataset := mux.Vars(r)["dataset"]
	tables, err := h.svc.executor.ListTables(r.Context(), dataset)
	if err != nil {
		writeError(w, requestID, executionError(err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"dataset": dataset, "tables": tables})
}

func (h *Handler) handleTableSchema(w http.ResponseWriter, r *http.Request) {
	requestID := requestIDFrom(r.Context())
	vars := mux.Vars(r)
	schema, err := h.svc.executor.GetTableSchema(r.Context(), vars["dataset"], vars["table"])
	if err != nil {
		writeError(w, requestID, executionError(err))
		return
	}
	writeJSON(w, http.StatusOK, schema)
}

// handleHealth reports liveness plus per-component readiness. The
// warehouse is the only required dependency; the audit sink only
// degrades status when configured.
func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	components := map[string]string{}
	healthy := true

	if h.svc.executor.Healthy(r.Context()) {
		components["warehouse"] = "ok"
	} else {
		components["warehouse"] = "unavailable"
		healthy = false
	}

	if sink := h.svc.auditLog.Sink(); sink != nil {
		if sink.Healthy() {
			components["audit"] = "ok"
		} else {
			components["audit"] = "unavailable"
			healthy = false
		}
	}

	status, code := "healthy", http.StatusOK
	if !healthy {
		status, code = "degraded", http.StatusServiceUnavailable
	}
	writeJSON(w, code, HealthResponse{Status: status, Components: components})
}

func (h *Handler) handleMetrics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.metrics.Snapshot())
}

// observe feeds both the in-process counters and the prometheus
// collectors for one finished request.
func (h *Handler) observe(endpoint, code string, start time.Time) {
	h.svc.metrics.RecordRequest(code)
	status := "success"
	if code != "" {
		status = code
	}
	promRequestsTotal.WithLabelValues(endpoint, status).Inc()
	promQueryDuration.WithLabelValues(endpoint).Observe(float64(time.Since(start).Milliseconds()))
}

// setRateLimitHeaders reports remaining budget on every metered
// response so clients can pace themselves.
func (h *Handler) setRateLimitHeaders(w http.ResponseWriter, r *http.Request) {
	used, _ := h.svc.limiter.Status(r.Context(), apiKeyFrom(r.Context()))
	limit := h.svc.cfg.RateLimitPerMinute
	remaining := limit - used
	if remaining < 0 {
		remaining = 0
	}
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
}

// writeRateLimitHeaders annotates 429 responses so clients can back
// off precisely instead of retrying blind.
func (h *Handler) writeRateLimitHeaders(w http.ResponseWriter, r *http.Request, perr *pipelineError) {
	if perr.Code != CodeRateLimitExceeded {
		return
	}
	_, resetAt := h.svc.limiter.Status(r.Context(), apiKeyFrom(r.Context()))
	h.setRateLimitHeaders(w, r)
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(resetAt.Unix(), 10))
}

func decodeBody(w http.ResponseWriter, r *http.Request, requestID, code string, dst interface{}) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeError(w, requestID, &pipelineError{
			Status:  http.StatusBadRequest,
			Code:    code,
			Message: "request body must be valid JSON",
		})
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
