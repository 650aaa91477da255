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
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/ekonugroho98/cortex-ai/audit"
	"github.com/ekonugroho98/cortex-ai/cost"
	"github.com/ekonugroho98/cortex-ai/generator"
	"github.com/ekonugroho98/cortex-ai/guard"
	"github.com/ekonugroho98/cortex-ai/mask"
	"github.com/ekonugroho98/cortex-ai/shared/logger"
	"github.com/ekonugroho98/cortex-ai/warehouse"
)

// schemaCacheTTL bounds how stale the generator's table context may
// get before it is rebuilt from live metadata.
const schemaCacheTTL = 5 * time.Minute

// Service runs the validation pipeline for both request paths. It is
// the only place execution order is decided; handlers just decode and
// encode.
type Service struct {
	cfg             *Config
	log             *logger.Logger
	sqlValidator    *guard.SQLValidator
	promptValidator *guard.PromptValidator
	pii             *guard.PIIDetector
	masker          *mask.Masker
	costs           *cost.Tracker
	auditLog        *audit.Logger
	limiter         Limiter
	executor        warehouse.Executor
	gen             generator.Generator
	pool            *workerPool
	metrics         *Metrics

	schemaMu      sync.Mutex
	schemaContext string
	schemaBuiltAt time.Time
}

// NewService wires the pipeline. gen may be nil when the AI path is
// not configured; requests to it then fail with CLAUDE_UNAVAILABLE.
func NewService(cfg *Config, executor warehouse.Executor, gen generator.Generator,
	limiter Limiter, auditLog *audit.Logger) *Service {
	return &Service{
		cfg:             cfg,
		log:             logger.New("gateway"),
		sqlValidator:    guard.NewSQLValidator(),
		promptValidator: guard.NewPromptValidator(),
		pii:             guard.NewPIIDetector(),
		masker:          mask.New(cfg.MaskingEnabled),
		costs:           cost.New(cfg.MaxBytesBilled, cfg.CostTrackingEnabled, nil),
		auditLog:        auditLog,
		limiter:         limiter,
		executor:        executor,
		gen:             gen,
		pool:            newWorkerPool(cfg.WorkerPoolSize),
		metrics:         NewMetrics(),
	}
}

// QueryResponse is the success body of both query endpoints.
type QueryResponse struct {
	Rows             []map[string]interface{} `json:"rows"`
	Columns          []string                 `json:"columns,omitempty"`
	RowCount         int                      `json:"row_count"`
	BytesProcessed   int64                    `json:"bytes_processed"`
	EstimatedCostUSD float64                  `json:"estimated_cost_usd"`
	CacheHit         bool                     `json:"cache_hit"`
	DurationMS       int64                    `json:"duration_ms"`
	JobID            string                   `json:"job_id,omitempty"`
	GeneratedSQL     string                   `json:"generated_sql,omitempty"`
	Explanation      string                   `json:"explanation,omitempty"`
	RequestID        string                   `json:"request_id,omitempty"`
}

// ExecuteSQL runs the direct-SQL pipeline: rate limit, PII gate,
// SQL validation, then metered execution. With dryRun the query is
// priced but never billed or executed. timeoutMS overrides the
// warehouse default when nonzero.
func (s *Service) ExecuteSQL(ctx context.Context, requestID, apiKey, sqlText string, dryRun bool, timeoutMS int64) (*QueryResponse, *pipelineError) {
	if perr := s.checkRateLimit(ctx, apiKey); perr != nil {
		s.auditReject("sql", requestID, apiKey, sqlText, "", perr)
		return nil, perr
	}

	if hit, keywords := s.pii.ContainsPIIRequest(sqlText); hit {
		perr := piiError(keywords)
		s.auditReject("sql", requestID, apiKey, sqlText, "", perr)
		return nil, perr
	}

	if res := s.sqlValidator.Validate(sqlText); !res.Valid {
		perr := &pipelineError{
			Status:     http.StatusBadRequest,
			Code:       CodeInvalidSQL,
			Message:    "SQL validation failed",
			Violations: res.Violations,
		}
		s.auditReject("sql", requestID, apiKey, sqlText, "", perr)
		return nil, perr
	}

	if err := s.pool.acquire(ctx); err != nil {
		perr := s.poolError(err)
		s.auditReject("sql", requestID, apiKey, sqlText, "", perr)
		return nil, perr
	}
	defer s.pool.release()

	resp, perr := s.runQuery(ctx, "sql", requestID, apiKey, sqlText, "", dryRun, timeoutMS)
	if perr != nil {
		return nil, perr
	}
	resp.RequestID = requestID
	return resp, nil
}

// ExecutePrompt runs the natural-language pipeline: rate limit, PII
// gate, prompt validation, SQL generation, re-validation of the
// generated SQL, then metered execution. With dryRun the generated SQL
// is priced but never executed. genTimeout overrides the configured
// generation timeout when nonzero.
func (s *Service) ExecutePrompt(ctx context.Context, requestID, apiKey, prompt string, dryRun bool, genTimeout time.Duration) (*QueryResponse, *pipelineError) {
	if perr := s.checkRateLimit(ctx, apiKey); perr != nil {
		s.auditReject("ai_agent", requestID, apiKey, "", prompt, perr)
		return nil, perr
	}

	if hit, keywords := s.pii.ContainsPIIRequest(prompt); hit {
		perr := piiError(keywords)
		s.auditReject("ai_agent", requestID, apiKey, "", prompt, perr)
		return nil, perr
	}

	if res := s.promptValidator.Validate(prompt); !res.Valid {
		perr := &pipelineError{
			Status:     http.StatusBadRequest,
			Code:       CodeInvalidPrompt,
			Message:    "prompt validation failed",
			Violations: res.Violations,
		}
		s.auditReject("ai_agent", requestID, apiKey, "", prompt, perr)
		return nil, perr
	}

	if s.gen == nil {
		perr := &pipelineError{
			Status:  http.StatusServiceUnavailable,
			Code:    CodeClaudeUnavailable,
			Message: "SQL generation is not configured",
		}
		s.auditError("ai_agent", requestID, apiKey, "", prompt, perr)
		return nil, perr
	}

	if err := s.pool.acquire(ctx); err != nil {
		perr := s.poolError(err)
		s.auditReject("ai_agent", requestID, apiKey, "", prompt, perr)
		return nil, perr
	}
	defer s.pool.release()

	if genTimeout <= 0 {
		genTimeout = s.cfg.ClaudeTimeout()
	}
	sanitized := s.promptValidator.Sanitize(prompt)
	genRes, err := s.gen.Generate(ctx, sanitized, s.schemaContextFor(ctx), genTimeout)
	if err != nil {
		perr := generationError(err)
		s.auditError("ai_agent", requestID, apiKey, "", prompt, perr)
		return nil, perr
	}

	// Generated SQL is untrusted: it passes the same gate as SQL a
	// caller submits directly, under its own error code.
	if res := s.sqlValidator.Validate(genRes.SQL); !res.Valid {
		perr := &pipelineError{
			Status:     http.StatusBadRequest,
			Code:       CodeGeneratedInvalidSQL,
			Message:    "generated SQL failed validation",
			Violations: res.Violations,
		}
		s.auditReject("ai_agent", requestID, apiKey, genRes.SQL, prompt, perr)
		return nil, perr
	}

	resp, perr := s.runQuery(ctx, "ai_agent", requestID, apiKey, genRes.SQL, prompt, dryRun, 0)
	if perr != nil {
		return nil, perr
	}
	resp.GeneratedSQL = genRes.SQL
	resp.Explanation = genRes.Explanation
	resp.RequestID = requestID
	return resp, nil
}

// runQuery executes validated SQL with cost enforcement, masking, and
// audit. The caller holds a worker slot.
func (s *Service) runQuery(ctx context.Context, requestType, requestID, apiKey, sqlText, prompt string, dryRun bool, timeoutMS int64) (*QueryResponse, *pipelineError) {
	if s.cfg.RowFilterColumn != "" {
		// Tenant attribution uses the key hash, matching what the
		// audit trail records for the same caller.
		sqlText = guard.AppendRowFilter(sqlText, s.cfg.RowFilterColumn, audit.HashField(apiKey))
	}

	start := time.Now()

	if dryRun {
		return s.runDryRun(ctx, requestType, requestID, apiKey, sqlText, prompt, start)
	}

	if s.cfg.CostTrackingEnabled {
		dry, err := s.executor.Execute(ctx, warehouse.QueryRequest{SQL: sqlText, DryRun: true})
		if err != nil {
			perr := executionError(err)
			s.auditError(requestType, requestID, apiKey, sqlText, prompt, perr)
			return nil, perr
		}
		if err := s.costs.CheckCostLimits(dry.BytesProcessed, apiKey); err != nil {
			perr := &pipelineError{
				Status:  http.StatusBadRequest,
				Code:    CodeCostLimitExceeded,
				Message: err.Error(),
			}
			s.auditReject(requestType, requestID, apiKey, sqlText, prompt, perr)
			return nil, perr
		}
	}

	result, err := s.executor.Execute(ctx, warehouse.QueryRequest{
		SQL:            sqlText,
		MaxBytesBilled: s.cfg.MaxBytesBilled,
		TimeoutMS:      timeoutMS,
	})
	if err != nil {
		perr := executionError(err)
		s.auditError(requestType, requestID, apiKey, sqlText, prompt, perr)
		return nil, perr
	}

	duration := time.Since(start)
	costUSD := cost.EstimateCost(result.BytesProcessed)
	s.costs.LogQueryCost(sqlText, apiKey, result.BytesProcessed, duration.Milliseconds())
	s.metrics.RecordQuery(result.BytesProcessed, costUSD, duration)
	promBytesProcessed.Add(float64(result.BytesProcessed))

	rows := s.masker.MaskRows(result.Rows)
	if rows == nil {
		rows = []map[string]interface{}{}
	}

	record := audit.Record{
		RequestID:      requestID,
		APIKey:         apiKey,
		SQL:            sqlText,
		Prompt:         prompt,
		Status:         audit.StatusSuccess,
		BytesProcessed: result.BytesProcessed,
		CostUSD:        costUSD,
		RowCount:       len(rows),
		DurationMS:     duration.Milliseconds(),
		CacheHit:       result.CacheHit,
	}
	s.auditRecord(requestType, record)

	return &QueryResponse{
		Rows:             rows,
		Columns:          result.Columns,
		RowCount:         len(rows),
		BytesProcessed:   result.BytesProcessed,
		EstimatedCostUSD: costUSD,
		CacheHit:         result.CacheHit,
		DurationMS:       duration.Milliseconds(),
		JobID:            result.JobID,
	}, nil
}

// runDryRun prices the query without executing it. The cost ceiling
// is reported, not enforced; nothing is billed so nothing is blocked.
func (s *Service) runDryRun(ctx context.Context, requestType, requestID, apiKey, sqlText, prompt string, start time.Time) (*QueryResponse, *pipelineError) {
	dry, err := s.executor.Execute(ctx, warehouse.QueryRequest{SQL: sqlText, DryRun: true})
	if err != nil {
		perr := executionError(err)
		s.auditError(requestType, requestID, apiKey, sqlText, prompt, perr)
		return nil, perr
	}

	duration := time.Since(start)
	s.auditRecord(requestType, audit.Record{
		RequestID:      requestID,
		APIKey:         apiKey,
		SQL:            sqlText,
		Prompt:         prompt,
		Status:         audit.StatusSuccess,
		BytesProcessed: dry.BytesProcessed,
		CostUSD:        cost.EstimateCost(dry.BytesProcessed),
		DurationMS:     duration.Milliseconds(),
	})

	return &QueryResponse{
		Rows:             []map[string]interface{}{},
		BytesProcessed:   dry.BytesProcessed,
		EstimatedCostUSD: cost.EstimateCost(dry.BytesProcessed),
		DurationMS:       duration.Milliseconds(),
	}, nil
}

func (s *Service) checkRateLimit(ctx context.Context, apiKey string) *pipelineError {
	if s.limiter.Allow(ctx, apiKey) {
		return nil
	}
	promRateLimited.Inc()
	_, resetAt := s.limiter.Status(ctx, apiKey)
	retryAfter := int(time.Until(resetAt).Seconds()) + 1
	if retryAfter < 1 {
		retryAfter = 1
	}
	return &pipelineError{
		Status:     http.StatusTooManyRequests,
		Code:       CodeRateLimitExceeded,
		Message:    fmt.Sprintf("rate limit exceeded (%d requests per minute)", s.cfg.RateLimitPerMinute),
		RetryAfter: retryAfter,
	}
}

func (s *Service) poolError(err error) *pipelineError {
	if errors.Is(err, errPoolSaturated) {
		promPoolSaturated.Inc()
		return &pipelineError{
			Status:  http.StatusServiceUnavailable,
			Code:    CodePoolSaturated,
			Message: "server is at capacity, please retry",
		}
	}
	return &pipelineError{
		Status:  http.StatusServiceUnavailable,
		Code:    CodePoolSaturated,
		Message: "request cancelled while waiting for capacity",
	}
}

// schemaContextFor returns a cached plain-text rendering of the
// configured dataset for the generator's system prompt. Failures
// degrade to an empty context rather than failing the request.
func (s *Service) schemaContextFor(ctx context.Context) string {
	s.schemaMu.Lock()
	defer s.schemaMu.Unlock()

	if s.schemaContext != "" && time.Since(s.schemaBuiltAt) < schemaCacheTTL {
		return s.schemaContext
	}
	if s.cfg.DatasetID == "" {
		return s.schemaContext
	}

	tables, err := s.executor.ListTables(ctx, s.cfg.DatasetID)
	if err != nil {
		s.log.Warn("", "", "schema context refresh failed", map[string]interface{}{"error": err.Error()})
		return s.schemaContext
	}

	var b strings.Builder
	for _, table := range tables {
		schema, err := s.executor.GetTableSchema(ctx, s.cfg.DatasetID, table)
		if err != nil {
			continue
		}
		b.WriteString(s.cfg.DatasetID + "." + table + "(")
		for i, f := range schema.Fields {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(f.Name + " " + f.Type)
		}
		b.WriteString(")\n")
	}

	s.schemaContext = b.String()
	s.schemaBuiltAt = time.Now()
	return s.schemaContext
}

func (s *Service) auditReject(requestType, requestID, apiKey, sqlText, prompt string, perr *pipelineError) {
	promRejectionsTotal.WithLabelValues(perr.Code).Inc()
	s.auditRecord(requestType, audit.Record{
		RequestID:  requestID,
		APIKey:     apiKey,
		SQL:        sqlText,
		Prompt:     prompt,
		Status:     audit.StatusRejected,
		Violations: perr.Violations,
		ErrorCode:  perr.Code,
	})
}

func (s *Service) auditError(requestType, requestID, apiKey, sqlText, prompt string, perr *pipelineError) {
	s.auditRecord(requestType, audit.Record{
		RequestID: requestID,
		APIKey:    apiKey,
		SQL:       sqlText,
		Prompt:    prompt,
		Status:    audit.StatusError,
		ErrorCode: perr.Code,
	})
}

func (s *Service) auditRecord(requestType string, record audit.Record) {
	if requestType == "ai_agent" {
		s.auditLog.LogAIAgentRequest(record)
	} else {
		s.auditLog.LogQuery(record)
	}
}

func piiError(keywords []string) *pipelineError {
	violations := make([]string, len(keywords))
	for i, kw := range keywords {
		violations[i] = "request references sensitive data: " + kw
	}
	return &pipelineError{
		Status:     http.StatusBadRequest,
		Code:       CodePIIDetected,
		Message:    "request asks for sensitive personal or credential data",
		Violations: violations,
	}
}

// generationError maps generator failures onto stable codes.
func generationError(err error) *pipelineError {
	switch {
	case errors.Is(err, generator.ErrTimeout):
		return &pipelineError{
			Status:  http.StatusGatewayTimeout,
			Code:    CodeClaudeTimeout,
			Message: "SQL generation timed out",
		}
	case errors.Is(err, generator.ErrNoSQL):
		return &pipelineError{
			Status:  http.StatusBadGateway,
			Code:    CodeClaudeNoSQL,
			Message: "the model did not produce a SQL query",
		}
	case errors.Is(err, generator.ErrUnavailable):
		return &pipelineError{
			Status:  http.StatusServiceUnavailable,
			Code:    CodeClaudeUnavailable,
			Message: "SQL generation is temporarily unavailable",
		}
	default:
		return &pipelineError{
			Status:  http.StatusBadGateway,
			Code:    CodeAgentError,
			Message: sanitizeError(err),
		}
	}
}

// executionError maps warehouse failures onto stable codes.
func executionError(err error) *pipelineError {
	switch {
	case errors.Is(err, warehouse.ErrNotFound):
		return &pipelineError{
			Status:  http.StatusNotFound,
			Code:    CodeTableNotFound,
			Message: sanitizeError(err),
		}
	case errors.Is(err, warehouse.ErrSyntax):
		return &pipelineError{
			Status:  http.StatusBadRequest,
			Code:    CodeSyntaxError,
			Message: sanitizeError(err),
		}
	default:
		return &pipelineError{
			Status:  http.StatusInternalServerError,
			Code:    CodeQueryError,
			Message: sanitizeError(err),
		}
	}
}
