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
	"net/http"
	"strconv"
	"strings"
)

// Stable error codes. Clients key retry and alerting logic off these;
// the accompanying messages may change, the codes must not.
const (
	CodeInvalidSQL          = "INVALID_SQL"
	CodeInvalidPrompt       = "INVALID_PROMPT"
	CodePIIDetected         = "PII_DETECTED"
	CodeGeneratedInvalidSQL = "CLAUDE_GENERATED_INVALID_SQL"
	CodeCostLimitExceeded   = "COST_LIMIT_EXCEEDED"
	CodeRateLimitExceeded   = "RATE_LIMIT_EXCEEDED"
	CodeClaudeTimeout       = "CLAUDE_TIMEOUT"
	CodeClaudeUnavailable   = "CLAUDE_UNAVAILABLE"
	CodeClaudeNoSQL         = "CLAUDE_NO_SQL"
	CodeTableNotFound       = "BQ_TABLE_NOT_FOUND"
	CodeSyntaxError         = "BQ_SYNTAX_ERROR"
	CodeQueryError          = "BQ_QUERY_ERROR"
	CodePoolSaturated       = "POOL_SATURATED"
	CodeMissingAPIKey       = "MISSING_API_KEY"
	CodeInvalidAPIKey       = "INVALID_API_KEY"
	CodeAgentError          = "AGENT_ERROR"
)

// ErrorResponse is the JSON error body every endpoint emits.
type ErrorResponse struct {
	Error      string   `json:"error"`
	Code       string   `json:"code"`
	Violations []string `json:"violations,omitempty"`
	RequestID  string   `json:"request_id,omitempty"`
}

// pipelineError carries an error decision through the pipeline to the
// HTTP layer.
type pipelineError struct {
	Status     int
	Code       string
	Message    string
	Violations []string
	RetryAfter int // seconds; zero means no Retry-After header
}

func (e *pipelineError) Error() string { return e.Message }

// sensitiveFragments are substrings whose presence marks a backend
// error message as unsafe to forward. Connection strings, DSNs, and
// credential material tend to surface in driver errors.
var sensitiveFragments = []string{
	"password",
	"passwd",
	"token",
	"secret",
	"key",
	"credential",
	"://",
	"dsn=",
	"connection string",
}

const genericErrorMessage = "An internal error occurred while processing the query"

// sanitizeError returns a caller-safe rendering of a backend error.
// Messages that look like they carry credentials or connection details
// are replaced wholesale.
func sanitizeError(err error) string {
	if err == nil {
		return genericErrorMessage
	}
	msg := err.Error()
	lower := strings.ToLower(msg)
	for _, fragment := range sensitiveFragments {
		if strings.Contains(lower, fragment) {
			return genericErrorMessage
		}
	}
	return msg
}

// writeError emits one JSON error response.
func writeError(w http.ResponseWriter, requestID string, perr *pipelineError) {
	if perr.RetryAfter > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(perr.RetryAfter))
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(perr.Status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{
		Error:      perr.Message,
		Code:       perr.Code,
		Violations: perr.Violations,
		RequestID:  requestID,
	})
}
