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
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "plain message passes through",
			err:  errors.New("table events not found in dataset analytics"),
			want: "table events not found in dataset analytics",
		},
		{
			name: "password replaced",
			err:  errors.New("authentication failed: bad password for user admin"),
			want: genericErrorMessage,
		},
		{
			name: "connection string replaced",
			err:  errors.New("dial tcp: postgres://user:pw@10.0.0.1:5432 refused"),
			want: genericErrorMessage,
		},
		{
			name: "dsn replaced",
			err:  errors.New("invalid dsn=host=db sslmode=disable"),
			want: genericErrorMessage,
		},
		{
			name: "token replaced case-insensitively",
			err:  errors.New("invalid OAuth TOKEN supplied"),
			want: genericErrorMessage,
		},
		{
			name: "key fragment replaced",
			err:  errors.New("could not load service account key file"),
			want: genericErrorMessage,
		},
		{
			name: "nil error",
			err:  nil,
			want: genericErrorMessage,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, sanitizeError(tt.err))
		})
	}
}

func TestWriteError(t *testing.T) {
	rec := httptest.NewRecorder()
	writeError(rec, "req-123", &pipelineError{
		Status:     http.StatusBadRequest,
		Code:       CodeInvalidSQL,
		Message:    "SQL validation failed",
		Violations: []string{"dangerous pattern: drop_statement"},
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Empty(t, rec.Header().Get("Retry-After"))

	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, CodeInvalidSQL, body.Code)
	assert.Equal(t, "SQL validation failed", body.Error)
	assert.Equal(t, []string{"dangerous pattern: drop_statement"}, body.Violations)
	assert.Equal(t, "req-123", body.RequestID)
}

func TestWriteErrorRetryAfter(t *testing.T) {
	rec := httptest.NewRecorder()
	writeError(rec, "req-456", &pipelineError{
		Status:     http.StatusTooManyRequests,
		Code:       CodeRateLimitExceeded,
		Message:    "rate limit exceeded",
		RetryAfter: 42,
	})

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "42", rec.Header().Get("Retry-After"))
}
