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

package audit

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ekonugroho98/cortex-ai/shared/logger"
)

func newTestLogger(enabled bool) (*Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	log := logger.New("audit")
	log.SetOutput(&buf)
	return New(enabled, log, nil), &buf
}

func TestHashField(t *testing.T) {
	assert.Empty(t, HashField(""))
	h := HashField("SELECT * FROM users")
	assert.Len(t, h, 16)
	assert.Equal(t, h, HashField("SELECT * FROM users"))
	assert.NotEqual(t, h, HashField("SELECT * FROM orders"))
}

func TestLogger_LogQuery(t *testing.T) {
	l, buf := newTestLogger(true)

	l.LogQuery(Record{
		RequestID:      "req-1",
		APIKey:         "sk-cortex-secret",
		SQL:            "SELECT * FROM users",
		Status:         StatusSuccess,
		BytesProcessed: 1024,
		CostUSD:        0.000005,
		RowCount:       3,
		DurationMS:     42,
	})

	out := buf.String()
	require.NotEmpty(t, out)

	// Raw sensitive fields must never appear.
	assert.NotContains(t, out, "sk-cortex-secret")
	assert.NotContains(t, out, "SELECT * FROM users")
	assert.Contains(t, out, HashField("sk-cortex-secret"))
	assert.Contains(t, out, HashField("SELECT * FROM users"))
	assert.Contains(t, out, `"level":"INFO"`)

	entry := decodeEntry(t, buf.Bytes())
	assert.Equal(t, "sql", entry.RequestType)
	assert.Equal(t, StatusSuccess, entry.Status)
	assert.Equal(t, int64(1024), entry.BytesProcessed)
	assert.Equal(t, 3, entry.RowCount)
}

func TestLogger_LogQuery_ErrorLevel(t *testing.T) {
	l, buf := newTestLogger(true)

	l.LogQuery(Record{
		RequestID: "req-2",
		APIKey:    "key",
		SQL:       "SELECT 1",
		Status:    StatusError,
		ErrorCode: "BQ_QUERY_ERROR",
	})

	assert.Contains(t, buf.String(), `"level":"ERROR"`)
	assert.Contains(t, buf.String(), "BQ_QUERY_ERROR")
}

func TestLogger_LogAIAgentRequest(t *testing.T) {
	l, buf := newTestLogger(true)

	l.LogAIAgentRequest(Record{
		RequestID:  "req-3",
		APIKey:     "key",
		Prompt:     "show me top users",
		SQL:        "SELECT name FROM users LIMIT 10",
		Status:     StatusRejected,
		Violations: []string{"query contains dangerous pattern: inline comment"},
	})

	out := buf.String()
	assert.NotContains(t, out, "show me top users")
	assert.Contains(t, out, HashField("show me top users"))
	assert.Contains(t, out, "dangerous pattern")

	entry := decodeEntry(t, buf.Bytes())
	assert.Equal(t, "ai_agent", entry.RequestType)
	assert.Equal(t, StatusRejected, entry.Status)
	assert.NotEmpty(t, entry.PromptHash)
	assert.NotEmpty(t, entry.SQLHash)
}

func TestLogger_Disabled(t *testing.T) {
	l, buf := newTestLogger(false)
	l.LogQuery(Record{RequestID: "req-4", APIKey: "key", SQL: "SELECT 1", Status: StatusSuccess})
	assert.Empty(t, buf.String())
}

func TestLogger_EntryShape(t *testing.T) {
	l, buf := newTestLogger(true)
	l.LogQuery(Record{RequestID: "req-5", APIKey: "key", SQL: "SELECT 1", Status: StatusSuccess})

	entry := decodeEntry(t, buf.Bytes())
	assert.NotEmpty(t, entry.ID)
	assert.Equal(t, "req-5", entry.RequestID)
	assert.False(t, entry.Timestamp.IsZero())
}

// decodeEntry unwraps the audit entry JSON carried in the log line's
// message field.
func decodeEntry(t *testing.T, line []byte) Entry {
	t.Helper()
	var wrapper struct {
		Message string `json:"message"`
	}
	require.NoError(t, json.Unmarshal(line, &wrapper))
	var entry Entry
	require.NoError(t, json.Unmarshal([]byte(wrapper.Message), &entry))
	return entry
}
