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

// Package audit records every query decision the gateway makes. Raw
// SQL, prompts, and API keys never reach the audit trail; only their
// truncated SHA-256 digests do, enough to correlate entries without
// creating a second copy of sensitive material.
package audit

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/ekonugroho98/cortex-ai/shared/logger"
)

// Status classifies the outcome of a gateway request.
type Status string

const (
	StatusSuccess  Status = "success"
	StatusRejected Status = "rejected"
	StatusError    Status = "error"
)

// Entry is one audit record. Hash fields carry 16-hex-character
// SHA-256 prefixes, never the original text.
type Entry struct {
	ID             string    `json:"id"`
	RequestID      string    `json:"request_id"`
	Timestamp      time.Time `json:"timestamp"`
	RequestType    string    `json:"request_type"` // "sql" or "ai_agent"
	APIKeyHash     string    `json:"api_key_hash"`
	SQLHash        string    `json:"sql_hash,omitempty"`
	PromptHash     string    `json:"prompt_hash,omitempty"`
	Status         Status    `json:"status"`
	Violations     []string  `json:"violations,omitempty"`
	ErrorCode      string    `json:"error_code,omitempty"`
	BytesProcessed int64     `json:"bytes_processed"`
	CostUSD        float64   `json:"cost_usd"`
	RowCount       int       `json:"row_count"`
	DurationMS     int64     `json:"duration_ms"`
	CacheHit       bool      `json:"cache_hit"`
}

// Record carries the raw request facts; the logger hashes the
// sensitive fields before anything is emitted.
type Record struct {
	RequestID      string
	APIKey         string
	SQL            string
	Prompt         string
	Status         Status
	Violations     []string
	ErrorCode      string
	BytesProcessed int64
	CostUSD        float64
	RowCount       int
	DurationMS     int64
	CacheHit       bool
}

// Logger writes audit entries to the structured log and, when a sink
// is attached, to postgres. A disabled logger drops everything.
type Logger struct {
	enabled bool
	log     *logger.Logger
	sink    *Sink
}

// New builds an audit logger. sink may be nil; log defaults to a
// component logger named "audit".
func New(enabled bool, log *logger.Logger, sink *Sink) *Logger {
	if log == nil {
		log = logger.New("audit")
	}
	return &Logger{enabled: enabled, log: log, sink: sink}
}

// Sink returns the attached database sink, or nil.
func (l *Logger) Sink() *Sink { return l.sink }

// LogQuery records a direct-SQL request outcome.
func (l *Logger) LogQuery(rec Record) {
	l.emit("sql", rec)
}

// LogAIAgentRequest records a natural-language request outcome,
// including the hash of the generated SQL when generation succeeded.
func (l *Logger) LogAIAgentRequest(rec Record) {
	l.emit("ai_agent", rec)
}

func (l *Logger) emit(requestType string, rec Record) {
	if !l.enabled {
		return
	}
	entry := &Entry{
		ID:             uuid.NewString(),
		RequestID:      rec.RequestID,
		Timestamp:      time.Now().UTC(),
		RequestType:    requestType,
		APIKeyHash:     HashField(rec.APIKey),
		SQLHash:        HashField(rec.SQL),
		PromptHash:     HashField(rec.Prompt),
		Status:         rec.Status,
		Violations:     rec.Violations,
		ErrorCode:      rec.ErrorCode,
		BytesProcessed: rec.BytesProcessed,
		CostUSD:        rec.CostUSD,
		RowCount:       rec.RowCount,
		DurationMS:     rec.DurationMS,
		CacheHit:       rec.CacheHit,
	}

	payload, _ := json.Marshal(entry)
	if rec.Status == StatusError {
		l.log.Error("", rec.RequestID, string(payload), nil)
	} else {
		l.log.Info("", rec.RequestID, string(payload), nil)
	}

	if l.sink != nil {
		l.sink.Add(entry)
	}
}

// HashField returns the first 16 hex characters of the SHA-256 digest
// of s, or "" when s is empty.
func HashField(s string) string {
	if s == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])[:16]
}
