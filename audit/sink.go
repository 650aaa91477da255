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
	"database/sql"
	"encoding/json"
	"sync"
	"time"

	_ "github.com/lib/pq"

	"github.com/ekonugroho98/cortex-ai/shared/logger"
)

const (
	defaultBatchSize     = 100
	defaultFlushInterval = 10 * time.Second
)

// Sink batches audit entries and writes them to postgres. Writes are
// best-effort: a failed batch is logged and dropped rather than
// blocking the request path.
type Sink struct {
	db        *sql.DB
	log       *logger.Logger
	batchSize int

	mu      sync.Mutex
	entries []*Entry

	ticker    *time.Ticker
	done      chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewSink opens the audit database and starts the background flusher.
func NewSink(databaseURL string) (*Sink, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, err
	}
	s := newSinkWithDB(db)
	if err := s.createTable(); err != nil {
		s.log.Warn("", "", "audit table setup failed", map[string]interface{}{"error": err.Error()})
	}
	return s, nil
}

func newSinkWithDB(db *sql.DB) *Sink {
	s := &Sink{
		db:        db,
		log:       logger.New("audit-sink"),
		batchSize: defaultBatchSize,
		entries:   make([]*Entry, 0, defaultBatchSize),
		ticker:    time.NewTicker(defaultFlushInterval),
		done:      make(chan struct{}),
	}
	s.wg.Add(1)
	go s.flushLoop()
	return s
}

// Add queues one entry. A full batch triggers an immediate write.
func (s *Sink) Add(entry *Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, entry)
	if len(s.entries) >= s.batchSize {
		s.flushLocked()
	}
}

// Flush writes any pending entries now.
func (s *Sink) Flush() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flushLocked()
}

// Close flushes pending entries and stops the background flusher.
// Safe to call more than once; later calls return nil.
func (s *Sink) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.done)
		s.wg.Wait()
		s.Flush()
		err = s.db.Close()
	})
	return err
}

// Healthy reports whether the audit database answers a ping.
func (s *Sink) Healthy() bool {
	return s.db.Ping() == nil
}

func (s *Sink) flushLoop() {
	defer s.wg.Done()
	defer s.ticker.Stop()
	for {
		select {
		case <-s.ticker.C:
			s.Flush()
		case <-s.done:
			return
		}
	}
}

func (s *Sink) flushLocked() {
	if len(s.entries) == 0 {
		return
	}
	if err := s.write(s.entries); err != nil {
		s.log.Error("", "", "audit batch write failed", map[string]interface{}{"error": err.Error()})
	}
	s.entries = s.entries[:0]
}

func (s *Sink) write(entries []*Entry) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.Prepare(`
		INSERT INTO query_audit (
			id, request_id, timestamp, request_type, api_key_hash,
			sql_hash, prompt_hash, status, violations, error_code,
			bytes_processed, cost_usd, row_count, duration_ms, cache_hit
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`)
	if err != nil {
		return err
	}
	defer func() { _ = stmt.Close() }()

	for _, e := range entries {
		violations, _ := json.Marshal(e.Violations)
		if _, err := stmt.Exec(
			e.ID, e.RequestID, e.Timestamp, e.RequestType, e.APIKeyHash,
			e.SQLHash, e.PromptHash, string(e.Status), violations, e.ErrorCode,
			e.BytesProcessed, e.CostUSD, e.RowCount, e.DurationMS, e.CacheHit,
		); err != nil {
			s.log.Error("", "", "audit insert failed", map[string]interface{}{"error": err.Error()})
		}
	}
	return tx.Commit()
}

func (s *Sink) createTable() error {
	_, err := s.db.Exec(`
	CREATE TABLE IF NOT EXISTS query_audit (
		id VARCHAR(64) PRIMARY KEY,
		request_id VARCHAR(64) NOT NULL,
		timestamp TIMESTAMP NOT NULL,
		request_type VARCHAR(16) NOT NULL,
		api_key_hash VARCHAR(16) NOT NULL,
		sql_hash VARCHAR(16),
		prompt_hash VARCHAR(16),
		status VARCHAR(16) NOT NULL,
		violations JSONB,
		error_code VARCHAR(64),
		bytes_processed BIGINT,
		cost_usd DECIMAL(10, 6),
		row_count INTEGER,
		duration_ms BIGINT,
		cache_hit BOOLEAN,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_query_audit_timestamp ON query_audit(timestamp);
	CREATE INDEX IF NOT EXISTS idx_query_audit_api_key_hash ON query_audit(api_key_hash);
	CREATE INDEX IF NOT EXISTS idx_query_audit_status ON query_audit(status);
	`)
	return err
}
