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

// Package cost enforces per-query byte ceilings and attributes query
// spend to API keys. Enforcement happens after a dry run or after
// execution reports bytes processed; the tracker itself never talks
// to the warehouse.
package cost

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/ekonugroho98/cortex-ai/shared/logger"
)

// DefaultMaxBytes is the per-query ceiling applied when no explicit
// limit is configured: 10 GB.
const DefaultMaxBytes int64 = 10_000_000_000

// DollarsPerTB is BigQuery's on-demand analysis price.
const DollarsPerTB = 5.0

// Tracker checks query byte counts against a ceiling and logs spend.
type Tracker struct {
	maxBytes int64
	enabled  bool
	log      *logger.Logger
}

// New builds a Tracker. maxBytes <= 0 selects DefaultMaxBytes.
// A disabled tracker approves everything and logs nothing.
func New(maxBytes int64, enabled bool, log *logger.Logger) *Tracker {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	if log == nil {
		log = logger.New("cost")
	}
	return &Tracker{maxBytes: maxBytes, enabled: enabled, log: log}
}

// MaxBytes returns the configured ceiling.
func (t *Tracker) MaxBytes() int64 { return t.maxBytes }

// CheckCostLimits rejects queries that would process more bytes than
// the ceiling allows. Exactly at the limit passes. The returned error
// message is safe to show to callers.
func (t *Tracker) CheckCostLimits(bytesProcessed int64, apiKey string) error {
	if !t.enabled {
		return nil
	}
	if bytesProcessed <= t.maxBytes {
		return nil
	}
	t.log.Warn("", "", "query over cost limit", map[string]interface{}{
		"bytes_processed": bytesProcessed,
		"limit_bytes":     t.maxBytes,
		"key":             truncateKey(apiKey),
	})
	return fmt.Errorf(
		"Query cost limit exceeded. Processed: %.2fGB, Limit: %.2fGB. Please add more filters to reduce data scanned.",
		float64(bytesProcessed)/1e9, float64(t.maxBytes)/1e9)
}

// LogQueryCost records the estimated dollar cost of a completed query,
// attributed to the hashed API key and hashed SQL text. Neither the
// key nor the query itself reaches the log.
func (t *Tracker) LogQueryCost(sqlText, apiKey string, bytesProcessed, durationMS int64) {
	if !t.enabled {
		return
	}
	t.log.Info("", "", "query cost", map[string]interface{}{
		"cost_usd":        EstimateCost(bytesProcessed),
		"bytes_processed": bytesProcessed,
		"sql_hash":        HashKey(sqlText),
		"key_hash":        HashKey(apiKey),
		"duration_ms":     durationMS,
	})
}

// EstimateCost converts bytes processed to dollars at the on-demand
// rate.
func EstimateCost(bytesProcessed int64) float64 {
	return float64(bytesProcessed) / 1e12 * DollarsPerTB
}

// HashKey returns the first 16 hex characters of the SHA-256 digest,
// enough to correlate log lines without exposing the key.
func HashKey(apiKey string) string {
	sum := sha256.Sum256([]byte(apiKey))
	return hex.EncodeToString(sum[:])[:16]
}

func truncateKey(apiKey string) string {
	if len(apiKey) <= 8 {
		return apiKey
	}
	return apiKey[:8] + "..."
}
