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
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Prometheus metrics
var (
	promRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cortexai_gateway_requests_total",
			Help: "Total number of requests processed by the gateway",
		},
		[]string{"endpoint", "status"},
	)
	promQueryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cortexai_gateway_query_duration_milliseconds",
			Help:    "End-to-end query duration in milliseconds",
			Buckets: []float64{10, 50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000},
		},
		[]string{"endpoint"},
	)
	promRejectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cortexai_gateway_rejections_total",
			Help: "Requests rejected before execution, by error code",
		},
		[]string{"code"},
	)
	promBytesProcessed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "cortexai_gateway_bytes_processed_total",
			Help: "Total bytes processed by executed queries",
		},
	)
	promRateLimited = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "cortexai_gateway_rate_limited_total",
			Help: "Requests rejected by the rate limiter",
		},
	)
	promPoolSaturated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "cortexai_gateway_pool_saturated_total",
			Help: "Requests rejected because the worker pool was full",
		},
	)
)

func init() {
	prometheus.MustRegister(promRequestsTotal)
	prometheus.MustRegister(promQueryDuration)
	prometheus.MustRegister(promRejectionsTotal)
	prometheus.MustRegister(promBytesProcessed)
	prometheus.MustRegister(promRateLimited)
	prometheus.MustRegister(promPoolSaturated)
}

// Metrics tracks gateway counters for the JSON metrics endpoint.
// Prometheus carries the same signals for scraping; this snapshot
// serves dashboards that only speak JSON.
type Metrics struct {
	mu sync.RWMutex

	startTime time.Time

	totalRequests    int64
	successful       int64
	rejected         int64
	failed           int64
	rateLimited      int64
	bytesProcessed   int64
	totalCostUSD     float64
	totalDurationMS  int64
	completedQueries int64
}

// MetricsSnapshot is the JSON shape of the metrics endpoint.
type MetricsSnapshot struct {
	UptimeSeconds    int64   `json:"uptime_seconds"`
	TotalRequests    int64   `json:"total_requests"`
	Successful       int64   `json:"successful"`
	Rejected         int64   `json:"rejected"`
	Failed           int64   `json:"failed"`
	RateLimited      int64   `json:"rate_limited"`
	BytesProcessed   int64   `json:"bytes_processed"`
	TotalCostUSD     float64 `json:"total_cost_usd"`
	AvgQueryTimeMS   float64 `json:"avg_query_time_ms"`
	CompletedQueries int64   `json:"completed_queries"`
}

// NewMetrics builds a metrics tracker anchored at now.
func NewMetrics() *Metrics {
	return &Metrics{startTime: time.Now()}
}

// RecordRequest counts one request by outcome code ("" for success).
func (m *Metrics) RecordRequest(code string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.totalRequests++
	switch code {
	case "":
		m.successful++
	case CodeRateLimitExceeded:
		m.rateLimited++
		m.rejected++
	case CodeQueryError, CodeClaudeUnavailable, CodeClaudeTimeout, CodeAgentError:
		m.failed++
	default:
		m.rejected++
	}
}

// RecordQuery accumulates the cost and latency of one executed query.
func (m *Metrics) RecordQuery(bytesProcessed int64, costUSD float64, duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bytesProcessed += bytesProcessed
	m.totalCostUSD += costUSD
	m.totalDurationMS += duration.Milliseconds()
	m.completedQueries++
}

// Snapshot returns the current counters.
func (m *Metrics) Snapshot() MetricsSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	snap := MetricsSnapshot{
		UptimeSeconds:    int64(time.Since(m.startTime).Seconds()),
		TotalRequests:    m.totalRequests,
		Successful:       m.successful,
		Rejected:         m.rejected,
		Failed:           m.failed,
		RateLimited:      m.rateLimited,
		BytesProcessed:   m.bytesProcessed,
		TotalCostUSD:     m.totalCostUSD,
		CompletedQueries: m.completedQueries,
	}
	if m.completedQueries > 0 {
		snap.AvgQueryTimeMS = float64(m.totalDurationMS) / float64(m.completedQueries)
	}
	return snap
}
