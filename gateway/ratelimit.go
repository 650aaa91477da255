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
	"sync"
	"time"
)

// rateWindow is the sliding-window span for rate limiting.
const rateWindow = 60 * time.Second

// Limiter decides whether one more request from key may proceed.
type Limiter interface {
	// Allow records the request and returns true, or returns false
	// without recording it when the key is over its limit.
	Allow(ctx context.Context, key string) bool
	// Status reports how many requests the key made in the current
	// window and when the oldest of them expires.
	Status(ctx context.Context, key string) (used int, resetAt time.Time)
}

// MemoryLimiter is a per-process sliding-window limiter. Timestamps
// are pruned lazily on each check, so idle keys cost nothing until
// they return.
type MemoryLimiter struct {
	limit  int
	window time.Duration

	mu      sync.Mutex
	history map[string][]time.Time

	// now is swappable for tests.
	now func() time.Time
}

var _ Limiter = (*MemoryLimiter)(nil)

// NewMemoryLimiter builds a limiter allowing limit requests per
// 60-second sliding window.
func NewMemoryLimiter(limit int) *MemoryLimiter {
	return &MemoryLimiter{
		limit:   limit,
		window:  rateWindow,
		history: make(map[string][]time.Time),
		now:     time.Now,
	}
}

// Allow checks and records atomically: the decision and the recording
// happen under one lock so concurrent callers cannot both slip under
// the limit.
func (l *MemoryLimiter) Allow(_ context.Context, key string) bool {
	now := l.now()
	cutoff := now.Add(-l.window)

	l.mu.Lock()
	defer l.mu.Unlock()

	kept := pruneBefore(l.history[key], cutoff)
	if len(kept) >= l.limit {
		l.history[key] = kept
		return false
	}
	l.history[key] = append(kept, now)
	return true
}

// Status reports current usage without recording a request.
func (l *MemoryLimiter) Status(_ context.Context, key string) (int, time.Time) {
	now := l.now()
	cutoff := now.Add(-l.window)

	l.mu.Lock()
	defer l.mu.Unlock()

	kept := pruneBefore(l.history[key], cutoff)
	l.history[key] = kept
	if len(kept) == 0 {
		return 0, now
	}
	return len(kept), kept[0].Add(l.window)
}

// pruneBefore drops timestamps at or before cutoff. The slice is
// ordered oldest first, so the first kept index bounds the copy.
func pruneBefore(stamps []time.Time, cutoff time.Time) []time.Time {
	idx := 0
	for idx < len(stamps) && !stamps[idx].After(cutoff) {
		idx++
	}
	if idx == 0 {
		return stamps
	}
	kept := make([]time.Time, len(stamps)-idx)
	copy(kept, stamps[idx:])
	return kept
}
