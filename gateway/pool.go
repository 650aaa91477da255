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
	"time"
)

// errPoolSaturated is returned when no worker slot frees up within the
// acquisition grace period.
var errPoolSaturated = errors.New("worker pool saturated")

// acquireGrace is how long a request waits for a slot before the
// gateway sheds it. Short enough that callers get a fast 503 instead
// of a queue.
const acquireGrace = 250 * time.Millisecond

// workerPool bounds how many warehouse and generator calls run at
// once. It is a counting semaphore; the blocking work itself runs on
// the request goroutine.
type workerPool struct {
	slots chan struct{}
}

func newWorkerPool(size int) *workerPool {
	if size <= 0 {
		size = 1
	}
	return &workerPool{slots: make(chan struct{}, size)}
}

// acquire claims a slot, waiting briefly for one to free. The caller
// must release() on success.
func (p *workerPool) acquire(ctx context.Context) error {
	select {
	case p.slots <- struct{}{}:
		return nil
	default:
	}
	timer := time.NewTimer(acquireGrace)
	defer timer.Stop()
	select {
	case p.slots <- struct{}{}:
		return nil
	case <-timer.C:
		return errPoolSaturated
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *workerPool) release() {
	<-p.slots
}

// inUse reports how many slots are currently claimed.
func (p *workerPool) inUse() int {
	return len(p.slots)
}
