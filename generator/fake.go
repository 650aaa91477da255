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

package generator

import (
	"context"
	"sync"
	"time"
)

// Fake is an in-memory Generator for tests.
type Fake struct {
	mu sync.Mutex

	Result *Result
	Err    error

	Prompts  []string
	Timeouts []time.Duration
}

var _ Generator = (*Fake)(nil)

// NewFake returns a Fake that answers every prompt with a fixed
// SELECT.
func NewFake() *Fake {
	return &Fake{Result: &Result{SQL: "SELECT 1", Explanation: "constant"}}
}

func (f *Fake) Generate(ctx context.Context, prompt, schemaContext string, timeout time.Duration) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	f.Prompts = append(f.Prompts, prompt)
	f.Timeouts = append(f.Timeouts, timeout)
	f.mu.Unlock()
	if f.Err != nil {
		return nil, f.Err
	}
	return f.Result, nil
}

// PromptCount returns how many prompts reached the fake model.
func (f *Fake) PromptCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Prompts)
}

// LastTimeout returns the timeout passed with the most recent prompt,
// or zero when nothing was generated.
func (f *Fake) LastTimeout() time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.Timeouts) == 0 {
		return 0
	}
	return f.Timeouts[len(f.Timeouts)-1]
}
