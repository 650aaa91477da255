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

// Package generator defines the boundary between the gateway and the
// SQL-generating model. Whatever a generator returns is untrusted
// input: the pipeline re-validates generated SQL with the same rules
// it applies to SQL submitted directly.
package generator

import (
	"context"
	"errors"
	"time"
)

// Sentinel errors the gateway maps to stable caller-facing codes.
var (
	// ErrTimeout marks a generation that exceeded its deadline.
	ErrTimeout = errors.New("sql generation timed out")
	// ErrUnavailable marks a generator backend that cannot be reached
	// or is refusing work.
	ErrUnavailable = errors.New("sql generator unavailable")
	// ErrNoSQL marks a model response that contained no usable query.
	ErrNoSQL = errors.New("no sql query in model response")
)

// Result is a successfully generated query with the model's own
// account of what it does.
type Result struct {
	SQL         string `json:"sql_query"`
	Explanation string `json:"explanation"`
}

// Generator turns a natural-language question into SQL. schemaContext
// is a plain-text rendering of the tables the model may reference.
type Generator interface {
	Generate(ctx context.Context, prompt, schemaContext string, timeout time.Duration) (*Result, error)
}
