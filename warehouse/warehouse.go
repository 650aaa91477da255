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

// Package warehouse defines the execution boundary between the gateway
// and the analytics backend. The gateway validates and meters; the
// executor runs queries and reports what they cost.
package warehouse

import (
	"context"
	"errors"
)

// Sentinel errors the gateway maps to stable caller-facing codes.
// Executors wrap backend errors with these so the pipeline never
// inspects backend-specific types.
var (
	// ErrNotFound marks a missing table or dataset.
	ErrNotFound = errors.New("table or dataset not found")
	// ErrSyntax marks a query the backend rejected as malformed.
	ErrSyntax = errors.New("query syntax error")
)

// QueryRequest describes one query execution.
type QueryRequest struct {
	SQL            string
	MaxBytesBilled int64
	DryRun         bool
	TimeoutMS      int64
}

// QueryResult is the outcome of a completed (or dry-run) query.
type QueryResult struct {
	Columns        []string
	Rows           []map[string]interface{}
	BytesProcessed int64
	CacheHit       bool
	JobID          string
	DurationMS     int64
}

// SchemaField describes one column of a table.
type SchemaField struct {
	Name string `json:"name"`
	Type string `json:"type"`
	Mode string `json:"mode,omitempty"`
}

// TableSchema is the column layout of one table.
type TableSchema struct {
	Dataset string        `json:"dataset"`
	Table   string        `json:"table"`
	Fields  []SchemaField `json:"fields"`
}

// Executor runs queries and answers schema questions. Implementations
// must honor ctx cancellation on every call.
type Executor interface {
	Execute(ctx context.Context, req QueryRequest) (*QueryResult, error)
	ListDatasets(ctx context.Context) ([]string, error)
	ListTables(ctx context.Context, dataset string) ([]string, error)
	GetTableSchema(ctx context.Context, dataset, table string) (*TableSchema, error)
	Healthy(ctx context.Context) bool
}
