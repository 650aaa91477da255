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

package warehouse

import (
	"context"
	"sync"
)

// Fake is an in-memory Executor for tests. Configure the result or
// error per call; every executed request is recorded.
type Fake struct {
	mu sync.Mutex

	Result    *QueryResult
	Err       error
	Datasets  []string
	Tables    map[string][]string
	Schemas   map[string]*TableSchema
	Unhealthy bool

	Executed []QueryRequest
}

var _ Executor = (*Fake)(nil)

// NewFake returns a Fake that answers every query with an empty
// result.
func NewFake() *Fake {
	return &Fake{
		Result:  &QueryResult{Rows: []map[string]interface{}{}},
		Tables:  map[string][]string{},
		Schemas: map[string]*TableSchema{},
	}
}

func (f *Fake) Execute(ctx context.Context, req QueryRequest) (*QueryResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	f.Executed = append(f.Executed, req)
	f.mu.Unlock()
	if f.Err != nil {
		return nil, f.Err
	}
	return f.Result, nil
}

func (f *Fake) ListDatasets(ctx context.Context) ([]string, error) {
	if f.Err != nil {
		return nil, f.Err
	}
	return f.Datasets, nil
}

func (f *Fake) ListTables(ctx context.Context, dataset string) ([]string, error) {
	if f.Err != nil {
		return nil, f.Err
	}
	tables, ok := f.Tables[dataset]
	if !ok {
		return nil, ErrNotFound
	}
	return tables, nil
}

func (f *Fake) GetTableSchema(ctx context.Context, dataset, table string) (*TableSchema, error) {
	if f.Err != nil {
		return nil, f.Err
	}
	schema, ok := f.Schemas[dataset+"."+table]
	if !ok {
		return nil, ErrNotFound
	}
	return schema, nil
}

func (f *Fake) Healthy(ctx context.Context) bool {
	return !f.Unhealthy
}

// ExecutedCount returns how many queries reached the fake backend.
func (f *Fake) ExecutedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Executed)
}

// LastExecuted returns the most recent request, or a zero request when
// nothing ran.
func (f *Fake) LastExecuted() QueryRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.Executed) == 0 {
		return QueryRequest{}
	}
	return f.Executed[len(f.Executed)-1]
}
