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

package bigquery

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	bq "google.golang.org/api/bigquery/v2"
	"google.golang.org/api/googleapi"

	"github.com/ekonugroho98/cortex-ai/warehouse"
)

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{
			name: "404 maps to not found",
			err:  &googleapi.Error{Code: 404, Message: "Not found: Table proj:ds.users"},
			want: warehouse.ErrNotFound,
		},
		{
			name: "400 syntax error maps to syntax",
			err:  &googleapi.Error{Code: 400, Message: "Syntax error: Unexpected keyword FORM at [1:10]"},
			want: warehouse.ErrSyntax,
		},
		{
			name: "plain syntax message maps to syntax",
			err:  errors.New("googleapi: syntax error near SELECT"),
			want: warehouse.ErrSyntax,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classifyError(tt.err)
			assert.ErrorIs(t, got, tt.want)
		})
	}

	t.Run("other errors pass through", func(t *testing.T) {
		err := &googleapi.Error{Code: 403, Message: "Access Denied"}
		got := classifyError(err)
		assert.NotErrorIs(t, got, warehouse.ErrNotFound)
		assert.NotErrorIs(t, got, warehouse.ErrSyntax)
	})
}

func TestShapeRows(t *testing.T) {
	columns := []string{"name", "total"}
	rows := []*bq.TableRow{
		{F: []*bq.TableCell{{V: "alice"}, {V: "42"}}},
		{F: []*bq.TableCell{{V: "bob"}, {V: "7"}}},
	}

	shaped := shapeRows(columns, rows)
	assert.Len(t, shaped, 2)
	assert.Equal(t, "alice", shaped[0]["name"])
	assert.Equal(t, "42", shaped[0]["total"])
	assert.Equal(t, "bob", shaped[1]["name"])
}

func TestShapeRows_Empty(t *testing.T) {
	assert.Empty(t, shapeRows([]string{"a"}, nil))
}

func TestShapeRows_ExtraCellsIgnored(t *testing.T) {
	shaped := shapeRows([]string{"only"}, []*bq.TableRow{
		{F: []*bq.TableCell{{V: "kept"}, {V: "dropped"}}},
	})
	assert.Equal(t, map[string]interface{}{"only": "kept"}, shaped[0])
}
