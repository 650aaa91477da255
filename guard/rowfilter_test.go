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

package guard

import "testing"

func TestAppendRowFilter(t *testing.T) {
	tests := []struct {
		name   string
		query  string
		column string
		value  string
		want   string
	}{
		{
			name:   "no where clause",
			query:  "SELECT * FROM orders",
			column: "tenant_id",
			value:  "acme",
			want:   "SELECT * FROM orders WHERE tenant_id = 'acme'",
		},
		{
			name:   "existing where clause",
			query:  "SELECT * FROM orders WHERE total > 100",
			column: "tenant_id",
			value:  "acme",
			want:   "SELECT * FROM orders WHERE tenant_id = 'acme' AND total > 100",
		},
		{
			name:   "inserted before order by",
			query:  "SELECT * FROM orders ORDER BY total DESC",
			column: "tenant_id",
			value:  "acme",
			want:   "SELECT * FROM orders WHERE tenant_id = 'acme' ORDER BY total DESC",
		},
		{
			name:   "inserted before group by",
			query:  "SELECT region, SUM(total) FROM orders GROUP BY region",
			column: "tenant_id",
			value:  "acme",
			want:   "SELECT region, SUM(total) FROM orders WHERE tenant_id = 'acme' GROUP BY region",
		},
		{
			name:   "trailing semicolon dropped",
			query:  "SELECT * FROM orders;",
			column: "tenant_id",
			value:  "acme",
			want:   "SELECT * FROM orders WHERE tenant_id = 'acme'",
		},
		{
			name:   "value quotes escaped",
			query:  "SELECT * FROM orders",
			column: "tenant_id",
			value:  "o'brien",
			want:   "SELECT * FROM orders WHERE tenant_id = 'o''brien'",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := AppendRowFilter(tt.query, tt.column, tt.value); got != tt.want {
				t.Errorf("AppendRowFilter() = %q, want %q", got, tt.want)
			}
		})
	}
}
