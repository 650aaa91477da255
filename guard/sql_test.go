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

import (
	"strings"
	"testing"
)

func TestNewSQLValidator(t *testing.T) {
	t.Run("default configuration", func(t *testing.T) {
		v := NewSQLValidator()
		if v == nil {
			t.Fatal("NewSQLValidator returned nil")
		}
		if v.patterns == nil {
			t.Error("patterns should not be nil")
		}
		if !v.selectOnly {
			t.Error("selectOnly should default to true")
		}
	})

	t.Run("select-only disabled", func(t *testing.T) {
		v := NewSQLValidator(WithSelectOnly(false))
		if v.selectOnly {
			t.Error("selectOnly should be false")
		}
	})
}

func TestSQLValidator_Validate_Accepts(t *testing.T) {
	v := NewSQLValidator()

	tests := []struct {
		name  string
		query string
	}{
		{"simple select", "SELECT * FROM users"},
		{"lowercase select", "select id, name from users where active = true"},
		{"trailing semicolon", "SELECT id FROM orders;"},
		{"leading whitespace", "   \n\tSELECT 1"},
		{"joins and aggregates", "SELECT u.name, COUNT(*) FROM users u JOIN orders o ON o.user_id = u.id GROUP BY u.name"},
		{"balanced quotes", "SELECT * FROM users WHERE name = 'O''Brien' AND city = \"Austin\""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := v.Validate(tt.query)
			if !res.Valid {
				t.Errorf("Validate(%q) rejected: %v", tt.query, res.Violations)
			}
			if len(res.Violations) != 0 {
				t.Errorf("expected no violations, got %v", res.Violations)
			}
		})
	}
}

func TestSQLValidator_Validate_Rejects(t *testing.T) {
	v := NewSQLValidator()

	tests := []struct {
		name         string
		query        string
		wantContains []string // each must appear in some violation
	}{
		{
			name:         "empty query",
			query:        "",
			wantContains: []string{"empty"},
		},
		{
			name:         "whitespace only",
			query:        "   \t\n  ",
			wantContains: []string{"empty"},
		},
		{
			name:         "non-select statement",
			query:        "DELETE FROM users WHERE id = 1",
			wantContains: []string{"only SELECT queries are allowed"},
		},
		{
			name:         "stacked drop",
			query:        "SELECT * FROM users; DROP TABLE users",
			wantContains: []string{"dangerous pattern", "multiple SQL statements"},
		},
		{
			name:         "union select injection",
			query:        "SELECT name FROM users UNION SELECT password FROM credentials",
			wantContains: []string{"dangerous pattern"},
		},
		{
			name:         "into outfile",
			query:        "SELECT * FROM users INTO OUTFILE '/tmp/x'",
			wantContains: []string{"dangerous pattern"},
		},
		{
			name:         "sleep call",
			query:        "SELECT SLEEP(10)",
			wantContains: []string{"dangerous pattern"},
		},
		{
			name:         "double dash comment",
			query:        "SELECT * FROM users -- hide the rest",
			wantContains: []string{"dangerous pattern"},
		},
		{
			name:         "block comment",
			query:        "SELECT /* sneaky */ * FROM users",
			wantContains: []string{"dangerous pattern"},
		},
		{
			name:         "or one equals one",
			query:        "SELECT * FROM users WHERE name = 'x' OR 1=1",
			wantContains: []string{"dangerous pattern"},
		},
		{
			name:         "unbalanced single quote",
			query:        "SELECT * FROM users WHERE name = 'broken",
			wantContains: []string{"imbalanced single quotes"},
		},
		{
			name:         "unbalanced double quote",
			query:        `SELECT * FROM users WHERE name = "broken`,
			wantContains: []string{"imbalanced double quotes"},
		},
		{
			name:         "with clause fails the select-only gate",
			query:        "WITH t AS (SELECT 1 AS n) SELECT n FROM t",
			wantContains: []string{"only SELECT queries are allowed"},
		},
		{
			name:         "interior semicolon",
			query:        "SELECT 1; SELECT 2",
			wantContains: []string{"multiple SQL statements"},
		},
		{
			name:         "six unions",
			query:        "SELECT 1 UNION SELECT 2 UNION SELECT 3 UNION SELECT 4 UNION SELECT 5 UNION SELECT 6 UNION SELECT 7",
			wantContains: []string{"too many UNION statements"},
		},
		{
			name:         "oversized query",
			query:        "SELECT '" + strings.Repeat("a", MaxSQLLength) + "'",
			wantContains: []string{"too long"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := v.Validate(tt.query)
			if res.Valid {
				t.Fatalf("Validate(%q) accepted, want rejection", tt.query)
			}
			for _, want := range tt.wantContains {
				found := false
				for _, viol := range res.Violations {
					if strings.Contains(viol, want) {
						found = true
						break
					}
				}
				if !found {
					t.Errorf("no violation contains %q; got %v", want, res.Violations)
				}
			}
		})
	}
}

func TestSQLValidator_Validate_ShortCircuits(t *testing.T) {
	v := NewSQLValidator()

	t.Run("empty stops at one violation", func(t *testing.T) {
		res := v.Validate("")
		if len(res.Violations) != 1 {
			t.Errorf("empty query should yield exactly one violation, got %v", res.Violations)
		}
	})

	t.Run("non-select stops before deeper checks", func(t *testing.T) {
		// This statement also has a dangling quote, which must not be
		// reported because the SELECT-only check returns first.
		res := v.Validate("DROP TABLE users WHERE name = 'broken")
		if len(res.Violations) != 1 {
			t.Errorf("non-SELECT should yield exactly one violation, got %v", res.Violations)
		}
	})
}

func TestSQLValidator_Validate_SelectOnlyDisabled(t *testing.T) {
	v := NewSQLValidator(WithSelectOnly(false))

	res := v.Validate("UPDATE users SET active = false WHERE id = 1")
	// Statement form is allowed but the danger catalog still applies.
	for _, viol := range res.Violations {
		if strings.Contains(viol, "only SELECT queries are allowed") {
			t.Errorf("SELECT-only violation reported with the check disabled: %v", res.Violations)
		}
	}
}

func TestSQLValidator_Validate_BacktickUnchecked(t *testing.T) {
	v := NewSQLValidator()
	res := v.Validate("SELECT `col FROM users")
	for _, viol := range res.Violations {
		if strings.Contains(viol, "unbalanced") {
			t.Errorf("backticks must not participate in quote parity: %v", res.Violations)
		}
	}
}
