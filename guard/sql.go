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
	"regexp"
	"strings"
)

// SQL validation bounds.
const (
	// MaxSQLLength caps submitted query text to keep pattern scans cheap.
	MaxSQLLength = 10000

	// MaxUnionCount is the most UNION keywords tolerated in one query.
	MaxUnionCount = 5
)

// sqlDangerSpecs is the fixed catalog of injection indicators scanned
// against every submitted or generated query. Order is reporting order.
var sqlDangerSpecs = []RuleSpec{
	// Stacked statements after a semicolon.
	{Name: "stacked_drop", Pattern: `;\s*DROP\s+`, Reason: "stacked DROP statement"},
	{Name: "stacked_delete", Pattern: `;\s*DELETE\s+`, Reason: "stacked DELETE statement"},
	{Name: "stacked_insert", Pattern: `;\s*INSERT\s+`, Reason: "stacked INSERT statement"},
	{Name: "stacked_update", Pattern: `;\s*UPDATE\s+`, Reason: "stacked UPDATE statement"},
	{Name: "stacked_alter", Pattern: `;\s*ALTER\s+`, Reason: "stacked ALTER statement"},
	{Name: "stacked_create", Pattern: `;\s*CREATE\s+`, Reason: "stacked CREATE statement"},
	{Name: "stacked_truncate", Pattern: `;\s*TRUNCATE\s+`, Reason: "stacked TRUNCATE statement"},
	{Name: "stacked_exec", Pattern: `;\s*EXEC(UTE)?\s*\(?`, Reason: "stacked EXEC statement"},

	// Classic exfiltration.
	{Name: "union_select", Pattern: `\bUNION\s+(ALL\s+)?SELECT\b`, Reason: "UNION SELECT injection"},

	// File read/write primitives.
	{Name: "into_outfile", Pattern: `\bINTO\s+OUTFILE\b`, Reason: "INTO OUTFILE file write"},
	{Name: "into_dumpfile", Pattern: `\bINTO\s+DUMPFILE\b`, Reason: "INTO DUMPFILE file write"},
	{Name: "load_data", Pattern: `\bLOAD\s+DATA\b`, Reason: "LOAD DATA statement"},
	{Name: "load_file", Pattern: `\bLOAD_FILE\s*\(`, Reason: "LOAD_FILE file read"},

	// Time-based blind injection.
	{Name: "benchmark", Pattern: `\bBENCHMARK\s*\(`, Reason: "BENCHMARK time-based injection"},
	{Name: "sleep", Pattern: `\bSLEEP\s*\(`, Reason: "SLEEP time-based injection"},
	{Name: "waitfor_delay", Pattern: `\bWAITFOR\s+DELAY\b`, Reason: "WAITFOR DELAY time-based injection"},

	// Comments can hide a stacked statement, so they are never allowed.
	{Name: "comment_double_dash", Pattern: `--`, Reason: "SQL comment (--)"},
	{Name: "comment_hash", Pattern: `#`, Reason: "SQL comment (#)"},
	{Name: "comment_block", Pattern: `/\*.*?\*/`, Reason: "SQL block comment"},

	// Always-true tautologies.
	{Name: "or_true", Pattern: `\bOR\s+1\s*=\s*1\b`, Reason: "always-true condition (OR 1=1)"},
	{Name: "and_true", Pattern: `\bAND\s+1\s*=\s*1\b`, Reason: "always-true condition (AND 1=1)"},
	{Name: "or_true_string", Pattern: `\bOR\s+'1'\s*=\s*'1'`, Reason: "always-true condition (OR '1'='1')"},
	{Name: "and_true_string", Pattern: `\bAND\s+'1'\s*=\s*'1'`, Reason: "always-true condition (AND '1'='1')"},
}

var unionWordRegex = regexp.MustCompile(`(?i)\bUNION\b`)

// SQLValidator screens SQL text for injection, multi-statement, and
// DoS patterns before it reaches the warehouse. It holds only its
// immutable rule table and is safe for concurrent use.
type SQLValidator struct {
	patterns   *PatternSet
	selectOnly bool
}

// SQLValidatorOption configures a SQLValidator.
type SQLValidatorOption func(*SQLValidator)

// WithSelectOnly controls whether only SELECT statements are accepted.
// The default is true.
func WithSelectOnly(selectOnly bool) SQLValidatorOption {
	return func(v *SQLValidator) {
		v.selectOnly = selectOnly
	}
}

// NewSQLValidator builds a validator with the built-in danger catalog.
func NewSQLValidator(opts ...SQLValidatorOption) *SQLValidator {
	v := &SQLValidator{
		patterns:   MustPatternSet(sqlDangerSpecs),
		selectOnly: true,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Validate screens one SQL statement and returns every violation found.
//
// Two checks short-circuit: empty input, and (when select-only is on) a
// statement that does not start with SELECT. A non-SELECT statement
// invalidates the rest of the SELECT-shaped analysis, so no further
// violations are computed for it. Everything else accumulates.
func (v *SQLValidator) Validate(sql string) Result {
	var violations []string

	trimmed := strings.TrimSpace(sql)
	if trimmed == "" {
		return resultFrom([]string{"query cannot be empty"})
	}

	if v.selectOnly && !strings.HasPrefix(strings.ToUpper(trimmed), "SELECT") {
		return resultFrom([]string{"only SELECT queries are allowed"})
	}

	for _, match := range v.patterns.FindAll(sql) {
		violations = append(violations, "query contains dangerous pattern: "+match.Rule.Reason)
	}

	// A semicolon is only legitimate as the single trailing character.
	body := strings.TrimSuffix(trimmed, ";")
	if strings.Contains(body, ";") {
		violations = append(violations, "multiple SQL statements are not allowed")
	}

	// Quote parity. Backticks wrap identifiers in pairs with no simple
	// parity invariant, so they are deliberately not checked here.
	if strings.Count(sql, "'")%2 != 0 {
		violations = append(violations, "imbalanced single quotes detected")
	}
	if strings.Count(sql, `"`)%2 != 0 {
		violations = append(violations, "imbalanced double quotes detected")
	}

	if len(sql) > MaxSQLLength {
		violations = append(violations, "query too long (max 10000 characters)")
	}

	if count := len(unionWordRegex.FindAllString(sql, -1)); count > MaxUnionCount {
		violations = append(violations, "too many UNION statements (max 5)")
	}

	return resultFrom(violations)
}
