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
	"fmt"
	"regexp"
	"strings"
)

var whereClauseRegex = regexp.MustCompile(`(?i)\bWHERE\b`)
var tailClauseRegex = regexp.MustCompile(`(?i)\b(GROUP\s+BY|ORDER\s+BY|LIMIT|HAVING)\b`)

// AppendRowFilter injects a tenant predicate into a SELECT statement.
// If the query already has a WHERE clause the predicate is ANDed onto
// it, otherwise a WHERE clause is inserted before any trailing GROUP
// BY / ORDER BY / LIMIT / HAVING.
//
// This is string surgery, not SQL parsing: subqueries and CTEs with
// their own WHERE clauses can defeat it. It is a defense-in-depth
// layer on top of dataset-level access control, not a substitute.
func AppendRowFilter(query, column, value string) string {
	trimmed := strings.TrimSuffix(strings.TrimSpace(query), ";")
	predicate := fmt.Sprintf("%s = '%s'", column, strings.ReplaceAll(value, "'", "''"))

	if loc := whereClauseRegex.FindStringIndex(trimmed); loc != nil {
		return trimmed[:loc[1]] + " " + predicate + " AND" + trimmed[loc[1]:]
	}
	if loc := tailClauseRegex.FindStringIndex(trimmed); loc != nil {
		return trimmed[:loc[0]] + "WHERE " + predicate + " " + trimmed[loc[0]:]
	}
	return trimmed + " WHERE " + predicate
}
