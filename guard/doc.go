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

/*
Package guard implements the request-screening layer of the CortexAI
gateway: SQL injection detection, prompt injection detection, and
PII request detection.

All validators are pure functions of their input plus an immutable
rule table compiled at construction, so a single instance can be
shared freely across concurrent requests. Validators accumulate every
violation they find rather than stopping at the first, so a rejected
request reports the complete list in one pass.

Detection is pattern-based, not a SQL parser. Known gaps are
deliberate and documented on the relevant checks: backtick parity is
not validated, always-true-condition detection is heuristic, and SQL
comments are rejected unconditionally.
*/
package guard
