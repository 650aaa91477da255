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

// Result is the outcome of a validation pass. It is produced fresh per
// call and never mutated after return.
type Result struct {
	Valid      bool     `json:"valid"`
	Violations []string `json:"violations,omitempty"`
}

// resultFrom builds a Result from the accumulated violations.
func resultFrom(violations []string) Result {
	return Result{Valid: len(violations) == 0, Violations: violations}
}
