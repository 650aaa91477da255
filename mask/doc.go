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

// Package mask redacts sensitive values in query results before they
// leave the gateway. Masking is driven by column names, not value
// inspection: a column named "email" is masked even if a given cell
// does not look like an email address. Masking is total and never
// returns an error; values it cannot format are replaced wholesale.
package mask
