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

import "strings"

// piiKeywords are the terms that make a request a hard stop. Matching
// is plain case-insensitive containment; the caller cannot proceed by
// rephrasing around column names.
var piiKeywords = []string{
	"password",
	"passwd",
	"ssn",
	"social security",
	"credit card",
	"card number",
	"cvv",
	"bank account",
	"routing number",
	"pin",
	"secret",
	"private key",
	"access token",
	"api key",
	"auth token",
	"credential",
	"personal data",
	"date of birth",
	"passport",
	"driver license",
	"medical record",
}

// PIIDetector flags requests that ask for sensitive personal or
// credential data. It inspects the request text, not query results;
// result-level protection belongs to masking.
type PIIDetector struct {
	keywords []string
}

// NewPIIDetector builds a detector with the built-in keyword list.
func NewPIIDetector() *PIIDetector {
	return &PIIDetector{keywords: piiKeywords}
}

// ContainsPIIRequest reports whether the text asks for sensitive data,
// along with every keyword that matched.
func (d *PIIDetector) ContainsPIIRequest(text string) (bool, []string) {
	lower := strings.ToLower(text)
	var found []string
	for _, kw := range d.keywords {
		if strings.Contains(lower, kw) {
			found = append(found, kw)
		}
	}
	return len(found) > 0, found
}
