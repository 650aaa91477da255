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

package mask

import (
	"fmt"
	"strings"
)

// FullMask replaces credential-class values entirely. Fixed width so
// the mask leaks nothing about the value's length.
const FullMask = "***"

type maskKind int

const (
	kindEmail maskKind = iota
	kindPhone
	kindSSN
	kindCard
	kindFull
	kindGeneric
)

// columnRule binds column-name fragments to a mask kind. Rules are
// checked in order; the first hit wins, so email beats the generic
// catch-alls below it.
type columnRule struct {
	terms []string
	kind  maskKind
}

var columnRules = []columnRule{
	{terms: []string{"email", "e_mail"}, kind: kindEmail},
	{terms: []string{"phone", "mobile", "telephone"}, kind: kindPhone},
	{terms: []string{"ssn", "social_security"}, kind: kindSSN},
	{terms: []string{"credit_card", "card_number"}, kind: kindCard},
	{terms: []string{"password", "passwd", "secret", "token"}, kind: kindFull},
	{terms: []string{"api_key", "access_key", "private_key", "credential"}, kind: kindFull},
	{terms: []string{"address", "birth", "dob", "salary", "iban", "passport"}, kind: kindGeneric},
}

// Masker applies column-driven redaction to result rows.
type Masker struct {
	enabled bool
}

// New builds a Masker. A disabled masker passes rows through untouched.
func New(enabled bool) *Masker {
	return &Masker{enabled: enabled}
}

// MaskRows returns a copy of rows with sensitive columns redacted.
// The input is never mutated.
func (m *Masker) MaskRows(rows []map[string]interface{}) []map[string]interface{} {
	if !m.enabled || len(rows) == 0 {
		return rows
	}
	out := make([]map[string]interface{}, len(rows))
	for i, row := range rows {
		masked := make(map[string]interface{}, len(row))
		for col, val := range row {
			masked[col] = MaskValue(col, val)
		}
		out[i] = masked
	}
	return out
}

// MaskValue redacts a single cell according to its column name.
// Non-sensitive columns pass through unchanged. Nil stays nil so
// callers can still distinguish absent data.
func MaskValue(column string, value interface{}) interface{} {
	if value == nil {
		return nil
	}
	kind, sensitive := classify(column)
	if !sensitive {
		return value
	}
	if kind == kindFull {
		return FullMask
	}
	s, ok := value.(string)
	if !ok {
		s = fmt.Sprintf("%v", value)
	}
	switch kind {
	case kindEmail:
		return maskEmail(s)
	case kindPhone:
		return maskPhone(s)
	case kindSSN:
		return maskSSN(s)
	case kindCard:
		return maskCard(s)
	default:
		return maskGeneric(s)
	}
}

func classify(column string) (maskKind, bool) {
	lower := strings.ToLower(column)
	for _, rule := range columnRules {
		for _, term := range rule.terms {
			if strings.Contains(lower, term) {
				return rule.kind, true
			}
		}
	}
	return 0, false
}

// maskEmail keeps the first two characters of the local part and the
// trailing domain labels: alice@example.com becomes al***@***.com.
// Domains with three or more labels keep the last two so country-code
// TLDs stay readable.
func maskEmail(s string) string {
	at := strings.Index(s, "@")
	if at <= 0 || at == len(s)-1 {
		return maskGeneric(s)
	}
	local, domain := s[:at], s[at+1:]

	keep := 2
	if len(local) < keep {
		keep = len(local)
	}
	maskedLocal := local[:keep] + "***"

	labels := strings.Split(domain, ".")
	var tail string
	switch {
	case len(labels) >= 3:
		tail = strings.Join(labels[len(labels)-2:], ".")
	default:
		tail = labels[len(labels)-1]
	}
	return maskedLocal + "@***." + tail
}

// maskPhone keeps the last four digits: +1 (555) 123-4567 becomes
// ***-***-4567.
func maskPhone(s string) string {
	digits := digitsOf(s)
	if len(digits) < 4 {
		return "***"
	}
	return "***-***-" + digits[len(digits)-4:]
}

// maskSSN hides the whole number; even the last four digits of an SSN
// are enough for identity fraud.
func maskSSN(string) string {
	return "***-**-****"
}

func maskCard(s string) string {
	digits := digitsOf(s)
	if len(digits) < 4 {
		return "***"
	}
	return "****-****-****-" + digits[len(digits)-4:]
}

// maskGeneric keeps only the first character.
func maskGeneric(s string) string {
	if s == "" {
		return "***"
	}
	return string([]rune(s)[:1]) + "***"
}

func digitsOf(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
