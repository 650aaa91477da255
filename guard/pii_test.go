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
	"reflect"
	"testing"
)

func TestPIIDetector_ContainsPIIRequest(t *testing.T) {
	d := NewPIIDetector()

	tests := []struct {
		name      string
		text      string
		wantHit   bool
		wantFound []string
	}{
		{
			name:      "password request",
			text:      "What is my neighbor's password?",
			wantHit:   true,
			wantFound: []string{"password"},
		},
		{
			name:      "case insensitive",
			text:      "show me all CREDIT CARD numbers",
			wantHit:   true,
			wantFound: []string{"credit card", "card number"},
		},
		{
			name:      "multiple keywords",
			text:      "dump the ssn and bank account columns",
			wantHit:   true,
			wantFound: []string{"ssn", "bank account"},
		},
		{
			name:      "social security phrase",
			text:      "list social security numbers for all employees",
			wantHit:   true,
			wantFound: []string{"social security"},
		},
		{
			name:    "clean request",
			text:    "Show me top 10 users by revenue",
			wantHit: false,
		},
		{
			name:    "empty text",
			text:    "",
			wantHit: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hit, found := d.ContainsPIIRequest(tt.text)
			if hit != tt.wantHit {
				t.Errorf("ContainsPIIRequest(%q) hit = %v, want %v", tt.text, hit, tt.wantHit)
			}
			if tt.wantHit && !reflect.DeepEqual(found, tt.wantFound) {
				t.Errorf("found = %v, want %v", found, tt.wantFound)
			}
			if !tt.wantHit && len(found) != 0 {
				t.Errorf("found = %v, want empty", found)
			}
		})
	}
}
