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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMaskValue(t *testing.T) {
	tests := []struct {
		name   string
		column string
		value  interface{}
		want   interface{}
	}{
		{"email", "email", "alice@example.com", "al***@***.com"},
		{"email uppercase column", "USER_EMAIL", "bob@corp.example.org", "bo***@***.example.org"},
		{"email one char local", "email", "a@example.com", "a***@***.com"},
		{"email malformed", "email", "not-an-email", "n***"},
		{"phone", "phone_number", "+1 (555) 123-4567", "***-***-4567"},
		{"phone too short", "phone", "12", "***"},
		{"ssn", "ssn", "123-45-6789", "***-**-****"},
		{"ssn without dashes", "social_security", "123456789", "***-**-****"},
		{"credit card", "credit_card", "4111 1111 1111 1234", "****-****-****-1234"},
		{"password", "password", "hunter2", "***"},
		{"token", "refresh_token", "eyJabc", FullMask},
		{"api key", "api_key", "sk-live-123", FullMask},
		{"generic salary", "salary", "95000", "9***"},
		{"generic address", "home_address", "1 Main St", "1***"},
		{"non-sensitive passthrough", "user_name", "alice", "alice"},
		{"nil stays nil", "email", nil, nil},
		{"full mask beats value type", "password", 12345, FullMask},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MaskValue(tt.column, tt.value))
		})
	}
}

func TestMasker_MaskRows(t *testing.T) {
	m := New(true)
	rows := []map[string]interface{}{
		{"name": "Alice", "email": "alice@example.com", "total": 42},
		{"name": "Bob", "email": "bob@shop.example.com", "total": 7},
	}

	got := m.MaskRows(rows)
	require.Len(t, got, 2)
	assert.Equal(t, "al***@***.com", got[0]["email"])
	assert.Equal(t, "Alice", got[0]["name"])
	assert.Equal(t, 42, got[0]["total"])
	assert.Equal(t, "bo***@***.example.com", got[1]["email"])

	// Input rows must not be mutated.
	assert.Equal(t, "alice@example.com", rows[0]["email"])
}

func TestMasker_Disabled(t *testing.T) {
	m := New(false)
	rows := []map[string]interface{}{{"password": "hunter2"}}
	got := m.MaskRows(rows)
	assert.Equal(t, "hunter2", got[0]["password"])
}

func TestMasker_MaskRows_Empty(t *testing.T) {
	m := New(true)
	assert.Empty(t, m.MaskRows(nil))
}
