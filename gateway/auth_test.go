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

package gateway

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthenticatorValid(t *testing.T) {
	a := NewAuthenticator([]string{"key-one", "key-two"})

	assert.True(t, a.Valid("key-one"))
	assert.True(t, a.Valid("key-two"))
	assert.False(t, a.Valid("key-three"))
	assert.False(t, a.Valid(""))
	assert.False(t, a.Valid("key-on"), "prefix of a valid key is not valid")
}

func authProbe(t *testing.T, a *Authenticator, mutate func(*http.Request)) (*httptest.ResponseRecorder, string) {
	t.Helper()
	var seenKey string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenKey = apiKeyFrom(r.Context())
		w.WriteHeader(http.StatusOK)
	})
	req := httptest.NewRequest(http.MethodGet, "/api/v1/datasets", nil)
	mutate(req)
	rec := httptest.NewRecorder()
	a.Middleware(next).ServeHTTP(rec, req)
	return rec, seenKey
}

func TestAuthMiddleware(t *testing.T) {
	a := NewAuthenticator([]string{"valid-key"})

	t.Run("missing key", func(t *testing.T) {
		rec, _ := authProbe(t, a, func(r *http.Request) {})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)

		var body ErrorResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, CodeMissingAPIKey, body.Code)
	})

	t.Run("wrong key", func(t *testing.T) {
		rec, _ := authProbe(t, a, func(r *http.Request) {
			r.Header.Set("X-API-Key", "wrong-key")
		})
		assert.Equal(t, http.StatusForbidden, rec.Code)

		var body ErrorResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, CodeInvalidAPIKey, body.Code)
	})

	t.Run("valid header key reaches handler", func(t *testing.T) {
		rec, seenKey := authProbe(t, a, func(r *http.Request) {
			r.Header.Set("X-API-Key", "valid-key")
		})
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "valid-key", seenKey)
	})

	t.Run("valid cookie key", func(t *testing.T) {
		rec, seenKey := authProbe(t, a, func(r *http.Request) {
			r.AddCookie(&http.Cookie{Name: "api_key", Value: "valid-key"})
		})
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "valid-key", seenKey)
	})

	t.Run("header wins over cookie", func(t *testing.T) {
		rec, _ := authProbe(t, a, func(r *http.Request) {
			r.Header.Set("X-API-Key", "wrong-key")
			r.AddCookie(&http.Cookie{Name: "api_key", Value: "valid-key"})
		})
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})
}

func TestGenerateAPIKey(t *testing.T) {
	first, err := GenerateAPIKey()
	require.NoError(t, err)
	second, err := GenerateAPIKey()
	require.NoError(t, err)

	assert.Len(t, first, 64)
	assert.NotEqual(t, first, second)
}
