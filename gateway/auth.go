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
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"net/http"
)

type contextKey string

const apiKeyContextKey contextKey = "api_key"

// apiKeyHeader and apiKeyCookie are the two places a client may carry
// its credential. The header wins when both are present.
const (
	apiKeyHeader = "X-API-Key"
	apiKeyCookie = "api_key"
)

// Authenticator validates client API keys against a static set.
type Authenticator struct {
	keys []string
}

// NewAuthenticator builds an authenticator over the configured keys.
func NewAuthenticator(keys []string) *Authenticator {
	return &Authenticator{keys: keys}
}

// Valid reports whether key is one of the configured keys. Comparison
// is constant-time per candidate so timing does not leak key bytes.
func (a *Authenticator) Valid(key string) bool {
	if key == "" {
		return false
	}
	valid := false
	for _, candidate := range a.keys {
		if len(candidate) == len(key) &&
			subtle.ConstantTimeCompare([]byte(candidate), []byte(key)) == 1 {
			valid = true
		}
	}
	return valid
}

// Middleware rejects requests without a valid API key and stashes the
// key in the request context for rate limiting and audit attribution.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := extractAPIKey(r)
		if key == "" {
			writeError(w, requestIDFrom(r.Context()), &pipelineError{
				Status:  http.StatusUnauthorized,
				Code:    CodeMissingAPIKey,
				Message: "API key is required",
			})
			return
		}
		if !a.Valid(key) {
			writeError(w, requestIDFrom(r.Context()), &pipelineError{
				Status:  http.StatusForbidden,
				Code:    CodeInvalidAPIKey,
				Message: "invalid API key",
			})
			return
		}
		ctx := context.WithValue(r.Context(), apiKeyContextKey, key)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// extractAPIKey pulls the credential from the header or, failing that,
// the cookie browsers use.
func extractAPIKey(r *http.Request) string {
	if key := r.Header.Get(apiKeyHeader); key != "" {
		return key
	}
	if c, err := r.Cookie(apiKeyCookie); err == nil {
		return c.Value
	}
	return ""
}

// apiKeyFrom returns the authenticated key stored by the middleware.
func apiKeyFrom(ctx context.Context) string {
	if key, ok := ctx.Value(apiKeyContextKey).(string); ok {
		return key
	}
	return ""
}

// GenerateAPIKey returns a fresh 64-hex-character key from the system
// CSPRNG, for operators provisioning new clients.
func GenerateAPIKey() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
