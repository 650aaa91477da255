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

// Package anthropic implements generator.Generator on the Anthropic
// Messages API. The model is instructed to answer with a JSON object
// carrying the query and an explanation; fenced SQL in free text is
// accepted as a fallback.
package anthropic

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/ekonugroho98/cortex-ai/generator"
)

const (
	// DefaultBaseURL is the default Anthropic API endpoint.
	DefaultBaseURL = "https://api.anthropic.com"

	// DefaultAPIVersion is the Anthropic API version.
	DefaultAPIVersion = "2023-06-01"

	// DefaultTimeout is the default generation deadline.
	DefaultTimeout = 30 * time.Second

	// DefaultMaxTokens bounds the model's answer; generated queries
	// are short.
	DefaultMaxTokens = 1024

	// DefaultModel is the model used when the config names none.
	DefaultModel = "claude-3-5-sonnet-20241022"
)

const systemPrompt = `You are a SQL assistant for BigQuery. Answer every request with a single JSON object of the form {"sql_query": "...", "explanation": "..."}. The query must be a single standard-SQL SELECT statement over the tables described below. Never generate DML, DDL, or comments. If the request cannot be answered with the available tables, set sql_query to an empty string and explain why.`

// HTTPClient is an interface for HTTP client operations (enables testing).
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Provider implements generator.Generator for Anthropic Claude.
type Provider struct {
	apiKey     string
	baseURL    string
	apiVersion string
	model      string
	client     HTTPClient

	mu      sync.RWMutex
	healthy bool
}

var _ generator.Generator = (*Provider)(nil)

// Config contains configuration for the Anthropic provider.
type Config struct {
	APIKey     string        // Required: Anthropic API key
	BaseURL    string        // Optional: API base URL
	APIVersion string        // Optional: API version
	Model      string        // Optional: model name
	Timeout    time.Duration // Optional: HTTP timeout
}

// NewProvider creates a new Anthropic provider instance.
func NewProvider(cfg Config) (*Provider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("anthropic API key is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.APIVersion == "" {
		cfg.APIVersion = DefaultAPIVersion
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	return &Provider{
		apiKey:     cfg.APIKey,
		baseURL:    cfg.BaseURL,
		apiVersion: cfg.APIVersion,
		model:      cfg.Model,
		client:     &http.Client{Timeout: cfg.Timeout},
		healthy:    true,
	}, nil
}

// IsHealthy reports whether the last API call succeeded.
func (p *Provider) IsHealthy() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.healthy
}

func (p *Provider) setHealthy(healthy bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.healthy = healthy
}

// Generate asks the model for a query answering the prompt. The
// timeout bounds the whole exchange; zero selects DefaultTimeout.
func (p *Provider) Generate(ctx context.Context, prompt, schemaContext string, timeout time.Duration) (*generator.Result, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	system := systemPrompt
	if schemaContext != "" {
		system += "\n\nAvailable tables:\n" + schemaContext
	}

	apiReq := anthropicRequest{
		Model:     p.model,
		MaxTokens: DefaultMaxTokens,
		System:    system,
		Messages: []anthropicMessage{
			{Role: "user", Content: prompt},
		},
	}

	reqBody, err := json.Marshal(apiReq)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", p.baseURL+"/v1/messages", bytes.NewBuffer(reqBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	p.setHeaders(httpReq)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		p.setHealthy(false)
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %v", generator.ErrTimeout, err)
		}
		return nil, fmt.Errorf("%w: %v", generator.ErrUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
			p.setHealthy(false)
			return nil, fmt.Errorf("%w: %s", generator.ErrUnavailable, parseAPIError(resp.StatusCode, body))
		}
		return nil, parseAPIError(resp.StatusCode, body)
	}
	p.setHealthy(true)

	var apiResp anthropicResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	var content strings.Builder
	for _, block := range apiResp.Content {
		if block.Type == "text" {
			content.WriteString(block.Text)
		}
	}
	return ExtractResult(content.String())
}

var fencedSQLRegex = regexp.MustCompile("(?is)```(?:sql)?\\s*(.*?)```")

// ExtractResult pulls the generated query out of the model's answer.
// The primary form is the JSON object the system prompt demands;
// fenced SQL blocks and bare SELECT text are accepted as fallbacks.
func ExtractResult(content string) (*generator.Result, error) {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return nil, generator.ErrNoSQL
	}

	// Models sometimes wrap the JSON itself in a fence.
	jsonText := trimmed
	if m := fencedSQLRegex.FindStringSubmatch(trimmed); m != nil && strings.HasPrefix(strings.TrimSpace(m[1]), "{") {
		jsonText = strings.TrimSpace(m[1])
	}
	if start := strings.Index(jsonText, "{"); start >= 0 {
		if end := strings.LastIndex(jsonText, "}"); end > start {
			var res generator.Result
			if err := json.Unmarshal([]byte(jsonText[start:end+1]), &res); err == nil {
				res.SQL = strings.TrimSpace(res.SQL)
				if res.SQL == "" {
					return nil, fmt.Errorf("%w: %s", generator.ErrNoSQL, res.Explanation)
				}
				return &res, nil
			}
		}
	}

	if m := fencedSQLRegex.FindStringSubmatch(trimmed); m != nil {
		sql := strings.TrimSpace(m[1])
		if sql != "" {
			return &generator.Result{SQL: sql}, nil
		}
	}

	if strings.HasPrefix(strings.ToUpper(trimmed), "SELECT") ||
		strings.HasPrefix(strings.ToUpper(trimmed), "WITH") {
		return &generator.Result{SQL: trimmed}, nil
	}

	return nil, generator.ErrNoSQL
}

func (p *Provider) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", p.apiKey)
	req.Header.Set("anthropic-version", p.apiVersion)
}

func parseAPIError(statusCode int, body []byte) error {
	var errResp struct {
		Error struct {
			Type    string `json:"type"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &errResp); err != nil {
		return fmt.Errorf("anthropic API error (status %d): %s", statusCode, string(body))
	}
	return &APIError{
		StatusCode: statusCode,
		Type:       errResp.Error.Type,
		Message:    errResp.Error.Message,
	}
}

// APIError represents an Anthropic API error.
type APIError struct {
	StatusCode int
	Type       string
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("anthropic API error (status %d, type %s): %s", e.StatusCode, e.Type, e.Message)
}

// IsRateLimitError returns true if this is a rate limit error.
func (e *APIError) IsRateLimitError() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.Type == "rate_limit_error"
}

// IsAuthError returns true if this is an authentication error.
func (e *APIError) IsAuthError() bool {
	return e.StatusCode == http.StatusUnauthorized || e.Type == "authentication_error"
}

// Internal API types.

type anthropicRequest struct {
	Model     string             `json:"model"`
	Messages  []anthropicMessage `json:"messages"`
	MaxTokens int                `json:"max_tokens"`
	System    string             `json:"system,omitempty"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicResponse struct {
	ID         string `json:"id"`
	Model      string `json:"model"`
	StopReason string `json:"stop_reason"`
	Content    []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Usage struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}
