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
	"fmt"
	"net/http"
	"time"

	"github.com/ekonugroho98/cortex-ai/audit"
	"github.com/ekonugroho98/cortex-ai/generator"
	"github.com/ekonugroho98/cortex-ai/generator/anthropic"
	"github.com/ekonugroho98/cortex-ai/shared/logger"
	"github.com/ekonugroho98/cortex-ai/warehouse/bigquery"
)

// Server owns the HTTP listener and every dependency that needs an
// orderly shutdown.
type Server struct {
	cfg     *Config
	log     *logger.Logger
	httpSrv *http.Server
	limiter Limiter
	sink    *audit.Sink
}

// NewServer builds a fully wired server from config: BigQuery
// executor, optional Anthropic generator, redis or in-memory rate
// limiter, and optional postgres audit sink.
func NewServer(ctx context.Context, cfg *Config) (*Server, error) {
	log := logger.New("server")

	executor, err := bigquery.New(ctx, bigquery.Config{
		ProjectID:       cfg.ProjectID,
		CredentialsFile: cfg.CredentialsFile,
	})
	if err != nil {
		return nil, fmt.Errorf("bigquery client: %w", err)
	}

	var gen generator.Generator
	if cfg.AnthropicAPIKey != "" {
		provider, err := anthropic.NewProvider(anthropic.Config{
			APIKey:  cfg.AnthropicAPIKey,
			Model:   cfg.ClaudeModel,
			Timeout: cfg.ClaudeTimeout(),
		})
		if err != nil {
			return nil, fmt.Errorf("anthropic provider: %w", err)
		}
		gen = provider
	} else {
		log.Warn("", "", "ANTHROPIC_API_KEY not set, natural-language endpoint disabled", nil)
	}

	var limiter Limiter
	if cfg.RedisURL != "" {
		rl, err := NewRedisLimiter(cfg.RedisURL, cfg.RateLimitPerMinute)
		if err != nil {
			log.Warn("", "", "redis unavailable, falling back to in-memory rate limiting",
				map[string]interface{}{"error": err.Error()})
			limiter = NewMemoryLimiter(cfg.RateLimitPerMinute)
		} else {
			limiter = rl
		}
	} else {
		limiter = NewMemoryLimiter(cfg.RateLimitPerMinute)
	}

	var sink *audit.Sink
	if cfg.AuditEnabled && cfg.AuditDatabaseURL != "" {
		sink, err = audit.NewSink(cfg.AuditDatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("audit sink: %w", err)
		}
	}
	auditLog := audit.New(cfg.AuditEnabled, nil, sink)

	svc := NewService(cfg, executor, gen, limiter, auditLog)
	handler := NewHandler(svc)

	return &Server{
		cfg: cfg,
		log: log,
		httpSrv: &http.Server{
			Addr:              ":" + cfg.Port,
			Handler:           handler.Router(),
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      120 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
		limiter: limiter,
		sink:    sink,
	}, nil
}

// Start blocks serving HTTP until the listener fails or Shutdown is
// called.
func (s *Server) Start() error {
	s.log.Info("", "", "gateway listening", map[string]interface{}{"addr": s.httpSrv.Addr})
	if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests, then closes the rate limiter
// and flushes the audit sink.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.httpSrv.Shutdown(ctx)

	if rl, ok := s.limiter.(*RedisLimiter); ok {
		if cerr := rl.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	if s.sink != nil {
		if cerr := s.sink.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}
