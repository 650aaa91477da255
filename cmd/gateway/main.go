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

// Package main is the entry point for the CortexAI gateway service.
//
// The gateway is a hardened front door for a BigQuery warehouse:
// - Validates SQL against injection and destructive-statement patterns
// - Translates natural-language prompts to SQL via Claude
// - Enforces per-key rate limits and query cost ceilings
// - Masks sensitive columns and audit-logs every request
//
// Usage:
//
//	./gateway
//
// Environment Variables:
//
//	PORT - HTTP server port (default: 8080)
//	GCP_PROJECT_ID - BigQuery project (required)
//	API_KEYS - comma-separated client API keys (required)
//	ANTHROPIC_API_KEY - enables the natural-language endpoint
//	REDIS_URL - distributed rate limiting (in-memory fallback)
//	AUDIT_DATABASE_URL - PostgreSQL audit trail
//	CONFIG_FILE - optional YAML config file, env overrides it
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ekonugroho98/cortex-ai/gateway"
	"github.com/ekonugroho98/cortex-ai/shared/logger"
)

func main() {
	log := logger.New("main")

	cfg, err := gateway.LoadConfig()
	if err != nil {
		log.ErrorWithCode("", "", "invalid configuration", 0, err, nil)
		os.Exit(1)
	}
	logger.SetLevel(logger.ParseLevel(cfg.LogLevel))

	srv, err := gateway.NewServer(context.Background(), cfg)
	if err != nil {
		log.ErrorWithCode("", "", "startup failed", 0, err, nil)
		os.Exit(1)
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			log.ErrorWithCode("", "", "server failed", 0, err, nil)
			os.Exit(1)
		}
	case sig := <-stop:
		log.Info("", "", "shutting down", map[string]interface{}{"signal": sig.String()})
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			log.ErrorWithCode("", "", "shutdown error", 0, err, nil)
			os.Exit(1)
		}
	}
}
