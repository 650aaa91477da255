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
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ekonugroho98/cortex-ai/cost"
)

// Config holds every tunable of the gateway. Values come from an
// optional YAML file named by CONFIG_FILE, with environment variables
// taking precedence over both the file and the defaults.
type Config struct {
	Port     string `yaml:"port"`
	LogLevel string `yaml:"log_level"`

	// APIKeys is the static set of accepted client keys.
	APIKeys []string `yaml:"api_keys"`

	ProjectID       string `yaml:"project_id"`
	DatasetID       string `yaml:"dataset_id"`
	CredentialsFile string `yaml:"credentials_file"`

	AnthropicAPIKey      string `yaml:"anthropic_api_key"`
	ClaudeModel          string `yaml:"claude_model"`
	ClaudeTimeoutSeconds int    `yaml:"claude_timeout_seconds"`

	RateLimitPerMinute int    `yaml:"rate_limit_per_minute"`
	RedisURL           string `yaml:"redis_url"`

	CostTrackingEnabled bool  `yaml:"cost_tracking_enabled"`
	MaxBytesBilled      int64 `yaml:"max_bytes_billed"`

	MaskingEnabled bool `yaml:"masking_enabled"`

	AuditEnabled     bool   `yaml:"audit_enabled"`
	AuditDatabaseURL string `yaml:"audit_database_url"`

	RowFilterColumn string `yaml:"row_filter_column"`

	WorkerPoolSize int `yaml:"worker_pool_size"`

	CORSOrigins []string `yaml:"cors_origins"`
}

// LoadConfig builds the effective configuration.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Port:                 "8080",
		LogLevel:             "INFO",
		ClaudeTimeoutSeconds: 30,
		RateLimitPerMinute:   60,
		CostTrackingEnabled:  true,
		MaxBytesBilled:       cost.DefaultMaxBytes,
		MaskingEnabled:       true,
		AuditEnabled:         true,
		WorkerPoolSize:       10,
		CORSOrigins:          []string{"*"},
	}

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	applyEnv(cfg)

	if cfg.ProjectID == "" {
		return nil, fmt.Errorf("GCP_PROJECT_ID is required")
	}
	if len(cfg.APIKeys) == 0 {
		return nil, fmt.Errorf("at least one API key is required (API_KEYS)")
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	setString(&cfg.Port, "PORT")
	setString(&cfg.LogLevel, "LOG_LEVEL")
	setString(&cfg.ProjectID, "GCP_PROJECT_ID")
	setString(&cfg.DatasetID, "BQ_DATASET_ID")
	setString(&cfg.CredentialsFile, "GOOGLE_APPLICATION_CREDENTIALS")
	setString(&cfg.AnthropicAPIKey, "ANTHROPIC_API_KEY")
	setString(&cfg.ClaudeModel, "CLAUDE_MODEL")
	setString(&cfg.RedisURL, "REDIS_URL")
	setString(&cfg.AuditDatabaseURL, "AUDIT_DATABASE_URL")
	setString(&cfg.RowFilterColumn, "ROW_FILTER_COLUMN")

	if v := os.Getenv("API_KEYS"); v != "" {
		cfg.APIKeys = splitAndTrim(v)
	}
	if v := os.Getenv("CORS_ORIGINS"); v != "" {
		cfg.CORSOrigins = splitAndTrim(v)
	}
	setInt(&cfg.RateLimitPerMinute, "RATE_LIMIT_PER_MINUTE")
	setInt(&cfg.WorkerPoolSize, "WORKER_POOL_SIZE")
	setInt64(&cfg.MaxBytesBilled, "MAX_BYTES_BILLED")
	setBool(&cfg.CostTrackingEnabled, "COST_TRACKING_ENABLED")
	setBool(&cfg.MaskingEnabled, "MASKING_ENABLED")
	setBool(&cfg.AuditEnabled, "AUDIT_ENABLED")

	setInt(&cfg.ClaudeTimeoutSeconds, "CLAUDE_TIMEOUT_SECONDS")
}

// ClaudeTimeout returns the generation deadline as a duration.
func (c *Config) ClaudeTimeout() time.Duration {
	return time.Duration(c.ClaudeTimeoutSeconds) * time.Second
}

func setString(dst *string, env string) {
	if v := os.Getenv(env); v != "" {
		*dst = v
	}
}

func setInt(dst *int, env string) {
	if v := os.Getenv(env); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt64(dst *int64, env string) {
	if v := os.Getenv(env); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, env string) {
	if v := os.Getenv(env); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func splitAndTrim(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
