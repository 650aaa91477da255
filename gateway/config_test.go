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
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ekonugroho98/cortex-ai/cost"
)

// clearConfigEnv blanks every variable LoadConfig reads so tests see
// only what they set themselves.
func clearConfigEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"CONFIG_FILE", "PORT", "LOG_LEVEL", "GCP_PROJECT_ID", "BQ_DATASET_ID",
		"GOOGLE_APPLICATION_CREDENTIALS", "ANTHROPIC_API_KEY", "CLAUDE_MODEL",
		"CLAUDE_TIMEOUT_SECONDS", "REDIS_URL", "AUDIT_DATABASE_URL",
		"ROW_FILTER_COLUMN", "API_KEYS", "CORS_ORIGINS", "RATE_LIMIT_PER_MINUTE",
		"WORKER_POOL_SIZE", "MAX_BYTES_BILLED", "COST_TRACKING_ENABLED",
		"MASKING_ENABLED", "AUDIT_ENABLED",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("GCP_PROJECT_ID", "my-project")
	t.Setenv("API_KEYS", "key-one")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "INFO", cfg.LogLevel)
	assert.Equal(t, 60, cfg.RateLimitPerMinute)
	assert.Equal(t, 10, cfg.WorkerPoolSize)
	assert.Equal(t, cost.DefaultMaxBytes, cfg.MaxBytesBilled)
	assert.True(t, cfg.CostTrackingEnabled)
	assert.True(t, cfg.MaskingEnabled)
	assert.True(t, cfg.AuditEnabled)
	assert.Equal(t, 30*time.Second, cfg.ClaudeTimeout())
	assert.Equal(t, []string{"*"}, cfg.CORSOrigins)
}

func TestLoadConfigRequiresProject(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("API_KEYS", "key-one")

	_, err := LoadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "GCP_PROJECT_ID")
}

func TestLoadConfigRequiresAPIKeys(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("GCP_PROJECT_ID", "my-project")

	_, err := LoadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "API key")
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("GCP_PROJECT_ID", "my-project")
	t.Setenv("API_KEYS", " key-one , key-two ,")
	t.Setenv("PORT", "9090")
	t.Setenv("RATE_LIMIT_PER_MINUTE", "5")
	t.Setenv("MAX_BYTES_BILLED", "1000000")
	t.Setenv("COST_TRACKING_ENABLED", "false")
	t.Setenv("CLAUDE_TIMEOUT_SECONDS", "10")
	t.Setenv("ROW_FILTER_COLUMN", "tenant_id")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, []string{"key-one", "key-two"}, cfg.APIKeys)
	assert.Equal(t, 5, cfg.RateLimitPerMinute)
	assert.Equal(t, int64(1000000), cfg.MaxBytesBilled)
	assert.False(t, cfg.CostTrackingEnabled)
	assert.Equal(t, 10*time.Second, cfg.ClaudeTimeout())
	assert.Equal(t, "tenant_id", cfg.RowFilterColumn)
}

func TestLoadConfigYAMLFile(t *testing.T) {
	clearConfigEnv(t)

	path := filepath.Join(t.TempDir(), "gateway.yaml")
	data := []byte(`
port: "7070"
project_id: yaml-project
api_keys:
  - yaml-key
rate_limit_per_minute: 12
claude_timeout_seconds: 20
masking_enabled: false
`)
	require.NoError(t, os.WriteFile(path, data, 0o600))
	t.Setenv("CONFIG_FILE", path)

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "7070", cfg.Port)
	assert.Equal(t, "yaml-project", cfg.ProjectID)
	assert.Equal(t, []string{"yaml-key"}, cfg.APIKeys)
	assert.Equal(t, 12, cfg.RateLimitPerMinute)
	assert.Equal(t, 20*time.Second, cfg.ClaudeTimeout())
	assert.False(t, cfg.MaskingEnabled)
}

func TestLoadConfigEnvBeatsFile(t *testing.T) {
	clearConfigEnv(t)

	path := filepath.Join(t.TempDir(), "gateway.yaml")
	data := []byte(`
port: "7070"
project_id: yaml-project
api_keys:
  - yaml-key
`)
	require.NoError(t, os.WriteFile(path, data, 0o600))
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("PORT", "6060")
	t.Setenv("GCP_PROJECT_ID", "env-project")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "6060", cfg.Port)
	assert.Equal(t, "env-project", cfg.ProjectID)
	assert.Equal(t, []string{"yaml-key"}, cfg.APIKeys, "file value stands where env is silent")
}
