package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

const minimalConfig = `
camunda:
  broker_address: localhost:26500
database:
  postgres:
    host: localhost
    database: mentoring
    user: ${TEST_DB_USER}
  redis:
    address: localhost:6379
workers:
  mentor-assign-primary:
    enabled: true
`

func TestLoadFromFile_AppliesDefaults(t *testing.T) {
	t.Setenv("TEST_DB_USER", "matcher")

	cfg, err := LoadFromFile(writeConfig(t, minimalConfig))
	require.NoError(t, err)

	assert.Equal(t, "matcher", cfg.Database.Postgres.User)
	assert.Equal(t, "disable", cfg.Database.Postgres.SSLMode)
	assert.Equal(t, 3, cfg.Matching.DefaultTopK)
	assert.Equal(t, 500, cfg.Matching.MaxPoolSize)
	assert.Equal(t, "mentors", cfg.Matching.MentorIndex)
	assert.Equal(t, 5*time.Minute, cfg.Matching.SnapshotTTL())
	assert.Equal(t, ":8080", cfg.Metrics.Address)
	assert.Equal(t, "info", cfg.Logging.Level)

	worker := GetWorkerConfig(cfg, "mentor-assign-primary")
	assert.True(t, worker.Enabled)
	assert.Equal(t, 5, worker.MaxJobsActive)
	assert.Equal(t, 30*time.Second, GetDuration(worker.Timeout))
	assert.Equal(t, 3, worker.MaxRetries)
}

func TestLoadFromFile_Validation(t *testing.T) {
	t.Setenv("TEST_DB_USER", "matcher")

	tests := []struct {
		name   string
		extra  string
		errMsg string
	}{
		{
			name:   "events without topic",
			extra:  "events:\n  enabled: true\n",
			errMsg: "events.topic_arn",
		},
		{
			name:   "elasticsearch disabled needs no address",
			extra:  "matching:\n  default_top_k: 2\n",
			errMsg: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFromFile(writeConfig(t, minimalConfig+tt.extra))
			if tt.errMsg == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestLoadFromFile_MissingBroker(t *testing.T) {
	_, err := LoadFromFile(writeConfig(t, "database:\n  postgres:\n    host: localhost\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "camunda.broker_address")
}

func TestGetWorkerConfig_Fallback(t *testing.T) {
	cfg := &Config{}
	assert.True(t, IsWorkerEnabled(cfg, "unknown"))
	assert.Equal(t, 3, GetWorkerConfig(cfg, "unknown").MaxRetries)
}

func TestElasticsearchConfig_Addresses(t *testing.T) {
	assert.Equal(t, []string{"http://es:9200"}, ElasticsearchConfig{URL: "http://es:9200"}.GetAddresses())
	assert.Equal(t, "http://a:9200", ElasticsearchConfig{Addresses: []string{"http://a:9200"}}.GetURL())
	assert.Nil(t, ElasticsearchConfig{}.GetAddresses())
}
