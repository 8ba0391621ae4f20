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

func TestLoadFromFile_AppliesDefaults(t *testing.T) {
	t.Setenv("GENAI_API_KEY", "")
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("LEAD_WEBHOOK_URL", "")

	path := writeConfig(t, "app:\n  name: scorecard-test\n")

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, "scorecard-test", cfg.App.Name)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, DefaultGenAIModel, cfg.APIs.GenAI.Model)
	assert.Equal(t, DefaultGenAIBaseURL, cfg.APIs.GenAI.BaseURL)
	assert.Equal(t, 60000, cfg.APIs.GenAI.Timeout)
	assert.Equal(t, DefaultWebhookURL, cfg.Leads.Webhook.URL)
	assert.Equal(t, int64(20<<20), cfg.Capture.MaxUploadBytes)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.False(t, cfg.HasGenAICredential())
}

func TestLoadFromFile_ExpandsPlaceholders(t *testing.T) {
	t.Setenv("TEST_GENAI_KEY", "secret-key")
	t.Setenv("UNSET_PLACEHOLDER", "")

	path := writeConfig(t, `
apis:
  genai:
    api_key: ${TEST_GENAI_KEY}
database:
  redis:
    address: ${UNSET_PLACEHOLDER}
`)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, "secret-key", cfg.APIs.GenAI.APIKey)
	assert.True(t, cfg.HasGenAICredential())
	assert.Empty(t, cfg.Database.Redis.Address)
}

func TestLoadFromFile_EnvOverride(t *testing.T) {
	t.Setenv("GENAI_API_KEY", "from-env")
	t.Setenv("LEAD_WEBHOOK_URL", "https://hooks.example.com/lead")

	cfg, err := LoadFromFile(writeConfig(t, "logging:\n  level: debug\n"))
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.APIs.GenAI.APIKey)
	assert.Equal(t, "https://hooks.example.com/lead", cfg.Leads.Webhook.URL)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadFromFile_Validation(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{
			name:    "redis enabled without address",
			body:    "database:\n  redis:\n    enabled: true\n",
			wantErr: "database.redis.address",
		},
		{
			name:    "ses enabled without addresses",
			body:    "leads:\n  aws:\n    ses:\n      enabled: true\n",
			wantErr: "leads.aws.ses",
		},
		{
			name:    "sns enabled without topic",
			body:    "leads:\n  aws:\n    sns:\n      enabled: true\n",
			wantErr: "leads.aws.sns.topic_arn",
		},
		{
			name:    "port out of range",
			body:    "server:\n  port: 70000\n",
			wantErr: "server.port",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("ZOHO_CRM_OAUTH_TOKEN", "")
			_, err := LoadFromFile(writeConfig(t, tt.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadFromFile_MissingFile(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestGetDuration(t *testing.T) {
	assert.Equal(t, 1500*time.Millisecond, GetDuration(1500))
	assert.Equal(t, time.Duration(0), GetDuration(0))
}
