package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 3, cfg.Server.MaxConnectionsPerIP)
	assert.Equal(t, 50, cfg.Server.MaxMessagesPerConnection)
	assert.Equal(t, "memory", cfg.Checkpoint.Driver)
	assert.Equal(t, 6, cfg.Workflow.MessageWindow)
	assert.Equal(t, 5*time.Minute, cfg.Workflow.ResumeWindow)
	assert.Equal(t, "gemini", cfg.Embedding.Provider)
	assert.Equal(t, "text-embedding-004", cfg.Embedding.Model)
	assert.Equal(t, 24*time.Hour, cfg.Session.TTL)
	assert.False(t, cfg.Email.Enabled)
}

func TestLoad_YAMLFile(t *testing.T) {
	content := `
server:
  port: 9090
  allowed_origins: ["https://jobs.example.com"]
workflow:
  message_window: 10
  resume_window: 2m
checkpoint:
  driver: sqlite
  dsn: /tmp/checkpoints.db
`
	path := filepath.Join(t.TempDir(), "screener.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, []string{"https://jobs.example.com"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, 10, cfg.Workflow.MessageWindow)
	assert.Equal(t, 2*time.Minute, cfg.Workflow.ResumeWindow)
	assert.Equal(t, "sqlite", cfg.Checkpoint.Driver)
	assert.Equal(t, "/tmp/checkpoints.db", cfg.Checkpoint.DSN)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("SCREENER_SERVER_PORT", "7000")
	t.Setenv("SCREENER_WORKFLOW_RESUME_WINDOW", "90s")
	t.Setenv("DATABASE_URL", "postgres://localhost/screener")
	t.Setenv("GEMINI_API_KEY", "gemini-key")
	t.Setenv("SCREENER_SESSION_SECRET", "0123456789abcdef0123")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 7000, cfg.Server.Port)
	assert.Equal(t, 90*time.Second, cfg.Workflow.ResumeWindow)
	assert.Equal(t, "postgres://localhost/screener", cfg.Database.URL)
	assert.Equal(t, "gemini-key", cfg.Embedding.APIKey)
	assert.NoError(t, cfg.RequireDatabase())
	assert.NoError(t, cfg.RequireSessionSecret())
}

func TestLoad_FileNotFound(t *testing.T) {
	cfg, err := Load("/nonexistent/path/screener.yaml")
	assert.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{
			name: "unknown checkpoint driver",
			env:  map[string]string{"SCREENER_CHECKPOINT_DRIVER": "redis"},
			want: "Driver",
		},
		{
			name: "sqlite without dsn",
			env:  map[string]string{"SCREENER_CHECKPOINT_DRIVER": "sqlite"},
			want: "DSN",
		},
		{
			name: "email enabled without host",
			env:  map[string]string{"SCREENER_EMAIL_ENABLED": "true", "SCREENER_EMAIL_FROM": "rrhh@example.com"},
			want: "Host",
		},
		{
			name: "invalid from address",
			env:  map[string]string{"SCREENER_EMAIL_FROM": "not-an-email"},
			want: "From",
		},
		{
			name: "port out of range",
			env:  map[string]string{"SCREENER_SERVER_PORT": "70000"},
			want: "Port",
		},
		{
			name: "short session secret",
			env:  map[string]string{"SCREENER_SESSION_SECRET": "short"},
			want: "session.secret",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load("")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestRequireChecks(t *testing.T) {
	cfg := &Config{}
	assert.Error(t, cfg.RequireDatabase())
	assert.Error(t, cfg.RequireSessionSecret())
}
