package config

import (
	"dreamreel/constant"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func clearCredentialEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"GROQ_API_KEY", "GOOGLE_API_KEY", "DATABASE_URL", "MINIO_ACCESS_ID", "MINIO_SECRET_ACCESS_KEY"} {
		t.Setenv(k, "")
	}
}

func TestLoad_DefaultsWithoutConfigFile(t *testing.T) {
	clearCredentialEnv(t)

	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, constant.StoreKindLocal, cfg.Store.Kind)
	assert.Equal(t, constant.PipelineModeInline, cfg.Pipeline.Mode)
	assert.Equal(t, 5*time.Second, cfg.Capture.ChunkInterval)
	assert.Equal(t, 60*time.Second, cfg.Capture.MaxDuration)
	assert.Equal(t, 3*time.Second, cfg.Capture.DrainGrace)
	assert.Equal(t, 30*time.Second, cfg.Client.ChunkTimeout)
	assert.Equal(t, 10*time.Second, cfg.Veo.PollInterval)
	assert.Equal(t, uint(60), cfg.Veo.MaxAttempts)
	assert.Nil(t, cfg.DB)
	assert.Nil(t, cfg.Storage)
	assert.Nil(t, cfg.Queue)
	assert.True(t, cfg.IsDevelopment())
}

func TestLoad_FileAndEnvironment(t *testing.T) {
	clearCredentialEnv(t)
	t.Setenv("GROQ_API_KEY", "gsk-test")
	t.Setenv("GOOGLE_API_KEY", "goog-test")

	dir := t.TempDir()
	yaml := `
app:
  environment: production
server:
  port: "9090"
  workers: 4
store:
  kind: sqlite
  path: /tmp/dreams.sqlite
capture:
  chunk_interval: 2s
  max_duration: 30s
veo:
  max_attempts: 5
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.True(t, cfg.IsProduction())
	assert.Equal(t, "9090", cfg.Server.HttpPort)
	assert.Equal(t, 4, cfg.Server.Workers)
	assert.Equal(t, constant.StoreKindSQLite, cfg.Store.Kind)
	assert.Equal(t, 2*time.Second, cfg.Capture.ChunkInterval)
	assert.Equal(t, uint(5), cfg.Veo.MaxAttempts)
	assert.Equal(t, "gsk-test", cfg.Credentials.GroqAPIKey)
	assert.Equal(t, "goog-test", cfg.Credentials.GoogleAPIKey)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Store:    Store{Kind: constant.StoreKindLocal, Path: "dreams.json"},
			Pipeline: Pipeline{Mode: constant.PipelineModeInline},
			Capture:  Capture{ChunkInterval: 5 * time.Second, MaxDuration: time.Minute},
			Veo:      Veo{MaxAttempts: 10},
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{name: "unknown store", mutate: func(c *Config) { c.Store.Kind = "redis" }, wantErr: "unknown store.kind"},
		{name: "postgres without db", mutate: func(c *Config) { c.Store.Kind = constant.StoreKindPostgres }, wantErr: "DATABASE_URL"},
		{name: "minio without client", mutate: func(c *Config) { c.Store.Kind = constant.StoreKindMinIO }, wantErr: "minio.url"},
		{name: "queue without deps", mutate: func(c *Config) { c.Pipeline.Mode = constant.PipelineModeQueue }, wantErr: "pipeline.mode=queue"},
		{name: "zero chunk interval", mutate: func(c *Config) { c.Capture.ChunkInterval = 0 }, wantErr: "chunk_interval"},
		{name: "ceiling below interval", mutate: func(c *Config) { c.Capture.MaxDuration = time.Second }, wantErr: "max_duration"},
		{name: "no poll attempts", mutate: func(c *Config) { c.Veo.MaxAttempts = 0 }, wantErr: "max_attempts"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			err := c.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
