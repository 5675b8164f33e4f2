package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })
	return dir
}

func TestLoadDefaults(t *testing.T) {
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "auto", cfg.Log.Format)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "claude-sonnet-4-5-20250929", cfg.Anthropic.Model)
	assert.Equal(t, 30000, cfg.Anthropic.InputTokensPerMinute)
	assert.Equal(t, "https://r.jina.ai", cfg.Jina.BaseURL)
	assert.Equal(t, "https://s.jina.ai", cfg.Jina.SearchBaseURL)
	assert.Equal(t, "h7sDV53CddomktSi5", cfg.Apify.YouTubeActor)
	assert.Equal(t, "TwqHBuZZPHJxiQrTU", cfg.Apify.RedditActor)
	assert.Equal(t, 600, cfg.Apify.RunTimeout)
	assert.Equal(t, "sonar-pro", cfg.Perplexity.Model)
	assert.Equal(t, "none", cfg.Cache.Driver)
	assert.Equal(t, 24*time.Hour, cfg.Cache.TTL())
	assert.Equal(t, "research", cfg.Temporal.TaskQueue)
	assert.Equal(t, 3, cfg.Queue.MaxAttempts)
	assert.Equal(t, 5, cfg.Queue.InitialBackoffSecs)
	assert.Equal(t, 5, cfg.Research.SearchConcurrency)
	assert.True(t, cfg.Research.VerifyQuotes)
}

func TestLoadFromYAML(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
store:
  driver: sqlite
  database_url: coldemail.db
log:
  level: debug
  format: console
queue:
  max_attempts: 5
cache:
  driver: redis
  ttl_hours: 6
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "coldemail.db", cfg.Store.DatabaseURL)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, 5, cfg.Queue.MaxAttempts)
	assert.Equal(t, "redis", cfg.Cache.Driver)
	assert.Equal(t, 6*time.Hour, cfg.Cache.TTL())
}

func TestLoadEnvOverride(t *testing.T) {
	chdirTemp(t)
	t.Setenv("COLDEMAIL_ANTHROPIC_KEY", "sk-test")
	t.Setenv("COLDEMAIL_STORE_DRIVER", "sqlite")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sk-test", cfg.Anthropic.Key)
	assert.Equal(t, "sqlite", cfg.Store.Driver)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		mode    string
		wantErr string
	}{
		{
			name: "worker ok",
			cfg: Config{
				Store:     StoreConfig{Driver: "sqlite"},
				Anthropic: AnthropicConfig{Key: "a"},
				Jina:      JinaConfig{Key: "j"},
				Apify:     ApifyConfig{Token: "t"},
			},
			mode: "worker",
		},
		{
			name:    "worker missing keys",
			cfg:     Config{Store: StoreConfig{Driver: "postgres"}},
			mode:    "worker",
			wantErr: "store.database_url, anthropic.key, jina.key, apify.token",
		},
		{
			name: "kb needs only store",
			cfg:  Config{Store: StoreConfig{Driver: "sqlite"}},
			mode: "kb",
		},
		{
			name:    "unknown mode",
			cfg:     Config{},
			mode:    "bogus",
			wantErr: "unknown validation mode",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate(tt.mode)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestInitLogger(t *testing.T) {
	prev := zap.L()
	t.Cleanup(func() { zap.ReplaceGlobals(prev) })

	require.NoError(t, InitLogger(LogConfig{Level: "debug", Format: "json"}))
	assert.True(t, zap.L().Core().Enabled(zap.DebugLevel))

	err := InitLogger(LogConfig{Level: "loud", Format: "json"})
	assert.Error(t, err)
}

func TestResolveFormat(t *testing.T) {
	assert.Equal(t, "json", resolveFormat("json", 0))
	assert.Equal(t, "console", resolveFormat("console", 0))

	f, err := os.CreateTemp(t.TempDir(), "log")
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, "json", resolveFormat("auto", f.Fd()))
}
