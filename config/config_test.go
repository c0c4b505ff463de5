package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/s0up4200/go-replicate/fileinput"
	"github.com/s0up4200/go-replicate/pipeline"
	"github.com/s0up4200/go-replicate/replicate"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

// isolate keeps Load away from the developer's own config and token.
func isolate(t *testing.T) {
	t.Helper()
	t.Setenv(replicate.TokenEnv, "")
	t.Setenv("HOME", t.TempDir())
	t.Chdir(t.TempDir())
}

func TestLoadFile(t *testing.T) {
	isolate(t)
	path := writeConfig(t, `
api_token: r8_file
base_url: http://localhost:5000
retry:
  max_retries: 5
  min_delay: 100ms
  max_delay: 2s
  base_multiplier: 3
  retryable_status: [409]
  retry_timeouts: true
timeout:
  connect: 5s
  request: 0s
rate_limit:
  requests_per_second: 2.5
  burst: 4
files:
  strategy: base64
  max_data_url_size: 2048
predictions:
  poll_interval: 250ms
  wait_timeout: 10m
filters:
  images: isType("image/")
logging:
  level: debug
  format: json
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, path, cfg.File)
	assert.Equal(t, "r8_file", cfg.APIToken)
	assert.Equal(t, "http://localhost:5000", cfg.BaseURL)

	http := cfg.HTTPConfig()
	assert.Equal(t, 5, http.Retry.MaxRetries)
	assert.Equal(t, 100*time.Millisecond, http.Retry.MinDelay)
	assert.Equal(t, 2*time.Second, http.Retry.MaxDelay)
	assert.Equal(t, uint(3), http.Retry.BaseMultiplier)
	assert.Equal(t, []int{409}, http.Retry.RetryableStatus)
	assert.True(t, http.Retry.RetryTimeouts)
	assert.Equal(t, 5*time.Second, http.Timeout.Connect)
	assert.Zero(t, http.Timeout.Request)

	assert.Equal(t, 2.5, cfg.RateLimit.RequestsPerSecond)
	assert.Equal(t, 4, cfg.RateLimit.Burst)
	assert.Equal(t, fileinput.Base64DataURL, cfg.Strategy())
	assert.Equal(t, int64(2048), cfg.Files.MaxDataURLSize)
	assert.Equal(t, replicate.DefaultUploadConcurrency, cfg.Files.UploadConcurrency)
	assert.Equal(t, 250*time.Millisecond, cfg.Predictions.PollInterval)
	assert.Equal(t, 10*time.Minute, cfg.Predictions.WaitTimeout)
	assert.Equal(t, `isType("image/")`, cfg.Filters["images"])
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoadDefaultsFromEnv(t *testing.T) {
	isolate(t)
	t.Setenv(replicate.TokenEnv, "r8_env")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Empty(t, cfg.File)
	assert.Equal(t, "r8_env", cfg.APIToken)
	assert.Equal(t, replicate.DefaultBaseURL, cfg.BaseURL)
	assert.Equal(t, pipeline.DefaultConfig(), cfg.HTTPConfig())
	assert.Equal(t, fileinput.Multipart, cfg.Strategy())
	assert.Equal(t, fileinput.DefaultMaxDataURLSize, cfg.Files.MaxDataURLSize)
	assert.Equal(t, replicate.DefaultPollInterval, cfg.Predictions.PollInterval)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "console", cfg.Logging.Format)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	isolate(t)
	t.Setenv(replicate.TokenEnv, "r8_env")
	t.Setenv("REPLICATE_RETRY_MAX_RETRIES", "7")

	cfg, err := Load(writeConfig(t, "api_token: r8_file\n"))
	require.NoError(t, err)

	assert.Equal(t, "r8_env", cfg.APIToken)
	assert.Equal(t, 7, cfg.Retry.MaxRetries)
}

func TestLoadSearchPath(t *testing.T) {
	isolate(t)
	require.NoError(t, os.WriteFile("config.yaml", []byte("api_token: r8_cwd\n"), 0o600))

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "r8_cwd", cfg.APIToken)
	assert.NotEmpty(t, cfg.File)
}

func TestLoadErrors(t *testing.T) {
	isolate(t)

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "error reading config")

	_, err = Load("")
	assert.ErrorContains(t, err, "api_token is required")

	_, err = Load(writeConfig(t, "api_token: [unterminated\n"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			APIToken: "r8_token",
			BaseURL:  replicate.DefaultBaseURL,
			Retry: RetryConfig{
				MaxRetries:     3,
				MinDelay:       500 * time.Millisecond,
				MaxDelay:       30 * time.Second,
				BaseMultiplier: 2,
			},
			Timeout:     TimeoutConfig{Connect: 30 * time.Second, Request: time.Minute},
			Files:       FilesConfig{Strategy: "multipart", UploadConcurrency: 4},
			Predictions: PredictionsConfig{PollInterval: time.Second},
			Logging:     LoggingConfig{Level: "info", Format: "console"},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "blank token", mutate: func(c *Config) { c.APIToken = "  " }, wantErr: "api_token is required"},
		{name: "relative base url", mutate: func(c *Config) { c.BaseURL = "/v1" }, wantErr: "invalid base_url"},
		{name: "min above max", mutate: func(c *Config) { c.Retry.MinDelay = time.Minute }, wantErr: "MaxDelay"},
		{name: "zero multiplier", mutate: func(c *Config) { c.Retry.BaseMultiplier = 0 }, wantErr: "BaseMultiplier"},
		{name: "negative timeout", mutate: func(c *Config) { c.Timeout.Request = -time.Second }, wantErr: "Request"},
		{name: "negative rate", mutate: func(c *Config) { c.RateLimit.RequestsPerSecond = -1 }, wantErr: "requests_per_second"},
		{name: "unknown strategy", mutate: func(c *Config) { c.Files.Strategy = "ftp" }, wantErr: "files.strategy"},
		{name: "no upload workers", mutate: func(c *Config) { c.Files.UploadConcurrency = 0 }, wantErr: "upload_concurrency"},
		{name: "zero poll interval", mutate: func(c *Config) { c.Predictions.PollInterval = 0 }, wantErr: "poll_interval"},
		{name: "bad level", mutate: func(c *Config) { c.Logging.Level = "trace" }, wantErr: "invalid logging level"},
		{name: "bad format", mutate: func(c *Config) { c.Logging.Format = "xml" }, wantErr: "invalid logging format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := validate(cfg)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestNewClient(t *testing.T) {
	isolate(t)
	t.Setenv(replicate.TokenEnv, "r8_env")
	t.Setenv("REPLICATE_TIMEOUT_REQUEST", "15s")

	cfg, err := Load("")
	require.NoError(t, err)

	client, err := cfg.NewClient(zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, 15*time.Second, client.TimeoutConfig().Request)
	assert.Equal(t, cfg.HTTPConfig().Retry, client.RetryConfig())
}
