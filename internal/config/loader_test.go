package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stocklens/stocklens/internal/appid"
)

// isolate points XDG lookups and the working directory at empty temp dirs and
// clears credential variables so the host environment cannot leak in.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "xdg"))
	t.Setenv("HOME", dir)
	for _, name := range APIKeyEnvVars {
		t.Setenv(name, "")
	}
	t.Chdir(dir)
	return dir
}

func load(t *testing.T, opts Options) *Config {
	t.Helper()
	cfg, err := Load(viper.New(), opts)
	require.NoError(t, err)
	require.NotNil(t, cfg)
	return cfg
}

func TestLoadDefaults(t *testing.T) {
	isolate(t)
	cfg := load(t, Options{})

	assert.Equal(t, "localhost", cfg.Server.Host)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 90*time.Second, cfg.Server.WriteTimeout)
	assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout)

	assert.Equal(t, "info", cfg.Logging.Level)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, 9090, cfg.Metrics.Port)

	assert.Equal(t, DefaultProviderID, cfg.AILink.DefaultProvider)
	assert.Equal(t, 60*time.Second, cfg.AILink.DefaultTimeout)
	gemini := cfg.AILink.Providers[DefaultProviderID]
	assert.True(t, gemini.Enabled)
	assert.Equal(t, DefaultReviewModel, gemini.Models["default"])
	assert.Equal(t, DefaultSpeechModel, gemini.Models["speech"])
	assert.Empty(t, gemini.Credentials)
	assert.Equal(t, DefaultProviderID, cfg.AILink.Routing["speech"])

	assert.Equal(t, "Kore", cfg.Speech.Voice)
	assert.Equal(t, 2*time.Minute, cfg.Speech.ClipTTL)
	assert.Equal(t, int64(20<<20), cfg.Upload.MaxBytes)
	assert.Equal(t, 30*time.Minute, cfg.Sessions.IdleTimeout)

	assert.Same(t, cfg, GetConfig())
}

func TestLoadConfigFile(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "stocklens.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 9191
speech:
  voice: Puck
  clip_ttl: 30s
ailink:
  providers:
    gemini:
      base_url: http://127.0.0.1:9999
      credentials:
        - label: main
          api_key: from-file
          enabled: true
`), 0o600))

	cfg := load(t, Options{ConfigFile: path})
	assert.Equal(t, 9191, cfg.Server.Port)
	assert.Equal(t, "Puck", cfg.Speech.Voice)
	assert.Equal(t, 30*time.Second, cfg.Speech.ClipTTL)

	gemini := cfg.AILink.Providers[DefaultProviderID]
	assert.Equal(t, "http://127.0.0.1:9999", gemini.BaseURL)
	assert.Equal(t, DefaultReviewModel, gemini.Models["default"])
	require.Len(t, gemini.Credentials, 1)
	assert.Equal(t, "from-file", gemini.Credentials[0].APIKey)
}

func TestLoadExplicitMissingFileFails(t *testing.T) {
	dir := isolate(t)
	_, err := Load(viper.New(), Options{ConfigFile: filepath.Join(dir, "absent.yaml")})
	require.Error(t, err)
}

func TestLoadSearchesLocalConfigDir(t *testing.T) {
	dir := isolate(t)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "config"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config", "config.yaml"),
		[]byte("logging:\n  level: debug\n"), 0o600))

	v := viper.New()
	cfg, err := Load(v, Options{})
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "config.yaml", filepath.Base(ConfigFileUsed(v)))
}

func TestEnvironmentOverrides(t *testing.T) {
	isolate(t)
	t.Setenv("STOCKLENS_SERVER_PORT", "7000")
	t.Setenv("STOCKLENS_SPEECH_VOICE", "Zephyr")
	t.Setenv("STOCKLENS_AILINK_PROVIDERS_GEMINI_BASE_URL", "http://localhost:1234")
	t.Setenv("STOCKLENS_AILINK_PROVIDERS_GEMINI_MODELS_SPEECH", "tts-next")
	t.Setenv("STOCKLENS_AILINK_PROVIDERS_GEMINI_BACKUP_ENABLED", "true")
	t.Setenv("STOCKLENS_AILINK_PROVIDERS_GEMINI_BACKUP_AI_PROVIDER", "GEMINI")
	t.Setenv("STOCKLENS_AILINK_PROVIDERS_GEMINI_BACKUP_CREDENTIALS_0_API_KEY", "backup-key")
	t.Setenv("STOCKLENS_AILINK_PROVIDERS_GEMINI_BACKUP_CREDENTIALS_0_PRIORITY", "5")
	t.Setenv("STOCKLENS_AILINK_ROUTING_SPEECH", "gemini-backup")

	cfg := load(t, Options{})
	assert.Equal(t, 7000, cfg.Server.Port)
	assert.Equal(t, "Zephyr", cfg.Speech.Voice)

	gemini := cfg.AILink.Providers["gemini"]
	assert.Equal(t, "http://localhost:1234", gemini.BaseURL)
	assert.Equal(t, "tts-next", gemini.Models["speech"])
	assert.Equal(t, DefaultReviewModel, gemini.Models["default"])

	backup := cfg.AILink.Providers["gemini-backup"]
	assert.True(t, backup.Enabled)
	assert.Equal(t, "gemini", backup.AIProvider)
	require.Len(t, backup.Credentials, 1)
	assert.Equal(t, "backup-key", backup.Credentials[0].APIKey)
	assert.Equal(t, 5, backup.Credentials[0].Priority)
	assert.Equal(t, "gemini-backup", cfg.AILink.Routing["speech"])
	assert.Equal(t, DefaultProviderID, cfg.AILink.Routing["review"])
}

func TestAPIKeyFromEnvironment(t *testing.T) {
	isolate(t)
	t.Setenv("API_KEY", "generic")
	t.Setenv("GEMINI_API_KEY", "gemini")

	cfg := load(t, Options{})
	gemini := cfg.AILink.Providers[DefaultProviderID]
	require.Len(t, gemini.Credentials, 1)
	assert.Equal(t, "gemini", gemini.Credentials[0].APIKey)
	assert.Equal(t, EnvCredentialLabel, gemini.DefaultCredential)
}

func TestAPIKeyFromDotEnv(t *testing.T) {
	dir := isolate(t)
	t.Setenv("STOCKLENS_API_KEY", "")
	require.NoError(t, os.Unsetenv("STOCKLENS_API_KEY"))
	envFile := filepath.Join(dir, "local.env")
	require.NoError(t, os.WriteFile(envFile, []byte("STOCKLENS_API_KEY=dotenv-key\n"), 0o600))

	cfg := load(t, Options{EnvFiles: []string{envFile, filepath.Join(dir, "missing.env")}})
	creds := cfg.AILink.Providers[DefaultProviderID].Credentials
	require.Len(t, creds, 1)
	assert.Equal(t, "dotenv-key", creds[0].APIKey)
}

func TestLookupAPIKeyOrder(t *testing.T) {
	env := map[string]string{"API_KEY": "c", "GEMINI_API_KEY": " ", "STOCKLENS_API_KEY": ""}
	assert.Equal(t, "c", LookupAPIKey(func(k string) string { return env[k] }))

	env["GEMINI_API_KEY"] = "b"
	assert.Equal(t, "b", LookupAPIKey(func(k string) string { return env[k] }))

	env["STOCKLENS_API_KEY"] = "a"
	assert.Equal(t, "a", LookupAPIKey(func(k string) string { return env[k] }))

	assert.Empty(t, LookupAPIKey(func(string) string { return "" }))
}

func TestApplyAPIKeyKeepsConfiguredDefault(t *testing.T) {
	cfg := &Config{}
	cfg.AILink.DefaultProvider = "gemini"
	ApplyAPIKey(cfg, "k1")
	ApplyAPIKey(cfg, "k2")

	gemini := cfg.AILink.Providers["gemini"]
	require.Len(t, gemini.Credentials, 1)
	assert.Equal(t, "k2", gemini.Credentials[0].APIKey)

	gemini.DefaultCredential = "main"
	cfg.AILink.Providers["gemini"] = gemini
	ApplyAPIKey(cfg, "k3")
	assert.Equal(t, "main", cfg.AILink.Providers["gemini"].DefaultCredential)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Server: ServerConfig{Port: 8080},
			Upload: UploadConfig{MaxBytes: 1},
			Speech: SpeechConfig{ClipTTL: time.Second},
		}
	}
	require.NoError(t, valid().Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"port", func(c *Config) { c.Server.Port = 70000 }},
		{"upload", func(c *Config) { c.Upload.MaxBytes = 0 }},
		{"timeout", func(c *Config) { c.AILink.DefaultTimeout = time.Hour }},
		{"clip ttl", func(c *Config) { c.Speech.ClipTTL = 0 }},
		{"prompts dir", func(c *Config) { c.AILink.PromptsDir = filepath.Join(t.TempDir(), "nope") }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			require.Error(t, cfg.Validate())
		})
	}
}

func TestDefaultConfigPath(t *testing.T) {
	isolate(t)
	path := DefaultConfigPath(appid.Get())
	if path == "" {
		t.Skip("no config dir on this platform")
	}
	assert.Equal(t, "config.yaml", filepath.Base(path))
	assert.Contains(t, path, appid.Get().ConfigName)
}
