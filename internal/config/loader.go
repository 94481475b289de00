// Package config loads stocklens configuration with viper: built-in defaults,
// an optional YAML file, .env files and STOCKLENS_* environment variables,
// decoded into Config with mapstructure.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	gfconfig "github.com/fulmenhq/gofulmen/config"
	"github.com/go-viper/mapstructure/v2"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/stocklens/stocklens/internal/ailink"
	"github.com/stocklens/stocklens/internal/appid"
	"github.com/stocklens/stocklens/internal/imaging"
	"github.com/stocklens/stocklens/internal/speech"
)

// Defaults for the gemini provider.
const (
	DefaultProviderID  = "gemini"
	DefaultReviewModel = "gemini-2.5-flash"
	DefaultSpeechModel = "gemini-2.5-flash-preview-tts"
	MaxRemoteTimeout   = 5 * time.Minute

	// EnvCredentialLabel labels the credential taken from the environment.
	EnvCredentialLabel = "env"
)

// APIKeyEnvVars are checked in order for the API credential. The first
// non-empty value wins.
var APIKeyEnvVars = []string{"STOCKLENS_API_KEY", "GEMINI_API_KEY", "API_KEY"}

var (
	current   *Config
	currentMu sync.RWMutex
)

// Options controls where Load looks for configuration.
type Options struct {
	// ConfigFile is an explicit YAML file. When empty, config.yaml is searched
	// in the XDG config dir and ./config; a missing file is not an error.
	ConfigFile string

	// EnvFiles are loaded with godotenv before the environment is read.
	// Existing variables are never overwritten. Defaults to [".env"].
	EnvFiles []string

	// Identity supplies the env prefix and config dir name.
	Identity appid.Identity
}

// Load reads configuration into v (a fresh viper when nil) and decodes it.
// Flags bound to v take precedence over every other layer.
func Load(v *viper.Viper, opts Options) (*Config, error) {
	if v == nil {
		v = viper.New()
	}
	identity := opts.Identity
	if identity.BinaryName == "" {
		identity = appid.Get()
	}

	if err := loadEnvFiles(opts.EnvFiles); err != nil {
		return nil, err
	}

	SetDefaults(v)

	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		if dir := gfconfig.GetAppConfigDir(identity.ConfigName); dir != "" {
			v.AddConfigPath(dir)
		}
		v.AddConfigPath("./config")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if opts.ConfigFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	prefix := identity.Prefix()
	v.SetEnvPrefix(strings.TrimSuffix(prefix, "_"))
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if overrides := providerEnvOverrides(prefix, os.Environ()); len(overrides) > 0 {
		if err := v.MergeConfigMap(overrides); err != nil {
			return nil, fmt.Errorf("apply environment overrides: %w", err)
		}
	}

	cfg, err := decode(v)
	if err != nil {
		return nil, err
	}
	ApplyAPIKey(cfg, LookupAPIKey(os.Getenv))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	setConfig(cfg)
	return cfg, nil
}

// ConfigFileUsed reports the file v was loaded from, if any.
func ConfigFileUsed(v *viper.Viper) string {
	if v == nil {
		return ""
	}
	return v.ConfigFileUsed()
}

func loadEnvFiles(files []string) error {
	if files == nil {
		files = []string{".env"}
	}
	for _, file := range files {
		if err := godotenv.Load(file); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load %s: %w", file, err)
		}
	}
	return nil
}

func decode(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           cfg,
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	})
	if err != nil {
		return nil, fmt.Errorf("create decoder: %w", err)
	}
	if err := decoder.Decode(v.AllSettings()); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return cfg, nil
}

// SetDefaults registers every key with its default so AutomaticEnv can see it.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "90s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.shutdown_timeout", "10s")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.profile", "structured")

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.port", 9090)
	v.SetDefault("health.enabled", true)

	v.SetDefault("ailink.default_provider", DefaultProviderID)
	v.SetDefault("ailink.default_timeout", "60s")
	v.SetDefault("ailink.prompts_dir", "")
	v.SetDefault("ailink.debug.capture_raw_enabled", false)
	v.SetDefault("ailink.debug.capture_raw_max_bytes", 4096)
	v.SetDefault("ailink.providers", map[string]any{
		DefaultProviderID: map[string]any{
			"enabled":     true,
			"ai_provider": "gemini",
			"models": map[string]any{
				"default": DefaultReviewModel,
				"speech":  DefaultSpeechModel,
			},
		},
	})
	v.SetDefault("ailink.routing", map[string]any{
		ailink.RoleReview: DefaultProviderID,
		ailink.RoleSpeech: DefaultProviderID,
	})

	v.SetDefault("speech.model", DefaultSpeechModel)
	v.SetDefault("speech.voice", speech.DefaultVoice)
	v.SetDefault("speech.player", "")
	v.SetDefault("speech.clip_ttl", speech.DefaultClipTTL.String())

	v.SetDefault("upload.max_bytes", imaging.DefaultMaxBytes)

	v.SetDefault("sessions.idle_timeout", "30m")
	v.SetDefault("sessions.prune_interval", "1m")

	v.SetDefault("admin_token", "")
}

// LookupAPIKey returns the first non-empty value among APIKeyEnvVars.
func LookupAPIKey(getenv func(string) string) string {
	for _, name := range APIKeyEnvVars {
		if key := strings.TrimSpace(getenv(name)); key != "" {
			return key
		}
	}
	return ""
}

// ApplyAPIKey adds key as the preferred credential of the default provider.
// A configured default_credential is left alone.
func ApplyAPIKey(cfg *Config, key string) {
	if cfg == nil || key == "" {
		return
	}
	id := strings.TrimSpace(cfg.AILink.DefaultProvider)
	if id == "" {
		id = DefaultProviderID
	}
	if cfg.AILink.Providers == nil {
		cfg.AILink.Providers = map[string]ailink.ProviderInstanceConfig{}
	}

	provider := cfg.AILink.Providers[id]
	for i, cred := range provider.Credentials {
		if cred.Label == EnvCredentialLabel {
			provider.Credentials = append(provider.Credentials[:i], provider.Credentials[i+1:]...)
			break
		}
	}
	provider.Credentials = append(provider.Credentials, ailink.CredentialConfig{
		Enabled: true,
		Label:   EnvCredentialLabel,
		APIKey:  key,
	})
	if provider.DefaultCredential == "" {
		provider.DefaultCredential = EnvCredentialLabel
	}
	cfg.AILink.Providers[id] = provider
}

// Validate rejects values the rest of the program cannot work with.
func (c *Config) Validate() error {
	var errs []error
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}
	if c.Upload.MaxBytes <= 0 {
		errs = append(errs, errors.New("upload.max_bytes must be positive"))
	}
	if c.AILink.DefaultTimeout < 0 || c.AILink.DefaultTimeout > MaxRemoteTimeout {
		errs = append(errs, fmt.Errorf("ailink.default_timeout must be between 0 and %s", MaxRemoteTimeout))
	}
	if c.Speech.ClipTTL <= 0 {
		errs = append(errs, errors.New("speech.clip_ttl must be positive"))
	}
	if dir := strings.TrimSpace(c.AILink.PromptsDir); dir != "" {
		if st, err := os.Stat(dir); err != nil || !st.IsDir() {
			errs = append(errs, fmt.Errorf("ailink.prompts_dir %q is not a directory", dir))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

// GetConfig returns the most recently loaded configuration.
func GetConfig() *Config {
	currentMu.RLock()
	defer currentMu.RUnlock()
	return current
}

func setConfig(cfg *Config) {
	currentMu.Lock()
	defer currentMu.Unlock()
	current = cfg
}

// DefaultConfigPath returns the XDG config file path.
func DefaultConfigPath(identity appid.Identity) string {
	dir := gfconfig.GetAppConfigDir(identity.ConfigName)
	if strings.TrimSpace(dir) == "" {
		return ""
	}
	return filepath.Join(dir, "config.yaml")
}

// providerEnvOverrides turns variables such as
// STOCKLENS_AILINK_PROVIDERS_GEMINI_BACKUP_BASE_URL and
// STOCKLENS_AILINK_ROUTING_SPEECH into a nested ailink config map, since
// viper cannot bind keys of maps it has not seen.
func providerEnvOverrides(prefix string, environ []string) map[string]any {
	providerPrefix := prefix + "AILINK_PROVIDERS_"
	routingPrefix := prefix + "AILINK_ROUTING_"

	root := map[string]any{}
	for _, item := range environ {
		key, value, ok := strings.Cut(item, "=")
		value = strings.TrimSpace(value)
		if !ok || value == "" {
			continue
		}
		switch {
		case strings.HasPrefix(key, providerPrefix):
			setProviderOverride(root, key[len(providerPrefix):], value)
		case strings.HasPrefix(key, routingPrefix):
			if role := toSlug(key[len(routingPrefix):]); role != "" {
				nested(root, "ailink", "routing")[role] = value
			}
		}
	}
	if len(root) == 0 {
		return nil
	}
	return root
}

// providerFields maps an env suffix to its provider config key.
var providerFields = map[string]string{
	"ENABLED":            "enabled",
	"AI_PROVIDER":        "ai_provider",
	"BASE_URL":           "base_url",
	"DEFAULT_CREDENTIAL": "default_credential",
	"SELECTION_POLICY":   "selection_policy",
}

func setProviderOverride(root map[string]any, raw, value string) {
	parts := strings.Split(strings.TrimSpace(raw), "_")

	// The provider id runs up to the first recognised section keyword.
	section := -1
	for i, part := range parts {
		if i == 0 {
			continue
		}
		switch part {
		case "ENABLED", "AI", "BASE", "DEFAULT", "SELECTION", "MODELS", "CREDENTIALS":
			section = i
		}
		if section != -1 {
			break
		}
	}
	if section <= 0 {
		return
	}

	provider := nested(root, "ailink", "providers", strings.ToLower(strings.Join(parts[:section], "-")))
	rest := parts[section:]
	suffix := strings.Join(rest, "_")

	if field, ok := providerFields[suffix]; ok {
		switch field {
		case "enabled":
			provider[field] = strings.EqualFold(value, "true")
		case "ai_provider", "selection_policy":
			provider[field] = strings.ToLower(value)
		default:
			provider[field] = value
		}
		return
	}

	switch {
	case rest[0] == "MODELS" && len(rest) >= 2:
		nested(provider, "models")[strings.ToLower(strings.Join(rest[1:], "_"))] = value
	case rest[0] == "CREDENTIALS" && len(rest) >= 3:
		idx, err := strconv.Atoi(rest[1])
		if err != nil || idx < 0 {
			return
		}
		cred := credentialAt(provider, idx)
		field := strings.ToLower(strings.Join(rest[2:], "_"))
		switch field {
		case "priority":
			if n, err := strconv.Atoi(value); err == nil {
				cred[field] = n
				return
			}
			cred[field] = value
		case "enabled":
			cred[field] = strings.EqualFold(value, "true")
		default:
			cred[field] = value
		}
	}
}

func nested(parent map[string]any, keys ...string) map[string]any {
	m := parent
	for _, key := range keys {
		next, ok := m[key].(map[string]any)
		if !ok {
			next = map[string]any{}
			m[key] = next
		}
		m = next
	}
	return m
}

func credentialAt(provider map[string]any, idx int) map[string]any {
	creds, _ := provider["credentials"].([]any)
	for len(creds) <= idx {
		creds = append(creds, map[string]any{})
	}
	provider["credentials"] = creds
	cred, ok := creds[idx].(map[string]any)
	if !ok {
		cred = map[string]any{}
		creds[idx] = cred
	}
	return cred
}

func toSlug(raw string) string {
	var clean []string
	for _, part := range strings.Split(strings.TrimSpace(raw), "_") {
		if p := strings.ToLower(strings.TrimSpace(part)); p != "" {
			clean = append(clean, p)
		}
	}
	return strings.Join(clean, "-")
}
