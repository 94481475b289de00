package ailink

import (
	"fmt"
	"strings"
	"sync"

	"github.com/stocklens/stocklens/internal/ailink/driver"
	"github.com/stocklens/stocklens/internal/ailink/driver/gemini"
	"github.com/stocklens/stocklens/internal/ailink/prompt"
)

// Registry resolves roles to provider instances, credentials, drivers and models.
type Registry struct {
	cfg Config

	mu      sync.Mutex
	drivers map[string]driver.Driver
	rr      map[string]int
}

type ResolvedProvider struct {
	ProviderID string
	Provider   ProviderInstanceConfig
	Credential CredentialConfig
	Driver     driver.Driver
	Model      string
	BaseURL    string
}

// HasCredential reports whether the selected credential carries a key.
func (r *ResolvedProvider) HasCredential() bool {
	return r != nil && strings.TrimSpace(r.Credential.APIKey) != ""
}

func NewRegistry(cfg Config) *Registry {
	return &Registry{cfg: cfg}
}

// Config returns the registry configuration.
func (r *Registry) Config() Config {
	if r == nil {
		return Config{}
	}
	return r.cfg
}

// Resolve picks the provider for role and the model for promptDef.
// Model precedence: modelOverride, the prompt's preferred_models hint, then the
// provider's "default" model.
func (r *Registry) Resolve(role string, promptDef *prompt.Prompt, modelOverride string) (*ResolvedProvider, error) {
	return r.resolve(role, func(cfg ProviderInstanceConfig) (string, error) {
		return resolveModel(cfg, promptDef, modelOverride)
	})
}

// ResolveSpeech picks the provider for role and its "speech" model.
func (r *Registry) ResolveSpeech(role, modelOverride string) (*ResolvedProvider, error) {
	return r.resolve(role, func(cfg ProviderInstanceConfig) (string, error) {
		return resolveTierModel(cfg, "speech", modelOverride)
	})
}

func (r *Registry) resolve(role string, pickModel func(ProviderInstanceConfig) (string, error)) (*ResolvedProvider, error) {
	providerID, providerCfg, err := r.resolveProvider(role)
	if err != nil {
		return nil, err
	}

	cred, credKey, err := selectCredential(providerCfg, func(groupKey string, n int) int {
		return r.rrIndex(providerID+":"+groupKey, n)
	})
	if err != nil {
		return nil, err
	}

	drv, err := r.driverFor(providerID, providerCfg, cred, credKey)
	if err != nil {
		return nil, err
	}

	model, err := pickModel(providerCfg)
	if err != nil {
		return nil, err
	}

	baseURL := strings.TrimSpace(providerCfg.BaseURL)
	if client, ok := drv.(*gemini.Client); ok {
		baseURL = strings.TrimSpace(client.BaseURL)
	}

	return &ResolvedProvider{
		ProviderID: providerID,
		Provider:   providerCfg,
		Credential: cred,
		Driver:     drv,
		Model:      model,
		BaseURL:    baseURL,
	}, nil
}

// resolveProvider picks the provider instance for role: explicit routing
// first, then an enabled instance declaring the role, then the default
// provider, then the only enabled instance.
func (r *Registry) resolveProvider(role string) (string, ProviderInstanceConfig, error) {
	if r == nil {
		return "", ProviderInstanceConfig{}, fmt.Errorf("ailink registry not configured")
	}

	lookup := func(id, what string) (string, ProviderInstanceConfig, error) {
		cfg, ok := r.cfg.Providers[id]
		switch {
		case !ok:
			return "", ProviderInstanceConfig{}, fmt.Errorf("unknown provider %q for %s", id, what)
		case !cfg.Enabled:
			return "", ProviderInstanceConfig{}, fmt.Errorf("%s %q is disabled", what, id)
		}
		return id, cfg, nil
	}

	if role = strings.TrimSpace(role); role != "" {
		if id := strings.TrimSpace(r.cfg.Routing[role]); id != "" {
			return lookup(id, "role "+role)
		}
		for id, cfg := range r.cfg.Providers {
			if cfg.Enabled && contains(cfg.Roles, role) {
				return id, cfg, nil
			}
		}
	}

	if id := strings.TrimSpace(r.cfg.DefaultProvider); id != "" {
		return lookup(id, "default provider")
	}

	var enabled []string
	for id, cfg := range r.cfg.Providers {
		if cfg.Enabled {
			enabled = append(enabled, id)
		}
	}
	switch len(enabled) {
	case 0:
		return "", ProviderInstanceConfig{}, fmt.Errorf("no enabled providers configured")
	case 1:
		return enabled[0], r.cfg.Providers[enabled[0]], nil
	default:
		return "", ProviderInstanceConfig{}, fmt.Errorf("no provider routing configured for %d enabled providers", len(enabled))
	}
}

// selectCredential returns the credential to use and a stable key for driver caching.
// When no credential carries a key, the first one is returned so callers can
// report a missing credential instead of a routing error.
func selectCredential(cfg ProviderInstanceConfig, rrNext func(groupKey string, n int) int) (CredentialConfig, string, error) {
	if len(cfg.Credentials) == 0 {
		return CredentialConfig{}, "", nil
	}

	enabled := make([]CredentialConfig, 0, len(cfg.Credentials))
	for _, cred := range cfg.Credentials {
		if !cred.Enabled && strings.TrimSpace(cred.Label) != "" {
			continue
		}
		if strings.TrimSpace(cred.APIKey) == "" {
			continue
		}
		enabled = append(enabled, cred)
	}
	if len(enabled) == 0 {
		cred := cfg.Credentials[0]
		key := strings.TrimSpace(cred.Label)
		if key == "" {
			key = "0"
		}
		return cred, key, nil
	}

	if label := strings.TrimSpace(cfg.DefaultCredential); label != "" {
		for _, cred := range enabled {
			if strings.EqualFold(strings.TrimSpace(cred.Label), label) {
				return cred, strings.TrimSpace(cred.Label), nil
			}
		}
	}

	policy := strings.ToLower(strings.TrimSpace(cfg.SelectionPolicy))
	if policy == "" {
		policy = "priority"
	}

	highest := enabled[0].Priority
	for _, cred := range enabled[1:] {
		if cred.Priority > highest {
			highest = cred.Priority
		}
	}
	group := make([]CredentialConfig, 0, len(enabled))
	for _, cred := range enabled {
		if cred.Priority == highest {
			group = append(group, cred)
		}
	}

	idx := 0
	if policy == "round_robin" && rrNext != nil {
		idx = rrNext(fmt.Sprintf("%d", highest), len(group))
	}
	cred := group[idx]
	key := strings.TrimSpace(cred.Label)
	if key == "" {
		key = fmt.Sprintf("p%d-%d", highest, idx)
	}
	return cred, key, nil
}

func (r *Registry) driverFor(providerID string, providerCfg ProviderInstanceConfig, cred CredentialConfig, credKey string) (driver.Driver, error) {
	if strings.TrimSpace(providerID) == "" {
		return nil, fmt.Errorf("provider id is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.drivers == nil {
		r.drivers = map[string]driver.Driver{}
	}
	driverKey := providerID
	if strings.TrimSpace(credKey) != "" {
		driverKey += ":" + credKey
	}
	if drv, ok := r.drivers[driverKey]; ok {
		return drv, nil
	}

	providerType := strings.ToLower(strings.TrimSpace(providerCfg.AIProvider))
	switch providerType {
	case "gemini", "google":
		client := gemini.NewClient(providerCfg.BaseURL, cred.APIKey)
		client.Timeout = r.cfg.DefaultTimeout
		r.drivers[driverKey] = client
		return client, nil
	default:
		if providerType == "" {
			providerType = "(unset)"
		}
		return nil, fmt.Errorf("unsupported ai_provider %q for provider %q", providerType, providerID)
	}
}

func resolveModel(providerCfg ProviderInstanceConfig, promptDef *prompt.Prompt, override string) (string, error) {
	if strings.TrimSpace(override) == "" {
		if models := preferredModels(promptDef); len(models) > 0 {
			return models[0], nil
		}
	}
	return resolveTierModel(providerCfg, "default", override)
}

func resolveTierModel(providerCfg ProviderInstanceConfig, tier, override string) (string, error) {
	if model := strings.TrimSpace(override); model != "" {
		return model, nil
	}
	if providerCfg.Models != nil {
		if model := strings.TrimSpace(providerCfg.Models[tier]); model != "" {
			return model, nil
		}
	}
	return "", fmt.Errorf("%s model not configured", tier)
}

// preferredModels reads provider_hints.preferred_models, which YAML may
// decode as a single string or a list.
func preferredModels(promptDef *prompt.Prompt) []string {
	if promptDef == nil {
		return nil
	}

	var models []string
	switch hint := promptDef.Config.ProviderHints["preferred_models"].(type) {
	case string:
		models = []string{hint}
	case []string:
		models = hint
	case []any:
		for _, item := range hint {
			if s, ok := item.(string); ok {
				models = append(models, s)
			}
		}
	}

	out := models[:0:0]
	for _, m := range models {
		if m = strings.TrimSpace(m); m != "" {
			out = append(out, m)
		}
	}
	return out
}

func (r *Registry) rrIndex(key string, n int) int {
	if r == nil || n <= 1 {
		return 0
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.rr == nil {
		r.rr = map[string]int{}
	}
	idx := r.rr[key] % n
	r.rr[key]++
	return idx
}

func contains(values []string, needle string) bool {
	needle = strings.TrimSpace(needle)
	if needle == "" {
		return false
	}
	for _, v := range values {
		if strings.EqualFold(strings.TrimSpace(v), needle) {
			return true
		}
	}
	return false
}
