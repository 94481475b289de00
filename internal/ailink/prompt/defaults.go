package prompt

import (
	"embed"
	"fmt"
)

// DefaultSlug is the prompt used for image review when none is configured.
const DefaultSlug = "stock-image-review"

//go:embed prompts/*.md
var defaultPromptsFS embed.FS

// LoadDefaults loads the embedded prompt set.
func LoadDefaults() ([]*Prompt, error) {
	entries, err := defaultPromptsFS.ReadDir("prompts")
	if err != nil {
		return nil, fmt.Errorf("read embedded prompts: %w", err)
	}
	results := make([]*Prompt, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		data, err := defaultPromptsFS.ReadFile("prompts/" + entry.Name())
		if err != nil {
			return nil, fmt.Errorf("read embedded prompt %s: %w", entry.Name(), err)
		}
		prompt, err := Load("embedded:"+entry.Name(), data)
		if err != nil {
			return nil, err
		}
		results = append(results, prompt)
	}
	return results, nil
}

// DefaultRegistry builds a registry from embedded prompts.
func DefaultRegistry() (Registry, error) {
	prompts, err := LoadDefaults()
	if err != nil {
		return nil, err
	}
	return NewRegistry(prompts)
}

// RegistryWithOverrides builds a registry from embedded prompts, replacing any
// whose slug also appears in dir. An empty dir yields the defaults.
func RegistryWithOverrides(dir string) (Registry, error) {
	prompts, err := LoadDefaults()
	if err != nil {
		return nil, err
	}
	if dir == "" {
		return NewRegistry(prompts)
	}

	overrides, err := LoadFromDir(dir)
	if err != nil {
		return nil, err
	}
	bySlug := make(map[string]int, len(prompts))
	for i, p := range prompts {
		bySlug[p.Config.Slug] = i
	}
	for _, p := range overrides {
		if i, ok := bySlug[p.Config.Slug]; ok {
			prompts[i] = p
			continue
		}
		bySlug[p.Config.Slug] = len(prompts)
		prompts = append(prompts, p)
	}
	return NewRegistry(prompts)
}
