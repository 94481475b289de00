package prompt

import (
	"fmt"
	"maps"
	"slices"
	"strings"
)

// Registry provides access to prompt definitions.
type Registry interface {
	Get(slug string) (*Prompt, error)
	List() []*Prompt
}

// InMemoryRegistry is a fixed set of prompts keyed by slug.
type InMemoryRegistry struct {
	bySlug map[string]*Prompt
}

// NewRegistry indexes prompts by slug. Nil entries are skipped; blank or
// repeated slugs are rejected.
func NewRegistry(prompts []*Prompt) (*InMemoryRegistry, error) {
	bySlug := make(map[string]*Prompt, len(prompts))
	for i, p := range prompts {
		if p == nil {
			continue
		}
		slug := strings.TrimSpace(p.Config.Slug)
		switch {
		case slug == "":
			return nil, fmt.Errorf("prompt %d (%s): missing slug", i, p.Source)
		case bySlug[slug] != nil:
			return nil, fmt.Errorf("duplicate prompt slug: %s", slug)
		}
		bySlug[slug] = p
	}
	return &InMemoryRegistry{bySlug: bySlug}, nil
}

func (r *InMemoryRegistry) Get(slug string) (*Prompt, error) {
	if r == nil {
		return nil, fmt.Errorf("prompt registry not configured")
	}
	if slug = strings.TrimSpace(slug); slug == "" {
		return nil, fmt.Errorf("prompt slug is required")
	}
	if p, ok := r.bySlug[slug]; ok {
		return p, nil
	}
	return nil, fmt.Errorf("prompt %q not found", slug)
}

// List returns prompts ordered by slug.
func (r *InMemoryRegistry) List() []*Prompt {
	if r == nil {
		return nil
	}
	out := make([]*Prompt, 0, len(r.bySlug))
	for _, slug := range slices.Sorted(maps.Keys(r.bySlug)) {
		out = append(out, r.bySlug[slug])
	}
	return out
}
