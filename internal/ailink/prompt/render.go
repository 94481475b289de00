package prompt

import (
	"fmt"
	"strings"
)

// Render substitutes {{variable}} placeholders in the system and user templates.
//
// The deny list is exposed as {{deny_list}} (one quoted entry per line) unless
// the caller supplies that variable explicitly.
func (p *Prompt) Render(vars map[string]string) (string, string, error) {
	if p == nil {
		return "", "", fmt.Errorf("prompt is required")
	}

	merged := make(map[string]string, len(vars)+1)
	merged["deny_list"] = formatDenyList(p.Config.DenyList)
	for _, name := range p.Config.Input.OptionalVariables {
		merged[name] = ""
	}
	for k, v := range vars {
		merged[k] = v
	}

	for _, name := range p.Config.Input.RequiredVariables {
		if strings.TrimSpace(merged[name]) == "" {
			return "", "", fmt.Errorf("prompt %s requires variable %q", p.Config.Slug, name)
		}
	}

	system := applyVars(p.Config.SystemTemplate, merged)
	user := applyVars(p.Config.UserTemplate, merged)
	if strings.TrimSpace(system) == "" {
		return "", "", fmt.Errorf("system prompt is required")
	}
	return system, user, nil
}

func applyVars(template string, vars map[string]string) string {
	out := template
	for k, v := range vars {
		out = strings.ReplaceAll(out, "{{"+k+"}}", v)
	}
	return out
}

func formatDenyList(words []string) string {
	lines := make([]string, 0, len(words))
	for _, w := range words {
		w = strings.TrimSpace(w)
		if w == "" {
			continue
		}
		lines = append(lines, fmt.Sprintf("- %q", w))
	}
	return strings.Join(lines, "\n")
}
