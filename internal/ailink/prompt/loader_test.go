package prompt

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	prompts, err := LoadDefaults()
	require.NoError(t, err)
	require.NotEmpty(t, prompts)

	reg, err := NewRegistry(prompts)
	require.NoError(t, err)

	prompt, err := reg.Get(DefaultSlug)
	require.NoError(t, err)
	require.NotEmpty(t, prompt.Config.SystemTemplate)
	require.NotEmpty(t, prompt.Config.DenyList)
	require.True(t, prompt.AcceptsImageType("image/png"))
	require.False(t, prompt.AcceptsImageType("image/tiff"))

	props, ok := prompt.Config.ResponseSchema["properties"].(map[string]any)
	require.True(t, ok)
	for _, field := range []string{
		"status", "explanation",
		"zedgeViolationStatus", "zedgeViolationExplanation",
		"womenPolicyStatus", "womenPolicyExplanation",
		"kidsViolationStatus", "kidsViolationExplanation",
		"title", "description", "tags",
	} {
		require.Contains(t, props, field)
	}
}

func TestRenderSubstitutesDenyListAndVariables(t *testing.T) {
	reg, err := DefaultRegistry()
	require.NoError(t, err)
	prompt, err := reg.Get(DefaultSlug)
	require.NoError(t, err)

	system, user, err := prompt.Render(map[string]string{"mime_type": "image/png", "file_name": "cat.png"})
	require.NoError(t, err)
	require.NotContains(t, system, "{{deny_list}}")
	require.Contains(t, system, `- "wallpaper"`)
	require.Contains(t, system, "season")
	require.Contains(t, user, "image/png")
	require.Contains(t, user, "cat.png")

	_, user, err = prompt.Render(map[string]string{"mime_type": "image/png"})
	require.NoError(t, err)
	require.NotContains(t, user, "{{file_name}}")
}

func TestRenderRequiresVariables(t *testing.T) {
	reg, err := DefaultRegistry()
	require.NoError(t, err)
	prompt, err := reg.Get(DefaultSlug)
	require.NoError(t, err)

	_, _, err = prompt.Render(nil)
	require.Error(t, err)
	require.Contains(t, err.Error(), "mime_type")
}

func TestLoadRejectsInvalidDefinitions(t *testing.T) {
	cases := map[string]string{
		"empty":           "",
		"no body":         "---\nslug: x\n---\n",
		"bad slug":        "---\nslug: Not A Slug\n---\nbody",
		"unknown field":   "---\nslug: ok\nsurprise: true\n---\nbody",
		"bad version":     "---\nslug: ok\nversion: one\n---\nbody",
		"bad frontmatter": "---\nslug: [\n---\nbody",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(name, []byte(doc))
			require.Error(t, err)
		})
	}
}

func TestLoadUsesBodyAsSystemTemplate(t *testing.T) {
	p, err := Load("inline", []byte("---\nslug: tiny\nversion: 0.1.0\n---\nJudge the image.\n"))
	require.NoError(t, err)
	require.Equal(t, "Judge the image.", p.Config.SystemTemplate)
	require.Equal(t, "inline", p.Source)
}

func TestRegistryWithOverrides(t *testing.T) {
	dir := t.TempDir()
	override := "---\nslug: stock-image-review\nversion: 9.0.0\n---\nCustom instructions.\n"
	extra := "---\nslug: extra-check\n---\nExtra.\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "review.md"), []byte(override), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "extra.md"), []byte(extra), 0o600))

	reg, err := RegistryWithOverrides(dir)
	require.NoError(t, err)

	p, err := reg.Get(DefaultSlug)
	require.NoError(t, err)
	require.Equal(t, "9.0.0", p.Config.Version)
	require.True(t, strings.HasSuffix(p.Source, "review.md"))

	_, err = reg.Get("extra-check")
	require.NoError(t, err)
	require.Len(t, reg.List(), 2)
}

func TestNewRegistryRejectsDuplicates(t *testing.T) {
	a := &Prompt{Config: Config{Slug: "a"}}
	_, err := NewRegistry([]*Prompt{a, a})
	require.Error(t, err)

	reg, err := NewRegistry([]*Prompt{a})
	require.NoError(t, err)
	_, err = reg.Get("missing")
	require.Error(t, err)
	_, err = reg.Get(" ")
	require.Error(t, err)
}
