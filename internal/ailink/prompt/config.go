package prompt

// Config describes a prompt definition loaded from YAML.
type Config struct {
	Slug           string         `yaml:"slug" json:"slug"`
	Name           string         `yaml:"name,omitempty" json:"name,omitempty"`
	Description    string         `yaml:"description,omitempty" json:"description,omitempty"`
	Version        string         `yaml:"version,omitempty" json:"version,omitempty"`
	Author         string         `yaml:"author,omitempty" json:"author,omitempty"`
	Updated        string         `yaml:"updated,omitempty" json:"updated,omitempty"`
	Input          InputSpec      `yaml:"input,omitempty" json:"input,omitempty"`
	SystemTemplate string         `yaml:"system_template,omitempty" json:"system_template,omitempty"`
	UserTemplate   string         `yaml:"user_template,omitempty" json:"user_template,omitempty"`
	DenyList       []string       `yaml:"deny_list,omitempty" json:"deny_list,omitempty"`
	ResponseSchema map[string]any `yaml:"response_schema,omitempty" json:"response_schema,omitempty"`
	ProviderHints  map[string]any `yaml:"provider_hints,omitempty" json:"provider_hints,omitempty"`
}

// InputSpec defines prompt input requirements.
type InputSpec struct {
	RequiredVariables []string `yaml:"required_variables,omitempty" json:"required_variables,omitempty"`
	OptionalVariables []string `yaml:"optional_variables,omitempty" json:"optional_variables,omitempty"`
	AcceptsImages     bool     `yaml:"accepts_images,omitempty" json:"accepts_images,omitempty"`
	ImageTypes        []string `yaml:"image_types,omitempty" json:"image_types,omitempty"`
	MaxImages         int      `yaml:"max_images,omitempty" json:"max_images,omitempty"`
}

// Prompt wraps a validated prompt configuration with its source.
type Prompt struct {
	Config Config
	Source string
}

// AcceptsImageType reports whether the prompt accepts an image of mimeType.
// An empty ImageTypes list accepts any image.
func (p *Prompt) AcceptsImageType(mimeType string) bool {
	if p == nil || !p.Config.Input.AcceptsImages {
		return false
	}
	if len(p.Config.Input.ImageTypes) == 0 {
		return true
	}
	for _, t := range p.Config.Input.ImageTypes {
		if t == mimeType {
			return true
		}
	}
	return false
}
