package output

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/stocklens/stocklens/internal/ailink/prompt"
	"github.com/stocklens/stocklens/internal/imaging"
	"github.com/stocklens/stocklens/internal/review"
)

// Format represents an output format.
type Format string

const (
	FormatTable    Format = "table"
	FormatJSON     Format = "json"
	FormatMarkdown Format = "markdown"
)

// Report pairs an analyzed image with its result.
type Report struct {
	Image  *imaging.Asset `json:"image"`
	Result *review.Result `json:"result"`
}

// Formatter renders analysis reports.
type Formatter interface {
	FormatReport(report *Report) (string, error)
}

// ParseFormat validates and normalizes a format string.
func ParseFormat(value string) (Format, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	switch normalized {
	case "", string(FormatTable):
		return FormatTable, nil
	case string(FormatJSON):
		return FormatJSON, nil
	case string(FormatMarkdown), "md":
		return FormatMarkdown, nil
	default:
		return "", fmt.Errorf("unsupported output format: %s", value)
	}
}

// NewFormatter returns a formatter for the requested format.
func NewFormatter(format Format) Formatter {
	switch format {
	case FormatJSON:
		return &JSONFormatter{Indent: true}
	case FormatMarkdown:
		return &MarkdownFormatter{}
	default:
		return &TableFormatter{}
	}
}

// PromptSummary is the listing entry for one prompt definition.
type PromptSummary struct {
	Slug        string `json:"slug"`
	Name        string `json:"name,omitempty"`
	Version     string `json:"version,omitempty"`
	Description string `json:"description,omitempty"`
	Source      string `json:"source"`
	ImageTypes  string `json:"image_types,omitempty"`
}

// FormatPrompts renders the prompt listing.
func FormatPrompts(format Format, prompts []*prompt.Prompt) (string, error) {
	summaries := make([]PromptSummary, 0, len(prompts))
	for _, p := range prompts {
		if p == nil {
			continue
		}
		summaries = append(summaries, PromptSummary{
			Slug:        p.Config.Slug,
			Name:        p.Config.Name,
			Version:     p.Config.Version,
			Description: p.Config.Description,
			Source:      p.Source,
			ImageTypes:  strings.Join(p.Config.Input.ImageTypes, ", "),
		})
	}

	if format == FormatJSON {
		data, err := json.MarshalIndent(summaries, "", "  ")
		if err != nil {
			return "", err
		}
		return string(data), nil
	}
	return promptTable(summaries, format == FormatMarkdown), nil
}

func verdictLabel(v review.Verdict) string {
	switch v {
	case review.Pass:
		return "PASS"
	case review.Found:
		return "FOUND"
	default:
		return "-"
	}
}

// policyTitle names each check the way the review prompt words it.
var policyTitle = map[review.PolicyKind]string{
	review.PolicyCopyright: "Copyright",
	review.PolicyPlatform:  "Platform policy",
	review.PolicyPersons:   "Depicted persons",
	review.PolicyMinors:    "Minors",
}
