package output

import (
	"fmt"
	"strings"

	"github.com/stocklens/stocklens/internal/imaging"
)

type reportSection struct {
	Title string
	Lines []string
}

func reportSections(report *Report) []reportSection {
	if report == nil {
		return nil
	}

	sections := make([]reportSection, 0, 3)
	if section, ok := imageSection(report.Image); ok {
		sections = append(sections, section)
	}
	if report.Result == nil {
		return sections
	}
	if meta := report.Result.Metadata; meta != nil {
		tags := "none"
		if len(meta.Tags) > 0 {
			tags = strings.Join(meta.Tags, ", ")
		}
		sections = append(sections, reportSection{
			Title: "Metadata",
			Lines: []string{
				"Title: " + meta.Title,
				"Description: " + meta.Description,
				"Tags: " + tags,
			},
		})
	} else if !report.Result.Verdicts.AllPass() {
		sections = append(sections, reportSection{
			Title: "Metadata",
			Lines: []string{"withheld: every check must pass"},
		})
	}
	if len(report.Result.Advisories) > 0 {
		sections = append(sections, reportSection{Title: "Advisories", Lines: report.Result.Advisories})
	}
	return sections
}

func imageSection(asset *imaging.Asset) (reportSection, bool) {
	if asset == nil {
		return reportSection{}, false
	}

	lines := []string{fmt.Sprintf("Type: %s, %dx%d, %s", asset.MIMEType, asset.Width, asset.Height, byteSize(asset.Size))}
	if asset.Fingerprint != "" {
		lines = append(lines, "Fingerprint: "+asset.Fingerprint)
	}
	if r := asset.Rights; r != nil {
		for _, field := range []struct{ label, value string }{
			{"Copyright", r.Copyright},
			{"Artist", r.Artist},
			{"Credit", r.Credit},
			{"Source", r.Source},
			{"License", r.License},
			{"Usage terms", r.UsageTerms},
		} {
			if strings.TrimSpace(field.value) != "" {
				lines = append(lines, fmt.Sprintf("%s: %s", field.label, field.value))
			}
		}
		if r.Marked {
			lines = append(lines, "Marked: copyrighted")
		}
	}
	return reportSection{Title: "Image", Lines: lines}, true
}

func byteSize(n int) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MiB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1f KiB", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%d B", n)
	}
}

func renderSections(sections []reportSection, markdown bool) string {
	if len(sections) == 0 {
		return ""
	}

	var sb strings.Builder
	for i, section := range sections {
		if i > 0 {
			sb.WriteString("\n")
		}
		if markdown {
			sb.WriteString(fmt.Sprintf("\n### %s\n", section.Title))
			for _, line := range section.Lines {
				sb.WriteString(fmt.Sprintf("- %s\n", line))
			}
		} else {
			sb.WriteString(fmt.Sprintf("\n\n%s:\n", section.Title))
			for _, line := range section.Lines {
				sb.WriteString(fmt.Sprintf("  %s\n", line))
			}
		}
	}
	return sb.String()
}
