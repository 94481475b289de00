package output

import "strings"

// MarkdownFormatter renders reports as a markdown table.
type MarkdownFormatter struct{}

// FormatReport renders a report as Markdown.
func (f *MarkdownFormatter) FormatReport(report *Report) (string, error) {
	if report == nil {
		return "", nil
	}

	var sb strings.Builder
	title := "Image review"
	if report.Image != nil && report.Image.Name != "" {
		title = report.Image.Name
	}
	sb.WriteString("## " + strings.ReplaceAll(title, "\n", " ") + "\n\n")

	t := verdictTable(report)
	t.SetTitle("")
	sb.WriteString(t.RenderMarkdown())
	sb.WriteString("\n")
	sb.WriteString(renderSections(reportSections(report), true))
	return sb.String(), nil
}
