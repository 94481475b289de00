package output

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/stocklens/stocklens/internal/review"
)

// TableFormatter renders reports as an ASCII table.
type TableFormatter struct{}

// FormatReport renders the verdict table followed by the image, metadata and
// advisory sections.
func (f *TableFormatter) FormatReport(report *Report) (string, error) {
	if report == nil {
		return "", nil
	}

	t := verdictTable(report)
	style := table.StyleRounded
	style.Format.Footer = text.FormatDefault
	t.SetStyle(style)
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 3, WidthMax: 72, WidthMaxEnforcer: text.WrapSoft},
	})

	rendered := t.Render()
	rendered += renderSections(reportSections(report), false)
	return rendered, nil
}

func verdictTable(report *Report) table.Writer {
	t := table.NewWriter()
	if report.Image != nil && report.Image.Name != "" {
		t.SetTitle("%s", report.Image.Name)
	}
	t.AppendHeader(table.Row{"Check", "Verdict", "Explanation"})

	verdicts := review.UnevaluatedVerdicts()
	if report.Result != nil {
		verdicts = report.Result.Verdicts
	}
	for _, kind := range review.Policies {
		v := verdicts.Get(kind)
		t.AppendRow(table.Row{policyTitle[kind], verdictLabel(v.Verdict), v.Explanation})
	}
	t.AppendFooter(table.Row{"", "", summaryLine(verdicts)})
	return t
}

func summaryLine(v review.Verdicts) string {
	if v.AllPass() {
		return "all checks passed"
	}
	if found := len(v.Violations()); found > 0 {
		return fmt.Sprintf("%d of %d checks found a problem", found, len(review.Policies))
	}
	return "not evaluated"
}

func promptTable(prompts []PromptSummary, markdown bool) string {
	t := table.NewWriter()
	t.AppendHeader(table.Row{"Slug", "Version", "Images", "Source", "Description"})
	for _, p := range prompts {
		t.AppendRow(table.Row{p.Slug, p.Version, p.ImageTypes, p.Source, p.Description})
	}
	if markdown {
		return t.RenderMarkdown()
	}
	t.SetStyle(table.StyleRounded)
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 5, WidthMax: 48, WidthMaxEnforcer: text.WrapSoft},
	})
	return t.Render()
}
