package export

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
)

var md = goldmark.New()

const htmlShell = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Job Market Report — %s</title>
<style>
body { font-family: sans-serif; max-width: 860px; margin: 2rem auto; padding: 0 1rem; color: #222; }
table { border-collapse: collapse; }
th, td { border: 1px solid #ccc; padding: 0.3rem 0.6rem; text-align: left; }
</style>
</head>
<body>
%s
</body>
</html>
`

// writeReport renders the human-readable report in markdown and HTML.
func (e *Exporter) writeReport(bundle *Bundle) error {
	markdown := buildReport(bundle)
	if err := e.writeFile("report.md", []byte(markdown)); err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := md.Convert([]byte(markdown), &buf); err != nil {
		return fmt.Errorf("rendering report HTML: %w", err)
	}
	html := fmt.Sprintf(htmlShell, bundle.Summary.FetchDay, buf.String())
	return e.writeFile("report.html", []byte(html))
}

func buildReport(bundle *Bundle) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Job Market Report — %s\n\n", bundle.Summary.FetchDay)
	if bundle.Summary.Degraded {
		b.WriteString("> **Degraded run:** every source failed; this report reuses the previous batch.\n\n")
	}

	index := bundle.Index
	fmt.Fprintf(&b, "## Momentum: %.1f — %s %s\n\n", index.Score, index.Label, index.Emoji)
	fmt.Fprintf(&b, "%s.\n\n", index.Description)
	fmt.Fprintf(&b, "%s\n\n", index.Recommendation)
	fmt.Fprintf(&b, "- **Job seekers:** %s\n- **Recruiters:** %s\n\n", index.ForJobSeekers, index.ForRecruiters)
	b.WriteString("| Component | Score | Detail |\n|---|---|---|\n")
	for _, c := range index.Components {
		score := fmt.Sprintf("%.1f", c.Score)
		if c.Insufficient {
			score = "—"
		}
		fmt.Fprintf(&b, "| %s | %s | %s |\n", strings.ReplaceAll(c.Name, "_", " "), score, c.Detail)
	}
	b.WriteString("\n")

	if len(bundle.Alerts) > 0 {
		b.WriteString("## Alerts\n\n")
		for _, alert := range bundle.Alerts {
			fmt.Fprintf(&b, "- **%s** (%s): %s\n", alert.Type, alert.Severity, alert.Message)
		}
		b.WriteString("\n")
	}

	if skills := bundle.Aggregate.Skills.Overall; len(skills) > 0 {
		b.WriteString("## Top skills\n\n")
		limit := 10
		if len(skills) < limit {
			limit = len(skills)
		}
		for _, skill := range skills[:limit] {
			fmt.Fprintf(&b, "- %s (%d postings)\n", skill.Skill, skill.Count)
		}
		b.WriteString("\n")
	}

	if companies := bundle.Aggregate.Companies; len(companies) > 0 {
		b.WriteString("## Most active companies\n\n")
		limit := 10
		if len(companies) < limit {
			limit = len(companies)
		}
		for _, company := range companies[:limit] {
			fmt.Fprintf(&b, "- %s (%d postings)\n", company.Company, company.Count)
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "---\n\n%d postings in corpus; run %s.\n",
		bundle.Summary.PostingCount, bundle.Summary.RunID)
	return b.String()
}
