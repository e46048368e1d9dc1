package draft

import (
	"encoding/json"
	"fmt"
	"html"
	"sort"
	"strconv"
	"strings"

	"github.com/osteele/liquid"

	"github.com/ignite/bottler-outreach/internal/report"
)

// daysFromLastHitColumn is the numeric column the request table is sorted
// on, descending, so the longest-idle machines lead the prompt.
const daysFromLastHitColumn = "days-from-last-hit"

// promptTemplate is the Liquid source for the outbound generation prompt.
const promptTemplate = `You are writing a service follow-up email for a beverage equipment operator.

SUB-BOTTLER: {{ group_name }}
MACHINE COUNT: {{ row_count }}

MACHINE REPORT (sorted by days since last hit, most idle first):
{{ table }}

Write a professional email to this sub-bottler summarizing the machines that need attention.
Keep the tone factual and courteous. Reference concrete machines from the table.

Respond in this exact JSON format and nothing else:
{
  "subject": "the email subject line",
  "html_body": "<p>the full HTML email body</p>"
}`

// PromptBuilder renders generation prompts from group data.
type PromptBuilder struct {
	tmpl *liquid.Template
}

// NewPromptBuilder parses the prompt template once.
func NewPromptBuilder() (*PromptBuilder, error) {
	tmpl, err := liquid.NewEngine().ParseString(promptTemplate)
	if err != nil {
		return nil, fmt.Errorf("parse prompt template: %w", err)
	}
	return &PromptBuilder{tmpl: tmpl}, nil
}

// Build renders the prompt for one group.
func (b *PromptBuilder) Build(groupName string, rows []*report.Row) (string, error) {
	out, err := b.tmpl.RenderString(liquid.Bindings{
		"group_name": groupName,
		"row_count":  len(rows),
		"table":      BuildRowTable(rows),
	})
	if err != nil {
		return "", fmt.Errorf("render prompt: %w", err)
	}
	return out, nil
}

// BuildRowTable renders the group's rows as an HTML table for prompt
// embedding, sorted descending by the days-from-last-hit column
// (missing or non-numeric values count as 0). Sorting happens on a copy;
// stored rows keep their input order.
func BuildRowTable(rows []*report.Row) string {
	if len(rows) == 0 {
		return "<table></table>"
	}

	sorted := make([]*report.Row, len(rows))
	copy(sorted, rows)
	sort.SliceStable(sorted, func(i, j int) bool {
		return daysFromLastHit(sorted[i]) > daysFromLastHit(sorted[j])
	})

	columns := sorted[0].Columns()

	var sb strings.Builder
	sb.WriteString("<table>\n<tr>")
	for _, col := range columns {
		sb.WriteString("<th>")
		sb.WriteString(html.EscapeString(col))
		sb.WriteString("</th>")
	}
	sb.WriteString("</tr>\n")

	for _, row := range sorted {
		sb.WriteString("<tr>")
		for _, col := range columns {
			sb.WriteString("<td>")
			sb.WriteString(html.EscapeString(row.Get(col)))
			sb.WriteString("</td>")
		}
		sb.WriteString("</tr>\n")
	}
	sb.WriteString("</table>")
	return sb.String()
}

func daysFromLastHit(r *report.Row) float64 {
	v := strings.TrimSpace(r.Get(daysFromLastHitColumn))
	if v == "" {
		return 0
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0
	}
	return f
}

// parseDraftJSON extracts the subject/body pair from a model response,
// tolerating markdown code fences around the JSON.
func parseDraftJSON(content string) (subject, body string, err error) {
	content = strings.TrimSpace(content)
	if strings.HasPrefix(content, "```") {
		content = strings.TrimPrefix(content, "```json")
		content = strings.TrimPrefix(content, "```")
		content = strings.TrimSuffix(content, "```")
		content = strings.TrimSpace(content)
	}

	var out struct {
		Subject  string `json:"subject"`
		HTMLBody string `json:"html_body"`
	}
	if err := json.Unmarshal([]byte(content), &out); err != nil {
		return "", "", fmt.Errorf("parse draft response: %w", err)
	}
	if out.Subject == "" || out.HTMLBody == "" {
		return "", "", fmt.Errorf("draft response missing subject or body")
	}
	return out.Subject, out.HTMLBody, nil
}
