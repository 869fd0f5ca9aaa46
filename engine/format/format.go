// Package format renders search records as an indented JSON document or as
// Markdown text.
package format

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/WessleyAI/overflow-mcp/engine/domain"
)

// Render renders records in the requested format. An empty format selects
// JSON.
func Render(records []domain.Record, f domain.Format) (string, error) {
	switch f {
	case "", domain.FormatJSON:
		return JSON(records)
	case domain.FormatMarkdown:
		return Markdown(records), nil
	default:
		return "", domain.NewValidationError("responseFormat", fmt.Sprintf("unsupported format %q", f))
	}
}

// JSON encodes records as a two-space indented array. No records encode as
// [].
func JSON(records []domain.Record) (string, error) {
	if records == nil {
		records = []domain.Record{}
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return "", fmt.Errorf("format: json: %w", err)
	}
	return string(data), nil
}

// Markdown renders each record as a section and joins them with a blank line.
// Comment headings appear whenever comments were fetched, even if none exist.
func Markdown(records []domain.Record) string {
	parts := make([]string, len(records))
	for i, r := range records {
		parts[i] = markdownRecord(r)
	}
	return strings.Join(parts, "\n\n")
}

func markdownRecord(r domain.Record) string {
	var b strings.Builder
	q := r.Question
	fmt.Fprintf(&b, "# %s\n\n", q.Title)
	fmt.Fprintf(&b, "**Score:** %d | **Answers:** %d\n\n", q.Score, q.AnswerCount)
	fmt.Fprintf(&b, "## Question\n\n%s\n\n", q.Body)

	if r.Comments != nil {
		b.WriteString("### Question Comments\n\n")
		writeComments(&b, r.Comments.Question)
	}

	b.WriteString("## Answers\n\n")
	for _, a := range r.Answers {
		check := ""
		if a.IsAccepted {
			check = "✓ "
		}
		fmt.Fprintf(&b, "### %sAnswer (Score: %d)\n\n%s\n\n", check, a.Score, a.Body)

		if r.Comments == nil {
			continue
		}
		if cs, ok := r.Comments.Answers.Get(a.AnswerID); ok {
			b.WriteString("#### Answer Comments\n\n")
			writeComments(&b, cs)
		}
	}

	b.WriteString("---\n\n")
	fmt.Fprintf(&b, "[View on Stack Overflow](%s)\n\n", q.Link)
	return b.String()
}

func writeComments(b *strings.Builder, cs []domain.Comment) {
	for _, c := range cs {
		fmt.Fprintf(b, "- %s *(Score: %d)*\n", c.Body, c.Score)
	}
	b.WriteByte('\n')
}
