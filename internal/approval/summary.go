package approval

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jorge-barreto/docgen/internal/sections"
)

const previewWidth = 80

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#5B8DEF"))
	nameStyle = lipgloss.NewStyle().Bold(true)
	dimStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
	boxStyle  = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#444444")).
			Padding(0, 1)
)

// SectionSummary describes one section for review.
type SectionSummary struct {
	Name    string
	Lines   int
	Words   int
	Preview string
}

// Summarize returns per-section summaries in canonical order.
func Summarize(secs sections.Sections) []SectionSummary {
	out := make([]SectionSummary, 0, len(secs))
	for _, name := range secs.Names() {
		content := secs[name]
		out = append(out, SectionSummary{
			Name:    name,
			Lines:   len(strings.Split(content, "\n")),
			Words:   len(strings.Fields(content)),
			Preview: preview(content),
		})
	}
	return out
}

// preview is the first non-heading line among the first five.
func preview(content string) string {
	lines := strings.Split(content, "\n")
	if len(lines) > 5 {
		lines = lines[:5]
	}
	for _, line := range lines {
		s := strings.TrimSpace(line)
		if s == "" || strings.HasPrefix(s, "#") || strings.HasPrefix(s, "---") {
			continue
		}
		if r := []rune(s); len(r) > previewWidth {
			return string(r[:previewWidth]) + "..."
		}
		return s
	}
	return ""
}

// RenderSummary renders the review box shown before the decision prompt.
func RenderSummary(secs sections.Sections) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("DOCUMENT REVIEW"))
	b.WriteString("\n")
	b.WriteString(dimStyle.Render("Generation is complete. Review the summary before saving."))
	summaries := Summarize(secs)
	if len(summaries) == 0 {
		b.WriteString("\n\n(no sections)")
	}
	for _, s := range summaries {
		fmt.Fprintf(&b, "\n\n%s\n  Lines: %d | Words: %d", nameStyle.Render(s.Name), s.Lines, s.Words)
		if s.Preview != "" {
			fmt.Fprintf(&b, "\n  Preview: %s", dimStyle.Render(s.Preview))
		}
	}
	return boxStyle.Render(b.String())
}
