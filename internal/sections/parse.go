// Package sections splits generated documentation into named sections and
// renders them back.
package sections

import (
	"regexp"
	"sort"
	"strings"
)

// Sections maps a section name (e.g. "README.md") to its content.
type Sections map[string]string

var markerRe = regexp.MustCompile(`^===SECTION:\s*(.+?)\s*===$`)

// Parse extracts sections delimited by marker lines of the form
//
//	===SECTION: README.md===
//
// Content runs from a marker to the next marker or end of text and is
// trimmed. Sections with an empty name or empty content are dropped; a later
// non-empty section with the same name replaces an earlier one. Text before
// the first marker is ignored. Text without markers yields an empty map.
func Parse(text string) Sections {
	out := make(Sections)
	lines := strings.Split(text, "\n")

	var name string
	var inSection bool
	var buf strings.Builder

	flush := func() {
		if !inSection {
			return
		}
		content := strings.TrimSpace(buf.String())
		if name != "" && content != "" {
			out[name] = content
		}
		buf.Reset()
	}

	for _, line := range lines {
		m := markerRe.FindStringSubmatch(strings.TrimRight(line, "\r"))
		if m != nil {
			flush()
			name = strings.TrimSpace(m[1])
			inSection = true
			continue
		}
		if !inSection {
			continue
		}
		buf.WriteString(line)
		buf.WriteByte('\n')
	}
	flush()

	return out
}

// Names returns the section names in canonical order: canonical sections
// first, then any others sorted by name.
func (s Sections) Names() []string {
	names := make([]string, 0, len(s))
	for _, c := range Canonical {
		if _, ok := s[c]; ok {
			names = append(names, c)
		}
	}
	var rest []string
	for n := range s {
		if !IsCanonical(n) {
			rest = append(rest, n)
		}
	}
	sort.Strings(rest)
	return append(names, rest...)
}

// Clone returns a copy of s.
func (s Sections) Clone() Sections {
	out := make(Sections, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// Render writes s in marker form. Parse(Render(s)) equals s for any s whose
// names and contents are trimmed, non-empty and free of marker lines.
func Render(s Sections) string {
	var buf strings.Builder
	for i, name := range s.Names() {
		if i > 0 {
			buf.WriteString("\n\n")
		}
		buf.WriteString("===SECTION: ")
		buf.WriteString(name)
		buf.WriteString("===\n")
		buf.WriteString(s[name])
	}
	return buf.String()
}

// IsDiagram reports whether the section holds diagram source rather than
// markdown.
func IsDiagram(name string) bool {
	return strings.HasSuffix(name, ".mermaid")
}
