package sections

import (
	"regexp"
	"strings"
)

// Source is one task output offered to Fallback.
type Source struct {
	Name        string
	Description string
	Section     string // explicit canonical section, optional
	Text        string
}

var keywords = []struct {
	match   func(tokens []string) bool
	section string
}{
	{hasPhrase("getting", "started"), Readme},
	{hasToken("readme"), Readme},
	{hasToken("api"), APIReference},
	{hasToken("architecture"), Architecture},
	{hasPrefix("example"), Examples},
}

var tokenSplitRe = regexp.MustCompile(`[^a-z0-9]+`)

func tokenize(s string) []string {
	var out []string
	for _, t := range tokenSplitRe.Split(strings.ToLower(s), -1) {
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}

func hasToken(word string) func([]string) bool {
	return func(tokens []string) bool {
		for _, t := range tokens {
			if t == word {
				return true
			}
		}
		return false
	}
}

func hasPrefix(prefix string) func([]string) bool {
	return func(tokens []string) bool {
		for _, t := range tokens {
			if strings.HasPrefix(t, prefix) {
				return true
			}
		}
		return false
	}
}

func hasPhrase(first, second string) func([]string) bool {
	return func(tokens []string) bool {
		for i := 0; i+1 < len(tokens); i++ {
			if tokens[i] == first && tokens[i+1] == second {
				return true
			}
		}
		return false
	}
}

// SectionFor returns the canonical section a source feeds, or "" if none.
// An explicit Section wins; otherwise the task name is matched against
// keywords, then the description.
func SectionFor(src Source) string {
	if src.Section != "" {
		return src.Section
	}
	for _, text := range []string{src.Name, src.Description} {
		tokens := tokenize(text)
		for _, k := range keywords {
			if k.match(tokens) {
				return k.section
			}
		}
	}
	return ""
}

// Fallback assembles sections from individual task outputs when the final
// output carried no markers. Later sources feeding the same section replace
// earlier ones. The first ```mermaid block found in any output becomes the
// diagram section unless a source was mapped to it explicitly.
func Fallback(sources []Source) Sections {
	out := make(Sections)
	for _, src := range sources {
		text := strings.TrimSpace(src.Text)
		if text == "" {
			continue
		}
		if name := SectionFor(src); name != "" {
			out[name] = text
		}
	}
	if _, ok := out[Diagram]; !ok {
		for _, src := range sources {
			if d := ExtractMermaid(src.Text); d != "" {
				out[Diagram] = d
				break
			}
		}
	}
	return out
}

// ExtractMermaid returns the body of the first ```mermaid fenced block in
// text, trimmed, or "" if there is none.
func ExtractMermaid(text string) string {
	lines := strings.Split(text, "\n")
	var buf strings.Builder
	inside := false
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if inside {
			if trimmed == "```" {
				return strings.TrimSpace(buf.String())
			}
			buf.WriteString(line)
			buf.WriteByte('\n')
			continue
		}
		if trimmed == "```mermaid" {
			inside = true
		}
	}
	return ""
}
