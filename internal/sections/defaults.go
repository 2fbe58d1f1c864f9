package sections

const (
	Readme       = "README.md"
	APIReference = "API_REFERENCE.md"
	Architecture = "ARCHITECTURE.md"
	Examples     = "EXAMPLES.md"
	Diagram      = "architecture.mermaid"
)

// Canonical lists the sections every finalized document set carries, in
// display order.
var Canonical = []string{Readme, APIReference, Architecture, Examples, Diagram}

const notGenerated = "Documentation was not generated for this section."

var defaults = map[string]string{
	Readme:       "# README\n\n" + notGenerated,
	APIReference: "# API Reference\n\n" + notGenerated,
	Architecture: "# Architecture\n\n" + notGenerated,
	Examples:     "# Examples\n\n" + notGenerated,
	Diagram:      "graph TD\n  A[No diagram generated]",
}

// IsCanonical reports whether name is one of the canonical sections.
func IsCanonical(name string) bool {
	_, ok := defaults[name]
	return ok
}

// Default returns the placeholder content for a canonical section.
func Default(name string) (string, bool) {
	d, ok := defaults[name]
	return d, ok
}

// IsPlaceholder reports whether content is the default placeholder for name.
func IsPlaceholder(name, content string) bool {
	d, ok := defaults[name]
	return ok && d == content
}

// WithDefaults returns a copy of s where every missing canonical section is
// filled with its placeholder.
func WithDefaults(s Sections) Sections {
	out := s.Clone()
	for _, name := range Canonical {
		if _, ok := out[name]; !ok {
			out[name] = defaults[name]
		}
	}
	return out
}
