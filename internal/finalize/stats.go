package finalize

import (
	"path/filepath"
	"sort"
	"strings"

	"github.com/jorge-barreto/docgen/internal/index"
	"github.com/jorge-barreto/docgen/internal/sections"
	"github.com/jorge-barreto/docgen/internal/sharedstate"
)

var httpMethods = []string{"GET", "POST", "PUT", "DELETE", "PATCH", "HEAD", "OPTIONS"}

// Count is a named tally.
type Count struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
}

// Stats summarizes the indexed codebase and the generated documentation.
type Stats struct {
	TotalFiles     int     `json:"total_files"`
	TotalEndpoints int     `json:"total_endpoints"`
	Endpoints      []Count `json:"endpoints,omitempty"`
	Extensions     []Count `json:"extensions,omitempty"`
	Structure      []Count `json:"structure"`
	SectionSizes   []Count `json:"section_sizes,omitempty"`
}

// ComputeStats derives Stats from the sections and the indexer's entries in
// st. Missing or malformed entries count as empty.
func ComputeStats(secs sections.Sections, st sharedstate.Reader) Stats {
	var s Stats
	s.Endpoints = CountEndpoints(secs[sections.APIReference])
	for _, c := range s.Endpoints {
		s.TotalEndpoints += c.Value
	}

	var sources map[string]string
	var classes, functions, imports map[string][]string
	if st != nil {
		st.Decode(index.KeySourceFiles, &sources)
		st.Decode(index.KeyClasses, &classes)
		st.Decode(index.KeyFunctions, &functions)
		st.Decode(index.KeyImports, &imports)
	}
	s.TotalFiles = len(sources)
	s.Extensions = extensionCounts(sources)
	s.Structure = []Count{
		{"Classes", total(classes)},
		{"Functions", total(functions)},
		{"Imports", total(imports)},
	}

	for _, name := range secs.Names() {
		if sections.IsDiagram(name) {
			continue
		}
		s.SectionSizes = append(s.SectionSizes, Count{strings.TrimSuffix(name, ".md"), len(secs[name])})
	}
	return s
}

// CountEndpoints counts lines of an API reference that mention an HTTP
// method as **GET**, `GET or | GET. Each line counts once.
func CountEndpoints(apiRef string) []Count {
	counts := make(map[string]int)
	for _, line := range strings.Split(apiRef, "\n") {
		for _, m := range httpMethods {
			if strings.Contains(line, "**"+m+"**") || strings.Contains(line, "`"+m) || strings.Contains(line, "| "+m+" ") {
				counts[m]++
				break
			}
		}
	}
	var out []Count
	for _, m := range httpMethods {
		if counts[m] > 0 {
			out = append(out, Count{m, counts[m]})
		}
	}
	return out
}

func extensionCounts(files map[string]string) []Count {
	counts := make(map[string]int)
	for path := range files {
		ext := filepath.Ext(path)
		if ext == "" {
			ext = "no_extension"
		}
		counts[ext]++
	}
	out := make([]Count, 0, len(counts))
	for ext, n := range counts {
		out = append(out, Count{ext, n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Value != out[j].Value {
			return out[i].Value > out[j].Value
		}
		return out[i].Name < out[j].Name
	})
	return out
}

func total(m map[string][]string) int {
	n := 0
	for _, v := range m {
		n += len(v)
	}
	return n
}
