// Package fileblocks extracts whole files from model replies written as
// fenced code blocks annotated with file=.
package fileblocks

import (
	"path"
	"regexp"
	"strings"
)

// FileBlock is one extracted file.
type FileBlock struct {
	Path    string // slash-separated, relative to the project root
	Content string
}

var (
	fenceOpenRe   = regexp.MustCompile("^```\\w*\\s*file=(\\S+)")
	nestedFenceRe = regexp.MustCompile("^```\\S+")
)

// Parse extracts fenced blocks annotated with file= from text, in order of
// appearance. It recognizes opening fences like
//
//	```markdown file=.docgen/prompts/api_docs.md
//	```file=.docgen/prompts/review.md
//
// Fences with a language tag inside a block (```mermaid) nest, so a bare
// ``` closes them before it closes the file block. Unclosed blocks are
// dropped.
func Parse(text string) []FileBlock {
	var blocks []FileBlock
	var current *FileBlock
	var buf []string
	depth := 0

	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(strings.TrimRight(line, "\r"))
		if current == nil {
			if m := fenceOpenRe.FindStringSubmatch(trimmed); m != nil {
				current = &FileBlock{Path: m[1]}
				buf = buf[:0]
				depth = 0
			}
			continue
		}

		switch {
		case trimmed == "```" && depth == 0:
			current.Content = strings.Join(buf, "\n")
			blocks = append(blocks, *current)
			current = nil
			continue
		case trimmed == "```":
			depth--
		case nestedFenceRe.MatchString(trimmed):
			depth++
		}
		buf = append(buf, strings.TrimRight(line, "\r"))
	}
	return blocks
}

// Under returns the blocks whose cleaned path lies inside dir. Absolute
// paths and paths escaping dir are dropped; later blocks for the same path
// replace earlier ones.
func Under(blocks []FileBlock, dir string) []FileBlock {
	dir = path.Clean(dir)
	var out []FileBlock
	index := make(map[string]int)
	for _, b := range blocks {
		p := path.Clean(strings.ReplaceAll(b.Path, "\\", "/"))
		if path.IsAbs(p) || !strings.HasPrefix(p, dir+"/") {
			continue
		}
		b.Path = p
		if i, ok := index[p]; ok {
			out[i] = b
			continue
		}
		index[p] = len(out)
		out = append(out, b)
	}
	return out
}
