package index

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"
)

const (
	maxStoredSize = 64 * 1024   // per file, in source_files
	maxReadSize   = 1024 * 1024 // larger files are listed but not read
)

// skipDirs are never descended into.
var skipDirs = map[string]bool{
	".git":          true,
	".docgen":       true,
	"__pycache__":   true,
	"node_modules":  true,
	"vendor":        true,
	".venv":         true,
	"venv":          true,
	"env":           true,
	"dist":          true,
	"build":         true,
	".pytest_cache": true,
	".mypy_cache":   true,
	".idea":         true,
	".vscode":       true,
	"target":        true,
	"bin":           true,
	"obj":           true,
	".gradle":       true,
	".mvn":          true,
	".next":         true,
	".nuxt":         true,
	"coverage":      true,
}

var langExtensions = map[string][]string{
	"java":       {".java"},
	"python":     {".py", ".pyw"},
	"javascript": {".js", ".jsx", ".mjs"},
	"typescript": {".ts", ".tsx"},
	"go":         {".go"},
	"rust":       {".rs"},
	"ruby":       {".rb"},
	"php":        {".php"},
	"csharp":     {".cs"},
	"cpp":        {".cpp", ".cc", ".cxx", ".h", ".hpp"},
	"kotlin":     {".kt", ".kts"},
	"swift":      {".swift"},
}

var extLanguage = func() map[string]string {
	m := make(map[string]string)
	for lang, exts := range langExtensions {
		for _, ext := range exts {
			m[ext] = lang
		}
	}
	return m
}()

var configFilenames = map[string]bool{
	"pom.xml":                true,
	"build.gradle":           true,
	"build.gradle.kts":       true,
	"pyproject.toml":         true,
	"package.json":           true,
	"Cargo.toml":             true,
	"go.mod":                 true,
	"requirements.txt":       true,
	"setup.py":               true,
	"setup.cfg":              true,
	"application.properties": true,
	"application.yml":        true,
	"application.yaml":       true,
	"Dockerfile":             true,
	"docker-compose.yml":     true,
	"docker-compose.yaml":    true,
	".env.example":           true,
	"Makefile":               true,
	"Gemfile":                true,
	"composer.json":          true,
}

// walkResult is the raw file inventory of a folder.
type walkResult struct {
	tree      []string          // every file, relative, slash-separated
	sources   map[string]string // rel -> full content
	configs   map[string]string
	langStats map[string]int
}

func walk(ctx context.Context, root string) (*walkResult, error) {
	wr := &walkResult{
		sources:   make(map[string]string),
		configs:   make(map[string]string),
		langStats: make(map[string]int),
	}
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && skipDirs[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)
		wr.tree = append(wr.tree, rel)

		lang, isSource := extLanguage[strings.ToLower(filepath.Ext(path))]
		if isSource {
			wr.langStats[lang]++
		}
		isConfig := configFilenames[d.Name()]
		if !isSource && !isConfig {
			return nil
		}
		content, ok := readSmall(path, d)
		if !ok {
			return nil
		}
		if isSource {
			wr.sources[rel] = content
		}
		if isConfig {
			wr.configs[rel] = content
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(wr.tree)
	return wr, nil
}

func readSmall(path string, d fs.DirEntry) (string, bool) {
	info, err := d.Info()
	if err != nil || info.Size() > maxReadSize {
		return "", false
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", false
	}
	return strings.ToValidUTF8(string(data), ""), true
}

// truncate cuts content to maxStoredSize bytes on a rune boundary.
func truncate(content string) string {
	if len(content) <= maxStoredSize {
		return content
	}
	n := maxStoredSize
	for n > 0 && !utf8.RuneStart(content[n]) {
		n--
	}
	return content[:n] + "\n... (truncated)"
}

// primaryLanguage picks the language with the most files. Ties go to the
// alphabetically first name.
func primaryLanguage(stats map[string]int) string {
	best, bestN := "unknown", 0
	for lang, n := range stats {
		if n > bestN || (n == bestN && lang < best) {
			best, bestN = lang, n
		}
	}
	return best
}

// buildTree renders the top level of root plus one level deeper.
func buildTree(root string) string {
	entries, err := os.ReadDir(root)
	if err != nil {
		return "(unable to read directory)\n"
	}

	var buf strings.Builder
	for _, e := range entries {
		if skipDirs[e.Name()] {
			continue
		}
		if !e.IsDir() {
			buf.WriteString(e.Name() + "\n")
			continue
		}
		buf.WriteString(e.Name() + "/\n")
		subEntries, err := os.ReadDir(filepath.Join(root, e.Name()))
		if err != nil {
			continue
		}
		for _, se := range subEntries {
			if se.IsDir() {
				if skipDirs[se.Name()] {
					continue
				}
				buf.WriteString("  " + se.Name() + "/\n")
			} else {
				buf.WriteString("  " + se.Name() + "\n")
			}
		}
	}
	return buf.String()
}
