// Package index walks a codebase once and publishes its structure into the
// run's shared state so downstream tasks never re-read the tree.
package index

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path"
	"path/filepath"
	"sort"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/jorge-barreto/docgen/internal/sharedstate"
)

// Shared-state keys written by Index.
const (
	KeyProjectRoot   = "project_root"
	KeyLanguage      = "language"
	KeyLanguageStats = "language_stats"
	KeyFileTree      = "file_tree"
	KeySourceFiles   = "source_files"
	KeyConfigFiles   = "config_files"
	KeyImports       = "imports"
	KeyClasses       = "classes"
	KeyFunctions     = "functions"
	KeyAnnotations   = "annotations"
	KeyEntryPoints   = "entry_points"
	KeyPackages      = "packages"
	KeyRecentCommits = "recent_commits"
)

const DefaultCacheSize = 4096

// Summary describes what Index stored.
type Summary struct {
	Root          string
	Language      string
	LanguageStats map[string]int
	Files         int
	SourceFiles   int
	ConfigFiles   int
	Classes       int
	Functions     int
	Imports       int
	EntryPoints   []string
	BuildTool     string
	Tree          string
	Keys          []string
}

// Indexer parses codebases. Parsed file facts are cached by content hash
// and shared across runs; an Indexer is safe for concurrent use.
type Indexer struct {
	facts *lru.Cache[string, FileFacts]
}

func New(cacheSize int) (*Indexer, error) {
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}
	c, err := lru.New[string, FileFacts](cacheSize)
	if err != nil {
		return nil, err
	}
	return &Indexer{facts: c}, nil
}

// Index walks folder and replaces every index key in store.
func (ix *Indexer) Index(ctx context.Context, folder string, store *sharedstate.Store) (*Summary, error) {
	root, err := filepath.Abs(folder)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", folder, err)
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", folder, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", folder)
	}

	wr, err := walk(ctx, root)
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", folder, err)
	}

	sum := &Summary{
		Root:          root,
		Language:      primaryLanguage(wr.langStats),
		LanguageStats: wr.langStats,
		Files:         len(wr.tree),
		SourceFiles:   len(wr.sources),
		ConfigFiles:   len(wr.configs),
		Tree:          buildTree(root),
	}

	imports := make(map[string][]string, len(wr.sources))
	classes := make(map[string][]string, len(wr.sources))
	functions := make(map[string][]string, len(wr.sources))
	annotations := make(map[string][]string)
	stored := make(map[string]string, len(wr.sources))
	var entry []string

	for _, rel := range sortedKeys(wr.sources) {
		content := wr.sources[rel]
		f := ix.parse(rel, content)
		imports[rel] = f.Imports
		classes[rel] = f.Classes
		functions[rel] = f.Functions
		if len(f.Annotations) > 0 {
			annotations[rel] = f.Annotations
		}
		if isEntryPoint(rel, f) {
			entry = append(entry, rel)
		}
		stored[rel] = truncate(content)
		sum.Imports += len(f.Imports)
		sum.Classes += len(f.Classes)
		sum.Functions += len(f.Functions)
	}
	if entry == nil {
		entry = []string{}
	}
	sum.EntryPoints = entry

	packages := buildPackages(wr.configs)
	if bt, ok := packages["build_tool"].(string); ok {
		sum.BuildTool = bt
	}

	values := []struct {
		key   string
		value any
	}{
		{KeyProjectRoot, root},
		{KeyLanguage, sum.Language},
		{KeyLanguageStats, wr.langStats},
		{KeyFileTree, wr.tree},
		{KeySourceFiles, stored},
		{KeyConfigFiles, wr.configs},
		{KeyImports, imports},
		{KeyClasses, classes},
		{KeyFunctions, functions},
		{KeyAnnotations, annotations},
		{KeyEntryPoints, entry},
		{KeyPackages, packages},
		{KeyRecentCommits, recentCommits(ctx, root)},
	}
	for _, kv := range values {
		if err := store.Set(kv.key, kv.value); err != nil {
			return nil, fmt.Errorf("storing %s: %w", kv.key, err)
		}
		sum.Keys = append(sum.Keys, kv.key)
	}
	return sum, nil
}

func (ix *Indexer) parse(rel, content string) FileFacts {
	h := sha256.Sum256([]byte(path.Ext(rel) + "\x00" + content))
	key := hex.EncodeToString(h[:])
	if f, ok := ix.facts.Get(key); ok {
		return f
	}
	f := extract(rel, content)
	ix.facts.Add(key, f)
	return f
}

func buildPackages(configs map[string]string) map[string]any {
	packages := make(map[string]any)
	for _, rel := range sortedKeys(configs) {
		content := configs[rel]
		name := path.Base(rel)
		switch {
		case name == "go.mod":
			packages["build_tool"] = "go"
			packages["go_mod"] = content
		case name == "pom.xml":
			packages["build_tool"] = "maven"
			packages["pom_xml"] = content
		case strings.HasPrefix(name, "build.gradle"):
			packages["build_tool"] = "gradle"
			packages["build_gradle"] = content
		case name == "package.json":
			packages["build_tool"] = "npm"
			var parsed any
			if err := json.Unmarshal([]byte(content), &parsed); err == nil {
				packages["package_json"] = parsed
			} else {
				packages["package_json_raw"] = content
			}
		case name == "Cargo.toml":
			packages["build_tool"] = "cargo"
			packages["cargo_toml"] = content
		case name == "pyproject.toml":
			packages["build_tool"] = "python"
			packages["pyproject_toml"] = content
		case name == "requirements.txt":
			packages["requirements_txt"] = content
		case name == "application.properties", name == "application.yml", name == "application.yaml":
			nested(packages, "app_config")[name] = content
		case name == "Dockerfile", name == "docker-compose.yml", name == "docker-compose.yaml":
			nested(packages, "docker")[name] = content
		}
	}
	return packages
}

func nested(m map[string]any, key string) map[string]any {
	if sub, ok := m[key].(map[string]any); ok {
		return sub
	}
	sub := make(map[string]any)
	m[key] = sub
	return sub
}

func recentCommits(ctx context.Context, root string) string {
	cmd := exec.CommandContext(ctx, "git", "log", "--oneline", "-10")
	cmd.Dir = root
	out, err := cmd.Output()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(out))
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

var languageNames = map[string]string{
	"javascript": "JavaScript",
	"typescript": "TypeScript",
	"csharp":     "C#",
	"cpp":        "C++",
	"php":        "PHP",
}

// DisplayLanguage returns the human-readable name of a language id.
func DisplayLanguage(lang string) string {
	if name, ok := languageNames[lang]; ok {
		return name
	}
	return cases.Title(language.English).String(lang)
}

// Render formats the summary as the index task's output text.
func (s *Summary) Render() string {
	var buf strings.Builder
	bar := strings.Repeat("=", 60)
	buf.WriteString("Code Analysis Complete\n" + bar + "\n")
	fmt.Fprintf(&buf, "Project root  : %s\n", s.Root)
	fmt.Fprintf(&buf, "Primary lang  : %s\n", DisplayLanguage(s.Language))
	if len(s.LanguageStats) > 0 {
		var parts []string
		for _, lang := range sortedKeys(s.LanguageStats) {
			parts = append(parts, fmt.Sprintf("%s=%d", lang, s.LanguageStats[lang]))
		}
		fmt.Fprintf(&buf, "Language stats: %s\n", strings.Join(parts, ", "))
	}
	if s.BuildTool != "" {
		fmt.Fprintf(&buf, "Build tool    : %s\n", s.BuildTool)
	}
	fmt.Fprintf(&buf, "Files         : %d\n", s.Files)
	fmt.Fprintf(&buf, "Source files  : %d\n", s.SourceFiles)
	fmt.Fprintf(&buf, "Config files  : %d\n", s.ConfigFiles)
	fmt.Fprintf(&buf, "Total classes : %d\n", s.Classes)
	fmt.Fprintf(&buf, "Total funcs   : %d\n", s.Functions)
	fmt.Fprintf(&buf, "Total imports : %d\n", s.Imports)
	fmt.Fprintf(&buf, "Entry points  : %s\n", strings.Join(s.EntryPoints, ", "))
	buf.WriteString(bar + "\n")
	buf.WriteString("\n## Project Directory Structure\n\n```\n")
	buf.WriteString(s.Tree)
	buf.WriteString("```\n")
	fmt.Fprintf(&buf, "\nShared state keys: %s\n", strings.Join(s.Keys, ", "))
	return buf.String()
}
