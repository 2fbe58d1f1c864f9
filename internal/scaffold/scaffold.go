package scaffold

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/jorge-barreto/docgen/internal/config"
	"github.com/jorge-barreto/docgen/internal/ux"
)

const (
	Dir        = ".docgen"
	promptsDir = "prompts"
)

// Init creates a new .docgen/ directory with the default task chain, its
// prompt templates and a .gitignore for run artifacts.
func Init(targetDir string, w io.Writer) error {
	root := filepath.Join(targetDir, Dir)
	if _, err := os.Stat(root); err == nil {
		return fmt.Errorf("%s directory already exists in %s", Dir, targetDir)
	}

	written, err := writeDefaults(targetDir)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "\n%s%s✓ Initialized %s/ directory%s\n\n", ux.Bold, ux.Green, Dir, ux.Reset)
	fmt.Fprintf(w, "  Created:\n")
	for _, p := range written {
		fmt.Fprintf(w, "    %s%s%s\n", ux.Cyan, p, ux.Reset)
	}

	if cfg, err := config.Load(filepath.Join(root, "config.yaml"), targetDir); err == nil {
		fmt.Fprintf(w, "\n  Tasks: %s%s%s\n", ux.Bold, renderChain(cfg.Tasks), ux.Reset)
	}

	fmt.Fprintf(w, "\n  Next steps:\n")
	fmt.Fprintf(w, "    1. Edit %s.docgen/config.yaml%s to pick a backend and threshold\n", ux.Cyan, ux.Reset)
	fmt.Fprintf(w, "    2. Adjust prompt templates in %s.docgen/prompts/%s\n", ux.Cyan, ux.Reset)
	fmt.Fprintf(w, "    3. Run %sdocgen run <folder> --dry-run%s to preview\n\n", ux.Cyan, ux.Reset)
	return nil
}

func writeDefaults(targetDir string) ([]string, error) {
	files := map[string]string{
		filepath.Join(Dir, "config.yaml"): configTemplate,
		filepath.Join(Dir, ".gitignore"):  "artifacts/\n",
	}
	for name, content := range promptTemplates {
		files[filepath.Join(Dir, promptsDir, name)] = content
	}

	paths := make([]string, 0, len(files))
	for p := range files {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	for _, rel := range paths {
		full := filepath.Join(targetDir, rel)
		if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
			return nil, fmt.Errorf("creating directory for %s: %w", rel, err)
		}
		if err := os.WriteFile(full, []byte(files[rel]), 0644); err != nil {
			return nil, fmt.Errorf("writing %s: %w", rel, err)
		}
	}
	return paths, nil
}

// PromptNames returns the default prompt file names, sorted.
func PromptNames() []string {
	names := make([]string, 0, len(promptTemplates))
	for n := range promptTemplates {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func renderChain(tasks []config.Task) string {
	names := make([]string, len(tasks))
	for i, t := range tasks {
		names[i] = t.Name
	}
	return strings.Join(names, " → ")
}
