package state

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// EnsureDir creates the artifacts directory structure.
func EnsureDir(artifactsDir string) error {
	for _, d := range []string{
		artifactsDir,
		filepath.Join(artifactsDir, "prompts"),
		filepath.Join(artifactsDir, "logs"),
		filepath.Join(artifactsDir, "feedback"),
	} {
		if err := os.MkdirAll(d, 0755); err != nil {
			return fmt.Errorf("creating artifacts dir %s: %w", d, err)
		}
	}
	return nil
}

// Reset removes the per-run files of a previous run, keeping the layout.
func Reset(artifactsDir string) error {
	for _, sub := range []string{"prompts", "logs", "feedback"} {
		if err := os.RemoveAll(filepath.Join(artifactsDir, sub)); err != nil {
			return err
		}
	}
	for _, f := range []string{"run.json", "timing.json", "shared-state.json"} {
		if err := os.Remove(filepath.Join(artifactsDir, f)); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	return EnsureDir(artifactsDir)
}

// PassLabel names a generation pass in artifact file names.
func PassLabel(pass string, attempt int) string {
	if pass == "edit" {
		return "edit"
	}
	return fmt.Sprintf("attempt-%d", attempt)
}

// PromptPath returns the path for the rendered prompt of a task in a pass.
func PromptPath(artifactsDir, pass, task string) string {
	return filepath.Join(artifactsDir, "prompts", pass+"-"+task+".md")
}

// LogPath returns the path for the backend log of a task in a pass.
func LogPath(artifactsDir, pass, task string) string {
	return filepath.Join(artifactsDir, "logs", pass+"-"+task+".log")
}

// WriteFeedback stores feedback text under feedback/<name>.md.
func WriteFeedback(artifactsDir, name, content string) error {
	path := filepath.Join(artifactsDir, "feedback", name+".md")
	return WriteFileAtomic(path, []byte(content), 0644)
}

// ReadFeedback returns every feedback file keyed by name.
func ReadFeedback(artifactsDir string) (map[string]string, error) {
	matches, err := filepath.Glob(filepath.Join(artifactsDir, "feedback", "*.md"))
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(matches))
	for _, m := range matches {
		data, err := os.ReadFile(m)
		if err != nil {
			return nil, err
		}
		out[strings.TrimSuffix(filepath.Base(m), ".md")] = string(data)
	}
	return out, nil
}

// SaveSharedState writes a shared-state snapshot.
func SaveSharedState(artifactsDir string, snapshot []byte) error {
	return WriteFileAtomic(filepath.Join(artifactsDir, "shared-state.json"), snapshot, 0644)
}

// LoadSharedState reads the shared-state snapshot, if any.
func LoadSharedState(artifactsDir string) ([]byte, error) {
	return os.ReadFile(filepath.Join(artifactsDir, "shared-state.json"))
}

// Logs lists log file paths sorted by name.
func Logs(artifactsDir string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(artifactsDir, "logs", "*.log"))
	if err != nil {
		return nil, err
	}
	sort.Strings(matches)
	return matches, nil
}
