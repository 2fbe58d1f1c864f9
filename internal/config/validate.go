package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jorge-barreto/docgen/internal/sections"
)

var validBackends = map[string]bool{
	BackendCommand: true,
	BackendGemini:  true,
}

var validScorers = map[string]bool{
	ScorerLLM:       true,
	ScorerHeuristic: true,
}

var defaultModels = map[string]string{
	BackendCommand: "sonnet",
	BackendGemini:  "gemini-2.5-flash",
}

// Validate checks the config for errors and sets defaults.
func Validate(cfg *Config, projectRoot string) error {
	if cfg.Name == "" {
		return fmt.Errorf("config: 'name' is required")
	}
	if len(cfg.Tasks) == 0 {
		return fmt.Errorf("config: at least one task is required")
	}

	if cfg.Threshold < 0 || cfg.Threshold > 10 {
		return fmt.Errorf("config: 'threshold' must be between 0 and 10, got %g", cfg.Threshold)
	}
	if cfg.MaxAttempts < 0 {
		return fmt.Errorf("config: 'max-attempts' must be >= 1")
	}
	if cfg.MaxAttempts == 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.OutputDir == "" {
		cfg.OutputDir = DefaultOutputDir
	}
	if cfg.CombinedFile == "" {
		cfg.CombinedFile = DefaultCombinedFile
	}
	if strings.ContainsRune(cfg.CombinedFile, '/') || strings.ContainsRune(cfg.CombinedFile, filepath.Separator) {
		return fmt.Errorf("config: 'combined-file' %q must not contain path separators", cfg.CombinedFile)
	}

	if err := validateBackend(&cfg.Backend); err != nil {
		return err
	}
	if err := validateScorer(&cfg.Scorer); err != nil {
		return err
	}
	if err := validateStorage(&cfg.Storage); err != nil {
		return err
	}

	seen := make(map[string]bool)
	generate := 0
	for i := range cfg.Tasks {
		t := &cfg.Tasks[i]

		if t.Name == "" {
			return fmt.Errorf("config: task %d: 'name' is required", i+1)
		}
		if seen[t.Name] {
			return fmt.Errorf("config: duplicate task name %q", t.Name)
		}
		if t.Type == "" {
			t.Type = TaskGenerate
		}

		switch t.Type {
		case TaskIndex:
			if i != 0 {
				return fmt.Errorf("config: index task %q must be the first task", t.Name)
			}
			if len(t.Context) > 0 {
				return fmt.Errorf("config: index task %q: 'context' is not supported on index tasks", t.Name)
			}
		case TaskGenerate:
			generate++
			if t.Prompt == "" {
				return fmt.Errorf("config: generate task %q: 'prompt' is required", t.Name)
			}
			promptPath := filepath.Join(projectRoot, t.Prompt)
			if _, err := os.Stat(promptPath); err != nil {
				return fmt.Errorf("config: generate task %q: prompt file %q not found", t.Name, promptPath)
			}
		default:
			return fmt.Errorf("config: task %q: unknown type %q (must be index or generate)", t.Name, t.Type)
		}

		ctxSeen := make(map[string]bool)
		for _, dep := range t.Context {
			if dep == t.Name {
				return fmt.Errorf("config: task %q: context must not reference itself", t.Name)
			}
			if !seen[dep] {
				return fmt.Errorf("config: task %q: context %q must reference an earlier task", t.Name, dep)
			}
			if ctxSeen[dep] {
				return fmt.Errorf("config: task %q: duplicate context entry %q", t.Name, dep)
			}
			ctxSeen[dep] = true
		}

		if t.Section != "" && !sections.IsCanonical(t.Section) {
			return fmt.Errorf("config: task %q: unknown section %q (must be one of %s)",
				t.Name, t.Section, strings.Join(sections.Canonical, ", "))
		}

		seen[t.Name] = true
	}

	if generate == 0 {
		return fmt.Errorf("config: at least one generate task is required")
	}
	return nil
}

func validateBackend(b *Backend) error {
	if b.Type == "" {
		b.Type = BackendCommand
	}
	if !validBackends[b.Type] {
		return fmt.Errorf("config: backend: unknown type %q (must be command or gemini)", b.Type)
	}
	if b.Type == BackendCommand && b.Command == "" {
		b.Command = "claude"
	}
	if b.Model == "" {
		b.Model = defaultModels[b.Type]
	}
	if b.Timeout < 0 {
		return fmt.Errorf("config: backend: timeout must be >= 0")
	}
	if b.Timeout == 0 {
		b.Timeout = 30
	}
	if b.RPS < 0 {
		return fmt.Errorf("config: backend: rps must be >= 0")
	}
	return nil
}

func validateScorer(s *Scorer) error {
	if s.Type == "" {
		s.Type = ScorerHeuristic
	}
	if !validScorers[s.Type] {
		return fmt.Errorf("config: scorer: unknown type %q (must be llm or heuristic)", s.Type)
	}
	seen := make(map[string]bool)
	for _, c := range s.Criteria {
		if strings.TrimSpace(c) == "" {
			return fmt.Errorf("config: scorer: 'criteria' entries must be non-empty")
		}
		if seen[c] {
			return fmt.Errorf("config: scorer: duplicate criterion %q", c)
		}
		seen[c] = true
	}
	if s.Concurrency < 0 {
		return fmt.Errorf("config: scorer: concurrency must be >= 1")
	}
	if s.Concurrency == 0 {
		s.Concurrency = 3
	}
	if s.CacheSize < 0 {
		return fmt.Errorf("config: scorer: cache-size must be >= 0")
	}
	if s.CacheSize == 0 {
		s.CacheSize = 256
	}
	return nil
}

func validateStorage(s *Storage) error {
	if s.S3 == nil {
		return nil
	}
	if s.S3.Endpoint == "" {
		return fmt.Errorf("config: storage.s3: 'endpoint' is required")
	}
	if s.S3.Bucket == "" {
		return fmt.Errorf("config: storage.s3: 'bucket' is required")
	}
	if s.S3.Region == "" {
		s.S3.Region = "us-east-1"
	}
	return nil
}
