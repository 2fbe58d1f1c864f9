package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, root, body string) string {
	t.Helper()
	path := filepath.Join(root, ".docgen", "config.yaml")
	os.MkdirAll(filepath.Dir(path), 0755)
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

const sampleConfig = `name: sample
threshold: 7.5
max-attempts: 3
tasks:
  - name: index
    type: index
  - name: api
    prompt: p.md
    context: [index]
    section: API_REFERENCE.md
  - name: final
    prompt: p.md
    context: [index, api]
`

func TestLoad(t *testing.T) {
	root := projectWithPrompts(t, "p.md")
	path := writeConfig(t, root, sampleConfig)

	cfg, err := Load(path, root)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Name != "sample" || cfg.Threshold != 7.5 || cfg.MaxAttempts != 3 {
		t.Fatalf("got %+v", cfg)
	}
	if len(cfg.Tasks) != 3 || cfg.Tasks[1].Section != "API_REFERENCE.md" {
		t.Fatalf("tasks = %+v", cfg.Tasks)
	}
	if cfg.Tasks[1].Type != TaskGenerate {
		t.Fatalf("default task type = %q", cfg.Tasks[1].Type)
	}
}

func TestLoad_DefaultThreshold(t *testing.T) {
	root := projectWithPrompts(t, "p.md")
	path := writeConfig(t, root, "name: x\ntasks:\n  - name: a\n    prompt: p.md\n")
	cfg, err := Load(path, root)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Threshold != DefaultThreshold {
		t.Fatalf("Threshold = %g", cfg.Threshold)
	}
}

func TestLoad_ExplicitZeroThreshold(t *testing.T) {
	root := projectWithPrompts(t, "p.md")
	path := writeConfig(t, root, "name: x\nthreshold: 0\ntasks:\n  - name: a\n    prompt: p.md\n")
	cfg, err := Load(path, root)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Threshold != 0 {
		t.Fatalf("Threshold = %g, want 0", cfg.Threshold)
	}
}

func TestLoad_SchemaRejectsUnknownField(t *testing.T) {
	root := projectWithPrompts(t, "p.md")
	path := writeConfig(t, root, "name: x\nphases: []\ntasks:\n  - name: a\n    prompt: p.md\n")
	if _, err := Load(path, root); err == nil || !strings.Contains(err.Error(), "schema validation failed") {
		t.Fatalf("got %v", err)
	}
}

func TestLoad_SchemaRejectsBadThreshold(t *testing.T) {
	root := projectWithPrompts(t, "p.md")
	path := writeConfig(t, root, "name: x\nthreshold: high\ntasks:\n  - name: a\n    prompt: p.md\n")
	if _, err := Load(path, root); err == nil {
		t.Fatal("expected error for non-numeric threshold")
	}
}

func TestLoad_ExpandsBracedEnv(t *testing.T) {
	t.Setenv("DOCGEN_TEST_DSN", "postgres://u:p@localhost/db")
	root := projectWithPrompts(t, "p.md")
	path := writeConfig(t, root, "name: x\nstorage:\n  postgres-dsn: ${DOCGEN_TEST_DSN}\ntasks:\n  - name: a\n    prompt: p.md\n")
	cfg, err := Load(path, root)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Storage.PostgresDSN != "postgres://u:p@localhost/db" {
		t.Fatalf("PostgresDSN = %q", cfg.Storage.PostgresDSN)
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("DOCGEN_THRESHOLD", "8")
	t.Setenv("DOCGEN_MAX_ATTEMPTS", "4")
	t.Setenv("DOCGEN_AUTO_APPROVE", "true")
	t.Setenv("DATABASE_URL", "postgres://db")
	t.Setenv("ARTIFACT_S3_ENDPOINT", "localhost:9000")
	t.Setenv("ARTIFACT_S3_BUCKET", "docs")

	cfg := New()
	if err := ApplyEnv(cfg); err != nil {
		t.Fatal(err)
	}
	if cfg.Threshold != 8 || cfg.MaxAttempts != 4 || !cfg.AutoApprove {
		t.Fatalf("got %+v", cfg)
	}
	if cfg.Storage.PostgresDSN != "postgres://db" {
		t.Fatalf("PostgresDSN = %q", cfg.Storage.PostgresDSN)
	}
	if cfg.Storage.S3 == nil || cfg.Storage.S3.Endpoint != "localhost:9000" || cfg.Storage.S3.Bucket != "docs" {
		t.Fatalf("S3 = %+v", cfg.Storage.S3)
	}
}

func TestApplyEnv_BadValue(t *testing.T) {
	t.Setenv("DOCGEN_MAX_ATTEMPTS", "many")
	if err := ApplyEnv(New()); err == nil || !strings.Contains(err.Error(), "DOCGEN_MAX_ATTEMPTS") {
		t.Fatalf("got %v", err)
	}
}

func TestApplyEnv_NoS3(t *testing.T) {
	cfg := New()
	if err := ApplyEnv(cfg); err != nil {
		t.Fatal(err)
	}
	if cfg.Storage.S3 != nil {
		t.Fatalf("S3 should stay nil, got %+v", cfg.Storage.S3)
	}
}
