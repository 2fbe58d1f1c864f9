package config

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	TaskIndex    = "index"
	TaskGenerate = "generate"

	BackendCommand = "command"
	BackendGemini  = "gemini"

	ScorerLLM       = "llm"
	ScorerHeuristic = "heuristic"

	DefaultThreshold    = 6.0
	DefaultMaxAttempts  = 2
	DefaultOutputDir    = "docs"
	DefaultCombinedFile = "technical_documentation.md"
)

type Task struct {
	Name        string   `yaml:"name"`
	Type        string   `yaml:"type"`
	Description string   `yaml:"description"`
	Prompt      string   `yaml:"prompt"`
	Context     []string `yaml:"context"`
	Section     string   `yaml:"section"`
}

type Backend struct {
	Type    string  `yaml:"type"`
	Command string  `yaml:"command"`
	Model   string  `yaml:"model"`
	Timeout int     `yaml:"timeout"`
	RPS     float64 `yaml:"rps"`
}

type Scorer struct {
	Type        string   `yaml:"type"`
	Criteria    []string `yaml:"criteria"`
	Concurrency int      `yaml:"concurrency"`
	CacheSize   int      `yaml:"cache-size"`
}

type S3 struct {
	Endpoint  string `yaml:"endpoint"`
	Region    string `yaml:"region"`
	Bucket    string `yaml:"bucket"`
	AccessKey string `yaml:"access-key"`
	SecretKey string `yaml:"secret-key"`
	UseSSL    bool   `yaml:"use-ssl"`
}

type Storage struct {
	PostgresDSN string `yaml:"postgres-dsn"`
	S3          *S3    `yaml:"s3"`
}

type Config struct {
	Name         string  `yaml:"name"`
	Threshold    float64 `yaml:"threshold"`
	MaxAttempts  int     `yaml:"max-attempts"`
	AutoApprove  bool    `yaml:"auto-approve"`
	OutputDir    string  `yaml:"output-dir"`
	CombinedFile string  `yaml:"combined-file"`
	Backend      Backend `yaml:"backend"`
	Scorer       Scorer  `yaml:"scorer"`
	Tasks        []Task  `yaml:"tasks"`
	Storage      Storage `yaml:"storage"`
}

// New returns a Config carrying the numeric defaults that cannot be told
// apart from an explicit zero once decoded.
func New() *Config {
	return &Config{Threshold: DefaultThreshold}
}

// Load reads a YAML config file and returns a validated Config.
// ${VAR} references are expanded from the environment before parsing, and
// DOCGEN_* / storage environment overrides are applied before validation.
func Load(path, projectRoot string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	data = expandEnv(data)

	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	if err := validateSchema(doc); err != nil {
		return nil, err
	}

	cfg := New()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	if err := ApplyEnv(cfg); err != nil {
		return nil, err
	}
	if err := Validate(cfg, projectRoot); err != nil {
		return nil, err
	}
	return cfg, nil
}

var braceVarRe = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

func expandEnv(data []byte) []byte {
	return braceVarRe.ReplaceAllFunc(data, func(m []byte) []byte {
		name := braceVarRe.FindSubmatch(m)[1]
		return []byte(os.Getenv(string(name)))
	})
}

// ApplyEnv overlays environment overrides onto cfg.
func ApplyEnv(cfg *Config) error {
	if v := strings.TrimSpace(os.Getenv("DOCGEN_THRESHOLD")); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("config: DOCGEN_THRESHOLD: %w", err)
		}
		cfg.Threshold = f
	}
	if v := strings.TrimSpace(os.Getenv("DOCGEN_MAX_ATTEMPTS")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: DOCGEN_MAX_ATTEMPTS: %w", err)
		}
		cfg.MaxAttempts = n
	}
	if v := strings.TrimSpace(os.Getenv("DOCGEN_AUTO_APPROVE")); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("config: DOCGEN_AUTO_APPROVE: %w", err)
		}
		cfg.AutoApprove = b
	}
	if v := strings.TrimSpace(os.Getenv("DATABASE_URL")); v != "" {
		cfg.Storage.PostgresDSN = v
	}

	endpoint := strings.TrimSpace(os.Getenv("ARTIFACT_S3_ENDPOINT"))
	bucket := strings.TrimSpace(os.Getenv("ARTIFACT_S3_BUCKET"))
	if endpoint == "" && bucket == "" && cfg.Storage.S3 == nil {
		return nil
	}
	if cfg.Storage.S3 == nil {
		cfg.Storage.S3 = &S3{}
	}
	s3 := cfg.Storage.S3
	s3.Endpoint = firstNonEmpty(endpoint, s3.Endpoint)
	s3.Bucket = firstNonEmpty(bucket, s3.Bucket)
	s3.Region = firstNonEmpty(os.Getenv("ARTIFACT_S3_REGION"), s3.Region)
	s3.AccessKey = firstNonEmpty(os.Getenv("ARTIFACT_S3_ACCESS_KEY"), s3.AccessKey)
	s3.SecretKey = firstNonEmpty(os.Getenv("ARTIFACT_S3_SECRET_KEY"), s3.SecretKey)
	if v := strings.TrimSpace(os.Getenv("ARTIFACT_S3_USE_SSL")); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("config: ARTIFACT_S3_USE_SSL: %w", err)
		}
		s3.UseSSL = b
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}

// yamlToJSON normalizes a yaml.v3 document into generic JSON values so it
// can be checked against the JSON Schema.
func yamlToJSON(doc any) (any, error) {
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	return v, nil
}

// TaskIndex returns the index of the named task, or -1 if not found.
func (c *Config) TaskIndex(name string) int {
	for i, t := range c.Tasks {
		if t.Name == name {
			return i
		}
	}
	return -1
}

// IndexTask returns the index task if the workflow declares one.
func (c *Config) IndexTask() (Task, bool) {
	if len(c.Tasks) > 0 && c.Tasks[0].Type == TaskIndex {
		return c.Tasks[0], true
	}
	return Task{}, false
}

// GenerationTasks returns every task except the index task, in order.
func (c *Config) GenerationTasks() []Task {
	if _, ok := c.IndexTask(); ok {
		return c.Tasks[1:]
	}
	return c.Tasks
}

// FinalTask returns the last task; its output is parsed into sections.
func (c *Config) FinalTask() Task {
	if len(c.Tasks) == 0 {
		return Task{}
	}
	return c.Tasks[len(c.Tasks)-1]
}
