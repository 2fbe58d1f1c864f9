package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/jorge-barreto/docgen/internal/approval"
	"github.com/jorge-barreto/docgen/internal/config"
	"github.com/jorge-barreto/docgen/internal/dispatch"
	"github.com/jorge-barreto/docgen/internal/evaluate"
	"github.com/jorge-barreto/docgen/internal/finalize"
	"github.com/jorge-barreto/docgen/internal/index"
	"github.com/jorge-barreto/docgen/internal/llm"
	"github.com/jorge-barreto/docgen/internal/pipeline"
	"github.com/jorge-barreto/docgen/internal/runner"
	"github.com/jorge-barreto/docgen/internal/scaffold"
	"github.com/jorge-barreto/docgen/internal/sharedstate"
	"github.com/jorge-barreto/docgen/internal/state"
	"github.com/jorge-barreto/docgen/internal/ux"
	cli "github.com/urfave/cli/v3"
)

type project struct {
	root         string
	cfg          *config.Config
	artifactsDir string
}

func loadProject() (*project, error) {
	root, err := findProjectRoot()
	if err != nil {
		return nil, err
	}
	loadEnv(root)
	cfg, err := config.Load(filepath.Join(root, scaffold.Dir, "config.yaml"), root)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return &project{
		root:         root,
		cfg:          cfg,
		artifactsDir: filepath.Join(root, scaffold.Dir, "artifacts"),
	}, nil
}

func (p *project) outputDir() string {
	if filepath.IsAbs(p.cfg.OutputDir) {
		return p.cfg.OutputDir
	}
	return filepath.Join(p.root, p.cfg.OutputDir)
}

// entryDir is the artifacts directory of a batch entry, or the top-level
// one when entry is empty.
func (p *project) entryDir(entry string) string {
	if entry == "" {
		return p.artifactsDir
	}
	return filepath.Join(p.artifactsDir, "batch", entry)
}

// applyRunFlags overlays CLI flags onto the loaded config.
func applyRunFlags(cfg *config.Config, cmd *cli.Command) error {
	if cmd.IsSet("threshold") {
		t := cmd.Float("threshold")
		if t < 0 || t > 10 {
			return fmt.Errorf("--threshold must be between 0 and 10, got %g", t)
		}
		cfg.Threshold = t
	}
	if cmd.IsSet("max-attempts") {
		n := int(cmd.Int("max-attempts"))
		if n < 1 {
			return fmt.Errorf("--max-attempts must be >= 1, got %d", n)
		}
		cfg.MaxAttempts = n
	}
	if cmd.IsSet("out") {
		cfg.OutputDir = cmd.String("out")
	}
	if cmd.IsSet("scorer") {
		s := cmd.String("scorer")
		if s != config.ScorerHeuristic && s != config.ScorerLLM {
			return fmt.Errorf("--scorer must be %s or %s, got %q", config.ScorerHeuristic, config.ScorerLLM, s)
		}
		cfg.Scorer.Type = s
	}
	if cmd.IsSet("auto") && cmd.Bool("auto") {
		cfg.AutoApprove = true
	}
	return nil
}

// wiring holds the collaborators shared by every run of one invocation.
type wiring struct {
	cfg      *config.Config
	root     string
	client   llm.Client
	gate     *evaluate.Gate
	indexer  *index.Indexer
	registry *sharedstate.Registry
	mirrors  []finalize.Mirror
	closers  []io.Closer
}

// newWiring builds the backend client, quality gate, indexer and storage
// mirrors. log receives command-backend output; nil discards it.
func newWiring(ctx context.Context, p *project, log io.Writer) (*wiring, error) {
	cfg := p.cfg
	if err := dispatch.Preflight(cfg.Backend); err != nil {
		return nil, err
	}
	client, err := llm.New(ctx, cfg.Backend, p.root, log)
	if err != nil {
		return nil, err
	}
	gate, err := buildGate(client, cfg.Scorer)
	if err != nil {
		return nil, err
	}
	ix, err := index.New(0)
	if err != nil {
		return nil, err
	}

	w := &wiring{
		cfg:      cfg,
		root:     p.root,
		client:   client,
		gate:     gate,
		indexer:  ix,
		registry: sharedstate.NewRegistry(),
	}
	if s3 := cfg.Storage.S3; s3 != nil {
		m, err := finalize.NewS3Mirror(*s3)
		if err != nil {
			return nil, err
		}
		w.mirrors = append(w.mirrors, m)
	}
	if dsn := cfg.Storage.PostgresDSN; dsn != "" {
		rec, err := finalize.NewPostgresRecorder(dsn)
		if err != nil {
			return nil, err
		}
		w.mirrors = append(w.mirrors, rec)
		w.closers = append(w.closers, rec)
	}
	return w, nil
}

func buildGate(client llm.Client, sc config.Scorer) (*evaluate.Gate, error) {
	criteria, err := evaluate.Select(sc.Criteria)
	if err != nil {
		return nil, fmt.Errorf("scorer: %w", err)
	}
	var scorer evaluate.Scorer
	switch sc.Type {
	case config.ScorerLLM:
		s, err := evaluate.NewLLMScorer(client, criteria, sc.Concurrency, sc.CacheSize)
		if err != nil {
			return nil, err
		}
		scorer = s
	default:
		scorer = evaluate.NewHeuristicScorer(criteria)
	}
	return evaluate.NewGate(scorer, criteria), nil
}

// runner assembles a Runner writing artifacts to artifactsDir and
// documents to outputDir. A nil in means review input is unavailable.
func (w *wiring) runner(artifactsDir, outputDir string, printer *ux.Printer, in io.Reader) *runner.Runner {
	if in == nil {
		in = strings.NewReader("")
	}
	env := &dispatch.Environment{
		ProjectRoot:  w.root,
		ArtifactsDir: artifactsDir,
		OutputDir:    outputDir,
	}
	timing := &state.Timing{}
	lr := &dispatch.LLMRunner{Client: w.client, Env: env, Timing: timing}
	return &runner.Runner{
		Config: w.cfg,
		Env:    env,
		Tasks: func(pass string) pipeline.Runner {
			return lr.ForPass(pass)
		},
		Indexer:  w.indexer,
		Gate:     w.gate,
		Reviewer: &approval.Reviewer{In: in, Out: os.Stdout, AutoApprove: w.cfg.AutoApprove},
		Finalizer: &finalize.Chain{
			Primary: &finalize.DirFinalizer{Dir: outputDir, CombinedFile: w.cfg.CombinedFile},
			Mirrors: w.mirrors,
		},
		Registry: w.registry,
		Printer:  printer,
		Timing:   timing,
	}
}

func (w *wiring) Close() {
	for _, c := range w.closers {
		c.Close()
	}
}

// batchEntry names the artifacts and output subdirectory of the nth folder.
func batchEntry(folder string, n int) string {
	base := filepath.Base(filepath.Clean(folder))
	if base == "." || base == string(filepath.Separator) {
		if abs, err := filepath.Abs(folder); err == nil {
			base = filepath.Base(abs)
		}
	}
	return fmt.Sprintf("%02d-%s", n+1, base)
}
