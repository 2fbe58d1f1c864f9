package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/jorge-barreto/docgen/internal/config"
	"github.com/jorge-barreto/docgen/internal/dispatch"
	"github.com/jorge-barreto/docgen/internal/docs"
	"github.com/jorge-barreto/docgen/internal/doctor"
	"github.com/jorge-barreto/docgen/internal/index"
	"github.com/jorge-barreto/docgen/internal/llm"
	"github.com/jorge-barreto/docgen/internal/runner"
	"github.com/jorge-barreto/docgen/internal/scaffold"
	"github.com/jorge-barreto/docgen/internal/sharedstate"
	"github.com/jorge-barreto/docgen/internal/state"
	"github.com/jorge-barreto/docgen/internal/ux"
	cli "github.com/urfave/cli/v3"
)

func main() {
	app := &cli.Command{
		Name:        "docgen",
		Usage:       "Generate technical documentation for a codebase",
		Description: "Run 'docgen docs' for documentation on config syntax, tasks, scoring, and more.",
		Commands: []*cli.Command{
			initCmd(),
			runCmd(),
			batchCmd(),
			indexCmd(),
			statusCmd(),
			doctorCmd(),
			docsCmd(),
		},
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "%serror:%s %v\n", ux.Red, ux.Reset, err)
		os.Exit(1)
	}
}

func runFlags() []cli.Flag {
	return []cli.Flag{
		&cli.FloatFlag{Name: "threshold", Usage: "Minimum mean score (0-10) to pass"},
		&cli.IntFlag{Name: "max-attempts", Usage: "Generation attempts before keeping the best"},
		&cli.StringFlag{Name: "out", Usage: "Output directory for documents"},
		&cli.StringFlag{Name: "scorer", Usage: "Quality scorer: heuristic or llm"},
	}
}

func runCmd() *cli.Command {
	return &cli.Command{
		Name:      "run",
		Usage:     "Generate documentation for a folder",
		ArgsUsage: "[folder]",
		Flags: append(runFlags(),
			&cli.BoolFlag{Name: "auto", Usage: "Skip human review"},
			&cli.BoolFlag{Name: "dry-run", Usage: "Print the task plan without executing"},
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			folder := cmd.Args().First()
			if folder == "" {
				folder = "."
			}
			if _, err := os.Stat(folder); err != nil {
				return fmt.Errorf("folder %s: %w", folder, err)
			}

			p, err := loadProject()
			if err != nil {
				return err
			}
			if err := applyRunFlags(p.cfg, cmd); err != nil {
				return err
			}

			if cmd.Bool("dry-run") {
				r := &runner.Runner{
					Config: p.cfg,
					Env:    &dispatch.Environment{ProjectRoot: p.root, OutputDir: p.outputDir(), Folder: folder},
				}
				r.DryRunPrint(os.Stdout)
				return nil
			}

			ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)
			defer stop()

			w, err := newWiring(ctx, p, os.Stdout)
			if err != nil {
				return err
			}
			defer w.Close()

			r := w.runner(p.artifactsDir, p.outputDir(), ux.NewPrinter(""), os.Stdin)
			_, err = r.Run(ctx, folder)
			return err
		},
	}
}

func batchCmd() *cli.Command {
	return &cli.Command{
		Name:      "batch",
		Usage:     "Generate documentation for several folders without review",
		ArgsUsage: "<folder>...",
		Flags: append(runFlags(),
			&cli.IntFlag{Name: "parallel", Value: 2, Usage: "Folders documented at once"},
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			folders := cmd.Args().Slice()
			if len(folders) == 0 {
				return fmt.Errorf("at least one folder is required")
			}
			for _, f := range folders {
				if _, err := os.Stat(f); err != nil {
					return fmt.Errorf("folder %s: %w", f, err)
				}
			}

			p, err := loadProject()
			if err != nil {
				return err
			}
			if err := applyRunFlags(p.cfg, cmd); err != nil {
				return err
			}
			p.cfg.AutoApprove = true

			ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)
			defer stop()

			w, err := newWiring(ctx, p, nil)
			if err != nil {
				return err
			}
			defer w.Close()

			results := runner.Batch(ctx, folders, int(cmd.Int("parallel")), func(folder string, n int) (*runner.Runner, error) {
				name := batchEntry(folder, n)
				return w.runner(
					filepath.Join(p.artifactsDir, "batch", name),
					filepath.Join(p.outputDir(), name),
					ux.NewPrinter(name),
					nil,
				), nil
			})

			fmt.Printf("\n%sBatch summary:%s\n", ux.Bold, ux.Reset)
			for i, res := range results {
				name := batchEntry(res.Folder, i)
				if res.Err != nil {
					fmt.Printf("  %s✗%s %-24s %v\n", ux.Red, ux.Reset, name, res.Err)
					continue
				}
				fmt.Printf("  %s✓%s %-24s score %.2f, %s\n", ux.Green, ux.Reset, name, res.Result.Evaluation.Mean, res.Result.Report.OutputDir)
			}
			if n := runner.Failed(results); n > 0 {
				return fmt.Errorf("%d of %d folders failed (see 'docgen status <entry>')", n, len(results))
			}
			return nil
		},
	}
}

func indexCmd() *cli.Command {
	return &cli.Command{
		Name:      "index",
		Usage:     "Analyze a folder and print the shared-state summary",
		ArgsUsage: "[folder]",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "json", Usage: "Print the full shared state as JSON"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			folder := cmd.Args().First()
			if folder == "" {
				folder = "."
			}
			ix, err := index.New(0)
			if err != nil {
				return err
			}
			store := sharedstate.New()
			summary, err := ix.Index(ctx, folder, store)
			if err != nil {
				return err
			}
			if cmd.Bool("json") {
				data, err := json.MarshalIndent(store, "", "  ")
				if err != nil {
					return err
				}
				fmt.Println(string(data))
				return nil
			}
			fmt.Print(summary.Render())
			fmt.Printf("\n%s\n", store.Summary())
			return nil
		},
	}
}

func statusCmd() *cli.Command {
	return &cli.Command{
		Name:      "status",
		Usage:     "Show the last run",
		ArgsUsage: "[batch-entry]",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			p, err := loadProject()
			if err != nil {
				return err
			}
			dir := p.entryDir(cmd.Args().First())
			run, err := state.Load(dir)
			if errors.Is(err, state.ErrNoRun) {
				fmt.Println("No runs recorded yet.")
				return nil
			}
			if err != nil {
				return fmt.Errorf("loading run: %w", err)
			}
			ux.RenderStatus(os.Stdout, run, dir)
			return nil
		},
	}
}

func doctorCmd() *cli.Command {
	return &cli.Command{
		Name:      "doctor",
		Usage:     "Diagnose the last failed run using the configured backend",
		ArgsUsage: "[batch-entry]",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			p, err := loadProject()
			if err != nil {
				return err
			}
			dir := p.entryDir(cmd.Args().First())
			run, err := state.Load(dir)
			if err != nil {
				return fmt.Errorf("loading run: %w", err)
			}
			if err := dispatch.Preflight(p.cfg.Backend); err != nil {
				return err
			}
			client, err := llm.New(ctx, p.cfg.Backend, p.root, nil)
			if err != nil {
				return err
			}
			return doctor.Run(ctx, client, os.Stdout, dir, p.cfg, run)
		},
	}
}

func initCmd() *cli.Command {
	return &cli.Command{
		Name:  "init",
		Usage: "Initialize a new .docgen/ directory with a default task chain",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "tailor", Usage: "Adapt the prompt templates to this project with the backend"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			dir, err := os.Getwd()
			if err != nil {
				return err
			}
			if err := scaffold.Init(dir, os.Stdout); err != nil {
				return err
			}
			if !cmd.Bool("tailor") {
				return nil
			}
			written, err := tailor(ctx, dir)
			if err != nil {
				fmt.Fprintf(os.Stderr, "%swarning:%s tailoring failed, keeping default prompts: %v\n", ux.Yellow, ux.Reset, err)
				return nil
			}
			fmt.Printf("  Tailored %d prompt(s):\n", len(written))
			for _, p := range written {
				fmt.Printf("    %s%s%s\n", ux.Cyan, p, ux.Reset)
			}
			return nil
		},
	}
}

func tailor(ctx context.Context, dir string) ([]string, error) {
	loadEnv(dir)
	cfg, err := config.Load(filepath.Join(dir, scaffold.Dir, "config.yaml"), dir)
	if err != nil {
		return nil, err
	}
	if err := dispatch.Preflight(cfg.Backend); err != nil {
		return nil, err
	}
	client, err := llm.New(ctx, cfg.Backend, dir, nil)
	if err != nil {
		return nil, err
	}
	ix, err := index.New(0)
	if err != nil {
		return nil, err
	}
	summary, err := ix.Index(ctx, dir, sharedstate.New())
	if err != nil {
		return nil, err
	}
	return scaffold.Tailor(ctx, client, dir, summary, os.Stdout)
}

func docsCmd() *cli.Command {
	return &cli.Command{
		Name:      "docs",
		Usage:     "Show documentation",
		ArgsUsage: "[topic]",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			name := cmd.Args().First()
			if name == "" {
				fmt.Print("\nAvailable topics:\n\n")
				for _, t := range docs.All() {
					fmt.Printf("  %-14s %s\n", t.Name, t.Summary)
				}
				fmt.Println("\nRun 'docgen docs <topic>' to read a topic.")
				return nil
			}
			t, err := docs.Get(name)
			if err != nil {
				return err
			}
			fmt.Print(t.Content)
			return nil
		},
	}
}

// findProjectRoot walks up from cwd looking for .docgen/config.yaml.
func findProjectRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}
	for {
		configPath := filepath.Join(dir, scaffold.Dir, "config.yaml")
		if _, err := os.Stat(configPath); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("no %s/config.yaml found (searched from cwd to root); run 'docgen init'", scaffold.Dir)
		}
		dir = parent
	}
}

// loadEnv loads <root>/.env if present. Variables already set win.
func loadEnv(root string) {
	path := filepath.Join(root, ".env")
	if _, err := os.Stat(path); err != nil {
		return
	}
	if err := godotenv.Load(path); err != nil {
		fmt.Fprintf(os.Stderr, "%swarning:%s loading %s: %v\n", ux.Yellow, ux.Reset, path, err)
	}
}
