package scaffold

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/jorge-barreto/docgen/internal/fileblocks"
	"github.com/jorge-barreto/docgen/internal/index"
	"github.com/jorge-barreto/docgen/internal/llm"
	"github.com/jorge-barreto/docgen/internal/ux"
)

const tailorAttempts = 2

// Tailor asks the backend to adapt the prompt templates under
// .docgen/prompts to the indexed project. Only existing prompt files are
// replaced; a rewritten assembler prompt must keep the section markers.
// It returns the relative paths it rewrote.
func Tailor(ctx context.Context, client llm.Client, targetDir string, summary *index.Summary, w io.Writer) ([]string, error) {
	promptDir := filepath.Join(targetDir, Dir, promptsDir)
	current, err := readPrompts(promptDir)
	if err != nil {
		return nil, err
	}
	if len(current) == 0 {
		return nil, fmt.Errorf("no prompt templates in %s", promptDir)
	}

	prompt := buildTailorPrompt(current, summary.Render())
	var lastErr error
	for i := 0; i < tailorAttempts; i++ {
		p := prompt
		if lastErr != nil {
			p += fmt.Sprintf(retryFeedback, lastErr)
		}
		fmt.Fprintf(w, "  %sTailoring prompts with %s (attempt %d/%d)...%s\n", ux.Dim, client.Name(), i+1, tailorAttempts, ux.Reset)
		reply, err := client.Generate(ctx, p)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = err
			continue
		}
		blocks, err := acceptBlocks(reply, current)
		if err != nil {
			lastErr = err
			continue
		}
		return writeBlocks(targetDir, blocks)
	}
	return nil, fmt.Errorf("tailoring prompts: %w", lastErr)
}

func readPrompts(dir string) (map[string]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string)
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".md") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, err
		}
		out[e.Name()] = string(data)
	}
	return out, nil
}

var errNoBlocks = errors.New("reply contained no usable prompt file blocks")

func acceptBlocks(reply string, current map[string]string) ([]fileblocks.FileBlock, error) {
	prefix := path.Join(Dir, promptsDir)
	var out []fileblocks.FileBlock
	for _, b := range fileblocks.Under(fileblocks.Parse(reply), prefix) {
		name := path.Base(b.Path)
		if _, ok := current[name]; !ok || path.Dir(b.Path) != prefix {
			continue
		}
		if strings.TrimSpace(b.Content) == "" {
			continue
		}
		if name == "assembler.md" && !strings.Contains(b.Content, "===SECTION:") {
			continue
		}
		out = append(out, b)
	}
	if len(out) == 0 {
		return nil, errNoBlocks
	}
	return out, nil
}

func writeBlocks(targetDir string, blocks []fileblocks.FileBlock) ([]string, error) {
	var written []string
	for _, b := range blocks {
		full := filepath.Join(targetDir, filepath.FromSlash(b.Path))
		content := strings.TrimRight(b.Content, "\n") + "\n"
		if err := os.WriteFile(full, []byte(content), 0644); err != nil {
			return written, fmt.Errorf("writing %s: %w", b.Path, err)
		}
		written = append(written, b.Path)
	}
	return written, nil
}

func buildTailorPrompt(current map[string]string, projectContext string) string {
	names := make([]string, 0, len(current))
	for n := range current {
		names = append(names, n)
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString(tailorPromptPrefix)
	for _, n := range names {
		fmt.Fprintf(&b, "````markdown file=%s/%s/%s\n%s\n````\n\n", Dir, promptsDir, n, strings.TrimRight(current[n], "\n"))
	}
	b.WriteString("## Project Context\n\n")
	b.WriteString(projectContext)
	b.WriteString(tailorPromptSuffix)
	return b.String()
}

const tailorPromptPrefix = `You are tailoring the prompt templates of docgen, a tool that generates technical documentation for a codebase by running a chain of model tasks.

Each template below is sent to a model together with the code analysis and the outputs of upstream tasks. Templates may reference $FOLDER, $PROJECT_ROOT, $ARTIFACTS_DIR, $OUTPUT_DIR and ${STATE_<key>} for shared analysis values (for example ${STATE_entry_points}).

## Current Templates

`

const tailorPromptSuffix = `

## Instructions

Rewrite the templates so they fit this project: name its frameworks, its kind of API (HTTP service, CLI, library), its build tool and its conventions. Keep each template's task and output contract. The assembler template MUST keep the ===SECTION: <file>=== marker lines exactly.

## Output Format

Produce ONLY fenced code blocks with file= annotations, one per template you changed, using the same paths as above:

` + "```" + `markdown file=.docgen/prompts/api_docs.md
<template content>
` + "```" + `

No explanation or text outside the code blocks.
`

const retryFeedback = `

IMPORTANT: Your previous attempt failed with this error: %v

Try again. Output ONLY fenced code blocks with file= annotations for files under .docgen/prompts/ that exist above.`
