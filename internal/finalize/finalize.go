// Package finalize persists an approved document set: one file per section,
// a combined document, and optional mirrors to object storage and Postgres.
package finalize

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jorge-barreto/docgen/internal/evaluate"
	"github.com/jorge-barreto/docgen/internal/sections"
	"github.com/jorge-barreto/docgen/internal/state"
)

const DefaultCombinedFile = "technical_documentation.md"

// Document is the approved candidate handed to a Finalizer.
type Document struct {
	RunID      string
	Folder     string
	Language   string
	Sections   sections.Sections
	Raw        string
	Evaluation evaluate.Result
	Stats      Stats
}

// Report describes what a Finalizer wrote.
type Report struct {
	OutputDir string
	Files     []string
	Combined  string
	Warnings  []string
}

// Finalizer persists a document.
type Finalizer interface {
	Finalize(ctx context.Context, doc Document) (*Report, error)
}

// Mirror copies an already finalized document somewhere else.
type Mirror interface {
	Name() string
	Mirror(ctx context.Context, doc Document, rep *Report) error
}

// DirFinalizer writes sections under Dir. Missing canonical sections are
// filled with placeholders; diagram sections go to Dir/diagrams.
type DirFinalizer struct {
	Dir          string
	CombinedFile string
}

func (f *DirFinalizer) Finalize(ctx context.Context, doc Document) (*Report, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Join(f.Dir, "diagrams"), 0755); err != nil {
		return nil, fmt.Errorf("creating output dir: %w", err)
	}

	secs := sections.WithDefaults(doc.Sections)
	rep := &Report{OutputDir: f.Dir}
	for _, name := range secs.Names() {
		path, err := f.sectionPath(name)
		if err != nil {
			rep.Warnings = append(rep.Warnings, err.Error())
			continue
		}
		if err := state.WriteFileAtomic(path, []byte(secs[name]+"\n"), 0644); err != nil {
			return nil, fmt.Errorf("writing %s: %w", name, err)
		}
		rep.Files = append(rep.Files, path)
	}

	combined := f.CombinedFile
	if combined == "" {
		combined = DefaultCombinedFile
	}
	rep.Combined = filepath.Join(f.Dir, combined)
	if err := state.WriteFileAtomic(rep.Combined, []byte(Combined(secs)), 0644); err != nil {
		return nil, fmt.Errorf("writing %s: %w", combined, err)
	}
	return rep, nil
}

func (f *DirFinalizer) sectionPath(name string) (string, error) {
	if name != filepath.Base(name) || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return "", fmt.Errorf("skipping section with unsafe name %q", name)
	}
	if sections.IsDiagram(name) {
		return filepath.Join(f.Dir, "diagrams", name), nil
	}
	return filepath.Join(f.Dir, name), nil
}

var combinedParts = []struct {
	heading string
	section string
}{
	{"README", sections.Readme},
	{"API REFERENCE", sections.APIReference},
	{"ARCHITECTURE", sections.Architecture},
	{"EXAMPLES", sections.Examples},
}

// Combined concatenates the markdown sections into a single document.
func Combined(secs sections.Sections) string {
	var b strings.Builder
	b.WriteString("# Technical Documentation\n")
	for _, p := range combinedParts {
		fmt.Fprintf(&b, "\n## %s\n%s\n", p.heading, secs[p.section])
	}
	return b.String()
}

// Chain runs Primary and then every mirror. Mirror failures are recorded as
// report warnings and never fail the chain.
type Chain struct {
	Primary Finalizer
	Mirrors []Mirror
}

func (c *Chain) Finalize(ctx context.Context, doc Document) (*Report, error) {
	rep, err := c.Primary.Finalize(ctx, doc)
	if err != nil {
		return nil, err
	}
	for _, m := range c.Mirrors {
		if err := m.Mirror(ctx, doc, rep); err != nil {
			rep.Warnings = append(rep.Warnings, fmt.Sprintf("%s: %v", m.Name(), err))
		}
	}
	return rep, nil
}
