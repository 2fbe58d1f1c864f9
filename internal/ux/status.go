package ux

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/jorge-barreto/docgen/internal/evaluate"
	"github.com/jorge-barreto/docgen/internal/state"
)

// RenderStatus prints the last run record.
func RenderStatus(w io.Writer, run *state.Run, artifactsDir string) {
	color := Yellow
	switch run.Status {
	case state.StatusCompleted:
		color = Green
	case state.StatusFailed:
		color = Red
	}

	fmt.Fprintf(w, "%sRun:%s      %s\n", Bold, Reset, run.ID)
	fmt.Fprintf(w, "%sFolder:%s   %s\n", Bold, Reset, run.Folder)
	fmt.Fprintf(w, "%sStatus:%s   %s%s%s", Bold, Reset, color, run.Status, Reset)
	if run.Outcome != "" {
		fmt.Fprintf(w, " (%s)", run.Outcome)
	}
	fmt.Fprintf(w, "  %s%s%s\n", Dim, state.FormatDuration(run.Elapsed()), Reset)
	if run.Error != "" {
		fmt.Fprintf(w, "%sError:%s    %s\n", Bold, Reset, run.Error)
	}

	if len(run.Attempts) > 0 {
		fmt.Fprintf(w, "\n%sAttempts:%s (threshold %.2f)\n", Bold, Reset, run.Threshold)
		for _, a := range run.Attempts {
			marker := "  "
			if a.N == run.BestAttempt && a.Pass != "edit" {
				marker = fmt.Sprintf("%s★%s ", Yellow, Reset)
			}
			fmt.Fprintf(w, "  %s%-6s %d  mean %5.2f\n", marker, a.Pass, a.N, a.Mean)
			for _, k := range sortedKeys(a.Scores) {
				fmt.Fprintf(w, "      %s%-22s %5.2f%s\n", Dim, evaluate.DisplayName(k), a.Scores[k], Reset)
			}
			for _, k := range sortedKeys(a.Failed) {
				fmt.Fprintf(w, "      %s%-22s failed%s\n", Yellow, evaluate.DisplayName(k), Reset)
			}
		}
	}

	if run.Approval != "" {
		fmt.Fprintf(w, "\n%sReview:%s   %s\n", Bold, Reset, run.Approval)
		if run.Feedback != "" {
			fmt.Fprintf(w, "  %sfeedback:%s %s\n", Dim, Reset, Truncate(run.Feedback, 72))
		}
	}

	if len(run.Files) > 0 {
		fmt.Fprintf(w, "\n%sOutput:%s   %s (final score %.2f)\n", Bold, Reset, run.OutputDir, run.FinalMean)
		for _, f := range run.Files {
			fmt.Fprintf(w, "  %s\n", f)
		}
	}

	for _, warn := range run.Warnings {
		fmt.Fprintf(w, "%swarning:%s %s\n", Yellow, Reset, warn)
	}

	fmt.Fprintf(w, "\n%sArtifacts:%s\n", Bold, Reset)
	entries, err := os.ReadDir(artifactsDir)
	if err != nil {
		fmt.Fprintf(w, "  %s(none)%s\n", Dim, Reset)
		return
	}
	for _, e := range entries {
		if !e.IsDir() {
			fmt.Fprintf(w, "  %s\n", filepath.Join(artifactsDir, e.Name()))
			continue
		}
		sub, _ := os.ReadDir(filepath.Join(artifactsDir, e.Name()))
		switch len(sub) {
		case 0:
		case 1:
			fmt.Fprintf(w, "  %s\n", filepath.Join(artifactsDir, e.Name(), sub[0].Name()))
		default:
			fmt.Fprintf(w, "  %s .. %s\n", filepath.Join(artifactsDir, e.Name(), sub[0].Name()), sub[len(sub)-1].Name())
		}
	}
	fmt.Fprintln(w)
}
