// Package state persists run records and artifacts under .docgen/artifacts.
package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

const (
	StatusRunning     = "running"
	StatusCompleted   = "completed"
	StatusFailed      = "failed"
	StatusInterrupted = "interrupted"
)

// ErrNoRun is returned by Load when no run has been recorded.
var ErrNoRun = errors.New("no run recorded")

// Attempt is the persisted score record of one generation pass.
type Attempt struct {
	N      int                `json:"n"`
	Pass   string             `json:"pass"` // full, retry or edit
	Mean   float64            `json:"mean"`
	Scores map[string]float64 `json:"scores"`
	Failed map[string]string  `json:"failed,omitempty"`
}

// Run is the record of one documentation run, written to run.json.
type Run struct {
	ID         string    `json:"id"`
	Folder     string    `json:"folder"`
	Status     string    `json:"status"`
	Outcome    string    `json:"outcome,omitempty"` // passed or exhausted_best_available
	Threshold  float64   `json:"threshold"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at,omitempty"`

	Attempts     []Attempt `json:"attempts"`
	AttemptsUsed int       `json:"attempts_used"`
	BestAttempt  int       `json:"best_attempt,omitempty"`
	Approval     string    `json:"approval,omitempty"`
	Feedback     string    `json:"feedback,omitempty"`
	FinalMean    float64   `json:"final_mean"`

	OutputDir  string   `json:"output_dir,omitempty"`
	Files      []string `json:"files,omitempty"`
	FailedTask string   `json:"failed_task,omitempty"`
	Error      string   `json:"error,omitempty"`
	Warnings   []string `json:"warnings,omitempty"`
}

func runPath(artifactsDir string) string {
	return filepath.Join(artifactsDir, "run.json")
}

// Load reads the last run record from the artifacts directory.
func Load(artifactsDir string) (*Run, error) {
	data, err := os.ReadFile(runPath(artifactsDir))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNoRun
		}
		return nil, err
	}
	var r Run
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("parsing run.json: %w", err)
	}
	return &r, nil
}

// Save writes the run record atomically.
func (r *Run) Save(artifactsDir string) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return err
	}
	return WriteFileAtomic(runPath(artifactsDir), data, 0644)
}

// Record appends an attempt record.
func (r *Run) Record(a Attempt) {
	r.Attempts = append(r.Attempts, a)
}

// Finish marks the run with a terminal status.
func (r *Run) Finish(status string, err error) {
	r.Status = status
	r.FinishedAt = time.Now()
	if err != nil {
		r.Error = err.Error()
	}
}

// Elapsed is the wall time of the run, up to now if still running.
func (r *Run) Elapsed() time.Duration {
	if r.FinishedAt.IsZero() {
		return time.Since(r.StartedAt)
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
