package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

type TimingEntry struct {
	Pass     string    `json:"pass"`
	Task     string    `json:"task"`
	Start    time.Time `json:"start"`
	End      time.Time `json:"end,omitempty"`
	Duration string    `json:"duration,omitempty"`
}

// Timing records per-task wall time across passes. Safe for concurrent use.
type Timing struct {
	mu      sync.Mutex
	Entries []TimingEntry `json:"entries"`
}

func timingPath(artifactsDir string) string {
	return filepath.Join(artifactsDir, "timing.json")
}

// LoadTiming reads timing.json from the artifacts directory.
func LoadTiming(artifactsDir string) (*Timing, error) {
	data, err := os.ReadFile(timingPath(artifactsDir))
	if err != nil {
		return nil, err
	}
	t := &Timing{}
	if err := json.Unmarshal(data, t); err != nil {
		return nil, fmt.Errorf("parsing timing.json: %w", err)
	}
	return t, nil
}

// Start opens an entry for task in pass.
func (t *Timing) Start(pass, task string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.Entries = append(t.Entries, TimingEntry{Pass: pass, Task: task, Start: time.Now()})
}

// End closes the most recent open entry for task in pass.
func (t *Timing) End(pass, task string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i := len(t.Entries) - 1; i >= 0; i-- {
		e := &t.Entries[i]
		if e.Pass == pass && e.Task == task && e.End.IsZero() {
			e.End = time.Now()
			e.Duration = FormatDuration(e.End.Sub(e.Start))
			return
		}
	}
}

// Flush writes the timing data to disk.
func (t *Timing) Flush(artifactsDir string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	data, err := json.MarshalIndent(t, "", "  ")
	if err != nil {
		return err
	}
	return WriteFileAtomic(timingPath(artifactsDir), data, 0644)
}

// Table renders one line per entry.
func (t *Timing) Table() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	var b strings.Builder
	for _, e := range t.Entries {
		d := e.Duration
		if d == "" {
			d = "(unfinished)"
		}
		fmt.Fprintf(&b, "%-10s %-24s %s\n", e.Pass, e.Task, d)
	}
	return b.String()
}

// FormatDuration renders d as "Xm YYs".
func FormatDuration(d time.Duration) string {
	m := int(d.Minutes())
	s := int(d.Seconds()) % 60
	return fmt.Sprintf("%dm %02ds", m, s)
}
