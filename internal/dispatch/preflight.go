package dispatch

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/jorge-barreto/docgen/internal/config"
)

// Preflight checks that the configured backend can be reached: the command
// binary is on PATH, or a Gemini API key is set.
func Preflight(b config.Backend) error {
	switch b.Type {
	case config.BackendGemini:
		if os.Getenv("GEMINI_API_KEY") == "" && os.Getenv("GOOGLE_API_KEY") == "" {
			return fmt.Errorf("gemini backend requires GEMINI_API_KEY or GOOGLE_API_KEY")
		}
	default:
		if _, err := exec.LookPath(b.Command); err != nil {
			return fmt.Errorf("required binary not found in PATH: %s", b.Command)
		}
	}
	return nil
}
