package llm

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/jorge-barreto/docgen/internal/config"
)

// New builds the client described by the backend config. dir is the working
// directory for command backends and log receives their output.
func New(ctx context.Context, b config.Backend, dir string, log io.Writer) (Client, error) {
	switch b.Type {
	case config.BackendGemini:
		return NewGeminiClient(ctx, b.Model, b.RPS)
	case config.BackendCommand, "":
		return &CommandClient{
			Command: b.Command,
			Model:   b.Model,
			Timeout: time.Duration(b.Timeout) * time.Minute,
			Dir:     dir,
			Log:     log,
		}, nil
	default:
		return nil, fmt.Errorf("unknown backend type %q", b.Type)
	}
}
