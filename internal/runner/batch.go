package runner

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// BatchResult is the outcome of one folder in a batch.
type BatchResult struct {
	Folder string
	Result *Result
	Err    error
}

// Factory builds an independent Runner for one folder of a batch.
type Factory func(folder string, n int) (*Runner, error)

// Batch documents folders concurrently, at most parallel at a time. Each
// folder gets its own Runner and run-scoped shared state; a failed folder
// does not stop the others. Results are returned in folder order.
func Batch(ctx context.Context, folders []string, parallel int, newRunner Factory) []BatchResult {
	if parallel < 1 {
		parallel = 1
	}
	results := make([]BatchResult, len(folders))

	var g errgroup.Group
	g.SetLimit(parallel)
	for i, folder := range folders {
		results[i].Folder = folder
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				results[i].Err = err
				return nil
			}
			r, err := newRunner(folder, i)
			if err != nil {
				results[i].Err = fmt.Errorf("preparing %s: %w", folder, err)
				return nil
			}
			results[i].Result, results[i].Err = r.Run(ctx, folder)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// Failed counts the results that carry an error.
func Failed(results []BatchResult) int {
	n := 0
	for _, r := range results {
		if r.Err != nil {
			n++
		}
	}
	return n
}
