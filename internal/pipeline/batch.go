package pipeline

import (
	"context"
	"sync"

	"github.com/dgallion1/lawgest/internal/convert"
	"github.com/dgallion1/lawgest/internal/law"
)

// BatchItem is one source document in a batch run.
type BatchItem struct {
	Name    string
	Extract func() (string, error)
	Meta    law.Metadata
}

// RunBatch converts items with at most concurrency documents in flight.
// Documents share nothing, so a failure stays in its own Result. A rule
// compilation error cancels the remaining work and is returned. Results are
// in input order.
func RunBatch(ctx context.Context, items []BatchItem, opts convert.Options, concurrency int) ([]convert.Result, error) {
	if concurrency <= 0 {
		concurrency = 1
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make([]convert.Result, len(items))
	sem := make(chan struct{}, concurrency)
	var (
		wg       sync.WaitGroup
		once     sync.Once
		abortErr error
	)

loop:
	for i, it := range items {
		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			break loop
		}
		wg.Add(1)
		go func(i int, it BatchItem) {
			defer wg.Done()
			defer func() { <-sem }()
			res, err := convert.Source(it.Name, it.Extract, it.Meta, opts)
			if err != nil {
				once.Do(func() {
					abortErr = err
					cancel()
				})
				return
			}
			results[i] = res
		}(i, it)
	}
	wg.Wait()

	if abortErr != nil {
		return nil, abortErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

// Summarize folds results into the end-of-run report.
func Summarize(results []convert.Result) convert.Summary {
	var sum convert.Summary
	for _, r := range results {
		sum.Add(r)
	}
	return sum
}
