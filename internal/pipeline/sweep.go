package pipeline

import (
	"context"
	"runtime"
	"sync"
	"time"
)

// SweepResult is the outcome of one seed of a sweep.
type SweepResult struct {
	Seed      int64
	Summary   Summary
	Artifacts *Artifacts
	Elapsed   time.Duration
	Err       error
}

// Sweep runs the pipeline once per seed on a pool of workers, delivering
// results in completion order. Each run owns its own state. The channel
// closes once every started run finished; seeds not yet started when ctx
// is cancelled are skipped. keep retains the artifacts on each result.
// Callers must drain the channel.
func Sweep(ctx context.Context, base Config, seeds []int64, workers int, keep bool) <-chan SweepResult {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	jobs := make(chan int64)
	results := make(chan SweepResult)
	var wg sync.WaitGroup

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for seed := range jobs {
				start := time.Now()
				a, err := Generate(ctx, base.WithSeed(seed), nil)
				res := SweepResult{Seed: seed, Elapsed: time.Since(start), Err: err}
				if a != nil {
					res.Summary = Summarize(a)
					if keep {
						res.Artifacts = a
					}
				}
				results <- res
			}
		}()
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	go func() {
		defer close(jobs)
		for _, seed := range seeds {
			if ctx.Err() != nil {
				return
			}
			select {
			case jobs <- seed:
			case <-ctx.Done():
				return
			}
		}
	}()

	return results
}
