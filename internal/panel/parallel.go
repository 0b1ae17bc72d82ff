package panel

import (
	"context"
	"runtime"
	"sync"
)

// workItem holds one gene ready for compilation.
type workItem struct {
	seq  int
	gene Gene
}

// workResult holds the compilation outcome for a single gene.
type workResult struct {
	seq     int
	gene    Gene
	outcome geneOutcome
}

// parallelCompile compiles work items using a pool of workers. Results
// arrive on the returned channel in completion order; use orderedCollect
// to consume them in sequence-number order. If workers is 0,
// runtime.NumCPU() is used.
func (r *Runner) parallelCompile(ctx context.Context, items <-chan workItem, workers int) <-chan workResult {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	results := make(chan workResult, 2*workers)

	var wg sync.WaitGroup
	wg.Add(workers)

	for range workers {
		go func() {
			defer wg.Done()
			for item := range items {
				results <- workResult{
					seq:     item.seq,
					gene:    item.gene,
					outcome: r.compileGene(ctx, item.gene),
				}
			}
		}()
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	return results
}

// orderedCollect calls fn for each result in sequence-number order,
// buffering out-of-order results until the next expected sequence number
// is available. Blocks until the results channel is closed.
func orderedCollect(results <-chan workResult, fn func(workResult) error) error {
	pending := make(map[int]workResult)
	nextSeq := 0

	for r := range results {
		pending[r.seq] = r

		for {
			rr, ok := pending[nextSeq]
			if !ok {
				break
			}
			delete(pending, nextSeq)
			nextSeq++
			if err := fn(rr); err != nil {
				// Drain remaining results to unblock workers.
				for range results {
				}
				return err
			}
		}
	}

	return nil
}
