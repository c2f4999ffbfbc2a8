package usecase

import (
	"context"
	"errors"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Progress is called after each clip with the number of clips done so far.
// Calls are serialized.
type Progress func(done, total int, r ClipResult)

// RunBatch finishes every job with at most workers clips in flight. Results
// keep the order of jobs. The returned error joins the errors of clips that
// produced no output.
func (u Usecase) RunBatch(ctx context.Context, jobs []ClipJob, workers int, progress Progress) ([]ClipResult, error) {
	if workers < 1 {
		workers = 1
	}
	results := make([]ClipResult, len(jobs))

	var (
		mu   sync.Mutex
		done int
	)
	var g errgroup.Group
	g.SetLimit(workers)
	for i, job := range jobs {
		i, job := i, job
		g.Go(func() error {
			r := u.FinishClip(ctx, job)
			results[i] = r

			mu.Lock()
			done++
			if progress != nil {
				progress(done, len(jobs), r)
			}
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	var errs []error
	for _, r := range results {
		if r.Err != nil {
			errs = append(errs, r.Err)
		}
	}
	return results, errors.Join(errs...)
}
