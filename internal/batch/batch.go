// Package batch fans independent page builds out over a bounded worker
// pool. Builds do not share mutable state, so they parallelize freely; the
// limit exists to keep headless browser sessions bounded.
package batch

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/danielpatrickdp/pageforge/internal/controller"
)

// Job names one page to build.
type Job struct {
	Topic   string
	Theme   string
	OutPath string
}

// Result pairs a job with its outcome. Err covers infrastructure failures;
// a rejected page is a normal outcome, not an error.
type Result struct {
	Job     Job
	Outcome controller.Outcome
	Err     error
}

// BuildFunc runs one job to completion.
type BuildFunc func(ctx context.Context, job Job) (controller.Outcome, error)

// Run executes the jobs with at most workers in flight and returns one
// result per job, in job order. A failing job does not cancel its
// siblings; only context cancellation stops the batch early.
func Run(ctx context.Context, jobs []Job, workers int, build BuildFunc) []Result {
	if workers < 1 {
		workers = 1
	}
	results := make([]Result, len(jobs))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, job := range jobs {
		i, job := i, job
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				results[i] = Result{Job: job, Err: err}
				return nil
			}
			outcome, err := build(ctx, job)
			results[i] = Result{Job: job, Outcome: outcome, Err: err}
			return nil
		})
	}
	g.Wait()
	return results
}

// Summary tallies a batch.
type Summary struct {
	Succeeded int
	Rejected  int
	Failed    int
}

// Summarize counts terminal statuses across the results.
func Summarize(results []Result) Summary {
	var s Summary
	for _, r := range results {
		switch {
		case r.Err != nil, r.Outcome.Status == controller.StatusFailed:
			s.Failed++
		case r.Outcome.Status == controller.StatusRejected:
			s.Rejected++
		default:
			s.Succeeded++
		}
	}
	return s
}
