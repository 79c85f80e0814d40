package batch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/danielpatrickdp/pageforge/internal/controller"
)

func jobs(n int) []Job {
	out := make([]Job, n)
	for i := range out {
		out[i] = Job{Topic: fmt.Sprintf("topic-%d", i), Theme: "brutalist"}
	}
	return out
}

func TestRunPreservesJobOrder(t *testing.T) {
	build := func(_ context.Context, job Job) (controller.Outcome, error) {
		return controller.Outcome{Status: controller.StatusSuccess, FinalPath: job.Topic}, nil
	}

	results := Run(context.Background(), jobs(8), 3, build)
	if len(results) != 8 {
		t.Fatalf("results = %d", len(results))
	}
	for i, r := range results {
		if r.Job.Topic != fmt.Sprintf("topic-%d", i) {
			t.Fatalf("result %d carries job %q", i, r.Job.Topic)
		}
	}
}

func TestRunBoundsConcurrency(t *testing.T) {
	var inFlight, peak atomic.Int64
	var mu sync.Mutex

	build := func(_ context.Context, _ Job) (controller.Outcome, error) {
		n := inFlight.Add(1)
		mu.Lock()
		if n > peak.Load() {
			peak.Store(n)
		}
		mu.Unlock()
		defer inFlight.Add(-1)
		return controller.Outcome{Status: controller.StatusSuccess}, nil
	}

	Run(context.Background(), jobs(20), 4, build)
	if p := peak.Load(); p > 4 {
		t.Fatalf("peak concurrency = %d, want <= 4", p)
	}
}

func TestFailingJobDoesNotCancelSiblings(t *testing.T) {
	errBoom := errors.New("boom")
	build := func(_ context.Context, job Job) (controller.Outcome, error) {
		if job.Topic == "topic-0" {
			return controller.Outcome{Status: controller.StatusFailed}, errBoom
		}
		return controller.Outcome{Status: controller.StatusSuccess}, nil
	}

	results := Run(context.Background(), jobs(4), 2, build)
	if !errors.Is(results[0].Err, errBoom) {
		t.Fatalf("result 0 err = %v", results[0].Err)
	}
	for _, r := range results[1:] {
		if r.Err != nil || r.Outcome.Status != controller.StatusSuccess {
			t.Fatalf("sibling affected: %+v", r)
		}
	}
}

func TestSummarize(t *testing.T) {
	results := []Result{
		{Outcome: controller.Outcome{Status: controller.StatusSuccess}},
		{Outcome: controller.Outcome{Status: controller.StatusRejected}},
		{Outcome: controller.Outcome{Status: controller.StatusFailed}},
		{Err: errors.New("x")},
	}
	s := Summarize(results)
	if s.Succeeded != 1 || s.Rejected != 1 || s.Failed != 2 {
		t.Fatalf("summary = %+v", s)
	}
}
