package asyncpipeline

import (
	"errors"
	"testing"
)

func TestPollSkipsLoadingJobs(t *testing.T) {
	tr := NewTracker(64)
	j := NewJob("res", 0, 1, func() (any, error) { return nil, nil })
	tr.Register(j)

	results := tr.Poll(nil)
	if len(results) != 0 {
		t.Fatalf("expected no results for a still-loading job, got %v", results)
	}
	if tr.Len() != 1 {
		t.Fatalf("expected the loading job to remain registered, got len %d", tr.Len())
	}
}

func TestPollIntegratesReadyJobOnMatchingGeneration(t *testing.T) {
	tr := NewTracker(64)
	called := false
	j := NewJob("res", 0, 1, func() (any, error) { called = true; return 42, nil })
	j.MarkReady()
	tr.Register(j)

	lookup := func(name string) (uint64, bool) { return 1, true }
	results := tr.Poll(lookup)

	if len(results) != 1 || !results[0].Integrated || results[0].Stale {
		t.Fatalf("expected one integrated result, got %v", results)
	}
	if !called {
		t.Fatal("expected onReady to be invoked")
	}
	if tr.Len() != 0 {
		t.Fatalf("expected the job to be removed after integration, got len %d", tr.Len())
	}
}

func TestPollDiscardsStaleGenerationSilently(t *testing.T) {
	tr := NewTracker(64)
	called := false
	j := NewJob("res", 0, 1, func() (any, error) { called = true; return 42, nil })
	j.MarkReady()
	tr.Register(j)

	lookup := func(name string) (uint64, bool) { return 2, true } // generation bumped since submission
	results := tr.Poll(lookup)

	if len(results) != 1 || !results[0].Stale || results[0].Integrated {
		t.Fatalf("expected one stale result, got %v", results)
	}
	if called {
		t.Fatal("onReady must not be invoked for a stale completion")
	}
}

func TestPollReportsFailedJobs(t *testing.T) {
	tr := NewTracker(64)
	j := NewJob("res", 0, 1, func() (any, error) { return nil, nil })
	j.MarkFailed(errors.New("load error"))
	tr.Register(j)

	results := tr.Poll(nil)
	if len(results) != 1 || results[0].Err == nil {
		t.Fatalf("expected a failed result with an error, got %v", results)
	}
}

func TestPollRespectsPerTickCap(t *testing.T) {
	tr := NewTracker(2)
	for i := 0; i < 5; i++ {
		j := NewJob("res", 0, 1, func() (any, error) { return nil, nil })
		j.MarkReady()
		tr.Register(j)
	}

	results := tr.Poll(func(string) (uint64, bool) { return 1, true })
	if len(results) != 2 {
		t.Fatalf("expected exactly PerTickCap=2 results, got %d", len(results))
	}
	if tr.Len() != 3 {
		t.Fatalf("expected 3 jobs to remain for the next poll, got %d", tr.Len())
	}
}
