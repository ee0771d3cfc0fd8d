package orchestrator

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/lixenwraith/frameorc/core"
	"github.com/lixenwraith/frameorc/demo"
	"github.com/lixenwraith/frameorc/framecontext"
	"github.com/lixenwraith/frameorc/graphics"
	"github.com/lixenwraith/frameorc/observability"
	"github.com/lixenwraith/frameorc/phase"
	"github.com/lixenwraith/frameorc/reclaim"
)

func newTestOrchestrator(t *testing.T, targetFPS int) *Orchestrator {
	t.Helper()
	facade := graphics.NewSimulated(2)
	o := New(Options{
		Immutable: framecontext.Immutable{EngineName: "test", TargetFPS: targetFPS, SafetyDelay: 2},
		Facade:    facade,
		Sink:      core.NewSink(nil),
		TargetFPS: targetFPS,
	})
	return o
}

func runToCompletion(t *testing.T, o *Orchestrator, frames int) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	started := make(chan struct{})
	go o.StartAsync(ctx, started)
	<-started

	o.Run(ctx, frames)

	select {
	case err := <-o.Completed():
		if err != nil {
			t.Fatalf("unexpected orchestrator error: %v", err)
		}
	case <-ctx.Done():
		t.Fatal("timed out waiting for orchestrator completion")
	}
	o.Stop(ctx)
}

// Scenario A: a 3-frame run with no registered modules and target_fps=0
// (uncapped) ends with FrameIndex at 2.
func TestScenarioA_BasicRunNoModules(t *testing.T) {
	o := newTestOrchestrator(t, 0)
	runToCompletion(t, o, 3)

	if got := o.Context().EngineState.FrameIndex(); got != 2 {
		t.Fatalf("expected FrameIndex 2 after 3 frames, got %d", got)
	}
}

// Scenario B: a high-priority module (priority 100) and a low-priority
// module (priority 800) both registered on Gameplay run in priority order.
func TestScenarioB_PriorityOrdering(t *testing.T) {
	o := newTestOrchestrator(t, 0)
	const traceKey = "order_trace"

	if err := o.RegisterModule(demo.NewAlwaysSucceeds("low", 800, traceKey)); err != nil {
		t.Fatalf("register low: %v", err)
	}
	if err := o.RegisterModule(demo.NewAlwaysSucceeds("high", 100, traceKey)); err != nil {
		t.Fatalf("register high: %v", err)
	}

	runToCompletion(t, o, 1)

	v, ok := o.Context().GameState.Get(traceKey)
	if !ok {
		t.Fatal("expected trace to be set")
	}
	trace := v.([]string)
	if len(trace) != 2 || trace[0] != "high" || trace[1] != "low" {
		t.Fatalf("expected [high low], got %v", trace)
	}
}

// Scenario C: module A succeeds, module B fails, module C succeeds — all
// three participate on Gameplay, and B's failure does not prevent A or C
// from running.
func TestScenarioC_FailureIsolation(t *testing.T) {
	o := newTestOrchestrator(t, 0)
	const traceKey = "isolation_trace"

	if err := o.RegisterModule(demo.NewAlwaysSucceeds("a", 100, traceKey)); err != nil {
		t.Fatalf("register a: %v", err)
	}
	if err := o.RegisterModule(demo.NewAlwaysFails("b", 200)); err != nil {
		t.Fatalf("register b: %v", err)
	}
	if err := o.RegisterModule(demo.NewAlwaysSucceeds("c", 300, traceKey)); err != nil {
		t.Fatalf("register c: %v", err)
	}

	runToCompletion(t, o, 1)

	v, ok := o.Context().GameState.Get(traceKey)
	if !ok {
		t.Fatal("expected trace to be set despite b's failure")
	}
	trace := v.([]string)
	if len(trace) != 2 || trace[0] != "a" || trace[1] != "c" {
		t.Fatalf("expected [a c], got %v", trace)
	}
}

// A module hook failure increments the ModuleFailures counter when a
// Metrics instance is supplied, labeled by phase and module name.
func TestModuleFailureIncrementsMetric(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := observability.NewMetrics(reg)

	facade := graphics.NewSimulated(2)
	o := New(Options{
		Immutable: framecontext.Immutable{EngineName: "test"},
		Facade:    facade,
		Sink:      core.NewSink(nil),
		Metrics:   metrics,
	})
	if err := o.RegisterModule(demo.NewAlwaysFails("b", 200)); err != nil {
		t.Fatalf("register b: %v", err)
	}

	runToCompletion(t, o, 1)

	got := testutil.ToFloat64(metrics.ModuleFailures.WithLabelValues(phase.Gameplay.String(), "b"))
	if got != 1 {
		t.Fatalf("expected ModuleFailures{phase=Gameplay,module=b} == 1, got %v", got)
	}
}

// Scenario D: a module mutates the counter during TransformPropagation and
// a ParallelWork reader observes it via the published snapshot, not the
// live game state.
func TestScenarioD_SnapshotVisibility(t *testing.T) {
	o := newTestOrchestrator(t, 0)

	if err := o.RegisterModule(demo.NewCounter("counter", 100)); err != nil {
		t.Fatalf("register counter: %v", err)
	}
	if err := o.RegisterModule(demo.NewSnapshotReader("reader", 100, "counter_view")); err != nil {
		t.Fatalf("register reader: %v", err)
	}

	runToCompletion(t, o, 1)

	v, ok := o.Context().GameState.Get("parallel_result:reader")
	if !ok {
		t.Fatal("expected reader's parallel result to be stashed")
	}
	if v.(int) != 1 {
		t.Fatalf("expected snapshot-visible counter 1, got %v", v)
	}
}

// Scenario E: an entry scheduled for reclamation at frame 0 is retired once
// BeginFrame observes a completed frame >= its submission frame, under the
// facade's safety-delay completion model.
func TestScenarioE_DeferredReclaimGating(t *testing.T) {
	facade := graphics.NewSimulated(2)
	var retired []reclaim.Entry
	facade.OnRetire = func(entries []reclaim.Entry) {
		retired = append(retired, entries...)
	}
	facade.DeferredReclaimer().Schedule(reclaim.Entry{ResourceHandle: 1, SubmittedFrame: 0, DebugName: "h1"})

	o := New(Options{
		Immutable: framecontext.Immutable{EngineName: "test", SafetyDelay: 2},
		Facade:    facade,
		Sink:      core.NewSink(nil),
	})

	runToCompletion(t, o, 3)

	if len(retired) != 1 || retired[0].DebugName != "h1" {
		t.Fatalf("expected h1 retired by frame 2, got %v", retired)
	}
}

// Scenario F: with a target_fps of 100 the five-frame run takes at least
// 4 inter-frame intervals worth of wall-clock time, even when module work
// is near-instantaneous.
func TestScenarioF_Pacing(t *testing.T) {
	o := newTestOrchestrator(t, 100)

	start := time.Now()
	runToCompletion(t, o, 5)
	elapsed := time.Since(start)

	const tolerance = 10 * time.Millisecond
	min := 40*time.Millisecond - tolerance
	if elapsed < min {
		t.Fatalf("expected at least ~40ms of pacing for 5 frames at 100fps, got %v", elapsed)
	}
}

// Scenario G: ParallelWork beginning without a published snapshot is a
// fatal orchestrator error, not a downgraded warning.
func TestScenarioG_ParallelWorkFatalOnMissingSnapshot(t *testing.T) {
	o := newTestOrchestrator(t, 0)
	if err := o.RegisterModule(demo.NewSnapshotReader("reader", 100, "counter_view")); err != nil {
		t.Fatalf("register reader: %v", err)
	}

	o.fc.EngineState.SetPhase(o.cap, phase.ParallelWork)
	_, err := o.runParallelWork(context.Background(), o.fc)
	if err == nil {
		t.Fatal("expected a fatal error when ParallelWork begins without a published snapshot")
	}
}

// Scenario H: Pause halts frame advancement until Resume is called; no
// frames complete while paused.
func TestScenarioH_PauseResume(t *testing.T) {
	o := newTestOrchestrator(t, 0)
	o.Pause()
	if !o.IsPaused() {
		t.Fatal("expected IsPaused to report true after Pause")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	started := make(chan struct{})
	go o.StartAsync(ctx, started)
	<-started
	o.Run(ctx, 1)

	select {
	case <-o.Completed():
		t.Fatal("frame completed while orchestrator was paused")
	case <-time.After(30 * time.Millisecond):
	}

	o.Resume()
	if o.IsPaused() {
		t.Fatal("expected IsPaused to report false after Resume")
	}

	select {
	case err := <-o.Completed():
		if err != nil {
			t.Fatalf("unexpected orchestrator error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for completion after Resume")
	}
	o.Stop(ctx)
}
