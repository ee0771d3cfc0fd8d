// Package orchestrator owns the frame loop: it is the sole holder of the
// capability token gating FrameContext engine-state mutation, and the
// only place the 17-phase pipeline is advanced.
package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lixenwraith/frameorc/asyncpipeline"
	"github.com/lixenwraith/frameorc/clock"
	"github.com/lixenwraith/frameorc/constant"
	"github.com/lixenwraith/frameorc/core"
	"github.com/lixenwraith/frameorc/framecontext"
	"github.com/lixenwraith/frameorc/graphics"
	"github.com/lixenwraith/frameorc/module"
	"github.com/lixenwraith/frameorc/network"
	"github.com/lixenwraith/frameorc/observability"
	"github.com/lixenwraith/frameorc/paralleltask"
	"github.com/lixenwraith/frameorc/phase"
	"github.com/lixenwraith/frameorc/snapshot"
	"github.com/lixenwraith/frameorc/status"
	"github.com/lixenwraith/frameorc/threadpool"
)

// epochFrames sets how many frames elapse per Epoch tick.
const epochFrames = 60

// Options configures an Orchestrator at construction. Facade is required;
// a nil Sink is replaced by an in-memory one, and everything else has a
// working default.
type Options struct {
	Immutable      framecontext.Immutable
	Facade         graphics.Facade
	Sink           *core.Sink
	TargetFPS      int
	ThreadPoolSize int
	AsyncPerTick   int
	Reconciler     *network.Reconciler
	Metrics        *observability.Metrics
	OnFrameEnd     func(frameIndex uint64, elapsedMs float64)
}

// Orchestrator owns the ModuleManager, FrameContext, ThreadPool,
// ParallelTaskGroup, AsyncPipelineTracker, and Budget, and runs the frame
// loop on its own goroutine.
type Orchestrator struct {
	opts Options

	fc      *framecontext.Context
	cap     framecontext.Capability
	modules *module.Manager
	pool    *threadpool.Pool
	group   *paralleltask.Group
	tracker *asyncpipeline.Tracker
	budget  *clock.Budget
	runClock *clock.PausableClock
	facade  graphics.Facade
	sink    *core.Sink
	stats   *status.Registry

	running atomic.Bool
	stopCh  chan struct{}
	stopOnce sync.Once
	wg      sync.WaitGroup

	completedCh chan error
}

// New constructs an Orchestrator. RegisterModule must be called for every
// participant before Run.
func New(opts Options) *Orchestrator {
	if opts.Sink == nil {
		opts.Sink = core.NewSink(nil)
	}
	if opts.AsyncPerTick <= 0 {
		opts.AsyncPerTick = 64
	}

	o := &Orchestrator{
		opts:   opts,
		cap:    framecontext.NewCapability(),
		pool:   threadpool.New(opts.ThreadPoolSize),
		tracker: asyncpipeline.NewTracker(opts.AsyncPerTick),
		budget: clock.New(opts.TargetFPS),
		runClock: clock.NewPausableClock(),
		facade: opts.Facade,
		sink:   opts.Sink,
		stats:  status.NewRegistry(),
		stopCh: make(chan struct{}),
		completedCh: make(chan error, 1),
	}
	o.group = paralleltask.NewGroup(o.pool)
	o.runClock.OnResume(func(paused time.Duration) {
		o.sink.Report(core.Diagnostic{
			Severity: core.SeverityInfo,
			Code:     "run-resumed",
			Message:  fmt.Sprintf("frame loop resumed after %s paused", paused),
		})
	})
	o.modules = module.NewManager(func(f module.FailureReport) {
		o.sink.Report(core.Diagnostic{
			Severity:       core.SeverityWarn,
			Code:           "module-failure",
			Message:        fmt.Sprintf("%s hook failed in %s: %v", f.Kind, f.Phase, f.Err),
			RelatedModules: []string{f.Module},
			Frame:          o.fc.EngineState.FrameIndex(),
		})
		if o.opts.Metrics != nil {
			o.opts.Metrics.ModuleFailures.WithLabelValues(f.Phase.String(), f.Module).Inc()
		}
	})
	o.fc = framecontext.New(opts.Immutable, func(code, message string) {
		o.sink.Report(core.Diagnostic{Severity: core.SeverityWarn, Code: code, Message: message})
	})
	return o
}

// RegisterModule takes ownership of m; must be called before Run.
func (o *Orchestrator) RegisterModule(m *module.Module) error {
	return o.modules.Register(m)
}

// StartAsync opens the orchestrator's structured scope: it runs module
// initialization and signals readiness on started. The scope itself has
// no further lifetime of its own beyond what Run/Stop drive; the
// cooperative-task contract is satisfied by this call blocking until Stop
// is called or ctx is done.
func (o *Orchestrator) StartAsync(ctx context.Context, started chan<- struct{}) {
	o.running.Store(true)
	o.modules.InitializeAll(ctx, o.fc)
	if o.opts.Reconciler != nil {
		_ = o.opts.Reconciler.Start()
	}
	if started != nil {
		close(started)
	}
	select {
	case <-o.stopCh:
	case <-ctx.Done():
	}
}

// Run schedules frameCount frames on the held scope; fire-and-forget with
// respect to the caller. Completion (success or the first fatal error) is
// signaled on Completed().
func (o *Orchestrator) Run(ctx context.Context, frameCount int) {
	o.wg.Add(1)
	core.Go(func() {
		defer o.wg.Done()
		o.runFrames(ctx, frameCount)
	})
}

func (o *Orchestrator) runFrames(ctx context.Context, frameCount int) {
	var runErr error
frameLoop:
	for i := 0; i < frameCount; i++ {
		select {
		case <-o.stopCh:
			break frameLoop
		default:
		}
		if !o.running.Load() {
			break
		}
		if o.runClock.IsPaused() {
			i--
			select {
			case <-o.stopCh:
				break frameLoop
			case <-time.After(constant.EventLoopInterval):
			}
			continue
		}
		if err := o.runFrame(ctx); err != nil {
			runErr = err
			break
		}
	}
	select {
	case o.completedCh <- runErr:
	default:
	}
}

// Pause halts frame advancement before the next frame begins; the
// in-flight frame still completes. Idempotent.
func (o *Orchestrator) Pause() { o.runClock.Pause() }

// Resume continues frame advancement after Pause. Idempotent.
func (o *Orchestrator) Resume() { o.runClock.Resume() }

// IsPaused reports whether the frame loop is currently paused.
func (o *Orchestrator) IsPaused() bool { return o.runClock.IsPaused() }

// RunTime returns elapsed run time since construction, net of any time
// spent paused.
func (o *Orchestrator) RunTime() time.Duration { return o.runClock.Elapsed() }

// Completed returns a channel receiving nil on a clean completion of the
// requested frame count, or a fatal orchestrator error.
func (o *Orchestrator) Completed() <-chan error {
	return o.completedCh
}

// Stop is cooperative: it sets the running flag false; the in-flight
// frame completes before shutdown. Idempotent.
func (o *Orchestrator) Stop(ctx context.Context) {
	o.stopOnce.Do(func() {
		o.running.Store(false)
		close(o.stopCh)
	})
	o.wg.Wait()
	o.modules.ShutdownAll(ctx, o.fc)
	if o.opts.Reconciler != nil {
		_ = o.opts.Reconciler.Stop()
	}
	o.pool.Stop()
}

// Context exposes the FrameContext for tests and reference modules.
func (o *Orchestrator) Context() *framecontext.Context { return o.fc }

// runFrame advances one frame through all 17 phases.
func (o *Orchestrator) runFrame(ctx context.Context) error {
	fc := o.fc
	o.budget.BeginFrame()

	// 1. FrameStart
	fc.EngineState.SetPhase(o.cap, phase.FrameStart)
	fc.EngineState.AdvanceFrame(o.cap, epochFrames)
	o.facade.BeginFrame(fc.EngineState.FrameIndex())
	fc.EngineState.ResetFrameFlags(o.cap)

	// 2. Input
	fc.EngineState.SetPhase(o.cap, phase.Input)
	o.modules.DispatchOrdered(ctx, fc, phase.Input)

	// 3. NetworkReconciliation
	fc.EngineState.SetPhase(o.cap, phase.NetworkReconciliation)
	if o.opts.Reconciler != nil {
		o.opts.Reconciler.ApplyTo(ctx, func(u network.StateUpdate) {
			if fc.CanMutateGameState() {
				fc.GameState.Set(u.Key, u.Value)
			}
		})
	}
	o.modules.DispatchOrdered(ctx, fc, phase.NetworkReconciliation)

	// 4. RandomSeedManagement — after NetworkReconciliation, before
	// FixedSimulation, per the determinism-after-reconciliation placement.
	fc.EngineState.SetPhase(o.cap, phase.RandomSeedManagement)
	o.modules.DispatchOrdered(ctx, fc, phase.RandomSeedManagement)

	// 5. FixedSimulation
	fc.EngineState.SetPhase(o.cap, phase.FixedSimulation)
	o.modules.DispatchOrdered(ctx, fc, phase.FixedSimulation)

	// 6. Gameplay
	fc.EngineState.SetPhase(o.cap, phase.Gameplay)
	o.modules.DispatchOrdered(ctx, fc, phase.Gameplay)

	// 7. SceneMutation
	fc.EngineState.SetPhase(o.cap, phase.SceneMutation)
	o.modules.DispatchOrdered(ctx, fc, phase.SceneMutation)

	// 8. TransformPropagation
	fc.EngineState.SetPhase(o.cap, phase.TransformPropagation)
	o.modules.DispatchOrdered(ctx, fc, phase.TransformPropagation)

	// 9. Snapshot — barrier B4.
	fc.EngineState.SetPhase(o.cap, phase.Snapshot)
	o.publishSnapshot(fc)

	// 10. ParallelWork — barrier B5.
	fc.EngineState.SetPhase(o.cap, phase.ParallelWork)
	parallelResults, err := o.runParallelWork(ctx, fc)
	if err != nil {
		return err
	}

	// 11. PostParallel — integration of ParallelWork results happens here,
	// under the PostParallel marker, so modules reading them via
	// CanMutateGameState see a single-writer ordered phase.
	fc.EngineState.SetPhase(o.cap, phase.PostParallel)
	o.integrateParallelResults(fc, parallelResults)
	o.modules.DispatchOrdered(ctx, fc, phase.PostParallel)

	// 12. FrameGraph
	fc.EngineState.SetPhase(o.cap, phase.FrameGraph)
	o.modules.DispatchOrdered(ctx, fc, phase.FrameGraph)
	o.facade.DescriptorAllocator().Publish()

	// 13. CommandRecord — barrier B6.
	fc.EngineState.SetPhase(o.cap, phase.CommandRecord)
	o.runCommandRecord(ctx, fc)

	// 14. Present
	fc.EngineState.SetPhase(o.cap, phase.Present)
	o.present(fc)

	// 15. AsyncPoll
	fc.EngineState.SetPhase(o.cap, phase.AsyncPoll)
	o.pollAsync(ctx, fc)

	// 16. BudgetAdapt
	fc.EngineState.SetPhase(o.cap, phase.BudgetAdapt)
	hint, elapsed := o.budget.Adapt(ctx)
	fc.EngineState.SetBudgetHint(o.cap, toBudgetHint(hint))

	// 17. FrameEnd
	fc.EngineState.SetPhase(o.cap, phase.FrameEnd)
	o.modules.DispatchOrdered(ctx, fc, phase.FrameEnd)

	elapsedMs := float64(elapsed.Microseconds()) / 1000
	o.updateStats(fc, elapsedMs)

	if o.opts.OnFrameEnd != nil {
		o.opts.OnFrameEnd(fc.EngineState.FrameIndex(), elapsedMs)
	}
	return nil
}

// updateStats mirrors per-frame timing and backlog figures into the
// in-process status registry, a cheap local read path that doesn't require
// scraping the Prometheus endpoint.
func (o *Orchestrator) updateStats(fc *framecontext.Context, elapsedMs float64) {
	o.stats.Ints.Get("frame_index").Store(int64(fc.EngineState.FrameIndex()))
	o.stats.Floats.Get("frame_duration_ms").Set(elapsedMs)
	o.stats.Ints.Get("reclaim_pending").Store(int64(o.facade.DeferredReclaimer().Pending()))
	o.stats.Ints.Get("async_in_flight").Store(int64(o.tracker.Len()))
	o.stats.Floats.Get("run_time_ms").Set(float64(o.runClock.Elapsed().Microseconds()) / 1000)
}

// Stats exposes the in-process status registry for tests and callers that
// want the latest frame figures without scraping /metrics.
func (o *Orchestrator) Stats() *status.Registry { return o.stats }

func toBudgetHint(h int) framecontext.BudgetHint {
	switch {
	case h < 0:
		return framecontext.BudgetDegrade
	case h > 0:
		return framecontext.BudgetUpgrade
	default:
		return framecontext.BudgetSteady
	}
}

// publishSnapshot builds a GameStateSnapshot from current game state and
// publishes it to the inactive double-buffer slot, then atomic-swaps
// visible_index.
func (o *Orchestrator) publishSnapshot(fc *framecontext.Context) {
	game := &snapshot.GameStateSnapshot{
		FrameIndex: fc.EngineState.FrameIndex(),
		Epoch:      fc.EngineState.Epoch(),
		Values:     fc.GameState.Snapshot(),
	}
	frame := &snapshot.FrameSnapshot{
		FrameIndex: game.FrameIndex,
		Epoch:      game.Epoch,
		Game:       game,
	}
	fc.Snapshots().Publish(frame)
}

// runParallelWork schedules one task per participating module, joins at the
// barrier, and returns the raw results for PostParallel to integrate. A
// missing published snapshot is a fatal orchestrator error at this barrier:
// it aborts the frame rather than degrading to a warning, since no parallel
// task can be given a consistent read-only view of game state.
func (o *Orchestrator) runParallelWork(ctx context.Context, fc *framecontext.Context) ([]paralleltask.Result, error) {
	snap := fc.SnapshotView()
	if snap == nil {
		err := fmt.Errorf("ParallelWork began at frame %d without a published snapshot", fc.EngineState.FrameIndex())
		o.sink.Report(core.Diagnostic{
			Severity: core.SeverityError,
			Code:     "snapshot-not-published",
			Message:  err.Error(),
			Frame:    fc.EngineState.FrameIndex(),
		})
		return nil, err
	}

	participants := o.modules.ParallelParticipants()
	if len(participants) == 0 {
		return nil, nil
	}

	tasks := make(map[string]paralleltask.Task, len(participants))
	for _, mod := range participants {
		mod := mod
		tasks[mod.Name] = func(taskCtx context.Context, in paralleltask.Input) (any, error) {
			return mod.Hooks.Parallel(taskCtx, in)
		}
	}

	return o.group.Run(ctx, paralleltask.Input{Snapshot: *snap}, tasks), nil
}

// integrateParallelResults stashes each successful ParallelWork result into
// game state under a reserved key, so PostParallel hooks can retrieve it.
// Called under the PostParallel phase marker.
func (o *Orchestrator) integrateParallelResults(fc *framecontext.Context, results []paralleltask.Result) {
	for _, r := range results {
		if r.Err != nil {
			o.sink.Report(core.Diagnostic{
				Severity:       core.SeverityWarn,
				Code:           "parallel-task-failure",
				Message:        r.Err.Error(),
				RelatedModules: []string{r.Name},
				Frame:          fc.EngineState.FrameIndex(),
			})
			continue
		}
		fc.GameState.Set("parallel_result:"+r.Name, r.Value)
	}
}

// runCommandRecord schedules a record-then-submit task per surface on the
// thread pool (same worker does both, avoiding cross-thread command-buffer
// handoff), then joins at B6.
func (o *Orchestrator) runCommandRecord(ctx context.Context, fc *framecontext.Context) {
	surfaces := fc.EngineState.Surfaces()
	if len(surfaces) == 0 {
		return
	}

	futures := make([]*threadpool.Future[string], 0, len(surfaces))
	for _, name := range surfaces {
		name := name
		futures = append(futures, threadpool.Submit(o.pool, ctx, func(taskCtx context.Context) (string, error) {
			// record, then submit, on the same worker.
			fc.EngineState.MarkPresentable(o.cap, name)
			return name, nil
		}))
	}
	for _, f := range futures {
		_, _ = f.Wait()
	}
}

// present invokes the graphics facade with every presentable surface, in
// deterministic registration order.
func (o *Orchestrator) present(fc *framecontext.Context) {
	var presentable []string
	for _, name := range fc.EngineState.Surfaces() {
		if fc.EngineState.IsPresentable(name) {
			presentable = append(presentable, name)
		}
	}
	o.facade.PresentSurfaces(presentable)
	o.facade.EndFrame()
}

// pollAsync integrates up to the per-tick cap of ready/failed jobs.
func (o *Orchestrator) pollAsync(ctx context.Context, fc *framecontext.Context) {
	jobs := o.modules.DispatchAsync(ctx, fc, phase.AsyncPoll)
	for _, j := range jobs {
		o.tracker.Register(j)
	}

	results := o.tracker.Poll(o.facade.ResourceRegistry().GenerationByName)
	for _, r := range results {
		switch {
		case r.Stale:
			continue
		case r.Err != nil:
			o.sink.Report(core.Diagnostic{
				Severity:       core.SeverityWarn,
				Code:           "async-job-failure",
				Message:        r.Err.Error(),
				RelatedModules: []string{r.Job.Name},
				Frame:          fc.EngineState.FrameIndex(),
			})
		}
	}
}
