// Package framecontext implements the per-frame coordination object shared
// by every module hook: a layered, capability-gated view over engine
// configuration, engine state, game state, and the published snapshot.
package framecontext

import (
	"sync"
	"sync/atomic"

	"github.com/lixenwraith/frameorc/phase"
	"github.com/lixenwraith/frameorc/snapshot"
)

// Debug enables assertions on capability misuse (panic instead of a
// silent no-op with a warning). The reference CLI harness leaves this
// false; tests exercising the misuse path set it true.
var Debug bool

type capabilityToken struct{}

// the single real token; any Capability whose tok does not point at this
// value is a zero-value literal, not one handed out by NewCapability.
var realToken = &capabilityToken{}

// Capability is a token required to perform engine-state mutations on
// FrameContext. NewCapability is the only way to produce a valid one; a
// zero-value Capability{} (what a package outside the trust boundary gets
// by construction without calling NewCapability) fails every validity
// check a mutator performs.
type Capability struct {
	tok *capabilityToken
}

// NewCapability mints a valid Capability. By convention only the
// orchestrator, at construction, calls this.
func NewCapability() Capability {
	return Capability{tok: realToken}
}

func (c Capability) valid() bool { return c.tok == realToken }

// Immutable holds engine configuration set once at startup and never
// mutated after construction — no capability is required to read it.
type Immutable struct {
	EngineName   string
	TargetFPS    int
	SafetyDelay  uint64
	ShaderDB     map[string]string
	AssetCatalog map[string]string
}

// BudgetHint is the hysteresis-smoothed pacing signal modules may read to
// adapt their own workload.
type BudgetHint int

const (
	BudgetSteady BudgetHint = iota
	BudgetDegrade
	BudgetUpgrade
)

// EngineState is the mutable, capability-gated layer: graphics backend
// binding, fence/epoch markers, frame timing, and the current phase
// marker. Readers use atomic loads; writers must hold a Capability.
type EngineState struct {
	frameIndex   atomic.Uint64
	frameStarted atomic.Bool
	epoch        atomic.Uint64
	currentPhase atomic.Int32
	budgetHint   atomic.Int32

	mu              sync.RWMutex
	surfaces        []string
	presentableSet  map[string]bool
	graphicsBackend string

	diagWarn func(code, message string)
}

// checkCapability enforces the capability contract: a valid token allows
// the mutation; an invalid one is a silent no-op with a warning in
// release builds, or a panic when Debug is set.
func (e *EngineState) checkCapability(cap Capability, op string) bool {
	if cap.valid() {
		return true
	}
	if Debug {
		panic("framecontext: capability-less mutation attempted: " + op)
	}
	if e.diagWarn != nil {
		e.diagWarn("capability-missing", op+" attempted without a valid capability")
	}
	return false
}

// FrameIndex returns the current frame index (acquire load).
func (e *EngineState) FrameIndex() uint64 { return e.frameIndex.Load() }

// Epoch returns the current epoch counter (acquire load).
func (e *EngineState) Epoch() uint64 { return e.epoch.Load() }

// CurrentPhase returns the phase marker last set by the orchestrator.
func (e *EngineState) CurrentPhase() phase.Phase {
	return phase.Phase(e.currentPhase.Load())
}

// BudgetHintValue returns the latest pacing hint.
func (e *EngineState) BudgetHintValue() BudgetHint {
	return BudgetHint(e.budgetHint.Load())
}

// AdvanceFrame bumps FrameIndex and, every epochFrames frames, Epoch. Only
// the FrameStart phase may call this; it requires cap. The first call
// leaves FrameIndex at its zero value so frame numbering starts at 0.
func (e *EngineState) AdvanceFrame(cap Capability, epochFrames uint64) {
	if !e.checkCapability(cap, "advance_frame") {
		return
	}
	var next uint64
	if e.frameStarted.CompareAndSwap(false, true) {
		next = e.frameIndex.Load()
	} else {
		next = e.frameIndex.Add(1)
	}
	if epochFrames > 0 && next%epochFrames == 0 {
		e.epoch.Add(1)
	}
}

// SetPhase records the current phase marker. Requires cap.
func (e *EngineState) SetPhase(cap Capability, p phase.Phase) {
	if !e.checkCapability(cap, "set_phase") {
		return
	}
	e.currentPhase.Store(int32(p))
}

// SetBudgetHint records the latest pacing hint. Requires cap.
func (e *EngineState) SetBudgetHint(cap Capability, h BudgetHint) {
	if !e.checkCapability(cap, "set_budget_hint") {
		return
	}
	e.budgetHint.Store(int32(h))
}

// Surfaces returns a copy of the registered surface names, in registration
// order (presentation order).
func (e *EngineState) Surfaces() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]string, len(e.surfaces))
	copy(out, e.surfaces)
	return out
}

// RegisterSurface adds a surface name if not already present. No
// capability required: surface registration is a setup-time operation, not
// a per-frame engine-state mutation.
func (e *EngineState) RegisterSurface(name string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, s := range e.surfaces {
		if s == name {
			return
		}
	}
	e.surfaces = append(e.surfaces, name)
}

// MarkPresentable adds name to this frame's presentable set. Requires cap.
func (e *EngineState) MarkPresentable(cap Capability, name string) {
	if !e.checkCapability(cap, "mark_presentable") {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.presentableSet == nil {
		e.presentableSet = make(map[string]bool)
	}
	e.presentableSet[name] = true
}

// IsPresentable reports whether name was marked presentable this frame.
func (e *EngineState) IsPresentable(name string) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.presentableSet[name]
}

// ResetFrameFlags clears per-frame surface flags. Requires cap; called at
// FrameStart.
func (e *EngineState) ResetFrameFlags(cap Capability) {
	if !e.checkCapability(cap, "reset_frame_flags") {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.presentableSet = make(map[string]bool)
}

// GameState is the layer mutable only during Category-A ordered phases.
// Parallel phases observe it exclusively through a published snapshot.
type GameState struct {
	mu     sync.RWMutex
	values map[string]any
}

func newGameState() *GameState {
	return &GameState{values: make(map[string]any)}
}

// Set writes a named game-state value. Callers are expected to have
// checked Context.CanMutateGameState first; Set itself does not enforce
// phase gating so that tests may seed state before run() starts.
func (g *GameState) Set(key string, val any) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.values[key] = val
}

// Get reads a named game-state value.
func (g *GameState) Get(key string) (any, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	v, ok := g.values[key]
	return v, ok
}

// Snapshot returns a shallow copy of all game-state values, used by the
// snapshot publisher to build a GameStateSnapshot.
func (g *GameState) Snapshot() map[string]any {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make(map[string]any, len(g.values))
	for k, v := range g.values {
		out[k] = v
	}
	return out
}

// Context is the central per-frame coordination object. One instance is
// constructed by the orchestrator and reused across frames with per-frame
// reset via EngineState/Snapshot mutators.
type Context struct {
	Immutable   Immutable
	EngineState *EngineState
	GameState   *GameState

	snapshots *snapshot.Buffer

	diagWarn func(code, message string)
}

// New constructs a Context. diagWarn receives a structured warning whenever
// a phase-gated accessor is misused (capability missing, wrong phase); it
// must never panic.
func New(immutable Immutable, diagWarn func(code, message string)) *Context {
	if diagWarn == nil {
		diagWarn = func(string, string) {}
	}
	return &Context{
		Immutable:   immutable,
		EngineState: &EngineState{diagWarn: diagWarn},
		GameState:   newGameState(),
		snapshots:   snapshot.NewBuffer(),
		diagWarn:    diagWarn,
	}
}

// Snapshots exposes the double buffer to the orchestrator's
// SnapshotPublisher; modules never call this directly.
func (c *Context) Snapshots() *snapshot.Buffer { return c.snapshots }

// CanMutateGameState reports whether the current phase permits game-state
// mutation: any single-threaded orchestrator-thread phase, ordered or
// synchronous (FrameStart, Snapshot, Present), as opposed to ParallelWork's
// read-only snapshot view or AsyncPoll's integration-only contract.
func (c *Context) CanMutateGameState() bool {
	switch phase.CategoryOf(c.EngineState.CurrentPhase()) {
	case phase.CategoryOrdered, phase.CategorySynchronous:
		return true
	default:
		return false
	}
}

// SnapshotView returns the current FrameSnapshot iff the current phase is
// ParallelWork or later, pre-PostParallel. A misuse attempt logs a warning
// and returns nil — never panics.
func (c *Context) SnapshotView() *snapshot.FrameSnapshot {
	switch c.EngineState.CurrentPhase() {
	case phase.ParallelWork:
		return c.snapshots.Visible()
	default:
		c.diagWarn("snapshot-view-wrong-phase", "snapshot_view() called outside ParallelWork")
		return nil
	}
}

// RenderGraphBuilder returns a non-nil builder handle iff the current
// phase is FrameGraph. Modeled here as the Context itself, scoped by
// convention to FrameGraph-phase callers; a misuse attempt logs and
// returns nil.
func (c *Context) RenderGraphBuilder() *Context {
	if c.EngineState.CurrentPhase() != phase.FrameGraph {
		c.diagWarn("render-graph-wrong-phase", "render_graph_builder() called outside FrameGraph")
		return nil
	}
	return c
}

// Warn routes a module-observable misuse or soft-failure through the
// diagnostics sink without ever throwing.
func (c *Context) Warn(code, message string) {
	c.diagWarn(code, message)
}
