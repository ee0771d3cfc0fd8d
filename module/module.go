// Package module defines the participant contract (capability set, not a
// virtual hierarchy) and the priority-sorted manager that dispatches
// phases to registered modules.
package module

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/lixenwraith/frameorc/asyncpipeline"
	"github.com/lixenwraith/frameorc/core"
	"github.com/lixenwraith/frameorc/framecontext"
	"github.com/lixenwraith/frameorc/paralleltask"
	"github.com/lixenwraith/frameorc/phase"
)

// OrderedHook runs on the orchestrator thread during an ordered phase. It
// may block (the cooperative-task "may suspend" contract maps to an
// ordinary blocking Go call here) but must return before the next
// module's hook in the same phase begins.
type OrderedHook func(ctx context.Context, fc *framecontext.Context) error

// ParallelHook runs on a ThreadPool worker during ParallelWork. It
// receives a FrameSnapshot by value and writes its result into a
// task-private output; it must never mutate shared game state.
type ParallelHook func(ctx context.Context, snap paralleltaskSnapshot) (any, error)

// AsyncHook is invoked once per frame during the phase the module
// supports to let it register multi-frame jobs with the tracker. It
// returns any newly registered jobs.
type AsyncHook func(ctx context.Context, fc *framecontext.Context) ([]*asyncpipeline.Job, error)

// DetachedHook is launched fire-and-forget; the manager never awaits it.
type DetachedHook func(ctx context.Context, fc *framecontext.Context)

// LifecycleHook runs during initialize_all / shutdown_all.
type LifecycleHook func(ctx context.Context, fc *framecontext.Context) error

// HookTable is the small, fixed record of function pointers a module
// supplies — unused hooks are simply left nil, which costs nothing and
// requires no code, unlike an inheritance hierarchy of no-op overrides.
type HookTable struct {
	Ordered    map[phase.Phase]OrderedHook
	Parallel   ParallelHook
	Async      AsyncHook
	Detached   DetachedHook
	Initialize LifecycleHook
	Shutdown   LifecycleHook
}

// Module is an opaque participant record: name, priority, supported phase
// set, and a hook table. No open-ended virtual hierarchy is required.
type Module struct {
	Name            string
	Priority        int
	SupportedPhases phase.Set
	Hooks           HookTable
}

// paralleltaskSnapshot is a local alias for paralleltask.Input, the value
// (snapshot included) a ParallelHook receives.
type paralleltaskSnapshot = paralleltask.Input

// FailureReport describes a single module hook failure, suitable for the
// structured diagnostics sink.
type FailureReport struct {
	Phase  phase.Phase
	Module string
	Kind   string
	Err    error
}

// Manager holds the priority-sorted module vector and performs ordered,
// parallel, async, and detached dispatch.
type Manager struct {
	mu      sync.Mutex
	modules []*Module
	names   map[string]bool

	onFailure func(FailureReport)
}

// NewManager constructs an empty Manager. onFailure receives every module
// hook failure (phase, module name, diagnostic); it must never panic.
func NewManager(onFailure func(FailureReport)) *Manager {
	if onFailure == nil {
		onFailure = func(FailureReport) {}
	}
	return &Manager{names: make(map[string]bool), onFailure: onFailure}
}

// Register inserts m into the sorted module vector by (priority,
// insertion_index). Returns an error if a module with the same name is
// already registered — duplicate names are a misuse, not a fatal error.
func (m *Manager) Register(mod *Module) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.names[mod.Name] {
		return fmt.Errorf("module %q already registered", mod.Name)
	}
	m.names[mod.Name] = true
	m.modules = append(m.modules, mod)
	sort.SliceStable(m.modules, func(i, j int) bool {
		return m.modules[i].Priority < m.modules[j].Priority
	})
	return nil
}

// All returns a snapshot copy of the registered modules in dispatch order.
func (m *Manager) All() []*Module {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*Module, len(m.modules))
	copy(out, m.modules)
	return out
}

// InitializeAll runs each module's Initialize hook, ordered by priority. A
// failure is reported and the sequence continues.
func (m *Manager) InitializeAll(ctx context.Context, fc *framecontext.Context) {
	for _, mod := range m.All() {
		if mod.Hooks.Initialize == nil {
			continue
		}
		if err := safeCall(func() error { return mod.Hooks.Initialize(ctx, fc) }); err != nil {
			m.onFailure(FailureReport{Module: mod.Name, Kind: "initialize", Err: err})
		}
	}
}

// ShutdownAll runs each module's Shutdown hook in reverse priority order.
func (m *Manager) ShutdownAll(ctx context.Context, fc *framecontext.Context) {
	all := m.All()
	for i := len(all) - 1; i >= 0; i-- {
		mod := all[i]
		if mod.Hooks.Shutdown == nil {
			continue
		}
		if err := safeCall(func() error { return mod.Hooks.Shutdown(ctx, fc) }); err != nil {
			m.onFailure(FailureReport{Module: mod.Name, Kind: "shutdown", Err: err})
		}
	}
}

// DispatchOrdered runs the hook for p on every participating module, in
// sorted order, one at a time — no module begins until the prior has
// returned. A module failure is caught and reported; dispatch continues.
func (m *Manager) DispatchOrdered(ctx context.Context, fc *framecontext.Context, p phase.Phase) {
	for _, mod := range m.All() {
		if !mod.SupportedPhases.Has(p) {
			continue
		}
		hook := mod.Hooks.Ordered[p]
		if hook == nil {
			continue
		}
		if err := safeCall(func() error { return hook(ctx, fc) }); err != nil {
			m.onFailure(FailureReport{Phase: p, Module: mod.Name, Kind: "ordered", Err: err})
		}
	}
}

// DispatchAsync invokes the Async hook for every module supporting
// AsyncPoll-adjacent registration, collecting newly submitted jobs. Each
// hook's own failure is isolated from the others.
func (m *Manager) DispatchAsync(ctx context.Context, fc *framecontext.Context, p phase.Phase) []*asyncpipeline.Job {
	var jobs []*asyncpipeline.Job
	for _, mod := range m.All() {
		if !mod.SupportedPhases.Has(p) || mod.Hooks.Async == nil {
			continue
		}
		var submitted []*asyncpipeline.Job
		err := safeCall(func() error {
			var e error
			submitted, e = mod.Hooks.Async(ctx, fc)
			return e
		})
		if err != nil {
			m.onFailure(FailureReport{Phase: p, Module: mod.Name, Kind: "async", Err: err})
			continue
		}
		jobs = append(jobs, submitted...)
	}
	return jobs
}

// DispatchDetached launches the Detached hook of every participating
// module fire-and-forget; the manager never awaits them.
func (m *Manager) DispatchDetached(ctx context.Context, fc *framecontext.Context, p phase.Phase) {
	for _, mod := range m.All() {
		if !mod.SupportedPhases.Has(p) || mod.Hooks.Detached == nil {
			continue
		}
		mod := mod
		core.Go(func() { mod.Hooks.Detached(ctx, fc) })
	}
}

// ParallelParticipants returns every module supporting ParallelWork, for
// the ParallelTaskGroup to schedule one task per module.
func (m *Manager) ParallelParticipants() []*Module {
	var out []*Module
	for _, mod := range m.All() {
		if mod.SupportedPhases.Has(phase.ParallelWork) && mod.Hooks.Parallel != nil {
			out = append(out, mod)
		}
	}
	return out
}

func safeCall(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn()
}
