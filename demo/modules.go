// Package demo provides reference Module implementations exercised by the
// CLI harness and by orchestrator tests: a counter module that mutates
// game state, a reader that consumes the published snapshot, and a
// failing module used to demonstrate failure isolation.
package demo

import (
	"context"
	"fmt"

	"github.com/lixenwraith/frameorc/constant"
	"github.com/lixenwraith/frameorc/framecontext"
	"github.com/lixenwraith/frameorc/module"
	"github.com/lixenwraith/frameorc/paralleltask"
	"github.com/lixenwraith/frameorc/phase"
)

// CounterKey is the game-state key the Counter module increments.
const CounterKey = "demo.counter"

// NewCounter builds a module that increments CounterKey by one every
// TransformPropagation phase.
func NewCounter(name string, priority int) *module.Module {
	return &module.Module{
		Name:            name,
		Priority:        priority,
		SupportedPhases: phase.With(phase.TransformPropagation),
		Hooks: module.HookTable{
			Ordered: map[phase.Phase]module.OrderedHook{
				phase.TransformPropagation: func(_ context.Context, fc *framecontext.Context) error {
					current := 0
					if v, ok := fc.GameState.Get(CounterKey); ok {
						current = v.(int)
					}
					fc.GameState.Set(CounterKey, current+1)
					return nil
				},
			},
		},
	}
}

// NewSnapshotReader builds a module whose ParallelWork hook reads
// CounterKey out of the published snapshot and returns it as the task's
// result, which the orchestrator stores in game state under
// "parallel_result:"+name. resultKey is not used.
func NewSnapshotReader(name string, priority int, resultKey string) *module.Module {
	return &module.Module{
		Name:            name,
		Priority:        priority,
		SupportedPhases: phase.With(phase.ParallelWork),
		Hooks: module.HookTable{
			Parallel: func(_ context.Context, in paralleltask.Input) (any, error) {
				v, _ := in.Snapshot.Get(CounterKey)
				return v, nil
			},
		},
	}
}

// NewAlwaysFails builds a module whose Gameplay hook always returns an
// error, to exercise dispatch's failure-isolation contract.
func NewAlwaysFails(name string, priority int) *module.Module {
	return &module.Module{
		Name:            name,
		Priority:        priority,
		SupportedPhases: phase.With(phase.Gameplay),
		Hooks: module.HookTable{
			Ordered: map[phase.Phase]module.OrderedHook{
				phase.Gameplay: func(_ context.Context, _ *framecontext.Context) error {
					return fmt.Errorf("demo: %s always fails", name)
				},
			},
		},
	}
}

// NewAlwaysSucceeds builds a module whose Gameplay hook appends its name
// to a trace slice on the game state, under traceKey, so tests can assert
// dispatch ordering.
func NewAlwaysSucceeds(name string, priority int, traceKey string) *module.Module {
	return &module.Module{
		Name:            name,
		Priority:        priority,
		SupportedPhases: phase.With(phase.Gameplay),
		Hooks: module.HookTable{
			Ordered: map[phase.Phase]module.OrderedHook{
				phase.Gameplay: func(_ context.Context, fc *framecontext.Context) error {
					trace, _ := fc.GameState.Get(traceKey)
					var entries []string
					if trace != nil {
						entries = trace.([]string)
					}
					entries = append(entries, name)
					fc.GameState.Set(traceKey, entries)
					return nil
				},
			},
		},
	}
}

// NewSurfacePresenter registers a surface name and declares participation
// in FrameGraph so it shows up in the presentable set for CommandRecord
// and Present to exercise.
func NewSurfacePresenter(name string, priority int, surfaceName string) *module.Module {
	return &module.Module{
		Name:            name,
		Priority:        priority,
		SupportedPhases: phase.With(phase.FrameGraph),
		Hooks: module.HookTable{
			Ordered: map[phase.Phase]module.OrderedHook{
				phase.FrameGraph: func(_ context.Context, fc *framecontext.Context) error {
					fc.EngineState.RegisterSurface(surfaceName)
					return nil
				},
			},
		},
	}
}

// DefaultSafetyDelay exposes constant.SafetyDelay for demo wiring without
// requiring callers to import the constant package themselves.
const DefaultSafetyDelay = constant.SafetyDelay
