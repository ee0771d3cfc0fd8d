package module

import (
	"context"
	"errors"
	"testing"

	"github.com/lixenwraith/frameorc/framecontext"
	"github.com/lixenwraith/frameorc/phase"
)

func TestRegisterRejectsDuplicateNames(t *testing.T) {
	m := NewManager(nil)
	if err := m.Register(&Module{Name: "a"}); err != nil {
		t.Fatalf("unexpected error on first register: %v", err)
	}
	if err := m.Register(&Module{Name: "a"}); err == nil {
		t.Fatal("expected an error registering a duplicate name")
	}
}

func TestRegisterSortsByPriority(t *testing.T) {
	m := NewManager(nil)
	_ = m.Register(&Module{Name: "low", Priority: 800})
	_ = m.Register(&Module{Name: "high", Priority: 100})
	_ = m.Register(&Module{Name: "mid", Priority: 500})

	all := m.All()
	if len(all) != 3 || all[0].Name != "high" || all[1].Name != "mid" || all[2].Name != "low" {
		t.Fatalf("expected [high mid low], got %v", names(all))
	}
}

func TestDispatchOrderedIsolatesFailures(t *testing.T) {
	var reports []FailureReport
	m := NewManager(func(r FailureReport) { reports = append(reports, r) })

	var trace []string
	mkHook := func(name string, fail bool) OrderedHook {
		return func(_ context.Context, _ *framecontext.Context) error {
			trace = append(trace, name)
			if fail {
				return errors.New("boom")
			}
			return nil
		}
	}

	_ = m.Register(&Module{Name: "a", Priority: 100, SupportedPhases: phase.With(phase.Gameplay),
		Hooks: HookTable{Ordered: map[phase.Phase]OrderedHook{phase.Gameplay: mkHook("a", false)}}})
	_ = m.Register(&Module{Name: "b", Priority: 200, SupportedPhases: phase.With(phase.Gameplay),
		Hooks: HookTable{Ordered: map[phase.Phase]OrderedHook{phase.Gameplay: mkHook("b", true)}}})
	_ = m.Register(&Module{Name: "c", Priority: 300, SupportedPhases: phase.With(phase.Gameplay),
		Hooks: HookTable{Ordered: map[phase.Phase]OrderedHook{phase.Gameplay: mkHook("c", false)}}})

	fc := framecontext.New(framecontext.Immutable{}, nil)
	m.DispatchOrdered(context.Background(), fc, phase.Gameplay)

	if len(trace) != 3 || trace[0] != "a" || trace[1] != "b" || trace[2] != "c" {
		t.Fatalf("expected all three to run in order, got %v", trace)
	}
	if len(reports) != 1 || reports[0].Module != "b" {
		t.Fatalf("expected exactly one failure report for b, got %v", reports)
	}
}

func TestDispatchOrderedRecoversPanics(t *testing.T) {
	var reports []FailureReport
	m := NewManager(func(r FailureReport) { reports = append(reports, r) })
	_ = m.Register(&Module{Name: "panicky", Priority: 100, SupportedPhases: phase.With(phase.Gameplay),
		Hooks: HookTable{Ordered: map[phase.Phase]OrderedHook{
			phase.Gameplay: func(_ context.Context, _ *framecontext.Context) error {
				panic("unexpected")
			},
		}}})

	fc := framecontext.New(framecontext.Immutable{}, nil)
	m.DispatchOrdered(context.Background(), fc, phase.Gameplay)

	if len(reports) != 1 || reports[0].Module != "panicky" {
		t.Fatalf("expected a recovered panic reported as a failure, got %v", reports)
	}
}

func names(mods []*Module) []string {
	out := make([]string, len(mods))
	for i, m := range mods {
		out[i] = m.Name
	}
	return out
}
