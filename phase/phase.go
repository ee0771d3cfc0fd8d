// Package phase defines the fixed, totally ordered sequence of named phases
// a frame advances through, and the category each phase belongs to.
package phase

// Phase identifies a named step of the per-frame pipeline. The sequence is
// fixed: implementers must not reorder or skip phases without revisiting
// the barrier contract each phase participates in.
type Phase int

const (
	FrameStart Phase = iota
	Input
	NetworkReconciliation
	RandomSeedManagement
	FixedSimulation
	Gameplay
	SceneMutation
	TransformPropagation
	Snapshot
	ParallelWork
	PostParallel
	FrameGraph
	CommandRecord
	Present
	AsyncPoll
	BudgetAdapt
	FrameEnd

	phaseCount
)

// Sequence is the canonical, totally ordered phase list for one frame.
var Sequence = [phaseCount]Phase{
	FrameStart, Input, NetworkReconciliation, RandomSeedManagement,
	FixedSimulation, Gameplay, SceneMutation, TransformPropagation,
	Snapshot, ParallelWork, PostParallel, FrameGraph, CommandRecord,
	Present, AsyncPoll, BudgetAdapt, FrameEnd,
}

func (p Phase) String() string {
	switch p {
	case FrameStart:
		return "FrameStart"
	case Input:
		return "Input"
	case NetworkReconciliation:
		return "NetworkReconciliation"
	case RandomSeedManagement:
		return "RandomSeedManagement"
	case FixedSimulation:
		return "FixedSimulation"
	case Gameplay:
		return "Gameplay"
	case SceneMutation:
		return "SceneMutation"
	case TransformPropagation:
		return "TransformPropagation"
	case Snapshot:
		return "Snapshot"
	case ParallelWork:
		return "ParallelWork"
	case PostParallel:
		return "PostParallel"
	case FrameGraph:
		return "FrameGraph"
	case CommandRecord:
		return "CommandRecord"
	case Present:
		return "Present"
	case AsyncPoll:
		return "AsyncPoll"
	case BudgetAdapt:
		return "BudgetAdapt"
	case FrameEnd:
		return "FrameEnd"
	default:
		return "Unknown"
	}
}

// Category classifies how a phase's modules are dispatched.
type Category int

const (
	// CategoryOrdered phases run on the orchestrator thread, strictly
	// ordered by (priority, registration index); game state is mutable.
	CategoryOrdered Category = iota
	// CategoryParallel is ParallelWork: modules run concurrently on the
	// thread pool, joined at a barrier; game state is read-only.
	CategoryParallel
	// CategoryAsync is AsyncPoll: the tracker integrates completions of
	// multi-frame jobs registered in earlier frames.
	CategoryAsync
	// CategorySynchronous phases (FrameStart, Snapshot, Present) run
	// synchronously on the orchestrator thread and are not dispatched to
	// modules through the ordered-hook mechanism at all, or do so with no
	// suspension allowed.
	CategorySynchronous
)

// CategoryOf reports which dispatch category a phase belongs to.
func CategoryOf(p Phase) Category {
	switch p {
	case ParallelWork:
		return CategoryParallel
	case AsyncPoll:
		return CategoryAsync
	case FrameStart, Snapshot, Present:
		return CategorySynchronous
	default:
		return CategoryOrdered
	}
}

// Set is a bitset over the phase enumeration, used by modules to declare
// supported_phases and by the manager to test participation.
type Set uint32

// Bit returns the Set bit corresponding to p.
func Bit(p Phase) Set {
	return Set(1) << uint(p)
}

// Has reports whether p is a member of s.
func (s Set) Has(p Phase) bool {
	return s&Bit(p) != 0
}

// With returns a new Set with the given phases added.
func With(phases ...Phase) Set {
	var s Set
	for _, p := range phases {
		s |= Bit(p)
	}
	return s
}

// None is the empty phase set — a module registered with it is never
// dispatched for any phase but still receives lifecycle hooks.
const None Set = 0
