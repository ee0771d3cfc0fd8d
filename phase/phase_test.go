package phase

import "testing"

func TestSequenceCoversEveryPhaseExactlyOnce(t *testing.T) {
	seen := make(map[Phase]bool)
	for _, p := range Sequence {
		if seen[p] {
			t.Fatalf("phase %s appears more than once in Sequence", p)
		}
		seen[p] = true
	}
	if len(seen) != int(phaseCount) {
		t.Fatalf("expected %d distinct phases in Sequence, got %d", phaseCount, len(seen))
	}
}

func TestSequenceOrderMatchesPipelineSpec(t *testing.T) {
	want := []Phase{
		FrameStart, Input, NetworkReconciliation, RandomSeedManagement,
		FixedSimulation, Gameplay, SceneMutation, TransformPropagation,
		Snapshot, ParallelWork, PostParallel, FrameGraph, CommandRecord,
		Present, AsyncPoll, BudgetAdapt, FrameEnd,
	}
	for i, p := range want {
		if Sequence[i] != p {
			t.Fatalf("Sequence[%d] = %s, want %s", i, Sequence[i], p)
		}
	}
}

func TestCategoryOfClassification(t *testing.T) {
	cases := []struct {
		p    Phase
		want Category
	}{
		{FrameStart, CategorySynchronous},
		{Snapshot, CategorySynchronous},
		{Present, CategorySynchronous},
		{ParallelWork, CategoryParallel},
		{AsyncPoll, CategoryAsync},
		{Gameplay, CategoryOrdered},
		{TransformPropagation, CategoryOrdered},
	}
	for _, c := range cases {
		if got := CategoryOf(c.p); got != c.want {
			t.Fatalf("CategoryOf(%s) = %v, want %v", c.p, got, c.want)
		}
	}
}

func TestSetMembership(t *testing.T) {
	s := With(Gameplay, FrameGraph)
	if !s.Has(Gameplay) || !s.Has(FrameGraph) {
		t.Fatal("expected both registered phases to be members")
	}
	if s.Has(Input) {
		t.Fatal("expected Input not to be a member")
	}
	if None.Has(Gameplay) {
		t.Fatal("expected None to have no members")
	}
}
