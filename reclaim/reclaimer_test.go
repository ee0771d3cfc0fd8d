package reclaim

import "testing"

func TestProcessCompletedFrameRetiresOnlyDueEntries(t *testing.T) {
	r := New()
	r.Schedule(Entry{ResourceHandle: 1, SubmittedFrame: 0, DebugName: "a"})
	r.Schedule(Entry{ResourceHandle: 2, SubmittedFrame: 3, DebugName: "b"})
	r.Schedule(Entry{ResourceHandle: 3, SubmittedFrame: 5, DebugName: "c"})

	retired := r.ProcessCompletedFrame(3)
	if len(retired) != 2 || retired[0].DebugName != "a" || retired[1].DebugName != "b" {
		t.Fatalf("expected [a b] retired, got %v", retired)
	}
	if r.Pending() != 1 {
		t.Fatalf("expected 1 entry still pending, got %d", r.Pending())
	}

	retired = r.ProcessCompletedFrame(5)
	if len(retired) != 1 || retired[0].DebugName != "c" {
		t.Fatalf("expected [c] retired, got %v", retired)
	}
	if r.Pending() != 0 {
		t.Fatalf("expected 0 entries pending, got %d", r.Pending())
	}
}

func TestProcessCompletedFrameRetiresNothingWhenNothingDue(t *testing.T) {
	r := New()
	r.Schedule(Entry{ResourceHandle: 1, SubmittedFrame: 10, DebugName: "future"})

	retired := r.ProcessCompletedFrame(0)
	if len(retired) != 0 {
		t.Fatalf("expected nothing retired yet, got %v", retired)
	}
	if r.Pending() != 1 {
		t.Fatalf("expected entry to remain pending, got %d", r.Pending())
	}
}
