package core

import "testing"

func TestSinkReportAccumulatesAndDrains(t *testing.T) {
	var drained []Diagnostic
	sink := NewSink(func(d Diagnostic) { drained = append(drained, d) })

	sink.Report(Diagnostic{Severity: SeverityWarn, Code: "a"})
	sink.Report(Diagnostic{Severity: SeverityError, Code: "b"})

	if sink.Len() != 2 {
		t.Fatalf("expected 2 records, got %d", sink.Len())
	}
	if len(drained) != 2 || drained[0].Code != "a" || drained[1].Code != "b" {
		t.Fatalf("expected both records drained in order, got %v", drained)
	}
}

func TestSinkWithNilDrainStillRecords(t *testing.T) {
	sink := NewSink(nil)
	sink.Report(Diagnostic{Code: "x"})
	if sink.Len() != 1 {
		t.Fatalf("expected 1 record, got %d", sink.Len())
	}
}

func TestSeverityString(t *testing.T) {
	cases := map[Severity]string{SeverityInfo: "info", SeverityWarn: "warn", SeverityError: "error"}
	for sev, want := range cases {
		if got := sev.String(); got != want {
			t.Fatalf("Severity(%d).String() = %q, want %q", sev, got, want)
		}
	}
}
