package core

import "sync"

// Severity classifies a Diagnostic for routing and filtering.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarn
	SeverityError
)

func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "info"
	case SeverityWarn:
		return "warn"
	case SeverityError:
		return "error"
	default:
		return "unknown"
	}
}

// Diagnostic is the structured record a module hook failure, async job
// failure, or other non-fatal orchestrator event is converted into. It is
// never a Go error propagated across a dispatch boundary.
type Diagnostic struct {
	Severity       Severity
	Code           string
	Message        string
	RelatedModules []string
	Frame          uint64
}

// Sink collects Diagnostic records for later inspection (by tests, by the
// observability package, or by a log writer). Safe for concurrent use.
type Sink struct {
	mu      sync.Mutex
	records []Diagnostic
	drain   func(Diagnostic)
}

// NewSink builds a Sink that buffers records in memory. If drain is
// non-nil, it additionally receives every record as it arrives (used to
// forward into a telemetry channel without holding the buffer lock).
func NewSink(drain func(Diagnostic)) *Sink {
	return &Sink{drain: drain}
}

// Report appends d to the sink and forwards it to the drain function, if
// any. Never blocks on I/O: callers needing that should make drain
// non-blocking (e.g. a buffered channel send).
func (s *Sink) Report(d Diagnostic) {
	s.mu.Lock()
	s.records = append(s.records, d)
	s.mu.Unlock()
	if s.drain != nil {
		s.drain(d)
	}
}

// Records returns a copy of all records reported so far.
func (s *Sink) Records() []Diagnostic {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Diagnostic, len(s.records))
	copy(out, s.records)
	return out
}

// Len returns the number of records reported so far.
func (s *Sink) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}
