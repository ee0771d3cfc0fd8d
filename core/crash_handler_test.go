package core

import (
	"sync"
	"testing"
	"time"
)

func TestGoRecoversPanicAndInvokesCrashHandler(t *testing.T) {
	var mu sync.Mutex
	var got any
	done := make(chan struct{})

	SetCrashHandler(func(recovered any, _ []byte) {
		mu.Lock()
		got = recovered
		mu.Unlock()
		close(done)
	})
	defer SetCrashHandler(nil)

	Go(func() { panic("boom") })

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for crash handler invocation")
	}

	mu.Lock()
	defer mu.Unlock()
	if got != "boom" {
		t.Fatalf("expected recovered value \"boom\", got %v", got)
	}
}

func TestSetCrashHandlerNilRestoresDefault(t *testing.T) {
	SetCrashHandler(func(any, []byte) {})
	SetCrashHandler(nil)
	if crashHandler == nil {
		t.Fatal("expected crashHandler to be non-nil after passing nil to SetCrashHandler")
	}
}
