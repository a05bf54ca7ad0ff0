package eventloop

import (
	"sync"
	"testing"
)

// TestInstanceSingleton verifies concurrent callers all observe the same
// process-wide loop.
func TestInstanceSingleton(t *testing.T) {
	const goroutines = 8

	var wg sync.WaitGroup
	got := make([]*Loop, goroutines)

	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			got[i] = Instance()
		}(g)
	}
	wg.Wait()

	for i := 1; i < goroutines; i++ {
		if got[i] != got[0] {
			t.Fatalf("Instance() returned distinct loops: %p vs %p", got[i], got[0])
		}
	}
}

// TestNewIsIndependent verifies New loops are isolated from the process
// singleton, so tests and embedded uses never share queue state.
func TestNewIsIndependent(t *testing.T) {
	a, b := New(), New()
	if a == b {
		t.Fatal("New() returned the same loop twice")
	}
	if a == Instance() {
		t.Fatal("New() returned the process singleton")
	}

	if err := a.Start(func(Event) {}); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer a.End()

	// b was never started; it must reject producers independently of a.
	if err := b.AddEvent(Event{FrameID: 1}); err == nil {
		t.Error("AddEvent on stopped loop succeeded")
	}
}
