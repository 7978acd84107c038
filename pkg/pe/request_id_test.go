package pe

import (
	"sync"
	"testing"
)

func TestRequestIDsSequence(t *testing.T) {
	var ids RequestIDs
	for want := uint32(1); want <= 3; want++ {
		if got := ids.Next(); got != want {
			t.Errorf("Next() = %d, want %d", got, want)
		}
	}
}

func TestRequestIDsWrap(t *testing.T) {
	ids := NewRequestIDs(MaxRequestID)
	if got := ids.Next(); got != MaxRequestID {
		t.Errorf("Next() = %#x, want %#x", got, MaxRequestID)
	}
	if got := ids.Next(); got != 1 {
		t.Errorf("Next() after wrap = %d, want 1", got)
	}
}

func TestRequestIDsConcurrent(t *testing.T) {
	ids := NewRequestIDs(0)

	const workers, perWorker = 8, 100
	seen := make(chan uint32, workers*perWorker)

	var wg sync.WaitGroup
	for _i := 0; _i < workers; _i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for _i := 0; _i < perWorker; _i++ {
				seen <- ids.Next()
			}
		}()
	}
	wg.Wait()
	close(seen)

	unique := make(map[uint32]bool)
	for id := range seen {
		if unique[id] {
			t.Fatalf("duplicate request ID %d", id)
		}
		unique[id] = true
	}
	if len(unique) != workers*perWorker {
		t.Errorf("got %d unique IDs, want %d", len(unique), workers*perWorker)
	}
}
