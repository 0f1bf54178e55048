package syncx

import (
	"sync"
	"sync/atomic"
	"testing"
)

func TestLatchAcquireRelease(t *testing.T) {
	var l Latch

	if l.Held() {
		t.Fatal("new latch should be free")
	}
	if !l.TryAcquire() {
		t.Fatal("first TryAcquire should succeed")
	}
	if l.TryAcquire() {
		t.Error("second TryAcquire should fail while held")
	}
	if !l.Release() {
		t.Error("Release of held latch should report true")
	}
	if l.Release() {
		t.Error("Release of free latch should report false")
	}
	if !l.TryAcquire() {
		t.Error("TryAcquire after Release should succeed")
	}
}

func TestLatchConcurrentAcquire(t *testing.T) {
	var l Latch
	var wins atomic.Int32
	var wg sync.WaitGroup

	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if l.TryAcquire() {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()

	if got := wins.Load(); got != 1 {
		t.Errorf("wins = %d, want exactly 1", got)
	}
}
