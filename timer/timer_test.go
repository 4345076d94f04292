package timer

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestTimerManager_OneShot(t *testing.T) {
	m := NewTimerManagerWithResolution(5 * time.Millisecond)
	defer m.Stop()

	fired := make(chan struct{}, 1)
	m.AddTimer(10*time.Millisecond, 0, func() { fired <- struct{}{} })

	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("timer did not fire")
	}
	if m.Len() != 0 {
		t.Errorf("Expected one-shot task to leave the queue, %d left", m.Len())
	}
}

func TestTimerManager_Repeating(t *testing.T) {
	m := NewTimerManagerWithResolution(5 * time.Millisecond)
	defer m.Stop()

	var count atomic.Int32
	m.AddTimer(0, 10*time.Millisecond, func() { count.Add(1) })

	deadline := time.Now().Add(time.Second)
	for count.Load() < 3 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if count.Load() < 3 {
		t.Fatalf("Expected at least 3 runs, got %d", count.Load())
	}
	if m.Len() != 1 {
		t.Errorf("Expected repeating task to stay queued, got %d", m.Len())
	}
}

func TestTimerManager_RemoveTimer(t *testing.T) {
	m := NewTimerManagerWithResolution(5 * time.Millisecond)
	defer m.Stop()

	var fired atomic.Bool
	id := m.AddTimer(50*time.Millisecond, 0, func() { fired.Store(true) })
	m.RemoveTimer(id)

	time.Sleep(100 * time.Millisecond)
	if fired.Load() {
		t.Error("Removed timer should not fire")
	}
}

func TestTimerManager_StopHaltsScheduling(t *testing.T) {
	m := NewTimerManagerWithResolution(5 * time.Millisecond)

	var count atomic.Int32
	m.AddTimer(0, 5*time.Millisecond, func() { count.Add(1) })
	time.Sleep(30 * time.Millisecond)
	m.Stop()
	m.Stop()

	after := count.Load()
	time.Sleep(30 * time.Millisecond)
	if count.Load() != after {
		t.Errorf("Expected no runs after Stop, went from %d to %d", after, count.Load())
	}
}
