package store

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/manpreetbhatti/sketchsync/internal/draw"
)

func TestGetOrCreateReturnsSameRoom(t *testing.T) {
	s := New()

	room1 := s.GetOrCreate("room-1")
	if room1 == nil || room1.State == nil {
		t.Fatal("room and its state should not be nil")
	}

	room2 := s.GetOrCreate("room-1")
	if room1 != room2 {
		t.Error("same key should return the same room instance")
	}

	room3 := s.GetOrCreate("room-2")
	if room1 == room3 {
		t.Error("different keys should return different rooms")
	}
}

func TestGetWithoutCreate(t *testing.T) {
	s := New()

	if _, ok := s.Get("missing"); ok {
		t.Error("Get should not create rooms")
	}
	if s.Count() != 0 {
		t.Errorf("expected 0 rooms, got %d", s.Count())
	}

	s.GetOrCreate("room-1")
	if _, ok := s.Get("room-1"); !ok {
		t.Error("expected room-1 to exist")
	}
}

func TestDelete(t *testing.T) {
	s := New()
	s.GetOrCreate("room-1")
	s.Delete("room-1")

	if s.Count() != 0 {
		t.Errorf("expected 0 rooms after delete, got %d", s.Count())
	}
	// Deleting a missing room is a no-op.
	s.Delete("room-1")
}

func TestConcurrentGetOrCreateSingleKey(t *testing.T) {
	s := New()

	var mu sync.Mutex
	seen := make(map[*Room]bool)

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			room := s.GetOrCreate("contended")
			mu.Lock()
			seen[room] = true
			mu.Unlock()
		}()
	}
	wg.Wait()

	if len(seen) != 1 {
		t.Errorf("concurrent creates produced %d distinct rooms for one key", len(seen))
	}
}

func TestConcurrentDistinctRooms(t *testing.T) {
	s := New()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s.GetOrCreate(fmt.Sprintf("room-%d", i))
		}(i)
	}
	wg.Wait()

	if s.Count() != 50 {
		t.Errorf("expected 50 rooms, got %d", s.Count())
	}
}

func TestSweepEvictsOnlyLongEmptyRooms(t *testing.T) {
	s := New()
	s.GetOrCreate("empty")
	occupied := s.GetOrCreate("occupied")
	occupied.State.Join("c1", draw.User{ID: "c1", Name: "Ada"})

	base := time.Now()

	// First sweep only marks empty rooms.
	if evicted := s.sweep(base, time.Minute); len(evicted) != 0 {
		t.Fatalf("first sweep should evict nothing, got %v", evicted)
	}

	// Second sweep within the grace period keeps them.
	if evicted := s.sweep(base.Add(30*time.Second), time.Minute); len(evicted) != 0 {
		t.Fatalf("sweep inside grace period should evict nothing, got %v", evicted)
	}

	evicted := s.sweep(base.Add(2*time.Minute), time.Minute)
	if len(evicted) != 1 || evicted[0] != "empty" {
		t.Fatalf("expected only the empty room evicted, got %v", evicted)
	}
	if _, ok := s.Get("occupied"); !ok {
		t.Error("occupied room should survive the sweep")
	}
}

func TestSweepResetsWhenReoccupied(t *testing.T) {
	s := New()
	room := s.GetOrCreate("room")

	base := time.Now()
	s.sweep(base, time.Minute)

	// Someone joins before the grace period elapses.
	room.State.Join("c1", draw.User{ID: "c1"})
	s.sweep(base.Add(2*time.Minute), time.Minute)
	if _, ok := s.Get("room"); !ok {
		t.Fatal("reoccupied room should not be evicted")
	}

	// After they leave the clock starts over.
	room.State.Leave("c1")
	if evicted := s.sweep(base.Add(3*time.Minute), time.Minute); len(evicted) != 0 {
		t.Fatalf("grace period should restart after reoccupation, got %v", evicted)
	}
	if evicted := s.sweep(base.Add(5*time.Minute), time.Minute); len(evicted) != 1 {
		t.Fatalf("expected eviction after fresh grace period, got %v", evicted)
	}
}

func TestSweeperLifecycle(t *testing.T) {
	s := New()
	s.GetOrCreate("idle")

	sw := NewSweeper(s, SweeperConfig{Interval: 5 * time.Millisecond, EvictAfter: 10 * time.Millisecond})
	sw.Start()

	deadline := time.After(time.Second)
	for s.Count() > 0 {
		select {
		case <-deadline:
			t.Fatal("sweeper did not evict the idle room in time")
		case <-time.After(5 * time.Millisecond):
		}
	}

	sw.Stop()
}
