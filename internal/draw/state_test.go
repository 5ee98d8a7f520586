package draw

import (
	"fmt"
	"sync"
	"testing"
)

func op(id string) Operation {
	return Operation{
		ID:     id,
		UserID: "u1",
		Path:   []Point{{X: 0, Y: 0}, {X: 10, Y: 10}},
		Color:  "#000000",
		Width:  4,
		Tool:   ToolBrush,
	}
}

func TestPushAndUndoRedo(t *testing.T) {
	s := NewState()
	s.Push(op("a"))
	s.Push(op("b"))

	undone, ok := s.UndoLast()
	if !ok {
		t.Fatal("expected undo to succeed")
	}
	if undone.ID != "b" {
		t.Errorf("expected most recent op undone, got %q", undone.ID)
	}

	ops, stack := s.Depth()
	if ops != 1 || stack != 1 {
		t.Errorf("expected 1 op and 1 undone, got %d and %d", ops, stack)
	}

	redone, ok := s.RedoLast()
	if !ok {
		t.Fatal("expected redo to succeed")
	}
	if redone.ID != "b" {
		t.Errorf("expected undone op restored, got %q", redone.ID)
	}

	log := s.Operations()
	if len(log) != 2 || log[0].ID != "a" || log[1].ID != "b" {
		t.Errorf("undo/redo round trip did not restore the log: %v", log)
	}
}

func TestUndoRedoOnEmpty(t *testing.T) {
	s := NewState()
	if _, ok := s.UndoLast(); ok {
		t.Error("undo on empty log should report false")
	}
	if _, ok := s.RedoLast(); ok {
		t.Error("redo with empty undo stack should report false")
	}
}

func TestPushInvalidatesRedo(t *testing.T) {
	s := NewState()
	s.Push(op("a"))
	s.UndoLast()

	s.Push(op("b"))
	if _, ok := s.RedoLast(); ok {
		t.Error("redo should be unavailable after a new push")
	}

	s.Push(op("c"))
	s.UndoLast()
	s.BatchPush([]Operation{op("d"), op("e")})
	if _, ok := s.RedoLast(); ok {
		t.Error("redo should be unavailable after a batch push")
	}
}

func TestBatchPushOrder(t *testing.T) {
	s := NewState()
	s.BatchPush([]Operation{op("a"), op("b"), op("c")})
	log := s.Operations()
	if len(log) != 3 {
		t.Fatalf("expected 3 operations, got %d", len(log))
	}
	for i, want := range []string{"a", "b", "c"} {
		if log[i].ID != want {
			t.Errorf("operation %d: expected %q, got %q", i, want, log[i].ID)
		}
	}
}

func TestClearAllIsIrreversible(t *testing.T) {
	s := NewState()
	s.Push(op("a"))
	s.Push(op("b"))
	s.UndoLast()

	s.ClearAll()

	ops, stack := s.Depth()
	if ops != 0 || stack != 0 {
		t.Errorf("expected empty state after clear, got %d ops and %d undone", ops, stack)
	}
	if _, ok := s.UndoLast(); ok {
		t.Error("undo after clear should report false")
	}
	if _, ok := s.RedoLast(); ok {
		t.Error("redo after clear should report false")
	}
}

// The operation log and undo stack partition the full history: their sizes
// always sum to pushes minus cleared, however pushes and undo/redo interleave.
func TestHistoryPartition(t *testing.T) {
	s := NewState()
	pushed := 0

	push := func() {
		pushed++
		s.Push(op(fmt.Sprintf("op-%d", pushed)))
	}

	check := func() {
		ops, stack := s.Depth()
		if ops+stack != pushed {
			t.Fatalf("partition violated: %d + %d != %d pushed", ops, stack, pushed)
		}
	}

	push()
	push()
	check()
	s.UndoLast()
	check()
	s.UndoLast()
	check()
	s.RedoLast()
	check()
	// New work invalidates the remaining redo entry.
	push()
	pushed-- // one entry was discarded from the undo stack
	check()
}

func TestJoinLeaveSnapshot(t *testing.T) {
	s := NewState()
	s.Join("c1", User{ID: "c1", Name: "Ada", Color: "#f00"})
	s.Join("c2", User{ID: "c2", Name: "Grace", Color: "#0f0"})

	users := s.Users()
	if len(users) != 2 || users[0].ID != "c1" || users[1].ID != "c2" {
		t.Fatalf("expected join-ordered snapshot, got %v", users)
	}

	x, y := 3.5, 7.25
	s.SetPointer("c1", Pointer{X: &x, Y: &y, Color: "#f00"})
	if !s.HasPointer("c1") {
		t.Fatal("expected pointer sample for c1")
	}

	if !s.Leave("c1") {
		t.Fatal("expected leave to report membership")
	}
	if s.Leave("c1") {
		t.Error("second leave should report false")
	}
	if s.HasPointer("c1") {
		t.Error("leave should remove the pointer sample")
	}

	users = s.Users()
	if len(users) != 1 || users[0].ID != "c2" {
		t.Errorf("expected only c2 after leave, got %v", users)
	}
}

func TestRejoinKeepsSinglePosition(t *testing.T) {
	s := NewState()
	s.Join("c1", User{ID: "c1", Name: "Ada"})
	s.Join("c1", User{ID: "c1", Name: "Ada II"})

	users := s.Users()
	if len(users) != 1 {
		t.Fatalf("expected 1 user after rejoin, got %d", len(users))
	}
	if users[0].Name != "Ada II" {
		t.Errorf("rejoin should overwrite the entry, got %q", users[0].Name)
	}
}

func TestConcurrentPush(t *testing.T) {
	s := NewState()

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s.Push(op(fmt.Sprintf("op-%d", i)))
		}(i)
	}
	wg.Wait()

	if ops, _ := s.Depth(); ops != 100 {
		t.Errorf("expected 100 operations, got %d", ops)
	}
}

func TestOperationsReturnsCopy(t *testing.T) {
	s := NewState()
	s.Push(op("a"))

	snap := s.Operations()
	snap[0].ID = "mutated"

	if s.Operations()[0].ID != "a" {
		t.Error("snapshot mutation leaked into room state")
	}
}
