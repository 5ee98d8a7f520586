package draw

import "sync"

// State is everything one room shares: the ordered operation log, the undo
// stack, connected users, and last-known pointers. A single mutex serializes
// all access, so many connection goroutines can hit the same room safely
// while distinct rooms stay independent.
//
// operations and undoStack partition the room's history: every accepted
// operation lives in exactly one of the two until ClearAll discards both.
// The undo stack is room-global, not per-user: anyone's undo removes the most
// recent stroke regardless of who drew it.
type State struct {
	mu         sync.RWMutex
	operations []Operation
	undoStack  []Operation
	users      map[string]User
	order      []string
	pointers   map[string]Pointer
}

func NewState() *State {
	return &State{
		operations: make([]Operation, 0),
		undoStack:  make([]Operation, 0),
		users:      make(map[string]User),
		pointers:   make(map[string]Pointer),
	}
}

// Push appends op to the log. Pending redo history is invalidated.
func (s *State) Push(op Operation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.operations = append(s.operations, op)
	s.undoStack = s.undoStack[:0]
}

// BatchPush appends ops in order with a single redo invalidation.
func (s *State) BatchPush(ops []Operation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.operations = append(s.operations, ops...)
	s.undoStack = s.undoStack[:0]
}

// UndoLast moves the most recent operation onto the undo stack and returns
// it. Reports false when the log is empty; callers raise no event in that
// case.
func (s *State) UndoLast() (Operation, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.operations) == 0 {
		return Operation{}, false
	}
	op := s.operations[len(s.operations)-1]
	s.operations = s.operations[:len(s.operations)-1]
	s.undoStack = append(s.undoStack, op)
	return op, true
}

// RedoLast moves the most recently undone operation back onto the log and
// returns it. Reports false when there is nothing to redo.
func (s *State) RedoLast() (Operation, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.undoStack) == 0 {
		return Operation{}, false
	}
	op := s.undoStack[len(s.undoStack)-1]
	s.undoStack = s.undoStack[:len(s.undoStack)-1]
	s.operations = append(s.operations, op)
	return op, true
}

// ClearAll empties the log and the undo stack. There is no un-clear.
func (s *State) ClearAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.operations = s.operations[:0]
	s.undoStack = s.undoStack[:0]
}

// Join registers the user for a connection, overwriting any existing entry.
// Join order is preserved for membership snapshots.
func (s *State) Join(connID string, u User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[connID]; !ok {
		s.order = append(s.order, connID)
	}
	s.users[connID] = u
}

// Leave removes the user and any pointer sample for a connection. Reports
// whether the connection was a member.
func (s *State) Leave(connID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[connID]; !ok {
		return false
	}
	delete(s.users, connID)
	delete(s.pointers, connID)
	for i, id := range s.order {
		if id == connID {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return true
}

// Users returns current membership in join order.
func (s *State) Users() []User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	users := make([]User, 0, len(s.order))
	for _, id := range s.order {
		users = append(users, s.users[id])
	}
	return users
}

// Operations returns a copy of the current log, used for new-joiner sync.
// The undo stack is deliberately absent: redo history is invisible to a
// fresh joiner.
func (s *State) Operations() []Operation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ops := make([]Operation, len(s.operations))
	copy(ops, s.operations)
	return ops
}

// SetPointer overwrites the last-known sample for a connection. No history
// is kept.
func (s *State) SetPointer(connID string, p Pointer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pointers[connID] = p
}

// HasPointer reports whether a sample is known for the connection.
func (s *State) HasPointer(connID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.pointers[connID]
	return ok
}

// UserCount returns the number of connected members.
func (s *State) UserCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.users)
}

// Depth returns the current sizes of the operation log and the undo stack.
func (s *State) Depth() (ops, undone int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.operations), len(s.undoStack)
}
