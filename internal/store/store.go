package store

import (
	"sync"
	"time"

	"github.com/manpreetbhatti/sketchsync/internal/draw"
)

// Room pairs a room's drawing state with its commit lock.
//
// The state's own lock only protects its data. Commit extends the critical
// section to event publication: gateway handlers hold it across a state
// transition and the enqueue of the resulting broadcasts, so the hub's
// delivery order always matches the order transitions committed in. Without
// it, a stroke admitted between a joiner's registration and its init
// snapshot could reach the joiner twice.
type Room struct {
	State  *draw.State
	Commit sync.Mutex

	// emptySince is zero while the room has members; otherwise the sweep
	// time at which the room was first observed empty.
	emptySince time.Time
}

// Store is the registry of live rooms. A room is created lazily on first
// reference and, by default, never removed; Delete exists for the admin API
// and the optional idle sweeper.
type Store struct {
	mu    sync.RWMutex
	rooms map[string]*Room
}

func New() *Store {
	return &Store{
		rooms: make(map[string]*Room),
	}
}

// GetOrCreate returns the room, creating an empty one on first reference.
// Concurrent calls with the same key always resolve to the same room.
func (s *Store) GetOrCreate(roomID string) *Room {
	s.mu.RLock()
	room, ok := s.rooms[roomID]
	s.mu.RUnlock()
	if ok {
		return room
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if room, ok := s.rooms[roomID]; ok {
		return room
	}
	room = &Room{State: draw.NewState()}
	s.rooms[roomID] = room
	return room
}

// Get returns the room without creating it.
func (s *Store) Get(roomID string) (*Room, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	room, ok := s.rooms[roomID]
	return room, ok
}

// Delete removes a room outright. Connections still holding the room keep
// drawing into a detached one; they are not force-closed.
func (s *Store) Delete(roomID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rooms, roomID)
}

// Count returns the number of tracked rooms.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rooms)
}

// Snapshot returns the current room set.
func (s *Store) Snapshot() map[string]*Room {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rooms := make(map[string]*Room, len(s.rooms))
	for id, room := range s.rooms {
		rooms[id] = room
	}
	return rooms
}

// sweep deletes rooms that have been continuously empty since before the
// cutoff. Occupancy is sampled at sweep time, so a room must be seen empty
// on two sweeps spanning the grace period before it goes.
func (s *Store) sweep(now time.Time, evictAfter time.Duration) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var evicted []string
	for id, room := range s.rooms {
		if room.State.UserCount() > 0 {
			room.emptySince = time.Time{}
			continue
		}
		if room.emptySince.IsZero() {
			room.emptySince = now
			continue
		}
		if now.Sub(room.emptySince) >= evictAfter {
			delete(s.rooms, id)
			evicted = append(evicted, id)
		}
	}
	return evicted
}
