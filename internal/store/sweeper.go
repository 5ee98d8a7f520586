package store

import (
	"log"
	"sync"
	"time"
)

// SweeperConfig controls idle-room eviction.
type SweeperConfig struct {
	Interval   time.Duration
	EvictAfter time.Duration
}

func DefaultSweeperConfig() SweeperConfig {
	return SweeperConfig{
		Interval:   time.Minute,
		EvictAfter: 10 * time.Minute,
	}
}

// Sweeper periodically removes rooms that have had no members for the
// configured grace period. It is opt-in: without a sweeper, rooms live for
// the process lifetime, matching the default retention behavior.
type Sweeper struct {
	store  *Store
	config SweeperConfig
	stop   chan struct{}
	wg     sync.WaitGroup
}

func NewSweeper(store *Store, config SweeperConfig) *Sweeper {
	return &Sweeper{
		store:  store,
		config: config,
		stop:   make(chan struct{}),
	}
}

func (s *Sweeper) Start() {
	s.wg.Add(1)
	go s.run()
	log.Printf("Room sweeper started (interval: %v, evict after: %v)",
		s.config.Interval, s.config.EvictAfter)
}

func (s *Sweeper) Stop() {
	close(s.stop)
	s.wg.Wait()
	log.Println("Room sweeper stopped")
}

func (s *Sweeper) run() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case now := <-ticker.C:
			for _, id := range s.store.sweep(now, s.config.EvictAfter) {
				log.Printf("Evicted idle room %s", id)
			}
		}
	}
}
