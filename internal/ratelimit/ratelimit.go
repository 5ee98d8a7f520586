package ratelimit

import (
	"sync"
	"time"
)

// Limiter is a token bucket: rate tokens per second, up to burst banked.
type Limiter struct {
	rate       float64
	burst      int
	tokens     float64
	lastUpdate time.Time
	mu         sync.Mutex
}

func NewLimiter(rate float64, burst int) *Limiter {
	return &Limiter{
		rate:       rate,
		burst:      burst,
		tokens:     float64(burst),
		lastUpdate: time.Now(),
	}
}

// Allow consumes one token if available.
func (l *Limiter) Allow() bool {
	return l.AllowN(1)
}

// AllowN consumes n tokens if available. Batched events charge per item.
func (l *Limiter) AllowN(n int) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	elapsed := now.Sub(l.lastUpdate).Seconds()
	l.lastUpdate = now

	l.tokens += elapsed * l.rate
	if l.tokens > float64(l.burst) {
		l.tokens = float64(l.burst)
	}

	if l.tokens >= float64(n) {
		l.tokens -= float64(n)
		return true
	}

	return false
}

// ClientLimiters hands out one limiter per key (remote IP at the upgrade
// boundary). Idle entries are swept in the background so the map cannot
// grow without bound.
type ClientLimiters struct {
	limiters map[string]*clientLimiter
	rate     float64
	burst    int
	maxIdle  time.Duration
	mu       sync.Mutex
	stop     chan struct{}
}

type clientLimiter struct {
	limiter  *Limiter
	lastSeen time.Time
}

func NewClientLimiters(rate float64, burst int) *ClientLimiters {
	cl := &ClientLimiters{
		limiters: make(map[string]*clientLimiter),
		rate:     rate,
		burst:    burst,
		maxIdle:  10 * time.Minute,
		stop:     make(chan struct{}),
	}
	go cl.cleanup()
	return cl
}

// Get returns the limiter for a key, creating one on first use.
func (cl *ClientLimiters) Get(key string) *Limiter {
	cl.mu.Lock()
	defer cl.mu.Unlock()

	entry, ok := cl.limiters[key]
	if !ok {
		entry = &clientLimiter{limiter: NewLimiter(cl.rate, cl.burst)}
		cl.limiters[key] = entry
	}
	entry.lastSeen = time.Now()
	return entry.limiter
}

// Remove drops the limiter for a key.
func (cl *ClientLimiters) Remove(key string) {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	delete(cl.limiters, key)
}

func (cl *ClientLimiters) Stop() {
	close(cl.stop)
}

func (cl *ClientLimiters) cleanup() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-cl.stop:
			return
		case now := <-ticker.C:
			cl.mu.Lock()
			for key, entry := range cl.limiters {
				if now.Sub(entry.lastSeen) > cl.maxIdle {
					delete(cl.limiters, key)
				}
			}
			cl.mu.Unlock()
		}
	}
}
