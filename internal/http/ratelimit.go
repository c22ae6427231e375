package http

import (
	"log/slog"
	"sync"
	"time"
)

const (
	rateLimitWindow      = time.Minute
	rateLimitMaxRequests = 60
	cleanupInterval      = 5 * time.Minute
	staleClientAge       = 10 * time.Minute
)

type clientInfo struct {
	requests int
	window   time.Time
	lastSeen time.Time
}

// rateLimiter enforces a fixed-window cap on requests per client. Entries
// for clients that have gone quiet are removed by a background janitor.
type rateLimiter struct {
	mu          sync.Mutex
	clients     map[string]*clientInfo
	stopCleanup chan struct{}
	stopOnce    sync.Once
}

func newRateLimiter() *rateLimiter {
	rl := &rateLimiter{
		clients:     make(map[string]*clientInfo),
		stopCleanup: make(chan struct{}),
	}
	go rl.cleanupLoop()
	return rl
}

// allow reports whether the client identified by clientIP may make another
// request inside the current window.
func (rl *rateLimiter) allow(clientIP string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	info, exists := rl.clients[clientIP]
	if !exists || now.Sub(info.window) >= rateLimitWindow {
		rl.clients[clientIP] = &clientInfo{requests: 1, window: now, lastSeen: now}
		return true
	}

	info.lastSeen = now
	if info.requests >= rateLimitMaxRequests {
		return false
	}
	info.requests++
	return true
}

func (rl *rateLimiter) activeClients() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.clients)
}

func (rl *rateLimiter) cleanupLoop() {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rl.stopCleanup:
			return
		case <-ticker.C:
			rl.removeStaleClients()
		}
	}
}

func (rl *rateLimiter) removeStaleClients() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := time.Now().Add(-staleClientAge)
	removed := 0
	for ip, info := range rl.clients {
		if info.lastSeen.Before(cutoff) {
			delete(rl.clients, ip)
			removed++
		}
	}
	if removed > 0 {
		slog.Debug("Rate limiter cleanup completed", "clients_removed", removed, "clients_active", len(rl.clients))
	}
}

func (rl *rateLimiter) stop() {
	rl.stopOnce.Do(func() {
		close(rl.stopCleanup)
	})
}
