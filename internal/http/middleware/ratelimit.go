package middleware

import (
	"sync"
	"time"
)

// stale windows are swept once the map grows past this
const sweepThreshold = 10000

type clientInfo struct {
	start time.Time
	count int64
}

// memoryWindows is the in-process fallback used when Redis is not configured
type memoryWindows struct {
	mu      sync.Mutex
	clients map[string]*clientInfo
}

func newMemoryWindows() *memoryWindows {
	return &memoryWindows{clients: make(map[string]*clientInfo)}
}

// hit counts one request for key and returns the count in the current window
func (m *memoryWindows) hit(key string, window time.Duration, now time.Time) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.clients) > sweepThreshold {
		for k, ci := range m.clients {
			if now.Sub(ci.start) > window {
				delete(m.clients, k)
			}
		}
	}

	ci, ok := m.clients[key]
	if !ok || now.Sub(ci.start) > window {
		m.clients[key] = &clientInfo{start: now, count: 1}
		return 1
	}
	ci.count++
	return ci.count
}
