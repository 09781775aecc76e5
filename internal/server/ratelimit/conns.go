package ratelimit

import "sync"

// ConnLimiter caps concurrent connections per client.
type ConnLimiter struct {
	max   int
	mu    sync.Mutex
	conns map[string]int
}

// NewConnLimiter allows at most max concurrent connections per client. max <= 0 disables the cap.
func NewConnLimiter(max int) *ConnLimiter {
	return &ConnLimiter{max: max, conns: make(map[string]int)}
}

// Acquire reserves a connection slot for clientID. The returned release func is
// idempotent; ok is false when the client is at its cap.
func (c *ConnLimiter) Acquire(clientID string) (release func(), ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.max > 0 && c.conns[clientID] >= c.max {
		return func() {}, false
	}
	c.conns[clientID]++

	var once sync.Once
	return func() {
		once.Do(func() { c.release(clientID) })
	}, true
}

func (c *ConnLimiter) release(clientID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conns[clientID]--
	if c.conns[clientID] <= 0 {
		delete(c.conns, clientID)
	}
}

// Active reports the open connections of clientID.
func (c *ConnLimiter) Active(clientID string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conns[clientID]
}
