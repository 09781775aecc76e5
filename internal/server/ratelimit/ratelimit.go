// Package ratelimit throttles clients with token buckets and caps concurrent connections per client.
package ratelimit

import (
	"strings"
	"sync"
	"time"
)

// Rule limits one endpoint. Paths ending in "/" match by prefix.
type Rule struct {
	Path   string
	Method string
	// Limit is the number of requests per Window; zero means unlimited.
	Limit  int
	Window time.Duration
	// Burst is the bucket capacity; defaults to Limit.
	Burst int
}

// Config holds rate limiting configuration.
type Config struct {
	Enabled         bool
	DefaultLimit    int
	DefaultWindow   time.Duration
	CleanupInterval time.Duration
	// IdleTTL is how long an unused bucket is kept.
	IdleTTL   time.Duration
	Whitelist map[string]bool
	Rules     []Rule
}

// DefaultConfig limits every client to perMinute requests per minute on the chat
// endpoints, with session creation held to a stricter budget.
func DefaultConfig(perMinute int) *Config {
	if perMinute <= 0 {
		return &Config{Enabled: false}
	}
	return &Config{
		Enabled:         true,
		DefaultLimit:    perMinute,
		DefaultWindow:   time.Minute,
		CleanupInterval: 5 * time.Minute,
		IdleTTL:         time.Hour,
		Whitelist:       map[string]bool{},
		Rules: []Rule{
			{Path: "/health", Method: "GET"},
			{Path: "/sessions", Method: "POST", Limit: max(perMinute/6, 1), Window: time.Minute, Burst: 5},
			{Path: "/ws/", Method: "GET", Limit: perMinute, Window: time.Minute, Burst: max(perMinute/6, 3)},
		},
	}
}

// Match returns the rule for a request, or nil when the default applies.
func Match(path, method string, rules []Rule) *Rule {
	for i := range rules {
		if rules[i].Method == method && rules[i].Path == path {
			return &rules[i]
		}
	}
	for i := range rules {
		r := &rules[i]
		if r.Method == method && strings.HasSuffix(r.Path, "/") && strings.HasPrefix(path, r.Path) {
			return r
		}
	}
	return nil
}

// bucket is a token bucket refilled continuously at rate tokens per second.
type bucket struct {
	capacity   float64
	rate       float64
	tokens     float64
	lastRefill time.Time
	lastUsed   time.Time
}

func (b *bucket) refill(now time.Time) {
	elapsed := now.Sub(b.lastRefill).Seconds()
	if elapsed > 0 {
		b.tokens = min(b.capacity, b.tokens+elapsed*b.rate)
		b.lastRefill = now
	}
}

// Info contains information about rate limit status.
type Info struct {
	Allowed    bool
	Limit      int
	Remaining  int
	ResetTime  time.Time
	RetryAfter time.Duration
}

// Limiter manages rate limiting for multiple clients using token buckets.
type Limiter struct {
	config  *Config
	now     func() time.Time
	mu      sync.Mutex
	buckets map[string]*bucket
	stop    chan struct{}
	once    sync.Once
}

// NewLimiter creates a limiter and starts its cleanup loop when configured.
func NewLimiter(config *Config) *Limiter {
	if config == nil {
		config = DefaultConfig(60)
	}
	l := &Limiter{
		config:  config,
		now:     time.Now,
		buckets: make(map[string]*bucket),
		stop:    make(chan struct{}),
	}
	if config.Enabled && config.CleanupInterval > 0 {
		go l.cleanupLoop(config.CleanupInterval)
	}
	return l
}

// Allow consumes one token for clientID on the endpoint and reports the outcome.
func (l *Limiter) Allow(clientID, path, method string) (bool, Info) {
	if !l.config.Enabled || l.config.Whitelist[clientID] {
		return true, Info{Allowed: true}
	}

	rule := Match(path, method, l.config.Rules)
	if rule == nil {
		rule = &Rule{Path: "*", Method: "*", Limit: l.config.DefaultLimit, Window: l.config.DefaultWindow}
	}
	if rule.Limit <= 0 || rule.Window <= 0 {
		return true, Info{Allowed: true}
	}

	key := clientID + "|" + rule.Method + " " + rule.Path
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.buckets[key]
	if !ok {
		capacity := rule.Burst
		if capacity <= 0 {
			capacity = rule.Limit
		}
		b = &bucket{
			capacity:   float64(capacity),
			rate:       float64(rule.Limit) / rule.Window.Seconds(),
			tokens:     float64(capacity),
			lastRefill: now,
		}
		l.buckets[key] = b
	}
	b.refill(now)
	b.lastUsed = now

	allowed := b.tokens >= 1
	if allowed {
		b.tokens--
	}

	info := Info{
		Allowed:   allowed,
		Limit:     rule.Limit,
		Remaining: int(b.tokens),
		ResetTime: now.Add(secondsToDuration((b.capacity - b.tokens) / b.rate)),
	}
	if !allowed {
		info.RetryAfter = secondsToDuration((1 - b.tokens) / b.rate)
	}
	return allowed, info
}

func secondsToDuration(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

func (l *Limiter) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			l.cleanup()
		case <-l.stop:
			return
		}
	}
}

// cleanup drops buckets unused for longer than IdleTTL.
func (l *Limiter) cleanup() {
	ttl := l.config.IdleTTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	cutoff := l.now().Add(-ttl)

	l.mu.Lock()
	defer l.mu.Unlock()
	for key, b := range l.buckets {
		if b.lastUsed.Before(cutoff) {
			delete(l.buckets, key)
		}
	}
}

// Len reports the number of live buckets.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}

// Stop stops the cleanup goroutine.
func (l *Limiter) Stop() {
	l.once.Do(func() { close(l.stop) })
}
