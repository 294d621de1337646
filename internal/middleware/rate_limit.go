package middleware

import (
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"
)

type window struct {
	count int
	ends  time.Time
}

// IPRateLimiter is a fixed-window limiter keyed by client IP. The number of
// tracked IPs is bounded; expired windows are swept first and, if the table
// is still full, the window closest to expiry is evicted.
type IPRateLimiter struct {
	mu         sync.Mutex
	limit      int
	window     time.Duration
	maxEntries int
	entries    map[string]window
	now        func() time.Time
}

func NewIPRateLimiter(limit int, window time.Duration) *IPRateLimiter {
	return NewIPRateLimiterWithMaxEntries(limit, window, 10000)
}

func NewIPRateLimiterWithMaxEntries(limit int, windowSize time.Duration, maxEntries int) *IPRateLimiter {
	if limit <= 0 {
		limit = 1
	}
	if windowSize <= 0 {
		windowSize = time.Minute
	}
	if maxEntries <= 0 {
		maxEntries = 10000
	}
	return &IPRateLimiter{
		limit:      limit,
		window:     windowSize,
		maxEntries: maxEntries,
		entries:    map[string]window{},
		now:        time.Now,
	}
}

func (rl *IPRateLimiter) Middleware(message string) func(http.Handler) http.Handler {
	if message == "" {
		message = "Rate limit exceeded"
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			allowed, retryAfter := rl.allow(clientIP(r.RemoteAddr))
			if !allowed {
				w.Header().Set("Retry-After", strconv.Itoa(int(retryAfter.Seconds())+1))
				writeError(w, r, http.StatusTooManyRequests, "rate_limited", message, nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (rl *IPRateLimiter) allow(ip string) (bool, time.Duration) {
	if ip == "" {
		ip = "unknown"
	}
	now := rl.now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	entry, ok := rl.entries[ip]
	if !ok || !entry.ends.After(now) {
		if !ok && len(rl.entries) >= rl.maxEntries {
			rl.evict(now)
		}
		entry = window{ends: now.Add(rl.window)}
	}
	entry.count++
	rl.entries[ip] = entry

	if entry.count > rl.limit {
		return false, entry.ends.Sub(now)
	}
	return true, 0
}

func (rl *IPRateLimiter) evict(now time.Time) {
	for ip, entry := range rl.entries {
		if !entry.ends.After(now) {
			delete(rl.entries, ip)
		}
	}
	if len(rl.entries) < rl.maxEntries {
		return
	}

	var oldestIP string
	var oldest time.Time
	for ip, entry := range rl.entries {
		if oldestIP == "" || entry.ends.Before(oldest) {
			oldestIP, oldest = ip, entry.ends
		}
	}
	delete(rl.entries, oldestIP)
}

func (rl *IPRateLimiter) size() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.entries)
}

func clientIP(remoteAddr string) string {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return remoteAddr
	}
	return host
}
