package security

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/netip"
	"strings"
	"time"

	"readquest/internal/logger"
	"readquest/internal/repository"
)

// Limit is a sliding-window quota: at most Requests per Window
type Limit struct {
	Requests int
	Window   time.Duration
}

// Limits holds the per-endpoint quotas, keyed by endpoint name
var Limits = map[string]Limit{
	"generate-quiz":       {Requests: 20, Window: time.Minute},
	"search-books":        {Requests: 60, Window: time.Minute},
	"book-media":          {Requests: 30, Window: time.Minute},
	"events":              {Requests: 100, Window: time.Minute},
	"enrich-books":        {Requests: 20, Window: time.Hour},
	"pregenerate-quizzes": {Requests: 5, Window: time.Hour},
}

// LongestWindow is the retention needed for the request log
func LongestWindow() time.Duration {
	var longest time.Duration
	for _, l := range Limits {
		if l.Window > longest {
			longest = l.Window
		}
	}
	return longest
}

// Decision is the outcome of a rate-limit check
type Decision struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
}

// RateLimiter counts logged requests per (client ip, endpoint) in a sliding
// window. State lives in the database so every replica sees the same counts.
type RateLimiter struct {
	repo *repository.RateLimitRepository
	now  func() time.Time
}

// NewRateLimiter creates a new rate limiter backed by the request log
func NewRateLimiter(repo *repository.RateLimitRepository) *RateLimiter {
	return &RateLimiter{repo: repo, now: time.Now}
}

// SetClock overrides the time source
func (rl *RateLimiter) SetClock(now func() time.Time) {
	rl.now = now
}

// Allow logs the request and decides whether it fits the window. Rejected
// requests are logged too, so a client that keeps retrying stays blocked.
// Callers decide what to do with an error; the HTTP middleware fails open.
func (rl *RateLimiter) Allow(ctx context.Context, clientIP, endpoint string, limit Limit) (Decision, error) {
	now := rl.now().UTC()
	since := now.Add(-limit.Window)

	count, err := rl.repo.CountSince(ctx, clientIP, endpoint, since)
	if err != nil {
		return Decision{}, err
	}
	if err := rl.repo.Log(ctx, clientIP, endpoint, now); err != nil {
		return Decision{}, err
	}

	if count < limit.Requests {
		return Decision{Allowed: true, Remaining: limit.Requests - count - 1}, nil
	}

	// Blocked until enough entries, this one included, leave the window for
	// the count to drop below the limit.
	retry := limit.Window
	expiring, err := rl.repo.NthSince(ctx, clientIP, endpoint, since, count-limit.Requests+1)
	if err != nil {
		return Decision{}, err
	}
	if !expiring.IsZero() {
		retry = expiring.Add(limit.Window).Sub(now)
	}
	if retry < time.Second {
		retry = time.Second
	}
	return Decision{Allowed: false, RetryAfter: retry}, nil
}

// Prune deletes log rows that no window can see anymore
func (rl *RateLimiter) Prune(ctx context.Context) (int64, error) {
	return rl.repo.DeleteBefore(ctx, rl.now().Add(-LongestWindow()))
}

// RunPruner prunes on every tick until ctx is cancelled
func (rl *RateLimiter) RunPruner(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := rl.Prune(ctx)
			if err != nil {
				logger.Warn("Failed to prune rate limit log", "error", err)
				continue
			}
			if n > 0 {
				logger.Debug("Pruned rate limit log", "rows", n)
			}
		}
	}
}

// TrustedProxies lists the networks allowed to set forwarding headers
type TrustedProxies []netip.Prefix

// ParseTrustedProxies accepts bare addresses or CIDR ranges
func ParseTrustedProxies(values []string) (TrustedProxies, error) {
	proxies := make(TrustedProxies, 0, len(values))
	for _, v := range values {
		if strings.Contains(v, "/") {
			prefix, err := netip.ParsePrefix(v)
			if err != nil {
				return nil, fmt.Errorf("invalid trusted proxy %q: %w", v, err)
			}
			proxies = append(proxies, prefix.Masked())
			continue
		}
		addr, err := netip.ParseAddr(v)
		if err != nil {
			return nil, fmt.Errorf("invalid trusted proxy %q: %w", v, err)
		}
		addr = addr.Unmap()
		proxies = append(proxies, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return proxies, nil
}

// Contains reports whether ip belongs to a trusted proxy
func (p TrustedProxies) Contains(ip string) bool {
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	for _, prefix := range p {
		if prefix.Contains(addr) {
			return true
		}
	}
	return false
}

// GetClientIP extracts the client IP from the request. Forwarding headers
// are only honoured when the direct peer is a trusted proxy, and the
// X-Forwarded-For chain is walked from the right so a client cannot
// prepend its own entries.
func GetClientIP(r *http.Request, trusted TrustedProxies) string {
	remote := remoteHost(r.RemoteAddr)
	if !trusted.Contains(remote) {
		return remote
	}

	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		hops := strings.Split(forwarded, ",")
		for i := len(hops) - 1; i >= 0; i-- {
			hop := strings.TrimSpace(hops[i])
			if _, err := netip.ParseAddr(hop); err != nil {
				break
			}
			if !trusted.Contains(hop) {
				return hop
			}
		}
	}

	if realIP := strings.TrimSpace(r.Header.Get("X-Real-IP")); realIP != "" {
		if _, err := netip.ParseAddr(realIP); err == nil {
			return realIP
		}
	}
	return remote
}

func remoteHost(addr string) string {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	return host
}
