package gateway

import (
	"context"
	"net"
	"sync"
	"time"
)

const (
	authFailWindow  = 5 * time.Minute
	authMaxFailures = 10
	authMaxHosts    = 10000
	authSweepEvery  = time.Minute
)

// failures counts failed handshakes from one host inside a fixed window
// that opens at the first failure.
type failures struct {
	n     int
	since time.Time
}

// authLimiter refuses handshakes from hosts that failed too often.
type authLimiter struct {
	mu     sync.Mutex
	window time.Duration
	max    int
	hosts  map[string]*failures
	now    func() time.Time
}

func newAuthLimiter() *authLimiter {
	return &authLimiter{
		window: authFailWindow,
		max:    authMaxFailures,
		hosts:  make(map[string]*failures),
		now:    time.Now,
	}
}

func hostOf(remoteAddr string) string {
	if host, _, err := net.SplitHostPort(remoteAddr); err == nil {
		return host
	}
	return remoteAddr
}

// live returns the current window for host, dropping an expired one.
// Callers hold l.mu.
func (l *authLimiter) live(host string, now time.Time) *failures {
	f := l.hosts[host]
	if f != nil && now.Sub(f.since) >= l.window {
		delete(l.hosts, host)
		return nil
	}
	return f
}

// Allow reports whether remoteAddr may attempt a handshake.
func (l *authLimiter) Allow(remoteAddr string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	f := l.live(hostOf(remoteAddr), l.now())
	return f == nil || f.n < l.max
}

// Fail records a failed handshake from remoteAddr.
func (l *authLimiter) Fail(remoteAddr string) {
	host := hostOf(remoteAddr)
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	f := l.live(host, now)
	if f == nil {
		if len(l.hosts) >= authMaxHosts {
			l.evictOldest()
		}
		f = &failures{since: now}
		l.hosts[host] = f
	}
	f.n++
}

// Reset forgets remoteAddr's failures after it authenticates.
func (l *authLimiter) Reset(remoteAddr string) {
	l.mu.Lock()
	delete(l.hosts, hostOf(remoteAddr))
	l.mu.Unlock()
}

func (l *authLimiter) evictOldest() {
	var oldest string
	for host, f := range l.hosts {
		if oldest == "" || f.since.Before(l.hosts[oldest].since) {
			oldest = host
		}
	}
	delete(l.hosts, oldest)
}

// sweep drops every expired window.
func (l *authLimiter) sweep() {
	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()
	for host := range l.hosts {
		l.live(host, now)
	}
}

// run sweeps periodically until ctx is done.
func (l *authLimiter) run(ctx context.Context) {
	t := time.NewTicker(authSweepEvery)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			l.sweep()
		}
	}
}
