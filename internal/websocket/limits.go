package websocket

import (
	"sync"
	"time"
)

// ipTracker counts connections and messages for one client address.
type ipTracker struct {
	connections  int
	messageCount int
	rateWindow   time.Time
}

// IPLimiter bounds the number of open connections and the message rate per
// client address. A zero limit disables that check.
type IPLimiter struct {
	maxConnectionsPerIP  int
	maxMessagesPerMinute int
	now                  func() time.Time

	mutex    sync.Mutex
	trackers map[string]*ipTracker
}

// NewIPLimiter creates a limiter.
func NewIPLimiter(maxConnectionsPerIP, maxMessagesPerMinute int) *IPLimiter {
	return &IPLimiter{
		maxConnectionsPerIP:  maxConnectionsPerIP,
		maxMessagesPerMinute: maxMessagesPerMinute,
		now:                  time.Now,
		trackers:             make(map[string]*ipTracker),
	}
}

// Acquire reserves a connection slot for ip.
func (l *IPLimiter) Acquire(ip string) bool {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	t := l.tracker(ip)
	if l.maxConnectionsPerIP > 0 && t.connections >= l.maxConnectionsPerIP {
		return false
	}
	t.connections++
	return true
}

// Release frees a slot taken by Acquire.
func (l *IPLimiter) Release(ip string) {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	t, ok := l.trackers[ip]
	if !ok {
		return
	}
	if t.connections > 0 {
		t.connections--
	}
	if t.connections == 0 {
		delete(l.trackers, ip)
	}
}

// AllowMessage counts one message from ip against a one-minute window.
func (l *IPLimiter) AllowMessage(ip string) bool {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	if l.maxMessagesPerMinute <= 0 {
		return true
	}

	t := l.tracker(ip)
	now := l.now()
	if now.Sub(t.rateWindow) >= time.Minute {
		t.messageCount = 0
		t.rateWindow = now
	}
	if t.messageCount >= l.maxMessagesPerMinute {
		return false
	}
	t.messageCount++
	return true
}

// Connections returns the open connection count for ip.
func (l *IPLimiter) Connections(ip string) int {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	if t, ok := l.trackers[ip]; ok {
		return t.connections
	}
	return 0
}

// tracker returns the entry for ip, creating it. Callers hold mutex.
func (l *IPLimiter) tracker(ip string) *ipTracker {
	t, ok := l.trackers[ip]
	if !ok {
		t = &ipTracker{rateWindow: l.now()}
		l.trackers[ip] = t
	}
	return t
}
