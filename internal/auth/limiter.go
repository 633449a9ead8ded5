package auth

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// AttemptLimiter throttles attempts per key (an email, or an IP and username
// pair) with independent token buckets. Idle buckets are evicted in the background.
type AttemptLimiter struct {
	mu      sync.Mutex
	buckets map[string]*attemptBucket
	limit   rate.Limit
	burst   int
	idle    time.Duration
	now     func() time.Time

	stop chan struct{}
	done chan struct{}
	once sync.Once
}

type attemptBucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewAttemptLimiter allows burst attempts per key, refilled at one attempt
// per every interval. A non-positive burst disables throttling.
func NewAttemptLimiter(burst int, interval time.Duration) *AttemptLimiter {
	l := &AttemptLimiter{
		buckets: make(map[string]*attemptBucket),
		burst:   burst,
		limit:   rate.Every(interval),
		idle:    interval * time.Duration(max(burst, 1)),
		now:     time.Now,
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	if l.idle < time.Minute {
		l.idle = time.Minute
	}
	go l.janitor()
	return l
}

// Allow reports whether another attempt for key is permitted now. When it is
// not, the returned duration says how long to wait.
func (l *AttemptLimiter) Allow(key string) (bool, time.Duration) {
	if l == nil || l.burst <= 0 {
		return true, 0
	}
	now := l.now()
	l.mu.Lock()
	b, ok := l.buckets[key]
	if !ok {
		b = &attemptBucket{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.buckets[key] = b
	}
	b.lastSeen = now
	l.mu.Unlock()

	r := b.limiter.ReserveN(now, 1)
	if !r.OK() {
		return false, 0
	}
	if delay := r.DelayFrom(now); delay > 0 {
		r.CancelAt(now)
		return false, delay
	}
	return true, 0
}

// Reset forgets the bucket for key, e.g. after a successful login.
func (l *AttemptLimiter) Reset(key string) {
	if l == nil {
		return
	}
	l.mu.Lock()
	delete(l.buckets, key)
	l.mu.Unlock()
}

// Close stops the eviction goroutine.
func (l *AttemptLimiter) Close() {
	if l == nil {
		return
	}
	l.once.Do(func() {
		close(l.stop)
		<-l.done
	})
}

func (l *AttemptLimiter) janitor() {
	defer close(l.done)
	ticker := time.NewTicker(l.idle)
	defer ticker.Stop()
	for {
		select {
		case <-l.stop:
			return
		case <-ticker.C:
			l.evict(l.now())
		}
	}
}

func (l *AttemptLimiter) evict(now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for key, b := range l.buckets {
		if now.Sub(b.lastSeen) > l.idle {
			delete(l.buckets, key)
		}
	}
}

func (l *AttemptLimiter) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}
