package auth

import (
	"testing"
	"time"

	"go.uber.org/goleak"
)

func TestAttemptLimiter(t *testing.T) {
	defer goleak.VerifyNone(t)

	l := NewAttemptLimiter(2, time.Minute)
	defer l.Close()
	clock := newFakeClock()
	l.now = clock.Now

	for i := 0; i < 2; i++ {
		if ok, _ := l.Allow("10.0.0.1|ada"); !ok {
			t.Fatalf("attempt %d denied", i+1)
		}
	}
	ok, wait := l.Allow("10.0.0.1|ada")
	if ok || wait <= 0 {
		t.Fatalf("expected third attempt to be throttled, got ok=%v wait=%v", ok, wait)
	}
	if ok, _ := l.Allow("10.0.0.1|bob"); !ok {
		t.Fatalf("keys must be independent")
	}

	clock.Advance(time.Minute)
	if ok, _ := l.Allow("10.0.0.1|ada"); !ok {
		t.Fatalf("expected bucket to refill")
	}

	l.Reset("10.0.0.1|ada")
	clock.Advance(time.Hour)
	l.evict(clock.Now())
	if n := l.size(); n != 0 {
		t.Fatalf("expected idle buckets evicted, %d left", n)
	}
}

func TestAttemptLimiterDisabled(t *testing.T) {
	defer goleak.VerifyNone(t)

	l := NewAttemptLimiter(0, time.Minute)
	defer l.Close()
	for i := 0; i < 10; i++ {
		if ok, _ := l.Allow("k"); !ok {
			t.Fatalf("disabled limiter throttled")
		}
	}
	l.Close()
}
