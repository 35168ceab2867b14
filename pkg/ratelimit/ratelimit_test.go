package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestLocalRateLimiterBurst(t *testing.T) {
	l := NewLocalRateLimiter()
	limit := Limit{Rate: 1, Period: time.Minute, Burst: 2}

	for i := 0; i < 2; i++ {
		res, err := l.Allow(context.Background(), "actor:a", limit)
		if err != nil || !res.Allowed {
			t.Fatalf("request %d: res=%+v err=%v", i, res, err)
		}
	}
	res, err := l.Allow(context.Background(), "actor:a", limit)
	if err != nil {
		t.Fatal(err)
	}
	if res.Allowed || res.RetryAfter <= 0 {
		t.Fatalf("third request = %+v, want denied with retry", res)
	}

	other, _ := l.Allow(context.Background(), "actor:b", limit)
	if !other.Allowed {
		t.Fatal("separate key shares quota")
	}
}

func TestLocalRateLimiterInvalidLimit(t *testing.T) {
	if _, err := NewLocalRateLimiter().Allow(context.Background(), "k", Limit{}); err == nil {
		t.Fatal("expected error for zero limit")
	}
}
