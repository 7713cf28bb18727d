package gateway

import (
	"testing"
	"time"
)

func TestJoinRateLimiterWindow(t *testing.T) {
	rl := NewJoinRateLimiter(3, 50*time.Millisecond)

	for i := 0; i < 3; i++ {
		if !rl.Allow("u1") {
			t.Fatalf("attempt %d denied inside the limit", i+1)
		}
	}
	if rl.Allow("u1") {
		t.Fatal("fourth attempt allowed inside the window")
	}

	// A different user has an independent budget.
	if !rl.Allow("u2") {
		t.Error("second user throttled by the first")
	}

	time.Sleep(60 * time.Millisecond)
	if !rl.Allow("u1") {
		t.Error("attempt denied after the window expired")
	}
}

func TestJoinRateLimiterForget(t *testing.T) {
	rl := NewJoinRateLimiter(1, time.Hour)

	if !rl.Allow("u1") {
		t.Fatal("first attempt denied")
	}
	if rl.Allow("u1") {
		t.Fatal("second attempt allowed")
	}

	rl.Forget("u1")
	if !rl.Allow("u1") {
		t.Error("history survived Forget")
	}
}
