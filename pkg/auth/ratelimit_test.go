package auth

import (
	"context"
	"testing"

	"github.com/google/uuid"
)

func TestInProcessLimiterAllowsWithinWindow(t *testing.T) {
	l := NewInProcessLimiter(3, 0)
	p := &Principal{ApplicationID: uuid.New(), Name: "docs"}

	for i := 0; i < 3; i++ {
		if err := l.Allow(context.Background(), p); err != nil {
			t.Fatalf("request %d rejected: %v", i+1, err)
		}
	}
	if err := l.Allow(context.Background(), p); err != ErrTooManyRequests {
		t.Fatalf("request over limit: err = %v, want ErrTooManyRequests", err)
	}
}

func TestInProcessLimiterSeparatesApplications(t *testing.T) {
	l := NewInProcessLimiter(1, 0)
	a := &Principal{ApplicationID: uuid.New()}
	b := &Principal{ApplicationID: uuid.New()}

	if err := l.Allow(context.Background(), a); err != nil {
		t.Fatalf("first request for a rejected: %v", err)
	}
	if err := l.Allow(context.Background(), b); err != nil {
		t.Fatalf("first request for b rejected: %v", err)
	}
}

func TestInProcessLimiterAdminClass(t *testing.T) {
	l := NewInProcessLimiter(1, 2)
	admin := &Principal{ApplicationID: uuid.New(), IsAdmin: true}

	for i := 0; i < 2; i++ {
		if err := l.Allow(context.Background(), admin); err != nil {
			t.Fatalf("admin request %d rejected: %v", i+1, err)
		}
	}
	if err := l.Allow(context.Background(), admin); err != ErrTooManyRequests {
		t.Fatalf("admin over limit: err = %v, want ErrTooManyRequests", err)
	}
}

func TestInProcessLimiterZeroMeansUnlimited(t *testing.T) {
	l := NewInProcessLimiter(0, 0)
	p := &Principal{ApplicationID: uuid.New()}

	for i := 0; i < 100; i++ {
		if err := l.Allow(context.Background(), p); err != nil {
			t.Fatalf("unlimited limiter rejected request %d: %v", i+1, err)
		}
	}
}
