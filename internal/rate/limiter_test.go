package rate

import (
	"testing"
	"time"
)

func TestMemoryLimiterWindow(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	m := NewMemory()
	m.now = func() time.Time { return now }

	for i := 0; i < 5; i++ {
		if ok, _ := m.Allow("login:ip:1.1.1.1", 5, 15*time.Minute); !ok {
			t.Fatalf("attempt %d refused", i+1)
		}
	}
	ok, retry := m.Allow("login:ip:1.1.1.1", 5, 15*time.Minute)
	if ok {
		t.Fatalf("sixth attempt allowed")
	}
	if retry != 15*time.Minute {
		t.Fatalf("expected retry 15m, got %s", retry)
	}
	if ok, _ := m.Allow("login:ip:2.2.2.2", 5, 15*time.Minute); !ok {
		t.Fatalf("other key refused")
	}

	now = now.Add(15*time.Minute + time.Second)
	if ok, _ := m.Allow("login:ip:1.1.1.1", 5, 15*time.Minute); !ok {
		t.Fatalf("attempt after window refused")
	}
}

func TestMemoryLimiterSweep(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	m := NewMemory()
	m.now = func() time.Time { return now }

	m.Allow("a", 1, time.Minute)
	m.Allow("b", 1, time.Hour)
	now = now.Add(2 * time.Minute)
	if n := m.Sweep(); n != 1 {
		t.Fatalf("expected 1 bucket swept, got %d", n)
	}
}
