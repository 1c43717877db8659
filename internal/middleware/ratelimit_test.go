package middleware

import (
	"io"
	"sync"
	"testing"
	"time"

	"github.com/ai-relay-tgbot-go/internal/config"
	"github.com/sirupsen/logrus"
)

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func newTestLimiter(perMinute, perDay int) *UserRateLimiter {
	return NewRateLimiter(&config.RateLimitConfig{
		Enabled:             true,
		MaxPerMinute:        perMinute,
		MinuteWindowSeconds: 60,
		MaxPerDay:           perDay,
		CleanupInterval:     time.Hour,
	}, testLogger())
}

// base sits an hour into a day epoch so minute-scale tests never cross a day boundary.
var base = time.Unix(20000*86400+3600, 0)

func TestCheck_MinuteLimit(t *testing.T) {
	t.Parallel()
	rl := newTestLimiter(3, 100)

	for i := 0; i < 3; i++ {
		if got := rl.Check(1, base.Add(time.Duration(i)*time.Second)); got != Admitted {
			t.Fatalf("request %d: got %v, want admitted", i, got)
		}
	}
	if got := rl.Check(1, base.Add(3*time.Second)); got != DeniedMinute {
		t.Fatalf("4th request: got %v, want denied_minute", got)
	}
	if got := rl.Check(2, base.Add(3*time.Second)); got != Admitted {
		t.Fatalf("other user: got %v, want admitted", got)
	}
}

func TestCheck_WindowSlides(t *testing.T) {
	t.Parallel()
	rl := newTestLimiter(2, 100)

	rl.Check(1, base)
	rl.Check(1, base.Add(10*time.Second))
	if got := rl.Check(1, base.Add(59*time.Second)); got != DeniedMinute {
		t.Fatalf("inside window: got %v", got)
	}
	// The first entry is exactly one window old and no longer counts.
	if got := rl.Check(1, base.Add(60*time.Second)); got != Admitted {
		t.Fatalf("after first entry expired: got %v", got)
	}
	if got := rl.Check(1, base.Add(61*time.Second)); got != DeniedMinute {
		t.Fatalf("second slot still occupied: got %v", got)
	}
	if got := rl.Check(1, base.Add(3*time.Minute)); got != Admitted {
		t.Fatalf("after idle window: got %v", got)
	}
}

func TestCheck_DayLimit(t *testing.T) {
	t.Parallel()
	rl := newTestLimiter(2, 3)

	now := base
	for i := 0; i < 3; i++ {
		if got := rl.Check(1, now); got != Admitted {
			t.Fatalf("request %d: got %v", i, got)
		}
		now = now.Add(time.Minute)
	}
	if got := rl.Check(1, now); got != DeniedDay {
		t.Fatalf("got %v, want denied_day", got)
	}

	next := dayStart(now).Add(dayWindow)
	if got := rl.Check(1, next); got != Admitted {
		t.Fatalf("next day epoch: got %v, want admitted", got)
	}
}

func TestCheck_MinuteCheckedBeforeDay(t *testing.T) {
	t.Parallel()
	rl := newTestLimiter(2, 2)

	rl.Check(1, base)
	rl.Check(1, base.Add(time.Second))
	// Both quotas are exhausted; minute wins.
	if got := rl.Check(1, base.Add(2*time.Second)); got != DeniedMinute {
		t.Fatalf("got %v, want denied_minute", got)
	}
	if got := rl.Check(1, base.Add(2*time.Minute)); got != DeniedDay {
		t.Fatalf("got %v, want denied_day", got)
	}
}

func TestCheck_DeniedAttemptsAreNotCharged(t *testing.T) {
	t.Parallel()
	rl := newTestLimiter(1, 3)

	rl.Check(1, base)
	for i := 0; i < 5; i++ {
		if got := rl.Check(1, base.Add(time.Duration(i+1)*time.Second)); got != DeniedMinute {
			t.Fatalf("got %v", got)
		}
	}
	if q := rl.Remaining(1, base.Add(10*time.Second)); q.Day != 2 {
		t.Fatalf("day remaining = %d, want 2", q.Day)
	}
}

func TestRemaining(t *testing.T) {
	t.Parallel()
	rl := newTestLimiter(3, 5)

	if q := rl.Remaining(7, base); q != (Quota{Minute: 3, Day: 5}) {
		t.Fatalf("unknown user quota = %+v", q)
	}

	rl.Check(7, base)
	rl.Check(7, base.Add(time.Second))

	if q := rl.Remaining(7, base.Add(2*time.Second)); q != (Quota{Minute: 1, Day: 3}) {
		t.Fatalf("quota = %+v", q)
	}
	if q := rl.Remaining(7, base.Add(2*time.Minute)); q != (Quota{Minute: 3, Day: 3}) {
		t.Fatalf("quota after minute = %+v", q)
	}

	// Remaining must not consume or prune anything Check relies on.
	for i := 0; i < 10; i++ {
		rl.Remaining(7, base.Add(3*time.Second))
	}
	if got := rl.Check(7, base.Add(3*time.Second)); got != Admitted {
		t.Fatalf("got %v", got)
	}
	if got := rl.Check(7, base.Add(4*time.Second)); got != DeniedMinute {
		t.Fatalf("got %v", got)
	}
}

func TestRemaining_NeverNegativeOrAboveMax(t *testing.T) {
	t.Parallel()
	rl := newTestLimiter(2, 3)

	now := base
	for i := 0; i < 20; i++ {
		rl.Check(1, now)
		q := rl.Remaining(1, now)
		if q.Minute < 0 || q.Minute > 2 || q.Day < 0 || q.Day > 3 {
			t.Fatalf("step %d: quota out of range: %+v", i, q)
		}
		now = now.Add(17 * time.Second)
	}
}

func TestCheck_ConcurrentSameUser(t *testing.T) {
	t.Parallel()
	rl := newTestLimiter(10, 100)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		admitted int
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if rl.Check(42, base) == Admitted {
				mu.Lock()
				admitted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if admitted != 10 {
		t.Fatalf("admitted = %d, want 10", admitted)
	}
	if n := rl.ActiveUsers(); n != 1 {
		t.Fatalf("active users = %d, want 1", n)
	}
}

func TestDisabledLimiter(t *testing.T) {
	t.Parallel()
	rl := NewRateLimiter(&config.RateLimitConfig{Enabled: false, MaxPerMinute: 1, MaxPerDay: 1}, testLogger())

	for i := 0; i < 5; i++ {
		if got := rl.Check(1, base); got != Admitted {
			t.Fatalf("got %v", got)
		}
	}
	if q := rl.Remaining(1, base); q != (Quota{Minute: 1, Day: 1}) {
		t.Fatalf("quota = %+v", q)
	}
}

func TestDayStart(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		in   time.Time
		want int64
	}{
		{name: "epoch", in: time.Unix(0, 0), want: 0},
		{name: "mid_day", in: time.Unix(86400*3+500, 0), want: 86400 * 3},
		{name: "last_second", in: time.Unix(86400*3-1, 0), want: 86400 * 2},
		{name: "before_epoch", in: time.Unix(-1, 0), want: -86400},
	}
	for _, tt := range tests {
		if got := dayStart(tt.in).Unix(); got != tt.want {
			t.Errorf("%s: dayStart = %d, want %d", tt.name, got, tt.want)
		}
	}
}
