package middleware

import (
	"strconv"
	"sync"
	"time"

	"github.com/ai-relay-tgbot-go/internal/config"
	"github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"
)

// dayWindow is the fixed epoch length used for the daily quota. Days start at
// multiples of 86400 seconds since the Unix epoch (UTC midnight), not at local midnight.
const dayWindow = 86400 * time.Second

// Decision is the outcome of an admission check
type Decision int

const (
	Admitted Decision = iota
	DeniedMinute
	DeniedDay
)

func (d Decision) String() string {
	switch d {
	case Admitted:
		return "admitted"
	case DeniedMinute:
		return "denied_minute"
	case DeniedDay:
		return "denied_day"
	default:
		return "unknown"
	}
}

// Quota is a point-in-time view of what a user may still send.
type Quota struct {
	Minute int
	Day    int
}

// RateLimiter interface for rate limiting
type RateLimiter interface {
	Check(userID int64, now time.Time) Decision
	Remaining(userID int64, now time.Time) Quota
}

// requestLog holds the admitted request times of one user.
type requestLog struct {
	mu     sync.Mutex
	minute []time.Time
	day    []time.Time
}

// UserRateLimiter implements per-user minute and day quotas over sliding windows
type UserRateLimiter struct {
	enabled      bool
	maxPerMinute int
	minuteWindow time.Duration
	maxPerDay    int

	// mu serialises get-or-create on records; per-user work runs under requestLog.mu.
	mu      sync.Mutex
	records *cache.Cache
	logger  *logrus.Logger
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(cfg *config.RateLimitConfig, logger *logrus.Logger) *UserRateLimiter {
	rl := &UserRateLimiter{
		enabled:      cfg.Enabled,
		maxPerMinute: cfg.MaxPerMinute,
		minuteWindow: cfg.MinuteWindow(),
		maxPerDay:    cfg.MaxPerDay,
		logger:       logger,
	}
	if !rl.enabled {
		return rl
	}

	// A record untouched for longer than both windows holds nothing but expired
	// timestamps, so letting the cache evict it loses no state.
	ttl := dayWindow
	if rl.minuteWindow > ttl {
		ttl = rl.minuteWindow
	}
	cleanup := cfg.CleanupInterval
	if cleanup <= 0 {
		cleanup = time.Hour
	}
	rl.records = cache.New(ttl, cleanup)

	return rl
}

// Check decides whether userID may send a request at now and records it if so.
// The minute quota is checked before the day quota; a denied attempt is never charged.
func (r *UserRateLimiter) Check(userID int64, now time.Time) Decision {
	if !r.enabled {
		return Admitted
	}

	rec := r.getRecord(userID)
	rec.mu.Lock()
	defer rec.mu.Unlock()

	rec.minute = pruneMinute(rec.minute, now, r.minuteWindow)
	rec.day = pruneDay(rec.day, now)

	if len(rec.minute) >= r.maxPerMinute {
		r.logger.WithFields(logrus.Fields{
			"user_id": userID,
			"window":  "minute",
		}).Debug("Rate limit exceeded")
		return DeniedMinute
	}
	if len(rec.day) >= r.maxPerDay {
		r.logger.WithFields(logrus.Fields{
			"user_id": userID,
			"window":  "day",
		}).Debug("Rate limit exceeded")
		return DeniedDay
	}

	rec.minute = append(rec.minute, now)
	rec.day = append(rec.day, now)
	return Admitted
}

// Remaining reports the quota left for userID at now without modifying any state
func (r *UserRateLimiter) Remaining(userID int64, now time.Time) Quota {
	if !r.enabled {
		return Quota{Minute: r.maxPerMinute, Day: r.maxPerDay}
	}

	val, found := r.records.Get(recordKey(userID))
	if !found {
		return Quota{Minute: r.maxPerMinute, Day: r.maxPerDay}
	}
	rec := val.(*requestLog)

	rec.mu.Lock()
	defer rec.mu.Unlock()

	minuteUsed := 0
	for _, t := range rec.minute {
		if now.Sub(t) < r.minuteWindow {
			minuteUsed++
		}
	}
	start := dayStart(now)
	dayUsed := 0
	for _, t := range rec.day {
		if !t.Before(start) {
			dayUsed++
		}
	}

	return Quota{
		Minute: clampRemaining(r.maxPerMinute, minuteUsed),
		Day:    clampRemaining(r.maxPerDay, dayUsed),
	}
}

// ActiveUsers returns the number of users with a live request record
func (r *UserRateLimiter) ActiveUsers() int {
	if !r.enabled {
		return 0
	}
	return r.records.ItemCount()
}

// getRecord gets or creates the record for a user and refreshes its expiration
func (r *UserRateLimiter) getRecord(userID int64) *requestLog {
	key := recordKey(userID)

	r.mu.Lock()
	defer r.mu.Unlock()

	if val, found := r.records.Get(key); found {
		rec := val.(*requestLog)
		r.records.SetDefault(key, rec)
		return rec
	}

	rec := &requestLog{}
	r.records.SetDefault(key, rec)
	return rec
}

func recordKey(userID int64) string {
	return strconv.FormatInt(userID, 10)
}

// pruneMinute drops timestamps at least window old, reusing the backing array.
func pruneMinute(ts []time.Time, now time.Time, window time.Duration) []time.Time {
	kept := ts[:0]
	for _, t := range ts {
		if now.Sub(t) < window {
			kept = append(kept, t)
		}
	}
	return kept
}

func pruneDay(ts []time.Time, now time.Time) []time.Time {
	start := dayStart(now)
	kept := ts[:0]
	for _, t := range ts {
		if !t.Before(start) {
			kept = append(kept, t)
		}
	}
	return kept
}

// dayStart returns the beginning of the fixed 86400-second epoch containing now.
func dayStart(now time.Time) time.Time {
	sec := now.Unix()
	day := int64(dayWindow / time.Second)
	offset := ((sec % day) + day) % day
	return time.Unix(sec-offset, 0)
}

func clampRemaining(limit, used int) int {
	left := limit - used
	if left < 0 {
		return 0
	}
	if left > limit {
		return limit
	}
	return left
}
