package ratelimit

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// Limiter 키(사용자 id 등)별 요청 허용 여부 판단
type Limiter interface {
	Allow(ctx context.Context, key string) (Decision, error)
}

// Decision Allow 결과와 응답 헤더용 정보
type Decision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration
}

type bucket struct {
	tokens     float64
	lastRefill time.Time
}

// MemoryLimiter 단일 프로세스용 토큰 버킷. window마다 limit개 토큰이 균등하게 채워짐
type MemoryLimiter struct {
	mu          sync.Mutex
	buckets     map[string]*bucket
	limit       int
	window      time.Duration
	clock       clockwork.Clock
	lastCleanup time.Time
}

func NewMemoryLimiter(limit int, window time.Duration, clock clockwork.Clock) *MemoryLimiter {
	if limit <= 0 {
		limit = 10
	}
	if window <= 0 {
		window = time.Minute
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	return &MemoryLimiter{
		buckets:     make(map[string]*bucket),
		limit:       limit,
		window:      window,
		clock:       clock,
		lastCleanup: clock.Now(),
	}
}

func (l *MemoryLimiter) refillRate() float64 {
	return float64(l.limit) / l.window.Seconds()
}

// Allow 토큰 하나 소비
func (l *MemoryLimiter) Allow(ctx context.Context, key string) (Decision, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock.Now()
	l.cleanupLocked(now)

	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{tokens: float64(l.limit), lastRefill: now}
		l.buckets[key] = b
	}

	elapsed := now.Sub(b.lastRefill).Seconds()
	b.tokens = math.Min(float64(l.limit), b.tokens+elapsed*l.refillRate())
	b.lastRefill = now

	d := Decision{Limit: l.limit}
	if b.tokens >= 1 {
		b.tokens--
		d.Allowed = true
		d.Remaining = int(b.tokens)
		return d, nil
	}

	missing := 1 - b.tokens
	d.RetryAfter = time.Duration(missing / l.refillRate() * float64(time.Second))
	return d, nil
}

// cleanupLocked window 동안 쓰이지 않아 가득 찬 버킷 정리
func (l *MemoryLimiter) cleanupLocked(now time.Time) {
	if now.Sub(l.lastCleanup) < l.window {
		return
	}
	for key, b := range l.buckets {
		if now.Sub(b.lastRefill) >= l.window {
			delete(l.buckets, key)
		}
	}
	l.lastCleanup = now
}

// Reset 키의 버킷 초기화
func (l *MemoryLimiter) Reset(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.buckets, key)
}

// Size 추적 중인 키 수
func (l *MemoryLimiter) Size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}
