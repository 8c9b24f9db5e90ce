package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// 토큰 버킷 상태를 hash 하나에 저장. 시간은 밀리초 단위
var tokenBucketScript = redis.NewScript(`
	local key = KEYS[1]
	local limit = tonumber(ARGV[1])
	local window_ms = tonumber(ARGV[2])
	local now_ms = tonumber(ARGV[3])

	local state = redis.call('HMGET', key, 'tokens', 'ts')
	local tokens = tonumber(state[1])
	local ts = tonumber(state[2])
	if tokens == nil then
		tokens = limit
		ts = now_ms
	end

	local rate = limit / window_ms
	tokens = math.min(limit, tokens + (now_ms - ts) * rate)

	local allowed = 0
	local retry_ms = 0
	if tokens >= 1 then
		tokens = tokens - 1
		allowed = 1
	else
		retry_ms = math.ceil((1 - tokens) / rate)
	end

	redis.call('HSET', key, 'tokens', tokens, 'ts', now_ms)
	redis.call('PEXPIRE', key, window_ms * 2)

	return {allowed, math.floor(tokens), retry_ms}
`)

// RedisLimiter 여러 인스턴스가 공유하는 Redis 기반 토큰 버킷
type RedisLimiter struct {
	client    *redis.Client
	keyPrefix string
	limit     int
	window    time.Duration
	now       func() time.Time
}

// NewRedisClient redis:// URL로 클라이언트 생성
func NewRedisClient(url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	return redis.NewClient(opts), nil
}

func NewRedisLimiter(client *redis.Client, keyPrefix string, limit int, window time.Duration) *RedisLimiter {
	if keyPrefix == "" {
		keyPrefix = "ratelimit:"
	}
	if limit <= 0 {
		limit = 10
	}
	if window <= 0 {
		window = time.Minute
	}

	return &RedisLimiter{
		client:    client,
		keyPrefix: keyPrefix,
		limit:     limit,
		window:    window,
		now:       time.Now,
	}
}

// Allow 토큰 하나 소비 (Lua 스크립트로 원자적 처리)
func (r *RedisLimiter) Allow(ctx context.Context, key string) (Decision, error) {
	result, err := tokenBucketScript.Run(ctx, r.client, []string{r.keyPrefix + key},
		r.limit, r.window.Milliseconds(), r.now().UnixMilli()).Int64Slice()
	if err != nil {
		return Decision{}, fmt.Errorf("redis rate limit script failed: %w", err)
	}
	if len(result) < 3 {
		return Decision{}, fmt.Errorf("unexpected rate limit script result: %v", result)
	}

	return Decision{
		Allowed:    result[0] == 1,
		Limit:      r.limit,
		Remaining:  int(result[1]),
		RetryAfter: time.Duration(result[2]) * time.Millisecond,
	}, nil
}

// Reset 키의 버킷 초기화
func (r *RedisLimiter) Reset(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, r.keyPrefix+key).Err(); err != nil {
		return fmt.Errorf("failed to reset rate limit: %w", err)
	}
	return nil
}

// Ping Redis 연결 확인
func (r *RedisLimiter) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close Redis 연결 종료
func (r *RedisLimiter) Close() error {
	return r.client.Close()
}
