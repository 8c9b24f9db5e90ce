package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	// Server
	Port     string
	Env      string
	LogLevel string

	// JWT
	JWTSecret string

	// CORS
	CORSAllowedOrigins []string

	// Battle
	QueueTimeLimits     []int // minutes
	DefaultDifficulties []string
	RoomTTL             time.Duration
	SweepInterval       time.Duration
	MatchRetention      time.Duration // 끝난 매치 레코드 보관 기간 (0이면 무기한)

	// Problem store: memory | postgres | mongo
	ProblemStore    string
	ProblemSeedFile string
	DatabaseURL     string
	MongoURI        string
	MongoDatabase   string

	// Executor (Judge0 호환 API)
	ExecutorURL          string
	ExecutorAPIKey       string
	ExecutorPollInterval time.Duration
	ExecutorTimeout      time.Duration

	// Redis (설정 시 제출 rate limit을 Redis로 공유)
	RedisURL        string
	SubmitRateLimit int // per minute
}

// Load 환경 변수와 .env 파일에서 설정 로드
func Load() (*Config, error) {
	// .env 파일 로드 (있는 경우)
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)

	limits, err := parseIntList(v.GetString("QUEUE_TIME_LIMITS"))
	if err != nil {
		return nil, fmt.Errorf("invalid QUEUE_TIME_LIMITS: %w", err)
	}

	cfg := &Config{
		Port:                 v.GetString("PORT"),
		Env:                  v.GetString("ENV"),
		LogLevel:             v.GetString("LOG_LEVEL"),
		JWTSecret:            v.GetString("JWT_SECRET"),
		CORSAllowedOrigins:   splitList(v.GetString("CORS_ALLOWED_ORIGINS")),
		QueueTimeLimits:      limits,
		DefaultDifficulties:  splitList(v.GetString("DEFAULT_DIFFICULTIES")),
		RoomTTL:              v.GetDuration("ROOM_TTL"),
		SweepInterval:        v.GetDuration("SWEEP_INTERVAL"),
		MatchRetention:       v.GetDuration("MATCH_RETENTION"),
		ProblemStore:         strings.ToLower(v.GetString("PROBLEM_STORE")),
		ProblemSeedFile:      v.GetString("PROBLEM_SEED_FILE"),
		DatabaseURL:          v.GetString("DATABASE_URL"),
		MongoURI:             v.GetString("MONGO_URI"),
		MongoDatabase:        v.GetString("MONGO_DATABASE"),
		ExecutorURL:          v.GetString("EXECUTOR_URL"),
		ExecutorAPIKey:       v.GetString("EXECUTOR_API_KEY"),
		ExecutorPollInterval: v.GetDuration("EXECUTOR_POLL_INTERVAL"),
		ExecutorTimeout:      v.GetDuration("EXECUTOR_TIMEOUT"),
		RedisURL:             v.GetString("REDIS_URL"),
		SubmitRateLimit:      v.GetInt("SUBMIT_RATE_LIMIT"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", "8080")
	v.SetDefault("ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("JWT_SECRET", "your-secret-key")
	v.SetDefault("CORS_ALLOWED_ORIGINS", "http://localhost:3000,http://localhost:5173")
	v.SetDefault("QUEUE_TIME_LIMITS", "5,10,15")
	v.SetDefault("DEFAULT_DIFFICULTIES", "easy,medium")
	v.SetDefault("ROOM_TTL", "30m")
	v.SetDefault("SWEEP_INTERVAL", "1s")
	v.SetDefault("MATCH_RETENTION", "1h")
	v.SetDefault("PROBLEM_STORE", "memory")
	v.SetDefault("PROBLEM_SEED_FILE", "problems.json")
	v.SetDefault("MONGO_DATABASE", "codeduel")
	v.SetDefault("EXECUTOR_URL", "http://localhost:2358")
	v.SetDefault("EXECUTOR_POLL_INTERVAL", "1s")
	v.SetDefault("EXECUTOR_TIMEOUT", "30s")
	v.SetDefault("SUBMIT_RATE_LIMIT", 10)
}

func (c *Config) validate() error {
	if len(c.QueueTimeLimits) == 0 {
		return fmt.Errorf("at least one queue time limit is required")
	}
	if c.SweepInterval <= 0 {
		return fmt.Errorf("SWEEP_INTERVAL must be positive")
	}
	if c.MatchRetention < 0 {
		return fmt.Errorf("MATCH_RETENTION must not be negative")
	}
	if c.RoomTTL <= 0 {
		return fmt.Errorf("ROOM_TTL must be positive")
	}
	switch c.ProblemStore {
	case "memory":
	case "postgres":
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for postgres problem store")
		}
	case "mongo":
		if c.MongoURI == "" {
			return fmt.Errorf("MONGO_URI is required for mongo problem store")
		}
	default:
		return fmt.Errorf("unknown PROBLEM_STORE %q", c.ProblemStore)
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parseIntList(s string) ([]int, error) {
	var out []int
	for _, part := range splitList(s) {
		n, err := strconv.Atoi(part)
		if err != nil {
			return nil, err
		}
		if n <= 0 {
			return nil, fmt.Errorf("time limit must be positive: %d", n)
		}
		out = append(out, n)
	}
	return out, nil
}
