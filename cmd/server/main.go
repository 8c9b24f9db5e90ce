package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/codeduel/duel-backend/internal/api"
	"github.com/codeduel/duel-backend/internal/config"
	"github.com/codeduel/duel-backend/internal/repository"
	"github.com/codeduel/duel-backend/internal/service"
	"github.com/codeduel/duel-backend/internal/websocket"
	"github.com/codeduel/duel-backend/pkg/database"
	"github.com/codeduel/duel-backend/pkg/executor"
	jwtutil "github.com/codeduel/duel-backend/pkg/jwt"
	"github.com/codeduel/duel-backend/pkg/logger"
	"github.com/codeduel/duel-backend/pkg/ratelimit"
	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"
)

func main() {
	// 설정 로드
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 로거 초기화
	logger.Init(cfg.LogLevel, cfg.Env)
	defer logger.Sync()

	logger.Info("Starting Duel Backend",
		"port", cfg.Port,
		"env", cfg.Env,
		"problemStore", cfg.ProblemStore,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 문제 저장소
	repo, closeRepo, err := openProblemStore(ctx, cfg)
	if err != nil {
		logger.Fatal("Failed to open problem store", "error", err)
	}
	defer closeRepo()

	defaults, err := service.ParseDifficulties(cfg.DefaultDifficulties)
	if err != nil {
		logger.Fatal("Invalid DEFAULT_DIFFICULTIES", "error", err)
	}

	exec := executor.NewClient(cfg.ExecutorURL, executor.Options{
		APIKey:       cfg.ExecutorAPIKey,
		PollInterval: cfg.ExecutorPollInterval,
		Timeout:      cfg.ExecutorTimeout,
	})

	hub := websocket.NewHub(logger.Named("hub"))
	svc := service.New(repo, exec, hub, clockwork.NewRealClock(), logger.L(), service.Options{
		TimeLimits:          cfg.QueueTimeLimits,
		DefaultDifficulties: defaults,
		RoomTTL:             cfg.RoomTTL,
		SweepInterval:       cfg.SweepInterval,
		MatchRetention:      cfg.MatchRetention,
	})

	submitLimit, closeLimiter, err := openSubmitLimiter(ctx, cfg)
	if err != nil {
		logger.Fatal("Failed to set up rate limiter", "error", err)
	}
	defer closeLimiter()

	router := api.SetupRouter(cfg, api.Dependencies{
		Service:     svc,
		Hub:         hub,
		Verifier:    jwtutil.NewVerifier(cfg.JWTSecret),
		SubmitLimit: submitLimit,
		Logger:      logger.L(),
	})

	// 서버 설정
	srv := &http.Server{
		Addr:        fmt.Sprintf(":%s", cfg.Port),
		Handler:     router,
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	svc.Sweeper.Start()
	defer svc.Sweeper.Stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return hub.Run(gctx)
	})

	g.Go(func() error {
		logger.Info("Server listening", "address", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	// Graceful shutdown 대기
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down server...")

		// 10초 타임아웃으로 종료
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Server stopped with error", "error", err)
	}

	logger.Info("Server exited")
}

// openProblemStore PROBLEM_STORE 설정에 따라 저장소 선택
func openProblemStore(ctx context.Context, cfg *config.Config) (service.ProblemRepository, func(), error) {
	switch cfg.ProblemStore {
	case "postgres":
		db, err := database.Connect(ctx, cfg.DatabaseURL, database.PoolOptions{})
		if err != nil {
			return nil, nil, err
		}
		repo := repository.NewPostgresProblemRepository(db)
		if err := repo.Migrate(ctx); err != nil {
			db.Close()
			return nil, nil, err
		}
		seedStore(ctx, repo, cfg.ProblemSeedFile)
		return repo, func() { db.Close() }, nil

	case "mongo":
		repo, err := repository.ConnectMongo(ctx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			return nil, nil, err
		}
		seedStore(ctx, repo, cfg.ProblemSeedFile)
		return repo, func() {
			closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = repo.Close(closeCtx)
		}, nil

	default:
		repo, err := repository.LoadProblemSeed(cfg.ProblemSeedFile)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("Problem seed loaded", "file", cfg.ProblemSeedFile, "problems", repo.Count())
		return repo, func() {}, nil
	}
}

// seedStore 빈 DB에 시드 문제 적재. 실패해도 서버는 계속 기동
func seedStore(ctx context.Context, store repository.ProblemWriter, path string) {
	if path == "" {
		return
	}
	n, err := repository.SeedIfEmpty(ctx, store, path)
	if err != nil {
		logger.Warn("Failed to seed problem store", "file", path, "error", err)
		return
	}
	if n > 0 {
		logger.Info("Problem store seeded", "file", path, "problems", n)
	}
}

// openSubmitLimiter REDIS_URL이 있으면 인스턴스 간 공유되는 Redis 리미터 사용
func openSubmitLimiter(ctx context.Context, cfg *config.Config) (ratelimit.Limiter, func(), error) {
	if cfg.RedisURL == "" {
		return ratelimit.NewMemoryLimiter(cfg.SubmitRateLimit, time.Minute, clockwork.NewRealClock()), func() {}, nil
	}

	client, err := ratelimit.NewRedisClient(cfg.RedisURL)
	if err != nil {
		return nil, nil, err
	}
	limiter := ratelimit.NewRedisLimiter(client, "duel:ratelimit", cfg.SubmitRateLimit, time.Minute)
	if err := limiter.Ping(ctx); err != nil {
		_ = limiter.Close()
		return nil, nil, err
	}
	logger.Info("Redis rate limiter enabled")
	return limiter, func() { _ = limiter.Close() }, nil
}
