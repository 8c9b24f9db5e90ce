package api

import (
	"github.com/codeduel/duel-backend/internal/api/handlers"
	"github.com/codeduel/duel-backend/internal/api/middleware"
	"github.com/codeduel/duel-backend/internal/config"
	"github.com/codeduel/duel-backend/internal/service"
	"github.com/codeduel/duel-backend/internal/websocket"
	jwtutil "github.com/codeduel/duel-backend/pkg/jwt"
	"github.com/codeduel/duel-backend/pkg/ratelimit"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Dependencies 라우터가 사용하는 구성 요소
type Dependencies struct {
	Service     *service.Service
	Hub         *websocket.Hub
	Verifier    *jwtutil.Verifier
	SubmitLimit ratelimit.Limiter
	Logger      *zap.Logger
}

// SetupRouter API 라우터 설정. 웹소켓 이벤트 핸들러도 Hub에 연결함
func SetupRouter(cfg *config.Config, deps Dependencies) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// 전역 미들웨어
	router.Use(gin.Recovery())
	router.Use(middleware.Logger(deps.Logger.Named("http")))
	router.Use(middleware.CORS(cfg.CORSAllowedOrigins))

	battleHandler := handlers.NewBattleHandler(deps.Service)
	wsHandler := handlers.NewWebSocketHandler(deps.Hub, deps.Service, deps.SubmitLimit, cfg.CORSAllowedOrigins, deps.Logger.Named("ws"))
	deps.Hub.Attach(deps.Service, wsHandler)

	auth := middleware.Auth(deps.Verifier)
	submitLimit := middleware.RateLimit(deps.SubmitLimit, "submit", deps.Logger)

	// Health check
	router.GET("/health", handlers.HealthCheck(deps.Hub))

	v1 := router.Group("/api/v1")
	{
		// WebSocket endpoint (token 쿼리 허용)
		v1.GET("/ws", auth, wsHandler.HandleWebSocket)

		battles := v1.Group("/battles")
		battles.Use(auth)
		{
			battles.POST("/queue", battleHandler.JoinQueue)
			battles.DELETE("/queue", battleHandler.LeaveQueue)
			battles.GET("/queue/stats", battleHandler.QueueStats)

			battles.POST("/rooms", battleHandler.CreateRoom)
			battles.GET("/rooms/:code", battleHandler.GetRoom)
			battles.POST("/rooms/:code/join", battleHandler.JoinRoom)
			battles.POST("/rooms/:code/leave", battleHandler.LeaveRoom)

			battles.GET("/matches/:id", battleHandler.GetMatch)
			battles.POST("/matches/:id/submit", submitLimit, battleHandler.Submit)
			battles.POST("/matches/:id/run", submitLimit, battleHandler.Run)

			battles.GET("/problems/random", battleHandler.RandomProblem)
		}
	}

	return router
}
