package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ConnectionCounter 현재 WebSocket 연결 수 (websocket.Hub 구현)
type ConnectionCounter interface {
	ClientCount() int
}

// HealthCheck 서버 상태와 연결 수
func HealthCheck(counter ConnectionCounter) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":      "ok",
			"service":     "duel-backend",
			"connections": counter.ClientCount(),
		})
	}
}
