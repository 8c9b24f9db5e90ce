package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/codeduel/duel-backend/internal/models"
	jwtutil "github.com/codeduel/duel-backend/pkg/jwt"
	"github.com/gin-gonic/gin"
)

const (
	ContextUserID   = "userId"
	ContextUsername = "username"
)

// Auth JWT 인증 미들웨어. WebSocket 핸드셰이크는 헤더 대신 token 쿼리 사용 가능
func Auth(verifier *jwtutil.Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := extractToken(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Authentication token required",
			})
			return
		}

		claims, err := verifier.Verify(token)
		if err != nil {
			msg := "Invalid token"
			if errors.Is(err, jwtutil.ErrExpiredToken) {
				msg = "Token expired"
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": msg})
			return
		}

		c.Set(ContextUserID, claims.UserID)
		c.Set(ContextUsername, claims.Username)

		c.Next()
	}
}

func extractToken(c *gin.Context) (string, bool) {
	if header := c.GetHeader("Authorization"); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
			return "", false
		}
		return parts[1], true
	}

	if token := c.Query("token"); token != "" {
		return token, true
	}
	return "", false
}

// CurrentPlayer Auth가 저장한 사용자 정보
func CurrentPlayer(c *gin.Context) (models.Player, bool) {
	userID := c.GetString(ContextUserID)
	if userID == "" {
		return models.Player{}, false
	}
	return models.Player{ID: userID, Username: c.GetString(ContextUsername)}, true
}
