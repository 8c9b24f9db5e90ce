package handlers

import (
	"errors"
	"net/http"

	"github.com/codeduel/duel-backend/internal/service"
	"github.com/gin-gonic/gin"
)

// statusFor 서비스 sentinel 에러를 HTTP 상태 코드로 변환
func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrNotAuthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrNotParticipant):
		return http.StatusForbidden
	case errors.Is(err, service.ErrMatchNotFound),
		errors.Is(err, service.ErrRoomNotFound),
		errors.Is(err, service.ErrProblemNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrInvalidInput),
		errors.Is(err, service.ErrInvalidTimeLimit),
		errors.Is(err, service.ErrInvalidDifficulty),
		errors.Is(err, service.ErrUnsupportedLanguage):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrAlreadyQueued),
		errors.Is(err, service.ErrAlreadyPaired),
		errors.Is(err, service.ErrAlreadyInMatch),
		errors.Is(err, service.ErrAlreadyInRoom),
		errors.Is(err, service.ErrRoomFull),
		errors.Is(err, service.ErrRoomUnavailable),
		errors.Is(err, service.ErrMatchNotActive),
		errors.Is(err, service.ErrPairingAborted):
		return http.StatusConflict
	case errors.Is(err, service.ErrProblemUnavailable),
		errors.Is(err, service.ErrExecutionFailed):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func respondError(c *gin.Context, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		_ = c.Error(err)
		c.JSON(status, gin.H{"error": "Internal server error"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
