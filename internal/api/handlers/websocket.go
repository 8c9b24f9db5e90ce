package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"

	"github.com/codeduel/duel-backend/internal/api/middleware"
	"github.com/codeduel/duel-backend/internal/models"
	"github.com/codeduel/duel-backend/internal/service"
	"github.com/codeduel/duel-backend/internal/websocket"
	"github.com/codeduel/duel-backend/pkg/ratelimit"
	"github.com/gin-gonic/gin"
	gorilla "github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// 클라이언트 -> 서버 이벤트 타입
const (
	EventJoinMatchmaking   = "join-matchmaking"
	EventLeaveMatchmaking  = "leave-matchmaking"
	EventCreatePrivateRoom = "create-private-room"
	EventJoinPrivateRoom   = "join-private-room"
	EventLeavePrivateRoom  = "leave-private-room"
	EventWaitInPrivateRoom = "wait-in-private-room"
	EventSubmitCode        = "submit-code"
	EventRunCode           = "run-code"
)

type queuePayload struct {
	TimeLimit int `json:"timeLimit"`
}

type createRoomPayload struct {
	TimeLimit  int    `json:"timeLimit"`
	Difficulty string `json:"difficulty"`
}

type roomPayload struct {
	RoomCode string `json:"roomCode"`
}

type codePayload struct {
	MatchID  string `json:"matchId"`
	Code     string `json:"code"`
	Language string `json:"language"`
}

// submitScope REST submit/run 라우트와 같은 rate limit 버킷
const submitScope = "submit"

// replySender 요청한 연결로 직접 응답 (websocket.Hub 구현)
type replySender interface {
	SendToConnection(connectionID, msgType string, payload interface{}) bool
}

// WebSocketHandler 연결 업그레이드와 인바운드 이벤트 라우팅
type WebSocketHandler struct {
	hub      *websocket.Hub
	sender   replySender
	upgrader *gorilla.Upgrader
	svc      *service.Service
	limiter  ratelimit.Limiter
	logger   *zap.Logger
}

func NewWebSocketHandler(
	hub *websocket.Hub,
	svc *service.Service,
	limiter ratelimit.Limiter,
	allowedOrigins []string,
	logger *zap.Logger,
) *WebSocketHandler {
	return &WebSocketHandler{
		hub:      hub,
		sender:   hub,
		upgrader: websocket.NewUpgrader(allowedOrigins),
		svc:      svc,
		limiter:  limiter,
		logger:   logger,
	}
}

// HandleWebSocket WebSocket 연결 엔드포인트 (Auth 미들웨어 뒤)
func (h *WebSocketHandler) HandleWebSocket(c *gin.Context) {
	player, ok := middleware.CurrentPlayer(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	websocket.ServeWs(h.hub, h.upgrader, c.Writer, c.Request, player.ID, player.Username)
}

// HandleMessage 이벤트 타입별 처리. 실패는 요청한 연결에 *-error 이벤트로 응답
func (h *WebSocketHandler) HandleMessage(ctx context.Context, conn websocket.Conn, msg websocket.Envelope) {
	player := models.Player{ID: conn.UserID, Username: conn.Username}

	switch msg.Type {
	case EventJoinMatchmaking:
		var p queuePayload
		if !h.decode(conn, msg, service.EventMatchmakingError, &p) {
			return
		}
		if _, err := h.svc.Queue.Join(context.WithoutCancel(ctx), p.TimeLimit, player, conn.ID); err != nil {
			h.fail(conn, service.EventMatchmakingError, err)
		}

	case EventLeaveMatchmaking:
		var p queuePayload
		if !h.decode(conn, msg, service.EventMatchmakingError, &p) {
			return
		}
		h.svc.Queue.Leave(p.TimeLimit, player.ID)

	case EventCreatePrivateRoom:
		var p createRoomPayload
		if !h.decode(conn, msg, service.EventRoomCreationError, &p) {
			return
		}
		if _, err := h.svc.Rooms.CreateRoom(p.TimeLimit, player, p.Difficulty); err != nil {
			h.fail(conn, service.EventRoomCreationError, err)
		}

	case EventJoinPrivateRoom:
		var p roomPayload
		if !h.decode(conn, msg, service.EventRoomJoinError, &p) {
			return
		}
		if _, err := h.svc.Rooms.JoinRoom(context.WithoutCancel(ctx), p.RoomCode, player); err != nil && !service.Notified(err) {
			h.fail(conn, service.EventRoomJoinError, err)
		}

	case EventLeavePrivateRoom:
		var p roomPayload
		if !h.decode(conn, msg, service.EventError, &p) {
			return
		}
		h.svc.Rooms.LeaveRoom(p.RoomCode, player.ID)

	case EventWaitInPrivateRoom:
		var p roomPayload
		if !h.decode(conn, msg, service.EventRoomJoinError, &p) {
			return
		}
		if _, _, err := h.svc.Rooms.AttachPresence(p.RoomCode, player.ID, conn.ID); err != nil {
			h.fail(conn, service.EventRoomJoinError, err)
		}

	case EventSubmitCode:
		var p codePayload
		if !h.decode(conn, msg, service.EventSubmissionError, &p) || !h.allow(ctx, conn, service.EventSubmissionError) {
			return
		}
		// 채점은 수 초가 걸리므로 읽기 루프를 막지 않음
		go func() {
			_, err := h.svc.Matches.Submit(ctx, p.MatchID, player.ID, p.Code, p.Language)
			if err != nil && !service.Notified(err) {
				h.fail(conn, service.EventSubmissionError, err)
			}
		}()

	case EventRunCode:
		var p codePayload
		if !h.decode(conn, msg, service.EventRunError, &p) || !h.allow(ctx, conn, service.EventRunError) {
			return
		}
		go func() {
			_, err := h.svc.Matches.RunExamples(ctx, p.MatchID, player.ID, p.Code, p.Language)
			if err != nil && !service.Notified(err) {
				h.fail(conn, service.EventRunError, err)
			}
		}()

	default:
		h.sender.SendToConnection(conn.ID, service.EventError, service.ErrorEvent{
			Message: "Unknown event type: " + msg.Type,
		})
	}
}

// allow 사용자별 제출/실행 횟수 제한. 저장소 오류 시 허용 (fail-open)
func (h *WebSocketHandler) allow(ctx context.Context, conn websocket.Conn, errorEvent string) bool {
	if h.limiter == nil {
		return true
	}

	d, err := h.limiter.Allow(ctx, submitScope+":user:"+conn.UserID)
	if err != nil {
		h.logger.Warn("Rate limit check failed", zap.String("userId", conn.UserID), zap.Error(err))
		return true
	}
	if !d.Allowed {
		h.sender.SendToConnection(conn.ID, errorEvent, service.ErrorEvent{
			Message: fmt.Sprintf("Too many requests. Retry in %ds", int(math.Ceil(d.RetryAfter.Seconds()))),
		})
		return false
	}
	return true
}

func (h *WebSocketHandler) decode(conn websocket.Conn, msg websocket.Envelope, errorEvent string, v interface{}) bool {
	if len(msg.Payload) == 0 {
		h.sender.SendToConnection(conn.ID, errorEvent, service.ErrorEvent{Message: "Missing payload"})
		return false
	}
	if err := json.Unmarshal(msg.Payload, v); err != nil {
		h.sender.SendToConnection(conn.ID, errorEvent, service.ErrorEvent{Message: "Invalid payload"})
		return false
	}
	return true
}

func (h *WebSocketHandler) fail(conn websocket.Conn, errorEvent string, err error) {
	if statusFor(err) == http.StatusInternalServerError {
		h.logger.Error("WebSocket event failed",
			zap.String("connectionId", conn.ID),
			zap.String("event", errorEvent),
			zap.Error(err))
	}
	h.sender.SendToConnection(conn.ID, errorEvent, service.ErrorEvent{Message: err.Error()})
}
