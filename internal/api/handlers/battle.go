package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/codeduel/duel-backend/internal/api/middleware"
	"github.com/codeduel/duel-backend/internal/models"
	"github.com/codeduel/duel-backend/internal/service"
	"github.com/gin-gonic/gin"
)

// BattleHandler 큐/방/매치 REST 엔드포인트
type BattleHandler struct {
	svc *service.Service
}

func NewBattleHandler(svc *service.Service) *BattleHandler {
	return &BattleHandler{svc: svc}
}

func currentPlayer(c *gin.Context) (models.Player, bool) {
	player, ok := middleware.CurrentPlayer(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
	}
	return player, ok
}

// detached 요청이 끊겨도 매치 생성이 중간에 취소되지 않도록 분리된 컨텍스트
func detached(c *gin.Context) context.Context {
	return context.WithoutCancel(c.Request.Context())
}

// JoinQueue 매칭 대기열 참가
func (h *BattleHandler) JoinQueue(c *gin.Context) {
	player, ok := currentPlayer(c)
	if !ok {
		return
	}

	var req models.JoinQueueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	connID, _ := h.svc.Registry.ConnectionOf(player.ID)
	res, err := h.svc.Queue.Join(detached(c), req.TimeLimit, player, connID)
	if err != nil {
		respondError(c, err)
		return
	}

	if res.Match != nil {
		c.JSON(http.StatusOK, gin.H{"matched": true, "match": res.Match})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"matched":       false,
		"timeLimit":     req.TimeLimit,
		"queuePosition": res.Position,
	})
}

// LeaveQueue 대기열 이탈. body 또는 query의 timeLimit 사용
func (h *BattleHandler) LeaveQueue(c *gin.Context) {
	player, ok := currentPlayer(c)
	if !ok {
		return
	}

	var req models.JoinQueueRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	removed := h.svc.Queue.Leave(req.TimeLimit, player.ID)
	c.JSON(http.StatusOK, gin.H{"removed": removed})
}

// QueueStats 대기열/매치 현황
func (h *BattleHandler) QueueStats(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.Stats())
}

// CreateRoom 비공개 방 생성
func (h *BattleHandler) CreateRoom(c *gin.Context) {
	player, ok := currentPlayer(c)
	if !ok {
		return
	}

	var req models.CreateRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	room, err := h.svc.Rooms.CreateRoom(req.TimeLimit, player, req.Difficulty)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"roomCode": room.Code,
		"room":     room,
	})
}

// JoinRoom 코드로 방 입장. 두 번째 참가자면 매치 시작
func (h *BattleHandler) JoinRoom(c *gin.Context) {
	player, ok := currentPlayer(c)
	if !ok {
		return
	}

	res, err := h.svc.Rooms.JoinRoom(detached(c), c.Param("code"), player)
	if err != nil {
		respondError(c, err)
		return
	}

	if res.Waiting {
		c.JSON(http.StatusOK, gin.H{"waiting": true, "room": res.Room})
		return
	}
	c.JSON(http.StatusOK, gin.H{"waiting": false, "room": res.Room, "match": res.Match})
}

// LeaveRoom 방 나가기 (멱등)
func (h *BattleHandler) LeaveRoom(c *gin.Context) {
	player, ok := currentPlayer(c)
	if !ok {
		return
	}

	left := h.svc.Rooms.LeaveRoom(c.Param("code"), player.ID)
	c.JSON(http.StatusOK, gin.H{"left": left})
}

// GetRoom 방 조회
func (h *BattleHandler) GetRoom(c *gin.Context) {
	room, err := h.svc.Rooms.GetRoom(c.Param("code"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"room": room})
}

// GetMatch 매치 조회 (히든 테스트 제외)
func (h *BattleHandler) GetMatch(c *gin.Context) {
	match, err := h.svc.Matches.GetMatch(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"match": match})
}

// Submit 히든 테스트로 채점
func (h *BattleHandler) Submit(c *gin.Context) {
	h.execute(c, h.svc.Matches.Submit)
}

// Run 공개 예제로 실행
func (h *BattleHandler) Run(c *gin.Context) {
	h.execute(c, h.svc.Matches.RunExamples)
}

type runFunc func(ctx context.Context, matchID, userID, source, language string) (*models.Verdict, error)

func (h *BattleHandler) execute(c *gin.Context, run runFunc) {
	player, ok := currentPlayer(c)
	if !ok {
		return
	}

	var req models.SubmitCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	verdict, err := run(c.Request.Context(), c.Param("id"), player.ID, req.Code, req.Language)
	if err != nil {
		status := statusFor(err)
		if verdict != nil {
			c.JSON(status, gin.H{"error": err.Error(), "result": verdict})
			return
		}
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": verdict.Accepted,
		"result":  verdict,
	})
}

// RandomProblem 히든 테스트 없이 무작위 문제 미리보기. ?difficulty=easy,medium
func (h *BattleHandler) RandomProblem(c *gin.Context) {
	var values []string
	for _, part := range strings.Split(c.Query("difficulty"), ",") {
		if part = strings.TrimSpace(part); part != "" {
			values = append(values, part)
		}
	}

	difficulties, err := service.ParseDifficulties(values)
	if err != nil {
		respondError(c, err)
		return
	}

	problem, err := h.svc.Problems.Preview(c.Request.Context(), difficulties)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"problem": problem})
}
