package service

import "github.com/codeduel/duel-backend/internal/models"

// 클라이언트로 push 되는 이벤트 타입
const (
	EventMatchmakingJoined    = "matchmaking-joined"
	EventMatchmakingLeft      = "matchmaking-left"
	EventMatchmakingError     = "matchmaking-error"
	EventMatchFound           = "match-found"
	EventMatchCreationFailed  = "match-creation-failed"
	EventRoomCreated          = "room-created"
	EventRoomCreationError    = "room-creation-error"
	EventRoomJoined           = "room-joined"
	EventRoomJoinError        = "room-join-error"
	EventWaitingForOpponent   = "waiting-for-opponent"
	EventPrivateMatchFound    = "private-match-found"
	EventParticipantLeft      = "participant-left"
	EventRoomExpired          = "room-expired"
	EventSubmissionResult     = "submission-result"
	EventSubmissionError      = "submission-error"
	EventRunResult            = "run-result"
	EventRunError             = "run-error"
	EventMatchWon             = "match-won"
	EventMatchLost            = "match-lost"
	EventOpponentDisconnected = "opponent-disconnected"
	EventMatchTimeout         = "match-timeout"
	EventError                = "error"
)

type QueueJoinedEvent struct {
	TimeLimit     int `json:"timeLimit"`
	QueuePosition int `json:"queuePosition"`
}

type MatchEvent struct {
	Message string        `json:"message,omitempty"`
	Match   *models.Match `json:"match"`
}

type RoomEvent struct {
	RoomCode           string       `json:"roomCode"`
	Room               *models.Room `json:"roomData,omitempty"`
	LeftUserID         string       `json:"leftUserId,omitempty"`
	WaitingForOpponent bool         `json:"waitingForOpponent,omitempty"`
}

type VerdictEvent struct {
	MatchID string          `json:"matchId"`
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Result  *models.Verdict `json:"result"`
}

type ErrorEvent struct {
	Message string `json:"message"`
}
