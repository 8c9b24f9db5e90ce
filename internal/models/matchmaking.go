package models

import "time"

// QueueEntry 매칭 대기열의 한 항목
type QueueEntry struct {
	UserID       string    `json:"userId"`
	Username     string    `json:"username"`
	ConnectionID string    `json:"-"`
	JoinedAt     time.Time `json:"joinedAt"`
}

// Player 엔트리를 매치 참가자로 변환
func (e QueueEntry) Player() Player {
	return Player{ID: e.UserID, Username: e.Username}
}

type QueueStats struct {
	TimeLimits    []int       `json:"timeLimits"` // 허용된 큐 시간 제한(분)
	Buckets       map[int]int `json:"buckets"`    // timeLimit(minutes) -> waiting
	ActiveMatches int         `json:"activeMatches"`
	LiveRooms     int         `json:"liveRooms"`
	Connections   int         `json:"connections"`
}

type JoinQueueRequest struct {
	TimeLimit int `json:"timeLimit" form:"timeLimit" binding:"required"`
}

type CreateRoomRequest struct {
	TimeLimit  int    `json:"timeLimit" binding:"required"`
	Difficulty string `json:"difficulty"`
}
