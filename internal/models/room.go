package models

import "time"

type RoomStatus string

const (
	RoomStatusWaiting RoomStatus = "waiting"
	RoomStatusMatched RoomStatus = "matched"
	RoomStatusDeleted RoomStatus = "deleted"
)

// MaxRoomParticipants 방 하나에 들어갈 수 있는 최대 인원
const MaxRoomParticipants = 2

type Room struct {
	Code         string     `json:"code"`
	TimeLimit    int        `json:"timeLimit"` // minutes
	Difficulty   Difficulty `json:"difficulty,omitempty"`
	Creator      Player     `json:"creator"`
	Participants []Player   `json:"participants"`
	Status       RoomStatus `json:"status"`
	CreatedAt    time.Time  `json:"createdAt"`
	ExpiresAt    time.Time  `json:"expiresAt"`
	MatchID      *string    `json:"matchId,omitempty"`
}

// HasParticipant 참가자 여부 확인
func (r *Room) HasParticipant(userID string) bool {
	for _, p := range r.Participants {
		if p.ID == userID {
			return true
		}
	}
	return false
}

// Clone 참가자 슬라이스까지 복사
func (r *Room) Clone() *Room {
	c := *r
	c.Participants = append([]Player(nil), r.Participants...)
	if r.MatchID != nil {
		id := *r.MatchID
		c.MatchID = &id
	}
	return &c
}
