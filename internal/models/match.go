package models

import "time"

type MatchStatus string

const (
	MatchStatusActive    MatchStatus = "active"
	MatchStatusCompleted MatchStatus = "completed"
	MatchStatusAbandoned MatchStatus = "abandoned"
	MatchStatusDraw      MatchStatus = "draw"
)

// Terminal 더 이상 전이가 불가능한 상태인지 확인
func (s MatchStatus) Terminal() bool {
	return s == MatchStatusCompleted || s == MatchStatusAbandoned || s == MatchStatusDraw
}

type MatchType string

const (
	MatchTypeQueue   MatchType = "queue"
	MatchTypePrivate MatchType = "private"
)

type Player struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

type Match struct {
	ID          string        `json:"id"`
	Type        MatchType     `json:"type"`
	RoomCode    string        `json:"roomCode,omitempty"`
	Players     [2]Player     `json:"players"`
	Problem     *Problem      `json:"problem"`
	TimeLimit   time.Duration `json:"-"`
	TimeLimitMs int64         `json:"timeLimit"`
	StartTime   time.Time     `json:"startTime"`
	EndTime     time.Time     `json:"endTime"`
	Status      MatchStatus   `json:"status"`
	WinnerID    *string       `json:"winner,omitempty"`
	FinishedAt  *time.Time    `json:"finishedAt,omitempty"`
}

// HasPlayer 해당 사용자가 매치 참가자인지 확인
func (m *Match) HasPlayer(userID string) bool {
	return m.Players[0].ID == userID || m.Players[1].ID == userID
}

// Opponent 상대 플레이어 반환
func (m *Match) Opponent(userID string) (Player, bool) {
	switch userID {
	case m.Players[0].ID:
		return m.Players[1], true
	case m.Players[1].ID:
		return m.Players[0], true
	}
	return Player{}, false
}

// Clone 락 밖으로 내보낼 스냅샷 복사본
func (m *Match) Clone() *Match {
	c := *m
	if m.WinnerID != nil {
		w := *m.WinnerID
		c.WinnerID = &w
	}
	if m.FinishedAt != nil {
		f := *m.FinishedAt
		c.FinishedAt = &f
	}
	return &c
}
