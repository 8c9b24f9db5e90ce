package service

import (
	"fmt"
	"sync"
)

// PairingGuard 사용자당 하나의 매칭 컨텍스트(큐 버킷 또는 방)만 허용
type PairingGuard struct {
	mu      sync.Mutex
	holders map[string]string // userID -> context key
}

func NewPairingGuard() *PairingGuard {
	return &PairingGuard{holders: make(map[string]string)}
}

func queueContext(timeLimit int) string {
	return fmt.Sprintf("queue:%d", timeLimit)
}

func roomContext(code string) string {
	return "room:" + code
}

// Claim 같은 컨텍스트 재요청은 허용
func (g *PairingGuard) Claim(userID, key string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if held, ok := g.holders[userID]; ok && held != key {
		return fmt.Errorf("%w (%s)", ErrAlreadyPaired, held)
	}
	g.holders[userID] = key
	return nil
}

// Release 해당 컨텍스트를 들고 있을 때만 해제
func (g *PairingGuard) Release(userID, key string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.holders[userID] == key {
		delete(g.holders, userID)
	}
}

func (g *PairingGuard) Holder(userID string) (string, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	key, ok := g.holders[userID]
	return key, ok
}
