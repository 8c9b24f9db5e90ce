package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/codeduel/duel-backend/internal/models"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

// JoinResult Position은 대기 순번(1부터), 매칭이 성사되면 0
type JoinResult struct {
	Position int
	Match    *models.Match
}

// QueueManager 시간 제한별 FIFO 대기열. 버킷에 둘이 모이면 가장 오래 기다린 둘을 매칭
type QueueManager struct {
	mu      sync.Mutex
	buckets map[int][]models.QueueEntry
	allowed map[int]bool
	pending map[string]*pendingPair // 문제 조회 중인 플레이어

	guard    *PairingGuard
	matches  *MatchCoordinator
	notifier Notifier
	clock    clockwork.Clock
	logger   *zap.Logger
}

// pendingPair 버킷에서 꺼내 매치 생성 중인 두 엔트리.
// 둘 다 매치가 등록되거나 실패할 때까지 큐 컨텍스트를 계속 점유함
type pendingPair struct {
	timeLimit int
	entries   [2]models.QueueEntry
	ctx       context.Context
	cancel    context.CancelCauseFunc
	left      bool
}

func NewQueueManager(
	timeLimits []int,
	guard *PairingGuard,
	matches *MatchCoordinator,
	notifier Notifier,
	clock clockwork.Clock,
	logger *zap.Logger,
) *QueueManager {
	allowed := make(map[int]bool, len(timeLimits))
	buckets := make(map[int][]models.QueueEntry, len(timeLimits))
	for _, t := range timeLimits {
		allowed[t] = true
		buckets[t] = nil
	}

	return &QueueManager{
		buckets:  buckets,
		allowed:  allowed,
		pending:  make(map[string]*pendingPair),
		guard:    guard,
		matches:  matches,
		notifier: notifier,
		clock:    clock,
		logger:   logger,
	}
}

// Join 대기열 등록. 매칭 실패는 이미 match-creation-failed로 통보되므로 에러로 돌려주지 않음
func (q *QueueManager) Join(ctx context.Context, timeLimit int, player models.Player, connectionID string) (*JoinResult, error) {
	if player.ID == "" {
		return nil, ErrNotAuthenticated
	}
	if !q.allowed[timeLimit] {
		return nil, fmt.Errorf("%w: %d minutes", ErrInvalidTimeLimit, timeLimit)
	}

	q.mu.Lock()

	if _, pairing := q.pending[player.ID]; pairing {
		q.mu.Unlock()
		return nil, ErrAlreadyQueued
	}
	for _, e := range q.buckets[timeLimit] {
		if e.UserID == player.ID {
			q.mu.Unlock()
			return nil, ErrAlreadyQueued
		}
	}
	if q.matches.InMatch(player.ID) {
		q.mu.Unlock()
		return nil, ErrAlreadyInMatch
	}
	if err := q.guard.Claim(player.ID, queueContext(timeLimit)); err != nil {
		q.mu.Unlock()
		return nil, err
	}

	q.buckets[timeLimit] = append(q.buckets[timeLimit], models.QueueEntry{
		UserID:       player.ID,
		Username:     player.Username,
		ConnectionID: connectionID,
		JoinedAt:     q.clock.Now(),
	})
	position := len(q.buckets[timeLimit])
	pair := q.popPairLocked(ctx, timeLimit)
	q.mu.Unlock()

	q.logger.Info("User joined matchmaking",
		zap.String("userId", player.ID),
		zap.Int("timeLimit", timeLimit),
		zap.Int("position", position))

	q.notifier.Notify(player.ID, EventMatchmakingJoined, QueueJoinedEvent{
		TimeLimit:     timeLimit,
		QueuePosition: position,
	})

	if pair == nil {
		return &JoinResult{Position: position}, nil
	}
	return q.pairUp(ctx, pair, player.ID), nil
}

func (q *QueueManager) popPairLocked(ctx context.Context, timeLimit int) *pendingPair {
	bucket := q.buckets[timeLimit]
	if len(bucket) < 2 {
		return nil
	}

	p := &pendingPair{
		timeLimit: timeLimit,
		entries:   [2]models.QueueEntry{bucket[0], bucket[1]},
	}
	p.ctx, p.cancel = context.WithCancelCause(ctx)
	q.buckets[timeLimit] = append([]models.QueueEntry(nil), bucket[2:]...)
	for _, e := range p.entries {
		q.pending[e.UserID] = p
	}
	return p
}

// pairUp 매치 생성. 문제 조회 중 한쪽이 떠나면 남은 쪽을 버킷 맨 앞으로 되돌리고 다시 매칭
func (q *QueueManager) pairUp(ctx context.Context, p *pendingPair, callerID string) *JoinResult {
	result := &JoinResult{}

	for p != nil {
		a, b := p.entries[0].Player(), p.entries[1].Player()
		match, err := q.matches.CreateMatch(p.ctx, a, b, time.Duration(p.timeLimit)*time.Minute, nil)
		p.cancel(nil)

		q.mu.Lock()
		var survivors []models.QueueEntry
		for _, e := range p.entries {
			if q.pending[e.UserID] != p {
				continue
			}
			delete(q.pending, e.UserID)
			survivors = append(survivors, e)
		}

		var next *pendingPair
		var requeued []notification
		aborted := err != nil && p.left
		if aborted {
			// 떠난 쪽은 이미 RemoveUser에서 정리됨. 남은 쪽은 순번 유지
			bucket := q.buckets[p.timeLimit]
			q.buckets[p.timeLimit] = append(append([]models.QueueEntry(nil), survivors...), bucket...)
			for i, e := range survivors {
				requeued = append(requeued, notification{e.UserID, EventMatchmakingJoined, QueueJoinedEvent{
					TimeLimit:     p.timeLimit,
					QueuePosition: i + 1,
				}})
			}
			next = q.popPairLocked(ctx, p.timeLimit)
		} else {
			for _, e := range survivors {
				q.guard.Release(e.UserID, queueContext(p.timeLimit))
			}
		}
		q.mu.Unlock()

		switch {
		case err == nil:
			if match.HasPlayer(callerID) {
				result.Match = match
			}
		case aborted:
			q.logger.Info("Queue pairing aborted, survivors requeued",
				zap.String("player1", a.ID),
				zap.String("player2", b.ID),
				zap.Int("requeued", len(survivors)))
		default:
			q.logger.Warn("Queue pairing failed",
				zap.String("player1", a.ID),
				zap.String("player2", b.ID),
				zap.Error(err))
		}

		deliver(q.notifier, requeued)
		p = next
	}

	if result.Match == nil {
		result.Position = q.positionOf(callerID)
	}
	return result
}

func (q *QueueManager) positionOf(userID string) int {
	q.mu.Lock()
	defer q.mu.Unlock()

	for _, bucket := range q.buckets {
		for i, e := range bucket {
			if e.UserID == userID {
				return i + 1
			}
		}
	}
	return 0
}

// Leave 대기열에서 제거. 없으면 no-op
func (q *QueueManager) Leave(timeLimit int, userID string) bool {
	q.mu.Lock()
	removed := q.removeLocked(timeLimit, userID)
	q.mu.Unlock()

	if removed {
		q.notifier.Notify(userID, EventMatchmakingLeft, QueueJoinedEvent{TimeLimit: timeLimit})
	}
	return removed
}

// RemoveUser 모든 버킷에서 사용자 제거 (연결 종료)
func (q *QueueManager) RemoveUser(userID string) int {
	q.mu.Lock()
	defer q.mu.Unlock()

	removed := 0
	for t := range q.buckets {
		if q.removeLocked(t, userID) {
			removed++
		}
	}
	if removed > 0 {
		q.logger.Debug("Removed user from matchmaking", zap.String("userId", userID))
	}
	return removed
}

func (q *QueueManager) removeLocked(timeLimit int, userID string) bool {
	bucket := q.buckets[timeLimit]
	for i, e := range bucket {
		if e.UserID == userID {
			q.buckets[timeLimit] = append(bucket[:i:i], bucket[i+1:]...)
			q.guard.Release(userID, queueContext(timeLimit))
			return true
		}
	}

	// 매치 생성 중이면 등록 전에 취소
	p, ok := q.pending[userID]
	if !ok || p.timeLimit != timeLimit {
		return false
	}
	delete(q.pending, userID)
	q.guard.Release(userID, queueContext(timeLimit))
	p.left = true
	p.cancel(fmt.Errorf("%w: %s", ErrPairingAborted, userID))
	return true
}

// Size 버킷 대기 인원
func (q *QueueManager) Size(timeLimit int) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.buckets[timeLimit])
}

// Snapshot 버킷별 대기 인원
func (q *QueueManager) Snapshot() map[int]int {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make(map[int]int, len(q.buckets))
	for t, bucket := range q.buckets {
		out[t] = len(bucket)
	}
	return out
}

// TimeLimits 허용된 시간 제한 목록 (오름차순)
func (q *QueueManager) TimeLimits() []int {
	out := make([]int, 0, len(q.allowed))
	for t := range q.allowed {
		out = append(out, t)
	}
	sort.Ints(out)
	return out
}
