package service

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/codeduel/duel-backend/internal/models"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

const (
	roomCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	roomCodeLength   = 6

	minRoomTimeLimit = 1
	maxRoomTimeLimit = 120

	maxCodeAttempts = 1000
)

// CodeGenerator 방 초대 코드 생성기
type CodeGenerator func() string

// RandomRoomCode 6자리 영대문자+숫자 코드
func RandomRoomCode() string {
	var sb strings.Builder
	sb.Grow(roomCodeLength)
	for i := 0; i < roomCodeLength; i++ {
		sb.WriteByte(roomCodeAlphabet[rand.Intn(len(roomCodeAlphabet))])
	}
	return sb.String()
}

type RoomOptions struct {
	TTL   time.Duration
	Codes CodeGenerator
}

// RoomJoinResult Waiting이면 아직 상대가 없음, 아니면 Match가 채워짐
type RoomJoinResult struct {
	Room    *models.Room
	Match   *models.Match
	Waiting bool
}

type roomState struct {
	room     *models.Room
	expiry   clockwork.Timer
	presence map[string]string                  // userID -> connectionID
	joining  map[string]context.CancelCauseFunc // 문제 조회 중인 입장자
}

// RoomManager 초대 코드 기반 2인 대기실
type RoomManager struct {
	mu    sync.Mutex
	rooms map[string]*roomState

	guard    *PairingGuard
	matches  *MatchCoordinator
	problems ProblemSource
	notifier Notifier
	clock    clockwork.Clock
	logger   *zap.Logger
	ttl      time.Duration
	codes    CodeGenerator
}

func NewRoomManager(
	guard *PairingGuard,
	matches *MatchCoordinator,
	problems ProblemSource,
	notifier Notifier,
	clock clockwork.Clock,
	logger *zap.Logger,
	opts RoomOptions,
) *RoomManager {
	if opts.TTL <= 0 {
		opts.TTL = 30 * time.Minute
	}
	if opts.Codes == nil {
		opts.Codes = RandomRoomCode
	}

	return &RoomManager{
		rooms:    make(map[string]*roomState),
		guard:    guard,
		matches:  matches,
		problems: problems,
		notifier: notifier,
		clock:    clock,
		logger:   logger,
		ttl:      opts.TTL,
		codes:    opts.Codes,
	}
}

// CreateRoom 대기 상태의 방 생성 후 TTL 만료 예약
func (r *RoomManager) CreateRoom(timeLimit int, creator models.Player, difficulty string) (*models.Room, error) {
	if creator.ID == "" {
		return nil, ErrNotAuthenticated
	}
	if timeLimit < minRoomTimeLimit || timeLimit > maxRoomTimeLimit {
		return nil, fmt.Errorf("%w: must be between %d and %d minutes",
			ErrInvalidTimeLimit, minRoomTimeLimit, maxRoomTimeLimit)
	}
	d := models.Difficulty(difficulty)
	if d != "" && !d.Valid() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidDifficulty, difficulty)
	}

	r.mu.Lock()

	if r.matches.InMatch(creator.ID) {
		r.mu.Unlock()
		return nil, ErrAlreadyInMatch
	}

	code, err := r.newCodeLocked()
	if err != nil {
		r.mu.Unlock()
		return nil, err
	}
	if err := r.guard.Claim(creator.ID, roomContext(code)); err != nil {
		r.mu.Unlock()
		return nil, err
	}

	now := r.clock.Now()
	st := &roomState{
		room: &models.Room{
			Code:         code,
			TimeLimit:    timeLimit,
			Difficulty:   d,
			Creator:      creator,
			Participants: []models.Player{creator},
			Status:       models.RoomStatusWaiting,
			CreatedAt:    now,
			ExpiresAt:    now.Add(r.ttl),
		},
		presence: make(map[string]string),
		joining:  make(map[string]context.CancelCauseFunc),
	}
	st.expiry = r.clock.AfterFunc(r.ttl, func() { r.expire(code, st) })
	r.rooms[code] = st
	room := st.room.Clone()
	r.mu.Unlock()

	r.logger.Info("Private room created",
		zap.String("code", code),
		zap.String("creator", creator.ID),
		zap.Int("timeLimit", timeLimit))

	r.notifier.Notify(creator.ID, EventRoomCreated, RoomEvent{RoomCode: code, Room: room})
	return room, nil
}

func (r *RoomManager) newCodeLocked() (string, error) {
	for i := 0; i < maxCodeAttempts; i++ {
		code := r.codes()
		if _, taken := r.rooms[code]; !taken {
			return code, nil
		}
	}
	return "", fmt.Errorf("%w: could not allocate a room code", ErrRoomUnavailable)
}

// checkJoinLocked 입장 전제 조건 검증
func (r *RoomManager) checkJoinLocked(st *roomState, userID string) error {
	if st.room.HasParticipant(userID) {
		return ErrAlreadyInRoom
	}
	if _, busy := st.joining[userID]; busy {
		return ErrAlreadyInRoom
	}
	if len(st.room.Participants) >= models.MaxRoomParticipants {
		return ErrRoomFull
	}
	if st.room.Status != models.RoomStatusWaiting {
		return ErrRoomUnavailable
	}
	if r.matches.InMatch(userID) {
		return ErrAlreadyInMatch
	}
	if held, ok := r.guard.Holder(userID); ok && held != roomContext(st.room.Code) {
		return fmt.Errorf("%w (%s)", ErrAlreadyPaired, held)
	}
	return nil
}

// JoinRoom 두 번째 참가자 입장 시 문제를 가져와 private 매치 생성.
// 문제 조회 중에는 락을 잡지 않으므로 재개 후 모든 조건을 다시 검증함
func (r *RoomManager) JoinRoom(ctx context.Context, code string, player models.Player) (*RoomJoinResult, error) {
	if player.ID == "" {
		return nil, ErrNotAuthenticated
	}
	code = strings.ToUpper(strings.TrimSpace(code))

	r.mu.Lock()
	st, ok := r.rooms[code]
	if !ok {
		r.mu.Unlock()
		return nil, ErrRoomNotFound
	}
	if err := r.checkJoinLocked(st, player.ID); err != nil {
		r.mu.Unlock()
		return nil, err
	}

	if len(st.room.Participants)+1 < models.MaxRoomParticipants {
		if err := r.guard.Claim(player.ID, roomContext(code)); err != nil {
			r.mu.Unlock()
			return nil, err
		}
		st.room.Participants = append(st.room.Participants, player)
		room := st.room.Clone()
		r.mu.Unlock()

		r.notifier.Notify(player.ID, EventRoomJoined, RoomEvent{RoomCode: code, Room: room, WaitingForOpponent: true})
		return &RoomJoinResult{Room: room, Waiting: true}, nil
	}

	// 조회 중에도 입장자는 이 방의 컨텍스트를 점유. 연결이 끊기면 joining에서 취소됨
	key := roomContext(code)
	if err := r.guard.Claim(player.ID, key); err != nil {
		r.mu.Unlock()
		return nil, err
	}
	jctx, cancel := context.WithCancelCause(ctx)
	st.joining[player.ID] = cancel

	var difficulties []models.Difficulty
	if st.room.Difficulty != "" {
		difficulties = []models.Difficulty{st.room.Difficulty}
	}
	waitingIDs := participantIDs(st.room)
	r.mu.Unlock()

	problem, err := r.problems.FindRandom(jctx, difficulties)
	cancel(nil)

	r.mu.Lock()
	if _, live := st.joining[player.ID]; !live {
		r.mu.Unlock()
		return nil, context.Cause(jctx)
	}
	delete(st.joining, player.ID)

	fail := func(err error) (*RoomJoinResult, error) {
		r.guard.Release(player.ID, key)
		r.mu.Unlock()
		return nil, err
	}

	if err != nil {
		r.guard.Release(player.ID, key)
		r.mu.Unlock()

		r.logger.Error("Failed to fetch problem for private room",
			zap.String("code", code),
			zap.Error(err))
		batch := make([]notification, 0, len(waitingIDs)+1)
		for _, id := range append(waitingIDs, player.ID) {
			batch = append(batch, notification{id, EventMatchCreationFailed,
				ErrorEvent{Message: "Failed to create match: could not load a problem"}})
		}
		deliver(r.notifier, batch)
		return nil, err
	}

	if cur, ok := r.rooms[code]; !ok || cur != st {
		return fail(ErrRoomNotFound)
	}
	if err := r.checkJoinLocked(st, player.ID); err != nil {
		return fail(err)
	}
	if len(st.room.Participants) == 0 {
		return fail(ErrRoomUnavailable)
	}

	opponent := st.room.Participants[0]
	timeLimit := time.Duration(st.room.TimeLimit) * time.Minute
	match, err := r.matches.Register(ctx, opponent, player, problem, timeLimit, models.MatchTypePrivate, code)
	if err != nil {
		return fail(err)
	}

	st.room.Participants = append(st.room.Participants, player)
	st.room.Status = models.RoomStatusMatched
	matchID := match.ID
	st.room.MatchID = &matchID
	for _, p := range st.room.Participants {
		r.guard.Release(p.ID, key)
	}

	// 대기 TTL 취소. 매치가 끝난 뒤 방 레코드를 치우는 타이머로 교체
	st.expiry.Stop()
	st.expiry = r.clock.AfterFunc(timeLimit+r.ttl, func() { r.expire(code, st) })

	room := st.room.Clone()
	r.mu.Unlock()

	r.logger.Info("Private match started",
		zap.String("code", code),
		zap.String("matchId", match.ID))

	deliver(r.notifier, []notification{
		{opponent.ID, EventPrivateMatchFound, MatchEvent{Message: "Opponent joined! Match starting.", Match: match}},
		{player.ID, EventPrivateMatchFound, MatchEvent{Message: "Match starting.", Match: match}},
	})
	return &RoomJoinResult{Room: room, Match: match}, nil
}

// LeaveRoom 참가자 제거. 비면 방 삭제. 멱등
func (r *RoomManager) LeaveRoom(code, userID string) bool {
	code = strings.ToUpper(strings.TrimSpace(code))

	r.mu.Lock()
	batch, removed := r.leaveLocked(code, userID)
	r.mu.Unlock()

	deliver(r.notifier, batch)
	return removed
}

// RemoveUser 사용자가 속한 모든 방에서 퇴장 (연결 종료)
func (r *RoomManager) RemoveUser(userID string) int {
	r.mu.Lock()
	var codes []string
	for code, st := range r.rooms {
		if _, joining := st.joining[userID]; joining || st.room.HasParticipant(userID) {
			codes = append(codes, code)
		}
	}

	var batch []notification
	for _, code := range codes {
		b, _ := r.leaveLocked(code, userID)
		batch = append(batch, b...)
	}
	r.mu.Unlock()

	deliver(r.notifier, batch)
	return len(codes)
}

func (r *RoomManager) leaveLocked(code, userID string) ([]notification, bool) {
	st, ok := r.rooms[code]
	if !ok {
		return nil, false
	}

	idx := -1
	for i, p := range st.room.Participants {
		if p.ID == userID {
			idx = i
			break
		}
	}
	if idx < 0 {
		// 입장 처리 중이면 매치 등록 전에 취소
		cancel, joining := st.joining[userID]
		if !joining {
			return nil, false
		}
		delete(st.joining, userID)
		r.guard.Release(userID, roomContext(code))
		cancel(fmt.Errorf("%w: %s", ErrPairingAborted, userID))
		return nil, true
	}

	st.room.Participants = append(st.room.Participants[:idx:idx], st.room.Participants[idx+1:]...)
	delete(st.presence, userID)
	r.guard.Release(userID, roomContext(code))

	if len(st.room.Participants) == 0 {
		st.expiry.Stop()
		st.room.Status = models.RoomStatusDeleted
		delete(r.rooms, code)
		r.logger.Debug("Private room deleted", zap.String("code", code))
		return nil, true
	}

	room := st.room.Clone()
	batch := make([]notification, 0, len(room.Participants))
	for _, p := range room.Participants {
		batch = append(batch, notification{p.ID, EventParticipantLeft, RoomEvent{
			RoomCode:   code,
			Room:       room,
			LeftUserID: userID,
		}})
	}
	return batch, true
}

// expire TTL 타이머 콜백. 대기 중인 방만 room-expired와 함께 삭제
func (r *RoomManager) expire(code string, st *roomState) {
	r.mu.Lock()
	if cur, ok := r.rooms[code]; !ok || cur != st {
		r.mu.Unlock()
		return
	}

	var batch []notification
	switch st.room.Status {
	case models.RoomStatusWaiting:
		for _, p := range st.room.Participants {
			r.guard.Release(p.ID, roomContext(code))
			batch = append(batch, notification{p.ID, EventRoomExpired, RoomEvent{RoomCode: code}})
		}
		r.logger.Info("Private room expired", zap.String("code", code))
	case models.RoomStatusMatched:
		if st.room.MatchID != nil {
			if m, err := r.matches.GetMatch(*st.room.MatchID); err == nil && m.Status == models.MatchStatusActive {
				st.expiry = r.clock.AfterFunc(r.ttl, func() { r.expire(code, st) })
				r.mu.Unlock()
				return
			}
		}
	}

	st.room.Status = models.RoomStatusDeleted
	delete(r.rooms, code)
	r.mu.Unlock()

	deliver(r.notifier, batch)
}

// AttachPresence 연결 시점 재조정. 이미 매치가 성사됐으면 그 매치를 돌려줌
func (r *RoomManager) AttachPresence(code, userID, connectionID string) (*models.Room, *models.Match, error) {
	code = strings.ToUpper(strings.TrimSpace(code))

	r.mu.Lock()
	st, ok := r.rooms[code]
	if !ok {
		r.mu.Unlock()
		return nil, nil, ErrRoomNotFound
	}
	if !st.room.HasParticipant(userID) {
		r.mu.Unlock()
		return nil, nil, ErrNotParticipant
	}

	room := st.room.Clone()
	if st.room.Status == models.RoomStatusMatched && st.room.MatchID != nil {
		matchID := *st.room.MatchID
		r.mu.Unlock()

		match, err := r.matches.GetMatch(matchID)
		if err != nil {
			return nil, nil, err
		}
		r.notifier.Notify(userID, EventPrivateMatchFound, MatchEvent{Message: "Match starting.", Match: match})
		return room, match, nil
	}

	st.presence[userID] = connectionID
	r.mu.Unlock()

	r.notifier.Notify(userID, EventWaitingForOpponent, RoomEvent{
		RoomCode:           code,
		Room:               room,
		WaitingForOpponent: true,
	})
	return room, nil, nil
}

// GetRoom 방 스냅샷 조회
func (r *RoomManager) GetRoom(code string) (*models.Room, error) {
	code = strings.ToUpper(strings.TrimSpace(code))

	r.mu.Lock()
	defer r.mu.Unlock()

	st, ok := r.rooms[code]
	if !ok {
		return nil, ErrRoomNotFound
	}
	return st.room.Clone(), nil
}

// Count 살아있는 방 수
func (r *RoomManager) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rooms)
}

func participantIDs(room *models.Room) []string {
	ids := make([]string, 0, len(room.Participants))
	for _, p := range room.Participants {
		ids = append(ids, p.ID)
	}
	return ids
}
