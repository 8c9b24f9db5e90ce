package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/codeduel/duel-backend/internal/models"
	"github.com/codeduel/duel-backend/pkg/executor"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

// Executor 코드 실행 엔진 (pkg/executor.Client 구현)
type Executor interface {
	Run(ctx context.Context, source, language string, tests []models.TestCase) ([]models.TestResult, error)
}

// Judge0 status id: Wrong Answer
const statusWrongAnswer = 4

// MatchCoordinator 매치 레코드의 유일한 소유자. 모든 상태 전이는 여기서만 일어남
type MatchCoordinator struct {
	mu           sync.Mutex
	matches      map[string]*models.Match
	activeByUser map[string]string // userID -> active matchID

	problems ProblemSource
	executor Executor
	notifier Notifier
	clock    clockwork.Clock
	logger   *zap.Logger
	newID    func() string
}

func NewMatchCoordinator(
	problems ProblemSource,
	exec Executor,
	notifier Notifier,
	clock clockwork.Clock,
	logger *zap.Logger,
) *MatchCoordinator {
	return &MatchCoordinator{
		matches:      make(map[string]*models.Match),
		activeByUser: make(map[string]string),
		problems:     problems,
		executor:     exec,
		notifier:     notifier,
		clock:        clock,
		logger:       logger,
		newID:        uuid.NewString,
	}
}

// CreateMatch 문제를 가져와 매치를 등록하고 두 플레이어에게 match-found 전송
func (c *MatchCoordinator) CreateMatch(
	ctx context.Context,
	a, b models.Player,
	timeLimit time.Duration,
	difficulties []models.Difficulty,
) (*models.Match, error) {
	problem, err := c.problems.FindRandom(ctx, difficulties)
	if err != nil {
		if cause := context.Cause(ctx); errors.Is(cause, ErrPairingAborted) {
			return nil, cause
		}
		c.logger.Error("Failed to fetch problem for match",
			zap.String("player1", a.ID),
			zap.String("player2", b.ID),
			zap.Error(err))
		c.notifyCreationFailed(a.ID, b.ID, "Failed to create match: could not load a problem")
		return nil, err
	}

	match, err := c.Register(ctx, a, b, problem, timeLimit, models.MatchTypeQueue, "")
	if err != nil {
		if errors.Is(err, ErrPairingAborted) {
			return nil, err
		}
		c.notifyCreationFailed(a.ID, b.ID, "Failed to create match: "+err.Error())
		return nil, err
	}

	deliver(c.notifier, []notification{
		{a.ID, EventMatchFound, MatchEvent{Message: "Match found!", Match: match}},
		{b.ID, EventMatchFound, MatchEvent{Message: "Match found!", Match: match}},
	})
	return match, nil
}

func (c *MatchCoordinator) notifyCreationFailed(aID, bID, message string) {
	deliver(c.notifier, []notification{
		{aID, EventMatchCreationFailed, ErrorEvent{Message: message}},
		{bID, EventMatchCreationFailed, ErrorEvent{Message: message}},
	})
}

// Register 이미 확보한 문제로 active 매치를 동기적으로 등록.
// ctx가 취소됐으면 등록하지 않음. 취소 확인과 등록은 같은 락 안에서 일어남
func (c *MatchCoordinator) Register(
	ctx context.Context,
	a, b models.Player,
	problem *models.Problem,
	timeLimit time.Duration,
	matchType models.MatchType,
	roomCode string,
) (*models.Match, error) {
	if a.ID == "" || b.ID == "" || a.ID == b.ID {
		return nil, fmt.Errorf("%w: a match needs two distinct players", ErrInvalidInput)
	}
	if problem == nil || timeLimit <= 0 {
		return nil, fmt.Errorf("%w: problem and time limit are required", ErrInvalidInput)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if cause := context.Cause(ctx); cause != nil {
		if errors.Is(cause, ErrPairingAborted) {
			return nil, cause
		}
		return nil, fmt.Errorf("match registration cancelled: %w", cause)
	}

	for _, p := range []models.Player{a, b} {
		if _, busy := c.activeByUser[p.ID]; busy {
			return nil, fmt.Errorf("%w: %s", ErrAlreadyInMatch, p.ID)
		}
	}

	now := c.clock.Now()
	match := &models.Match{
		ID:          c.newID(),
		Type:        matchType,
		RoomCode:    roomCode,
		Players:     [2]models.Player{a, b},
		Problem:     problem,
		TimeLimit:   timeLimit,
		TimeLimitMs: timeLimit.Milliseconds(),
		StartTime:   now,
		EndTime:     now.Add(timeLimit),
		Status:      models.MatchStatusActive,
	}
	c.matches[match.ID] = match
	c.activeByUser[a.ID] = match.ID
	c.activeByUser[b.ID] = match.ID

	c.logger.Info("Match created",
		zap.String("matchId", match.ID),
		zap.String("type", string(matchType)),
		zap.String("player1", a.ID),
		zap.String("player2", b.ID),
		zap.String("problemId", problem.ID),
		zap.Duration("timeLimit", timeLimit))

	return match.Clone(), nil
}

// prepareRun 실행 전 검증. 락 밖에서 쓸 스냅샷 반환
func (c *MatchCoordinator) prepareRun(matchID, userID, source, language string) (*models.Match, error) {
	if userID == "" {
		return nil, ErrNotAuthenticated
	}
	if source == "" {
		return nil, fmt.Errorf("%w: code is required", ErrInvalidInput)
	}
	if _, err := executor.LanguageID(language); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedLanguage, language)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	m, ok := c.matches[matchID]
	if !ok {
		return nil, ErrMatchNotFound
	}
	if !m.HasPlayer(userID) {
		return nil, ErrNotParticipant
	}
	if m.Status != models.MatchStatusActive {
		return nil, ErrMatchNotActive
	}
	return m.Clone(), nil
}

// Submit 히든 테스트로 채점. 통과하면 매치가 아직 active인 경우에만 승자로 종료
func (c *MatchCoordinator) Submit(ctx context.Context, matchID, userID, source, language string) (*models.Verdict, error) {
	m, err := c.prepareRun(matchID, userID, source, language)
	if err != nil {
		return nil, err
	}

	tests := m.Problem.HiddenTests
	if len(tests) == 0 {
		tests = m.Problem.Examples
	}

	verdict, err := c.execute(ctx, source, language, tests)
	if err != nil {
		c.logger.Error("Execution failed",
			zap.String("matchId", matchID),
			zap.String("userId", userID),
			zap.Error(err))
		c.notifier.Notify(userID, EventSubmissionError, VerdictEvent{
			MatchID: matchID,
			Success: false,
			Message: "Failed to execute code",
			Result:  verdict,
		})
		return verdict, fmt.Errorf("%w: %v", ErrExecutionFailed, err)
	}

	batch := []notification{{userID, EventSubmissionResult, VerdictEvent{
		MatchID: matchID,
		Success: verdict.Accepted,
		Message: verdictMessage(verdict),
		Result:  verdict,
	}}}

	if verdict.Accepted {
		c.mu.Lock()
		finished, ok := c.finalizeLocked(matchID, models.MatchStatusCompleted, userID)
		c.mu.Unlock()

		if ok {
			opponent, _ := finished.Opponent(userID)
			batch = append(batch,
				notification{userID, EventMatchWon, MatchEvent{Message: "You won the match!", Match: finished}},
				notification{opponent.ID, EventMatchLost, MatchEvent{Message: "Your opponent solved the problem first.", Match: finished}},
			)
			c.logger.Info("Match completed",
				zap.String("matchId", matchID),
				zap.String("winner", userID))
		}
	}

	deliver(c.notifier, batch)
	return verdict, nil
}

// RunExamples 공개 예제로만 실행. 매치 상태는 절대 바꾸지 않음
func (c *MatchCoordinator) RunExamples(ctx context.Context, matchID, userID, source, language string) (*models.Verdict, error) {
	m, err := c.prepareRun(matchID, userID, source, language)
	if err != nil {
		return nil, err
	}

	verdict, err := c.execute(ctx, source, language, m.Problem.Examples)
	if err != nil {
		c.notifier.Notify(userID, EventRunError, VerdictEvent{
			MatchID: matchID,
			Message: "Failed to execute code",
			Result:  verdict,
		})
		return verdict, fmt.Errorf("%w: %v", ErrExecutionFailed, err)
	}

	c.notifier.Notify(userID, EventRunResult, VerdictEvent{
		MatchID: matchID,
		Success: verdict.Accepted,
		Message: verdictMessage(verdict),
		Result:  verdict,
	})
	return verdict, nil
}

// execute 락 없이 실행 엔진 호출. 실패 시 error verdict와 에러를 함께 반환
func (c *MatchCoordinator) execute(ctx context.Context, source, language string, tests []models.TestCase) (*models.Verdict, error) {
	if len(tests) == 0 {
		return Aggregate(nil), nil
	}

	results, err := c.executor.Run(ctx, source, language, tests)
	if err != nil {
		return &models.Verdict{
			Status:         models.VerdictError,
			TotalTestCases: len(tests),
			Error:          err.Error(),
		}, err
	}
	return Aggregate(results), nil
}

// Aggregate 테스트별 결과를 하나의 verdict로 합침. 테스트가 하나도 없으면 accepted가 아님
func Aggregate(results []models.TestResult) *models.Verdict {
	v := &models.Verdict{
		TotalTestCases: len(results),
		Results:        results,
	}
	if len(results) == 0 {
		v.Status = models.VerdictError
		v.Error = "no test cases available"
		return v
	}

	wrong := false
	for _, r := range results {
		if r.Passed {
			v.PassedTestCases++
			v.Runtime += r.Time
		} else if r.StatusID == statusWrongAnswer {
			wrong = true
		}
		if r.Memory > v.Memory {
			v.Memory = r.Memory
		}
		if v.Error == "" && r.Stderr != "" {
			v.Error = r.Stderr
		}
	}

	switch {
	case v.PassedTestCases == v.TotalTestCases:
		v.Status = models.VerdictAccepted
		v.Accepted = true
	case wrong:
		v.Status = models.VerdictWrong
	default:
		v.Status = models.VerdictError
	}
	return v
}

func verdictMessage(v *models.Verdict) string {
	if v.Accepted {
		return "All test cases passed!"
	}
	return fmt.Sprintf("%d/%d test cases passed", v.PassedTestCases, v.TotalTestCases)
}

// finalizeLocked check-then-set 종료 전이. c.mu를 잡고 호출해야 함
func (c *MatchCoordinator) finalizeLocked(matchID string, status models.MatchStatus, winnerID string) (*models.Match, bool) {
	m, ok := c.matches[matchID]
	if !ok || m.Status != models.MatchStatusActive {
		return nil, false
	}

	now := c.clock.Now()
	m.Status = status
	m.FinishedAt = &now
	if winnerID != "" {
		w := winnerID
		m.WinnerID = &w
	}
	for _, p := range m.Players {
		if c.activeByUser[p.ID] == m.ID {
			delete(c.activeByUser, p.ID)
		}
	}
	return m.Clone(), true
}

// ResolveDisconnect 사용자의 active 매치를 abandoned로 종료하고 상대를 승자로 기록
func (c *MatchCoordinator) ResolveDisconnect(userID string) int {
	c.mu.Lock()
	matchID, ok := c.activeByUser[userID]
	if !ok {
		c.mu.Unlock()
		return 0
	}

	var winnerID string
	if opponent, found := c.matches[matchID].Opponent(userID); found {
		winnerID = opponent.ID
	}
	finished, done := c.finalizeLocked(matchID, models.MatchStatusAbandoned, winnerID)
	c.mu.Unlock()

	if !done {
		return 0
	}

	c.logger.Info("Match abandoned",
		zap.String("matchId", matchID),
		zap.String("disconnected", userID))

	c.notifier.Notify(winnerID, EventOpponentDisconnected, MatchEvent{
		Message: "Your opponent disconnected. You win!",
		Match:   finished,
	})
	return 1
}

// SweepTimeouts 마감이 지난 active 매치를 draw로 종료
func (c *MatchCoordinator) SweepTimeouts(now time.Time) int {
	c.mu.Lock()
	var batch []notification
	for id, m := range c.matches {
		if m.Status != models.MatchStatusActive || !now.After(m.EndTime) {
			continue
		}
		finished, ok := c.finalizeLocked(id, models.MatchStatusDraw, "")
		if !ok {
			continue
		}
		for _, p := range finished.Players {
			batch = append(batch, notification{p.ID, EventMatchTimeout, MatchEvent{
				Message: "Time is up! The match ended in a draw.",
				Match:   finished,
			}})
		}
		c.logger.Info("Match timed out", zap.String("matchId", id))
	}
	c.mu.Unlock()

	deliver(c.notifier, batch)
	return len(batch) / 2
}

// PruneFinished before 이전에 끝난 매치 레코드 삭제
func (c *MatchCoordinator) PruneFinished(before time.Time) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	pruned := 0
	for id, m := range c.matches {
		if m.Status.Terminal() && m.FinishedAt != nil && m.FinishedAt.Before(before) {
			delete(c.matches, id)
			pruned++
		}
	}
	return pruned
}

// GetMatch 매치 스냅샷 조회
func (c *MatchCoordinator) GetMatch(matchID string) (*models.Match, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	m, ok := c.matches[matchID]
	if !ok {
		return nil, ErrMatchNotFound
	}
	return m.Clone(), nil
}

// ActiveMatchOf 사용자의 active 매치 조회
func (c *MatchCoordinator) ActiveMatchOf(userID string) (*models.Match, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	id, ok := c.activeByUser[userID]
	if !ok {
		return nil, false
	}
	return c.matches[id].Clone(), true
}

// InMatch 사용자가 active 매치에 있는지 확인
func (c *MatchCoordinator) InMatch(userID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.activeByUser[userID]
	return ok
}

// ActiveCount 진행 중인 매치 수
func (c *MatchCoordinator) ActiveCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for _, m := range c.matches {
		if m.Status == models.MatchStatusActive {
			n++
		}
	}
	return n
}
