package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/codeduel/duel-backend/internal/models"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

type recordedEvent struct {
	UserID  string
	Type    string
	Payload interface{}
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (n *recordingNotifier) Notify(userID, eventType string, payload interface{}) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, recordedEvent{UserID: userID, Type: eventType, Payload: payload})
}

func (n *recordingNotifier) Types(userID string) []string {
	n.mu.Lock()
	defer n.mu.Unlock()

	var out []string
	for _, e := range n.events {
		if e.UserID == userID {
			out = append(out, e.Type)
		}
	}
	return out
}

func (n *recordingNotifier) Count(eventType string) int {
	n.mu.Lock()
	defer n.mu.Unlock()

	c := 0
	for _, e := range n.events {
		if e.Type == eventType {
			c++
		}
	}
	return c
}

func (n *recordingNotifier) Last(userID, eventType string) (recordedEvent, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()

	for i := len(n.events) - 1; i >= 0; i-- {
		if n.events[i].UserID == userID && n.events[i].Type == eventType {
			return n.events[i], true
		}
	}
	return recordedEvent{}, false
}

// stubProblems gate가 설정되면 FindRandom이 gate가 닫힐 때까지 대기
type stubProblems struct {
	mu      sync.Mutex
	problem *models.Problem
	err     error
	calls   int
	asked   [][]models.Difficulty
	gate    chan struct{}
	entered chan struct{}
}

func (s *stubProblems) FindRandom(ctx context.Context, difficulties []models.Difficulty) (*models.Problem, error) {
	s.mu.Lock()
	s.calls++
	s.asked = append(s.asked, difficulties)
	gate, entered := s.gate, s.entered
	problem, err := s.problem, s.err
	s.mu.Unlock()

	if entered != nil {
		entered <- struct{}{}
	}
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return problem, err
}

func (s *stubProblems) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type stubExecutor struct {
	mu      sync.Mutex
	results []models.TestResult
	err     error
	calls   int
	tests   []models.TestCase
	during  func()
}

func (e *stubExecutor) Run(ctx context.Context, source, language string, tests []models.TestCase) ([]models.TestResult, error) {
	e.mu.Lock()
	e.calls++
	e.tests = tests
	during, results, err := e.during, e.results, e.err
	e.mu.Unlock()

	if during != nil {
		during()
	}
	return results, err
}

func (e *stubExecutor) Calls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls
}

func passing(n int) []models.TestResult {
	out := make([]models.TestResult, n)
	for i := range out {
		out[i] = models.TestResult{Passed: true, StatusID: 3, Status: "Accepted", Time: 0.01, Memory: 1024}
	}
	return out
}

func sampleProblem() *models.Problem {
	return &models.Problem{
		ID:         "two-sum",
		Title:      "Two Sum",
		Difficulty: models.DifficultyEasy,
		Examples: []models.TestCase{
			{Input: "1 2", Output: "3"},
		},
		HiddenTests: []models.TestCase{
			{Input: "2 2", Output: "4"},
			{Input: "5 7", Output: "12"},
		},
	}
}

var (
	alice = models.Player{ID: "user-a", Username: "alice"}
	bob   = models.Player{ID: "user-b", Username: "bob"}
	carol = models.Player{ID: "user-c", Username: "carol"}
)

type fixture struct {
	clock    *clockwork.FakeClock
	notifier *recordingNotifier
	problems *stubProblems
	exec     *stubExecutor
	guard    *PairingGuard
	matches  *MatchCoordinator
	queue    *QueueManager
	rooms    *RoomManager
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		clock:    clockwork.NewFakeClock(),
		notifier: &recordingNotifier{},
		problems: &stubProblems{problem: sampleProblem()},
		exec:     &stubExecutor{results: passing(2)},
		guard:    NewPairingGuard(),
	}
	logger := zap.NewNop()
	f.matches = NewMatchCoordinator(f.problems, f.exec, f.notifier, f.clock, logger)
	f.queue = NewQueueManager([]int{5, 10, 15}, f.guard, f.matches, f.notifier, f.clock, logger)
	f.rooms = NewRoomManager(f.guard, f.matches, f.problems, f.notifier, f.clock, logger,
		RoomOptions{TTL: 30 * time.Minute})
	return f
}

// startMatch alice와 bob의 5분 큐 매치 생성
func (f *fixture) startMatch(t *testing.T) *models.Match {
	t.Helper()

	m, err := f.matches.Register(context.Background(), alice, bob, sampleProblem(), 5*time.Minute, models.MatchTypeQueue, "")
	if err != nil {
		t.Fatalf("register match: %v", err)
	}
	return m
}

func fixedCodes(codes ...string) CodeGenerator {
	var mu sync.Mutex
	i := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		code := codes[i%len(codes)]
		i++
		return code
	}
}
