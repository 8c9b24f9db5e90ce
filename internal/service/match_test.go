package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/codeduel/duel-backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatchCoordinator_CreateMatch(t *testing.T) {
	f := newFixture(t)
	start := f.clock.Now()

	m, err := f.matches.CreateMatch(context.Background(), alice, bob, 5*time.Minute, nil)
	require.NoError(t, err)

	assert.Equal(t, [2]models.Player{alice, bob}, m.Players)
	assert.Equal(t, int64(300000), m.TimeLimitMs)
	assert.Equal(t, models.MatchStatusActive, m.Status)
	assert.Equal(t, start, m.StartTime)
	assert.Equal(t, start.Add(300000*time.Millisecond), m.EndTime)
	assert.Nil(t, m.WinnerID)

	assert.Equal(t, []string{EventMatchFound}, f.notifier.Types(alice.ID))
	assert.Equal(t, []string{EventMatchFound}, f.notifier.Types(bob.ID))
	assert.Equal(t, 1, f.matches.ActiveCount())
}

func TestMatchCoordinator_CreateMatchProblemFailure(t *testing.T) {
	f := newFixture(t)
	f.problems.err = ErrProblemUnavailable

	_, err := f.matches.CreateMatch(context.Background(), alice, bob, 5*time.Minute, nil)
	assert.ErrorIs(t, err, ErrProblemUnavailable)

	assert.Equal(t, 0, f.matches.ActiveCount())
	assert.False(t, f.matches.InMatch(alice.ID))
	assert.Equal(t, []string{EventMatchCreationFailed}, f.notifier.Types(alice.ID))
	assert.Equal(t, []string{EventMatchCreationFailed}, f.notifier.Types(bob.ID))
}

func TestMatchCoordinator_Register(t *testing.T) {
	f := newFixture(t)
	f.startMatch(t)

	tests := []struct {
		name    string
		a, b    models.Player
		wantErr error
	}{
		{name: "same player twice", a: carol, b: carol, wantErr: ErrInvalidInput},
		{name: "player already in match", a: carol, b: alice, wantErr: ErrAlreadyInMatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.matches.Register(context.Background(), tt.a, tt.b, sampleProblem(), time.Minute, models.MatchTypeQueue, "")
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
	assert.Equal(t, 1, f.matches.ActiveCount())
}

func TestMatchCoordinator_SubmitAccepted(t *testing.T) {
	f := newFixture(t)
	m := f.startMatch(t)
	f.clock.Advance(90 * time.Second)

	verdict, err := f.matches.Submit(context.Background(), m.ID, alice.ID, "print(a+b)", "py")
	require.NoError(t, err)
	assert.True(t, verdict.Accepted)
	assert.Equal(t, 2, verdict.PassedTestCases)

	got, err := f.matches.GetMatch(m.ID)
	require.NoError(t, err)
	assert.Equal(t, models.MatchStatusCompleted, got.Status)
	require.NotNil(t, got.WinnerID)
	assert.Equal(t, alice.ID, *got.WinnerID)
	require.NotNil(t, got.FinishedAt)
	assert.Equal(t, f.clock.Now(), *got.FinishedAt)
	assert.Equal(t, m.EndTime, got.EndTime, "deadline stays fixed")

	assert.Equal(t, []string{EventSubmissionResult, EventMatchWon}, f.notifier.Types(alice.ID))
	assert.Equal(t, []string{EventMatchLost}, f.notifier.Types(bob.ID))
	assert.False(t, f.matches.InMatch(alice.ID))
	assert.False(t, f.matches.InMatch(bob.ID))
}

func TestMatchCoordinator_SubmitUsesHiddenTests(t *testing.T) {
	f := newFixture(t)
	m := f.startMatch(t)

	_, err := f.matches.Submit(context.Background(), m.ID, alice.ID, "code", "python")
	require.NoError(t, err)
	assert.Len(t, f.exec.tests, 2)
	assert.Equal(t, "2 2", f.exec.tests[0].Input)
}

func TestMatchCoordinator_SubmitWrongAnswerKeepsMatchActive(t *testing.T) {
	f := newFixture(t)
	m := f.startMatch(t)
	f.exec.results = []models.TestResult{
		{Passed: true, StatusID: 3, Time: 0.02},
		{Passed: false, StatusID: 4, Status: "Wrong Answer"},
	}

	verdict, err := f.matches.Submit(context.Background(), m.ID, bob.ID, "code", "go")
	require.NoError(t, err)
	assert.False(t, verdict.Accepted)
	assert.Equal(t, models.VerdictWrong, verdict.Status)

	got, _ := f.matches.GetMatch(m.ID)
	assert.Equal(t, models.MatchStatusActive, got.Status)
	assert.Equal(t, []string{EventSubmissionResult}, f.notifier.Types(bob.ID))
	assert.Empty(t, f.notifier.Types(alice.ID))
}

func TestMatchCoordinator_SubmitValidation(t *testing.T) {
	f := newFixture(t)
	m := f.startMatch(t)

	finished := f.startMatchBetween(t, carol, models.Player{ID: "user-d", Username: "dave"})
	f.matches.ResolveDisconnect("user-d")

	tests := []struct {
		name     string
		matchID  string
		userID   string
		source   string
		language string
		wantErr  error
	}{
		{name: "anonymous", matchID: m.ID, userID: "", source: "x", language: "python", wantErr: ErrNotAuthenticated},
		{name: "empty code", matchID: m.ID, userID: alice.ID, source: "", language: "python", wantErr: ErrInvalidInput},
		{name: "unknown language", matchID: m.ID, userID: alice.ID, source: "x", language: "brainfuck", wantErr: ErrUnsupportedLanguage},
		{name: "unknown match", matchID: "nope", userID: alice.ID, source: "x", language: "python", wantErr: ErrMatchNotFound},
		{name: "outsider", matchID: m.ID, userID: carol.ID, source: "x", language: "python", wantErr: ErrNotParticipant},
		{name: "finished match", matchID: finished.ID, userID: carol.ID, source: "x", language: "python", wantErr: ErrMatchNotActive},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.matches.Submit(context.Background(), tt.matchID, tt.userID, tt.source, tt.language)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
	assert.Equal(t, 0, f.exec.Calls(), "validation happens before execution")
}

func (f *fixture) startMatchBetween(t *testing.T, a, b models.Player) *models.Match {
	t.Helper()
	m, err := f.matches.Register(context.Background(), a, b, sampleProblem(), 5*time.Minute, models.MatchTypeQueue, "")
	require.NoError(t, err)
	return m
}

func TestMatchCoordinator_LateAcceptedSubmitIsNoop(t *testing.T) {
	f := newFixture(t)
	m := f.startMatch(t)

	// 실행 중에 상대가 먼저 정답 처리
	f.exec.during = func() {
		f.exec.mu.Lock()
		f.exec.during = nil
		f.exec.mu.Unlock()
		_, err := f.matches.Submit(context.Background(), m.ID, bob.ID, "code", "python")
		require.NoError(t, err)
	}

	verdict, err := f.matches.Submit(context.Background(), m.ID, alice.ID, "code", "python")
	require.NoError(t, err)
	assert.True(t, verdict.Accepted)

	got, _ := f.matches.GetMatch(m.ID)
	require.NotNil(t, got.WinnerID)
	assert.Equal(t, bob.ID, *got.WinnerID)
	assert.Equal(t, 1, f.notifier.Count(EventMatchWon))
	assert.Equal(t, 1, f.notifier.Count(EventMatchLost))
	assert.Equal(t, []string{EventMatchLost, EventSubmissionResult}, f.notifier.Types(alice.ID))
}

func TestMatchCoordinator_ExecutorFailure(t *testing.T) {
	f := newFixture(t)
	m := f.startMatch(t)
	f.exec.err = errors.New("judge0: 503")

	verdict, err := f.matches.Submit(context.Background(), m.ID, alice.ID, "code", "python")
	assert.ErrorIs(t, err, ErrExecutionFailed)
	require.NotNil(t, verdict)
	assert.Equal(t, models.VerdictError, verdict.Status)

	got, _ := f.matches.GetMatch(m.ID)
	assert.Equal(t, models.MatchStatusActive, got.Status)
	assert.Equal(t, []string{EventSubmissionError}, f.notifier.Types(alice.ID))
}

func TestMatchCoordinator_NoTestCasesNeverAccepts(t *testing.T) {
	f := newFixture(t)
	m, err := f.matches.Register(context.Background(), alice, bob, &models.Problem{ID: "empty"}, time.Minute, models.MatchTypeQueue, "")
	require.NoError(t, err)

	verdict, err := f.matches.Submit(context.Background(), m.ID, alice.ID, "code", "python")
	require.NoError(t, err)
	assert.False(t, verdict.Accepted)
	assert.Equal(t, models.VerdictError, verdict.Status)
	assert.Equal(t, 0, f.exec.Calls())

	got, _ := f.matches.GetMatch(m.ID)
	assert.Equal(t, models.MatchStatusActive, got.Status)
}

func TestMatchCoordinator_RunExamplesDoesNotFinish(t *testing.T) {
	f := newFixture(t)
	m := f.startMatch(t)
	f.exec.results = passing(1)

	verdict, err := f.matches.RunExamples(context.Background(), m.ID, alice.ID, "code", "js")
	require.NoError(t, err)
	assert.True(t, verdict.Accepted)
	assert.Len(t, f.exec.tests, 1)
	assert.Equal(t, "1 2", f.exec.tests[0].Input)

	got, _ := f.matches.GetMatch(m.ID)
	assert.Equal(t, models.MatchStatusActive, got.Status)
	assert.Equal(t, []string{EventRunResult}, f.notifier.Types(alice.ID))
}

func TestMatchCoordinator_ResolveDisconnect(t *testing.T) {
	f := newFixture(t)
	m := f.startMatch(t)

	assert.Equal(t, 1, f.matches.ResolveDisconnect(alice.ID))
	assert.Equal(t, 0, f.matches.ResolveDisconnect(alice.ID), "second disconnect is a no-op")

	got, _ := f.matches.GetMatch(m.ID)
	assert.Equal(t, models.MatchStatusAbandoned, got.Status)
	require.NotNil(t, got.WinnerID)
	assert.Equal(t, bob.ID, *got.WinnerID)

	assert.Empty(t, f.notifier.Types(alice.ID))
	assert.Equal(t, []string{EventOpponentDisconnected}, f.notifier.Types(bob.ID))
}

func TestMatchCoordinator_SweepTimeoutsExactlyOnce(t *testing.T) {
	f := newFixture(t)
	m, err := f.matches.Register(context.Background(), alice, bob, sampleProblem(), time.Millisecond, models.MatchTypeQueue, "")
	require.NoError(t, err)

	assert.Equal(t, 0, f.matches.SweepTimeouts(f.clock.Now().Add(time.Millisecond)), "deadline itself is not past")

	after := f.clock.Now().Add(2 * time.Millisecond)
	var wg sync.WaitGroup
	var mu sync.Mutex
	total := 0
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			n := f.matches.SweepTimeouts(after)
			mu.Lock()
			total += n
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, total)
	got, _ := f.matches.GetMatch(m.ID)
	assert.Equal(t, models.MatchStatusDraw, got.Status)
	assert.Nil(t, got.WinnerID)
	assert.Equal(t, []string{EventMatchTimeout}, f.notifier.Types(alice.ID))
	assert.Equal(t, []string{EventMatchTimeout}, f.notifier.Types(bob.ID))
}

func TestMatchCoordinator_PruneFinished(t *testing.T) {
	f := newFixture(t)
	m := f.startMatch(t)
	f.matches.ResolveDisconnect(alice.ID)

	assert.Equal(t, 0, f.matches.PruneFinished(f.clock.Now()))
	f.clock.Advance(time.Hour)
	assert.Equal(t, 1, f.matches.PruneFinished(f.clock.Now()))

	_, err := f.matches.GetMatch(m.ID)
	assert.ErrorIs(t, err, ErrMatchNotFound)
}

func TestAggregate(t *testing.T) {
	tests := []struct {
		name       string
		results    []models.TestResult
		wantStatus models.VerdictStatus
		wantPassed int
	}{
		{name: "no results", results: nil, wantStatus: models.VerdictError},
		{name: "all pass", results: passing(3), wantStatus: models.VerdictAccepted, wantPassed: 3},
		{
			name: "wrong answer",
			results: []models.TestResult{
				{Passed: true, StatusID: 3},
				{Passed: false, StatusID: 4},
			},
			wantStatus: models.VerdictWrong,
			wantPassed: 1,
		},
		{
			name: "compile error",
			results: []models.TestResult{
				{Passed: false, StatusID: 6, Stderr: "syntax error"},
			},
			wantStatus: models.VerdictError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := Aggregate(tt.results)
			assert.Equal(t, tt.wantStatus, v.Status)
			assert.Equal(t, tt.wantPassed, v.PassedTestCases)
			assert.Equal(t, tt.wantStatus == models.VerdictAccepted, v.Accepted)
		})
	}
}

func TestAggregate_RuntimeAndMemory(t *testing.T) {
	v := Aggregate([]models.TestResult{
		{Passed: true, Time: 0.25, Memory: 2048},
		{Passed: true, Time: 0.5, Memory: 4096},
	})
	assert.InDelta(t, 0.75, v.Runtime, 1e-9)
	assert.Equal(t, 4096, v.Memory)
}
