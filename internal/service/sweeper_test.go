package service

import (
	"testing"
	"time"

	"github.com/codeduel/duel-backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestTimeoutSweeper_DrawsExpiredMatches(t *testing.T) {
	f := newFixture(t)
	m := f.startMatch(t)

	s := NewTimeoutSweeper(f.matches, f.clock, zap.NewNop(), time.Second, 0)
	s.Start()
	defer s.Stop()

	f.clock.BlockUntil(1)
	f.clock.Advance(5*time.Minute + time.Second)

	assert.Eventually(t, func() bool {
		got, err := f.matches.GetMatch(m.ID)
		return err == nil && got.Status == models.MatchStatusDraw
	}, time.Second, 5*time.Millisecond)

	assert.Equal(t, []string{EventMatchTimeout}, f.notifier.Types(alice.ID))
	assert.Equal(t, []string{EventMatchTimeout}, f.notifier.Types(bob.ID))
}

func TestTimeoutSweeper_SweepPrunesOldMatches(t *testing.T) {
	f := newFixture(t)
	m := f.startMatch(t)
	s := NewTimeoutSweeper(f.matches, f.clock, zap.NewNop(), time.Second, time.Hour)

	f.clock.Advance(6 * time.Minute)
	s.Sweep()

	got, err := f.matches.GetMatch(m.ID)
	require.NoError(t, err)
	assert.Equal(t, models.MatchStatusDraw, got.Status)

	f.clock.Advance(2 * time.Hour)
	s.Sweep()
	_, err = f.matches.GetMatch(m.ID)
	assert.ErrorIs(t, err, ErrMatchNotFound)
}

func TestTimeoutSweeper_StartStopIdempotent(t *testing.T) {
	f := newFixture(t)
	s := NewTimeoutSweeper(f.matches, f.clock, zap.NewNop(), 0, 0)

	s.Start()
	s.Start()
	s.Stop()
	s.Stop()
}
