package repository

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/codeduel/duel-backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingWriter struct {
	*MemoryProblemRepository
}

func (failingWriter) Create(ctx context.Context, p *models.Problem) (string, error) {
	return "", errors.New("disk full")
}

func TestSeedIfEmpty(t *testing.T) {
	ctx := context.Background()
	seed := filepath.Join("testdata", "problems.json")

	t.Run("empty store is seeded", func(t *testing.T) {
		store := NewMemoryProblemRepository()

		n, err := SeedIfEmpty(ctx, store, seed)
		require.NoError(t, err)
		assert.Equal(t, 2, n)
		assert.Equal(t, 2, store.Count())

		p, err := store.FindByID(ctx, "easy-1")
		require.NoError(t, err)
		assert.Len(t, p.HiddenTests, 2)
	})

	t.Run("populated store is left alone", func(t *testing.T) {
		store := NewMemoryProblemRepository(&models.Problem{ID: "x", Difficulty: models.DifficultyHard})

		n, err := SeedIfEmpty(ctx, store, seed)
		require.NoError(t, err)
		assert.Zero(t, n)
		assert.Equal(t, 1, store.Count())
	})

	t.Run("missing seed file", func(t *testing.T) {
		_, err := SeedIfEmpty(ctx, NewMemoryProblemRepository(), filepath.Join(t.TempDir(), "none.json"))
		assert.Error(t, err)
	})

	t.Run("write failure", func(t *testing.T) {
		_, err := SeedIfEmpty(ctx, failingWriter{NewMemoryProblemRepository()}, seed)
		assert.ErrorContains(t, err, "disk full")
	})
}
