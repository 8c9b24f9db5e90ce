package repository

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/codeduel/duel-backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupMongo 실제 MongoDB 필요 (TEST_MONGO_URI, 기본 localhost). 테스트마다 별도 DB 사용
func setupMongo(t *testing.T) *MongoProblemRepository {
	t.Helper()

	uri := os.Getenv("TEST_MONGO_URI")
	if uri == "" {
		uri = "mongodb://localhost:27017"
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	repo, err := ConnectMongo(ctx, uri, fmt.Sprintf("duel_test_%d", time.Now().UnixNano()))
	if err != nil {
		t.Skipf("MongoDB not available: %v", err)
	}

	t.Cleanup(func() {
		ctx := context.Background()
		_ = repo.collection.Database().Drop(ctx)
		_ = repo.Close(ctx)
	})
	return repo
}

func TestMongoProblemRepository_CreateAndFind(t *testing.T) {
	repo := setupMongo(t)
	ctx := context.Background()

	id, err := repo.Create(ctx, &models.Problem{
		Title:       "Max",
		Difficulty:  models.DifficultyMedium,
		Examples:    []models.TestCase{{Input: "1 5 3", Output: "5"}},
		HiddenTests: []models.TestCase{{Input: "-1 -2", Output: "-1"}},
	})
	require.NoError(t, err)

	got, err := repo.FindByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, id, got.ID)
	assert.Equal(t, "Max", got.Title)
	assert.Len(t, got.HiddenTests, 1)

	medium, err := repo.FindByDifficulties(ctx, []models.Difficulty{models.DifficultyMedium, models.DifficultyHard})
	require.NoError(t, err)
	require.Len(t, medium, 1)
	assert.Equal(t, id, medium[0].ID)

	easy, err := repo.FindByDifficulties(ctx, []models.Difficulty{models.DifficultyEasy})
	require.NoError(t, err)
	assert.Empty(t, easy)

	_, err = repo.FindByID(ctx, "not-an-object-id")
	assert.ErrorIs(t, err, ErrProblemNotFound)
	_, err = repo.FindByID(ctx, "000000000000000000000000")
	assert.ErrorIs(t, err, ErrProblemNotFound)
}

func TestMongoProblemRepository_SeedIfEmpty(t *testing.T) {
	repo := setupMongo(t)
	ctx := context.Background()

	n, err := SeedIfEmpty(ctx, repo, "testdata/problems.json")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = SeedIfEmpty(ctx, repo, "testdata/problems.json")
	require.NoError(t, err)
	assert.Zero(t, n, "second run finds existing problems")
}
