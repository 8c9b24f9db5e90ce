package repository

import (
	"context"
	"fmt"

	"github.com/codeduel/duel-backend/internal/models"
)

var allDifficulties = []models.Difficulty{models.DifficultyEasy, models.DifficultyMedium, models.DifficultyHard}

// ProblemWriter 시드 적재가 가능한 저장소
type ProblemWriter interface {
	FindByDifficulties(ctx context.Context, difficulties []models.Difficulty) ([]*models.Problem, error)
	Create(ctx context.Context, p *models.Problem) (string, error)
}

// SeedIfEmpty 저장소에 문제가 하나도 없을 때만 시드 파일 내용을 적재. 적재한 개수 반환
func SeedIfEmpty(ctx context.Context, store ProblemWriter, path string) (int, error) {
	existing, err := store.FindByDifficulties(ctx, allDifficulties)
	if err != nil {
		return 0, err
	}
	if len(existing) > 0 {
		return 0, nil
	}

	seed, err := LoadProblemSeed(path)
	if err != nil {
		return 0, err
	}
	problems, _ := seed.FindByDifficulties(ctx, allDifficulties)

	for i, p := range problems {
		if _, err := store.Create(ctx, p); err != nil {
			return i, fmt.Errorf("failed to seed problem %s: %w", p.ID, err)
		}
	}
	return len(problems), nil
}
