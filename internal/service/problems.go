package service

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/codeduel/duel-backend/internal/models"
)

// ProblemRepository 문제 문서 저장소 (repository 패키지 구현)
type ProblemRepository interface {
	FindByDifficulties(ctx context.Context, difficulties []models.Difficulty) ([]*models.Problem, error)
	FindByID(ctx context.Context, id string) (*models.Problem, error)
}

// ProblemSource 매치 생성 시 문제를 고르는 협력자
type ProblemSource interface {
	FindRandom(ctx context.Context, difficulties []models.Difficulty) (*models.Problem, error)
}

// Picker 후보 중 하나를 고르는 정책 (교체 가능)
type Picker interface {
	Pick(candidates []*models.Problem) *models.Problem
}

// UniformPicker 가중치 없는 무작위 선택
type UniformPicker struct{}

func (UniformPicker) Pick(candidates []*models.Problem) *models.Problem {
	return candidates[rand.Intn(len(candidates))]
}

type ProblemProvider struct {
	repo     ProblemRepository
	picker   Picker
	defaults []models.Difficulty
}

// NewProblemProvider picker가 nil이면 UniformPicker 사용
func NewProblemProvider(repo ProblemRepository, picker Picker, defaults []models.Difficulty) *ProblemProvider {
	if picker == nil {
		picker = UniformPicker{}
	}
	return &ProblemProvider{
		repo:     repo,
		picker:   picker,
		defaults: defaults,
	}
}

// ParseDifficulties 문자열 목록 검증
func ParseDifficulties(values []string) ([]models.Difficulty, error) {
	out := make([]models.Difficulty, 0, len(values))
	for _, v := range values {
		d := models.Difficulty(v)
		if !d.Valid() {
			return nil, fmt.Errorf("%w: %s", ErrInvalidDifficulty, v)
		}
		out = append(out, d)
	}
	return out, nil
}

// FindRandom 난이도 집합에서 문제 하나 선택. 비어 있으면 기본 난이도 사용
func (p *ProblemProvider) FindRandom(ctx context.Context, difficulties []models.Difficulty) (*models.Problem, error) {
	if len(difficulties) == 0 {
		difficulties = p.defaults
	}

	candidates, err := p.repo.FindByDifficulties(ctx, difficulties)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProblemUnavailable, err)
	}
	if len(candidates) == 0 {
		return nil, ErrProblemNotFound
	}

	return p.picker.Pick(candidates), nil
}

// Preview 히든 테스트 없이 무작위 문제 조회
func (p *ProblemProvider) Preview(ctx context.Context, difficulties []models.Difficulty) (*models.Problem, error) {
	problem, err := p.FindRandom(ctx, difficulties)
	if err != nil {
		return nil, err
	}
	preview := *problem
	preview.HiddenTests = nil
	return &preview, nil
}
