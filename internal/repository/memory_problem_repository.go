package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/codeduel/duel-backend/internal/models"
)

// MemoryProblemRepository JSON 시드 파일을 메모리에 올려 쓰는 저장소 (개발/테스트용)
type MemoryProblemRepository struct {
	mu       sync.RWMutex
	problems []*models.Problem
}

func NewMemoryProblemRepository(problems ...*models.Problem) *MemoryProblemRepository {
	return &MemoryProblemRepository{problems: problems}
}

// LoadProblemSeed 시드 파일에서 문제 로드
func LoadProblemSeed(path string) (*MemoryProblemRepository, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read problem seed: %w", err)
	}

	var docs []problemDocument
	if err := json.Unmarshal(data, &docs); err != nil {
		return nil, fmt.Errorf("failed to parse problem seed: %w", err)
	}

	repo := NewMemoryProblemRepository()
	for i := range docs {
		id := docs[i].ID
		if id == "" {
			id = fmt.Sprintf("problem-%d", i+1)
		}
		p := docs[i].toModel(id)
		if !p.Difficulty.Valid() {
			return nil, fmt.Errorf("problem %s has unknown difficulty %q", id, p.Difficulty)
		}
		repo.problems = append(repo.problems, p)
	}
	return repo, nil
}

// FindByDifficulties 난이도 집합에 속한 문제 목록
func (r *MemoryProblemRepository) FindByDifficulties(ctx context.Context, difficulties []models.Difficulty) ([]*models.Problem, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	want := make(map[models.Difficulty]bool, len(difficulties))
	for _, d := range difficulties {
		want[d] = true
	}

	var out []*models.Problem
	for _, p := range r.problems {
		if want[p.Difficulty] {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *MemoryProblemRepository) FindByID(ctx context.Context, id string) (*models.Problem, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.problems {
		if p.ID == id {
			return p, nil
		}
	}
	return nil, ErrProblemNotFound
}

// Create 문제 추가. id가 비어 있으면 순번으로 채움
func (r *MemoryProblemRepository) Create(ctx context.Context, p *models.Problem) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored := *p
	if stored.ID == "" {
		stored.ID = fmt.Sprintf("problem-%d", len(r.problems)+1)
	}
	r.problems = append(r.problems, &stored)
	return stored.ID, nil
}

func (r *MemoryProblemRepository) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.problems)
}
