package repository

import (
	"errors"

	"github.com/codeduel/duel-backend/internal/models"
)

// ErrProblemNotFound 요청한 id의 문제가 없음
var ErrProblemNotFound = errors.New("problem not found")

// problemDocument 시드 파일 표현. models.Problem과 달리 히든 테스트도 직렬화함
type problemDocument struct {
	ID               string             `json:"id"`
	Title            string             `json:"title"`
	Description      string             `json:"description"`
	Difficulty       string             `json:"difficulty"`
	VisibleTestCases []models.TestCase  `json:"visibleTestCases"`
	HiddenTestCases  []models.TestCase  `json:"hiddenTestCases"`
	StartCode        []models.StartCode `json:"startCode"`
}

func (d *problemDocument) toModel(id string) *models.Problem {
	return &models.Problem{
		ID:          id,
		Title:       d.Title,
		Description: d.Description,
		Difficulty:  models.Difficulty(d.Difficulty),
		Examples:    d.VisibleTestCases,
		HiddenTests: d.HiddenTestCases,
		StartCode:   d.StartCode,
	}
}

func difficultyStrings(difficulties []models.Difficulty) []string {
	out := make([]string, len(difficulties))
	for i, d := range difficulties {
		out[i] = string(d)
	}
	return out
}
