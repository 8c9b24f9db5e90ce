package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/codeduel/duel-backend/internal/models"
	"github.com/codeduel/duel-backend/pkg/database"
	"github.com/lib/pq"
)

const problemSchema = `
	CREATE TABLE IF NOT EXISTS problems (
		id                 UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		title              TEXT NOT NULL,
		description        TEXT NOT NULL DEFAULT '',
		difficulty         TEXT NOT NULL CHECK (difficulty IN ('easy', 'medium', 'hard')),
		visible_test_cases JSONB NOT NULL DEFAULT '[]',
		hidden_test_cases  JSONB NOT NULL DEFAULT '[]',
		start_code         JSONB NOT NULL DEFAULT '[]',
		created_at         TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);
	CREATE INDEX IF NOT EXISTS idx_problems_difficulty ON problems (difficulty);
`

type PostgresProblemRepository struct {
	db *database.DB
}

func NewPostgresProblemRepository(db *database.DB) *PostgresProblemRepository {
	return &PostgresProblemRepository{db: db}
}

// Migrate problems 테이블 생성 (없는 경우)
func (r *PostgresProblemRepository) Migrate(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, problemSchema); err != nil {
		return fmt.Errorf("failed to migrate problems table: %w", err)
	}
	return nil
}

// FindByDifficulties 난이도 집합에 속한 문제 목록
func (r *PostgresProblemRepository) FindByDifficulties(ctx context.Context, difficulties []models.Difficulty) ([]*models.Problem, error) {
	query := `
		SELECT id, title, description, difficulty, visible_test_cases, hidden_test_cases, start_code
		FROM problems
		WHERE difficulty = ANY($1)
	`

	rows, err := r.db.QueryContext(ctx, query, pq.Array(difficultyStrings(difficulties)))
	if err != nil {
		return nil, fmt.Errorf("failed to find problems: %w", err)
	}
	defer rows.Close()

	var problems []*models.Problem
	for rows.Next() {
		p, err := scanProblem(rows)
		if err != nil {
			return nil, err
		}
		problems = append(problems, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate problems: %w", err)
	}

	return problems, nil
}

// FindByID ID로 문제 찾기
func (r *PostgresProblemRepository) FindByID(ctx context.Context, id string) (*models.Problem, error) {
	query := `
		SELECT id, title, description, difficulty, visible_test_cases, hidden_test_cases, start_code
		FROM problems
		WHERE id = $1
	`

	p, err := scanProblem(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, ErrProblemNotFound
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

// Create 문제 저장
func (r *PostgresProblemRepository) Create(ctx context.Context, p *models.Problem) (string, error) {
	visible, err := json.Marshal(p.Examples)
	if err != nil {
		return "", fmt.Errorf("failed to encode examples: %w", err)
	}
	hidden, err := json.Marshal(p.HiddenTests)
	if err != nil {
		return "", fmt.Errorf("failed to encode hidden tests: %w", err)
	}
	startCode, err := json.Marshal(p.StartCode)
	if err != nil {
		return "", fmt.Errorf("failed to encode start code: %w", err)
	}

	query := `
		INSERT INTO problems (title, description, difficulty, visible_test_cases, hidden_test_cases, start_code)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`

	var id string
	err = r.db.QueryRowContext(ctx, query,
		p.Title, p.Description, string(p.Difficulty), visible, hidden, startCode,
	).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("failed to create problem: %w", err)
	}
	return id, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanProblem(row rowScanner) (*models.Problem, error) {
	var (
		p                          models.Problem
		difficulty                 string
		visible, hidden, startCode []byte
	)

	err := row.Scan(&p.ID, &p.Title, &p.Description, &difficulty, &visible, &hidden, &startCode)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan problem: %w", err)
	}

	p.Difficulty = models.Difficulty(difficulty)
	if err := json.Unmarshal(visible, &p.Examples); err != nil {
		return nil, fmt.Errorf("failed to decode examples of %s: %w", p.ID, err)
	}
	if err := json.Unmarshal(hidden, &p.HiddenTests); err != nil {
		return nil, fmt.Errorf("failed to decode hidden tests of %s: %w", p.ID, err)
	}
	if err := json.Unmarshal(startCode, &p.StartCode); err != nil {
		return nil, fmt.Errorf("failed to decode start code of %s: %w", p.ID, err)
	}
	return &p, nil
}
