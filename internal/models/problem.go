package models

type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// Valid 알려진 난이도인지 확인
func (d Difficulty) Valid() bool {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return true
	}
	return false
}

type TestCase struct {
	Input       string `json:"input" bson:"input"`
	Output      string `json:"output" bson:"output"`
	Explanation string `json:"explanation,omitempty" bson:"explanation,omitempty"`
}

type StartCode struct {
	Language    string `json:"language" bson:"language"`
	InitialCode string `json:"initialCode" bson:"initialCode"`
}

// Problem 대결에 사용되는 문제 (히든 테스트는 클라이언트에 노출하지 않음)
type Problem struct {
	ID          string      `json:"id" db:"id"`
	Title       string      `json:"title" db:"title"`
	Description string      `json:"description" db:"description"`
	Difficulty  Difficulty  `json:"difficulty" db:"difficulty"`
	Examples    []TestCase  `json:"examples" db:"visible_test_cases"`
	HiddenTests []TestCase  `json:"-" db:"hidden_test_cases"`
	StartCode   []StartCode `json:"startCode" db:"start_code"`
}
