package models

type VerdictStatus string

const (
	VerdictAccepted VerdictStatus = "accepted"
	VerdictWrong    VerdictStatus = "wrong"
	VerdictError    VerdictStatus = "error"
)

// TestResult 테스트 케이스 하나의 실행 결과
type TestResult struct {
	Passed   bool    `json:"passed"`
	Stdout   string  `json:"stdout"`
	Stderr   string  `json:"stderr,omitempty"`
	Time     float64 `json:"time"`   // seconds
	Memory   int     `json:"memory"` // KB
	StatusID int     `json:"statusId,omitempty"`
	Status   string  `json:"status,omitempty"`
}

type Verdict struct {
	Status          VerdictStatus `json:"status"`
	Accepted        bool          `json:"accepted"`
	PassedTestCases int           `json:"passedTestCases"`
	TotalTestCases  int           `json:"totalTestCases"`
	Runtime         float64       `json:"runtime"`
	Memory          int           `json:"memory"`
	Error           string        `json:"error,omitempty"`
	Results         []TestResult  `json:"results,omitempty"`
}

type SubmitCodeRequest struct {
	Code     string `json:"code" binding:"required"`
	Language string `json:"language" binding:"required"`
}
