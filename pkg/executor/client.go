package executor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/codeduel/duel-backend/internal/models"
	"github.com/codeduel/duel-backend/pkg/logger"
)

// Judge0 status ids
const (
	statusInQueue    = 1
	statusProcessing = 2
	statusAccepted   = 3
)

var ErrExecutorUnavailable = errors.New("executor unavailable")

// Client Judge0 호환 실행 엔진 HTTP 클라이언트
type Client struct {
	baseURL      string
	apiKey       string
	httpClient   *http.Client
	pollInterval time.Duration
	timeout      time.Duration
}

type Options struct {
	APIKey       string
	PollInterval time.Duration
	Timeout      time.Duration
	HTTPClient   *http.Client
}

// NewClient 실행 엔진 클라이언트 생성
func NewClient(baseURL string, opts Options) *Client {
	if opts.PollInterval <= 0 {
		opts.PollInterval = time.Second
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: 15 * time.Second}
	}

	return &Client{
		baseURL:      strings.TrimRight(baseURL, "/"),
		apiKey:       opts.APIKey,
		httpClient:   opts.HTTPClient,
		pollInterval: opts.PollInterval,
		timeout:      opts.Timeout,
	}
}

type batchSubmission struct {
	SourceCode     string `json:"source_code"`
	LanguageID     int    `json:"language_id"`
	Stdin          string `json:"stdin"`
	ExpectedOutput string `json:"expected_output"`
}

type submissionToken struct {
	Token string `json:"token"`
}

type submissionStatus struct {
	ID          int    `json:"id"`
	Description string `json:"description"`
}

type submissionResult struct {
	Token         string            `json:"token"`
	StatusID      int               `json:"status_id"`
	Status        *submissionStatus `json:"status"`
	Stdout        *string           `json:"stdout"`
	Stderr        *string           `json:"stderr"`
	CompileOutput *string           `json:"compile_output"`
	Time          *string           `json:"time"`
	Memory        *int              `json:"memory"`
}

func (r submissionResult) statusID() int {
	if r.StatusID != 0 {
		return r.StatusID
	}
	if r.Status != nil {
		return r.Status.ID
	}
	return 0
}

// Run 소스 코드를 테스트 케이스마다 실행하고 결과를 입력 순서대로 반환
func (c *Client) Run(ctx context.Context, sourceCode, language string, tests []models.TestCase) ([]models.TestResult, error) {
	languageID, err := LanguageID(language)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", err, language)
	}
	if len(tests) == 0 {
		return []models.TestResult{}, nil
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	submissions := make([]batchSubmission, len(tests))
	for i, tc := range tests {
		submissions[i] = batchSubmission{
			SourceCode:     sourceCode,
			LanguageID:     languageID,
			Stdin:          tc.Input,
			ExpectedOutput: tc.Output,
		}
	}

	tokens, err := c.submitBatch(ctx, submissions)
	if err != nil {
		return nil, err
	}

	logger.Debug("Submitted batch to executor",
		"language", NormalizeLanguage(language),
		"tests", len(tests),
	)

	results, err := c.waitForResults(ctx, tokens)
	if err != nil {
		return nil, err
	}

	return convertResults(results), nil
}

func (c *Client) submitBatch(ctx context.Context, submissions []batchSubmission) ([]string, error) {
	body, err := json.Marshal(map[string]interface{}{"submissions": submissions})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal submissions: %w", err)
	}

	endpoint := c.baseURL + "/submissions/batch?base64_encoded=false"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req)

	var tokens []submissionToken
	if err := c.do(req, &tokens); err != nil {
		return nil, err
	}
	if len(tokens) != len(submissions) {
		return nil, fmt.Errorf("%w: expected %d tokens, got %d", ErrExecutorUnavailable, len(submissions), len(tokens))
	}

	out := make([]string, len(tokens))
	for i, t := range tokens {
		if t.Token == "" {
			return nil, fmt.Errorf("%w: empty submission token", ErrExecutorUnavailable)
		}
		out[i] = t.Token
	}
	return out, nil
}

func (c *Client) waitForResults(ctx context.Context, tokens []string) ([]submissionResult, error) {
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		results, err := c.fetchBatch(ctx, tokens)
		if err != nil {
			return nil, err
		}
		if finished(results) {
			return results, nil
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %v", ErrExecutorUnavailable, ctx.Err())
		case <-ticker.C:
		}
	}
}

func (c *Client) fetchBatch(ctx context.Context, tokens []string) ([]submissionResult, error) {
	query := url.Values{}
	query.Set("tokens", strings.Join(tokens, ","))
	query.Set("base64_encoded", "false")
	query.Set("fields", "token,stdout,stderr,compile_output,status_id,status,time,memory")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/submissions/batch?"+query.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	c.authorize(req)

	var payload struct {
		Submissions []submissionResult `json:"submissions"`
	}
	if err := c.do(req, &payload); err != nil {
		return nil, err
	}
	if len(payload.Submissions) != len(tokens) {
		return nil, fmt.Errorf("%w: expected %d results, got %d", ErrExecutorUnavailable, len(tokens), len(payload.Submissions))
	}
	return payload.Submissions, nil
}

func (c *Client) do(req *http.Request, out interface{}) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrExecutorUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: status %d: %s", ErrExecutorUnavailable, resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode response: %v", ErrExecutorUnavailable, err)
	}
	return nil
}

// authorize RapidAPI 호스팅 Judge0는 키 헤더가 필요
func (c *Client) authorize(req *http.Request) {
	if c.apiKey == "" {
		return
	}
	req.Header.Set("X-RapidAPI-Key", c.apiKey)
	req.Header.Set("X-RapidAPI-Host", req.URL.Host)
}

func finished(results []submissionResult) bool {
	for _, r := range results {
		if id := r.statusID(); id == statusInQueue || id == statusProcessing || id == 0 {
			return false
		}
	}
	return true
}

func convertResults(results []submissionResult) []models.TestResult {
	out := make([]models.TestResult, len(results))
	for i, r := range results {
		tr := models.TestResult{
			StatusID: r.statusID(),
			Passed:   r.statusID() == statusAccepted,
			Stdout:   deref(r.Stdout),
			Stderr:   deref(r.Stderr),
		}
		if tr.Stderr == "" {
			tr.Stderr = deref(r.CompileOutput)
		}
		if r.Status != nil {
			tr.Status = r.Status.Description
		}
		if r.Time != nil {
			tr.Time, _ = strconv.ParseFloat(*r.Time, 64)
		}
		if r.Memory != nil {
			tr.Memory = *r.Memory
		}
		out[i] = tr
	}
	return out
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
