package service

import "errors"

// Validation errors
var (
	ErrInvalidInput        = errors.New("invalid input")
	ErrInvalidTimeLimit    = errors.New("invalid time limit")
	ErrInvalidDifficulty   = errors.New("invalid difficulty")
	ErrUnsupportedLanguage = errors.New("unsupported language")
	ErrNotAuthenticated    = errors.New("user not authenticated")
)

// Conflict errors (상태 변경 없음)
var (
	ErrAlreadyQueued   = errors.New("already in queue")
	ErrAlreadyPaired   = errors.New("already waiting in another queue or room")
	ErrAlreadyInMatch  = errors.New("already in an active match")
	ErrAlreadyInRoom   = errors.New("already in this room")
	ErrRoomFull        = errors.New("room is full")
	ErrRoomUnavailable = errors.New("room is no longer available")
	ErrMatchNotActive  = errors.New("match is not active")
	ErrNotParticipant  = errors.New("not a participant")
	ErrPairingAborted  = errors.New("pairing aborted: a player left")
)

// Not found errors
var (
	ErrMatchNotFound   = errors.New("match not found")
	ErrRoomNotFound    = errors.New("room not found or expired")
	ErrProblemNotFound = errors.New("no problem matches the requested difficulty")
)

// Upstream errors
var (
	ErrProblemUnavailable = errors.New("problem store unavailable")
	ErrExecutionFailed    = errors.New("code execution failed")
)

// Notified 서비스가 이미 이벤트(match-creation-failed, submission-error, run-error)로 알린 실패인지 확인
func Notified(err error) bool {
	return errors.Is(err, ErrProblemUnavailable) ||
		errors.Is(err, ErrProblemNotFound) ||
		errors.Is(err, ErrExecutionFailed)
}
