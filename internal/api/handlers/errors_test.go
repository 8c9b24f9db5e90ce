package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/codeduel/duel-backend/internal/service"
	"github.com/stretchr/testify/assert"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not authenticated", service.ErrNotAuthenticated, http.StatusUnauthorized},
		{"not participant", service.ErrNotParticipant, http.StatusForbidden},
		{"match not found", service.ErrMatchNotFound, http.StatusNotFound},
		{"wrapped room not found", fmt.Errorf("join AB12CD: %w", service.ErrRoomNotFound), http.StatusNotFound},
		{"invalid time limit", fmt.Errorf("%w: 7", service.ErrInvalidTimeLimit), http.StatusBadRequest},
		{"unsupported language", service.ErrUnsupportedLanguage, http.StatusBadRequest},
		{"room full", service.ErrRoomFull, http.StatusConflict},
		{"already paired", service.ErrAlreadyPaired, http.StatusConflict},
		{"match not active", service.ErrMatchNotActive, http.StatusConflict},
		{"pairing aborted", fmt.Errorf("%w: user-a", service.ErrPairingAborted), http.StatusConflict},
		{"execution failed", service.ErrExecutionFailed, http.StatusBadGateway},
		{"problem store down", service.ErrProblemUnavailable, http.StatusBadGateway},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, statusFor(tt.err))
		})
	}
}
