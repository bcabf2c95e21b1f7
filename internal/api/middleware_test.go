package api

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/5kozarskabrigada/si-backend/internal/lottery"
	"github.com/5kozarskabrigada/si-backend/internal/service"
)

func TestAdminAuth(t *testing.T) {
	s := &Server{adminToken: "sekrit"}
	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	handler := s.adminAuth(next)

	tests := []struct {
		name   string
		token  string
		status int
	}{
		{"valid token", "sekrit", http.StatusNoContent},
		{"wrong token", "guess", http.StatusUnauthorized},
		{"missing token", "", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/admin/players", nil)
			if tt.token != "" {
				req.Header.Set("X-Admin-Token", tt.token)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			assert.Equal(t, tt.status, rec.Code)
		})
	}
}

func TestAdminAuthClosedWithoutToken(t *testing.T) {
	// No configured secret means nothing gets through, not everything.
	s := &Server{adminToken: ""}
	handler := s.adminAuth(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/admin/players", nil)
	req.Header.Set("X-Admin-Token", "")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestWriteDomainErrorMapping(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{service.ErrPlayerNotFound, http.StatusNotFound},
		{service.ErrReceiverNotFound, http.StatusNotFound},
		{lottery.ErrTeamNotFound, http.StatusNotFound},
		{service.ErrPlayerBanned, http.StatusForbidden},
		{service.ErrInsufficientBalance, http.StatusBadRequest},
		{service.ErrSelfTransfer, http.StatusBadRequest},
		{service.ErrUnknownUpgrade, http.StatusBadRequest},
		{lottery.ErrInvalidBet, http.StatusBadRequest},
		{lottery.ErrBettingClosed, http.StatusConflict},
		{lottery.ErrRoundNotReady, http.StatusConflict},
		{lottery.ErrInactiveRound, http.StatusConflict},
		{fmt.Errorf("wrapped: %w", service.ErrPlayerNotFound), http.StatusNotFound},
		{errors.New("database exploded"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		rec := httptest.NewRecorder()
		writeDomainError(rec, tt.err)
		assert.Equal(t, tt.status, rec.Code, "error %v", tt.err)
		assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	}
}

func TestInternalErrorsAreNotLeaked(t *testing.T) {
	rec := httptest.NewRecorder()
	writeDomainError(rec, errors.New("pq: connection refused host=10.0.0.5"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "10.0.0.5")
}
