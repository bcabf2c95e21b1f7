package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/5kozarskabrigada/si-backend/internal/lottery"
	"github.com/5kozarskabrigada/si-backend/internal/repository"
	"github.com/5kozarskabrigada/si-backend/internal/service"
)

func decodeJSON(r *http.Request, out any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(out)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"error": strings.TrimSpace(message)})
}

// writeDomainError maps service and lottery sentinel errors onto HTTP
// statuses. Anything unmapped is an internal error; the detail is logged,
// not leaked.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrPlayerNotFound),
		errors.Is(err, service.ErrReceiverNotFound),
		errors.Is(err, lottery.ErrTeamNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrPlayerBanned):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, service.ErrInvalidAmount),
		errors.Is(err, service.ErrNegativeBalance),
		errors.Is(err, service.ErrSelfTransfer),
		errors.Is(err, service.ErrInsufficientBalance),
		errors.Is(err, service.ErrUnknownUpgrade),
		errors.Is(err, repository.ErrUnknownColumn),
		errors.Is(err, lottery.ErrInvalidBet),
		errors.Is(err, lottery.ErrAlreadyInTeam),
		errors.Is(err, lottery.ErrTeamNameTaken),
		errors.Is(err, lottery.ErrNotParticipant):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, lottery.ErrBettingClosed),
		errors.Is(err, lottery.ErrRoundNotReady),
		errors.Is(err, lottery.ErrInactiveRound):
		writeError(w, http.StatusConflict, err.Error())
	default:
		log.Error().Err(err).Msg("request failed")
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
