package api

import (
	"net/http"
	"strconv"

	"github.com/5kozarskabrigada/si-backend/internal/money"
)

func (s *Server) handleGameView(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.ParseInt(r.URL.Query().Get("player"), 10, 64)

	view, err := s.lotteries.View(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleSoloJoin(w http.ResponseWriter, r *http.Request) {
	var in struct {
		PlayerID int64       `json:"playerId"`
		Bet      money.Money `json:"bet"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.lotteries.JoinSolo(r.Context(), in.PlayerID, in.Bet); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleSoloWithdraw(w http.ResponseWriter, r *http.Request) {
	var in struct {
		PlayerID int64 `json:"playerId"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	refund, err := s.lotteries.WithdrawSolo(r.Context(), in.PlayerID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"refund": refund})
}

func (s *Server) handleSoloDraw(w http.ResponseWriter, r *http.Request) {
	result, err := s.lotteries.DrawSolo(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleTeamCreate(w http.ResponseWriter, r *http.Request) {
	var in struct {
		PlayerID int64       `json:"playerId"`
		Name     string      `json:"name"`
		Bet      money.Money `json:"bet"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	teamID, err := s.lotteries.CreateTeam(r.Context(), in.PlayerID, in.Name, in.Bet)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"teamId": teamID})
}

func (s *Server) handleTeamJoin(w http.ResponseWriter, r *http.Request) {
	var in struct {
		PlayerID int64       `json:"playerId"`
		TeamID   string      `json:"teamId"`
		Bet      money.Money `json:"bet"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.lotteries.JoinTeam(r.Context(), in.PlayerID, in.TeamID, in.Bet); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleTeamDraw(w http.ResponseWriter, r *http.Request) {
	result, err := s.lotteries.DrawTeam(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
