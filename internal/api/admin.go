package api

import (
	"net/http"
	"strconv"

	"github.com/5kozarskabrigada/si-backend/internal/money"
)

func (s *Server) handleAdminPlayers(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	players, err := s.admin.ListPlayers(r.Context(), limit, offset)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, players)
}

func (s *Server) handleAdminCoins(w http.ResponseWriter, r *http.Request) {
	id, ok := playerID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid player id")
		return
	}
	var in struct {
		Amount money.Money `json:"amount"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	player, err := s.admin.AddCoins(r.Context(), id, in.Amount)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, player)
}

func (s *Server) handleAdminAdjust(w http.ResponseWriter, r *http.Request) {
	id, ok := playerID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid player id")
		return
	}
	var in struct {
		Balance money.Money `json:"balance"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	player, err := s.admin.AdjustBalance(r.Context(), id, in.Balance)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, player)
}

func (s *Server) handleAdminBan(w http.ResponseWriter, r *http.Request) {
	id, ok := playerID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid player id")
		return
	}
	if err := s.admin.Ban(r.Context(), id); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleAdminUnban(w http.ResponseWriter, r *http.Request) {
	id, ok := playerID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid player id")
		return
	}
	if err := s.admin.Unban(r.Context(), id); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleAdminDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := playerID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid player id")
		return
	}
	if err := s.admin.DeletePlayer(r.Context(), id); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleAdminLogs(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	logs, err := s.admin.Logs(r.Context(), limit)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, logs)
}
