package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/5kozarskabrigada/si-backend/internal/model"
	"github.com/5kozarskabrigada/si-backend/internal/money"
)

func playerID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	return id, err == nil && id > 0
}

func (s *Server) handleGetPlayer(w http.ResponseWriter, r *http.Request) {
	id, ok := playerID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid player id")
		return
	}

	// Auto-registration needs a handle; fall back to a synthetic one when
	// the front door has not synced a profile yet.
	username := r.URL.Query().Get("username")

	player, err := s.accounts.GetPlayer(r.Context(), id, username)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, player)
}

func (s *Server) handleSyncBalance(w http.ResponseWriter, r *http.Request) {
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

	player, err := s.accounts.SyncBalance(r.Context(), id, in.Balance)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, player)
}

func (s *Server) handleSyncProfile(w http.ResponseWriter, r *http.Request) {
	var in model.Profile
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if in.UserID <= 0 {
		writeError(w, http.StatusBadRequest, "invalid player id")
		return
	}

	player, err := s.accounts.SyncProfile(r.Context(), &in)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, player)
}

func (s *Server) handleUpgrade(w http.ResponseWriter, r *http.Request) {
	id, ok := playerID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid player id")
		return
	}
	var in struct {
		UpgradeID string `json:"upgradeId"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	player, err := s.upgrades.Purchase(r.Context(), id, in.UpgradeID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, player)
}

func (s *Server) handleCatalog(w http.ResponseWriter, _ *http.Request) {
	type entry struct {
		ID       string      `json:"id"`
		Name     string      `json:"name"`
		Benefit  money.Money `json:"benefit"`
		BaseCost money.Money `json:"baseCost"`
	}
	all := s.upgrades.Catalog()
	out := make([]entry, 0, len(all))
	for _, u := range all {
		out = append(out, entry{ID: u.ID, Name: u.Name, Benefit: u.Benefit, BaseCost: u.BaseCost})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	column := r.URL.Query().Get("by")
	if column == "" {
		column = "balance"
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	players, err := s.accounts.Leaderboard(r.Context(), column, limit)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, players)
}

func (s *Server) handleTransfer(w http.ResponseWriter, r *http.Request) {
	var in struct {
		SenderID int64       `json:"senderId"`
		Receiver string      `json:"receiver"`
		Amount   money.Money `json:"amount"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if in.SenderID <= 0 {
		writeError(w, http.StatusBadRequest, "invalid sender id")
		return
	}

	tx, err := s.transfers.Send(r.Context(), in.SenderID, in.Receiver, in.Amount)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tx)
}

func (s *Server) handleTransferHistory(w http.ResponseWriter, r *http.Request) {
	id, ok := playerID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid player id")
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	txs, err := s.transfers.History(r.Context(), id, limit)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, txs)
}
