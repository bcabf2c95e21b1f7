// Package api exposes the game over HTTP: the public player surface, the
// lottery endpoints and the token-guarded admin surface.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/5kozarskabrigada/si-backend/internal/config"
	"github.com/5kozarskabrigada/si-backend/internal/pkg/db"
	"github.com/5kozarskabrigada/si-backend/internal/service"
)

// Server wires the service layer to the HTTP router.
type Server struct {
	accounts   *service.AccountService
	upgrades   *service.UpgradeService
	transfers  *service.TransferService
	lotteries  *service.LotteryService
	admin      *service.AdminService
	pool       *db.Pool
	adminToken string

	mux  *chi.Mux
	http *http.Server
}

// New builds the router and the underlying http.Server.
func New(
	cfg config.ServerConfig,
	adminToken string,
	accounts *service.AccountService,
	upgrades *service.UpgradeService,
	transfers *service.TransferService,
	lotteries *service.LotteryService,
	admin *service.AdminService,
	pool *db.Pool,
) *Server {
	s := &Server{
		accounts:   accounts,
		upgrades:   upgrades,
		transfers:  transfers,
		lotteries:  lotteries,
		admin:      admin,
		pool:       pool,
		adminToken: adminToken,
		mux:        chi.NewRouter(),
	}
	s.routes()
	s.http = &http.Server{
		Addr:         cfg.Addr(),
		Handler:      s.mux,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
	return s
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Start serves until the listener fails or Shutdown is called.
func (s *Server) Start() error {
	return s.http.ListenAndServe()
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func (s *Server) routes() {
	r := s.mux
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/healthz", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Get("/player/{id}", s.handleGetPlayer)
		r.Post("/player/{id}/balance", s.handleSyncBalance)
		r.Post("/player/sync", s.handleSyncProfile)
		r.Post("/player/{id}/upgrade", s.handleUpgrade)
		r.Get("/upgrades", s.handleCatalog)
		r.Get("/leaderboard", s.handleLeaderboard)

		r.Post("/transfer", s.handleTransfer)
		r.Get("/player/{id}/transfers", s.handleTransferHistory)

		r.Get("/game", s.handleGameView)
		r.Post("/game/solo/join", s.handleSoloJoin)
		r.Post("/game/solo/withdraw", s.handleSoloWithdraw)
		r.Post("/game/solo/draw", s.handleSoloDraw)
		r.Post("/game/team/create", s.handleTeamCreate)
		r.Post("/game/team/join", s.handleTeamJoin)
		r.Post("/game/team/draw", s.handleTeamDraw)

		r.Route("/admin", func(r chi.Router) {
			r.Use(s.adminAuth)
			r.Get("/players", s.handleAdminPlayers)
			r.Post("/players/{id}/coins", s.handleAdminCoins)
			r.Post("/players/{id}/adjust", s.handleAdminAdjust)
			r.Post("/players/{id}/ban", s.handleAdminBan)
			r.Post("/players/{id}/unban", s.handleAdminUnban)
			r.Delete("/players/{id}", s.handleAdminDelete)
			r.Get("/logs", s.handleAdminLogs)
		})
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.pool.HealthCheck(r.Context()); err != nil {
		writeError(w, http.StatusServiceUnavailable, "database unreachable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}
