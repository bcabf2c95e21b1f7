package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/5kozarskabrigada/si-backend/internal/model"
	"github.com/5kozarskabrigada/si-backend/internal/money"
	"github.com/5kozarskabrigada/si-backend/internal/pkg/lock"
	"github.com/5kozarskabrigada/si-backend/internal/repository"
)

// AdminService exposes the operator surface: listing, banning, balance
// adjustment and deletion, with every action written to the audit log.
type AdminService struct {
	players *repository.PlayerRepository
	logs    *repository.ActionLogRepository
	locks   *lock.KeyedLock
}

// NewAdminService creates a new AdminService instance.
func NewAdminService(
	players *repository.PlayerRepository,
	logs *repository.ActionLogRepository,
	locks *lock.KeyedLock,
) *AdminService {
	return &AdminService{players: players, logs: logs, locks: locks}
}

// ListPlayers pages through all registered players.
func (s *AdminService) ListPlayers(ctx context.Context, limit, offset int) ([]*model.Player, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.players.List(ctx, limit, offset)
}

// AddCoins credits coins onto a player's balance.
func (s *AdminService) AddCoins(ctx context.Context, userID int64, amount money.Money) (*model.Player, error) {
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	var player *model.Player
	err := s.locks.WithLock(lock.PlayerKey(userID), func() error {
		p, err := s.players.Credit(ctx, userID, amount)
		if err != nil {
			if errors.Is(err, repository.ErrPlayerNotFound) {
				return ErrPlayerNotFound
			}
			return err
		}
		s.audit(ctx, userID, model.ActionAdminCoins, fmt.Sprintf("granted %s", amount))
		player = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return player, nil
}

// AdjustBalance overwrites a player's balance with an exact value.
func (s *AdminService) AdjustBalance(ctx context.Context, userID int64, balance money.Money) (*model.Player, error) {
	if balance.IsNegative() {
		return nil, ErrNegativeBalance
	}
	var player *model.Player
	err := s.locks.WithLock(lock.PlayerKey(userID), func() error {
		p, err := s.players.SetBalance(ctx, userID, balance)
		if err != nil {
			if errors.Is(err, repository.ErrPlayerNotFound) {
				return ErrPlayerNotFound
			}
			return err
		}
		s.audit(ctx, userID, model.ActionAdminAdjust, fmt.Sprintf("balance set to %s", balance))
		player = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return player, nil
}

// Ban blocks a player from every mutating operation.
func (s *AdminService) Ban(ctx context.Context, userID int64) error {
	return s.setBanned(ctx, userID, true, model.ActionAdminBan, "banned")
}

// Unban lifts a ban.
func (s *AdminService) Unban(ctx context.Context, userID int64) error {
	return s.setBanned(ctx, userID, false, model.ActionAdminUnban, "unbanned")
}

func (s *AdminService) setBanned(ctx context.Context, userID int64, banned bool, action, detail string) error {
	return s.locks.WithLock(lock.PlayerKey(userID), func() error {
		if err := s.players.SetBanned(ctx, userID, banned); err != nil {
			if errors.Is(err, repository.ErrPlayerNotFound) {
				return ErrPlayerNotFound
			}
			return err
		}
		s.audit(ctx, userID, action, detail)
		return nil
	})
}

// DeletePlayer removes a player record entirely. Outstanding lottery stakes
// are not refunded; delete is for cleanup, not moderation.
func (s *AdminService) DeletePlayer(ctx context.Context, userID int64) error {
	return s.locks.WithLock(lock.PlayerKey(userID), func() error {
		if err := s.players.Delete(ctx, userID); err != nil {
			if errors.Is(err, repository.ErrPlayerNotFound) {
				return ErrPlayerNotFound
			}
			return err
		}
		s.audit(ctx, userID, model.ActionAdminDelete, "player deleted")
		return nil
	})
}

// Logs returns the most recent audit entries, newest first.
func (s *AdminService) Logs(ctx context.Context, limit int) ([]*model.ActionLog, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	return s.logs.List(ctx, limit)
}

func (s *AdminService) audit(ctx context.Context, userID int64, action, detail string) {
	if err := s.logs.Append(ctx, userID, action, detail); err != nil {
		log.Warn().Err(err).Int64("user_id", userID).Str("action", action).Msg("failed to log admin action")
	}
}
