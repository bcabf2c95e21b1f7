// Package service provides business logic implementations.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/5kozarskabrigada/si-backend/internal/model"
	"github.com/5kozarskabrigada/si-backend/internal/money"
	"github.com/5kozarskabrigada/si-backend/internal/pkg/lock"
	"github.com/5kozarskabrigada/si-backend/internal/repository"
)

// Common errors for account operations.
var (
	ErrPlayerNotFound  = errors.New("player not found")
	ErrPlayerBanned    = errors.New("player is banned")
	ErrNegativeBalance = errors.New("balance cannot be negative")
)

// secondsPerHour converts the per-hour offline rate to a per-second basis.
const secondsPerHour = 3600

// OfflineEarnings computes the passive accrual for an absence. It is a
// pure function of the two rates and the elapsed time:
// autoRate × elapsedSeconds + offlineRate × elapsedSeconds / 3600.
func OfflineEarnings(autoRate, offlineRatePerHour money.Money, elapsed time.Duration) money.Money {
	secs := int64(elapsed.Seconds())
	if secs <= 0 {
		return money.Zero()
	}
	auto := autoRate.MulInt(secs)
	offline := offlineRatePerHour.MulInt(secs).DivInt(secondsPerHour)
	return auto.Add(offline)
}

// AccountService handles player lifecycle, offline settlement, balance
// sync, profile sync and the leaderboard.
type AccountService struct {
	players         *repository.PlayerRepository
	logs            *repository.ActionLogRepository
	locks           *lock.KeyedLock
	settleThreshold time.Duration
	now             func() time.Time
}

// NewAccountService creates a new AccountService instance.
func NewAccountService(
	players *repository.PlayerRepository,
	logs *repository.ActionLogRepository,
	locks *lock.KeyedLock,
	settleThreshold time.Duration,
) *AccountService {
	return &AccountService{
		players:         players,
		logs:            logs,
		locks:           locks,
		settleThreshold: settleThreshold,
		now:             time.Now,
	}
}

// GetPlayer fetches (or lazily creates) a player and settles their offline
// earnings first, so the returned balance is authoritative for the request.
func (s *AccountService) GetPlayer(ctx context.Context, userID int64, username string) (*model.Player, error) {
	if username == "" {
		username = fmt.Sprintf("user_%d", userID)
	}
	var player *model.Player
	err := s.locks.WithLock(lock.PlayerKey(userID), func() error {
		p, _, err := s.players.GetOrCreate(ctx, userID, username)
		if err != nil {
			return fmt.Errorf("failed to get or create player: %w", err)
		}

		p, err = s.settleOffline(ctx, p)
		if err != nil {
			return err
		}
		player = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return player, nil
}

// settleOffline applies accrued passive earnings when more than the
// settlement threshold has elapsed since the last update. Shorter gaps are
// left alone to avoid write amplification under rapid polling.
// Caller must hold the player's lock.
func (s *AccountService) settleOffline(ctx context.Context, p *model.Player) (*model.Player, error) {
	now := s.now()
	elapsed := now.Sub(p.LastUpdated)
	if elapsed <= s.settleThreshold {
		return p, nil
	}

	granted := OfflineEarnings(p.AutoClickRate, p.OfflineRatePerHour, elapsed)
	if granted.IsZero() {
		// Still advance the timestamp so idle zero-rate players do not
		// accumulate an ever-growing elapsed window.
		return s.players.ApplySettlement(ctx, p.UserID, granted, now)
	}

	updated, err := s.players.ApplySettlement(ctx, p.UserID, granted, now)
	if err != nil {
		return nil, fmt.Errorf("failed to settle offline earnings: %w", err)
	}

	detail := fmt.Sprintf("granted %s for %ds away", granted, int64(elapsed.Seconds()))
	if err := s.logs.Append(ctx, p.UserID, model.ActionOfflineGrant, detail); err != nil {
		log.Warn().Err(err).Int64("user_id", p.UserID).Msg("failed to log offline grant")
	}
	return updated, nil
}

// SyncBalance sets the client-reported balance after manual clicking.
func (s *AccountService) SyncBalance(ctx context.Context, userID int64, balance money.Money) (*model.Player, error) {
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
			return fmt.Errorf("failed to sync balance: %w", err)
		}
		player = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return player, nil
}

// SyncProfile creates or refreshes a player from the chat front door's
// profile push.
func (s *AccountService) SyncProfile(ctx context.Context, profile *model.Profile) (*model.Player, error) {
	if profile.Username == "" {
		profile.Username = fmt.Sprintf("user_%d", profile.UserID)
	}
	player, err := s.players.UpsertProfile(ctx, profile)
	if err != nil {
		return nil, fmt.Errorf("failed to sync profile: %w", err)
	}
	return player, nil
}

// Leaderboard returns the top players ordered by a numeric column.
func (s *AccountService) Leaderboard(ctx context.Context, column string, limit int) ([]*model.Player, error) {
	if limit <= 0 || limit > 100 {
		limit = 10
	}
	return s.players.Top(ctx, column, limit)
}

// RequireActive loads a player and rejects banned accounts. Used by every
// mutating operation.
func (s *AccountService) RequireActive(ctx context.Context, userID int64) (*model.Player, error) {
	p, err := s.players.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrPlayerNotFound) {
			return nil, ErrPlayerNotFound
		}
		return nil, err
	}
	if p.IsBanned {
		return nil, ErrPlayerBanned
	}
	return p, nil
}
