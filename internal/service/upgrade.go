package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/5kozarskabrigada/si-backend/internal/catalog"
	"github.com/5kozarskabrigada/si-backend/internal/model"
	"github.com/5kozarskabrigada/si-backend/internal/money"
	"github.com/5kozarskabrigada/si-backend/internal/pkg/lock"
	"github.com/5kozarskabrigada/si-backend/internal/repository"
)

// Upgrade-related errors.
var (
	ErrUnknownUpgrade      = errors.New("unknown upgrade")
	ErrInsufficientBalance = errors.New("insufficient balance")
)

// UpgradeService handles the tiered upgrade purchase flow.
type UpgradeService struct {
	players  *repository.PlayerRepository
	logs     *repository.ActionLogRepository
	accounts *AccountService
	locks    *lock.KeyedLock
}

// NewUpgradeService creates a new UpgradeService instance.
func NewUpgradeService(
	players *repository.PlayerRepository,
	logs *repository.ActionLogRepository,
	accounts *AccountService,
	locks *lock.KeyedLock,
) *UpgradeService {
	return &UpgradeService{
		players:  players,
		logs:     logs,
		accounts: accounts,
		locks:    locks,
	}
}

// Catalog returns every purchasable upgrade.
func (s *UpgradeService) Catalog() []catalog.Upgrade {
	return catalog.All()
}

// Purchase buys one level of an upgrade. The cost follows the curve
// base_cost × 1.215^level; on success the cost is debited, the level
// incremented and the benefit applied to the target rate, all as a single
// conditional write so the whole set of field changes commits or none does.
func (s *UpgradeService) Purchase(ctx context.Context, userID int64, upgradeID string) (*model.Player, error) {
	upgrade, ok := catalog.Get(upgradeID)
	if !ok {
		return nil, ErrUnknownUpgrade
	}

	var player *model.Player
	err := s.locks.WithLock(lock.PlayerKey(userID), func() error {
		p, err := s.accounts.RequireActive(ctx, userID)
		if err != nil {
			return err
		}

		// Settle pending accrual so the balance check sees what the
		// player sees.
		p, err = s.accounts.settleOffline(ctx, p)
		if err != nil {
			return err
		}

		level := p.Level(upgradeID)
		cost := upgrade.Cost(level)
		if p.Balance.LessThan(cost) {
			return ErrInsufficientBalance
		}

		clickInc, autoInc, offlineInc := money.Zero(), money.Zero(), money.Zero()
		switch upgrade.Target {
		case catalog.TargetClick:
			clickInc = upgrade.Benefit
		case catalog.TargetAuto:
			autoInc = upgrade.Benefit
		case catalog.TargetOffline:
			offlineInc = upgrade.Benefit
		}

		p, err = s.players.ApplyUpgrade(ctx, userID, upgradeID, level+1, cost, clickInc, autoInc, offlineInc)
		if err != nil {
			if errors.Is(err, repository.ErrInsufficientFunds) {
				return ErrInsufficientBalance
			}
			return fmt.Errorf("failed to apply upgrade: %w", err)
		}

		detail := fmt.Sprintf("bought %s level %d for %s", upgradeID, level+1, cost)
		if logErr := s.logs.Append(ctx, userID, model.ActionUpgrade, detail); logErr != nil {
			log.Warn().Err(logErr).Int64("user_id", userID).Msg("failed to log upgrade purchase")
		}

		player = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return player, nil
}
