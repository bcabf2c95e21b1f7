package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/5kozarskabrigada/si-backend/internal/lottery"
	"github.com/5kozarskabrigada/si-backend/internal/model"
	"github.com/5kozarskabrigada/si-backend/internal/money"
	"github.com/5kozarskabrigada/si-backend/internal/pkg/lock"
	"github.com/5kozarskabrigada/si-backend/internal/repository"
)

// DrawFunc picks the winning value for a pot; it must return a value in
// (0, total]. Tests inject a fixed one.
type DrawFunc func(total money.Money) money.Money

// defaultDraw picks a uniformly random point on the pot.
func defaultDraw(total money.Money) money.Money {
	r := decimal.NewFromFloat(1 - rand.Float64())
	return total.Mul(money.FromDecimal(r))
}

// GameView is the game document as seen by one player.
type GameView struct {
	Solo          model.SoloGame       `json:"solo"`
	SoloPhase     string               `json:"solo_phase"`
	Team          model.TeamGame       `json:"team"`
	TeamPhase     string               `json:"team_phase"`
	RecentWinners []model.WinnerRecord `json:"recent_winners"`
	YourBets      model.PlayerBets     `json:"your_bets"`
}

// LotteryService runs the solo and team lotteries. Every mutation of the
// game document happens under a single named lock, so concurrent joins,
// withdrawals and draws serialize instead of clobbering each other.
type LotteryService struct {
	states   *repository.GameStateRepository
	players  *repository.PlayerRepository
	logs     *repository.ActionLogRepository
	accounts *AccountService
	locks    *lock.KeyedLock
	engine   *lottery.Engine
	draw     DrawFunc
	now      func() time.Time
}

// NewLotteryService creates a new LotteryService instance.
func NewLotteryService(
	states *repository.GameStateRepository,
	players *repository.PlayerRepository,
	logs *repository.ActionLogRepository,
	accounts *AccountService,
	locks *lock.KeyedLock,
	engine *lottery.Engine,
) *LotteryService {
	return &LotteryService{
		states:   states,
		players:  players,
		logs:     logs,
		accounts: accounts,
		locks:    locks,
		engine:   engine,
		draw:     defaultDraw,
		now:      time.Now,
	}
}

// View returns the game document scoped to one player.
func (s *LotteryService) View(ctx context.Context, userID int64) (*GameView, error) {
	var view *GameView
	err := s.locks.WithLock(lock.GameStateKey, func() error {
		st, err := s.states.Get(ctx)
		if err != nil {
			return err
		}
		now := s.now()
		view = &GameView{
			Solo:          st.Solo,
			SoloPhase:     s.engine.SoloPhase(st, now).String(),
			Team:          st.Team,
			TeamPhase:     s.engine.TeamPhase(st, now).String(),
			RecentWinners: st.RecentWinners,
			YourBets:      st.YourBets[strconv.FormatInt(userID, 10)],
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return view, nil
}

// JoinSolo stakes a bet in the solo round. The bet is escrowed out of the
// player's balance before the document is persisted; if the persist fails
// the escrow is compensated.
func (s *LotteryService) JoinSolo(ctx context.Context, userID int64, bet money.Money) error {
	p, err := s.accounts.RequireActive(ctx, userID)
	if err != nil {
		return err
	}

	return s.locks.WithLock(lock.GameStateKey, func() error {
		st, err := s.states.Get(ctx)
		if err != nil {
			return err
		}
		if err := s.engine.JoinSolo(st, p.UserID, p.Username, bet, s.now()); err != nil {
			return err
		}
		return s.escrowAndSave(ctx, st, p.UserID, bet)
	})
}

// WithdrawSolo pulls the player's whole stake back out of the solo round.
// The refund is credited only after the updated document is persisted.
func (s *LotteryService) WithdrawSolo(ctx context.Context, userID int64) (money.Money, error) {
	var refund money.Money
	err := s.locks.WithLock(lock.GameStateKey, func() error {
		st, err := s.states.Get(ctx)
		if err != nil {
			return err
		}
		r, err := s.engine.WithdrawSolo(st, userID, s.now())
		if err != nil {
			return err
		}
		if err := s.states.Save(ctx, st); err != nil {
			return fmt.Errorf("failed to save game state: %w", err)
		}
		s.credit(ctx, userID, r, "solo withdrawal refund")
		refund = r
		return nil
	})
	if err != nil {
		return money.Zero(), err
	}
	return refund, nil
}

// DrawSolo settles the solo round once its deadline has passed. The reset
// document is persisted before any coins move, so a crash can lose a payout
// (which the audit log surfaces) but can never pay one twice.
func (s *LotteryService) DrawSolo(ctx context.Context) (*lottery.SoloDraw, error) {
	var result *lottery.SoloDraw
	err := s.locks.WithLock(lock.GameStateKey, func() error {
		st, err := s.states.Get(ctx)
		if err != nil {
			return err
		}
		res, err := s.engine.DrawSolo(st, s.now(), s.draw(st.Solo.Pot))
		if err != nil {
			return err
		}
		if err := s.states.Save(ctx, st); err != nil {
			return fmt.Errorf("failed to save game state: %w", err)
		}

		if res.Void {
			s.refundAll(ctx, res.Refunds, "solo round voided")
		} else {
			s.credit(ctx, res.WinnerID, res.Prize, "solo prize")
			detail := fmt.Sprintf("won %s of a %s pot (fee %s)", res.Prize, res.Pot, res.Fee)
			s.audit(ctx, res.WinnerID, model.ActionSoloDraw, detail)
		}
		result = res
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// CreateTeam opens a new team in the team round with the creator's opening
// bet as its first stake.
func (s *LotteryService) CreateTeam(ctx context.Context, userID int64, name string, bet money.Money) (string, error) {
	p, err := s.accounts.RequireActive(ctx, userID)
	if err != nil {
		return "", err
	}

	teamID := uuid.NewString()
	err = s.locks.WithLock(lock.GameStateKey, func() error {
		st, err := s.states.Get(ctx)
		if err != nil {
			return err
		}
		if err := s.engine.CreateTeam(st, teamID, name, p.UserID, p.Username, bet, s.now()); err != nil {
			return err
		}
		return s.escrowAndSave(ctx, st, p.UserID, bet)
	})
	if err != nil {
		return "", err
	}
	return teamID, nil
}

// JoinTeam stakes a bet on an existing team.
func (s *LotteryService) JoinTeam(ctx context.Context, userID int64, teamID string, bet money.Money) error {
	p, err := s.accounts.RequireActive(ctx, userID)
	if err != nil {
		return err
	}

	return s.locks.WithLock(lock.GameStateKey, func() error {
		st, err := s.states.Get(ctx)
		if err != nil {
			return err
		}
		if err := s.engine.JoinTeam(st, teamID, p.UserID, p.Username, bet, s.now()); err != nil {
			return err
		}
		return s.escrowAndSave(ctx, st, p.UserID, bet)
	})
}

// DrawTeam settles the team round, splitting the prize across the winning
// team pro rata by stake. Same persist-then-pay ordering as DrawSolo.
func (s *LotteryService) DrawTeam(ctx context.Context) (*lottery.TeamDraw, error) {
	var result *lottery.TeamDraw
	err := s.locks.WithLock(lock.GameStateKey, func() error {
		st, err := s.states.Get(ctx)
		if err != nil {
			return err
		}
		res, err := s.engine.DrawTeam(st, s.now(), s.draw(st.Team.Pot))
		if err != nil {
			return err
		}
		if err := s.states.Save(ctx, st); err != nil {
			return fmt.Errorf("failed to save game state: %w", err)
		}

		if res.Void {
			s.refundAll(ctx, res.Refunds, "team round voided")
		} else {
			for _, p := range res.Payouts {
				s.credit(ctx, p.UserID, p.Amount, "team prize share")
				detail := fmt.Sprintf("team %q won; share %s of prize %s", res.TeamName, p.Amount, res.Prize)
				s.audit(ctx, p.UserID, model.ActionTeamDraw, detail)
			}
		}
		result = res
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// escrowAndSave debits the stake and persists the mutated document,
// compensating the debit if the persist fails.
func (s *LotteryService) escrowAndSave(ctx context.Context, st *model.GameState, userID int64, bet money.Money) error {
	if _, err := s.players.Debit(ctx, userID, bet); err != nil {
		if errors.Is(err, repository.ErrInsufficientFunds) {
			return ErrInsufficientBalance
		}
		return fmt.Errorf("failed to escrow bet: %w", err)
	}
	if err := s.states.Save(ctx, st); err != nil {
		s.credit(ctx, userID, bet, "escrow compensation")
		return fmt.Errorf("failed to save game state: %w", err)
	}
	return nil
}

func (s *LotteryService) refundAll(ctx context.Context, refunds []lottery.Payout, reason string) {
	for _, r := range refunds {
		s.credit(ctx, r.UserID, r.Amount, reason)
	}
}

// credit pays out coins after the document is already persisted. Failures
// here cannot be rolled back, only reported.
func (s *LotteryService) credit(ctx context.Context, userID int64, amount money.Money, reason string) {
	if amount.IsZero() {
		return
	}
	if _, err := s.players.Credit(ctx, userID, amount); err != nil {
		log.Error().Err(err).
			Int64("user_id", userID).
			Str("amount", amount.String()).
			Str("reason", reason).
			Msg("failed to credit payout")
	}
}

func (s *LotteryService) audit(ctx context.Context, userID int64, action, detail string) {
	if err := s.logs.Append(ctx, userID, action, detail); err != nil {
		log.Warn().Err(err).Int64("user_id", userID).Str("action", action).Msg("failed to log game action")
	}
}
