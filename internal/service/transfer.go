package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/5kozarskabrigada/si-backend/internal/model"
	"github.com/5kozarskabrigada/si-backend/internal/money"
	"github.com/5kozarskabrigada/si-backend/internal/pkg/lock"
	"github.com/5kozarskabrigada/si-backend/internal/repository"
)

// Transfer-related errors.
var (
	ErrSelfTransfer     = errors.New("cannot transfer to yourself")
	ErrInvalidAmount    = errors.New("amount must be positive")
	ErrReceiverNotFound = errors.New("receiver not found")
)

// TransferService moves coins between players.
type TransferService struct {
	players      *repository.PlayerRepository
	transactions *repository.TransactionRepository
	logs         *repository.ActionLogRepository
	locks        *lock.KeyedLock
}

// NewTransferService creates a new TransferService instance.
func NewTransferService(
	players *repository.PlayerRepository,
	transactions *repository.TransactionRepository,
	logs *repository.ActionLogRepository,
	locks *lock.KeyedLock,
) *TransferService {
	return &TransferService{
		players:      players,
		transactions: transactions,
		logs:         logs,
		locks:        locks,
	}
}

// Send transfers amount from the sender to the player identified by handle,
// which is a username with an optional leading "@". The debit and credit
// commit in one database transaction, so no partial transfer can survive a
// failure.
func (s *TransferService) Send(ctx context.Context, senderID int64, handle string, amount money.Money) (*model.Transaction, error) {
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}

	receiver, err := s.players.GetByUsername(ctx, strings.TrimPrefix(handle, "@"))
	if err != nil {
		if errors.Is(err, repository.ErrPlayerNotFound) {
			return nil, ErrReceiverNotFound
		}
		return nil, fmt.Errorf("failed to resolve receiver: %w", err)
	}
	if receiver.UserID == senderID {
		return nil, ErrSelfTransfer
	}
	if receiver.IsBanned {
		return nil, ErrReceiverNotFound
	}

	var tx *model.Transaction
	err = s.locks.WithTwo(lock.PlayerKey(senderID), lock.PlayerKey(receiver.UserID), func() error {
		sender, err := s.players.GetByID(ctx, senderID)
		if err != nil {
			if errors.Is(err, repository.ErrPlayerNotFound) {
				return ErrPlayerNotFound
			}
			return err
		}
		if sender.IsBanned {
			return ErrPlayerBanned
		}

		if err := s.players.Transfer(ctx, senderID, receiver.UserID, amount); err != nil {
			if errors.Is(err, repository.ErrInsufficientFunds) {
				return ErrInsufficientBalance
			}
			return err
		}

		tx, err = s.transactions.Create(ctx, senderID, receiver.UserID, amount, receiver.Username)
		if err != nil {
			// The transfer itself went through; the missing record
			// is a reporting gap, not a balance one.
			log.Warn().Err(err).
				Int64("sender_id", senderID).
				Int64("receiver_id", receiver.UserID).
				Msg("failed to record transfer")
			tx = &model.Transaction{
				SenderID:         senderID,
				ReceiverID:       receiver.UserID,
				Amount:           amount,
				ReceiverUsername: receiver.Username,
			}
		}

		detail := fmt.Sprintf("sent %s to @%s", amount, receiver.Username)
		if logErr := s.logs.Append(ctx, senderID, model.ActionTransfer, detail); logErr != nil {
			log.Warn().Err(logErr).Int64("user_id", senderID).Msg("failed to log transfer")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return tx, nil
}

// History returns the most recent transfers the player took part in, either
// side, newest first.
func (s *TransferService) History(ctx context.Context, userID int64, limit int) ([]*model.Transaction, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.transactions.GetByPlayer(ctx, userID, limit)
}
