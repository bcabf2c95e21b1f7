package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/5kozarskabrigada/si-backend/internal/model"
	"github.com/5kozarskabrigada/si-backend/internal/money"
)

// TransactionRepository handles the append-only transfer ledger.
type TransactionRepository struct {
	pool *pgxpool.Pool
}

// NewTransactionRepository creates a new TransactionRepository instance.
func NewTransactionRepository(pool *pgxpool.Pool) *TransactionRepository {
	return &TransactionRepository{pool: pool}
}

// Create appends one transfer record. Records are immutable once written.
func (r *TransactionRepository) Create(ctx context.Context, senderID, receiverID int64, amount money.Money, receiverUsername string) (*model.Transaction, error) {
	const query = `
		INSERT INTO transactions (sender_id, receiver_id, amount, receiver_username, created_at)
		VALUES ($1, $2, $3, $4, NOW())
		RETURNING id, sender_id, receiver_id, amount, receiver_username, created_at
	`

	var tx model.Transaction
	err := r.pool.QueryRow(ctx, query, senderID, receiverID, amount, receiverUsername).Scan(
		&tx.ID,
		&tx.SenderID,
		&tx.ReceiverID,
		&tx.Amount,
		&tx.ReceiverUsername,
		&tx.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create transaction: %w", err)
	}

	return &tx, nil
}

// GetByPlayer retrieves transfers a player sent or received, newest first.
func (r *TransactionRepository) GetByPlayer(ctx context.Context, userID int64, limit int) ([]*model.Transaction, error) {
	const query = `
		SELECT id, sender_id, receiver_id, amount, receiver_username, created_at
		FROM transactions
		WHERE sender_id = $1 OR receiver_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get transactions: %w", err)
	}
	defer rows.Close()

	var transactions []*model.Transaction
	for rows.Next() {
		var tx model.Transaction
		err := rows.Scan(
			&tx.ID,
			&tx.SenderID,
			&tx.ReceiverID,
			&tx.Amount,
			&tx.ReceiverUsername,
			&tx.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		transactions = append(transactions, &tx)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transactions: %w", err)
	}

	return transactions, nil
}
