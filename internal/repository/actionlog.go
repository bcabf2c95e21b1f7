package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/5kozarskabrigada/si-backend/internal/model"
)

// ActionLogRepository handles the append-only audit trail.
type ActionLogRepository struct {
	pool *pgxpool.Pool
}

// NewActionLogRepository creates a new ActionLogRepository instance.
func NewActionLogRepository(pool *pgxpool.Pool) *ActionLogRepository {
	return &ActionLogRepository{pool: pool}
}

// Append writes one audit entry.
func (r *ActionLogRepository) Append(ctx context.Context, userID int64, action, detail string) error {
	const query = `
		INSERT INTO action_logs (user_id, action, detail, created_at)
		VALUES ($1, $2, $3, NOW())
	`

	if _, err := r.pool.Exec(ctx, query, userID, action, detail); err != nil {
		return fmt.Errorf("failed to append action log: %w", err)
	}
	return nil
}

// List retrieves the most recent audit entries, newest first.
func (r *ActionLogRepository) List(ctx context.Context, limit int) ([]*model.ActionLog, error) {
	const query = `
		SELECT id, user_id, action, detail, created_at
		FROM action_logs
		ORDER BY created_at DESC, id DESC
		LIMIT $1
	`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list action logs: %w", err)
	}
	defer rows.Close()

	var logs []*model.ActionLog
	for rows.Next() {
		var entry model.ActionLog
		err := rows.Scan(
			&entry.ID,
			&entry.UserID,
			&entry.Action,
			&entry.Detail,
			&entry.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan action log: %w", err)
		}
		logs = append(logs, &entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating action logs: %w", err)
	}

	return logs, nil
}
