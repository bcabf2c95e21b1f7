// Package repository provides data access layer implementations.
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/5kozarskabrigada/si-backend/internal/catalog"
	"github.com/5kozarskabrigada/si-backend/internal/model"
	"github.com/5kozarskabrigada/si-backend/internal/money"
)

// Common errors for repository operations.
var (
	ErrPlayerNotFound    = errors.New("player not found")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrUnknownColumn     = errors.New("unknown leaderboard column")
)

// playerColumns is the canonical column list for player scans.
const playerColumns = `
	user_id, username, first_name, last_name, language_code,
	profile_photo_url, balance, click_value, auto_click_rate,
	offline_rate_per_hour, upgrade_levels, is_banned, is_admin,
	last_updated, created_at`

// rowScanner abstracts pgx.Row and pgx.Rows for the shared scan helper.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanPlayer(row rowScanner) (*model.Player, error) {
	var p model.Player
	err := row.Scan(
		&p.UserID,
		&p.Username,
		&p.FirstName,
		&p.LastName,
		&p.LanguageCode,
		&p.ProfilePhotoURL,
		&p.Balance,
		&p.ClickValue,
		&p.AutoClickRate,
		&p.OfflineRatePerHour,
		&p.UpgradeLevels,
		&p.IsBanned,
		&p.IsAdmin,
		&p.LastUpdated,
		&p.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// PlayerRepository handles player data persistence.
type PlayerRepository struct {
	pool *pgxpool.Pool
}

// NewPlayerRepository creates a new PlayerRepository instance.
func NewPlayerRepository(pool *pgxpool.Pool) *PlayerRepository {
	return &PlayerRepository{pool: pool}
}

// Create creates a new player with zero balance and catalog floor rates.
func (r *PlayerRepository) Create(ctx context.Context, userID int64, username string) (*model.Player, error) {
	const query = `
		INSERT INTO players (
			user_id, username, balance, click_value, auto_click_rate,
			offline_rate_per_hour, upgrade_levels, last_updated, created_at
		)
		VALUES ($1, $2, 0, $3, $4, $5, '{}'::jsonb, NOW(), NOW())
		RETURNING ` + playerColumns

	p, err := scanPlayer(r.pool.QueryRow(ctx, query, userID, username,
		catalog.FloorClickValue, catalog.FloorAutoClickRate, catalog.FloorOfflineRatePerHour))
	if err != nil {
		return nil, fmt.Errorf("failed to create player: %w", err)
	}
	return p, nil
}

// GetByID retrieves a player by id.
// Returns ErrPlayerNotFound if the player does not exist.
func (r *PlayerRepository) GetByID(ctx context.Context, userID int64) (*model.Player, error) {
	const query = `SELECT` + playerColumns + ` FROM players WHERE user_id = $1`

	p, err := scanPlayer(r.pool.QueryRow(ctx, query, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPlayerNotFound
		}
		return nil, fmt.Errorf("failed to get player: %w", err)
	}
	return p, nil
}

// GetByUsername resolves a player by their handle.
func (r *PlayerRepository) GetByUsername(ctx context.Context, username string) (*model.Player, error) {
	const query = `SELECT` + playerColumns + ` FROM players WHERE username = $1`

	p, err := scanPlayer(r.pool.QueryRow(ctx, query, username))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPlayerNotFound
		}
		return nil, fmt.Errorf("failed to get player by username: %w", err)
	}
	return p, nil
}

// GetOrCreate retrieves a player by id, creating one if it doesn't exist.
func (r *PlayerRepository) GetOrCreate(ctx context.Context, userID int64, username string) (*model.Player, bool, error) {
	player, err := r.GetByID(ctx, userID)
	if err == nil {
		return player, false, nil
	}
	if !errors.Is(err, ErrPlayerNotFound) {
		return nil, false, err
	}

	player, err = r.Create(ctx, userID, username)
	if err != nil {
		// Handle race condition: another request might have created the player
		player, err = r.GetByID(ctx, userID)
		if err != nil {
			return nil, false, err
		}
		return player, false, nil
	}

	return player, true, nil
}

// UpsertProfile creates or refreshes the profile fields pushed by the
// chat front door. Economic fields are left untouched for existing rows.
func (r *PlayerRepository) UpsertProfile(ctx context.Context, profile *model.Profile) (*model.Player, error) {
	const query = `
		INSERT INTO players (
			user_id, username, first_name, last_name, language_code,
			profile_photo_url, balance, click_value, auto_click_rate,
			offline_rate_per_hour, upgrade_levels, last_updated, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, 0, $7, $8, $9, '{}'::jsonb, NOW(), NOW())
		ON CONFLICT (user_id) DO UPDATE SET
			username = EXCLUDED.username,
			first_name = EXCLUDED.first_name,
			last_name = EXCLUDED.last_name,
			language_code = EXCLUDED.language_code,
			profile_photo_url = EXCLUDED.profile_photo_url
		RETURNING ` + playerColumns

	p, err := scanPlayer(r.pool.QueryRow(ctx, query,
		profile.UserID, profile.Username, profile.FirstName, profile.LastName,
		profile.LanguageCode, profile.ProfilePhotoURL,
		catalog.FloorClickValue, catalog.FloorAutoClickRate, catalog.FloorOfflineRatePerHour))
	if err != nil {
		return nil, fmt.Errorf("failed to upsert profile: %w", err)
	}
	return p, nil
}

// Credit adds a positive amount to a player's balance.
func (r *PlayerRepository) Credit(ctx context.Context, userID int64, amount money.Money) (*model.Player, error) {
	const query = `
		UPDATE players
		SET balance = balance + $2
		WHERE user_id = $1
		RETURNING ` + playerColumns

	p, err := scanPlayer(r.pool.QueryRow(ctx, query, userID, amount))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPlayerNotFound
		}
		return nil, fmt.Errorf("failed to credit player: %w", err)
	}
	return p, nil
}

// Debit subtracts an amount from a player's balance. The update is
// conditional on the balance covering the amount, so a concurrent debit
// can never push the balance negative.
// Returns ErrInsufficientFunds when the guard rejects the write.
func (r *PlayerRepository) Debit(ctx context.Context, userID int64, amount money.Money) (*model.Player, error) {
	const query = `
		UPDATE players
		SET balance = balance - $2
		WHERE user_id = $1 AND balance >= $2
		RETURNING ` + playerColumns

	p, err := scanPlayer(r.pool.QueryRow(ctx, query, userID, amount))
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("failed to debit player: %w", err)
	}

	// Guard rejected: distinguish a missing row from an underfunded one.
	exists, exErr := r.Exists(ctx, userID)
	if exErr != nil {
		return nil, exErr
	}
	if !exists {
		return nil, ErrPlayerNotFound
	}
	return nil, ErrInsufficientFunds
}

// Transfer moves an amount between two players in one database
// transaction, so the debit and credit commit together or not at all.
// The debit carries the same balance guard as Debit.
func (r *PlayerRepository) Transfer(ctx context.Context, senderID, receiverID int64, amount money.Money) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transfer: %w", err)
	}
	defer tx.Rollback(ctx)

	const debit = `
		UPDATE players
		SET balance = balance - $2
		WHERE user_id = $1 AND balance >= $2`
	result, err := tx.Exec(ctx, debit, senderID, amount)
	if err != nil {
		return fmt.Errorf("failed to debit sender: %w", err)
	}
	if result.RowsAffected() == 0 {
		exists, exErr := r.Exists(ctx, senderID)
		if exErr != nil {
			return exErr
		}
		if !exists {
			return ErrPlayerNotFound
		}
		return ErrInsufficientFunds
	}

	const credit = `
		UPDATE players
		SET balance = balance + $2
		WHERE user_id = $1`
	result, err = tx.Exec(ctx, credit, receiverID, amount)
	if err != nil {
		return fmt.Errorf("failed to credit receiver: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrPlayerNotFound
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transfer: %w", err)
	}
	return nil
}

// SetBalance sets a player's balance to an exact value.
// Used by balance sync and admin operations.
func (r *PlayerRepository) SetBalance(ctx context.Context, userID int64, balance money.Money) (*model.Player, error) {
	const query = `
		UPDATE players
		SET balance = $2, last_updated = NOW()
		WHERE user_id = $1
		RETURNING ` + playerColumns

	p, err := scanPlayer(r.pool.QueryRow(ctx, query, userID, balance))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPlayerNotFound
		}
		return nil, fmt.Errorf("failed to set balance: %w", err)
	}
	return p, nil
}

// ApplySettlement credits accrued offline earnings and advances the
// settlement timestamp in one write.
func (r *PlayerRepository) ApplySettlement(ctx context.Context, userID int64, granted money.Money, now time.Time) (*model.Player, error) {
	const query = `
		UPDATE players
		SET balance = balance + $2, last_updated = $3
		WHERE user_id = $1
		RETURNING ` + playerColumns

	p, err := scanPlayer(r.pool.QueryRow(ctx, query, userID, granted, now))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPlayerNotFound
		}
		return nil, fmt.Errorf("failed to apply settlement: %w", err)
	}
	return p, nil
}

// ApplyUpgrade commits a purchase as a single conditional write: the cost
// is debited, the level recorded and the benefit applied to exactly one
// rate column, or nothing happens at all.
// Returns ErrInsufficientFunds when the balance guard rejects the write.
func (r *PlayerRepository) ApplyUpgrade(
	ctx context.Context,
	userID int64,
	upgradeID string,
	newLevel int,
	cost, clickInc, autoInc, offlineInc money.Money,
) (*model.Player, error) {
	const query = `
		UPDATE players
		SET balance = balance - $2,
		    click_value = click_value + $3,
		    auto_click_rate = auto_click_rate + $4,
		    offline_rate_per_hour = offline_rate_per_hour + $5,
		    upgrade_levels = jsonb_set(
		        COALESCE(upgrade_levels, '{}'::jsonb),
		        ARRAY[$6::text], to_jsonb($7::int)
		    )
		WHERE user_id = $1 AND balance >= $2
		RETURNING ` + playerColumns

	p, err := scanPlayer(r.pool.QueryRow(ctx, query,
		userID, cost, clickInc, autoInc, offlineInc, upgradeID, newLevel))
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("failed to apply upgrade: %w", err)
	}

	exists, exErr := r.Exists(ctx, userID)
	if exErr != nil {
		return nil, exErr
	}
	if !exists {
		return nil, ErrPlayerNotFound
	}
	return nil, ErrInsufficientFunds
}

// leaderboardColumns whitelists the sortable numeric columns.
var leaderboardColumns = map[string]string{
	"balance":               "balance",
	"click_value":           "click_value",
	"auto_click_rate":       "auto_click_rate",
	"offline_rate_per_hour": "offline_rate_per_hour",
}

// Top retrieves the top N players ordered by a whitelisted numeric column.
func (r *PlayerRepository) Top(ctx context.Context, column string, limit int) ([]*model.Player, error) {
	col, ok := leaderboardColumns[column]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownColumn, column)
	}

	query := `SELECT` + playerColumns + ` FROM players
		WHERE NOT is_banned
		ORDER BY ` + col + ` DESC
		LIMIT $1`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get top players: %w", err)
	}
	defer rows.Close()

	var players []*model.Player
	for rows.Next() {
		p, err := scanPlayer(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan player: %w", err)
		}
		players = append(players, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating players: %w", err)
	}
	return players, nil
}

// List retrieves players for the admin surface, newest first.
func (r *PlayerRepository) List(ctx context.Context, limit, offset int) ([]*model.Player, error) {
	const query = `SELECT` + playerColumns + ` FROM players
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2`

	rows, err := r.pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list players: %w", err)
	}
	defer rows.Close()

	var players []*model.Player
	for rows.Next() {
		p, err := scanPlayer(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan player: %w", err)
		}
		players = append(players, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating players: %w", err)
	}
	return players, nil
}

// SetBanned toggles the banned flag.
func (r *PlayerRepository) SetBanned(ctx context.Context, userID int64, banned bool) error {
	const query = `UPDATE players SET is_banned = $2 WHERE user_id = $1`

	result, err := r.pool.Exec(ctx, query, userID, banned)
	if err != nil {
		return fmt.Errorf("failed to set banned flag: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrPlayerNotFound
	}
	return nil
}

// Delete removes a player row. Administrative use only.
func (r *PlayerRepository) Delete(ctx context.Context, userID int64) error {
	const query = `DELETE FROM players WHERE user_id = $1`

	result, err := r.pool.Exec(ctx, query, userID)
	if err != nil {
		return fmt.Errorf("failed to delete player: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrPlayerNotFound
	}
	return nil
}

// Exists checks if a player with the given id exists.
func (r *PlayerRepository) Exists(ctx context.Context, userID int64) (bool, error) {
	const query = `SELECT EXISTS(SELECT 1 FROM players WHERE user_id = $1)`

	var exists bool
	if err := r.pool.QueryRow(ctx, query, userID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check player existence: %w", err)
	}
	return exists, nil
}
