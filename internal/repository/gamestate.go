package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/5kozarskabrigada/si-backend/internal/model"
)

// gameStateID is the constant sentinel key of the single game-state row.
const gameStateID = "global"

// GameStateRepository stores the shared game-state document as one JSONB
// row. All callers must serialize mutations through the game-state lock;
// the repository itself only persists whatever document it is handed.
type GameStateRepository struct {
	pool *pgxpool.Pool
}

// NewGameStateRepository creates a new GameStateRepository instance.
func NewGameStateRepository(pool *pgxpool.Pool) *GameStateRepository {
	return &GameStateRepository{pool: pool}
}

// Get loads the document, returning a zeroed default if the row has never
// been written.
func (r *GameStateRepository) Get(ctx context.Context) (*model.GameState, error) {
	const query = `SELECT doc FROM game_state WHERE id = $1`

	var raw []byte
	err := r.pool.QueryRow(ctx, query, gameStateID).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.NewGameState(), nil
		}
		return nil, fmt.Errorf("failed to get game state: %w", err)
	}

	state := model.NewGameState()
	if err := json.Unmarshal(raw, state); err != nil {
		return nil, fmt.Errorf("failed to decode game state: %w", err)
	}
	return state, nil
}

// Save upserts the document under the sentinel key.
func (r *GameStateRepository) Save(ctx context.Context, state *model.GameState) error {
	const query = `
		INSERT INTO game_state (id, doc, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (id) DO UPDATE SET doc = EXCLUDED.doc, updated_at = NOW()
	`

	raw, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to encode game state: %w", err)
	}

	if _, err := r.pool.Exec(ctx, query, gameStateID, raw); err != nil {
		return fmt.Errorf("failed to save game state: %w", err)
	}
	return nil
}
