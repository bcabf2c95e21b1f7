// Package repository provides data access layer implementations.
// Tests use testcontainers-go to spin up a PostgreSQL container.
package repository

import (
	"context"
	"os/exec"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/5kozarskabrigada/si-backend/internal/model"
	"github.com/5kozarskabrigada/si-backend/internal/money"
)

// checkDockerAvailable checks if Docker is available and running
func checkDockerAvailable() bool {
	cmd := exec.Command("docker", "info")
	err := cmd.Run()
	return err == nil
}

// setupTestDB creates a PostgreSQL container and returns a connection pool.
// Skips the test if Docker is not available.
func setupTestDB(t *testing.T) (*pgxpool.Pool, func()) {
	if !checkDockerAvailable() {
		t.Skip("Docker is not available, skipping integration test")
	}

	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err)

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)

	require.NoError(t, applySchema(ctx, pool))

	cleanup := func() {
		pool.Close()
		_ = pgContainer.Terminate(ctx)
	}

	return pool, cleanup
}

// applySchema creates the tables the way the server's migrations do.
func applySchema(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS players (
			user_id BIGINT PRIMARY KEY,
			username VARCHAR(255) NOT NULL,
			first_name VARCHAR(255),
			last_name VARCHAR(255),
			language_code VARCHAR(16),
			profile_photo_url TEXT,
			balance NUMERIC(30,9) NOT NULL DEFAULT 0,
			click_value NUMERIC(30,9) NOT NULL DEFAULT 0.000000001,
			auto_click_rate NUMERIC(30,9) NOT NULL DEFAULT 0,
			offline_rate_per_hour NUMERIC(30,9) NOT NULL DEFAULT 0,
			upgrade_levels JSONB NOT NULL DEFAULT '{}'::jsonb,
			is_banned BOOLEAN NOT NULL DEFAULT FALSE,
			is_admin BOOLEAN NOT NULL DEFAULT FALSE,
			last_updated TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE UNIQUE INDEX IF NOT EXISTS idx_players_username ON players(username);
	`)
	if err != nil {
		return err
	}

	_, err = pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS transactions (
			id BIGSERIAL PRIMARY KEY,
			sender_id BIGINT NOT NULL,
			receiver_id BIGINT NOT NULL,
			amount NUMERIC(30,9) NOT NULL,
			receiver_username VARCHAR(255) NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
	`)
	if err != nil {
		return err
	}

	_, err = pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS game_state (
			id VARCHAR(32) PRIMARY KEY,
			doc JSONB NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
	`)
	if err != nil {
		return err
	}

	_, err = pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS action_logs (
			id BIGSERIAL PRIMARY KEY,
			user_id BIGINT NOT NULL,
			action VARCHAR(50) NOT NULL,
			detail TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
	`)
	return err
}

// ============================================================================
// PlayerRepository Tests
// ============================================================================

func TestPlayerRepository_Create(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewPlayerRepository(pool)
	ctx := context.Background()

	player, err := repo.Create(ctx, 12345, "testuser")
	require.NoError(t, err)
	assert.Equal(t, int64(12345), player.UserID)
	assert.Equal(t, "testuser", player.Username)
	assert.True(t, player.Balance.IsZero())
	assert.Equal(t, "0.000000001", player.ClickValue.String())
	assert.True(t, player.AutoClickRate.IsZero())
	assert.True(t, player.OfflineRatePerHour.IsZero())
	assert.Empty(t, player.UpgradeLevels)
	assert.False(t, player.IsBanned)
}

func TestPlayerRepository_GetOrCreate(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewPlayerRepository(pool)
	ctx := context.Background()

	created, isNew, err := repo.GetOrCreate(ctx, 100, "alice")
	require.NoError(t, err)
	assert.True(t, isNew)

	again, isNew, err := repo.GetOrCreate(ctx, 100, "renamed")
	require.NoError(t, err)
	assert.False(t, isNew)
	assert.Equal(t, created.UserID, again.UserID)
	// Existing rows keep their stored handle.
	assert.Equal(t, "alice", again.Username)
}

func TestPlayerRepository_GetByUsername(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewPlayerRepository(pool)
	ctx := context.Background()

	_, err := repo.Create(ctx, 200, "bob")
	require.NoError(t, err)

	found, err := repo.GetByUsername(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, int64(200), found.UserID)

	_, err = repo.GetByUsername(ctx, "nobody")
	assert.ErrorIs(t, err, ErrPlayerNotFound)
}

func TestPlayerRepository_CreditAndDebit(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewPlayerRepository(pool)
	ctx := context.Background()

	_, err := repo.Create(ctx, 300, "carol")
	require.NoError(t, err)

	p, err := repo.Credit(ctx, 300, money.MustParse("0.000000100"))
	require.NoError(t, err)
	assert.Equal(t, "0.000000100", p.Balance.String())

	p, err = repo.Debit(ctx, 300, money.MustParse("0.000000064"))
	require.NoError(t, err)
	assert.Equal(t, "0.000000036", p.Balance.String())
}

func TestPlayerRepository_DebitGuardsBalance(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewPlayerRepository(pool)
	ctx := context.Background()

	_, err := repo.Create(ctx, 301, "dave")
	require.NoError(t, err)
	_, err = repo.Credit(ctx, 301, money.MustParse("0.000000010"))
	require.NoError(t, err)

	// Overdraw is rejected and leaves the balance untouched.
	_, err = repo.Debit(ctx, 301, money.MustParse("0.000000011"))
	assert.ErrorIs(t, err, ErrInsufficientFunds)

	p, err := repo.GetByID(ctx, 301)
	require.NoError(t, err)
	assert.Equal(t, "0.000000010", p.Balance.String())

	// Missing player is a different failure than a short balance.
	_, err = repo.Debit(ctx, 999, money.MustParse("0.000000001"))
	assert.ErrorIs(t, err, ErrPlayerNotFound)
}

func TestPlayerRepository_Transfer(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewPlayerRepository(pool)
	ctx := context.Background()

	_, err := repo.Create(ctx, 310, "sender")
	require.NoError(t, err)
	_, err = repo.Create(ctx, 311, "receiver")
	require.NoError(t, err)
	_, err = repo.Credit(ctx, 310, money.MustParse("1.000000000"))
	require.NoError(t, err)

	require.NoError(t, repo.Transfer(ctx, 310, 311, money.MustParse("0.250000000")))

	sender, err := repo.GetByID(ctx, 310)
	require.NoError(t, err)
	receiver, err := repo.GetByID(ctx, 311)
	require.NoError(t, err)
	assert.Equal(t, "0.750000000", sender.Balance.String())
	assert.Equal(t, "0.250000000", receiver.Balance.String())

	// Overdraw fails whole and moves nothing.
	err = repo.Transfer(ctx, 310, 311, money.MustParse("0.750000001"))
	assert.ErrorIs(t, err, ErrInsufficientFunds)

	// A missing receiver rolls the debit back.
	err = repo.Transfer(ctx, 310, 999, money.MustParse("0.100000000"))
	assert.ErrorIs(t, err, ErrPlayerNotFound)
	sender, err = repo.GetByID(ctx, 310)
	require.NoError(t, err)
	assert.Equal(t, "0.750000000", sender.Balance.String())
}

func TestPlayerRepository_ApplyUpgrade(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewPlayerRepository(pool)
	ctx := context.Background()

	_, err := repo.Create(ctx, 400, "erin")
	require.NoError(t, err)
	_, err = repo.Credit(ctx, 400, money.MustParse("0.000000100"))
	require.NoError(t, err)

	p, err := repo.ApplyUpgrade(ctx, 400, "click_tier_1", 1,
		money.MustParse("0.000000064"), // cost
		money.MustParse("0.000000001"), // click increment
		money.Zero(), money.Zero())
	require.NoError(t, err)

	assert.Equal(t, "0.000000036", p.Balance.String())
	assert.Equal(t, "0.000000002", p.ClickValue.String())
	assert.Equal(t, 1, p.UpgradeLevels["click_tier_1"])

	// A second purchase the balance cannot cover changes nothing.
	_, err = repo.ApplyUpgrade(ctx, 400, "click_tier_1", 2,
		money.MustParse("0.000000077"),
		money.MustParse("0.000000001"),
		money.Zero(), money.Zero())
	assert.ErrorIs(t, err, ErrInsufficientFunds)

	p, err = repo.GetByID(ctx, 400)
	require.NoError(t, err)
	assert.Equal(t, "0.000000036", p.Balance.String())
	assert.Equal(t, 1, p.UpgradeLevels["click_tier_1"])
}

func TestPlayerRepository_ApplySettlement(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewPlayerRepository(pool)
	ctx := context.Background()

	_, err := repo.Create(ctx, 500, "frank")
	require.NoError(t, err)

	now := time.Now().UTC()
	p, err := repo.ApplySettlement(ctx, 500, money.MustParse("0.000001000"), now)
	require.NoError(t, err)
	assert.Equal(t, "0.000001000", p.Balance.String())
	assert.WithinDuration(t, now, p.LastUpdated, time.Second)
}

func TestPlayerRepository_TopExcludesBanned(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewPlayerRepository(pool)
	ctx := context.Background()

	for i, name := range []string{"p1", "p2", "p3"} {
		id := int64(600 + i)
		_, err := repo.Create(ctx, id, name)
		require.NoError(t, err)
		_, err = repo.Credit(ctx, id, money.FromInt64(int64(i+1)))
		require.NoError(t, err)
	}
	require.NoError(t, repo.SetBanned(ctx, 602, true))

	top, err := repo.Top(ctx, "balance", 10)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, int64(601), top[0].UserID)
	assert.Equal(t, int64(600), top[1].UserID)

	_, err = repo.Top(ctx, "created_at; DROP TABLE players", 10)
	assert.ErrorIs(t, err, ErrUnknownColumn)
}

func TestPlayerRepository_UpsertProfile(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewPlayerRepository(pool)
	ctx := context.Background()

	first := "Grace"
	p, err := repo.UpsertProfile(ctx, &model.Profile{
		UserID:    700,
		Username:  "grace",
		FirstName: &first,
	})
	require.NoError(t, err)
	require.NotNil(t, p.FirstName)
	assert.Equal(t, "Grace", *p.FirstName)

	// Profile refresh must not clobber economic fields.
	_, err = repo.Credit(ctx, 700, money.MustParse("1.000000000"))
	require.NoError(t, err)

	renamed := "Gracie"
	p, err = repo.UpsertProfile(ctx, &model.Profile{
		UserID:    700,
		Username:  "grace",
		FirstName: &renamed,
	})
	require.NoError(t, err)
	assert.Equal(t, "Gracie", *p.FirstName)
	assert.Equal(t, "1.000000000", p.Balance.String())
}

// ============================================================================
// TransactionRepository Tests
// ============================================================================

func TestTransactionRepository_CreateAndList(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	players := NewPlayerRepository(pool)
	txs := NewTransactionRepository(pool)
	ctx := context.Background()

	_, err := players.Create(ctx, 800, "sender")
	require.NoError(t, err)
	_, err = players.Create(ctx, 801, "receiver")
	require.NoError(t, err)

	tx, err := txs.Create(ctx, 800, 801, money.MustParse("0.000000500"), "receiver")
	require.NoError(t, err)
	assert.NotZero(t, tx.ID)
	assert.Equal(t, "0.000000500", tx.Amount.String())

	// Both sides see the transfer.
	for _, id := range []int64{800, 801} {
		list, err := txs.GetByPlayer(ctx, id, 10)
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, tx.ID, list[0].ID)
	}

	list, err := txs.GetByPlayer(ctx, 802, 10)
	require.NoError(t, err)
	assert.Empty(t, list)
}

// ============================================================================
// GameStateRepository Tests
// ============================================================================

func TestGameStateRepository_EmptyStateIsUsable(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewGameStateRepository(pool)
	ctx := context.Background()

	st, err := repo.Get(ctx)
	require.NoError(t, err)
	assert.True(t, st.Solo.Pot.IsZero())
	assert.Empty(t, st.Solo.Participants)
	assert.Empty(t, st.Team.Teams)
	assert.NotNil(t, st.YourBets)
}

func TestGameStateRepository_RoundTrip(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewGameStateRepository(pool)
	ctx := context.Background()

	st := model.NewGameState()
	end := time.Now().UTC().Add(2 * time.Minute).Truncate(time.Millisecond)
	st.Solo.Pot = money.MustParse("4.000000000")
	st.Solo.Active = true
	st.Solo.EndTime = &end
	st.Solo.Participants = []model.SoloParticipant{
		{UserID: 1, Username: "alice", Bet: money.MustParse("1.000000000")},
		{UserID: 2, Username: "bob", Bet: money.MustParse("3.000000000")},
	}

	require.NoError(t, repo.Save(ctx, st))

	got, err := repo.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "4.000000000", got.Solo.Pot.String())
	require.Len(t, got.Solo.Participants, 2)
	assert.Equal(t, "3.000000000", got.Solo.Participants[1].Bet.String())
	require.NotNil(t, got.Solo.EndTime)
	assert.WithinDuration(t, end, *got.Solo.EndTime, time.Second)

	// Saving again overwrites the single document.
	st.Solo.Pot = money.MustParse("5.000000000")
	require.NoError(t, repo.Save(ctx, st))
	got, err = repo.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "5.000000000", got.Solo.Pot.String())
}

// ============================================================================
// ActionLogRepository Tests
// ============================================================================

func TestActionLogRepository_AppendAndList(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewActionLogRepository(pool)
	ctx := context.Background()

	require.NoError(t, repo.Append(ctx, 1, model.ActionUpgrade, "bought click_tier_1 level 1"))
	require.NoError(t, repo.Append(ctx, 2, model.ActionTransfer, "sent coins"))

	logs, err := repo.List(ctx, 10)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	// Newest first.
	assert.Equal(t, model.ActionTransfer, logs[0].Action)
	assert.Equal(t, model.ActionUpgrade, logs[1].Action)
}
