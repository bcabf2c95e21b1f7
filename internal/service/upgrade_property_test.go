package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/5kozarskabrigada/si-backend/internal/catalog"
	"github.com/5kozarskabrigada/si-backend/internal/money"
)

// simulatePurchase mirrors the balance check and debit in
// UpgradeService.Purchase without database dependencies.
func simulatePurchase(balance money.Money, upgrade catalog.Upgrade, level int) (money.Money, error) {
	cost := upgrade.Cost(level)
	if balance.LessThan(cost) {
		return balance, ErrInsufficientBalance
	}
	return balance.Sub(cost), nil
}

func TestPurchaseDebitsExactCost(t *testing.T) {
	upgrade, ok := catalog.Get("click_tier_1")
	require.True(t, ok)

	balance := money.MustParse("0.000000100")
	after, err := simulatePurchase(balance, upgrade, 0)

	require.NoError(t, err)
	assert.Equal(t, "0.000000036", after.String())
}

func TestPurchaseRejectsUnaffordable(t *testing.T) {
	upgrade, ok := catalog.Get("click_tier_1")
	require.True(t, ok)

	short := upgrade.Cost(0).Sub(money.MustParse("0.000000001"))
	after, err := simulatePurchase(short, upgrade, 0)

	assert.ErrorIs(t, err, ErrInsufficientBalance)
	assert.True(t, after.Equal(short), "failed purchase must not move coins")
}

func TestRepeatedPurchasesFollowCostCurve(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		upgrades := catalog.All()
		upgrade := upgrades[rapid.IntRange(0, len(upgrades)-1).Draw(t, "upgrade")]
		levels := rapid.IntRange(1, 20).Draw(t, "levels")

		// Fund exactly the sum of the curve so the last purchase lands
		// on a zero balance.
		total := money.Zero()
		for lvl := 0; lvl < levels; lvl++ {
			total = total.Add(upgrade.Cost(lvl))
		}

		balance := total
		for lvl := 0; lvl < levels; lvl++ {
			next, err := simulatePurchase(balance, upgrade, lvl)
			if err != nil {
				t.Fatalf("level %d should be affordable with %s left: %v", lvl, balance, err)
			}
			if !next.LessThan(balance) {
				t.Fatalf("purchase at level %d did not reduce balance", lvl)
			}
			balance = next
		}
		if !balance.IsZero() {
			t.Fatalf("expected exhausted balance, have %s", balance)
		}

		// One more level is out of reach.
		_, err := simulatePurchase(balance, upgrade, levels)
		if err != ErrInsufficientBalance {
			t.Fatalf("expected ErrInsufficientBalance, got %v", err)
		}
	})
}
