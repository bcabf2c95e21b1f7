// Package catalog defines the static tiered upgrade catalog and its cost
// curve. Entries are immutable after process start.
package catalog

import (
	"github.com/5kozarskabrigada/si-backend/internal/money"
)

// BenefitTarget identifies which player rate an upgrade improves.
type BenefitTarget int

const (
	// TargetClick increases click_value (manual action increment).
	TargetClick BenefitTarget = iota
	// TargetAuto increases auto_click_rate (passive per-second increment).
	TargetAuto
	// TargetOffline increases offline_rate_per_hour (passive per-hour
	// increment while absent).
	TargetOffline
)

// CostMultiplier is the per-level cost growth factor:
// cost(level) = BaseCost × CostMultiplier^level.
var CostMultiplier = money.MustParse("1.215")

// Floor rates applied to newly created players.
var (
	FloorClickValue         = money.MustParse("0.000000001")
	FloorAutoClickRate      = money.Zero()
	FloorOfflineRatePerHour = money.Zero()
)

// Upgrade is one immutable catalog entry.
type Upgrade struct {
	ID       string
	Name     string
	Target   BenefitTarget
	Benefit  money.Money // increment applied to the target rate per level
	BaseCost money.Money // cost at level zero
}

// Cost returns the price of buying this upgrade at the given current level,
// truncated to canonical precision so the charged amount round-trips through
// storage unchanged.
func (u Upgrade) Cost(level int) money.Money {
	return u.BaseCost.Mul(CostMultiplier.PowInt(int64(level))).Truncate()
}

// upgrades holds every catalog entry keyed by id.
var upgrades = map[string]Upgrade{
	"click_tier_1": {
		ID:       "click_tier_1",
		Name:     "Reinforced Finger",
		Target:   TargetClick,
		Benefit:  money.MustParse("0.000000001"),
		BaseCost: money.MustParse("0.000000064"),
	},
	"click_tier_2": {
		ID:       "click_tier_2",
		Name:     "Titanium Finger",
		Target:   TargetClick,
		Benefit:  money.MustParse("0.000000010"),
		BaseCost: money.MustParse("0.000000640"),
	},
	"click_tier_3": {
		ID:       "click_tier_3",
		Name:     "Quantum Finger",
		Target:   TargetClick,
		Benefit:  money.MustParse("0.000000100"),
		BaseCost: money.MustParse("0.000006400"),
	},
	"auto_tier_1": {
		ID:       "auto_tier_1",
		Name:     "Clicker Bot",
		Target:   TargetAuto,
		Benefit:  money.MustParse("0.000000001"),
		BaseCost: money.MustParse("0.000000128"),
	},
	"auto_tier_2": {
		ID:       "auto_tier_2",
		Name:     "Clicker Swarm",
		Target:   TargetAuto,
		Benefit:  money.MustParse("0.000000010"),
		BaseCost: money.MustParse("0.000001280"),
	},
	"auto_tier_3": {
		ID:       "auto_tier_3",
		Name:     "Clicker Factory",
		Target:   TargetAuto,
		Benefit:  money.MustParse("0.000000100"),
		BaseCost: money.MustParse("0.000012800"),
	},
	"offline_tier_1": {
		ID:       "offline_tier_1",
		Name:     "Night Shift",
		Target:   TargetOffline,
		Benefit:  money.MustParse("0.000000360"),
		BaseCost: money.MustParse("0.000000256"),
	},
	"offline_tier_2": {
		ID:       "offline_tier_2",
		Name:     "Overseas Branch",
		Target:   TargetOffline,
		Benefit:  money.MustParse("0.000003600"),
		BaseCost: money.MustParse("0.000002560"),
	},
	"offline_tier_3": {
		ID:       "offline_tier_3",
		Name:     "Orbital Office",
		Target:   TargetOffline,
		Benefit:  money.MustParse("0.000036000"),
		BaseCost: money.MustParse("0.000025600"),
	},
}

// displayOrder fixes the order entries are presented in.
var displayOrder = []string{
	"click_tier_1", "click_tier_2", "click_tier_3",
	"auto_tier_1", "auto_tier_2", "auto_tier_3",
	"offline_tier_1", "offline_tier_2", "offline_tier_3",
}

// Get returns the catalog entry for an id.
func Get(id string) (Upgrade, bool) {
	u, ok := upgrades[id]
	return u, ok
}

// All returns every catalog entry in display order.
func All() []Upgrade {
	out := make([]Upgrade, 0, len(displayOrder))
	for _, id := range displayOrder {
		out = append(out, upgrades[id])
	}
	return out
}
