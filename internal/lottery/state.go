// Package lottery implements the pooled wagering engine for the solo and
// team lotteries. The engine is a pure state machine over the shared
// game-state document: it validates transitions, mutates the document in
// memory and reports which player credits and refunds the caller must
// apply. It performs no I/O and no locking; callers serialize access.
package lottery

import (
	"errors"
	"time"

	"github.com/5kozarskabrigada/si-backend/internal/model"
	"github.com/5kozarskabrigada/si-backend/internal/money"
)

// Engine-level constants.
const (
	// MinParticipants is the threshold that arms a solo round's deadline.
	MinParticipants = 2
	// MinTeams is the team-game equivalent of MinParticipants.
	MinTeams = 2
	// RecentWinnersCap bounds the recent winners list.
	RecentWinnersCap = 10
)

// prizeRate is the share of the pot paid out; the remaining 1% is the
// house fee and is never credited to any player.
var prizeRate = money.MustParse("0.99")

// Engine errors.
var (
	ErrInvalidBet     = errors.New("bet must be positive")
	ErrBettingClosed  = errors.New("betting is closed for this round")
	ErrRoundNotReady  = errors.New("round deadline has not passed")
	ErrInactiveRound  = errors.New("no active round")
	ErrNotParticipant = errors.New("player has not joined this round")
	ErrAlreadyInTeam  = errors.New("player already belongs to a team this round")
	ErrTeamNotFound   = errors.New("team not found")
	ErrTeamNameTaken  = errors.New("team name already taken")
)

// Phase is the explicit round lifecycle state, derived from the document.
type Phase int

const (
	// PhaseIdle: no participants, nothing staked.
	PhaseIdle Phase = iota
	// PhaseCollecting: participants exist but the deadline is not armed.
	PhaseCollecting
	// PhaseActive: deadline armed and still in the future.
	PhaseActive
	// PhaseDrawable: deadline armed and passed; awaiting a draw call.
	PhaseDrawable
)

// String returns the phase name for logging.
func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseCollecting:
		return "collecting"
	case PhaseActive:
		return "active"
	case PhaseDrawable:
		return "drawable"
	default:
		return "unknown"
	}
}

// Config holds the engine's timing parameters.
type Config struct {
	SoloRoundDuration time.Duration
	TeamRoundDuration time.Duration
	// JoinCutoff is the window before the deadline during which joins
	// are rejected.
	JoinCutoff time.Duration
}

// Engine applies round transitions to the game-state document.
type Engine struct {
	cfg Config
}

// New creates an Engine with the given timing configuration.
func New(cfg Config) *Engine {
	return &Engine{cfg: cfg}
}

// Payout is one credit or refund owed to a player after a transition.
type Payout struct {
	UserID   int64       `json:"userId"`
	Username string      `json:"username"`
	Amount   money.Money `json:"amount"`
}

// phase derives the lifecycle state shared by both sub-games.
func phase(populated bool, endTime *time.Time, now time.Time) Phase {
	switch {
	case !populated:
		return PhaseIdle
	case endTime == nil:
		return PhaseCollecting
	case now.Before(*endTime):
		return PhaseActive
	default:
		return PhaseDrawable
	}
}

// joinOpen reports whether a join is allowed in the given phase, honoring
// the pre-close cutoff window.
func (e *Engine) joinOpen(ph Phase, endTime *time.Time, now time.Time) bool {
	if ph == PhaseDrawable {
		return false
	}
	if ph == PhaseActive && !now.Before(endTime.Add(-e.cfg.JoinCutoff)) {
		return false
	}
	return true
}

// pushWinner prepends a payout event, keeping the newest-first list bounded.
func pushWinner(st *model.GameState, rec model.WinnerRecord) {
	st.RecentWinners = append([]model.WinnerRecord{rec}, st.RecentWinners...)
	if len(st.RecentWinners) > RecentWinnersCap {
		st.RecentWinners = st.RecentWinners[:RecentWinnersCap]
	}
}

// splitPot divides a pot into prize and fee. The prize is exactly
// pot × 0.99 truncated to the canonical precision; the fee is the entire
// remainder, so prize + fee == pot and rounding always favors the house.
func splitPot(pot money.Money) (prize, fee money.Money) {
	prize = pot.Mul(prizeRate).Truncate()
	fee = pot.Sub(prize)
	return prize, fee
}
