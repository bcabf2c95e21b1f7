package lottery

import (
	"strconv"
	"time"

	"github.com/5kozarskabrigada/si-backend/internal/model"
	"github.com/5kozarskabrigada/si-backend/internal/money"
)

// SoloDraw is the outcome of a solo draw.
type SoloDraw struct {
	// Void is set when the round settled without a winner; Refunds then
	// lists every participant's exact stake and no fee is taken.
	Void    bool     `json:"void"`
	Refunds []Payout `json:"refunds,omitempty"`

	WinnerID   int64       `json:"winnerId,omitempty"`
	WinnerName string      `json:"winnerName,omitempty"`
	Pot        money.Money `json:"pot"`
	Prize      money.Money `json:"prize"`
	Fee        money.Money `json:"fee"`
}

// SoloPhase returns the solo round's lifecycle state at the given time.
func (e *Engine) SoloPhase(st *model.GameState, now time.Time) Phase {
	g := &st.Solo
	return phase(len(g.Participants) > 0, g.EndTime, now)
}

// JoinSolo stakes a bet into the solo round. The caller must already have
// escrowed the bet (debited the player) before persisting the document.
// Bets accumulate across repeated joins by the same player. Crossing the
// minimum-participant threshold arms the round deadline.
func (e *Engine) JoinSolo(st *model.GameState, userID int64, username string, bet money.Money, now time.Time) error {
	if !bet.IsPositive() {
		return ErrInvalidBet
	}

	g := &st.Solo
	ph := e.SoloPhase(st, now)
	if !e.joinOpen(ph, g.EndTime, now) {
		return ErrBettingClosed
	}

	found := false
	for i := range g.Participants {
		if g.Participants[i].UserID == userID {
			g.Participants[i].Bet = g.Participants[i].Bet.Add(bet)
			g.Participants[i].Username = username
			found = true
			break
		}
	}
	if !found {
		g.Participants = append(g.Participants, model.SoloParticipant{
			UserID:   userID,
			Username: username,
			Bet:      bet,
		})
	}
	g.Pot = g.Pot.Add(bet)

	if len(g.Participants) >= MinParticipants && g.EndTime == nil {
		end := now.Add(e.cfg.SoloRoundDuration)
		g.EndTime = &end
		g.Active = true
	}

	e.cacheSoloBet(st, userID)
	return nil
}

// WithdrawSolo refunds the caller's full accumulated stake and removes them
// from the round. Falling under the participant threshold disarms the
// deadline without forfeiting the remaining bets.
func (e *Engine) WithdrawSolo(st *model.GameState, userID int64, now time.Time) (money.Money, error) {
	g := &st.Solo
	if len(g.Participants) == 0 {
		return money.Zero(), ErrInactiveRound
	}

	idx := -1
	for i := range g.Participants {
		if g.Participants[i].UserID == userID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return money.Zero(), ErrNotParticipant
	}

	refund := g.Participants[idx].Bet
	g.Participants = append(g.Participants[:idx], g.Participants[idx+1:]...)
	g.Pot = g.Pot.Sub(refund)

	if len(g.Participants) < MinParticipants {
		g.EndTime = nil
		g.Active = false
	}

	e.cacheSoloBet(st, userID)
	return refund, nil
}

// DrawSolo settles the round at its deadline. drawValue must be a uniform
// random value in (0, pot]; the winner is the first participant, in stored
// order, whose cumulative stake reaches it. If the round lost its quorum
// before settling, it is void: every stake is refunded exactly and no fee
// is taken. Either way the sub-game resets to defaults.
func (e *Engine) DrawSolo(st *model.GameState, now time.Time, drawValue money.Money) (*SoloDraw, error) {
	g := &st.Solo
	if len(g.Participants) == 0 {
		return nil, ErrInactiveRound
	}
	if g.EndTime == nil || now.Before(*g.EndTime) {
		return nil, ErrRoundNotReady
	}

	if len(g.Participants) < MinParticipants {
		res := &SoloDraw{Void: true, Pot: g.Pot}
		for _, p := range g.Participants {
			res.Refunds = append(res.Refunds, Payout{
				UserID:   p.UserID,
				Username: p.Username,
				Amount:   p.Bet,
			})
		}
		e.resetSolo(st)
		return res, nil
	}

	winner := g.Participants[len(g.Participants)-1]
	cumulative := money.Zero()
	for _, p := range g.Participants {
		cumulative = cumulative.Add(p.Bet)
		if drawValue.Cmp(cumulative) <= 0 {
			winner = p
			break
		}
	}

	prize, fee := splitPot(g.Pot)
	res := &SoloDraw{
		WinnerID:   winner.UserID,
		WinnerName: winner.Username,
		Pot:        g.Pot,
		Prize:      prize,
		Fee:        fee,
	}

	pushWinner(st, model.WinnerRecord{
		Game:    "solo",
		UserID:  winner.UserID,
		Winner:  winner.Username,
		Prize:   prize,
		Fee:     fee,
		DrawnAt: now,
	})
	e.resetSolo(st)
	return res, nil
}

// resetSolo returns the solo sub-game to defaults and clears the
// convenience bet cache for it.
func (e *Engine) resetSolo(st *model.GameState) {
	st.Solo = model.SoloGame{Participants: []model.SoloParticipant{}}
	for key, bets := range st.YourBets {
		bets.Solo = money.Zero()
		st.YourBets[key] = bets
	}
}

// cacheSoloBet refreshes the best-effort per-caller stake cache.
func (e *Engine) cacheSoloBet(st *model.GameState, userID int64) {
	if st.YourBets == nil {
		st.YourBets = map[string]model.PlayerBets{}
	}
	key := strconv.FormatInt(userID, 10)
	bets := st.YourBets[key]
	bets.Solo = money.Zero()
	for _, p := range st.Solo.Participants {
		if p.UserID == userID {
			bets.Solo = p.Bet
			break
		}
	}
	st.YourBets[key] = bets
}
