package lottery

import (
	"strconv"
	"time"

	"github.com/5kozarskabrigada/si-backend/internal/model"
	"github.com/5kozarskabrigada/si-backend/internal/money"
)

// TeamDraw is the outcome of a team draw.
type TeamDraw struct {
	// Void is set when the round settled without a winner; Refunds then
	// lists every member's exact stake and no fee is taken.
	Void    bool     `json:"void"`
	Refunds []Payout `json:"refunds,omitempty"`

	TeamID   string      `json:"teamId,omitempty"`
	TeamName string      `json:"teamName,omitempty"`
	Pot      money.Money `json:"pot"`
	Prize    money.Money `json:"prize"`
	Fee      money.Money `json:"fee"`
	// Payouts are the pro-rata member shares of the prize.
	Payouts []Payout `json:"payouts,omitempty"`
}

// TeamPhase returns the team round's lifecycle state at the given time.
func (e *Engine) TeamPhase(st *model.GameState, now time.Time) Phase {
	g := &st.Team
	return phase(len(g.Teams) > 0, g.EndTime, now)
}

// memberTeam returns the index of the team the player belongs to, or -1.
func memberTeam(g *model.TeamGame, userID int64) int {
	for i := range g.Teams {
		for _, m := range g.Teams[i].Members {
			if m.UserID == userID {
				return i
			}
		}
	}
	return -1
}

// CreateTeam seeds a new team with its creator as sole member staking the
// opening bet. Reaching the minimum team count arms the round deadline.
func (e *Engine) CreateTeam(st *model.GameState, teamID, name string, creatorID int64, creatorName string, bet money.Money, now time.Time) error {
	if !bet.IsPositive() {
		return ErrInvalidBet
	}

	g := &st.Team
	ph := e.TeamPhase(st, now)
	if !e.joinOpen(ph, g.EndTime, now) {
		return ErrBettingClosed
	}
	if memberTeam(g, creatorID) >= 0 {
		return ErrAlreadyInTeam
	}
	for i := range g.Teams {
		if g.Teams[i].Name == name {
			return ErrTeamNameTaken
		}
	}

	g.Teams = append(g.Teams, model.Team{
		ID:        teamID,
		Name:      name,
		CreatorID: creatorID,
		Members: []model.TeamMember{{
			UserID:   creatorID,
			Username: creatorName,
			Bet:      bet,
		}},
		TotalBet: bet,
	})
	g.Pot = g.Pot.Add(bet)

	if len(g.Teams) >= MinTeams && g.EndTime == nil {
		end := now.Add(e.cfg.TeamRoundDuration)
		g.EndTime = &end
		g.Active = true
	}

	e.cacheTeamBet(st, creatorID)
	return nil
}

// JoinTeam stakes a bet into an existing team. A player belongs to at most
// one team per round; repeated joins of the same team accumulate the bet.
func (e *Engine) JoinTeam(st *model.GameState, teamID string, userID int64, username string, bet money.Money, now time.Time) error {
	if !bet.IsPositive() {
		return ErrInvalidBet
	}

	g := &st.Team
	ph := e.TeamPhase(st, now)
	if ph == PhaseIdle {
		return ErrInactiveRound
	}
	if !e.joinOpen(ph, g.EndTime, now) {
		return ErrBettingClosed
	}

	idx := -1
	for i := range g.Teams {
		if g.Teams[i].ID == teamID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return ErrTeamNotFound
	}
	if existing := memberTeam(g, userID); existing >= 0 && existing != idx {
		return ErrAlreadyInTeam
	}

	team := &g.Teams[idx]
	found := false
	for i := range team.Members {
		if team.Members[i].UserID == userID {
			team.Members[i].Bet = team.Members[i].Bet.Add(bet)
			team.Members[i].Username = username
			found = true
			break
		}
	}
	if !found {
		team.Members = append(team.Members, model.TeamMember{
			UserID:   userID,
			Username: username,
			Bet:      bet,
		})
	}
	team.TotalBet = team.TotalBet.Add(bet)
	g.Pot = g.Pot.Add(bet)

	e.cacheTeamBet(st, userID)
	return nil
}

// DrawTeam settles the team round at its deadline. drawValue must be a
// uniform random value in (0, pot]; teams are weighted by their total bet.
// The prize is split pro-rata among the winning team's members by bet
// share. A round that lost its quorum, or whose winning team somehow has
// no members, is void: every member of every team is refunded exactly and
// no fee is taken.
func (e *Engine) DrawTeam(st *model.GameState, now time.Time, drawValue money.Money) (*TeamDraw, error) {
	g := &st.Team
	if len(g.Teams) == 0 {
		return nil, ErrInactiveRound
	}
	if g.EndTime == nil || now.Before(*g.EndTime) {
		return nil, ErrRoundNotReady
	}

	if len(g.Teams) < MinTeams {
		return e.voidTeamRound(st), nil
	}

	winner := &g.Teams[len(g.Teams)-1]
	cumulative := money.Zero()
	for i := range g.Teams {
		cumulative = cumulative.Add(g.Teams[i].TotalBet)
		if drawValue.Cmp(cumulative) <= 0 {
			winner = &g.Teams[i]
			break
		}
	}

	if len(winner.Members) == 0 || !winner.TotalBet.IsPositive() {
		return e.voidTeamRound(st), nil
	}

	prize, fee := splitPot(g.Pot)
	res := &TeamDraw{
		TeamID:   winner.ID,
		TeamName: winner.Name,
		Pot:      g.Pot,
		Prize:    prize,
		Fee:      fee,
	}
	for _, m := range winner.Members {
		share := prize.Mul(m.Bet).Div(winner.TotalBet)
		res.Payouts = append(res.Payouts, Payout{
			UserID:   m.UserID,
			Username: m.Username,
			Amount:   share,
		})
	}

	pushWinner(st, model.WinnerRecord{
		Game:     "team",
		Winner:   winner.Name,
		TeamName: winner.Name,
		Prize:    prize,
		Fee:      fee,
		DrawnAt:  now,
	})
	e.resetTeam(st)
	return res, nil
}

// voidTeamRound refunds every member of every team and resets the sub-game.
func (e *Engine) voidTeamRound(st *model.GameState) *TeamDraw {
	g := &st.Team
	res := &TeamDraw{Void: true, Pot: g.Pot}
	for _, team := range g.Teams {
		for _, m := range team.Members {
			res.Refunds = append(res.Refunds, Payout{
				UserID:   m.UserID,
				Username: m.Username,
				Amount:   m.Bet,
			})
		}
	}
	e.resetTeam(st)
	return res
}

// resetTeam returns the team sub-game to defaults and clears the
// convenience bet cache for it.
func (e *Engine) resetTeam(st *model.GameState) {
	st.Team = model.TeamGame{Teams: []model.Team{}}
	for key, bets := range st.YourBets {
		bets.Team = money.Zero()
		st.YourBets[key] = bets
	}
}

// cacheTeamBet refreshes the best-effort per-caller stake cache.
func (e *Engine) cacheTeamBet(st *model.GameState, userID int64) {
	if st.YourBets == nil {
		st.YourBets = map[string]model.PlayerBets{}
	}
	key := strconv.FormatInt(userID, 10)
	bets := st.YourBets[key]
	bets.Team = money.Zero()
	if idx := memberTeam(&st.Team, userID); idx >= 0 {
		for _, m := range st.Team.Teams[idx].Members {
			if m.UserID == userID {
				bets.Team = m.Bet
				break
			}
		}
	}
	st.YourBets[key] = bets
}
