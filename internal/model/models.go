// Package model defines the data models for the clicker game backend.
package model

import (
	"time"

	"github.com/5kozarskabrigada/si-backend/internal/money"
)

// Player represents one player's economic state and profile metadata.
type Player struct {
	UserID             int64          `db:"user_id" json:"userId"`
	Username           string         `db:"username" json:"username"`
	FirstName          *string        `db:"first_name" json:"firstName,omitempty"`
	LastName           *string        `db:"last_name" json:"lastName,omitempty"`
	LanguageCode       *string        `db:"language_code" json:"languageCode,omitempty"`
	ProfilePhotoURL    *string        `db:"profile_photo_url" json:"profilePhotoUrl,omitempty"`
	Balance            money.Money    `db:"balance" json:"score"`
	ClickValue         money.Money    `db:"click_value" json:"clickValue"`
	AutoClickRate      money.Money    `db:"auto_click_rate" json:"autoClickRate"`
	OfflineRatePerHour money.Money    `db:"offline_rate_per_hour" json:"offlineRatePerHour"`
	UpgradeLevels      map[string]int `db:"upgrade_levels" json:"upgradeLevels"`
	IsBanned           bool           `db:"is_banned" json:"isBanned"`
	IsAdmin            bool           `db:"is_admin" json:"isAdmin"`
	LastUpdated        time.Time      `db:"last_updated" json:"lastUpdated"`
	CreatedAt          time.Time      `db:"created_at" json:"createdAt"`
}

// Level returns the player's current level for an upgrade, zero if never bought.
func (p *Player) Level(upgradeID string) int {
	if p.UpgradeLevels == nil {
		return 0
	}
	return p.UpgradeLevels[upgradeID]
}

// Profile carries the front-door identity sync payload.
type Profile struct {
	UserID          int64   `json:"userId"`
	Username        string  `json:"username"`
	FirstName       *string `json:"firstName,omitempty"`
	LastName        *string `json:"lastName,omitempty"`
	LanguageCode    *string `json:"languageCode,omitempty"`
	ProfilePhotoURL *string `json:"profilePhotoUrl,omitempty"`
}

// Transaction is one immutable peer-to-peer transfer record.
type Transaction struct {
	ID               int64       `db:"id" json:"id"`
	SenderID         int64       `db:"sender_id" json:"senderId"`
	ReceiverID       int64       `db:"receiver_id" json:"receiverId"`
	Amount           money.Money `db:"amount" json:"amount"`
	ReceiverUsername string      `db:"receiver_username" json:"receiverUsername"`
	CreatedAt        time.Time   `db:"created_at" json:"createdAt"`
}

// ActionLog is one append-only audit trail entry.
type ActionLog struct {
	ID        int64     `db:"id" json:"id"`
	UserID    int64     `db:"user_id" json:"userId"`
	Action    string    `db:"action" json:"action"`
	Detail    string    `db:"detail" json:"detail"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// Audit actions recorded in the action log.
const (
	ActionOfflineGrant = "offline_grant"
	ActionUpgrade      = "upgrade_purchase"
	ActionTransfer     = "transfer"
	ActionSoloDraw     = "solo_draw"
	ActionTeamDraw     = "team_draw"
	ActionAdminCoins   = "admin_add_coins"
	ActionAdminBan     = "admin_ban"
	ActionAdminUnban   = "admin_unban"
	ActionAdminAdjust  = "admin_adjust"
	ActionAdminDelete  = "admin_delete"
)

// SoloParticipant is one player's stake in the solo lottery round.
// Bets accumulate across repeated joins within the same round.
type SoloParticipant struct {
	UserID   int64       `json:"userId"`
	Username string      `json:"username"`
	Bet      money.Money `json:"bet"`
}

// SoloGame is the solo lottery sub-document.
// Invariant: Pot equals the sum of all participant bets at rest.
type SoloGame struct {
	Pot          money.Money       `json:"pot"`
	Participants []SoloParticipant `json:"participants"`
	EndTime      *time.Time        `json:"endTime,omitempty"`
	Active       bool              `json:"active"`
}

// TeamMember is one player's stake inside a lottery team.
type TeamMember struct {
	UserID   int64       `json:"userId"`
	Username string      `json:"username"`
	Bet      money.Money `json:"bet"`
}

// Team is one named team in the team lottery.
// Invariant: TotalBet equals the sum of its members' bets.
type Team struct {
	ID        string       `json:"id"`
	Name      string       `json:"name"`
	CreatorID int64        `json:"creatorId"`
	Members   []TeamMember `json:"members"`
	TotalBet  money.Money  `json:"totalBet"`
}

// TeamGame is the team lottery sub-document.
// Invariant: Pot equals the sum of all teams' TotalBet.
type TeamGame struct {
	Pot     money.Money `json:"pot"`
	Teams   []Team      `json:"teams"`
	EndTime *time.Time  `json:"endTime,omitempty"`
	Active  bool        `json:"active"`
}

// WinnerRecord is one past payout event kept in the bounded recent list.
type WinnerRecord struct {
	Game     string      `json:"game"` // "solo" or "team"
	UserID   int64       `json:"userId,omitempty"`
	Winner   string      `json:"winner"`
	TeamName string      `json:"teamName,omitempty"`
	Prize    money.Money `json:"prize"`
	Fee      money.Money `json:"fee"`
	DrawnAt  time.Time   `json:"drawnAt"`
}

// PlayerBets is the best-effort per-caller cache of outstanding stakes.
type PlayerBets struct {
	Solo money.Money `json:"solo"`
	Team money.Money `json:"team"`
}

// GameState is the single shared game-state document. It is stored as one
// row keyed by a constant sentinel id and every mutation is serialized
// through a single writer.
type GameState struct {
	Solo          SoloGame              `json:"solo"`
	Team          TeamGame              `json:"team"`
	RecentWinners []WinnerRecord        `json:"recentWinners"`
	YourBets      map[string]PlayerBets `json:"yourBets"`
}

// NewGameState returns a document with zeroed defaults, the shape created
// on first read.
func NewGameState() *GameState {
	return &GameState{
		Solo:          SoloGame{Participants: []SoloParticipant{}},
		Team:          TeamGame{Teams: []Team{}},
		RecentWinners: []WinnerRecord{},
		YourBets:      map[string]PlayerBets{},
	}
}
