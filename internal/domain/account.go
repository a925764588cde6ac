package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// Clients read cashBalance as a plain JSON number.
	decimal.MarshalJSONWithoutQuotes = true
}

// Starting balances for a freshly registered account
const (
	StartingCredits int64 = 100
	StartingPlays   int64 = 10
)

// HighScores maps game -> difficulty -> best score
type HighScores map[string]map[string]float64

// CompletedLevels maps game -> difficulty -> completed
type CompletedLevels map[string]map[string]bool

// OwnedSkins maps game -> skin ids the player owns
type OwnedSkins map[string][]string

// SelectedSkins maps game -> currently selected skin id
type SelectedSkins map[string]string

// Account is a player account keyed by its uppercased username
type Account struct {
	Username     string     `db:"username" json:"username"`
	PasswordHash string     `db:"password" json:"-"`
	IsAdmin      bool       `db:"is_admin" json:"isAdmin"`
	IPAddress    string     `db:"ip_address" json:"ipAddress,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"createdAt"`
	LastLoginAt  *time.Time `db:"last_login_at" json:"lastLoginAt,omitempty"`
	Stats        Stats      `json:"stats"`
}

// Stats is the persisted game state of an account
type Stats struct {
	Credits         int64           `db:"credits" json:"credits"`
	Plays           int64           `db:"plays" json:"plays"`
	CashBalance     decimal.Decimal `db:"cash_balance" json:"cashBalance"`
	HighScores      HighScores      `db:"high_scores" json:"highScores"`
	CompletedLevels CompletedLevels `db:"completed_levels" json:"completedLevels"`
	OwnedSkins      OwnedSkins      `db:"owned_skins" json:"ownedSkins"`
	SelectedSkins   SelectedSkins   `db:"selected_skins" json:"selectedSkins"`
	LastDailyClaim  int64           `db:"last_daily_claim" json:"lastDailyClaim"`
	SponsorVisited  bool            `db:"sponsor_visited" json:"sponsorVisited"`
	CompletedTasks  map[string]any  `db:"completed_tasks" json:"completedTasks"`
	UsedPromoCodes  map[string]any  `db:"used_promo_codes" json:"usedPromoCodes"`
}

// Balances is the numeric part of Stats
type Balances struct {
	Credits     int64           `json:"credits"`
	Plays       int64           `json:"plays"`
	CashBalance decimal.Decimal `json:"cashBalance"`
}

// AccountSummary is the reduced listing row
type AccountSummary struct {
	Username  string    `json:"username"`
	IsAdmin   bool      `json:"isAdmin"`
	CreatedAt time.Time `json:"createdAt"`
	IPAddress string    `json:"ipAddress"`
	Stats     Balances  `json:"stats"`
}

// Amounts is a bundle of the three currencies moved by transfers and grants
type Amounts struct {
	Credits int64           `json:"credits"`
	Plays   int64           `json:"plays"`
	Cash    decimal.Decimal `json:"cash"`
}

// IsZero reports whether nothing would be moved
func (a Amounts) IsZero() bool {
	return a.Credits == 0 && a.Plays == 0 && a.Cash.IsZero()
}

// StatsUpdate is a partial stats write. Nil fields keep the stored value,
// JSON documents are replaced wholesale when present.
type StatsUpdate struct {
	Credits         *int64           `json:"credits"`
	Plays           *int64           `json:"plays"`
	CashBalance     *decimal.Decimal `json:"cashBalance"`
	HighScores      *HighScores      `json:"highScores"`
	CompletedLevels *CompletedLevels `json:"completedLevels"`
	OwnedSkins      *OwnedSkins      `json:"ownedSkins"`
	SelectedSkins   *SelectedSkins   `json:"selectedSkins"`
	LastDailyClaim  *int64           `json:"lastDailyClaim"`
	SponsorVisited  *bool            `json:"sponsorVisited"`
	CompletedTasks  *map[string]any  `json:"completedTasks"`
	UsedPromoCodes  *map[string]any  `json:"usedPromoCodes"`
}

// BalanceOverride is an admin override of an account's balances
type BalanceOverride struct {
	Credits     *int64           `json:"credits"`
	Plays       *int64           `json:"plays"`
	CashBalance *decimal.Decimal `json:"cashBalance"`
}

var difficulties = []string{"easy", "medium", "hard", "impossible"}

// DefaultHighScores returns a fresh zeroed score document
func DefaultHighScores() HighScores {
	out := HighScores{}
	for _, game := range []string{"flappy", "geometry"} {
		scores := make(map[string]float64, len(difficulties))
		for _, d := range difficulties {
			scores[d] = 0
		}
		out[game] = scores
	}
	return out
}

// DefaultCompletedLevels returns a fresh document with nothing completed
func DefaultCompletedLevels() CompletedLevels {
	out := CompletedLevels{}
	for _, game := range []string{"flappy", "geometry"} {
		levels := make(map[string]bool, len(difficulties))
		for _, d := range difficulties {
			levels[d] = false
		}
		out[game] = levels
	}
	return out
}

func DefaultOwnedSkins() OwnedSkins {
	return OwnedSkins{
		"flappy":   {"default"},
		"geometry": {"default", "heart"},
	}
}

func DefaultSelectedSkins() SelectedSkins {
	return SelectedSkins{"flappy": "default", "geometry": "default"}
}

// NewStats returns the stats every new account starts with
func NewStats() Stats {
	return Stats{
		Credits:         StartingCredits,
		Plays:           StartingPlays,
		CashBalance:     decimal.Zero,
		HighScores:      DefaultHighScores(),
		CompletedLevels: DefaultCompletedLevels(),
		OwnedSkins:      DefaultOwnedSkins(),
		SelectedSkins:   DefaultSelectedSkins(),
		CompletedTasks:  map[string]any{},
		UsedPromoCodes:  map[string]any{},
	}
}

// FillDefaults replaces missing documents with their defaults, matching what
// clients expect from rows written before a column existed.
func (s *Stats) FillDefaults() {
	if s.HighScores == nil {
		s.HighScores = DefaultHighScores()
	}
	if s.CompletedLevels == nil {
		s.CompletedLevels = DefaultCompletedLevels()
	}
	if s.OwnedSkins == nil {
		s.OwnedSkins = DefaultOwnedSkins()
	}
	if s.SelectedSkins == nil {
		s.SelectedSkins = DefaultSelectedSkins()
	}
	if s.CompletedTasks == nil {
		s.CompletedTasks = map[string]any{}
	}
	if s.UsedPromoCodes == nil {
		s.UsedPromoCodes = map[string]any{}
	}
}

// Balances extracts the numeric balances
func (s Stats) Balances() Balances {
	return Balances{Credits: s.Credits, Plays: s.Plays, CashBalance: s.CashBalance}
}
