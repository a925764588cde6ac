package domain

import (
	"github.com/shopspring/decimal"
)

// Bounds on the rolling lists kept in the settings document
const (
	MaxBroadcasts   = 20
	MaxErrorReports = 100
)

const DefaultSponsorLink = "https://omg10.com/4/10607605"

// Promo code event types
const (
	PromoEventNone  = "none"
	PromoEventEmoji = "emoji"
	PromoEventText  = "text"
)

// PromoCode is a redeemable reward definition. MaxUses 0 means unlimited.
type PromoCode struct {
	Credits   int64           `json:"credits"`
	Plays     int64           `json:"plays"`
	Cash      decimal.Decimal `json:"cash"`
	EventType string          `json:"event_type"`
	Emoji     string          `json:"emoji,omitempty"`
	Message   string          `json:"message,omitempty"`
	MaxUses   int64           `json:"max_uses"`
}

// Reward returns the currency part of the code
func (p PromoCode) Reward() Amounts {
	return Amounts{Credits: p.Credits, Plays: p.Plays, Cash: p.Cash}
}

// Broadcast is an admin message shown to every player
type Broadcast struct {
	ID        int64  `json:"id"`
	Message   string `json:"message"`
	Type      string `json:"type"`
	Timestamp int64  `json:"timestamp"`
}

// CustomTask is an admin-defined task with a reward and cooldown in hours
type CustomTask struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Type        string `json:"type"`
	URL         string `json:"url,omitempty"`
	Reward      int64  `json:"reward"`
	Cooldown    int64  `json:"cooldown"`
	HTMLContent string `json:"html_content,omitempty"`
}

// CustomLevel is a named obstacle layout stored in settings
type CustomLevel struct {
	Obstacles []Obstacle `json:"obstacles"`
	Distance  int64      `json:"distance"`
}

type WithdrawMethod struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Icon string `json:"icon"`
}

type ErrorReport struct {
	ID        int64  `json:"id"`
	Message   string `json:"message"`
	User      string `json:"user"`
	Timestamp int64  `json:"timestamp"`
	Resolved  bool   `json:"resolved"`
}

// GlobalSettings is the singleton configuration document
type GlobalSettings struct {
	MinWithdraw           decimal.Decimal        `json:"minWithdraw"`
	SponsorLink           string                 `json:"sponsorLink"`
	CustomPromoCodes      map[string]PromoCode   `json:"customPromoCodes"`
	AdminBroadcasts       []Broadcast            `json:"adminBroadcasts"`
	CustomTasks           []CustomTask           `json:"customTasks"`
	CustomLevels          map[string]CustomLevel `json:"customLevels"`
	CustomWithdrawMethods []WithdrawMethod       `json:"customWithdrawMethods"`
	ErrorReports          []ErrorReport          `json:"errorReports"`
}

// DefaultSettings returns the built-in settings used before anything is stored
func DefaultSettings() GlobalSettings {
	return GlobalSettings{
		MinWithdraw: decimal.NewFromInt(1),
		SponsorLink: DefaultSponsorLink,
		CustomPromoCodes: map[string]PromoCode{
			"TOESJABLOX": {Credits: 100, Plays: 100, Cash: decimal.Zero, EventType: PromoEventNone},
			"ANNA":       {Credits: 50, Cash: decimal.Zero, EventType: PromoEventEmoji, Emoji: "🌸💖💕🌹🥀"},
			"VALENTINE":  {Cash: decimal.Zero, EventType: PromoEventText, Message: "💕 Heart skin unlocked!", MaxUses: 1},
		},
		AdminBroadcasts:       []Broadcast{},
		CustomTasks:           []CustomTask{},
		CustomLevels:          map[string]CustomLevel{},
		CustomWithdrawMethods: []WithdrawMethod{},
		ErrorReports:          []ErrorReport{},
	}
}

// FillDefaults backfills empty fields from DefaultSettings
func (s *GlobalSettings) FillDefaults() {
	def := DefaultSettings()
	if s.MinWithdraw.IsZero() {
		s.MinWithdraw = def.MinWithdraw
	}
	if s.SponsorLink == "" {
		s.SponsorLink = def.SponsorLink
	}
	if s.CustomPromoCodes == nil {
		s.CustomPromoCodes = def.CustomPromoCodes
	}
	if s.AdminBroadcasts == nil {
		s.AdminBroadcasts = []Broadcast{}
	}
	if s.CustomTasks == nil {
		s.CustomTasks = []CustomTask{}
	}
	if s.CustomLevels == nil {
		s.CustomLevels = map[string]CustomLevel{}
	}
	if s.CustomWithdrawMethods == nil {
		s.CustomWithdrawMethods = []WithdrawMethod{}
	}
	if s.ErrorReports == nil {
		s.ErrorReports = []ErrorReport{}
	}
}
