package models

import (
	"time"
)

// Strategy statuses
const (
	StatusActive    = "active"
	StatusPaused    = "paused"
	StatusTriggered = "triggered"
	StatusExecuted  = "executed"
	StatusFailed    = "failed"
)

// Strategy kinds
const (
	KindBuyDip     = "buy_dip"
	KindTakeProfit = "take_profit"
)

// MaxActiveStrategiesPerUser caps simultaneously active strategies per user,
// enforced at creation time only.
const MaxActiveStrategiesPerUser = 10

type Strategy struct {
	ID           string     `gorm:"type:varchar(36);primarykey" json:"id"`
	UserID       string     `gorm:"type:varchar(100);not null;index" json:"user_id"`
	TokenMint    string     `gorm:"type:varchar(64);not null" json:"token_mint"`
	TokenSymbol  string     `gorm:"type:varchar(20);not null" json:"token_symbol"`
	Kind         string     `gorm:"type:varchar(20);not null" json:"kind"`
	TriggerPrice float64    `gorm:"not null" json:"trigger_price"`
	Amount       string     `gorm:"type:varchar(40);not null" json:"amount"`
	SlippageBps  int        `gorm:"not null" json:"slippage_bps"`
	Status       string     `gorm:"type:varchar(20);not null;index" json:"status"`
	CreatedAt    time.Time  `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt    time.Time  `json:"updated_at" gorm:"autoUpdateTime"`
	ExecutedAt   *time.Time `json:"executed_at,omitempty"`
	TxSignature  string     `gorm:"type:text;default:''" json:"tx_signature"`
}

func (Strategy) TableName() string {
	return "strategy"
}

// Terminal reports whether the status permits no further mutation.
func (s *Strategy) Terminal() bool {
	return s.Status == StatusExecuted || s.Status == StatusFailed
}
