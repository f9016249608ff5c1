package models

import (
	"time"
)

// StrategyExecutionAttempt is an append-only log row recording one
// trigger-to-resolution cycle of a strategy. A strategy accrues more than one
// attempt only if the user re-activates it after a failure.
type StrategyExecutionAttempt struct {
	ID           uint      `gorm:"primarykey" json:"id"`
	StrategyID   string    `gorm:"type:varchar(36);not null;index" json:"strategy_id"`
	TriggerPrice float64   `gorm:"not null" json:"trigger_price"`
	ActualPrice  float64   `gorm:"not null" json:"actual_price"`
	Status       string    `gorm:"type:varchar(20);not null" json:"status"`
	ErrorMessage string    `gorm:"type:text;default:''" json:"error_message"`
	Signature    string    `gorm:"type:text;default:''" json:"signature"`
	Confirmation string    `gorm:"type:varchar(20);default:''" json:"confirmation"`
	CreatedAt    time.Time `json:"created_at" gorm:"autoCreateTime"`
}

func (StrategyExecutionAttempt) TableName() string {
	return "strategy_execution_attempt"
}
