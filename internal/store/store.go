package store

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"triggertrade/internal/models"
)

// StrategyStore is the only component that touches persisted strategy state.
// Callers treat it as a serializable by-id resource; status transitions go
// through UpdateStatus, which is conditional on the expected prior status so
// concurrent sweeps cannot apply the same transition twice.
type StrategyStore struct {
	db *gorm.DB
}

func New(db *gorm.DB) *StrategyStore {
	return &StrategyStore{db: db}
}

func (s *StrategyStore) Create(strategy *models.Strategy) error {
	if err := s.db.Create(strategy).Error; err != nil {
		return fmt.Errorf("create strategy: %w", err)
	}
	return nil
}

// GetByID returns (nil, nil) when no strategy exists with the given id.
func (s *StrategyStore) GetByID(id string) (*models.Strategy, error) {
	var strategy models.Strategy
	err := s.db.First(&strategy, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get strategy %s: %w", id, err)
	}
	return &strategy, nil
}

func (s *StrategyStore) ListByStatus(status string) ([]models.Strategy, error) {
	var strategies []models.Strategy
	if err := s.db.Where("status = ?", status).Find(&strategies).Error; err != nil {
		return nil, fmt.Errorf("list strategies by status %s: %w", status, err)
	}
	return strategies, nil
}

func (s *StrategyStore) ListByUser(userID string) ([]models.Strategy, error) {
	var strategies []models.Strategy
	if err := s.db.Where("user_id = ?", userID).Order("created_at DESC").Find(&strategies).Error; err != nil {
		return nil, fmt.Errorf("list strategies for user %s: %w", userID, err)
	}
	return strategies, nil
}

func (s *StrategyStore) CountActiveByUser(userID string) (int64, error) {
	var count int64
	err := s.db.Model(&models.Strategy{}).
		Where("user_id = ? AND status = ?", userID, models.StatusActive).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("count active strategies for user %s: %w", userID, err)
	}
	return count, nil
}

// UpdateStatus moves a strategy from fromStatus to toStatus, applying extra
// fields in the same write. The WHERE clause keys on the prior status, so the
// call reports changed=false when another writer got there first (or the id
// is unknown); the caller decides which of the two it is.
func (s *StrategyStore) UpdateStatus(id, fromStatus, toStatus string, extra map[string]interface{}) (bool, error) {
	updates := map[string]interface{}{"status": toStatus}
	for k, v := range extra {
		updates[k] = v
	}

	tx := s.db.Model(&models.Strategy{}).
		Where("id = ? AND status = ?", id, fromStatus).
		Updates(updates)
	if tx.Error != nil {
		return false, fmt.Errorf("update strategy %s status %s->%s: %w", id, fromStatus, toStatus, tx.Error)
	}
	return tx.RowsAffected > 0, nil
}

func (s *StrategyStore) AppendAttempt(attempt *models.StrategyExecutionAttempt) error {
	if err := s.db.Create(attempt).Error; err != nil {
		return fmt.Errorf("append execution attempt for strategy %s: %w", attempt.StrategyID, err)
	}
	return nil
}

// UpdateLatestAttempt applies fields to the most recent attempt row of a
// strategy. A missing attempt row is not an error: finalization must stay
// idempotent even if the attempt insert was lost mid-sweep.
func (s *StrategyStore) UpdateLatestAttempt(strategyID string, fields map[string]interface{}) error {
	var attempt models.StrategyExecutionAttempt
	err := s.db.Where("strategy_id = ?", strategyID).
		Order("created_at DESC, id DESC").
		First(&attempt).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("load latest attempt for strategy %s: %w", strategyID, err)
	}

	if err := s.db.Model(&attempt).Updates(fields).Error; err != nil {
		return fmt.Errorf("update latest attempt for strategy %s: %w", strategyID, err)
	}
	return nil
}

func (s *StrategyStore) ListAttempts(strategyID string) ([]models.StrategyExecutionAttempt, error) {
	var attempts []models.StrategyExecutionAttempt
	err := s.db.Where("strategy_id = ?", strategyID).
		Order("created_at DESC, id DESC").
		Find(&attempts).Error
	if err != nil {
		return nil, fmt.Errorf("list attempts for strategy %s: %w", strategyID, err)
	}
	return attempts, nil
}
