package analytics

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/karloscodes/cartridge/sqlite"
	"gorm.io/gorm"
)

// Rollup is the persisted form of an AdvancedAnalytics record. The
// nested aggregates are stored as one JSON document; the (period,
// period_key) pair is unique, and regenerating a period overwrites in
// place so the last write wins. That is safe without a lock for a
// single-tenant deployment; multi-instance deployments would need
// external coordination.
type Rollup struct {
	ID          uint      `gorm:"primaryKey"`
	Period      string    `gorm:"uniqueIndex:idx_period_key;not null"`
	PeriodKey   string    `gorm:"uniqueIndex:idx_period_key;not null"`
	Data        string    `gorm:"type:text;not null"`
	SampleSize  int       `gorm:"not null"`
	Confidence  float64   `gorm:"not null"`
	GeneratedAt time.Time `gorm:"not null"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// SaveRollup upserts the rollup for its period key.
func SaveRollup(logger *slog.Logger, db *gorm.DB, rollup AdvancedAnalytics) error {
	data, err := json.Marshal(rollup)
	if err != nil {
		return fmt.Errorf("failed to encode rollup: %w", err)
	}

	now := time.Now().UTC()
	query := `
		INSERT INTO rollups (period, period_key, data, sample_size, confidence, generated_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (period, period_key) DO UPDATE SET
			data = ?,
			sample_size = ?,
			confidence = ?,
			generated_at = ?,
			updated_at = ?
	`
	err = sqlite.PerformWrite(logger, db, func(tx *gorm.DB) error {
		return tx.Exec(query,
			rollup.Period, rollup.PeriodKey, string(data), rollup.SampleSize, rollup.Confidence, now, now, now,
			string(data), rollup.SampleSize, rollup.Confidence, now, now,
		).Error
	})
	if err != nil {
		return fmt.Errorf("failed to save rollup %s/%s: %w", rollup.Period, rollup.PeriodKey, err)
	}
	return nil
}

// LoadRollup returns the stored rollup for a period key, or (nil, nil)
// when none has been generated yet.
func LoadRollup(db *gorm.DB, period, periodKey string) (*AdvancedAnalytics, error) {
	var row Rollup
	err := db.Where("period = ? AND period_key = ?", period, periodKey).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load rollup %s/%s: %w", period, periodKey, err)
	}

	var rollup AdvancedAnalytics
	if err := json.Unmarshal([]byte(row.Data), &rollup); err != nil {
		return nil, fmt.Errorf("failed to decode rollup %s/%s: %w", period, periodKey, err)
	}
	return &rollup, nil
}
