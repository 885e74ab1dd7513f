package analytics

import (
	"fmt"
	"log/slog"

	"gorm.io/gorm"

	"leadlens/internal/timeframe"
	"leadlens/internal/tracking"
	"leadlens/internal/visitors"
)

// GenerateForPeriod recomputes and persists the rollup for one period
// window from stored sessions and events. Safe to run concurrently by
// duplicate jobs: the computation is idempotent and the save is a
// last-write-wins upsert.
func GenerateForPeriod(logger *slog.Logger, db *gorm.DB, period timeframe.Period, periodKey string) (*AdvancedAnalytics, error) {
	if !timeframe.ValidPeriod(period) {
		return nil, fmt.Errorf("invalid period %q", period)
	}
	from, to, err := timeframe.BoundsFor(period, periodKey)
	if err != nil {
		return nil, err
	}

	sessions, err := visitors.SessionsInRange(db, from, to)
	if err != nil {
		return nil, err
	}
	events, err := tracking.EventsInRange(db, from, to)
	if err != nil {
		return nil, err
	}
	batchVisitors, err := visitorsForSessions(db, sessions)
	if err != nil {
		return nil, err
	}

	rollup := Aggregate(Input{
		PeriodKey: periodKey,
		Period:    period,
		Sessions:  sessions,
		Events:    events,
		Visitors:  batchVisitors,
	})

	if err := SaveRollup(logger, db, rollup); err != nil {
		return nil, err
	}

	// Daily windows partition the event stream, so daily generation owns
	// the processed flag used by retention cleanup.
	if period == timeframe.PeriodDaily {
		if _, err := tracking.MarkEventsProcessed(logger, db, from, to); err != nil {
			logger.Warn("Failed to mark events processed",
				slog.String("period_key", periodKey),
				slog.Any("error", err))
		}
	}

	logger.Debug("Generated analytics rollup",
		slog.String("period", string(period)),
		slog.String("period_key", periodKey),
		slog.Int("sample_size", rollup.SampleSize))
	return &rollup, nil
}

// LoadOrGenerate returns the stored rollup, computing it on first
// request for a period key.
func LoadOrGenerate(logger *slog.Logger, db *gorm.DB, period timeframe.Period, periodKey string) (*AdvancedAnalytics, error) {
	rollup, err := LoadRollup(db, string(period), periodKey)
	if err != nil {
		return nil, err
	}
	if rollup != nil {
		return rollup, nil
	}
	return GenerateForPeriod(logger, db, period, periodKey)
}

// PreviousRollup loads the rollup for the window preceding periodKey,
// or nil when none exists.
func PreviousRollup(db *gorm.DB, period timeframe.Period, periodKey string) (*AdvancedAnalytics, error) {
	previousKey, err := timeframe.PreviousKey(period, periodKey)
	if err != nil {
		return nil, err
	}
	return LoadRollup(db, string(period), previousKey)
}

func visitorsForSessions(db *gorm.DB, sessions []visitors.Session) ([]visitors.Visitor, error) {
	if len(sessions) == 0 {
		return nil, nil
	}
	ids := make([]uint, 0, len(sessions))
	seen := make(map[uint]bool, len(sessions))
	for i := range sessions {
		id := sessions[i].VisitorID
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}

	var result []visitors.Visitor
	if err := db.Where("id IN ?", ids).Find(&result).Error; err != nil {
		return nil, fmt.Errorf("failed to load visitors for rollup: %w", err)
	}
	return result, nil
}
