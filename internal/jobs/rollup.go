package jobs

import (
	"log/slog"
	"time"

	"leadlens/internal/analytics"
	"leadlens/internal/database"
	"leadlens/internal/timeframe"
)

// RollupJob regenerates the analytics rollups covering the current
// moment. Regeneration is idempotent, so overlapping runs from
// duplicate schedulers are harmless.
type RollupJob struct {
	dbManager *database.DBManager
	logger    *slog.Logger
}

func NewRollupJob(dbManager *database.DBManager, logger *slog.Logger) *RollupJob {
	return &RollupJob{
		dbManager: dbManager,
		logger:    logger,
	}
}

// Run recomputes the rollup of every period granularity for now, plus
// yesterday's daily rollup so late-arriving events still land.
func (j *RollupJob) Run() error {
	db := j.dbManager.GetConnection()
	now := time.Now().UTC()

	periods := []timeframe.Period{
		timeframe.PeriodDaily,
		timeframe.PeriodWeekly,
		timeframe.PeriodMonthly,
		timeframe.PeriodYearly,
	}

	for _, period := range periods {
		key := timeframe.KeyFor(period, now)
		if _, err := analytics.GenerateForPeriod(j.logger, db, period, key); err != nil {
			j.logger.Error("Failed to generate rollup",
				slog.String("period", string(period)),
				slog.String("period_key", key),
				slog.Any("error", err))
			return err
		}
	}

	yesterdayKey := timeframe.KeyFor(timeframe.PeriodDaily, now.AddDate(0, 0, -1))
	if _, err := analytics.GenerateForPeriod(j.logger, db, timeframe.PeriodDaily, yesterdayKey); err != nil {
		j.logger.Error("Failed to regenerate previous daily rollup",
			slog.String("period_key", yesterdayKey),
			slog.Any("error", err))
		return err
	}

	return nil
}
