package jobs

import (
	"log/slog"
	"time"

	"leadlens/internal/config"
	"leadlens/internal/database"
	"leadlens/internal/tracking"
)

// CleanupJob removes raw ingested events past the retention window.
// Only events already folded into a rollup are eligible. Visitor and
// session rows keep their aggregated counters; only the event stream is
// trimmed, which keeps storage bounded and limits how much raw
// behavioral data sits around.
type CleanupJob struct {
	dbManager *database.DBManager
	logger    *slog.Logger
	cfg       *config.Config
}

func NewCleanupJob(dbManager *database.DBManager, logger *slog.Logger, cfg *config.Config) *CleanupJob {
	return &CleanupJob{
		dbManager: dbManager,
		logger:    logger,
		cfg:       cfg,
	}
}

const cleanupBatchSize = 1000

func (j *CleanupJob) Run() error {
	retentionDays := j.cfg.IngestedEventsRetentionDays
	db := j.dbManager.GetConnection()
	cutoff := time.Now().UTC().AddDate(0, 0, -retentionDays)

	j.logger.Info("Starting cleanup of old tracking events",
		slog.Int("retention_days", retentionDays),
		slog.Time("cutoff", cutoff))

	var countToDelete int64
	if err := db.Model(&tracking.IngestedEvent{}).
		Where("timestamp < ? AND processed = ?", cutoff, true).
		Count(&countToDelete).Error; err != nil {
		j.logger.Error("Failed to count old tracking events", slog.Any("error", err))
		return err
	}
	if countToDelete == 0 {
		j.logger.Debug("No old tracking events to clean up")
		return nil
	}

	// Delete in batches to avoid holding the write lock for too long.
	var totalDeleted int64
	for {
		result := db.Where("timestamp < ? AND processed = ?", cutoff, true).
			Limit(cleanupBatchSize).
			Delete(&tracking.IngestedEvent{})
		if result.Error != nil {
			j.logger.Error("Failed to delete old tracking events",
				slog.Any("error", result.Error),
				slog.Int64("deleted_so_far", totalDeleted))
			return result.Error
		}

		totalDeleted += result.RowsAffected
		if result.RowsAffected < int64(cleanupBatchSize) {
			break
		}
		time.Sleep(100 * time.Millisecond)
	}

	j.logger.Info("Cleaned up old tracking events",
		slog.Int64("deleted_count", totalDeleted),
		slog.Int("retention_days", retentionDays))
	return nil
}
