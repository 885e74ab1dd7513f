package tracking

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/karloscodes/cartridge/sqlite"
	"gorm.io/gorm"
)

// EventsForSession loads the stored events of one session decoded back
// into RawEvent form, in insertion order. Timestamp ordering is left to
// BuildTimeline.
func EventsForSession(db *gorm.DB, sessionID string) ([]RawEvent, error) {
	var stored []IngestedEvent
	err := db.Where("session_id = ?", sessionID).
		Order("id ASC").
		Find(&stored).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query session events: %w", err)
	}
	return decodeEvents(stored), nil
}

// EventsInRange loads stored events inside [from, to) in timestamp order.
func EventsInRange(db *gorm.DB, from, to time.Time) ([]RawEvent, error) {
	var stored []IngestedEvent
	err := db.Where("timestamp >= ? AND timestamp < ?", from, to).
		Order("timestamp ASC, id ASC").
		Find(&stored).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	return decodeEvents(stored), nil
}

// MarkEventsProcessed flags stored events inside [from, to) as folded
// into a rollup. Retention cleanup only removes processed events, so an
// event is never purged before it contributed to analytics.
func MarkEventsProcessed(logger *slog.Logger, db *gorm.DB, from, to time.Time) (int64, error) {
	var affected int64
	err := sqlite.PerformWrite(logger, db, func(tx *gorm.DB) error {
		result := tx.Model(&IngestedEvent{}).
			Where("timestamp >= ? AND timestamp < ? AND processed = ?", from, to, false).
			Update("processed", true)
		affected = result.RowsAffected
		return result.Error
	})
	if err != nil {
		return 0, fmt.Errorf("failed to mark events processed: %w", err)
	}
	return affected, nil
}

// DeleteEventsBefore removes stored events older than the cutoff and
// returns the number deleted. Sessions keep their aggregated counters;
// only the raw event stream is trimmed.
func DeleteEventsBefore(db *gorm.DB, cutoff time.Time) (int64, error) {
	result := db.Where("timestamp < ?", cutoff).Delete(&IngestedEvent{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to delete old events: %w", result.Error)
	}
	return result.RowsAffected, nil
}

func decodeEvents(stored []IngestedEvent) []RawEvent {
	events := make([]RawEvent, 0, len(stored))
	for _, row := range stored {
		var data map[string]any
		if row.Payload != "" {
			// A corrupt payload degrades to a nil map; the classifier
			// tolerates that.
			_ = json.Unmarshal([]byte(row.Payload), &data)
		}
		events = append(events, RawEvent{
			ID:        row.ID,
			SessionID: row.SessionID,
			Type:      row.Type,
			Timestamp: row.Timestamp,
			Data:      data,
		})
	}
	return events
}
