package visitors

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/karloscodes/cartridge/sqlite"
	"gorm.io/gorm"

	"leadlens/internal/pages"
)

// TouchVisitorInput carries the identity signals of an incoming event.
type TouchVisitorInput struct {
	Fingerprint string
	IP          string
	UserAgent   string
	DeviceType  string
	Location    string
	Referrer    string
	Timestamp   time.Time
}

// TouchVisitor finds or creates the visitor for a fingerprint and
// advances its last-activity timestamp. The referrer is only recorded
// on first contact; later visits keep the original acquisition source.
func TouchVisitor(logger *slog.Logger, db *gorm.DB, input TouchVisitorInput) (*Visitor, error) {
	var visitor Visitor
	err := db.Where("fingerprint = ?", input.Fingerprint).First(&visitor).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		visitor = Visitor{
			Fingerprint:  input.Fingerprint,
			IP:           input.IP,
			UserAgent:    input.UserAgent,
			DeviceType:   input.DeviceType,
			Location:     input.Location,
			Referrer:     input.Referrer,
			FirstVisit:   input.Timestamp,
			LastActivity: input.Timestamp,
		}
		err = sqlite.PerformWrite(logger, db, func(tx *gorm.DB) error {
			return tx.Create(&visitor).Error
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create visitor: %w", err)
		}
		return &visitor, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load visitor: %w", err)
	}

	if input.Timestamp.After(visitor.LastActivity) {
		visitor.LastActivity = input.Timestamp
	}
	visitor.IP = input.IP
	if input.Location != "" {
		visitor.Location = input.Location
	}
	err = sqlite.PerformWrite(logger, db, func(tx *gorm.DB) error {
		return tx.Model(&Visitor{}).Where("id = ?", visitor.ID).
			Updates(map[string]any{
				"last_activity": visitor.LastActivity,
				"ip":            visitor.IP,
				"location":      visitor.Location,
			}).Error
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update visitor: %w", err)
	}
	return &visitor, nil
}

// TouchSessionInput describes how one event affects its session. The
// category flags are precomputed by the caller so this package stays
// independent of the event taxonomy.
type TouchSessionInput struct {
	SessionID    string
	VisitorID    uint
	Timestamp    time.Time
	URL          string
	IsPageView   bool
	IsConversion bool
	IsSessionEnd bool
}

// TouchSession creates the session row on first sight and folds each
// subsequent event into its counters. The exit URL stays nil for
// single-page sessions: a bounce never navigated anywhere to exit from.
func TouchSession(logger *slog.Logger, db *gorm.DB, input TouchSessionInput) (*Session, error) {
	var session Session
	err := db.Where("session_id = ?", input.SessionID).First(&session).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		session = Session{
			SessionID: input.SessionID,
			VisitorID: input.VisitorID,
			StartTime: input.Timestamp,
			EndTime:   input.Timestamp,
			EntryURL:  input.URL,
		}
		if input.IsPageView {
			session.PagesViewed = 1
		} else {
			session.InteractionsCount = 1
		}
		session.IsConverted = input.IsConversion

		err = sqlite.PerformWrite(logger, db, func(tx *gorm.DB) error {
			if createErr := tx.Create(&session).Error; createErr != nil {
				return createErr
			}
			return tx.Model(&Visitor{}).Where("id = ?", input.VisitorID).
				UpdateColumn("sessions_count", gorm.Expr("sessions_count + 1")).Error
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create session: %w", err)
		}
		return &session, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	if input.Timestamp.After(session.EndTime) {
		session.EndTime = input.Timestamp
	}
	if input.Timestamp.Before(session.StartTime) {
		session.StartTime = input.Timestamp
	}
	session.DurationMinutes = session.EndTime.Sub(session.StartTime).Minutes()

	if input.IsPageView {
		session.PagesViewed++
		if input.URL != "" && input.URL != session.EntryURL {
			url := input.URL
			session.ExitURL = &url
		}
	} else if !input.IsSessionEnd {
		session.InteractionsCount++
	}
	if input.IsConversion {
		session.IsConverted = true
	}

	err = sqlite.PerformWrite(logger, db, func(tx *gorm.DB) error {
		return tx.Save(&session).Error
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update session: %w", err)
	}
	return &session, nil
}

// SessionsInRange returns sessions that started inside [from, to),
// newest first.
func SessionsInRange(db *gorm.DB, from, to time.Time) ([]Session, error) {
	var sessions []Session
	err := db.Where("start_time >= ? AND start_time < ?", from, to).
		Order("start_time DESC").
		Find(&sessions).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	return sessions, nil
}

// SessionsForVisitor returns all sessions of one visitor, newest first.
func SessionsForVisitor(db *gorm.DB, visitorID uint) ([]Session, error) {
	var sessions []Session
	err := db.Where("visitor_id = ?", visitorID).
		Order("start_time DESC").
		Find(&sessions).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query visitor sessions: %w", err)
	}
	return sessions, nil
}

// SessionBySessionID loads one session by its client-assigned id.
func SessionBySessionID(db *gorm.DB, sessionID string) (*Session, error) {
	var session Session
	err := db.Where("session_id = ?", sessionID).First(&session).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load session %s: %w", sessionID, err)
	}
	return &session, nil
}

// VisitorsInRange returns visitors active inside [from, to), most
// recently active first.
func VisitorsInRange(db *gorm.DB, from, to time.Time) ([]Visitor, error) {
	var result []Visitor
	err := db.Where("last_activity >= ? AND last_activity < ?", from, to).
		Order("last_activity DESC").
		Find(&result).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query visitors: %w", err)
	}
	return result, nil
}

// VisitorsForLandingPage returns visitors who entered at least one
// session through the given normalized landing page URL inside
// [from, to), most recently active first. Entry URLs are normalized on
// the fly so tracking-parameter variants still match.
func VisitorsForLandingPage(db *gorm.DB, normalizedURL string, from, to time.Time) ([]Visitor, error) {
	sessions, err := SessionsInRange(db, from, to)
	if err != nil {
		return nil, err
	}

	entered := make(map[uint]bool)
	for _, s := range sessions {
		if pages.NormalizeURL(s.EntryURL) == normalizedURL {
			entered[s.VisitorID] = true
		}
	}
	if len(entered) == 0 {
		return []Visitor{}, nil
	}

	ids := make([]uint, 0, len(entered))
	for id := range entered {
		ids = append(ids, id)
	}

	var result []Visitor
	err = db.Where("id IN ?", ids).
		Order("last_activity DESC").
		Find(&result).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query landing page visitors: %w", err)
	}
	return result, nil
}

// VisitorByID loads one visitor.
func VisitorByID(db *gorm.DB, id uint) (*Visitor, error) {
	var visitor Visitor
	if err := db.First(&visitor, id).Error; err != nil {
		return nil, fmt.Errorf("failed to load visitor %d: %w", id, err)
	}
	return &visitor, nil
}
