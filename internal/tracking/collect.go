package tracking

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/karloscodes/cartridge"
	"github.com/karloscodes/cartridge/sqlite"
	"gorm.io/gorm"

	"leadlens/internal/config"
	"leadlens/internal/pages"
	"leadlens/internal/pkg/device"
	"leadlens/internal/pkg/geoip"
	"leadlens/internal/visitors"
)

// CollectEventInput is the payload accepted from the tracking snippet.
type CollectEventInput struct {
	IPAddress string
	UserAgent string
	SessionID string
	Type      string
	URL       string
	Referrer  string
	Timestamp time.Time
	Data      map[string]any
}

// CollectEvent stores a raw tracking event and folds it into the owning
// visitor and session records. Bot traffic is dropped silently.
func CollectEvent(dbManager cartridge.DBManager, logger *slog.Logger, input *CollectEventInput) error {
	if input.SessionID == "" {
		return fmt.Errorf("missing session id")
	}
	if input.Type == "" {
		return fmt.Errorf("missing event type")
	}

	if device.IsBot(input.UserAgent) {
		logger.Debug("Skipping event from bot user agent",
			slog.String("user_agent", input.UserAgent))
		return nil
	}

	hostname := hostnameOf(input.URL)
	cfg := config.GetConfig()
	if hostname == "localhost" && cfg.IsProduction() {
		logger.Debug("Skipping event for localhost in production", slog.String("url", input.URL))
		return nil
	}

	if input.Timestamp.IsZero() {
		input.Timestamp = time.Now().UTC()
	}

	event := RawEvent{
		SessionID: input.SessionID,
		Type:      input.Type,
		Timestamp: input.Timestamp,
		Data:      input.Data,
	}
	classification := Classify(event)

	payload, err := json.Marshal(input.Data)
	if err != nil {
		logger.Warn("Failed to encode event payload", slog.Any("error", err))
		payload = []byte("{}")
	}

	fingerprint := visitors.BuildFingerprint(hostname, input.IPAddress, input.UserAgent, cfg.PrivateKey)
	db := dbManager.GetConnection()

	visitor, err := visitors.TouchVisitor(logger, db, visitors.TouchVisitorInput{
		Fingerprint: fingerprint,
		IP:          input.IPAddress,
		UserAgent:   input.UserAgent,
		DeviceType:  device.Type(input.UserAgent),
		Location:    geoip.CountryCode(input.IPAddress),
		Referrer:    input.Referrer,
		Timestamp:   input.Timestamp,
	})
	if err != nil {
		logger.Error("Failed to upsert visitor", slog.Any("error", err))
		return err
	}

	session, err := visitors.TouchSession(logger, db, visitors.TouchSessionInput{
		SessionID:    input.SessionID,
		VisitorID:    visitor.ID,
		Timestamp:    input.Timestamp,
		URL:          input.URL,
		IsPageView:   input.Type == EventTypePageView,
		IsConversion: classification.Category == CategoryConversion,
		IsSessionEnd: input.Type == EventTypeSessionEnd,
	})
	if err != nil {
		logger.Error("Failed to upsert session", slog.Any("error", err))
		return err
	}

	if input.Type == EventTypePageView && input.URL != "" {
		// The session's first page view is its landing; that is the only
		// visit that counts toward the page's unique users.
		uniqueUser := session.PagesViewed == 1
		title := ResolveString(event, "title")
		if err := pages.RecordVisit(db, input.URL, title, uniqueUser, input.Timestamp); err != nil {
			logger.Warn("Failed to record landing page visit",
				slog.String("url", input.URL),
				slog.Any("error", err))
		}
	}

	stored := &IngestedEvent{
		SessionID: input.SessionID,
		VisitorID: fingerprint,
		Type:      input.Type,
		URL:       input.URL,
		Payload:   string(payload),
		Timestamp: input.Timestamp,
		CreatedAt: time.Now().UTC(),
	}
	err = sqlite.PerformWrite(logger, db, func(tx *gorm.DB) error {
		return tx.Create(stored).Error
	})
	if err != nil {
		logger.Error("Failed to store ingested event", slog.Any("error", err))
		return fmt.Errorf("failed to store ingested event: %w", err)
	}

	return nil
}

// hostnameOf extracts the hostname from a raw URL, or "" when the URL
// cannot be parsed. Events with unparseable URLs are still accepted:
// interaction events often carry no URL at all.
func hostnameOf(rawURL string) string {
	if rawURL == "" {
		return ""
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return parsed.Hostname()
}
