package tracking_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"leadlens/internal/config"
	"leadlens/internal/pages"
	"leadlens/internal/testsupport"
	"leadlens/internal/tracking"
	"leadlens/internal/visitors"
)

func setupCollectTest(t *testing.T) *testsupport.TestDBManager {
	t.Helper()
	t.Setenv("LEADLENS_ENV", "test")
	config.Reset()
	config.GetConfig()

	db := testsupport.SetupTestDB(t)
	return testsupport.NewTestDBManager(db)
}

func TestCollectEventCreatesVisitorAndSession(t *testing.T) {
	dbManager := setupCollectTest(t)
	logger := testsupport.GetLogger()
	now := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)

	err := tracking.CollectEvent(dbManager, logger, &tracking.CollectEventInput{
		IPAddress: "203.0.113.7",
		UserAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 Chrome/120.0 Safari/537.36",
		SessionID: "sess-1",
		Type:      tracking.EventTypePageView,
		URL:       "https://example.com/pricing",
		Timestamp: now,
		Data:      map[string]any{"url": "https://example.com/pricing"},
	})
	require.NoError(t, err)

	db := dbManager.GetConnection()

	var storedEvents []tracking.IngestedEvent
	require.NoError(t, db.Find(&storedEvents).Error)
	require.Len(t, storedEvents, 1)
	assert.Equal(t, "sess-1", storedEvents[0].SessionID)

	var visitor visitors.Visitor
	require.NoError(t, db.First(&visitor).Error)
	assert.Equal(t, "desktop", visitor.DeviceType)
	assert.Equal(t, 1, visitor.SessionsCount)
	assert.WithinDuration(t, now, visitor.FirstVisit, time.Second)

	session, err := visitors.SessionBySessionID(db, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, visitor.ID, session.VisitorID)
	assert.Equal(t, "https://example.com/pricing", session.EntryURL)
	assert.Equal(t, 1, session.PagesViewed)
	assert.Nil(t, session.ExitURL)
	assert.False(t, session.IsConverted)

	var page pages.LandingPage
	require.NoError(t, db.Where("url = ?", "https://example.com/pricing").First(&page).Error)
	assert.Equal(t, 1, page.TotalVisits)
	assert.Equal(t, 1, page.UniqueUsers)
}

func TestCollectEventAccruesSession(t *testing.T) {
	dbManager := setupCollectTest(t)
	logger := testsupport.GetLogger()
	now := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)
	ua := "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 Mobile/15E148 Safari/604.1"

	send := func(eventType, url string, offset time.Duration, data map[string]any) {
		err := tracking.CollectEvent(dbManager, logger, &tracking.CollectEventInput{
			IPAddress: "203.0.113.8",
			UserAgent: ua,
			SessionID: "sess-2",
			Type:      eventType,
			URL:       url,
			Timestamp: now.Add(offset),
			Data:      data,
		})
		require.NoError(t, err)
	}

	send(tracking.EventTypePageView, "https://example.com/", 0, map[string]any{"url": "https://example.com/"})
	send(tracking.EventTypeClick, "https://example.com/", 30*time.Second, map[string]any{"elementId": "cta"})
	send(tracking.EventTypePageView, "https://example.com/contact", time.Minute, map[string]any{"url": "https://example.com/contact"})
	send(tracking.EventTypeCustom, "https://example.com/contact", 2*time.Minute, map[string]any{"name": "lead_generated"})

	db := dbManager.GetConnection()
	session, err := visitors.SessionBySessionID(db, "sess-2")
	require.NoError(t, err)

	assert.Equal(t, 2, session.PagesViewed)
	assert.Equal(t, 2, session.InteractionsCount)
	assert.True(t, session.IsConverted)
	require.NotNil(t, session.ExitURL)
	assert.Equal(t, "https://example.com/contact", *session.ExitURL)
	assert.InDelta(t, 2.0, session.DurationMinutes, 0.01)

	var visitor visitors.Visitor
	require.NoError(t, db.First(&visitor).Error)
	assert.Equal(t, "mobile", visitor.DeviceType)
	assert.Equal(t, 1, visitor.SessionsCount)
	assert.WithinDuration(t, now.Add(2*time.Minute), visitor.LastActivity, time.Second)

	events, err := tracking.EventsForSession(db, "sess-2")
	require.NoError(t, err)
	require.Len(t, events, 4)

	nodes := tracking.BuildTimeline(events)
	assert.Equal(t, tracking.CategoryConversion, nodes[3].Category)
}

func TestCollectEventDropsBots(t *testing.T) {
	dbManager := setupCollectTest(t)
	logger := testsupport.GetLogger()

	err := tracking.CollectEvent(dbManager, logger, &tracking.CollectEventInput{
		IPAddress: "203.0.113.9",
		UserAgent: "Mozilla/5.0 (compatible; Googlebot/2.1; +http://www.google.com/bot.html)",
		SessionID: "sess-bot",
		Type:      tracking.EventTypePageView,
		URL:       "https://example.com/",
		Timestamp: time.Now().UTC(),
	})
	require.NoError(t, err)

	var count int64
	dbManager.GetConnection().Model(&tracking.IngestedEvent{}).Count(&count)
	assert.Zero(t, count)
}

func TestCollectEventRejectsIncompleteInput(t *testing.T) {
	dbManager := setupCollectTest(t)
	logger := testsupport.GetLogger()

	err := tracking.CollectEvent(dbManager, logger, &tracking.CollectEventInput{
		UserAgent: "Mozilla/5.0 (Windows NT 10.0) Chrome/120.0",
		Type:      tracking.EventTypePageView,
	})
	assert.Error(t, err)

	err = tracking.CollectEvent(dbManager, logger, &tracking.CollectEventInput{
		UserAgent: "Mozilla/5.0 (Windows NT 10.0) Chrome/120.0",
		SessionID: "sess-3",
	})
	assert.Error(t, err)
}

func TestDeleteEventsBefore(t *testing.T) {
	dbManager := setupCollectTest(t)
	db := dbManager.GetConnection()
	now := time.Now().UTC()

	testsupport.CreateTestEvent(db, "old-sess", tracking.EventTypePageView, "{}", now.AddDate(0, 0, -90))
	testsupport.CreateTestEvent(db, "new-sess", tracking.EventTypePageView, "{}", now)

	deleted, err := tracking.DeleteEventsBefore(db, now.AddDate(0, 0, -30))
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	var remaining []tracking.IngestedEvent
	require.NoError(t, db.Find(&remaining).Error)
	require.Len(t, remaining, 1)
	assert.Equal(t, "new-sess", remaining[0].SessionID)
}

func TestMarkEventsProcessed(t *testing.T) {
	dbManager := setupCollectTest(t)
	db := dbManager.GetConnection()
	logger := testsupport.GetLogger()
	now := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)

	testsupport.CreateTestEvent(db, "sess-a", tracking.EventTypePageView, "{}", now)
	testsupport.CreateTestEvent(db, "sess-a", tracking.EventTypeClick, "{}", now.Add(time.Minute))
	testsupport.CreateTestEvent(db, "sess-b", tracking.EventTypePageView, "{}", now.Add(48*time.Hour))

	affected, err := tracking.MarkEventsProcessed(logger, db, now.Add(-time.Hour), now.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(2), affected)

	// Already-processed rows are not touched again.
	affected, err = tracking.MarkEventsProcessed(logger, db, now.Add(-time.Hour), now.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(0), affected)

	var unprocessed []tracking.IngestedEvent
	require.NoError(t, db.Where("processed = ?", false).Find(&unprocessed).Error)
	require.Len(t, unprocessed, 1)
	assert.Equal(t, "sess-b", unprocessed[0].SessionID)
}
