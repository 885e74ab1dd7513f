package visitors_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"leadlens/internal/testsupport"
	"leadlens/internal/timeframe"
	"leadlens/internal/visitors"
)

func TestBuildFingerprint(t *testing.T) {
	a := visitors.BuildFingerprint("example.com", "203.0.113.1", "Mozilla/5.0", "salt")
	b := visitors.BuildFingerprint("example.com", "203.0.113.1", "Mozilla/5.0", "salt")
	assert.Equal(t, a, b, "fingerprint must be stable")
	assert.Len(t, a, 64)

	differentIP := visitors.BuildFingerprint("example.com", "203.0.113.2", "Mozilla/5.0", "salt")
	assert.NotEqual(t, a, differentIP)

	differentSalt := visitors.BuildFingerprint("example.com", "203.0.113.1", "Mozilla/5.0", "other")
	assert.NotEqual(t, a, differentSalt)
}

func TestAlias(t *testing.T) {
	alias := visitors.Alias("some-fingerprint")
	assert.Equal(t, alias, visitors.Alias("some-fingerprint"), "alias must be stable")
	assert.Contains(t, alias, " ")
	assert.NotEqual(t, alias, visitors.Alias("another-fingerprint"))
}

func TestVisitorIsActive(t *testing.T) {
	now := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	window := 30 * time.Minute

	active := visitors.Visitor{LastActivity: now.Add(-10 * time.Minute)}
	assert.True(t, active.IsActive(now, window))

	stale := visitors.Visitor{LastActivity: now.Add(-2 * time.Hour)}
	assert.False(t, stale.IsActive(now, window))
}

func TestTouchVisitor(t *testing.T) {
	db := testsupport.SetupTestDB(t)
	logger := testsupport.GetLogger()
	now := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)

	first, err := visitors.TouchVisitor(logger, db, visitors.TouchVisitorInput{
		Fingerprint: "fp-1",
		IP:          "203.0.113.1",
		UserAgent:   "Mozilla/5.0",
		DeviceType:  "desktop",
		Location:    "de",
		Referrer:    "https://google.com",
		Timestamp:   now,
	})
	require.NoError(t, err)
	assert.NotZero(t, first.ID)

	// A later event advances activity but keeps the first referrer.
	second, err := visitors.TouchVisitor(logger, db, visitors.TouchVisitorInput{
		Fingerprint: "fp-1",
		IP:          "203.0.113.5",
		Referrer:    "https://bing.com",
		Timestamp:   now.Add(time.Hour),
	})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	var stored visitors.Visitor
	require.NoError(t, db.First(&stored, first.ID).Error)
	assert.Equal(t, "https://google.com", stored.Referrer)
	assert.Equal(t, "203.0.113.5", stored.IP)
	assert.WithinDuration(t, now.Add(time.Hour), stored.LastActivity, time.Second)
	assert.WithinDuration(t, now, stored.FirstVisit, time.Second)
}

func TestTouchSessionLifecycle(t *testing.T) {
	db := testsupport.SetupTestDB(t)
	logger := testsupport.GetLogger()
	now := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)

	visitor := testsupport.CreateTestVisitor(db, "fp-2", "desktop", now)

	created, err := visitors.TouchSession(logger, db, visitors.TouchSessionInput{
		SessionID:  "ts-1",
		VisitorID:  visitor.ID,
		Timestamp:  now,
		URL:        "https://example.com/",
		IsPageView: true,
	})
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/", created.EntryURL)
	assert.Equal(t, 1, created.PagesViewed)
	assert.Nil(t, created.ExitURL)

	var owner visitors.Visitor
	require.NoError(t, db.First(&owner, visitor.ID).Error)
	assert.Equal(t, 1, owner.SessionsCount)

	_, err = visitors.TouchSession(logger, db, visitors.TouchSessionInput{
		SessionID: "ts-1", VisitorID: visitor.ID,
		Timestamp: now.Add(time.Minute), URL: "https://example.com/",
	})
	require.NoError(t, err)

	updated, err := visitors.TouchSession(logger, db, visitors.TouchSessionInput{
		SessionID: "ts-1", VisitorID: visitor.ID,
		Timestamp: now.Add(3 * time.Minute), URL: "https://example.com/pricing",
		IsPageView: true, IsConversion: true,
	})
	require.NoError(t, err)

	assert.Equal(t, 2, updated.PagesViewed)
	assert.Equal(t, 1, updated.InteractionsCount)
	assert.True(t, updated.IsConverted)
	require.NotNil(t, updated.ExitURL)
	assert.Equal(t, "https://example.com/pricing", *updated.ExitURL)
	assert.InDelta(t, 3.0, updated.DurationMinutes, 0.01)

	// Still one session for the visitor.
	require.NoError(t, db.First(&owner, visitor.ID).Error)
	assert.Equal(t, 1, owner.SessionsCount)
}

func TestSessionsInRange(t *testing.T) {
	db := testsupport.SetupTestDB(t)
	now := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	visitor := testsupport.CreateTestVisitor(db, "fp-3", "mobile", now)

	testsupport.CreateTestSession(db, "in-1", visitor.ID, now.Add(-time.Hour), false)
	testsupport.CreateTestSession(db, "in-2", visitor.ID, now.Add(-20*time.Hour), true)
	testsupport.CreateTestSession(db, "out-1", visitor.ID, now.Add(-10*24*time.Hour), false)

	from, to := timeframe.ParseRange("24h", now)
	sessions, err := visitors.SessionsInRange(db, from, to)
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	// Newest first.
	assert.Equal(t, "in-1", sessions[0].SessionID)
	assert.Equal(t, "in-2", sessions[1].SessionID)

	all, err := visitors.SessionsForVisitor(db, visitor.ID)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestVisitorsForLandingPage(t *testing.T) {
	db := testsupport.SetupTestDB(t)
	now := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)

	v1 := testsupport.CreateTestVisitor(db, "fp-lp-1", "desktop", now)
	v2 := testsupport.CreateTestVisitor(db, "fp-lp-2", "mobile", now)
	v3 := testsupport.CreateTestVisitor(db, "fp-lp-3", "desktop", now)

	sessions := []visitors.Session{
		{SessionID: "lp-1", VisitorID: v1.ID, StartTime: now.Add(-time.Hour), EntryURL: "https://example.com/pricing?fbclid=abc"},
		{SessionID: "lp-2", VisitorID: v2.ID, StartTime: now.Add(-2 * time.Hour), EntryURL: "https://example.com/pricing"},
		{SessionID: "lp-3", VisitorID: v3.ID, StartTime: now.Add(-time.Hour), EntryURL: "https://example.com/about"},
		// Matching entry URL but outside the range.
		{SessionID: "lp-4", VisitorID: v3.ID, StartTime: now.Add(-10 * 24 * time.Hour), EntryURL: "https://example.com/pricing"},
	}
	for i := range sessions {
		require.NoError(t, db.Create(&sessions[i]).Error)
	}

	from, to := timeframe.ParseRange("7d", now)
	found, err := visitors.VisitorsForLandingPage(db, "https://example.com/pricing", from, to)
	require.NoError(t, err)
	require.Len(t, found, 2)

	ids := []uint{found[0].ID, found[1].ID}
	assert.Contains(t, ids, v1.ID)
	assert.Contains(t, ids, v2.ID)

	none, err := visitors.VisitorsForLandingPage(db, "https://example.com/missing", from, to)
	require.NoError(t, err)
	assert.Empty(t, none)
}
