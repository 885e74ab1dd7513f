package testsupport

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/karloscodes/cartridge"
	"github.com/karloscodes/cartridge/cache"
	ctestsupport "github.com/karloscodes/cartridge/testsupport"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"leadlens/internal/analytics"
	"leadlens/internal/config"
	"leadlens/internal/funnel"
	"leadlens/internal/pages"
	"leadlens/internal/tracking"
	"leadlens/internal/visitors"
)

// testDBCache caches test databases by root test name so multiple calls
// within the same test share one database.
var testDBCache = make(map[string]*gorm.DB)
var testDBCacheMu sync.Mutex

// TestDBManager wraps cartridge's TestDBManager with leadlens's interface.
type TestDBManager struct {
	*ctestsupport.TestDBManager
}

// NewTestDBManager creates a TestDBManager that implements cartridge.DBManager.
func NewTestDBManager(db *gorm.DB) *TestDBManager {
	return &TestDBManager{
		TestDBManager: ctestsupport.NewTestDBManager(db),
	}
}

var _ cartridge.DBManager = (*TestDBManager)(nil)

// allModels returns all leadlens models for migration.
func allModels() []any {
	return []any{
		&cache.CacheRecord{},
		&tracking.IngestedEvent{},
		&visitors.Visitor{},
		&visitors.Session{},
		&pages.LandingPage{},
		&analytics.Rollup{},
		&funnel.Lead{},
	}
}

// SetupTestDB creates a test database with all leadlens models migrated.
// Uses a named in-memory database with cache=shared so multiple
// connections within a test see the same data.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	testName := t.Name()
	rootName := testName
	if idx := strings.Index(testName, "/"); idx > 0 {
		rootName = testName[:idx]
	}

	testDBCacheMu.Lock()
	if db, exists := testDBCache[rootName]; exists {
		testDBCacheMu.Unlock()
		return db
	}
	testDBCacheMu.Unlock()

	sanitizedName := strings.ReplaceAll(rootName, "/", "_")
	dsn := fmt.Sprintf("file:test_%s_%d?mode=memory&cache=shared", sanitizedName, time.Now().UnixNano())

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("testsupport: failed to open test database: %v", err)
	}

	db.Exec("PRAGMA foreign_keys = ON")
	db.Exec("PRAGMA journal_mode = WAL")

	if err := db.AutoMigrate(allModels()...); err != nil {
		t.Fatalf("testsupport: failed to migrate models: %v", err)
	}

	testDBCacheMu.Lock()
	testDBCache[rootName] = db
	testDBCacheMu.Unlock()

	t.Cleanup(func() {
		testDBCacheMu.Lock()
		delete(testDBCache, rootName)
		testDBCacheMu.Unlock()
		sqlDB, err := db.DB()
		if err == nil {
			sqlDB.Close()
		}
	})

	return db
}

// SetupTestDBManager creates a test DB manager using cartridge's testsupport.
func SetupTestDBManager(t *testing.T) (*TestDBManager, *slog.Logger) {
	cfg := config.GetConfig()
	if cfg.Environment != config.Test {
		t.Fatalf("CRITICAL: Tests must run in test environment! Current: %s. Set LEADLENS_ENV=test", cfg.Environment)
	}

	db := SetupTestDB(t)
	return NewTestDBManager(db), GetLogger()
}

// GetLogger returns a test logger that only surfaces errors.
func GetLogger() *slog.Logger {
	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError})
	return slog.New(handler)
}

// CreateTestVisitor creates a visitor row for tests.
func CreateTestVisitor(db *gorm.DB, fingerprint, deviceType string, at time.Time) visitors.Visitor {
	var visitor visitors.Visitor
	if db.Where("fingerprint = ?", fingerprint).First(&visitor).Error == nil {
		return visitor
	}
	visitor = visitors.Visitor{
		Fingerprint:  fingerprint,
		UserAgent:    "Mozilla/5.0 (test)",
		DeviceType:   deviceType,
		FirstVisit:   at,
		LastActivity: at,
	}
	db.Create(&visitor)
	return visitor
}

// CreateTestSession creates a session row for tests.
func CreateTestSession(db *gorm.DB, sessionID string, visitorID uint, start time.Time, converted bool) visitors.Session {
	session := visitors.Session{
		SessionID:   sessionID,
		VisitorID:   visitorID,
		StartTime:   start,
		EndTime:     start.Add(2 * time.Minute),
		EntryURL:    "https://example.com",
		PagesViewed: 1,
		IsConverted: converted,
	}
	session.DurationMinutes = session.EndTime.Sub(session.StartTime).Minutes()
	db.Create(&session)
	return session
}

// CreateTestEvent stores an ingested event row for tests.
func CreateTestEvent(db *gorm.DB, sessionID, eventType, payload string, at time.Time) tracking.IngestedEvent {
	event := tracking.IngestedEvent{
		SessionID: sessionID,
		VisitorID: "test-visitor",
		Type:      eventType,
		Payload:   payload,
		Timestamp: at,
		CreatedAt: at,
	}
	db.Create(&event)
	return event
}

// CleanAllTables clears all non-system tables in the database.
func CleanAllTables(db *gorm.DB) {
	var tableNames []string
	db.Raw("SELECT name FROM sqlite_master WHERE type='table' AND name NOT LIKE 'sqlite_%'").Scan(&tableNames)

	if len(tableNames) == 0 {
		return
	}

	db.Exec("PRAGMA foreign_keys = OFF")
	defer db.Exec("PRAGMA foreign_keys = ON")

	db.Transaction(func(tx *gorm.DB) error {
		for _, table := range tableNames {
			tx.Exec("DELETE FROM " + table)
			tx.Exec("DELETE FROM sqlite_sequence WHERE name=?", table)
		}
		return nil
	})
}
