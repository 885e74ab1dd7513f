package visitors

import (
	"time"

	"leadlens/internal/pkg/geoip"
)

// Visitor is a tracked user identified by a browser fingerprint. A
// fingerprint approximates one person on one device; it is not a
// verified identity.
type Visitor struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	Fingerprint   string    `gorm:"uniqueIndex;size:64;not null" json:"fingerprint"`
	IP            string    `gorm:"size:45" json:"ip"`
	UserAgent     string    `json:"userAgent"`
	DeviceType    string    `gorm:"index" json:"deviceType"`
	Location      string    `gorm:"index" json:"location"`
	Referrer      string    `json:"referrer"`
	FirstVisit    time.Time `gorm:"index" json:"firstVisit"`
	LastActivity  time.Time `gorm:"index" json:"lastActivity"`
	SessionsCount int       `json:"sessionsCount"`
	CreatedAt     time.Time `json:"-"`
	UpdatedAt     time.Time `json:"-"`
}

// IsActive reports whether the visitor showed activity within the
// recency window ending at now.
func (v *Visitor) IsActive(now time.Time, window time.Duration) bool {
	return now.Sub(v.LastActivity) <= window
}

// LocationName maps the stored country code to a display name.
func (v *Visitor) LocationName() string {
	return geoip.CountryName(v.Location)
}

// Session is one browsing session owned by a visitor. Sessions are
// created on the first event carrying a new client session id and
// updated as further events accrue; they are never hard-deleted, reads
// filter by time range instead.
type Session struct {
	ID                uint      `gorm:"primaryKey" json:"-"`
	SessionID         string    `gorm:"uniqueIndex;size:64;not null" json:"id"`
	VisitorID         uint      `gorm:"index;not null" json:"userId"`
	StartTime         time.Time `gorm:"index" json:"startTime"`
	EndTime           time.Time `json:"endTime"`
	DurationMinutes   float64   `json:"duration"`
	PagesViewed       int       `json:"pagesViewed"`
	InteractionsCount int       `json:"interactionsCount"`
	EntryURL          string    `json:"entryUrl"`
	ExitURL           *string   `json:"exitUrl"`
	IsConverted       bool      `gorm:"index" json:"isConverted"`
	CreatedAt         time.Time `json:"-"`
	UpdatedAt         time.Time `json:"-"`
}
