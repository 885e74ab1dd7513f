package pages

import "time"

// LandingPage is one landing page metric record. The raw URL may still
// carry click-id and UTM noise; NormalizedURL is the canonical merge
// key. Records sharing a NormalizedURL are folded together by
// GroupByNormalizedURL before presentation.
type LandingPage struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	URL            string    `gorm:"index;not null" json:"url"`
	NormalizedURL  string    `gorm:"index" json:"normalizedUrl"`
	Title          string    `json:"title"`
	TotalVisits    int       `json:"totalVisits"`
	UniqueUsers    int       `json:"uniqueUsers"`
	ConversionRate float64   `json:"conversionRate"`
	LastAccess     time.Time `json:"lastAccess"`
	CreatedAt      time.Time `json:"-"`
	UpdatedAt      time.Time `json:"-"`

	// OriginalUrls is populated by grouping, not persisted.
	OriginalUrls []string `gorm:"-" json:"originalUrls,omitempty"`
}
