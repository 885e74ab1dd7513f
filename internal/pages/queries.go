package pages

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// LandingPagesInRange returns grouped landing page records accessed
// inside [from, to). Grouping happens after the fetch so raw rows stay
// untouched in storage.
func LandingPagesInRange(db *gorm.DB, from, to time.Time) ([]LandingPage, error) {
	var rows []LandingPage
	err := db.Where("last_access >= ? AND last_access < ?", from, to).
		Order("id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query landing pages: %w", err)
	}
	return GroupByNormalizedURL(rows), nil
}

// LandingPageByID loads a single stored landing page row.
func LandingPageByID(db *gorm.DB, id uint) (*LandingPage, error) {
	var page LandingPage
	if err := db.First(&page, id).Error; err != nil {
		return nil, fmt.Errorf("failed to load landing page %d: %w", id, err)
	}
	return &page, nil
}

// RecordVisit upserts the landing page row for a raw URL, bumping its
// visit counters. The normalized URL is stored alongside so grouping
// on read does not re-derive it for persisted rows.
func RecordVisit(db *gorm.DB, rawURL, title string, uniqueUser bool, at time.Time) error {
	normalized := NormalizeURL(rawURL)

	var page LandingPage
	err := db.Where("url = ?", rawURL).First(&page).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		unique := 0
		if uniqueUser {
			unique = 1
		}
		page = LandingPage{
			URL:           rawURL,
			NormalizedURL: normalized,
			Title:         title,
			TotalVisits:   1,
			UniqueUsers:   unique,
			LastAccess:    at,
		}
		if createErr := db.Create(&page).Error; createErr != nil {
			return fmt.Errorf("failed to create landing page: %w", createErr)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load landing page: %w", err)
	}

	updates := map[string]any{
		"total_visits": gorm.Expr("total_visits + 1"),
		"last_access":  at,
	}
	if uniqueUser {
		updates["unique_users"] = gorm.Expr("unique_users + 1")
	}
	if title != "" && page.Title == "" {
		updates["title"] = title
	}
	if err := db.Model(&LandingPage{}).Where("id = ?", page.ID).Updates(updates).Error; err != nil {
		return fmt.Errorf("failed to update landing page: %w", err)
	}
	return nil
}
