package tracking

import "time"

// Event type strings as emitted by the tracking snippet. The set is
// open: producers may send variants we have never seen, so Type is a
// plain string rather than an enum.
const (
	EventTypePageView       = "page_view"
	EventTypeClick          = "click"
	EventTypeScroll         = "scroll"
	EventTypeFormSubmit     = "form_submit"
	EventTypeCustom         = "event"
	EventTypeTimeOnPage     = "time_on_page"
	EventTypeExitIntent     = "exit_intent"
	EventTypePageVisibility = "page_visibility"
	EventTypeSessionEnd     = "session_end"
)

// Category is the classification bucket for a raw event.
type Category string

const (
	CategoryNavigation  Category = "navigation"
	CategoryForm        Category = "form"
	CategoryConversion  Category = "conversion"
	CategoryInteraction Category = "interaction"
)

// VariantScrollBottom marks a scroll event that reached the bottom of
// the page, so full-page reads can be counted separately in rollups.
const VariantScrollBottom = "scroll_bottom"

// RawEvent is one client-captured interaction, decoded from storage or
// received at the ingestion endpoint. Data is an open key/value payload
// whose shape depends on Type; use ResolveField to probe it.
type RawEvent struct {
	ID        uint           `json:"id"`
	SessionID string         `json:"sessionId"`
	Type      string         `json:"type"`
	Timestamp time.Time      `json:"timestamp"`
	Data      map[string]any `json:"data"`
}

// ClassifiedNode is a RawEvent enriched for timeline display. Nodes are
// derived on read and never persisted.
type ClassifiedNode struct {
	ID        uint      `json:"id"`
	SessionID string    `json:"sessionId"`
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Category  Category  `json:"category"`
	Variant   string    `json:"variant,omitempty"`
	Label     string    `json:"label"`
	Value     string    `json:"value,omitempty"`
}

// IngestedEvent is the persisted form of a raw tracking event. Payload
// holds the event data as JSON text; it is decoded back into RawEvent
// by the query layer.
type IngestedEvent struct {
	ID        uint      `gorm:"primaryKey"`
	SessionID string    `gorm:"index;size:64;not null"`
	VisitorID string    `gorm:"index;size:64;not null"`
	Type      string    `gorm:"index;not null"`
	URL       string    `gorm:"index"`
	Payload   string    `gorm:"type:text"`
	Timestamp time.Time `gorm:"index;not null"`
	Processed bool      `gorm:"index;not null;default:false"`
	CreatedAt time.Time `gorm:"index"`
}
