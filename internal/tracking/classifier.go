package tracking

import "strings"

// Direct navigation marker event types (rule 1).
var navigationTypes = map[string]bool{
	EventTypeScroll:         true,
	EventTypeTimeOnPage:     true,
	EventTypeExitIntent:     true,
	EventTypePageVisibility: true,
	EventTypeSessionEnd:     true,
}

// Interaction type values that indicate form activity (rule 4).
var formInteractionTypes = map[string]bool{
	"typing":          true,
	"focus":           true,
	"blur":            true,
	"submit":          true,
	"filled":          true,
	"email_collected": true,
	"phone_collected": true,
}

// Custom event names that mark a completed lead or purchase (rule 5).
var conversionNames = map[string]bool{
	"lead_generated":     true,
	"lead_submitted":     true,
	"purchase":           true,
	"purchase_completed": true,
	"checkout_completed": true,
	"signup_completed":   true,
	"booking_confirmed":  true,
	"conversion":         true,
}

// Classification carries the category plus an optional variant tag.
type Classification struct {
	Category Category
	Variant  string
}

// Classify maps a raw event to its category. Pure and total: malformed
// payloads fall through the rule chain, unknown types land in
// CategoryInteraction, and no input causes an error.
func Classify(event RawEvent) Classification {
	// Rule 1: direct navigation markers by event type.
	if navigationTypes[event.Type] {
		return Classification{Category: CategoryNavigation, Variant: scrollVariant(event)}
	}

	// Rule 2: custom events whose name encodes a navigation signal.
	if event.Type == EventTypeCustom {
		name := ResolveString(event, "name")
		if strings.Contains(name, "scroll") ||
			strings.Contains(name, "time_on_page") ||
			strings.Contains(name, "exit_intent") ||
			name == "page_visibility" || name == "session_end" {
			return Classification{Category: CategoryNavigation}
		}
	}

	// Rule 3: scroll-depth, visibility, or dwell-time fields present.
	if HasAnyField(event, "scrollDepth", "scrollPercentage", "depth", "percent",
		"isVisible", "totalTimeSeconds", "timeOnPage") {
		return Classification{Category: CategoryNavigation}
	}

	// Rule 4: form submissions and form field activity.
	if event.Type == EventTypeFormSubmit || formInteractionTypes[ResolveString(event, "interactionType")] {
		return Classification{Category: CategoryForm}
	}

	// Rule 5: completed lead or purchase.
	if conversionNames[ResolveString(event, "name")] {
		return Classification{Category: CategoryConversion}
	}

	// Rule 6: everything else is a generic interaction.
	return Classification{Category: CategoryInteraction}
}

// scrollVariant tags scroll events whose scrollTypes payload includes
// "bottom", i.e. the visitor read to the end of the page.
func scrollVariant(event RawEvent) string {
	if event.Type != EventTypeScroll {
		return ""
	}
	for _, t := range resolveStringSlice(event, "scrollTypes") {
		if t == "bottom" {
			return VariantScrollBottom
		}
	}
	return ""
}
