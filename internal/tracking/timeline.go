package tracking

import (
	"fmt"
	"sort"
	"strings"
)

// BuildTimeline orders events chronologically and classifies each one.
// The sort is stable so events sharing a timestamp keep their client
// emission order. One RawEvent yields exactly one node; an empty input
// yields an empty (non-nil) slice.
func BuildTimeline(events []RawEvent) []ClassifiedNode {
	ordered := make([]RawEvent, len(events))
	copy(ordered, events)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Timestamp.Before(ordered[j].Timestamp)
	})

	nodes := make([]ClassifiedNode, 0, len(ordered))
	for _, event := range ordered {
		c := Classify(event)
		label, value := describeEvent(event, c)
		nodes = append(nodes, ClassifiedNode{
			ID:        event.ID,
			SessionID: event.SessionID,
			Type:      event.Type,
			Timestamp: event.Timestamp,
			Category:  c.Category,
			Variant:   c.Variant,
			Label:     label,
			Value:     value,
		})
	}
	return nodes
}

// TruncateTimeline returns the first limit nodes for preview contexts.
// A non-positive limit returns the full timeline.
func TruncateTimeline(nodes []ClassifiedNode, limit int) []ClassifiedNode {
	if limit <= 0 || len(nodes) <= limit {
		return nodes
	}
	return nodes[:limit]
}

// describeEvent derives the display label/value pair for a node.
func describeEvent(event RawEvent, c Classification) (string, string) {
	switch event.Type {
	case EventTypePageView:
		return "Page view", ResolveString(event, "url")
	case EventTypeClick:
		target := ResolveString(event, "elementId")
		if target == "" {
			target = ResolveString(event, "elementType")
		}
		return "Click", target
	case EventTypeScroll:
		if depth, ok := scrollDepthOf(event); ok {
			return "Scroll", fmt.Sprintf("%.0f%%", depth)
		}
		return "Scroll", ""
	case EventTypeFormSubmit:
		return "Form submitted", ResolveString(event, "formId")
	case EventTypeTimeOnPage:
		if seconds, ok := ResolveFloat(event, "totalTimeSeconds"); ok {
			return "Time on page", fmt.Sprintf("%.0fs", seconds)
		}
		return "Time on page", ""
	case EventTypeExitIntent:
		return "Exit intent", ""
	case EventTypePageVisibility:
		if ResolveBool(event, "isVisible") {
			return "Page visible", ""
		}
		return "Page hidden", ""
	case EventTypeSessionEnd:
		return "Session ended", ""
	case EventTypeCustom:
		name := ResolveString(event, "name")
		if name == "" {
			name = "custom"
		}
		return humanize(name), ""
	default:
		if c.Category == CategoryForm {
			return "Form activity", ResolveString(event, "interactionType")
		}
		return humanize(event.Type), ""
	}
}

// scrollDepthOf probes the scroll-depth field aliases used by different
// snippet versions.
func scrollDepthOf(event RawEvent) (float64, bool) {
	for _, key := range []string{"scrollDepth", "scrollPercentage", "depth", "percent"} {
		if depth, ok := ResolveFloat(event, key); ok {
			return depth, true
		}
	}
	return 0, false
}

func humanize(name string) string {
	name = strings.ReplaceAll(name, "_", " ")
	if name == "" {
		return "Event"
	}
	return strings.ToUpper(name[:1]) + name[1:]
}
