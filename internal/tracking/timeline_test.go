package tracking_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"leadlens/internal/tracking"
)

func TestBuildTimelineOrdering(t *testing.T) {
	base := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)
	events := []tracking.RawEvent{
		{ID: 3, Type: "click", Timestamp: base.Add(2 * time.Minute)},
		{ID: 1, Type: "page_view", Timestamp: base},
		{ID: 2, Type: "scroll", Timestamp: base.Add(time.Minute)},
	}

	nodes := tracking.BuildTimeline(events)
	require.Len(t, nodes, 3)
	assert.Equal(t, uint(1), nodes[0].ID)
	assert.Equal(t, uint(2), nodes[1].ID)
	assert.Equal(t, uint(3), nodes[2].ID)

	for i := 1; i < len(nodes); i++ {
		assert.False(t, nodes[i].Timestamp.Before(nodes[i-1].Timestamp))
	}
}

func TestBuildTimelineStableOnEqualTimestamps(t *testing.T) {
	ts := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)
	events := []tracking.RawEvent{
		{ID: 10, Type: "click", Timestamp: ts},
		{ID: 11, Type: "click", Timestamp: ts},
		{ID: 12, Type: "click", Timestamp: ts},
	}

	nodes := tracking.BuildTimeline(events)
	require.Len(t, nodes, 3)
	assert.Equal(t, uint(10), nodes[0].ID)
	assert.Equal(t, uint(11), nodes[1].ID)
	assert.Equal(t, uint(12), nodes[2].ID)
}

func TestBuildTimelineEmpty(t *testing.T) {
	nodes := tracking.BuildTimeline(nil)
	assert.NotNil(t, nodes)
	assert.Empty(t, nodes)
}

func TestBuildTimelineConversionFlow(t *testing.T) {
	base := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)
	events := []tracking.RawEvent{
		{ID: 1, Type: "page_view", Timestamp: base, Data: map[string]any{"url": "https://site.com/"}},
		{ID: 2, Type: "click", Timestamp: base.Add(10 * time.Second), Data: map[string]any{"elementId": "cta"}},
		{ID: 3, Type: "page_view", Timestamp: base.Add(20 * time.Second), Data: map[string]any{"url": "https://site.com/contact"}},
		{ID: 4, Type: "form_submit", Timestamp: base.Add(40 * time.Second), Data: map[string]any{"formId": "contactForm"}},
		{ID: 5, Type: "event", Timestamp: base.Add(50 * time.Second), Data: map[string]any{"name": "lead_generated"}},
	}

	nodes := tracking.BuildTimeline(events)
	require.Len(t, nodes, 5)

	want := []tracking.Category{
		tracking.CategoryInteraction,
		tracking.CategoryInteraction,
		tracking.CategoryInteraction,
		tracking.CategoryForm,
		tracking.CategoryConversion,
	}
	for i, category := range want {
		assert.Equal(t, category, nodes[i].Category, "node %d", i)
	}
}

func TestBuildTimelineBounceSession(t *testing.T) {
	// A bounce: one page view, nothing else.
	events := []tracking.RawEvent{
		{ID: 1, Type: "page_view", Timestamp: time.Now().UTC(), Data: map[string]any{"url": "https://site.com/"}},
	}
	nodes := tracking.BuildTimeline(events)
	require.Len(t, nodes, 1)
	assert.Equal(t, tracking.CategoryInteraction, nodes[0].Category)
	assert.Equal(t, "Page view", nodes[0].Label)
}

func TestTruncateTimeline(t *testing.T) {
	nodes := make([]tracking.ClassifiedNode, 10)
	assert.Len(t, tracking.TruncateTimeline(nodes, 3), 3)
	assert.Len(t, tracking.TruncateTimeline(nodes, 0), 10)
	assert.Len(t, tracking.TruncateTimeline(nodes, 20), 10)
}

func TestResolveFieldFallbackChain(t *testing.T) {
	e := tracking.RawEvent{
		Type: "event",
		Data: map[string]any{
			"direct": "top",
			"metadata": map[string]any{
				"nested":   "from-metadata",
				"shadowed": "metadata-wins",
			},
			"formData": map[string]any{
				"formOnly": "from-form",
				"shadowed": "form-loses",
			},
			"raw": map[string]any{
				"deep": "from-raw",
			},
		},
	}

	assert.Equal(t, "top", tracking.ResolveString(e, "direct"))
	assert.Equal(t, "from-metadata", tracking.ResolveString(e, "nested"))
	assert.Equal(t, "from-form", tracking.ResolveString(e, "formOnly"))
	assert.Equal(t, "from-raw", tracking.ResolveString(e, "deep"))
	// metadata is probed before formData.
	assert.Equal(t, "metadata-wins", tracking.ResolveString(e, "shadowed"))
	assert.Nil(t, tracking.ResolveField(e, "missing"))
	assert.Nil(t, tracking.ResolveField(tracking.RawEvent{}, "anything"))
}

func TestResolveFloatCoercions(t *testing.T) {
	e := tracking.RawEvent{Data: map[string]any{
		"asFloat":  75.5,
		"asString": "42",
		"junk":     "not-a-number",
	}}

	v, ok := tracking.ResolveFloat(e, "asFloat")
	assert.True(t, ok)
	assert.Equal(t, 75.5, v)

	v, ok = tracking.ResolveFloat(e, "asString")
	assert.True(t, ok)
	assert.Equal(t, 42.0, v)

	_, ok = tracking.ResolveFloat(e, "junk")
	assert.False(t, ok)

	_, ok = tracking.ResolveFloat(e, "missing")
	assert.False(t, ok)
}
