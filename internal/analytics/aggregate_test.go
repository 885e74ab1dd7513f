package analytics_test

import (
	"encoding/json"
	"math"
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"leadlens/internal/analytics"
	"leadlens/internal/timeframe"
	"leadlens/internal/tracking"
	"leadlens/internal/visitors"
)

func fixtureInput() analytics.Input {
	base := time.Date(2024, 3, 15, 9, 0, 0, 0, time.UTC)
	exitContact := "https://site.com/contact"

	sessions := []visitors.Session{
		{
			SessionID: "s1", VisitorID: 1, StartTime: base, EndTime: base.Add(5 * time.Minute),
			DurationMinutes: 5, PagesViewed: 3, InteractionsCount: 6,
			EntryURL: "https://site.com", ExitURL: &exitContact, IsConverted: true,
		},
		{
			SessionID: "s2", VisitorID: 2, StartTime: base.Add(2 * time.Hour), EndTime: base.Add(2*time.Hour + time.Minute),
			DurationMinutes: 1, PagesViewed: 1, InteractionsCount: 0,
			EntryURL: "https://site.com", IsConverted: false,
		},
		{
			SessionID: "s3", VisitorID: 1, StartTime: base.Add(26 * time.Hour), EndTime: base.Add(26*time.Hour + 3*time.Minute),
			DurationMinutes: 3, PagesViewed: 2, InteractionsCount: 2,
			EntryURL: "https://site.com", IsConverted: false,
		},
	}

	batchVisitors := []visitors.Visitor{
		{ID: 1, Fingerprint: "f1", DeviceType: "desktop"},
		{ID: 2, Fingerprint: "f2", DeviceType: "mobile"},
	}

	events := []tracking.RawEvent{
		{ID: 1, SessionID: "s1", Type: "page_view", Timestamp: base, Data: map[string]any{"url": "https://site.com/"}},
		{ID: 2, SessionID: "s1", Type: "click", Timestamp: base.Add(30 * time.Second), Data: map[string]any{"elementType": "button", "elementId": "cta"}},
		{ID: 3, SessionID: "s1", Type: "scroll", Timestamp: base.Add(time.Minute), Data: map[string]any{"scrollDepth": 100.0, "scrollTypes": []any{"bottom"}}},
		{ID: 4, SessionID: "s1", Type: "page_view", Timestamp: base.Add(2 * time.Minute), Data: map[string]any{"url": "https://site.com/contact"}},
		{ID: 5, SessionID: "s1", Type: "form_submit", Timestamp: base.Add(3 * time.Minute), Data: map[string]any{"formId": "contactForm"}},
		{ID: 6, SessionID: "s1", Type: "event", Timestamp: base.Add(4 * time.Minute), Data: map[string]any{"name": "lead_generated"}},
		{ID: 7, SessionID: "s1", Type: "time_on_page", Timestamp: base.Add(5 * time.Minute), Data: map[string]any{"url": "https://site.com/", "totalTimeSeconds": 120.0}},

		{ID: 8, SessionID: "s2", Type: "page_view", Timestamp: base.Add(2 * time.Hour), Data: map[string]any{"url": "https://site.com/?fbclid=xyz"}},
		{ID: 9, SessionID: "s2", Type: "scroll", Timestamp: base.Add(2*time.Hour + 30*time.Second), Data: map[string]any{"scrollDepth": 25.0}},

		{ID: 10, SessionID: "s3", Type: "page_view", Timestamp: base.Add(26 * time.Hour), Data: map[string]any{"url": "https://site.com/"}},
		{ID: 11, SessionID: "s3", Type: "click", Timestamp: base.Add(26*time.Hour + time.Minute), Data: map[string]any{"elementType": "button", "elementId": "cta"}},
		{ID: 12, SessionID: "s3", Type: "page_view", Timestamp: base.Add(26*time.Hour + 2*time.Minute), Data: map[string]any{"url": "https://site.com/pricing"}},
	}

	return analytics.Input{
		PeriodKey: "2024-W11",
		Period:    timeframe.PeriodWeekly,
		Sessions:  sessions,
		Events:    events,
		Visitors:  batchVisitors,
	}
}

func TestAggregateIdempotent(t *testing.T) {
	input := fixtureInput()
	first := analytics.Aggregate(input)
	second := analytics.Aggregate(input)
	assert.True(t, reflect.DeepEqual(first, second), "aggregate must be deterministic")
}

func TestAggregateBasics(t *testing.T) {
	rollup := analytics.Aggregate(fixtureInput())

	assert.Equal(t, "2024-W11", rollup.PeriodKey)
	assert.Equal(t, "weekly", rollup.Period)
	assert.Equal(t, 3, rollup.SampleSize)
	assert.Greater(t, rollup.Confidence, 0.0)
	assert.Less(t, rollup.Confidence, 60.0, "small samples must report low confidence")
}

func TestAggregateTemporalPatterns(t *testing.T) {
	rollup := analytics.Aggregate(fixtureInput())
	patterns := rollup.TemporalPatterns

	require.Len(t, patterns.Hourly, 24)
	require.Len(t, patterns.Weekly, 7)

	// s1 starts at 09:00 UTC; s2 and s3 both start at 11:00 UTC.
	assert.Equal(t, 1, patterns.Hourly[9].Visits)
	assert.Equal(t, 2, patterns.Hourly[11].Visits)
	assert.Equal(t, 1, patterns.Hourly[9].Conversions)

	// 2024-03-15 is a Friday (weekday 5), the 16th a Saturday.
	assert.Equal(t, 2, patterns.Weekly[5].Visits)
	assert.Equal(t, 1, patterns.Weekly[6].Visits)

	var totalPageViews int
	for _, bucket := range patterns.Hourly {
		totalPageViews += bucket.PageViews
	}
	assert.Equal(t, 5, totalPageViews)
}

func TestAggregateEngagementBounds(t *testing.T) {
	rollup := analytics.Aggregate(fixtureInput())
	e := rollup.Engagement

	for _, score := range []float64{e.Overall, e.TimeScore, e.InteractionScore, e.DepthScore, e.ConversionScore} {
		assert.GreaterOrEqual(t, score, 0.0)
		assert.LessOrEqual(t, score, 100.0)
	}
	assert.Greater(t, e.Overall, 0.0)
}

func TestAggregateEngagementMonotonic(t *testing.T) {
	input := fixtureInput()
	baseline := analytics.Aggregate(input).Engagement.Overall

	// Doubling every session's duration must not decrease the score.
	boosted := fixtureInput()
	for i := range boosted.Sessions {
		boosted.Sessions[i].DurationMinutes *= 2
	}
	assert.GreaterOrEqual(t, analytics.Aggregate(boosted).Engagement.Overall, baseline)

	// Converting every session must not decrease it either.
	converted := fixtureInput()
	for i := range converted.Sessions {
		converted.Sessions[i].IsConverted = true
	}
	assert.GreaterOrEqual(t, analytics.Aggregate(converted).Engagement.Overall, baseline)
}

func TestAggregateHotspots(t *testing.T) {
	rollup := analytics.Aggregate(fixtureInput())
	hotspots := rollup.BehavioralHeatmap.Hotspots

	require.NotEmpty(t, hotspots)
	top := hotspots[0]
	assert.Equal(t, "cta", top.ElementID)
	assert.Equal(t, 2, top.Interactions)
	// Both clicks came from sessions owned by visitor 1.
	assert.Equal(t, 1, top.UniqueUsers)
	assert.Greater(t, top.HeatScore, 0.0)
}

func TestAggregateScrollBehavior(t *testing.T) {
	rollup := analytics.Aggregate(fixtureInput())
	scroll := rollup.BehavioralHeatmap.ScrollBehavior

	// Two sessions scrolled: depths 100 and 25.
	assert.InDelta(t, 62.5, scroll.AverageDepth, 0.01)
	assert.InDelta(t, 50.0, scroll.CompletionRate, 0.01)
	require.Len(t, scroll.DropOffPoints, 10)

	// The 25% depth session stopped in the third decile.
	assert.InDelta(t, 50.0, scroll.DropOffPoints[2].DropOffRate, 0.01)
}

func TestAggregateFunnel(t *testing.T) {
	rollup := analytics.Aggregate(fixtureInput())
	f := rollup.FunnelAnalysis

	require.Len(t, f.Steps, 4)
	assert.Equal(t, "Visit", f.Steps[0].Name)
	assert.Equal(t, 3, f.Steps[0].Entries)
	assert.Equal(t, 2, f.Steps[1].Entries) // s1 and s3 engaged
	assert.Equal(t, 1, f.Steps[2].Entries) // only s1 touched a form
	assert.Equal(t, 1, f.Steps[3].Entries) // only s1 converted
	assert.NotEmpty(t, f.Bottleneck)
	assert.InDelta(t, 33.33, f.OverallConversion, 0.01)
}

func TestAggregateNavigationPatterns(t *testing.T) {
	rollup := analytics.Aggregate(fixtureInput())
	patterns := rollup.BehavioralHeatmap.NavigationPatterns

	require.NotEmpty(t, patterns)
	// The s2 fbclid URL normalizes into the same page as plain visits.
	for _, p := range patterns {
		require.Len(t, p.Sequence, 2)
		assert.NotContains(t, p.Sequence[0], "fbclid")
	}
}

func TestAggregateSegmentation(t *testing.T) {
	rollup := analytics.Aggregate(fixtureInput())
	segments := rollup.UserSegmentation.Segments

	require.Len(t, segments, 2)
	// Deterministic name order.
	assert.Equal(t, "desktop", segments[0].Name)
	assert.Equal(t, "mobile", segments[1].Name)
	assert.Equal(t, 2, segments[0].Sessions)
	assert.InDelta(t, 50.0, segments[0].ConversionRate, 0.01)
	assert.Equal(t, 0.0, segments[1].ConversionRate)
}

func TestAggregateZeroInput(t *testing.T) {
	rollup := analytics.Aggregate(analytics.Input{
		PeriodKey: "2024-03-15",
		Period:    timeframe.PeriodDaily,
	})

	assert.Equal(t, 0, rollup.SampleSize)
	assert.Greater(t, rollup.Confidence, 0.0, "confidence floor applies even with no data")
	require.Len(t, rollup.TemporalPatterns.Hourly, 24)
	require.Len(t, rollup.TemporalPatterns.Weekly, 7)

	// A NaN or Inf anywhere would make Marshal fail or corrupt the JSON.
	encoded, err := json.Marshal(rollup)
	require.NoError(t, err)
	assertNoBadFloats(t, reflect.ValueOf(rollup))
	// Empty collections serialize as [] rather than null.
	assert.Contains(t, string(encoded), `"contentPerformance":[]`)
	assert.Contains(t, string(encoded), `"hotspots":[]`)
}

func TestConfidenceMonotonic(t *testing.T) {
	previous := -1.0
	for sessions := 0; sessions <= 120; sessions += 5 {
		input := analytics.Input{PeriodKey: "k", Period: timeframe.PeriodDaily}
		base := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
		for i := 0; i < sessions; i++ {
			input.Sessions = append(input.Sessions, visitors.Session{
				SessionID: string(rune('a' + i%26)), StartTime: base,
			})
		}
		confidence := analytics.Aggregate(input).Confidence
		assert.GreaterOrEqual(t, confidence, previous)
		assert.LessOrEqual(t, confidence, 100.0)
		previous = confidence
	}
}

// assertNoBadFloats walks a value recursively checking every float for
// NaN and Inf.
func assertNoBadFloats(t *testing.T, v reflect.Value) {
	t.Helper()
	switch v.Kind() {
	case reflect.Float32, reflect.Float64:
		f := v.Float()
		assert.False(t, math.IsNaN(f), "NaN in aggregate output")
		assert.False(t, math.IsInf(f, 0), "Inf in aggregate output")
	case reflect.Struct:
		for i := 0; i < v.NumField(); i++ {
			assertNoBadFloats(t, v.Field(i))
		}
	case reflect.Slice, reflect.Array:
		for i := 0; i < v.Len(); i++ {
			assertNoBadFloats(t, v.Index(i))
		}
	case reflect.Ptr:
		if !v.IsNil() {
			assertNoBadFloats(t, v.Elem())
		}
	}
}
