// Package insights derives prioritized, human-readable findings from
// analytics rollups, optionally comparing against the prior period.
package insights

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"leadlens/internal/analytics"
)

// Priority levels, highest first in output.
const (
	PriorityHigh   = "high"
	PriorityMedium = "medium"
	PriorityLow    = "low"
)

var priorityRank = map[string]int{
	PriorityHigh:   0,
	PriorityMedium: 1,
	PriorityLow:    2,
}

// Insight is one notable signal for the dashboard. Change is a
// percentage delta against the previous period and only present for
// comparison insights.
type Insight struct {
	Type     string   `json:"type"`
	Priority string   `json:"priority"`
	Title    string   `json:"title"`
	Message  string   `json:"message"`
	Value    float64  `json:"value"`
	Change   *float64 `json:"change,omitempty"`
}

// Thresholds for signal detection.
const (
	severeDropOffPercent   = 50.0
	lowConfidenceThreshold = 40.0
	lowEngagementThreshold = 30.0
	highBounceThreshold    = 70.0
	segmentLagFactor       = 0.5
	notableChangePercent   = 10.0
	minSegmentSessions     = 5
	minPatternFrequency    = 3
	patternLiftFactor      = 1.5
)

// Generate derives insights from the current rollup. previous may be
// nil for the first-ever period; comparison insights are then simply
// omitted. Output is sorted by priority, ties broken by the magnitude
// of value or change, descending.
func Generate(current analytics.AdvancedAnalytics, previous *analytics.AdvancedAnalytics) []Insight {
	out := []Insight{}
	out = append(out, thresholdInsights(current)...)
	if previous != nil {
		out = append(out, comparisonInsights(current, previous)...)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if priorityRank[out[i].Priority] != priorityRank[out[j].Priority] {
			return priorityRank[out[i].Priority] < priorityRank[out[j].Priority]
		}
		return magnitude(out[i]) > magnitude(out[j])
	})
	return out
}

func magnitude(insight Insight) float64 {
	if insight.Change != nil {
		return math.Abs(*insight.Change)
	}
	return math.Abs(insight.Value)
}

func thresholdInsights(current analytics.AdvancedAnalytics) []Insight {
	var out []Insight

	// Funnel bottleneck with material value loss.
	for _, step := range current.FunnelAnalysis.Steps {
		if step.Name == current.FunnelAnalysis.Bottleneck && step.DropOffRate > severeDropOffPercent && step.Entries > 0 {
			out = append(out, Insight{
				Type:     "funnel_bottleneck",
				Priority: PriorityHigh,
				Title:    "Severe funnel drop-off",
				Message:  fmt.Sprintf("%.0f%% of visitors drop off at the %s step", step.DropOffRate, step.Name),
				Value:    step.DropOffRate,
			})
		}
	}

	// Weak sample behind the numbers.
	if current.Confidence < lowConfidenceThreshold && current.SampleSize > 0 {
		out = append(out, Insight{
			Type:     "low_confidence",
			Priority: PriorityHigh,
			Title:    "Low data confidence",
			Message:  fmt.Sprintf("Only %d sessions in this period; treat these metrics as indicative", current.SampleSize),
			Value:    current.Confidence,
		})
	}

	if current.Engagement.Overall < lowEngagementThreshold && current.SampleSize > 0 {
		out = append(out, Insight{
			Type:     "low_engagement",
			Priority: PriorityMedium,
			Title:    "Engagement is low",
			Message:  fmt.Sprintf("Overall engagement scored %.0f out of 100", current.Engagement.Overall),
			Value:    current.Engagement.Overall,
		})
	}

	if current.SessionQuality.BounceRate > highBounceThreshold {
		out = append(out, Insight{
			Type:     "high_bounce",
			Priority: PriorityMedium,
			Title:    "High bounce rate",
			Message:  fmt.Sprintf("%.0f%% of sessions leave without a second page or interaction", current.SessionQuality.BounceRate),
			Value:    current.SessionQuality.BounceRate,
		})
	}

	// Device segments converting well below the best segment.
	out = append(out, segmentLagInsights(current)...)

	// A navigation path converting well above the overall rate is an
	// opportunity to promote.
	overall := current.FunnelAnalysis.OverallConversion
	for _, pattern := range current.BehavioralHeatmap.NavigationPatterns {
		if pattern.Frequency >= minPatternFrequency && pattern.ConversionRate > overall*patternLiftFactor && pattern.ConversionRate > 0 {
			out = append(out, Insight{
				Type:     "pattern_opportunity",
				Priority: PriorityMedium,
				Title:    "High-converting navigation path",
				Message: fmt.Sprintf("Visitors following %s convert at %.0f%%, well above the %.0f%% overall rate",
					strings.Join(pattern.Sequence, " > "), pattern.ConversionRate, overall),
				Value: pattern.ConversionRate,
			})
			break
		}
	}

	// Recurring full-page reads are worth knowing about too.
	if current.BehavioralHeatmap.ScrollBehavior.CompletionRate > 0 {
		out = append(out, Insight{
			Type:     "content_completion",
			Priority: PriorityLow,
			Title:    "Content read-through",
			Message:  fmt.Sprintf("%.0f%% of scrolling sessions read to the bottom of the page", current.BehavioralHeatmap.ScrollBehavior.CompletionRate),
			Value:    current.BehavioralHeatmap.ScrollBehavior.CompletionRate,
		})
	}

	return out
}

func segmentLagInsights(current analytics.AdvancedAnalytics) []Insight {
	var best *analytics.Segment
	for i := range current.UserSegmentation.Segments {
		segment := &current.UserSegmentation.Segments[i]
		if segment.Sessions < minSegmentSessions {
			continue
		}
		if best == nil || segment.ConversionRate > best.ConversionRate {
			best = segment
		}
	}
	if best == nil || best.ConversionRate == 0 {
		return nil
	}

	var out []Insight
	for _, segment := range current.UserSegmentation.Segments {
		if segment.Name == best.Name || segment.Sessions < minSegmentSessions {
			continue
		}
		if segment.ConversionRate < best.ConversionRate*segmentLagFactor {
			out = append(out, Insight{
				Type:     "segment_lagging",
				Priority: PriorityMedium,
				Title:    fmt.Sprintf("%s conversion lagging %s", capitalize(segment.Name), best.Name),
				Message: fmt.Sprintf("%s sessions convert at %.1f%% versus %.1f%% on %s",
					capitalize(segment.Name), segment.ConversionRate, best.ConversionRate, best.Name),
				Value: best.ConversionRate - segment.ConversionRate,
			})
		}
	}
	return out
}

func capitalize(name string) string {
	if name == "" {
		return name
	}
	return strings.ToUpper(name[:1]) + name[1:]
}

// comparedMetric is one field checked against the previous period.
type comparedMetric struct {
	name     string
	insight  string
	current  float64
	previous float64
}

func comparisonInsights(current analytics.AdvancedAnalytics, previous *analytics.AdvancedAnalytics) []Insight {
	metrics := []comparedMetric{
		{"Engagement", "engagement_change", current.Engagement.Overall, previous.Engagement.Overall},
		{"Conversion rate", "conversion_change", current.SessionQuality.ConversionRate, previous.SessionQuality.ConversionRate},
		{"Session volume", "volume_change", float64(current.SampleSize), float64(previous.SampleSize)},
		{"Bounce rate", "bounce_change", current.SessionQuality.BounceRate, previous.SessionQuality.BounceRate},
		{"Scroll depth", "depth_change", current.BehavioralHeatmap.ScrollBehavior.AverageDepth, previous.BehavioralHeatmap.ScrollBehavior.AverageDepth},
	}

	var out []Insight
	for _, metric := range metrics {
		if metric.previous == 0 {
			continue
		}
		change := (metric.current - metric.previous) / metric.previous * 100
		change = math.Round(change*100) / 100
		if math.Abs(change) < notableChangePercent {
			continue
		}

		direction := "up"
		if change < 0 {
			direction = "down"
		}
		priority := PriorityLow
		if change < 0 && (metric.insight == "engagement_change" || metric.insight == "conversion_change") {
			priority = PriorityHigh
		} else if math.Abs(change) >= 2*notableChangePercent {
			priority = PriorityMedium
		}

		c := change
		out = append(out, Insight{
			Type:     metric.insight,
			Priority: priority,
			Title:    fmt.Sprintf("%s %s %.0f%%", metric.name, direction, math.Abs(change)),
			Message: fmt.Sprintf("%s moved from %.1f to %.1f versus the previous period",
				metric.name, metric.previous, metric.current),
			Value:  metric.current,
			Change: &c,
		})
	}
	return out
}
