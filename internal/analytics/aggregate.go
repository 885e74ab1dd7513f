package analytics

import (
	"math"
	"sort"
	"strings"

	"leadlens/internal/pages"
	"leadlens/internal/timeframe"
	"leadlens/internal/tracking"
	"leadlens/internal/visitors"
)

// Engagement component weights. Each component is normalized to 0-100
// before weighting, so the overall score stays in [0,100].
const (
	weightTime        = 0.30
	weightInteraction = 0.25
	weightDepth       = 0.25
	weightConversion  = 0.20
)

// Normalization ceilings for engagement components.
const (
	fullEngagementMinutes      = 10.0
	fullEngagementInteractions = 20.0
)

// Scroll classification thresholds, in seconds of dwell per percent of
// depth reached.
const (
	fastScrollSecondsPerPercent = 1.0
	slowReadSecondsPerPercent   = 5.0
)

// scrollCompletionDepth is the depth treated as a full page read.
const scrollCompletionDepth = 95.0

// confidenceFloor is reported even for empty samples so the dashboard
// always has a value to render.
const confidenceFloor = 10.0

// fullConfidenceSessions is the sample size at which confidence
// saturates at 100.
const fullConfidenceSessions = 50.0

// Input is a fully materialized batch for one aggregation window.
// Volumes are single-tenant dashboard scale, so no streaming is needed.
type Input struct {
	PeriodKey string
	Period    timeframe.Period
	Sessions  []visitors.Session
	Events    []tracking.RawEvent
	Visitors  []visitors.Visitor
}

// Aggregate computes the full behavioral rollup for one period. Pure
// and deterministic: identical input always produces identical output,
// and empty input yields a structurally complete zero-valued rollup.
func Aggregate(input Input) AdvancedAnalytics {
	ctx := newBatchContext(input)

	return AdvancedAnalytics{
		PeriodKey:          input.PeriodKey,
		Period:             string(input.Period),
		TemporalPatterns:   computeTemporalPatterns(ctx),
		Engagement:         computeEngagement(ctx),
		BehavioralHeatmap:  computeHeatmap(ctx),
		FunnelAnalysis:     computeFunnel(ctx),
		UserSegmentation:   computeSegmentation(ctx),
		ContentPerformance: computeContentPerformance(ctx),
		SessionQuality:     computeSessionQuality(ctx),
		Predictions:        computePredictions(ctx),
		Confidence:         confidenceFor(len(input.Sessions)),
		SampleSize:         len(input.Sessions),
	}
}

// batchContext precomputes the per-session indexes every
// sub-computation needs.
type batchContext struct {
	sessions        []visitors.Session
	events          []tracking.RawEvent
	eventsBySession map[string][]tracking.RawEvent
	sessionByID     map[string]*visitors.Session
	deviceByVisitor map[uint]string
	maxDepth        map[string]float64 // per session, 0-100
	hasScroll       map[string]bool
}

func newBatchContext(input Input) *batchContext {
	ctx := &batchContext{
		sessions:        input.Sessions,
		events:          input.Events,
		eventsBySession: make(map[string][]tracking.RawEvent),
		sessionByID:     make(map[string]*visitors.Session, len(input.Sessions)),
		deviceByVisitor: make(map[uint]string, len(input.Visitors)),
		maxDepth:        make(map[string]float64),
		hasScroll:       make(map[string]bool),
	}
	for i := range input.Sessions {
		s := &input.Sessions[i]
		ctx.sessionByID[s.SessionID] = s
	}
	for _, v := range input.Visitors {
		ctx.deviceByVisitor[v.ID] = v.DeviceType
	}
	for _, event := range input.Events {
		ctx.eventsBySession[event.SessionID] = append(ctx.eventsBySession[event.SessionID], event)
		if depth, ok := scrollDepthOf(event); ok {
			ctx.hasScroll[event.SessionID] = true
			if depth > ctx.maxDepth[event.SessionID] {
				ctx.maxDepth[event.SessionID] = clamp(depth, 0, 100)
			}
		}
	}
	return ctx
}

func scrollDepthOf(event tracking.RawEvent) (float64, bool) {
	for _, key := range []string{"scrollDepth", "scrollPercentage", "depth", "percent"} {
		if depth, ok := tracking.ResolveFloat(event, key); ok {
			return depth, true
		}
	}
	return 0, false
}

// sessionEngagement scores one session 0-100 from its duration,
// interaction count, scroll depth, and conversion flag. Monotonic in
// all four signals.
func (ctx *batchContext) sessionEngagement(s *visitors.Session) float64 {
	timeScore := clamp(s.DurationMinutes/fullEngagementMinutes*100, 0, 100)
	interactionScore := clamp(float64(s.InteractionsCount)/fullEngagementInteractions*100, 0, 100)
	depthScore := ctx.maxDepth[s.SessionID]
	conversionScore := 0.0
	if s.IsConverted {
		conversionScore = 100
	}
	return weightTime*timeScore +
		weightInteraction*interactionScore +
		weightDepth*depthScore +
		weightConversion*conversionScore
}

func computeTemporalPatterns(ctx *batchContext) TemporalPatterns {
	hourly := make([]TemporalBucket, 24)
	weekly := make([]TemporalBucket, 7)
	hourlyEngagement := make([]float64, 24)
	weeklyEngagement := make([]float64, 7)

	for i := range ctx.sessions {
		s := &ctx.sessions[i]
		hour := s.StartTime.UTC().Hour()
		day := int(s.StartTime.UTC().Weekday())

		hourly[hour].Visits++
		weekly[day].Visits++
		if s.IsConverted {
			hourly[hour].Conversions++
			weekly[day].Conversions++
		}
		engagement := ctx.sessionEngagement(s)
		hourlyEngagement[hour] += engagement
		weeklyEngagement[day] += engagement
	}

	for _, event := range ctx.events {
		if event.Type != tracking.EventTypePageView {
			continue
		}
		hourly[event.Timestamp.UTC().Hour()].PageViews++
		weekly[int(event.Timestamp.UTC().Weekday())].PageViews++
	}

	for i := range hourly {
		hourly[i].Engagement = round2(safeDivide(hourlyEngagement[i], float64(hourly[i].Visits)))
	}
	for i := range weekly {
		weekly[i].Engagement = round2(safeDivide(weeklyEngagement[i], float64(weekly[i].Visits)))
	}
	return TemporalPatterns{Hourly: hourly, Weekly: weekly}
}

func computeEngagement(ctx *batchContext) Engagement {
	total := float64(len(ctx.sessions))
	if total == 0 {
		return Engagement{}
	}

	var timeSum, interactionSum, depthSum, conversions float64
	for i := range ctx.sessions {
		s := &ctx.sessions[i]
		timeSum += clamp(s.DurationMinutes/fullEngagementMinutes*100, 0, 100)
		interactionSum += clamp(float64(s.InteractionsCount)/fullEngagementInteractions*100, 0, 100)
		depthSum += ctx.maxDepth[s.SessionID]
		if s.IsConverted {
			conversions++
		}
	}

	e := Engagement{
		TimeScore:        round2(timeSum / total),
		InteractionScore: round2(interactionSum / total),
		DepthScore:       round2(depthSum / total),
		ConversionScore:  round2(conversions / total * 100),
	}
	e.Overall = round2(weightTime*e.TimeScore +
		weightInteraction*e.InteractionScore +
		weightDepth*e.DepthScore +
		weightConversion*e.ConversionScore)
	return e
}

func computeHeatmap(ctx *batchContext) BehavioralHeatmap {
	return BehavioralHeatmap{
		Hotspots:           computeHotspots(ctx),
		ScrollBehavior:     computeScrollBehavior(ctx),
		NavigationPatterns: computeNavigationPatterns(ctx),
	}
}

const maxHotspots = 20

func computeHotspots(ctx *batchContext) []Hotspot {
	type hotspotKey struct {
		elementType string
		elementID   string
	}
	counts := make(map[hotspotKey]int)
	users := make(map[hotspotKey]map[uint]bool)

	for _, event := range ctx.events {
		c := tracking.Classify(event)
		if c.Category != tracking.CategoryInteraction && c.Category != tracking.CategoryForm {
			continue
		}
		key := hotspotKey{
			elementType: tracking.ResolveString(event, "elementType"),
			elementID:   tracking.ResolveString(event, "elementId"),
		}
		if key.elementType == "" && key.elementID == "" {
			continue
		}
		counts[key]++
		session, ok := ctx.sessionByID[event.SessionID]
		if !ok {
			continue
		}
		if users[key] == nil {
			users[key] = make(map[uint]bool)
		}
		users[key][session.VisitorID] = true
	}

	hotspots := make([]Hotspot, 0, len(counts))
	for key, interactions := range counts {
		unique := len(users[key])
		hotspots = append(hotspots, Hotspot{
			ElementType:  key.elementType,
			ElementID:    key.elementID,
			Interactions: interactions,
			UniqueUsers:  unique,
			// Volume scaled by reach: an element clicked by many
			// distinct users outranks one hammered by a single user.
			HeatScore: float64(interactions) * (1 + float64(unique)),
		})
	}

	sort.Slice(hotspots, func(i, j int) bool {
		if hotspots[i].HeatScore != hotspots[j].HeatScore {
			return hotspots[i].HeatScore > hotspots[j].HeatScore
		}
		if hotspots[i].ElementID != hotspots[j].ElementID {
			return hotspots[i].ElementID < hotspots[j].ElementID
		}
		return hotspots[i].ElementType < hotspots[j].ElementType
	})
	if len(hotspots) > maxHotspots {
		hotspots = hotspots[:maxHotspots]
	}
	return hotspots
}

func computeScrollBehavior(ctx *batchContext) ScrollBehavior {
	behavior := ScrollBehavior{DropOffPoints: make([]DropOffPoint, 0, 10)}

	var depths []float64
	var completed, fast, slow int
	for i := range ctx.sessions {
		s := &ctx.sessions[i]
		if !ctx.hasScroll[s.SessionID] {
			continue
		}
		depth := ctx.maxDepth[s.SessionID]
		depths = append(depths, depth)
		if depth >= scrollCompletionDepth {
			completed++
		}
		if depth > 0 {
			secondsPerPercent := s.DurationMinutes * 60 / depth
			if secondsPerPercent < fastScrollSecondsPerPercent {
				fast++
			} else if secondsPerPercent > slowReadSecondsPerPercent {
				slow++
			}
		}
	}

	total := float64(len(depths))
	var depthSum float64
	for _, d := range depths {
		depthSum += d
	}
	behavior.AverageDepth = round2(safeDivide(depthSum, total))
	behavior.CompletionRate = round2(safeDivide(float64(completed), total) * 100)
	behavior.FastScrollers = round2(safeDivide(float64(fast), total) * 100)
	behavior.SlowReaders = round2(safeDivide(float64(slow), total) * 100)

	// Share of scrolling sessions that stopped inside each decile.
	for decile := 1; decile <= 10; decile++ {
		lower := float64((decile - 1) * 10)
		upper := float64(decile * 10)
		var stopped int
		for _, d := range depths {
			if d >= lower && d < upper {
				stopped++
			}
		}
		behavior.DropOffPoints = append(behavior.DropOffPoints, DropOffPoint{
			Depth:       decile * 10,
			DropOffRate: round2(safeDivide(float64(stopped), total) * 100),
		})
	}
	return behavior
}

const (
	maxNavigationPatterns = 10
	patternSeparator      = " > "
)

func computeNavigationPatterns(ctx *batchContext) []NavigationPattern {
	frequency := make(map[string]int)
	converted := make(map[string]int)

	sessionIDs := make([]string, 0, len(ctx.eventsBySession))
	for id := range ctx.eventsBySession {
		sessionIDs = append(sessionIDs, id)
	}
	sort.Strings(sessionIDs)

	for _, sessionID := range sessionIDs {
		var sequence []string
		for _, event := range ctx.eventsBySession[sessionID] {
			if event.Type != tracking.EventTypePageView {
				continue
			}
			url := pages.NormalizeURL(tracking.ResolveString(event, "url"))
			if url == "" {
				continue
			}
			// Collapse reloads of the same page.
			if len(sequence) > 0 && sequence[len(sequence)-1] == url {
				continue
			}
			sequence = append(sequence, url)
		}
		if len(sequence) < 2 {
			continue
		}

		session := ctx.sessionByID[sessionID]
		isConverted := session != nil && session.IsConverted
		for i := 0; i+1 < len(sequence); i++ {
			key := sequence[i] + patternSeparator + sequence[i+1]
			frequency[key]++
			if isConverted {
				converted[key]++
			}
		}
	}

	patterns := make([]NavigationPattern, 0, len(frequency))
	for key, count := range frequency {
		patterns = append(patterns, NavigationPattern{
			Sequence:       strings.Split(key, patternSeparator),
			Frequency:      count,
			ConversionRate: round2(safeDivide(float64(converted[key]), float64(count)) * 100),
		})
	}

	sort.Slice(patterns, func(i, j int) bool {
		if patterns[i].Frequency != patterns[j].Frequency {
			return patterns[i].Frequency > patterns[j].Frequency
		}
		return strings.Join(patterns[i].Sequence, patternSeparator) <
			strings.Join(patterns[j].Sequence, patternSeparator)
	})
	if len(patterns) > maxNavigationPatterns {
		patterns = patterns[:maxNavigationPatterns]
	}
	return patterns
}

// Funnel step names, in order.
const (
	stepVisit   = "Visit"
	stepEngage  = "Engage"
	stepForm    = "Form"
	stepConvert = "Convert"
)

func computeFunnel(ctx *batchContext) FunnelAnalysis {
	var engaged, formed, convertedCount int
	for i := range ctx.sessions {
		s := &ctx.sessions[i]
		if s.InteractionsCount > 0 || s.PagesViewed > 1 {
			engaged++
		}
		hasForm := false
		for _, event := range ctx.eventsBySession[s.SessionID] {
			if tracking.Classify(event).Category == tracking.CategoryForm {
				hasForm = true
				break
			}
		}
		if hasForm {
			formed++
		}
		if s.IsConverted {
			convertedCount++
		}
	}

	entries := []int{len(ctx.sessions), engaged, formed, convertedCount}
	names := []string{stepVisit, stepEngage, stepForm, stepConvert}

	analysis := FunnelAnalysis{Steps: make([]FunnelStep, 0, len(names))}
	var bottleneckRate float64 = -1
	for i, name := range names {
		step := FunnelStep{Name: name, Entries: entries[i]}
		if i+1 < len(entries) {
			step.Conversions = entries[i+1]
		} else {
			step.Conversions = entries[i]
		}
		step.Exits = step.Entries - step.Conversions
		if step.Exits < 0 {
			step.Exits = 0
		}
		if step.Entries > 0 {
			step.DropOffRate = round2((1 - float64(step.Conversions)/float64(step.Entries)) * 100)
		}
		if step.Entries > 0 && step.DropOffRate > bottleneckRate && i+1 < len(entries) {
			bottleneckRate = step.DropOffRate
			analysis.Bottleneck = step.Name
		}
		analysis.Steps = append(analysis.Steps, step)
	}

	analysis.OverallConversion = round2(safeDivide(float64(convertedCount), float64(len(ctx.sessions))) * 100)
	return analysis
}

func computeSegmentation(ctx *batchContext) UserSegmentation {
	type segmentAccumulator struct {
		sessions   int
		conversion int
		engagement float64
	}
	bySegment := make(map[string]*segmentAccumulator)

	for i := range ctx.sessions {
		s := &ctx.sessions[i]
		name := ctx.deviceByVisitor[s.VisitorID]
		if name == "" {
			name = "unknown"
		}
		acc := bySegment[name]
		if acc == nil {
			acc = &segmentAccumulator{}
			bySegment[name] = acc
		}
		acc.sessions++
		if s.IsConverted {
			acc.conversion++
		}
		acc.engagement += ctx.sessionEngagement(s)
	}

	names := make([]string, 0, len(bySegment))
	for name := range bySegment {
		names = append(names, name)
	}
	sort.Strings(names)

	segmentation := UserSegmentation{Segments: make([]Segment, 0, len(names))}
	for _, name := range names {
		acc := bySegment[name]
		segmentation.Segments = append(segmentation.Segments, Segment{
			Name:           name,
			Sessions:       acc.sessions,
			ConversionRate: round2(safeDivide(float64(acc.conversion), float64(acc.sessions)) * 100),
			AvgEngagement:  round2(safeDivide(acc.engagement, float64(acc.sessions))),
		})
	}
	return segmentation
}

const maxContentMetrics = 20

func computeContentPerformance(ctx *batchContext) []ContentMetric {
	views := make(map[string]int)
	timeSum := make(map[string]float64)
	timeCount := make(map[string]int)
	sessionsByURL := make(map[string]map[string]bool)

	for _, event := range ctx.events {
		url := pages.NormalizeURL(tracking.ResolveString(event, "url"))
		if url == "" {
			continue
		}
		switch event.Type {
		case tracking.EventTypePageView:
			views[url]++
			if sessionsByURL[url] == nil {
				sessionsByURL[url] = make(map[string]bool)
			}
			sessionsByURL[url][event.SessionID] = true
		case tracking.EventTypeTimeOnPage:
			if seconds, ok := tracking.ResolveFloat(event, "totalTimeSeconds"); ok {
				timeSum[url] += seconds
				timeCount[url]++
			}
		}
	}

	metrics := make([]ContentMetric, 0, len(views))
	for url, count := range views {
		var total, converted int
		for sessionID := range sessionsByURL[url] {
			total++
			if s, ok := ctx.sessionByID[sessionID]; ok && s.IsConverted {
				converted++
			}
		}
		metrics = append(metrics, ContentMetric{
			URL:            url,
			Views:          count,
			AvgTimeSeconds: round2(safeDivide(timeSum[url], float64(timeCount[url]))),
			ConversionRate: round2(safeDivide(float64(converted), float64(total)) * 100),
		})
	}

	sort.Slice(metrics, func(i, j int) bool {
		if metrics[i].Views != metrics[j].Views {
			return metrics[i].Views > metrics[j].Views
		}
		return metrics[i].URL < metrics[j].URL
	})
	if len(metrics) > maxContentMetrics {
		metrics = metrics[:maxContentMetrics]
	}
	return metrics
}

func computeSessionQuality(ctx *batchContext) SessionQuality {
	total := float64(len(ctx.sessions))
	if total == 0 {
		return SessionQuality{}
	}

	var durationSum, pagesSum, interactionsSum float64
	var bounces, conversions int
	for i := range ctx.sessions {
		s := &ctx.sessions[i]
		durationSum += s.DurationMinutes
		pagesSum += float64(s.PagesViewed)
		interactionsSum += float64(s.InteractionsCount)
		if s.PagesViewed <= 1 && s.InteractionsCount == 0 {
			bounces++
		}
		if s.IsConverted {
			conversions++
		}
	}

	return SessionQuality{
		AvgDurationMinutes: round2(durationSum / total),
		AvgPagesViewed:     round2(pagesSum / total),
		AvgInteractions:    round2(interactionsSum / total),
		BounceRate:         round2(float64(bounces) / total * 100),
		ConversionRate:     round2(float64(conversions) / total * 100),
	}
}

func computePredictions(ctx *batchContext) Predictions {
	total := len(ctx.sessions)
	quality := computeSessionQuality(ctx)
	predictions := Predictions{
		NextPeriodSessions:     total,
		ExpectedConversionRate: quality.ConversionRate,
		Trend:                  "stable",
	}
	if total < 2 {
		return predictions
	}

	// Compare the two halves of the window: more sessions in the second
	// half suggests growth into the next period.
	var earliest, latest = ctx.sessions[0].StartTime, ctx.sessions[0].StartTime
	for i := range ctx.sessions {
		t := ctx.sessions[i].StartTime
		if t.Before(earliest) {
			earliest = t
		}
		if t.After(latest) {
			latest = t
		}
	}
	if !latest.After(earliest) {
		return predictions
	}

	midpoint := earliest.Add(latest.Sub(earliest) / 2)
	var firstHalf, secondHalf int
	for i := range ctx.sessions {
		if ctx.sessions[i].StartTime.After(midpoint) {
			secondHalf++
		} else {
			firstHalf++
		}
	}

	ratio := safeDivide(float64(secondHalf), float64(firstHalf))
	switch {
	case ratio > 1.1:
		predictions.Trend = "up"
	case ratio < 0.9 && ratio > 0:
		predictions.Trend = "down"
	}
	projected := float64(total) * clamp(ratio, 0.5, 2)
	predictions.NextPeriodSessions = int(math.Round(projected))
	return predictions
}

// confidenceFor maps sample size to a 0-100 confidence. Monotonic
// non-decreasing, saturating at fullConfidenceSessions, never below
// the floor.
func confidenceFor(sampleSize int) float64 {
	confidence := float64(sampleSize) / fullConfidenceSessions * 100
	if confidence < confidenceFloor {
		return confidenceFloor
	}
	if confidence > 100 {
		return 100
	}
	return round2(confidence)
}

func safeDivide(numerator, denominator float64) float64 {
	if denominator == 0 {
		return 0
	}
	return numerator / denominator
}

func clamp(value, low, high float64) float64 {
	return math.Min(math.Max(value, low), high)
}

func round2(value float64) float64 {
	return math.Round(value*100) / 100
}
