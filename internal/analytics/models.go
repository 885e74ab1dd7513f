package analytics

// AdvancedAnalytics is one period-keyed behavioral rollup. Field names
// are part of the dashboard contract and must stay stable. A rollup is
// never mutated in place; regenerating a period writes a fresh record
// that supersedes the old one.
type AdvancedAnalytics struct {
	PeriodKey          string             `json:"periodKey"`
	Period             string             `json:"period"`
	TemporalPatterns   TemporalPatterns   `json:"temporalPatterns"`
	Engagement         Engagement         `json:"engagement"`
	BehavioralHeatmap  BehavioralHeatmap  `json:"behavioralHeatmap"`
	FunnelAnalysis     FunnelAnalysis     `json:"funnelAnalysis"`
	UserSegmentation   UserSegmentation   `json:"userSegmentation"`
	ContentPerformance []ContentMetric    `json:"contentPerformance"`
	SessionQuality     SessionQuality     `json:"sessionQuality"`
	Predictions        Predictions        `json:"predictions"`
	Confidence         float64            `json:"confidence"`
	SampleSize         int                `json:"sampleSize"`
}

// TemporalPatterns holds the hour-of-day and day-of-week distributions.
// Weekly is indexed 0=Sunday through 6=Saturday.
type TemporalPatterns struct {
	Hourly []TemporalBucket `json:"hourly"`
	Weekly []TemporalBucket `json:"weekly"`
}

type TemporalBucket struct {
	Visits      int     `json:"visits"`
	PageViews   int     `json:"pageViews"`
	Engagement  float64 `json:"engagement"`
	Conversions int     `json:"conversions"`
}

// Engagement is the overall 0-100 score plus its four weighted
// components, each itself normalized to 0-100.
type Engagement struct {
	Overall          float64 `json:"overall"`
	TimeScore        float64 `json:"timeScore"`
	InteractionScore float64 `json:"interactionScore"`
	DepthScore       float64 `json:"depthScore"`
	ConversionScore  float64 `json:"conversionScore"`
}

// BehavioralHeatmap aggregates where and how visitors interact.
type BehavioralHeatmap struct {
	Hotspots           []Hotspot           `json:"hotspots"`
	ScrollBehavior     ScrollBehavior      `json:"scrollBehavior"`
	NavigationPatterns []NavigationPattern `json:"navigationPatterns"`
}

// Hotspot is one interactive element ranked by heat-score. The score
// favors elements with both high volume and broad unique-user reach
// over elements hammered repeatedly by a few users.
type Hotspot struct {
	ElementType  string  `json:"elementType"`
	ElementID    string  `json:"elementId"`
	Interactions int     `json:"interactions"`
	UniqueUsers  int     `json:"uniqueUsers"`
	HeatScore    float64 `json:"heatScore"`
}

type ScrollBehavior struct {
	AverageDepth   float64        `json:"averageDepth"`
	CompletionRate float64        `json:"completionRate"`
	DropOffPoints  []DropOffPoint `json:"dropOffPoints"`
	FastScrollers  float64        `json:"fastScrollers"`
	SlowReaders    float64        `json:"slowReaders"`
}

// DropOffPoint gives the share of scrolling sessions that stopped
// inside one depth decile.
type DropOffPoint struct {
	Depth       int     `json:"depth"`
	DropOffRate float64 `json:"dropOffRate"`
}

// NavigationPattern is a recurring page transition with its frequency
// and the conversion rate of sessions exhibiting it.
type NavigationPattern struct {
	Sequence       []string `json:"sequence"`
	Frequency      int      `json:"frequency"`
	ConversionRate float64  `json:"conversionRate"`
}

type FunnelAnalysis struct {
	Steps             []FunnelStep `json:"steps"`
	Bottleneck        string       `json:"bottleneck"`
	OverallConversion float64      `json:"overallConversion"`
}

type FunnelStep struct {
	Name        string  `json:"name"`
	Entries     int     `json:"entries"`
	Exits       int     `json:"exits"`
	Conversions int     `json:"conversions"`
	DropOffRate float64 `json:"dropOffRate"`
}

type UserSegmentation struct {
	Segments []Segment `json:"segments"`
}

// Segment groups sessions by device type.
type Segment struct {
	Name           string  `json:"name"`
	Sessions       int     `json:"sessions"`
	ConversionRate float64 `json:"conversionRate"`
	AvgEngagement  float64 `json:"avgEngagement"`
}

type ContentMetric struct {
	URL            string  `json:"url"`
	Views          int     `json:"views"`
	AvgTimeSeconds float64 `json:"avgTimeSeconds"`
	ConversionRate float64 `json:"conversionRate"`
}

type SessionQuality struct {
	AvgDurationMinutes float64 `json:"avgDurationMinutes"`
	AvgPagesViewed     float64 `json:"avgPagesViewed"`
	AvgInteractions    float64 `json:"avgInteractions"`
	BounceRate         float64 `json:"bounceRate"`
	ConversionRate     float64 `json:"conversionRate"`
}

// Predictions carries simple deterministic forward indicators derived
// from the trend inside the period itself.
type Predictions struct {
	NextPeriodSessions     int     `json:"nextPeriodSessions"`
	ExpectedConversionRate float64 `json:"expectedConversionRate"`
	Trend                  string  `json:"trend"`
}
