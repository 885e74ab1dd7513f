package pages_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"leadlens/internal/pages"
)

func TestNormalizeURL(t *testing.T) {
	testCases := []struct {
		name string
		in   string
		want string
	}{
		{"strips fbclid", "https://a.com/?fbclid=X", "https://a.com"},
		{"strips gclid", "https://a.com/page?gclid=abc123", "https://a.com/page"},
		{"strips utm params", "https://a.com/page?utm_source=fb&utm_medium=cpc&utm_campaign=spring", "https://a.com/page"},
		{"keeps real params", "https://a.com/search?q=hello&utm_source=fb", "https://a.com/search?q=hello"},
		{"lowercases host", "https://A.COM/Page", "https://a.com/Page"},
		{"trailing slash collapses", "https://a.com/", "https://a.com"},
		{"trailing slash on path", "https://a.com/pricing/", "https://a.com/pricing"},
		{"drops fragment", "https://a.com/page#section", "https://a.com/page"},
		{"malformed returned unchanged", "http://%zz-bad", "http://%zz-bad"},
		{"relative returned unchanged", "not a url", "not a url"},
		{"empty", "", ""},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, pages.NormalizeURL(tc.in))
		})
	}
}

func TestNormalizeURLIdempotent(t *testing.T) {
	inputs := []string{
		"https://a.com/?fbclid=X&utm_source=fb",
		"https://A.com/Pricing/",
		"https://a.com/search?q=hello",
		"not a url",
		"",
	}
	for _, in := range inputs {
		once := pages.NormalizeURL(in)
		assert.Equal(t, once, pages.NormalizeURL(once), "input %q", in)
	}
}

func TestNormalizeURLTrackingVariantsConverge(t *testing.T) {
	a := pages.NormalizeURL("https://a.com/page?fbclid=one")
	b := pages.NormalizeURL("https://a.com/page?fbclid=two&utm_source=x")
	c := pages.NormalizeURL("https://a.com/page")
	assert.Equal(t, a, b)
	assert.Equal(t, b, c)
}

func TestGroupByNormalizedURL(t *testing.T) {
	now := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	input := []pages.LandingPage{
		{URL: "https://site.com/", TotalVisits: 100, UniqueUsers: 80, ConversionRate: 5, LastAccess: now},
		{URL: "https://site.com/?fbclid=abc", TotalVisits: 20, UniqueUsers: 15, ConversionRate: 8, LastAccess: now.Add(time.Hour)},
	}

	grouped := pages.GroupByNormalizedURL(input)
	require.Len(t, grouped, 1)

	page := grouped[0]
	assert.Equal(t, 120, page.TotalVisits)
	assert.Equal(t, 95, page.UniqueUsers)
	assert.InDelta(t, 5.47, page.ConversionRate, 0.01)
	assert.Equal(t, now.Add(time.Hour), page.LastAccess)
	assert.Equal(t, []string{"https://site.com/", "https://site.com/?fbclid=abc"}, page.OriginalUrls)
}

func TestGroupByNormalizedURLOrderAndSeparation(t *testing.T) {
	input := []pages.LandingPage{
		{URL: "https://site.com/b", TotalVisits: 1},
		{URL: "https://site.com/a", TotalVisits: 1},
		{URL: "https://site.com/b?utm_source=x", TotalVisits: 1},
	}

	grouped := pages.GroupByNormalizedURL(input)
	require.Len(t, grouped, 2)
	// First-seen order, not metric order.
	assert.Equal(t, "https://site.com/b", grouped[0].NormalizedURL)
	assert.Equal(t, "https://site.com/a", grouped[1].NormalizedURL)
	assert.Equal(t, 2, grouped[0].TotalVisits)
}

func TestGroupConversionRateStaysBounded(t *testing.T) {
	input := []pages.LandingPage{
		{URL: "https://site.com/", UniqueUsers: 10, ConversionRate: 2},
		{URL: "https://site.com/?gclid=1", UniqueUsers: 90, ConversionRate: 9},
	}

	grouped := pages.GroupByNormalizedURL(input)
	require.Len(t, grouped, 1)
	rate := grouped[0].ConversionRate
	assert.GreaterOrEqual(t, rate, 2.0)
	assert.LessOrEqual(t, rate, 9.0)
}

func TestGroupZeroWeightRetainsPriorRate(t *testing.T) {
	input := []pages.LandingPage{
		{URL: "https://site.com/", UniqueUsers: 0, ConversionRate: 4},
		{URL: "https://site.com/?fbclid=z", UniqueUsers: 0, ConversionRate: 9},
	}

	grouped := pages.GroupByNormalizedURL(input)
	require.Len(t, grouped, 1)
	// Both weights zero: the prior value is retained, never NaN.
	assert.Equal(t, 4.0, grouped[0].ConversionRate)
}

func TestGroupEmptyInput(t *testing.T) {
	grouped := pages.GroupByNormalizedURL(nil)
	assert.NotNil(t, grouped)
	assert.Empty(t, grouped)
}
