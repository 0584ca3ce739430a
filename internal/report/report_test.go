package report

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ddwtrends/internal/domain"
)

func sampleResult() domain.AnalysisResult {
	change := 0.5
	return domain.AnalysisResult{
		TemporalTrends: domain.TemporalTrends{
			Yearly: []domain.YearStat{
				{
					Year:          2019,
					AbstractCount: 2,
					Categories:    map[string]int{"clinical_trial": 1, "observational": 1},
					Geographies:   map[string]int{"USA": 1, "UK": 1},
				},
				{
					Year:          2020,
					AbstractCount: 3,
					CovidCount:    2,
					Categories:    map[string]int{"clinical_trial": 2, "basic_science": 1},
					Geographies:   map[string]int{"USA": 2, "Japan": 1},
					YoYChange:     &change,
				},
			},
		},
		GeographicalDistribution: domain.GeographicalDistribution{
			OverallDistribution: map[string]int{"USA": 3, "UK": 1, "Japan": 1},
		},
	}
}

func TestRenderWritesAllPages(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "figures")
	r := New(dir)

	require.NoError(t, r.Render(sampleResult()))

	expected := []string{
		"temporal_trends.html",
		"category_distribution.html",
		"covid_impact.html",
		"geographical_distribution.html",
		"interactive_dashboard.html",
	}
	for _, name := range expected {
		info, err := os.Stat(filepath.Join(dir, name))
		require.NoError(t, err, name)
		assert.Greater(t, info.Size(), int64(0), name)
	}
}

func TestRenderEmptyResult(t *testing.T) {
	t.Parallel()

	r := New(t.TempDir())
	assert.NoError(t, r.Render(domain.AnalysisResult{}))
}
