package domain

// YearStat aggregates one conference year of processed records.
type YearStat struct {
	Year          int            `json:"year"`
	AbstractCount int            `json:"abstract_count"`
	CovidCount    int            `json:"covid_count"`
	Categories    map[string]int `json:"categories"`
	Geographies   map[string]int `json:"geographies"`
	// YoYChange is the relative change in abstract count against the
	// previous year; nil for the first year in the series.
	YoYChange *float64 `json:"yoy_change"`
}

// TemporalTrends holds the per-year series in ascending year order.
type TemporalTrends struct {
	Yearly []YearStat `json:"yearly"`
}

// CategoryComparison is the outcome of comparing research-category
// distributions before and after a cutoff date.
type CategoryComparison struct {
	PreDistribution  map[string]float64 `json:"pre_distribution"`
	PostDistribution map[string]float64 `json:"post_distribution"`
	Chi2Statistic    float64            `json:"chi2_statistic"`
	PValue           float64            `json:"p_value"`
	Significant      bool               `json:"significant_difference"`
}

// CovidImpact summarizes the pre/post-pandemic shift in the record set.
type CovidImpact struct {
	PreCovidCount          int                `json:"pre_covid_count"`
	PostCovidCount         int                `json:"post_covid_count"`
	CovidRelatedPercentage float64            `json:"covid_related_percentage"`
	CategoryChanges        CategoryComparison `json:"category_changes"`
}

// GeographicalDistribution counts records per geography, overall and per
// year (year keys formatted as YYYY).
type GeographicalDistribution struct {
	OverallDistribution map[string]int            `json:"overall_distribution"`
	TemporalChanges     map[string]map[string]int `json:"temporal_changes"`
}

// AnalysisResult is the aggregate snapshot computed from the full
// processed set. Regenerated wholesale on each run, never incrementally
// updated; a pure function of its input.
type AnalysisResult struct {
	TemporalTrends           TemporalTrends           `json:"temporal_trends"`
	CovidImpact              CovidImpact              `json:"covid_impact"`
	GeographicalDistribution GeographicalDistribution `json:"geographical_distribution"`
}
