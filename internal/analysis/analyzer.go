package analysis

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat/distuv"

	"ddwtrends/internal/domain"
)

// Analyzer computes the aggregate snapshot over a processed record set.
// It holds only the statistical parameters, so a run is a pure function
// of its input: the same records always yield the same result.
type Analyzer struct {
	covidStart        time.Time
	significanceLevel float64
}

// New builds an Analyzer with the COVID cutoff date and the alpha used
// for significance decisions.
func New(covidStart time.Time, significanceLevel float64) *Analyzer {
	return &Analyzer{covidStart: covidStart, significanceLevel: significanceLevel}
}

// Analyze regenerates the full AnalysisResult from the record set.
func (a *Analyzer) Analyze(records []domain.ProcessedRecord) domain.AnalysisResult {
	return domain.AnalysisResult{
		TemporalTrends:           a.temporalTrends(records),
		CovidImpact:              a.covidImpact(records),
		GeographicalDistribution: a.geographicalDistribution(records),
	}
}

// MarshalResult renders the result as indented JSON. Struct fields keep
// declaration order and map keys are emitted sorted, so repeated runs
// over the same record set produce byte-identical output.
func MarshalResult(result domain.AnalysisResult) ([]byte, error) {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal analysis result: %w", err)
	}
	return data, nil
}

// ResultFileName names the output document for the given run date.
func ResultFileName(runDate time.Time) string {
	return fmt.Sprintf("analysis_results_%s.json", runDate.Format("20060102"))
}

func (a *Analyzer) temporalTrends(records []domain.ProcessedRecord) domain.TemporalTrends {
	byYear := map[int][]domain.ProcessedRecord{}
	for _, rec := range records {
		year := rec.PresentationDate.Year()
		byYear[year] = append(byYear[year], rec)
	}

	years := make([]int, 0, len(byYear))
	for year := range byYear {
		years = append(years, year)
	}
	sort.Ints(years)

	yearly := make([]domain.YearStat, 0, len(years))
	var prevCount int
	for i, year := range years {
		recs := byYear[year]

		stat := domain.YearStat{
			Year:          year,
			AbstractCount: len(recs),
			Categories:    map[string]int{},
			Geographies:   map[string]int{},
		}
		for _, rec := range recs {
			stat.CovidCount += rec.ContainsCovid
			stat.Categories[string(rec.ResearchCategory)]++
			stat.Geographies[rec.Geography]++
		}

		if i > 0 && prevCount > 0 {
			change := float64(len(recs)-prevCount) / float64(prevCount)
			stat.YoYChange = &change
		}
		prevCount = len(recs)

		yearly = append(yearly, stat)
	}

	return domain.TemporalTrends{Yearly: yearly}
}

func (a *Analyzer) covidImpact(records []domain.ProcessedRecord) domain.CovidImpact {
	var pre, post []domain.ProcessedRecord
	for _, rec := range records {
		if rec.PresentationDate.Before(a.covidStart) {
			pre = append(pre, rec)
		} else {
			post = append(post, rec)
		}
	}

	impact := domain.CovidImpact{
		PreCovidCount:  len(pre),
		PostCovidCount: len(post),
	}

	if len(post) > 0 {
		covidRelated := 0
		for _, rec := range post {
			covidRelated += rec.ContainsCovid
		}
		impact.CovidRelatedPercentage = float64(covidRelated) / float64(len(post)) * 100
	}

	impact.CategoryChanges = a.compareDistributions(categories(pre), categories(post))

	return impact
}

func (a *Analyzer) geographicalDistribution(records []domain.ProcessedRecord) domain.GeographicalDistribution {
	overall := map[string]int{}
	temporal := map[string]map[string]int{}

	for _, rec := range records {
		overall[rec.Geography]++

		year := rec.PresentationDate.Format("2006")
		if temporal[year] == nil {
			temporal[year] = map[string]int{}
		}
		temporal[year][rec.Geography]++
	}

	return domain.GeographicalDistribution{
		OverallDistribution: overall,
		TemporalChanges:     temporal,
	}
}

// compareDistributions contrasts two categorical samples via a
// chi-square test of independence on the categories x {pre, post}
// contingency table.
func (a *Analyzer) compareDistributions(pre, post []string) domain.CategoryComparison {
	comparison := domain.CategoryComparison{
		PreDistribution:  proportions(pre),
		PostDistribution: proportions(post),
		PValue:           1,
	}

	if len(pre) == 0 || len(post) == 0 {
		return comparison
	}

	labelSet := map[string]struct{}{}
	preCounts := map[string]int{}
	postCounts := map[string]int{}
	for _, label := range pre {
		labelSet[label] = struct{}{}
		preCounts[label]++
	}
	for _, label := range post {
		labelSet[label] = struct{}{}
		postCounts[label]++
	}

	if len(labelSet) < 2 {
		return comparison
	}

	// Summation order is fixed so the statistic is reproducible
	// bit-for-bit across runs.
	labels := make([]string, 0, len(labelSet))
	for label := range labelSet {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	total := float64(len(pre) + len(post))
	preTotal := float64(len(pre))
	postTotal := float64(len(post))

	var chi2 float64
	for _, label := range labels {
		rowTotal := float64(preCounts[label] + postCounts[label])

		expectedPre := rowTotal * preTotal / total
		expectedPost := rowTotal * postTotal / total
		if expectedPre > 0 {
			diff := float64(preCounts[label]) - expectedPre
			chi2 += diff * diff / expectedPre
		}
		if expectedPost > 0 {
			diff := float64(postCounts[label]) - expectedPost
			chi2 += diff * diff / expectedPost
		}
	}

	dof := float64(len(labelSet) - 1)
	dist := distuv.ChiSquared{K: dof}

	comparison.Chi2Statistic = chi2
	comparison.PValue = dist.Survival(chi2)
	comparison.Significant = comparison.PValue < a.significanceLevel

	return comparison
}

func categories(records []domain.ProcessedRecord) []string {
	labels := make([]string, 0, len(records))
	for _, rec := range records {
		labels = append(labels, string(rec.ResearchCategory))
	}
	return labels
}

func proportions(labels []string) map[string]float64 {
	props := map[string]float64{}
	if len(labels) == 0 {
		return props
	}
	for _, label := range labels {
		props[label]++
	}
	for label := range props {
		props[label] /= float64(len(labels))
	}
	return props
}
