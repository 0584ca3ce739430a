package report

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"ddwtrends/internal/domain"
)

// topGeographies bounds the geographic bar chart.
const topGeographies = 15

// Reporter renders chart pages and the combined dashboard from an
// AnalysisResult into the figures directory.
type Reporter struct {
	figuresDir string
}

// New creates a Reporter rooted at the figures directory.
func New(figuresDir string) *Reporter {
	return &Reporter{figuresDir: figuresDir}
}

// Render writes every chart page. Output files:
// temporal_trends.html, category_distribution.html, covid_impact.html,
// geographical_distribution.html, interactive_dashboard.html.
func (r *Reporter) Render(result domain.AnalysisResult) error {
	if err := os.MkdirAll(r.figuresDir, 0o755); err != nil {
		return fmt.Errorf("create figures directory: %w", err)
	}

	renderers := []struct {
		name  string
		build func(domain.AnalysisResult) components.Charter
	}{
		{"temporal_trends.html", temporalTrendsChart},
		{"category_distribution.html", categoryDistributionChart},
		{"covid_impact.html", covidImpactChart},
		{"geographical_distribution.html", geographicalDistributionChart},
	}

	for _, rend := range renderers {
		if err := r.renderPage(rend.name, rend.build(result)); err != nil {
			return err
		}
	}

	dashboard := components.NewPage()
	dashboard.PageTitle = "DDW Research Trends Dashboard"
	dashboard.AddCharts(
		temporalTrendsChart(result),
		covidImpactChart(result),
		categoryDistributionChart(result),
		geographicalDistributionChart(result),
	)
	return r.renderTo("interactive_dashboard.html", dashboard)
}

func (r *Reporter) renderPage(name string, chart components.Charter) error {
	page := components.NewPage()
	page.AddCharts(chart)
	return r.renderTo(name, page)
}

func (r *Reporter) renderTo(name string, page *components.Page) error {
	path := filepath.Join(r.figuresDir, name)
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}

	if err := page.Render(f); err != nil {
		_ = f.Close()
		return fmt.Errorf("render %s: %w", path, err)
	}

	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	return nil
}

func temporalTrendsChart(result domain.AnalysisResult) components.Charter {
	line := charts.NewLine()
	line.SetGlobalOptions(charts.WithTitleOpts(opts.Title{
		Title: "Number of DDW Abstracts Over Time",
	}))

	years, totals, covid := yearlySeries(result)
	line.SetXAxis(years).
		AddSeries("Total Abstracts", toLineData(totals)).
		AddSeries("COVID-related", toLineData(covid))

	return line
}

func covidImpactChart(result domain.AnalysisResult) components.Charter {
	line := charts.NewLine()
	line.SetGlobalOptions(charts.WithTitleOpts(opts.Title{
		Title:    "Share of COVID-related Abstracts",
		Subtitle: "Cutoff: March 2020",
	}))

	years, totals, covid := yearlySeries(result)
	shares := make([]float64, len(years))
	for i := range years {
		if totals[i] > 0 {
			shares[i] = float64(covid[i]) / float64(totals[i])
		}
	}

	line.SetXAxis(years).AddSeries("COVID share", toLineDataFloat(shares))
	return line
}

func categoryDistributionChart(result domain.AnalysisResult) components.Charter {
	bar := charts.NewBar()
	bar.SetGlobalOptions(charts.WithTitleOpts(opts.Title{
		Title: "Research Categories Distribution Over Time",
	}))

	years := make([]int, 0, len(result.TemporalTrends.Yearly))
	categorySet := map[string]struct{}{}
	for _, stat := range result.TemporalTrends.Yearly {
		years = append(years, stat.Year)
		for cat := range stat.Categories {
			categorySet[cat] = struct{}{}
		}
	}

	categories := make([]string, 0, len(categorySet))
	for cat := range categorySet {
		categories = append(categories, cat)
	}
	sort.Strings(categories)

	bar.SetXAxis(years)
	for _, cat := range categories {
		data := make([]opts.BarData, 0, len(years))
		for _, stat := range result.TemporalTrends.Yearly {
			data = append(data, opts.BarData{Value: stat.Categories[cat]})
		}
		bar.AddSeries(cat, data)
	}
	bar.SetSeriesOptions(charts.WithBarChartOpts(opts.BarChart{Stack: "total"}))

	return bar
}

func geographicalDistributionChart(result domain.AnalysisResult) components.Charter {
	bar := charts.NewBar()
	bar.SetGlobalOptions(charts.WithTitleOpts(opts.Title{
		Title: "Geographical Distribution of DDW Research",
	}))

	type geoCount struct {
		geo   string
		count int
	}
	counts := make([]geoCount, 0, len(result.GeographicalDistribution.OverallDistribution))
	for geo, count := range result.GeographicalDistribution.OverallDistribution {
		counts = append(counts, geoCount{geo, count})
	}
	sort.Slice(counts, func(i, j int) bool {
		if counts[i].count != counts[j].count {
			return counts[i].count > counts[j].count
		}
		return counts[i].geo < counts[j].geo
	})
	if len(counts) > topGeographies {
		counts = counts[:topGeographies]
	}

	labels := make([]string, 0, len(counts))
	data := make([]opts.BarData, 0, len(counts))
	for _, gc := range counts {
		labels = append(labels, gc.geo)
		data = append(data, opts.BarData{Value: gc.count})
	}

	bar.SetXAxis(labels).AddSeries("Abstracts", data)
	return bar
}

func yearlySeries(result domain.AnalysisResult) (years []int, totals, covid []int) {
	for _, stat := range result.TemporalTrends.Yearly {
		years = append(years, stat.Year)
		totals = append(totals, stat.AbstractCount)
		covid = append(covid, stat.CovidCount)
	}
	return years, totals, covid
}

func toLineData(values []int) []opts.LineData {
	data := make([]opts.LineData, 0, len(values))
	for _, v := range values {
		data = append(data, opts.LineData{Value: v})
	}
	return data
}

func toLineDataFloat(values []float64) []opts.LineData {
	data := make([]opts.LineData, 0, len(values))
	for _, v := range values {
		data = append(data, opts.LineData{Value: v})
	}
	return data
}
