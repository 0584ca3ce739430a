package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ddwtrends/internal/analysis"
	"ddwtrends/internal/domain"
	"ddwtrends/internal/infrastructure/csvstore"
	"ddwtrends/internal/processing"
	"ddwtrends/internal/report"
)

type stubSource struct {
	byYear map[int][]domain.AbstractRecord
	calls  int
}

func (s *stubSource) FetchYear(_ context.Context, year int) ([]domain.AbstractRecord, error) {
	s.calls++
	records, ok := s.byYear[year]
	if !ok {
		return nil, fmt.Errorf("no fixtures for year %d", year)
	}
	return records, nil
}

type stubEncoder struct {
	batches int
}

func (s *stubEncoder) EncodeBatch(_ context.Context, cleaned []string) ([]domain.TrendScores, error) {
	s.batches++
	scores := make([]domain.TrendScores, len(cleaned))
	for i := range cleaned {
		scores[i] = domain.TrendScores{"covid_related": 0.5}
	}
	return scores, nil
}

type memoryRepository struct {
	saved map[string]domain.ProcessedRecord
}

func newMemoryRepository() *memoryRepository {
	return &memoryRepository{saved: map[string]domain.ProcessedRecord{}}
}

func (m *memoryRepository) AlreadyProcessed(_ context.Context, keys []string) (map[string]bool, error) {
	existing := map[string]bool{}
	for _, key := range keys {
		if _, ok := m.saved[key]; ok {
			existing[key] = true
		}
	}
	return existing, nil
}

func (m *memoryRepository) SaveProcessed(_ context.Context, record domain.ProcessedRecord) error {
	m.saved[record.Key()] = record
	return nil
}

type captureNotifier struct {
	digest string
}

func (c *captureNotifier) PublishDigest(_ context.Context, digest string) error {
	c.digest = digest
	return nil
}

func fixtureRecords() map[int][]domain.AbstractRecord {
	mk := func(title, abstract, author, affiliation string, year int, month time.Month) domain.AbstractRecord {
		return domain.AbstractRecord{
			Title:             title,
			Abstract:          abstract,
			Author:            author,
			AuthorAffiliation: affiliation,
			PresentationDate:  time.Date(year, month, 1, 0, 0, 0, 0, time.UTC),
		}
	}

	return map[int][]domain.AbstractRecord{
		2019: {
			mk("Endoscopy Techniques", "Novel endoscopic techniques for detection", "Jane Doe", "Oxford University, UK", 2019, time.June),
			mk("IBD Research", "Prospective cohort of IBD treatments", "Bob Johnson", "Tokyo University, Japan", 2019, time.May),
		},
		2021: {
			mk("COVID-19 Study", "Study about COVID-19 impact on GI procedures", "John Smith", "Harvard University, USA", 2021, time.May),
			// Invalid: no author, must be dropped by validation.
			mk("Orphan", "No author given", "", "Nowhere, USA", 2021, time.May),
		},
	}
}

type pipelineFixture struct {
	pipeline *Pipeline
	source   *stubSource
	encoder  *stubEncoder
	repo     *memoryRepository
	notifier *captureNotifier
	store    *csvstore.Store
	dataDir  string
}

func newPipelineFixture(t *testing.T) *pipelineFixture {
	t.Helper()

	dir := t.TempDir()
	store := csvstore.New(filepath.Join(dir, "raw"), filepath.Join(dir, "processed"))
	source := &stubSource{byYear: fixtureRecords()}
	encoder := &stubEncoder{}
	repo := newMemoryRepository()
	notifier := &captureNotifier{}

	covidStart := time.Date(2020, time.March, 1, 0, 0, 0, 0, time.UTC)
	pipeline := NewPipeline(PipelineDeps{
		Source:     source,
		Repository: repo,
		Encoder:    encoder,
		Notifier:   notifier,
		CSV:        store,
		Processor:  processing.New(nil),
		Analyzer:   analysis.New(covidStart, 0.05),
		Reporter:   report.New(filepath.Join(dir, "figures")),
		Now: func() time.Time {
			return time.Date(2023, time.November, 8, 0, 0, 0, 0, time.UTC)
		},
	})

	return &pipelineFixture{
		pipeline: pipeline,
		source:   source,
		encoder:  encoder,
		repo:     repo,
		notifier: notifier,
		store:    store,
		dataDir:  dir,
	}
}

func TestProcessYearFetchesAndDerives(t *testing.T) {
	t.Parallel()

	fx := newPipelineFixture(t)
	ctx := context.Background()

	processed, err := fx.pipeline.ProcessYear(ctx, 2021)
	require.NoError(t, err)

	// The record without an author is dropped.
	require.Len(t, processed, 1)
	assert.Equal(t, 1, processed[0].ContainsCovid)
	assert.Equal(t, "USA", processed[0].Geography)
	assert.Equal(t, domain.TrendScores{"covid_related": 0.5}, processed[0].TrendScores)

	// Raw and processed snapshots are on disk.
	assert.FileExists(t, fx.store.RawPath(2021))
	assert.FileExists(t, fx.store.ProcessedPath(2021))

	// The repository holds the surviving record.
	assert.Len(t, fx.repo.saved, 1)
}

func TestProcessYearReusesProcessedFile(t *testing.T) {
	t.Parallel()

	fx := newPipelineFixture(t)
	ctx := context.Background()

	first, err := fx.pipeline.ProcessYear(ctx, 2019)
	require.NoError(t, err)
	require.Equal(t, 1, fx.source.calls)

	second, err := fx.pipeline.ProcessYear(ctx, 2019)
	require.NoError(t, err)

	// No refetch, no re-encode: the processed CSV is authoritative.
	assert.Equal(t, 1, fx.source.calls)
	assert.Equal(t, 1, fx.encoder.batches)
	require.Len(t, second, len(first))
	for i := range first {
		assert.Equal(t, first[i].Key(), second[i].Key())
	}
}

func TestRunProducesAllArtifacts(t *testing.T) {
	t.Parallel()

	fx := newPipelineFixture(t)
	ctx := context.Background()

	require.NoError(t, fx.pipeline.Run(ctx, []int{2019, 2021}))

	assert.FileExists(t, fx.store.CombinedPath())
	resultsPath := filepath.Join(fx.dataDir, "processed", "analysis_results_20231108.json")
	require.FileExists(t, resultsPath)

	data, err := os.ReadFile(resultsPath)
	require.NoError(t, err)
	var result domain.AnalysisResult
	require.NoError(t, json.Unmarshal(data, &result))
	assert.Equal(t, 2, result.CovidImpact.PreCovidCount)
	assert.Equal(t, 1, result.CovidImpact.PostCovidCount)

	for _, name := range []string{"temporal_trends.html", "interactive_dashboard.html"} {
		assert.FileExists(t, filepath.Join(fx.dataDir, "figures", name))
	}

	assert.Contains(t, fx.notifier.digest, "Abstracts: 3")
}

func TestRunIsIdempotentOnResults(t *testing.T) {
	t.Parallel()

	fx := newPipelineFixture(t)
	ctx := context.Background()
	resultsPath := filepath.Join(fx.dataDir, "processed", "analysis_results_20231108.json")

	require.NoError(t, fx.pipeline.Run(ctx, []int{2019, 2021}))
	first, err := os.ReadFile(resultsPath)
	require.NoError(t, err)

	require.NoError(t, fx.pipeline.Run(ctx, []int{2019, 2021}))
	second, err := os.ReadFile(resultsPath)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestAnalyzeStandalone(t *testing.T) {
	t.Parallel()

	fx := newPipelineFixture(t)
	ctx := context.Background()
	require.NoError(t, fx.pipeline.Run(ctx, []int{2019, 2021}))

	result, err := fx.pipeline.Analyze(ctx)
	require.NoError(t, err)
	assert.Len(t, result.TemporalTrends.Yearly, 2)
}

func TestReportRequiresCombinedFile(t *testing.T) {
	t.Parallel()

	fx := newPipelineFixture(t)
	err := fx.pipeline.Report(context.Background())
	assert.Error(t, err)
}
