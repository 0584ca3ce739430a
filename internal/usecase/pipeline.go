package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"ddwtrends/internal/analysis"
	"ddwtrends/internal/domain"
	"ddwtrends/internal/infrastructure/csvstore"
	"ddwtrends/internal/ports"
	"ddwtrends/internal/processing"
	"ddwtrends/internal/report"
)

// PipelineDeps wires all driven adapters into the orchestration pipeline.
// Source, CSV, Processor and Analyzer are required; the rest are
// optional and tolerated as nil.
type PipelineDeps struct {
	Source     ports.AbstractSource
	Repository ports.RecordRepository
	Encoder    ports.TrendEncoder
	Notifier   ports.Notifier
	CSV        *csvstore.Store
	Processor  *processing.Processor
	Analyzer   *analysis.Analyzer
	Reporter   *report.Reporter
	Logger     *slog.Logger
	// Now supplies the run date for the results file name; defaults to
	// time.Now.
	Now func() time.Time
}

// Pipeline implements the abstract-ingestion and analysis workflow.
type Pipeline struct {
	source     ports.AbstractSource
	repository ports.RecordRepository
	encoder    ports.TrendEncoder
	notifier   ports.Notifier
	csv        *csvstore.Store
	processor  *processing.Processor
	analyzer   *analysis.Analyzer
	reporter   *report.Reporter
	logger     *slog.Logger
	now        func() time.Time
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps) *Pipeline {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &Pipeline{
		source:     deps.Source,
		repository: deps.Repository,
		encoder:    deps.Encoder,
		notifier:   deps.Notifier,
		csv:        deps.CSV,
		processor:  deps.Processor,
		analyzer:   deps.Analyzer,
		reporter:   deps.Reporter,
		logger:     deps.Logger,
		now:        now,
	}
}

// FetchYear pulls raw records for one conference year and saves the raw
// CSV snapshot.
func (p *Pipeline) FetchYear(ctx context.Context, year int) ([]domain.AbstractRecord, error) {
	if p.source == nil {
		return nil, fmt.Errorf("no abstract source configured")
	}

	records, err := p.source.FetchYear(ctx, year)
	if err != nil {
		return nil, fmt.Errorf("fetch year %d: %w", year, err)
	}

	p.info("fetched records", "year", year, "count", len(records))

	if err := p.csv.SaveRaw(year, records); err != nil {
		return nil, fmt.Errorf("save raw year %d: %w", year, err)
	}

	return records, nil
}

// ProcessYear produces the processed record set for one year. An
// existing processed CSV is reused; otherwise records come from the raw
// CSV when present, or are fetched fresh. New records are validated,
// feature-extracted, trend-encoded and persisted.
func (p *Pipeline) ProcessYear(ctx context.Context, year int) ([]domain.ProcessedRecord, error) {
	if p.csv.ProcessedExists(year) {
		p.info("reusing processed file", "year", year)
		return p.csv.LoadProcessed(year)
	}

	raw, err := p.csv.LoadRaw(year)
	if err != nil {
		raw, err = p.FetchYear(ctx, year)
		if err != nil {
			return nil, err
		}
	}

	processed := p.processor.ProcessAll(raw)

	if err := p.encodeTrends(ctx, processed); err != nil {
		return nil, fmt.Errorf("encode trends year %d: %w", year, err)
	}

	if err := p.persist(ctx, processed); err != nil {
		return nil, fmt.Errorf("persist year %d: %w", year, err)
	}

	if err := p.csv.SaveProcessed(year, processed); err != nil {
		return nil, fmt.Errorf("save processed year %d: %w", year, err)
	}

	p.info("processed records", "year", year, "count", len(processed))
	return processed, nil
}

// Run executes the full pipeline over the configured years: process each
// year, write the combined CSV, aggregate, save the results JSON, render
// the report pages and publish the digest.
func (p *Pipeline) Run(ctx context.Context, years []int) error {
	var combined []domain.ProcessedRecord
	for _, year := range years {
		records, err := p.ProcessYear(ctx, year)
		if err != nil {
			return err
		}
		combined = append(combined, records...)
	}

	if err := p.csv.SaveCombined(combined); err != nil {
		return fmt.Errorf("save combined: %w", err)
	}

	result := p.analyzer.Analyze(combined)

	path, err := p.writeResult(result)
	if err != nil {
		return err
	}
	p.info("analysis complete", "records", len(combined), "results", path)

	if p.reporter != nil {
		if err := p.reporter.Render(result); err != nil {
			return fmt.Errorf("render report: %w", err)
		}
	}

	if p.notifier != nil {
		if err := p.notifier.PublishDigest(ctx, buildDigestMessage(result)); err != nil {
			return fmt.Errorf("publish digest: %w", err)
		}
	}

	return nil
}

// Analyze aggregates the combined processed CSV and writes the results
// JSON. Used by the standalone analyze command.
func (p *Pipeline) Analyze(ctx context.Context) (domain.AnalysisResult, error) {
	records, err := p.csv.LoadCombined()
	if err != nil {
		return domain.AnalysisResult{}, fmt.Errorf("load combined: %w", err)
	}

	result := p.analyzer.Analyze(records)
	if _, err := p.writeResult(result); err != nil {
		return domain.AnalysisResult{}, err
	}
	return result, nil
}

// Report renders chart pages from the combined processed CSV.
func (p *Pipeline) Report(ctx context.Context) error {
	if p.reporter == nil {
		return fmt.Errorf("no reporter configured")
	}

	records, err := p.csv.LoadCombined()
	if err != nil {
		return fmt.Errorf("load combined: %w", err)
	}

	return p.reporter.Render(p.analyzer.Analyze(records))
}

func (p *Pipeline) encodeTrends(ctx context.Context, records []domain.ProcessedRecord) error {
	if p.encoder == nil || len(records) == 0 {
		return nil
	}

	cleaned := make([]string, len(records))
	for i, rec := range records {
		cleaned[i] = rec.CleanAbstract
	}

	scores, err := p.encoder.EncodeBatch(ctx, cleaned)
	if err != nil {
		return err
	}
	if len(scores) != len(records) {
		return fmt.Errorf("expected %d score sets, got %d", len(records), len(scores))
	}

	for i := range records {
		records[i].TrendScores = scores[i]
	}
	return nil
}

func (p *Pipeline) persist(ctx context.Context, records []domain.ProcessedRecord) error {
	if p.repository == nil || len(records) == 0 {
		return nil
	}

	keys := make([]string, len(records))
	for i, rec := range records {
		keys[i] = rec.Key()
	}

	existing, err := p.repository.AlreadyProcessed(ctx, keys)
	if err != nil {
		return fmt.Errorf("load processed keys: %w", err)
	}

	for _, rec := range records {
		if existing[rec.Key()] {
			continue
		}
		if err := p.repository.SaveProcessed(ctx, rec); err != nil {
			return fmt.Errorf("save record %s: %w", rec.Key(), err)
		}
	}
	return nil
}

func (p *Pipeline) writeResult(result domain.AnalysisResult) (string, error) {
	data, err := analysis.MarshalResult(result)
	if err != nil {
		return "", err
	}

	path := filepath.Join(filepath.Dir(p.csv.CombinedPath()), analysis.ResultFileName(p.now()))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	return path, nil
}

func (p *Pipeline) info(msg string, args ...any) {
	if p.logger != nil {
		p.logger.Info(msg, args...)
	}
}

func buildDigestMessage(result domain.AnalysisResult) string {
	total := 0
	for _, stat := range result.TemporalTrends.Yearly {
		total += stat.AbstractCount
	}

	topGeo := ""
	topCount := 0
	for geo, count := range result.GeographicalDistribution.OverallDistribution {
		if count > topCount || (count == topCount && geo < topGeo) {
			topGeo, topCount = geo, count
		}
	}

	msg := fmt.Sprintf("*DDW trends analysis finished*\nAbstracts: %d\nCOVID-related post-cutoff: %.1f%%",
		total, result.CovidImpact.CovidRelatedPercentage)
	if topGeo != "" {
		msg += fmt.Sprintf("\nTop geography: %s (%d)", topGeo, topCount)
	}
	return msg
}
