package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "github.com/lib/pq"

	"ddwtrends/internal/analysis"
	"ddwtrends/internal/config"
	"ddwtrends/internal/domain"
	"ddwtrends/internal/infrastructure/csvstore"
	"ddwtrends/internal/infrastructure/parser"
	"ddwtrends/internal/infrastructure/storage"
	"ddwtrends/internal/infrastructure/telegram"
	"ddwtrends/internal/infrastructure/trendmodel"
	"ddwtrends/internal/logging"
	"ddwtrends/internal/ports"
	"ddwtrends/internal/processing"
	"ddwtrends/internal/report"
	"ddwtrends/internal/scanner"
	"ddwtrends/internal/usecase"
)

// Application wires configuration to the pipeline use case.
type Application struct {
	cfg      config.Config
	logger   *slog.Logger
	db       *sql.DB
	pipeline *usecase.Pipeline
}

// New builds a runnable application instance. Optional adapters
// (repository, encoder, notifier) are wired only when configured.
func New(cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}

	registry := scanner.NewRegistry()
	registry.Register(parser.NewDDWScanner(nil,
		baseLogger.With("component", "scanner.ddw"),
		parser.WithPageSize(cfg.Fetch.PageSize),
		parser.WithMaxRetries(cfg.Fetch.MaxRetries),
		parser.WithConcurrency(cfg.Fetch.Concurrency),
	))

	source := parser.NewStrategySource(registry, cfg.Sites, baseLogger.With("component", "source"))

	var db *sql.DB
	var repository ports.RecordRepository
	if cfg.Database.DSN != "" {
		opened, err := sql.Open("postgres", cfg.Database.DSN)
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		db = opened
		repository = storage.NewPostgresRepository(db)
	}

	var encoder ports.TrendEncoder
	if cfg.TrendModel.Endpoint != "" {
		encoder = trendmodel.NewClient(cfg.TrendModel.Endpoint, cfg.TrendModel.APIKey, cfg.TrendModel.BatchSize)
	}

	var notifier ports.Notifier
	if cfg.Notifications.Telegram.BotToken != "" {
		notifier = telegram.NewNotifier(cfg.Notifications.Telegram.BotToken, cfg.Notifications.Telegram.ChatID)
	}

	pipeline := usecase.NewPipeline(usecase.PipelineDeps{
		Source:     source,
		Repository: repository,
		Encoder:    encoder,
		Notifier:   notifier,
		CSV:        csvstore.New(cfg.Data.RawDir, cfg.Data.ProcessedDir),
		Processor:  processing.New(baseLogger.With("component", "processor")),
		Analyzer:   analysis.New(cfg.Analysis.CovidStart(), cfg.Analysis.SignificanceLevel),
		Reporter:   report.New(cfg.Data.FiguresDir),
		Logger:     baseLogger.With("component", "pipeline"),
	})

	return &Application{cfg: cfg, logger: baseLogger, db: db, pipeline: pipeline}, nil
}

// Run executes the full pipeline over the configured year range.
func (a *Application) Run(ctx context.Context) error {
	return a.pipeline.Run(ctx, a.cfg.Years.List())
}

// FetchYear scrapes one year and stores the raw CSV.
func (a *Application) FetchYear(ctx context.Context, year int) error {
	_, err := a.pipeline.FetchYear(ctx, year)
	return err
}

// ProcessYear derives the processed record set for one year.
func (a *Application) ProcessYear(ctx context.Context, year int) error {
	_, err := a.pipeline.ProcessYear(ctx, year)
	return err
}

// Analyze aggregates the combined processed set and writes the results
// document.
func (a *Application) Analyze(ctx context.Context) (domain.AnalysisResult, error) {
	return a.pipeline.Analyze(ctx)
}

// Report renders chart pages from the combined processed set.
func (a *Application) Report(ctx context.Context) error {
	return a.pipeline.Report(ctx)
}

// Close releases held resources.
func (a *Application) Close() error {
	if a.db != nil {
		return a.db.Close()
	}
	return nil
}
