package ports

import (
	"context"

	"ddwtrends/internal/domain"
)

// AbstractSource pulls abstract records for one conference year from
// upstream providers.
type AbstractSource interface {
	FetchYear(ctx context.Context, year int) ([]domain.AbstractRecord, error)
}

// RecordRepository persists processed records for deduplication/history.
type RecordRepository interface {
	AlreadyProcessed(ctx context.Context, keys []string) (map[string]bool, error)
	SaveProcessed(ctx context.Context, record domain.ProcessedRecord) error
}

// TrendEncoder sends cleaned abstracts to the pre-trained trend model and
// returns one score set per input, in input order.
type TrendEncoder interface {
	EncodeBatch(ctx context.Context, cleaned []string) ([]domain.TrendScores, error)
}

// Notifier streams run digests to Telegram or other channels.
type Notifier interface {
	PublishDigest(ctx context.Context, digest string) error
}
