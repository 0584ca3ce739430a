package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"ddwtrends/internal/domain"
	"ddwtrends/internal/ports"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// PostgresRepository persists processed records into Postgres for
// cross-run deduplication and history.
type PostgresRepository struct {
	db *sql.DB
}

var _ ports.RecordRepository = (*PostgresRepository)(nil)

// NewPostgresRepository wires a sql.DB implementation.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// AlreadyProcessed returns a map with identity keys that already exist
// in storage.
func (r *PostgresRepository) AlreadyProcessed(ctx context.Context, keys []string) (map[string]bool, error) {
	result := make(map[string]bool)
	if r.db == nil || len(keys) == 0 {
		return result, nil
	}

	query, args, err := psql.
		Select("record_key").
		From("processed_abstracts").
		Where(sq.Eq{"record_key": keys}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query processed: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("scan key: %w", err)
		}
		result[key] = true
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}

	return result, nil
}

// SaveProcessed upserts the processed record snapshot. Trend scores are
// stored as a JSON document.
func (r *PostgresRepository) SaveProcessed(ctx context.Context, record domain.ProcessedRecord) error {
	if r.db == nil {
		return nil
	}

	scores, err := json.Marshal(record.TrendScores)
	if err != nil {
		return fmt.Errorf("marshal trend scores: %w", err)
	}

	query, args, err := psql.
		Insert("processed_abstracts").
		Columns(
			"record_key", "title", "abstract", "author", "author_affiliation",
			"presentation_date", "clean_abstract", "word_count", "contains_covid",
			"research_category", "geography", "trend_scores",
		).
		Values(
			record.Key(),
			record.Title,
			record.Abstract,
			record.Author,
			record.AuthorAffiliation,
			record.PresentationDate,
			record.CleanAbstract,
			record.WordCount,
			record.ContainsCovid,
			string(record.ResearchCategory),
			record.Geography,
			scores,
		).
		Suffix(`ON CONFLICT (record_key) DO UPDATE
            SET clean_abstract = EXCLUDED.clean_abstract,
                word_count = EXCLUDED.word_count,
                contains_covid = EXCLUDED.contains_covid,
                research_category = EXCLUDED.research_category,
                geography = EXCLUDED.geography,
                trend_scores = EXCLUDED.trend_scores,
                updated_at = NOW()`).
		ToSql()
	if err != nil {
		return fmt.Errorf("build upsert: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert processed: %w", err)
	}

	return nil
}
