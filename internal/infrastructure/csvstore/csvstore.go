package csvstore

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"ddwtrends/internal/domain"
)

// Column orders are part of the published file format and must not be
// reordered.
var rawHeader = []string{"title", "abstract", "author", "author_affiliation", "presentation_date"}

var processedHeader = append(append([]string{}, rawHeader...),
	"clean_abstract", "word_count", "contains_covid", "research_category", "geography")

// Store reads and writes the pipeline's CSV files using the fixed naming
// scheme: ddw_abstracts_YYYY.csv in the raw directory,
// processed_abstracts_YYYY.csv and all_abstracts_processed.csv in the
// processed directory.
type Store struct {
	rawDir       string
	processedDir string
}

// New creates a Store rooted at the two data directories.
func New(rawDir, processedDir string) *Store {
	return &Store{rawDir: rawDir, processedDir: processedDir}
}

// RawPath names the raw file for a year.
func (s *Store) RawPath(year int) string {
	return filepath.Join(s.rawDir, fmt.Sprintf("ddw_abstracts_%d.csv", year))
}

// ProcessedPath names the processed file for a year.
func (s *Store) ProcessedPath(year int) string {
	return filepath.Join(s.processedDir, fmt.Sprintf("processed_abstracts_%d.csv", year))
}

// CombinedPath names the all-years processed file.
func (s *Store) CombinedPath() string {
	return filepath.Join(s.processedDir, "all_abstracts_processed.csv")
}

// ProcessedExists reports whether a processed file for the year is on disk.
func (s *Store) ProcessedExists(year int) bool {
	_, err := os.Stat(s.ProcessedPath(year))
	return err == nil
}

// SaveRaw writes abstract records for one year.
func (s *Store) SaveRaw(year int, records []domain.AbstractRecord) error {
	rows := make([][]string, 0, len(records))
	for _, rec := range records {
		rows = append(rows, rawRow(rec))
	}
	return writeFile(s.RawPath(year), rawHeader, rows)
}

// LoadRaw reads abstract records for one year.
func (s *Store) LoadRaw(year int) ([]domain.AbstractRecord, error) {
	rows, err := readFile(s.RawPath(year), len(rawHeader))
	if err != nil {
		return nil, err
	}

	records := make([]domain.AbstractRecord, 0, len(rows))
	for i, row := range rows {
		rec, err := parseRawRow(row)
		if err != nil {
			return nil, fmt.Errorf("%s row %d: %w", s.RawPath(year), i+2, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

// SaveProcessed writes processed records for one year.
func (s *Store) SaveProcessed(year int, records []domain.ProcessedRecord) error {
	return writeFile(s.ProcessedPath(year), processedHeader, processedRows(records))
}

// LoadProcessed reads processed records for one year.
func (s *Store) LoadProcessed(year int) ([]domain.ProcessedRecord, error) {
	return s.loadProcessedFile(s.ProcessedPath(year))
}

// SaveCombined writes the all-years processed file.
func (s *Store) SaveCombined(records []domain.ProcessedRecord) error {
	return writeFile(s.CombinedPath(), processedHeader, processedRows(records))
}

// LoadCombined reads the all-years processed file.
func (s *Store) LoadCombined() ([]domain.ProcessedRecord, error) {
	return s.loadProcessedFile(s.CombinedPath())
}

func (s *Store) loadProcessedFile(path string) ([]domain.ProcessedRecord, error) {
	rows, err := readFile(path, len(processedHeader))
	if err != nil {
		return nil, err
	}

	records := make([]domain.ProcessedRecord, 0, len(rows))
	for i, row := range rows {
		rec, err := parseProcessedRow(row)
		if err != nil {
			return nil, fmt.Errorf("%s row %d: %w", path, i+2, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

func rawRow(rec domain.AbstractRecord) []string {
	return []string{
		rec.Title,
		rec.Abstract,
		rec.Author,
		rec.AuthorAffiliation,
		rec.PresentationDate.Format(domain.DateLayout),
	}
}

func parseRawRow(row []string) (domain.AbstractRecord, error) {
	date, err := time.Parse(domain.DateLayout, row[4])
	if err != nil {
		return domain.AbstractRecord{}, fmt.Errorf("parse presentation_date: %w", err)
	}

	return domain.AbstractRecord{
		Title:             row[0],
		Abstract:          row[1],
		Author:            row[2],
		AuthorAffiliation: row[3],
		PresentationDate:  date,
	}, nil
}

func processedRows(records []domain.ProcessedRecord) [][]string {
	rows := make([][]string, 0, len(records))
	for _, rec := range records {
		row := append(rawRow(rec.AbstractRecord),
			rec.CleanAbstract,
			strconv.Itoa(rec.WordCount),
			strconv.Itoa(rec.ContainsCovid),
			string(rec.ResearchCategory),
			rec.Geography,
		)
		rows = append(rows, row)
	}
	return rows
}

func parseProcessedRow(row []string) (domain.ProcessedRecord, error) {
	raw, err := parseRawRow(row[:5])
	if err != nil {
		return domain.ProcessedRecord{}, err
	}

	wordCount, err := strconv.Atoi(row[6])
	if err != nil {
		return domain.ProcessedRecord{}, fmt.Errorf("parse word_count: %w", err)
	}

	containsCovid, err := strconv.Atoi(row[7])
	if err != nil {
		return domain.ProcessedRecord{}, fmt.Errorf("parse contains_covid: %w", err)
	}

	return domain.ProcessedRecord{
		AbstractRecord:   raw,
		CleanAbstract:    row[5],
		WordCount:        wordCount,
		ContainsCovid:    containsCovid,
		ResearchCategory: domain.ResearchCategory(row[8]),
		Geography:        row[9],
	}, nil
}

func writeFile(path string, header []string, rows [][]string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create directory for %s: %w", path, err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		_ = f.Close()
		return fmt.Errorf("write header: %w", err)
	}
	for _, row := range rows {
		if err := w.Write(row); err != nil {
			_ = f.Close()
			return fmt.Errorf("write row: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		_ = f.Close()
		return fmt.Errorf("flush %s: %w", path, err)
	}

	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	return nil
}

func readFile(path string, wantColumns int) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = wantColumns

	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("read %s: missing header", path)
	}
	return rows[1:], nil
}
