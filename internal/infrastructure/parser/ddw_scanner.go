package parser

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/cenkalti/backoff/v4"
	"golang.org/x/sync/errgroup"

	"ddwtrends/internal/domain"
	"ddwtrends/internal/scanner"
)

// DDWScanner crawls the DDW abstract archive and extracts records for the
// requested conference year.
type DDWScanner struct {
	client      *http.Client
	logger      *slog.Logger
	pageSize    int
	maxRetries  int
	concurrency int
}

// Option tunes a DDWScanner.
type Option func(*DDWScanner)

// WithPageSize overrides the page size requested from the archive.
func WithPageSize(size int) Option {
	return func(s *DDWScanner) {
		if size > 0 {
			s.pageSize = size
		}
	}
}

// WithMaxRetries bounds the retry attempts per page fetch.
func WithMaxRetries(n int) Option {
	return func(s *DDWScanner) {
		if n >= 0 {
			s.maxRetries = n
		}
	}
}

// WithConcurrency bounds how many categories are fetched in parallel.
func WithConcurrency(n int) Option {
	return func(s *DDWScanner) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// NewDDWScanner wires an HTTP client; pageSize defaults to 100 and
// categories are fetched sequentially unless configured otherwise.
func NewDDWScanner(client *http.Client, logger *slog.Logger, opts ...Option) *DDWScanner {
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	s := &DDWScanner{
		client:      client,
		logger:      logger,
		pageSize:    100,
		maxRetries:  3,
		concurrency: 1,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name identifies the strategy inside the registry.
func (s *DDWScanner) Name() string {
	return "ddw"
}

// Scan walks each category endpoint page by page and returns all records
// presented in the requested year. Categories run through a bounded
// worker pool; records are deduplicated by identity tuple, category
// order preserved.
func (s *DDWScanner) Scan(ctx context.Context, req scanner.Request) ([]domain.AbstractRecord, error) {
	if len(req.Categories) == 0 {
		return nil, fmt.Errorf("no categories provided for site %s", req.SiteName)
	}

	perCategory := make([][]domain.AbstractRecord, len(req.Categories))
	var mu sync.Mutex

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(s.concurrency)

	for i, cat := range req.Categories {
		i, cat := i, cat
		group.Go(func() error {
			records, err := s.scanCategory(groupCtx, req.Year, cat)
			if err != nil {
				return fmt.Errorf("category %s: %w", cat.Name, err)
			}
			mu.Lock()
			perCategory[i] = records
			mu.Unlock()
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return nil, err
	}

	seen := map[string]struct{}{}
	var results []domain.AbstractRecord
	for _, records := range perCategory {
		for _, rec := range records {
			key := rec.Key()
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			results = append(results, rec)
		}
	}

	return results, nil
}

func (s *DDWScanner) scanCategory(ctx context.Context, year int, cat scanner.Category) ([]domain.AbstractRecord, error) {
	var collected []domain.AbstractRecord

	for page := 1; ; page++ {
		pageURL, err := buildPageURL(cat.URL, year, page, s.pageSize)
		if err != nil {
			return nil, err
		}

		doc, err := s.fetchDocument(ctx, pageURL)
		if err != nil {
			return nil, err
		}

		records := extractRecords(doc)
		collected = append(collected, records...)

		s.debug("scanned page", "category", cat.Name, "page", page, "records", len(records))

		if len(records) < s.pageSize {
			break
		}
	}

	return collected, nil
}

// fetchDocument retrieves and parses one archive page, retrying transient
// failures with exponential backoff. Client errors (4xx) are permanent.
func (s *DDWScanner) fetchDocument(ctx context.Context, pageURL string) (*goquery.Document, error) {
	var doc *goquery.Document

	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("build request: %w", err))
		}
		req.Header.Set("User-Agent", "ddwtrends/1.0")

		resp, err := s.client.Do(req)
		if err != nil {
			return fmt.Errorf("request document: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode >= http.StatusInternalServerError {
			return fmt.Errorf("archive returned %s", resp.Status)
		}
		if resp.StatusCode != http.StatusOK {
			return backoff.Permanent(fmt.Errorf("archive returned %s", resp.Status))
		}

		parsed, err := goquery.NewDocumentFromReader(resp.Body)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("parse document: %w", err))
		}
		doc = parsed
		return nil
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), uint64(s.maxRetries)),
		ctx,
	)
	if err := backoff.Retry(operation, policy); err != nil {
		return nil, fmt.Errorf("fetch %s: %w", pageURL, err)
	}

	return doc, nil
}

func extractRecords(doc *goquery.Document) []domain.AbstractRecord {
	var records []domain.AbstractRecord

	doc.Find("div.abstract").Each(func(_ int, sel *goquery.Selection) {
		rec := parseEntry(sel)
		records = append(records, rec)
	})

	return records
}

// parseEntry maps one abstract block to a record. Dates that do not
// parse leave PresentationDate zero; validation drops those later.
func parseEntry(sel *goquery.Selection) domain.AbstractRecord {
	rec := domain.AbstractRecord{
		Title:             strings.TrimSpace(sel.Find("h2").First().Text()),
		Abstract:          strings.TrimSpace(sel.Find("div.content").First().Text()),
		Author:            strings.TrimSpace(sel.Find("div.author").First().Text()),
		AuthorAffiliation: strings.TrimSpace(sel.Find("div.affiliation").First().Text()),
	}

	dateText := strings.TrimSpace(sel.Find("div.date").First().Text())
	if parsed, err := time.Parse(domain.DateLayout, dateText); err == nil {
		rec.PresentationDate = parsed
	}

	return rec
}

func buildPageURL(base string, year, page, pageSize int) (string, error) {
	parsed, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid category url %s: %w", base, err)
	}

	query := parsed.Query()
	query.Set("year", strconv.Itoa(year))
	query.Set("page", strconv.Itoa(page))
	query.Set("show", strconv.Itoa(pageSize))
	parsed.RawQuery = query.Encode()
	return parsed.String(), nil
}

func (s *DDWScanner) debug(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}
