package parser

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ddwtrends/internal/config"
	"ddwtrends/internal/domain"
	"ddwtrends/internal/scanner"
)

type fakeScanner struct {
	name    string
	records []domain.AbstractRecord
	err     error
	gotReq  scanner.Request
}

func (f *fakeScanner) Name() string { return f.name }

func (f *fakeScanner) Scan(_ context.Context, req scanner.Request) ([]domain.AbstractRecord, error) {
	f.gotReq = req
	return f.records, f.err
}

func TestFetchYearAggregatesSites(t *testing.T) {
	t.Parallel()

	rec := domain.AbstractRecord{
		Title:            "T",
		Author:           "A",
		PresentationDate: time.Date(2021, time.May, 1, 0, 0, 0, 0, time.UTC),
	}

	fake := &fakeScanner{name: "ddw", records: []domain.AbstractRecord{rec}}
	reg := scanner.NewRegistry()
	reg.Register(fake)

	sites := []config.SiteConfig{
		{
			Name:    "ddw-main",
			Scanner: "ddw",
			Categories: []config.CategoryConfig{
				{Name: "abstracts", URL: "https://ddw.org/abstracts"},
			},
		},
	}

	source := NewStrategySource(reg, sites, nil)
	records, err := source.FetchYear(context.Background(), 2021)
	require.NoError(t, err)

	assert.Equal(t, []domain.AbstractRecord{rec}, records)
	assert.Equal(t, 2021, fake.gotReq.Year)
	assert.Equal(t, "ddw-main", fake.gotReq.SiteName)
	require.Len(t, fake.gotReq.Categories, 1)
	assert.Equal(t, "https://ddw.org/abstracts", fake.gotReq.Categories[0].URL)
}

func TestFetchYearUnknownScanner(t *testing.T) {
	t.Parallel()

	source := NewStrategySource(scanner.NewRegistry(), []config.SiteConfig{{Name: "x", Scanner: "missing"}}, nil)
	_, err := source.FetchYear(context.Background(), 2021)
	assert.Error(t, err)
}

func TestFetchYearScanFailure(t *testing.T) {
	t.Parallel()

	fake := &fakeScanner{name: "ddw", err: fmt.Errorf("boom")}
	reg := scanner.NewRegistry()
	reg.Register(fake)

	source := NewStrategySource(reg, []config.SiteConfig{{Name: "ddw-main", Scanner: "ddw"}}, nil)
	_, err := source.FetchYear(context.Background(), 2021)
	assert.ErrorContains(t, err, "scan site ddw-main")
}
