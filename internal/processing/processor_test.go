package processing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ddwtrends/internal/domain"
)

func TestCleanText(t *testing.T) {
	t.Parallel()

	cleaned := CleanText("This is a TEST with special chars: @#$%")
	assert.Equal(t, "this is a test with special chars", cleaned)

	assert.Equal(t, "sarscov2 spike protein", CleanText("SARS-CoV-2  spike   protein!"))
	assert.Equal(t, "", CleanText("   "))
}

func TestWordCountMatchesTokens(t *testing.T) {
	t.Parallel()

	clean := CleanText("A clinical trial study about COVID-19 treatment")
	assert.Equal(t, 7, WordCount(clean))
	assert.Equal(t, 0, WordCount(""))
}

func TestContainsCovid(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 1, ContainsCovid(CleanText("Impact of COVID-19 on GI procedures")))
	assert.Equal(t, 1, ContainsCovid(CleanText("SARS-CoV-2 serology in IBD patients")))
	assert.Equal(t, 1, ContainsCovid(CleanText("novel coronavirus screening")))
	assert.Equal(t, 0, ContainsCovid(CleanText("Novel endoscopic techniques for detection")))
}

func TestCategorize(t *testing.T) {
	t.Parallel()

	assert.Equal(t, domain.CategoryClinicalTrial, Categorize(CleanText("This is a randomized controlled trial")))
	assert.Equal(t, domain.CategoryObservational, Categorize(CleanText("A retrospective cohort study")))
	assert.Equal(t, domain.CategoryBasicScience, Categorize(CleanText("In vitro examination of cells")))
	assert.Equal(t, domain.CategoryMetaAnalysis, Categorize(CleanText("A meta-analysis of published series")))
	assert.Equal(t, domain.CategoryCaseStudy, Categorize(CleanText("We present a case report of rare disease")))
	assert.Equal(t, domain.CategoryOther, Categorize(CleanText("General overview of the field")))

	// First rule wins when several patterns match.
	assert.Equal(t, domain.CategoryClinicalTrial, Categorize(CleanText("randomized trial within a prospective cohort")))
}

func TestExtractGeography(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "USA", ExtractGeography("Department of Medicine, Stanford University, USA"))
	assert.Equal(t, "USA", ExtractGeography("Mayo Clinic, United States"))
	assert.Equal(t, "UK", ExtractGeography("Oxford University, United Kingdom"))
	assert.Equal(t, "Japan", ExtractGeography("Tokyo University, Japan"))
	assert.Equal(t, "Standalone Institute", ExtractGeography("Standalone Institute"))
}

func TestValidateDropsInvalidAndDuplicates(t *testing.T) {
	t.Parallel()

	date := time.Date(2021, time.May, 1, 0, 0, 0, 0, time.UTC)
	good := domain.AbstractRecord{
		Title:             "COVID-19 Study",
		Abstract:          "Study about COVID-19 impact on GI procedures",
		Author:            "John Smith",
		AuthorAffiliation: "Harvard University, USA",
		PresentationDate:  date,
	}
	missingAuthor := good
	missingAuthor.Author = ""
	noDate := good
	noDate.Title = "Undated"
	noDate.PresentationDate = time.Time{}

	p := New(nil)
	valid := p.Validate([]domain.AbstractRecord{good, missingAuthor, good, noDate})

	require.Len(t, valid, 1)
	assert.Equal(t, good.Key(), valid[0].Key())
}

func TestProcessDerivesAllFields(t *testing.T) {
	t.Parallel()

	rec := domain.AbstractRecord{
		Title:             "Sample Abstract 1",
		Abstract:          "A clinical trial study about COVID-19 treatment",
		Author:            "John Doe",
		AuthorAffiliation: "Stanford University, USA",
		PresentationDate:  time.Date(2020, time.May, 1, 0, 0, 0, 0, time.UTC),
	}

	processed := New(nil).Process(rec)

	assert.Equal(t, "a clinical trial study about covid19 treatment", processed.CleanAbstract)
	assert.Equal(t, WordCount(processed.CleanAbstract), processed.WordCount)
	assert.Equal(t, 1, processed.ContainsCovid)
	assert.Equal(t, domain.CategoryClinicalTrial, processed.ResearchCategory)
	assert.Equal(t, "USA", processed.Geography)
	assert.Equal(t, rec, processed.AbstractRecord)
}
