package domain

import (
	"fmt"
	"time"
)

// DateLayout is the canonical presentation-date format used across CSV
// files and scraped pages.
const DateLayout = "2006-01-02"

// AbstractRecord is a core entity describing a single conference abstract
// as fetched from a provider. Immutable once validated.
type AbstractRecord struct {
	Title             string
	Abstract          string
	Author            string
	AuthorAffiliation string
	PresentationDate  time.Time
}

// Key returns the identity of the record: unique per (title, author, date).
func (r AbstractRecord) Key() string {
	return fmt.Sprintf("%s|%s|%s", r.Title, r.Author, r.PresentationDate.Format(DateLayout))
}

// ResearchCategory labels the study design inferred from the abstract text.
type ResearchCategory string

const (
	CategoryClinicalTrial ResearchCategory = "clinical_trial"
	CategoryObservational ResearchCategory = "observational"
	CategoryBasicScience  ResearchCategory = "basic_science"
	CategoryMetaAnalysis  ResearchCategory = "meta_analysis"
	CategoryCaseStudy     ResearchCategory = "case_study"
	CategoryOther         ResearchCategory = "other"
)

// TrendScores maps trend-category names to model confidence scores.
type TrendScores map[string]float64

// ProcessedRecord is an AbstractRecord plus deterministically derived
// fields. Never mutated after creation; traces to exactly one
// AbstractRecord.
type ProcessedRecord struct {
	AbstractRecord
	CleanAbstract    string
	WordCount        int
	ContainsCovid    int
	ResearchCategory ResearchCategory
	Geography        string
	TrendScores      TrendScores
}
