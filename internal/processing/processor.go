package processing

import (
	"log/slog"
	"regexp"
	"strings"

	"ddwtrends/internal/domain"
)

// covidExpr matches the cleaned abstract text. Cleaning deletes
// punctuation, so "sars-cov-2" arrives as "sarscov2".
var covidExpr = regexp.MustCompile(`covid|sarscov2|coronavirus`)

var nonWordExpr = regexp.MustCompile(`[^\w\s]`)

// categoryRule pairs a research category with the pattern that selects
// it. Order matters: the first match wins.
type categoryRule struct {
	category domain.ResearchCategory
	pattern  *regexp.Regexp
}

var categoryRules = []categoryRule{
	{domain.CategoryClinicalTrial, regexp.MustCompile(`trial|randomized|placebo`)},
	{domain.CategoryObservational, regexp.MustCompile(`cohort|retrospective|prospective`)},
	{domain.CategoryBasicScience, regexp.MustCompile(`vitro|vivo|molecular|cellular`)},
	{domain.CategoryMetaAnalysis, regexp.MustCompile(`metaanalysis|systematic review`)},
	{domain.CategoryCaseStudy, regexp.MustCompile(`case report|case series`)},
}

// geographyAliases folds common spellings so the geographic rollup does
// not split one country across labels.
var geographyAliases = map[string]string{
	"us":             "USA",
	"usa":            "USA",
	"united states":  "USA",
	"uk":             "UK",
	"united kingdom": "UK",
}

// Processor derives ProcessedRecords from validated AbstractRecords. All
// derivations are pure; the logger only reports dropped inputs.
type Processor struct {
	logger *slog.Logger
}

// New builds a Processor. A nil logger disables drop reporting.
func New(logger *slog.Logger) *Processor {
	return &Processor{logger: logger}
}

// Validate enforces the raw schema: required fields present and a
// parseable presentation date. Duplicate identity tuples are dropped,
// first occurrence wins. Input order is preserved.
func (p *Processor) Validate(records []domain.AbstractRecord) []domain.AbstractRecord {
	valid := make([]domain.AbstractRecord, 0, len(records))
	seen := map[string]struct{}{}

	for _, rec := range records {
		if rec.Title == "" || rec.Abstract == "" || rec.Author == "" {
			p.drop("missing required field", rec)
			continue
		}
		if rec.PresentationDate.IsZero() {
			p.drop("missing or unparseable presentation date", rec)
			continue
		}

		key := rec.Key()
		if _, ok := seen[key]; ok {
			p.drop("duplicate record", rec)
			continue
		}
		seen[key] = struct{}{}
		valid = append(valid, rec)
	}

	return valid
}

// Process derives all feature fields for a single validated record.
func (p *Processor) Process(rec domain.AbstractRecord) domain.ProcessedRecord {
	clean := CleanText(rec.Abstract)

	return domain.ProcessedRecord{
		AbstractRecord:   rec,
		CleanAbstract:    clean,
		WordCount:        WordCount(clean),
		ContainsCovid:    ContainsCovid(clean),
		ResearchCategory: Categorize(clean),
		Geography:        ExtractGeography(rec.AuthorAffiliation),
	}
}

// ProcessAll validates and processes a batch, preserving order.
func (p *Processor) ProcessAll(records []domain.AbstractRecord) []domain.ProcessedRecord {
	valid := p.Validate(records)
	processed := make([]domain.ProcessedRecord, 0, len(valid))
	for _, rec := range valid {
		processed = append(processed, p.Process(rec))
	}
	return processed
}

// CleanText lowercases, deletes punctuation and collapses whitespace.
func CleanText(text string) string {
	text = strings.ToLower(text)
	text = nonWordExpr.ReplaceAllString(text, "")
	return strings.Join(strings.Fields(text), " ")
}

// WordCount is the number of whitespace-separated tokens.
func WordCount(clean string) int {
	return len(strings.Fields(clean))
}

// ContainsCovid reports 1 iff a COVID-related keyword matches the
// cleaned text.
func ContainsCovid(clean string) int {
	if covidExpr.MatchString(clean) {
		return 1
	}
	return 0
}

// Categorize returns the first matching research category, or "other".
func Categorize(clean string) domain.ResearchCategory {
	for _, rule := range categoryRules {
		if rule.pattern.MatchString(clean) {
			return rule.category
		}
	}
	return domain.CategoryOther
}

// ExtractGeography takes the final comma-separated field of the author
// affiliation, trimmed and alias-normalized.
func ExtractGeography(affiliation string) string {
	parts := strings.Split(affiliation, ",")
	geo := strings.TrimSpace(parts[len(parts)-1])
	if alias, ok := geographyAliases[strings.ToLower(geo)]; ok {
		return alias
	}
	return geo
}

func (p *Processor) drop(reason string, rec domain.AbstractRecord) {
	if p.logger != nil {
		p.logger.Warn("dropping record", "reason", reason, "title", rec.Title, "author", rec.Author)
	}
}
