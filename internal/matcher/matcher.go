// Package matcher ranks catalog diseases against a free-text symptom list.
//
// A disease's score is the number of query symptom tokens it shares with
// the entry's symptom set. Zero-score entries are dropped, the rest are
// ordered by score descending with ties kept in catalog order, and the
// ranking is cut to topN. Everything here is a pure function of its inputs.
package matcher

import (
	"slices"

	"github.com/Adithya-Monish-Kumar-K/medmind/internal/catalog"
	"github.com/Adithya-Monish-Kumar-K/medmind/internal/symptom"
)

// DefaultTopN is the result bound used when callers have no preference.
const DefaultTopN = 5

// MatchResult is one ranked disease with the fields needed for display.
type MatchResult struct {
	Disease     string `json:"disease"`
	Score       int    `json:"score"`
	Description string `json:"description"`
	Severity    string `json:"severity"`
	Symptoms    string `json:"symptoms"`
	Precautions string `json:"precautions"`
}

// IsSevere reports whether the result's severity is "severe" in any case.
func (r MatchResult) IsSevere() bool {
	return catalog.DiseaseEntry{Severity: r.Severity}.IsSevere()
}

// FindLikelyDiseases returns at most topN entries that share at least one
// symptom with userInput, best first. A topN of zero or less yields an empty
// result. An entry without symptoms fails the whole query with a
// *catalog.MalformedEntryError.
func FindLikelyDiseases(userInput string, entries []catalog.DiseaseEntry, topN int) ([]MatchResult, error) {
	ranked, err := rank(symptom.Parse(userInput), entries)
	if err != nil {
		return nil, err
	}
	return truncate(ranked, topN), nil
}

// rank returns every entry with a positive score against query, best first.
func rank(query symptom.Set, entries []catalog.DiseaseEntry) ([]MatchResult, error) {
	results := make([]MatchResult, 0)
	if query.Len() == 0 {
		return results, nil
	}
	for _, e := range entries {
		if e.SymptomSet.Len() == 0 {
			return nil, &catalog.MalformedEntryError{Name: e.Name, Reason: "entry has no symptom set"}
		}
		score := query.IntersectCount(e.SymptomSet)
		if score == 0 {
			continue
		}
		results = append(results, MatchResult{
			Disease:     e.Name,
			Score:       score,
			Description: e.Description,
			Severity:    e.Severity,
			Symptoms:    e.RawSymptoms,
			Precautions: e.Precautions,
		})
	}
	// stable: equal scores keep catalog order
	slices.SortStableFunc(results, func(a, b MatchResult) int {
		return b.Score - a.Score
	})
	return results, nil
}

func truncate(results []MatchResult, topN int) []MatchResult {
	if topN <= 0 {
		return results[:0]
	}
	if len(results) > topN {
		return results[:topN]
	}
	return results
}

// HasSevere reports whether any result is severe.
func HasSevere(results []MatchResult) bool {
	return slices.ContainsFunc(results, MatchResult.IsSevere)
}
