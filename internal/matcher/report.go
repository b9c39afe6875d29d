package matcher

import (
	"github.com/Adithya-Monish-Kumar-K/medmind/internal/catalog"
	"github.com/Adithya-Monish-Kumar-K/medmind/internal/symptom"
)

// Report is what the CLI and HTTP surfaces show for one query.
//
// SevereAlert is computed over every matching entry before truncation, so a
// severe disease ranked below topN still raises it. DisplayedSevere covers
// only Results.
type Report struct {
	Query           []string      `json:"query"`
	Results         []MatchResult `json:"results"`
	TotalMatches    int           `json:"total_matches"`
	SevereAlert     bool          `json:"severe_alert"`
	DisplayedSevere bool          `json:"displayed_severe"`
}

// Match runs a query and builds its Report.
func Match(userInput string, entries []catalog.DiseaseEntry, topN int) (*Report, error) {
	query := symptom.Parse(userInput)
	ranked, err := rank(query, entries)
	if err != nil {
		return nil, err
	}
	shown := truncate(ranked, topN)
	return &Report{
		Query:           query.Sorted(),
		Results:         shown,
		TotalMatches:    len(ranked),
		SevereAlert:     HasSevere(ranked),
		DisplayedSevere: HasSevere(shown),
	}, nil
}

// Empty reports whether the query produced no results to display.
func (r *Report) Empty() bool {
	return len(r.Results) == 0
}
