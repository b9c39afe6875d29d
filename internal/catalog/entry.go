package catalog

import (
	"fmt"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/medmind/internal/symptom"
	apperrors "github.com/Adithya-Monish-Kumar-K/medmind/pkg/errors"
)

// SeveritySevere is the severity that raises the alert, compared
// case-insensitively.
const SeveritySevere = "severe"

// DiseaseEntry is one immutable catalog record.
type DiseaseEntry struct {
	Name        string      `json:"disease" yaml:"disease"`
	SymptomSet  symptom.Set `json:"-" yaml:"-"`
	Description string      `json:"description" yaml:"description"`
	Severity    string      `json:"severity" yaml:"severity"`
	RawSymptoms string      `json:"symptoms" yaml:"symptoms"`
	Precautions string      `json:"precautions" yaml:"precautions"`
}

// MalformedEntryError reports an entry whose symptom field yields no tokens.
type MalformedEntryError struct {
	Name   string
	Reason string
}

func (e *MalformedEntryError) Error() string {
	return fmt.Sprintf("malformed entry %q: %s", e.Name, e.Reason)
}

func (e *MalformedEntryError) Unwrap() error {
	return apperrors.ErrMalformedEntry
}

// NewEntry builds a DiseaseEntry and derives its symptom set.
func NewEntry(name, rawSymptoms, description, severity, precautions string) (DiseaseEntry, error) {
	set := symptom.Parse(rawSymptoms)
	if set.Len() == 0 {
		return DiseaseEntry{}, &MalformedEntryError{Name: name, Reason: "symptoms field has no tokens"}
	}
	return DiseaseEntry{
		Name:        name,
		SymptomSet:  set,
		Description: description,
		Severity:    severity,
		RawSymptoms: rawSymptoms,
		Precautions: precautions,
	}, nil
}

// IsSevere reports whether the entry's severity is "severe" in any case.
func (e DiseaseEntry) IsSevere() bool {
	return strings.EqualFold(e.Severity, SeveritySevere)
}
