package catalog

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	apperrors "github.com/Adithya-Monish-Kumar-K/medmind/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Required column names of the tabular catalog schema.
const (
	ColumnDisease     = "Disease"
	ColumnSymptoms    = "Symptoms"
	ColumnDescription = "Description"
	ColumnSeverity    = "Severity"
	ColumnPrecautions = "Precautions"
)

var requiredColumns = []string{
	ColumnDisease,
	ColumnSymptoms,
	ColumnDescription,
	ColumnSeverity,
	ColumnPrecautions,
}

// LoadError describes why a catalog source could not be turned into a
// Catalog. Record is the 1-based data record (header excluded), or 0 when
// the failure is not tied to a record.
type LoadError struct {
	Source string
	Record int
	Reason string
	Err    error
}

func (e *LoadError) Error() string {
	msg := fmt.Sprintf("loading catalog %s", e.Source)
	if e.Record > 0 {
		msg += fmt.Sprintf(" (record %d)", e.Record)
	}
	msg += ": " + e.Reason
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *LoadError) Unwrap() []error {
	if e.Err == nil {
		return []error{apperrors.ErrCatalogLoad}
	}
	return []error{apperrors.ErrCatalogLoad, e.Err}
}

// Load reads a catalog file, choosing the parser by extension.
func Load(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &LoadError{Source: path, Reason: "opening source", Err: err}
	}
	defer f.Close()

	var c *Catalog
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".csv":
		c, err = ReadCSV(f, path)
	case ".yaml", ".yml":
		c, err = ReadYAML(f, path)
	default:
		return nil, &LoadError{Source: path, Reason: fmt.Sprintf("unsupported file extension %q", ext)}
	}
	if err != nil {
		return nil, err
	}
	slog.Default().With("component", "catalog").Info("catalog loaded",
		"source", path,
		"entries", c.Len(),
	)
	return c, nil
}

// ReadCSV parses a CSV catalog with a header row. Column order is free and
// unknown columns are ignored.
func ReadCSV(r io.Reader, source string) (*Catalog, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, &LoadError{Source: source, Reason: "empty source"}
	}
	if err != nil {
		return nil, &LoadError{Source: source, Reason: "reading header", Err: err}
	}
	index := make(map[string]int, len(header))
	for i, col := range header {
		col = strings.TrimSpace(strings.TrimPrefix(col, "\ufeff"))
		if _, dup := index[col]; !dup {
			index[col] = i
		}
	}
	for _, col := range requiredColumns {
		if _, ok := index[col]; !ok {
			return nil, &LoadError{Source: source, Reason: fmt.Sprintf("missing required column %q", col)}
		}
	}

	var entries []DiseaseEntry
	for record := 1; ; record++ {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &LoadError{Source: source, Record: record, Reason: "reading record", Err: err}
		}
		field := func(col string) string {
			return row[index[col]]
		}
		entry, err := buildEntry(
			field(ColumnDisease),
			field(ColumnSymptoms),
			field(ColumnDescription),
			field(ColumnSeverity),
			field(ColumnPrecautions),
		)
		if err != nil {
			return nil, &LoadError{Source: source, Record: record, Reason: "invalid entry", Err: err}
		}
		entries = append(entries, entry)
	}
	if len(entries) == 0 {
		return nil, &LoadError{Source: source, Reason: "no records"}
	}
	return New(source, entries), nil
}

type yamlCatalog struct {
	Diseases []yamlRecord `yaml:"diseases"`
}

type yamlRecord struct {
	Disease     string `yaml:"disease"`
	Symptoms    string `yaml:"symptoms"`
	Description string `yaml:"description"`
	Severity    string `yaml:"severity"`
	Precautions string `yaml:"precautions"`
}

// ReadYAML parses a YAML catalog of the form:
//
//	diseases:
//	  - disease: Flu
//	    symptoms: fever, cough
//	    description: ...
//	    severity: moderate
//	    precautions: rest;fluids
func ReadYAML(r io.Reader, source string) (*Catalog, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var doc yamlCatalog
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, &LoadError{Source: source, Reason: "empty source"}
		}
		return nil, &LoadError{Source: source, Reason: "parsing yaml", Err: err}
	}
	if len(doc.Diseases) == 0 {
		return nil, &LoadError{Source: source, Reason: "no records"}
	}
	entries := make([]DiseaseEntry, 0, len(doc.Diseases))
	for i, rec := range doc.Diseases {
		entry, err := buildEntry(rec.Disease, rec.Symptoms, rec.Description, rec.Severity, rec.Precautions)
		if err != nil {
			return nil, &LoadError{Source: source, Record: i + 1, Reason: "invalid entry", Err: err}
		}
		entries = append(entries, entry)
	}
	return New(source, entries), nil
}

// buildEntry validates the required fields of one record.
func buildEntry(name, symptoms, description, severity, precautions string) (DiseaseEntry, error) {
	fields := []struct {
		col   string
		value string
	}{
		{ColumnDisease, name},
		{ColumnSymptoms, symptoms},
		{ColumnDescription, description},
		{ColumnSeverity, severity},
		{ColumnPrecautions, precautions},
	}
	for _, f := range fields {
		if strings.TrimSpace(f.value) == "" {
			return DiseaseEntry{}, fmt.Errorf("required field %q is empty", f.col)
		}
	}
	return NewEntry(name, symptoms, description, severity, precautions)
}
