package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/medmind/pkg/postgres"
)

// The diseases table holds one disease per row. Row order by id is catalog
// order.
const (
	createDiseases = `CREATE TABLE IF NOT EXISTS diseases (
	id          BIGSERIAL PRIMARY KEY,
	disease     TEXT NOT NULL,
	symptoms    TEXT NOT NULL,
	description TEXT NOT NULL,
	severity    TEXT NOT NULL,
	precautions TEXT NOT NULL
)`
	selectDiseases = `SELECT disease, symptoms, description, severity, precautions FROM diseases ORDER BY id`
	insertDisease  = `INSERT INTO diseases (disease, symptoms, description, severity, precautions) VALUES ($1, $2, $3, $4, $5)`
)

// Querier is the subset of *sql.DB the loader needs.
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// LoadPostgres reads the diseases table into a Catalog.
func LoadPostgres(ctx context.Context, db Querier) (*Catalog, error) {
	const source = "postgres:diseases"
	rows, err := db.QueryContext(ctx, selectDiseases)
	if err != nil {
		return nil, &LoadError{Source: source, Reason: "querying diseases", Err: err}
	}
	defer rows.Close()

	var entries []DiseaseEntry
	record := 0
	for rows.Next() {
		record++
		var name, symptoms, description, severity, precautions sql.NullString
		if err := rows.Scan(&name, &symptoms, &description, &severity, &precautions); err != nil {
			return nil, &LoadError{Source: source, Record: record, Reason: "scanning row", Err: err}
		}
		entry, err := buildEntry(name.String, symptoms.String, description.String, severity.String, precautions.String)
		if err != nil {
			return nil, &LoadError{Source: source, Record: record, Reason: "invalid entry", Err: err}
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, &LoadError{Source: source, Reason: "iterating rows", Err: err}
	}
	if len(entries) == 0 {
		return nil, &LoadError{Source: source, Reason: "no records"}
	}
	slog.Default().With("component", "catalog").Info("catalog loaded",
		"source", source,
		"entries", len(entries),
	)
	return New(source, entries), nil
}

// Import replaces the contents of the diseases table with the entries of c
// in a single transaction, creating the table if needed.
func Import(ctx context.Context, db *postgres.Client, c *Catalog) error {
	err := db.InTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, createDiseases); err != nil {
			return fmt.Errorf("creating diseases table: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM diseases`); err != nil {
			return fmt.Errorf("clearing diseases: %w", err)
		}
		stmt, err := tx.PrepareContext(ctx, insertDisease)
		if err != nil {
			return fmt.Errorf("preparing insert: %w", err)
		}
		defer stmt.Close()
		for _, e := range c.entries {
			if _, err := stmt.ExecContext(ctx, e.Name, e.RawSymptoms, e.Description, e.Severity, e.Precautions); err != nil {
				return fmt.Errorf("inserting %q: %w", e.Name, err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("importing catalog %s: %w", c.Source(), err)
	}
	slog.Default().With("component", "catalog").Info("catalog imported",
		"source", c.Source(),
		"entries", c.Len(),
	)
	return nil
}
