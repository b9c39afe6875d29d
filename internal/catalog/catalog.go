// Package catalog holds the disease reference data: a read-only sequence of
// DiseaseEntry values loaded once at start-up from CSV, YAML or PostgreSQL.
// A Catalog is safe for concurrent readers and is never refreshed in place;
// reloading means building a new one.
package catalog

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	apperrors "github.com/Adithya-Monish-Kumar-K/medmind/pkg/errors"
)

// Catalog is the immutable, caller-owned set of disease entries.
type Catalog struct {
	source  string
	entries []DiseaseEntry
	byName  map[string]int
	names   []string
	version string
}

// New builds a Catalog from entries, preserving their order. Entries with a
// duplicate name stay in the sequence; Lookup returns the first one.
func New(source string, entries []DiseaseEntry) *Catalog {
	c := &Catalog{
		source:  source,
		entries: make([]DiseaseEntry, len(entries)),
		byName:  make(map[string]int, len(entries)),
		names:   make([]string, 0, len(entries)),
	}
	copy(c.entries, entries)
	for i, e := range c.entries {
		if _, seen := c.byName[e.Name]; seen {
			continue
		}
		c.byName[e.Name] = i
		c.names = append(c.names, e.Name)
	}
	c.version = fingerprint(c.entries)
	return c
}

// fingerprint hashes every field of every entry in order. Two catalogs with
// the same content share a version regardless of their source.
func fingerprint(entries []DiseaseEntry) string {
	h := sha256.New()
	for _, e := range entries {
		for _, f := range []string{e.Name, e.RawSymptoms, e.Severity, e.Description, e.Precautions} {
			h.Write([]byte(f))
			h.Write([]byte{0})
		}
		h.Write([]byte{0x1e})
	}
	return hex.EncodeToString(h.Sum(nil)[:12])
}

// Version identifies the catalog content. Anything derived from a catalog,
// such as cached match reports, is keyed by it.
func (c *Catalog) Version() string {
	return c.version
}

// Source describes where the catalog was loaded from.
func (c *Catalog) Source() string {
	return c.source
}

// Len returns the number of entries.
func (c *Catalog) Len() int {
	return len(c.entries)
}

// Entries returns a copy of the entries in catalog order.
func (c *Catalog) Entries() []DiseaseEntry {
	out := make([]DiseaseEntry, len(c.entries))
	copy(out, c.entries)
	return out
}

// Names returns the unique disease names in catalog order.
func (c *Catalog) Names() []string {
	out := make([]string, len(c.names))
	copy(out, c.names)
	return out
}

// Lookup returns the entry with exactly the given name.
func (c *Catalog) Lookup(name string) (DiseaseEntry, error) {
	i, ok := c.byName[name]
	if !ok {
		return DiseaseEntry{}, fmt.Errorf("lookup %q: %w", name, apperrors.ErrDiseaseNotFound)
	}
	return c.entries[i], nil
}
