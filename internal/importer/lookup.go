package importer

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ecrimah/tshirts/internal/models"
)

// CatalogReader is the read side of the catalog store used to seed lookups
// at the start of a run.
type CatalogReader interface {
	ActiveCategories(ctx context.Context) ([]models.Category, error)
	ProductNameIndex(ctx context.Context) (map[string]uuid.UUID, error)
}

// Lookups holds the in-memory lookup tables for one import run. Keys are
// trimmed, lower-cased names.
type Lookups struct {
	CategoryIDByName map[string]uuid.UUID
	ProductIDByName  map[string]uuid.UUID
}

// HasCategory reports whether a category with the given raw name resolves.
func (l *Lookups) HasCategory(name string) bool {
	_, ok := l.CategoryIDByName[normalizeName(name)]
	return ok
}

// CategoryID resolves a raw category name to its id.
func (l *Lookups) CategoryID(name string) (uuid.UUID, bool) {
	id, ok := l.CategoryIDByName[normalizeName(name)]
	return id, ok
}

// ProductExists reports whether a product with the given raw name exists.
func (l *Lookups) ProductExists(name string) bool {
	_, ok := l.ProductIDByName[normalizeName(name)]
	return ok
}

// ProductID resolves a raw product name to its id (for update mode).
func (l *Lookups) ProductID(name string) (uuid.UUID, bool) {
	id, ok := l.ProductIDByName[normalizeName(name)]
	return id, ok
}

// BuildLookups runs the two read queries that seed a run's lookup tables.
// Either query failing degrades to an empty lookup rather than aborting:
// unresolved categories become warnings and every product appears new,
// which is the intended best-effort behavior.
func BuildLookups(ctx context.Context, reader CatalogReader, logger *logrus.Entry) *Lookups {
	lookups := &Lookups{
		CategoryIDByName: make(map[string]uuid.UUID),
		ProductIDByName:  make(map[string]uuid.UUID),
	}

	categories, err := reader.ActiveCategories(ctx)
	if err != nil {
		logger.WithError(err).Warn("category lookup failed, proceeding with empty category table")
	} else {
		for _, c := range categories {
			key := normalizeName(c.Name)
			if key != "" {
				lookups.CategoryIDByName[key] = c.ID
			}
		}
	}

	names, err := reader.ProductNameIndex(ctx)
	if err != nil {
		logger.WithError(err).Warn("product name lookup failed, treating all products as new")
	} else {
		lookups.ProductIDByName = names
	}

	return lookups
}

// normalizeName is the grouping and lookup key for product and category
// names: trimmed and lower-cased.
func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
