package importer

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ecrimah/tshirts/internal/models"
)

// CatalogWriter is the write side of the catalog store. Each call persists
// one product group atomically (product + images + variants).
type CatalogWriter interface {
	SlugExists(ctx context.Context, slug string) (bool, error)
	CreateImportedProduct(ctx context.Context, p *models.Product, images []models.ProductImage, variants []models.ProductVariant) error
	UpdateImportedProduct(ctx context.Context, id uuid.UUID, updates map[string]interface{}, images []models.ProductImage, variants []models.ProductVariant) error
}

// presetColorHex maps common color names to display hex values, used when a
// variant row names a color without an explicit hex.
var presetColorHex = map[string]string{
	"black":  "#000000",
	"white":  "#FFFFFF",
	"red":    "#EF4444",
	"blue":   "#3B82F6",
	"navy":   "#1E3A5F",
	"green":  "#22C55E",
	"yellow": "#EAB308",
	"pink":   "#EC4899",
	"purple": "#A855F7",
	"orange": "#F97316",
	"gray":   "#6B7280",
	"brown":  "#92400E",
	"beige":  "#D2B48C",
	"maroon": "#800000",
	"teal":   "#14B8A6",
	"cream":  "#FFFDD0",
	"gold":   "#D4AF37",
	"silver": "#C0C0C0",
}

var (
	slugStripRegex = regexp.MustCompile(`[^a-z0-9]+`)
	slugTrimRegex  = regexp.MustCompile(`(^-|-$)+`)
	htmlTagRegex   = regexp.MustCompile(`<[^>]*>`)
)

const defaultLowStockThreshold = 5

// ReconcileStats aggregates the outcomes of one reconciliation pass.
type ReconcileStats struct {
	Created         int
	Updated         int
	VariantsCreated int
	Errors          int
	Skipped         int
}

// Reconciler maps validated import rows onto catalog state: it groups rows
// by normalized product name and decides create/update/skip per group.
type Reconciler struct {
	catalog CatalogWriter
	tokens  TokenGenerator
	logger  *logrus.Entry
}

// NewReconciler builds a reconciler over the given catalog writer. tokens
// supplies the synthetic product codes.
func NewReconciler(catalog CatalogWriter, tokens TokenGenerator, logger *logrus.Entry) *Reconciler {
	return &Reconciler{catalog: catalog, tokens: tokens, logger: logger}
}

// groupRows buckets rows by normalized product name, preserving first-seen
// order. A row with an empty name falls back to a synthetic per-row key so
// no row is ever silently dropped from grouping.
func groupRows(rows []models.ImportRow) [][]models.ImportRow {
	var groups [][]models.ImportRow
	keyToIndex := make(map[string]int)

	for _, row := range rows {
		key := normalizeName(row.Name)
		if key == "" {
			key = fmt.Sprintf("row-%d", row.RowIndex)
		}
		idx, ok := keyToIndex[key]
		if !ok {
			idx = len(groups)
			keyToIndex[key] = idx
			groups = append(groups, nil)
		}
		groups[idx] = append(groups[idx], row)
	}
	return groups
}

// Run reconciles the validated rows against existing catalog state. One
// outcome is emitted per product group as it completes; a write failure for
// one group never blocks the groups after it.
func (r *Reconciler) Run(ctx context.Context, rows []models.ImportRow, urlMap map[string]string, lookups *Lookups, updateExisting bool, onProduct func(models.ProductOutcome)) ReconcileStats {
	var stats ReconcileStats
	emit := func(o models.ProductOutcome) {
		if onProduct != nil {
			onProduct(o)
		}
	}

	for _, group := range groupRows(rows) {
		first := group[0]
		exists := lookups.ProductExists(first.Name)

		if exists && !updateExisting {
			stats.Skipped++
			for _, row := range group {
				emit(models.ProductOutcome{
					Row: row.RowIndex, Name: row.Name, Status: "skipped", Skipped: true,
				})
			}
			continue
		}

		var categoryID *uuid.UUID
		if first.Category != nil {
			if id, ok := lookups.CategoryID(*first.Category); ok {
				categoryID = &id
			}
		}

		hasVariants := groupHasVariants(group)
		totalQuantity := 0
		if hasVariants {
			for _, row := range group {
				if row.VariantStock != nil {
					totalQuantity += *row.VariantStock
				}
			}
		} else if first.Quantity != nil {
			totalQuantity = *first.Quantity
		}

		product := r.buildProduct(first, categoryID, totalQuantity)
		variants := buildVariants(group, hasVariants)
		images := buildImages(first, urlMap, product.Name)

		var productID uuid.UUID
		updated := false

		if exists && updateExisting {
			if existingID, ok := lookups.ProductID(first.Name); ok {
				err := r.catalog.UpdateImportedProduct(ctx, existingID, mutableFields(product), images, variants)
				if err != nil {
					stats.Errors++
					emit(models.ProductOutcome{
						Row: first.RowIndex, Name: first.Name, Status: "error", Error: err.Error(),
					})
					continue
				}
				productID = existingID
				updated = true
			}
		}

		if !updated {
			product.Slug = r.ensureUniqueSlug(ctx, slugify(first.Name))
			product.SKU = r.tokens.Next()
			if err := r.catalog.CreateImportedProduct(ctx, product, images, variants); err != nil {
				stats.Errors++
				emit(models.ProductOutcome{
					Row: first.RowIndex, Name: first.Name, Status: "error", Error: err.Error(),
				})
				continue
			}
			productID = product.ID
			stats.Created++
		} else {
			stats.Updated++
		}

		stats.VariantsCreated += len(variants)
		id := productID
		emit(models.ProductOutcome{
			Row: first.RowIndex, Name: first.Name, Status: "success", ProductID: &id,
		})
	}

	return stats
}

// buildProduct maps the group's first row onto a product record. Slug and
// SKU are filled by the caller for the create path only; an existing
// product never has either rewritten.
func (r *Reconciler) buildProduct(first models.ImportRow, categoryID *uuid.UUID, totalQuantity int) *models.Product {
	var description *string
	if first.Description != nil {
		clean := stripHTML(*first.Description)
		if clean != "" {
			description = &clean
		}
	}

	var tags *models.JSONArray
	if len(first.Tags) > 0 {
		arr := make(models.JSONArray, 0, len(first.Tags))
		for _, t := range first.Tags {
			arr = append(arr, t)
		}
		tags = &arr
	}

	lowStock := defaultLowStockThreshold
	if first.LowStock != nil {
		lowStock = *first.LowStock
	}
	metadata := models.JSON{
		"low_stock_threshold": lowStock,
	}
	if first.Preorder != nil && strings.TrimSpace(*first.Preorder) != "" {
		metadata["preorder_shipping"] = strings.TrimSpace(*first.Preorder)
	}

	moq := first.MOQ
	if moq < 1 {
		moq = 1
	}

	return &models.Product{
		ID:             uuid.New(),
		Name:           strings.TrimSpace(first.Name),
		Description:    description,
		Price:          first.Price,
		CompareAtPrice: first.CompareAtPrice,
		Quantity:       totalQuantity,
		MOQ:            moq,
		Status:         first.Status,
		Featured:       first.Featured,
		SeoTitle:       first.SeoTitle,
		SeoDescription: first.SeoDescription,
		Tags:           tags,
		CategoryID:     categoryID,
		Metadata:       &metadata,
	}
}

// mutableFields lists the business fields touched in update mode. Slug and
// SKU stay untouched for existing products.
func mutableFields(p *models.Product) map[string]interface{} {
	return map[string]interface{}{
		"description":      p.Description,
		"price":            p.Price,
		"compare_at_price": p.CompareAtPrice,
		"quantity":         p.Quantity,
		"moq":              p.MOQ,
		"status":           p.Status,
		"featured":         p.Featured,
		"seo_title":        p.SeoTitle,
		"seo_description":  p.SeoDescription,
		"tags":             p.Tags,
		"category_id":      p.CategoryID,
		"metadata":         p.Metadata,
	}
}

// groupHasVariants reports whether any row carries variant data that makes
// the group a variant-bearing product.
func groupHasVariants(group []models.ImportRow) bool {
	for _, row := range group {
		if row.VariantColor != nil || row.VariantSize != nil || row.VariantPrice != nil ||
			(row.VariantStock != nil && *row.VariantStock > 0) {
			return true
		}
	}
	return false
}

// buildVariants derives one variant per variant-bearing row. Size maps to
// option1, color to option2; display name prefers size, then color, then
// the literal "Default".
func buildVariants(group []models.ImportRow, hasVariants bool) []models.ProductVariant {
	if !hasVariants {
		return nil
	}

	var variants []models.ProductVariant
	for _, row := range group {
		if row.VariantColor == nil && row.VariantSize == nil && row.VariantPrice == nil && row.VariantStock == nil {
			continue
		}

		var size, color *string
		if row.VariantSize != nil {
			s := strings.TrimSpace(*row.VariantSize)
			if s != "" {
				size = &s
			}
		}
		if row.VariantColor != nil {
			c := strings.TrimSpace(*row.VariantColor)
			if c != "" {
				color = &c
			}
		}

		name := "Default"
		if size != nil {
			name = *size
		} else if color != nil {
			name = *color
		}

		price := row.Price
		if row.VariantPrice != nil {
			price = *row.VariantPrice
		}
		quantity := 0
		if row.VariantStock != nil {
			quantity = *row.VariantStock
		}

		var metadata *models.JSON
		if hex := resolveColorHex(color, row.VariantColorHex); hex != "" {
			metadata = &models.JSON{"color_hex": hex}
		}

		variants = append(variants, models.ProductVariant{
			Name:     name,
			Price:    price,
			Quantity: quantity,
			Option1:  size,
			Option2:  color,
			Metadata: metadata,
		})
	}
	return variants
}

// buildImages resolves the first row's image references to uploaded URLs,
// in CSV list order. Unresolved references contribute nothing.
func buildImages(first models.ImportRow, urlMap map[string]string, altText string) []models.ProductImage {
	var images []models.ProductImage
	for _, f := range first.Images {
		url, ok := urlMap[f]
		if !ok {
			url, ok = urlMap[strings.ToLower(strings.TrimSpace(f))]
		}
		if !ok {
			continue
		}
		alt := altText
		images = append(images, models.ProductImage{
			URL:      url,
			AltText:  &alt,
			Position: len(images),
		})
	}
	return images
}

// resolveColorHex picks the explicit hex when present, else falls back to
// the preset palette keyed by the color name.
func resolveColorHex(colorName *string, hexFromCSV *string) string {
	if hexFromCSV != nil && strings.TrimSpace(*hexFromCSV) != "" {
		return strings.TrimSpace(*hexFromCSV)
	}
	if colorName == nil {
		return ""
	}
	return presetColorHex[strings.ToLower(strings.TrimSpace(*colorName))]
}

// ensureUniqueSlug probes the store sequentially, appending an incrementing
// numeric suffix until the slug is free. One query per attempt; fine at
// import scale.
func (r *Reconciler) ensureUniqueSlug(ctx context.Context, baseSlug string) string {
	slug := baseSlug
	for n := 1; ; n++ {
		exists, err := r.catalog.SlugExists(ctx, slug)
		if err != nil {
			r.logger.WithError(err).Warn("slug uniqueness check failed, using current candidate")
			return slug
		}
		if !exists {
			return slug
		}
		slug = fmt.Sprintf("%s-%d", baseSlug, n)
	}
}

// slugify computes a URL-safe slug from a product name.
func slugify(name string) string {
	slug := slugStripRegex.ReplaceAllString(strings.ToLower(name), "-")
	slug = slugTrimRegex.ReplaceAllString(slug, "")
	if slug == "" {
		return "product"
	}
	return slug
}

// stripHTML removes markup from imported descriptions before persistence.
func stripHTML(s string) string {
	return strings.TrimSpace(htmlTagRegex.ReplaceAllString(s, ""))
}
