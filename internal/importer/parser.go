package importer

import (
	"encoding/csv"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/ecrimah/tshirts/internal/models"
)

// RequiredColumns must be present in the CSV header for parsing to proceed.
var RequiredColumns = []string{"name", "price"}

var (
	hexColorRegex   = regexp.MustCompile(`^#([A-Fa-f0-9]{6}|[A-Fa-f0-9]{3})$`)
	whitespaceRegex = regexp.MustCompile(`\s+`)
)

const maxDescriptionLen = 500

// ParseResult holds the validated rows plus every issue found. Parsing is a
// pure function of the CSV text and the known image names, so the same
// inputs always produce the same result.
type ParseResult struct {
	Rows     []models.ImportRow
	Errors   []models.ValidationIssue
	Warnings []models.ValidationIssue
}

// ValidRows returns the rows eligible for persistence: a row is excluded
// if and only if its name or price field produced an error.
func (r *ParseResult) ValidRows() []models.ImportRow {
	critical := make(map[int]bool)
	for _, e := range r.Errors {
		if e.Field == "name" || e.Field == "price" {
			critical[e.Row] = true
		}
	}
	valid := make([]models.ImportRow, 0, len(r.Rows))
	for _, row := range r.Rows {
		if critical[row.RowIndex] {
			continue
		}
		valid = append(valid, row)
	}
	return valid
}

// ParseCSV parses raw CSV text into import rows, validating every field
// against the product import schema. imageKeys is the set of lower-cased
// image filenames known to this run; image references outside it are
// reported as errors. Rows are validated independently of each other.
func ParseCSV(csvRaw string, imageKeys map[string]struct{}) *ParseResult {
	result := &ParseResult{
		Errors:   make([]models.ValidationIssue, 0),
		Warnings: make([]models.ValidationIssue, 0),
	}

	reader := csv.NewReader(strings.NewReader(csvRaw))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		result.Errors = append(result.Errors, models.ValidationIssue{
			Row: 0, Field: "csv", Message: fmt.Sprintf("Failed to parse CSV: %v", err),
		})
		return result
	}

	if len(records) < 2 {
		result.Errors = append(result.Errors, models.ValidationIssue{
			Row: 0, Field: "csv", Message: "CSV file is empty or contains only headers.",
		})
		return result
	}

	colIndex := make(map[string]int)
	for i, h := range records[0] {
		colIndex[normalizeHeader(h)] = i
	}

	for _, col := range RequiredColumns {
		if _, ok := colIndex[col]; !ok {
			result.Errors = append(result.Errors, models.ValidationIssue{
				Row: 1, Field: col, Message: fmt.Sprintf("Missing required column: %s", col),
			})
			return result
		}
	}

	get := func(record []string, key string) string {
		i, ok := colIndex[key]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	for r := 1; r < len(records); r++ {
		record := records[r]
		rowNum := r + 1
		addError := func(field, message string) {
			result.Errors = append(result.Errors, models.ValidationIssue{
				Row: rowNum, Field: field, Message: message,
			})
		}

		name := get(record, "name")
		price := parseNumber(get(record, "price"))
		compareAt := parseNumber(get(record, "compare_at_price"))
		quantity := parseInteger(get(record, "quantity"))
		moqRaw := get(record, "moq")
		moq := parseInteger(moqRaw)
		statusRaw := strings.ToLower(get(record, "status"))
		featuredRaw := strings.ToLower(get(record, "featured"))
		lowStock := parseInteger(get(record, "low_stock_threshold"))
		colorHex := get(record, "variant_color_hex")
		variantStock := parseInteger(get(record, "variant_stock"))

		if name == "" {
			addError("name", "Name is required")
		}
		if price == nil || *price < 0 {
			addError("price", "Price must be a valid positive number")
		}
		if compareAt != nil && (price == nil || *compareAt <= *price) {
			addError("compare_at_price", "Compare at price must be higher than price")
			compareAt = nil
		}
		if quantity != nil && *quantity < 0 {
			addError("quantity", "Quantity must be a non-negative integer")
			quantity = nil
		}
		if moqRaw != "" && (moq == nil || *moq < 1) {
			addError("moq", "MOQ must be a positive integer (>= 1)")
			moq = nil
		}
		if statusRaw != "" && !models.ValidProductStatus(statusRaw) {
			addError("status", "Status must be one of: Active, Draft, Archived")
		}
		if featuredRaw != "" && !recognizedBool(featuredRaw) {
			addError("featured", "Featured must be true or false")
		}
		if lowStock != nil && *lowStock < 0 {
			addError("low_stock_threshold", "Low stock threshold must be a non-negative integer")
			lowStock = nil
		}
		if colorHex != "" && !hexColorRegex.MatchString(colorHex) {
			addError("variant_color_hex", "Variant color hex must be a valid hex color (e.g. #000000)")
			colorHex = ""
		}
		if variantStock != nil && *variantStock < 0 {
			addError("variant_stock", "Variant stock must be a non-negative integer")
			variantStock = nil
		}

		var imageFilenames []string
		for _, f := range strings.Split(get(record, "images"), ";") {
			f = strings.TrimSpace(f)
			if f == "" {
				continue
			}
			imageFilenames = append(imageFilenames, f)
			key := strings.ToLower(f)
			if _, ok := imageKeys[key]; !ok {
				addError("images", fmt.Sprintf("Image '%s' not found in archive", f))
			}
		}

		status := models.ProductStatusDraft
		if models.ValidProductStatus(statusRaw) {
			status = models.ProductStatus(statusRaw)
		}
		featured := featuredRaw == "true" || featuredRaw == "1" || featuredRaw == "yes"

		var tags []string
		for _, kw := range strings.Split(get(record, "keywords"), ",") {
			kw = strings.TrimSpace(kw)
			if kw != "" {
				tags = append(tags, kw)
			}
		}

		description := get(record, "description")
		if runes := []rune(description); len(runes) > maxDescriptionLen {
			description = string(runes[:maxDescriptionLen])
		}

		rowPrice := 0.0
		if price != nil {
			rowPrice = *price
		}
		moqVal := 1
		if moq != nil {
			moqVal = *moq
		}

		result.Rows = append(result.Rows, models.ImportRow{
			RowIndex:        rowNum,
			Name:            name,
			Price:           rowPrice,
			Description:     optionalString(description),
			Category:        optionalString(get(record, "category")),
			CompareAtPrice:  compareAt,
			Quantity:        quantity,
			MOQ:             moqVal,
			Status:          status,
			Featured:        featured,
			SeoTitle:        optionalString(get(record, "seo_title")),
			SeoDescription:  optionalString(get(record, "seo_description")),
			Tags:            tags,
			LowStock:        lowStock,
			Preorder:        optionalString(get(record, "preorder_shipping")),
			Images:          imageFilenames,
			VariantColor:    optionalString(get(record, "variant_color")),
			VariantColorHex: optionalString(colorHex),
			VariantSize:     optionalString(get(record, "variant_size")),
			VariantPrice:    parseNumber(get(record, "variant_price")),
			VariantStock:    variantStock,
		})
	}

	return result
}

// normalizeHeader lower-cases, trims, and collapses internal whitespace
// runs to single underscores.
func normalizeHeader(h string) string {
	return whitespaceRegex.ReplaceAllString(strings.ToLower(strings.TrimSpace(h)), "_")
}

func recognizedBool(s string) bool {
	switch s {
	case "true", "false", "1", "0", "yes", "no":
		return true
	}
	return false
}

// parseNumber coerces a raw cell to a float, tolerating thousands
// separators. Returns nil for empty or non-numeric input.
func parseNumber(raw string) *float64 {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil
	}
	n, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
	if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
		return nil
	}
	return &n
}

func parseInteger(raw string) *int {
	n := parseNumber(raw)
	if n == nil {
		return nil
	}
	i := int(math.Floor(*n))
	return &i
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
