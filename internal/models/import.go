package models

import "github.com/google/uuid"

// ImportRow is one parsed CSV line. Rows live for the duration of a single
// import run; the validator builds them, the reconciler consumes them.
// Optional fields are nil when the column was absent or failed validation.
type ImportRow struct {
	RowIndex       int
	Name           string
	Price          float64
	Description    *string
	Category       *string
	CompareAtPrice *float64
	Quantity       *int
	MOQ            int
	Status         ProductStatus
	Featured       bool
	SeoTitle       *string
	SeoDescription *string
	Tags           []string
	LowStock       *int
	Preorder       *string
	Images         []string

	VariantColor    *string
	VariantColorHex *string
	VariantSize     *string
	VariantPrice    *float64
	VariantStock    *int
}

// ValidationIssue is a row/field-level validation error or warning.
// Which list it ends up in (ParseResult.Errors vs Warnings) determines
// its severity; issues are reported to the caller, never persisted.
type ValidationIssue struct {
	Row     int    `json:"row"`
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ImportPhase identifies the pipeline phase a progress event belongs to.
type ImportPhase string

const (
	PhaseExtracting       ImportPhase = "extracting"
	PhaseValidating       ImportPhase = "validating"
	PhaseUploadingImages  ImportPhase = "uploading_images"
	PhaseCreatingProducts ImportPhase = "creating_products"
	PhaseComplete         ImportPhase = "complete"
)

// Stream event kinds
const (
	EventProgress = "progress"
	EventProduct  = "product"
	EventComplete = "complete"
	EventError    = "error"
)

// StreamEvent is one typed event on the import progress stream. Name is one
// of the Event* kinds; Data is the matching payload struct.
type StreamEvent struct {
	Name string
	Data interface{}
}

// ProgressPayload reports phase-level progress
type ProgressPayload struct {
	Phase   ImportPhase `json:"phase"`
	Current int         `json:"current"`
	Total   int         `json:"total"`
	Message string      `json:"message"`
}

// ProductOutcome reports the reconciliation result for one product group
type ProductOutcome struct {
	Row       int        `json:"row"`
	Name      string     `json:"name"`
	Status    string     `json:"status"` // success | error | skipped
	ProductID *uuid.UUID `json:"productId,omitempty"`
	Error     string     `json:"error,omitempty"`
	Skipped   bool       `json:"skipped,omitempty"`
}

// RunSummary is the terminal artifact of one import run
type RunSummary struct {
	TotalRows       int    `json:"totalRows"`
	ProductsCreated int    `json:"productsCreated"`
	ProductsUpdated int    `json:"productsUpdated"`
	VariantsCreated int    `json:"variantsCreated"`
	ImagesUploaded  int    `json:"imagesUploaded"`
	Errors          int    `json:"errors"`
	Warnings        int    `json:"warnings"`
	Skipped         int    `json:"skipped"`
	Duration        string `json:"duration"`
}

// CompletePayload is the normal terminal event of an import stream
type CompletePayload struct {
	Summary  RunSummary        `json:"summary"`
	Errors   []ValidationIssue `json:"errors"`
	Warnings []ValidationIssue `json:"warnings"`
}

// ErrorPayload is the abnormal terminal event (transport/format failure)
type ErrorPayload struct {
	Message string `json:"message"`
}

// ImportTemplateColumn defines a column in the import template
type ImportTemplateColumn struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Required    bool   `json:"required"`
	Type        string `json:"type"`
	Example     string `json:"example"`
}

// ImportTemplate defines the downloadable import template
type ImportTemplate struct {
	Entity  string                 `json:"entity"`
	Version string                 `json:"version"`
	Columns []ImportTemplateColumn `json:"columns"`
}

// ProductImportColumns returns the column definitions for product import.
// SKU and slug are system-generated, so neither appears as a column.
func ProductImportColumns() []ImportTemplateColumn {
	return []ImportTemplateColumn{
		{Name: "name", Description: "Product name; repeat the same name on multiple rows to add variants", Required: true, Type: "string", Example: "Classic Crew Tee"},
		{Name: "price", Description: "Product price", Required: true, Type: "number", Example: "24.99"},
		{Name: "description", Description: "Product description (truncated to 500 characters)", Required: false, Type: "string", Example: ""},
		{Name: "category", Description: "Category name; must match an active category", Required: false, Type: "string", Example: "T-Shirts"},
		{Name: "compare_at_price", Description: "Original price; must be higher than price", Required: false, Type: "number", Example: "34.99"},
		{Name: "quantity", Description: "Stock quantity for simple products", Required: false, Type: "number", Example: "100"},
		{Name: "moq", Description: "Minimum order quantity (>= 1)", Required: false, Type: "number", Example: "1"},
		{Name: "status", Description: "One of: active, draft, archived", Required: false, Type: "string", Example: "draft"},
		{Name: "featured", Description: "true/false, 1/0, yes/no", Required: false, Type: "boolean", Example: "false"},
		{Name: "seo_title", Description: "SEO title", Required: false, Type: "string", Example: ""},
		{Name: "seo_description", Description: "SEO description", Required: false, Type: "string", Example: ""},
		{Name: "keywords", Description: "Comma-separated tags", Required: false, Type: "string", Example: "cotton,summer"},
		{Name: "low_stock_threshold", Description: "Low stock alert threshold", Required: false, Type: "number", Example: "5"},
		{Name: "preorder_shipping", Description: "Preorder shipping note", Required: false, Type: "string", Example: ""},
		{Name: "images", Description: "Semicolon-separated image filenames from the archive", Required: false, Type: "string", Example: "front.jpg;back.jpg"},
		{Name: "variant_color", Description: "Variant color name", Required: false, Type: "string", Example: "Black"},
		{Name: "variant_color_hex", Description: "Variant color hex (#RGB or #RRGGBB)", Required: false, Type: "string", Example: "#000000"},
		{Name: "variant_size", Description: "Variant size label", Required: false, Type: "string", Example: "M"},
		{Name: "variant_price", Description: "Variant price override", Required: false, Type: "number", Example: ""},
		{Name: "variant_stock", Description: "Variant stock quantity", Required: false, Type: "number", Example: "10"},
	}
}

// ProductImportTemplate returns the template definition for products
func ProductImportTemplate() ImportTemplate {
	return ImportTemplate{
		Entity:  "products",
		Version: "1.0",
		Columns: ProductImportColumns(),
	}
}
