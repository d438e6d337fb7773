package importer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ecrimah/tshirts/internal/models"
)

func noImages() map[string]struct{} {
	return map[string]struct{}{}
}

func fieldErrors(result *ParseResult, field string) []models.ValidationIssue {
	var out []models.ValidationIssue
	for _, e := range result.Errors {
		if e.Field == field {
			out = append(out, e)
		}
	}
	return out
}

func TestParseCSV_MinimalValidRow(t *testing.T) {
	result := ParseCSV("name,price\nClassic Tee,24.99", noImages())

	require.Len(t, result.Rows, 1)
	assert.Empty(t, result.Errors)

	row := result.Rows[0]
	assert.Equal(t, 2, row.RowIndex)
	assert.Equal(t, "Classic Tee", row.Name)
	assert.Equal(t, 24.99, row.Price)
	assert.Equal(t, 1, row.MOQ)
	assert.Equal(t, models.ProductStatusDraft, row.Status)
	assert.False(t, row.Featured)
}

func TestParseCSV_Deterministic(t *testing.T) {
	csv := "name,price,status\nTee,10,active\n,abc,bogus"

	first := ParseCSV(csv, noImages())
	second := ParseCSV(csv, noImages())

	assert.Equal(t, first, second)
}

func TestParseCSV_EmptyInput(t *testing.T) {
	result := ParseCSV("name,price", noImages())

	require.Len(t, result.Errors, 1)
	assert.Equal(t, 0, result.Errors[0].Row)
	assert.Equal(t, "csv", result.Errors[0].Field)
	assert.Empty(t, result.Rows)
}

func TestParseCSV_MissingRequiredColumn(t *testing.T) {
	result := ParseCSV("name,description\nTee,Soft cotton", noImages())

	require.Len(t, result.Errors, 1)
	assert.Equal(t, 1, result.Errors[0].Row)
	assert.Equal(t, "price", result.Errors[0].Field)
	assert.Empty(t, result.Rows)
}

func TestParseCSV_HeaderNormalization(t *testing.T) {
	result := ParseCSV("Name, PRICE ,Compare At Price\nTee,10,15", noImages())

	require.Len(t, result.Rows, 1)
	assert.Empty(t, result.Errors)
	require.NotNil(t, result.Rows[0].CompareAtPrice)
	assert.Equal(t, 15.0, *result.Rows[0].CompareAtPrice)
}

func TestParseCSV_NameRequired(t *testing.T) {
	result := ParseCSV("name,price\n,10", noImages())

	require.Len(t, fieldErrors(result, "name"), 1)
	assert.Empty(t, result.ValidRows())
}

func TestParseCSV_PriceInvalid(t *testing.T) {
	result := ParseCSV("name,price\nTee,abc\nAlso Tee,-5", noImages())

	assert.Len(t, fieldErrors(result, "price"), 2)
	assert.Empty(t, result.ValidRows())
}

func TestParseCSV_ThousandsSeparator(t *testing.T) {
	result := ParseCSV("name,price\nTee,\"1,299.99\"", noImages())

	require.Len(t, result.Rows, 1)
	assert.Empty(t, result.Errors)
	assert.Equal(t, 1299.99, result.Rows[0].Price)
}

func TestParseCSV_CompareAtMustExceedPrice(t *testing.T) {
	result := ParseCSV("name,price,compare_at_price\nTee,20,15", noImages())

	require.Len(t, fieldErrors(result, "compare_at_price"), 1)
	require.Len(t, result.Rows, 1)
	assert.Nil(t, result.Rows[0].CompareAtPrice)
	// not a name/price error, so the row survives
	assert.Len(t, result.ValidRows(), 1)
}

func TestParseCSV_NegativeQuantityNulled(t *testing.T) {
	result := ParseCSV("name,price,quantity\nTee,10,-3", noImages())

	require.Len(t, fieldErrors(result, "quantity"), 1)
	assert.Nil(t, result.Rows[0].Quantity)
	assert.Len(t, result.ValidRows(), 1)
}

func TestParseCSV_QuantityFloored(t *testing.T) {
	result := ParseCSV("name,price,quantity\nTee,10,4.7", noImages())

	require.NotNil(t, result.Rows[0].Quantity)
	assert.Equal(t, 4, *result.Rows[0].Quantity)
}

func TestParseCSV_MOQDefaultsToOne(t *testing.T) {
	result := ParseCSV("name,price,moq\nTee,10,\nAlso Tee,10,3", noImages())

	assert.Empty(t, fieldErrors(result, "moq"))
	assert.Equal(t, 1, result.Rows[0].MOQ)
	assert.Equal(t, 3, result.Rows[1].MOQ)
}

func TestParseCSV_MOQBelowOne(t *testing.T) {
	result := ParseCSV("name,price,moq\nTee,10,0", noImages())

	require.Len(t, fieldErrors(result, "moq"), 1)
	assert.Equal(t, 1, result.Rows[0].MOQ)
	assert.Len(t, result.ValidRows(), 1)
}

func TestParseCSV_InvalidStatusDefaultsToDraft(t *testing.T) {
	result := ParseCSV("name,price,status\nTee,10,published\nAlso Tee,10,Active", noImages())

	require.Len(t, fieldErrors(result, "status"), 1)
	assert.Equal(t, models.ProductStatusDraft, result.Rows[0].Status)
	assert.Equal(t, models.ProductStatusActive, result.Rows[1].Status)
}

func TestParseCSV_FeaturedParsing(t *testing.T) {
	result := ParseCSV("name,price,featured\nA,1,yes\nB,1,false\nC,1,maybe", noImages())

	require.Len(t, fieldErrors(result, "featured"), 1)
	assert.True(t, result.Rows[0].Featured)
	assert.False(t, result.Rows[1].Featured)
	assert.False(t, result.Rows[2].Featured)
}

func TestParseCSV_InvalidColorHexCleared(t *testing.T) {
	result := ParseCSV("name,price,variant_color_hex\nA,1,red\nB,1,#A1B2C3", noImages())

	require.Len(t, fieldErrors(result, "variant_color_hex"), 1)
	assert.Nil(t, result.Rows[0].VariantColorHex)
	require.NotNil(t, result.Rows[1].VariantColorHex)
	assert.Equal(t, "#A1B2C3", *result.Rows[1].VariantColorHex)
}

func TestParseCSV_NegativeVariantStockNulled(t *testing.T) {
	result := ParseCSV("name,price,variant_stock\nTee,10,-1", noImages())

	require.Len(t, fieldErrors(result, "variant_stock"), 1)
	assert.Nil(t, result.Rows[0].VariantStock)
}

func TestParseCSV_ImageReferences(t *testing.T) {
	keys := map[string]struct{}{"front.jpg": {}}
	result := ParseCSV("name,price,images\nTee,10,Front.JPG;missing.png", keys)

	issues := fieldErrors(result, "images")
	require.Len(t, issues, 1)
	assert.Contains(t, issues[0].Message, "missing.png")
	assert.Equal(t, []string{"Front.JPG", "missing.png"}, result.Rows[0].Images)
	// image errors do not exclude the row
	assert.Len(t, result.ValidRows(), 1)
}

func TestParseCSV_DescriptionTruncated(t *testing.T) {
	long := strings.Repeat("x", 600)
	result := ParseCSV("name,price,description\nTee,10,"+long, noImages())

	require.NotNil(t, result.Rows[0].Description)
	assert.Len(t, *result.Rows[0].Description, 500)
}

func TestParseCSV_KeywordsSplitIntoTags(t *testing.T) {
	result := ParseCSV("name,price,keywords\nTee,10,\"cotton, summer , ,casual\"", noImages())

	assert.Equal(t, []string{"cotton", "summer", "casual"}, result.Rows[0].Tags)
}

func TestValidRows_ExclusionRule(t *testing.T) {
	csv := "name,price,quantity\nGood,10,5\n,10,5\nBad Price,abc,5\nAlso Good,10,-1"
	result := ParseCSV(csv, noImages())

	valid := result.ValidRows()
	require.Len(t, valid, 2)
	assert.Equal(t, "Good", valid[0].Name)
	assert.Equal(t, "Also Good", valid[1].Name)
}
