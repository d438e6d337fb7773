package handlers

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ecrimah/tshirts/internal/importer"
	"github.com/ecrimah/tshirts/internal/models"
)

type stubCatalog struct{}

func (stubCatalog) ActiveCategories(context.Context) ([]models.Category, error) {
	return nil, nil
}

func (stubCatalog) ProductNameIndex(context.Context) (map[string]uuid.UUID, error) {
	return map[string]uuid.UUID{}, nil
}

func (stubCatalog) SlugExists(context.Context, string) (bool, error) {
	return false, nil
}

func (stubCatalog) CreateImportedProduct(context.Context, *models.Product, []models.ProductImage, []models.ProductVariant) error {
	return nil
}

func (stubCatalog) UpdateImportedProduct(context.Context, uuid.UUID, map[string]interface{}, []models.ProductImage, []models.ProductVariant) error {
	return nil
}

type stubBlobs struct{}

func (stubBlobs) Upload(context.Context, string, []byte, string) error { return nil }
func (stubBlobs) PublicURL(key string) string                          { return "https://cdn.test/" + key }

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func testImportHandler(maxZipMB int) *ImportHandler {
	pipeline := importer.NewPipeline(
		stubCatalog{}, stubBlobs{}, importer.NewSKUGenerator(),
		logrus.NewEntry(quietLogger()),
	)
	return NewImportHandler(pipeline, nil, quietLogger(), maxZipMB)
}

func newImportRouter(h *ImportHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/import", h.ImportProducts)
	r.GET("/import/template", h.GetImportTemplate)
	return r
}

func multipartBody(t *testing.T, field, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func TestImportProducts_RejectsNonMultipart(t *testing.T) {
	router := newImportRouter(testImportHandler(500))

	req := httptest.NewRequest(http.MethodPost, "/import", bytes.NewBufferString("{}"))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "INVALID_FORM")
}

func TestImportProducts_RejectsMissingFile(t *testing.T) {
	router := newImportRouter(testImportHandler(500))

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	require.NoError(t, w.WriteField("updateExisting", "true"))
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/import", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "MISSING_FILE")
}

func TestImportProducts_RejectsOversizedArchive(t *testing.T) {
	// a zero MB ceiling makes any upload oversized
	router := newImportRouter(testImportHandler(0))

	body, contentType := multipartBody(t, "zipFile", "bundle.zip", []byte("zip-bytes"))
	req := httptest.NewRequest(http.MethodPost, "/import", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "FILE_TOO_LARGE")
}

func TestImportProducts_StreamsEventsForCSVUpload(t *testing.T) {
	router := newImportRouter(testImportHandler(500))

	csv := "name,price\nClassic Tee,24.99"
	body, contentType := multipartBody(t, "csvFile", "products.csv", []byte(csv))
	req := httptest.NewRequest(http.MethodPost, "/import", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))

	out := rec.Body.String()
	assert.Contains(t, out, "event: progress")
	assert.Contains(t, out, "event: product")
	assert.Contains(t, out, "event: complete")
	assert.Contains(t, out, `"productsCreated":1`)
}

func TestImportProducts_CorruptZipStreamsErrorEvent(t *testing.T) {
	router := newImportRouter(testImportHandler(500))

	body, contentType := multipartBody(t, "zipFile", "bundle.zip", []byte("not a zip"))
	req := httptest.NewRequest(http.MethodPost, "/import", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "event: error")
	assert.NotContains(t, rec.Body.String(), "event: complete")
}

func TestGetImportTemplate_JSONDefinition(t *testing.T) {
	router := newImportRouter(testImportHandler(500))

	req := httptest.NewRequest(http.MethodGet, "/import/template", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"entity":"products"`)
	assert.Contains(t, rec.Body.String(), `"name":"price"`)
}

func TestGetImportTemplate_CSVHeaders(t *testing.T) {
	router := newImportRouter(testImportHandler(500))

	req := httptest.NewRequest(http.MethodGet, "/import/template?format=csv", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))

	firstLine := rec.Body.String()
	assert.Contains(t, firstLine, "name,price")
	// generated identifiers never appear as template columns
	assert.NotContains(t, firstLine, "sku")
	assert.NotContains(t, firstLine, "slug")
}

func TestGetImportTemplate_XLSXDownload(t *testing.T) {
	router := newImportRouter(testImportHandler(500))

	req := httptest.NewRequest(http.MethodGet, "/import/template?format=xlsx", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", rec.Header().Get("Content-Type"))
	assert.NotZero(t, rec.Body.Len())
}
