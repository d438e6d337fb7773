package importer

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ecrimah/tshirts/internal/models"
)

func newTestPipeline(catalog *fakeCatalog, blobs *fakeBlobStore) *Pipeline {
	p := NewPipeline(catalog, blobs, &stubTokens{}, testLogger())
	p.prefixFn = func() string { return "run" }
	return p
}

func collectEvents(events *[]models.StreamEvent) Sink {
	return func(e models.StreamEvent) {
		*events = append(*events, e)
	}
}

func eventsByName(events []models.StreamEvent, name string) []models.StreamEvent {
	var out []models.StreamEvent
	for _, e := range events {
		if e.Name == name {
			out = append(out, e)
		}
	}
	return out
}

func phaseOrder(events []models.StreamEvent) []models.ImportPhase {
	var phases []models.ImportPhase
	seen := make(map[models.ImportPhase]bool)
	for _, e := range events {
		payload, ok := e.Data.(models.ProgressPayload)
		if !ok {
			continue
		}
		if !seen[payload.Phase] {
			seen[payload.Phase] = true
			phases = append(phases, payload.Phase)
		}
	}
	return phases
}

func TestPipeline_ZipArchiveEndToEnd(t *testing.T) {
	catalog := newFakeCatalog()
	blobs := newFakeBlobStore()
	p := newTestPipeline(catalog, blobs)

	data := buildZip(t, [][2]string{
		{"products.csv", "name,price,images,variant_size,variant_stock\nClassic Tee,24.99,front.jpg,M,10"},
		{"images/front.jpg", "jpg-bytes"},
	})

	var events []models.StreamEvent
	summary := p.Run(context.Background(), Input{ZipData: data}, collectEvents(&events))

	require.NotNil(t, summary)
	assert.Equal(t, 1, summary.TotalRows)
	assert.Equal(t, 1, summary.ProductsCreated)
	assert.Equal(t, 1, summary.VariantsCreated)
	assert.Equal(t, 1, summary.ImagesUploaded)
	assert.Equal(t, 0, summary.Errors)

	require.Len(t, catalog.created, 1)
	require.Len(t, catalog.created[0].images, 1)
	assert.Equal(t, "https://cdn.test/run/front.jpg", catalog.created[0].images[0].URL)

	assert.Equal(t, []models.ImportPhase{
		models.PhaseExtracting,
		models.PhaseValidating,
		models.PhaseUploadingImages,
		models.PhaseCreatingProducts,
	}, phaseOrder(events))

	// exactly one terminal event, and it is last
	completes := eventsByName(events, models.EventComplete)
	errors := eventsByName(events, models.EventError)
	require.Len(t, completes, 1)
	assert.Empty(t, errors)
	assert.Equal(t, models.EventComplete, events[len(events)-1].Name)
}

func TestPipeline_OversizedArchiveAbortsBeforeAnyWrite(t *testing.T) {
	original := maxArchiveBytes
	maxArchiveBytes = 32
	defer func() { maxArchiveBytes = original }()

	catalog := newFakeCatalog()
	blobs := newFakeBlobStore()
	p := newTestPipeline(catalog, blobs)

	data := buildZip(t, [][2]string{
		{"products.csv", string(make([]byte, 100))},
	})

	var events []models.StreamEvent
	summary := p.Run(context.Background(), Input{ZipData: data}, collectEvents(&events))

	assert.Nil(t, summary)
	assert.Empty(t, catalog.created)
	assert.Empty(t, blobs.uploads)
	assert.Empty(t, eventsByName(events, models.EventProduct))
	assert.Empty(t, eventsByName(events, models.EventComplete))

	errorEvents := eventsByName(events, models.EventError)
	require.Len(t, errorEvents, 1)
	payload := errorEvents[0].Data.(models.ErrorPayload)
	assert.Contains(t, payload.Message, "exceed maximum allowed size")
}

func TestPipeline_CorruptArchiveEmitsError(t *testing.T) {
	catalog := newFakeCatalog()
	p := newTestPipeline(catalog, newFakeBlobStore())

	var events []models.StreamEvent
	summary := p.Run(context.Background(), Input{ZipData: []byte("not a zip")}, collectEvents(&events))

	assert.Nil(t, summary)
	require.Len(t, eventsByName(events, models.EventError), 1)
}

func TestPipeline_MissingCSVInput(t *testing.T) {
	catalog := newFakeCatalog()
	p := newTestPipeline(catalog, newFakeBlobStore())

	var events []models.StreamEvent
	summary := p.Run(context.Background(), Input{}, collectEvents(&events))

	assert.Nil(t, summary)
	errorEvents := eventsByName(events, models.EventError)
	require.Len(t, errorEvents, 1)
	assert.Contains(t, errorEvents[0].Data.(models.ErrorPayload).Message, "CSV file is required")
}

func TestPipeline_MissingImageReferenceStillCreatesProduct(t *testing.T) {
	catalog := newFakeCatalog()
	blobs := newFakeBlobStore()
	p := newTestPipeline(catalog, blobs)

	in := Input{CSVRaw: "name,price,images\nClassic Tee,24.99,ghost.jpg"}

	var events []models.StreamEvent
	summary := p.Run(context.Background(), in, collectEvents(&events))

	require.NotNil(t, summary)
	assert.Equal(t, 1, summary.ProductsCreated)
	assert.Equal(t, 1, summary.Errors)
	assert.Equal(t, 0, summary.ImagesUploaded)

	require.Len(t, catalog.created, 1)
	assert.Empty(t, catalog.created[0].images)
}

func TestPipeline_AllRowsInvalidCompletesWithoutWrites(t *testing.T) {
	catalog := newFakeCatalog()
	p := newTestPipeline(catalog, newFakeBlobStore())

	in := Input{CSVRaw: "name,price\n,abc"}

	var events []models.StreamEvent
	summary := p.Run(context.Background(), in, collectEvents(&events))

	require.NotNil(t, summary)
	assert.Equal(t, 1, summary.TotalRows)
	assert.Equal(t, 2, summary.Errors)
	assert.Equal(t, 0, summary.ProductsCreated)
	assert.Empty(t, catalog.created)

	// one product event per validation error, then a single complete
	assert.Len(t, eventsByName(events, models.EventProduct), 2)
	require.Len(t, eventsByName(events, models.EventComplete), 1)
	assert.Equal(t, models.EventComplete, events[len(events)-1].Name)
}

func TestPipeline_RerunSkipsExistingProducts(t *testing.T) {
	catalog := newFakeCatalog()
	p := newTestPipeline(catalog, newFakeBlobStore())

	in := Input{CSVRaw: "name,price\nClassic Tee,24.99"}

	var first []models.StreamEvent
	summary := p.Run(context.Background(), in, collectEvents(&first))
	require.NotNil(t, summary)
	require.Equal(t, 1, summary.ProductsCreated)

	// second run sees the product in the name index
	catalog.nameIndex["classic tee"] = catalog.created[0].product.ID

	var second []models.StreamEvent
	rerun := p.Run(context.Background(), in, collectEvents(&second))

	require.NotNil(t, rerun)
	assert.Equal(t, 0, rerun.ProductsCreated)
	assert.Equal(t, 1, rerun.Skipped)
	assert.Len(t, catalog.created, 1)
}

func TestPipeline_UpdateExistingRewritesBusinessFields(t *testing.T) {
	catalog := newFakeCatalog()
	existingID := uuid.New()
	catalog.nameIndex["classic tee"] = existingID
	p := newTestPipeline(catalog, newFakeBlobStore())

	in := Input{
		CSVRaw:         "name,price\nClassic Tee,29.99",
		UpdateExisting: true,
	}

	var events []models.StreamEvent
	summary := p.Run(context.Background(), in, collectEvents(&events))

	require.NotNil(t, summary)
	assert.Equal(t, 1, summary.ProductsUpdated)
	require.Len(t, catalog.updated, 1)
	assert.Equal(t, existingID, catalog.updated[0].id)
	assert.Equal(t, 29.99, catalog.updated[0].updates["price"])
}

func TestPipeline_UnknownCategoryBecomesWarning(t *testing.T) {
	catalog := newFakeCatalog()
	p := newTestPipeline(catalog, newFakeBlobStore())

	in := Input{CSVRaw: "name,price,category\nClassic Tee,24.99,Hats"}

	var events []models.StreamEvent
	summary := p.Run(context.Background(), in, collectEvents(&events))

	require.NotNil(t, summary)
	assert.Equal(t, 1, summary.ProductsCreated)
	assert.Equal(t, 1, summary.Warnings)

	completes := eventsByName(events, models.EventComplete)
	require.Len(t, completes, 1)
	payload := completes[0].Data.(models.CompletePayload)
	require.Len(t, payload.Warnings, 1)
	assert.Equal(t, "category", payload.Warnings[0].Field)
	assert.Contains(t, payload.Warnings[0].Message, "Hats")

	require.Len(t, catalog.created, 1)
	assert.Nil(t, catalog.created[0].product.CategoryID)
}

func TestPipeline_LookupFailuresDegradeGracefully(t *testing.T) {
	catalog := newFakeCatalog()
	catalog.categoriesErr = assert.AnError
	catalog.nameIndexErr = assert.AnError
	p := newTestPipeline(catalog, newFakeBlobStore())

	in := Input{CSVRaw: "name,price,category\nClassic Tee,24.99,T-Shirts"}

	summary := p.Run(context.Background(), in, func(models.StreamEvent) {})

	require.NotNil(t, summary)
	assert.Equal(t, 1, summary.ProductsCreated)
	assert.Equal(t, 1, summary.Warnings)
}

func TestPipeline_CancelledContextStopsEmitting(t *testing.T) {
	catalog := newFakeCatalog()
	p := newTestPipeline(catalog, newFakeBlobStore())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var events []models.StreamEvent
	p.Run(ctx, Input{CSVRaw: "name,price\nTee,10"}, collectEvents(&events))

	assert.Empty(t, events)
}
