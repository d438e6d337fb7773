package importer

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ecrimah/tshirts/internal/models"
)

// Catalog is the full catalog store surface one pipeline run needs.
type Catalog interface {
	CatalogReader
	CatalogWriter
}

// Input describes one import invocation: either a compressed archive, or
// raw CSV text plus loose image payloads keyed by lower-cased filename.
type Input struct {
	ZipData        []byte
	CSVRaw         string
	Images         map[string][]byte
	UpdateExisting bool
}

// Sink consumes stream events as the pipeline crosses its suspension
// points. Events are emitted immediately, never batched across phases.
type Sink func(models.StreamEvent)

// Pipeline orchestrates one import run: extract, validate, upload images,
// reconcile products, summarize. A Pipeline value carries no cross-run
// state; concurrent runs by different callers are independent.
type Pipeline struct {
	catalog Catalog
	blobs   BlobStore
	tokens  TokenGenerator
	logger  *logrus.Entry

	// prefixFn namespaces one run's uploads; overridable in tests.
	prefixFn func() string
}

// NewPipeline builds a pipeline over the given collaborators.
func NewPipeline(catalog Catalog, blobs BlobStore, tokens TokenGenerator, logger *logrus.Entry) *Pipeline {
	return &Pipeline{
		catalog: catalog,
		blobs:   blobs,
		tokens:  tokens,
		logger:  logger,
		prefixFn: func() string {
			return fmt.Sprintf("imports/%d", time.Now().UnixMilli())
		},
	}
}

// Run executes the pipeline, emitting typed events to sink as they occur.
// Phases advance strictly forward: extracting, validating, uploading_images,
// creating_products, complete. Exactly one terminal event is emitted: a
// complete event with the run summary (possibly all-error), or an error
// event if the upload cannot be read at all. The returned summary is nil on
// the error path. If ctx is cancelled the pipeline stops emitting; writes
// already committed are not rolled back.
func (p *Pipeline) Run(ctx context.Context, in Input, sink Sink) *models.RunSummary {
	emit := func(name string, data interface{}) {
		if ctx.Err() != nil {
			return
		}
		sink(models.StreamEvent{Name: name, Data: data})
	}
	progress := func(phase models.ImportPhase, current, total int, message string) {
		emit(models.EventProgress, models.ProgressPayload{
			Phase: phase, Current: current, Total: total, Message: message,
		})
	}

	start := time.Now()
	var csvRaw string
	images := make(map[string][]byte)

	if len(in.ZipData) > 0 {
		progress(models.PhaseExtracting, 0, 1, "Extracting files...")
		extracted, err := ExtractArchive(in.ZipData)
		if err != nil {
			emit(models.EventError, models.ErrorPayload{Message: err.Error()})
			return nil
		}
		csvRaw = extracted.CSVRaw
		for k, v := range extracted.Images {
			images[k] = v
		}
	} else {
		if in.CSVRaw == "" {
			emit(models.EventError, models.ErrorPayload{Message: "CSV file is required"})
			return nil
		}
		csvRaw = in.CSVRaw
		for k, v := range in.Images {
			images[k] = v
		}
	}

	progress(models.PhaseValidating, 0, 1, "Validating CSV...")

	imageKeys := make(map[string]struct{}, len(images))
	for k := range images {
		imageKeys[k] = struct{}{}
	}
	parsed := ParseCSV(csvRaw, imageKeys)
	validRows := parsed.ValidRows()

	for _, e := range parsed.Errors {
		emit(models.EventProduct, models.ProductOutcome{
			Row: e.Row, Name: "", Status: "error", Error: e.Message,
		})
	}

	if len(validRows) == 0 && len(parsed.Errors) > 0 {
		summary := models.RunSummary{
			TotalRows: len(parsed.Rows),
			Errors:    len(parsed.Errors),
			Warnings:  len(parsed.Warnings),
			Duration:  runDuration(start),
		}
		emit(models.EventComplete, models.CompletePayload{
			Summary: summary, Errors: parsed.Errors, Warnings: parsed.Warnings,
		})
		return &summary
	}

	lookups := BuildLookups(ctx, p.catalog, p.logger)

	referenced := CollectReferencedImages(validRows)
	prefix := p.prefixFn()

	progress(models.PhaseUploadingImages, 0, len(referenced), "Uploading images...")
	urlMap := UploadImages(ctx, images, referenced, prefix, p.blobs, func(up UploadProgress) {
		progress(models.PhaseUploadingImages, up.Current, up.Total, up.Message)
	})

	progress(models.PhaseCreatingProducts, 0, len(validRows), "Creating products...")

	reconciler := NewReconciler(p.catalog, p.tokens, p.logger)
	stats := reconciler.Run(ctx, validRows, urlMap, lookups, in.UpdateExisting, func(o models.ProductOutcome) {
		emit(models.EventProduct, o)
	})

	warnings := parsed.Warnings
	for _, row := range validRows {
		if row.Category == nil {
			continue
		}
		name := *row.Category
		if !lookups.HasCategory(name) {
			warnings = append(warnings, models.ValidationIssue{
				Row:   row.RowIndex,
				Field: "category",
				Message: fmt.Sprintf(
					"Category '%s' not found. Product created without category.", name),
			})
		}
	}

	summary := models.RunSummary{
		TotalRows:       len(parsed.Rows),
		ProductsCreated: stats.Created,
		ProductsUpdated: stats.Updated,
		VariantsCreated: stats.VariantsCreated,
		ImagesUploaded:  len(urlMap),
		Errors:          len(parsed.Errors) + stats.Errors,
		Warnings:        len(warnings),
		Skipped:         stats.Skipped,
		Duration:        runDuration(start),
	}
	emit(models.EventComplete, models.CompletePayload{
		Summary: summary, Errors: parsed.Errors, Warnings: warnings,
	})
	return &summary
}

func runDuration(start time.Time) string {
	return fmt.Sprintf("%ds", int(time.Since(start).Round(time.Second).Seconds()))
}
