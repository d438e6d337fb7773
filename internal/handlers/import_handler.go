package handlers

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"

	"github.com/ecrimah/tshirts/internal/events"
	"github.com/ecrimah/tshirts/internal/importer"
	"github.com/ecrimah/tshirts/internal/models"
)

const (
	maxCSVUploadBytes   = 10 * 1024 * 1024
	maxImageUploadBytes = 10 * 1024 * 1024
)

// ImportHandler drives bulk product imports and template downloads.
type ImportHandler struct {
	pipeline    *importer.Pipeline
	publisher   *events.Publisher
	logger      *logrus.Logger
	maxZipBytes int64
}

// NewImportHandler creates a new import handler. publisher may be nil when
// NATS is not configured.
func NewImportHandler(pipeline *importer.Pipeline, publisher *events.Publisher, logger *logrus.Logger, maxZipMB int) *ImportHandler {
	return &ImportHandler{
		pipeline:    pipeline,
		publisher:   publisher,
		logger:      logger,
		maxZipBytes: int64(maxZipMB) * 1024 * 1024,
	}
}

// ImportProducts runs a bulk import and streams progress as server-sent
// events. The upload is either a ZIP archive (CSV plus images) in the
// zipFile field, or a bare CSV in csvFile with loose files in images.
// POST /api/v1/products/import
func (h *ImportHandler) ImportProducts(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_FORM",
				"message": "Request must be multipart/form-data",
			},
		})
		return
	}

	input, filename, errResp := h.buildInput(form)
	if errResp != nil {
		c.JSON(http.StatusBadRequest, errResp)
		return
	}
	input.UpdateExisting = strings.EqualFold(c.PostForm("updateExisting"), "true")

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Writer.Flush()

	sink := func(event models.StreamEvent) {
		data, err := json.Marshal(event.Data)
		if err != nil {
			h.logger.WithError(err).Error("Failed to marshal stream event")
			return
		}
		fmt.Fprintf(c.Writer, "event: %s\ndata: %s\n\n", event.Name, data)
		c.Writer.Flush()
	}

	summary := h.pipeline.Run(c.Request.Context(), *input, sink)

	if summary != nil && h.publisher != nil {
		userID := c.GetString("user_id")
		h.publisher.PublishImportCompleted(c.Request.Context(), userID, filename, summary)
	}
}

// buildInput assembles pipeline input from the multipart form, enforcing
// the upload size ceilings before any processing starts.
func (h *ImportHandler) buildInput(form *multipart.Form) (*importer.Input, string, gin.H) {
	if zips := form.File["zipFile"]; len(zips) > 0 {
		header := zips[0]
		if header.Size > h.maxZipBytes {
			return nil, "", uploadError("FILE_TOO_LARGE",
				fmt.Sprintf("ZIP archive exceeds the %d MB limit", h.maxZipBytes/(1024*1024)))
		}
		data, err := readUpload(header)
		if err != nil {
			return nil, "", uploadError("UPLOAD_READ_FAILED", "Failed to read uploaded archive")
		}
		return &importer.Input{ZipData: data}, header.Filename, nil
	}

	csvFiles := form.File["csvFile"]
	if len(csvFiles) == 0 {
		return nil, "", uploadError("MISSING_FILE", "Provide a zipFile or a csvFile upload")
	}
	header := csvFiles[0]
	if header.Size > maxCSVUploadBytes {
		return nil, "", uploadError("FILE_TOO_LARGE", "CSV file exceeds the 10 MB limit")
	}
	csvData, err := readUpload(header)
	if err != nil {
		return nil, "", uploadError("UPLOAD_READ_FAILED", "Failed to read uploaded CSV")
	}

	images := make(map[string][]byte)
	for _, imageHeader := range form.File["images"] {
		if imageHeader.Size > maxImageUploadBytes {
			return nil, "", uploadError("FILE_TOO_LARGE",
				fmt.Sprintf("Image %s exceeds the 10 MB limit", imageHeader.Filename))
		}
		data, err := readUpload(imageHeader)
		if err != nil {
			return nil, "", uploadError("UPLOAD_READ_FAILED",
				fmt.Sprintf("Failed to read image %s", imageHeader.Filename))
		}
		name := strings.ToLower(filepath.Base(imageHeader.Filename))
		if _, seen := images[name]; !seen {
			images[name] = data
		}
	}

	return &importer.Input{CSVRaw: string(csvData), Images: images}, header.Filename, nil
}

func readUpload(header *multipart.FileHeader) ([]byte, error) {
	file, err := header.Open()
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return io.ReadAll(file)
}

func uploadError(code, message string) gin.H {
	return gin.H{
		"success": false,
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	}
}

// GetImportTemplate returns the import template definition or file
// GET /api/v1/products/import/template
func (h *ImportHandler) GetImportTemplate(c *gin.Context) {
	format := c.DefaultQuery("format", "json")

	template := models.ImportTemplate{
		Entity:  "products",
		Version: "1.0",
		Columns: models.ProductImportColumns(),
	}

	switch format {
	case "csv":
		h.generateCSVTemplate(c, template)
	case "xlsx":
		h.generateXLSXTemplate(c, template)
	default:
		c.JSON(http.StatusOK, gin.H{
			"success":  true,
			"template": template,
		})
	}
}

// generateCSVTemplate generates and downloads a CSV template (headers only)
func (h *ImportHandler) generateCSVTemplate(c *gin.Context, template models.ImportTemplate) {
	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", "attachment; filename=products_import_template.csv")

	writer := csv.NewWriter(c.Writer)
	defer writer.Flush()

	headers := make([]string, len(template.Columns))
	for i, col := range template.Columns {
		headers[i] = col.Name
	}
	writer.Write(headers)
}

// generateXLSXTemplate generates and downloads an Excel template
func (h *ImportHandler) generateXLSXTemplate(c *gin.Context, template models.ImportTemplate) {
	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Products"
	f.SetSheetName("Sheet1", sheetName)

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"4472C4"}, Pattern: 1},
		Border: []excelize.Border{
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})

	requiredStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"C65911"}, Pattern: 1},
		Border: []excelize.Border{
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})

	for i, col := range template.Columns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		headerText := col.Name
		if col.Required {
			headerText = col.Name + " *"
		}
		f.SetCellValue(sheetName, cell, headerText)

		if col.Required {
			f.SetCellStyle(sheetName, cell, cell, requiredStyle)
		} else {
			f.SetCellStyle(sheetName, cell, cell, headerStyle)
		}

		colName, _ := excelize.ColumnNumberToName(i + 1)
		f.SetColWidth(sheetName, colName, colName, 20)
	}

	// Add Instructions sheet
	f.NewSheet("Instructions")
	f.SetCellValue("Instructions", "A1", "Product Import Instructions")

	f.SetCellValue("Instructions", "A3", "VARIANTS:")
	f.SetCellValue("Instructions", "A4", "Repeat the same product name on consecutive rows to add size/color variants.")
	f.SetCellValue("Instructions", "A5", "The first row of a group supplies the shared product fields; later rows only need name, price and the variant columns.")

	f.SetCellValue("Instructions", "A7", "IMAGES:")
	f.SetCellValue("Instructions", "A8", "List image filenames in the images column separated by commas. The files must be included in the upload (inside the ZIP or as loose files).")

	f.SetCellValue("Instructions", "A10", "Column Definitions:")
	f.SetCellValue("Instructions", "A11", "Column")
	f.SetCellValue("Instructions", "B11", "Description")
	f.SetCellValue("Instructions", "C11", "Required")
	f.SetCellValue("Instructions", "D11", "Type")
	f.SetCellValue("Instructions", "E11", "Example")

	for i, col := range template.Columns {
		row := i + 12
		f.SetCellValue("Instructions", fmt.Sprintf("A%d", row), col.Name)
		f.SetCellValue("Instructions", fmt.Sprintf("B%d", row), col.Description)
		required := "Optional"
		if col.Required {
			required = "Required"
		}
		f.SetCellValue("Instructions", fmt.Sprintf("C%d", row), required)
		f.SetCellValue("Instructions", fmt.Sprintf("D%d", row), col.Type)
		f.SetCellValue("Instructions", fmt.Sprintf("E%d", row), col.Example)
	}

	f.SetColWidth("Instructions", "A", "A", 25)
	f.SetColWidth("Instructions", "B", "B", 60)
	f.SetColWidth("Instructions", "C", "C", 15)
	f.SetColWidth("Instructions", "D", "D", 15)
	f.SetColWidth("Instructions", "E", "E", 40)

	sheetIdx, _ := f.GetSheetIndex(sheetName)
	f.SetActiveSheet(sheetIdx)

	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", "attachment; filename=products_import_template.xlsx")

	f.Write(c.Writer)
}
