package importer

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
)

// maxArchiveBytes caps the cumulative decompressed size of an archive.
// Package variable so tests can lower it.
var maxArchiveBytes int64 = 1 << 30 // 1 GiB

// ErrNoCSV is returned when the archive contains no CSV entry.
var ErrNoCSV = errors.New("no CSV file found in the archive")

// SizeExceededError is returned when cumulative decompressed bytes cross
// the archive ceiling. Checked incrementally, before fully materializing
// an oversized archive.
type SizeExceededError struct {
	Limit int64
}

func (e *SizeExceededError) Error() string {
	return fmt.Sprintf("archive contents exceed maximum allowed size (%d bytes)", e.Limit)
}

var allowedImageExt = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".webp": true,
	".gif":  true,
}

// Extracted holds the raw CSV text and image bytes pulled from one archive.
// Image keys are lower-cased, trimmed base filenames; first occurrence wins.
type Extracted struct {
	CSVRaw      string
	CSVFilename string
	Images      map[string][]byte
}

// ExtractArchive unpacks a product-import ZIP bundle: one products CSV plus
// an images folder. An entry literally named products.csv is preferred;
// otherwise the first CSV in listing order is used. Entries that are neither
// CSV nor an allow-listed image format are ignored.
func ExtractArchive(data []byte) (*Extracted, error) {
	r, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to open archive: %w", err)
	}

	var totalBytes int64
	type csvEntry struct {
		name    string
		content string
	}
	var csvFiles []csvEntry
	images := make(map[string][]byte)

	for _, f := range r.File {
		if f.FileInfo().IsDir() {
			continue
		}

		// Declared size first, so an oversized archive aborts before
		// any decompression of the offending entry.
		totalBytes += int64(f.UncompressedSize64)
		if totalBytes > maxArchiveBytes {
			return nil, &SizeExceededError{Limit: maxArchiveBytes}
		}

		name := path.Base(strings.ReplaceAll(f.Name, `\`, "/"))
		ext := strings.ToLower(path.Ext(name))

		switch {
		case ext == ".csv":
			content, err := readEntry(f)
			if err != nil {
				return nil, fmt.Errorf("failed to read %s: %w", f.Name, err)
			}
			csvFiles = append(csvFiles, csvEntry{name: name, content: string(content)})
		case allowedImageExt[ext]:
			key := strings.ToLower(strings.TrimSpace(name))
			if _, seen := images[key]; seen {
				continue
			}
			content, err := readEntry(f)
			if err != nil {
				return nil, fmt.Errorf("failed to read %s: %w", f.Name, err)
			}
			images[key] = content
		}
	}

	if len(csvFiles) == 0 {
		return nil, ErrNoCSV
	}

	primary := csvFiles[0]
	for _, cf := range csvFiles {
		if strings.EqualFold(cf.name, "products.csv") {
			primary = cf
			break
		}
	}

	return &Extracted{
		CSVRaw:      primary.content,
		CSVFilename: primary.name,
		Images:      images,
	}, nil
}

// readEntry reads a zip entry, refusing to read past the declared size.
// Guards against entries whose header lies about the uncompressed size.
func readEntry(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	limit := int64(f.UncompressedSize64)
	data, err := io.ReadAll(io.LimitReader(rc, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, &SizeExceededError{Limit: maxArchiveBytes}
	}
	return data, nil
}
