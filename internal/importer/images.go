package importer

import (
	"context"
	"fmt"
	"path"
	"regexp"
	"sort"
	"strings"

	"github.com/ecrimah/tshirts/internal/models"
)

const maxImageBytes = 10 * 1024 * 1024 // 10 MiB per image

var storageKeyStripRegex = regexp.MustCompile(`[^a-z0-9._-]`)

// BlobStore is the object storage surface the uploader needs: write an
// object under a key and derive its public URL.
type BlobStore interface {
	Upload(ctx context.Context, key string, data []byte, contentType string) error
	PublicURL(key string) string
}

// UploadProgress is reported once per processed file, whether it was
// uploaded, rejected, or failed.
type UploadProgress struct {
	Current int
	Total   int
	Message string
}

// CollectReferencedImages returns the lower-cased set of image filenames
// referenced by the given rows' images lists.
func CollectReferencedImages(rows []models.ImportRow) map[string]struct{} {
	set := make(map[string]struct{})
	for _, row := range rows {
		for _, f := range row.Images {
			f = strings.TrimSpace(f)
			if f != "" {
				set[strings.ToLower(f)] = struct{}{}
			}
		}
	}
	return set
}

// UploadImages uploads the intersection of referenced filenames and
// available image bytes, returning a filename -> public URL map keyed under
// both the normalized and original names. Images in the bundle that no valid
// row references are never uploaded. Oversized or unsupported files are
// rejected and reported; a failed upload is recorded and the batch carries
// on. Files are processed in sorted name order so progress is deterministic.
func UploadImages(ctx context.Context, images map[string][]byte, referenced map[string]struct{}, prefix string, store BlobStore, onProgress func(UploadProgress)) map[string]string {
	urlMap := make(map[string]string)

	toUpload := make([]string, 0, len(referenced))
	for name := range referenced {
		if _, ok := images[name]; ok {
			toUpload = append(toUpload, name)
		}
	}
	sort.Strings(toUpload)

	total := len(toUpload)
	current := 0
	report := func(message string) {
		current++
		if onProgress != nil {
			onProgress(UploadProgress{Current: current, Total: total, Message: message})
		}
	}

	for _, filename := range toUpload {
		data := images[filename]
		if len(data) > maxImageBytes {
			report(fmt.Sprintf("Skipped %s: exceeds 10MB", filename))
			continue
		}
		ext := strings.ToLower(path.Ext(filename))
		if !allowedImageExt[ext] {
			report(fmt.Sprintf("Skipped %s: unsupported format", filename))
			continue
		}

		key := prefix + "/" + safeStorageKey(filename)
		if err := store.Upload(ctx, key, data, imageContentType(ext)); err != nil {
			report(fmt.Sprintf("Failed %s: %v", filename, err))
			continue
		}

		url := store.PublicURL(key)
		urlMap[strings.ToLower(strings.TrimSpace(filename))] = url
		urlMap[filename] = url
		report(fmt.Sprintf("Uploaded %s", filename))
	}

	return urlMap
}

// safeStorageKey normalizes a filename for object storage: lower-case,
// spaces to hyphens, everything outside [a-z0-9._-] stripped.
func safeStorageKey(name string) string {
	s := strings.ToLower(name)
	s = whitespaceRegex.ReplaceAllString(s, "-")
	return storageKeyStripRegex.ReplaceAllString(s, "")
}

func imageContentType(ext string) string {
	switch ext {
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	default:
		return "image/jpeg"
	}
}
