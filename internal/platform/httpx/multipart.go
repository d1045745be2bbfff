package httpx

import (
	"fmt"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/alesteb/alesteb-api/internal/platform/storage"
	"github.com/alesteb/alesteb-api/internal/shared"
)

// ParseMultipart parses a multipart form keeping at most maxMemory bytes in
// memory; larger parts spill to temp files removed by CleanupMultipart.
func ParseMultipart(r *http.Request, maxBytes int64) error {
	if maxBytes > 0 {
		r.Body = http.MaxBytesReader(nil, r.Body, maxBytes)
	}
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		return fmt.Errorf("%w: invalid multipart form: %s", shared.ErrValidation, err.Error())
	}
	return nil
}

// CleanupMultipart removes temporary files left by ParseMultipart.
func CleanupMultipart(r *http.Request) {
	if r.MultipartForm != nil {
		_ = r.MultipartForm.RemoveAll()
	}
}

// FormFiles returns the uploaded files for a field, or nil.
func FormFiles(r *http.Request, field string) []*multipart.FileHeader {
	if r.MultipartForm == nil || r.MultipartForm.File == nil {
		return nil
	}
	return r.MultipartForm.File[field]
}

// FormString returns a trimmed form value.
func FormString(r *http.Request, field string) string {
	return strings.TrimSpace(r.FormValue(field))
}

// FormInt returns an integer form value, defaulting to zero when absent.
func FormInt(r *http.Request, field string) (int, error) {
	raw := FormString(r, field)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer", shared.ErrValidation, field)
	}
	return v, nil
}

// FormOptionalInt64 returns nil for an empty or "null" value.
func FormOptionalInt64(r *http.Request, field string) (*int64, error) {
	raw := FormString(r, field)
	if raw == "" || raw == "null" {
		return nil, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || v <= 0 {
		return nil, fmt.Errorf("%w: %s must be a positive integer", shared.ErrValidation, field)
	}
	return &v, nil
}

// FormDecimal parses a decimal form value.
func FormDecimal(r *http.Request, field string) (decimal.Decimal, error) {
	raw := FormString(r, field)
	if raw == "" {
		return decimal.Zero, fmt.Errorf("%w: %s is required", shared.ErrValidation, field)
	}
	v, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %s must be a number", shared.ErrValidation, field)
	}
	return v, nil
}

// FormBool parses an optional boolean form value.
func FormBool(r *http.Request, field string, fallback bool) (bool, error) {
	raw := FormString(r, field)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("%w: %s must be a boolean", shared.ErrValidation, field)
	}
	return v, nil
}

// FormInt64List accepts either repeated fields (ids=1&ids=2), a comma
// separated list, or a JSON-style array ("[1,2]").
func FormInt64List(r *http.Request, field string) ([]int64, error) {
	var raw []string
	if r.MultipartForm != nil {
		raw = append(raw, r.MultipartForm.Value[field]...)
	}
	if len(raw) == 0 && r.Form != nil {
		raw = append(raw, r.Form[field]...)
	}
	var out []int64
	for _, chunk := range raw {
		chunk = strings.Trim(strings.TrimSpace(chunk), "[]")
		for _, part := range strings.Split(chunk, ",") {
			part = strings.Trim(strings.TrimSpace(part), `"`)
			if part == "" {
				continue
			}
			id, err := strconv.ParseInt(part, 10, 64)
			if err != nil || id <= 0 {
				return nil, fmt.Errorf("%w: %s must contain positive integers", shared.ErrValidation, field)
			}
			out = append(out, id)
		}
	}
	return out, nil
}

// OpenUploads opens every file of field as a storage.Upload. The returned
// close func releases the opened files and must be called once the uploads
// have been consumed.
func OpenUploads(r *http.Request, field string) ([]storage.Upload, func(), error) {
	headers := FormFiles(r, field)
	uploads := make([]storage.Upload, 0, len(headers))
	files := make([]multipart.File, 0, len(headers))
	closeAll := func() {
		for _, f := range files {
			_ = f.Close()
		}
	}
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			closeAll()
			return nil, func() {}, fmt.Errorf("%w: unreadable file %s", shared.ErrValidation, fh.Filename)
		}
		files = append(files, f)
		uploads = append(uploads, storage.Upload{
			Filename:    fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Size:        fh.Size,
			Body:        f,
		})
	}
	return uploads, closeAll, nil
}
