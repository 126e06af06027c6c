// Package docreader turns CV documents (PDF, DOCX, HTML, plain text) into
// cleaned UTF-8 text, from disk or over HTTP.
package docreader

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// ErrUnsupported is returned for documents no extractor handles
var ErrUnsupported = errors.New("unsupported document type")

// Kind identifies a document format
type Kind string

const (
	KindPDF     Kind = "pdf"
	KindDOCX    Kind = "docx"
	KindHTML    Kind = "html"
	KindText    Kind = "text"
	KindUnknown Kind = ""
)

// KindForPath maps a file extension to a Kind
func KindForPath(path string) Kind {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return KindPDF
	case ".docx":
		return KindDOCX
	case ".html", ".htm":
		return KindHTML
	case ".txt", ".md", ".text":
		return KindText
	default:
		return KindUnknown
	}
}

// KindForContentType maps a Content-Type header, falling back to sniffing data
func KindForContentType(contentType string, data []byte) Kind {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil || mediaType == "application/octet-stream" || mediaType == "" {
		mediaType, _, _ = mime.ParseMediaType(http.DetectContentType(data))
	}

	switch mediaType {
	case "application/pdf":
		return KindPDF
	case "application/vnd.openxmlformats-officedocument.wordprocessingml.document":
		return KindDOCX
	case "text/html", "application/xhtml+xml":
		return KindHTML
	case "text/plain", "text/markdown":
		return KindText
	default:
		return KindUnknown
	}
}

// Supported reports whether path has an extension ReadFile understands
func Supported(path string) bool {
	return KindForPath(path) != KindUnknown
}

// Parse extracts and cleans the text of data
func Parse(ctx context.Context, data []byte, kind Kind) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	var (
		text string
		err  error
	)
	switch kind {
	case KindPDF:
		text, err = extractPDF(data)
	case KindDOCX:
		text, err = extractDOCX(data)
	case KindHTML:
		text, err = extractHTML(data)
	case KindText:
		text = string(data)
	default:
		return "", ErrUnsupported
	}
	if err != nil {
		return "", err
	}

	return Clean(text), nil
}

// ReadFile extracts the cleaned text of the document at path
func ReadFile(ctx context.Context, path string) (string, error) {
	kind := KindForPath(path)
	if kind == KindUnknown {
		return "", fmt.Errorf("%s: %w", path, ErrUnsupported)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read document: %w", err)
	}

	text, err := Parse(ctx, data, kind)
	if err != nil {
		return "", fmt.Errorf("%s: %w", path, err)
	}
	return text, nil
}

// IsURL reports whether source should be fetched over HTTP
func IsURL(source string) bool {
	return strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://")
}

// Reader reads documents from local paths or, when a Fetcher is set, URLs
type Reader struct {
	fetcher *Fetcher
}

// NewReader creates a Reader. fetcher may be nil.
func NewReader(fetcher *Fetcher) *Reader {
	return &Reader{fetcher: fetcher}
}

// Read returns the cleaned text of source
func (r *Reader) Read(ctx context.Context, source string) (string, error) {
	if !IsURL(source) {
		return ReadFile(ctx, source)
	}

	if r.fetcher == nil {
		return "", fmt.Errorf("%s: remote documents are disabled", source)
	}

	res, err := r.fetcher.FetchWithRetry(ctx, source)
	if err != nil {
		return "", fmt.Errorf("%s: %w", source, err)
	}

	kind := KindForContentType(res.ContentType, res.Body)
	if kind == KindUnknown {
		kind = KindForPath(res.FinalURL)
	}

	text, err := Parse(ctx, res.Body, kind)
	if err != nil {
		return "", fmt.Errorf("%s: %w", source, err)
	}
	return text, nil
}
