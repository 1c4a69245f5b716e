// Package export renders draft content to HTML, PDF and DOCX, optionally
// archiving each rendering in object storage.
package export

import (
	"errors"
	"time"

	"universe/api/internal/content"
)

// Format represents the export output format
type Format string

const (
	FormatHTML Format = "html"
	FormatPDF  Format = "pdf"
	FormatDOCX Format = "docx"
)

func ParseFormat(value string) (Format, error) {
	switch Format(value) {
	case FormatHTML, FormatPDF, FormatDOCX:
		return Format(value), nil
	case "":
		return FormatHTML, nil
	default:
		return "", ErrUnsupportedFormat
	}
}

// Request contains parameters for an export operation
type Request struct {
	DraftID  string
	Revision string // empty means the current draft content
	Format   Format
	Author   string
}

// Source is the draft content being exported.
type Source struct {
	ID        string
	Title     string
	Revision  string
	UpdatedAt time.Time
	Content   content.Tree
}

// Result contains the export output
type Result struct {
	Data       []byte
	Filename   string
	MimeType   string
	ArchiveKey string
	ArchiveURL string
}

var (
	ErrUnsupportedFormat = errors.New("unsupported export format")
	// ErrPDFDependencyMissing indicates PDF export runtime dependencies are unavailable.
	ErrPDFDependencyMissing = errors.New("export pdf dependency missing")
	// ErrDOCXDependencyMissing indicates DOCX export runtime dependencies are unavailable.
	ErrDOCXDependencyMissing = errors.New("export docx dependency missing")
)
