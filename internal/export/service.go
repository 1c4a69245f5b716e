package export

import (
	"context"
	"fmt"
	"html/template"
	"time"

	"github.com/rs/zerolog"

	"universe/api/internal/content"
)

// DataStore loads the draft content to export.
type DataStore interface {
	LoadExportSource(ctx context.Context, draftID, revision string) (Source, error)
}

type renderFunc func(ctx context.Context, html string) ([]byte, error)

type output struct {
	render    renderFunc
	extension string
	mimeType  string
}

// Service provides draft export functionality
type Service struct {
	store    DataStore
	archiver Archiver
	logger   zerolog.Logger
	now      func() time.Time
	outputs  map[Format]output
}

// NewService creates an export service. archiver may be nil.
func NewService(store DataStore, archiver Archiver, logger zerolog.Logger) *Service {
	return &Service{
		store:    store,
		archiver: archiver,
		logger:   logger.With().Str("component", "export").Logger(),
		now:      time.Now,
		outputs: map[Format]output{
			FormatHTML: {
				render:    func(_ context.Context, html string) ([]byte, error) { return []byte(html), nil },
				extension: ".html",
				mimeType:  "text/html; charset=utf-8",
			},
			FormatPDF: {render: renderPDF, extension: ".pdf", mimeType: "application/pdf"},
			FormatDOCX: {
				render:    renderDOCX,
				extension: ".docx",
				mimeType:  "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
			},
		},
	}
}

// Export renders the requested draft revision. Archiving failures are logged
// and do not fail the export.
func (s *Service) Export(ctx context.Context, req Request) (*Result, error) {
	out, ok := s.outputs[req.Format]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, req.Format)
	}

	src, err := s.store.LoadExportSource(ctx, req.DraftID, req.Revision)
	if err != nil {
		return nil, fmt.Errorf("load draft: %w", err)
	}

	title := src.Title
	if title == "" {
		title = content.Title(src.Content)
	}
	html, err := RenderDocumentHTML(TemplateData{
		Title:       title,
		ContentHTML: template.HTML(content.ToHTML(src.Content)),
		Author:      req.Author,
		Revision:    src.Revision,
		UpdatedAt:   src.UpdatedAt,
	})
	if err != nil {
		return nil, fmt.Errorf("render template: %w", err)
	}

	data, err := out.render(ctx, html)
	if err != nil {
		return nil, err
	}

	result := &Result{
		Data:     data,
		Filename: sanitizeFilename(title) + out.extension,
		MimeType: out.mimeType,
	}
	if s.archiver != nil {
		key := s.archiveKey(src, out.extension)
		link, err := s.archiver.Archive(ctx, key, data, out.mimeType)
		if err != nil {
			s.logger.Warn().Err(err).Str("draft_id", src.ID).Msg("archive export failed")
		} else {
			result.ArchiveKey = key
			result.ArchiveURL = link
		}
	}
	return result, nil
}

func (s *Service) archiveKey(src Source, extension string) string {
	revision := src.Revision
	if revision == "" {
		revision = "latest"
	}
	return fmt.Sprintf("drafts/%s/%s-%d%s", src.ID, revision, s.now().UTC().Unix(), extension)
}
