package export

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"universe/api/internal/content"
)

type fakeStore struct {
	source Source
	err    error
	gotID  string
	gotRev string
}

func (f *fakeStore) LoadExportSource(_ context.Context, draftID, revision string) (Source, error) {
	f.gotID, f.gotRev = draftID, revision
	return f.source, f.err
}

type fakeArchiver struct {
	keys []string
	err  error
}

func (f *fakeArchiver) Archive(_ context.Context, key string, _ []byte, _ string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.keys = append(f.keys, key)
	return "https://objects.local/" + key, nil
}

func sampleSource(t *testing.T) Source {
	t.Helper()
	tree, err := content.Normalize(content.Raw(`{"type":"doc","content":[{"type":"heading","attrs":{"level":1},"content":[{"type":"text","text":"Pricing <Notes>"}]},{"type":"paragraph","content":[{"type":"text","text":"Five of six","marks":[{"type":"highlight"}]}]}]}`))
	require.NoError(t, err)
	return Source{ID: "drf_1", Revision: "abc1234", UpdatedAt: time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC), Content: tree}
}

func TestExportHTML(t *testing.T) {
	store := &fakeStore{source: sampleSource(t)}
	svc := NewService(store, nil, zerolog.New(io.Discard))

	result, err := svc.Export(context.Background(), Request{DraftID: "drf_1", Revision: "abc1234", Format: FormatHTML, Author: "Avery"})
	require.NoError(t, err)

	body := string(result.Data)
	assert.Equal(t, "drf_1", store.gotID)
	assert.Equal(t, "abc1234", store.gotRev)
	assert.Equal(t, "Pricing-Notes.html", result.Filename)
	assert.Equal(t, "text/html; charset=utf-8", result.MimeType)
	assert.Contains(t, body, "<title>Pricing &lt;Notes&gt;</title>")
	assert.Contains(t, body, "<h1>Pricing &lt;Notes&gt;</h1>")
	assert.Contains(t, body, "<mark>Five of six</mark>")
	assert.Contains(t, body, "Avery | revision abc1234 | Mar 1, 2026 09:30 UTC")
	assert.Empty(t, result.ArchiveURL)
}

func TestExportArchivesWhenConfigured(t *testing.T) {
	archiver := &fakeArchiver{}
	svc := NewService(&fakeStore{source: sampleSource(t)}, archiver, zerolog.New(io.Discard))
	svc.now = func() time.Time { return time.Unix(1700000000, 0) }

	result, err := svc.Export(context.Background(), Request{DraftID: "drf_1", Format: FormatHTML})
	require.NoError(t, err)

	assert.Equal(t, []string{"drafts/drf_1/abc1234-1700000000.html"}, archiver.keys)
	assert.Equal(t, "drafts/drf_1/abc1234-1700000000.html", result.ArchiveKey)
	assert.True(t, strings.HasPrefix(result.ArchiveURL, "https://objects.local/"))
}

func TestExportArchiveFailureIsNotFatal(t *testing.T) {
	archiver := &fakeArchiver{err: errors.New("bucket gone")}
	svc := NewService(&fakeStore{source: sampleSource(t)}, archiver, zerolog.New(io.Discard))

	result, err := svc.Export(context.Background(), Request{DraftID: "drf_1", Format: FormatHTML})
	require.NoError(t, err)
	assert.NotEmpty(t, result.Data)
	assert.Empty(t, result.ArchiveURL)
}

func TestExportUsesRendererForFormat(t *testing.T) {
	svc := NewService(&fakeStore{source: sampleSource(t)}, nil, zerolog.New(io.Discard))
	out := svc.outputs[FormatPDF]
	out.render = func(_ context.Context, html string) ([]byte, error) {
		return []byte("%PDF " + html[:15]), nil
	}
	svc.outputs[FormatPDF] = out

	result, err := svc.Export(context.Background(), Request{DraftID: "drf_1", Format: FormatPDF})
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", result.MimeType)
	assert.Equal(t, "Pricing-Notes.pdf", result.Filename)
	assert.True(t, strings.HasPrefix(string(result.Data), "%PDF <!DOCTYPE html>"))
}

func TestExportPropagatesErrors(t *testing.T) {
	missing := errors.New("no such draft")
	svc := NewService(&fakeStore{err: missing}, nil, zerolog.New(io.Discard))

	_, err := svc.Export(context.Background(), Request{DraftID: "drf_x", Format: FormatHTML})
	assert.ErrorIs(t, err, missing)

	_, err = svc.Export(context.Background(), Request{DraftID: "drf_x", Format: Format("odt")})
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, FormatHTML, f)

	f, err = ParseFormat("docx")
	require.NoError(t, err)
	assert.Equal(t, FormatDOCX, f)

	_, err = ParseFormat("rtf")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestSanitizeFilename(t *testing.T) {
	assert.Equal(t, "draft", sanitizeFilename("***"))
	assert.Equal(t, "Q3-Plan_v2", sanitizeFilename("Q3 Plan_v2!"))
	assert.Len(t, sanitizeFilename(strings.Repeat("a", 80)), 50)
}
