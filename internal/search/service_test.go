package search

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeIndex struct {
	mu       sync.Mutex
	healthy  bool
	results  []Result
	err      error
	indexed  map[ResultType]int
	searched int
	snapshot Snapshot
}

func (f *fakeIndex) Healthy() bool { return f.healthy }

func (f *fakeIndex) Search(_ context.Context, _ Query) ([]Result, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.searched++
	if f.err != nil {
		return nil, 0, f.err
	}
	return f.results, len(f.results), nil
}

func (f *fakeIndex) Index(kind ResultType, records any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.indexed == nil {
		f.indexed = map[ResultType]int{}
	}
	f.indexed[kind]++
	return nil
}

func (f *fakeIndex) LoadSnapshot(context.Context) (Snapshot, error) {
	return f.snapshot, f.err
}

func newTestService(primary *fakeIndex, fallback *fakeIndex) *Service {
	s := &Service{logger: zerolog.New(io.Discard)}
	if primary != nil {
		s.primary = primary
	}
	if fallback != nil {
		s.fallback = fallback
	}
	return s
}

func TestSearchPrefersHealthyPrimary(t *testing.T) {
	primary := &fakeIndex{healthy: true, results: []Result{{Type: ResultDraft, ID: "drf_1"}}}
	fallback := &fakeIndex{healthy: true}
	svc := newTestService(primary, fallback)

	resp := svc.Search(context.Background(), Query{Text: "hello"})

	require.Len(t, resp.Results, 1)
	assert.Equal(t, "drf_1", resp.Results[0].ID)
	assert.Equal(t, 0, fallback.searched)
}

func TestSearchFallsBackOnPrimaryError(t *testing.T) {
	primary := &fakeIndex{healthy: true, err: errors.New("boom")}
	fallback := &fakeIndex{healthy: true, results: []Result{{Type: ResultDocument, ID: "doc-1"}}}
	svc := newTestService(primary, fallback)

	resp := svc.Search(context.Background(), Query{Text: "hello"})

	require.Len(t, resp.Results, 1)
	assert.Equal(t, "doc-1", resp.Results[0].ID)
	assert.Equal(t, "hello", resp.Query)
}

func TestSearchNeverReturnsNilResults(t *testing.T) {
	fallback := &fakeIndex{healthy: true, err: errors.New("db down")}
	svc := newTestService(nil, fallback)

	resp := svc.Search(context.Background(), Query{Text: "hello"})

	assert.NotNil(t, resp.Results)
	assert.Empty(t, resp.Results)
}

func TestIndexingSkipsUnhealthyPrimary(t *testing.T) {
	primary := &fakeIndex{healthy: false}
	svc := newTestService(primary, nil)

	svc.IndexDraft(DraftRecord{ID: "drf_1"})
	svc.Wait()

	assert.Empty(t, primary.indexed)
}

func TestIndexingRunsInBackground(t *testing.T) {
	primary := &fakeIndex{healthy: true}
	svc := newTestService(primary, nil)

	svc.IndexDraft(DraftRecord{ID: "drf_1"})
	svc.IndexDraft(DraftRecord{ID: "drf_2"})
	svc.Wait()

	assert.Equal(t, 2, primary.indexed[ResultDraft])
}

func TestReindexFromPGSkipsEmptyBatches(t *testing.T) {
	primary := &fakeIndex{healthy: true}
	fallback := &fakeIndex{healthy: true, snapshot: Snapshot{
		Documents: []DocumentRecord{{ID: "doc-1"}},
		Studies:   []StudyRecord{{ID: "std-1"}},
	}}
	svc := newTestService(primary, fallback)

	svc.ReindexFromPG(context.Background())

	assert.Equal(t, map[ResultType]int{ResultDocument: 1, ResultStudy: 1}, primary.indexed)
}

func TestBuildFTSQueryFiltersByDocument(t *testing.T) {
	union, args := buildFTSQuery(Query{Text: "pricing", FilterDocumentID: "doc-1"})

	assert.Contains(t, union, "FROM drafts dr")
	assert.NotContains(t, union, "FROM documents d")
	assert.Contains(t, union, "dr.document_id = $2")
	assert.Equal(t, []any{"pricing", "doc-1"}, args)
}

func TestBuildFTSQueryByType(t *testing.T) {
	union, _ := buildFTSQuery(Query{Text: "admin", FilterType: ResultEntity})
	assert.Contains(t, union, "FROM entities e")
	assert.NotContains(t, union, "UNION ALL")

	all, _ := buildFTSQuery(Query{Text: "admin"})
	assert.Equal(t, 3, strings.Count(all, "UNION ALL"))
}

func TestBuildRequestsTargetsIndexes(t *testing.T) {
	reqs := buildRequests(Query{Text: "admin", Limit: 5})
	require.Len(t, reqs, len(indexSpecs))
	assert.Equal(t, int64(5), reqs[0].Limit)
	assert.Equal(t, "admin", reqs[0].Query)

	drafts := buildRequests(Query{Text: "x", FilterDocumentID: "doc-1"})
	require.Len(t, drafts, 1)
	assert.Equal(t, "universe_drafts", drafts[0].IndexUID)
	assert.Equal(t, []string{`documentId = "doc-1"`}, drafts[0].Filter)
}
