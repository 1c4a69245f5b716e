package search

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	meili "github.com/meilisearch/meilisearch-go"
	"github.com/rs/zerolog"
)

type indexSpec struct {
	uid        string
	rtyp       ResultType
	filterable []string
	searchable []string
	titleKey   string
	snippetKey string
}

var indexSpecs = []indexSpec{
	{
		uid:        "universe_documents",
		rtyp:       ResultDocument,
		filterable: []string{"status"},
		searchable: []string{"title", "summary"},
		titleKey:   "title",
		snippetKey: "summary",
	},
	{
		uid:        "universe_drafts",
		rtyp:       ResultDraft,
		filterable: []string{"documentId"},
		searchable: []string{"title", "body"},
		titleKey:   "title",
		snippetKey: "body",
	},
	{
		uid:        "universe_entities",
		rtyp:       ResultEntity,
		filterable: []string{"entityType"},
		searchable: []string{"name", "description"},
		titleKey:   "name",
		snippetKey: "description",
	},
	{
		uid:        "universe_studies",
		rtyp:       ResultStudy,
		filterable: []string{"status"},
		searchable: []string{"title", "summary"},
		titleKey:   "title",
		snippetKey: "summary",
	},
}

func specFor(rtyp ResultType) (indexSpec, bool) {
	for _, spec := range indexSpecs {
		if spec.rtyp == rtyp {
			return spec, true
		}
	}
	return indexSpec{}, false
}

func specForIndex(uid string) (indexSpec, bool) {
	for _, spec := range indexSpecs {
		if spec.uid == uid {
			return spec, true
		}
	}
	return indexSpec{}, false
}

// Meili implements Searcher and Indexer via Meilisearch.
type Meili struct {
	client  meili.ServiceManager
	logger  zerolog.Logger
	healthy atomic.Bool
	done    chan struct{}
}

// NewMeili creates a Meilisearch client and configures indexes. A failed
// initial health check leaves the client unhealthy until the background
// monitor sees it recover.
func NewMeili(url, apiKey string, logger zerolog.Logger) *Meili {
	m := &Meili{
		client: meili.New(url, meili.WithAPIKey(apiKey)),
		logger: logger.With().Str("component", "meilisearch").Logger(),
		done:   make(chan struct{}),
	}

	if _, err := m.client.Health(); err != nil {
		m.logger.Warn().Err(err).Str("url", url).Msg("meilisearch unavailable")
		m.healthy.Store(false)
	} else {
		m.healthy.Store(true)
		m.configureIndexes()
	}

	go m.healthLoop()
	return m
}

func (m *Meili) configureIndexes() {
	for _, spec := range indexSpecs {
		if _, err := m.client.CreateIndex(&meili.IndexConfig{
			Uid:        spec.uid,
			PrimaryKey: "id",
		}); err != nil {
			m.logger.Debug().Err(err).Str("index", spec.uid).Msg("create index (may already exist)")
		}

		index := m.client.Index(spec.uid)
		filterable := make([]interface{}, len(spec.filterable))
		for i, v := range spec.filterable {
			filterable[i] = v
		}
		if _, err := index.UpdateFilterableAttributes(&filterable); err != nil {
			m.logger.Warn().Err(err).Str("index", spec.uid).Msg("update filterable attributes")
		}
		searchable := spec.searchable
		if _, err := index.UpdateSearchableAttributes(&searchable); err != nil {
			m.logger.Warn().Err(err).Str("index", spec.uid).Msg("update searchable attributes")
		}
	}
}

func (m *Meili) healthLoop() {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
			_, err := m.client.Health()
			wasHealthy := m.healthy.Load()
			m.healthy.Store(err == nil)
			if err == nil && !wasHealthy {
				m.logger.Info().Msg("meilisearch recovered, reconfiguring indexes")
				m.configureIndexes()
			}
		}
	}
}

// Close stops the background health monitor.
func (m *Meili) Close() {
	close(m.done)
}

// Healthy reports whether Meilisearch is reachable.
func (m *Meili) Healthy() bool {
	return m.healthy.Load()
}

// Search queries every index (or the filtered one) in a single multi-search.
func (m *Meili) Search(_ context.Context, q Query) ([]Result, int, error) {
	if !m.healthy.Load() {
		return nil, 0, fmt.Errorf("meilisearch unhealthy")
	}

	queries := buildRequests(q)
	if len(queries) == 0 {
		return nil, 0, nil
	}

	resp, err := m.client.MultiSearch(&meili.MultiSearchRequest{
		Queries: queries,
	})
	if err != nil {
		m.healthy.Store(false)
		return nil, 0, fmt.Errorf("meilisearch multi-search: %w", err)
	}

	var results []Result
	total := 0
	for _, sr := range resp.Results {
		total += int(sr.EstimatedTotalHits)
		spec, ok := specForIndex(sr.IndexUID)
		if !ok {
			continue
		}
		for _, hit := range sr.Hits {
			results = append(results, hitToResult(hit, spec))
		}
	}

	return results, total, nil
}

func buildRequests(q Query) []*meili.SearchRequest {
	limit := int64(q.Limit)
	if limit <= 0 {
		limit = 20
	}

	var queries []*meili.SearchRequest
	for _, spec := range indexSpecs {
		if q.FilterType != "" && q.FilterType != spec.rtyp {
			continue
		}
		if q.FilterDocumentID != "" && spec.rtyp != ResultDraft {
			continue
		}
		sr := &meili.SearchRequest{
			IndexUID:              spec.uid,
			Query:                 q.Text,
			Limit:                 limit,
			Offset:                int64(q.Offset),
			AttributesToHighlight: []string{"*"},
			HighlightPreTag:       "<mark>",
			HighlightPostTag:      "</mark>",
			ShowRankingScore:      true,
		}
		if q.FilterDocumentID != "" {
			sr.Filter = []string{fmt.Sprintf("documentId = %q", q.FilterDocumentID)}
		}
		queries = append(queries, sr)
	}
	return queries
}

func hitToResult(hit meili.Hit, spec indexSpec) Result {
	r := Result{Type: spec.rtyp}
	r.ID = decodeString(hit, "id")
	r.Title = firstNonBlank(decodeFormattedString(hit, spec.titleKey), decodeString(hit, spec.titleKey))
	r.Snippet = firstNonBlank(decodeFormattedString(hit, spec.snippetKey), decodeString(hit, spec.snippetKey))
	switch spec.rtyp {
	case ResultDocument:
		r.DocumentID = r.ID
	case ResultDraft:
		r.DocumentID = decodeString(hit, "documentId")
	}
	return r
}

func decodeString(hit meili.Hit, key string) string {
	raw, ok := hit[key]
	if !ok {
		return ""
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return ""
}

func decodeFormattedString(hit meili.Hit, key string) string {
	raw, ok := hit["_formatted"]
	if !ok {
		return ""
	}
	var formatted map[string]any
	if err := json.Unmarshal(raw, &formatted); err != nil {
		return ""
	}
	value, _ := formatted[key].(string)
	return strings.TrimSpace(value)
}

func firstNonBlank(values ...string) string {
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			return value
		}
	}
	return ""
}

// Index adds or updates records in the index for kind.
func (m *Meili) Index(kind ResultType, records any) error {
	spec, ok := specFor(kind)
	if !ok {
		return fmt.Errorf("index %s: unknown result type", kind)
	}
	_, err := m.client.Index(spec.uid).AddDocuments(records, nil)
	return err
}
