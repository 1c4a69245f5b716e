package search

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
)

type primaryIndex interface {
	Searcher
	Indexer
}

type fallbackIndex interface {
	Searcher
	LoadSnapshot(ctx context.Context) (Snapshot, error)
}

// Service is the facade that tries Meilisearch first and falls back to PG FTS.
type Service struct {
	primary  primaryIndex
	fallback fallbackIndex
	logger   zerolog.Logger
	pending  sync.WaitGroup
}

// NewService creates a search service. meili may be nil if Meilisearch is not configured.
func NewService(meili *Meili, pgfts *PgFTS, logger zerolog.Logger) *Service {
	s := &Service{logger: logger.With().Str("component", "search").Logger()}
	if meili != nil {
		s.primary = meili
	}
	if pgfts != nil {
		s.fallback = pgfts
	}
	return s
}

func (s *Service) primaryReady() bool {
	return s.primary != nil && s.primary.Healthy()
}

// Search tries Meilisearch if healthy, otherwise falls back to PG FTS.
func (s *Service) Search(ctx context.Context, q Query) Response {
	if s.primaryReady() {
		results, total, err := s.primary.Search(ctx, q)
		if err == nil {
			return Response{Results: nonNil(results), Total: total, Query: q.Text}
		}
		s.logger.Warn().Err(err).Msg("meilisearch error, falling back to pgfts")
	}

	if s.fallback == nil {
		return Response{Results: []Result{}, Total: 0, Query: q.Text}
	}
	results, total, err := s.fallback.Search(ctx, q)
	if err != nil {
		s.logger.Error().Err(err).Msg("pgfts search failed")
		return Response{Results: []Result{}, Total: 0, Query: q.Text}
	}
	return Response{Results: nonNil(results), Total: total, Query: q.Text}
}

// IndexDraft indexes a draft in the background.
func (s *Service) IndexDraft(d DraftRecord) {
	s.async(ResultDraft, d.ID, func() error { return s.primary.Index(ResultDraft, []DraftRecord{d}) })
}

func (s *Service) async(kind ResultType, id string, fn func() error) {
	if !s.primaryReady() {
		return
	}
	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		if err := fn(); err != nil {
			s.logger.Warn().Err(err).Str("type", string(kind)).Str("id", id).Msg("index update failed")
		}
	}()
}

// Wait blocks until background index updates have finished.
func (s *Service) Wait() {
	s.pending.Wait()
}

// Reindex pushes a full snapshot into Meilisearch.
func (s *Service) Reindex(snap Snapshot) {
	if !s.primaryReady() {
		return
	}

	batches := []struct {
		kind    ResultType
		records any
		count   int
	}{
		{ResultDocument, snap.Documents, len(snap.Documents)},
		{ResultDraft, snap.Drafts, len(snap.Drafts)},
		{ResultEntity, snap.Entities, len(snap.Entities)},
		{ResultStudy, snap.Studies, len(snap.Studies)},
	}
	for _, batch := range batches {
		if batch.count == 0 {
			continue
		}
		if err := s.primary.Index(batch.kind, batch.records); err != nil {
			s.logger.Warn().Err(err).Str("type", string(batch.kind)).Msg("reindex failed")
		}
	}
}

// ReindexFromPG reindexes every searchable record from PostgreSQL into Meilisearch.
func (s *Service) ReindexFromPG(ctx context.Context) {
	if !s.primaryReady() || s.fallback == nil {
		return
	}
	snap, err := s.fallback.LoadSnapshot(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("reindex load failed")
		return
	}
	s.Reindex(snap)
}

func nonNil(r []Result) []Result {
	if r == nil {
		return []Result{}
	}
	return r
}
