package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"universe/api/internal/history"
	"universe/api/internal/search"
	"universe/api/internal/store"
)

// fakeStore keeps drafts in memory. The function fields override the
// matching query methods.
type fakeStore struct {
	mu     sync.Mutex
	drafts map[string]store.Draft

	pingFn          func(ctx context.Context) error
	listDocumentsFn func(ctx context.Context, p store.Page) (store.PageResult[store.Document], error)
	listEntitiesFn  func(ctx context.Context, p store.Page) (store.PageResult[store.Entity], error)
	listStudiesFn   func(ctx context.Context, p store.Page) (store.PageResult[store.Study], error)
	referencesFn    func(ctx context.Context, documentID, kind string) ([]store.LinkedRecord, error)
}

func newFakeStore() *fakeStore {
	return &fakeStore{drafts: map[string]store.Draft{}}
}

func (f *fakeStore) CreateDraft(_ context.Context, d store.Draft) (store.Draft, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	d.CreatedAt, d.UpdatedAt = now, now
	f.drafts[d.ID] = d
	return d, nil
}

func (f *fakeStore) UpdateDraft(_ context.Context, id, title, content, plainText string, updatedAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.drafts[id]
	if !ok {
		return store.ErrNotFound
	}
	d.Title, d.Content, d.PlainText, d.UpdatedAt = title, content, plainText, updatedAt
	f.drafts[id] = d
	return nil
}

func (f *fakeStore) SetDraftHead(_ context.Context, id, hash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.drafts[id]
	if !ok {
		return store.ErrNotFound
	}
	d.HeadCommit = hash
	f.drafts[id] = d
	return nil
}

func (f *fakeStore) GetDraft(_ context.Context, id string) (store.Draft, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.drafts[id]
	if !ok {
		return store.Draft{}, store.ErrNotFound
	}
	return d, nil
}

func (f *fakeStore) draftCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.drafts)
}

func (f *fakeStore) ListDocuments(ctx context.Context, p store.Page) (store.PageResult[store.Document], error) {
	if f.listDocumentsFn != nil {
		return f.listDocumentsFn(ctx, p)
	}
	p = p.Normalize()
	return store.PageResult[store.Document]{
		Items:      []store.Document{{ID: "doc-onboarding", Title: "Onboarding", Status: "published", Author: "Avery"}},
		TotalCount: 1,
		TotalPages: 1,
		Page:       p.Page,
		Limit:      p.Limit,
	}, nil
}

func (f *fakeStore) GetDocument(_ context.Context, id string) (store.Document, error) {
	if id != "doc-onboarding" {
		return store.Document{}, store.ErrNotFound
	}
	return store.Document{ID: id, Title: "Onboarding"}, nil
}

func (f *fakeStore) ListEntities(ctx context.Context, p store.Page) (store.PageResult[store.Entity], error) {
	if f.listEntitiesFn != nil {
		return f.listEntitiesFn(ctx, p)
	}
	p = p.Normalize()
	return store.PageResult[store.Entity]{Items: []store.Entity{}, Page: p.Page, Limit: p.Limit}, nil
}

func (f *fakeStore) GetEntity(_ context.Context, id string) (store.Entity, error) {
	return store.Entity{}, store.ErrNotFound
}

func (f *fakeStore) ListStudies(ctx context.Context, p store.Page) (store.PageResult[store.Study], error) {
	if f.listStudiesFn != nil {
		return f.listStudiesFn(ctx, p)
	}
	p = p.Normalize()
	return store.PageResult[store.Study]{Items: []store.Study{}, Page: p.Page, Limit: p.Limit}, nil
}

func (f *fakeStore) GetStudy(_ context.Context, id string) (store.Study, error) {
	return store.Study{}, store.ErrNotFound
}

func (f *fakeStore) ListReferences(ctx context.Context, documentID, kind string) ([]store.LinkedRecord, error) {
	if f.referencesFn != nil {
		return f.referencesFn(ctx, documentID, kind)
	}
	return nil, nil
}

func (f *fakeStore) Ping(ctx context.Context) error {
	if f.pingFn != nil {
		return f.pingFn(ctx)
	}
	return nil
}

// fakeHistory numbers revisions per draft.
type fakeHistory struct {
	mu        sync.Mutex
	revisions map[string][]history.Revision
	contents  map[string]json.RawMessage
	commitErr error
}

func newFakeHistory() *fakeHistory {
	return &fakeHistory{revisions: map[string][]history.Revision{}, contents: map[string]json.RawMessage{}}
}

func (f *fakeHistory) Commit(draftID string, content json.RawMessage, author, message string) (history.Revision, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.commitErr != nil {
		return history.Revision{}, f.commitErr
	}
	rev := history.Revision{
		Hash:      fmt.Sprintf("%07d", len(f.revisions[draftID])+1),
		Message:   message,
		Author:    author,
		CreatedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	f.revisions[draftID] = append([]history.Revision{rev}, f.revisions[draftID]...)
	f.contents[draftID+"@"+rev.Hash] = append(json.RawMessage(nil), content...)
	return rev, nil
}

func (f *fakeHistory) History(draftID string, limit int) ([]history.Revision, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	items, ok := f.revisions[draftID]
	if !ok {
		return nil, history.ErrNoHistory
	}
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return append([]history.Revision(nil), items...), nil
}

func (f *fakeHistory) ContentAt(draftID, hash string) (json.RawMessage, history.Revision, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	raw, ok := f.contents[draftID+"@"+hash]
	if !ok {
		return nil, history.Revision{}, errors.New("unknown revision")
	}
	for _, rev := range f.revisions[draftID] {
		if rev.Hash == hash {
			return raw, rev, nil
		}
	}
	return nil, history.Revision{}, errors.New("unknown revision")
}

// fakeSearch records indexed drafts.
type fakeSearch struct {
	mu       sync.Mutex
	indexed  []search.DraftRecord
	searchFn func(ctx context.Context, q search.Query) search.Response
}

func (f *fakeSearch) Search(ctx context.Context, q search.Query) search.Response {
	if f.searchFn != nil {
		return f.searchFn(ctx, q)
	}
	return search.Response{Results: []search.Result{}, Query: q.Text}
}

func (f *fakeSearch) IndexDraft(d search.DraftRecord) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.indexed = append(f.indexed, d)
}

func (f *fakeSearch) records() []search.DraftRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]search.DraftRecord(nil), f.indexed...)
}
