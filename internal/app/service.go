package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"universe/api/internal/auth"
	"universe/api/internal/config"
	"universe/api/internal/content"
	"universe/api/internal/draft"
	"universe/api/internal/export"
	"universe/api/internal/history"
	"universe/api/internal/rbac"
	"universe/api/internal/references"
	"universe/api/internal/search"
	"universe/api/internal/store"
	"universe/api/internal/util"
)

type Session struct {
	Token     string
	UserID    string
	UserName  string
	Role      string
	ExpiresAt time.Time
}

type dataStore interface {
	CreateDraft(context.Context, store.Draft) (store.Draft, error)
	UpdateDraft(ctx context.Context, id, title, content, plainText string, updatedAt time.Time) error
	SetDraftHead(ctx context.Context, id, hash string) error
	GetDraft(context.Context, string) (store.Draft, error)
	ListDocuments(context.Context, store.Page) (store.PageResult[store.Document], error)
	GetDocument(context.Context, string) (store.Document, error)
	ListEntities(context.Context, store.Page) (store.PageResult[store.Entity], error)
	GetEntity(context.Context, string) (store.Entity, error)
	ListStudies(context.Context, store.Page) (store.PageResult[store.Study], error)
	GetStudy(context.Context, string) (store.Study, error)
	ListReferences(ctx context.Context, documentID, kind string) ([]store.LinkedRecord, error)
	Ping(ctx context.Context) error
}

type historyService interface {
	Commit(draftID string, content json.RawMessage, author, message string) (history.Revision, error)
	History(draftID string, limit int) ([]history.Revision, error)
	ContentAt(draftID, hash string) (json.RawMessage, history.Revision, error)
}

type searchService interface {
	Search(ctx context.Context, q search.Query) search.Response
	IndexDraft(d search.DraftRecord)
}

type prefsStore interface {
	Get(ctx context.Context, subject string) (map[string]json.RawMessage, error)
	Set(ctx context.Context, subject, key string, value json.RawMessage) error
	Delete(ctx context.Context, subject, key string) error
}

type exporter interface {
	Export(ctx context.Context, req export.Request) (*export.Result, error)
}

// Deps are the collaborators of Service. Search, Prefs and Exporter may be
// nil; the matching endpoints then report the feature as unavailable.
type Deps struct {
	Store    dataStore
	History  historyService
	Search   searchService
	Prefs    prefsStore
	Exporter exporter
	Logger   zerolog.Logger
}

type Service struct {
	cfg      config.Config
	store    dataStore
	history  historyService
	search   searchService
	prefs    prefsStore
	exporter exporter
	signer   *auth.Signer
	logger   zerolog.Logger
	now      func() time.Time

	editor *editorFacade
}

var _ draft.Service = (*Service)(nil)
var _ references.Fetcher = (*Service)(nil)
var _ export.DataStore = (*Service)(nil)

func New(cfg config.Config, deps Deps) *Service {
	return &Service{
		cfg:      cfg,
		store:    deps.Store,
		history:  deps.History,
		search:   deps.Search,
		prefs:    deps.Prefs,
		exporter: deps.Exporter,
		signer:   auth.NewSigner(cfg.JWTSecret, cfg.AccessTTL),
		logger:   deps.Logger.With().Str("component", "app").Logger(),
		now:      time.Now,
	}
}

// SetExporter wires the exporter after construction; the export service
// reads drafts back through this Service.
func (s *Service) SetExporter(e exporter) {
	s.exporter = e
}

func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// Login issues a bearer token for name. Unknown roles become viewer.
func (s *Service) Login(_ context.Context, name, role string) (Session, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Session{}, validationError("name is required", nil)
	}
	if role == "" {
		role = string(rbac.RoleEditor)
	}
	token, claims, err := s.signer.Issue(name, string(rbac.Normalize(role)))
	if err != nil {
		return Session{}, err
	}
	return sessionFromClaims(token, claims), nil
}

func (s *Service) SessionFromToken(_ context.Context, token string) (Session, error) {
	claims, err := s.signer.Parse(token)
	if err != nil {
		return Session{}, err
	}
	return sessionFromClaims(token, claims), nil
}

func sessionFromClaims(token string, claims auth.Claims) Session {
	return Session{
		Token:     token,
		UserID:    claims.Sub,
		UserName:  claims.Name,
		Role:      claims.Role,
		ExpiresAt: time.Unix(claims.Exp, 0).UTC(),
	}
}

func (s *Service) Can(role string, action rbac.Action) bool {
	return rbac.Can(rbac.Normalize(role), action)
}

// Draft service

type actorKey struct{}

// withActor records who is saving, for history commit authorship.
func withActor(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, actorKey{}, name)
}

func actorFrom(ctx context.Context) string {
	if name, ok := ctx.Value(actorKey{}).(string); ok && name != "" {
		return name
	}
	return "autosave"
}

type DraftView struct {
	ID         string          `json:"id"`
	DocumentID string          `json:"documentId,omitempty"`
	Title      string          `json:"title"`
	Content    json.RawMessage `json:"content"`
	HeadCommit string          `json:"headCommit,omitempty"`
	CreatedAt  time.Time       `json:"createdAt"`
	UpdatedAt  time.Time       `json:"updatedAt"`
}

func toDraftView(d store.Draft) DraftView {
	return DraftView{
		ID:         d.ID,
		DocumentID: d.DocumentID,
		Title:      d.Title,
		Content:    json.RawMessage(d.Content),
		HeadCommit: d.HeadCommit,
		CreatedAt:  d.CreatedAt,
		UpdatedAt:  d.UpdatedAt,
	}
}

type preparedContent struct {
	canonical string
	title     string
	plainText string
}

// prepareContent accepts only doc-shaped JSON; the stored form is canonical.
func prepareContent(raw json.RawMessage) (preparedContent, error) {
	if len(strings.TrimSpace(string(raw))) == 0 {
		return preparedContent{}, validationError("content is required", nil)
	}
	tree, err := content.Normalize(content.Structured(raw))
	if err != nil {
		return preparedContent{}, domainError(http.StatusUnprocessableEntity, "INVALID_CONTENT", "content must be a document", map[string]any{"reason": err.Error()})
	}
	canonical, err := content.Serialize(tree)
	if err != nil {
		return preparedContent{}, fmt.Errorf("serialize content: %w", err)
	}
	return preparedContent{
		canonical: canonical,
		title:     content.Title(tree),
		plainText: content.PlainText(tree),
	}, nil
}

// CreateDraft stores a new draft and records its first revision.
func (s *Service) CreateDraft(ctx context.Context, raw json.RawMessage) (draft.Record, error) {
	created, err := s.createDraft(ctx, "", raw)
	if err != nil {
		return draft.Record{}, err
	}
	return draft.Record{ID: created.ID, Content: json.RawMessage(created.Content), UpdatedAt: created.UpdatedAt}, nil
}

// CreateDocumentDraft stores a draft attached to a host document.
func (s *Service) CreateDocumentDraft(ctx context.Context, req draft.CreateRequest) (DraftView, error) {
	created, err := s.createDraft(ctx, req.DocumentID, req.Content)
	if err != nil {
		return DraftView{}, err
	}
	return toDraftView(created), nil
}

func (s *Service) createDraft(ctx context.Context, documentID string, raw json.RawMessage) (store.Draft, error) {
	prepared, err := prepareContent(raw)
	if err != nil {
		return store.Draft{}, err
	}
	created, err := s.store.CreateDraft(ctx, store.Draft{
		ID:         util.NewID("drf"),
		DocumentID: strings.TrimSpace(documentID),
		Title:      prepared.title,
		Content:    prepared.canonical,
		PlainText:  prepared.plainText,
	})
	if err != nil {
		return store.Draft{}, err
	}
	created.HeadCommit = s.recordRevision(ctx, created.ID, prepared, "Create draft")
	s.index(created.ID, created.DocumentID, prepared)
	return created, nil
}

// UpdateDraft overwrites a draft. A nil updatedAt means now.
func (s *Service) UpdateDraft(ctx context.Context, id string, raw json.RawMessage, updatedAt *time.Time) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return validationError("draft id is required", nil)
	}
	prepared, err := prepareContent(raw)
	if err != nil {
		return err
	}
	stamp := s.now().UTC()
	if updatedAt != nil {
		stamp = updatedAt.UTC()
	}
	if err := s.store.UpdateDraft(ctx, id, prepared.title, prepared.canonical, prepared.plainText, stamp); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return notFound("DRAFT_NOT_FOUND", "Draft not found")
		}
		return err
	}
	s.recordRevision(ctx, id, prepared, "Update draft")
	documentID := ""
	if current, err := s.store.GetDraft(ctx, id); err == nil {
		documentID = current.DocumentID
	}
	s.index(id, documentID, prepared)
	return nil
}

// recordRevision commits the draft to history. History is secondary to the
// stored draft, so failures are logged and the save still succeeds.
func (s *Service) recordRevision(ctx context.Context, id string, prepared preparedContent, message string) string {
	if s.history == nil {
		return ""
	}
	rev, err := s.history.Commit(id, json.RawMessage(prepared.canonical), actorFrom(ctx), message)
	if err != nil {
		s.logger.Warn().Err(err).Str("draft_id", id).Msg("history commit failed")
		return ""
	}
	if err := s.store.SetDraftHead(ctx, id, rev.Hash); err != nil {
		s.logger.Warn().Err(err).Str("draft_id", id).Msg("record draft head failed")
	}
	return rev.Hash
}

func (s *Service) index(id, documentID string, prepared preparedContent) {
	if s.search == nil {
		return
	}
	s.search.IndexDraft(search.DraftRecord{ID: id, DocumentID: documentID, Title: prepared.title, Body: prepared.plainText})
}

func (s *Service) GetDraft(ctx context.Context, id string) (DraftView, error) {
	item, err := s.store.GetDraft(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return DraftView{}, notFound("DRAFT_NOT_FOUND", "Draft not found")
		}
		return DraftView{}, err
	}
	return toDraftView(item), nil
}

func (s *Service) DraftHistory(ctx context.Context, id string, limit int) ([]history.Revision, error) {
	if _, err := s.GetDraft(ctx, id); err != nil {
		return nil, err
	}
	if s.history == nil {
		return []history.Revision{}, nil
	}
	items, err := s.history.History(id, limit)
	if errors.Is(err, history.ErrNoHistory) {
		return []history.Revision{}, nil
	}
	if err != nil {
		return nil, err
	}
	return items, nil
}

type RevisionView struct {
	DraftID  string           `json:"draftId"`
	Revision history.Revision `json:"revision"`
	Content  json.RawMessage  `json:"content"`
}

func (s *Service) DraftRevision(ctx context.Context, id, hash string) (RevisionView, error) {
	if _, err := s.GetDraft(ctx, id); err != nil {
		return RevisionView{}, err
	}
	if s.history == nil {
		return RevisionView{}, notFound("REVISION_NOT_FOUND", "Revision not found")
	}
	raw, rev, err := s.history.ContentAt(id, hash)
	if err != nil {
		s.logger.Debug().Err(err).Str("draft_id", id).Str("hash", hash).Msg("revision lookup failed")
		return RevisionView{}, notFound("REVISION_NOT_FOUND", "Revision not found")
	}
	return RevisionView{DraftID: id, Revision: rev, Content: raw}, nil
}

// LoadExportSource reads the current draft, or a past revision when one is
// named.
func (s *Service) LoadExportSource(ctx context.Context, draftID, revision string) (export.Source, error) {
	var (
		raw json.RawMessage
		src export.Source
	)
	if revision == "" {
		current, err := s.GetDraft(ctx, draftID)
		if err != nil {
			return export.Source{}, err
		}
		raw = current.Content
		src = export.Source{ID: current.ID, Title: current.Title, Revision: current.HeadCommit, UpdatedAt: current.UpdatedAt}
	} else {
		rev, err := s.DraftRevision(ctx, draftID, revision)
		if err != nil {
			return export.Source{}, err
		}
		raw = rev.Content
		src = export.Source{ID: draftID, Revision: rev.Revision.Hash, UpdatedAt: rev.Revision.CreatedAt}
	}
	tree, err := content.Normalize(content.Structured(raw))
	if err != nil {
		s.logger.Warn().Err(err).Str("draft_id", draftID).Msg("stored draft content unreadable, exporting placeholder")
	}
	src.Content = tree
	return src, nil
}

func (s *Service) ExportDraft(ctx context.Context, session Session, draftID, revision string, format export.Format) (*export.Result, error) {
	if !s.Can(session.Role, rbac.ActionExport) {
		return nil, errForbidden
	}
	if s.exporter == nil {
		return nil, domainError(http.StatusServiceUnavailable, "EXPORT_UNAVAILABLE", "Export is not configured", nil)
	}
	return s.exporter.Export(ctx, export.Request{DraftID: draftID, Revision: revision, Format: format, Author: session.UserName})
}

// Query service

type DocumentView struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Summary   string    `json:"summary"`
	Status    string    `json:"status"`
	Author    string    `json:"author"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type EntityView struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	EntityType  string    `json:"entityType"`
	Description string    `json:"description"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type StudyView struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Status    string    `json:"status"`
	Summary   string    `json:"summary"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func toDocumentView(d store.Document) DocumentView {
	return DocumentView{ID: d.ID, Title: d.Title, Summary: d.Summary, Status: d.Status, Author: d.Author, UpdatedAt: d.UpdatedAt}
}

func toEntityView(e store.Entity) EntityView {
	return EntityView{ID: e.ID, Name: e.Name, EntityType: e.EntityType, Description: e.Description, UpdatedAt: e.UpdatedAt}
}

func toStudyView(st store.Study) StudyView {
	return StudyView{ID: st.ID, Title: st.Title, Status: st.Status, Summary: st.Summary, UpdatedAt: st.UpdatedAt}
}

func mapPage[T, V any](page store.PageResult[T], convert func(T) V) store.PageResult[V] {
	items := make([]V, 0, len(page.Items))
	for _, item := range page.Items {
		items = append(items, convert(item))
	}
	return store.PageResult[V]{Items: items, TotalCount: page.TotalCount, TotalPages: page.TotalPages, Page: page.Page, Limit: page.Limit}
}

// listFailed wraps a list fetch error so only that list reports it.
func listFailed(what string, err error) error {
	return domainError(http.StatusBadGateway, "LIST_FAILED", fmt.Sprintf("Could not load %s.", what), map[string]any{"reason": err.Error()})
}

func (s *Service) ListDocuments(ctx context.Context, p store.Page) (store.PageResult[DocumentView], error) {
	page, err := s.store.ListDocuments(ctx, p)
	if err != nil {
		s.logger.Error().Err(err).Msg("list documents failed")
		return store.PageResult[DocumentView]{}, listFailed("documents", err)
	}
	return mapPage(page, toDocumentView), nil
}

func (s *Service) ListEntities(ctx context.Context, p store.Page) (store.PageResult[EntityView], error) {
	page, err := s.store.ListEntities(ctx, p)
	if err != nil {
		s.logger.Error().Err(err).Msg("list entities failed")
		return store.PageResult[EntityView]{}, listFailed("entities", err)
	}
	return mapPage(page, toEntityView), nil
}

func (s *Service) ListStudies(ctx context.Context, p store.Page) (store.PageResult[StudyView], error) {
	page, err := s.store.ListStudies(ctx, p)
	if err != nil {
		s.logger.Error().Err(err).Msg("list studies failed")
		return store.PageResult[StudyView]{}, listFailed("studies", err)
	}
	return mapPage(page, toStudyView), nil
}

func (s *Service) GetDocument(ctx context.Context, id string) (DocumentView, error) {
	item, err := s.store.GetDocument(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return DocumentView{}, notFound("DOCUMENT_NOT_FOUND", "Document not found")
	}
	if err != nil {
		return DocumentView{}, err
	}
	return toDocumentView(item), nil
}

func (s *Service) GetEntity(ctx context.Context, id string) (EntityView, error) {
	item, err := s.store.GetEntity(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return EntityView{}, notFound("ENTITY_NOT_FOUND", "Entity not found")
	}
	if err != nil {
		return EntityView{}, err
	}
	return toEntityView(item), nil
}

func (s *Service) GetStudy(ctx context.Context, id string) (StudyView, error) {
	item, err := s.store.GetStudy(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return StudyView{}, notFound("STUDY_NOT_FOUND", "Study not found")
	}
	if err != nil {
		return StudyView{}, err
	}
	return toStudyView(item), nil
}

func (s *Service) Search(ctx context.Context, q search.Query) search.Response {
	if s.search == nil {
		return search.Response{Results: []search.Result{}, Query: q.Text}
	}
	return s.search.Search(ctx, q)
}

// ListReferences adapts the store for the reference aggregator.
func (s *Service) ListReferences(ctx context.Context, documentID string, kind references.Kind) ([]references.Item, error) {
	records, err := s.store.ListReferences(ctx, documentID, string(kind))
	if err != nil {
		return nil, err
	}
	items := make([]references.Item, 0, len(records))
	for _, rec := range records {
		items = append(items, references.Item{
			ID:        rec.ID,
			Kind:      kind,
			Title:     rec.Title,
			Summary:   rec.Summary,
			Author:    rec.Author,
			UpdatedAt: rec.UpdatedAt,
		})
	}
	return items, nil
}

// Persisted client state

func (s *Service) ClientState(ctx context.Context, session Session) (map[string]json.RawMessage, error) {
	if s.prefs == nil {
		return map[string]json.RawMessage{}, nil
	}
	return s.prefs.Get(ctx, session.UserID)
}

func (s *Service) SetClientState(ctx context.Context, session Session, key string, value json.RawMessage) error {
	if s.prefs == nil {
		return domainError(http.StatusServiceUnavailable, "STATE_UNAVAILABLE", "Persisted state is not configured", nil)
	}
	return s.prefs.Set(ctx, session.UserID, key, value)
}

func (s *Service) ClearClientState(ctx context.Context, session Session, key string) error {
	if s.prefs == nil {
		return domainError(http.StatusServiceUnavailable, "STATE_UNAVAILABLE", "Persisted state is not configured", nil)
	}
	return s.prefs.Delete(ctx, session.UserID, key)
}
