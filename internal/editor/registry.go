package editor

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"universe/api/internal/autosave"
	"universe/api/internal/content"
	"universe/api/internal/draft"
	"universe/api/internal/editmode"
	"universe/api/internal/references"
	"universe/api/internal/util"
)

var (
	ErrSessionNotFound = errors.New("editor session not found")
	ErrSessionClosed   = errors.New("editor session closed")
)

type Deps struct {
	Controller *editmode.Controller
	Drafts     draft.Service
	References *references.Aggregator
	Logger     zerolog.Logger

	AutosaveInterval time.Duration
	Metrics          *autosave.Metrics
	Ticker           autosave.TickerFunc
	Now              func() time.Time
}

type OpenRequest struct {
	DocumentID string
	DraftID    string
	Content    content.Input
}

// Registry owns the open sessions of the process.
type Registry struct {
	deps   Deps
	ctx    context.Context
	logger zerolog.Logger

	mu       sync.Mutex
	sessions map[string]*Session
	draining sync.WaitGroup
}

// NewRegistry runs autosave loops under ctx; cancelling it ends them.
func NewRegistry(ctx context.Context, deps Deps) *Registry {
	return &Registry{
		deps:     deps,
		ctx:      ctx,
		logger:   deps.Logger.With().Str("component", "editor").Logger(),
		sessions: map[string]*Session{},
	}
}

// Open mounts a session. Unusable content is replaced by the default tree
// and logged; it is not an error.
func (r *Registry) Open(req OpenRequest) (*Session, error) {
	documentID := strings.TrimSpace(req.DocumentID)
	if documentID == "" {
		return nil, editmode.ErrInvalidDocumentID
	}

	id := util.NewID("ses")
	logger := r.logger.With().Str("session_id", id).Str("document_id", documentID).Logger()

	tree, err := content.Normalize(req.Content)
	if err != nil {
		logger.Warn().Err(err).Str("input", req.Content.Kind().String()).Msg("content unreadable, using default document")
	}
	store := content.NewStore(tree)

	saver := autosave.New(store, r.deps.Drafts, autosave.Options{
		Interval: r.deps.AutosaveInterval,
		DraftID:  strings.TrimSpace(req.DraftID),
		Logger:   logger,
		Metrics:  r.deps.Metrics,
		Now:      r.deps.Now,
		Ticker:   r.deps.Ticker,
	})

	session := &Session{
		ID:         id,
		DocumentID: documentID,
		ctx:        r.ctx,
		content:    store,
		saver:      saver,
		controller: r.deps.Controller,
		references: r.deps.References,
		logger:     logger,
	}
	session.unsubscribe = r.deps.Controller.Subscribe(session.apply)

	r.mu.Lock()
	r.sessions[id] = session
	r.mu.Unlock()

	logger.Info().Msg("editor session opened")
	return session, nil
}

func (r *Registry) Get(id string) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	session, ok := r.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return session, nil
}

// List returns views of open sessions ordered by id.
func (r *Registry) List() []View {
	r.mu.Lock()
	sessions := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		sessions = append(sessions, s)
	}
	r.mu.Unlock()

	sort.Slice(sessions, func(i, j int) bool { return sessions[i].ID < sessions[j].ID })
	views := make([]View, 0, len(sessions))
	for _, s := range sessions {
		views = append(views, s.View())
	}
	return views
}

// Close unmounts a session. Saves already running finish in the background.
func (r *Registry) Close(id string) error {
	r.mu.Lock()
	session, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()
	if !ok {
		return ErrSessionNotFound
	}

	session.close()
	r.draining.Add(1)
	go func() {
		defer r.draining.Done()
		session.saver.Wait()
	}()
	r.logger.Info().Str("session_id", id).Msg("editor session closed")
	return nil
}

// CloseAll closes every session and waits for their saves.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	ids := make([]string, 0, len(r.sessions))
	for id := range r.sessions {
		ids = append(ids, id)
	}
	r.mu.Unlock()

	for _, id := range ids {
		_ = r.Close(id)
	}
	r.draining.Wait()
}
