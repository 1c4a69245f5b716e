package app

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"

	"universe/api/internal/autosave"
	"universe/api/internal/content"
	"universe/api/internal/editmode"
	"universe/api/internal/editor"
	"universe/api/internal/rbac"
	"universe/api/internal/references"
	"universe/api/internal/store"
)

type editorFacade struct {
	registry   *editor.Registry
	controller *editmode.Controller

	mu     sync.Mutex
	owners map[string]string // session id -> user id of the opener
}

func (ed *editorFacade) setOwner(sessionID, userID string) {
	ed.mu.Lock()
	ed.owners[sessionID] = userID
	ed.mu.Unlock()
}

func (ed *editorFacade) owner(sessionID string) string {
	ed.mu.Lock()
	defer ed.mu.Unlock()
	return ed.owners[sessionID]
}

func (ed *editorFacade) forget(sessionID string) {
	ed.mu.Lock()
	delete(ed.owners, sessionID)
	ed.mu.Unlock()
}

// AttachEditor enables the editor session endpoints. The registry is built
// after the Service because it saves drafts and reads references through it.
func (s *Service) AttachEditor(registry *editor.Registry, controller *editmode.Controller) {
	s.editor = &editorFacade{registry: registry, controller: controller, owners: map[string]string{}}
}

var errEditorUnavailable = domainError(http.StatusServiceUnavailable, "EDITOR_UNAVAILABLE", "Editor sessions are not enabled", nil)

func (s *Service) editorReady() (*editorFacade, error) {
	if s.editor == nil {
		return nil, errEditorUnavailable
	}
	return s.editor, nil
}

type OpenSessionInput struct {
	DocumentID string          `json:"documentId" validate:"required,max=128"`
	DraftID    string          `json:"draftId,omitempty" validate:"omitempty,max=128"`
	Content    json.RawMessage `json:"content,omitempty"`
}

type SaveView struct {
	Outcome autosave.Outcome `json:"outcome"`
	DraftID string           `json:"draftId,omitempty"`
	Session editor.View      `json:"session"`
}

// OpenEditorSession mounts a session owned by the caller. With a draft id and
// no content, the stored draft seeds the session.
func (s *Service) OpenEditorSession(ctx context.Context, session Session, input OpenSessionInput) (editor.View, error) {
	ed, err := s.editorReady()
	if err != nil {
		return editor.View{}, err
	}

	in := content.FromJSON(input.Content)
	draftID := strings.TrimSpace(input.DraftID)
	if in.Kind() == content.KindAbsent && draftID != "" && s.store != nil {
		stored, err := s.store.GetDraft(ctx, draftID)
		switch {
		case err == nil:
			in = content.Raw(stored.Content)
		case errors.Is(err, store.ErrNotFound):
			return editor.View{}, notFound("DRAFT_NOT_FOUND", "Draft not found")
		default:
			return editor.View{}, err
		}
	}

	opened, err := ed.registry.Open(editor.OpenRequest{
		DocumentID: input.DocumentID,
		DraftID:    draftID,
		Content:    in,
	})
	if err != nil {
		return editor.View{}, err
	}
	ed.setOwner(opened.ID, session.UserID)
	return opened.View(), nil
}

func (s *Service) EditorSession(id string) (editor.View, error) {
	ed, err := s.editorReady()
	if err != nil {
		return editor.View{}, err
	}
	session, err := ed.registry.Get(id)
	if err != nil {
		return editor.View{}, err
	}
	return session.View(), nil
}

func (s *Service) EditorSessions() ([]editor.View, error) {
	ed, err := s.editorReady()
	if err != nil {
		return nil, err
	}
	return ed.registry.List(), nil
}

// EditSessionContent replaces the session content. It requires edit
// permission, since a later save or close flush persists the edit.
func (s *Service) EditSessionContent(session Session, id string, raw json.RawMessage) (editor.View, error) {
	ed, err := s.editorReady()
	if err != nil {
		return editor.View{}, err
	}
	if !s.Can(session.Role, rbac.ActionEdit) {
		return editor.View{}, errForbidden
	}
	es, err := ed.registry.Get(id)
	if err != nil {
		return editor.View{}, err
	}
	if err := es.Edit(content.FromJSON(raw)); err != nil {
		return editor.View{}, err
	}
	return es.View(), nil
}

// SetEditMode toggles the process-wide edit mode for the session's document.
// Entering requires edit permission; leaving never does.
func (s *Service) SetEditMode(session Session, id string, editing bool) (editor.View, error) {
	ed, err := s.editorReady()
	if err != nil {
		return editor.View{}, err
	}
	if editing && !s.Can(session.Role, rbac.ActionEdit) {
		return editor.View{}, errForbidden
	}
	es, err := ed.registry.Get(id)
	if err != nil {
		return editor.View{}, err
	}
	if err := es.SetEditing(editing); err != nil {
		return editor.View{}, err
	}
	return es.View(), nil
}

func (s *Service) SaveEditorSession(ctx context.Context, session Session, id string) (SaveView, error) {
	ed, err := s.editorReady()
	if err != nil {
		return SaveView{}, err
	}
	if !s.Can(session.Role, rbac.ActionEdit) {
		return SaveView{}, errForbidden
	}
	es, err := ed.registry.Get(id)
	if err != nil {
		return SaveView{}, err
	}
	result, err := es.Save(withActor(ctx, session.UserName))
	if err != nil {
		return SaveView{}, err
	}
	return SaveView{Outcome: result.Outcome, DraftID: result.DraftID, Session: es.View()}, nil
}

func (s *Service) EditorReferences(ctx context.Context, id string, kinds []references.Kind) (references.Set, error) {
	ed, err := s.editorReady()
	if err != nil {
		return references.Set{}, err
	}
	es, err := ed.registry.Get(id)
	if err != nil {
		return references.Set{}, err
	}
	return es.References(ctx, kinds...)
}

// CloseEditorSession unmounts a session. Only its opener or an admin may
// close it.
func (s *Service) CloseEditorSession(session Session, id string) error {
	ed, err := s.editorReady()
	if err != nil {
		return err
	}
	if _, err := ed.registry.Get(id); err != nil {
		return err
	}
	if ed.owner(id) != session.UserID && !s.Can(session.Role, rbac.ActionAdmin) {
		return errForbidden
	}
	if err := ed.registry.Close(id); err != nil {
		return err
	}
	ed.forget(id)
	return nil
}

func (s *Service) EditModeState() (editmode.State, error) {
	ed, err := s.editorReady()
	if err != nil {
		return editmode.State{}, err
	}
	return ed.controller.State(), nil
}
