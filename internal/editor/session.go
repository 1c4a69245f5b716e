// Package editor ties one open document view to its content, the shared
// edit-mode controller, autosave and reference lookup.
package editor

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"universe/api/internal/autosave"
	"universe/api/internal/content"
	"universe/api/internal/editmode"
	"universe/api/internal/references"
)

// Session is one mounted editor view. Its editing state lives only in
// memory and ends with Close.
type Session struct {
	ID         string
	DocumentID string

	ctx        context.Context
	content    *content.Store
	saver      *autosave.Coordinator
	controller *editmode.Controller
	references *references.Aggregator
	logger     zerolog.Logger

	unsubscribe func()

	// lifecycle orders apply against close so no autosave loop starts
	// after close has stopped it.
	lifecycle sync.Mutex

	mu      sync.Mutex
	editing bool
	edited  bool
	closed  bool
}

// View is a point-in-time copy of session state.
type View struct {
	ID                string       `json:"id"`
	DocumentID        string       `json:"documentId"`
	DraftID           string       `json:"draftId,omitempty"`
	Content           content.Tree `json:"content"`
	LastSavedSnapshot *string      `json:"lastSavedSnapshot"`
	IsEditing         bool         `json:"isEditing"`
	IsLocked          bool         `json:"isLocked"`
}

func (s *Session) View() View {
	s.mu.Lock()
	editing := s.editing
	s.mu.Unlock()

	view := View{
		ID:         s.ID,
		DocumentID: s.DocumentID,
		DraftID:    s.saver.DraftID(),
		Content:    s.content.Tree(),
		IsEditing:  editing,
		IsLocked:   s.content.Locked(),
	}
	if snapshot, ok := s.saver.LastSaved(); ok {
		view.LastSavedSnapshot = &snapshot
	}
	return view
}

// SetEditing asks the controller to enter or leave edit mode for this
// session's document. The session reacts through its subscription.
func (s *Session) SetEditing(editing bool) error {
	if s.isClosed() {
		return ErrSessionClosed
	}
	if editing {
		return s.controller.Enter(s.DocumentID)
	}
	return s.controller.Exit(s.DocumentID)
}

// Edit replaces the content tree. It fails with content.ErrReadOnly unless
// this document is the one in edit mode.
func (s *Session) Edit(in content.Input) error {
	if s.isClosed() {
		return ErrSessionClosed
	}
	if err := s.content.Replace(in); err != nil {
		return err
	}
	s.mu.Lock()
	s.edited = true
	s.mu.Unlock()
	return nil
}

// Save runs a manual save.
func (s *Session) Save(ctx context.Context) (autosave.Result, error) {
	if s.isClosed() {
		return autosave.Result{}, ErrSessionClosed
	}
	result, err := s.saver.SaveNow(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("manual save failed")
	}
	return result, err
}

func (s *Session) References(ctx context.Context, kinds ...references.Kind) (references.Set, error) {
	return s.references.Collect(ctx, s.DocumentID, kinds...)
}

// apply follows the shared edit-mode state: unlock and autosave only while
// the state names this document.
func (s *Session) apply(state editmode.State) {
	allowed := state.Allows(s.DocumentID)

	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()

	s.mu.Lock()
	if s.closed || s.editing == allowed {
		s.mu.Unlock()
		return
	}
	s.editing = allowed
	s.mu.Unlock()

	s.content.SetLocked(!allowed)
	if allowed {
		s.saver.Start(s.ctx)
		s.logger.Debug().Msg("editing started")
		return
	}
	s.saver.Stop()
	s.logger.Debug().Msg("editing stopped")
}

// close stops the timer, gives up edit mode if this session held it and
// flushes unsaved edits in the background. It does not wait for saves.
func (s *Session) close() {
	s.lifecycle.Lock()
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		s.lifecycle.Unlock()
		return
	}
	s.closed = true
	wasEditing := s.editing
	edited := s.edited
	s.editing = false
	s.mu.Unlock()

	s.saver.Stop()
	s.content.SetLocked(true)
	s.lifecycle.Unlock()

	// unsubscribe waits on in-flight deliveries, which may be blocked in apply.
	s.unsubscribe()

	if wasEditing {
		if err := s.controller.Exit(s.DocumentID); err != nil {
			s.logger.Warn().Err(err).Msg("exit edit mode on close")
		}
		if edited {
			s.saver.Flush(s.ctx)
		}
	}
}

func (s *Session) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
