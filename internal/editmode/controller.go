// Package editmode tracks which document, if any, is open for editing.
// There is one Controller per process and exactly one {editing, document}
// pair; entering edit mode for a document takes it away from any other.
package editmode

import (
	"errors"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

var ErrInvalidDocumentID = errors.New("edit mode requires a document id")

type State struct {
	Editing    bool   `json:"isEditing"`
	DocumentID string `json:"documentId"`
}

// Allows reports whether documentID may be mutated under this state.
func (s State) Allows(documentID string) bool {
	return s.Editing && documentID != "" && s.DocumentID == documentID
}

type Controller struct {
	logger zerolog.Logger

	mu     sync.Mutex
	state  State
	subs   map[uint64]func(State)
	nextID uint64

	// notifyMu keeps deliveries in transition order.
	notifyMu sync.Mutex
}

func NewController(logger zerolog.Logger) *Controller {
	return &Controller{
		logger: logger.With().Str("component", "editmode").Logger(),
		subs:   map[uint64]func(State){},
	}
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Enter switches to Editing for documentID. A blank id is refused and the
// current state left as it was.
func (c *Controller) Enter(documentID string) error {
	return c.transition(true, documentID)
}

// Exit switches to Viewing. It is always permitted for a valid id.
func (c *Controller) Exit(documentID string) error {
	return c.transition(false, documentID)
}

// Subscribe calls fn with the current state, then again on every change.
// fn runs on the goroutine that made the transition and must not call
// Enter, Exit or Subscribe itself.
func (c *Controller) Subscribe(fn func(State)) (cancel func()) {
	c.notifyMu.Lock()
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.subs[id] = fn
	current := c.state
	c.mu.Unlock()
	fn(current)
	c.notifyMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.subs, id)
			c.mu.Unlock()
		})
	}
}

func (c *Controller) transition(editing bool, documentID string) error {
	documentID = strings.TrimSpace(documentID)
	if documentID == "" {
		c.logger.Warn().Bool("editing", editing).Msg("edit mode transition refused: missing document id")
		return ErrInvalidDocumentID
	}

	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()

	next := State{Editing: editing, DocumentID: documentID}
	c.mu.Lock()
	prev := c.state
	if prev == next {
		c.mu.Unlock()
		return nil
	}
	c.state = next
	subs := make([]func(State), 0, len(c.subs))
	for _, fn := range c.subs {
		subs = append(subs, fn)
	}
	c.mu.Unlock()

	c.logger.Debug().
		Bool("editing", next.Editing).
		Str("document_id", next.DocumentID).
		Str("previous_document_id", prev.DocumentID).
		Msg("edit mode changed")

	for _, fn := range subs {
		fn(next)
	}
	return nil
}
