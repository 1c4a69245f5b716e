package content

import (
	"errors"
	"fmt"
	"sync"
)

var (
	// ErrReadOnly is returned when an edit reaches a locked store.
	ErrReadOnly = errors.New("content is read-only")
	// ErrEmptyEdit is returned when an edit carries no content.
	ErrEmptyEdit = fmt.Errorf("%w: edit has no content", ErrMalformed)
)

// Store holds the current tree for one session and its mutability flag.
type Store struct {
	mu     sync.RWMutex
	tree   Tree
	locked bool
}

// NewStore starts locked; the session unlocks it when edit mode is entered.
func NewStore(initial Tree) *Store {
	if initial == nil {
		initial = DefaultTree()
	}
	return &Store{tree: initial.Clone(), locked: true}
}

func (s *Store) Tree() Tree {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tree.Clone()
}

func (s *Store) Locked() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.locked
}

func (s *Store) SetLocked(locked bool) {
	s.mu.Lock()
	s.locked = locked
	s.mu.Unlock()
}

// Replace swaps in a new tree from an edit. Unlike ingestion, an edit whose
// payload is empty or cannot be normalized is rejected and the current tree
// kept.
func (s *Store) Replace(in Input) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.locked {
		return ErrReadOnly
	}
	if in.Empty() {
		return ErrEmptyEdit
	}
	next, err := Normalize(in)
	if err != nil {
		return err
	}
	s.tree = next
	return nil
}

func (s *Store) Serialize() (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Serialize(s.tree)
}
