// Package history keeps every accepted draft save as a commit in a
// per-draft git repository.
package history

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

const (
	contentFile = "content.json"
	branch      = "main"
)

var ErrNoHistory = errors.New("draft has no history")

type Revision struct {
	Hash      string    `json:"hash"`
	Message   string    `json:"message"`
	Author    string    `json:"author"`
	CreatedAt time.Time `json:"createdAt"`
}

type Service struct {
	baseDir string
	lockMu  sync.Mutex
	locks   map[string]*sync.Mutex
	now     func() time.Time
}

func New(baseDir string) *Service {
	return &Service{
		baseDir: baseDir,
		locks:   make(map[string]*sync.Mutex),
		now:     time.Now,
	}
}

// Commit records content as the draft's newest revision, creating the
// repository on first use. Content identical to the head returns the head
// revision without a new commit.
func (s *Service) Commit(draftID string, content json.RawMessage, author, message string) (Revision, error) {
	lock := s.draftLock(draftID)
	lock.Lock()
	defer lock.Unlock()

	repo, err := s.openOrInit(draftID)
	if err != nil {
		return Revision{}, err
	}
	worktree, err := repo.Worktree()
	if err != nil {
		return Revision{}, fmt.Errorf("open worktree: %w", err)
	}

	var pretty bytes.Buffer
	if err := json.Indent(&pretty, content, "", "  "); err != nil {
		return Revision{}, fmt.Errorf("format content: %w", err)
	}
	pretty.WriteByte('\n')
	if err := os.WriteFile(filepath.Join(worktree.Filesystem.Root(), contentFile), pretty.Bytes(), 0o644); err != nil {
		return Revision{}, fmt.Errorf("write %s: %w", contentFile, err)
	}
	if _, err := worktree.Add(contentFile); err != nil {
		return Revision{}, fmt.Errorf("git add content: %w", err)
	}

	hash, err := worktree.Commit(message, &git.CommitOptions{
		Author: &object.Signature{
			Name:  author,
			Email: fmt.Sprintf("%s@local.universe.dev", sanitizeEmail(author)),
			When:  s.now(),
		},
	})
	if errors.Is(err, git.ErrEmptyCommit) {
		head, headErr := repo.Head()
		if headErr != nil {
			return Revision{}, fmt.Errorf("read head: %w", headErr)
		}
		hash = head.Hash()
	} else if err != nil {
		return Revision{}, fmt.Errorf("commit content: %w", err)
	}

	commitObj, err := repo.CommitObject(hash)
	if err != nil {
		return Revision{}, fmt.Errorf("read commit object: %w", err)
	}
	return toRevision(commitObj), nil
}

// History lists revisions newest first; limit <= 0 means all.
func (s *Service) History(draftID string, limit int) ([]Revision, error) {
	lock := s.draftLock(draftID)
	lock.Lock()
	defer lock.Unlock()

	repo, err := s.open(draftID)
	if err != nil {
		return nil, err
	}
	ref, err := repo.Reference(plumbing.NewBranchReferenceName(branch), true)
	if err != nil {
		return nil, fmt.Errorf("resolve branch %s: %w", branch, err)
	}

	iter, err := repo.Log(&git.LogOptions{From: ref.Hash()})
	if err != nil {
		return nil, fmt.Errorf("read log: %w", err)
	}
	defer iter.Close()

	items := make([]Revision, 0)
	err = iter.ForEach(func(commitObj *object.Commit) error {
		items = append(items, toRevision(commitObj))
		if limit > 0 && len(items) >= limit {
			return io.EOF
		}
		return nil
	})
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("iterate log: %w", err)
	}
	return items, nil
}

// ContentAt returns the compact JSON stored at a revision. Short hashes are
// resolved.
func (s *Service) ContentAt(draftID, hash string) (json.RawMessage, Revision, error) {
	lock := s.draftLock(draftID)
	lock.Lock()
	defer lock.Unlock()

	repo, err := s.open(draftID)
	if err != nil {
		return nil, Revision{}, err
	}
	resolved, err := resolveHash(repo, hash)
	if err != nil {
		return nil, Revision{}, err
	}
	commitObj, err := repo.CommitObject(resolved)
	if err != nil {
		return nil, Revision{}, fmt.Errorf("read commit %s: %w", hash, err)
	}
	content, err := readContent(commitObj)
	if err != nil {
		return nil, Revision{}, err
	}
	return content, toRevision(commitObj), nil
}

func (s *Service) repoPath(draftID string) string {
	return filepath.Join(s.baseDir, draftID)
}

func (s *Service) draftLock(draftID string) *sync.Mutex {
	s.lockMu.Lock()
	defer s.lockMu.Unlock()
	lock, ok := s.locks[draftID]
	if ok {
		return lock
	}
	lock = &sync.Mutex{}
	s.locks[draftID] = lock
	return lock
}

func (s *Service) open(draftID string) (*git.Repository, error) {
	repo, err := git.PlainOpen(s.repoPath(draftID))
	if errors.Is(err, git.ErrRepositoryNotExists) {
		return nil, ErrNoHistory
	}
	if err != nil {
		return nil, fmt.Errorf("open repo: %w", err)
	}
	return repo, nil
}

func (s *Service) openOrInit(draftID string) (*git.Repository, error) {
	repo, err := s.open(draftID)
	if err == nil {
		return repo, nil
	}
	if !errors.Is(err, ErrNoHistory) {
		return nil, err
	}

	path := s.repoPath(draftID)
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, fmt.Errorf("create repo dir: %w", err)
	}
	repo, err = git.PlainInit(path, false)
	if err != nil {
		return nil, fmt.Errorf("init repo: %w", err)
	}
	if err := repo.Storer.SetReference(plumbing.NewSymbolicReference(plumbing.HEAD, plumbing.NewBranchReferenceName(branch))); err != nil {
		return nil, fmt.Errorf("set HEAD to %s: %w", branch, err)
	}
	return repo, nil
}

func readContent(commitObj *object.Commit) (json.RawMessage, error) {
	file, err := commitObj.File(contentFile)
	if err != nil {
		return nil, fmt.Errorf("load %s from commit: %w", contentFile, err)
	}
	reader, err := file.Reader()
	if err != nil {
		return nil, fmt.Errorf("open content reader: %w", err)
	}
	defer reader.Close()

	raw, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("read content bytes: %w", err)
	}
	var compact bytes.Buffer
	if err := json.Compact(&compact, raw); err != nil {
		return nil, fmt.Errorf("decode commit content: %w", err)
	}
	return compact.Bytes(), nil
}

func toRevision(commitObj *object.Commit) Revision {
	return Revision{
		Hash:      commitObj.Hash.String()[:7],
		Message:   commitObj.Message,
		Author:    commitObj.Author.Name,
		CreatedAt: commitObj.Author.When,
	}
}

func resolveHash(repo *git.Repository, hash string) (plumbing.Hash, error) {
	if len(hash) == 40 {
		return plumbing.NewHash(hash), nil
	}
	resolved, err := repo.ResolveRevision(plumbing.Revision(hash))
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("resolve hash %s: %w", hash, err)
	}
	return *resolved, nil
}

func sanitizeEmail(input string) string {
	out := make([]rune, 0, len(input))
	for _, r := range input {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			out = append(out, r)
		case r == ' ' || r == '-' || r == '_':
			out = append(out, '.')
		}
	}
	if len(out) == 0 {
		return "user"
	}
	return string(out)
}
