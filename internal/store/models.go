package store

import (
	"errors"
	"time"
)

var ErrNotFound = errors.New("not found")

const (
	DefaultPageLimit = 20
	MaxPageLimit     = 100
)

// Draft is a saved editor snapshot. Content holds canonical JSON text.
type Draft struct {
	ID         string
	DocumentID string
	Title      string
	Content    string
	PlainText  string
	HeadCommit string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

type Document struct {
	ID        string
	Title     string
	Summary   string
	Status    string
	Author    string
	UpdatedAt time.Time
}

type Entity struct {
	ID          string
	Name        string
	EntityType  string
	Description string
	UpdatedAt   time.Time
}

type Study struct {
	ID        string
	Title     string
	Status    string
	Summary   string
	UpdatedAt time.Time
}

// LinkedRecord is the common projection of anything a document can reference.
type LinkedRecord struct {
	ID        string
	Kind      string
	Title     string
	Summary   string
	Author    string
	UpdatedAt time.Time
}

// Page is a 1-based page request.
type Page struct {
	Page  int
	Limit int
}

// Normalize clamps the request to valid bounds.
func (p Page) Normalize() Page {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit <= 0 {
		p.Limit = DefaultPageLimit
	}
	if p.Limit > MaxPageLimit {
		p.Limit = MaxPageLimit
	}
	return p
}

func (p Page) Offset() int {
	return (p.Page - 1) * p.Limit
}

type PageResult[T any] struct {
	Items      []T `json:"items"`
	TotalCount int `json:"totalCount"`
	TotalPages int `json:"totalPages"`
	Page       int `json:"page"`
	Limit      int `json:"limit"`
}

func newPageResult[T any](items []T, total int, p Page) PageResult[T] {
	pages := 0
	if total > 0 {
		pages = (total + p.Limit - 1) / p.Limit
	}
	return PageResult[T]{Items: items, TotalCount: total, TotalPages: pages, Page: p.Page, Limit: p.Limit}
}
