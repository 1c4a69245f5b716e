// Package references collects the read-only cross references shown next to
// a document: linked documents, saved queries, comments, entities and
// studies. It never touches document content or drafts.
package references

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

type Kind string

const (
	KindDocuments Kind = "documents"
	KindQueries   Kind = "queries"
	KindComments  Kind = "comments"
	KindEntities  Kind = "entities"
	KindStudies   Kind = "studies"
)

// Kinds is the display order of reference groups.
var Kinds = []Kind{KindDocuments, KindQueries, KindComments, KindEntities, KindStudies}

var ErrInvalidDocumentID = errors.New("references require a document id")

// maxConcurrentFetches caps the fetches one Collect runs at once.
const maxConcurrentFetches = 3

var emptyMessages = map[Kind]string{
	KindDocuments: "No connected documents yet.",
	KindQueries:   "No saved queries reference this document.",
	KindComments:  "No comments on this document yet.",
	KindEntities:  "No entities are linked to this document.",
	KindStudies:   "No studies are linked to this document.",
}

func (k Kind) Valid() bool {
	_, ok := emptyMessages[k]
	return ok
}

type Item struct {
	ID        string    `json:"id"`
	Kind      Kind      `json:"kind"`
	Title     string    `json:"title"`
	Summary   string    `json:"summary,omitempty"`
	Author    string    `json:"author,omitempty"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Group is one reference list. Error is set when that list alone failed to
// load; EmptyMessage when it loaded with no items.
type Group struct {
	Kind         Kind   `json:"kind"`
	Items        []Item `json:"items"`
	EmptyMessage string `json:"emptyMessage,omitempty"`
	Error        string `json:"error,omitempty"`
}

type Set struct {
	DocumentID string  `json:"documentId"`
	Groups     []Group `json:"groups"`
}

// Group returns the group for kind, if it was collected.
func (s Set) Group(kind Kind) (Group, bool) {
	for _, g := range s.Groups {
		if g.Kind == kind {
			return g, true
		}
	}
	return Group{}, false
}

// Fetcher loads one reference list for a hosting document.
type Fetcher interface {
	ListReferences(ctx context.Context, documentID string, kind Kind) ([]Item, error)
}

type FetcherFunc func(ctx context.Context, documentID string, kind Kind) ([]Item, error)

func (f FetcherFunc) ListReferences(ctx context.Context, documentID string, kind Kind) ([]Item, error) {
	return f(ctx, documentID, kind)
}

type Aggregator struct {
	fetcher Fetcher
	timeout time.Duration
	logger  zerolog.Logger
}

// NewAggregator bounds each group fetch by timeout when it is positive.
func NewAggregator(fetcher Fetcher, timeout time.Duration, logger zerolog.Logger) *Aggregator {
	return &Aggregator{fetcher: fetcher, timeout: timeout, logger: logger}
}

// Collect fetches the requested groups (all when none given) concurrently.
// A failing group is reported inline and does not affect the others. When
// ctx ends, groups not yet started are skipped and ctx's error is returned.
func (a *Aggregator) Collect(ctx context.Context, documentID string, kinds ...Kind) (Set, error) {
	documentID = strings.TrimSpace(documentID)
	if documentID == "" {
		return Set{}, ErrInvalidDocumentID
	}
	if len(kinds) == 0 {
		kinds = Kinds
	}

	groups := make([]Group, len(kinds))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentFetches)
	for i, kind := range kinds {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			groups[i] = a.collectGroup(gctx, documentID, kind)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Set{}, err
	}
	if err := ctx.Err(); err != nil {
		return Set{}, err
	}

	return Set{DocumentID: documentID, Groups: groups}, nil
}

func (a *Aggregator) collectGroup(ctx context.Context, documentID string, kind Kind) Group {
	group := Group{Kind: kind, Items: []Item{}}
	if !kind.Valid() {
		group.Error = "unknown reference kind"
		return group
	}

	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	items, err := a.fetcher.ListReferences(ctx, documentID, kind)
	if err != nil {
		a.logger.Warn().Err(err).Str("document_id", documentID).Str("kind", string(kind)).Msg("reference group failed")
		group.Error = "Could not load " + string(kind) + "."
		return group
	}
	if len(items) == 0 {
		group.EmptyMessage = emptyMessages[kind]
		return group
	}
	for i := range items {
		items[i].Kind = kind
	}
	group.Items = items
	return group
}
