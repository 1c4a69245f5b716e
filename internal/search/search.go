package search

import "context"

// ResultType identifies the kind of record in a search result.
type ResultType string

const (
	ResultDraft    ResultType = "draft"
	ResultDocument ResultType = "document"
	ResultEntity   ResultType = "entity"
	ResultStudy    ResultType = "study"
)

// ResultTypes lists every searchable kind in ranking-merge order.
var ResultTypes = []ResultType{ResultDocument, ResultDraft, ResultEntity, ResultStudy}

func (t ResultType) Valid() bool {
	for _, known := range ResultTypes {
		if t == known {
			return true
		}
	}
	return false
}

// Result is a single search hit returned to the caller.
type Result struct {
	Type       ResultType `json:"type"`
	ID         string     `json:"id"`
	Title      string     `json:"title"`
	Snippet    string     `json:"snippet"`
	DocumentID string     `json:"documentId,omitempty"`
}

// Query describes a search request.
type Query struct {
	Text             string
	FilterType       ResultType // empty = all types
	FilterDocumentID string     // drafts only
	Limit            int
	Offset           int
}

// Response is the envelope returned by the search endpoint.
type Response struct {
	Results []Result `json:"results"`
	Total   int      `json:"total"`
	Query   string   `json:"query"`
}

// Searcher can execute a full-text search.
type Searcher interface {
	Search(ctx context.Context, q Query) ([]Result, int, error)
	Healthy() bool
}

// Indexer can push records into a search index. records is a slice of one of
// the *Record types matching kind.
type Indexer interface {
	Index(kind ResultType, records any) error
}

// DraftRecord is the data we index for a draft.
type DraftRecord struct {
	ID         string `json:"id"`
	DocumentID string `json:"documentId"`
	Title      string `json:"title"`
	Body       string `json:"body"`
}

// DocumentRecord is the data we index for a document.
type DocumentRecord struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Summary string `json:"summary"`
	Status  string `json:"status"`
}

type EntityRecord struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	EntityType  string `json:"entityType"`
	Description string `json:"description"`
}

type StudyRecord struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Status  string `json:"status"`
	Summary string `json:"summary"`
}

// Snapshot is every searchable record, used for full reindexing.
type Snapshot struct {
	Drafts    []DraftRecord
	Documents []DocumentRecord
	Entities  []EntityRecord
	Studies   []StudyRecord
}
