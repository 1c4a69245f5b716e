package search

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// PgFTS implements Searcher using PostgreSQL full-text search as a fallback.
type PgFTS struct {
	db *sql.DB
}

// NewPgFTS creates a PostgreSQL FTS searcher.
func NewPgFTS(db *sql.DB) *PgFTS {
	return &PgFTS{db: db}
}

// Healthy always returns true; without Postgres nothing else works either.
func (p *PgFTS) Healthy() bool {
	return true
}

const tsQuery = "plainto_tsquery('english', $1)"

// ftsSources maps each result type to a sub-select producing
// (type, id, title, snippet, document_id, rank).
var ftsSources = map[ResultType]string{
	ResultDocument: `
		SELECT 'document'::text AS type, d.id, d.title,
			ts_headline('english', coalesce(d.summary, ''), ` + tsQuery + `, 'MaxFragments=1,MaxWords=30') AS snippet,
			d.id AS document_id,
			ts_rank(d.fts, ` + tsQuery + `) AS rank
		FROM documents d
		WHERE d.fts @@ ` + tsQuery,
	ResultDraft: `
		SELECT 'draft'::text AS type, dr.id, dr.title,
			ts_headline('english', coalesce(dr.plain_text, ''), ` + tsQuery + `, 'MaxFragments=1,MaxWords=30') AS snippet,
			coalesce(dr.document_id, '') AS document_id,
			ts_rank(dr.fts, ` + tsQuery + `) AS rank
		FROM drafts dr
		WHERE dr.fts @@ ` + tsQuery,
	ResultEntity: `
		SELECT 'entity'::text AS type, e.id, e.name AS title,
			ts_headline('english', coalesce(e.description, ''), ` + tsQuery + `, 'MaxFragments=1,MaxWords=30') AS snippet,
			''::text AS document_id,
			ts_rank(e.fts, ` + tsQuery + `) AS rank
		FROM entities e
		WHERE e.fts @@ ` + tsQuery,
	ResultStudy: `
		SELECT 'study'::text AS type, st.id, st.title,
			ts_headline('english', coalesce(st.summary, ''), ` + tsQuery + `, 'MaxFragments=1,MaxWords=30') AS snippet,
			''::text AS document_id,
			ts_rank(st.fts, ` + tsQuery + `) AS rank
		FROM studies st
		WHERE st.fts @@ ` + tsQuery,
}

// buildFTSQuery returns the UNION ALL body and its arguments for q.
func buildFTSQuery(q Query) (string, []any) {
	args := []any{q.Text}
	var subQueries []string
	for _, rtyp := range ResultTypes {
		if q.FilterType != "" && q.FilterType != rtyp {
			continue
		}
		sub := ftsSources[rtyp]
		if q.FilterDocumentID != "" {
			if rtyp != ResultDraft {
				continue
			}
			args = append(args, q.FilterDocumentID)
			sub += fmt.Sprintf(" AND dr.document_id = $%d", len(args))
		}
		subQueries = append(subQueries, sub)
	}
	return strings.Join(subQueries, " UNION ALL "), args
}

// Search executes a UNION ALL query across the searchable tables using
// plainto_tsquery and ts_rank, with ts_headline for snippets.
func (p *PgFTS) Search(ctx context.Context, q Query) ([]Result, int, error) {
	if strings.TrimSpace(q.Text) == "" {
		return nil, 0, nil
	}

	limit := q.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := q.Offset
	if offset < 0 {
		offset = 0
	}

	union, args := buildFTSQuery(q)
	if union == "" {
		return nil, 0, nil
	}

	countSQL := fmt.Sprintf("SELECT count(*) FROM (%s) sub", union)
	dataSQL := fmt.Sprintf(`SELECT type, id, title, snippet, document_id
		FROM (%s) sub
		ORDER BY rank DESC
		LIMIT %d OFFSET %d`, union, limit, offset)

	var total int
	if err := p.db.QueryRowContext(ctx, countSQL, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("pgfts count: %w", err)
	}

	rows, err := p.db.QueryContext(ctx, dataSQL, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("pgfts query: %w", err)
	}
	defer rows.Close()

	var results []Result
	for rows.Next() {
		var r Result
		var typ string
		if err := rows.Scan(&typ, &r.ID, &r.Title, &r.Snippet, &r.DocumentID); err != nil {
			return nil, 0, fmt.Errorf("pgfts scan: %w", err)
		}
		r.Type = ResultType(typ)
		results = append(results, r)
	}

	return results, total, rows.Err()
}

// LoadSnapshot returns all searchable records for full reindexing.
func (p *PgFTS) LoadSnapshot(ctx context.Context) (Snapshot, error) {
	var snap Snapshot
	var err error

	snap.Documents, err = loadRows(ctx, p.db, "documents",
		`SELECT id, title, summary, status FROM documents`,
		func(scan func(...any) error) (DocumentRecord, error) {
			var d DocumentRecord
			err := scan(&d.ID, &d.Title, &d.Summary, &d.Status)
			return d, err
		})
	if err != nil {
		return Snapshot{}, err
	}

	snap.Drafts, err = loadRows(ctx, p.db, "drafts",
		`SELECT id, coalesce(document_id, ''), title, plain_text FROM drafts`,
		func(scan func(...any) error) (DraftRecord, error) {
			var d DraftRecord
			err := scan(&d.ID, &d.DocumentID, &d.Title, &d.Body)
			return d, err
		})
	if err != nil {
		return Snapshot{}, err
	}

	snap.Entities, err = loadRows(ctx, p.db, "entities",
		`SELECT id, name, entity_type, description FROM entities`,
		func(scan func(...any) error) (EntityRecord, error) {
			var e EntityRecord
			err := scan(&e.ID, &e.Name, &e.EntityType, &e.Description)
			return e, err
		})
	if err != nil {
		return Snapshot{}, err
	}

	snap.Studies, err = loadRows(ctx, p.db, "studies",
		`SELECT id, title, status, summary FROM studies`,
		func(scan func(...any) error) (StudyRecord, error) {
			var s StudyRecord
			err := scan(&s.ID, &s.Title, &s.Status, &s.Summary)
			return s, err
		})
	if err != nil {
		return Snapshot{}, err
	}

	return snap, nil
}

func loadRows[T any](ctx context.Context, db *sql.DB, name, query string, scan func(func(...any) error) (T, error)) ([]T, error) {
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", name, err)
	}
	defer rows.Close()

	items := make([]T, 0)
	for rows.Next() {
		item, err := scan(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", name, err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", name, err)
	}
	return items, nil
}
