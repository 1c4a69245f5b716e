package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) DB() *sql.DB {
	return s.db
}

const draftColumns = `id, COALESCE(document_id, ''), title, content, plain_text, head_commit, created_at, updated_at`

func scanDraft(row interface{ Scan(...any) error }) (Draft, error) {
	var item Draft
	err := row.Scan(&item.ID, &item.DocumentID, &item.Title, &item.Content, &item.PlainText, &item.HeadCommit, &item.CreatedAt, &item.UpdatedAt)
	return item, err
}

func (s *PostgresStore) CreateDraft(ctx context.Context, item Draft) (Draft, error) {
	var documentID any
	if item.DocumentID != "" {
		documentID = item.DocumentID
	}
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO drafts (id, document_id, title, content, plain_text)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+draftColumns, item.ID, documentID, item.Title, item.Content, item.PlainText)
	created, err := scanDraft(row)
	if err != nil {
		return Draft{}, fmt.Errorf("insert draft: %w", err)
	}
	return created, nil
}

// UpdateDraft overwrites the draft content. ErrNotFound when no draft has id.
func (s *PostgresStore) UpdateDraft(ctx context.Context, id, title, content, plainText string, updatedAt time.Time) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE drafts
		SET title=$2, content=$3, plain_text=$4, updated_at=$5
		WHERE id=$1
	`, id, title, content, plainText, updatedAt)
	if err != nil {
		return fmt.Errorf("update draft: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update draft rows: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) SetDraftHead(ctx context.Context, id, hash string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE drafts SET head_commit=$2 WHERE id=$1`, id, hash)
	if err != nil {
		return fmt.Errorf("set draft head: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetDraft(ctx context.Context, id string) (Draft, error) {
	item, err := scanDraft(s.db.QueryRowContext(ctx, `SELECT `+draftColumns+` FROM drafts WHERE id=$1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Draft{}, ErrNotFound
	}
	if err != nil {
		return Draft{}, fmt.Errorf("get draft: %w", err)
	}
	return item, nil
}

func (s *PostgresStore) ListDocuments(ctx context.Context, p Page) (PageResult[Document], error) {
	p = p.Normalize()
	total, err := s.count(ctx, "documents")
	if err != nil {
		return PageResult[Document]{}, err
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, summary, status, author, updated_at
		FROM documents
		ORDER BY updated_at DESC, id
		LIMIT $1 OFFSET $2
	`, p.Limit, p.Offset())
	if err != nil {
		return PageResult[Document]{}, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	items := make([]Document, 0)
	for rows.Next() {
		var item Document
		if err := rows.Scan(&item.ID, &item.Title, &item.Summary, &item.Status, &item.Author, &item.UpdatedAt); err != nil {
			return PageResult[Document]{}, fmt.Errorf("scan document: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return PageResult[Document]{}, fmt.Errorf("iterate documents: %w", err)
	}
	return newPageResult(items, total, p), nil
}

func (s *PostgresStore) GetDocument(ctx context.Context, id string) (Document, error) {
	var item Document
	err := s.db.QueryRowContext(ctx, `
		SELECT id, title, summary, status, author, updated_at
		FROM documents
		WHERE id=$1
	`, id).Scan(&item.ID, &item.Title, &item.Summary, &item.Status, &item.Author, &item.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Document{}, ErrNotFound
	}
	if err != nil {
		return Document{}, fmt.Errorf("get document: %w", err)
	}
	return item, nil
}

func (s *PostgresStore) ListEntities(ctx context.Context, p Page) (PageResult[Entity], error) {
	p = p.Normalize()
	total, err := s.count(ctx, "entities")
	if err != nil {
		return PageResult[Entity]{}, err
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, entity_type, description, updated_at
		FROM entities
		ORDER BY name, id
		LIMIT $1 OFFSET $2
	`, p.Limit, p.Offset())
	if err != nil {
		return PageResult[Entity]{}, fmt.Errorf("list entities: %w", err)
	}
	defer rows.Close()

	items := make([]Entity, 0)
	for rows.Next() {
		var item Entity
		if err := rows.Scan(&item.ID, &item.Name, &item.EntityType, &item.Description, &item.UpdatedAt); err != nil {
			return PageResult[Entity]{}, fmt.Errorf("scan entity: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return PageResult[Entity]{}, fmt.Errorf("iterate entities: %w", err)
	}
	return newPageResult(items, total, p), nil
}

func (s *PostgresStore) GetEntity(ctx context.Context, id string) (Entity, error) {
	var item Entity
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, entity_type, description, updated_at
		FROM entities
		WHERE id=$1
	`, id).Scan(&item.ID, &item.Name, &item.EntityType, &item.Description, &item.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Entity{}, ErrNotFound
	}
	if err != nil {
		return Entity{}, fmt.Errorf("get entity: %w", err)
	}
	return item, nil
}

func (s *PostgresStore) ListStudies(ctx context.Context, p Page) (PageResult[Study], error) {
	p = p.Normalize()
	total, err := s.count(ctx, "studies")
	if err != nil {
		return PageResult[Study]{}, err
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, status, summary, updated_at
		FROM studies
		ORDER BY updated_at DESC, id
		LIMIT $1 OFFSET $2
	`, p.Limit, p.Offset())
	if err != nil {
		return PageResult[Study]{}, fmt.Errorf("list studies: %w", err)
	}
	defer rows.Close()

	items := make([]Study, 0)
	for rows.Next() {
		var item Study
		if err := rows.Scan(&item.ID, &item.Title, &item.Status, &item.Summary, &item.UpdatedAt); err != nil {
			return PageResult[Study]{}, fmt.Errorf("scan study: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return PageResult[Study]{}, fmt.Errorf("iterate studies: %w", err)
	}
	return newPageResult(items, total, p), nil
}

func (s *PostgresStore) GetStudy(ctx context.Context, id string) (Study, error) {
	var item Study
	err := s.db.QueryRowContext(ctx, `
		SELECT id, title, status, summary, updated_at
		FROM studies
		WHERE id=$1
	`, id).Scan(&item.ID, &item.Title, &item.Status, &item.Summary, &item.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Study{}, ErrNotFound
	}
	if err != nil {
		return Study{}, fmt.Errorf("get study: %w", err)
	}
	return item, nil
}

var referenceQueries = map[string]string{
	"documents": `
		SELECT d.id, d.title, d.summary, d.author, d.updated_at
		FROM reference_links rl
		JOIN documents d ON d.id = rl.target_id
		WHERE rl.source_document_id = $1 AND rl.target_kind = 'documents'
		ORDER BY d.updated_at DESC, d.id`,
	"queries": `
		SELECT q.id, q.name, q.query_text, q.author, q.updated_at
		FROM reference_links rl
		JOIN saved_queries q ON q.id = rl.target_id
		WHERE rl.source_document_id = $1 AND rl.target_kind = 'queries'
		ORDER BY q.updated_at DESC, q.id`,
	"comments": `
		SELECT c.id, LEFT(c.body, 120), c.body, c.author, c.created_at
		FROM comments c
		WHERE c.document_id = $1
		ORDER BY c.created_at DESC, c.id`,
	"entities": `
		SELECT e.id, e.name, e.description, '', e.updated_at
		FROM reference_links rl
		JOIN entities e ON e.id = rl.target_id
		WHERE rl.source_document_id = $1 AND rl.target_kind = 'entities'
		ORDER BY e.name, e.id`,
	"studies": `
		SELECT st.id, st.title, st.summary, '', st.updated_at
		FROM reference_links rl
		JOIN studies st ON st.id = rl.target_id
		WHERE rl.source_document_id = $1 AND rl.target_kind = 'studies'
		ORDER BY st.updated_at DESC, st.id`,
}

// ListReferences loads one kind of record linked from a document.
func (s *PostgresStore) ListReferences(ctx context.Context, documentID, kind string) ([]LinkedRecord, error) {
	query, ok := referenceQueries[kind]
	if !ok {
		return nil, fmt.Errorf("list references: unknown kind %q", kind)
	}
	rows, err := s.db.QueryContext(ctx, query, documentID)
	if err != nil {
		return nil, fmt.Errorf("list %s references: %w", kind, err)
	}
	defer rows.Close()

	items := make([]LinkedRecord, 0)
	for rows.Next() {
		item := LinkedRecord{Kind: kind}
		if err := rows.Scan(&item.ID, &item.Title, &item.Summary, &item.Author, &item.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan %s reference: %w", kind, err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s references: %w", kind, err)
	}
	return items, nil
}

func (s *PostgresStore) count(ctx context.Context, table string) (int, error) {
	var total int
	// table is always a package constant
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+table).Scan(&total); err != nil {
		return 0, fmt.Errorf("count %s: %w", table, err)
	}
	return total, nil
}

// Ping verifies the database connection is alive
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
