package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/kirillkom/docintake/internal/core/domain"
)

type DocumentRepository struct {
	db *sql.DB
}

func NewDocumentRepository(db *sql.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (r *DocumentRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across replicas starting at once.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026101501)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS documents (
	customer_id TEXT NOT NULL,
	content_hash TEXT NOT NULL,
	blob_ref TEXT NOT NULL UNIQUE,
	filename TEXT NOT NULL DEFAULT '',
	size_bytes BIGINT NOT NULL DEFAULT 0,
	page_count INTEGER NOT NULL DEFAULT 0,
	extracted_text TEXT NOT NULL DEFAULT '',
	sentiment_score DOUBLE PRECISION NOT NULL CHECK (sentiment_score BETWEEN -1 AND 1),
	created_at TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (customer_id, content_hash)
);

CREATE INDEX IF NOT EXISTS idx_documents_customer_created_at ON documents(customer_id, created_at DESC);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

// Insert writes the record once. The primary key decides concurrent uploads
// of the same bytes: the loser gets ErrDuplicateDocument.
func (r *DocumentRepository) Insert(ctx context.Context, doc *domain.Document) error {
	res, err := r.db.ExecContext(ctx, `
INSERT INTO documents (
	customer_id, content_hash, blob_ref, filename, size_bytes, page_count, extracted_text, sentiment_score, created_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
ON CONFLICT (customer_id, content_hash) DO NOTHING
`,
		doc.CustomerID, doc.ContentHash, doc.BlobRef, doc.Filename, doc.SizeBytes, doc.PageCount,
		doc.ExtractedText, doc.SentimentScore, doc.CreatedAt,
	)
	if err != nil {
		return domain.WrapError(domain.ErrStorageUnavailable, "insert document", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return domain.WrapError(domain.ErrStorageUnavailable, "insert document rows affected", err)
	}
	if affected == 0 {
		return domain.WrapError(
			domain.ErrDuplicateDocument,
			"insert document",
			fmt.Errorf("customer_id=%s hash=%s", doc.CustomerID, doc.ContentHash),
		)
	}
	return nil
}

func (r *DocumentRepository) FindByHash(ctx context.Context, customerID, hash string) (*domain.Document, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT customer_id, content_hash, blob_ref, filename, size_bytes, page_count, extracted_text, sentiment_score, created_at
FROM documents
WHERE customer_id = $1 AND content_hash = $2
`, customerID, hash)

	var doc domain.Document
	err := row.Scan(
		&doc.CustomerID, &doc.ContentHash, &doc.BlobRef, &doc.Filename, &doc.SizeBytes,
		&doc.PageCount, &doc.ExtractedText, &doc.SentimentScore, &doc.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrDocumentNotFound, "find document", fmt.Errorf("hash=%s", hash))
		}
		return nil, domain.WrapError(domain.ErrStorageUnavailable, "find document", err)
	}
	doc.CreatedAt = doc.CreatedAt.UTC()
	return &doc, nil
}

// List pages through a customer's records newest first. Extracted text is
// left out of listings.
func (r *DocumentRepository) List(ctx context.Context, customerID string, offset, limit int) ([]domain.Document, error) {
	if limit <= 0 {
		return nil, nil
	}
	rows, err := r.db.QueryContext(ctx, `
SELECT customer_id, content_hash, blob_ref, filename, size_bytes, page_count, sentiment_score, created_at
FROM documents
WHERE customer_id = $1
ORDER BY created_at DESC, content_hash ASC
OFFSET $2
LIMIT $3
`, customerID, offset, limit)
	if err != nil {
		return nil, domain.WrapError(domain.ErrStorageUnavailable, "list documents", err)
	}
	defer rows.Close()

	out := make([]domain.Document, 0, limit)
	for rows.Next() {
		var doc domain.Document
		if err := rows.Scan(
			&doc.CustomerID, &doc.ContentHash, &doc.BlobRef, &doc.Filename, &doc.SizeBytes,
			&doc.PageCount, &doc.SentimentScore, &doc.CreatedAt,
		); err != nil {
			return nil, domain.WrapError(domain.ErrStorageUnavailable, "scan document", err)
		}
		doc.CreatedAt = doc.CreatedAt.UTC()
		out = append(out, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.WrapError(domain.ErrStorageUnavailable, "iterate documents", err)
	}
	return out, nil
}

func (r *DocumentRepository) Stats(ctx context.Context, customerID string) (domain.CustomerStats, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT COUNT(*), COALESCE(AVG(sentiment_score), 0)
FROM documents
WHERE customer_id = $1
`, customerID)

	var stats domain.CustomerStats
	if err := row.Scan(&stats.DocumentCount, &stats.AverageSentiment); err != nil {
		return domain.CustomerStats{}, domain.WrapError(domain.ErrStorageUnavailable, "document stats", err)
	}
	return stats, nil
}

// MatchKeyword returns hashes whose text contains keyword, ignoring case.
// strpos keeps LIKE wildcards in the keyword literal.
func (r *DocumentRepository) MatchKeyword(ctx context.Context, customerID, keyword string) ([]string, error) {
	out := make([]string, 0)
	if keyword == "" {
		return out, nil
	}
	rows, err := r.db.QueryContext(ctx, `
SELECT content_hash
FROM documents
WHERE customer_id = $1 AND strpos(lower(extracted_text), lower($2)) > 0
ORDER BY created_at DESC, content_hash ASC
`, customerID, keyword)
	if err != nil {
		return nil, domain.WrapError(domain.ErrStorageUnavailable, "match keyword", err)
	}
	defer rows.Close()

	for rows.Next() {
		var hash string
		if err := rows.Scan(&hash); err != nil {
			return nil, domain.WrapError(domain.ErrStorageUnavailable, "scan keyword match", err)
		}
		out = append(out, hash)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.WrapError(domain.ErrStorageUnavailable, "iterate keyword matches", err)
	}
	return out, nil
}
