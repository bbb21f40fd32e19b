package ports

import (
	"context"
	"io"

	"github.com/kirillkom/docintake/internal/core/domain"
)

// DocumentRepository persists document records partitioned by customer.
// Insert must reject a second record for the same (customer, hash) with
// domain.ErrDuplicateDocument.
type DocumentRepository interface {
	Insert(ctx context.Context, doc *domain.Document) error
	FindByHash(ctx context.Context, customerID, contentHash string) (*domain.Document, error)
	List(ctx context.Context, customerID string, offset, limit int) ([]domain.Document, error)
	Stats(ctx context.Context, customerID string) (domain.CustomerStats, error)
	MatchKeyword(ctx context.Context, customerID, keyword string) ([]string, error)
}

// BlobStore stores raw upload payloads under opaque references.
type BlobStore interface {
	Put(ctx context.Context, data []byte) (string, error)
	Open(ctx context.Context, ref string) (io.ReadCloser, error)
	Delete(ctx context.Context, ref string) error
}

// TextExtractor converts PDF bytes into plain text.
type TextExtractor interface {
	Extract(ctx context.Context, data []byte) (domain.Extraction, error)
}

// SentimentScorer maps text to a polarity in [-1, 1].
type SentimentScorer interface {
	Score(text string) float64
}

// EventPublisher announces committed records.
type EventPublisher interface {
	PublishDocumentStored(ctx context.Context, doc *domain.Document) error
}

// ReportWriter renders a customer's analytics as a downloadable report.
type ReportWriter interface {
	WriteDocumentReport(w io.Writer, analytics domain.Analytics, docs []domain.Document) error
}
