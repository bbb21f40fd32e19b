package ports

import (
	"context"
	"io"

	"github.com/kirillkom/docintake/internal/core/domain"
)

// DocumentIngestor is the inbound contract for upload orchestration.
type DocumentIngestor interface {
	Ingest(ctx context.Context, customerID, filename string, body io.Reader) (*domain.IngestResult, error)
}

// AnalyticsService is the inbound contract for per-customer aggregation.
type AnalyticsService interface {
	Analyze(ctx context.Context, customerID, keyword string) (*domain.Analytics, error)
	WriteReport(ctx context.Context, customerID string, w io.Writer) error
}

// DocumentReader is the inbound read model for stored records and their payloads.
type DocumentReader interface {
	GetDocument(ctx context.Context, customerID, contentHash string) (*domain.Document, error)
	ListDocuments(ctx context.Context, customerID string, page, perPage int) (*domain.DocumentPage, error)
	OpenContent(ctx context.Context, customerID, contentHash string) (io.ReadCloser, *domain.Document, error)
}
