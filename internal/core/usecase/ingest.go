package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"path/filepath"
	"strings"
	"time"

	"github.com/kirillkom/docintake/internal/core/domain"
	"github.com/kirillkom/docintake/internal/core/ports"
)

const defaultMaxUploadBytes int64 = 32 << 20

type IngestDocumentUseCase struct {
	repo      ports.DocumentRepository
	blobs     ports.BlobStore
	extractor ports.TextExtractor
	scorer    ports.SentimentScorer
	events    ports.EventPublisher

	maxUploadBytes int64
	now            func() time.Time
}

type IngestOption func(*IngestDocumentUseCase)

// WithEventPublisher announces stored records. Publishing happens after the
// insert committed, so a publish failure is logged and never fails the upload.
func WithEventPublisher(events ports.EventPublisher) IngestOption {
	return func(uc *IngestDocumentUseCase) {
		uc.events = events
	}
}

func WithMaxUploadBytes(n int64) IngestOption {
	return func(uc *IngestDocumentUseCase) {
		if n > 0 {
			uc.maxUploadBytes = n
		}
	}
}

func withClock(now func() time.Time) IngestOption {
	return func(uc *IngestDocumentUseCase) {
		uc.now = now
	}
}

func NewIngestDocumentUseCase(
	repo ports.DocumentRepository,
	blobs ports.BlobStore,
	extractor ports.TextExtractor,
	scorer ports.SentimentScorer,
	opts ...IngestOption,
) *IngestDocumentUseCase {
	uc := &IngestDocumentUseCase{
		repo:           repo,
		blobs:          blobs,
		extractor:      extractor,
		scorer:         scorer,
		maxUploadBytes: defaultMaxUploadBytes,
		now:            func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(uc)
	}
	return uc
}

// Ingest runs one upload: read, hash, duplicate check, extract, score, store
// the blob and insert the record. Nothing is persisted unless every step
// before the insert succeeded. A blob written for a failed insert is removed
// again on a best-effort basis.
func (uc *IngestDocumentUseCase) Ingest(
	ctx context.Context,
	customerID, filename string,
	body io.Reader,
) (*domain.IngestResult, error) {
	filename = sanitizeFilename(filename)
	if err := domain.ValidateRequest("ingest", domain.UploadRequest{CustomerID: customerID, Filename: filename}); err != nil {
		return nil, err
	}

	data, err := uc.readUpload(body)
	if err != nil {
		return nil, err
	}
	hash := domain.ContentHash(data)

	existing, err := uc.findExisting(ctx, customerID, hash)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return duplicateResult(existing), nil
	}

	extraction, err := uc.extractor.Extract(ctx, data)
	if err != nil {
		return nil, fmt.Errorf("extract text: %w", err)
	}
	score := clampScore(uc.scorer.Score(extraction.Text))

	blobRef, err := uc.blobs.Put(ctx, data)
	if err != nil {
		return nil, fmt.Errorf("store blob: %w", err)
	}

	doc := &domain.Document{
		CustomerID:     customerID,
		ContentHash:    hash,
		BlobRef:        blobRef,
		Filename:       filename,
		SizeBytes:      int64(len(data)),
		PageCount:      extraction.PageCount,
		ExtractedText:  extraction.Text,
		SentimentScore: score,
		CreatedAt:      uc.now(),
	}

	if err := uc.repo.Insert(ctx, doc); err != nil {
		uc.discardBlob(ctx, customerID, hash, blobRef)
		if domain.IsKind(err, domain.ErrDuplicateDocument) {
			return uc.resolveConcurrentDuplicate(ctx, customerID, hash)
		}
		return nil, fmt.Errorf("insert document record: %w", err)
	}

	slog.Info("document_stored",
		"customer_id", customerID,
		"document_hash", hash,
		"blob_ref", blobRef,
		"size_bytes", doc.SizeBytes,
		"page_count", doc.PageCount,
		"sentiment_score", score,
	)
	uc.publishStored(ctx, doc)

	return &domain.IngestResult{
		Status:       domain.IngestStored,
		DocumentHash: hash,
		BlobRef:      blobRef,
		Document:     doc,
	}, nil
}

func (uc *IngestDocumentUseCase) readUpload(body io.Reader) ([]byte, error) {
	if body == nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "read upload", errors.New("file is required"))
	}
	data, err := io.ReadAll(io.LimitReader(body, uc.maxUploadBytes+1))
	if err != nil {
		return nil, domain.WrapError(domain.ErrIngestion, "read upload", err)
	}
	if int64(len(data)) > uc.maxUploadBytes {
		return nil, domain.WrapError(
			domain.ErrPayloadTooLarge,
			"read upload",
			fmt.Errorf("file exceeds %d bytes", uc.maxUploadBytes),
		)
	}
	if len(data) == 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "read upload", errors.New("file is empty"))
	}
	return data, nil
}

func (uc *IngestDocumentUseCase) findExisting(ctx context.Context, customerID, hash string) (*domain.Document, error) {
	doc, err := uc.repo.FindByHash(ctx, customerID, hash)
	if err != nil {
		if domain.IsKind(err, domain.ErrDocumentNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("check duplicate: %w", err)
	}
	return doc, nil
}

// resolveConcurrentDuplicate handles the loser of an insert race: the unique
// key rejected the record, so the winner's record is reported instead.
func (uc *IngestDocumentUseCase) resolveConcurrentDuplicate(ctx context.Context, customerID, hash string) (*domain.IngestResult, error) {
	existing, err := uc.repo.FindByHash(ctx, customerID, hash)
	if err != nil {
		if domain.IsKind(err, domain.ErrDocumentNotFound) {
			return &domain.IngestResult{Status: domain.IngestDuplicate, DocumentHash: hash}, nil
		}
		return nil, fmt.Errorf("load concurrent duplicate: %w", err)
	}
	slog.Info("document_duplicate_race", "customer_id", customerID, "document_hash", hash)
	return duplicateResult(existing), nil
}

func (uc *IngestDocumentUseCase) discardBlob(ctx context.Context, customerID, hash, blobRef string) {
	// The request context may already be cancelled; compensation still runs.
	cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := uc.blobs.Delete(cleanupCtx, blobRef); err != nil {
		slog.Warn("orphaned_blob",
			"customer_id", customerID,
			"document_hash", hash,
			"blob_ref", blobRef,
			"error", err,
		)
	}
}

func (uc *IngestDocumentUseCase) publishStored(ctx context.Context, doc *domain.Document) {
	if uc.events == nil {
		return
	}
	if err := uc.events.PublishDocumentStored(ctx, doc); err != nil {
		slog.Warn("publish_document_stored_failed",
			"customer_id", doc.CustomerID,
			"document_hash", doc.ContentHash,
			"error", err,
		)
	}
}

func duplicateResult(doc *domain.Document) *domain.IngestResult {
	return &domain.IngestResult{
		Status:       domain.IngestDuplicate,
		DocumentHash: doc.ContentHash,
		BlobRef:      doc.BlobRef,
		Document:     doc,
	}
}

func clampScore(score float64) float64 {
	switch {
	case math.IsNaN(score):
		return 0
	case score > 1:
		return 1
	case score < -1:
		return -1
	default:
		return score
	}
}

func sanitizeFilename(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	base := filepath.Base(name)
	base = strings.ReplaceAll(base, " ", "_")
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r
		case r >= 'A' && r <= 'Z':
			return r
		case r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, base)
	if len(base) > 255 {
		base = base[len(base)-255:]
	}
	return base
}
