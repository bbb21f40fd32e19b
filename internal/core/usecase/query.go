package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/kirillkom/docintake/internal/core/domain"
	"github.com/kirillkom/docintake/internal/core/ports"
)

const (
	defaultPerPage = 20
	maxPerPage     = 100
	reportPageSize = 500
)

type QueryUseCase struct {
	repo   ports.DocumentRepository
	blobs  ports.BlobStore
	report ports.ReportWriter
}

func NewQueryUseCase(
	repo ports.DocumentRepository,
	blobs ports.BlobStore,
	report ports.ReportWriter,
) *QueryUseCase {
	return &QueryUseCase{
		repo:   repo,
		blobs:  blobs,
		report: report,
	}
}

// Analyze returns document count, average sentiment and, when keyword is set,
// the hashes of the customer's documents whose text contains it. A customer
// without records yields a zero aggregate.
func (uc *QueryUseCase) Analyze(ctx context.Context, customerID, keyword string) (*domain.Analytics, error) {
	keyword = domain.NormalizeKeyword(keyword)
	if err := domain.ValidateRequest("analyze", domain.AnalyticsRequest{CustomerID: customerID, Keyword: keyword}); err != nil {
		return nil, err
	}

	stats, err := uc.repo.Stats(ctx, customerID)
	if err != nil {
		return nil, fmt.Errorf("aggregate customer documents: %w", err)
	}

	out := &domain.Analytics{
		CustomerID:       customerID,
		DocumentCount:    stats.DocumentCount,
		AverageSentiment: stats.AverageSentiment,
	}
	if stats.DocumentCount == 0 {
		out.AverageSentiment = 0
	}
	if keyword == "" {
		return out, nil
	}

	out.Keyword = keyword
	out.Matches = []string{}
	if stats.DocumentCount == 0 {
		return out, nil
	}
	matches, err := uc.repo.MatchKeyword(ctx, customerID, keyword)
	if err != nil {
		return nil, fmt.Errorf("match keyword: %w", err)
	}
	if matches != nil {
		out.Matches = matches
	}
	return out, nil
}

func (uc *QueryUseCase) GetDocument(ctx context.Context, customerID, contentHash string) (*domain.Document, error) {
	if err := domain.ValidateRequest("get document", domain.DocumentRequest{CustomerID: customerID, ContentHash: contentHash}); err != nil {
		return nil, err
	}
	doc, err := uc.repo.FindByHash(ctx, customerID, contentHash)
	if err != nil {
		return nil, fmt.Errorf("get document: %w", err)
	}
	return doc, nil
}

func (uc *QueryUseCase) ListDocuments(ctx context.Context, customerID string, page, perPage int) (*domain.DocumentPage, error) {
	if page == 0 {
		page = 1
	}
	if perPage == 0 {
		perPage = defaultPerPage
	}
	if err := domain.ValidateRequest("list documents", domain.ListRequest{CustomerID: customerID, Page: page, PerPage: perPage}); err != nil {
		return nil, err
	}

	stats, err := uc.repo.Stats(ctx, customerID)
	if err != nil {
		return nil, fmt.Errorf("count documents: %w", err)
	}
	out := &domain.DocumentPage{
		Documents: []domain.Document{},
		Total:     stats.DocumentCount,
		Page:      page,
		PerPage:   perPage,
	}
	offset := (page - 1) * perPage
	if offset >= stats.DocumentCount {
		return out, nil
	}

	docs, err := uc.repo.List(ctx, customerID, offset, perPage)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	if docs != nil {
		out.Documents = docs
	}
	return out, nil
}

// OpenContent returns the stored PDF for a record. The caller closes the reader.
func (uc *QueryUseCase) OpenContent(ctx context.Context, customerID, contentHash string) (io.ReadCloser, *domain.Document, error) {
	doc, err := uc.GetDocument(ctx, customerID, contentHash)
	if err != nil {
		return nil, nil, err
	}
	rc, err := uc.blobs.Open(ctx, doc.BlobRef)
	if err != nil {
		return nil, nil, fmt.Errorf("open blob %s: %w", doc.BlobRef, err)
	}
	return rc, doc, nil
}

func (uc *QueryUseCase) WriteReport(ctx context.Context, customerID string, w io.Writer) error {
	if uc.report == nil {
		return domain.WrapError(domain.ErrInvalidInput, "write report", errors.New("reports are not configured"))
	}
	analytics, err := uc.Analyze(ctx, customerID, "")
	if err != nil {
		return err
	}

	docs := make([]domain.Document, 0, analytics.DocumentCount)
	for offset := 0; offset < analytics.DocumentCount; offset += reportPageSize {
		batch, err := uc.repo.List(ctx, customerID, offset, reportPageSize)
		if err != nil {
			return fmt.Errorf("list documents for report: %w", err)
		}
		docs = append(docs, batch...)
		if len(batch) < reportPageSize {
			break
		}
	}

	if err := uc.report.WriteDocumentReport(w, *analytics, docs); err != nil {
		return fmt.Errorf("render report: %w", err)
	}
	return nil
}
