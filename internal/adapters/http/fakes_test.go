package httpadapter

import (
	"bytes"
	"context"
	"io"
	"time"

	"github.com/kirillkom/docintake/internal/core/domain"
)

const testHash = "9f86d081884c7d659a2feaa0c55ad015a3bf4f1b2b0b822cd15d6c15b0f00a08"

type ingestFake struct {
	result *domain.IngestResult
	err    error

	gotCustomer string
	gotFilename string
	gotBody     []byte
}

func (f *ingestFake) Ingest(_ context.Context, customerID, filename string, body io.Reader) (*domain.IngestResult, error) {
	f.gotCustomer = customerID
	f.gotFilename = filename
	raw, err := io.ReadAll(body)
	if err != nil {
		return nil, domain.WrapError(domain.ErrIngestion, "read upload", err)
	}
	f.gotBody = raw
	if f.err != nil {
		return nil, f.err
	}
	if f.result != nil {
		return f.result, nil
	}
	return &domain.IngestResult{
		Status:       domain.IngestStored,
		DocumentHash: domain.ContentHash(raw),
		BlobRef:      "blob-1.pdf",
		Document:     &domain.Document{SizeBytes: int64(len(raw)), SentimentScore: 0.5},
	}, nil
}

type analyticsFake struct {
	out *domain.Analytics
	err error

	gotKeyword string
}

func (f *analyticsFake) Analyze(_ context.Context, customerID, keyword string) (*domain.Analytics, error) {
	f.gotKeyword = keyword
	if f.err != nil {
		return nil, f.err
	}
	if f.out != nil {
		return f.out, nil
	}
	return &domain.Analytics{CustomerID: customerID}, nil
}

func (f *analyticsFake) WriteReport(_ context.Context, _ string, w io.Writer) error {
	if f.err != nil {
		return f.err
	}
	_, err := io.WriteString(w, "PK-workbook")
	return err
}

type docsFake struct {
	doc     *domain.Document
	page    *domain.DocumentPage
	content []byte
	err     error

	gotPage    int
	gotPerPage int
}

func (f *docsFake) GetDocument(context.Context, string, string) (*domain.Document, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.doc, nil
}

func (f *docsFake) ListDocuments(_ context.Context, _ string, page, perPage int) (*domain.DocumentPage, error) {
	f.gotPage = page
	f.gotPerPage = perPage
	if f.err != nil {
		return nil, f.err
	}
	if f.page != nil {
		return f.page, nil
	}
	return &domain.DocumentPage{Documents: []domain.Document{}, Page: 1, PerPage: 20}, nil
}

func (f *docsFake) OpenContent(context.Context, string, string) (io.ReadCloser, *domain.Document, error) {
	if f.err != nil {
		return nil, nil, f.err
	}
	return io.NopCloser(bytes.NewReader(f.content)), f.doc, nil
}

func sampleDocument() *domain.Document {
	return &domain.Document{
		CustomerID:     "customer_a",
		ContentHash:    testHash,
		BlobRef:        "blob-1.pdf",
		Filename:       "report.pdf",
		SizeBytes:      8,
		PageCount:      1,
		ExtractedText:  "great news",
		SentimentScore: 1,
		CreatedAt:      time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC),
	}
}
