package usecase

import (
	"bytes"
	"context"
	"errors"
	"io"
	"math"
	"testing"
	"time"

	"github.com/kirillkom/docintake/internal/core/domain"
)

func seedDocument(repo *memoryRepo, blobs *memoryBlobs, customerID, body, text string, score float64) domain.Document {
	hash := domain.ContentHash([]byte(body))
	ref := "ref-" + hash[:8]
	blobs.blobs[ref] = []byte(body)
	doc := domain.Document{
		CustomerID:     customerID,
		ContentHash:    hash,
		BlobRef:        ref,
		ExtractedText:  text,
		SentimentScore: score,
		CreatedAt:      time.Now().UTC(),
	}
	repo.docs[repoKey(customerID, hash)] = doc
	return doc
}

func TestAnalyzeEmptyCustomerReturnsZeroAggregate(t *testing.T) {
	uc := NewQueryUseCase(newMemoryRepo(), newMemoryBlobs(), nil)

	out, err := uc.Analyze(context.Background(), "nobody", "contract")
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if out.DocumentCount != 0 || out.AverageSentiment != 0 {
		t.Fatalf("expected zero aggregate, got %+v", out)
	}
	if out.Matches == nil || len(out.Matches) != 0 {
		t.Fatalf("expected empty match list, got %v", out.Matches)
	}
}

func TestAnalyzeAveragesAndMatchesKeywordCaseInsensitively(t *testing.T) {
	repo := newMemoryRepo()
	blobs := newMemoryBlobs()
	withKeyword := seedDocument(repo, blobs, "customer_a", "one", "Signed Contract attached", 0.5)
	seedDocument(repo, blobs, "customer_a", "two", "invoice only", -0.25)
	seedDocument(repo, blobs, "customer_b", "three", "contract for b", 1)
	uc := NewQueryUseCase(repo, blobs, nil)

	out, err := uc.Analyze(context.Background(), "customer_a", "  contract ")
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if out.DocumentCount != 2 {
		t.Fatalf("expected 2 documents, got %d", out.DocumentCount)
	}
	if out.AverageSentiment != 0.125 {
		t.Fatalf("expected average 0.125, got %v", out.AverageSentiment)
	}
	if out.Keyword != "contract" {
		t.Fatalf("expected normalized keyword, got %q", out.Keyword)
	}
	if len(out.Matches) != 1 || out.Matches[0] != withKeyword.ContentHash {
		t.Fatalf("expected single match %s, got %v", withKeyword.ContentHash, out.Matches)
	}
}

func TestAnalyzeWithoutKeywordLeavesMatchesUnset(t *testing.T) {
	repo := newMemoryRepo()
	blobs := newMemoryBlobs()
	seedDocument(repo, blobs, "customer_a", "one", "text", 0.2)
	uc := NewQueryUseCase(repo, blobs, nil)

	out, err := uc.Analyze(context.Background(), "customer_a", "   ")
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if out.Matches != nil || out.Keyword != "" {
		t.Fatalf("expected no keyword section, got %+v", out)
	}
}

func TestAnalyzePropagatesStorageErrors(t *testing.T) {
	repo := newMemoryRepo()
	repo.statsErr = domain.WrapError(domain.ErrStorageUnavailable, "stats", errors.New("down"))
	uc := NewQueryUseCase(repo, newMemoryBlobs(), nil)

	_, err := uc.Analyze(context.Background(), "customer_a", "")
	if !domain.IsKind(err, domain.ErrStorageUnavailable) {
		t.Fatalf("expected ErrStorageUnavailable, got %v", err)
	}
}

func TestAnalyzeRequiresCustomer(t *testing.T) {
	uc := NewQueryUseCase(newMemoryRepo(), newMemoryBlobs(), nil)
	_, err := uc.Analyze(context.Background(), "", "")
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestListDocumentsPaginates(t *testing.T) {
	repo := newMemoryRepo()
	blobs := newMemoryBlobs()
	for _, body := range []string{"a", "b", "c"} {
		seedDocument(repo, blobs, "customer_a", body, body, 0)
	}
	uc := NewQueryUseCase(repo, blobs, nil)

	page, err := uc.ListDocuments(context.Background(), "customer_a", 2, 2)
	if err != nil {
		t.Fatalf("ListDocuments() error = %v", err)
	}
	if page.Total != 3 || page.Page != 2 || page.PerPage != 2 || len(page.Documents) != 1 {
		t.Fatalf("unexpected page: %+v", page)
	}

	defaults, err := uc.ListDocuments(context.Background(), "customer_a", 0, 0)
	if err != nil {
		t.Fatalf("ListDocuments() defaults error = %v", err)
	}
	if defaults.Page != 1 || defaults.PerPage != defaultPerPage || len(defaults.Documents) != 3 {
		t.Fatalf("unexpected default page: %+v", defaults)
	}

	beyond, err := uc.ListDocuments(context.Background(), "customer_a", 9, 2)
	if err != nil {
		t.Fatalf("ListDocuments() beyond error = %v", err)
	}
	if beyond.Documents == nil || len(beyond.Documents) != 0 {
		t.Fatalf("expected empty page beyond end, got %+v", beyond.Documents)
	}
}

func TestListDocumentsRejectsOversizedPage(t *testing.T) {
	uc := NewQueryUseCase(newMemoryRepo(), newMemoryBlobs(), nil)
	_, err := uc.ListDocuments(context.Background(), "customer_a", 1, maxPerPage+1)
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestListDocumentsRejectsPageThatWouldOverflowOffset(t *testing.T) {
	repo := newMemoryRepo()
	uc := NewQueryUseCase(repo, newMemoryBlobs(), nil)
	_, err := uc.ListDocuments(context.Background(), "c", math.MaxInt/100+2, 100)
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if repo.lists != 0 {
		t.Fatalf("expected no List call, got %d", repo.lists)
	}
}

func TestGetDocumentNotFound(t *testing.T) {
	uc := NewQueryUseCase(newMemoryRepo(), newMemoryBlobs(), nil)
	_, err := uc.GetDocument(context.Background(), "customer_a", domain.ContentHash([]byte("missing")))
	if !domain.IsKind(err, domain.ErrDocumentNotFound) {
		t.Fatalf("expected ErrDocumentNotFound, got %v", err)
	}
}

func TestGetDocumentIsScopedToCustomer(t *testing.T) {
	repo := newMemoryRepo()
	blobs := newMemoryBlobs()
	doc := seedDocument(repo, blobs, "customer_a", "body", "text", 0)
	uc := NewQueryUseCase(repo, blobs, nil)

	if _, err := uc.GetDocument(context.Background(), "customer_b", doc.ContentHash); !domain.IsKind(err, domain.ErrDocumentNotFound) {
		t.Fatalf("expected other customer to miss, got %v", err)
	}
}

func TestOpenContentReturnsStoredBytes(t *testing.T) {
	repo := newMemoryRepo()
	blobs := newMemoryBlobs()
	doc := seedDocument(repo, blobs, "customer_a", "%PDF-payload", "text", 0)
	uc := NewQueryUseCase(repo, blobs, nil)

	rc, got, err := uc.OpenContent(context.Background(), "customer_a", doc.ContentHash)
	if err != nil {
		t.Fatalf("OpenContent() error = %v", err)
	}
	defer rc.Close()
	raw, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("read content: %v", err)
	}
	if string(raw) != "%PDF-payload" || got.BlobRef != doc.BlobRef {
		t.Fatalf("unexpected content %q for %+v", raw, got)
	}
}

func TestWriteReportCollectsAllDocuments(t *testing.T) {
	repo := newMemoryRepo()
	blobs := newMemoryBlobs()
	seedDocument(repo, blobs, "customer_a", "one", "text", 1)
	seedDocument(repo, blobs, "customer_a", "two", "text", 0)
	report := &reportFake{}
	uc := NewQueryUseCase(repo, blobs, report)

	var buf bytes.Buffer
	if err := uc.WriteReport(context.Background(), "customer_a", &buf); err != nil {
		t.Fatalf("WriteReport() error = %v", err)
	}
	if buf.String() != "report" {
		t.Fatalf("expected report body, got %q", buf.String())
	}
	if report.analytics.DocumentCount != 2 || len(report.docs) != 2 {
		t.Fatalf("unexpected report input: %+v docs=%d", report.analytics, len(report.docs))
	}
}

func TestWriteReportWithoutWriterIsInvalid(t *testing.T) {
	uc := NewQueryUseCase(newMemoryRepo(), newMemoryBlobs(), nil)
	err := uc.WriteReport(context.Background(), "customer_a", io.Discard)
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}
