package usecase

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/kirillkom/docintake/internal/core/domain"
)

type memoryRepo struct {
	mu   sync.Mutex
	docs map[string]domain.Document

	insertErr error
	findErr   error
	statsErr  error
	// hideOnFirstFind simulates a concurrent writer: the first lookup misses
	// although the record is committed by the time Insert runs.
	hideOnFirstFind bool
	finds           int
	inserts         int
	lists           int
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{docs: make(map[string]domain.Document)}
}

func repoKey(customerID, hash string) string {
	return customerID + "\x00" + hash
}

func (r *memoryRepo) Insert(_ context.Context, doc *domain.Document) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.inserts++
	if r.insertErr != nil {
		return r.insertErr
	}
	key := repoKey(doc.CustomerID, doc.ContentHash)
	if _, ok := r.docs[key]; ok {
		return domain.WrapError(domain.ErrDuplicateDocument, "insert document", fmt.Errorf("hash=%s", doc.ContentHash))
	}
	r.docs[key] = *doc
	return nil
}

func (r *memoryRepo) FindByHash(_ context.Context, customerID, hash string) (*domain.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.finds++
	if r.findErr != nil {
		return nil, r.findErr
	}
	doc, ok := r.docs[repoKey(customerID, hash)]
	if !ok || (r.hideOnFirstFind && r.finds == 1) {
		return nil, domain.WrapError(domain.ErrDocumentNotFound, "find document", fmt.Errorf("hash=%s", hash))
	}
	return &doc, nil
}

func (r *memoryRepo) customerDocs(customerID string) []domain.Document {
	out := make([]domain.Document, 0)
	for _, doc := range r.docs {
		if doc.CustomerID == customerID {
			out = append(out, doc)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ContentHash < out[j].ContentHash })
	return out
}

func (r *memoryRepo) List(_ context.Context, customerID string, offset, limit int) ([]domain.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lists++
	docs := r.customerDocs(customerID)
	if offset >= len(docs) {
		return nil, nil
	}
	end := offset + limit
	if end > len(docs) {
		end = len(docs)
	}
	return docs[offset:end], nil
}

func (r *memoryRepo) Stats(_ context.Context, customerID string) (domain.CustomerStats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.statsErr != nil {
		return domain.CustomerStats{}, r.statsErr
	}
	docs := r.customerDocs(customerID)
	stats := domain.CustomerStats{DocumentCount: len(docs)}
	if len(docs) == 0 {
		return stats, nil
	}
	var sum float64
	for _, doc := range docs {
		sum += doc.SentimentScore
	}
	stats.AverageSentiment = sum / float64(len(docs))
	return stats, nil
}

func (r *memoryRepo) MatchKeyword(_ context.Context, customerID, keyword string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0)
	for _, doc := range r.customerDocs(customerID) {
		if domain.MatchesKeyword(doc.ExtractedText, keyword) {
			out = append(out, doc.ContentHash)
		}
	}
	return out, nil
}

type memoryBlobs struct {
	mu      sync.Mutex
	blobs   map[string][]byte
	puts    int
	deletes []string
	putErr  error
	delErr  error
}

func newMemoryBlobs() *memoryBlobs {
	return &memoryBlobs{blobs: make(map[string][]byte)}
}

func (b *memoryBlobs) Put(_ context.Context, data []byte) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.putErr != nil {
		return "", b.putErr
	}
	b.puts++
	ref := fmt.Sprintf("blob-%d.pdf", b.puts)
	b.blobs[ref] = append([]byte(nil), data...)
	return ref, nil
}

func (b *memoryBlobs) Open(_ context.Context, ref string) (io.ReadCloser, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	data, ok := b.blobs[ref]
	if !ok {
		return nil, domain.WrapError(domain.ErrDocumentNotFound, "open blob", errors.New(ref))
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (b *memoryBlobs) Delete(_ context.Context, ref string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.deletes = append(b.deletes, ref)
	if b.delErr != nil {
		return b.delErr
	}
	delete(b.blobs, ref)
	return nil
}

type extractorFake struct {
	text  string
	pages int
	err   error
	calls int
}

func (f *extractorFake) Extract(context.Context, []byte) (domain.Extraction, error) {
	f.calls++
	if f.err != nil {
		return domain.Extraction{}, f.err
	}
	return domain.Extraction{Text: f.text, PageCount: f.pages}, nil
}

type scorerFake struct {
	score float64
	seen  []string
}

func (f *scorerFake) Score(text string) float64 {
	f.seen = append(f.seen, text)
	if text == "" {
		return 0
	}
	return f.score
}

type publisherFake struct {
	published []string
	err       error
}

func (f *publisherFake) PublishDocumentStored(_ context.Context, doc *domain.Document) error {
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, doc.ContentHash)
	return nil
}

type reportFake struct {
	analytics domain.Analytics
	docs      []domain.Document
}

func (f *reportFake) WriteDocumentReport(w io.Writer, analytics domain.Analytics, docs []domain.Document) error {
	f.analytics = analytics
	f.docs = docs
	_, err := io.WriteString(w, "report")
	return err
}
