package firestore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"cloud.google.com/go/firestore/apiv1/firestorepb"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/kirillkom/docintake/internal/core/domain"
)

const (
	fieldCustomerID     = "customer_id"
	fieldSentimentScore = "sentiment_score"
	fieldCreatedAt      = "created_at"

	aliasCount = "count"
	aliasAvg   = "avg"
)

type record struct {
	CustomerID     string    `firestore:"customer_id"`
	ContentHash    string    `firestore:"content_hash"`
	BlobRef        string    `firestore:"blob_ref"`
	Filename       string    `firestore:"filename"`
	SizeBytes      int64     `firestore:"size_bytes"`
	PageCount      int       `firestore:"page_count"`
	ExtractedText  string    `firestore:"extracted_text"`
	SentimentScore float64   `firestore:"sentiment_score"`
	CreatedAt      time.Time `firestore:"created_at"`
}

// DocumentRepository keeps one Firestore document per record. The document
// ID is derived from the customer and the hash, so Create is an atomic
// insert-or-reject.
type DocumentRepository struct {
	client     *firestore.Client
	collection string
}

func NewClient(ctx context.Context, projectID string) (*firestore.Client, error) {
	if strings.TrimSpace(projectID) == "" {
		return nil, fmt.Errorf("firestore project id is required")
	}
	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("create firestore client: %w", err)
	}
	return client, nil
}

func NewDocumentRepository(client *firestore.Client, collection string) *DocumentRepository {
	if collection == "" {
		collection = "documents"
	}
	return &DocumentRepository{client: client, collection: collection}
}

func (r *DocumentRepository) Insert(ctx context.Context, doc *domain.Document) error {
	ref := r.client.Collection(r.collection).Doc(documentID(doc.CustomerID, doc.ContentHash))
	if _, err := ref.Create(ctx, toRecord(doc)); err != nil {
		if status.Code(err) == codes.AlreadyExists {
			return domain.WrapError(
				domain.ErrDuplicateDocument,
				"insert document",
				fmt.Errorf("customer_id=%s hash=%s", doc.CustomerID, doc.ContentHash),
			)
		}
		return domain.WrapError(domain.ErrStorageUnavailable, "insert document", err)
	}
	return nil
}

func (r *DocumentRepository) FindByHash(ctx context.Context, customerID, hash string) (*domain.Document, error) {
	snap, err := r.client.Collection(r.collection).Doc(documentID(customerID, hash)).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, domain.WrapError(domain.ErrDocumentNotFound, "find document", fmt.Errorf("hash=%s", hash))
		}
		return nil, domain.WrapError(domain.ErrStorageUnavailable, "find document", err)
	}
	var rec record
	if err := snap.DataTo(&rec); err != nil {
		return nil, domain.WrapError(domain.ErrStorageUnavailable, "decode document", err)
	}
	return fromRecord(rec), nil
}

func (r *DocumentRepository) List(ctx context.Context, customerID string, offset, limit int) ([]domain.Document, error) {
	if limit <= 0 {
		return nil, nil
	}
	iter := r.listQuery(customerID, offset, limit).Documents(ctx)
	defer iter.Stop()

	out := make([]domain.Document, 0, limit)
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, domain.WrapError(domain.ErrStorageUnavailable, "list documents", err)
		}
		var rec record
		if err := snap.DataTo(&rec); err != nil {
			return nil, domain.WrapError(domain.ErrStorageUnavailable, "decode document", err)
		}
		out = append(out, *fromRecord(rec))
	}
	return out, nil
}

func (r *DocumentRepository) Stats(ctx context.Context, customerID string) (domain.CustomerStats, error) {
	result, err := r.statsQuery(customerID).Get(ctx)
	if err != nil {
		return domain.CustomerStats{}, domain.WrapError(domain.ErrStorageUnavailable, "document stats", err)
	}
	stats, err := statsFromAggregation(result)
	if err != nil {
		return domain.CustomerStats{}, domain.WrapError(domain.ErrStorageUnavailable, "document stats", err)
	}
	return stats, nil
}

// MatchKeyword scans the customer's records. Firestore has no substring
// predicate, so matching happens client side with the shared rule.
func (r *DocumentRepository) MatchKeyword(ctx context.Context, customerID, keyword string) ([]string, error) {
	out := make([]string, 0)
	if keyword == "" {
		return out, nil
	}
	iter := r.keywordQuery(customerID).Documents(ctx)
	defer iter.Stop()

	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, domain.WrapError(domain.ErrStorageUnavailable, "match keyword", err)
		}
		var rec record
		if err := snap.DataTo(&rec); err != nil {
			return nil, domain.WrapError(domain.ErrStorageUnavailable, "decode document", err)
		}
		if domain.MatchesKeyword(rec.ExtractedText, keyword) {
			out = append(out, rec.ContentHash)
		}
	}
	return out, nil
}

func (r *DocumentRepository) customerQuery(customerID string) firestore.Query {
	return r.client.Collection(r.collection).Where(fieldCustomerID, "==", customerID)
}

// Newest first. Records created in the same instant fall back to the
// document ID, which orders by hash within one customer. The ordering needs
// a composite index on (customer_id ASC, created_at DESC, __name__ ASC).
func (r *DocumentRepository) orderedQuery(customerID string) firestore.Query {
	return r.customerQuery(customerID).
		OrderBy(fieldCreatedAt, firestore.Desc).
		OrderBy(firestore.DocumentID, firestore.Asc)
}

func (r *DocumentRepository) listQuery(customerID string, offset, limit int) firestore.Query {
	return r.orderedQuery(customerID).
		Select("customer_id", "content_hash", "blob_ref", "filename", "size_bytes", "page_count", "sentiment_score", "created_at").
		Offset(offset).
		Limit(limit)
}

func (r *DocumentRepository) keywordQuery(customerID string) firestore.Query {
	return r.orderedQuery(customerID).Select("content_hash", "extracted_text")
}

func (r *DocumentRepository) statsQuery(customerID string) *firestore.AggregationQuery {
	q := r.customerQuery(customerID)
	return q.NewAggregationQuery().
		WithCount(aliasCount).
		WithAvg(fieldSentimentScore, aliasAvg)
}

func documentID(customerID, hash string) string {
	return customerID + "_" + hash
}

func toRecord(doc *domain.Document) record {
	return record{
		CustomerID:     doc.CustomerID,
		ContentHash:    doc.ContentHash,
		BlobRef:        doc.BlobRef,
		Filename:       doc.Filename,
		SizeBytes:      doc.SizeBytes,
		PageCount:      doc.PageCount,
		ExtractedText:  doc.ExtractedText,
		SentimentScore: doc.SentimentScore,
		CreatedAt:      doc.CreatedAt.UTC(),
	}
}

func fromRecord(rec record) *domain.Document {
	return &domain.Document{
		CustomerID:     rec.CustomerID,
		ContentHash:    rec.ContentHash,
		BlobRef:        rec.BlobRef,
		Filename:       rec.Filename,
		SizeBytes:      rec.SizeBytes,
		PageCount:      rec.PageCount,
		ExtractedText:  rec.ExtractedText,
		SentimentScore: rec.SentimentScore,
		CreatedAt:      rec.CreatedAt.UTC(),
	}
}

// statsFromAggregation reads the count and average aliases. An average over
// zero documents comes back as a null value and is reported as 0.
func statsFromAggregation(result firestore.AggregationResult) (domain.CustomerStats, error) {
	countVal, ok := result[aliasCount].(*firestorepb.Value)
	if !ok {
		return domain.CustomerStats{}, fmt.Errorf("aggregation result missing %q", aliasCount)
	}
	stats := domain.CustomerStats{DocumentCount: int(countVal.GetIntegerValue())}

	avgVal, ok := result[aliasAvg].(*firestorepb.Value)
	if !ok {
		return domain.CustomerStats{}, fmt.Errorf("aggregation result missing %q", aliasAvg)
	}
	switch v := avgVal.GetValueType().(type) {
	case *firestorepb.Value_DoubleValue:
		stats.AverageSentiment = v.DoubleValue
	case *firestorepb.Value_IntegerValue:
		stats.AverageSentiment = float64(v.IntegerValue)
	case *firestorepb.Value_NullValue, nil:
		stats.AverageSentiment = 0
	default:
		return domain.CustomerStats{}, fmt.Errorf("unexpected average type %T", v)
	}
	if stats.DocumentCount == 0 {
		stats.AverageSentiment = 0
	}
	return stats, nil
}
