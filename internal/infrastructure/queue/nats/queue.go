package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/kirillkom/docintake/internal/core/domain"
	"github.com/kirillkom/docintake/internal/infrastructure/resilience"
)

// DocumentStoredEvent is the payload announced after a record was committed.
type DocumentStoredEvent struct {
	CustomerID     string    `json:"customer_id"`
	DocumentHash   string    `json:"document_hash"`
	BlobRef        string    `json:"blob_ref"`
	SentimentScore float64   `json:"sentiment_score"`
	CreatedAt      time.Time `json:"created_at"`
}

type Publisher struct {
	conn     *nats.Conn
	subject  string
	executor *resilience.Executor
}

type Options struct {
	ConnectTimeout       time.Duration
	ReconnectWait        time.Duration
	MaxReconnects        int
	RetryOnFailedConnect *bool
	ResilienceExecutor   *resilience.Executor
}

func New(url, subject string) (*Publisher, error) {
	return NewWithOptions(url, subject, Options{})
}

func NewWithOptions(url, subject string, options Options) (*Publisher, error) {
	connectTimeout := options.ConnectTimeout
	if connectTimeout <= 0 {
		connectTimeout = 2 * time.Second
	}
	reconnectWait := options.ReconnectWait
	if reconnectWait <= 0 {
		reconnectWait = 2 * time.Second
	}
	maxReconnects := options.MaxReconnects
	if maxReconnects <= 0 {
		maxReconnects = 60
	}
	retryOnFailedConnect := true
	if options.RetryOnFailedConnect != nil {
		retryOnFailedConnect = *options.RetryOnFailedConnect
	}
	if subject == "" {
		subject = "documents.stored"
	}

	conn, err := nats.Connect(
		url,
		nats.Name("docintake"),
		nats.Timeout(connectTimeout),
		nats.ReconnectWait(reconnectWait),
		nats.MaxReconnects(maxReconnects),
		nats.RetryOnFailedConnect(retryOnFailedConnect),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			slog.Warn("nats_disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			slog.Info("nats_reconnected", "url", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return &Publisher{
		conn:     conn,
		subject:  subject,
		executor: options.ResilienceExecutor,
	}, nil
}

func (p *Publisher) Close() {
	if p.conn != nil {
		p.conn.Close()
	}
}

func (p *Publisher) PublishDocumentStored(ctx context.Context, doc *domain.Document) error {
	payload, err := encodeStoredEvent(doc)
	if err != nil {
		return err
	}

	call := func(_ context.Context) error {
		if err := p.conn.Publish(p.subject, payload); err != nil {
			return fmt.Errorf("nats publish: %w", err)
		}
		return nil
	}

	if p.executor != nil {
		err = p.executor.Execute(ctx, "nats.publish", call, classifyNATSError)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return wrapUnavailableIfNeeded(err)
	}
	return nil
}

func encodeStoredEvent(doc *domain.Document) ([]byte, error) {
	if doc == nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "encode stored event", fmt.Errorf("document is nil"))
	}
	payload, err := json.Marshal(DocumentStoredEvent{
		CustomerID:     doc.CustomerID,
		DocumentHash:   doc.ContentHash,
		BlobRef:        doc.BlobRef,
		SentimentScore: doc.SentimentScore,
		CreatedAt:      doc.CreatedAt.UTC(),
	})
	if err != nil {
		return nil, fmt.Errorf("marshal stored event: %w", err)
	}
	return payload, nil
}
