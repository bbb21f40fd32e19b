package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/kirillkom/docintake/internal/config"
	"github.com/kirillkom/docintake/internal/core/ports"
	"github.com/kirillkom/docintake/internal/core/usecase"
	"github.com/kirillkom/docintake/internal/infrastructure/extractor/pdftext"
	"github.com/kirillkom/docintake/internal/infrastructure/queue/nats"
	"github.com/kirillkom/docintake/internal/infrastructure/report/xlsx"
	firestorerepo "github.com/kirillkom/docintake/internal/infrastructure/repository/firestore"
	"github.com/kirillkom/docintake/internal/infrastructure/repository/postgres"
	"github.com/kirillkom/docintake/internal/infrastructure/resilience"
	"github.com/kirillkom/docintake/internal/infrastructure/sentiment"
	"github.com/kirillkom/docintake/internal/infrastructure/storage/gcs"
	"github.com/kirillkom/docintake/internal/infrastructure/storage/localfs"
	"github.com/kirillkom/docintake/internal/observability/metrics"
)

// App holds the process-wide handles. They are created once at startup and
// released by Close.
type App struct {
	Config config.Config

	Repo     ports.DocumentRepository
	Blobs    ports.BlobStore
	IngestUC *usecase.IngestDocumentUseCase
	QueryUC  *usecase.QueryUseCase
	Metrics  *metrics.HTTPServerMetrics

	closers []func()
}

func New(ctx context.Context, cfg config.Config) (app *App, err error) {
	app = &App{Config: cfg}
	defer func() {
		if err != nil {
			app.Close()
			app = nil
		}
	}()

	executor := resilience.NewExecutor(resilience.Config{
		BreakerEnabled:          cfg.StorageBreakerEnabled,
		BreakerMinRequests:      10,
		BreakerFailureRatio:     0.5,
		BreakerOpenTimeout:      resilience.DefaultConfig().BreakerOpenTimeout,
		BreakerHalfOpenMaxCalls: 2,
	})

	repo, err := app.openMetadataStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	blobs, err := app.openBlobStore(ctx, cfg, executor)
	if err != nil {
		return nil, err
	}
	scorer, err := newScorer(cfg.SentimentLexiconPath)
	if err != nil {
		return nil, err
	}

	opts := []usecase.IngestOption{usecase.WithMaxUploadBytes(cfg.MaxUploadBytes)}
	if cfg.NATSURL != "" {
		publisher, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
			ResilienceExecutor: executor,
		})
		if err != nil {
			return nil, fmt.Errorf("init event publisher: %w", err)
		}
		app.closers = append(app.closers, publisher.Close)
		opts = append(opts, usecase.WithEventPublisher(publisher))
	} else {
		slog.Info("event_publishing_disabled")
	}

	app.Repo = repo
	app.Blobs = blobs
	app.IngestUC = usecase.NewIngestDocumentUseCase(repo, blobs, pdftext.NewExtractor(), scorer, opts...)
	app.QueryUC = usecase.NewQueryUseCase(repo, blobs, xlsx.NewWriter())
	app.Metrics = metrics.NewHTTPServerMetrics("api")
	return app, nil
}

func (a *App) openMetadataStore(ctx context.Context, cfg config.Config) (ports.DocumentRepository, error) {
	switch cfg.MetadataBackend {
	case config.MetadataBackendPostgres:
		db, err := postgres.OpenDB(cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		a.closers = append(a.closers, func() { _ = db.Close() })
		repo := postgres.NewDocumentRepository(db)
		if err := repo.EnsureSchema(ctx); err != nil {
			return nil, fmt.Errorf("ensure schema: %w", err)
		}
		return repo, nil
	case config.MetadataBackendFirestore:
		client, err := firestorerepo.NewClient(ctx, cfg.FirestoreProjectID)
		if err != nil {
			return nil, fmt.Errorf("open firestore: %w", err)
		}
		a.closers = append(a.closers, func() { _ = client.Close() })
		return firestorerepo.NewDocumentRepository(client, cfg.FirestoreCollection), nil
	default:
		return nil, fmt.Errorf("unknown metadata backend %q", cfg.MetadataBackend)
	}
}

func (a *App) openBlobStore(ctx context.Context, cfg config.Config, executor *resilience.Executor) (ports.BlobStore, error) {
	switch cfg.BlobBackend {
	case config.BlobBackendLocalFS:
		store, err := localfs.New(cfg.StoragePath)
		if err != nil {
			return nil, fmt.Errorf("init blob storage: %w", err)
		}
		return store, nil
	case config.BlobBackendGCS:
		store, err := gcs.New(ctx, cfg.GCSBucket, gcs.Options{
			Prefix:   cfg.GCSPrefix,
			Executor: executor,
		})
		if err != nil {
			return nil, fmt.Errorf("init blob storage: %w", err)
		}
		a.closers = append(a.closers, func() { _ = store.Close() })
		return store, nil
	default:
		return nil, fmt.Errorf("unknown blob backend %q", cfg.BlobBackend)
	}
}

func newScorer(lexiconPath string) (*sentiment.Analyzer, error) {
	if lexiconPath == "" {
		return sentiment.NewAnalyzer(sentiment.DefaultLexicon()), nil
	}
	lex, err := sentiment.LoadLexicon(lexiconPath)
	if err != nil {
		return nil, fmt.Errorf("load sentiment lexicon: %w", err)
	}
	return sentiment.NewAnalyzer(lex), nil
}

// Close releases handles in reverse order of creation.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
