package gcs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/google/uuid"
	"google.golang.org/api/googleapi"

	"github.com/kirillkom/docintake/internal/core/domain"
	"github.com/kirillkom/docintake/internal/infrastructure/resilience"
)

type Options struct {
	Prefix    string
	Executor  *resilience.Executor
	Operation string
}

// Storage keeps blobs as objects in one bucket. Objects are written with a
// DoesNotExist precondition, so a ref is never overwritten.
type Storage struct {
	client    *storage.Client
	bucket    *storage.BucketHandle
	prefix    string
	executor  *resilience.Executor
	operation string
}

func New(ctx context.Context, bucket string, opts Options) (*Storage, error) {
	if strings.TrimSpace(bucket) == "" {
		return nil, fmt.Errorf("gcs bucket is required")
	}
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}
	operation := opts.Operation
	if operation == "" {
		operation = "gcs"
	}
	return &Storage{
		client:    client,
		bucket:    client.Bucket(bucket),
		prefix:    strings.Trim(opts.Prefix, "/"),
		executor:  opts.Executor,
		operation: operation,
	}, nil
}

func (s *Storage) Put(ctx context.Context, data []byte) (string, error) {
	ref := uuid.NewString() + ".pdf"
	err := s.execute(ctx, "put", func(ctx context.Context) error {
		w := s.bucket.Object(s.objectName(ref)).If(storage.Conditions{DoesNotExist: true}).NewWriter(ctx)
		w.ContentType = "application/pdf"
		if _, err := io.Copy(w, bytes.NewReader(data)); err != nil {
			_ = w.Close()
			return err
		}
		return w.Close()
	})
	if err != nil {
		if isPreconditionFailed(err) {
			return "", domain.WrapError(domain.ErrStorageUnavailable, "put blob", fmt.Errorf("ref %s already exists", ref))
		}
		return "", domain.WrapError(domain.ErrStorageUnavailable, "put blob", err)
	}
	return ref, nil
}

func (s *Storage) Open(ctx context.Context, ref string) (io.ReadCloser, error) {
	if err := validateRef(ref); err != nil {
		return nil, err
	}
	var reader *storage.Reader
	err := s.execute(ctx, "open", func(ctx context.Context) error {
		r, err := s.bucket.Object(s.objectName(ref)).NewReader(ctx)
		if err != nil {
			return err
		}
		reader = r
		return nil
	})
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, domain.WrapError(domain.ErrDocumentNotFound, "open blob", fmt.Errorf("ref=%s", ref))
		}
		return nil, domain.WrapError(domain.ErrStorageUnavailable, "open blob", err)
	}
	return reader, nil
}

func (s *Storage) Delete(ctx context.Context, ref string) error {
	if err := validateRef(ref); err != nil {
		return err
	}
	err := s.execute(ctx, "delete", func(ctx context.Context) error {
		err := s.bucket.Object(s.objectName(ref)).Delete(ctx)
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil
		}
		return err
	})
	if err != nil {
		return domain.WrapError(domain.ErrStorageUnavailable, "delete blob", err)
	}
	return nil
}

func (s *Storage) Close() error {
	return s.client.Close()
}

func (s *Storage) execute(ctx context.Context, action string, fn func(context.Context) error) error {
	if s.executor == nil {
		return fn(ctx)
	}
	return s.executor.Execute(ctx, s.operation+"."+action, fn, classifyError)
}

func (s *Storage) objectName(ref string) string {
	if s.prefix == "" {
		return ref
	}
	return path.Join(s.prefix, ref)
}

func validateRef(ref string) error {
	if ref == "" || strings.Contains(ref, "/") || ref == "." || ref == ".." {
		return domain.WrapError(domain.ErrInvalidInput, "resolve blob", fmt.Errorf("invalid ref %q", ref))
	}
	return nil
}

func isPreconditionFailed(err error) bool {
	var gerr *googleapi.Error
	return errors.As(err, &gerr) && gerr.Code == http.StatusPreconditionFailed
}

// classifyError keeps answers that prove the bucket is reachable from
// tripping the breaker.
func classifyError(err error) resilience.ErrorClassification {
	if errors.Is(err, storage.ErrObjectNotExist) || isPreconditionFailed(err) {
		return resilience.ErrorClassification{RecordFailure: false}
	}
	var gerr *googleapi.Error
	if errors.As(err, &gerr) && gerr.Code >= 400 && gerr.Code < 500 && gerr.Code != http.StatusTooManyRequests {
		return resilience.ErrorClassification{RecordFailure: false}
	}
	return resilience.ContextClassifier(err)
}
