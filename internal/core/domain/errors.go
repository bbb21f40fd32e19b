package domain

import (
	"errors"
	"fmt"
)

var (
	ErrDocumentNotFound   = errors.New("document not found")
	ErrDuplicateDocument  = errors.New("duplicate document")
	ErrInvalidInput       = errors.New("invalid input")
	ErrPayloadTooLarge    = errors.New("payload too large")
	ErrIngestion          = errors.New("ingestion failed")
	ErrStorageUnavailable = errors.New("storage unavailable")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}
