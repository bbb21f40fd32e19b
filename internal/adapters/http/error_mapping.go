package httpadapter

import (
	"log/slog"
	"net/http"

	"github.com/kirillkom/docintake/internal/core/domain"
)

func mapErrorToHTTPStatus(err error) int {
	switch {
	case domain.IsKind(err, domain.ErrPayloadTooLarge):
		return http.StatusRequestEntityTooLarge
	case domain.IsKind(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case domain.IsKind(err, domain.ErrDocumentNotFound):
		return http.StatusNotFound
	case domain.IsKind(err, domain.ErrIngestion):
		return http.StatusUnprocessableEntity
	case domain.IsKind(err, domain.ErrStorageUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// writeError maps err to a status and hides internal details behind a
// generic message for 5xx answers.
func writeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	status := mapErrorToHTTPStatus(err)
	message := err.Error()
	switch {
	case status == http.StatusServiceUnavailable:
		message = "storage temporarily unavailable"
	case status >= http.StatusInternalServerError:
		message = "internal error"
	}
	if status >= http.StatusInternalServerError {
		slog.Error("request_failed",
			"request_id", requestIDFromContext(r.Context()),
			"operation", op,
			"status", status,
			"error", err,
		)
	}
	writeJSON(w, status, map[string]string{"error": message})
}
