package httpadapter

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/kirillkom/docintake/internal/core/domain"
)

const uploadField = "file"

func (rt *Router) uploadDocument(w http.ResponseWriter, r *http.Request) {
	customerID := chi.URLParam(r, "customer_id")

	if rt.cfg.MaxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, rt.cfg.MaxUploadBytes+multipartOverhead)
	}
	reader, err := r.MultipartReader()
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "multipart field 'file' is required"})
		return
	}

	var part io.ReadCloser
	var filename string
	for {
		p, err := reader.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			rt.recordIngest("failed", nil)
			writeError(w, r, "upload document", tooLargeOr(err, domain.WrapError(domain.ErrInvalidInput, "read multipart", err)))
			return
		}
		if p.FormName() == uploadField {
			part = p
			filename = p.FileName()
			break
		}
		_ = p.Close()
	}
	if part == nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "multipart field 'file' is required"})
		return
	}
	defer part.Close()

	result, err := rt.ingestor.Ingest(r.Context(), customerID, filename, part)
	if err != nil {
		rt.recordIngest("failed", nil)
		writeError(w, r, "upload document", tooLargeOr(err, err))
		return
	}

	rt.recordIngest(string(result.Status), result.Document)
	status := http.StatusCreated
	if result.Status == domain.IngestDuplicate {
		status = http.StatusOK
	}
	writeJSON(w, status, result)
}

func (rt *Router) listDocuments(w http.ResponseWriter, r *http.Request) {
	page, err := queryInt(r, "page")
	if err != nil {
		writeError(w, r, "list documents", err)
		return
	}
	perPage, err := queryInt(r, "per_page")
	if err != nil {
		writeError(w, r, "list documents", err)
		return
	}

	out, err := rt.documents.ListDocuments(r.Context(), chi.URLParam(r, "customer_id"), page, perPage)
	if err != nil {
		writeError(w, r, "list documents", err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (rt *Router) getDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := rt.documents.GetDocument(r.Context(), chi.URLParam(r, "customer_id"), chi.URLParam(r, "document_hash"))
	if err != nil {
		writeError(w, r, "get document", err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (rt *Router) getDocumentContent(w http.ResponseWriter, r *http.Request) {
	rc, doc, err := rt.documents.OpenContent(r.Context(), chi.URLParam(r, "customer_id"), chi.URLParam(r, "document_hash"))
	if err != nil {
		writeError(w, r, "get document content", err)
		return
	}
	defer rc.Close()

	filename := doc.Filename
	if filename == "" {
		filename = doc.ContentHash + ".pdf"
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": filename}))
	if doc.SizeBytes > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(doc.SizeBytes, 10))
	}
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, rc); err != nil {
		slog.Warn("document_content_copy_failed",
			"request_id", requestIDFromContext(r.Context()),
			"document_hash", doc.ContentHash,
			"error", err,
		)
	}
}

func (rt *Router) recordIngest(outcome string, doc *domain.Document) {
	if rt.metrics == nil {
		return
	}
	var size int64
	var score float64
	if doc != nil {
		size = doc.SizeBytes
		score = doc.SentimentScore
	}
	rt.metrics.RecordIngest(metricsService, outcome, size, score)
}

// tooLargeOr reports a body that tripped http.MaxBytesReader as too large
// and returns fallback otherwise.
func tooLargeOr(err, fallback error) error {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return domain.WrapError(domain.ErrPayloadTooLarge, "read upload", fmt.Errorf("request body exceeds %d bytes", maxErr.Limit))
	}
	return fallback
}

func queryInt(r *http.Request, key string) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, domain.WrapError(domain.ErrInvalidInput, "parse query", fmt.Errorf("%s must be a positive integer", key))
	}
	return n, nil
}
