package httpadapter

import (
	"bytes"
	"mime"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

func (rt *Router) analyze(w http.ResponseWriter, r *http.Request) {
	keyword := r.URL.Query().Get("keyword")
	out, err := rt.analytics.Analyze(r.Context(), chi.URLParam(r, "customer_id"), keyword)
	if err != nil {
		writeError(w, r, "analyze", err)
		return
	}
	if rt.metrics != nil {
		rt.metrics.RecordAnalyticsQuery(metricsService, out.Keyword != "")
	}
	writeJSON(w, http.StatusOK, out)
}

func (rt *Router) analyticsReport(w http.ResponseWriter, r *http.Request) {
	customerID := chi.URLParam(r, "customer_id")

	// Rendered into memory first so a failure can still produce a JSON error.
	var buf bytes.Buffer
	if err := rt.analytics.WriteReport(r.Context(), customerID, &buf); err != nil {
		writeError(w, r, "analytics report", err)
		return
	}

	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": customerID + "-report.xlsx"}))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}
