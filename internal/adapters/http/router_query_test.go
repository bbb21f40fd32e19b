package httpadapter

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/kirillkom/docintake/internal/config"
	"github.com/kirillkom/docintake/internal/core/domain"
)

func serve(handler http.Handler, method, target string) *httptest.ResponseRecorder {
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(method, target, nil))
	return res
}

func TestAnalyticsReturnsAggregate(t *testing.T) {
	analytics := &analyticsFake{out: &domain.Analytics{
		CustomerID:       "customer_a",
		DocumentCount:    2,
		AverageSentiment: 0.25,
		Keyword:          "contract",
		Matches:          []string{testHash},
	}}
	handler := NewRouter(config.Config{}, &ingestFake{}, analytics, &docsFake{}).Handler()

	res := serve(handler, http.MethodGet, "/v1/customers/customer_a/analytics?keyword=Contract")
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	if analytics.gotKeyword != "Contract" {
		t.Fatalf("expected keyword to be passed through, got %q", analytics.gotKeyword)
	}

	var resp struct {
		DocumentCount    int      `json:"document_count"`
		AverageSentiment float64  `json:"average_sentiment"`
		Matches          []string `json:"matches"`
	}
	if err := json.NewDecoder(res.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.DocumentCount != 2 || resp.AverageSentiment != 0.25 || len(resp.Matches) != 1 {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestAnalyticsWithoutKeywordReturnsNullMatches(t *testing.T) {
	handler := NewRouter(config.Config{}, &ingestFake{}, &analyticsFake{}, &docsFake{}).Handler()

	res := serve(handler, http.MethodGet, "/v1/customers/nobody/analytics")
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	if !strings.Contains(res.Body.String(), `"matches":null`) {
		t.Fatalf("expected null matches, got %s", res.Body.String())
	}
}

func TestAnalyticsStorageErrorReturns503(t *testing.T) {
	analytics := &analyticsFake{err: domain.WrapError(domain.ErrStorageUnavailable, "stats", errors.New("down"))}
	handler := NewRouter(config.Config{}, &ingestFake{}, analytics, &docsFake{}).Handler()

	if res := serve(handler, http.MethodGet, "/v1/customers/customer_a/analytics"); res.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", res.Code)
	}
}

func TestListDocumentsParsesPagination(t *testing.T) {
	docs := &docsFake{}
	handler := NewRouter(config.Config{}, &ingestFake{}, &analyticsFake{}, docs).Handler()

	res := serve(handler, http.MethodGet, "/v1/customers/customer_a/documents?page=3&per_page=10")
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	if docs.gotPage != 3 || docs.gotPerPage != 10 {
		t.Fatalf("unexpected pagination %d/%d", docs.gotPage, docs.gotPerPage)
	}

	for _, target := range []string{
		"/v1/customers/customer_a/documents?page=abc",
		"/v1/customers/customer_a/documents?per_page=0",
	} {
		if res := serve(handler, http.MethodGet, target); res.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", target, res.Code)
		}
	}
}

func TestGetDocumentNotFoundReturns404(t *testing.T) {
	docs := &docsFake{err: domain.WrapError(domain.ErrDocumentNotFound, "get", errors.New(testHash))}
	handler := NewRouter(config.Config{}, &ingestFake{}, &analyticsFake{}, docs).Handler()

	if res := serve(handler, http.MethodGet, "/v1/customers/customer_a/documents/"+testHash); res.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", res.Code)
	}
}

func TestGetDocumentReturnsRecord(t *testing.T) {
	handler := NewRouter(config.Config{}, &ingestFake{}, &analyticsFake{}, &docsFake{doc: sampleDocument()}).Handler()

	res := serve(handler, http.MethodGet, "/v1/customers/customer_a/documents/"+testHash)
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	var doc domain.Document
	if err := json.NewDecoder(res.Body).Decode(&doc); err != nil {
		t.Fatalf("decode document: %v", err)
	}
	if doc.ContentHash != testHash || doc.ExtractedText != "great news" {
		t.Fatalf("unexpected document: %+v", doc)
	}
}

func TestGetDocumentContentStreamsPDF(t *testing.T) {
	docs := &docsFake{doc: sampleDocument(), content: []byte("%PDF-1.4")}
	handler := NewRouter(config.Config{}, &ingestFake{}, &analyticsFake{}, docs).Handler()

	res := serve(handler, http.MethodGet, "/v1/customers/customer_a/documents/"+testHash+"/content")
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	if ct := res.Header().Get("Content-Type"); ct != "application/pdf" {
		t.Fatalf("unexpected content type %q", ct)
	}
	if cd := res.Header().Get("Content-Disposition"); !strings.Contains(cd, "report.pdf") {
		t.Fatalf("unexpected content disposition %q", cd)
	}
	if res.Body.String() != "%PDF-1.4" {
		t.Fatalf("unexpected body %q", res.Body.String())
	}
}

func TestAnalyticsReportReturnsWorkbook(t *testing.T) {
	handler := NewRouter(config.Config{}, &ingestFake{}, &analyticsFake{}, &docsFake{}).Handler()

	res := serve(handler, http.MethodGet, "/v1/customers/customer_a/analytics/report.xlsx")
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	if ct := res.Header().Get("Content-Type"); ct != xlsxContentType {
		t.Fatalf("unexpected content type %q", ct)
	}
	if res.Body.String() != "PK-workbook" {
		t.Fatalf("unexpected body %q", res.Body.String())
	}
}

func TestUnknownRouteReturnsJSON404(t *testing.T) {
	handler := NewRouter(config.Config{}, &ingestFake{}, &analyticsFake{}, &docsFake{}).Handler()

	res := serve(handler, http.MethodGet, "/v1/unknown")
	if res.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", res.Code)
	}
	if ct := res.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("expected JSON error, got %q", ct)
	}
}
