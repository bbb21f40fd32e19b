package pdftext

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/kirillkom/docintake/internal/core/domain"
)

const pdfMIME = "application/pdf"

// Extractor pulls plain text out of PDF uploads. Pages without a text layer
// contribute nothing; a document that has no text at all is a valid result.
type Extractor struct {
	conf *model.Configuration
}

func NewExtractor() *Extractor {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return &Extractor{conf: conf}
}

func (e *Extractor) Extract(ctx context.Context, data []byte) (domain.Extraction, error) {
	if mt := mimetype.Detect(data); !mt.Is(pdfMIME) {
		return domain.Extraction{}, domain.WrapError(
			domain.ErrInvalidInput,
			"detect content type",
			fmt.Errorf("expected %s, got %s", pdfMIME, mt.String()),
		)
	}

	pageCount, err := api.PageCount(bytes.NewReader(data), e.conf)
	if err != nil {
		return domain.Extraction{}, domain.WrapError(domain.ErrIngestion, "validate pdf", err)
	}

	text, err := e.readText(ctx, data)
	if err != nil {
		return domain.Extraction{}, err
	}
	return domain.Extraction{Text: text, PageCount: pageCount}, nil
}

func (e *Extractor) readText(ctx context.Context, data []byte) (text string, err error) {
	// The text decoder panics on some malformed content streams.
	defer func() {
		if r := recover(); r != nil {
			err = domain.WrapError(domain.ErrIngestion, "extract text", fmt.Errorf("pdf decoder panic: %v", r))
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", domain.WrapError(domain.ErrIngestion, "open pdf", err)
	}

	pages := make([]string, 0, reader.NumPage())
	for i := 1; i <= reader.NumPage(); i++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			slog.Debug("pdf_page_without_text", "page", i, "error", err)
			continue
		}
		if pageText = strings.TrimSpace(pageText); pageText != "" {
			pages = append(pages, pageText)
		}
	}
	return strings.Join(pages, "\n\n"), nil
}
