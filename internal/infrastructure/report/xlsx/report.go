package xlsx

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/kirillkom/docintake/internal/core/domain"
)

const (
	summarySheet   = "Summary"
	documentsSheet = "Documents"
)

var documentHeader = []any{"document_hash", "filename", "size_bytes", "page_count", "sentiment_score", "created_at"}

// Writer renders a customer's analytics as a workbook with a Summary sheet
// and one Documents row per record.
type Writer struct{}

func NewWriter() *Writer {
	return &Writer{}
}

func (w *Writer) WriteDocumentReport(out io.Writer, analytics domain.Analytics, docs []domain.Document) error {
	f := excelize.NewFile()
	defer func() {
		_ = f.Close()
	}()

	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return fmt.Errorf("rename summary sheet: %w", err)
	}
	summary := [][]any{
		{"customer_id", analytics.CustomerID},
		{"document_count", analytics.DocumentCount},
		{"average_sentiment", analytics.AverageSentiment},
		{"generated_at", time.Now().UTC().Format(time.RFC3339)},
	}
	for i, row := range summary {
		if err := f.SetSheetRow(summarySheet, cellName(1, i+1), &row); err != nil {
			return fmt.Errorf("write summary row: %w", err)
		}
	}

	if _, err := f.NewSheet(documentsSheet); err != nil {
		return fmt.Errorf("create documents sheet: %w", err)
	}
	header := documentHeader
	if err := f.SetSheetRow(documentsSheet, "A1", &header); err != nil {
		return fmt.Errorf("write documents header: %w", err)
	}
	for i, doc := range docs {
		row := []any{
			doc.ContentHash,
			doc.Filename,
			doc.SizeBytes,
			doc.PageCount,
			doc.SentimentScore,
			doc.CreatedAt.UTC().Format(time.RFC3339),
		}
		if err := f.SetSheetRow(documentsSheet, cellName(1, i+2), &row); err != nil {
			return fmt.Errorf("write document row: %w", err)
		}
	}

	if _, err := f.WriteTo(out); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func cellName(col, row int) string {
	name, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return "A1"
	}
	return name
}
