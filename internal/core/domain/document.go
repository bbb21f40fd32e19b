package domain

import "time"

// Document is the stored record for one unique (customer, content hash) pair.
// Records are written once and never updated in place.
type Document struct {
	CustomerID     string    `json:"customer_id"`
	ContentHash    string    `json:"document_hash"`
	BlobRef        string    `json:"blob_ref"`
	Filename       string    `json:"filename,omitempty"`
	SizeBytes      int64     `json:"size_bytes"`
	PageCount      int       `json:"page_count"`
	ExtractedText  string    `json:"extracted_text,omitempty"`
	SentimentScore float64   `json:"sentiment_score"`
	CreatedAt      time.Time `json:"created_at"`
}

type Extraction struct {
	Text      string
	PageCount int
}

type IngestStatus string

const (
	IngestStored    IngestStatus = "stored"
	IngestDuplicate IngestStatus = "duplicate"
)

type IngestResult struct {
	Status       IngestStatus `json:"status"`
	DocumentHash string       `json:"document_hash"`
	BlobRef      string       `json:"blob_ref,omitempty"`
	Document     *Document    `json:"-"`
}

type DocumentPage struct {
	Documents []Document `json:"documents"`
	Total     int        `json:"total"`
	Page      int        `json:"page"`
	PerPage   int        `json:"per_page"`
}
