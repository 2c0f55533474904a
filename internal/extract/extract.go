package extract

import (
	"context"
	"errors"
	"time"
)

// Provenance tags which extraction path produced a result's fields.
const (
	ProvenanceAttachmentOCR = "attachment-ocr"
	ProvenanceEmailBodyAI   = "email-body-ai"
)

// ErrNoReceiptData is returned when the model reports that the input holds
// no receipt, or when its response cannot be parsed. The pipeline must never
// build a partial receipt from a failed extraction.
var ErrNoReceiptData = errors.New("no receipt data found")

// ErrRenderTimeout is returned when PDF rasterization exceeds its wall-clock
// budget. The orchestrator treats it exactly like an extraction failure.
var ErrRenderTimeout = errors.New("pdf render timed out")

// Result holds structured fields extracted from a receipt. Invariants: Total
// is a non-negative decimal string, Date is never zero, Items is never nil.
type Result struct {
	StoreName  string
	Total      string
	Currency   string
	Date       time.Time
	Items      []string
	Confidence float64
	Provenance string
}

// Scanner extracts receipt fields from a raster image or PDF attachment.
type Scanner interface {
	AnalyzeReceipt(ctx context.Context, imageData []byte, contentType string) (*Result, error)
	Close() error
}

// BodyExtractor extracts receipt fields from raw email text.
type BodyExtractor interface {
	ExtractFromText(ctx context.Context, subject, body string) (*Result, error)
}
